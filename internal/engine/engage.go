package engine

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/flocknet/flock/internal/cache"
	"github.com/flocknet/flock/internal/errs"
	"github.com/flocknet/flock/internal/models"
)

const (
	commentPageSizeDefault = 20
	commentPageSizeMax     = 100
)

// EngageStore is the persistent state the engagement engine needs
type EngageStore interface {
	AccountByID(ctx context.Context, id int64) (*models.Account, error)
	PostByID(ctx context.Context, id int64) (*models.Post, error)
	ToggleLike(ctx context.Context, postID, accountID int64) (*LikeFlip, error)
	CreateComment(ctx context.Context, comment *models.Comment) (bool, error)
	CommentByID(ctx context.Context, id int64) (*models.Comment, error)
	SoftDeleteComment(ctx context.Context, commentID, postID int64) (bool, error)
	CommentsPage(ctx context.Context, postID int64, page, pageSize int) ([]*models.Comment, error)
	AccountsByIDs(ctx context.Context, ids []int64) ([]*models.Account, error)
}

// ToggleLikeResult reports the settled state after a like toggle
type ToggleLikeResult struct {
	Changed   bool  `json:"changed"`
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
}

// CommentView is a comment rendered with its author name
type CommentView struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Engagement manages likes and comments on posts. The like set and the
// comment rows are authoritative; the counters on the post row are kept
// in step by the store inside each mutation.
type Engagement struct {
	store  EngageStore
	cache  Cache
	notify Notifier
	logger *zap.Logger
}

// NewEngagement creates a new engagement engine
func NewEngagement(store EngageStore, cache Cache, notify Notifier, logger *zap.Logger) *Engagement {
	return &Engagement{
		store:  store,
		cache:  cache,
		notify: notify,
		logger: logger,
	}
}

// ToggleLike flips the caller's like on a post. Liking twice unlikes, so
// the operation always changes state when the post is visible.
func (e *Engagement) ToggleLike(ctx context.Context, caller Identity, postID int64) (*ToggleLikeResult, error) {
	post, err := e.visiblePost(ctx, postID)
	if err != nil {
		return nil, err
	}

	flip, err := e.store.ToggleLike(ctx, postID, caller.AccountID)
	if err != nil {
		return nil, errs.Storef(err, "failed to toggle like on post %d", postID)
	}
	if flip == nil {
		// Post vanished between the visibility check and the toggle
		return nil, errs.NotFoundf("post %d not found", postID)
	}

	e.invalidatePost(ctx, postID)

	if flip.Liked && post.AuthorID != caller.AccountID {
		if err := e.notify.NotifyLike(ctx, caller.AccountID, post.AuthorID, postID); err != nil {
			e.logger.Warn("Like notification failed",
				zap.Int64("post_id", postID),
				zap.Error(err))
		}
	}

	e.logger.Debug("Like toggled",
		zap.Int64("post_id", postID),
		zap.Int64("account_id", caller.AccountID),
		zap.Bool("liked", flip.Liked))

	return &ToggleLikeResult{Changed: true, Liked: flip.Liked, LikeCount: flip.LikeCount}, nil
}

// AddComment adds a comment to a visible post
func (e *Engagement) AddComment(ctx context.Context, caller Identity, postID int64, body string) (*CommentView, error) {
	if err := ValidateCommentBody(body); err != nil {
		return nil, err
	}

	author, err := e.store.AccountByID(ctx, caller.AccountID)
	if err != nil {
		return nil, errs.Storef(err, "failed to load account %d", caller.AccountID)
	}
	if author == nil {
		return nil, errs.NotFoundf("account %d not found", caller.AccountID)
	}
	if author.Banned {
		return nil, errs.Forbiddenf("account %s is banned", author.Name)
	}

	post, err := e.visiblePost(ctx, postID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:    postID,
		AuthorID:  caller.AccountID,
		Body:      strings.TrimSpace(body),
		CreatedAt: time.Now().UTC(),
	}
	created, err := e.store.CreateComment(ctx, comment)
	if err != nil {
		return nil, errs.Storef(err, "failed to comment on post %d", postID)
	}
	if !created {
		return nil, errs.NotFoundf("post %d not found", postID)
	}

	e.invalidatePost(ctx, postID)

	if post.AuthorID != caller.AccountID {
		if err := e.notify.NotifyComment(ctx, caller.AccountID, post.AuthorID, postID); err != nil {
			e.logger.Warn("Comment notification failed",
				zap.Int64("post_id", postID),
				zap.Error(err))
		}
	}

	return &CommentView{
		ID:        comment.ID,
		PostID:    comment.PostID,
		Author:    author.Name,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
	}, nil
}

// DeleteComment soft-deletes a comment. Only the comment author or an
// elevated role may delete; repeats are no-ops reported through Changed.
func (e *Engagement) DeleteComment(ctx context.Context, caller Identity, commentID int64) (*SoftDeleteResult, error) {
	comment, err := e.store.CommentByID(ctx, commentID)
	if err != nil {
		return nil, errs.Storef(err, "failed to load comment %d", commentID)
	}
	if comment == nil {
		return nil, errs.NotFoundf("comment %d not found", commentID)
	}

	if comment.AuthorID != caller.AccountID && !caller.Role.Elevated() {
		return nil, errs.Forbiddenf("not allowed to delete comment %d", commentID)
	}

	if comment.IsDeleted {
		return &SoftDeleteResult{Changed: false}, nil
	}

	changed, err := e.store.SoftDeleteComment(ctx, commentID, comment.PostID)
	if err != nil {
		return nil, errs.Storef(err, "failed to delete comment %d", commentID)
	}

	if changed {
		e.invalidatePost(ctx, comment.PostID)
	}
	return &SoftDeleteResult{Changed: changed}, nil
}

// Comments returns one page of a post's visible comments in conversation
// order, rendered with author names
func (e *Engagement) Comments(ctx context.Context, postID int64, page, pageSize int) ([]*CommentView, error) {
	if _, err := e.visiblePost(ctx, postID); err != nil {
		return nil, err
	}

	page = clampPage(page)
	pageSize = clampPageSize(pageSize, commentPageSizeDefault, commentPageSizeMax)

	comments, err := e.store.CommentsPage(ctx, postID, page, pageSize)
	if err != nil {
		return nil, errs.Storef(err, "failed to list comments on post %d", postID)
	}

	authorIDs := make([]int64, 0, len(comments))
	seen := make(map[int64]bool)
	for _, c := range comments {
		if !seen[c.AuthorID] {
			seen[c.AuthorID] = true
			authorIDs = append(authorIDs, c.AuthorID)
		}
	}
	accounts, err := e.store.AccountsByIDs(ctx, authorIDs)
	if err != nil {
		return nil, errs.Storef(err, "failed to load comment authors")
	}
	names := make(map[int64]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}

	views := make([]*CommentView, 0, len(comments))
	for _, c := range comments {
		name, ok := names[c.AuthorID]
		if !ok {
			continue // Skip comments without author
		}
		views = append(views, &CommentView{
			ID:        c.ID,
			PostID:    c.PostID,
			Author:    name,
			Body:      c.Body,
			CreatedAt: c.CreatedAt,
		})
	}
	return views, nil
}

// visiblePost loads a post and maps missing or soft-deleted to not found
func (e *Engagement) visiblePost(ctx context.Context, postID int64) (*models.Post, error) {
	post, err := e.store.PostByID(ctx, postID)
	if err != nil {
		return nil, errs.Storef(err, "failed to load post %d", postID)
	}
	if !Visible(post, false) {
		return nil, errs.NotFoundf("post %d not found", postID)
	}
	return post, nil
}

func (e *Engagement) invalidatePost(ctx context.Context, postID int64) {
	if err := e.cache.Delete(ctx, cache.KeyPost(postID)); err != nil {
		e.logger.Debug("Post invalidation failed", zap.Int64("post_id", postID), zap.Error(err))
	}
}

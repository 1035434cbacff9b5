package engine

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/flocknet/flock/internal/cache"
	"github.com/flocknet/flock/internal/errs"
	"github.com/flocknet/flock/internal/models"
	"github.com/flocknet/flock/pkg/config"
)

const (
	postPageSizeDefault = 20
	postPageSizeMax     = 100
)

// PostStore is the persistent state the post lifecycle manager needs
type PostStore interface {
	AccountByID(ctx context.Context, id int64) (*models.Account, error)
	AccountByName(ctx context.Context, name string) (*models.Account, error)
	CreatePost(ctx context.Context, post *models.Post) error
	PostByID(ctx context.Context, id int64) (*models.Post, error)
	SoftDeletePost(ctx context.Context, postID, authorID int64) (bool, error)
	PostsByAuthorPage(ctx context.Context, authorID int64, page, pageSize int) ([]*models.Post, error)
	FollowerIDs(ctx context.Context, accountID int64) ([]int64, error)
}

// PostView is a post rendered with its author name
type PostView struct {
	ID           int64      `json:"id"`
	Author       string     `json:"author"`
	Body         string     `json:"body"`
	Media        string     `json:"media,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	LikeCount    int64      `json:"like_count"`
	CommentCount int64      `json:"comment_count"`
	IsDeleted    bool       `json:"is_deleted,omitempty"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// SoftDeleteResult reports whether a delete changed anything
type SoftDeleteResult struct {
	Changed bool `json:"changed"`
}

// Lifecycle manages post creation, reads and soft deletion. Deleted posts
// keep their rows; every read path filters them out unless the owner or
// an elevated role asks for them explicitly.
type Lifecycle struct {
	store  PostStore
	cache  Cache
	tuning *config.CacheConfig
	feed   *config.FeedConfig
	logger *zap.Logger
}

// NewLifecycle creates a new post lifecycle manager
func NewLifecycle(store PostStore, cache Cache, tuning *config.CacheConfig, feed *config.FeedConfig, logger *zap.Logger) *Lifecycle {
	return &Lifecycle{
		store:  store,
		cache:  cache,
		tuning: tuning,
		feed:   feed,
		logger: logger,
	}
}

// CreatePost stores a new post by the caller and invalidates every feed
// that should now include it
func (l *Lifecycle) CreatePost(ctx context.Context, caller Identity, body, media string) (*PostView, error) {
	if err := ValidatePostBody(body); err != nil {
		return nil, err
	}
	if err := ValidateMediaURL(media); err != nil {
		return nil, err
	}

	author, err := l.store.AccountByID(ctx, caller.AccountID)
	if err != nil {
		return nil, errs.Storef(err, "failed to load account %d", caller.AccountID)
	}
	if author == nil {
		return nil, errs.NotFoundf("account %d not found", caller.AccountID)
	}
	if author.Banned {
		return nil, errs.Forbiddenf("account %s is banned", author.Name)
	}

	post := &models.Post{
		AuthorID:  author.ID,
		Body:      strings.TrimSpace(body),
		Media:     media,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.store.CreatePost(ctx, post); err != nil {
		return nil, errs.Storef(err, "failed to create post")
	}

	l.invalidateAuthor(ctx, author)

	l.logger.Info("Post created",
		zap.Int64("post_id", post.ID),
		zap.String("author", author.Name))

	return renderPost(post, author.Name), nil
}

// GetPost returns one post. Soft-deleted posts read as not found unless
// the caller owns the post or holds an elevated role and asked for
// deleted content.
func (l *Lifecycle) GetPost(ctx context.Context, caller Identity, postID int64, includeDeleted bool) (*PostView, error) {
	if !includeDeleted {
		key := cache.KeyPost(postID)
		var cached PostView
		if found, err := l.cache.GetJSON(ctx, key, &cached); err == nil && found {
			return &cached, nil
		}
	}

	post, err := l.store.PostByID(ctx, postID)
	if err != nil {
		return nil, errs.Storef(err, "failed to load post %d", postID)
	}
	if post == nil {
		return nil, errs.NotFoundf("post %d not found", postID)
	}
	allowDeleted := includeDeleted && (post.AuthorID == caller.AccountID || caller.Role.Elevated())
	if !Visible(post, allowDeleted) {
		return nil, errs.NotFoundf("post %d not found", postID)
	}

	author, err := l.store.AccountByID(ctx, post.AuthorID)
	if err != nil {
		return nil, errs.Storef(err, "failed to load account %d", post.AuthorID)
	}
	if author == nil {
		return nil, errs.NotFoundf("post %d not found", postID)
	}

	view := renderPost(post, author.Name)
	if !post.IsDeleted {
		// Only visible posts are cached, a deleted view must never
		// outlive the delete through a stale entry
		if err := l.cache.SetJSON(ctx, cache.KeyPost(postID), view, l.tuning.PostTTL); err != nil {
			l.logger.Debug("Post cache write failed", zap.Int64("post_id", postID), zap.Error(err))
		}
	}
	return view, nil
}

// SoftDelete hides a post. Only the author or an elevated role may
// delete; repeats are no-ops reported through Changed.
func (l *Lifecycle) SoftDelete(ctx context.Context, caller Identity, postID int64) (*SoftDeleteResult, error) {
	post, err := l.store.PostByID(ctx, postID)
	if err != nil {
		return nil, errs.Storef(err, "failed to load post %d", postID)
	}
	if post == nil {
		return nil, errs.NotFoundf("post %d not found", postID)
	}

	if post.AuthorID != caller.AccountID && !caller.Role.Elevated() {
		return nil, errs.Forbiddenf("not allowed to delete post %d", postID)
	}

	if post.IsDeleted {
		return &SoftDeleteResult{Changed: false}, nil
	}

	changed, err := l.store.SoftDeletePost(ctx, postID, post.AuthorID)
	if err != nil {
		return nil, errs.Storef(err, "failed to delete post %d", postID)
	}

	if changed {
		if err := l.cache.Delete(ctx, cache.KeyPost(postID)); err != nil {
			l.logger.Debug("Post invalidation failed", zap.Int64("post_id", postID), zap.Error(err))
		}
		author, err := l.store.AccountByID(ctx, post.AuthorID)
		if err != nil {
			return nil, errs.Storef(err, "failed to load account %d", post.AuthorID)
		}
		if author != nil {
			l.invalidateAuthor(ctx, author)
		}
		l.logger.Info("Post deleted",
			zap.Int64("post_id", postID),
			zap.Int64("deleted_by", caller.AccountID))
	}
	return &SoftDeleteResult{Changed: changed}, nil
}

// AuthorPosts returns one page of the named account's visible posts,
// newest first
func (l *Lifecycle) AuthorPosts(ctx context.Context, authorName string, page, pageSize int) ([]*PostView, error) {
	if err := ValidateAccountName(authorName); err != nil {
		return nil, err
	}
	author, err := l.store.AccountByName(ctx, authorName)
	if err != nil {
		return nil, errs.Storef(err, "failed to load account %s", authorName)
	}
	if author == nil {
		return nil, errs.NotFoundf("account %s not found", authorName)
	}

	page = clampPage(page)
	pageSize = clampPageSize(pageSize, postPageSizeDefault, postPageSizeMax)

	posts, err := l.store.PostsByAuthorPage(ctx, author.ID, page, pageSize)
	if err != nil {
		return nil, errs.Storef(err, "failed to list posts by %s", authorName)
	}

	views := make([]*PostView, 0, len(posts))
	for _, p := range posts {
		views = append(views, renderPost(p, author.Name))
	}
	return views, nil
}

// invalidateAuthor drops the author's cached profile and bumps the feed
// version of the author and every follower, since their feeds changed
func (l *Lifecycle) invalidateAuthor(ctx context.Context, author *models.Account) {
	if err := l.cache.Delete(ctx, cache.KeyProfile(author.Name)); err != nil {
		l.logger.Debug("Profile invalidation failed", zap.String("name", author.Name), zap.Error(err))
	}

	followerIDs, err := l.store.FollowerIDs(ctx, author.ID)
	if err != nil {
		l.logger.Warn("Feed fanout skipped, follower list unavailable",
			zap.Int64("account_id", author.ID),
			zap.Error(err))
		followerIDs = nil
	}

	keys := make([]string, 0, len(followerIDs)+1)
	keys = append(keys, cache.KeyFeedVersion(author.ID))
	for _, id := range followerIDs {
		keys = append(keys, cache.KeyFeedVersion(id))
	}

	batch := l.feed.FanoutBatch
	for start := 0; start < len(keys); start += batch {
		end := start + batch
		if end > len(keys) {
			end = len(keys)
		}
		if err := l.cache.IncrAll(ctx, keys[start:end]...); err != nil {
			l.logger.Debug("Feed version fanout failed",
				zap.Int64("account_id", author.ID),
				zap.Int("batch_start", start),
				zap.Error(err))
		}
	}
}

func renderPost(post *models.Post, authorName string) *PostView {
	view := &PostView{
		ID:           post.ID,
		Author:       authorName,
		Body:         post.Body,
		Media:        post.Media,
		CreatedAt:    post.CreatedAt,
		LikeCount:    post.LikeCount,
		CommentCount: post.CommentCount,
		IsDeleted:    post.IsDeleted,
	}
	if post.DeletedAt.Valid {
		t := post.DeletedAt.Time
		view.DeletedAt = &t
	}
	return view
}

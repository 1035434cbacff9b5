package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/flocknet/flock/internal/engine"
	"github.com/flocknet/flock/internal/models"
)

// PostRepository provides post-related database operations
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// CreatePost inserts a post and bumps the author's post count in one
// transaction
func (r *PostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		return tx.Model(&models.Account{}).
			Where("id = ?", post.AuthorID).
			UpdateColumns(map[string]interface{}{
				"post_count": gorm.Expr("post_count + 1"),
				"active_at":  post.CreatedAt,
			}).Error
	})
}

// PostByID retrieves a post by ID. Soft-deleted rows are returned as-is;
// visibility is the caller's concern.
func (r *PostRepository) PostByID(ctx context.Context, id int64) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// SoftDeletePost marks a post deleted and decrements the author's post
// count in one transaction. The guard on is_deleted makes repeats affect
// zero rows, so the count is only decremented once. The bool reports
// whether this call performed the delete.
func (r *PostRepository) SoftDeletePost(ctx context.Context, postID, authorID int64) (bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Post{}).
			Where("id = ? AND is_deleted = ?", postID, false).
			UpdateColumns(map[string]interface{}{
				"is_deleted": true,
				"deleted_at": sql.NullTime{Time: time.Now().UTC(), Valid: true},
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		changed = true

		return tx.Model(&models.Account{}).
			Where("id = ?", authorID).
			UpdateColumn("post_count", gorm.Expr("GREATEST(post_count - 1, 0)")).Error
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// PostsByAuthors returns one page of visible posts by any of the given
// authors, newest first. Used for feed assembly.
func (r *PostRepository) PostsByAuthors(ctx context.Context, authorIDs []int64, page, pageSize int) ([]*models.Post, error) {
	var posts []*models.Post
	if len(authorIDs) == 0 {
		return posts, nil
	}
	if err := r.db.WithContext(ctx).
		Where("author_id IN ? AND is_deleted = ?", authorIDs, false).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// PostsByAuthorPage returns one page of a single author's visible posts,
// newest first
func (r *PostRepository) PostsByAuthorPage(ctx context.Context, authorID int64, page, pageSize int) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Where("author_id = ? AND is_deleted = ?", authorID, false).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// ToggleLike flips the caller's like on a post and adjusts like_count in
// the same transaction. Inserting the like row first and branching on
// RowsAffected makes concurrent toggles settle on the row's final state
// rather than double counting. Returns nil when the post is missing or
// deleted.
func (r *PostRepository) ToggleLike(ctx context.Context, postID, accountID int64) (*engine.LikeFlip, error) {
	var flip *engine.LikeFlip
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id", "is_deleted").First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if post.IsDeleted {
			return nil
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.PostLike{
			PostID:    postID,
			AccountID: accountID,
			CreatedAt: time.Now().UTC(),
		})
		if res.Error != nil {
			return res.Error
		}

		liked := res.RowsAffected == 1
		if liked {
			if err := tx.Model(&models.Post{}).
				Where("id = ?", postID).
				UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error; err != nil {
				return err
			}
		} else {
			del := tx.Where("post_id = ? AND account_id = ?", postID, accountID).
				Delete(&models.PostLike{})
			if del.Error != nil {
				return del.Error
			}
			if del.RowsAffected == 1 {
				if err := tx.Model(&models.Post{}).
					Where("id = ?", postID).
					UpdateColumn("like_count", gorm.Expr("GREATEST(like_count - 1, 0)")).Error; err != nil {
					return err
				}
			}
		}

		var updated models.Post
		if err := tx.Select("like_count").First(&updated, postID).Error; err != nil {
			return err
		}
		flip = &engine.LikeFlip{Liked: liked, LikeCount: updated.LikeCount}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return flip, nil
}

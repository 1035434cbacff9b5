package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/flocknet/flock/internal/models"
)

// CommentRepository provides comment-related database operations
type CommentRepository struct {
	*Repository
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(repo *Repository) *CommentRepository {
	return &CommentRepository{Repository: repo}
}

// CreateComment inserts a comment and bumps the post's comment count in
// one transaction. The post's visibility is rechecked inside the
// transaction so a comment can never land on a deleted post. The bool
// reports whether the post was found visible and the comment created.
func (r *CommentRepository) CreateComment(ctx context.Context, comment *models.Comment) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id", "is_deleted").First(&post, comment.PostID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if post.IsDeleted {
			return nil
		}

		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		created = true

		return tx.Model(&models.Post{}).
			Where("id = ?", comment.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// CommentByID retrieves a comment by ID
func (r *CommentRepository) CommentByID(ctx context.Context, id int64) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

// SoftDeleteComment marks a comment deleted and decrements the post's
// comment count in one transaction. Repeats affect zero rows and leave
// the count alone. The bool reports whether this call performed the
// delete.
func (r *CommentRepository) SoftDeleteComment(ctx context.Context, commentID, postID int64) (bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Comment{}).
			Where("id = ? AND is_deleted = ?", commentID, false).
			UpdateColumn("is_deleted", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		changed = true

		return tx.Model(&models.Post{}).
			Where("id = ?", postID).
			UpdateColumn("comment_count", gorm.Expr("GREATEST(comment_count - 1, 0)")).Error
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// CommentsPage returns one page of a post's visible comments in
// conversation order, oldest first
func (r *CommentRepository) CommentsPage(ctx context.Context, postID int64, page, pageSize int) ([]*models.Comment, error) {
	var comments []*models.Comment
	if err := r.db.WithContext(ctx).
		Where("post_id = ? AND is_deleted = ?", postID, false).
		Order("created_at ASC, id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

package models

import (
	"database/sql"
	"time"
)

// Post represents a post. Posts are never physically deleted; IsDeleted
// hides them from every listing path while the explicit include-deleted
// read keeps them retrievable for the owner and moderators.
type Post struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	AuthorID  int64     `gorm:"not null;index:flock_posts_ix1,priority:1;column:author_id"`
	Body      string    `gorm:"type:text;not null;column:body"`
	Media     string    `gorm:"type:varchar(1024);not null;default:'';column:media"`
	CreatedAt time.Time `gorm:"not null;index:flock_posts_ix1,priority:2;column:created_at"`

	// Denormalized engagement counters, maintained atomically alongside
	// the like/comment rows that back them.
	LikeCount    int64 `gorm:"not null;default:0;column:like_count"`
	CommentCount int64 `gorm:"not null;default:0;column:comment_count"`

	IsDeleted bool         `gorm:"not null;default:false;column:is_deleted"`
	DeletedAt sql.NullTime `gorm:"column:deleted_at"`

	// Relationships
	Author *Account `gorm:"foreignKey:AuthorID;references:ID"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "flock_posts"
}

// PostLike represents membership in a post's likes set. Set semantics, not
// a multiset: the composite primary key holds at most one row per
// (post, account) pair.
type PostLike struct {
	PostID    int64     `gorm:"primaryKey;autoIncrement:false;column:post_id"`
	AccountID int64     `gorm:"primaryKey;autoIncrement:false;column:account_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for PostLike
func (PostLike) TableName() string {
	return "flock_post_likes"
}

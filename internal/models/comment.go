package models

import (
	"time"
)

// Comment represents a comment on a post. Creation and deletion adjust the
// parent post's comment_count in the same transaction, so the count and
// the rows never diverge at rest.
type Comment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	PostID    int64     `gorm:"not null;index:flock_comments_ix1;column:post_id"`
	AuthorID  int64     `gorm:"not null;column:author_id"`
	Body      string    `gorm:"type:varchar(2000);not null;column:body"`
	IsDeleted bool      `gorm:"not null;default:false;column:is_deleted"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`

	// Relationships
	Post   *Post    `gorm:"foreignKey:PostID;references:ID"`
	Author *Account `gorm:"foreignKey:AuthorID;references:ID"`
}

// TableName specifies the table name for Comment
func (Comment) TableName() string {
	return "flock_comments"
}

package models

import (
	"time"
)

// Follow represents a directed follow edge: follower observes following's
// posts. The composite primary key makes the pair unique at the store
// level, which is what lets creation be an atomic insert-if-absent.
type Follow struct {
	FollowerID  int64     `gorm:"primaryKey;autoIncrement:false;column:follower_id"`
	FollowingID int64     `gorm:"primaryKey;autoIncrement:false;column:following_id"`
	CreatedAt   time.Time `gorm:"not null;column:created_at"`

	// Relationships
	Follower  *Account `gorm:"foreignKey:FollowerID;references:ID"`
	Following *Account `gorm:"foreignKey:FollowingID;references:ID"`
}

// TableName specifies the table name for Follow
func (Follow) TableName() string {
	return "flock_follows"
}

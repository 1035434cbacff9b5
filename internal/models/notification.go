package models

import (
	"database/sql"
	"time"
)

// Notification represents a notification row written by the store-backed
// notification collaborator. Fire-and-forget: the engine never waits on or
// fails because of these.
type Notification struct {
	ID        int64         `gorm:"primaryKey;autoIncrement;column:id"`
	Type      int16         `gorm:"type:smallint;not null;column:type_id"`
	CreatedAt time.Time     `gorm:"not null;column:created_at"`
	SrcID     sql.NullInt64 `gorm:"column:src_id"`
	DstID     sql.NullInt64 `gorm:"index:flock_notifs_ix1;column:dst_id"`
	PostID    sql.NullInt64 `gorm:"column:post_id"`

	// Relationships
	Src  *Account `gorm:"foreignKey:SrcID;references:ID"`
	Dst  *Account `gorm:"foreignKey:DstID;references:ID"`
	Post *Post    `gorm:"foreignKey:PostID;references:ID"`
}

// TableName specifies the table name for Notification
func (Notification) TableName() string {
	return "flock_notifs"
}

// Notification type constants
const (
	NotifyTypeFollow  int16 = 1
	NotifyTypeLike    int16 = 2
	NotifyTypeComment int16 = 3
)

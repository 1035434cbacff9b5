package models

import (
	"database/sql"
	"time"
)

// Account represents a registered account
type Account struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	Name      string    `gorm:"type:varchar(16);not null;uniqueIndex:flock_accounts_ux1;column:name"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`

	// Profile fields
	DisplayName  sql.NullString `gorm:"type:varchar(20);column:display_name"`
	About        sql.NullString `gorm:"type:varchar(160);column:about"`
	Location     sql.NullString `gorm:"type:varchar(30);column:location"`
	Website      sql.NullString `gorm:"type:varchar(100);column:website"`
	ProfileImage string         `gorm:"type:varchar(1024);not null;default:'';column:profile_image"`

	// Moderation state, flipped by the admin surface upstream of this core
	Banned bool `gorm:"not null;default:false;column:banned"`

	// Denormalized social stats. Derived state: the follow and post tables
	// are authoritative, these exist for O(1) display and are kept in sync
	// by every mutation that affects them.
	Followers int64 `gorm:"not null;default:0;column:followers"`
	Following int64 `gorm:"not null;default:0;column:following"`
	PostCount int64 `gorm:"not null;default:0;column:post_count"`

	// Activity tracking
	LastreadAt time.Time `gorm:"not null;default:'1970-01-01 00:00:00';column:lastread_at"`
	ActiveAt   time.Time `gorm:"not null;default:'1970-01-01 00:00:00';column:active_at"`
}

// TableName specifies the table name for Account
func (Account) TableName() string {
	return "flock_accounts"
}

package models

import (
	"time"
)

// ReconcileRun records one pass of the offline counter reconciler, which
// recomputes the denormalized counters from the source tables to heal
// drift left behind by historic bugs or partial failures.
type ReconcileRun struct {
	ID              int64     `gorm:"primaryKey;autoIncrement;column:id"`
	StartedAt       time.Time `gorm:"not null;column:started_at"`
	FinishedAt      time.Time `gorm:"not null;column:finished_at"`
	AccountsScanned int64     `gorm:"not null;default:0;column:accounts_scanned"`
	PostsScanned    int64     `gorm:"not null;default:0;column:posts_scanned"`
	DriftRepaired   int64     `gorm:"not null;default:0;column:drift_repaired"`
}

// TableName specifies the table name for ReconcileRun
func (ReconcileRun) TableName() string {
	return "flock_reconcile_runs"
}

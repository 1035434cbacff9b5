package db

import (
	"context"
	"database/sql"

	"github.com/flocknet/flock/internal/models"
)

// ReconcileRepository provides the counter reconciliation statements. Each
// recount compares denormalized counters against the authoritative rows
// and rewrites only the accounts or posts that drifted.
type ReconcileRepository struct {
	*Repository
}

// NewReconcileRepository creates a new reconcile repository
func NewReconcileRepository(repo *Repository) *ReconcileRepository {
	return &ReconcileRepository{Repository: repo}
}

// RepairedAccount identifies an account whose counters were rewritten.
// The name is returned alongside the ID because cache invalidation keys
// profiles by name.
type RepairedAccount struct {
	ID   int64
	Name string
}

const recountAccountsSQL = `
UPDATE flock_accounts a
SET followers = sub.fcnt, following = sub.gcnt, post_count = sub.pcnt
FROM (
	SELECT a2.id,
		(SELECT COUNT(*) FROM flock_follows f WHERE f.following_id = a2.id) AS fcnt,
		(SELECT COUNT(*) FROM flock_follows f WHERE f.follower_id = a2.id) AS gcnt,
		(SELECT COUNT(*) FROM flock_posts p WHERE p.author_id = a2.id AND p.is_deleted = false) AS pcnt
	FROM flock_accounts a2
	WHERE a2.id >= ? AND a2.id < ?
) sub
WHERE sub.id = a.id
	AND (a.followers <> sub.fcnt OR a.following <> sub.gcnt OR a.post_count <> sub.pcnt)
RETURNING a.id, a.name`

const recountPostsSQL = `
UPDATE flock_posts p
SET like_count = sub.lcnt, comment_count = sub.ccnt
FROM (
	SELECT p2.id,
		(SELECT COUNT(*) FROM flock_post_likes l WHERE l.post_id = p2.id) AS lcnt,
		(SELECT COUNT(*) FROM flock_comments c WHERE c.post_id = p2.id AND c.is_deleted = false) AS ccnt
	FROM flock_posts p2
	WHERE p2.id >= ? AND p2.id < ?
) sub
WHERE sub.id = p.id
	AND (p.like_count <> sub.lcnt OR p.comment_count <> sub.ccnt)
RETURNING p.id`

// RecountAccountRange repairs follower, following and post counters for
// accounts with IDs in [lo, hi) and returns the accounts it rewrote.
func (r *ReconcileRepository) RecountAccountRange(ctx context.Context, lo, hi int64) ([]RepairedAccount, error) {
	var repaired []RepairedAccount
	if err := r.db.WithContext(ctx).Raw(recountAccountsSQL, lo, hi).Scan(&repaired).Error; err != nil {
		return nil, err
	}
	return repaired, nil
}

// RecountPostRange repairs like and comment counters for posts with IDs
// in [lo, hi) and returns the IDs of the posts it rewrote.
func (r *ReconcileRepository) RecountPostRange(ctx context.Context, lo, hi int64) ([]int64, error) {
	var repaired []int64
	if err := r.db.WithContext(ctx).Raw(recountPostsSQL, lo, hi).Scan(&repaired).Error; err != nil {
		return nil, err
	}
	return repaired, nil
}

// MaxAccountID returns the highest account ID, zero on an empty table
func (r *ReconcileRepository) MaxAccountID(ctx context.Context) (int64, error) {
	return r.maxID(ctx, "flock_accounts")
}

// MaxPostID returns the highest post ID, zero on an empty table
func (r *ReconcileRepository) MaxPostID(ctx context.Context) (int64, error) {
	return r.maxID(ctx, "flock_posts")
}

func (r *ReconcileRepository) maxID(ctx context.Context, table string) (int64, error) {
	var max sql.NullInt64
	if err := r.db.WithContext(ctx).
		Table(table).
		Select("MAX(id)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	if !max.Valid {
		return 0, nil
	}
	return max.Int64, nil
}

// CountAccounts returns the total number of accounts
func (r *ReconcileRepository) CountAccounts(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Account{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountPosts returns the total number of posts
func (r *ReconcileRepository) CountPosts(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CreateRun records the start of a reconciliation pass
func (r *ReconcileRepository) CreateRun(ctx context.Context, run *models.ReconcileRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// UpdateRun records the final stats of a reconciliation pass
func (r *ReconcileRepository) UpdateRun(ctx context.Context, run *models.ReconcileRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

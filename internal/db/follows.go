package db

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/flocknet/flock/internal/models"
)

// FollowRepository provides follow graph database operations
type FollowRepository struct {
	*Repository
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(repo *Repository) *FollowRepository {
	return &FollowRepository{Repository: repo}
}

// CreateFollow inserts a follow edge and bumps both denormalized counters
// in one transaction. The insert uses ON CONFLICT DO NOTHING on the
// composite key, so a repeated follow affects zero rows and the counters
// are left untouched. The bool reports whether the edge was created.
func (r *FollowRepository) CreateFollow(ctx context.Context, followerID, followingID int64) (bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Follow{
			FollowerID:  followerID,
			FollowingID: followingID,
			CreatedAt:   time.Now().UTC(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		changed = true

		if err := tx.Model(&models.Account{}).
			Where("id = ?", followerID).
			UpdateColumn("following", gorm.Expr("following + 1")).Error; err != nil {
			return err
		}
		return tx.Model(&models.Account{}).
			Where("id = ?", followingID).
			UpdateColumn("followers", gorm.Expr("followers + 1")).Error
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// DeleteFollow removes a follow edge and decrements both counters in one
// transaction. Decrements floor at zero so a stale counter can never go
// negative. The bool reports whether an edge existed.
func (r *FollowRepository) DeleteFollow(ctx context.Context, followerID, followingID int64) (bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("follower_id = ? AND following_id = ?", followerID, followingID).
			Delete(&models.Follow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		changed = true

		if err := tx.Model(&models.Account{}).
			Where("id = ?", followerID).
			UpdateColumn("following", gorm.Expr("GREATEST(following - 1, 0)")).Error; err != nil {
			return err
		}
		return tx.Model(&models.Account{}).
			Where("id = ?", followingID).
			UpdateColumn("followers", gorm.Expr("GREATEST(followers - 1, 0)")).Error
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// FollowerIDs returns the IDs of every account following the given account
func (r *FollowRepository) FollowerIDs(ctx context.Context, accountID int64) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("following_id = ?", accountID).
		Pluck("follower_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// FollowingIDs returns the IDs of every account the given account follows
func (r *FollowRepository) FollowingIDs(ctx context.Context, accountID int64) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ?", accountID).
		Pluck("following_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// FollowersPage returns one page of an account's followers, newest edge
// first
func (r *FollowRepository) FollowersPage(ctx context.Context, accountID int64, page, pageSize int) ([]*models.Account, error) {
	var accounts []*models.Account
	if err := r.db.WithContext(ctx).
		Joins("JOIN flock_follows f ON f.follower_id = flock_accounts.id").
		Where("f.following_id = ?", accountID).
		Order("f.created_at DESC, flock_accounts.id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// FollowingPage returns one page of the accounts an account follows,
// newest edge first
func (r *FollowRepository) FollowingPage(ctx context.Context, accountID int64, page, pageSize int) ([]*models.Account, error) {
	var accounts []*models.Account
	if err := r.db.WithContext(ctx).
		Joins("JOIN flock_follows f ON f.following_id = flock_accounts.id").
		Where("f.follower_id = ?", accountID).
		Order("f.created_at DESC, flock_accounts.id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// SuggestAccounts returns accounts the given account does not yet follow,
// most followed first. Banned accounts and the account itself are excluded.
func (r *FollowRepository) SuggestAccounts(ctx context.Context, accountID int64, limit int) ([]*models.Account, error) {
	var accounts []*models.Account
	if err := r.db.WithContext(ctx).
		Where("flock_accounts.id <> ? AND flock_accounts.banned = ?", accountID, false).
		Where("NOT EXISTS (SELECT 1 FROM flock_follows f WHERE f.follower_id = ? AND f.following_id = flock_accounts.id)", accountID).
		Order("followers DESC, flock_accounts.id ASC").
		Limit(limit).
		Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

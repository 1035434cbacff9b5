package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/flocknet/flock/internal/cache"
	"github.com/flocknet/flock/internal/errs"
	"github.com/flocknet/flock/internal/models"
	"github.com/flocknet/flock/pkg/config"
)

const (
	followPageSizeDefault = 20
	followPageSizeMax     = 100

	suggestLimitDefault = 10
	suggestLimitMax     = 25
)

// GraphStore is the persistent state the follow graph manager needs
type GraphStore interface {
	AccountByID(ctx context.Context, id int64) (*models.Account, error)
	AccountByName(ctx context.Context, name string) (*models.Account, error)
	CreateAccount(ctx context.Context, account *models.Account) (bool, error)
	CreateFollow(ctx context.Context, followerID, followingID int64) (bool, error)
	DeleteFollow(ctx context.Context, followerID, followingID int64) (bool, error)
	FollowersPage(ctx context.Context, accountID int64, page, pageSize int) ([]*models.Account, error)
	FollowingPage(ctx context.Context, accountID int64, page, pageSize int) ([]*models.Account, error)
	SuggestAccounts(ctx context.Context, accountID int64, limit int) ([]*models.Account, error)
}

// FollowResult reports the outcome of a follow or unfollow
type FollowResult struct {
	Changed   bool `json:"changed"`
	Following bool `json:"following"`
}

// FollowGraph manages accounts and the follow edges between them. Edge
// mutations settle inside a store transaction together with both
// denormalized counters; this component layers validation, cache
// invalidation and notifications on top.
type FollowGraph struct {
	store  GraphStore
	cache  Cache
	notify Notifier
	tuning *config.CacheConfig
	logger *zap.Logger
}

// NewFollowGraph creates a new follow graph manager
func NewFollowGraph(store GraphStore, cache Cache, notify Notifier, tuning *config.CacheConfig, logger *zap.Logger) *FollowGraph {
	return &FollowGraph{
		store:  store,
		cache:  cache,
		notify: notify,
		tuning: tuning,
		logger: logger,
	}
}

// Register creates a new account with the given name
func (g *FollowGraph) Register(ctx context.Context, name string) (*models.Account, error) {
	if err := ValidateAccountName(name); err != nil {
		return nil, err
	}

	account := &models.Account{
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	created, err := g.store.CreateAccount(ctx, account)
	if err != nil {
		return nil, errs.Storef(err, "failed to create account %s", name)
	}
	if !created {
		return nil, errs.Validationf("account name %s is taken", name)
	}

	g.logger.Info("Account registered",
		zap.String("name", name),
		zap.Int64("account_id", account.ID))

	return account, nil
}

// Profile returns an account by name, reading through the profile cache
func (g *FollowGraph) Profile(ctx context.Context, name string) (*models.Account, error) {
	if err := ValidateAccountName(name); err != nil {
		return nil, err
	}

	key := cache.KeyProfile(name)
	var cached models.Account
	if found, err := g.cache.GetJSON(ctx, key, &cached); err == nil && found {
		return &cached, nil
	}

	account, err := g.store.AccountByName(ctx, name)
	if err != nil {
		return nil, errs.Storef(err, "failed to load account %s", name)
	}
	if account == nil {
		return nil, errs.NotFoundf("account %s not found", name)
	}

	if err := g.cache.SetJSON(ctx, key, account, g.tuning.ProfileTTL); err != nil {
		g.logger.Debug("Profile cache write failed", zap.String("name", name), zap.Error(err))
	}
	return account, nil
}

// Follow creates a follow edge from the caller to the named account. A
// repeated follow is a no-op reported through Changed, never an error.
func (g *FollowGraph) Follow(ctx context.Context, caller Identity, followeeName string) (*FollowResult, error) {
	follower, followee, err := g.resolvePair(ctx, caller, followeeName)
	if err != nil {
		return nil, err
	}

	changed, err := g.store.CreateFollow(ctx, follower.ID, followee.ID)
	if err != nil {
		return nil, errs.Storef(err, "failed to follow %s", followeeName)
	}

	if changed {
		g.invalidatePair(ctx, follower, followee)
		if err := g.notify.NotifyFollow(ctx, follower.ID, followee.ID); err != nil {
			g.logger.Warn("Follow notification failed",
				zap.Int64("src_id", follower.ID),
				zap.Int64("dst_id", followee.ID),
				zap.Error(err))
		}
		g.logger.Debug("Follow edge created",
			zap.Int64("follower_id", follower.ID),
			zap.Int64("following_id", followee.ID))
	}

	return &FollowResult{Changed: changed, Following: true}, nil
}

// Unfollow removes the follow edge from the caller to the named account.
// Unfollowing an account that was never followed is a no-op reported
// through Changed.
func (g *FollowGraph) Unfollow(ctx context.Context, caller Identity, followeeName string) (*FollowResult, error) {
	follower, followee, err := g.resolvePair(ctx, caller, followeeName)
	if err != nil {
		return nil, err
	}

	changed, err := g.store.DeleteFollow(ctx, follower.ID, followee.ID)
	if err != nil {
		return nil, errs.Storef(err, "failed to unfollow %s", followeeName)
	}

	if changed {
		g.invalidatePair(ctx, follower, followee)
		g.logger.Debug("Follow edge removed",
			zap.Int64("follower_id", follower.ID),
			zap.Int64("following_id", followee.ID))
	}

	return &FollowResult{Changed: changed, Following: false}, nil
}

// Followers returns one page of the named account's followers
func (g *FollowGraph) Followers(ctx context.Context, name string, page, pageSize int) ([]*models.Account, error) {
	account, err := g.Profile(ctx, name)
	if err != nil {
		return nil, err
	}

	page = clampPage(page)
	pageSize = clampPageSize(pageSize, followPageSizeDefault, followPageSizeMax)

	accounts, err := g.store.FollowersPage(ctx, account.ID, page, pageSize)
	if err != nil {
		return nil, errs.Storef(err, "failed to list followers of %s", name)
	}
	return accounts, nil
}

// Following returns one page of the accounts the named account follows
func (g *FollowGraph) Following(ctx context.Context, name string, page, pageSize int) ([]*models.Account, error) {
	account, err := g.Profile(ctx, name)
	if err != nil {
		return nil, err
	}

	page = clampPage(page)
	pageSize = clampPageSize(pageSize, followPageSizeDefault, followPageSizeMax)

	accounts, err := g.store.FollowingPage(ctx, account.ID, page, pageSize)
	if err != nil {
		return nil, errs.Storef(err, "failed to list accounts %s follows", name)
	}
	return accounts, nil
}

// Suggestions returns accounts the caller might want to follow, most
// followed first
func (g *FollowGraph) Suggestions(ctx context.Context, caller Identity, limit int) ([]*models.Account, error) {
	limit = clampPageSize(limit, suggestLimitDefault, suggestLimitMax)

	key := cache.KeySuggestions(caller.AccountID, limit)
	var cached []*models.Account
	if found, err := g.cache.GetJSON(ctx, key, &cached); err == nil && found {
		return cached, nil
	}

	accounts, err := g.store.SuggestAccounts(ctx, caller.AccountID, limit)
	if err != nil {
		return nil, errs.Storef(err, "failed to load follow suggestions")
	}

	if err := g.cache.SetJSON(ctx, key, accounts, g.tuning.SuggestionTTL); err != nil {
		g.logger.Debug("Suggestion cache write failed", zap.Error(err))
	}
	return accounts, nil
}

// resolvePair loads the caller's account and the follow target, rejecting
// self-follow
func (g *FollowGraph) resolvePair(ctx context.Context, caller Identity, followeeName string) (*models.Account, *models.Account, error) {
	if err := ValidateAccountName(followeeName); err != nil {
		return nil, nil, err
	}

	follower, err := g.store.AccountByID(ctx, caller.AccountID)
	if err != nil {
		return nil, nil, errs.Storef(err, "failed to load account %d", caller.AccountID)
	}
	if follower == nil {
		return nil, nil, errs.NotFoundf("account %d not found", caller.AccountID)
	}

	followee, err := g.store.AccountByName(ctx, followeeName)
	if err != nil {
		return nil, nil, errs.Storef(err, "failed to load account %s", followeeName)
	}
	if followee == nil {
		return nil, nil, errs.NotFoundf("account %s not found", followeeName)
	}

	if follower.ID == followee.ID {
		return nil, nil, errs.Validationf("cannot follow yourself")
	}
	return follower, followee, nil
}

// invalidatePair drops both cached profiles and bumps the follower's feed
// version, since their feed composition just changed
func (g *FollowGraph) invalidatePair(ctx context.Context, follower, followee *models.Account) {
	if err := g.cache.Delete(ctx, cache.KeyProfile(follower.Name), cache.KeyProfile(followee.Name)); err != nil {
		g.logger.Debug("Profile invalidation failed", zap.Error(err))
	}
	if _, err := g.cache.Incr(ctx, cache.KeyFeedVersion(follower.ID)); err != nil {
		g.logger.Debug("Feed version bump failed", zap.Int64("account_id", follower.ID), zap.Error(err))
	}
}

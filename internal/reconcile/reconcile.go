// Package reconcile recomputes the denormalized counters from their
// source tables. The engine keeps counters in step inside each mutation;
// this job heals drift left behind by historic bugs, manual edits or
// partial failures, and records every pass so operators can watch the
// books balance.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/flocknet/flock/internal/cache"
	"github.com/flocknet/flock/internal/db"
	"github.com/flocknet/flock/internal/models"
	"github.com/flocknet/flock/pkg/config"
	"github.com/flocknet/flock/pkg/logging"
	"github.com/flocknet/flock/pkg/telemetry"
)

// Store is the reconciliation surface of the persistent store
type Store interface {
	MaxAccountID(ctx context.Context) (int64, error)
	MaxPostID(ctx context.Context) (int64, error)
	CountAccounts(ctx context.Context) (int64, error)
	CountPosts(ctx context.Context) (int64, error)
	RecountAccountRange(ctx context.Context, lo, hi int64) ([]db.RepairedAccount, error)
	RecountPostRange(ctx context.Context, lo, hi int64) ([]int64, error)
	CreateRun(ctx context.Context, run *models.ReconcileRun) error
	UpdateRun(ctx context.Context, run *models.ReconcileRun) error
}

// Cache is the slice of the cache tier the reconciler invalidates
type Cache interface {
	Delete(ctx context.Context, keys ...string) error
	IncrAll(ctx context.Context, keys ...string) error
}

// Reconciler walks accounts and posts in ID ranges, rewrites counters
// that drifted from the source tables and drops the cache entries that
// may still carry the stale numbers.
type Reconciler struct {
	store  Store
	cache  Cache
	cfg    *config.ReconcilerConfig
	logger *zap.Logger
}

// New creates a new reconciler
func New(store Store, cache Cache, cfg *config.ReconcilerConfig) *Reconciler {
	return &Reconciler{
		store:  store,
		cache:  cache,
		cfg:    cfg,
		logger: logging.GetLogger().With(zap.String("component", "reconciler")),
	}
}

// Run executes reconciliation passes until the context is cancelled. A
// zero interval means one pass and out, for cron-style scheduling.
func (r *Reconciler) Run(ctx context.Context) error {
	if r.cfg.Interval <= 0 {
		_, err := r.RunOnce(ctx)
		return err
	}

	for {
		if _, err := r.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Error("Reconciliation pass failed", zap.Error(err))
		}
		if !r.wait(ctx, r.cfg.Interval) {
			return ctx.Err()
		}
	}
}

// RunOnce performs one full pass over both tables and records it
func (r *Reconciler) RunOnce(ctx context.Context) (*models.ReconcileRun, error) {
	ctx, span := telemetry.StartSpan(ctx, "reconcile.run")
	defer span.End()

	run := &models.ReconcileRun{
		StartedAt:  time.Now().UTC(),
		FinishedAt: time.Now().UTC(),
	}
	if err := r.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record reconcile run: %w", err)
	}

	accountsScanned, err := r.store.CountAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count accounts: %w", err)
	}
	postsScanned, err := r.store.CountPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}

	repairedAccounts, err := r.recountAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to recount accounts: %w", err)
	}
	repairedPosts, err := r.recountPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to recount posts: %w", err)
	}

	r.invalidateAccounts(ctx, repairedAccounts)
	r.invalidatePosts(ctx, repairedPosts)

	run.AccountsScanned = accountsScanned
	run.PostsScanned = postsScanned
	run.DriftRepaired = int64(len(repairedAccounts) + len(repairedPosts))
	run.FinishedAt = time.Now().UTC()
	if err := r.store.UpdateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record reconcile run: %w", err)
	}

	r.logger.Info("Reconciliation pass complete",
		zap.Int64("accounts_scanned", run.AccountsScanned),
		zap.Int64("posts_scanned", run.PostsScanned),
		zap.Int("accounts_repaired", len(repairedAccounts)),
		zap.Int("posts_repaired", len(repairedPosts)),
		zap.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)))

	return run, nil
}

// recountAccounts walks the account ID space in batches. Sparse ranges
// cost one cheap statement each, so gaps from deleted test data or ID
// jumps do not matter.
func (r *Reconciler) recountAccounts(ctx context.Context) ([]db.RepairedAccount, error) {
	maxID, err := r.store.MaxAccountID(ctx)
	if err != nil {
		return nil, err
	}

	var repaired []db.RepairedAccount
	batch := int64(r.cfg.BatchSize)
	for lo := int64(1); lo <= maxID; lo += batch {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rows, err := r.store.RecountAccountRange(ctx, lo, lo+batch)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			r.logger.Warn("Repaired drifted account counters",
				zap.Int64("range_start", lo),
				zap.Int("repaired", len(rows)))
		}
		repaired = append(repaired, rows...)
	}
	return repaired, nil
}

func (r *Reconciler) recountPosts(ctx context.Context) ([]int64, error) {
	maxID, err := r.store.MaxPostID(ctx)
	if err != nil {
		return nil, err
	}

	var repaired []int64
	batch := int64(r.cfg.BatchSize)
	for lo := int64(1); lo <= maxID; lo += batch {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rows, err := r.store.RecountPostRange(ctx, lo, lo+batch)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			r.logger.Warn("Repaired drifted post counters",
				zap.Int64("range_start", lo),
				zap.Int("repaired", len(rows)))
		}
		repaired = append(repaired, rows...)
	}
	return repaired, nil
}

// invalidateAccounts drops cached profiles that may carry stale counters
// and bumps the repaired accounts' feed versions. Cache failures only
// log; the rewritten rows are already the truth.
func (r *Reconciler) invalidateAccounts(ctx context.Context, repaired []db.RepairedAccount) {
	if len(repaired) == 0 {
		return
	}

	profileKeys := make([]string, 0, len(repaired))
	versionKeys := make([]string, 0, len(repaired))
	for _, a := range repaired {
		profileKeys = append(profileKeys, cache.KeyProfile(a.Name))
		versionKeys = append(versionKeys, cache.KeyFeedVersion(a.ID))
	}
	if err := r.cache.Delete(ctx, profileKeys...); err != nil {
		r.logger.Debug("Profile invalidation failed", zap.Error(err))
	}
	if err := r.cache.IncrAll(ctx, versionKeys...); err != nil {
		r.logger.Debug("Feed version bump failed", zap.Error(err))
	}
}

func (r *Reconciler) invalidatePosts(ctx context.Context, repaired []int64) {
	if len(repaired) == 0 {
		return
	}

	keys := make([]string, 0, len(repaired))
	for _, id := range repaired {
		keys = append(keys, cache.KeyPost(id))
	}
	if err := r.cache.Delete(ctx, keys...); err != nil {
		r.logger.Debug("Post invalidation failed", zap.Error(err))
	}
}

// wait sleeps for the interval or until the context is cancelled; the
// bool reports whether the loop should continue
func (r *Reconciler) wait(ctx context.Context, interval time.Duration) bool {
	timer := time.NewTimer(interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

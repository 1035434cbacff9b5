package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/flocknet/flock/internal/cache"
	"github.com/flocknet/flock/internal/errs"
	"github.com/flocknet/flock/internal/models"
	"github.com/flocknet/flock/pkg/config"
	"github.com/flocknet/flock/pkg/telemetry"
)

const (
	feedPageSizeDefault = 20
	feedPageSizeMax     = 50
)

// FeedStore is the persistent state the newsfeed assembler needs
type FeedStore interface {
	FollowingIDs(ctx context.Context, accountID int64) ([]int64, error)
	PostsByAuthors(ctx context.Context, authorIDs []int64, page, pageSize int) ([]*models.Post, error)
	AccountsByIDs(ctx context.Context, ids []int64) ([]*models.Account, error)
}

// FeedPage is one page of a newsfeed. FromCache reports whether the page
// was served from the cache tier; it travels in a response header, not
// the body, so it is never persisted with the page.
type FeedPage struct {
	Page      int         `json:"page"`
	PageSize  int         `json:"page_size"`
	Posts     []*PostView `json:"posts"`
	FromCache bool        `json:"-"`
}

// Feed assembles reverse-chronological newsfeeds. Pages are cached under
// a key that embeds the owner's feed version; mutations bump the version,
// which orphans every cached page at once without enumerating them.
type Feed struct {
	store  FeedStore
	cache  Cache
	tuning *config.CacheConfig
	logger *zap.Logger
}

// NewFeed creates a new newsfeed assembler
func NewFeed(store FeedStore, cache Cache, tuning *config.CacheConfig, logger *zap.Logger) *Feed {
	return &Feed{
		store:  store,
		cache:  cache,
		tuning: tuning,
		logger: logger,
	}
}

// GetFeed returns one page of the caller's feed: visible posts by the
// accounts they follow plus their own, newest first. A cache tier outage
// degrades to direct assembly.
func (f *Feed) GetFeed(ctx context.Context, caller Identity, page, pageSize int) (*FeedPage, error) {
	page = clampPage(page)
	pageSize = clampPageSize(pageSize, feedPageSizeDefault, feedPageSizeMax)

	version, _, verErr := f.cache.GetInt64(ctx, cache.KeyFeedVersion(caller.AccountID))
	cacheUsable := verErr == nil
	if verErr != nil {
		f.logger.Debug("Feed version read failed, serving without cache",
			zap.Int64("account_id", caller.AccountID),
			zap.Error(verErr))
	}

	pageKey := cache.KeyFeedPage(caller.AccountID, version, page, pageSize)
	if cacheUsable {
		var cached FeedPage
		if found, err := f.cache.GetJSON(ctx, pageKey, &cached); err == nil && found {
			cached.FromCache = true
			return &cached, nil
		}
	}

	feedPage, err := f.assemble(ctx, caller, page, pageSize)
	if err != nil {
		return nil, err
	}

	if cacheUsable {
		if err := f.cache.SetJSON(ctx, pageKey, feedPage, f.tuning.FeedTTL); err != nil {
			f.logger.Debug("Feed page cache write failed",
				zap.Int64("account_id", caller.AccountID),
				zap.Error(err))
		}
	}
	return feedPage, nil
}

func (f *Feed) assemble(ctx context.Context, caller Identity, page, pageSize int) (*FeedPage, error) {
	ctx, span := telemetry.StartSpan(ctx, "feed.assemble")
	defer span.End()

	followingIDs, err := f.store.FollowingIDs(ctx, caller.AccountID)
	if err != nil {
		return nil, errs.Storef(err, "failed to load follow list")
	}

	// The caller's own posts belong in their feed too
	authorIDs := append(followingIDs, caller.AccountID)

	posts, err := f.store.PostsByAuthors(ctx, authorIDs, page, pageSize)
	if err != nil {
		return nil, errs.Storef(err, "failed to load feed posts")
	}
	posts = VisibleOnly(posts)

	ids := make([]int64, 0, len(posts))
	seen := make(map[int64]bool)
	for _, p := range posts {
		if !seen[p.AuthorID] {
			seen[p.AuthorID] = true
			ids = append(ids, p.AuthorID)
		}
	}
	accounts, err := f.store.AccountsByIDs(ctx, ids)
	if err != nil {
		return nil, errs.Storef(err, "failed to load feed authors")
	}
	names := make(map[int64]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}

	views := make([]*PostView, 0, len(posts))
	for _, p := range posts {
		name, ok := names[p.AuthorID]
		if !ok {
			continue // Skip posts without author
		}
		views = append(views, renderPost(p, name))
	}

	return &FeedPage{
		Page:     page,
		PageSize: pageSize,
		Posts:    views,
	}, nil
}

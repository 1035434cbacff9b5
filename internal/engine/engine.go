// Package engine implements the consistency core of the service: the
// follow graph, engagement toggles, the post lifecycle and newsfeed
// assembly. Every mutation keeps its denormalized counters in step inside
// a single store transaction and invalidates the affected cache entries
// afterwards, so readers converge on the stored truth even when the cache
// tier misbehaves.
package engine

import (
	"context"
	"time"
)

// Role labels the trust level of a caller identity
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Elevated reports whether the role may act on content it does not own
func (r Role) Elevated() bool {
	return r == RoleModerator || r == RoleAdmin
}

// Identity is the authenticated caller attached to a request
type Identity struct {
	AccountID int64
	Role      Role
}

// LikeFlip is the outcome of a like toggle as settled by the store
type LikeFlip struct {
	Liked     bool
	LikeCount int64
}

// Cache is the tier the engine reads through and invalidates. A miss is
// reported through the bool, not the error. Cache errors mean the tier is
// unavailable; they degrade an operation but never fail it.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	GetInt64(ctx context.Context, key string) (int64, bool, error)
	Incr(ctx context.Context, key string) (int64, error)
	IncrAll(ctx context.Context, keys ...string) error
	Delete(ctx context.Context, keys ...string) error
}

// Notifier records engagement events for the receiving account. Delivery
// failures are logged by the caller and never fail the mutation that
// produced the event.
type Notifier interface {
	NotifyFollow(ctx context.Context, srcID, dstID int64) error
	NotifyLike(ctx context.Context, srcID, dstID, postID int64) error
	NotifyComment(ctx context.Context, srcID, dstID, postID int64) error
}

// Package api exposes the engine over REST. Authentication lives in the
// gateway upstream; this layer trusts the identity headers it forwards,
// maps engine error kinds to HTTP statuses and keeps raw store errors
// out of responses.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/flocknet/flock/internal/cache"
	"github.com/flocknet/flock/internal/db"
	"github.com/flocknet/flock/internal/engine"
	"github.com/flocknet/flock/internal/models"
	"github.com/flocknet/flock/pkg/logging"
)

// GraphService is the follow graph surface the router fronts
type GraphService interface {
	Register(ctx context.Context, name string) (*models.Account, error)
	Profile(ctx context.Context, name string) (*models.Account, error)
	Follow(ctx context.Context, caller engine.Identity, followeeName string) (*engine.FollowResult, error)
	Unfollow(ctx context.Context, caller engine.Identity, followeeName string) (*engine.FollowResult, error)
	Followers(ctx context.Context, name string, page, pageSize int) ([]*models.Account, error)
	Following(ctx context.Context, name string, page, pageSize int) ([]*models.Account, error)
	Suggestions(ctx context.Context, caller engine.Identity, limit int) ([]*models.Account, error)
}

// EngageService is the like and comment surface
type EngageService interface {
	ToggleLike(ctx context.Context, caller engine.Identity, postID int64) (*engine.ToggleLikeResult, error)
	AddComment(ctx context.Context, caller engine.Identity, postID int64, body string) (*engine.CommentView, error)
	DeleteComment(ctx context.Context, caller engine.Identity, commentID int64) (*engine.SoftDeleteResult, error)
	Comments(ctx context.Context, postID int64, page, pageSize int) ([]*engine.CommentView, error)
}

// PostService is the post lifecycle surface
type PostService interface {
	CreatePost(ctx context.Context, caller engine.Identity, body, media string) (*engine.PostView, error)
	GetPost(ctx context.Context, caller engine.Identity, postID int64, includeDeleted bool) (*engine.PostView, error)
	SoftDelete(ctx context.Context, caller engine.Identity, postID int64) (*engine.SoftDeleteResult, error)
	AuthorPosts(ctx context.Context, authorName string, page, pageSize int) ([]*engine.PostView, error)
}

// FeedService is the newsfeed surface
type FeedService interface {
	GetFeed(ctx context.Context, caller engine.Identity, page, pageSize int) (*engine.FeedPage, error)
}

// NotifStore is the notification inbox storage the router reads directly
type NotifStore interface {
	AccountByID(ctx context.Context, id int64) (*models.Account, error)
	NotificationsByAccount(ctx context.Context, accountID int64, lastID int64, limit int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, accountID int64) (int64, error)
	SetLastRead(ctx context.Context, accountID int64, at time.Time) error
}

var (
	_ GraphService  = (*engine.FollowGraph)(nil)
	_ EngageService = (*engine.Engagement)(nil)
	_ PostService   = (*engine.Lifecycle)(nil)
	_ FeedService   = (*engine.Feed)(nil)
	_ NotifStore    = (*db.Store)(nil)
)

// Router sets up API routes
type Router struct {
	graph  GraphService
	engage EngageService
	posts  PostService
	feed   FeedService
	notifs NotifStore
	db     *db.DB
	cache  *cache.Cache
	logger *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(graph GraphService, engage EngageService, posts PostService, feed FeedService, notifs NotifStore, database *db.DB, redisCache *cache.Cache) *Router {
	return &Router{
		graph:  graph,
		engage: engage,
		posts:  posts,
		feed:   feed,
		notifs: notifs,
		db:     database,
		cache:  redisCache,
		logger: logging.GetLogger().With(zap.String("component", "api-router")),
	}
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	engine.Use(r.traceRequests())

	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	v1 := engine.Group("/v1", r.withIdentity())
	{
		// Public reads
		v1.POST("/accounts", r.createAccount)
		v1.GET("/accounts/:name", r.getProfile)
		v1.GET("/accounts/:name/followers", r.listFollowers)
		v1.GET("/accounts/:name/following", r.listFollowing)
		v1.GET("/accounts/:name/posts", r.listAccountPosts)
		v1.GET("/posts/:id", r.getPost)
		v1.GET("/posts/:id/comments", r.listComments)

		// Everything below needs a gateway-authenticated caller
		authed := v1.Group("", r.requireIdentity())
		{
			authed.GET("/suggestions", r.listSuggestions)
			authed.POST("/follows/:name", r.follow)
			authed.DELETE("/follows/:name", r.unfollow)
			authed.POST("/posts", r.createPost)
			authed.DELETE("/posts/:id", r.deletePost)
			authed.POST("/posts/:id/like", r.toggleLike)
			authed.POST("/posts/:id/comments", r.addComment)
			authed.DELETE("/comments/:id", r.deleteComment)
			authed.GET("/feed", r.getFeed)
			authed.GET("/notifications", r.listNotifications)
			authed.GET("/notifications/unread", r.unreadNotifications)
			authed.POST("/notifications/read", r.markNotificationsRead)
		}
	}
}

// healthHandler handles health check requests. The database is required;
// a dead cache tier only degrades reads, so it never fails the check.
func (r *Router) healthHandler(c *gin.Context) {
	ctx := c.Request.Context()

	status := http.StatusOK
	dbState := "ok"
	if r.db == nil {
		dbState = "unconfigured"
		status = http.StatusServiceUnavailable
	} else if err := r.db.Health(ctx); err != nil {
		dbState = "unavailable"
		status = http.StatusServiceUnavailable
	}

	cacheState := "ok"
	if err := r.cache.Health(ctx); err != nil {
		cacheState = "unavailable"
		if errors.Is(err, cache.ErrCacheDisabled) {
			cacheState = "disabled"
		}
	}

	c.JSON(status, gin.H{
		"status":   http.StatusText(status),
		"service":  "flock-api",
		"database": dbState,
		"cache":    cacheState,
	})
}

package db

import (
	"gorm.io/gorm"

	"github.com/flocknet/flock/internal/engine"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Store bundles every typed repository behind a single handle. Method names
// are unique across repositories, so the promoted set satisfies each engine
// store interface.
type Store struct {
	*AccountRepository
	*FollowRepository
	*PostRepository
	*CommentRepository
	*NotificationRepository
}

// NewStore creates a store backed by the given database connection
func NewStore(database *DB) *Store {
	repo := NewRepository(database.DB)
	return &Store{
		AccountRepository:      NewAccountRepository(repo),
		FollowRepository:       NewFollowRepository(repo),
		PostRepository:         NewPostRepository(repo),
		CommentRepository:      NewCommentRepository(repo),
		NotificationRepository: NewNotificationRepository(repo),
	}
}

var (
	_ engine.GraphStore  = (*Store)(nil)
	_ engine.EngageStore = (*Store)(nil)
	_ engine.PostStore   = (*Store)(nil)
	_ engine.FeedStore   = (*Store)(nil)
)

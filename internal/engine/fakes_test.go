package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/flocknet/flock/internal/models"
	"github.com/flocknet/flock/pkg/config"
	"go.uber.org/zap"
)

var errTestOutage = errors.New("backend down")

// memStore is an in-memory store honoring the same contracts as the real
// repositories: idempotent edge writes, counter floors at zero and
// compound mutations applied under one lock.
type memStore struct {
	mu       sync.Mutex
	accounts map[int64]*models.Account
	names    map[string]int64
	follows  map[[2]int64]time.Time
	posts    map[int64]*models.Post
	likes    map[[2]int64]time.Time
	comments map[int64]*models.Comment
	nextID   int64
	fail     error
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[int64]*models.Account),
		names:    make(map[string]int64),
		follows:  make(map[[2]int64]time.Time),
		posts:    make(map[int64]*models.Post),
		likes:    make(map[[2]int64]time.Time),
		comments: make(map[int64]*models.Comment),
	}
}

var (
	_ GraphStore  = (*memStore)(nil)
	_ EngageStore = (*memStore)(nil)
	_ PostStore   = (*memStore)(nil)
	_ FeedStore   = (*memStore)(nil)
)

func (s *memStore) AccountByID(ctx context.Context, id int64) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	return s.accounts[id], nil
}

func (s *memStore) AccountByName(ctx context.Context, name string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	id, ok := s.names[name]
	if !ok {
		return nil, nil
	}
	return s.accounts[id], nil
}

func (s *memStore) AccountsByIDs(ctx context.Context, ids []int64) ([]*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	out := make([]*models.Account, 0, len(ids))
	for _, id := range ids {
		if a, ok := s.accounts[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memStore) CreateAccount(ctx context.Context, account *models.Account) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return false, s.fail
	}
	if _, taken := s.names[account.Name]; taken {
		return false, nil
	}
	s.nextID++
	account.ID = s.nextID
	s.accounts[account.ID] = account
	s.names[account.Name] = account.ID
	return true, nil
}

func (s *memStore) CreateFollow(ctx context.Context, followerID, followingID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return false, s.fail
	}
	key := [2]int64{followerID, followingID}
	if _, exists := s.follows[key]; exists {
		return false, nil
	}
	s.follows[key] = time.Now().UTC()
	s.accounts[followerID].Following++
	s.accounts[followingID].Followers++
	return true, nil
}

func (s *memStore) DeleteFollow(ctx context.Context, followerID, followingID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return false, s.fail
	}
	key := [2]int64{followerID, followingID}
	if _, exists := s.follows[key]; !exists {
		return false, nil
	}
	delete(s.follows, key)
	if s.accounts[followerID].Following > 0 {
		s.accounts[followerID].Following--
	}
	if s.accounts[followingID].Followers > 0 {
		s.accounts[followingID].Followers--
	}
	return true, nil
}

func (s *memStore) FollowerIDs(ctx context.Context, accountID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	var ids []int64
	for key := range s.follows {
		if key[1] == accountID {
			ids = append(ids, key[0])
		}
	}
	return ids, nil
}

func (s *memStore) FollowingIDs(ctx context.Context, accountID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	var ids []int64
	for key := range s.follows {
		if key[0] == accountID {
			ids = append(ids, key[1])
		}
	}
	return ids, nil
}

func (s *memStore) FollowersPage(ctx context.Context, accountID int64, page, pageSize int) ([]*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	var ids []int64
	for key := range s.follows {
		if key[1] == accountID {
			ids = append(ids, key[0])
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	out := make([]*models.Account, 0)
	for _, id := range pageOf(ids, page, pageSize) {
		out = append(out, s.accounts[id])
	}
	return out, nil
}

func (s *memStore) FollowingPage(ctx context.Context, accountID int64, page, pageSize int) ([]*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	var ids []int64
	for key := range s.follows {
		if key[0] == accountID {
			ids = append(ids, key[1])
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	out := make([]*models.Account, 0)
	for _, id := range pageOf(ids, page, pageSize) {
		out = append(out, s.accounts[id])
	}
	return out, nil
}

func (s *memStore) SuggestAccounts(ctx context.Context, accountID int64, limit int) ([]*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	var out []*models.Account
	for id, a := range s.accounts {
		if id == accountID || a.Banned {
			continue
		}
		if _, followed := s.follows[[2]int64{accountID, id}]; followed {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Followers != out[j].Followers {
			return out[i].Followers > out[j].Followers
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) CreatePost(ctx context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.nextID++
	post.ID = s.nextID
	s.posts[post.ID] = post
	s.accounts[post.AuthorID].PostCount++
	return nil
}

func (s *memStore) PostByID(ctx context.Context, id int64) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	return s.posts[id], nil
}

func (s *memStore) SoftDeletePost(ctx context.Context, postID, authorID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return false, s.fail
	}
	post, ok := s.posts[postID]
	if !ok || post.IsDeleted {
		return false, nil
	}
	post.IsDeleted = true
	post.DeletedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	if s.accounts[authorID].PostCount > 0 {
		s.accounts[authorID].PostCount--
	}
	return true, nil
}

func (s *memStore) PostsByAuthors(ctx context.Context, authorIDs []int64, page, pageSize int) ([]*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	authors := make(map[int64]bool, len(authorIDs))
	for _, id := range authorIDs {
		authors[id] = true
	}
	var posts []*models.Post
	for _, p := range s.posts {
		if !p.IsDeleted && authors[p.AuthorID] {
			posts = append(posts, p)
		}
	}
	sortPostsDesc(posts)
	return pageOf(posts, page, pageSize), nil
}

func (s *memStore) PostsByAuthorPage(ctx context.Context, authorID int64, page, pageSize int) ([]*models.Post, error) {
	return s.PostsByAuthors(ctx, []int64{authorID}, page, pageSize)
}

func (s *memStore) ToggleLike(ctx context.Context, postID, accountID int64) (*LikeFlip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	post, ok := s.posts[postID]
	if !ok || post.IsDeleted {
		return nil, nil
	}
	key := [2]int64{postID, accountID}
	if _, liked := s.likes[key]; liked {
		delete(s.likes, key)
		if post.LikeCount > 0 {
			post.LikeCount--
		}
		return &LikeFlip{Liked: false, LikeCount: post.LikeCount}, nil
	}
	s.likes[key] = time.Now().UTC()
	post.LikeCount++
	return &LikeFlip{Liked: true, LikeCount: post.LikeCount}, nil
}

func (s *memStore) CreateComment(ctx context.Context, comment *models.Comment) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return false, s.fail
	}
	post, ok := s.posts[comment.PostID]
	if !ok || post.IsDeleted {
		return false, nil
	}
	s.nextID++
	comment.ID = s.nextID
	s.comments[comment.ID] = comment
	post.CommentCount++
	return true, nil
}

func (s *memStore) CommentByID(ctx context.Context, id int64) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	return s.comments[id], nil
}

func (s *memStore) SoftDeleteComment(ctx context.Context, commentID, postID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return false, s.fail
	}
	comment, ok := s.comments[commentID]
	if !ok || comment.IsDeleted {
		return false, nil
	}
	comment.IsDeleted = true
	if post, ok := s.posts[postID]; ok && post.CommentCount > 0 {
		post.CommentCount--
	}
	return true, nil
}

func (s *memStore) CommentsPage(ctx context.Context, postID int64, page, pageSize int) ([]*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	var comments []*models.Comment
	for _, c := range s.comments {
		if c.PostID == postID && !c.IsDeleted {
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].ID < comments[j].ID })
	return pageOf(comments, page, pageSize), nil
}

func sortPostsDesc(posts []*models.Post) {
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID > posts[j].ID
	})
}

func pageOf[T any](items []T, page, pageSize int) []T {
	start := (page - 1) * pageSize
	if start >= len(items) {
		return nil
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// memCache is an in-memory stand-in for the Redis tier. Setting fail
// simulates an outage on every operation.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ints map[string]int64
	fail error
}

func newMemCache() *memCache {
	return &memCache{
		data: make(map[string][]byte),
		ints: make(map[string]int64),
	}
}

var _ Cache = (*memCache)(nil)

func (c *memCache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return false, c.fail
	}
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *memCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func (c *memCache) GetInt64(ctx context.Context, key string) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return 0, false, c.fail
	}
	n, ok := c.ints[key]
	return n, ok, nil
}

func (c *memCache) Incr(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return 0, c.fail
	}
	c.ints[key]++
	return c.ints[key], nil
}

func (c *memCache) IncrAll(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	for _, key := range keys {
		c.ints[key]++
	}
	return nil
}

func (c *memCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	for _, key := range keys {
		delete(c.data, key)
		delete(c.ints, key)
	}
	return nil
}

type notifyEvent struct {
	kind   string
	srcID  int64
	dstID  int64
	postID int64
}

// memNotifier records notification events for assertions
type memNotifier struct {
	mu     sync.Mutex
	events []notifyEvent
	fail   error
}

var _ Notifier = (*memNotifier)(nil)

func (n *memNotifier) NotifyFollow(ctx context.Context, srcID, dstID int64) error {
	return n.record("follow", srcID, dstID, 0)
}

func (n *memNotifier) NotifyLike(ctx context.Context, srcID, dstID, postID int64) error {
	return n.record("like", srcID, dstID, postID)
}

func (n *memNotifier) NotifyComment(ctx context.Context, srcID, dstID, postID int64) error {
	return n.record("comment", srcID, dstID, postID)
}

func (n *memNotifier) record(kind string, srcID, dstID, postID int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.events = append(n.events, notifyEvent{kind: kind, srcID: srcID, dstID: dstID, postID: postID})
	return nil
}

func (n *memNotifier) byKind(kind string) []notifyEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notifyEvent
	for _, e := range n.events {
		if e.kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// testTuning returns cache TTLs long enough to never expire mid-test
func testTuning() *config.CacheConfig {
	return &config.CacheConfig{
		OpTimeout:     150 * time.Millisecond,
		FeedTTL:       time.Minute,
		PostTTL:       time.Minute,
		ProfileTTL:    time.Minute,
		SuggestionTTL: time.Minute,
	}
}

func testFeedConfig() *config.FeedConfig {
	return &config.FeedConfig{FanoutBatch: 2}
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

// seedAccount registers an account directly in the store
func seedAccount(s *memStore, name string) *models.Account {
	account := &models.Account{Name: name, CreatedAt: time.Now().UTC()}
	if created, _ := s.CreateAccount(context.Background(), account); !created {
		panic("duplicate seed account " + name)
	}
	return account
}

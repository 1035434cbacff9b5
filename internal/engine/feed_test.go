package engine

import (
	"context"
	"testing"

	"github.com/flocknet/flock/internal/errs"
)

// feedFixture wires a feed assembler, a lifecycle manager and a follow
// graph over one shared store and cache, the way the server wires them
type feedFixture struct {
	store *memStore
	cache *memCache
	feed  *Feed
	lc    *Lifecycle
	graph *FollowGraph
}

func newFeedFixture() *feedFixture {
	store := newMemStore()
	c := newMemCache()
	return &feedFixture{
		store: store,
		cache: c,
		feed:  NewFeed(store, c, testTuning(), testLogger()),
		lc:    NewLifecycle(store, c, testTuning(), testFeedConfig(), testLogger()),
		graph: NewFollowGraph(store, c, &memNotifier{}, testTuning(), testLogger()),
	}
}

func TestFeedIsReverseChronological(t *testing.T) {
	f := newFeedFixture()
	ctx := context.Background()

	alice := seedAccount(f.store, "alice")
	bob := seedAccount(f.store, "bob")
	carol := seedAccount(f.store, "carol")
	reader := Identity{AccountID: alice.ID, Role: RoleUser}

	if _, err := f.graph.Follow(ctx, reader, "bob"); err != nil {
		t.Fatalf("follow failed: %v", err)
	}
	if _, err := f.graph.Follow(ctx, reader, "carol"); err != nil {
		t.Fatalf("follow failed: %v", err)
	}

	// Interleaved posts; creation order is the expected reverse order
	bodies := []struct {
		who  Identity
		body string
	}{
		{Identity{AccountID: bob.ID, Role: RoleUser}, "b1"},
		{Identity{AccountID: carol.ID, Role: RoleUser}, "c1"},
		{Identity{AccountID: alice.ID, Role: RoleUser}, "a1"},
		{Identity{AccountID: bob.ID, Role: RoleUser}, "b2"},
	}
	for _, p := range bodies {
		if _, err := f.lc.CreatePost(ctx, p.who, p.body, ""); err != nil {
			t.Fatalf("create %q failed: %v", p.body, err)
		}
	}

	page, err := f.feed.GetFeed(ctx, reader, 1, 20)
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}

	want := []string{"b2", "a1", "c1", "b1"}
	if len(page.Posts) != len(want) {
		t.Fatalf("feed has %d posts, want %d", len(page.Posts), len(want))
	}
	for i, body := range want {
		if page.Posts[i].Body != body {
			t.Errorf("feed[%d] = %q, want %q", i, page.Posts[i].Body, body)
		}
	}
}

func TestFeedScopesToFollowedAndSelf(t *testing.T) {
	f := newFeedFixture()
	ctx := context.Background()

	alice := seedAccount(f.store, "alice")
	bob := seedAccount(f.store, "bob")
	mallory := seedAccount(f.store, "mallory")
	reader := Identity{AccountID: alice.ID, Role: RoleUser}

	if _, err := f.graph.Follow(ctx, reader, "bob"); err != nil {
		t.Fatalf("follow failed: %v", err)
	}

	if _, err := f.lc.CreatePost(ctx, Identity{AccountID: bob.ID, Role: RoleUser}, "followed", ""); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := f.lc.CreatePost(ctx, Identity{AccountID: mallory.ID, Role: RoleUser}, "unfollowed", ""); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := f.lc.CreatePost(ctx, reader, "own", ""); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	page, err := f.feed.GetFeed(ctx, reader, 1, 20)
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}

	if len(page.Posts) != 2 {
		t.Fatalf("feed has %d posts, want 2", len(page.Posts))
	}
	for _, p := range page.Posts {
		if p.Body == "unfollowed" {
			t.Error("feed includes post from unfollowed account")
		}
	}
	if page.Posts[0].Body != "own" || page.Posts[1].Body != "followed" {
		t.Errorf("feed order = %q, %q; want own, followed", page.Posts[0].Body, page.Posts[1].Body)
	}
}

func TestFeedEmptyForNewAccount(t *testing.T) {
	f := newFeedFixture()

	alice := seedAccount(f.store, "alice")
	page, err := f.feed.GetFeed(context.Background(), Identity{AccountID: alice.ID, Role: RoleUser}, 1, 20)
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}
	if page.Posts == nil {
		t.Error("posts should be an empty slice, not nil")
	}
	if len(page.Posts) != 0 {
		t.Errorf("feed has %d posts, want 0", len(page.Posts))
	}
}

func TestFeedCacheHitThenInvalidation(t *testing.T) {
	f := newFeedFixture()
	ctx := context.Background()

	alice := seedAccount(f.store, "alice")
	bob := seedAccount(f.store, "bob")
	reader := Identity{AccountID: alice.ID, Role: RoleUser}
	author := Identity{AccountID: bob.ID, Role: RoleUser}

	if _, err := f.graph.Follow(ctx, reader, "bob"); err != nil {
		t.Fatalf("follow failed: %v", err)
	}
	if _, err := f.lc.CreatePost(ctx, author, "first", ""); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	first, err := f.feed.GetFeed(ctx, reader, 1, 20)
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}
	if first.FromCache {
		t.Error("first read should assemble, not hit cache")
	}

	second, err := f.feed.GetFeed(ctx, reader, 1, 20)
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}
	if !second.FromCache {
		t.Error("second read should come from cache")
	}
	if len(second.Posts) != 1 || second.Posts[0].Body != "first" {
		t.Errorf("cached page = %+v", second.Posts)
	}

	// A new post by a followed author must be visible on the next read,
	// not after a TTL
	if _, err := f.lc.CreatePost(ctx, author, "second", ""); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	third, err := f.feed.GetFeed(ctx, reader, 1, 20)
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}
	if third.FromCache {
		t.Error("read after create should reassemble")
	}
	if len(third.Posts) != 2 || third.Posts[0].Body != "second" {
		t.Errorf("refreshed page = %+v, want second first", third.Posts)
	}

	// Deleting drops it again
	if _, err := f.lc.SoftDelete(ctx, author, third.Posts[0].ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	fourth, err := f.feed.GetFeed(ctx, reader, 1, 20)
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}
	if fourth.FromCache {
		t.Error("read after delete should reassemble")
	}
	if len(fourth.Posts) != 1 || fourth.Posts[0].Body != "first" {
		t.Errorf("page after delete = %+v, want only first", fourth.Posts)
	}
}

func TestFeedReflectsUnfollowImmediately(t *testing.T) {
	f := newFeedFixture()
	ctx := context.Background()

	alice := seedAccount(f.store, "alice")
	bob := seedAccount(f.store, "bob")
	reader := Identity{AccountID: alice.ID, Role: RoleUser}

	if _, err := f.graph.Follow(ctx, reader, "bob"); err != nil {
		t.Fatalf("follow failed: %v", err)
	}
	if _, err := f.lc.CreatePost(ctx, Identity{AccountID: bob.ID, Role: RoleUser}, "bye", ""); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Warm the cache
	if _, err := f.feed.GetFeed(ctx, reader, 1, 20); err != nil {
		t.Fatalf("feed failed: %v", err)
	}

	if _, err := f.graph.Unfollow(ctx, reader, "bob"); err != nil {
		t.Fatalf("unfollow failed: %v", err)
	}

	page, err := f.feed.GetFeed(ctx, reader, 1, 20)
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}
	if page.FromCache {
		t.Error("read after unfollow should reassemble")
	}
	if len(page.Posts) != 0 {
		t.Errorf("feed after unfollow = %+v, want empty", page.Posts)
	}
}

func TestFeedDegradesWhenCacheDown(t *testing.T) {
	f := newFeedFixture()
	ctx := context.Background()

	alice := seedAccount(f.store, "alice")
	reader := Identity{AccountID: alice.ID, Role: RoleUser}
	if _, err := f.lc.CreatePost(ctx, reader, "still here", ""); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	f.cache.fail = errTestOutage
	page, err := f.feed.GetFeed(ctx, reader, 1, 20)
	if err != nil {
		t.Fatalf("feed with cache down failed: %v", err)
	}
	if page.FromCache {
		t.Error("degraded read cannot be from cache")
	}
	if len(page.Posts) != 1 {
		t.Errorf("degraded feed = %d posts, want 1", len(page.Posts))
	}
}

func TestFeedStoreOutageIsFatal(t *testing.T) {
	f := newFeedFixture()

	alice := seedAccount(f.store, "alice")
	f.store.fail = errTestOutage

	_, err := f.feed.GetFeed(context.Background(), Identity{AccountID: alice.ID, Role: RoleUser}, 1, 20)
	if errs.KindOf(err) != errs.KindStoreUnavailable {
		t.Errorf("error kind = %v, want store_unavailable", errs.KindOf(err))
	}
}

func TestFeedClampsPaging(t *testing.T) {
	f := newFeedFixture()
	ctx := context.Background()

	alice := seedAccount(f.store, "alice")
	reader := Identity{AccountID: alice.ID, Role: RoleUser}

	page, err := f.feed.GetFeed(ctx, reader, -3, 500)
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}
	if page.Page != 1 {
		t.Errorf("page = %d, want clamp to 1", page.Page)
	}
	if page.PageSize != feedPageSizeMax {
		t.Errorf("page size = %d, want clamp to %d", page.PageSize, feedPageSizeMax)
	}

	page, err = f.feed.GetFeed(ctx, reader, 1, 0)
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}
	if page.PageSize != feedPageSizeDefault {
		t.Errorf("default page size = %d, want %d", page.PageSize, feedPageSizeDefault)
	}
}

func TestFeedPagination(t *testing.T) {
	f := newFeedFixture()
	ctx := context.Background()

	alice := seedAccount(f.store, "alice")
	reader := Identity{AccountID: alice.ID, Role: RoleUser}

	for _, body := range []string{"one", "two", "three", "four", "five"} {
		if _, err := f.lc.CreatePost(ctx, reader, body, ""); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	first, err := f.feed.GetFeed(ctx, reader, 1, 2)
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}
	second, err := f.feed.GetFeed(ctx, reader, 2, 2)
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}
	last, err := f.feed.GetFeed(ctx, reader, 3, 2)
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}

	got := []string{}
	for _, p := range append(append(first.Posts, second.Posts...), last.Posts...) {
		got = append(got, p.Body)
	}
	want := []string{"five", "four", "three", "two", "one"}
	if len(got) != len(want) {
		t.Fatalf("paged feed = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("paged feed[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

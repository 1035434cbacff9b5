package cache

import (
	"fmt"
	"strconv"
)

// Key builders for every cached object. Feed pages embed the owner's feed
// version, so bumping the version key orphans all cached pages for that
// account without enumerating them.

// KeyProfile returns the cache key for an account profile by name
func KeyProfile(name string) string {
	return "profile:" + name
}

// KeyPost returns the cache key for a rendered post
func KeyPost(postID int64) string {
	return "post:" + strconv.FormatInt(postID, 10)
}

// KeyFeedVersion returns the feed version counter key for an account
func KeyFeedVersion(accountID int64) string {
	return "feed:ver:" + strconv.FormatInt(accountID, 10)
}

// KeyFeedPage returns the cache key for one page of an account's feed at a
// given feed version
func KeyFeedPage(accountID, version int64, page, pageSize int) string {
	return fmt.Sprintf("feed:%d:v%d:p%d:s%d", accountID, version, page, pageSize)
}

// KeySuggestions returns the cache key for follow suggestions
func KeySuggestions(accountID int64, limit int) string {
	return "suggest:" + HashKey(strconv.FormatInt(accountID, 10), strconv.Itoa(limit))
}

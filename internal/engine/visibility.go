package engine

import (
	"github.com/flocknet/flock/internal/models"
)

// Visible reports whether a post may be served. Soft-deleted posts are
// hidden unless the caller explicitly asked for deleted content; whether
// the caller is entitled to ask is decided before this point.
func Visible(post *models.Post, includeDeleted bool) bool {
	if post == nil {
		return false
	}
	return !post.IsDeleted || includeDeleted
}

// VisibleOnly filters a post list down to the posts a normal reader may
// see. The store queries already exclude deleted rows; this runs at every
// read boundary anyway so soft delete is enforced in one place rather
// than once per query.
func VisibleOnly(posts []*models.Post) []*models.Post {
	out := make([]*models.Post, 0, len(posts))
	for _, p := range posts {
		if Visible(p, false) {
			out = append(out, p)
		}
	}
	return out
}

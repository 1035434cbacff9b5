package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// getFeed handles GET /v1/feed. The X-Cache header reports whether the
// page was served from the cache tier.
func (r *Router) getFeed(c *gin.Context) {
	page, err := r.feed.GetFeed(c.Request.Context(), currentIdentity(c),
		queryInt(c, "page"), queryInt(c, "page_size"))
	if err != nil {
		r.respondError(c, err)
		return
	}

	if page.FromCache {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.JSON(http.StatusOK, page)
}

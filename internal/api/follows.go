package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// follow handles POST /v1/follows/:name. Repeats report changed=false
// instead of erroring.
func (r *Router) follow(c *gin.Context) {
	res, err := r.graph.Follow(c.Request.Context(), currentIdentity(c), c.Param("name"))
	if err != nil {
		r.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// unfollow handles DELETE /v1/follows/:name
func (r *Router) unfollow(c *gin.Context) {
	res, err := r.graph.Unfollow(c.Request.Context(), currentIdentity(c), c.Param("name"))
	if err != nil {
		r.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

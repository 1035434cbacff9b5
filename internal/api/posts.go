package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/flocknet/flock/internal/errs"
)

type createPostRequest struct {
	Body  string `json:"body"`
	Media string `json:"media"`
}

// createPost handles POST /v1/posts
func (r *Router) createPost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.respondError(c, errs.Validationf("invalid request body"))
		return
	}

	view, err := r.posts.CreatePost(c.Request.Context(), currentIdentity(c), req.Body, req.Media)
	if err != nil {
		r.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

// getPost handles GET /v1/posts/:id. include_deleted lets the owner or
// an elevated role read a soft-deleted post; everyone else gets 404.
func (r *Router) getPost(c *gin.Context) {
	postID, err := pathID(c, "id")
	if err != nil {
		r.respondError(c, err)
		return
	}
	includeDeleted, _ := strconv.ParseBool(c.Query("include_deleted"))

	view, err := r.posts.GetPost(c.Request.Context(), currentIdentity(c), postID, includeDeleted)
	if err != nil {
		r.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// deletePost handles DELETE /v1/posts/:id
func (r *Router) deletePost(c *gin.Context) {
	postID, err := pathID(c, "id")
	if err != nil {
		r.respondError(c, err)
		return
	}

	res, err := r.posts.SoftDelete(c.Request.Context(), currentIdentity(c), postID)
	if err != nil {
		r.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// toggleLike handles POST /v1/posts/:id/like
func (r *Router) toggleLike(c *gin.Context) {
	postID, err := pathID(c, "id")
	if err != nil {
		r.respondError(c, err)
		return
	}

	res, err := r.engage.ToggleLike(c.Request.Context(), currentIdentity(c), postID)
	if err != nil {
		r.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// listAccountPosts handles GET /v1/accounts/:name/posts
func (r *Router) listAccountPosts(c *gin.Context) {
	views, err := r.posts.AuthorPosts(c.Request.Context(), c.Param("name"),
		queryInt(c, "page"), queryInt(c, "page_size"))
	if err != nil {
		r.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, views)
}

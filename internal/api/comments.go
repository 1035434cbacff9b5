package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flocknet/flock/internal/errs"
)

type addCommentRequest struct {
	Body string `json:"body"`
}

// addComment handles POST /v1/posts/:id/comments
func (r *Router) addComment(c *gin.Context) {
	postID, err := pathID(c, "id")
	if err != nil {
		r.respondError(c, err)
		return
	}

	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.respondError(c, errs.Validationf("invalid request body"))
		return
	}

	view, err := r.engage.AddComment(c.Request.Context(), currentIdentity(c), postID, req.Body)
	if err != nil {
		r.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

// listComments handles GET /v1/posts/:id/comments
func (r *Router) listComments(c *gin.Context) {
	postID, err := pathID(c, "id")
	if err != nil {
		r.respondError(c, err)
		return
	}

	views, err := r.engage.Comments(c.Request.Context(), postID,
		queryInt(c, "page"), queryInt(c, "page_size"))
	if err != nil {
		r.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, views)
}

// deleteComment handles DELETE /v1/comments/:id
func (r *Router) deleteComment(c *gin.Context) {
	commentID, err := pathID(c, "id")
	if err != nil {
		r.respondError(c, err)
		return
	}

	res, err := r.engage.DeleteComment(c.Request.Context(), currentIdentity(c), commentID)
	if err != nil {
		r.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

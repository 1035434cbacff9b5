package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flocknet/flock/internal/errs"
	"github.com/flocknet/flock/internal/models"
)

// AccountView is the wire shape of an account profile
type AccountView struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	DisplayName  string    `json:"display_name,omitempty"`
	About        string    `json:"about,omitempty"`
	Location     string    `json:"location,omitempty"`
	Website      string    `json:"website,omitempty"`
	ProfileImage string    `json:"profile_image,omitempty"`
	Followers    int64     `json:"followers"`
	Following    int64     `json:"following"`
	PostCount    int64     `json:"post_count"`
	Banned       bool      `json:"banned,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// renderAccount flattens the nullable profile columns for the wire
func renderAccount(a *models.Account) *AccountView {
	view := &AccountView{
		ID:           a.ID,
		Name:         a.Name,
		ProfileImage: a.ProfileImage,
		Followers:    a.Followers,
		Following:    a.Following,
		PostCount:    a.PostCount,
		Banned:       a.Banned,
		CreatedAt:    a.CreatedAt,
	}
	if a.DisplayName.Valid {
		view.DisplayName = a.DisplayName.String
	}
	if a.About.Valid {
		view.About = a.About.String
	}
	if a.Location.Valid {
		view.Location = a.Location.String
	}
	if a.Website.Valid {
		view.Website = a.Website.String
	}
	return view
}

func renderAccounts(accounts []*models.Account) []*AccountView {
	views := make([]*AccountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, renderAccount(a))
	}
	return views
}

type createAccountRequest struct {
	Name string `json:"name"`
}

// createAccount handles POST /v1/accounts
func (r *Router) createAccount(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.respondError(c, errs.Validationf("invalid request body"))
		return
	}

	account, err := r.graph.Register(c.Request.Context(), req.Name)
	if err != nil {
		r.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, renderAccount(account))
}

// getProfile handles GET /v1/accounts/:name
func (r *Router) getProfile(c *gin.Context) {
	account, err := r.graph.Profile(c.Request.Context(), c.Param("name"))
	if err != nil {
		r.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, renderAccount(account))
}

// listFollowers handles GET /v1/accounts/:name/followers
func (r *Router) listFollowers(c *gin.Context) {
	accounts, err := r.graph.Followers(c.Request.Context(), c.Param("name"),
		queryInt(c, "page"), queryInt(c, "page_size"))
	if err != nil {
		r.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, renderAccounts(accounts))
}

// listFollowing handles GET /v1/accounts/:name/following
func (r *Router) listFollowing(c *gin.Context) {
	accounts, err := r.graph.Following(c.Request.Context(), c.Param("name"),
		queryInt(c, "page"), queryInt(c, "page_size"))
	if err != nil {
		r.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, renderAccounts(accounts))
}

// listSuggestions handles GET /v1/suggestions
func (r *Router) listSuggestions(c *gin.Context) {
	accounts, err := r.graph.Suggestions(c.Request.Context(), currentIdentity(c), queryInt(c, "limit"))
	if err != nil {
		r.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, renderAccounts(accounts))
}

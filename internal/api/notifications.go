package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flocknet/flock/internal/errs"
	"github.com/flocknet/flock/internal/models"
	"github.com/flocknet/flock/internal/notify"
)

const (
	notifLimitDefault = 50
	notifLimitMax     = 100
)

// NotificationView is the wire shape of one inbox entry
type NotificationView struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Src       string    `json:"src,omitempty"`
	PostID    int64     `json:"post_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func renderNotifications(notifs []*models.Notification) []*NotificationView {
	views := make([]*NotificationView, 0, len(notifs))
	for _, n := range notifs {
		view := &NotificationView{
			ID:        n.ID,
			Type:      notify.TypeName(n.Type),
			CreatedAt: n.CreatedAt,
		}
		if n.Src != nil {
			view.Src = n.Src.Name
		}
		if n.PostID.Valid {
			view.PostID = n.PostID.Int64
		}
		views = append(views, view)
	}
	return views
}

// listNotifications handles GET /v1/notifications. last_id pages further
// back in the inbox; newest first.
func (r *Router) listNotifications(c *gin.Context) {
	caller := currentIdentity(c)

	limit := queryInt(c, "limit")
	if limit < 1 {
		limit = notifLimitDefault
	}
	if limit > notifLimitMax {
		limit = notifLimitMax
	}

	notifs, err := r.notifs.NotificationsByAccount(c.Request.Context(),
		caller.AccountID, queryInt64(c, "last_id"), limit)
	if err != nil {
		r.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, renderNotifications(notifs))
}

type unreadView struct {
	Unread   int64     `json:"unread"`
	Lastread time.Time `json:"lastread"`
}

// unreadNotifications handles GET /v1/notifications/unread
func (r *Router) unreadNotifications(c *gin.Context) {
	caller := currentIdentity(c)
	ctx := c.Request.Context()

	account, err := r.notifs.AccountByID(ctx, caller.AccountID)
	if err != nil {
		r.respondError(c, err)
		return
	}
	if account == nil {
		r.respondError(c, errs.NotFoundf("account %d not found", caller.AccountID))
		return
	}

	unread, err := r.notifs.CountUnread(ctx, caller.AccountID)
	if err != nil {
		r.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, unreadView{Unread: unread, Lastread: account.LastreadAt})
}

type lastreadView struct {
	Lastread time.Time `json:"lastread"`
}

// markNotificationsRead handles POST /v1/notifications/read. Everything
// in the inbox up to now counts as read.
func (r *Router) markNotificationsRead(c *gin.Context) {
	caller := currentIdentity(c)
	now := time.Now().UTC()

	if err := r.notifs.SetLastRead(c.Request.Context(), caller.AccountID, now); err != nil {
		r.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, lastreadView{Lastread: now})
}

// Package notify delivers engagement notifications. Every event lands as
// a row in the receiving account's inbox; an optional webhook forwards
// the event to an external endpoint. Webhook failures never fail the
// delivery, the inbox row is the record that counts.
package notify

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/flocknet/flock/internal/db"
	"github.com/flocknet/flock/internal/engine"
	"github.com/flocknet/flock/internal/models"
	"github.com/flocknet/flock/pkg/config"
)

// Notifier fans an event out to the inbox writer and the webhook
type Notifier struct {
	store   *StoreNotifier
	webhook *WebhookNotifier
	logger  *zap.Logger
}

var _ engine.Notifier = (*Notifier)(nil)

// New creates a notifier. The webhook leg is only attached when a
// webhook URL is configured.
func New(repo *db.Repository, cfg *config.NotifyConfig, logger *zap.Logger) *Notifier {
	n := &Notifier{
		store:  NewStoreNotifier(repo),
		logger: logger,
	}
	if cfg.WebhookURL != "" {
		n.webhook = NewWebhookNotifier(cfg, logger)
	}
	return n
}

// NotifyFollow records that src started following dst
func (n *Notifier) NotifyFollow(ctx context.Context, srcID, dstID int64) error {
	return n.deliver(ctx, models.NotifyTypeFollow, srcID, dstID, 0)
}

// NotifyLike records that src liked dst's post
func (n *Notifier) NotifyLike(ctx context.Context, srcID, dstID, postID int64) error {
	return n.deliver(ctx, models.NotifyTypeLike, srcID, dstID, postID)
}

// NotifyComment records that src commented on dst's post
func (n *Notifier) NotifyComment(ctx context.Context, srcID, dstID, postID int64) error {
	return n.deliver(ctx, models.NotifyTypeComment, srcID, dstID, postID)
}

func (n *Notifier) deliver(ctx context.Context, typeID int16, srcID, dstID, postID int64) error {
	if err := n.store.Write(ctx, typeID, srcID, dstID, postID); err != nil {
		return err
	}
	if n.webhook != nil {
		if err := n.webhook.Send(ctx, typeID, srcID, dstID, postID); err != nil {
			n.logger.Warn("Webhook delivery failed",
				zap.String("type", TypeName(typeID)),
				zap.Int64("dst_id", dstID),
				zap.Error(err))
		}
	}
	return nil
}

// StoreNotifier writes notification rows
type StoreNotifier struct {
	repo *db.Repository
}

// NewStoreNotifier creates a new store notifier
func NewStoreNotifier(repo *db.Repository) *StoreNotifier {
	return &StoreNotifier{repo: repo}
}

// Write creates a notification row. A zero postID means the event has no
// post, as with follows.
func (n *StoreNotifier) Write(ctx context.Context, typeID int16, srcID, dstID, postID int64) error {
	notif := &models.Notification{
		Type:      typeID,
		CreatedAt: time.Now().UTC(),
		SrcID:     sql.NullInt64{Int64: srcID, Valid: true},
		DstID:     sql.NullInt64{Int64: dstID, Valid: true},
	}
	if postID > 0 {
		notif.PostID = sql.NullInt64{Int64: postID, Valid: true}
	}

	notifRepo := db.NewNotificationRepository(n.repo)
	return notifRepo.CreateNotification(ctx, notif)
}

// TypeName returns the wire name for a notification type
func TypeName(typeID int16) string {
	names := map[int16]string{
		models.NotifyTypeFollow:  "follow",
		models.NotifyTypeLike:    "like",
		models.NotifyTypeComment: "comment",
	}
	if name, ok := names[typeID]; ok {
		return name
	}
	return "unknown"
}

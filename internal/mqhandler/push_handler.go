package mqhandler

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"tradeboard/internal/event"
	"tradeboard/internal/ws"
)

type badgeInvalidator interface {
	InvalidateBadge(ctx context.Context, userID int64)
}

// PushHandler runs inside the API process. It turns MQ events into
// websocket pushes for whoever is connected to this instance.
type PushHandler struct {
	hub    *ws.Hub
	badges badgeInvalidator
	logger *zap.Logger
}

func NewPushHandler(hub *ws.Hub, badges badgeInvalidator, logger *zap.Logger) *PushHandler {
	return &PushHandler{hub: hub, badges: badges, logger: logger}
}

// HandleNotificationCreated 推送新通知并让未读角标缓存失效。
func (h *PushHandler) HandleNotificationCreated(ctx context.Context, data json.RawMessage) error {
	var p event.NotificationCreatedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	h.badges.InvalidateBadge(ctx, p.UserID)

	h.hub.BroadcastToUser(p.UserID, ws.Event{Type: "notification", Data: p})

	h.logger.Debug("notification pushed",
		zap.Int64("user_id", p.UserID),
		zap.Int64("notification_id", p.NotificationID))
	return nil
}

// HandleMessageSent pushes chat messages (system ones included) to the
// recipient's open tabs.
func (h *PushHandler) HandleMessageSent(ctx context.Context, data json.RawMessage) error {
	var p event.MessageSentPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	if p.RecipientID == 0 {
		return nil
	}

	h.hub.BroadcastToUser(p.RecipientID, ws.Event{Type: "message", Data: p})
	return nil
}

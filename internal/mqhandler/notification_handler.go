package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"tradeboard/internal/event"
	"tradeboard/internal/model"
	"tradeboard/pkg/metrics"
)

type notificationInserter interface {
	Insert(ctx context.Context, n *model.Notification) error
}

type deduper interface {
	AcquireOnce(ctx context.Context, handler, eventID string) bool
	Release(ctx context.Context, handler, eventID string)
}

type publisher interface {
	Publish(routingKey string, payload any) error
}

// NotificationHandler is the single writer of notification rows. Every
// feature emits domain events; this handler decides who the counterpart is
// and what they need to read. MQ delivery is at-least-once, so each event
// id passes through the Redis deduper first.
type NotificationHandler struct {
	repo    notificationInserter
	deduper deduper
	pub     publisher
	logger  *zap.Logger
}

func NewNotificationHandler(repo notificationInserter, dd deduper, pub publisher, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		repo:    repo,
		deduper: dd,
		pub:     pub,
		logger:  logger,
	}
}

func (h *NotificationHandler) HandleStatusChanged(ctx context.Context, raw json.RawMessage) error {
	var p event.ProjectStatusChangedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal status changed payload", zap.Error(err))
		return err
	}

	// 没有对方（项目还没被接单）就没有人要通知
	if p.CounterpartID == 0 {
		return nil
	}

	n := &model.Notification{
		UserID:  p.CounterpartID,
		Type:    "status_change",
		Title:   fmt.Sprintf("Project %q is now %s", p.ProjectTitle, p.ToStatus),
		Message: fmt.Sprintf("The %s moved the project from %s to %s.", p.ActorRole, p.FromStatus, p.ToStatus),
	}
	return h.insert(ctx, event.ProjectStatusChanged, p.EventID, p.ProjectID, n)
}

func (h *NotificationHandler) HandleUpdatePosted(ctx context.Context, raw json.RawMessage) error {
	var p event.ProjectUpdatePostedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal update posted payload", zap.Error(err))
		return err
	}

	if p.CounterpartID == 0 {
		return nil
	}

	n := &model.Notification{
		UserID:  p.CounterpartID,
		Type:    "project_update",
		Title:   fmt.Sprintf("New %s update on %q", p.UpdateType, p.ProjectTitle),
		Message: fmt.Sprintf("A %s entry was added to the project timeline.", p.UpdateType),
	}
	return h.insert(ctx, event.ProjectUpdatePosted, p.EventID, p.ProjectID, n)
}

func (h *NotificationHandler) HandleApplicationReceived(ctx context.Context, raw json.RawMessage) error {
	var p event.ApplicationReceivedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal application received payload", zap.Error(err))
		return err
	}

	n := &model.Notification{
		UserID:  p.ClientID,
		Type:    "new_application",
		Title:   fmt.Sprintf("New application for %q", p.ProjectTitle),
		Message: "A professional applied to your project.",
	}
	return h.insert(ctx, event.ApplicationReceived, p.EventID, p.ProjectID, n)
}

func (h *NotificationHandler) HandleApplicationAccepted(ctx context.Context, raw json.RawMessage) error {
	var p event.ApplicationAcceptedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal application accepted payload", zap.Error(err))
		return err
	}

	n := &model.Notification{
		UserID:  p.ProfessionalID,
		Type:    "application_accepted",
		Title:   fmt.Sprintf("You were hired for %q", p.ProjectTitle),
		Message: "Your application was accepted. The project is now assigned to you.",
	}
	return h.insert(ctx, event.ApplicationAccepted, p.EventID, p.ProjectID, n)
}

func (h *NotificationHandler) HandleApplicationRejected(ctx context.Context, raw json.RawMessage) error {
	var p event.ApplicationRejectedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal application rejected payload", zap.Error(err))
		return err
	}

	n := &model.Notification{
		UserID:  p.ProfessionalID,
		Type:    "application_rejected",
		Title:   fmt.Sprintf("Application update for %q", p.ProjectTitle),
		Message: "Your application was not selected this time.",
	}
	return h.insert(ctx, event.ApplicationRejected, p.EventID, p.ProjectID, n)
}

func (h *NotificationHandler) HandleMessageSent(ctx context.Context, raw json.RawMessage) error {
	var p event.MessageSentPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal message sent payload", zap.Error(err))
		return err
	}

	// 系统消息本身就是通知的产物，不再通知一遍
	if p.IsSystem {
		return nil
	}

	n := &model.Notification{
		UserID:  p.RecipientID,
		Type:    "new_message",
		Title:   fmt.Sprintf("New message on %q", p.ProjectTitle),
		Message: p.Preview,
	}
	return h.insert(ctx, event.MessageSent, p.EventID, p.ProjectID, n)
}

func (h *NotificationHandler) HandleInvoicePaid(ctx context.Context, raw json.RawMessage) error {
	var p event.InvoicePaidPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal invoice paid payload", zap.Error(err))
		return err
	}

	n := &model.Notification{
		UserID:  p.ProfessionalID,
		Type:    "invoice_paid",
		Title:   fmt.Sprintf("Payment received for %q", p.ProjectTitle),
		Message: fmt.Sprintf("The client confirmed payment of %.2f.", p.Amount),
	}
	return h.insert(ctx, event.InvoicePaid, p.EventID, p.ProjectID, n)
}

func (h *NotificationHandler) HandleReviewSubmitted(ctx context.Context, raw json.RawMessage) error {
	var p event.ReviewSubmittedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal review submitted payload", zap.Error(err))
		return err
	}

	if p.RecipientID == 0 {
		return nil
	}

	n := &model.Notification{
		UserID:  p.RecipientID,
		Type:    "new_review",
		Title:   fmt.Sprintf("New review on %q", p.ProjectTitle),
		Message: fmt.Sprintf("The %s left a %d-star review.", p.ReviewerRole, p.Rating),
	}
	return h.insert(ctx, event.ReviewSubmitted, p.EventID, p.ProjectID, n)
}

func (h *NotificationHandler) insert(ctx context.Context, eventType, eventID string, projectID int64, n *model.Notification) error {
	if !h.deduper.AcquireOnce(ctx, "notify", eventID) {
		metrics.RecordNotificationFanout(eventType, "duplicate")
		h.logger.Debug("Duplicate event skipped",
			zap.String("event_type", eventType),
			zap.String("event_id", eventID),
		)
		return nil
	}

	actionURL := fmt.Sprintf("/projects/%d", projectID)
	n.ActionURL = &actionURL

	if err := h.repo.Insert(ctx, n); err != nil {
		// 释放去重 key，否则 nack 重投会被当成重复而永久丢失
		h.deduper.Release(ctx, "notify", eventID)
		metrics.RecordNotificationFanout(eventType, "failed")
		h.logger.Error("Failed to insert notification",
			zap.String("event_type", eventType),
			zap.Int64("user_id", n.UserID),
			zap.Error(err),
		)
		return err
	}

	metrics.RecordNotificationFanout(eventType, "created")
	h.logger.Info("Notification created",
		zap.String("event_type", eventType),
		zap.Int64("user_id", n.UserID),
		zap.Int64("notification_id", n.ID),
	)

	// 推送给 API 进程：websocket 下发 + 角标缓存失效
	created := event.NotificationCreatedPayload{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Type:           n.Type,
		Title:          n.Title,
		Message:        n.Message,
		ActionURL:      actionURL,
		CreatedAt:      n.CreatedAt,
	}
	if err := h.pub.Publish(event.NotificationCreated, created); err != nil {
		// 通知行已落库，推送失败只影响实时性，不重试整个事件
		h.logger.Warn("Failed to publish notification.created", zap.Error(err))
	}

	return nil
}

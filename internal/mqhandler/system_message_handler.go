package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tradeboard/internal/event"
	"tradeboard/internal/model"
)

type messageInserter interface {
	Insert(ctx context.Context, m *model.ProjectMessage) (int64, error)
}

// SystemMessageHandler projects lifecycle events into the project chat as
// system messages, so the conversation shows "work submitted", "payment
// confirmed" and the like inline with the participants' own messages.
type SystemMessageHandler struct {
	messages messageInserter
	deduper  deduper
	pub      publisher
	logger   *zap.Logger
}

func NewSystemMessageHandler(messages messageInserter, dd deduper, pub publisher, logger *zap.Logger) *SystemMessageHandler {
	return &SystemMessageHandler{
		messages: messages,
		deduper:  dd,
		pub:      pub,
		logger:   logger,
	}
}

func (h *SystemMessageHandler) HandleStatusChanged(ctx context.Context, raw json.RawMessage) error {
	var p event.ProjectStatusChangedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal status changed payload", zap.Error(err))
		return err
	}

	if p.CounterpartID == 0 {
		return nil
	}
	if !h.deduper.AcquireOnce(ctx, "sysmsg", p.EventID) {
		return nil
	}

	content := fmt.Sprintf("Project status changed to %s", p.ToStatus)
	return h.post(ctx, p.EventID, p.ProjectID, p.ProjectTitle, p.ActorID, p.CounterpartID, content)
}

func (h *SystemMessageHandler) HandleInvoicePaid(ctx context.Context, raw json.RawMessage) error {
	var p event.InvoicePaidPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal invoice paid payload", zap.Error(err))
		return err
	}

	if !h.deduper.AcquireOnce(ctx, "sysmsg", p.EventID) {
		return nil
	}

	content := fmt.Sprintf("Payment of %.2f confirmed by the client", p.Amount)
	return h.post(ctx, p.EventID, p.ProjectID, p.ProjectTitle, p.ClientID, p.ProfessionalID, content)
}

func (h *SystemMessageHandler) post(ctx context.Context, eventID string, projectID int64, projectTitle string, senderID, recipientID int64, content string) error {
	m := &model.ProjectMessage{
		ProjectID:   projectID,
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
		IsSystem:    true,
	}
	if _, err := h.messages.Insert(ctx, m); err != nil {
		// 释放去重 key，否则 nack 重投会被当成重复而永久丢失
		h.deduper.Release(ctx, "sysmsg", eventID)
		h.logger.Error("Failed to insert system message",
			zap.Int64("project_id", projectID),
			zap.Error(err),
		)
		return err
	}

	h.logger.Info("System message posted",
		zap.Int64("project_id", projectID),
		zap.Int64("message_id", m.ID),
	)

	// 实时下发；失败不影响已落库的消息
	payload := event.MessageSentPayload{
		EventID:      uuid.NewString(),
		MessageID:    m.ID,
		ProjectID:    projectID,
		ProjectTitle: projectTitle,
		SenderID:     senderID,
		RecipientID:  recipientID,
		Preview:      content,
		IsSystem:     true,
		OccurredAt:   time.Now().UTC(),
	}
	if err := h.pub.Publish(event.MessageSent, payload); err != nil {
		h.logger.Warn("Failed to publish system message event", zap.Error(err))
	}
	return nil
}

package service

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"tradeboard/internal/event"
	"tradeboard/internal/model"
	"tradeboard/internal/status"
	"tradeboard/pkg/outbox"
)

type messageStore interface {
	GetByID(ctx context.Context, id int64) (*model.ProjectMessage, error)
	InsertTx(ctx context.Context, tx pgx.Tx, m *model.ProjectMessage) (int64, error)
	ListByProject(ctx context.Context, projectID int64) ([]model.ProjectMessage, error)
	MarkReadForRecipient(ctx context.Context, projectID, userID int64) error
	ToggleReaction(ctx context.Context, messageID, userID int64, emoji string) (bool, error)
	ListReactions(ctx context.Context, projectID int64) ([]model.MessageReaction, error)
}

// ChatService is the per-project two-party message channel. The recipient
// of every message is computed as "the other participant"; the channel goes
// read-only once the project reaches completed, archived or disputed.
type ChatService struct {
	db       TxBeginner
	messages messageStore
	projects timelineProjectStore
	outbox   outboxInserter
	logger   *zap.Logger
}

func NewChatService(
	db TxBeginner,
	messages messageStore,
	projects timelineProjectStore,
	ob outboxInserter,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		db:       db,
		messages: messages,
		projects: projects,
		outbox:   ob,
		logger:   logger,
	}
}

// Send inserts a message from senderID to the other participant.
func (s *ChatService) Send(ctx context.Context, projectID, senderID int64, content string, parentID *int64) (*model.ProjectMessage, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, ok := p.ParticipantRole(senderID); !ok {
		return nil, ErrNotParticipant
	}
	if !status.ChatOpen(p.Status) {
		return nil, ErrChatClosed
	}

	recipientID, ok := p.Counterpart(senderID)
	if !ok {
		return nil, ErrNoCounterpart
	}

	if parentID != nil {
		parent, err := s.messages.GetByID(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if parent.ProjectID != projectID {
			return nil, fmt.Errorf("parent message %d belongs to another project", *parentID)
		}
	}

	m := &model.ProjectMessage{
		ProjectID:   projectID,
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
		ParentID:    parentID,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := s.messages.InsertTx(ctx, tx, m); err != nil {
		return nil, err
	}

	payload := event.MessageSentPayload{
		EventID:      uuid.NewString(),
		MessageID:    m.ID,
		ProjectID:    projectID,
		ProjectTitle: p.Title,
		SenderID:     senderID,
		RecipientID:  recipientID,
		Preview:      previewOf(content),
		OccurredAt:   time.Now().UTC(),
	}
	evt, err := outbox.NewEvent("message", m.ID, event.MessageSent, payload)
	if err != nil {
		return nil, err
	}
	if err := s.outbox.InsertEvent(ctx, tx, evt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}

	s.logger.Debug("Message sent",
		zap.Int64("project_id", projectID),
		zap.Int64("message_id", m.ID),
	)
	return m, nil
}

// List returns the conversation and marks messages addressed to userID as
// read — read-state flips when the recipient fetches, not when the sender
// asks.
func (s *ChatService) List(ctx context.Context, projectID, userID int64) ([]model.ProjectMessage, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, ok := p.ParticipantRole(userID); !ok {
		return nil, ErrNotParticipant
	}

	if err := s.messages.MarkReadForRecipient(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.messages.ListByProject(ctx, projectID)
}

// ToggleReaction flips the (message, user, emoji) reaction. Reactions follow
// the chat gate: no changes once the channel is read-only.
func (s *ChatService) ToggleReaction(ctx context.Context, messageID, userID int64, emoji string) (bool, error) {
	m, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return false, err
	}

	p, err := s.projects.GetByID(ctx, m.ProjectID)
	if err != nil {
		return false, err
	}
	if _, ok := p.ParticipantRole(userID); !ok {
		return false, ErrNotParticipant
	}
	if !status.ChatOpen(p.Status) {
		return false, ErrChatClosed
	}

	return s.messages.ToggleReaction(ctx, messageID, userID, emoji)
}

// Reactions lists every reaction in the project conversation.
func (s *ChatService) Reactions(ctx context.Context, projectID, userID int64) ([]model.MessageReaction, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, ok := p.ParticipantRole(userID); !ok {
		return nil, ErrNotParticipant
	}
	return s.messages.ListReactions(ctx, projectID)
}

const previewMaxBytes = 120

// previewOf 截断消息做通知预览，退到 rune 边界避免切出半个多字节字符
func previewOf(content string) string {
	if len(content) <= previewMaxBytes {
		return content
	}
	cut := previewMaxBytes
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}

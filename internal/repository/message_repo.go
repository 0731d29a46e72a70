package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"tradeboard/internal/model"
)

type MessageRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewMessageRepository(db *pgxpool.Pool, logger *zap.Logger) *MessageRepository {
	return &MessageRepository{
		db:     db,
		logger: logger,
	}
}

const messageColumns = `id, project_id, sender_id, recipient_id, content, parent_id, is_system, is_read, sent_at`

func scanMessage(row pgx.Row) (*model.ProjectMessage, error) {
	var m model.ProjectMessage
	err := row.Scan(
		&m.ID,
		&m.ProjectID,
		&m.SenderID,
		&m.RecipientID,
		&m.Content,
		&m.ParentID,
		&m.IsSystem,
		&m.IsRead,
		&m.SentAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MessageRepository) Insert(ctx context.Context, m *model.ProjectMessage) (int64, error) {
	return r.insert(ctx, r.db, m)
}

func (r *MessageRepository) InsertTx(ctx context.Context, tx pgx.Tx, m *model.ProjectMessage) (int64, error) {
	return r.insert(ctx, tx, m)
}

func (r *MessageRepository) insert(ctx context.Context, q execQuerier, m *model.ProjectMessage) (int64, error) {
	query := `
        INSERT INTO project_messages (project_id, sender_id, recipient_id, content, parent_id, is_system)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, sent_at
    `
	err := q.QueryRow(ctx, query,
		m.ProjectID,
		m.SenderID,
		m.RecipientID,
		m.Content,
		m.ParentID,
		m.IsSystem,
	).Scan(&m.ID, &m.SentAt)

	if err != nil {
		r.logger.Error("Failed to insert message", zap.Int64("project_id", m.ProjectID), zap.Error(err))
		return 0, err
	}
	return m.ID, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*model.ProjectMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM project_messages WHERE id = $1`
	return scanMessage(r.db.QueryRow(ctx, query, id))
}

// ListByProject returns the conversation ordered by sent_at ascending.
func (r *MessageRepository) ListByProject(ctx context.Context, projectID int64) ([]model.ProjectMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM project_messages WHERE project_id = $1 ORDER BY sent_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		r.logger.Error("Failed to list messages", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var messages []model.ProjectMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			r.logger.Error("Failed to scan message", zap.Error(err))
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

// MarkReadForRecipient flags every message addressed to userID on the
// project as read. Called when the recipient fetches the conversation.
func (r *MessageRepository) MarkReadForRecipient(ctx context.Context, projectID, userID int64) error {
	_, err := r.db.Exec(ctx, `
        UPDATE project_messages
        SET is_read = TRUE
        WHERE project_id = $1 AND recipient_id = $2 AND is_read = FALSE
    `, projectID, userID)
	return err
}

// ToggleReaction inserts the (message, user, emoji) reaction if absent and
// deletes it if present. Returns true when the reaction now exists.
func (r *MessageRepository) ToggleReaction(ctx context.Context, messageID, userID int64, emoji string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
        DELETE FROM message_reactions
        WHERE message_id = $1 AND user_id = $2 AND emoji = $3
    `, messageID, userID, emoji)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	// 不存在 → 插入；唯一索引兜底并发下的重复插入
	_, err = r.db.Exec(ctx, `
        INSERT INTO message_reactions (message_id, user_id, emoji)
        VALUES ($1, $2, $3)
        ON CONFLICT (message_id, user_id, emoji) DO NOTHING
    `, messageID, userID, emoji)
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListReactions returns all reactions for a set of messages.
func (r *MessageRepository) ListReactions(ctx context.Context, projectID int64) ([]model.MessageReaction, error) {
	query := `
        SELECT mr.id, mr.message_id, mr.user_id, mr.emoji, mr.created_at
        FROM message_reactions mr
        JOIN project_messages pm ON pm.id = mr.message_id
        WHERE pm.project_id = $1
        ORDER BY mr.created_at ASC
    `

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reactions []model.MessageReaction
	for rows.Next() {
		var mr model.MessageReaction
		if err := rows.Scan(&mr.ID, &mr.MessageID, &mr.UserID, &mr.Emoji, &mr.CreatedAt); err != nil {
			return nil, err
		}
		reactions = append(reactions, mr)
	}
	return reactions, rows.Err()
}

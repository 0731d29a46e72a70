package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"tradeboard/internal/model"
)

// UpdateRepository is insert-only. There is deliberately no update or
// delete path: project_updates is the audit trail.
type UpdateRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewUpdateRepository(db *pgxpool.Pool, logger *zap.Logger) *UpdateRepository {
	return &UpdateRepository{
		db:     db,
		logger: logger,
	}
}

func (r *UpdateRepository) Insert(ctx context.Context, u *model.ProjectUpdate) (int64, error) {
	return r.insert(ctx, r.db, u)
}

// InsertTx appends a timeline entry inside a caller-owned transaction, so
// the entry commits atomically with the status write it records.
func (r *UpdateRepository) InsertTx(ctx context.Context, tx pgx.Tx, u *model.ProjectUpdate) (int64, error) {
	return r.insert(ctx, tx, u)
}

type execQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *UpdateRepository) insert(ctx context.Context, q execQuerier, u *model.ProjectUpdate) (int64, error) {
	r.logger.Debug("Appending project update",
		zap.Int64("project_id", u.ProjectID),
		zap.String("update_type", u.UpdateType),
	)

	var meta []byte
	if u.Metadata != nil {
		var err error
		meta, err = json.Marshal(u.Metadata)
		if err != nil {
			return 0, err
		}
	}

	query := `
        INSERT INTO project_updates (project_id, update_type, message, file_url, metadata, created_by)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at
    `
	err := q.QueryRow(ctx, query,
		u.ProjectID,
		u.UpdateType,
		u.Message,
		u.FileURL,
		meta,
		u.CreatedBy,
	).Scan(&u.ID, &u.CreatedAt)

	if err != nil {
		r.logger.Error("Failed to append project update", zap.Error(err))
		return 0, err
	}

	return u.ID, nil
}

// ListByProject returns the full timeline in stable chronological order.
// The id tiebreak keeps ordering deterministic when created_at collides.
func (r *UpdateRepository) ListByProject(ctx context.Context, projectID int64) ([]model.ProjectUpdate, error) {
	query := `
        SELECT id, project_id, update_type, message, file_url, metadata, created_by, created_at
        FROM project_updates
        WHERE project_id = $1
        ORDER BY created_at ASC, id ASC
    `

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		r.logger.Error("Failed to list project updates", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var updates []model.ProjectUpdate
	for rows.Next() {
		var u model.ProjectUpdate
		var meta []byte
		if err := rows.Scan(
			&u.ID,
			&u.ProjectID,
			&u.UpdateType,
			&u.Message,
			&u.FileURL,
			&meta,
			&u.CreatedBy,
			&u.CreatedAt,
		); err != nil {
			r.logger.Error("Failed to scan project update", zap.Error(err))
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &u.Metadata); err != nil {
				return nil, err
			}
		}
		updates = append(updates, u)
	}
	return updates, rows.Err()
}

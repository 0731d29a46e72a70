package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"tradeboard/internal/model"
)

type ApplicationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewApplicationRepository(db *pgxpool.Pool, logger *zap.Logger) *ApplicationRepository {
	return &ApplicationRepository{
		db:     db,
		logger: logger,
	}
}

const applicationColumns = `id, project_id, professional_id, proposal, budget, timeline, status, created_at`

func scanApplication(row pgx.Row) (*model.Application, error) {
	var a model.Application
	err := row.Scan(
		&a.ID,
		&a.ProjectID,
		&a.ProfessionalID,
		&a.Proposal,
		&a.Budget,
		&a.Timeline,
		&a.Status,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ApplicationRepository) InsertTx(ctx context.Context, tx pgx.Tx, a *model.Application) (int64, error) {
	return r.insert(ctx, tx, a)
}

func (r *ApplicationRepository) insert(ctx context.Context, q execQuerier, a *model.Application) (int64, error) {
	r.logger.Debug("Inserting application",
		zap.Int64("project_id", a.ProjectID),
		zap.Int64("professional_id", a.ProfessionalID),
	)

	query := `
        INSERT INTO applications (project_id, professional_id, proposal, budget, timeline, status)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at
    `
	err := q.QueryRow(ctx, query,
		a.ProjectID,
		a.ProfessionalID,
		a.Proposal,
		a.Budget,
		a.Timeline,
		a.Status,
	).Scan(&a.ID, &a.CreatedAt)

	if err != nil {
		r.logger.Error("Failed to insert application", zap.Error(err))
		return 0, err
	}

	r.logger.Info("Application inserted successfully",
		zap.Int64("id", a.ID),
		zap.Int64("project_id", a.ProjectID),
	)
	return a.ID, nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (*model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	return scanApplication(r.db.QueryRow(ctx, query, id))
}

func (r *ApplicationRepository) ListByProject(ctx context.Context, projectID int64) ([]model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE project_id = $1 ORDER BY created_at ASC`
	return r.list(ctx, query, projectID)
}

func (r *ApplicationRepository) ListByProfessional(ctx context.Context, professionalID int64) ([]model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE professional_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, professionalID)
}

func (r *ApplicationRepository) list(ctx context.Context, query string, args ...any) ([]model.Application, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list applications", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var apps []model.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			r.logger.Error("Failed to scan application", zap.Error(err))
			return nil, err
		}
		apps = append(apps, *a)
	}
	return apps, rows.Err()
}

// HasApplied reports whether the professional already has a live (pending)
// application on the project.
func (r *ApplicationRepository) HasApplied(ctx context.Context, projectID, professionalID int64) (bool, error) {
	var count int
	err := r.db.QueryRow(ctx, `
        SELECT COUNT(*) FROM applications
        WHERE project_id = $1 AND professional_id = $2 AND status = 'pending'
    `, projectID, professionalID).Scan(&count)
	return count > 0, err
}

// UpdateStatus moves an application between its own statuses with a
// compare-and-swap on the current value.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id int64, from, to string) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE applications SET status = $1 WHERE id = $2 AND status = $3
    `, to, id, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: application %d is no longer %s", ErrStatusConflict, id, from)
	}
	return nil
}

// UpdateStatusTx is UpdateStatus inside a caller-owned transaction.
func (r *ApplicationRepository) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id int64, from, to string) error {
	tag, err := tx.Exec(ctx, `
        UPDATE applications SET status = $1 WHERE id = $2 AND status = $3
    `, to, id, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: application %d is no longer %s", ErrStatusConflict, id, from)
	}
	return nil
}

// RejectSiblingsTx bulk-rejects every other pending application on the
// project and returns the rejected rows so the caller can fan out events.
func (r *ApplicationRepository) RejectSiblingsTx(ctx context.Context, tx pgx.Tx, projectID, acceptedID int64) ([]model.Application, error) {
	rows, err := tx.Query(ctx, `
        UPDATE applications
        SET status = 'rejected'
        WHERE project_id = $1 AND id <> $2 AND status = 'pending'
        RETURNING `+applicationColumns+`
    `, projectID, acceptedID)
	if err != nil {
		r.logger.Error("Failed to reject sibling applications", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var rejected []model.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		rejected = append(rejected, *a)
	}
	return rejected, rows.Err()
}

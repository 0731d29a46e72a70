package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"tradeboard/internal/model"
	"tradeboard/internal/status"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = pgx.ErrNoRows

type ProjectRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProjectRepository(db *pgxpool.Pool, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{
		db:     db,
		logger: logger,
	}
}

const projectColumns = `id, client_id, professional_id, title, description, category, budget, status, deadline, created_at, updated_at`

func scanProject(row pgx.Row) (*model.Project, error) {
	var p model.Project
	err := row.Scan(
		&p.ID,
		&p.ClientID,
		&p.ProfessionalID,
		&p.Title,
		&p.Description,
		&p.Category,
		&p.Budget,
		&p.Status,
		&p.Deadline,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProjectRepository) Insert(ctx context.Context, p *model.Project) (int64, error) {
	r.logger.Debug("Inserting project",
		zap.Int64("client_id", p.ClientID),
		zap.String("title", p.Title),
	)

	query := `
        INSERT INTO projects (client_id, title, description, category, budget, status, deadline)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	var id int64
	err := r.db.QueryRow(ctx, query,
		p.ClientID,
		p.Title,
		p.Description,
		p.Category,
		p.Budget,
		p.Status,
		p.Deadline,
	).Scan(&id)

	if err != nil {
		r.logger.Error("Failed to insert project", zap.Error(err))
		return 0, err
	}

	r.logger.Info("Project inserted successfully",
		zap.Int64("id", id),
		zap.Int64("client_id", p.ClientID),
	)
	return id, nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id int64) (*model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	return scanProject(r.db.QueryRow(ctx, query, id))
}

// GetByIDTx reads the project row inside a transaction with FOR UPDATE so
// concurrent transitions on the same project serialize at the row.
func (r *ProjectRepository) GetByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1 FOR UPDATE`
	return scanProject(tx.QueryRow(ctx, query, id))
}

func (r *ProjectRepository) ListByClient(ctx context.Context, clientID int64) ([]model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE client_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, clientID)
}

func (r *ProjectRepository) ListByProfessional(ctx context.Context, professionalID int64) ([]model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE professional_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, professionalID)
}

// ListOpen lists projects professionals can still apply to, optionally
// filtered by category.
func (r *ProjectRepository) ListOpen(ctx context.Context, category string) ([]model.Project, error) {
	if category != "" {
		query := `SELECT ` + projectColumns + ` FROM projects WHERE status IN ('open', 'applied') AND category = $1 ORDER BY created_at DESC`
		return r.list(ctx, query, category)
	}
	query := `SELECT ` + projectColumns + ` FROM projects WHERE status IN ('open', 'applied') ORDER BY created_at DESC`
	return r.list(ctx, query)
}

func (r *ProjectRepository) list(ctx context.Context, query string, args ...any) ([]model.Project, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list projects", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			r.logger.Error("Failed to scan project", zap.Error(err))
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// UpdateStatusTx applies a compare-and-swap status write. It fails with
// ErrStatusConflict when the row is no longer at the expected status, so
// two concurrent transitions cannot both win.
func (r *ProjectRepository) UpdateStatusTx(ctx context.Context, tx pgx.Tx, projectID int64, from, to status.Status) error {
	query := `
        UPDATE projects
        SET status = $1, updated_at = NOW()
        WHERE id = $2 AND status = $3
    `
	tag, err := tx.Exec(ctx, query, to, projectID, from)
	if err != nil {
		r.logger.Error("Failed to update project status", zap.Int64("project_id", projectID), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: project %d is no longer %s", ErrStatusConflict, projectID, from)
	}
	return nil
}

// AssignProfessionalTx records the accepted professional on the project row.
func (r *ProjectRepository) AssignProfessionalTx(ctx context.Context, tx pgx.Tx, projectID, professionalID int64) error {
	query := `
        UPDATE projects
        SET professional_id = $1, updated_at = NOW()
        WHERE id = $2
    `
	_, err := tx.Exec(ctx, query, professionalID, projectID)
	return err
}

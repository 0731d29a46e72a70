package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"tradeboard/internal/model"
)

type ReviewRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewReviewRepository(db *pgxpool.Pool, logger *zap.Logger) *ReviewRepository {
	return &ReviewRepository{
		db:     db,
		logger: logger,
	}
}

const reviewColumns = `id, project_id, client_id, professional_id, reviewer_role, rating, comment, created_at`

func scanReview(row pgx.Row) (*model.Review, error) {
	var rv model.Review
	err := row.Scan(
		&rv.ID,
		&rv.ProjectID,
		&rv.ClientID,
		&rv.ProfessionalID,
		&rv.ReviewerRole,
		&rv.Rating,
		&rv.Comment,
		&rv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

// GetByProjectAndRole returns nil when no review exists for the role.
func (r *ReviewRepository) GetByProjectAndRole(ctx context.Context, projectID int64, role string) (*model.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE project_id = $1 AND reviewer_role = $2`
	rv, err := scanReview(r.db.QueryRow(ctx, query, projectID, role))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return rv, nil
}

func (r *ReviewRepository) InsertTx(ctx context.Context, tx pgx.Tx, rv *model.Review) (int64, error) {
	query := `
        INSERT INTO reviews (project_id, client_id, professional_id, reviewer_role, rating, comment)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at
    `
	err := tx.QueryRow(ctx, query,
		rv.ProjectID,
		rv.ClientID,
		rv.ProfessionalID,
		rv.ReviewerRole,
		rv.Rating,
		rv.Comment,
	).Scan(&rv.ID, &rv.CreatedAt)

	if err != nil {
		r.logger.Error("Failed to insert review",
			zap.Int64("project_id", rv.ProjectID),
			zap.String("reviewer_role", rv.ReviewerRole),
			zap.Error(err),
		)
		return 0, err
	}
	return rv.ID, nil
}

// ListByProfessional returns all reviews written about a professional.
func (r *ReviewRepository) ListByProfessional(ctx context.Context, professionalID int64) ([]model.Review, error) {
	query := `
        SELECT ` + reviewColumns + `
        FROM reviews
        WHERE professional_id = $1 AND reviewer_role = 'client'
        ORDER BY created_at DESC
    `

	rows, err := r.db.Query(ctx, query, professionalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, *rv)
	}
	return reviews, rows.Err()
}

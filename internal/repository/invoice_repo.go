package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"tradeboard/internal/model"
)

type InvoiceRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewInvoiceRepository(db *pgxpool.Pool, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

const invoiceColumns = `id, project_id, client_id, professional_id, amount, status, paid_at, created_at`

func scanInvoice(row pgx.Row) (*model.Invoice, error) {
	var inv model.Invoice
	err := row.Scan(
		&inv.ID,
		&inv.ProjectID,
		&inv.ClientID,
		&inv.ProfessionalID,
		&inv.Amount,
		&inv.Status,
		&inv.PaidAt,
		&inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InvoiceRepository) GetByProject(ctx context.Context, projectID int64) (*model.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE project_id = $1`
	inv, err := scanInvoice(r.db.QueryRow(ctx, query, projectID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return inv, nil
}

func (r *InvoiceRepository) GetByProjectTx(ctx context.Context, tx pgx.Tx, projectID int64) (*model.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE project_id = $1 FOR UPDATE`
	inv, err := scanInvoice(tx.QueryRow(ctx, query, projectID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return inv, nil
}

// EnsureExists creates the invoice if the project has none yet. The unique
// index on project_id plus ON CONFLICT DO NOTHING makes the call idempotent
// under concurrent first views; the follow-up fetch returns whichever row won.
func (r *InvoiceRepository) EnsureExists(ctx context.Context, inv *model.Invoice) (*model.Invoice, error) {
	_, err := r.db.Exec(ctx, `
        INSERT INTO invoices (project_id, client_id, professional_id, amount, status)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (project_id) DO NOTHING
    `, inv.ProjectID, inv.ClientID, inv.ProfessionalID, inv.Amount, inv.Status)
	if err != nil {
		r.logger.Error("Failed to ensure invoice", zap.Int64("project_id", inv.ProjectID), zap.Error(err))
		return nil, err
	}

	existing, err := r.GetByProject(ctx, inv.ProjectID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("invoice for project %d missing after ensure", inv.ProjectID)
	}
	return existing, nil
}

// MarkPaidTx moves the invoice pending→paid inside the mark-paid transaction.
func (r *InvoiceRepository) MarkPaidTx(ctx context.Context, tx pgx.Tx, invoiceID int64) error {
	tag, err := tx.Exec(ctx, `
        UPDATE invoices
        SET status = 'paid', paid_at = NOW()
        WHERE id = $1 AND status = 'pending'
    `, invoiceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %d is not pending", ErrStatusConflict, invoiceID)
	}
	return nil
}

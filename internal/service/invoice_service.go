package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"tradeboard/internal/event"
	"tradeboard/internal/model"
	"tradeboard/internal/status"
	"tradeboard/pkg/outbox"
)

type invoiceStore interface {
	GetByProject(ctx context.Context, projectID int64) (*model.Invoice, error)
	GetByProjectTx(ctx context.Context, tx pgx.Tx, projectID int64) (*model.Invoice, error)
	EnsureExists(ctx context.Context, inv *model.Invoice) (*model.Invoice, error)
	MarkPaidTx(ctx context.Context, tx pgx.Tx, invoiceID int64) error
}

type invoiceProjectStore interface {
	GetByID(ctx context.Context, id int64) (*model.Project, error)
	GetByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*model.Project, error)
}

// InvoiceService materializes invoices lazily once a project completes and
// runs the mark-paid compound operation as a single transaction.
type InvoiceService struct {
	db          TxBeginner
	invoices    invoiceStore
	projects    invoiceProjectStore
	transitions lifecycle
	timeline    timelineAppender
	outbox      outboxInserter
	logger      *zap.Logger
}

func NewInvoiceService(
	db TxBeginner,
	invoices invoiceStore,
	projects invoiceProjectStore,
	transitions lifecycle,
	timeline timelineAppender,
	ob outboxInserter,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		db:          db,
		invoices:    invoices,
		projects:    projects,
		transitions: transitions,
		timeline:    timeline,
		outbox:      ob,
		logger:      logger,
	}
}

// Ensure returns the project's invoice, creating it on first view. Creation
// is idempotent: a second call, or a concurrent one, yields the same row.
func (s *InvoiceService) Ensure(ctx context.Context, projectID, userID int64) (*model.Invoice, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, ok := p.ParticipantRole(userID); !ok {
		return nil, ErrNotParticipant
	}
	if !status.InvoiceVisible(p.Status) {
		return nil, ErrInvoiceNotAvailable
	}
	if p.ProfessionalID == nil {
		return nil, ErrNoCounterpart
	}

	inv := &model.Invoice{
		ProjectID:      p.ID,
		ClientID:       p.ClientID,
		ProfessionalID: *p.ProfessionalID,
		Amount:         p.Budget,
		Status:         model.InvoicePending,
	}
	return s.invoices.EnsureExists(ctx, inv)
}

// MarkPaid runs the whole payment confirmation as one unit: invoice
// pending→paid, project completed→paid (with its status_change timeline
// entry), a payment_processed timeline entry and the invoice.paid event.
// The system chat message is projected from that event by the worker.
func (s *InvoiceService) MarkPaid(ctx context.Context, projectID, clientID int64) (*model.Invoice, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := s.projects.GetByIDTx(ctx, tx, projectID)
	if err != nil {
		return nil, err
	}
	role, ok := p.ParticipantRole(clientID)
	if !ok {
		return nil, ErrNotParticipant
	}
	if role != status.RoleClient {
		return nil, ErrNotAllowed
	}

	inv, err := s.invoices.GetByProjectTx(ctx, tx, projectID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, ErrInvoiceNotAvailable
	}
	if inv.Status != model.InvoicePending {
		return nil, ErrInvoiceNotPending
	}

	if err := s.invoices.MarkPaidTx(ctx, tx, inv.ID); err != nil {
		return nil, err
	}

	if err := s.transitions.ApplyTx(ctx, tx, p, status.RoleClient, clientID, status.Paid); err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Payment of %.2f confirmed", inv.Amount)
	upd := &model.ProjectUpdate{
		ProjectID:  projectID,
		UpdateType: model.UpdatePaymentProcessed,
		Message:    &msg,
		Metadata:   map[string]any{"invoice_id": inv.ID, "amount": inv.Amount},
		CreatedBy:  clientID,
	}
	if _, err := s.timeline.InsertTx(ctx, tx, upd); err != nil {
		return nil, err
	}

	payload := event.InvoicePaidPayload{
		EventID:        uuid.NewString(),
		InvoiceID:      inv.ID,
		ProjectID:      projectID,
		ProjectTitle:   p.Title,
		Amount:         inv.Amount,
		ClientID:       inv.ClientID,
		ProfessionalID: inv.ProfessionalID,
		OccurredAt:     time.Now().UTC(),
	}
	evt, err := outbox.NewEvent("invoice", inv.ID, event.InvoicePaid, payload)
	if err != nil {
		return nil, err
	}
	if err := s.outbox.InsertEvent(ctx, tx, evt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit mark-paid: %w", err)
	}

	now := time.Now().UTC()
	inv.Status = model.InvoicePaid
	inv.PaidAt = &now
	s.logger.Info("Invoice paid",
		zap.Int64("invoice_id", inv.ID),
		zap.Int64("project_id", projectID),
		zap.Float64("amount", inv.Amount),
	)
	return inv, nil
}

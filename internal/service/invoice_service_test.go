package service

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tradeboard/internal/event"
	"tradeboard/internal/model"
	"tradeboard/internal/status"
)

type fakeInvoiceStore struct {
	invoice *model.Invoice
	ensured int
}

func (s *fakeInvoiceStore) GetByProject(ctx context.Context, projectID int64) (*model.Invoice, error) {
	return s.invoice, nil
}

func (s *fakeInvoiceStore) GetByProjectTx(ctx context.Context, tx pgx.Tx, projectID int64) (*model.Invoice, error) {
	return s.invoice, nil
}

func (s *fakeInvoiceStore) EnsureExists(ctx context.Context, inv *model.Invoice) (*model.Invoice, error) {
	s.ensured++
	if s.invoice == nil {
		inv.ID = 7
		s.invoice = inv
	}
	return s.invoice, nil
}

func (s *fakeInvoiceStore) MarkPaidTx(ctx context.Context, tx pgx.Tx, invoiceID int64) error {
	s.invoice.Status = model.InvoicePaid
	return nil
}

func newInvoiceService(projects *fakeProjectStore, invoices *fakeInvoiceStore, timeline *timelineRecorder, ob *outboxRecorder) *InvoiceService {
	transitions, _ := newTransitionService(projects, timeline, ob)
	return NewInvoiceService(&fakeDB{}, invoices, projects, transitions, timeline, ob, zap.NewNop())
}

func TestInvoiceEnsure_CreatedOnFirstView(t *testing.T) {
	projects := &fakeProjectStore{project: testProject(status.Completed, 10, int64Ptr(20))}
	invoices := &fakeInvoiceStore{}
	svc := newInvoiceService(projects, invoices, &timelineRecorder{}, &outboxRecorder{})

	inv, err := svc.Ensure(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, model.InvoicePending, inv.Status)
	assert.Equal(t, projects.project.Budget, inv.Amount)
	assert.Equal(t, int64(20), inv.ProfessionalID)

	// second view (either party) returns the same row
	again, err := svc.Ensure(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, again.ID)
	assert.Equal(t, 2, invoices.ensured)
}

func TestInvoiceEnsure_NotVisibleBeforeCompletion(t *testing.T) {
	for _, st := range []status.Status{status.Open, status.Assigned, status.InProgress, status.Submitted, status.Revision} {
		projects := &fakeProjectStore{project: testProject(st, 10, int64Ptr(20))}
		svc := newInvoiceService(projects, &fakeInvoiceStore{}, &timelineRecorder{}, &outboxRecorder{})

		_, err := svc.Ensure(context.Background(), 1, 10)
		assert.ErrorIs(t, err, ErrInvoiceNotAvailable, "invoice should be hidden at %s", st)
	}
}

func TestInvoiceMarkPaid_FullFlow(t *testing.T) {
	projects := &fakeProjectStore{project: testProject(status.Completed, 10, int64Ptr(20))}
	invoices := &fakeInvoiceStore{invoice: &model.Invoice{
		ID: 7, ProjectID: 1, ClientID: 10, ProfessionalID: 20, Amount: 150, Status: model.InvoicePending,
	}}
	timeline := &timelineRecorder{}
	ob := &outboxRecorder{}
	svc := newInvoiceService(projects, invoices, timeline, ob)

	inv, err := svc.MarkPaid(context.Background(), 1, 10)
	require.NoError(t, err)

	assert.Equal(t, model.InvoicePaid, inv.Status)
	assert.NotNil(t, inv.PaidAt)
	assert.Equal(t, status.Paid, projects.project.Status)
	assert.Equal(t, []string{"completed->paid"}, projects.transitions)

	// one status_change entry from the transition, one payment entry
	assert.Equal(t, []string{model.UpdateStatusChange, model.UpdatePaymentProcessed}, timeline.types())

	keys := ob.routingKeys()
	assert.Contains(t, keys, event.ProjectStatusChanged)
	assert.Contains(t, keys, event.InvoicePaid)

	var payload event.InvoicePaidPayload
	require.NoError(t, ob.payloadFor(event.InvoicePaid, &payload))
	assert.Equal(t, int64(7), payload.InvoiceID)
	assert.Equal(t, float64(150), payload.Amount)
	assert.Equal(t, int64(20), payload.ProfessionalID)
}

func TestInvoiceMarkPaid_OnlyClient(t *testing.T) {
	projects := &fakeProjectStore{project: testProject(status.Completed, 10, int64Ptr(20))}
	invoices := &fakeInvoiceStore{invoice: &model.Invoice{
		ID: 7, ProjectID: 1, ClientID: 10, ProfessionalID: 20, Amount: 150, Status: model.InvoicePending,
	}}
	svc := newInvoiceService(projects, invoices, &timelineRecorder{}, &outboxRecorder{})

	_, err := svc.MarkPaid(context.Background(), 1, 20)
	assert.ErrorIs(t, err, ErrNotAllowed)
}

func TestInvoiceMarkPaid_AlreadyPaid(t *testing.T) {
	projects := &fakeProjectStore{project: testProject(status.Paid, 10, int64Ptr(20))}
	invoices := &fakeInvoiceStore{invoice: &model.Invoice{
		ID: 7, ProjectID: 1, ClientID: 10, ProfessionalID: 20, Amount: 150, Status: model.InvoicePaid,
	}}
	svc := newInvoiceService(projects, invoices, &timelineRecorder{}, &outboxRecorder{})

	_, err := svc.MarkPaid(context.Background(), 1, 10)
	assert.ErrorIs(t, err, ErrInvoiceNotPending)
}

func TestInvoiceMarkPaid_NoInvoiceYet(t *testing.T) {
	projects := &fakeProjectStore{project: testProject(status.Completed, 10, int64Ptr(20))}
	svc := newInvoiceService(projects, &fakeInvoiceStore{}, &timelineRecorder{}, &outboxRecorder{})

	_, err := svc.MarkPaid(context.Background(), 1, 10)
	assert.ErrorIs(t, err, ErrInvoiceNotAvailable)
}

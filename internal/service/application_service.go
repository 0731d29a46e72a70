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

type applicationStore interface {
	GetByID(ctx context.Context, id int64) (*model.Application, error)
	InsertTx(ctx context.Context, tx pgx.Tx, a *model.Application) (int64, error)
	ListByProject(ctx context.Context, projectID int64) ([]model.Application, error)
	ListByProfessional(ctx context.Context, professionalID int64) ([]model.Application, error)
	HasApplied(ctx context.Context, projectID, professionalID int64) (bool, error)
	UpdateStatus(ctx context.Context, id int64, from, to string) error
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, id int64, from, to string) error
	RejectSiblingsTx(ctx context.Context, tx pgx.Tx, projectID, acceptedID int64) ([]model.Application, error)
}

type applicationProjectStore interface {
	GetByID(ctx context.Context, id int64) (*model.Project, error)
	GetByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*model.Project, error)
	AssignProfessionalTx(ctx context.Context, tx pgx.Tx, projectID, professionalID int64) error
}

type lifecycle interface {
	ApplyTx(ctx context.Context, tx pgx.Tx, p *model.Project, role status.Role, actorID int64, target status.Status) error
}

type ApplicationService struct {
	db           TxBeginner
	applications applicationStore
	projects     applicationProjectStore
	transitions  lifecycle
	outbox       outboxInserter
	logger       *zap.Logger
}

func NewApplicationService(
	db TxBeginner,
	applications applicationStore,
	projects applicationProjectStore,
	transitions lifecycle,
	ob outboxInserter,
	logger *zap.Logger,
) *ApplicationService {
	return &ApplicationService{
		db:           db,
		applications: applications,
		projects:     projects,
		transitions:  transitions,
		outbox:       ob,
		logger:       logger,
	}
}

// Submit files a new application. The first application on an open project
// also drives the open→applied system transition.
func (s *ApplicationService) Submit(ctx context.Context, projectID, professionalID int64, proposal string, budget float64, timeline string) (*model.Application, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := s.projects.GetByIDTx(ctx, tx, projectID)
	if err != nil {
		return nil, err
	}
	if p.Status != status.Open && p.Status != status.Applied {
		return nil, ErrProjectNotOpen
	}
	if p.ClientID == professionalID {
		return nil, ErrNotAllowed
	}

	applied, err := s.applications.HasApplied(ctx, projectID, professionalID)
	if err != nil {
		return nil, err
	}
	if applied {
		return nil, ErrAlreadyApplied
	}

	a := &model.Application{
		ProjectID:      projectID,
		ProfessionalID: professionalID,
		Proposal:       proposal,
		Budget:         budget,
		Timeline:       timeline,
		Status:         model.ApplicationPending,
	}
	id, err := s.applications.InsertTx(ctx, tx, a)
	if err != nil {
		return nil, err
	}
	a.ID = id

	if p.Status == status.Open {
		if err := s.transitions.ApplyTx(ctx, tx, p, status.RoleSystem, professionalID, status.Applied); err != nil {
			return nil, err
		}
	}

	payload := event.ApplicationReceivedPayload{
		EventID:        uuid.NewString(),
		ApplicationID:  a.ID,
		ProjectID:      p.ID,
		ProjectTitle:   p.Title,
		ProfessionalID: professionalID,
		ClientID:       p.ClientID,
		OccurredAt:     time.Now().UTC(),
	}
	evt, err := outbox.NewEvent("application", a.ID, event.ApplicationReceived, payload)
	if err != nil {
		return nil, err
	}
	if err := s.outbox.InsertEvent(ctx, tx, evt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit application: %w", err)
	}

	s.logger.Info("Application submitted",
		zap.Int64("application_id", a.ID),
		zap.Int64("project_id", projectID),
		zap.Int64("professional_id", professionalID),
	)
	return a, nil
}

// Accept is one transaction: the chosen application becomes accepted, every
// other pending sibling is rejected, the professional is assigned and the
// project transitions to assigned. The compare-and-swap writes plus the
// partial unique index on accepted applications keep the at-most-one-accepted
// invariant even under concurrent accepts from two tabs.
func (s *ApplicationService) Accept(ctx context.Context, applicationID, clientID int64) (*model.Application, error) {
	a, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := s.projects.GetByIDTx(ctx, tx, a.ProjectID)
	if err != nil {
		return nil, err
	}
	if p.ClientID != clientID {
		return nil, ErrNotAllowed
	}

	if err := s.applications.UpdateStatusTx(ctx, tx, a.ID, model.ApplicationPending, model.ApplicationAccepted); err != nil {
		return nil, err
	}

	rejected, err := s.applications.RejectSiblingsTx(ctx, tx, a.ProjectID, a.ID)
	if err != nil {
		return nil, err
	}

	if err := s.projects.AssignProfessionalTx(ctx, tx, a.ProjectID, a.ProfessionalID); err != nil {
		return nil, err
	}
	p.ProfessionalID = &a.ProfessionalID

	if err := s.transitions.ApplyTx(ctx, tx, p, status.RoleClient, clientID, status.Assigned); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	acceptedPayload := event.ApplicationAcceptedPayload{
		EventID:        uuid.NewString(),
		ApplicationID:  a.ID,
		ProjectID:      p.ID,
		ProjectTitle:   p.Title,
		ProfessionalID: a.ProfessionalID,
		ClientID:       clientID,
		OccurredAt:     now,
	}
	evt, err := outbox.NewEvent("application", a.ID, event.ApplicationAccepted, acceptedPayload)
	if err != nil {
		return nil, err
	}
	if err := s.outbox.InsertEvent(ctx, tx, evt); err != nil {
		return nil, err
	}

	for _, rej := range rejected {
		rejPayload := event.ApplicationRejectedPayload{
			EventID:        uuid.NewString(),
			ApplicationID:  rej.ID,
			ProjectID:      p.ID,
			ProjectTitle:   p.Title,
			ProfessionalID: rej.ProfessionalID,
			OccurredAt:     now,
		}
		rejEvt, err := outbox.NewEvent("application", rej.ID, event.ApplicationRejected, rejPayload)
		if err != nil {
			return nil, err
		}
		if err := s.outbox.InsertEvent(ctx, tx, rejEvt); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit accept: %w", err)
	}

	a.Status = model.ApplicationAccepted
	s.logger.Info("Application accepted",
		zap.Int64("application_id", a.ID),
		zap.Int64("project_id", p.ID),
		zap.Int("siblings_rejected", len(rejected)),
	)
	return a, nil
}

// Reject declines a single pending application without touching the project.
func (s *ApplicationService) Reject(ctx context.Context, applicationID, clientID int64) error {
	a, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		return err
	}
	p, err := s.projects.GetByID(ctx, a.ProjectID)
	if err != nil {
		return err
	}
	if p.ClientID != clientID {
		return ErrNotAllowed
	}
	return s.applications.UpdateStatus(ctx, applicationID, model.ApplicationPending, model.ApplicationRejected)
}

// Withdraw lets a professional pull back their own pending application.
func (s *ApplicationService) Withdraw(ctx context.Context, applicationID, professionalID int64) error {
	a, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		return err
	}
	if a.ProfessionalID != professionalID {
		return ErrNotAllowed
	}
	return s.applications.UpdateStatus(ctx, applicationID, model.ApplicationPending, model.ApplicationWithdrawn)
}

// ListForProject returns a project's applications to its owning client.
func (s *ApplicationService) ListForProject(ctx context.Context, projectID, clientID int64) ([]model.Application, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.ClientID != clientID {
		return nil, ErrNotAllowed
	}
	return s.applications.ListByProject(ctx, projectID)
}

// ListMine returns the professional's own applications.
func (s *ApplicationService) ListMine(ctx context.Context, professionalID int64) ([]model.Application, error) {
	return s.applications.ListByProfessional(ctx, professionalID)
}

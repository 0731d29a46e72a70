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
	"tradeboard/pkg/metrics"
	"tradeboard/pkg/outbox"
)

// TxBeginner is satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type transitionProjectStore interface {
	GetByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*model.Project, error)
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, projectID int64, from, to status.Status) error
}

type timelineAppender interface {
	InsertTx(ctx context.Context, tx pgx.Tx, u *model.ProjectUpdate) (int64, error)
}

type outboxInserter interface {
	InsertEvent(ctx context.Context, tx pgx.Tx, e *outbox.Event) error
}

// TransitionService is the single authoritative write path for project
// status. Every transition is one transaction: the compare-and-swap status
// write, the status_change timeline entry and the outbox event commit
// together or not at all.
type TransitionService struct {
	db       TxBeginner
	projects transitionProjectStore
	timeline timelineAppender
	outbox   outboxInserter
	logger   *zap.Logger
}

func NewTransitionService(
	db TxBeginner,
	projects transitionProjectStore,
	timeline timelineAppender,
	ob outboxInserter,
	logger *zap.Logger,
) *TransitionService {
	return &TransitionService{
		db:       db,
		projects: projects,
		timeline: timeline,
		outbox:   ob,
		logger:   logger,
	}
}

// Execute validates and applies a transition requested by actorID.
func (s *TransitionService) Execute(ctx context.Context, projectID, actorID int64, target status.Status) (*model.Project, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transition: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := s.projects.GetByIDTx(ctx, tx, projectID)
	if err != nil {
		return nil, err
	}

	role, ok := p.ParticipantRole(actorID)
	if !ok {
		return nil, ErrNotParticipant
	}

	if err := s.ApplyTx(ctx, tx, p, role, actorID, target); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transition: %w", err)
	}
	return p, nil
}

// ApplyTx performs a transition inside a caller-owned transaction. The
// caller has already loaded and locked the project row. On success p is
// mutated to the new status.
func (s *TransitionService) ApplyTx(ctx context.Context, tx pgx.Tx, p *model.Project, role status.Role, actorID int64, target status.Status) error {
	from := p.Status

	if err := status.CanTransition(from, target, role); err != nil {
		metrics.RecordStatusTransition(string(from), string(target), "rejected")
		s.logger.Warn("Transition rejected",
			zap.Int64("project_id", p.ID),
			zap.String("from", string(from)),
			zap.String("to", string(target)),
			zap.String("role", string(role)),
			zap.Error(err),
		)
		return err
	}

	if err := s.projects.UpdateStatusTx(ctx, tx, p.ID, from, target); err != nil {
		metrics.RecordStatusTransition(string(from), string(target), "conflict")
		return err
	}

	msg := fmt.Sprintf("Status changed from %s to %s", from, target)
	upd := &model.ProjectUpdate{
		ProjectID:  p.ID,
		UpdateType: model.UpdateStatusChange,
		Message:    &msg,
		Metadata:   map[string]any{"status_change": string(target), "previous_status": string(from)},
		CreatedBy:  actorID,
	}
	if _, err := s.timeline.InsertTx(ctx, tx, upd); err != nil {
		return err
	}

	var counterpartID int64
	if cp, ok := p.Counterpart(actorID); ok {
		counterpartID = cp
	}

	payload := event.ProjectStatusChangedPayload{
		EventID:       uuid.NewString(),
		ProjectID:     p.ID,
		ProjectTitle:  p.Title,
		FromStatus:    string(from),
		ToStatus:      string(target),
		ActorID:       actorID,
		ActorRole:     string(role),
		CounterpartID: counterpartID,
		OccurredAt:    time.Now().UTC(),
	}
	evt, err := outbox.NewEvent("project", p.ID, event.ProjectStatusChanged, payload)
	if err != nil {
		return err
	}
	if err := s.outbox.InsertEvent(ctx, tx, evt); err != nil {
		return err
	}

	p.Status = target
	metrics.RecordStatusTransition(string(from), string(target), "success")
	s.logger.Info("Project status transitioned",
		zap.Int64("project_id", p.ID),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
		zap.String("role", string(role)),
	)
	return nil
}

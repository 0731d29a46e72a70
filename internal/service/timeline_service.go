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
	"tradeboard/pkg/outbox"
)

type updateStore interface {
	InsertTx(ctx context.Context, tx pgx.Tx, u *model.ProjectUpdate) (int64, error)
	ListByProject(ctx context.Context, projectID int64) ([]model.ProjectUpdate, error)
}

type timelineProjectStore interface {
	GetByID(ctx context.Context, id int64) (*model.Project, error)
}

// TimelineService owns the append-only project_updates log.
type TimelineService struct {
	db       TxBeginner
	updates  updateStore
	projects timelineProjectStore
	outbox   outboxInserter
	logger   *zap.Logger
}

func NewTimelineService(
	db TxBeginner,
	updates updateStore,
	projects timelineProjectStore,
	ob outboxInserter,
	logger *zap.Logger,
) *TimelineService {
	return &TimelineService{
		db:       db,
		updates:  updates,
		projects: projects,
		outbox:   ob,
		logger:   logger,
	}
}

// Post appends a timeline event authored by a participant. status_change
// entries cannot be posted here; only the transition executor writes those.
func (s *TimelineService) Post(ctx context.Context, projectID, userID int64, updateType string, message, fileURL *string, metadata map[string]any) (*model.ProjectUpdate, error) {
	if !model.ValidUpdateType(updateType) || updateType == model.UpdateStatusChange {
		return nil, ErrInvalidUpdateType
	}

	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, ok := p.ParticipantRole(userID); !ok {
		return nil, ErrNotParticipant
	}

	u := &model.ProjectUpdate{
		ProjectID:  projectID,
		UpdateType: updateType,
		Message:    message,
		FileURL:    fileURL,
		Metadata:   metadata,
		CreatedBy:  userID,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := s.updates.InsertTx(ctx, tx, u); err != nil {
		return nil, err
	}

	var counterpartID int64
	if cp, ok := p.Counterpart(userID); ok {
		counterpartID = cp
	}

	payload := event.ProjectUpdatePostedPayload{
		EventID:       uuid.NewString(),
		ProjectID:     projectID,
		ProjectTitle:  p.Title,
		UpdateID:      u.ID,
		UpdateType:    updateType,
		CreatedBy:     userID,
		CounterpartID: counterpartID,
		OccurredAt:    time.Now().UTC(),
	}
	evt, err := outbox.NewEvent("project", projectID, event.ProjectUpdatePosted, payload)
	if err != nil {
		return nil, err
	}
	if err := s.outbox.InsertEvent(ctx, tx, evt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}

	s.logger.Info("Timeline update posted",
		zap.Int64("project_id", projectID),
		zap.String("update_type", updateType),
		zap.Int64("created_by", userID),
	)
	return u, nil
}

// List returns the chronological timeline to a participant.
func (s *TimelineService) List(ctx context.Context, projectID, userID int64) ([]model.ProjectUpdate, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, ok := p.ParticipantRole(userID); !ok {
		return nil, ErrNotParticipant
	}
	return s.updates.ListByProject(ctx, projectID)
}

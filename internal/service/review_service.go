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

type reviewStore interface {
	GetByProjectAndRole(ctx context.Context, projectID int64, role string) (*model.Review, error)
	InsertTx(ctx context.Context, tx pgx.Tx, rv *model.Review) (int64, error)
	ListByProfessional(ctx context.Context, professionalID int64) ([]model.Review, error)
}

// ReviewService gates review submission on the paid status and enforces
// at most one review per (project, reviewer role).
type ReviewService struct {
	db       TxBeginner
	reviews  reviewStore
	projects timelineProjectStore
	timeline timelineAppender
	outbox   outboxInserter
	logger   *zap.Logger
}

func NewReviewService(
	db TxBeginner,
	reviews reviewStore,
	projects timelineProjectStore,
	timeline timelineAppender,
	ob outboxInserter,
	logger *zap.Logger,
) *ReviewService {
	return &ReviewService{
		db:       db,
		reviews:  reviews,
		projects: projects,
		timeline: timeline,
		outbox:   ob,
		logger:   logger,
	}
}

// Submit records a review by either participant once the project is paid.
func (s *ReviewService) Submit(ctx context.Context, projectID, reviewerID int64, rating int, comment *string) (*model.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	role, ok := p.ParticipantRole(reviewerID)
	if !ok {
		return nil, ErrNotParticipant
	}
	if !status.ReviewVisible(p.Status) {
		return nil, ErrReviewNotAvailable
	}
	if p.ProfessionalID == nil {
		return nil, ErrNoCounterpart
	}

	existing, err := s.reviews.GetByProjectAndRole(ctx, projectID, string(role))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyReviewed
	}

	rv := &model.Review{
		ProjectID:      projectID,
		ClientID:       p.ClientID,
		ProfessionalID: *p.ProfessionalID,
		ReviewerRole:   string(role),
		Rating:         rating,
		Comment:        comment,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := s.reviews.InsertTx(ctx, tx, rv); err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("%s left a %d-star review", role, rating)
	upd := &model.ProjectUpdate{
		ProjectID:  projectID,
		UpdateType: model.UpdateMessage,
		Message:    &msg,
		Metadata:   map[string]any{"review_id": rv.ID, "rating": rating},
		CreatedBy:  reviewerID,
	}
	if _, err := s.timeline.InsertTx(ctx, tx, upd); err != nil {
		return nil, err
	}

	recipientID, _ := p.Counterpart(reviewerID)
	payload := event.ReviewSubmittedPayload{
		EventID:      uuid.NewString(),
		ReviewID:     rv.ID,
		ProjectID:    projectID,
		ProjectTitle: p.Title,
		ReviewerRole: string(role),
		Rating:       rating,
		RecipientID:  recipientID,
		OccurredAt:   time.Now().UTC(),
	}
	evt, err := outbox.NewEvent("review", rv.ID, event.ReviewSubmitted, payload)
	if err != nil {
		return nil, err
	}
	if err := s.outbox.InsertEvent(ctx, tx, evt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit review: %w", err)
	}

	s.logger.Info("Review submitted",
		zap.Int64("review_id", rv.ID),
		zap.Int64("project_id", projectID),
		zap.String("reviewer_role", string(role)),
		zap.Int("rating", rating),
	)
	return rv, nil
}

// Existing returns the caller's review for the project, if any.
func (s *ReviewService) Existing(ctx context.Context, projectID, userID int64) (*model.Review, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	role, ok := p.ParticipantRole(userID)
	if !ok {
		return nil, ErrNotParticipant
	}
	return s.reviews.GetByProjectAndRole(ctx, projectID, string(role))
}

// ForProfessional returns the public client reviews of a professional.
func (s *ReviewService) ForProfessional(ctx context.Context, professionalID int64) ([]model.Review, error) {
	return s.reviews.ListByProfessional(ctx, professionalID)
}

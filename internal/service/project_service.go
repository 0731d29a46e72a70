package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tradeboard/internal/model"
	"tradeboard/internal/status"
)

type projectStore interface {
	Insert(ctx context.Context, p *model.Project) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.Project, error)
	ListByClient(ctx context.Context, clientID int64) ([]model.Project, error)
	ListByProfessional(ctx context.Context, professionalID int64) ([]model.Project, error)
	ListOpen(ctx context.Context, category string) ([]model.Project, error)
}

type ProjectService struct {
	projects projectStore
	logger   *zap.Logger
}

func NewProjectService(projects projectStore, logger *zap.Logger) *ProjectService {
	return &ProjectService{
		projects: projects,
		logger:   logger,
	}
}

// Create posts a new project owned by the client, starting at open.
func (s *ProjectService) Create(ctx context.Context, clientID int64, title, description, category string, budget float64, deadline *time.Time) (*model.Project, error) {
	if title == "" {
		return nil, errors.New("title is required")
	}
	if budget <= 0 {
		return nil, errors.New("budget must be positive")
	}

	p := &model.Project{
		ClientID:    clientID,
		Title:       title,
		Description: description,
		Category:    category,
		Budget:      budget,
		Status:      status.Open,
		Deadline:    deadline,
	}

	id, err := s.projects.Insert(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	p.ID = id

	s.logger.Info("Project created",
		zap.Int64("project_id", id),
		zap.Int64("client_id", clientID),
		zap.String("category", category),
	)
	return p, nil
}

// Get returns a project to one of its participants. Projects still open for
// applications are visible to any professional browsing the board.
func (s *ProjectService) Get(ctx context.Context, projectID, userID int64) (*model.Project, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, ok := p.ParticipantRole(userID); ok {
		return p, nil
	}
	if p.Status == status.Open || p.Status == status.Applied {
		return p, nil
	}
	return nil, ErrNotParticipant
}

// ListMine returns the projects a user participates in, on either side.
func (s *ProjectService) ListMine(ctx context.Context, userID int64, accountType string) ([]model.Project, error) {
	if accountType == model.AccountProfessional {
		return s.projects.ListByProfessional(ctx, userID)
	}
	return s.projects.ListByClient(ctx, userID)
}

// Discover lists projects still accepting applications.
func (s *ProjectService) Discover(ctx context.Context, category string) ([]model.Project, error) {
	return s.projects.ListOpen(ctx, category)
}

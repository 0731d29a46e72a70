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

type fakeApplicationStore struct {
	applications map[int64]*model.Application
	nextID       int64
	hasApplied   bool
	rejected     []model.Application
}

func newFakeApplicationStore() *fakeApplicationStore {
	return &fakeApplicationStore{applications: map[int64]*model.Application{}, nextID: 1}
}

func (s *fakeApplicationStore) GetByID(ctx context.Context, id int64) (*model.Application, error) {
	a, ok := s.applications[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return a, nil
}

// seed registers an existing row, keeping the caller's pointer live in the
// store so status writes are observable on it.
func (s *fakeApplicationStore) seed(a *model.Application) *model.Application {
	a.ID = s.nextID
	s.nextID++
	s.applications[a.ID] = a
	return a
}

// InsertTx hands back the generated id without touching the caller's struct,
// so the tests catch a service that forgets to pick it up.
func (s *fakeApplicationStore) InsertTx(ctx context.Context, tx pgx.Tx, a *model.Application) (int64, error) {
	id := s.nextID
	s.nextID++
	stored := *a
	stored.ID = id
	s.applications[id] = &stored
	return id, nil
}

func (s *fakeApplicationStore) ListByProject(ctx context.Context, projectID int64) ([]model.Application, error) {
	var out []model.Application
	for _, a := range s.applications {
		if a.ProjectID == projectID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *fakeApplicationStore) ListByProfessional(ctx context.Context, professionalID int64) ([]model.Application, error) {
	var out []model.Application
	for _, a := range s.applications {
		if a.ProfessionalID == professionalID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *fakeApplicationStore) HasApplied(ctx context.Context, projectID, professionalID int64) (bool, error) {
	return s.hasApplied, nil
}

func (s *fakeApplicationStore) UpdateStatus(ctx context.Context, id int64, from, to string) error {
	s.applications[id].Status = to
	return nil
}

func (s *fakeApplicationStore) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id int64, from, to string) error {
	s.applications[id].Status = to
	return nil
}

func (s *fakeApplicationStore) RejectSiblingsTx(ctx context.Context, tx pgx.Tx, projectID, acceptedID int64) ([]model.Application, error) {
	s.rejected = nil
	for _, a := range s.applications {
		if a.ProjectID == projectID && a.ID != acceptedID && a.Status == model.ApplicationPending {
			a.Status = model.ApplicationRejected
			s.rejected = append(s.rejected, *a)
		}
	}
	return s.rejected, nil
}

func newApplicationService(projects *fakeProjectStore, apps *fakeApplicationStore, ob *outboxRecorder) *ApplicationService {
	timeline := &timelineRecorder{}
	transitions, _ := newTransitionService(projects, timeline, ob)
	return NewApplicationService(&fakeDB{}, apps, projects, transitions, ob, zap.NewNop())
}

func TestApplicationSubmit_FirstApplicationMovesProjectToApplied(t *testing.T) {
	projects := &fakeProjectStore{project: testProject(status.Open, 10, nil)}
	apps := newFakeApplicationStore()
	ob := &outboxRecorder{}
	svc := newApplicationService(projects, apps, ob)

	a, err := svc.Submit(context.Background(), 1, 20, "I can fix this tomorrow", 140, "1 day")
	require.NoError(t, err)

	require.NotZero(t, a.ID, "Submit must return the persisted application id")
	assert.Equal(t, model.ApplicationPending, a.Status)
	assert.Equal(t, status.Applied, projects.project.Status)
	assert.Equal(t, []string{"open->applied"}, projects.transitions)

	keys := ob.routingKeys()
	assert.Contains(t, keys, event.ProjectStatusChanged)
	assert.Contains(t, keys, event.ApplicationReceived)

	var payload event.ApplicationReceivedPayload
	require.NoError(t, ob.payloadFor(event.ApplicationReceived, &payload))
	assert.Equal(t, a.ID, payload.ApplicationID)
	assert.Equal(t, int64(10), payload.ClientID)
	assert.Equal(t, int64(20), payload.ProfessionalID)
}

func TestApplicationSubmit_SecondApplicationLeavesStatusAlone(t *testing.T) {
	projects := &fakeProjectStore{project: testProject(status.Applied, 10, nil)}
	apps := newFakeApplicationStore()
	ob := &outboxRecorder{}
	svc := newApplicationService(projects, apps, ob)

	_, err := svc.Submit(context.Background(), 1, 21, "Second bid", 160, "3 days")
	require.NoError(t, err)

	assert.Equal(t, status.Applied, projects.project.Status)
	assert.Empty(t, projects.transitions)
	assert.NotContains(t, ob.routingKeys(), event.ProjectStatusChanged)
}

func TestApplicationSubmit_ClosedProject(t *testing.T) {
	projects := &fakeProjectStore{project: testProject(status.Assigned, 10, int64Ptr(20))}
	svc := newApplicationService(projects, newFakeApplicationStore(), &outboxRecorder{})

	_, err := svc.Submit(context.Background(), 1, 21, "Too late", 100, "1 week")
	assert.ErrorIs(t, err, ErrProjectNotOpen)
}

func TestApplicationSubmit_Duplicate(t *testing.T) {
	projects := &fakeProjectStore{project: testProject(status.Applied, 10, nil)}
	apps := newFakeApplicationStore()
	apps.hasApplied = true
	svc := newApplicationService(projects, apps, &outboxRecorder{})

	_, err := svc.Submit(context.Background(), 1, 20, "Again", 100, "1 week")
	assert.ErrorIs(t, err, ErrAlreadyApplied)
}

func TestApplicationSubmit_OwnProject(t *testing.T) {
	projects := &fakeProjectStore{project: testProject(status.Open, 10, nil)}
	svc := newApplicationService(projects, newFakeApplicationStore(), &outboxRecorder{})

	_, err := svc.Submit(context.Background(), 1, 10, "Hiring myself", 100, "now")
	assert.ErrorIs(t, err, ErrNotAllowed)
}

func TestApplicationAccept_AssignsAndRejectsSiblings(t *testing.T) {
	projects := &fakeProjectStore{project: testProject(status.Applied, 10, nil)}
	apps := newFakeApplicationStore()
	ob := &outboxRecorder{}
	svc := newApplicationService(projects, apps, ob)

	winner := &model.Application{ProjectID: 1, ProfessionalID: 20, Status: model.ApplicationPending}
	loser1 := &model.Application{ProjectID: 1, ProfessionalID: 21, Status: model.ApplicationPending}
	loser2 := &model.Application{ProjectID: 1, ProfessionalID: 22, Status: model.ApplicationPending}
	for _, a := range []*model.Application{winner, loser1, loser2} {
		apps.seed(a)
	}

	accepted, err := svc.Accept(context.Background(), winner.ID, 10)
	require.NoError(t, err)

	assert.Equal(t, model.ApplicationAccepted, accepted.Status)
	assert.Equal(t, model.ApplicationRejected, loser1.Status)
	assert.Equal(t, model.ApplicationRejected, loser2.Status)

	require.NotNil(t, projects.assignedTo)
	assert.Equal(t, int64(20), *projects.assignedTo)
	assert.Equal(t, status.Assigned, projects.project.Status)

	keys := ob.routingKeys()
	assert.Contains(t, keys, event.ApplicationAccepted)
	assert.Contains(t, keys, event.ProjectStatusChanged)

	var rejections int
	for _, k := range keys {
		if k == event.ApplicationRejected {
			rejections++
		}
	}
	assert.Equal(t, 2, rejections, "one rejection event per losing sibling")
}

func TestApplicationAccept_NotOwner(t *testing.T) {
	projects := &fakeProjectStore{project: testProject(status.Applied, 10, nil)}
	apps := newFakeApplicationStore()
	svc := newApplicationService(projects, apps, &outboxRecorder{})

	a := apps.seed(&model.Application{ProjectID: 1, ProfessionalID: 20, Status: model.ApplicationPending})

	_, err := svc.Accept(context.Background(), a.ID, 99)
	assert.ErrorIs(t, err, ErrNotAllowed)
}

func TestApplicationWithdraw_OnlyOwnApplication(t *testing.T) {
	projects := &fakeProjectStore{project: testProject(status.Applied, 10, nil)}
	apps := newFakeApplicationStore()
	svc := newApplicationService(projects, apps, &outboxRecorder{})

	a := apps.seed(&model.Application{ProjectID: 1, ProfessionalID: 20, Status: model.ApplicationPending})

	assert.ErrorIs(t, svc.Withdraw(context.Background(), a.ID, 21), ErrNotAllowed)

	require.NoError(t, svc.Withdraw(context.Background(), a.ID, 20))
	assert.Equal(t, model.ApplicationWithdrawn, a.Status)
}

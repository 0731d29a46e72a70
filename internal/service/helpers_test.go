package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"tradeboard/internal/model"
	"tradeboard/internal/status"
	"tradeboard/pkg/outbox"
)

// fakeTx embeds pgx.Tx so only the methods the services call need bodies.
type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeDB struct {
	lastTx *fakeTx
}

func (db *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	db.lastTx = &fakeTx{}
	return db.lastTx, nil
}

// outboxRecorder captures events that would go through the outbox table.
type outboxRecorder struct {
	events []*outbox.Event
}

func (r *outboxRecorder) InsertEvent(ctx context.Context, tx pgx.Tx, e *outbox.Event) error {
	r.events = append(r.events, e)
	return nil
}

func (r *outboxRecorder) routingKeys() []string {
	keys := make([]string, 0, len(r.events))
	for _, e := range r.events {
		keys = append(keys, e.RoutingKey)
	}
	return keys
}

func (r *outboxRecorder) payloadFor(routingKey string, dst any) error {
	for _, e := range r.events {
		if e.RoutingKey == routingKey {
			return json.Unmarshal(e.Payload, dst)
		}
	}
	return fmt.Errorf("no event with routing key %s", routingKey)
}

// timelineRecorder captures appended project_updates rows.
type timelineRecorder struct {
	entries []*model.ProjectUpdate
}

func (r *timelineRecorder) InsertTx(ctx context.Context, tx pgx.Tx, u *model.ProjectUpdate) (int64, error) {
	u.ID = int64(len(r.entries) + 1)
	r.entries = append(r.entries, u)
	return u.ID, nil
}

func (r *timelineRecorder) types() []string {
	ts := make([]string, 0, len(r.entries))
	for _, u := range r.entries {
		ts = append(ts, u.UpdateType)
	}
	return ts
}

// fakeProjectStore serves every project-store interface the services need.
type fakeProjectStore struct {
	project     *model.Project
	statusErr   error // returned by UpdateStatusTx when set
	transitions []string
	assignedTo  *int64
}

func (s *fakeProjectStore) GetByID(ctx context.Context, id int64) (*model.Project, error) {
	return s.project, nil
}

func (s *fakeProjectStore) GetByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*model.Project, error) {
	return s.project, nil
}

func (s *fakeProjectStore) UpdateStatusTx(ctx context.Context, tx pgx.Tx, projectID int64, from, to status.Status) error {
	if s.statusErr != nil {
		return s.statusErr
	}
	s.transitions = append(s.transitions, fmt.Sprintf("%s->%s", from, to))
	return nil
}

func (s *fakeProjectStore) AssignProfessionalTx(ctx context.Context, tx pgx.Tx, projectID, professionalID int64) error {
	s.assignedTo = &professionalID
	return nil
}

func testProject(st status.Status, clientID int64, professionalID *int64) *model.Project {
	return &model.Project{
		ID:             1,
		ClientID:       clientID,
		ProfessionalID: professionalID,
		Title:          "Fix kitchen sink",
		Description:    "Leaking trap under the sink",
		Category:       "plumbing",
		Budget:         150,
		Status:         st,
	}
}

func newTransitionService(projects *fakeProjectStore, timeline *timelineRecorder, ob *outboxRecorder) (*TransitionService, *fakeDB) {
	db := &fakeDB{}
	return NewTransitionService(db, projects, timeline, ob, zap.NewNop()), db
}

func int64Ptr(v int64) *int64 { return &v }

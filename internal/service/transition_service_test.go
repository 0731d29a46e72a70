package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeboard/internal/event"
	"tradeboard/internal/model"
	"tradeboard/internal/repository"
	"tradeboard/internal/status"
)

func TestTransitionExecute_Success(t *testing.T) {
	projects := &fakeProjectStore{project: testProject(status.Submitted, 10, int64Ptr(20))}
	timeline := &timelineRecorder{}
	ob := &outboxRecorder{}
	svc, db := newTransitionService(projects, timeline, ob)

	p, err := svc.Execute(context.Background(), 1, 10, status.Completed)
	require.NoError(t, err)

	assert.Equal(t, status.Completed, p.Status)
	assert.Equal(t, []string{"submitted->completed"}, projects.transitions)
	assert.True(t, db.lastTx.committed)

	require.Len(t, timeline.entries, 1)
	assert.Equal(t, model.UpdateStatusChange, timeline.entries[0].UpdateType)
	assert.Equal(t, "completed", timeline.entries[0].Metadata["status_change"])
	assert.Equal(t, "submitted", timeline.entries[0].Metadata["previous_status"])
	assert.Equal(t, int64(10), timeline.entries[0].CreatedBy)

	var payload event.ProjectStatusChangedPayload
	require.NoError(t, ob.payloadFor(event.ProjectStatusChanged, &payload))
	assert.Equal(t, "submitted", payload.FromStatus)
	assert.Equal(t, "completed", payload.ToStatus)
	assert.Equal(t, int64(20), payload.CounterpartID)
	assert.NotEmpty(t, payload.EventID)
}

func TestTransitionExecute_RoleRejected(t *testing.T) {
	// the professional may not complete their own work
	projects := &fakeProjectStore{project: testProject(status.Submitted, 10, int64Ptr(20))}
	timeline := &timelineRecorder{}
	ob := &outboxRecorder{}
	svc, db := newTransitionService(projects, timeline, ob)

	_, err := svc.Execute(context.Background(), 1, 20, status.Completed)
	assert.ErrorIs(t, err, status.ErrRoleNotAllowed)

	assert.Empty(t, projects.transitions)
	assert.Empty(t, timeline.entries)
	assert.Empty(t, ob.events)
	assert.True(t, db.lastTx.rolledBack)
}

func TestTransitionExecute_IllegalEdge(t *testing.T) {
	projects := &fakeProjectStore{project: testProject(status.Open, 10, nil)}
	timeline := &timelineRecorder{}
	ob := &outboxRecorder{}
	svc, _ := newTransitionService(projects, timeline, ob)

	_, err := svc.Execute(context.Background(), 1, 10, status.Paid)
	assert.ErrorIs(t, err, status.ErrIllegalTransition)
	assert.Empty(t, ob.events)
}

func TestTransitionExecute_NotParticipant(t *testing.T) {
	projects := &fakeProjectStore{project: testProject(status.Submitted, 10, int64Ptr(20))}
	svc, _ := newTransitionService(projects, &timelineRecorder{}, &outboxRecorder{})

	_, err := svc.Execute(context.Background(), 1, 99, status.Completed)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestTransitionExecute_ConcurrentWriteLosesCAS(t *testing.T) {
	projects := &fakeProjectStore{
		project:   testProject(status.Submitted, 10, int64Ptr(20)),
		statusErr: repository.ErrStatusConflict,
	}
	timeline := &timelineRecorder{}
	ob := &outboxRecorder{}
	svc, db := newTransitionService(projects, timeline, ob)

	_, err := svc.Execute(context.Background(), 1, 10, status.Completed)
	assert.ErrorIs(t, err, repository.ErrStatusConflict)

	// nothing committed, nothing logged, nothing published
	assert.Empty(t, timeline.entries)
	assert.Empty(t, ob.events)
	assert.True(t, db.lastTx.rolledBack)
}

func TestTransitionExecute_RevisionLoop(t *testing.T) {
	projects := &fakeProjectStore{project: testProject(status.Submitted, 10, int64Ptr(20))}
	timeline := &timelineRecorder{}
	ob := &outboxRecorder{}
	svc, _ := newTransitionService(projects, timeline, ob)

	_, err := svc.Execute(context.Background(), 1, 10, status.Revision)
	require.NoError(t, err)

	_, err = svc.Execute(context.Background(), 1, 20, status.Submitted)
	require.NoError(t, err)

	assert.Equal(t, []string{"submitted->revision", "revision->submitted"}, projects.transitions)
	assert.Len(t, timeline.entries, 2)
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tradeboard/internal/event"
	"tradeboard/internal/model"
	"tradeboard/internal/status"
)

type fakeUpdateStore struct {
	timelineRecorder
}

func (s *fakeUpdateStore) ListByProject(ctx context.Context, projectID int64) ([]model.ProjectUpdate, error) {
	var out []model.ProjectUpdate
	for _, u := range s.entries {
		out = append(out, *u)
	}
	return out, nil
}

func newTimelineService(projects *fakeProjectStore, updates *fakeUpdateStore, ob *outboxRecorder) *TimelineService {
	return NewTimelineService(&fakeDB{}, updates, projects, ob, zap.NewNop())
}

func TestTimelinePost_Success(t *testing.T) {
	projects := &fakeProjectStore{project: testProject(status.InProgress, 10, int64Ptr(20))}
	updates := &fakeUpdateStore{}
	ob := &outboxRecorder{}
	svc := newTimelineService(projects, updates, ob)

	msg := "Arrived on site"
	u, err := svc.Post(context.Background(), 1, 20, model.UpdateCheckIn, &msg, nil,
		map[string]any{"lat": 52.37, "lng": 4.89})
	require.NoError(t, err)

	assert.Equal(t, model.UpdateCheckIn, u.UpdateType)
	assert.Equal(t, int64(20), u.CreatedBy)

	var payload event.ProjectUpdatePostedPayload
	require.NoError(t, ob.payloadFor(event.ProjectUpdatePosted, &payload))
	assert.Equal(t, model.UpdateCheckIn, payload.UpdateType)
	assert.Equal(t, int64(10), payload.CounterpartID)
}

func TestTimelinePost_RejectsUnknownType(t *testing.T) {
	projects := &fakeProjectStore{project: testProject(status.InProgress, 10, int64Ptr(20))}
	svc := newTimelineService(projects, &fakeUpdateStore{}, &outboxRecorder{})

	_, err := svc.Post(context.Background(), 1, 20, "selfie", nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidUpdateType)
}

func TestTimelinePost_StatusChangeReserved(t *testing.T) {
	// status_change rows only come from the transition write path
	projects := &fakeProjectStore{project: testProject(status.InProgress, 10, int64Ptr(20))}
	svc := newTimelineService(projects, &fakeUpdateStore{}, &outboxRecorder{})

	_, err := svc.Post(context.Background(), 1, 20, model.UpdateStatusChange, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidUpdateType)
}

func TestTimelinePost_NotParticipant(t *testing.T) {
	projects := &fakeProjectStore{project: testProject(status.InProgress, 10, int64Ptr(20))}
	svc := newTimelineService(projects, &fakeUpdateStore{}, &outboxRecorder{})

	_, err := svc.Post(context.Background(), 1, 99, model.UpdateMessage, nil, nil, nil)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestTimelineList_ParticipantOnly(t *testing.T) {
	projects := &fakeProjectStore{project: testProject(status.InProgress, 10, int64Ptr(20))}
	updates := &fakeUpdateStore{}
	svc := newTimelineService(projects, updates, &outboxRecorder{})

	msg := "note"
	_, err := svc.Post(context.Background(), 1, 10, model.UpdateMessage, &msg, nil, nil)
	require.NoError(t, err)

	entries, err := svc.List(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = svc.List(context.Background(), 1, 99)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

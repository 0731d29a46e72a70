package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tradeboard/internal/event"
	"tradeboard/internal/model"
)

type fakeInserter struct {
	rows     []*model.Notification
	failures int
}

func (f *fakeInserter) Insert(ctx context.Context, n *model.Notification) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("connection reset by peer")
	}
	n.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, n)
	return nil
}

// fakeDeduper admits every event id exactly once, like the Redis SETNX one.
type fakeDeduper struct {
	seen map[string]bool
}

func (f *fakeDeduper) AcquireOnce(ctx context.Context, handler, eventID string) bool {
	key := handler + ":" + eventID
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[key] {
		return false
	}
	f.seen[key] = true
	return true
}

func (f *fakeDeduper) Release(ctx context.Context, handler, eventID string) {
	delete(f.seen, handler+":"+eventID)
}

type fakePublisher struct {
	published []string
}

func (f *fakePublisher) Publish(routingKey string, payload any) error {
	f.published = append(f.published, routingKey)
	return nil
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func newHandler() (*NotificationHandler, *fakeInserter, *fakePublisher) {
	repo := &fakeInserter{}
	pub := &fakePublisher{}
	return NewNotificationHandler(repo, &fakeDeduper{}, pub, zap.NewNop()), repo, pub
}

func TestHandleStatusChanged_NotifiesCounterpart(t *testing.T) {
	h, repo, pub := newHandler()

	raw := mustMarshal(t, event.ProjectStatusChangedPayload{
		EventID:       "evt-1",
		ProjectID:     5,
		ProjectTitle:  "Fix kitchen sink",
		FromStatus:    "submitted",
		ToStatus:      "completed",
		ActorID:       10,
		ActorRole:     "client",
		CounterpartID: 20,
	})
	require.NoError(t, h.HandleStatusChanged(context.Background(), raw))

	require.Len(t, repo.rows, 1)
	n := repo.rows[0]
	assert.Equal(t, int64(20), n.UserID)
	assert.Equal(t, "status_change", n.Type)
	require.NotNil(t, n.ActionURL)
	assert.Equal(t, "/projects/5", *n.ActionURL)

	// the row triggers a realtime push event
	assert.Equal(t, []string{event.NotificationCreated}, pub.published)
}

func TestHandleStatusChanged_NoCounterpartNoRow(t *testing.T) {
	h, repo, pub := newHandler()

	raw := mustMarshal(t, event.ProjectStatusChangedPayload{
		EventID:      "evt-2",
		ProjectID:    5,
		ProjectTitle: "Fix kitchen sink",
		FromStatus:   "open",
		ToStatus:     "applied",
		ActorRole:    "system",
	})
	require.NoError(t, h.HandleStatusChanged(context.Background(), raw))

	assert.Empty(t, repo.rows)
	assert.Empty(t, pub.published)
}

func TestHandleStatusChanged_RedeliveryIsDeduplicated(t *testing.T) {
	h, repo, _ := newHandler()

	raw := mustMarshal(t, event.ProjectStatusChangedPayload{
		EventID:       "evt-3",
		ProjectID:     5,
		ProjectTitle:  "Fix kitchen sink",
		FromStatus:    "assigned",
		ToStatus:      "in-progress",
		ActorRole:     "professional",
		CounterpartID: 10,
	})

	require.NoError(t, h.HandleStatusChanged(context.Background(), raw))
	require.NoError(t, h.HandleStatusChanged(context.Background(), raw))

	assert.Len(t, repo.rows, 1, "at-least-once delivery must not double-notify")
}

func TestHandleStatusChanged_InsertFailureStaysRetriable(t *testing.T) {
	h, repo, _ := newHandler()
	repo.failures = 1

	raw := mustMarshal(t, event.ProjectStatusChangedPayload{
		EventID:       "evt-13",
		ProjectID:     5,
		ProjectTitle:  "Fix kitchen sink",
		FromStatus:    "in-progress",
		ToStatus:      "submitted",
		ActorRole:     "professional",
		CounterpartID: 10,
	})
	require.Error(t, h.HandleStatusChanged(context.Background(), raw))
	assert.Empty(t, repo.rows)

	// 插入失败 nack 重投后，去重 key 必须已经放开
	require.NoError(t, h.HandleStatusChanged(context.Background(), raw))
	require.Len(t, repo.rows, 1)
	assert.Equal(t, int64(10), repo.rows[0].UserID)
}

func TestHandleApplicationEvents_TargetTheRightSide(t *testing.T) {
	h, repo, _ := newHandler()

	received := mustMarshal(t, event.ApplicationReceivedPayload{
		EventID: "evt-4", ApplicationID: 1, ProjectID: 5,
		ProjectTitle: "Fix kitchen sink", ProfessionalID: 20, ClientID: 10,
	})
	require.NoError(t, h.HandleApplicationReceived(context.Background(), received))

	accepted := mustMarshal(t, event.ApplicationAcceptedPayload{
		EventID: "evt-5", ApplicationID: 1, ProjectID: 5,
		ProjectTitle: "Fix kitchen sink", ProfessionalID: 20, ClientID: 10,
	})
	require.NoError(t, h.HandleApplicationAccepted(context.Background(), accepted))

	rejected := mustMarshal(t, event.ApplicationRejectedPayload{
		EventID: "evt-6", ApplicationID: 2, ProjectID: 5,
		ProjectTitle: "Fix kitchen sink", ProfessionalID: 21,
	})
	require.NoError(t, h.HandleApplicationRejected(context.Background(), rejected))

	require.Len(t, repo.rows, 3)
	assert.Equal(t, int64(10), repo.rows[0].UserID, "new application goes to the client")
	assert.Equal(t, int64(20), repo.rows[1].UserID, "acceptance goes to the winner")
	assert.Equal(t, int64(21), repo.rows[2].UserID, "rejection goes to the losing sibling")
}

func TestHandleMessageSent_SkipsSystemMessages(t *testing.T) {
	h, repo, _ := newHandler()

	system := mustMarshal(t, event.MessageSentPayload{
		EventID: "evt-7", MessageID: 1, ProjectID: 5,
		ProjectTitle: "Fix kitchen sink", RecipientID: 20, IsSystem: true,
	})
	require.NoError(t, h.HandleMessageSent(context.Background(), system))
	assert.Empty(t, repo.rows)

	human := mustMarshal(t, event.MessageSentPayload{
		EventID: "evt-8", MessageID: 2, ProjectID: 5,
		ProjectTitle: "Fix kitchen sink", SenderID: 10, RecipientID: 20,
		Preview: "On my way",
	})
	require.NoError(t, h.HandleMessageSent(context.Background(), human))
	require.Len(t, repo.rows, 1)
	assert.Equal(t, "On my way", repo.rows[0].Message)
}

func TestHandleInvoicePaid_NotifiesProfessional(t *testing.T) {
	h, repo, _ := newHandler()

	raw := mustMarshal(t, event.InvoicePaidPayload{
		EventID: "evt-9", InvoiceID: 7, ProjectID: 5,
		ProjectTitle: "Fix kitchen sink", Amount: 150, ClientID: 10, ProfessionalID: 20,
	})
	require.NoError(t, h.HandleInvoicePaid(context.Background(), raw))

	require.Len(t, repo.rows, 1)
	assert.Equal(t, int64(20), repo.rows[0].UserID)
	assert.Equal(t, "invoice_paid", repo.rows[0].Type)
}

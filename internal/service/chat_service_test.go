package service

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tradeboard/internal/event"
	"tradeboard/internal/model"
	"tradeboard/internal/status"
)

type fakeMessageStore struct {
	messages   map[int64]*model.ProjectMessage
	nextID     int64
	markedRead []int64 // user ids passed to MarkReadForRecipient
	reactionOn bool
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{messages: map[int64]*model.ProjectMessage{}, nextID: 1}
}

func (s *fakeMessageStore) GetByID(ctx context.Context, id int64) (*model.ProjectMessage, error) {
	m, ok := s.messages[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return m, nil
}

func (s *fakeMessageStore) InsertTx(ctx context.Context, tx pgx.Tx, m *model.ProjectMessage) (int64, error) {
	m.ID = s.nextID
	s.nextID++
	s.messages[m.ID] = m
	return m.ID, nil
}

func (s *fakeMessageStore) ListByProject(ctx context.Context, projectID int64) ([]model.ProjectMessage, error) {
	var out []model.ProjectMessage
	for _, m := range s.messages {
		if m.ProjectID == projectID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *fakeMessageStore) MarkReadForRecipient(ctx context.Context, projectID, userID int64) error {
	s.markedRead = append(s.markedRead, userID)
	return nil
}

func (s *fakeMessageStore) ToggleReaction(ctx context.Context, messageID, userID int64, emoji string) (bool, error) {
	s.reactionOn = !s.reactionOn
	return s.reactionOn, nil
}

func (s *fakeMessageStore) ListReactions(ctx context.Context, projectID int64) ([]model.MessageReaction, error) {
	return nil, nil
}

func newChatService(projects *fakeProjectStore, messages *fakeMessageStore, ob *outboxRecorder) *ChatService {
	return NewChatService(&fakeDB{}, messages, projects, ob, zap.NewNop())
}

func TestChatSend_RecipientIsCounterpart(t *testing.T) {
	projects := &fakeProjectStore{project: testProject(status.InProgress, 10, int64Ptr(20))}
	messages := newFakeMessageStore()
	ob := &outboxRecorder{}
	svc := newChatService(projects, messages, ob)

	// client sends, professional receives
	m, err := svc.Send(context.Background(), 1, 10, "How is it going?", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(20), m.RecipientID)

	// professional replies, client receives
	reply, err := svc.Send(context.Background(), 1, 20, "Nearly done", &m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), reply.RecipientID)
	assert.Equal(t, &m.ID, reply.ParentID)

	var payload event.MessageSentPayload
	require.NoError(t, ob.payloadFor(event.MessageSent, &payload))
	assert.Equal(t, "How is it going?", payload.Preview)
	assert.False(t, payload.IsSystem)
}

func TestChatSend_PreviewTruncatesOnRuneBoundary(t *testing.T) {
	projects := &fakeProjectStore{project: testProject(status.InProgress, 10, int64Ptr(20))}
	ob := &outboxRecorder{}
	svc := newChatService(projects, newFakeMessageStore(), ob)

	// 1 + 150 字节，120 字节处正好落在一个汉字中间
	content := "a" + strings.Repeat("水", 50)
	_, err := svc.Send(context.Background(), 1, 10, content, nil)
	require.NoError(t, err)

	var payload event.MessageSentPayload
	require.NoError(t, ob.payloadFor(event.MessageSent, &payload))
	assert.True(t, utf8.ValidString(payload.Preview), "preview must not split a rune")
	assert.LessOrEqual(t, len(payload.Preview), 120)
	assert.True(t, strings.HasPrefix(content, payload.Preview))
}

func TestChatSend_ClosedAfterCompletion(t *testing.T) {
	for _, st := range []status.Status{status.Completed, status.Archived, status.Disputed} {
		projects := &fakeProjectStore{project: testProject(st, 10, int64Ptr(20))}
		svc := newChatService(projects, newFakeMessageStore(), &outboxRecorder{})

		_, err := svc.Send(context.Background(), 1, 10, "hello?", nil)
		assert.ErrorIs(t, err, ErrChatClosed, "chat should be read-only at %s", st)
	}
}

func TestChatSend_NoCounterpartYet(t *testing.T) {
	projects := &fakeProjectStore{project: testProject(status.Open, 10, nil)}
	svc := newChatService(projects, newFakeMessageStore(), &outboxRecorder{})

	_, err := svc.Send(context.Background(), 1, 10, "anyone there?", nil)
	assert.ErrorIs(t, err, ErrNoCounterpart)
}

func TestChatSend_NotParticipant(t *testing.T) {
	projects := &fakeProjectStore{project: testProject(status.InProgress, 10, int64Ptr(20))}
	svc := newChatService(projects, newFakeMessageStore(), &outboxRecorder{})

	_, err := svc.Send(context.Background(), 1, 99, "let me in", nil)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestChatSend_ParentFromAnotherProject(t *testing.T) {
	projects := &fakeProjectStore{project: testProject(status.InProgress, 10, int64Ptr(20))}
	messages := newFakeMessageStore()
	svc := newChatService(projects, messages, &outboxRecorder{})

	foreign := &model.ProjectMessage{ProjectID: 2, SenderID: 30, RecipientID: 31, Content: "other job"}
	_, err := messages.InsertTx(context.Background(), nil, foreign)
	require.NoError(t, err)

	_, err = svc.Send(context.Background(), 1, 10, "replying across projects", &foreign.ID)
	assert.Error(t, err)
}

func TestChatList_MarksRecipientMessagesRead(t *testing.T) {
	projects := &fakeProjectStore{project: testProject(status.InProgress, 10, int64Ptr(20))}
	messages := newFakeMessageStore()
	svc := newChatService(projects, messages, &outboxRecorder{})

	_, err := svc.List(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, []int64{20}, messages.markedRead)
}

func TestChatToggleReaction_FollowsChatGate(t *testing.T) {
	projects := &fakeProjectStore{project: testProject(status.InProgress, 10, int64Ptr(20))}
	messages := newFakeMessageStore()
	svc := newChatService(projects, messages, &outboxRecorder{})

	m := &model.ProjectMessage{ProjectID: 1, SenderID: 10, RecipientID: 20, Content: "done"}
	_, err := messages.InsertTx(context.Background(), nil, m)
	require.NoError(t, err)

	active, err := svc.ToggleReaction(context.Background(), m.ID, 20, "👍")
	require.NoError(t, err)
	assert.True(t, active)

	active, err = svc.ToggleReaction(context.Background(), m.ID, 20, "👍")
	require.NoError(t, err)
	assert.False(t, active, "second toggle removes the reaction")

	projects.project.Status = status.Completed
	_, err = svc.ToggleReaction(context.Background(), m.ID, 20, "👍")
	assert.ErrorIs(t, err, ErrChatClosed)
}

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tradeboard/pkg/outbox"
)

type fakeOutboxAdmin struct {
	failed   []*outbox.Event
	replayed []int64
}

func (f *fakeOutboxAdmin) GetFailedEvents(ctx context.Context, limit int) ([]*outbox.Event, error) {
	if limit < len(f.failed) {
		return f.failed[:limit], nil
	}
	return f.failed, nil
}

func (f *fakeOutboxAdmin) ReplayEvent(ctx context.Context, eventID int64) error {
	f.replayed = append(f.replayed, eventID)
	return nil
}

func TestAdminReplayOutboxEvent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &fakeOutboxAdmin{}
	h := NewAdminHandler(store, zap.NewNop())

	r := gin.New()
	r.POST("/admin/outbox/replay", h.ReplayOutboxEvent)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/outbox/replay?id=42", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int64{42}, store.replayed)
}

func TestAdminReplayOutboxEvent_MissingID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAdminHandler(&fakeOutboxAdmin{}, zap.NewNop())

	r := gin.New()
	r.POST("/admin/outbox/replay", h.ReplayOutboxEvent)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/outbox/replay", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminListFailedOutbox(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &fakeOutboxAdmin{failed: []*outbox.Event{
		{ID: 7, RoutingKey: "project.status.changed", Status: "failed"},
	}}
	h := NewAdminHandler(store, zap.NewNop())

	r := gin.New()
	r.GET("/admin/outbox/failed", h.ListFailedOutbox)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/outbox/failed", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "project.status.changed")
}

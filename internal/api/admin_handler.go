package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tradeboard/pkg/outbox"
)

type outboxAdminStore interface {
	GetFailedEvents(ctx context.Context, limit int) ([]*outbox.Event, error)
	ReplayEvent(ctx context.Context, eventID int64) error
}

// AdminHandler exposes the outbox maintenance surface: inspecting events
// that exhausted their retries and putting them back in front of the
// dispatcher.
type AdminHandler struct {
	outbox outboxAdminStore
	logger *zap.Logger
}

func NewAdminHandler(ob outboxAdminStore, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{outbox: ob, logger: logger}
}

// ListFailedOutbox handles GET /admin/outbox/failed?limit=100
func (h *AdminHandler) ListFailedOutbox(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}

	events, err := h.outbox.GetFailedEvents(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list failed outbox events", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list failed events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}

// ReplayOutboxEvent handles POST /admin/outbox/replay?id=xxx
// 重置为 pending，由正在跑的 dispatcher 重新发布
func (h *AdminHandler) ReplayOutboxEvent(c *gin.Context) {
	idStr := c.Query("id")
	if idStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing id parameter"})
		return
	}

	eventID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id parameter"})
		return
	}

	if err := h.outbox.ReplayEvent(c.Request.Context(), eventID); err != nil {
		h.logger.Error("Failed to replay event",
			zap.Int64("event_id", eventID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to replay event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "replayed",
		"event_id": eventID,
	})
}

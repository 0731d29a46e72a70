package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tradeboard/internal/service"
)

type TimelineHandler struct {
	timelineService *service.TimelineService
	logger          *zap.Logger
}

func NewTimelineHandler(timelineService *service.TimelineService, logger *zap.Logger) *TimelineHandler {
	return &TimelineHandler{timelineService: timelineService, logger: logger}
}

// Post handles POST /projects/:id/updates
func (h *TimelineHandler) Post(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		UpdateType string         `json:"update_type" binding:"required"`
		Message    *string        `json:"message"`
		FileURL    *string        `json:"file_url"`
		Metadata   map[string]any `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	u, err := h.timelineService.Post(c.Request.Context(), projectID, currentUserID(c),
		req.UpdateType, req.Message, req.FileURL, req.Metadata)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, u)
}

// List handles GET /projects/:id/updates
func (h *TimelineHandler) List(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	updates, err := h.timelineService.List(c.Request.Context(), projectID, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updates": updates})
}

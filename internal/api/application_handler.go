package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tradeboard/internal/service"
)

type ApplicationHandler struct {
	applicationService *service.ApplicationService
	logger             *zap.Logger
}

func NewApplicationHandler(applicationService *service.ApplicationService, logger *zap.Logger) *ApplicationHandler {
	return &ApplicationHandler{applicationService: applicationService, logger: logger}
}

// Submit handles POST /projects/:id/applications (professional only)
func (h *ApplicationHandler) Submit(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Proposal string  `json:"proposal" binding:"required"`
		Budget   float64 `json:"budget" binding:"required,gt=0"`
		Timeline string  `json:"timeline" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	a, err := h.applicationService.Submit(c.Request.Context(), projectID, currentUserID(c),
		req.Proposal, req.Budget, req.Timeline)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("application submitted",
		zap.Int64("application_id", a.ID),
		zap.Int64("project_id", projectID))
	c.JSON(http.StatusCreated, a)
}

// Accept handles POST /applications/:id/accept (client only).
// Exactly one accept wins per project; a lost race returns 409.
func (h *ApplicationHandler) Accept(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	a, err := h.applicationService.Accept(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, a)
}

// Reject handles POST /applications/:id/reject (client only)
func (h *ApplicationHandler) Reject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.applicationService.Reject(c.Request.Context(), id, currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

// Withdraw handles POST /applications/:id/withdraw (professional only)
func (h *ApplicationHandler) Withdraw(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.applicationService.Withdraw(c.Request.Context(), id, currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "withdrawn"})
}

// ListForProject handles GET /projects/:id/applications (client only)
func (h *ApplicationHandler) ListForProject(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	apps, err := h.applicationService.ListForProject(c.Request.Context(), projectID, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

// ListMine handles GET /applications (professional only)
func (h *ApplicationHandler) ListMine(c *gin.Context) {
	apps, err := h.applicationService.ListMine(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

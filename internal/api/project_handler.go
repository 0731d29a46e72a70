package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tradeboard/internal/service"
	"tradeboard/internal/status"
)

type ProjectHandler struct {
	projectService    *service.ProjectService
	transitionService *service.TransitionService
	logger            *zap.Logger
}

func NewProjectHandler(projectService *service.ProjectService, transitionService *service.TransitionService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{
		projectService:    projectService,
		transitionService: transitionService,
		logger:            logger,
	}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// Create handles POST /projects (client only)
func (h *ProjectHandler) Create(c *gin.Context) {
	var req struct {
		Title       string     `json:"title" binding:"required"`
		Description string     `json:"description" binding:"required"`
		Category    string     `json:"category" binding:"required"`
		Budget      float64    `json:"budget" binding:"required,gt=0"`
		Deadline    *time.Time `json:"deadline"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	p, err := h.projectService.Create(c.Request.Context(), currentUserID(c),
		req.Title, req.Description, req.Category, req.Budget, req.Deadline)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("project created",
		zap.Int64("project_id", p.ID),
		zap.Int64("client_id", p.ClientID))
	c.JSON(http.StatusCreated, p)
}

// Get handles GET /projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	p, err := h.projectService.Get(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// ListMine handles GET /projects
func (h *ProjectHandler) ListMine(c *gin.Context) {
	projects, err := h.projectService.ListMine(c.Request.Context(), currentUserID(c), currentAccountType(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// Discover handles GET /projects/discover?category=
func (h *ProjectHandler) Discover(c *gin.Context) {
	projects, err := h.projectService.Discover(c.Request.Context(), c.Query("category"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// Transition handles POST /projects/:id/status
func (h *ProjectHandler) Transition(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	p, err := h.transitionService.Execute(c.Request.Context(), id, currentUserID(c), status.Status(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// NextStates handles GET /projects/:id/next-states — what the caller may
// do from here, for rendering action buttons.
func (h *ProjectHandler) NextStates(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	p, err := h.projectService.Get(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	role, isParticipant := p.ParticipantRole(currentUserID(c))
	next := []status.Status{}
	if isParticipant {
		next = status.Next(p.Status, role)
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      p.Status,
		"next_states": next,
	})
}

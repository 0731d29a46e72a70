package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tradeboard/internal/service"
)

type ReviewHandler struct {
	reviewService *service.ReviewService
	logger        *zap.Logger
}

func NewReviewHandler(reviewService *service.ReviewService, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService, logger: logger}
}

// Submit handles POST /projects/:id/reviews
func (h *ReviewHandler) Submit(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Rating  int     `json:"rating" binding:"required"`
		Comment *string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	r, err := h.reviewService.Submit(c.Request.Context(), projectID, currentUserID(c), req.Rating, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, r)
}

// Existing handles GET /projects/:id/reviews/mine
func (h *ReviewHandler) Existing(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	r, err := h.reviewService.Existing(c.Request.Context(), projectID, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if r == nil {
		c.JSON(http.StatusOK, gin.H{"review": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"review": r})
}

// ForProfessional handles GET /professionals/:id/reviews — the public
// rating feed, client-authored reviews only.
func (h *ReviewHandler) ForProfessional(c *gin.Context) {
	professionalID, ok := pathID(c, "id")
	if !ok {
		return
	}

	reviews, err := h.reviewService.ForProfessional(c.Request.Context(), professionalID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tradeboard/internal/repository"
	"tradeboard/internal/service"
	"tradeboard/internal/status"
)

// respondError 把 service 层的哨兵错误翻译成 HTTP 状态码
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, repository.ErrStatusConflict):
		// someone else changed the status first; the client should reload
		c.JSON(http.StatusConflict, gin.H{"error": "state changed concurrently, refresh and retry"})
	case errors.Is(err, service.ErrNotParticipant),
		errors.Is(err, service.ErrNotAllowed):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, status.ErrIllegalTransition),
		errors.Is(err, status.ErrRoleNotAllowed),
		errors.Is(err, service.ErrProjectNotOpen),
		errors.Is(err, service.ErrChatClosed),
		errors.Is(err, service.ErrInvoiceNotAvailable),
		errors.Is(err, service.ErrInvoiceNotPending),
		errors.Is(err, service.ErrReviewNotAvailable),
		errors.Is(err, service.ErrNoCounterpart):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyApplied),
		errors.Is(err, service.ErrAlreadyReviewed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, status.ErrUnknownStatus),
		errors.Is(err, service.ErrInvalidUpdateType),
		errors.Is(err, service.ErrInvalidRating):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func currentUserID(c *gin.Context) int64 {
	v, _ := c.Get("user_id")
	id, _ := v.(int64)
	return id
}

func currentAccountType(c *gin.Context) string {
	v, _ := c.Get("account_type")
	t, _ := v.(string)
	return t
}

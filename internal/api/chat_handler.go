package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tradeboard/internal/service"
)

type ChatHandler struct {
	chatService *service.ChatService
	logger      *zap.Logger
}

func NewChatHandler(chatService *service.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chatService: chatService, logger: logger}
}

// Send handles POST /projects/:id/messages
func (h *ChatHandler) Send(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Content  string `json:"content" binding:"required"`
		ParentID *int64 `json:"parent_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	m, err := h.chatService.Send(c.Request.Context(), projectID, currentUserID(c), req.Content, req.ParentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, m)
}

// List handles GET /projects/:id/messages. Listing marks the caller's
// unread messages as read.
func (h *ChatHandler) List(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	messages, err := h.chatService.List(c.Request.Context(), projectID, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// ToggleReaction handles POST /messages/:id/reactions
func (h *ChatHandler) ToggleReaction(c *gin.Context) {
	messageID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Emoji string `json:"emoji" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	active, err := h.chatService.ToggleReaction(c.Request.Context(), messageID, currentUserID(c), req.Emoji)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"active": active})
}

// Reactions handles GET /projects/:id/reactions
func (h *ChatHandler) Reactions(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	reactions, err := h.chatService.Reactions(c.Request.Context(), projectID, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reactions": reactions})
}

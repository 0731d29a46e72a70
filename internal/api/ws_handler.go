package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"tradeboard/internal/util"
	"tradeboard/internal/ws"
)

type WSHandler struct {
	hub       *ws.Hub
	jwtSecret string
	logger    *zap.Logger
}

func NewWSHandler(hub *ws.Hub, jwtSecret string, logger *zap.Logger) *WSHandler {
	return &WSHandler{hub: hub, jwtSecret: jwtSecret, logger: logger}
}

// Serve handles GET /ws?token=. Browsers cannot set an Authorization
// header on websocket upgrades, so the token also rides a query param.
func (h *WSHandler) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = util.ExtractToken(c.Request)
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	userID, _, err := util.ParseJWT(token, h.jwtSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // 跨域由网关层控制
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}

	client := h.hub.AddClient(userID, conn)
	h.logger.Info("websocket connected", zap.Int64("user_id", userID))

	// Server-push only: drain inbound frames until the peer goes away.
	ctx := c.Request.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}

	h.hub.RemoveClient(client)
	h.logger.Info("websocket disconnected", zap.Int64("user_id", userID))
}

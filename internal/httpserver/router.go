package httpserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tradeboard/internal/api"
	"tradeboard/internal/model"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	authHandler *api.AuthHandler,
	projectHandler *api.ProjectHandler,
	applicationHandler *api.ApplicationHandler,
	timelineHandler *api.TimelineHandler,
	chatHandler *api.ChatHandler,
	invoiceHandler *api.InvoiceHandler,
	reviewHandler *api.ReviewHandler,
	notificationHandler *api.NotificationHandler,
	uploadHandler *api.UploadHandler,
	wsHandler *api.WSHandler,
	adminHandler *api.AdminHandler,
	jwtSecret string,
	db *pgxpool.Pool,
) *Router {
	r := gin.Default()
	r.Use(MetricsMiddleware())

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)
	r.GET("/ws", wsHandler.Serve) // token 在 query 里自行校验

	// Protected
	auth := r.Group("/")
	auth.Use(AuthMiddleware(jwtSecret))
	{
		auth.GET("/me", authHandler.Profile)

		// Projects
		auth.GET("/projects", projectHandler.ListMine)
		auth.GET("/projects/discover", projectHandler.Discover)
		auth.GET("/projects/:id", projectHandler.Get)
		auth.GET("/projects/:id/next-states", projectHandler.NextStates)
		auth.POST("/projects/:id/status", projectHandler.Transition)

		// Timeline
		auth.GET("/projects/:id/updates", timelineHandler.List)
		auth.POST("/projects/:id/updates", timelineHandler.Post)
		auth.POST("/projects/:id/files", uploadHandler.Upload)

		// Chat
		auth.GET("/projects/:id/messages", chatHandler.List)
		auth.POST("/projects/:id/messages", chatHandler.Send)
		auth.GET("/projects/:id/reactions", chatHandler.Reactions)
		auth.POST("/messages/:id/reactions", chatHandler.ToggleReaction)

		// Invoice & reviews
		auth.GET("/projects/:id/invoice", invoiceHandler.Get)
		auth.GET("/projects/:id/reviews/mine", reviewHandler.Existing)
		auth.POST("/projects/:id/reviews", reviewHandler.Submit)
		auth.GET("/professionals/:id/reviews", reviewHandler.ForProfessional)

		// Notifications
		auth.GET("/notifications", notificationHandler.List)
		auth.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		auth.POST("/notifications/:id/read", notificationHandler.MarkRead)
		auth.POST("/notifications/read-all", notificationHandler.MarkAllRead)

		// Client-only
		client := auth.Group("/")
		client.Use(RequireAccountType(model.AccountClient))
		{
			client.POST("/projects", projectHandler.Create)
			client.GET("/projects/:id/applications", applicationHandler.ListForProject)
			client.POST("/applications/:id/accept", applicationHandler.Accept)
			client.POST("/applications/:id/reject", applicationHandler.Reject)
			client.POST("/projects/:id/invoice/pay", invoiceHandler.MarkPaid)
		}

		// Professional-only
		pro := auth.Group("/")
		pro.Use(RequireAccountType(model.AccountProfessional))
		{
			pro.POST("/projects/:id/applications", applicationHandler.Submit)
			pro.GET("/applications", applicationHandler.ListMine)
			pro.POST("/applications/:id/withdraw", applicationHandler.Withdraw)
		}
	}

	// 运维接口：outbox 故障排查与重放，部署时网关只对内网放行 /admin
	admin := r.Group("/admin", AuthMiddleware(jwtSecret))
	{
		admin.GET("/outbox/failed", adminHandler.ListFailedOutbox)
		admin.POST("/outbox/replay", adminHandler.ReplayOutboxEvent)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}

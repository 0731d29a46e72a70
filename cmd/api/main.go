package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"tradeboard/config"
	"tradeboard/internal/api"
	"tradeboard/internal/filestore"
	"tradeboard/internal/httpserver"
	"tradeboard/internal/mqhandler"
	"tradeboard/internal/repository"
	"tradeboard/internal/service"
	"tradeboard/internal/ws"
	"tradeboard/pkg/db"
	"tradeboard/pkg/logger"
	"tradeboard/pkg/metrics"
	"tradeboard/pkg/mq"
	"tradeboard/pkg/outbox"
	redisclient "tradeboard/pkg/redis"
)

func main() {
	// Load config
	cfg := config.Load()

	zlog := logger.NewLogger()
	defer zlog.Sync()

	ctx := context.Background()

	// Init DB
	dbConn, err := db.NewConnection(cfg.DB, zlog)
	if err != nil {
		zlog.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	// Init Redis
	rdb := redisclient.NewClient(cfg.Redis)
	defer rdb.Close()

	// Init RabbitMQ Publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatalf("failed to init publisher: %v", err)
	}
	defer publisher.Close()

	// Init S3 file store
	fileStore, err := filestore.NewS3Store(ctx, filestore.S3Options{
		Region:    cfg.S3.Region,
		Endpoint:  cfg.S3.Endpoint,
		Bucket:    cfg.S3.Bucket,
		PublicURL: cfg.S3.PublicURL,
	})
	if err != nil {
		zlog.Fatal("S3 initialization failed", zap.Error(err))
	}

	// Init Repositories
	userRepo := repository.NewUserRepository(dbConn)
	projectRepo := repository.NewProjectRepository(dbConn, zlog)
	applicationRepo := repository.NewApplicationRepository(dbConn, zlog)
	updateRepo := repository.NewUpdateRepository(dbConn, zlog)
	messageRepo := repository.NewMessageRepository(dbConn, zlog)
	notificationRepo := repository.NewNotificationRepository(dbConn, zlog)
	invoiceRepo := repository.NewInvoiceRepository(dbConn, zlog)
	reviewRepo := repository.NewReviewRepository(dbConn, zlog)
	outboxRepo := outbox.NewRepository(dbConn)

	// Init Services
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret)
	projectService := service.NewProjectService(projectRepo, zlog)
	transitionService := service.NewTransitionService(dbConn, projectRepo, updateRepo, outboxRepo, zlog)
	applicationService := service.NewApplicationService(dbConn, applicationRepo, projectRepo, transitionService, outboxRepo, zlog)
	timelineService := service.NewTimelineService(dbConn, updateRepo, projectRepo, outboxRepo, zlog)
	chatService := service.NewChatService(dbConn, messageRepo, projectRepo, outboxRepo, zlog)
	invoiceService := service.NewInvoiceService(dbConn, invoiceRepo, projectRepo, transitionService, updateRepo, outboxRepo, zlog)
	reviewService := service.NewReviewService(dbConn, reviewRepo, projectRepo, updateRepo, outboxRepo, zlog)
	notificationService := service.NewNotificationService(notificationRepo, rdb, zlog)

	// Outbox dispatcher: 把事务内写入的事件搬运到 MQ
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, zlog).
		WithMaxRetries(5).
		WithBatchSize(100)
	go dispatcher.Start(ctx)

	// Websocket hub + push bridge. Every API instance gets its own queue
	// so each one pushes to the tabs connected to it.
	hub := ws.NewHub()
	metrics.RegisterConnectedUsersGauge(hub.ConnectedUsers)
	pushHandler := mqhandler.NewPushHandler(hub, notificationService, zlog)

	pushRouter := mq.NewRouter(zlog)
	pushRouter.Register("notification.created", pushHandler.HandleNotificationCreated)
	pushRouter.Register("message.sent", pushHandler.HandleMessageSent)

	hostname, _ := os.Hostname()
	pushQueue := fmt.Sprintf("push.api.%s.q", hostname)
	pushConsumer, err := mq.NewConsumer(cfg.MQ.URL, pushQueue, zlog,
		"notification.created", "message.sent")
	if err != nil {
		zlog.Fatal("failed to init push consumer", zap.Error(err))
	}
	pushConsumer.SetHandler(pushRouter.Handle)
	go func() {
		if err := pushConsumer.StartConsuming(); err != nil {
			zlog.Fatal("push consumer failed", zap.Error(err))
		}
	}()
	defer pushConsumer.Close()

	// Init Handlers
	authHandler := api.NewAuthHandler(authService, zlog)
	projectHandler := api.NewProjectHandler(projectService, transitionService, zlog)
	applicationHandler := api.NewApplicationHandler(applicationService, zlog)
	timelineHandler := api.NewTimelineHandler(timelineService, zlog)
	chatHandler := api.NewChatHandler(chatService, zlog)
	invoiceHandler := api.NewInvoiceHandler(invoiceService, zlog)
	reviewHandler := api.NewReviewHandler(reviewService, zlog)
	notificationHandler := api.NewNotificationHandler(notificationService, zlog)
	uploadHandler := api.NewUploadHandler(fileStore, timelineService, zlog)
	wsHandler := api.NewWSHandler(hub, cfg.JWT.Secret, zlog)
	adminHandler := api.NewAdminHandler(outboxRepo, zlog)

	// Router
	router := httpserver.NewRouter(
		authHandler,
		projectHandler,
		applicationHandler,
		timelineHandler,
		chatHandler,
		invoiceHandler,
		reviewHandler,
		notificationHandler,
		uploadHandler,
		wsHandler,
		adminHandler,
		cfg.JWT.Secret,
		dbConn,
	)

	// Start API server
	if err := router.Run(cfg.Server.Port); err != nil {
		zlog.Fatal("server start failed", zap.Error(err))
	}
}

package main

import (
	"time"

	"go.uber.org/zap"

	"tradeboard/config"
	"tradeboard/internal/event"
	"tradeboard/internal/mqhandler"
	"tradeboard/internal/repository"
	"tradeboard/internal/util"
	"tradeboard/pkg/db"
	"tradeboard/pkg/logger"
	"tradeboard/pkg/mq"
	redisclient "tradeboard/pkg/redis"
)

func main() {
	// Load config
	cfg := config.Load()

	zlog := logger.NewLogger()
	defer zlog.Sync()

	zlog.Info("Starting worker service...")

	// Init Redis
	rdb := redisclient.NewClient(cfg.Redis)
	defer rdb.Close()

	deduper := util.NewDeduper(rdb, time.Hour)

	// Init DB
	dbConn, err := db.NewConnection(cfg.DB, zlog)
	if err != nil {
		zlog.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	zlog.Info("Database connection established")

	// Init RabbitMQ Publisher (worker re-publishes notification.created
	// and system message.sent for the API-side push bridge)
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		zlog.Fatal("failed to init publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Init Repositories
	notificationRepo := repository.NewNotificationRepository(dbConn, zlog)
	messageRepo := repository.NewMessageRepository(dbConn, zlog)

	// Init Handlers
	notificationHandler := mqhandler.NewNotificationHandler(notificationRepo, deduper, publisher, zlog)
	systemMessageHandler := mqhandler.NewSystemMessageHandler(messageRepo, deduper, publisher, zlog)

	// (1) Notification fan-out: the single writer of notification rows
	notifyRouter := mq.NewRouter(zlog)
	notifyRouter.Register(event.ProjectStatusChanged, notificationHandler.HandleStatusChanged)
	notifyRouter.Register(event.ProjectUpdatePosted, notificationHandler.HandleUpdatePosted)
	notifyRouter.Register(event.ApplicationReceived, notificationHandler.HandleApplicationReceived)
	notifyRouter.Register(event.ApplicationAccepted, notificationHandler.HandleApplicationAccepted)
	notifyRouter.Register(event.ApplicationRejected, notificationHandler.HandleApplicationRejected)
	notifyRouter.Register(event.MessageSent, notificationHandler.HandleMessageSent)
	notifyRouter.Register(event.InvoicePaid, notificationHandler.HandleInvoicePaid)
	notifyRouter.Register(event.ReviewSubmitted, notificationHandler.HandleReviewSubmitted)

	zlog.Info("Initializing notification consumer", zap.String("queue", "notifications.q"))
	notifyConsumer, err := mq.NewConsumer(cfg.MQ.URL, "notifications.q", zlog,
		event.ProjectStatusChanged,
		event.ProjectUpdatePosted,
		event.ApplicationReceived,
		event.ApplicationAccepted,
		event.ApplicationRejected,
		event.MessageSent,
		event.InvoicePaid,
		event.ReviewSubmitted,
	)
	if err != nil {
		zlog.Fatal("failed to init notification consumer", zap.Error(err))
	}
	notifyConsumer.SetHandler(notifyRouter.Handle)
	go func() {
		zlog.Info("Starting notification consumer")
		if err := notifyConsumer.StartConsuming(); err != nil {
			zlog.Fatal("notification consumer failed", zap.Error(err))
		}
	}()
	defer notifyConsumer.Close()

	// (2) System chat messages for lifecycle milestones
	sysmsgRouter := mq.NewRouter(zlog)
	sysmsgRouter.Register(event.ProjectStatusChanged, systemMessageHandler.HandleStatusChanged)
	sysmsgRouter.Register(event.InvoicePaid, systemMessageHandler.HandleInvoicePaid)

	zlog.Info("Initializing system-message consumer", zap.String("queue", "system-messages.q"))
	sysmsgConsumer, err := mq.NewConsumer(cfg.MQ.URL, "system-messages.q", zlog,
		event.ProjectStatusChanged,
		event.InvoicePaid,
	)
	if err != nil {
		zlog.Fatal("failed to init system-message consumer", zap.Error(err))
	}
	sysmsgConsumer.SetHandler(sysmsgRouter.Handle)
	go func() {
		zlog.Info("Starting system-message consumer")
		if err := sysmsgConsumer.StartConsuming(); err != nil {
			zlog.Fatal("system-message consumer failed", zap.Error(err))
		}
	}()
	defer sysmsgConsumer.Close()

	zlog.Info("All consumers started, worker is ready to process messages")

	// Keep worker running
	select {}
}

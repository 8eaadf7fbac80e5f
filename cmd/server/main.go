package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	mqcontracts "questboard/contracts/mq"
	"questboard/internal/config"
	"questboard/internal/handler"
	"questboard/internal/httpserver"
	"questboard/internal/mqhandler"
	"questboard/internal/notify"
	"questboard/internal/repository"
	"questboard/internal/service/achievement"
	"questboard/internal/service/auth"
	"questboard/internal/service/task"
	"questboard/pkg/clock"
	"questboard/pkg/db"
	"questboard/pkg/logger"
	"questboard/pkg/mq"
	"questboard/pkg/outbox"
	"questboard/pkg/redis"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting questboard...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
		zap.String("port", cfg.Server.Port),
	)

	// DB
	log.Info("Initializing database connection...")
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()
	log.Info("Database connection established successfully")

	// Redis (achievement announcement dedup)
	rdb := redis.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	// MQ publisher
	log.Info("Initializing MQ publisher...")
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Repositories
	outboxRepo := outbox.NewRepository(dbConn)
	taskRepo := repository.NewTaskRepository(dbConn, outboxRepo, log)
	userRepo := repository.NewUserRepository(dbConn, log)
	projectRepo := repository.NewProjectRepository(dbConn, log)
	snippetRepo := repository.NewSnippetRepository(dbConn, log)
	notificationRepo := repository.NewNotificationRepository(dbConn, log)

	// Outbox dispatcher
	dispatcherCtx, dispatcherCancel := context.WithCancel(context.Background())
	defer dispatcherCancel()
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log).
		WithInterval(1 * time.Second).
		WithBatchSize(100)
	go dispatcher.Start(dispatcherCtx)

	// Gamification
	notifier := notify.NewAMQPNotifier(publisher, log)
	announced := achievement.NewRedisAnnouncedSet(rdb, time.Duration(cfg.Gamify.AnnouncedTTLHours)*time.Hour)
	catalog := achievement.DefaultCatalog()
	evaluator := achievement.NewEvaluator(catalog, announced, notifier, log)

	xpConfig := task.XPConfig{
		BaseCompletion:        cfg.Gamify.XPBaseCompletion,
		HighPriorityBonus:     cfg.Gamify.XPHighPriorityBonus,
		CriticalPriorityBonus: cfg.Gamify.XPCriticalPriorityBonus,
	}
	taskService := task.NewService(
		taskRepo, userRepo, projectRepo,
		notifier, evaluator, clock.New(), xpConfig, log,
	).WithEventPublisher(publisher)

	authService := auth.NewService(userRepo, cfg.JWT.Secret)

	// MQ consumer for notification.created -> in-app inbox
	log.Info("Initializing MQ consumer for notification.created...",
		zap.String("queue", "notification.created.q"),
		zap.String("routing_key", mqcontracts.RoutingKeyNotificationCreated),
	)
	consumer, err := mq.NewConsumer(cfg.MQ.URL, "notification.created.q", mqcontracts.RoutingKeyNotificationCreated, log)
	if err != nil {
		log.Fatal("Failed to init consumer", zap.Error(err))
	}
	defer consumer.Close()

	notificationHandler := mqhandler.NewNotificationCreatedHandler(notificationRepo, log)
	consumer.SetHandler(notificationHandler.Handle)

	go func() {
		log.Info("Starting notification.created consumer...")
		if err := consumer.StartConsuming(); err != nil {
			log.Fatal("Notification consumer failed", zap.Error(err))
		}
	}()

	// HTTP server
	router := httpserver.NewRouter(
		handler.NewAuthHandler(authService, log),
		handler.NewTaskHandler(taskService, taskRepo, cfg.Timer.HeartbeatSeconds, log),
		handler.NewProjectHandler(projectRepo, log),
		handler.NewSnippetHandler(snippetRepo, log),
		handler.NewNotificationHandler(notificationRepo, log),
		handler.NewAchievementHandler(catalog, userRepo, taskService, log),
		handler.NewAdminHandler(outboxRepo, log),
		cfg.JWT.Secret,
		log,
		dbConn,
		consumer,
	)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router.Engine,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("questboard is fully initialized and running",
		zap.String("http_port", cfg.Server.Port),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down questboard gracefully...")

	log.Info("Stopping MQ consumer...")
	consumer.Stop()

	log.Info("Stopping outbox dispatcher...")
	dispatcherCancel()

	log.Info("Shutting down HTTP server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("questboard shutdown complete")
}

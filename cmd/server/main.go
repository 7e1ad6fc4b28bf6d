package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqcontracts "cantiere/contracts/mq"
	"cantiere/internal/gantt"
	"cantiere/internal/handler"
	"cantiere/internal/httpserver"
	"cantiere/internal/mqhandler"
	"cantiere/internal/repository"
	"cantiere/internal/service"
	"cantiere/pkg/config"
	"cantiere/pkg/logger"
	"cantiere/pkg/mq"
	"cantiere/pkg/outbox"
	redisclient "cantiere/pkg/redis"
	"cantiere/pkg/util"

	"go.uber.org/zap"
)

func main() {
	env := config.GetConfigEnv()
	cfg, err := config.Load(env, config.GetEnv("CONFIG_DIR", "config"))
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(cfg.Log.Level)
	defer log.Sync()

	log.Info("Starting schedule service...",
		zap.String("env", env),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.String("locale", cfg.Schedule.Locale),
		zap.Bool("strict_not_found", cfg.Schedule.StrictNotFound),
		zap.Bool("mq_enabled", cfg.MQ.URL != ""),
	)

	ctx := context.Background()
	dispatchCtx, stopDispatch := context.WithCancel(ctx)
	defer stopDispatch()

	// Storage
	backend, err := repository.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to init schedule storage", zap.Error(err))
	}
	defer backend.Close()

	routerOpts := []httpserver.Option{
		httpserver.WithReadinessCheck("storage", backend.Ping),
	}

	// MQ publisher (optional)
	var events gantt.EventPublisher
	if cfg.MQ.URL != "" {
		publisher, err := mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			log.Fatal("Failed to init MQ publisher", zap.Error(err))
		}
		defer publisher.Close()

		// 发布失败的事件进入 outbox，后台重发
		dispatcher := outbox.NewDispatcher(outbox.NewRepository(cfg.MQ.OutboxCapacity), publisher, log).
			WithMaxRetries(int(cfg.MQ.MaxRetries)).
			WithBatchSize(cfg.MQ.OutboxBatchSize)
		go dispatcher.Start(dispatchCtx)
		events = dispatcher

		routerOpts = append(routerOpts,
			httpserver.WithOutbox(dispatcher),
			httpserver.WithReadinessCheck("mq", func(context.Context) error {
				if !publisher.IsConnected() {
					return errors.New("publisher disconnected")
				}
				return nil
			}),
		)
	}

	schedules := service.NewScheduleService(backend, service.ScheduleOptions{
		KeyPrefix:      cfg.Storage.KeyPrefix,
		StrictNotFound: cfg.Schedule.StrictNotFound,
		Events:         events,
	}, log)

	// MQ Consumer for project.deleted (optional)
	var consumer *mq.Consumer
	if cfg.MQ.URL != "" {
		log.Info("Initializing MQ consumer for project.deleted...",
			zap.String("queue", "schedule.project.deleted.q"),
			zap.String("routing_key", mqcontracts.RoutingKeyProjectDeleted),
		)
		consumer, err = mq.NewConsumer(cfg.MQ.URL, "schedule.project.deleted.q", mqcontracts.RoutingKeyProjectDeleted, log)
		if err != nil {
			log.Fatal("Failed to init project.deleted consumer", zap.Error(err))
		}
		defer consumer.Close()

		var retries util.RetryCounter = util.NewMemoryRetryCounter(cfg.MQ.RetryTTL)
		if cfg.MQ.RetryBackend == "redis" {
			rdb, err := redisclient.NewRedisClient(ctx, cfg.Redis, log)
			if err != nil {
				log.Fatal("Failed to init Redis for retry counter", zap.Error(err))
			}
			defer rdb.Close()
			retries = util.NewRedisRetryCounter(rdb, cfg.MQ.RetryTTL)
		}
		consumer.SetHandler(mqhandler.NewProjectDeletedHandler(schedules, retries, cfg.MQ.MaxRetries, log).Handle)

		go func() {
			if err := consumer.StartConsuming(); err != nil {
				log.Fatal("project.deleted consumer failed", zap.Error(err))
			}
		}()
		routerOpts = append(routerOpts, httpserver.WithReadinessCheck("consumer", func(context.Context) error {
			if !consumer.IsConnected() {
				return errors.New("consumer disconnected")
			}
			return nil
		}))
	}

	// HTTP Server
	scheduleHandler := handler.NewScheduleHandler(schedules, cfg.Schedule.Locale, log)
	router := httpserver.NewRouter(scheduleHandler, log, routerOpts...)

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 优雅退出处理
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down schedule service gracefully...")

	if consumer != nil {
		log.Info("Stopping MQ consumer...")
		consumer.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	stopDispatch()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("Schedule service shutdown complete")
}

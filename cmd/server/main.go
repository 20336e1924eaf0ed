package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oggyb/chatible/internal/app"
	"github.com/oggyb/chatible/internal/cache"
	"github.com/oggyb/chatible/internal/config"
	"github.com/oggyb/chatible/internal/db"
	"github.com/oggyb/chatible/internal/gifts"
	"github.com/oggyb/chatible/internal/lang"
	"github.com/oggyb/chatible/internal/logger"
	"github.com/oggyb/chatible/internal/messenger"
	"github.com/oggyb/chatible/internal/server"
	"github.com/oggyb/chatible/internal/service/admin"
	"github.com/oggyb/chatible/internal/service/chatible"
	"github.com/oggyb/chatible/internal/webhook"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	msgs, err := lang.Load(cfg.Chat.LangFile)
	if err != nil {
		log.Error("failed to load messages", "err", err)
		os.Exit(1)
	}

	// Init DB (migrates schema)
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		os.Exit(1)
	}
	defer redisCache.Close()

	if cfg.Development() {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	appCtx := app.New(cfg, database, redisCache, log, msgs)

	client := messenger.NewClient(cfg, msgs.BotPrefix)
	svc := chatible.NewService(appCtx, client, client, gifts.NewProvider(cfg))
	loop := chatible.NewLoop(svc, cfg.Chat.QueueSize, redisCache, cfg.Chat.DedupTTL)
	sweeper := chatible.NewSweeper(svc, cfg.Chat.SweepInterval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go loop.Run(ctx)
	go sweeper.Run(ctx)

	httpServer := webhook.NewServer(cfg, webhook.NewHandler(cfg, loop, logger.Component("webhook")))
	go func() {
		log.Info("starting webhook server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("webhook server stopped", "err", err)
			stop()
		}
	}()

	grpcServer := server.NewGRPCServer(cfg, logger.Component("admin"), admin.NewRegistrar(appCtx, svc))
	go func() {
		log.Info("starting gRPC server", "addr", cfg.GRPC.Host+":"+cfg.GRPC.Port)
		if err := server.StartGRPCServer(cfg, grpcServer); err != nil {
			log.Error("gRPC server stopped", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("webhook shutdown", "err", err)
	}
	grpcServer.GracefulStop()

	// the loop closes itself on ctx cancellation and drains what was queued
	select {
	case <-loop.Done():
	case <-shutdownCtx.Done():
		log.Warn("event queue not drained before timeout")
	}
}

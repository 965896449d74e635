package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/schoolpulse/comms/internal/api"
	"github.com/schoolpulse/comms/internal/auth"
	"github.com/schoolpulse/comms/internal/config"
	"github.com/schoolpulse/comms/internal/handlers"
	"github.com/schoolpulse/comms/internal/hub"
	"github.com/schoolpulse/comms/internal/identity"
	"github.com/schoolpulse/comms/internal/kafka"
	"github.com/schoolpulse/comms/internal/logger"
	"github.com/schoolpulse/comms/internal/presence"
	"github.com/schoolpulse/comms/internal/repository"
	"github.com/schoolpulse/comms/internal/service"
	"github.com/schoolpulse/comms/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("APP_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	zlog, err := logger.New(cfg.Development)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx := context.Background()

	mc, err := repository.NewClient(ctx, cfg.Mongo.URI)
	if err != nil {
		zlog.Fatalw("mongo init", "err", err)
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()

	db := mc.Database(cfg.Mongo.Database)
	repo := repository.NewMongoRepository(mc, db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		zlog.Fatalw("mongo indexes", "err", err)
	}
	dir := identity.NewMongoDirectory(db)
	if err := dir.EnsureIndexes(ctx); err != nil {
		zlog.Fatalw("mongo user indexes", "err", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	pres := presence.NewStore(rdb, cfg.Redis.Prefix, 24*time.Hour)

	var events service.EventSink
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() { _ = producer.Close() }()
		events = producer
	}

	fanout := hub.New(zlog)
	svc := service.New(repo, dir, fanout, events, zlog)

	verifier := auth.NewVerifier(cfg.JWT.Secret)
	gateway := ws.NewGateway(fanout, svc, verifier, pres, ws.Config{
		PingInterval:  cfg.PingInterval,
		WriteDeadline: cfg.WriteDeadline,
		ReadDeadline:  cfg.ReadDeadline,
		MaxMsgSize:    cfg.WS.MaxMessageSize,
		SendBuffer:    cfg.WS.SendBuffer,
	}, zlog)
	rest := handlers.NewRestHandler(svc, pres, zlog)

	app := api.NewServer(rest, gateway, verifier)

	go func() {
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			zlog.Fatalw("server listen", "err", err)
		}
	}()
	zlog.Infow("comms service started", "port", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(shutdownCtx)
	zlog.Info("comms service stopped")
}

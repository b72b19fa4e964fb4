package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/fitmeal/internal/config"
	"github.com/ariefcatur/fitmeal/internal/history"
	kafkax "github.com/ariefcatur/fitmeal/internal/kafka"
	"github.com/ariefcatur/fitmeal/internal/logger"
	"github.com/ariefcatur/fitmeal/internal/orders"
	"github.com/ariefcatur/fitmeal/internal/postgres"
	"github.com/ariefcatur/fitmeal/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.Must(cfg.Env).With(zap.String("component", "history-worker"))
	defer logger.Sync(log)

	if len(cfg.KafkaBrokers) == 0 {
		log.Fatal("KAFKA_BROKERS is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}

	svc := &history.Service{Repo: &orders.Repo{DB: db}, Log: log}

	// Redis (optional dedup; the table key already makes replays harmless)
	if cfg.RedisAddr != "" {
		rdb, err := redisx.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatal("redis connect", zap.Error(err))
		}
		defer rdb.Close()
		svc.Dedup = &redisx.Deduper{RDB: rdb, Scope: "history"}
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.WorkerGroup, orders.Topics, cfg.WorkerCount, log)
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("consumer started",
			zap.String("group", cfg.WorkerGroup), zap.Strings("topics", orders.Topics), zap.Int("workers", cfg.WorkerCount))
		if err := cons.Start(ctx, svc.HandleOrderEvent); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer...")
	cancel()
	<-done
}

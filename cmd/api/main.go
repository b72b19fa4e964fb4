package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/fitmeal/internal/catalog"
	"github.com/ariefcatur/fitmeal/internal/config"
	"github.com/ariefcatur/fitmeal/internal/httpx"
	kafkax "github.com/ariefcatur/fitmeal/internal/kafka"
	"github.com/ariefcatur/fitmeal/internal/logger"
	"github.com/ariefcatur/fitmeal/internal/memstore"
	"github.com/ariefcatur/fitmeal/internal/nutrition"
	"github.com/ariefcatur/fitmeal/internal/orders"
	"github.com/ariefcatur/fitmeal/internal/payment"
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
	log := logger.Must(cfg.Env)
	defer logger.Sync(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	var (
		mealStore    catalog.Store
		orderStore   orders.Store
		profileStore nutrition.Store
	)
	switch cfg.Storage {
	case config.StorageMemory:
		mem := memstore.New()
		mealStore, orderStore, profileStore = mem, mem, mem
		log.Warn("using in-memory storage; data is lost on exit")
	default:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("db connect", zap.Error(err))
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Fatal("db migrate", zap.Error(err))
		}
		mealStore = &catalog.MealRepo{DB: db}
		orderStore = &orders.Repo{DB: db}
		profileStore = &nutrition.ProfileRepo{DB: db}
	}

	auth := &httpx.Auth{Secret: []byte(cfg.JWTSecret), Log: log}
	if !auth.Enabled() {
		log.Warn("JWT_SECRET not set; admin and user routes are open")
	}
	hub := httpx.NewHub(auth, log)

	orderSvc := &orders.Service{
		Store:    orderStore,
		Notifier: hub,
		Producer: cfg.ServiceName,
		Log:      log,
	}

	// Redis (optional)
	var dedup httpx.EventDeduper
	if cfg.RedisAddr != "" {
		rdb, err := redisx.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatal("redis connect", zap.Error(err))
		}
		defer rdb.Close()
		orderSvc.Cache = &redisx.StatusCache{RDB: rdb}
		orderSvc.Idem = &redisx.Idempotency{RDB: rdb}
		dedup = &redisx.Deduper{RDB: rdb, Scope: "webhook"}
	}

	// Kafka producer (optional)
	var prod *kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
		prod.Start(ctx)
		orderSvc.Publisher = prod
	}

	router := httpx.Routes(httpx.Deps{
		Meals:     &catalog.Service{Store: mealStore, Log: log},
		Orders:    orderSvc,
		Nutrition: &nutrition.Service{Profiles: profileStore, Meals: mealStore},
		Payments: payment.NewStripe(payment.StripeConfig{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			AppURL:        cfg.AppURL,
			Currency:      cfg.Currency,
		}),
		Dedup:       dedup,
		Hub:         hub,
		Auth:        auth,
		Log:         log,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	// graceful shutdown
	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr), zap.String("storage", cfg.Storage))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Warn("http shutdown incomplete", zap.Error(err))
	}
	if prod != nil {
		prod.Close()      // tutup inbox -> flush & close writer
		prod.WaitClosed() // drain
	}
	cancel()
}

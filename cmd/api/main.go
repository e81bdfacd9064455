package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-weekly-orders/internal/auth"
	"github.com/ariefcatur/go-weekly-orders/internal/catalog"
	"github.com/ariefcatur/go-weekly-orders/internal/config"
	"github.com/ariefcatur/go-weekly-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-weekly-orders/internal/kafka"
	"github.com/ariefcatur/go-weekly-orders/internal/logging"
	"github.com/ariefcatur/go-weekly-orders/internal/notify"
	"github.com/ariefcatur/go-weekly-orders/internal/orders"
	"github.com/ariefcatur/go-weekly-orders/internal/postgres"
	"github.com/ariefcatur/go-weekly-orders/internal/redisx"
	"github.com/ariefcatur/go-weekly-orders/internal/reports"
	"github.com/ariefcatur/go-weekly-orders/internal/weekly"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log := logging.New(cfg.ServiceName, cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.Pool())
	if err != nil {
		log.WithError(err).Fatal("db connect")
	}
	defer db.Close()

	if cfg.MigrateStart {
		v, err := postgres.Migrate(db)
		if err != nil {
			log.WithError(err).Fatal("migrate")
		}
		log.WithField("version", v).Info("schema migrated")
	}

	// Redis is optional: without it there is no catalog cache, idempotency or logout revocation.
	var cache *redisx.Store
	if cfg.RedisEnabled() {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		cache = redisx.NewStore(rdb)
		if err := cache.Ping(ctx); err != nil {
			log.WithError(err).Warn("redis unreachable, continuing")
		}
	}

	// Kafka producer
	var prod *kafkax.Producer
	if brokers := cfg.KafkaBrokers(); len(brokers) > 0 {
		prod = kafkax.NewProducer(brokers, notify.TopicOrderPlaced, 1024, log)
		prod.Start(ctx)
	} else {
		log.Warn("KAFKA_BROKERS disabled, order notifications are off")
	}

	catalogRepo := &catalog.Repo{DB: db}
	lists := &weekly.Manager{Store: &weekly.PgStore{DB: db}, Categories: catalogRepo, Log: log}
	recorder := &orders.Recorder{
		Store:   &orders.PgStore{DB: db},
		Catalog: catalogRepo,
		Fee:     cfg.DeliveryFee,
		Strict:  cfg.StrictPricing,
		Log:     log,
	}

	stopSweep := make(chan struct{})
	limiter := httpx.NewRateLimiter(cfg.OrderRateLimit, cfg.OrderRateBurst, log)
	limiter.StartSweeper(time.Minute, stopSweep)

	router := httpx.NewRouter(log)
	sh := &httpx.StorefrontHandler{
		Lists:    lists,
		Products: catalogRepo,
		Orders:   recorder,
		Limiter:  limiter,
		Fee:      cfg.DeliveryFee,
		Service:  cfg.ServiceName,
		Log:      log,
	}
	if cache != nil {
		sh.Cache = cache
		sh.Idem = cache
	}
	if prod != nil {
		sh.Events = prod
	}
	sh.Register(router)

	if cfg.SessionSecret == "" || cfg.AdminPasswordHash == "" {
		log.Warn("SESSION_SECRET or ADMIN_PASSWORD_HASH unset, admin routes disabled")
	} else {
		var revoker auth.Revoker
		if cache != nil {
			revoker = cache
		}
		ah := &httpx.AdminHandler{
			Sessions:    auth.NewSessions([]byte(cfg.SessionSecret), cfg.SessionTTL, revoker),
			Credentials: auth.Credentials{Username: cfg.AdminUsername, PasswordHash: cfg.AdminPasswordHash},
			Lists:       lists,
			Orders:      recorder,
			Reports:     &reports.Repo{DB: db},
			Catalog:     catalogRepo,
			Cache:       cache,
			Limiter:     limiter,
			Log:         log,
		}
		ah.Register(router)
	}

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	close(stopSweep)
	if prod != nil {
		prod.Close()
		prod.WaitClosed()
	}
	cancel()
}

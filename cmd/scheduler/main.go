package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-weekly-orders/internal/auth"
	"github.com/ariefcatur/go-weekly-orders/internal/catalog"
	"github.com/ariefcatur/go-weekly-orders/internal/config"
	"github.com/ariefcatur/go-weekly-orders/internal/logging"
	"github.com/ariefcatur/go-weekly-orders/internal/postgres"
	"github.com/ariefcatur/go-weekly-orders/internal/redisx"
	"github.com/ariefcatur/go-weekly-orders/internal/weekly"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log := logging.New(cfg.ServiceName+"-scheduler", cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.Pool())
	if err != nil {
		log.WithError(err).Fatal("db connect")
	}
	defer db.Close()

	var cache *redisx.Store
	if cfg.RedisEnabled() {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		cache = redisx.NewStore(rdb)
	}

	lists := &weekly.Manager{Store: &weekly.PgStore{DB: db}, Categories: &catalog.Repo{DB: db}, Log: log}
	job := auth.Job("auto-close", auth.ScopeLists)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err = c.AddFunc(cfg.AutoCloseSchedule, func() {
		runCtx, done := context.WithTimeout(ctx, 30*time.Second)
		defer done()

		l, closed, err := lists.CloseExpired(runCtx, job, time.Now())
		switch {
		case err != nil:
			log.WithError(err).Error("auto-close")
		case closed:
			log.WithField("list_id", l.ID).WithField("week_end", l.WeekEnd.String()).Info("expired list closed")
			if err := cache.InvalidateCatalog(runCtx); err != nil {
				log.WithError(err).Warn("catalog cache invalidation")
			}
		default:
			log.Debug("auto-close: nothing to do")
		}
	})
	if err != nil {
		log.WithError(err).WithField("schedule", cfg.AutoCloseSchedule).Fatal("bad AUTO_CLOSE_SCHEDULE")
	}

	c.Start()
	log.WithField("schedule", cfg.AutoCloseSchedule).Info("scheduler started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down scheduler")
	<-c.Stop().Done()
}

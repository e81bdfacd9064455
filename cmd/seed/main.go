// Command seed loads the catalog from a YAML file and can print a bcrypt hash for ADMIN_PASSWORD_HASH.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-weekly-orders/internal/auth"
	"github.com/ariefcatur/go-weekly-orders/internal/catalog"
	"github.com/ariefcatur/go-weekly-orders/internal/config"
	"github.com/ariefcatur/go-weekly-orders/internal/logging"
	"github.com/ariefcatur/go-weekly-orders/internal/postgres"
)

func main() {
	file := flag.String("file", "", "catalog YAML to upsert")
	migrate := flag.Bool("migrate", false, "apply schema migrations first")
	password := flag.String("hash-password", "", "print a bcrypt hash of this password and exit")
	flag.Parse()

	if *password != "" {
		h, err := auth.HashPassword(*password)
		if err != nil {
			logrus.Fatalf("hash: %v", err)
		}
		fmt.Println(h)
		return
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log := logging.New(cfg.ServiceName+"-seed", cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.Pool())
	if err != nil {
		log.WithError(err).Fatal("db connect")
	}
	defer db.Close()

	if *migrate {
		v, err := postgres.Migrate(db)
		if err != nil {
			log.WithError(err).Fatal("migrate")
		}
		log.WithField("version", v).Info("schema migrated")
	}
	if *file == "" {
		return
	}

	f, err := os.Open(*file)
	if err != nil {
		log.WithError(err).Fatal("open seed")
	}
	defer f.Close()

	s, err := catalog.ParseSeed(f)
	if err != nil {
		log.WithError(err).WithField("file", *file).Fatal("parse seed")
	}
	res, err := (&catalog.Repo{DB: db}).ApplySeed(ctx, s)
	if err != nil {
		log.WithError(err).Fatal("apply seed")
	}
	log.WithFields(logrus.Fields{
		"categories": res.Categories,
		"created":    res.Created,
		"updated":    res.Updated,
	}).Info("catalog seeded")
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-weekly-orders/internal/config"
	kafkax "github.com/ariefcatur/go-weekly-orders/internal/kafka"
	"github.com/ariefcatur/go-weekly-orders/internal/logging"
	"github.com/ariefcatur/go-weekly-orders/internal/notify"
	"github.com/ariefcatur/go-weekly-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	service := cfg.ServiceName + "-notifier"
	log := logging.New(service, cfg.LogLevel, cfg.LogFormat)

	brokers := cfg.KafkaBrokers()
	if len(brokers) == 0 {
		log.Fatal("KAFKA_BROKERS is required by the notifier")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A nil store accepts every event, so redelivery may repeat a chat message.
	var dedup *redisx.Store
	if cfg.RedisEnabled() {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		dedup = redisx.NewStore(rdb)
	} else {
		log.Warn("redis disabled, duplicate deliveries will not be filtered")
	}

	chat := notify.NewChatClient(cfg.ChatAPIURL, cfg.ChatBotToken, cfg.ChatID)
	if !chat.Enabled() {
		log.Warn("CHAT_BOT_TOKEN or CHAT_ID unset, orders will be consumed but not forwarded")
	}

	d := &notify.Dispatcher{Sender: chat, Dedup: dedup, Service: service, Log: log}
	cons := kafkax.NewConsumer(brokers, cfg.NotifierGroup, notify.TopicOrderPlaced, cfg.NotifierWorkers, log)

	exited := make(chan struct{})
	go func() {
		defer close(exited)
		log.WithFields(logrus.Fields{
			"group":   cfg.NotifierGroup,
			"topic":   notify.TopicOrderPlaced,
			"workers": cfg.NotifierWorkers,
		}).Info("notifier consumer started")
		if err := cons.Start(ctx, d.HandleOrderPlaced); err != nil {
			log.WithError(err).Error("consumer exit")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Info("shutting down consumer")
	case <-exited:
	}
	cancel()
	<-exited
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/georgesalomon/umarket2/internal/config"
	kafkax "github.com/georgesalomon/umarket2/internal/kafka"
	"github.com/georgesalomon/umarket2/internal/logger"
	"github.com/georgesalomon/umarket2/internal/market"
	"github.com/georgesalomon/umarket2/internal/notify"
	"github.com/georgesalomon/umarket2/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		logger.Setup("info").Error("config", "error", err)
		os.Exit(1)
	}
	log := logger.Setup(cfg.Log.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	brokers := cfg.Kafka.BrokerList()
	if len(brokers) == 0 || cfg.Redis.Addr == "" {
		log.Error("notifier needs KAFKA_BROKERS and REDIS_ADDR")
		os.Exit(1)
	}

	rdb, err := redisx.New(ctx, cfg.Redis.Addr)
	if err != nil {
		log.Error("redis connect", "addr", cfg.Redis.Addr, "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	svc := &notify.Service{
		Inbox: &redisx.Inbox{Redis: rdb},
		Dedup: &redisx.Dedup{Redis: rdb, Service: cfg.ServiceName + "-notifier"},
	}

	topics := []string{market.TopicOrderCreated, market.TopicOrderStatusChanged}
	cons := kafkax.NewConsumer(brokers, cfg.Notifier.Group, topics, cfg.Notifier.Workers)

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("notifier consumer started",
			"group", cfg.Notifier.Group, "topics", topics, "workers", cfg.Notifier.Workers)
		if err := cons.Start(ctx, svc.HandleOrderEvent); err != nil {
			log.Error("consumer exit", "error", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Info("shutting down consumer")
	case <-ctx.Done():
	}
	cancel()
	<-done
}

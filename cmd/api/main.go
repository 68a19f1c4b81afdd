package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/georgesalomon/umarket2/internal/auth"
	"github.com/georgesalomon/umarket2/internal/config"
	"github.com/georgesalomon/umarket2/internal/httpx"
	kafkax "github.com/georgesalomon/umarket2/internal/kafka"
	"github.com/georgesalomon/umarket2/internal/logger"
	"github.com/georgesalomon/umarket2/internal/postgres"
	"github.com/georgesalomon/umarket2/internal/postgrest"
	"github.com/georgesalomon/umarket2/internal/redisx"
	"github.com/georgesalomon/umarket2/internal/service"
	"github.com/georgesalomon/umarket2/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadAPI()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	log := logger.Setup(cfg.Log.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Store
	schema, err := cfg.Store.MarketSchema()
	if err != nil {
		log.Error("store schema", "error", err)
		os.Exit(1)
	}
	backend, closeBackend, err := newBackend(ctx, cfg.Store)
	if err != nil {
		log.Error("store backend", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer closeBackend()
	svc := service.New(&store.Repo{Backend: backend, Schema: schema})

	// Redis, optional
	if cfg.Redis.Addr != "" {
		rdb, err := redisx.New(ctx, cfg.Redis.Addr)
		if err != nil {
			log.Error("redis connect", "addr", cfg.Redis.Addr, "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		svc.Idempotency = &redisx.Idempotency{Redis: rdb}
		svc.Inbox = &redisx.Inbox{Redis: rdb}
	}

	// Kafka producer, optional
	var prod *kafkax.Producer
	if brokers := cfg.Kafka.BrokerList(); len(brokers) > 0 {
		prod = kafkax.NewProducer(brokers, 1024)
		prod.Start(ctx)
		svc.Events = &kafkax.Bus{Producer: prod, Service: cfg.ServiceName}
	}

	var opts []auth.Option
	if cfg.Auth.Audience != "" {
		opts = append(opts, auth.WithAudience(cfg.Auth.Audience))
	}
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, opts...)

	router := httpx.NewRouter(log, cfg.HTTP.Origins())
	(&httpx.ListingsHandler{Service: svc, Auth: verifier}).Register(router)
	(&httpx.OrdersHandler{Service: svc, Auth: verifier}).Register(router)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("http listening", "addr", cfg.HTTP.Addr,
			"backend", cfg.Store.Backend, "schema", schema.Name)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	if prod != nil {
		prod.Close() // flush buffered events
		cancel()
		prod.WaitClosed()
	}
}

func newBackend(ctx context.Context, cfg config.StoreConfig) (store.Backend, func(), error) {
	switch cfg.Backend {
	case "postgres":
		pool, err := postgres.Connect(ctx, postgres.PoolConfig{
			DSN:              cfg.DatabaseURL,
			MaxConns:         cfg.MaxConns,
			MinConns:         cfg.MinConns,
			StatementTimeout: cfg.Timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return &postgres.Backend{DB: pool}, pool.Close, nil
	default:
		c := postgrest.New(postgrest.Config{URL: cfg.URL, APIKey: cfg.APIKey, Timeout: cfg.Timeout})
		if err := c.Configured(); err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	}
}

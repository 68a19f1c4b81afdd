// Command migrate applies the embedded schema migrations to DATABASE_URL.
//
//	migrate [up|down|status|version]
package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/georgesalomon/umarket2/internal/config"
	"github.com/georgesalomon/umarket2/internal/logger"
	"github.com/georgesalomon/umarket2/internal/postgres"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		logger.Setup("info").Error("config", "error", err)
		os.Exit(1)
	}
	log := logger.Setup(cfg.Log.Level)

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	if cfg.Store.DatabaseURL == "" {
		log.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := postgres.Connect(ctx, postgres.PoolConfig{
		DSN:      cfg.Store.DatabaseURL,
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
	if err != nil {
		log.Error("db connect", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool, command); err != nil {
		log.Error("migrate", "command", command, "error", err)
		os.Exit(1)
	}
	log.Info("migrate done", "command", command)
}

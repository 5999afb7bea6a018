package main

import (
	"context"
	"os"

	"certanchor/internal/config"
	"certanchor/internal/infra/db"
	httpinfra "certanchor/internal/infra/http"
	"certanchor/internal/logging"

	"github.com/ethereum/go-ethereum/log"
)

func main() {
	cfg := config.FromEnv()
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	store, err := db.NewStore(cfg)
	if err != nil {
		log.Crit("Failed to init store", "err", err)
	}
	defer store.Close()

	srv := httpinfra.NewServer(context.Background(), cfg, store)
	defer srv.Close()
	if err := srv.Run(); err != nil {
		log.Error("Server exited", "err", err)
		os.Exit(1)
	}
}

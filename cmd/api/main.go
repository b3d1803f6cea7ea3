package main

import (
	"context"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	tclient "go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"paperlink/internal/api"
	"paperlink/internal/config"
	"paperlink/internal/storage"
)

func main() {
	_ = godotenv.Load(".env")
	log, _ := zap.NewProduction()
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	db, err := storage.Open(ctx, cfg.PostgresURL)
	cancel()
	if err != nil {
		log.Fatal("open postgres", zap.Error(err))
	}
	defer db.Close()
	if err := storage.Migrate(context.Background(), db); err != nil {
		log.Fatal("migrate schema", zap.Error(err))
	}

	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		log.Fatal("dial temporal", zap.Error(err))
	}
	defer tc.Close()

	srv, err := api.NewServer(cfg, db, tc, log)
	if err != nil {
		log.Fatal("build server", zap.Error(err))
	}
	log.Info("paperlink api listening",
		zap.String("addr", cfg.APIAddr),
		zap.String("temporal", cfg.TemporalAddress))
	if err := http.ListenAndServe(cfg.APIAddr, srv.Routes()); err != nil {
		log.Fatal("serve", zap.Error(err))
	}
}

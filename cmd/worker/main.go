package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	tclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"paperlink/internal/activities"
	"paperlink/internal/config"
	"paperlink/internal/storage"
	"paperlink/internal/workflows"
)

// The worker process polls all three lanes. Every worker can run every
// workflow and activity; the lanes exist so dispatch can prioritize, not to
// partition capability.
func main() {
	_ = godotenv.Load(".env")
	log, _ := zap.NewProduction()
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}

	c, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		log.Fatal("dial temporal", zap.Error(err))
	}
	defer c.Close()

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

	a, err := activities.New(cfg, db, log)
	if err != nil {
		log.Fatal("build activities", zap.Error(err))
	}

	queues := []string{cfg.PapersQueue, cfg.SourcesQueue, cfg.LinksQueue}
	workers := make([]worker.Worker, 0, len(queues))
	for _, queue := range queues {
		w := worker.New(c, queue, worker.Options{})
		workflows.Register(w)
		activities.Register(w, a)
		workers = append(workers, w)
		log.Info("worker lane ready", zap.String("queue", queue))
	}

	for _, w := range workers[1:] {
		if err := w.Start(); err != nil {
			log.Fatal("start worker", zap.Error(err))
		}
	}
	defer func() {
		for _, w := range workers[1:] {
			w.Stop()
		}
	}()
	if err := workers[0].Run(worker.InterruptCh()); err != nil {
		log.Fatal("run worker", zap.Error(err))
	}
}

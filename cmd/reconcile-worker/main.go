package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/princekumarofficial/impact-stories/internal/app"
	"github.com/princekumarofficial/impact-stories/internal/config"
	"github.com/princekumarofficial/impact-stories/internal/events"
	"github.com/princekumarofficial/impact-stories/internal/types"
)

// Sweeper verifies every story against object storage
type Sweeper interface {
	ReconcileAll(ctx context.Context) ([]*types.ReconcileReport, error)
}

type ReconcileWorker struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *slog.Logger
}

func NewReconcileWorker(sweeper Sweeper, interval time.Duration, logger *slog.Logger) *ReconcileWorker {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &ReconcileWorker{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
	}
}

func (rw *ReconcileWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(rw.interval)
	defer ticker.Stop()

	rw.logger.Info("Reconcile worker started",
		"interval", rw.interval.String())

	// Run once immediately on startup
	rw.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			rw.logger.Info("Reconcile worker shutting down")
			return
		case <-ticker.C:
			rw.sweep(ctx)
		}
	}
}

func (rw *ReconcileWorker) sweep(ctx context.Context) {
	startTime := time.Now()

	rw.logger.Info("Starting media reconciliation")

	reports, err := rw.sweeper.ReconcileAll(ctx)
	if err != nil {
		rw.logger.Error("Media reconciliation stopped early",
			"error", err.Error(),
			"duration_ms", time.Since(startTime).Milliseconds())
	}

	var orphans, dangling, thumbnails int
	for _, r := range reports {
		orphans += len(r.OrphanObjectsDeleted)
		dangling += len(r.DanglingMediaDropped)
		thumbnails += len(r.ThumbnailsRederived)
		for _, e := range r.Errors {
			rw.logger.Warn("Reconcile step failed", "story_id", r.StoryID, "error", e)
		}
	}

	duration := time.Since(startTime)

	rw.logger.Info("Completed media reconciliation",
		"stories_repaired", len(reports),
		"orphan_objects_deleted", orphans,
		"dangling_media_dropped", dangling,
		"thumbnails_rederived", thumbnails,
		"duration_ms", duration.Milliseconds(),
		"duration", duration.String())
}

func main() {
	// Load config
	cfg := config.MustLoad()
	logger := app.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The worker runs out of process, so there are no websocket clients to notify
	application, err := app.New(ctx, cfg, events.Nop{})
	if err != nil {
		log.Fatal("Failed to initialize application: ", err)
	}
	defer application.Close()

	worker := NewReconcileWorker(application.Stories, cfg.Worker.ReconcileInterval, logger)
	worker.Start(ctx)

	slog.Info("Reconcile worker stopped")
}

package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/calendify/server/internal/domain/events"
	"github.com/calendify/server/internal/metrics"
	"github.com/riverqueue/river"
)

// NotificationPruner deletes notifications older than cutoff while leaving
// the newest keep rows in place.
type NotificationPruner interface {
	PruneNotifications(ctx context.Context, cutoff time.Time, keep int) (int64, error)
}

type NotificationPruneArgs struct{}

func (NotificationPruneArgs) Kind() string { return JobKindNotificationPrune }

// NotificationPruneWorker trims the notifications log. The most recent
// events.NotificationLimit rows are never pruned, so the notifications
// listing is unaffected by retention.
type NotificationPruneWorker struct {
	river.WorkerDefaults[NotificationPruneArgs]
	Store     NotificationPruner
	Retention time.Duration
	Logger    *slog.Logger

	now func() time.Time
}

func (NotificationPruneWorker) Kind() string { return JobKindNotificationPrune }

func (w NotificationPruneWorker) Work(ctx context.Context, job *river.Job[NotificationPruneArgs]) error {
	if w.Store == nil {
		return fmt.Errorf("notification store not configured")
	}
	if w.Retention <= 0 {
		return fmt.Errorf("retention must be positive, got %s", w.Retention)
	}

	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now
	if w.now != nil {
		now = w.now
	}

	start := time.Now()
	cutoff := now().Add(-w.Retention)

	deleted, err := w.Store.PruneNotifications(ctx, cutoff, events.NotificationLimit)
	if err != nil {
		return fmt.Errorf("prune notifications: %w", err)
	}
	metrics.NotificationsPruned.Add(float64(deleted))

	logger.Info("notification prune completed",
		"attempt", job.Attempt,
		"cutoff", cutoff,
		"deleted_count", deleted,
		"duration_seconds", time.Since(start).Seconds(),
	)
	return nil
}

// NewWorkers registers every worker the server runs.
func NewWorkers(store NotificationPruner, retention time.Duration, logger *slog.Logger) *river.Workers {
	workers := river.NewWorkers()
	river.AddWorker(workers, &NotificationPruneWorker{
		Store:     store,
		Retention: retention,
		Logger:    logger,
	})
	return workers
}

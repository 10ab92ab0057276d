package jobs

import (
	"context"
	"log/slog"

	"github.com/calendify/server/internal/metrics"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// ErrorHandler logs failed jobs and counts them by kind. A panicking job is
// cancelled rather than retried.
type ErrorHandler struct {
	Logger *slog.Logger
}

func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{Logger: logger}
}

func (h *ErrorHandler) HandleError(ctx context.Context, job *rivertype.JobRow, err error) *river.ErrorHandlerResult {
	metrics.RiverJobFailures.WithLabelValues(job.Kind, "error").Inc()
	if h.Logger != nil {
		h.Logger.ErrorContext(ctx, "job failed",
			"job_id", job.ID,
			"kind", job.Kind,
			"attempt", job.Attempt,
			"max_attempts", job.MaxAttempts,
			"error", err,
		)
	}
	return nil
}

func (h *ErrorHandler) HandlePanic(ctx context.Context, job *rivertype.JobRow, panicVal any, trace string) *river.ErrorHandlerResult {
	metrics.RiverJobFailures.WithLabelValues(job.Kind, "panic").Inc()
	if h.Logger != nil {
		h.Logger.ErrorContext(ctx, "job panicked",
			"job_id", job.ID,
			"kind", job.Kind,
			"attempt", job.Attempt,
			"panic", panicVal,
			"trace", trace,
		)
	}
	return &river.ErrorHandlerResult{SetCancelled: true}
}

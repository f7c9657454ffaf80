package service

import (
	"context"
	"log/slog"
	"time"
)

// SessionSweeper cancels payment sessions that stayed PENDING past their TTL.
type SessionSweeper struct {
	payments PaymentService
	interval time.Duration
	logger   *slog.Logger
}

func NewSessionSweeper(payments PaymentService, interval time.Duration, logger *slog.Logger) *SessionSweeper {
	return &SessionSweeper{payments: payments, interval: interval, logger: logger}
}

// Run blocks until ctx is done.
func (w *SessionSweeper) Run(ctx context.Context) {
	if w.interval <= 0 {
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.payments.ExpireStaleSessions(ctx); err != nil {
				w.logger.ErrorContext(ctx, "session sweep failed", "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

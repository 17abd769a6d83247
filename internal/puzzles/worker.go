package puzzles

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartWorker runs the background generation loop until ctx is cancelled.
// Each tick tops up the generation queue from the stock floors and then
// drains pending tasks. Call it in its own goroutine.
func (s *Service) StartWorker(ctx context.Context) {
	interval := time.Duration(s.cfg.WorkerInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("generation worker started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("generation worker shutting down")
			return
		case <-ticker.C:
			s.EnsureStock(ctx)
			s.ProcessQueue(ctx)
		}
	}
}

package background

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/riskgate/internal/observability"
)

// Pruner removes recorded attempts older than a cutoff
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// RetentionSweeper periodically drops login attempts that fell out of the
// retention window. Retention must be at least the velocity window or
// velocity counts would be undercounted.
type RetentionSweeper struct {
	history   Pruner
	logger    *slog.Logger
	retention time.Duration
	interval  time.Duration
	timeout   time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewRetentionSweeper creates a new sweeper
func NewRetentionSweeper(
	history Pruner,
	logger *slog.Logger,
	retention time.Duration,
	interval time.Duration,
) *RetentionSweeper {
	return &RetentionSweeper{
		history:   history,
		logger:    logger,
		retention: retention,
		interval:  interval,
		timeout:   30 * time.Second,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// WithClock overrides the clock used to compute the cutoff
func (s *RetentionSweeper) WithClock(now func() time.Time) *RetentionSweeper {
	s.now = now
	return s
}

// Start runs a sweep immediately and then once per interval until Stop is
// called or ctx is cancelled
func (s *RetentionSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-s.stopCh:
			s.logger.Info("retention sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("retention sweeper context cancelled")
			return
		}
	}
}

// Sweep prunes once and returns the number of attempts removed
func (s *RetentionSweeper) Sweep(ctx context.Context) int64 {
	sweepCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cutoff := s.now().Add(-s.retention)
	removed, err := s.history.Prune(sweepCtx, cutoff)
	if err != nil {
		observability.HistoryErrors.WithLabelValues("prune").Inc()
		s.logger.Error("history retention sweep failed", slog.Any("error", err))
		return 0
	}

	if removed > 0 {
		observability.HistoryPruned.Add(float64(removed))
		s.logger.Info("history retention sweep completed",
			slog.Int64("removed", removed),
			slog.Time("cutoff", cutoff),
		)
	}
	return removed
}

// Stop signals the sweeper to stop. Safe to call more than once.
func (s *RetentionSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

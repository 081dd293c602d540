package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/BrandonDHaskell/drugbox/internal/drugbox/store"
)

// EventPruner periodically deletes event log rows older than a configured
// retention. A retention of 0 disables it and the audit trail is kept
// forever.
type EventPruner struct {
	store     store.EventStore
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
	cancel    context.CancelFunc
	done      chan struct{}
	now       func() time.Time
}

type PrunerConfig struct {
	// RetentionDays of event history to keep. 0 keeps everything.
	RetentionDays int

	// IntervalHours between runs. Defaults to 6.
	IntervalHours int
}

// NewEventPruner creates a pruner but does not start it.
func NewEventPruner(s store.EventStore, cfg PrunerConfig, logger *slog.Logger) *EventPruner {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	return &EventPruner{
		store:     s,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:  interval,
		logger:    logger,
		done:      make(chan struct{}),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start prunes once immediately, then on every interval until ctx is
// cancelled or Stop is called.
func (p *EventPruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		p.logger.Info("event pruner disabled", "retention_days", 0)
		close(p.done)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	go p.loop(ctx)

	p.logger.Info("event pruner started",
		"retention_days", int(p.retention.Hours()/24),
		"interval_hours", int(p.interval.Hours()),
	)
}

// Stop signals the loop to exit and waits for it. Safe to call twice.
func (p *EventPruner) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

func (p *EventPruner) loop(ctx context.Context) {
	defer close(p.done)

	p.PruneOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PruneOnce(ctx)
		}
	}
}

// PruneOnce deletes rows older than now minus the retention.
func (p *EventPruner) PruneOnce(ctx context.Context) int64 {
	if p.retention <= 0 {
		return 0
	}
	cutoff := p.now().Add(-p.retention)
	deleted, err := p.store.PruneEventsBefore(ctx, cutoff)
	if err != nil {
		p.logger.Error("event prune failed", "err", err)
		return 0
	}
	if deleted > 0 {
		p.logger.Info("event prune", "deleted", deleted, "cutoff", cutoff.Format(time.RFC3339))
	}
	return deleted
}

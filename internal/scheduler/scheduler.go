// Package scheduler runs the update pipeline on a fixed interval.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Checker is the pipeline entry point invoked on every tick.
type Checker interface {
	CheckPages(ctx context.Context, targetURL string) (bool, error)
}

// Scheduler periodically triggers update checks from its own goroutine so a
// slow or failing site check never stalls the interactive bot loop.
type Scheduler struct {
	checker  Checker
	log      *slog.Logger
	interval time.Duration
	cooldown time.Duration
}

// New creates a Scheduler firing every interval.
func New(checker Checker, interval time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		checker:  checker,
		log:      log,
		interval: interval,
		cooldown: time.Minute,
	}
}

// SetCooldown overrides the pause taken after a failed tick.
func (s *Scheduler) SetCooldown(d time.Duration) {
	s.cooldown = d
}

// Run starts the scheduler loop, blocking until ctx is cancelled. A failing
// tick is logged and followed by a short cooldown; the loop itself never
// terminates on a tick's error.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("scheduler started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	s.log.Debug("scheduled check starting")

	found, err := s.checker.CheckPages(ctx, "")
	if err != nil {
		s.log.Error("scheduled check failed", "error", err)
		// Pause so a persistent failure cannot hammer the site in a
		// tight loop.
		select {
		case <-ctx.Done():
		case <-time.After(s.cooldown):
		}
		return
	}

	s.log.Debug("scheduled check finished", "updates_found", found)
}

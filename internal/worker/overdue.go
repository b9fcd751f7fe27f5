// Package worker runs background jobs against the lifecycle engine.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Engine is the slice of the transition engine the sweeper needs.
type Engine interface {
	SweepOverdue(ctx context.Context, now time.Time) (int, error)
}

// OverdueSweeper periodically marks pending repayments past their due date as
// overdue. It is the only writer of the overdue status; payment itself stays a
// caller command.
type OverdueSweeper struct {
	engine Engine
	logger *slog.Logger
	cron   *cron.Cron
}

func NewOverdueSweeper(engine Engine, logger *slog.Logger) *OverdueSweeper {
	return &OverdueSweeper{engine: engine, logger: logger, cron: cron.New()}
}

// Start schedules the sweep with the given cron spec and begins running it.
func (s *OverdueSweeper) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *OverdueSweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *OverdueSweeper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	now := time.Now().UTC()
	swept, err := s.engine.SweepOverdue(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "overdue sweep failed", "error", err.Error())
		return
	}
	if swept > 0 {
		s.logger.InfoContext(ctx, "overdue sweep complete", "marked_overdue", swept)
	}
}

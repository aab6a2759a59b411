package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// SummarySchedule runs the payroll summary on a cron spec.
type SummarySchedule struct {
	cron  *cron.Cron
	sched cron.Schedule
	spec  string
}

// NewSummarySchedule parses spec (standard 5-field cron or a descriptor like @daily) and registers run.
// PRE: spec is non-empty; run is non-nil
// POST: Returns a stopped schedule; call Start to begin
func NewSummarySchedule(spec string, run func() error) (*SummarySchedule, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("can't parse summary schedule %q: %w", spec, err)
	}
	c := cron.New()
	c.Schedule(sched, cron.FuncJob(func() {
		start := time.Now()
		if err := run(); err != nil {
			slog.Error("summary_job_failed", "spec", spec, "error", err)
			return
		}
		slog.Info("summary_job_done", "spec", spec, "duration_ms", time.Since(start).Milliseconds())
	}))
	return &SummarySchedule{cron: c, sched: sched, spec: spec}, nil
}

// Start runs the scheduler in its own goroutine.
func (s *SummarySchedule) Start() {
	s.cron.Start()
	slog.Info("summary_schedule_started", "spec", s.spec, "next", s.Next(time.Now()).Format(time.RFC3339))
}

// Stop stops the scheduler; the returned context is done when a running job finishes.
func (s *SummarySchedule) Stop() context.Context {
	return s.cron.Stop()
}

// Next returns the first run time after t.
func (s *SummarySchedule) Next(t time.Time) time.Time {
	return s.sched.Next(t)
}

package service

import (
	"fmt"

	"llm-router/internal/llm-router/service/routing"
	"llm-router/pkg/logger"

	"github.com/robfig/cron/v3"
)

const DefaultStatsSchedule = "@every 5m"

// StatsReporter periodically logs a snapshot of the routing state.
type StatsReporter struct {
	cron  *cron.Cron
	state *routing.State
}

func NewStatsReporter(schedule string, state *routing.State) (*StatsReporter, error) {
	if schedule == "" {
		schedule = DefaultStatsSchedule
	}
	r := &StatsReporter{
		cron:  cron.New(),
		state: state,
	}
	if _, err := r.cron.AddFunc(schedule, r.report); err != nil {
		return nil, fmt.Errorf("invalid stats schedule %q: %w", schedule, err)
	}
	return r, nil
}

func (r *StatsReporter) Start() {
	r.cron.Start()
}

func (r *StatsReporter) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

func (r *StatsReporter) report() {
	snap := r.state.Snapshot()
	logger.Info(
		"Routing stats", "last_successful", snap.LastSuccessful,
		"failed", snap.Failed, "stats", snap.Stats,
	)
}

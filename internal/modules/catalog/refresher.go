package catalog

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultRefreshSchedule re-reads the catalog in case a live listener silently dropped.
const DefaultRefreshSchedule = "@every 2h"

// Refresher runs Synchronizer.Refresh on a cron schedule.
type Refresher struct {
	sched *cron.Cron
	sync  *Synchronizer
	log   *zap.Logger
}

// NewRefresher registers the refresh job; it does not start the scheduler.
func NewRefresher(ctx context.Context, s *Synchronizer, schedule string, log *zap.Logger) (*Refresher, error) {
	if schedule == "" {
		schedule = DefaultRefreshSchedule
	}
	if log == nil {
		log = zap.NewNop()
	}
	r := &Refresher{sched: cron.New(), sync: s, log: log}
	_, err := r.sched.AddFunc(schedule, func() {
		r.log.Info("catalog fallback refresh")
		r.sync.Refresh(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	return r, nil
}

func (r *Refresher) Start() { r.sched.Start() }

// Stop halts the scheduler and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	<-r.sched.Stop().Done()
}

// Package scheduler drives the periodic alarm check cycle.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"weatherbot/internal/dispatch"
	"weatherbot/internal/match"
	"weatherbot/internal/model"
	"weatherbot/internal/storage"
)

// AlarmSource is the upstream alarm-portal capability.
type AlarmSource interface {
	FetchLatest(ctx context.Context, count int) ([]model.Alarm, error)
	FetchDetail(ctx context.Context, alarmURL string) (model.AlarmDetail, error)
}

// Scheduler runs a 60-second outer tick that keeps the loop responsive to
// cancellation, with a coarser gate matching the portal's actual update
// cadence. A slow or failing cycle never causes immediate re-entry because
// the gate timestamp is advanced before any work starts.
type Scheduler struct {
	source     AlarmSource
	index      match.Index
	ledger     storage.Storage
	dispatcher *dispatch.Dispatcher
	log        *slog.Logger

	tick        time.Duration
	interval    time.Duration
	fetchCount  int
	lastChecked time.Time
}

// New creates a Scheduler with the default 1-minute tick and 7-minute
// check interval.
func New(source AlarmSource, index match.Index, ledger storage.Storage, dispatcher *dispatch.Dispatcher, log *slog.Logger) *Scheduler {
	return &Scheduler{
		source:     source,
		index:      index,
		ledger:     ledger,
		dispatcher: dispatcher,
		log:        log,
		tick:       1 * time.Minute,
		interval:   7 * time.Minute,
		fetchCount: 20,
	}
}

// SetTickInterval overrides the outer tick (useful for testing).
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// SetCheckInterval overrides the gate between actual checks.
func (s *Scheduler) SetCheckInterval(d time.Duration) {
	s.interval = d
}

// SetFetchCount overrides how many alarms each check pulls.
func (s *Scheduler) SetFetchCount(n int) {
	s.fetchCount = n
}

// Run starts the scheduler loop, blocking until ctx is cancelled. The loop
// itself never terminates on a failed cycle.
func (s *Scheduler) Run(ctx context.Context) {
	s.maybeCheck(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.maybeCheck(ctx)
		}
	}
}

// maybeCheck runs one check cycle when the gate interval has elapsed.
func (s *Scheduler) maybeCheck(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("alarm check panicked", "panic", r)
		}
	}()

	now := time.Now()
	if now.Sub(s.lastChecked) < s.interval {
		return
	}
	s.lastChecked = now

	s.CheckOnce(ctx)
}

// CheckOnce fetches the latest alarms and processes every one the dedup
// ledger has not consumed yet. Exported so the command layer can trigger an
// immediate check.
func (s *Scheduler) CheckOnce(ctx context.Context) {
	s.log.Info("checking weather alarms")

	alarms, err := s.source.FetchLatest(ctx, s.fetchCount)
	if err != nil {
		s.log.Error("fetch alarms", "error", err)
		return
	}
	if len(alarms) == 0 {
		s.log.Warn("no alarms returned")
		return
	}

	for _, alarm := range alarms {
		if ctx.Err() != nil {
			return
		}
		s.processAlarm(ctx, alarm)
	}
}

func (s *Scheduler) processAlarm(ctx context.Context, alarm model.Alarm) {
	consumed, err := s.ledger.IsConsumed(ctx, alarm.AlertID)
	if err != nil {
		s.log.Error("check consumed", "alert_id", alarm.AlertID, "error", err)
		return
	}
	if consumed {
		return
	}

	recipients := match.Recipients(s.index, alarm.Title)
	if len(recipients) == 0 {
		// Left unseen on purpose: the alarm is re-evaluated every cycle
		// until it ages out of the fetch window, so a subscription added
		// between cycles still catches it.
		return
	}

	detail, err := s.source.FetchDetail(ctx, alarm.URL)
	if err != nil {
		s.log.Warn("fetch alarm detail", "alert_id", alarm.AlertID, "error", err)
	}

	s.dispatcher.Dispatch(ctx, alarm, detail, recipients)

	// Marked once the alarm had at least one matched recipient, whether or
	// not every individual send succeeded. Failed sends are not retried.
	if err := s.ledger.MarkConsumed(ctx, alarm.AlertID, alarm.Title, alarm.IssueTime); err != nil {
		s.log.Error("mark consumed", "alert_id", alarm.AlertID, "error", err)
	}
}

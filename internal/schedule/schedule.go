// Package schedule triggers pipeline runs once a day at a fixed UTC time,
// and optionally when the raw files change.
//
// Missed runs are never caught up: after a restart the next run is the next
// occurrence of the configured time. A trigger that arrives while a run is in
// progress is dropped.
package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/moviepipe/moviepipe/pkg/moviepipe"
)

// TimeOfDay is a wall clock time in UTC.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// Midnight is the default daily run time.
var Midnight = TimeOfDay{}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d UTC", t.Hour, t.Minute)
}

// ParseTimeOfDay parses "HH:MM" (24 hour clock). An empty string or "@daily" is midnight.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "@daily" || s == "@midnight" {
		return Midnight, nil
	}

	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("schedule time %q: want HH:MM: %w", s, moviepipe.ErrInvalidConfig)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("schedule time %q: hour must be 0-23: %w", s, moviepipe.ErrInvalidConfig)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || len(mm) != 2 {
		return TimeOfDay{}, fmt.Errorf("schedule time %q: minute must be 00-59: %w", s, moviepipe.ErrInvalidConfig)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

// Next returns the first occurrence of t strictly after now.
func (t TimeOfDay) Next(now time.Time) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), t.Hour, t.Minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// RunFunc executes one pipeline run.
type RunFunc func(ctx context.Context) error

// Scheduler owns the trigger loop. Runs never overlap.
type Scheduler struct {
	at       TimeOfDay
	run      RunFunc
	logger   moviepipe.Logger
	triggers chan string

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// New creates a Scheduler that calls run daily at at.
func New(at TimeOfDay, run RunFunc, logger moviepipe.Logger) *Scheduler {
	return &Scheduler{
		at:       at,
		run:      run,
		logger:   logger,
		triggers: make(chan string, 1),
		now:      time.Now,
		after:    time.After,
	}
}

// Trigger requests an immediate run. It returns false if a request is
// already pending; the request is then dropped.
func (s *Scheduler) Trigger(reason string) bool {
	select {
	case s.triggers <- reason:
		return true
	default:
		return false
	}
}

// Start runs the trigger loop until ctx is done, then waits for an in-flight
// run to return. With runNow the first run starts immediately.
func (s *Scheduler) Start(ctx context.Context, runNow bool) error {
	done := make(chan struct{})
	running := false

	fire := func(reason string) {
		if running {
			s.logger.Info("Run in progress, dropping %s trigger", reason)
			return
		}
		running = true
		s.logger.Info("Starting run (%s)", reason)
		go func() {
			defer func() { done <- struct{}{} }()
			if err := s.run(ctx); err != nil {
				s.logger.Error("Scheduled run failed: %v", err)
			}
		}()
	}

	if runNow {
		fire("run-now")
	}

	for {
		next := s.at.Next(s.now())
		s.logger.Info("Next run at %s", next.Format(time.RFC3339))
		tick := s.after(next.Sub(s.now()))

	wait:
		for {
			select {
			case <-ctx.Done():
				if running {
					s.logger.Info("Waiting for the current run to stop")
					<-done
				}
				return nil
			case <-done:
				running = false
			case reason := <-s.triggers:
				fire(reason)
			case <-tick:
				fire("schedule")
				break wait
			}
		}
	}
}

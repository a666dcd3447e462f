package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"IncidentScanner/internal/ports"
)

// DailyScheduler fires a job once per day at a fixed wall-clock time.
type DailyScheduler struct {
	hour     int
	minute   int
	location *time.Location
	now      func() time.Time

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

var _ ports.Scheduler = (*DailyScheduler)(nil)

// NewDailyScheduler parses runAt ("HH:MM") in the named time zone.
func NewDailyScheduler(runAt, timezone string) (*DailyScheduler, error) {
	clock, err := time.Parse("15:04", runAt)
	if err != nil {
		return nil, fmt.Errorf("parse run time %q: %w", runAt, err)
	}

	loc := time.UTC
	if timezone != "" {
		if loc, err = time.LoadLocation(timezone); err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
		}
	}

	return &DailyScheduler{
		hour:     clock.Hour(),
		minute:   clock.Minute(),
		location: loc,
		now:      time.Now,
	}, nil
}

// NextRun returns the first trigger strictly after now.
func (d *DailyScheduler) NextRun(now time.Time) time.Time {
	local := now.In(d.location)
	next := time.Date(local.Year(), local.Month(), local.Day(), d.hour, d.minute, 0, 0, d.location)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Start launches the trigger loop in the background.
func (d *DailyScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return nil
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	d.stop, d.done = stop, done

	go func() {
		defer close(done)
		for {
			wait := d.NextRun(d.now()).Sub(d.now())
			timer := time.NewTimer(wait)
			select {
			case t := <-timer.C:
				job(t.UTC())
			case <-ctx.Done():
				timer.Stop()
				return
			case <-stop:
				timer.Stop()
				return
			}
		}
	}()

	return nil
}

// Stop halts the trigger loop and waits for a running job to return.
func (d *DailyScheduler) Stop(ctx context.Context) error {
	d.mu.Lock()
	stop, done := d.stop, d.done
	d.stop, d.done = nil, nil
	d.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Spec is the weekly day/time/timezone trigger specification. It is
// immutable for the process lifetime.
type Spec struct {
	Weekday time.Weekday
	Hour    int
	Minute  int
	TZ      *time.Location
}

// NextFire computes the next instant satisfying the spec, strictly after
// now. When now falls on the target day past the target time, the fire
// rolls to next week.
func NextFire(now time.Time, spec Spec) (time.Time, error) {
	expr := fmt.Sprintf("CRON_TZ=%s %d %d * * %d",
		spec.TZ.String(), spec.Minute, spec.Hour, int(spec.Weekday))
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("schedule spec %q: %w", expr, err)
	}
	return sched.Next(now), nil
}

// Run drives the Idle -> Running -> Idle loop: suspend until the next fire
// instant, execute one cycle, recompute, indefinitely. Cancellation is
// honored only while suspended; a running cycle always runs to completion.
func Run(ctx context.Context, log *slog.Logger, spec Spec, cycle func(context.Context)) error {
	for {
		next, err := NextFire(time.Now(), spec)
		if err != nil {
			return err
		}
		log.Info("next cycle scheduled",
			slog.Time("at", next),
			slog.Duration("in", time.Until(next).Round(time.Second)),
		)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info("scheduler stopping")
			return nil
		case <-timer.C:
		}

		cycle(context.WithoutCancel(ctx))
	}
}

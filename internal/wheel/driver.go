package wheel

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	logx "delaytimer/pkg/logx"
)

// EmitFunc receives one due task id per call, together with the tick instant
// that made it due. It may block (backpressure): firing is then delayed, never
// dropped.
type EmitFunc func(ctx context.Context, id uint64, at time.Time)

// Driver advances a Wheel in lockstep with the wall clock.
type Driver struct {
	clock clockwork.Clock
	wheel *Wheel
	emit  EmitFunc
	log   logx.Logger
}

func NewDriver(clock clockwork.Clock, w *Wheel, emit EmitFunc, log logx.Logger) *Driver {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Driver{clock: clock, wheel: w, emit: emit, log: log}
}

// Run ticks the wheel once per whole-second boundary until ctx is cancelled.
//
// The loop sleeps to the next boundary; a late wake of k full ticks processes
// k ticks back-to-back so delayed firings are emitted in monotonic order. A
// sub-second early wake is absorbed by re-sleeping.
func (d *Driver) Run(ctx context.Context) error {
	next := d.clock.Now().Truncate(time.Second).Add(time.Second)

	for {
		now := d.clock.Now()
		if now.Before(next) {
			timer := d.clock.NewTimer(next.Sub(now))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.Chan():
			}
			// Re-check the clock: the timer may fire marginally early.
			continue
		}

		// Process every boundary we have passed, one tick each.
		for !next.After(d.clock.Now()) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			due := d.wheel.Tick()
			for _, id := range due {
				d.emit(ctx, id, next)
			}
			if len(due) > 0 && d.log.Enabled(logx.LevelTrace) {
				d.log.Trace("tick emitted", logx.Time("at", next), logx.Int("due", len(due)))
			}
			next = next.Add(time.Second)
		}
	}
}

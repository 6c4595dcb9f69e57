// Package loop drives the dashboard: one sample, estimate, rank and draw per
// tick, on a single goroutine, until the context is cancelled.
package loop

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	ssmerrors "github.com/sourcli/ssm/internal/errors"
	"github.com/sourcli/ssm/internal/logger"
	"github.com/sourcli/ssm/internal/model"
	"github.com/sourcli/ssm/internal/rank"
	"github.com/sourcli/ssm/internal/rate"
)

// State is the controller lifecycle.
type State int32

const (
	Idle State = iota
	Running
	ShuttingDown
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting-down"
	case Terminated:
		return "terminated"
	}
	return "unknown"
}

// ErrAlreadyStarted is returned by a second call to Run.
var ErrAlreadyStarted = errors.New("loop already started")

// Sampler produces one snapshot per call.
type Sampler interface {
	Sample(ctx context.Context) (model.Snapshot, error)
}

// Presenter consumes one report per tick and owns its output. Close is
// called exactly once when the loop stops, whatever the reason.
type Presenter interface {
	Present(ctx context.Context, r model.Report) error
	Close() error
}

// Options configures the tick cadence and ranking.
type Options struct {
	Interval time.Duration
	TopK     int
	Rank     rank.Options
	// MaxTicks stops the loop after that many ticks. Zero runs until cancelled.
	MaxTicks uint64
}

// Controller runs the refresh loop.
type Controller struct {
	sampler   Sampler
	presenter Presenter
	opts      Options
	log       logger.Logger

	state atomic.Int32
	rates rate.State
	tick  uint64

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool
}

// New creates an idle controller.
func New(s Sampler, p Presenter, opts Options, log logger.Logger) *Controller {
	if log == nil {
		log = logger.Noop()
	}
	return &Controller{
		sampler:   s,
		presenter: p,
		opts:      opts,
		log:       log,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State { return State(c.state.Load()) }

// Run ticks until ctx is cancelled, MaxTicks is reached, or a fatal error
// occurs. Cancellation is a clean exit and returns nil. The presenter is
// closed on every path out.
func (c *Controller) Run(ctx context.Context) (err error) {
	if !c.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return ErrAlreadyStarted
	}
	started := c.now()
	c.log.Debug("loop started, interval %s", c.opts.Interval)

	defer func() {
		c.state.Store(int32(ShuttingDown))
		if cerr := c.presenter.Close(); cerr != nil && err == nil {
			err = cerr
		}
		c.state.Store(int32(Terminated))
		c.log.Debug("loop terminated after %d ticks", c.tick)
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		begin := c.now()
		if err := c.step(ctx, started); err != nil {
			if ctx.Err() != nil {
				// interrupted mid-tick, the partial tick is dropped
				return nil
			}
			if ssmerrors.IsFatal(err) {
				c.log.Error("stopping: %v", err)
				return err
			}
			c.log.Warn("tick %d: %v", c.tick, err)
		}

		if c.opts.MaxTicks > 0 && c.tick >= c.opts.MaxTicks {
			return nil
		}

		wait := c.opts.Interval - c.now().Sub(begin)
		if wait < 0 {
			c.log.Debug("tick overran interval by %s", -wait)
			wait = 0
		}
		if !c.sleep(ctx, wait) {
			return nil
		}
	}
}

// step runs one tick. A snapshot that comes back with a PROVIDER error is
// still presented; its fields are already marked unavailable.
func (c *Controller) step(ctx context.Context, started time.Time) error {
	snap, sampleErr := c.sampler.Sample(ctx)
	if sampleErr != nil {
		if ctx.Err() != nil || ssmerrors.IsFatal(sampleErr) {
			return sampleErr
		}
	}

	rates := rate.Estimate(snap, &c.rates)
	c.tick++
	report := model.Report{
		Tick:     c.tick,
		Started:  started,
		Snapshot: snap,
		Rates:    rates,
		Total:    rate.Total(rates),
		Top:      rank.Rank(snap.Processes, c.opts.TopK, c.opts.Rank),
	}

	if err := c.presenter.Present(ctx, report); err != nil {
		return err
	}
	return sampleErr
}

// sleepCtx waits for d or until ctx is done. It reports whether the full
// wait elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tstr-dev/tstr/pkg/domain/types"
	"github.com/tstr-dev/tstr/pkg/utils/errutil"
	"github.com/tstr-dev/tstr/pkg/utils/logging"
	"github.com/tstr-dev/tstr/pkg/utils/metrics"
)

// IterationFunc runs one iteration of a loop. Returning true schedules the
// next iteration immediately instead of after the interval.
type IterationFunc func(ctx context.Context) (bool, error)

type Loop struct {
	Name     string
	Interval time.Duration
	Run      IterationFunc
}

type runner struct {
	loop Loop
	stop chan struct{}
	done chan struct{}
}

// Supervisor owns the background loops. Loops start in the given order and
// stop in reverse order.
type Supervisor struct {
	mu      sync.Mutex
	runners []*runner
	started bool
	stopped bool
}

func New(loops ...Loop) *Supervisor {
	x := &Supervisor{}
	for _, loop := range loops {
		x.runners = append(x.runners, &runner{
			loop: loop,
			stop: make(chan struct{}),
			done: make(chan struct{}),
		})
	}
	return x
}

// Start launches every loop. It may be called once.
func (x *Supervisor) Start(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.started {
		return goerr.Wrap(types.ErrInvalidOption, "supervisor already started")
	}
	for _, r := range x.runners {
		if r.loop.Run == nil || r.loop.Interval <= 0 {
			return goerr.Wrap(types.ErrInvalidOption, "invalid loop",
				goerr.V("name", r.loop.Name), goerr.V("interval", r.loop.Interval))
		}
	}
	x.started = true

	for _, r := range x.runners {
		go r.serve(ctx)
		logging.From(ctx).Info("loop started",
			slog.String("loop", r.loop.Name),
			slog.Duration("interval", r.loop.Interval),
		)
	}
	return nil
}

// Stop prevents further iterations and waits, loop by loop in reverse start
// order, for an iteration in flight to complete.
func (x *Supervisor) Stop() {
	x.mu.Lock()
	defer x.mu.Unlock()

	if !x.started || x.stopped {
		return
	}
	x.stopped = true

	for i := len(x.runners) - 1; i >= 0; i-- {
		r := x.runners[i]
		close(r.stop)
		<-r.done
		logging.Default().Info("loop stopped", slog.String("loop", r.loop.Name))
	}
}

func (r *runner) serve(ctx context.Context) {
	defer close(r.done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-timer.C:
		}

		// Stop must not interrupt an iteration, so it runs detached from
		// cancellation of ctx.
		more := r.iterate(context.WithoutCancel(ctx))

		next := r.loop.Interval
		if more {
			next = 0
		}
		timer.Reset(next)
	}
}

func (r *runner) iterate(ctx context.Context) bool {
	more, err := r.loop.Run(ctx)
	if err != nil {
		metrics.LoopErrors.WithLabelValues(r.loop.Name, errutil.Kind(err)).Inc()
		errutil.HandleError(ctx, r.loop.Name+" iteration failed", err)
		return false
	}
	return more
}

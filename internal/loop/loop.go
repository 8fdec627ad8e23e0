// Package loop drives the simulate-then-draw cycle one frame at a time.
package loop

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/msalah0e/meshview/internal/layout"
	"github.com/msalah0e/meshview/internal/render"
)

// ErrNoSurface is returned by Start when there is nothing to draw on.
var ErrNoSurface = errors.New("loop: no drawing surface")

// Clock is the monotonic time source frames are measured against.
type Clock interface {
	Now() time.Time
}

// Scheduler blocks until the next frame may run. It is the loop's only
// suspension point.
type Scheduler interface {
	Wait(ctx context.Context) error
}

// SystemClock reads the wall clock (monotonic reading included).
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// TickerScheduler paces frames on a fixed interval.
type TickerScheduler struct {
	ticker *time.Ticker
}

// NewTickerScheduler creates a scheduler firing every interval. Call Stop
// when done with it.
func NewTickerScheduler(interval time.Duration) *TickerScheduler {
	return &TickerScheduler{ticker: time.NewTicker(interval)}
}

func (t *TickerScheduler) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.ticker.C:
		return nil
	}
}

// Stop releases the ticker.
func (t *TickerScheduler) Stop() {
	t.ticker.Stop()
}

// Handle controls a running loop.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	frames atomic.Uint64
	err    error
}

// Stop cancels the loop and waits for an in-flight frame to finish. After
// Stop returns no further frame will run. Stop is safe to call repeatedly.
func (h *Handle) Stop() {
	h.once.Do(h.cancel)
	<-h.done
}

// Done is closed when the loop has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Frames reports how many frames have completed.
func (h *Handle) Frames() uint64 {
	return h.frames.Load()
}

// Err returns the error that ended the loop, if any. Valid after Done.
func (h *Handle) Err() error {
	return h.err
}

// Start runs frames against net on surface until ctx is done or Stop is
// called. The first frame runs before Start returns; if it cannot be
// presented, Start returns that error and no loop is left running. All
// layout and camera state is fresh for each Start.
func Start(ctx context.Context, net layout.Network, surface render.Surface, width, height int, opts Options) (*Handle, error) {
	if isNil(surface) {
		return nil, ErrNoSurface
	}
	opts = opts.withDefaults()

	var ticker *TickerScheduler
	if opts.Scheduler == nil {
		ticker = NewTickerScheduler(DefaultFrameInterval)
		opts.Scheduler = ticker
	}

	runner := NewRunner(net, surface, width, height, opts)
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	first := runner.Frame(opts.Clock.Now())
	h.frames.Add(1)
	if first.PresentErr != nil {
		cancel()
		if ticker != nil {
			ticker.Stop()
		}
		return nil, fmt.Errorf("loop: first frame: %w", first.PresentErr)
	}

	go func() {
		defer close(h.done)
		if ticker != nil {
			defer ticker.Stop()
		}
		for {
			if ctx.Err() != nil {
				return
			}
			if err := opts.Scheduler.Wait(ctx); err != nil {
				if !errors.Is(err, context.Canceled) {
					h.err = err
				}
				return
			}
			// Cancellation may have landed while we waited.
			if ctx.Err() != nil {
				return
			}
			stats := runner.Frame(opts.Clock.Now())
			h.frames.Add(1)
			if stats.PresentErr != nil {
				h.err = stats.PresentErr
				cancel()
				return
			}
		}
	}()

	return h, nil
}

// isNil also catches a nil pointer stored in the interface.
func isNil(s render.Surface) bool {
	if s == nil {
		return true
	}
	v := reflect.ValueOf(s)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

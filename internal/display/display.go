// Package display mounts the render loop into a resizable container and
// keeps it running across resizes and manual restarts.
package display

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/msalah0e/meshview/internal/layout"
	"github.com/msalah0e/meshview/internal/loop"
	"github.com/msalah0e/meshview/internal/render"
)

// DefaultSettle is how long resize notifications must stay quiet before the
// loop is rebuilt at the new size.
const DefaultSettle = 500 * time.Millisecond

// Container is whatever the view is mounted in. Its size is measured again on
// every restart.
type Container interface {
	Size() (width, height int)
}

// SurfaceFactory creates a drawing surface for the given canvas size.
type SurfaceFactory func(width, height int) (render.Surface, error)

// Options configures a Display.
type Options struct {
	Settle time.Duration
	Loop   loop.Options
	// OnStart is called after each successful (re)start with the canvas size.
	OnStart func(width, height int)
}

// Display owns at most one running loop at a time.
type Display struct {
	net        layout.Network
	container  Container
	newSurface SurfaceFactory
	opts       Options

	frames   atomic.Uint64
	restarts atomic.Uint64
}

func New(net layout.Network, container Container, newSurface SurfaceFactory, opts Options) *Display {
	if opts.Settle <= 0 {
		opts.Settle = DefaultSettle
	}
	return &Display{
		net:        net,
		container:  container,
		newSurface: newSurface,
		opts:       opts,
	}
}

// Run starts the loop and blocks until ctx is done or the loop fails. A
// burst of resize notifications causes one restart once the burst settles;
// a restart notification rebuilds immediately. The old loop is always fully
// stopped before the new one starts.
func (d *Display) Run(ctx context.Context, resize <-chan struct{}, restart <-chan struct{}) error {
	h, err := d.start(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if h != nil {
			h.Stop()
			d.frames.Add(h.Frames())
		}
	}()

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.Done():
			if err := h.Err(); err != nil {
				return fmt.Errorf("display: %w", err)
			}
			return nil
		case <-resize:
			settle = time.After(d.opts.Settle)
		case <-settle:
			settle = nil
			if h, err = d.restart(ctx, h); err != nil {
				return err
			}
		case <-restart:
			settle = nil
			if h, err = d.restart(ctx, h); err != nil {
				return err
			}
		}
	}
}

// Frames reports frames drawn by loops that have been stopped. After Run
// returns it covers the whole run.
func (d *Display) Frames() uint64 {
	return d.frames.Load()
}

// Restarts reports how many times the loop has been rebuilt.
func (d *Display) Restarts() uint64 {
	return d.restarts.Load()
}

func (d *Display) restart(ctx context.Context, old *loop.Handle) (*loop.Handle, error) {
	old.Stop()
	d.frames.Add(old.Frames())
	h, err := d.start(ctx)
	if err != nil {
		return nil, err
	}
	d.restarts.Add(1)
	return h, nil
}

func (d *Display) start(ctx context.Context) (*loop.Handle, error) {
	w, h := d.container.Size()
	surface, err := d.newSurface(w, h)
	if err != nil {
		return nil, fmt.Errorf("display: creating %dx%d surface: %w", w, h, err)
	}
	handle, err := loop.Start(ctx, d.net, surface, w, h, d.opts.Loop)
	if err != nil {
		return nil, fmt.Errorf("display: %w", err)
	}
	if d.opts.OnStart != nil {
		d.opts.OnStart(w, h)
	}
	return handle, nil
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/msalah0e/meshview/internal/activity"
	"github.com/msalah0e/meshview/internal/config"
	"github.com/msalah0e/meshview/internal/display"
	"github.com/msalah0e/meshview/internal/layout"
	"github.com/msalah0e/meshview/internal/loop"
	"github.com/msalah0e/meshview/internal/mesh"
	"github.com/msalah0e/meshview/internal/render"
	"github.com/msalah0e/meshview/internal/render/term"
	"github.com/msalah0e/meshview/internal/screen"
	"github.com/msalah0e/meshview/internal/session"
	"github.com/msalah0e/meshview/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const sizePollInterval = 250 * time.Millisecond

func watchCmd() *cobra.Command {
	var nodes int

	cmd := &cobra.Command{
		Use:     "watch",
		Aliases: []string{"live"},
		Short:   "Live view of a local ring in the terminal",
		Long: ui.Brand.Sprint(ui.Ring+" meshview watch") + " — animated ring in your terminal\n\n" +
			"Keys: + or = add a node, - kick a node, r restart the view, q quit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("nodes") {
				cfg.Mesh.InitialNodes = nodes
			}
			return runWatch(cfg)
		},
	}

	cmd.Flags().IntVarP(&nodes, "nodes", "n", 0, "Initial ring size (default from config)")

	return cmd
}

func runWatch(cfg *config.Config) error {
	ring := newRing(cfg)
	for i := 0; i < cfg.Mesh.InitialNodes; i++ {
		if _, err := ring.Add(); err != nil {
			return fmt.Errorf("seeding ring: %w", err)
		}
	}

	opts, err := loop.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	opts.Style = term.Palette(opts.Style)
	opts.OnDefect = newDefectLog(defectLogInterval).report
	ticker := loop.NewTickerScheduler(time.Duration(cfg.Loop.FrameIntervalMS) * time.Millisecond)
	defer ticker.Stop()
	opts.Scheduler = ticker

	scr, err := screen.Open()
	if err != nil {
		return err
	}
	defer scr.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	run := session.Start("watch")
	var peak atomic.Int64
	status := func() string {
		n := ring.Len()
		if int64(n) > peak.Load() {
			peak.Store(int64(n))
		}
		return fmt.Sprintf("nodes %d  |  + add  - kick  r restart  q quit", n)
	}
	view := display.New(ring, scr, func(w, h int) (render.Surface, error) {
		cols, rows := w/term.CellWidth, h/term.CellHeight
		return &statusSurface{Surface: term.New(cols, rows, scr.Out()), scr: scr, text: status}, nil
	}, display.Options{
		Settle: time.Duration(cfg.Loop.ResizeSettleMS) * time.Millisecond,
		Loop:   opts,
		OnStart: func(w, h int) {
			_ = activity.Logf(activity.ActionRestart, "", "canvas %dx%d", w, h)
		},
	})

	resize := make(chan struct{})
	restart := make(chan struct{})
	keys := scr.Keys()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ring.Run(ctx, time.Duration(cfg.Mesh.StabilizeIntervalMS)*time.Millisecond)
	})
	g.Go(func() error {
		return screen.WatchSize(ctx, sizePollInterval, scr.Size, resize)
	})
	g.Go(func() error {
		defer cancel()
		return view.Run(ctx, resize, restart)
	})
	g.Go(func() error {
		defer cancel()
		return handleKeys(ctx, keys, ring, restart)
	})

	err = g.Wait()
	run.ObserveNodes(int(peak.Load()))
	_ = session.End(run, view.Frames(), view.Restarts(), err)
	_ = activity.Logf(activity.ActionStop, "", "ring size %d after %d frames", ring.Len(), view.Frames())
	return err
}

// newRing builds the local mesh and records membership changes in the event
// log.
func newRing(cfg *config.Config) *mesh.Local {
	return mesh.New(
		mesh.WithLinger(time.Duration(cfg.Mesh.DeadLingerMS)*time.Millisecond),
		mesh.WithEventHook(func(event string, n *mesh.Node) {
			_ = activity.Log(event, n.String(), "")
		}),
	)
}

const defectLogInterval = time.Second

// defectLog writes at most one numeric defect per interval to the event log
// and counts the ones it skipped.
type defectLog struct {
	mu         sync.Mutex
	every      time.Duration
	now        func() time.Time
	write      func(node, details string) error
	last       time.Time
	suppressed int
}

func newDefectLog(every time.Duration) *defectLog {
	return &defectLog{
		every: every,
		now:   time.Now,
		write: func(node, details string) error {
			return activity.Log(activity.ActionDefect, node, details)
		},
	}
}

func (l *defectLog) report(d layout.Defect) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.now()
	if !l.last.IsZero() && t.Sub(l.last) < l.every {
		l.suppressed++
		return
	}
	details := d.Error()
	if l.suppressed > 0 {
		details = fmt.Sprintf("%s (%d more since last report)", details, l.suppressed)
	}
	l.last = t
	l.suppressed = 0

	var node string
	if d.On != nil {
		node = mesh.ShortID(d.On.ID())
	}
	_ = l.write(node, details)
}

// handleKeys applies key presses until quit, ctx is done or input ends.
func handleKeys(ctx context.Context, keys <-chan byte, ring *mesh.Local, restart chan<- struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case k, ok := <-keys:
			if !ok {
				return nil
			}
			switch k {
			case 'q', 'Q', screen.KeyCtrlC:
				return nil
			case '+', '=':
				if _, err := ring.Add(); err != nil {
					return fmt.Errorf("adding node: %w", err)
				}
			case '-', '_':
				ring.Kick()
			case 'r', 'R':
				select {
				case restart <- struct{}{}:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}

// statusSurface repaints the status row after every frame, from the loop's
// own goroutine so frame and status output never interleave.
type statusSurface struct {
	*term.Surface
	scr  *screen.Screen
	text func() string
}

func (s *statusSurface) Present() error {
	if err := s.Surface.Present(); err != nil {
		return err
	}
	return s.scr.Status(s.text())
}

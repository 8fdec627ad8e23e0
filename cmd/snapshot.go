package cmd

import (
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/msalah0e/meshview/internal/activity"
	"github.com/msalah0e/meshview/internal/config"
	"github.com/msalah0e/meshview/internal/loop"
	"github.com/msalah0e/meshview/internal/mesh"
	"github.com/msalah0e/meshview/internal/parallel"
	"github.com/msalah0e/meshview/internal/render/raster"
	"github.com/msalah0e/meshview/internal/session"
	"github.com/msalah0e/meshview/internal/ui"
	"github.com/spf13/cobra"
)

type snapshotOptions struct {
	frames   int
	every    int
	stepMS   int
	width    int
	height   int
	nodes    int
	churn    int
	seed     uint64
	fontSize float64
	outDir   string
	jobs     int
}

func snapshotCmd() *cobra.Command {
	var o snapshotOptions

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Render a simulated ring to PNG files without a terminal",
		Long: ui.Brand.Sprint(ui.Ring+" meshview snapshot") + " — headless rendering\n\n" +
			"Runs the layout on a simulated clock and writes every --every-th frame as PNG.\n" +
			"The same --seed always produces the same images.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("nodes") {
				o.nodes = cfg.Mesh.InitialNodes
			}
			return runSnapshot(cmd.Context(), cfg, o)
		},
	}

	f := cmd.Flags()
	f.IntVar(&o.frames, "frames", 600, "Number of frames to simulate")
	f.IntVar(&o.every, "every", 60, "Write every Nth frame (the last frame is always written)")
	f.IntVar(&o.stepMS, "step-ms", 16, "Simulated milliseconds per frame")
	f.IntVar(&o.width, "width", 1280, "Image width in pixels")
	f.IntVar(&o.height, "height", 720, "Image height in pixels")
	f.IntVarP(&o.nodes, "nodes", "n", 0, "Initial ring size (default from config)")
	f.IntVar(&o.churn, "churn", 0, "Kick one node and add one every N frames (0 disables)")
	f.Uint64Var(&o.seed, "seed", 1, "Random seed for node identifiers and start positions")
	f.Float64Var(&o.fontSize, "font-size", 12, "Label size in points")
	f.StringVarP(&o.outDir, "out", "o", "frames", "Output directory")
	f.IntVarP(&o.jobs, "jobs", "j", runtime.NumCPU(), "Parallel PNG encoders")

	return cmd
}

func (o snapshotOptions) validate() error {
	switch {
	case o.frames < 1:
		return fmt.Errorf("--frames must be at least 1")
	case o.every < 1:
		return fmt.Errorf("--every must be at least 1")
	case o.stepMS < 1:
		return fmt.Errorf("--step-ms must be at least 1")
	case o.nodes < 0 || o.churn < 0:
		return fmt.Errorf("--nodes and --churn cannot be negative")
	}
	return nil
}

func runSnapshot(ctx context.Context, cfg *config.Config, o snapshotOptions) error {
	if err := o.validate(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := os.MkdirAll(o.outDir, 0o755); err != nil {
		return err
	}

	ui.Banner("snapshot")

	run := session.Start("snapshot")
	w := newFrameWriter(ctx, o.outDir, o.jobs, os.Stdout)
	peak, err := simulate(cfg, o, w.add)
	if err == nil {
		err = w.flush()
	}
	run.ObserveNodes(peak)
	_ = session.End(run, uint64(o.frames), 0, err)
	if err != nil {
		return err
	}

	_ = activity.Logf(activity.ActionSnap, "", "%d frames, %d images in %s (seed %d)", o.frames, w.written, o.outDir, o.seed)
	fmt.Printf("\n  %s %d images written to %s\n", ui.StatusIcon(true), w.written, o.outDir)
	return nil
}

// frameWriter encodes captured frames as PNG in batches, so at most one
// batch of images is held while the simulation runs.
type frameWriter struct {
	ctx      context.Context
	dir      string
	size     int
	progress io.Writer

	batch   []parallel.Task
	written int
}

func newFrameWriter(ctx context.Context, dir string, size int, progress io.Writer) *frameWriter {
	if size < 1 {
		size = 1
	}
	return &frameWriter{ctx: ctx, dir: dir, size: size, progress: progress}
}

func (w *frameWriter) add(fr capturedFrame) error {
	path := filepath.Join(w.dir, fmt.Sprintf("frame-%05d.png", fr.index))
	img := fr.img
	w.batch = append(w.batch, parallel.Task{
		Name: filepath.Base(path),
		Fn: func(context.Context) (string, error) {
			return writePNG(path, img)
		},
	})
	if len(w.batch) >= w.size {
		return w.flush()
	}
	return nil
}

// flush encodes the pending batch and releases its images.
func (w *frameWriter) flush() error {
	if len(w.batch) == 0 {
		return nil
	}
	results := parallel.Run(w.ctx, w.batch, w.size, w.progress)
	w.batch = nil
	for _, r := range results {
		if r.OK {
			w.written++
		}
	}
	return parallel.FirstError(results)
}

type capturedFrame struct {
	index int
	img   *image.RGBA
}

// simulate runs the ring and layout on a simulated clock, handing each frame
// to keep to capture as soon as it is drawn, and returns the largest ring
// size seen. Stabilization runs at the configured interval of simulated time.
func simulate(cfg *config.Config, o snapshotOptions, capture func(capturedFrame) error) (int, error) {
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }

	var seedKey [32]byte
	binary.LittleEndian.PutUint64(seedKey[:], o.seed)
	ring := mesh.New(
		mesh.WithRand(rand.New(rand.NewPCG(o.seed, 1))),
		mesh.WithEntropy(rand.NewChaCha8(seedKey)),
		mesh.WithClock(clock),
		mesh.WithLinger(time.Duration(cfg.Mesh.DeadLingerMS)*time.Millisecond),
	)
	for i := 0; i < o.nodes; i++ {
		if _, err := ring.Add(); err != nil {
			return 0, err
		}
	}

	surface, err := raster.New(o.width, o.height, o.fontSize)
	if err != nil {
		return 0, err
	}
	opts, err := loop.OptionsFromConfig(cfg)
	if err != nil {
		return 0, err
	}
	opts.Rand = rand.New(rand.NewPCG(o.seed, 2))
	opts.OnDefect = newDefectLog(defectLogInterval).report
	runner := loop.NewRunner(ring, surface, o.width, o.height, opts)

	step := time.Duration(o.stepMS) * time.Millisecond
	stabilizeEvery := cfg.Mesh.StabilizeIntervalMS / o.stepMS
	if stabilizeEvery < 1 {
		stabilizeEvery = 1
	}

	var peak int
	for i := 0; i < o.frames; i++ {
		if o.churn > 0 && i > 0 && i%o.churn == 0 {
			ring.Kick()
			if _, err := ring.Add(); err != nil {
				return 0, err
			}
		}
		if i%stabilizeEvery == 0 {
			ring.Stabilize()
		}

		stats := runner.Frame(clock())
		peak = max(peak, stats.Nodes)
		if (i+1)%o.every == 0 || i == o.frames-1 {
			if err := capture(capturedFrame{index: i + 1, img: surface.Snapshot()}); err != nil {
				return peak, err
			}
		}
		now = now.Add(step)
	}
	return peak, nil
}

func writePNG(path string, img image.Image) (string, error) {
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", fmt.Errorf("encoding %s: %w", path, err)
	}
	info, err := f.Stat()
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d KiB", (info.Size()+1023)/1024), nil
}

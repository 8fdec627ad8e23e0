package loop

import (
	"math/rand/v2"
	"time"

	"github.com/msalah0e/meshview/internal/config"
	"github.com/msalah0e/meshview/internal/layout"
	"github.com/msalah0e/meshview/internal/render"
	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultFrameInterval is roughly one display refresh at 60 Hz.
const DefaultFrameInterval = 16 * time.Millisecond

// Options configures a loop. Zero fields take defaults.
type Options struct {
	Params      layout.Params
	ChangeScale float64
	MaxDelta    float64
	Style       render.Style
	Clock       Clock
	Scheduler   Scheduler
	Rand        *rand.Rand
	OnDefect    func(layout.Defect)
}

// OptionsFromConfig builds loop options from a validated config.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	if err := cfg.Validate(); err != nil {
		return Options{}, err
	}
	style, err := render.StyleFromConfig(cfg.Render)
	if err != nil {
		return Options{}, err
	}
	p := cfg.Physics
	return Options{
		Params: layout.Params{
			InteractionScale:      p.InteractionScale,
			ConnectivityScale:     p.ConnectivityScale,
			RestDistance:          p.RestDistance,
			RestDistanceConnected: p.RestDistanceConnected,
			MaxForce:              p.MaxForce,
			NodeRadius:            cfg.Render.NodeRadius,
		},
		ChangeScale: cfg.Camera.ChangeScale,
		MaxDelta:    cfg.Camera.MaxDelta,
		Style:       style,
	}, nil
}

func (o Options) withDefaults() Options {
	if o.Params == (layout.Params{}) {
		o.Params = layout.DefaultParams()
	}
	if o.ChangeScale == 0 && o.MaxDelta == 0 {
		cam := config.Default().Camera
		o.ChangeScale, o.MaxDelta = cam.ChangeScale, cam.MaxDelta
	}
	if o.Style == (render.Style{}) {
		o.Style = render.DefaultStyle()
	}
	if o.Clock == nil {
		o.Clock = SystemClock{}
	}
	return o
}

// FrameStats summarizes one frame.
type FrameStats struct {
	Nodes      int
	ElapsedMs  float64
	Camera     r2.Vec
	PresentErr error
}

// Runner owns the per-loop state: visual nodes, camera and the previous
// frame's timestamp.
type Runner struct {
	net      layout.Network
	surface  render.Surface
	sim      *layout.Simulator
	camera   *layout.Camera
	renderer *render.Renderer
	width    int
	height   int

	prev    time.Time
	started bool
}

// NewRunner builds a runner for a width×height canvas.
func NewRunner(net layout.Network, surface render.Surface, width, height int, opts Options) *Runner {
	opts = opts.withDefaults()

	simOpts := []layout.Option{layout.WithDefectHandler(opts.OnDefect)}
	if opts.Rand != nil {
		simOpts = append(simOpts, layout.WithRand(opts.Rand))
	}

	w, h := float64(width), float64(height)
	return &Runner{
		net:      net,
		surface:  surface,
		sim:      layout.NewSimulator(opts.Params, w, h, simOpts...),
		camera:   layout.NewCamera(w, h, opts.ChangeScale, opts.MaxDelta),
		renderer: render.NewRenderer(opts.Style, net.ShortID),
		width:    width,
		height:   height,
	}
}

// Frame simulates the time since the previous frame and draws the result.
// The first frame simulates no time.
func (r *Runner) Frame(now time.Time) FrameStats {
	var elapsed float64
	if r.started {
		elapsed = float64(now.Sub(r.prev)) / float64(time.Millisecond)
	}
	r.started = true

	nodes := r.sim.Step(r.net.Nodes(), elapsed)
	r.camera.Follow(nodes)
	r.renderer.Render(r.surface, render.Frame{
		Nodes:  nodes,
		Camera: r.camera.Pos,
		Width:  r.width,
		Height: r.height,
	})

	stats := FrameStats{Nodes: len(nodes), ElapsedMs: elapsed, Camera: r.camera.Pos}
	if p, ok := r.surface.(render.Presenter); ok {
		stats.PresentErr = p.Present()
	}
	r.prev = now
	return stats
}

// Nodes returns the visual nodes from the last frame.
func (r *Runner) Nodes() []*layout.VisualNode {
	return r.sim.Nodes()
}

// Camera returns the current viewport center.
func (r *Runner) Camera() r2.Vec {
	return r.camera.Pos
}

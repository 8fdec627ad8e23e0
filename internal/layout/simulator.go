package layout

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
)

// Simulator keeps one VisualNode per observed NetworkNode and moves them with
// the pairwise spring law. It carries no velocity between frames.
type Simulator struct {
	params        Params
	width, height float64
	rng           *rand.Rand
	onDefect      func(Defect)

	cache map[NetworkNode]*VisualNode
	nodes []*VisualNode
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithRand sets the source used for initial positions.
func WithRand(rng *rand.Rand) Option {
	return func(s *Simulator) { s.rng = rng }
}

// WithDefectHandler is called for every pair contribution dropped as non-finite.
func WithDefectHandler(fn func(Defect)) Option {
	return func(s *Simulator) { s.onDefect = fn }
}

// NewSimulator creates a simulator placing new nodes inside a width×height canvas.
func NewSimulator(params Params, width, height float64, opts ...Option) *Simulator {
	s := &Simulator{
		params: params,
		width:  width,
		height: height,
		cache:  make(map[NetworkNode]*VisualNode),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return s
}

// Nodes returns the visual nodes from the last Sync.
func (s *Simulator) Nodes() []*VisualNode {
	return s.nodes
}

// Sync reconciles the visual set with the observed membership. Nodes already
// known by reference keep their VisualNode; new references get a random
// position; references no longer present are dropped. A node re-added under
// the same identifier but as a new object starts over at a random position.
func (s *Simulator) Sync(observed map[string]NetworkNode) []*VisualNode {
	keys := make([]string, 0, len(observed))
	for k := range observed {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	next := make(map[NetworkNode]*VisualNode, len(observed))
	nodes := make([]*VisualNode, 0, len(observed))
	for _, k := range keys {
		n := observed[k]
		if n == nil {
			continue
		}
		if _, dup := next[n]; dup {
			continue
		}
		vn, ok := s.cache[n]
		if !ok {
			vn = &VisualNode{Node: n, Pos: s.randomPos(), Radius: s.params.NodeRadius}
		}
		next[n] = vn
		nodes = append(nodes, vn)
	}

	s.cache = next
	s.nodes = nodes
	return nodes
}

// Advance moves every node by the sum of forces from all others over
// elapsedMs. Displacements are computed from the positions at the start of the
// call and applied afterwards, so each pair acts equally and oppositely.
// Unlike moving nodes in place one after another, no node sees another's
// new position within a frame, and the result does not depend on node order.
func (s *Simulator) Advance(elapsedMs float64) {
	disp := make([]r2.Vec, len(s.nodes))
	for i, a := range s.nodes {
		var net r2.Vec
		for j, b := range s.nodes {
			if i == j || a.Node == b.Node {
				continue
			}
			if f, ok := s.pairForce(a, b, elapsedMs); ok {
				net = r2.Add(net, f)
			}
		}
		disp[i] = net
	}

	for i, vn := range s.nodes {
		vn.Pos = r2.Add(vn.Pos, disp[i])
	}
}

// Step syncs against observed and advances by elapsedMs.
func (s *Simulator) Step(observed map[string]NetworkNode, elapsedMs float64) []*VisualNode {
	nodes := s.Sync(observed)
	s.Advance(elapsedMs)
	return nodes
}

// pairForce is the displacement b imposes on a.
func (s *Simulator) pairForce(a, b *VisualNode, elapsedMs float64) (r2.Vec, bool) {
	offset := r2.Sub(b.Pos, a.Pos)
	dist := r2.Norm(offset)
	f := Force(dist, Connected(a.Node, b.Node), elapsedMs, s.params)

	angle := math.Atan2(offset.Y, offset.X)
	delta := r2.Vec{X: math.Cos(angle) * f, Y: math.Sin(angle) * f}

	if !finite(delta.X) || !finite(delta.Y) {
		if s.onDefect != nil {
			s.onDefect(Defect{On: a.Node, From: b.Node, Distance: dist, Force: f, Delta: delta})
		}
		return r2.Vec{}, false
	}
	return delta, true
}

func (s *Simulator) randomPos() r2.Vec {
	return r2.Vec{X: s.rng.Float64() * s.width, Y: s.rng.Float64() * s.height}
}

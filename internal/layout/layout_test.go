package layout

import (
	"math"
	"math/big"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

type fakeNode struct {
	id, succ, pred *big.Int
	dead           bool
}

func (n *fakeNode) ID() *big.Int          { return n.id }
func (n *fakeNode) Successor() *big.Int   { return n.succ }
func (n *fakeNode) Predecessor() *big.Int { return n.pred }
func (n *fakeNode) Alive() bool           { return !n.dead }

func newFake(id, succ int64) *fakeNode {
	return &fakeNode{id: big.NewInt(id), succ: big.NewInt(succ)}
}

func testSim(opts ...Option) *Simulator {
	opts = append([]Option{WithRand(rand.New(rand.NewPCG(1, 2)))}, opts...)
	return NewSimulator(DefaultParams(), 800, 600, opts...)
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestForceZeroAtRestDistance(t *testing.T) {
	p := DefaultParams()
	for _, elapsed := range []float64{1, 16, 1000} {
		if f := Force(p.RestDistance, false, elapsed, p); f != 0 {
			t.Errorf("unconnected force at rest distance = %v, want 0", f)
		}
		if f := Force(p.RestDistanceConnected, true, elapsed, p); f != 0 {
			t.Errorf("connected force at rest distance = %v, want 0", f)
		}
	}
}

func TestForceClamped(t *testing.T) {
	p := DefaultParams()
	distances := []float64{0, 1e-12, 1, 50, 199.999, 399, 401, 1000, 1e6, 1e200, math.MaxFloat64}
	for _, d := range distances {
		for _, connected := range []bool{false, true} {
			f := Force(d, connected, 16, p)
			if math.IsNaN(f) || math.Abs(f) > p.MaxForce {
				t.Errorf("Force(%v, %v) = %v, want |f| <= %v", d, connected, f, p.MaxForce)
			}
		}
	}
}

func TestForceSign(t *testing.T) {
	p := DefaultParams()
	if f := Force(500, false, 16, p); f <= 0 {
		t.Errorf("beyond rest distance should attract, got %v", f)
	}
	if f := Force(300, false, 16, p); f >= 0 {
		t.Errorf("inside rest distance should repel, got %v", f)
	}
	if f := Force(1000, false, 0, p); f != 0 {
		t.Errorf("no elapsed time should mean no force, got %v", f)
	}
}

func TestForceConnectivityMultiplier(t *testing.T) {
	p := DefaultParams()
	p.MaxForce = math.Inf(1)
	loose := Force(210, false, 1, Params{InteractionScale: p.InteractionScale, RestDistance: 200, MaxForce: p.MaxForce})
	tight := Force(210, true, 1, p)
	if !near(tight, loose*p.ConnectivityScale) {
		t.Errorf("connected force %v should be %v times %v", tight, p.ConnectivityScale, loose)
	}
}

func TestConnected(t *testing.T) {
	a := newFake(1, 2)
	b := newFake(2, 3)
	c := newFake(3, 1)

	if !Connected(a, b) || !Connected(b, a) {
		t.Error("a->b should be connected both ways round")
	}
	if !Connected(a, c) {
		t.Error("c->a should make a and c connected")
	}
	d := &fakeNode{id: big.NewInt(4)}
	if Connected(a, d) {
		t.Error("node without successor should not connect")
	}
}

func TestSyncIdentityContinuity(t *testing.T) {
	sim := testSim()
	a, b := newFake(1, 2), newFake(2, 1)

	first := sim.Sync(map[string]NetworkNode{"1": a, "2": b})
	if len(first) != 2 {
		t.Fatalf("expected 2 visual nodes, got %d", len(first))
	}
	pos := first[0].Pos

	second := sim.Sync(map[string]NetworkNode{"1": a, "2": b})
	if first[0] != second[0] || first[1] != second[1] {
		t.Fatal("same node references should keep their visual nodes")
	}
	if second[0].Pos != pos {
		t.Errorf("position reset across frames: %v -> %v", pos, second[0].Pos)
	}
}

func TestSyncInitialPositionInsideCanvas(t *testing.T) {
	sim := testSim()
	nodes := map[string]NetworkNode{}
	for i := int64(0); i < 50; i++ {
		nodes[big.NewInt(i).String()] = newFake(i, i+1)
	}
	for _, vn := range sim.Sync(nodes) {
		if vn.Pos.X < 0 || vn.Pos.X > 800 || vn.Pos.Y < 0 || vn.Pos.Y > 600 {
			t.Errorf("initial position %v outside canvas", vn.Pos)
		}
		if vn.Radius != 25 {
			t.Errorf("expected radius 25, got %v", vn.Radius)
		}
	}
}

func TestSyncRemovesAndReplaces(t *testing.T) {
	sim := testSim()
	a, b := newFake(1, 2), newFake(2, 1)
	sim.Sync(map[string]NetworkNode{"1": a, "2": b})
	old := sim.Nodes()[1]

	got := sim.Sync(map[string]NetworkNode{"1": a})
	if len(got) != 1 || got[0].Node != a {
		t.Fatalf("expected only a to remain, got %d nodes", len(got))
	}

	// Same identifier, new object: fresh visual node.
	b2 := newFake(2, 1)
	got = sim.Sync(map[string]NetworkNode{"1": a, "2": b2})
	if len(got) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(got))
	}
	if got[1] == old {
		t.Error("re-added node object should not inherit the old visual node")
	}
	if got[1].Node != b2 {
		t.Error("visual node should reference the new object")
	}
}

func TestSyncSkipsNilAndDuplicates(t *testing.T) {
	sim := testSim()
	a := newFake(1, 1)
	got := sim.Sync(map[string]NetworkNode{"1": a, "alias": a, "gone": nil})
	if len(got) != 1 {
		t.Fatalf("expected one visual node per reference, got %d", len(got))
	}
}

func TestAdvanceConnectedPairScenario(t *testing.T) {
	sim := testSim()
	a := &fakeNode{id: big.NewInt(1), succ: big.NewInt(2)}
	b := &fakeNode{id: big.NewInt(2), succ: big.NewInt(1), pred: big.NewInt(1)}
	nodes := sim.Sync(map[string]NetworkNode{"1": a, "2": b})
	nodes[0].Pos = r2.Vec{X: 0, Y: 0}
	nodes[1].Pos = r2.Vec{X: 1000, Y: 0}

	sim.Advance(16)

	max := DefaultParams().MaxForce
	if !near(nodes[0].Pos.X, max) || !near(nodes[0].Pos.Y, 0) {
		t.Errorf("a should be pulled %v toward b, at %v", max, nodes[0].Pos)
	}
	if !near(nodes[1].Pos.X, 1000-max) || !near(nodes[1].Pos.Y, 0) {
		t.Errorf("b should be pulled %v toward a, at %v", max, nodes[1].Pos)
	}
}

func TestAdvanceEqualAndOpposite(t *testing.T) {
	sim := testSim()
	a, b := newFake(1, 5), newFake(2, 6)
	nodes := sim.Sync(map[string]NetworkNode{"1": a, "2": b})
	nodes[0].Pos = r2.Vec{X: 100, Y: 120}
	nodes[1].Pos = r2.Vec{X: 260, Y: 310}
	before := []r2.Vec{nodes[0].Pos, nodes[1].Pos}

	sim.Advance(16)

	da := r2.Sub(nodes[0].Pos, before[0])
	db := r2.Sub(nodes[1].Pos, before[1])
	if r2.Norm(da) == 0 {
		t.Fatal("expected the pair to move")
	}
	if !near(da.X, -db.X) || !near(da.Y, -db.Y) {
		t.Errorf("displacements not opposite: %v vs %v", da, db)
	}
}

func TestAdvanceIndependentOfOrder(t *testing.T) {
	a, b, c := newFake(1, 2), newFake(2, 3), newFake(3, 1)
	start := map[NetworkNode]r2.Vec{
		a: {X: 10, Y: 20},
		b: {X: 700, Y: 40},
		c: {X: 300, Y: 550},
	}
	run := func(reverse bool) map[NetworkNode]r2.Vec {
		sim := testSim()
		nodes := sim.Sync(map[string]NetworkNode{"1": a, "2": b, "3": c})
		if reverse {
			for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
				nodes[i], nodes[j] = nodes[j], nodes[i]
			}
			sim.nodes = nodes
		}
		for _, vn := range nodes {
			vn.Pos = start[vn.Node]
		}
		sim.Advance(16)
		out := make(map[NetworkNode]r2.Vec)
		for _, vn := range nodes {
			out[vn.Node] = vn.Pos
		}
		return out
	}

	fwd, rev := run(false), run(true)
	for n, p := range fwd {
		if p == start[n] {
			t.Errorf("node %v did not move", n.ID())
		}
		if !near(p.X, rev[n].X) || !near(p.Y, rev[n].Y) {
			t.Errorf("node %v ended at %v in one order and %v in the other", n.ID(), p, rev[n])
		}
	}
}

func TestAdvanceAtRestDoesNotMove(t *testing.T) {
	sim := testSim()
	a, b := newFake(1, 2), newFake(2, 1)
	nodes := sim.Sync(map[string]NetworkNode{"1": a, "2": b})
	nodes[0].Pos = r2.Vec{X: 0, Y: 0}
	nodes[1].Pos = r2.Vec{X: 200, Y: 0}

	sim.Advance(16)

	if nodes[0].Pos != (r2.Vec{}) {
		t.Errorf("pair at rest distance moved: %v", nodes[0].Pos)
	}
}

func TestAdvanceReportsNonFinite(t *testing.T) {
	var defects []Defect
	sim := testSim(WithDefectHandler(func(d Defect) { defects = append(defects, d) }))
	a, b := newFake(1, 2), newFake(2, 3)
	nodes := sim.Sync(map[string]NetworkNode{"1": a, "2": b})
	nodes[0].Pos = r2.Vec{X: math.NaN(), Y: 0}
	nodes[1].Pos = r2.Vec{X: 10, Y: 10}

	sim.Advance(16)

	if len(defects) != 2 {
		t.Fatalf("expected 2 defects, got %d", len(defects))
	}
	if nodes[1].Pos != (r2.Vec{X: 10, Y: 10}) {
		t.Errorf("defective contribution was applied: %v", nodes[1].Pos)
	}
	if defects[0].Error() == "" {
		t.Error("defect should describe itself")
	}
}

func TestStepSingleNodeStill(t *testing.T) {
	sim := testSim()
	a := newFake(1, 1)
	nodes := sim.Step(map[string]NetworkNode{"1": a}, 16)
	pos := nodes[0].Pos
	sim.Step(map[string]NetworkNode{"1": a}, 16)
	if nodes[0].Pos != pos {
		t.Error("a lone node has nothing to push it")
	}
}

func TestCentroid(t *testing.T) {
	nodes := []*VisualNode{
		{Pos: r2.Vec{X: 0, Y: 0}},
		{Pos: r2.Vec{X: 10, Y: 0}},
		{Pos: r2.Vec{X: 20, Y: 30}},
	}
	c, ok := Centroid(nodes)
	if !ok {
		t.Fatal("expected a centroid")
	}
	if !near(c.X, 10) || !near(c.Y, 10) {
		t.Errorf("expected centroid (10,10), got %v", c)
	}
	if _, ok := Centroid(nil); ok {
		t.Error("no nodes should have no centroid")
	}
}

func TestCameraFollowCapped(t *testing.T) {
	cam := NewCamera(0, 0, 0.01, 5)
	nodes := []*VisualNode{{Pos: r2.Vec{X: 10000, Y: -10000}}}

	cam.Follow(nodes)
	if cam.Pos.X != 5 || cam.Pos.Y != -5 {
		t.Errorf("camera should move by at most 5 per axis, at %v", cam.Pos)
	}
}

func TestCameraFollowScaled(t *testing.T) {
	cam := NewCamera(0, 0, 0.01, 5)
	nodes := []*VisualNode{{Pos: r2.Vec{X: 100, Y: 50}}}

	cam.Follow(nodes)
	if !near(cam.Pos.X, 1) || !near(cam.Pos.Y, 0.5) {
		t.Errorf("expected (1,0.5), got %v", cam.Pos)
	}
}

func TestCameraConvergesToCentroid(t *testing.T) {
	cam := NewCamera(800, 600, 0.01, 5)
	nodes := []*VisualNode{
		{Pos: r2.Vec{X: 100, Y: 100}},
		{Pos: r2.Vec{X: 300, Y: 500}},
	}
	target, _ := Centroid(nodes)
	prev := r2.Norm(r2.Sub(target, cam.Pos))
	for i := 0; i < 2000; i++ {
		cam.Follow(nodes)
		dist := r2.Norm(r2.Sub(target, cam.Pos))
		if dist > prev {
			t.Fatalf("camera moved away from target at frame %d", i)
		}
		prev = dist
	}
	if prev > 1 {
		t.Errorf("camera should settle near centroid, still %v away", prev)
	}
}

func TestCameraHoldsWithoutNodes(t *testing.T) {
	cam := NewCamera(800, 600, 0.01, 5)
	cam.Follow(nil)
	if cam.Pos != (r2.Vec{X: 400, Y: 300}) {
		t.Errorf("camera drifted with no nodes: %v", cam.Pos)
	}
}

package mesh

import (
	"context"
	"math/big"
	mrand "math/rand/v2"
	"sort"
	"sync"
	"testing"
	"time"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLocal(t *testing.T, clock *testClock, opts ...Option) *Local {
	t.Helper()
	base := []Option{
		WithRand(mrand.New(mrand.NewPCG(7, 8))),
		WithEntropy(mrand.NewChaCha8([32]byte{1, 2, 3})),
		WithClock(clock.Now),
		WithLinger(time.Second),
	}
	return New(append(base, opts...)...)
}

func addN(t *testing.T, l *Local, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := l.Add(); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
}

// assertRing checks that live nodes form one ring in identifier order with
// matching predecessors.
func assertRing(t *testing.T, l *Local) {
	t.Helper()
	var alive []*Node
	for _, n := range l.Nodes() {
		if n.Alive() {
			alive = append(alive, n.(*Node))
		}
	}
	sort.Slice(alive, func(i, j int) bool { return alive[i].id.Cmp(alive[j].id) < 0 })

	for i, n := range alive {
		next := alive[(i+1)%len(alive)]
		if n.Successor().Cmp(next.id) != 0 {
			t.Errorf("%s: successor %s, want %s", n, ShortID(n.Successor()), next)
		}
		if len(alive) > 1 {
			if p := next.Predecessor(); p == nil || p.Cmp(n.id) != 0 {
				t.Errorf("%s: predecessor should be %s", next, n)
			}
		}
	}
}

func TestFirstNodePointsAtItself(t *testing.T) {
	l := newTestLocal(t, &testClock{})
	n, err := l.Add()
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if n.Successor().Cmp(n.ID()) != 0 {
		t.Error("lone node should be its own successor")
	}
	if n.Predecessor() != nil {
		t.Error("lone node should start without predecessor")
	}
	if !n.Alive() {
		t.Error("new node should be alive")
	}
}

func TestStabilizeFormsRing(t *testing.T) {
	l := newTestLocal(t, &testClock{})
	addN(t, l, 11)

	for i := 0; i < 100; i++ {
		l.Stabilize()
	}
	if l.Len() != 11 {
		t.Fatalf("expected 11 nodes, got %d", l.Len())
	}
	assertRing(t, l)
}

func TestJoinIntoStableRing(t *testing.T) {
	l := newTestLocal(t, &testClock{})
	addN(t, l, 5)
	for i := 0; i < 20; i++ {
		l.Stabilize()
	}

	addN(t, l, 3)
	for i := 0; i < 50; i++ {
		l.Stabilize()
	}
	assertRing(t, l)
}

func TestKickLingersThenLeaves(t *testing.T) {
	clock := &testClock{now: time.Unix(0, 0)}
	var events []string
	l := newTestLocal(t, clock, WithEventHook(func(event string, n *Node) {
		events = append(events, event)
	}))
	addN(t, l, 6)
	for i := 0; i < 50; i++ {
		l.Stabilize()
	}

	victim, ok := l.Kick()
	if !ok {
		t.Fatal("expected a node to kick")
	}
	if victim.Alive() {
		t.Fatal("kicked node should be dead")
	}

	l.Stabilize()
	if _, present := l.Nodes()[Key(victim.ID())]; !present {
		t.Fatal("dead node should linger before removal")
	}
	assertRing(t, l)

	clock.Advance(2 * time.Second)
	l.Stabilize()
	if _, present := l.Nodes()[Key(victim.ID())]; present {
		t.Fatal("dead node should be removed after lingering")
	}
	if l.Len() != 5 {
		t.Errorf("expected 5 nodes, got %d", l.Len())
	}
	assertRing(t, l)

	want := map[string]int{EventJoin: 6, EventKick: 1, EventRemove: 1}
	got := map[string]int{}
	for _, e := range events {
		got[e]++
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("expected %d %s events, got %d", v, k, got[k])
		}
	}
}

func TestKickEmpty(t *testing.T) {
	l := newTestLocal(t, &testClock{})
	if _, ok := l.Kick(); ok {
		t.Error("kicking an empty ring should report nothing kicked")
	}
}

func TestNodesSnapshotIsCopy(t *testing.T) {
	l := newTestLocal(t, &testClock{})
	addN(t, l, 2)

	snap := l.Nodes()
	addN(t, l, 1)
	if len(snap) != 2 {
		t.Errorf("snapshot changed under us: %d entries", len(snap))
	}
}

func TestKeyAndShortID(t *testing.T) {
	id := big.NewInt(0xabcdef)
	k := Key(id)
	if len(k) != IDBits/4 {
		t.Errorf("expected %d hex digits, got %d", IDBits/4, len(k))
	}
	if ShortID(id) != "0000" {
		t.Errorf("expected leading digits 0000, got %q", ShortID(id))
	}
}

func TestBetween(t *testing.T) {
	n := func(v int64) *big.Int { return big.NewInt(v) }
	cases := []struct {
		x, a, b int64
		want    bool
	}{
		{5, 1, 10, true},
		{1, 1, 10, false},
		{10, 1, 10, false},
		{12, 10, 3, true},
		{2, 10, 3, true},
		{5, 10, 3, false},
		{4, 7, 7, true},
		{7, 7, 7, false},
	}
	for _, c := range cases {
		if got := between(n(c.x), n(c.a), n(c.b)); got != c.want {
			t.Errorf("between(%d, %d, %d) = %v, want %v", c.x, c.a, c.b, got, c.want)
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	l := newTestLocal(t, &testClock{})
	addN(t, l, 3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx, time.Millisecond) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	if l.Len() != 3 {
		t.Errorf("expected 3 nodes, got %d", l.Len())
	}
}

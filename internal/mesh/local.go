package mesh

import (
	"context"
	"crypto/rand"
	"io"
	"math/big"
	mrand "math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/msalah0e/meshview/internal/layout"
)

// Event names passed to the event hook.
const (
	EventJoin   = "join"
	EventKick   = "kick"
	EventRemove = "remove"
)

// Local is an in-process ring. All membership changes happen under one lock,
// so a Nodes snapshot never observes half a join.
type Local struct {
	mu      sync.Mutex
	nodes   map[string]*Node
	rng     *mrand.Rand
	entropy io.Reader
	clock   func() time.Time
	linger  time.Duration
	onEvent func(event string, n *Node)
}

// Option configures a Local.
type Option func(*Local)

// WithRand sets the source for bootstrap and kick choices.
func WithRand(rng *mrand.Rand) Option {
	return func(l *Local) { l.rng = rng }
}

// WithEntropy sets the reader node UUIDs are generated from.
func WithEntropy(r io.Reader) Option {
	return func(l *Local) { l.entropy = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Local) { l.clock = now }
}

// WithLinger sets how long a dead node stays visible before removal.
func WithLinger(d time.Duration) Option {
	return func(l *Local) { l.linger = d }
}

// WithEventHook is called, under the ring lock, on joins, kicks and removals.
func WithEventHook(fn func(event string, n *Node)) Option {
	return func(l *Local) { l.onEvent = fn }
}

// New creates an empty ring.
func New(opts ...Option) *Local {
	l := &Local{
		nodes:   make(map[string]*Node),
		entropy: rand.Reader,
		clock:   time.Now,
		linger:  3 * time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.rng == nil {
		l.rng = mrand.New(mrand.NewPCG(mrand.Uint64(), mrand.Uint64()))
	}
	return l
}

// Nodes returns a snapshot of the membership, dead nodes included until
// they are removed.
func (l *Local) Nodes() map[string]layout.NetworkNode {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]layout.NetworkNode, len(l.nodes))
	for k, n := range l.nodes {
		out[k] = n
	}
	return out
}

// ShortID formats an identifier for labels.
func (l *Local) ShortID(id *big.Int) string {
	return ShortID(id)
}

// Len returns the number of nodes, dead or alive.
func (l *Local) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.nodes)
}

// Add joins a new node through a random live member. Until stabilization
// runs, the rest of the ring does not know about it.
func (l *Local) Add() (*Node, error) {
	u, err := uuid.NewRandomFromReader(l.entropy)
	if err != nil {
		return nil, err
	}
	n := &Node{id: NewID(u)}

	l.mu.Lock()
	defer l.mu.Unlock()

	alive := l.aliveLocked()
	if len(alive) == 0 {
		n.successor = n.id
	} else {
		bootstrap := alive[l.rng.IntN(len(alive))]
		n.successor = l.lookupLocked(bootstrap, n.id)
	}
	l.nodes[Key(n.id)] = n
	l.emit(EventJoin, n)
	return n, nil
}

// Kick marks a random live node dead. It is removed once it has lingered.
func (l *Local) Kick() (*Node, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	alive := l.aliveLocked()
	if len(alive) == 0 {
		return nil, false
	}
	n := alive[l.rng.IntN(len(alive))]
	n.kill(l.clock())
	l.emit(EventKick, n)
	return n, true
}

// Stabilize runs one maintenance round: expired dead nodes are removed, dead
// successors are replaced, and every live node stabilizes and notifies.
func (l *Local) Stabilize() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	for k, n := range l.nodes {
		if n.expired(now, l.linger) {
			delete(l.nodes, k)
			l.emit(EventRemove, n)
		}
	}

	alive := l.aliveLocked()
	for i, n := range alive {
		if succ := l.liveLocked(n.Successor()); succ == nil {
			n.setSuccessor(alive[(i+1)%len(alive)].id)
		}
		if l.liveLocked(n.Predecessor()) == nil {
			n.setPredecessor(nil)
		}
	}

	for _, n := range alive {
		succ := l.liveLocked(n.Successor())
		if succ == nil {
			continue
		}
		if x := l.liveLocked(succ.Predecessor()); x != nil && between(x.id, n.id, succ.id) {
			succ = x
			n.setSuccessor(x.id)
		}
		l.notifyLocked(succ, n)
	}
}

// Run stabilizes on every tick until ctx is done.
func (l *Local) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.Stabilize()
		}
	}
}

// notifyLocked tells succ that n believes it is succ's predecessor.
func (l *Local) notifyLocked(succ, n *Node) {
	if succ == n {
		return
	}
	pred := l.liveLocked(succ.Predecessor())
	if pred == nil || between(n.id, pred.id, succ.id) {
		succ.setPredecessor(n.id)
	}
}

// lookupLocked walks successor pointers from start to find the node that
// should follow id.
func (l *Local) lookupLocked(start *Node, id *big.Int) *big.Int {
	cur := start
	for range l.nodes {
		succID := cur.Successor()
		if succID.Cmp(cur.id) == 0 || between(id, cur.id, succID) {
			return succID
		}
		next := l.liveLocked(succID)
		if next == nil {
			break
		}
		cur = next
	}
	return start.Successor()
}

func (l *Local) liveLocked(id *big.Int) *Node {
	if id == nil {
		return nil
	}
	n, ok := l.nodes[Key(id)]
	if !ok || !n.Alive() {
		return nil
	}
	return n
}

// aliveLocked returns live nodes in identifier order.
func (l *Local) aliveLocked() []*Node {
	alive := make([]*Node, 0, len(l.nodes))
	for _, n := range l.nodes {
		if n.Alive() {
			alive = append(alive, n)
		}
	}
	sort.Slice(alive, func(i, j int) bool {
		return alive[i].id.Cmp(alive[j].id) < 0
	})
	return alive
}

func (l *Local) emit(event string, n *Node) {
	if l.onEvent != nil {
		l.onEvent(event, n)
	}
}

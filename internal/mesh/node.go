// Package mesh is a small in-process ring network that keeps itself
// stabilized the way a Chord ring does. It exists to give the viewer a live,
// churning membership to draw.
package mesh

import (
	"crypto/sha1"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IDBits is the width of the identifier space.
const IDBits = 160

// Node is one ring member. Its pointers change under its own lock so readers
// on other goroutines always see a consistent value.
type Node struct {
	id *big.Int

	mu          sync.RWMutex
	successor   *big.Int
	predecessor *big.Int
	dead        bool
	diedAt      time.Time
}

// NewID derives a ring identifier from a UUID.
func NewID(u uuid.UUID) *big.Int {
	sum := sha1.Sum(u[:])
	return new(big.Int).SetBytes(sum[:])
}

// Key formats an identifier as the fixed-width hex string the membership map
// is keyed by.
func Key(id *big.Int) string {
	return fmt.Sprintf("%0*x", IDBits/4, id)
}

// ShortID is the first four hex digits of an identifier.
func ShortID(id *big.Int) string {
	return Key(id)[:4]
}

func (n *Node) ID() *big.Int { return n.id }

func (n *Node) Successor() *big.Int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.successor
}

func (n *Node) Predecessor() *big.Int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.predecessor
}

func (n *Node) Alive() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return !n.dead
}

func (n *Node) String() string {
	return ShortID(n.id)
}

func (n *Node) setSuccessor(id *big.Int) {
	n.mu.Lock()
	n.successor = id
	n.mu.Unlock()
}

func (n *Node) setPredecessor(id *big.Int) {
	n.mu.Lock()
	n.predecessor = id
	n.mu.Unlock()
}

func (n *Node) kill(at time.Time) {
	n.mu.Lock()
	n.dead = true
	n.diedAt = at
	n.mu.Unlock()
}

func (n *Node) expired(now time.Time, linger time.Duration) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.dead && now.Sub(n.diedAt) >= linger
}

// between reports whether x lies strictly inside the clockwise arc (a, b).
// When a == b the arc is the whole ring except a.
func between(x, a, b *big.Int) bool {
	switch a.Cmp(b) {
	case -1:
		return a.Cmp(x) < 0 && x.Cmp(b) < 0
	default:
		return x.Cmp(a) > 0 || x.Cmp(b) < 0
	}
}

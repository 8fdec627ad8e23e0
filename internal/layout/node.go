package layout

import (
	"math/big"

	"gonum.org/v1/gonum/spatial/r2"
)

// NetworkNode is a ring member as published by the mesh. The layout only reads it.
//
// Implementations must be comparable (normally pointers): the interface value
// itself is the identity token the simulator caches positions under, so two
// distinct objects that report the same ID are still two different nodes.
type NetworkNode interface {
	ID() *big.Int
	Successor() *big.Int
	// Predecessor returns nil while the node has not learned one.
	Predecessor() *big.Int
	Alive() bool
}

// Network is the live view of the mesh handed to the render loop.
type Network interface {
	// Nodes returns the current membership keyed by identifier string.
	Nodes() map[string]NetworkNode
	// ShortID formats an identifier for display.
	ShortID(id *big.Int) string
}

// VisualNode pairs a NetworkNode with its on-screen position.
type VisualNode struct {
	Node   NetworkNode
	Pos    r2.Vec
	Radius float64
}

// SameID reports whether two identifiers are both present and equal.
func SameID(a, b *big.Int) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Cmp(b) == 0
}

// Connected reports whether either node names the other as its successor.
func Connected(a, b NetworkNode) bool {
	return SameID(a.Successor(), b.ID()) || SameID(b.Successor(), a.ID())
}

func idString(n NetworkNode) string {
	if n == nil || n.ID() == nil {
		return "<nil>"
	}
	return n.ID().Text(16)
}

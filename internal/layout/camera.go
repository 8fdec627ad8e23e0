package layout

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Camera is the viewport center. It eases toward the centroid of the nodes
// and never moves more than MaxDelta per axis in one frame.
type Camera struct {
	Pos         r2.Vec
	ChangeScale float64
	MaxDelta    float64
}

// NewCamera centers a camera on a width×height canvas.
func NewCamera(width, height, changeScale, maxDelta float64) *Camera {
	return &Camera{
		Pos:         r2.Vec{X: width / 2, Y: height / 2},
		ChangeScale: changeScale,
		MaxDelta:    maxDelta,
	}
}

// Centroid is the arithmetic mean of node positions; ok is false for no nodes.
func Centroid(nodes []*VisualNode) (r2.Vec, bool) {
	if len(nodes) == 0 {
		return r2.Vec{}, false
	}
	var sum r2.Vec
	for _, n := range nodes {
		sum = r2.Add(sum, n.Pos)
	}
	return r2.Scale(1/float64(len(nodes)), sum), true
}

// Follow moves the camera one frame toward the centroid of nodes. With no
// nodes the camera stays put.
func (c *Camera) Follow(nodes []*VisualNode) {
	target, ok := Centroid(nodes)
	if !ok {
		return
	}
	delta := r2.Scale(c.ChangeScale, r2.Sub(target, c.Pos))
	c.Pos.X += clamp(delta.X, c.MaxDelta)
	c.Pos.Y += clamp(delta.Y, c.MaxDelta)
}

func clamp(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}

package layout

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Params tunes the pairwise spring law.
type Params struct {
	InteractionScale      float64
	ConnectivityScale     float64
	RestDistance          float64
	RestDistanceConnected float64
	MaxForce              float64
	NodeRadius            float64
}

// DefaultParams returns the tuning the layout was designed around.
func DefaultParams() Params {
	return Params{
		InteractionScale:      1e-8,
		ConnectivityScale:     1e4,
		RestDistance:          400,
		RestDistanceConnected: 200,
		MaxForce:              20,
		NodeRadius:            25,
	}
}

// Force is the scalar pull (positive) or push (negative) one node feels from
// another at the given distance over elapsedMs milliseconds. The law is a cubic
// spring around the rest distance, clamped to ±MaxForce.
func Force(distance float64, connected bool, elapsedMs float64, p Params) float64 {
	if elapsedMs <= 0 {
		return 0
	}

	rest, scale := p.RestDistance, p.InteractionScale
	if connected {
		rest = p.RestDistanceConnected
		scale *= p.ConnectivityScale
	}

	d := distance - rest
	raw := d * d * d * elapsedMs * scale
	// NaN survives the clamp so callers can see it.
	return math.Max(-p.MaxForce, math.Min(p.MaxForce, raw))
}

// Defect describes a pair contribution that came out non-finite and was dropped.
// On is the node being moved, From the node exerting the force.
type Defect struct {
	On       NetworkNode
	From     NetworkNode
	Distance float64
	Force    float64
	Delta    r2.Vec
}

func (d Defect) Error() string {
	return fmt.Sprintf("layout: non-finite force on %s from %s (distance=%v force=%v delta=%v,%v)",
		idString(d.On), idString(d.From), d.Distance, d.Force, d.Delta.X, d.Delta.Y)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

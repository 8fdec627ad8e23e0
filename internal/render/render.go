package render

import (
	"math"
	"math/big"

	"github.com/msalah0e/meshview/internal/layout"
	"gonum.org/v1/gonum/spatial/r2"
)

// Frame is everything needed to draw one scene.
type Frame struct {
	Nodes  []*layout.VisualNode
	Camera r2.Vec
	Width  int
	Height int
}

// Edge is a successor arrow between two visual nodes. Confirmed is set when
// the destination names the source as its predecessor.
type Edge struct {
	From      *layout.VisualNode
	To        *layout.VisualNode
	Confirmed bool
}

// Renderer draws frames. It never mutates the nodes it is given.
type Renderer struct {
	style   Style
	shortID func(*big.Int) string
}

// NewRenderer creates a renderer; shortID formats node labels.
func NewRenderer(style Style, shortID func(*big.Int) string) *Renderer {
	if shortID == nil {
		shortID = func(id *big.Int) string { return id.Text(16) }
	}
	return &Renderer{style: style, shortID: shortID}
}

// Edges derives the arrows to draw. Self loops and successors that are not
// among nodes are skipped.
func Edges(nodes []*layout.VisualNode) []Edge {
	byID := make(map[string]*layout.VisualNode, len(nodes))
	for _, vn := range nodes {
		id := vn.Node.ID()
		if id == nil {
			continue
		}
		if _, ok := byID[id.String()]; !ok {
			byID[id.String()] = vn
		}
	}

	var edges []Edge
	for _, vn := range nodes {
		n := vn.Node
		succ := n.Successor()
		if succ == nil || layout.SameID(succ, n.ID()) {
			continue
		}
		dst, ok := byID[succ.String()]
		if !ok {
			continue
		}
		edges = append(edges, Edge{
			From:      vn,
			To:        dst,
			Confirmed: layout.SameID(dst.Node.Predecessor(), n.ID()),
		})
	}
	return edges
}

// Render clears s, centers the camera, draws all arrows and then all nodes,
// and leaves s with an identity transform.
func (r *Renderer) Render(s Surface, f Frame) {
	s.Clear(r.style.Background)
	s.Translate(-f.Camera.X+float64(f.Width)/2, -f.Camera.Y+float64(f.Height)/2)

	for _, e := range Edges(f.Nodes) {
		r.drawArrow(s, e)
	}
	for _, vn := range f.Nodes {
		r.drawNode(s, vn)
	}

	s.ResetTransform()
}

func (r *Renderer) drawArrow(s Surface, e Edge) {
	from := e.From.Pos
	offset := r2.Sub(e.To.Pos, from)
	dist := r2.Norm(offset)
	length := dist - e.To.Radius
	if length <= 0 {
		return // circles overlap
	}
	tip := r2.Add(from, r2.Scale(length/dist, offset))

	width := r.style.ClaimWidth
	if e.Confirmed {
		width = r.style.ConfirmedWidth
	}

	c := r.style.Edge
	s.StrokeLine(from.X, from.Y, tip.X, tip.Y, width, c)

	angle := math.Atan2(offset.Y, offset.X)
	head := r.style.ArrowHead
	for _, wing := range []float64{angle - math.Pi/6, angle + math.Pi/6} {
		s.StrokeLine(tip.X, tip.Y, tip.X-head*math.Cos(wing), tip.Y-head*math.Sin(wing), width, c)
	}
}

func (r *Renderer) drawNode(s Surface, vn *layout.VisualNode) {
	fill := r.style.Alive
	if !vn.Node.Alive() {
		fill = r.style.Dead
	}
	s.FillCircle(vn.Pos.X, vn.Pos.Y, vn.Radius, fill, r.style.Outline)

	if id := vn.Node.ID(); id != nil {
		s.Text(vn.Pos.X, vn.Pos.Y, r.shortID(id), r.style.Label)
	}
}

// Package raster draws scenes into an in-memory RGBA image.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Surface is a render.Surface backed by an *image.RGBA.
type Surface struct {
	img    *image.RGBA
	face   font.Face
	tx, ty float64
}

// New creates a width×height surface with labels set in Go Regular at fontSize points.
func New(width, height int, fontSize float64) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("raster: invalid size %dx%d", width, height)
	}

	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("raster: parse font: %w", err)
	}
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("raster: font face: %w", err)
	}

	return &Surface{
		img:  image.NewRGBA(image.Rect(0, 0, width, height)),
		face: face,
	}, nil
}

// Image returns the backing image.
func (s *Surface) Image() *image.RGBA {
	return s.img
}

// EncodePNG writes the current contents as PNG.
func (s *Surface) EncodePNG(w io.Writer) error {
	return png.Encode(w, s.img)
}

// Snapshot copies the current contents so the surface can keep drawing.
func (s *Surface) Snapshot() *image.RGBA {
	cp := image.NewRGBA(s.img.Bounds())
	draw.Draw(cp, cp.Bounds(), s.img, image.Point{}, draw.Src)
	return cp
}

func (s *Surface) Size() (int, int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

func (s *Surface) Clear(c color.Color) {
	draw.Draw(s.img, s.img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
}

func (s *Surface) Translate(dx, dy float64) {
	s.tx += dx
	s.ty += dy
}

func (s *Surface) ResetTransform() {
	s.tx, s.ty = 0, 0
}

// StrokeLine draws a line of the given thickness.
func (s *Surface) StrokeLine(x1, y1, x2, y2, width float64, c color.Color) {
	x1, y1 = x1+s.tx, y1+s.ty
	x2, y2 = x2+s.tx, y2+s.ty

	dx, dy := x2-x1, y2-y1
	dist := math.Hypot(dx, dy)
	half := math.Max(width, 1) / 2
	if dist < 1 {
		s.img.Set(int(math.Round(x1)), int(math.Round(y1)), c)
		return
	}
	px, py := -dy/dist, dx/dist

	steps := math.Ceil(math.Max(math.Abs(dx), math.Abs(dy)))
	for i := 0.0; i <= steps; i++ {
		t := i / steps
		cx, cy := x1+dx*t, y1+dy*t
		for off := -half + 0.5; off <= half; off += 0.5 {
			s.img.Set(int(math.Round(cx+px*off)), int(math.Round(cy+py*off)), c)
		}
	}
}

// FillCircle draws a filled disc with a one pixel outline.
func (s *Surface) FillCircle(x, y, r float64, fill, outline color.Color) {
	x, y = x+s.tx, y+s.ty
	minX, maxX := int(math.Floor(x-r-1)), int(math.Ceil(x+r+1))
	minY, maxY := int(math.Floor(y-r-1)), int(math.Ceil(y+r+1))

	for py := minY; py <= maxY; py++ {
		for px := minX; px <= maxX; px++ {
			d := math.Hypot(float64(px)+0.5-x, float64(py)+0.5-y)
			switch {
			case d <= r-1:
				s.img.Set(px, py, fill)
			case d <= r:
				s.img.Set(px, py, outline)
			}
		}
	}
}

// Text draws s centered on (x, y).
func (s *Surface) Text(x, y float64, str string, c color.Color) {
	x, y = x+s.tx, y+s.ty
	m := s.face.Metrics()
	width := font.MeasureString(s.face, str)

	baseline := y + float64(m.Ascent-m.Descent)/64/2
	d := &font.Drawer{
		Dst:  s.img,
		Src:  image.NewUniform(c),
		Face: s.face,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(x*64) - width/2,
			Y: fixed.Int26_6(baseline * 64),
		},
	}
	d.DrawString(str)
}

// Package term draws scenes onto a grid of terminal character cells.
package term

import (
	"bufio"
	"image/color"
	"io"
	"math"

	fcolor "github.com/fatih/color"
	"github.com/msalah0e/meshview/internal/render"
)

// Default cell geometry in world pixels. Terminal cells are about twice as
// tall as they are wide.
const (
	CellWidth  = 10
	CellHeight = 20
)

type cell struct {
	ch   rune
	fg   fcolor.Attribute
	bg   fcolor.Attribute
	bold bool
}

// Surface is a render.Surface that rasterizes onto character cells and
// repaints the terminal on Present.
type Surface struct {
	cols, rows   int
	cellW, cellH float64
	cells        []cell
	tx, ty       float64
	out          io.Writer
}

// New creates a cols×rows surface writing frames to out.
func New(cols, rows int, out io.Writer) *Surface {
	return &Surface{
		cols:  cols,
		rows:  rows,
		cellW: CellWidth,
		cellH: CellHeight,
		cells: make([]cell, cols*rows),
		out:   out,
	}
}

// Palette adapts a style to colors that read well on an ANSI terminal.
func Palette(base render.Style) render.Style {
	s := base
	s.Background = color.RGBA{0, 0, 0, 255}
	s.Alive = color.RGBA{0, 205, 0, 255}
	s.Dead = color.RGBA{205, 0, 0, 255}
	s.Outline = color.RGBA{127, 127, 127, 255}
	s.Edge = color.RGBA{229, 229, 229, 255}
	s.Label = color.RGBA{0, 0, 0, 255}
	return s
}

func (s *Surface) Size() (int, int) {
	return int(float64(s.cols) * s.cellW), int(float64(s.rows) * s.cellH)
}

func (s *Surface) Clear(c color.Color) {
	bg := background(c)
	for i := range s.cells {
		s.cells[i] = cell{ch: ' ', fg: fcolor.FgWhite, bg: bg}
	}
}

func (s *Surface) Translate(dx, dy float64) {
	s.tx += dx
	s.ty += dy
}

func (s *Surface) ResetTransform() {
	s.tx, s.ty = 0, 0
}

// StrokeLine marks the cells a line passes through with a glyph matching its
// slope. Lines wider than one pixel are drawn bold.
func (s *Surface) StrokeLine(x1, y1, x2, y2, width float64, c color.Color) {
	x1, y1 = x1+s.tx, y1+s.ty
	x2, y2 = x2+s.tx, y2+s.ty

	dx, dy := x2-x1, y2-y1
	ch := slopeGlyph(dx/s.cellW, dy/s.cellH)
	fg := foreground(c)

	step := math.Min(s.cellW, s.cellH) / 2
	n := math.Ceil(math.Hypot(dx, dy) / step)
	if n < 1 {
		n = 1
	}
	for i := 0.0; i <= n; i++ {
		t := i / n
		col, row := s.cellAt(x1+dx*t, y1+dy*t)
		if cl, ok := s.at(col, row); ok {
			cl.ch, cl.fg, cl.bold = ch, fg, width > 1
		}
	}
}

// FillCircle paints the background of every cell whose center lies in the
// disc. Discs smaller than a cell become a single glyph.
func (s *Surface) FillCircle(x, y, r float64, fill, outline color.Color) {
	x, y = x+s.tx, y+s.ty
	bg := background(fill)

	painted := false
	minCol, minRow := s.cellAt(x-r, y-r)
	maxCol, maxRow := s.cellAt(x+r, y+r)
	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			cx := (float64(col) + 0.5) * s.cellW
			cy := (float64(row) + 0.5) * s.cellH
			if math.Hypot(cx-x, cy-y) > r {
				continue
			}
			if cl, ok := s.at(col, row); ok {
				cl.ch, cl.bg = ' ', bg
				painted = true
			}
		}
	}

	if !painted {
		col, row := s.cellAt(x, y)
		if cl, ok := s.at(col, row); ok {
			cl.ch, cl.fg = 'o', foreground(outline)
		}
	}
}

// Text writes str centered on (x, y), keeping each cell's background.
func (s *Surface) Text(x, y float64, str string, c color.Color) {
	col, row := s.cellAt(x+s.tx, y+s.ty)
	runes := []rune(str)
	col -= len(runes) / 2
	fg := foreground(c)
	for i, r := range runes {
		if cl, ok := s.at(col+i, row); ok {
			cl.ch, cl.fg, cl.bold = r, fg, false
		}
	}
}

// Present repaints the terminal from the top-left corner.
func (s *Surface) Present() error {
	w := bufio.NewWriter(s.out)
	w.WriteString("\033[H")

	for row := 0; row < s.rows; row++ {
		line := s.cells[row*s.cols : (row+1)*s.cols]
		start := 0
		for i := 1; i <= len(line); i++ {
			if i < len(line) && sameStyle(line[i], line[start]) {
				continue
			}
			w.WriteString(paint(line[start:i]))
			start = i
		}
		if row < s.rows-1 {
			w.WriteString("\r\n")
		}
	}
	return w.Flush()
}

// String returns the glyphs of the current frame without any color.
func (s *Surface) String() string {
	out := make([]rune, 0, (s.cols+1)*s.rows)
	for row := 0; row < s.rows; row++ {
		for _, c := range s.cells[row*s.cols : (row+1)*s.cols] {
			ch := c.ch
			if ch == 0 {
				ch = ' '
			}
			out = append(out, ch)
		}
		out = append(out, '\n')
	}
	return string(out)
}

func (s *Surface) cellAt(x, y float64) (int, int) {
	return int(math.Floor(x / s.cellW)), int(math.Floor(y / s.cellH))
}

func (s *Surface) at(col, row int) (*cell, bool) {
	if col < 0 || row < 0 || col >= s.cols || row >= s.rows {
		return nil, false
	}
	return &s.cells[row*s.cols+col], true
}

func sameStyle(a, b cell) bool {
	return a.fg == b.fg && a.bg == b.bg && a.bold == b.bold
}

func paint(run []cell) string {
	text := make([]rune, len(run))
	for i, c := range run {
		text[i] = c.ch
		if text[i] == 0 {
			text[i] = ' '
		}
	}
	attrs := []fcolor.Attribute{run[0].fg, run[0].bg}
	if run[0].bold {
		attrs = append(attrs, fcolor.Bold)
	}
	return fcolor.New(attrs...).Sprint(string(text))
}

func slopeGlyph(dx, dy float64) rune {
	if dx == 0 && dy == 0 {
		return '·'
	}
	angle := math.Atan2(dy, dx) * 180 / math.Pi
	if angle < 0 {
		angle += 180
	}
	switch {
	case angle < 22.5 || angle >= 157.5:
		return '-'
	case angle < 67.5:
		return '\\'
	case angle < 112.5:
		return '|'
	default:
		return '/'
	}
}

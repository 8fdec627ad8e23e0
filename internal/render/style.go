package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/msalah0e/meshview/internal/config"
)

// Style holds the colors and stroke geometry of a scene.
type Style struct {
	Background color.RGBA
	Alive      color.RGBA
	Dead       color.RGBA
	Outline    color.RGBA
	Edge       color.RGBA
	Label      color.RGBA

	ArrowHead      float64
	ConfirmedWidth float64
	ClaimWidth     float64
}

// DefaultStyle returns the stock palette.
func DefaultStyle() Style {
	s, err := StyleFromConfig(config.Default().Render)
	if err != nil {
		panic(err) // defaults are constants
	}
	return s
}

// StyleFromConfig parses the colors of a render config.
func StyleFromConfig(rc config.RenderConfig) (Style, error) {
	s := Style{
		ArrowHead:      rc.ArrowHead,
		ConfirmedWidth: rc.ConfirmedWidth,
		ClaimWidth:     rc.ClaimWidth,
	}

	fields := []struct {
		name string
		hex  string
		dst  *color.RGBA
	}{
		{"background", rc.Background, &s.Background},
		{"alive", rc.Alive, &s.Alive},
		{"dead", rc.Dead, &s.Dead},
		{"outline", rc.Outline, &s.Outline},
		{"edge", rc.Edge, &s.Edge},
		{"label", rc.Label, &s.Label},
	}
	for _, f := range fields {
		c, err := ParseHex(f.hex)
		if err != nil {
			return Style{}, fmt.Errorf("render.%s: %w", f.name, err)
		}
		*f.dst = c
	}
	return s, nil
}

// ParseHex parses #rgb or #rrggbb.
func ParseHex(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

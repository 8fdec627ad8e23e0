package term

import (
	"image/color"

	fcolor "github.com/fatih/color"
)

// ansi lists the 16 standard terminal colors with their usual RGB values.
var ansi = []struct {
	attr    fcolor.Attribute
	r, g, b int
}{
	{fcolor.FgBlack, 0, 0, 0},
	{fcolor.FgRed, 205, 0, 0},
	{fcolor.FgGreen, 0, 205, 0},
	{fcolor.FgYellow, 205, 205, 0},
	{fcolor.FgBlue, 0, 0, 238},
	{fcolor.FgMagenta, 205, 0, 205},
	{fcolor.FgCyan, 0, 205, 205},
	{fcolor.FgWhite, 229, 229, 229},
	{fcolor.FgHiBlack, 127, 127, 127},
	{fcolor.FgHiRed, 255, 0, 0},
	{fcolor.FgHiGreen, 0, 255, 0},
	{fcolor.FgHiYellow, 255, 255, 0},
	{fcolor.FgHiBlue, 92, 92, 255},
	{fcolor.FgHiMagenta, 255, 0, 255},
	{fcolor.FgHiCyan, 0, 255, 255},
	{fcolor.FgHiWhite, 255, 255, 255},
}

// foreground returns the nearest ANSI foreground attribute for c.
func foreground(c color.Color) fcolor.Attribute {
	r, g, b, _ := c.RGBA()
	ri, gi, bi := int(r>>8), int(g>>8), int(b>>8)

	best, bestDist := ansi[0].attr, -1
	for _, a := range ansi {
		dr, dg, db := ri-a.r, gi-a.g, bi-a.b
		d := dr*dr + dg*dg + db*db
		if bestDist < 0 || d < bestDist {
			best, bestDist = a.attr, d
		}
	}
	return best
}

// background returns the nearest ANSI background attribute for c.
func background(c color.Color) fcolor.Attribute {
	// Background codes sit 10 above their foreground counterparts.
	return foreground(c) + 10
}

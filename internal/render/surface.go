package render

import "image/color"

// Surface is a 2D drawing target bound to fixed pixel dimensions. Coordinates
// passed to drawing calls are transformed by the current translation.
type Surface interface {
	Size() (width, height int)
	// Clear fills the whole surface, ignoring the translation.
	Clear(c color.Color)
	Translate(dx, dy float64)
	ResetTransform()
	StrokeLine(x1, y1, x2, y2, width float64, c color.Color)
	FillCircle(x, y, r float64, fill, outline color.Color)
	// Text draws s centered on (x, y).
	Text(x, y float64, s string, c color.Color)
}

// Presenter is implemented by surfaces that buffer a frame and need an
// explicit flush once it is complete.
type Presenter interface {
	Present() error
}

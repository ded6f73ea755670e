package domain

import "fmt"

// ScreenRect is an axis-aligned rectangle in display units. The origin is
// the top-left corner and Y increases downward.
type ScreenRect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// NewScreenRect creates a screen rectangle.
func NewScreenRect(x, y, width, height float64) ScreenRect {
	return ScreenRect{X: x, Y: y, Width: width, Height: height}
}

// IsEmpty reports whether the rectangle has no area.
func (r ScreenRect) IsEmpty() bool {
	return !(r.Width > 0) || !(r.Height > 0)
}

// MinX returns the left edge.
func (r ScreenRect) MinX() float64 { return r.X }

// MinY returns the top edge.
func (r ScreenRect) MinY() float64 { return r.Y }

// MaxX returns the right edge.
func (r ScreenRect) MaxX() float64 { return r.X + r.Width }

// MaxY returns the bottom edge.
func (r ScreenRect) MaxY() float64 { return r.Y + r.Height }

// CenterX returns the horizontal center.
func (r ScreenRect) CenterX() float64 { return r.X + r.Width/2 }

// CenterY returns the vertical center.
func (r ScreenRect) CenterY() float64 { return r.Y + r.Height/2 }

// AspectRatio returns width / height, or 0 when empty.
func (r ScreenRect) AspectRatio() float64 {
	if r.IsEmpty() {
		return 0
	}
	return r.Width / r.Height
}

// String returns a string representation of the rectangle.
func (r ScreenRect) String() string {
	return fmt.Sprintf("RECT(%g,%g %gx%g)", r.X, r.Y, r.Width, r.Height)
}

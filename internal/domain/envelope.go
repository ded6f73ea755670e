package domain

import (
	"fmt"
	"math"
)

// Envelope is an axis-aligned rectangle in world coordinates tagged with a
// reference system. An envelope with zero or negative extent on either axis
// is empty.
type Envelope struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
	SRID int
}

// EmptyEnvelope returns an empty envelope in the given reference system.
func EmptyEnvelope(srid int) Envelope {
	return Envelope{SRID: srid}
}

// NewEnvelope creates an envelope spanning two corners. The corners may be
// given in any order.
func NewEnvelope(x1, y1, x2, y2 float64, srid int) Envelope {
	return Envelope{
		MinX: math.Min(x1, x2),
		MinY: math.Min(y1, y2),
		MaxX: math.Max(x1, x2),
		MaxY: math.Max(y1, y2),
		SRID: srid,
	}
}

// IsEmpty reports whether the envelope has no area.
func (e Envelope) IsEmpty() bool {
	// Negated comparisons so that NaN extents count as empty.
	return !(e.MaxX > e.MinX) || !(e.MaxY > e.MinY)
}

// Width returns the extent along the x axis, or 0 when empty.
func (e Envelope) Width() float64 {
	if e.IsEmpty() {
		return 0
	}
	return e.MaxX - e.MinX
}

// Height returns the extent along the y axis, or 0 when empty.
func (e Envelope) Height() float64 {
	if e.IsEmpty() {
		return 0
	}
	return e.MaxY - e.MinY
}

// AspectRatio returns width / height, or 0 when empty.
func (e Envelope) AspectRatio() float64 {
	if e.IsEmpty() {
		return 0
	}
	return e.Width() / e.Height()
}

// Center returns the center coordinate of the envelope.
func (e Envelope) Center() Coordinate {
	return Coordinate{
		X:    (e.MinX + e.MaxX) / 2,
		Y:    (e.MinY + e.MaxY) / 2,
		SRID: e.SRID,
	}
}

// Contains checks if a coordinate is within the envelope.
func (e Envelope) Contains(c Coordinate) bool {
	return c.X >= e.MinX && c.X <= e.MaxX && c.Y >= e.MinY && c.Y <= e.MaxY
}

// ContainsEnvelope checks if other lies entirely within e. tol absorbs
// floating point noise at the edges.
func (e Envelope) ContainsEnvelope(other Envelope, tol float64) bool {
	return other.MinX >= e.MinX-tol && other.MaxX <= e.MaxX+tol &&
		other.MinY >= e.MinY-tol && other.MaxY <= e.MaxY+tol
}

// Intersects checks if the two envelopes overlap.
func (e Envelope) Intersects(other Envelope) bool {
	if e.IsEmpty() || other.IsEmpty() {
		return false
	}
	return e.MinX <= other.MaxX && other.MinX <= e.MaxX &&
		e.MinY <= other.MaxY && other.MinY <= e.MaxY
}

// ExpandToInclude returns the smallest envelope covering both e and other.
// Degenerate envelopes (points, lines) still contribute their coordinates,
// so a scan must seed with its first element rather than the zero value.
func (e Envelope) ExpandToInclude(other Envelope) Envelope {
	return Envelope{
		MinX: math.Min(e.MinX, other.MinX),
		MinY: math.Min(e.MinY, other.MinY),
		MaxX: math.Max(e.MaxX, other.MaxX),
		MaxY: math.Max(e.MaxY, other.MaxY),
		SRID: e.SRID,
	}
}

// WithSRID returns a copy of e tagged with srid. Coordinates are untouched.
func (e Envelope) WithSRID(srid int) Envelope {
	e.SRID = srid
	return e
}

// ApproxEqual compares two envelopes with an absolute tolerance.
func (e Envelope) ApproxEqual(other Envelope, tol float64) bool {
	return e.SRID == other.SRID &&
		math.Abs(e.MinX-other.MinX) <= tol &&
		math.Abs(e.MinY-other.MinY) <= tol &&
		math.Abs(e.MaxX-other.MaxX) <= tol &&
		math.Abs(e.MaxY-other.MaxY) <= tol
}

// Validate checks that the envelope coordinates are finite and ordered.
func (e Envelope) Validate() error {
	for _, v := range []float64{e.MinX, e.MinY, e.MaxX, e.MaxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ValidationError{
				Field:      "bounds",
				Value:      e,
				Constraint: "finite",
				Message:    "envelope coordinates must be finite",
			}
		}
	}
	if e.SRID <= 0 {
		return &ValidationError{
			Field:      "srid",
			Value:      e.SRID,
			Constraint: "> 0",
			Message:    "envelope must carry a reference system",
		}
	}
	return nil
}

// String returns a string representation of the envelope.
func (e Envelope) String() string {
	if e.IsEmpty() {
		return fmt.Sprintf("ENVELOPE EMPTY SRID=%d", e.SRID)
	}
	return fmt.Sprintf("ENVELOPE(%f %f, %f %f) SRID=%d", e.MinX, e.MinY, e.MaxX, e.MaxY, e.SRID)
}

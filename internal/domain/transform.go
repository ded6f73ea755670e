package domain

import "math"

// Transform is a 2D affine map:
//
//	x' = ScaleX*x + ShearX*y + TranslateX
//	y' = ShearY*x + ScaleY*y + TranslateY
type Transform struct {
	ScaleX     float64
	ShearY     float64
	ShearX     float64
	ScaleY     float64
	TranslateX float64
	TranslateY float64
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{ScaleX: 1, ScaleY: 1}
}

// NewTransform creates a transform from its six components.
func NewTransform(scaleX, shearY, shearX, scaleY, translateX, translateY float64) Transform {
	return Transform{
		ScaleX:     scaleX,
		ShearY:     shearY,
		ShearX:     shearX,
		ScaleY:     scaleY,
		TranslateX: translateX,
		TranslateY: translateY,
	}
}

// Translation creates a pure translation.
func Translation(dx, dy float64) Transform {
	return Transform{ScaleX: 1, ScaleY: 1, TranslateX: dx, TranslateY: dy}
}

// Scaling creates a pure scale about the origin.
func Scaling(sx, sy float64) Transform {
	return Transform{ScaleX: sx, ScaleY: sy}
}

// Apply maps the point (x, y).
func (t Transform) Apply(x, y float64) (float64, float64) {
	return t.ScaleX*x + t.ShearX*y + t.TranslateX,
		t.ShearY*x + t.ScaleY*y + t.TranslateY
}

// Determinant returns the determinant of the linear part.
func (t Transform) Determinant() float64 {
	return t.ScaleX*t.ScaleY - t.ShearX*t.ShearY
}

// IsInvertible reports whether the transform has a finite, non-zero determinant.
func (t Transform) IsInvertible() bool {
	det := t.Determinant()
	return det != 0 && !math.IsNaN(det) && !math.IsInf(det, 0)
}

// Invert returns the inverse transform.
func (t Transform) Invert() (Transform, error) {
	if !t.IsInvertible() {
		return Transform{}, &TransformError{
			Op:     "invert",
			Detail: "determinant is zero or not finite",
			Err:    ErrDegenerateTransform,
		}
	}
	det := t.Determinant()
	return Transform{
		ScaleX:     t.ScaleY / det,
		ShearY:     -t.ShearY / det,
		ShearX:     -t.ShearX / det,
		ScaleY:     t.ScaleX / det,
		TranslateX: (t.ShearX*t.TranslateY - t.ScaleY*t.TranslateX) / det,
		TranslateY: (t.ShearY*t.TranslateX - t.ScaleX*t.TranslateY) / det,
	}, nil
}

// Concatenate returns the transform that applies other first, then t.
func (t Transform) Concatenate(other Transform) Transform {
	return Transform{
		ScaleX:     t.ScaleX*other.ScaleX + t.ShearX*other.ShearY,
		ShearY:     t.ShearY*other.ScaleX + t.ScaleY*other.ShearY,
		ShearX:     t.ScaleX*other.ShearX + t.ShearX*other.ScaleY,
		ScaleY:     t.ShearY*other.ShearX + t.ScaleY*other.ScaleY,
		TranslateX: t.ScaleX*other.TranslateX + t.ShearX*other.TranslateY + t.TranslateX,
		TranslateY: t.ShearY*other.TranslateX + t.ScaleY*other.TranslateY + t.TranslateY,
	}
}

// IsIdentity returns true if the transform is exactly the identity.
func (t Transform) IsIdentity() bool {
	return t == Identity()
}

// ApproxEqual compares two transforms component-wise.
func (t Transform) ApproxEqual(other Transform, tol float64) bool {
	a, b := t.Components(), other.Components()
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

// Components returns the six scalars in the order
// ScaleX, ShearY, ShearX, ScaleY, TranslateX, TranslateY.
func (t Transform) Components() [6]float64 {
	return [6]float64{t.ScaleX, t.ShearY, t.ShearX, t.ScaleY, t.TranslateX, t.TranslateY}
}

// TransformFromComponents is the inverse of Components.
func TransformFromComponents(c [6]float64) Transform {
	return NewTransform(c[0], c[1], c[2], c[3], c[4], c[5])
}

// IsFinite reports whether every component is a finite number.
func (t Transform) IsFinite() bool {
	for _, v := range t.Components() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

package transform

import (
	"math"

	"github.com/go-spatial/geom"
)

// Affine is a 2D affine matrix in row-vector convention:
//
//	x' = M11*x + M21*y + OffsetX
//	y' = M12*x + M22*y + OffsetY
//
// Scale, Rotate, Translate and Multiply append an operation, so the receiver is applied first.
type Affine struct {
	M11, M12 float64
	M21, M22 float64
	OffsetX  float64
	OffsetY  float64
}

func Identity() Affine {
	return Affine{M11: 1, M22: 1}
}

func NewAffine(m11, m12, m21, m22, offsetX, offsetY float64) Affine {
	return Affine{M11: m11, M12: m12, M21: m21, M22: m22, OffsetX: offsetX, OffsetY: offsetY}
}

func (m Affine) IsIdentity() bool {
	return m == Identity()
}

// Multiply returns the transform that applies m, then o.
func (m Affine) Multiply(o Affine) Affine {
	return Affine{
		M11:     m.M11*o.M11 + m.M12*o.M21,
		M12:     m.M11*o.M12 + m.M12*o.M22,
		M21:     m.M21*o.M11 + m.M22*o.M21,
		M22:     m.M21*o.M12 + m.M22*o.M22,
		OffsetX: m.OffsetX*o.M11 + m.OffsetY*o.M21 + o.OffsetX,
		OffsetY: m.OffsetX*o.M12 + m.OffsetY*o.M22 + o.OffsetY,
	}
}

func (m Affine) Scale(sx, sy float64) Affine {
	return m.Multiply(Affine{M11: sx, M22: sy})
}

func (m Affine) Translate(dx, dy float64) Affine {
	return m.Multiply(Affine{M11: 1, M22: 1, OffsetX: dx, OffsetY: dy})
}

// Rotate appends a rotation by angle degrees, clockwise in a y-down view space.
func (m Affine) Rotate(angle float64) Affine {
	angle = math.Mod(angle, 360)
	if angle == 0 {
		return m
	}
	sin, cos := math.Sincos(angle * math.Pi / 180)
	return m.Multiply(Affine{M11: cos, M12: sin, M21: -sin, M22: cos})
}

func (m Affine) Determinant() float64 {
	return m.M11*m.M22 - m.M12*m.M21
}

// Invert returns the inverse transform. ok is false for a singular matrix.
func (m Affine) Invert() (inv Affine, ok bool) {
	det := m.Determinant()
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return Affine{}, false
	}
	return Affine{
		M11:     m.M22 / det,
		M12:     -m.M12 / det,
		M21:     -m.M21 / det,
		M22:     m.M11 / det,
		OffsetX: (m.M21*m.OffsetY - m.M22*m.OffsetX) / det,
		OffsetY: (m.M12*m.OffsetX - m.M11*m.OffsetY) / det,
	}, true
}

func (m Affine) Transform(p geom.Point) geom.Point {
	return geom.Point{
		m.M11*p.X() + m.M21*p.Y() + m.OffsetX,
		m.M12*p.X() + m.M22*p.Y() + m.OffsetY,
	}
}

// TransformBounds returns the axis-aligned extent of the transformed rectangle.
func (m Affine) TransformBounds(x, y, width, height float64) geom.Extent {
	p1 := m.Transform(geom.Point{x, y})
	p2 := m.Transform(geom.Point{x + width, y})
	p3 := m.Transform(geom.Point{x, y + height})
	p4 := m.Transform(geom.Point{x + width, y + height})

	return geom.Extent{
		math.Min(math.Min(p1.X(), p2.X()), math.Min(p3.X(), p4.X())),
		math.Min(math.Min(p1.Y(), p2.Y()), math.Min(p3.Y(), p4.Y())),
		math.Max(math.Max(p1.X(), p2.X()), math.Max(p3.X(), p4.X())),
		math.Max(math.Max(p1.Y(), p2.Y()), math.Max(p3.Y(), p4.Y())),
	}
}

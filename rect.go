package placebo

import "math"

// Rect2D is an integer rectangle. X1/Y1 may be smaller than X0/Y0 to
// express a flip.
type Rect2D struct {
	X0, Y0, X1, Y1 int
}

// W returns the signed width.
func (r Rect2D) W() int { return r.X1 - r.X0 }

// H returns the signed height.
func (r Rect2D) H() int { return r.Y1 - r.Y0 }

// Normalize returns r with non-negative width and height.
func (r Rect2D) Normalize() Rect2D {
	if r.X1 < r.X0 {
		r.X0, r.X1 = r.X1, r.X0
	}
	if r.Y1 < r.Y0 {
		r.Y0, r.Y1 = r.Y1, r.Y0
	}
	return r
}

// Empty reports whether r covers no pixels.
func (r Rect2D) Empty() bool { return r.W() == 0 || r.H() == 0 }

// Float converts r to a Rect2DF.
func (r Rect2D) Float() Rect2DF {
	return Rect2DF{float64(r.X0), float64(r.Y0), float64(r.X1), float64(r.Y1)}
}

// Rect2DF is a rectangle in continuous coordinates.
type Rect2DF struct {
	X0, Y0, X1, Y1 float64
}

// W returns the signed width.
func (r Rect2DF) W() float64 { return r.X1 - r.X0 }

// H returns the signed height.
func (r Rect2DF) H() float64 { return r.Y1 - r.Y0 }

// Normalize returns r with non-negative width and height.
func (r Rect2DF) Normalize() Rect2DF {
	if r.X1 < r.X0 {
		r.X0, r.X1 = r.X1, r.X0
	}
	if r.Y1 < r.Y0 {
		r.Y0, r.Y1 = r.Y1, r.Y0
	}
	return r
}

// Empty reports whether r has zero area.
func (r Rect2DF) Empty() bool { return r.W() == 0 || r.H() == 0 }

// Round returns the enclosing integer rectangle of the normalized r.
func (r Rect2DF) Round() Rect2D {
	n := r.Normalize()
	return Rect2D{
		int(math.Floor(n.X0)), int(math.Floor(n.Y0)),
		int(math.Ceil(n.X1)), int(math.Ceil(n.Y1)),
	}
}

// Rect3D is an integer box.
type Rect3D struct {
	X0, Y0, Z0, X1, Y1, Z1 int
}

// W returns the signed width.
func (r Rect3D) W() int { return r.X1 - r.X0 }

// H returns the signed height.
func (r Rect3D) H() int { return r.Y1 - r.Y0 }

// D returns the signed depth.
func (r Rect3D) D() int { return r.Z1 - r.Z0 }

// Normalize returns r with non-negative extents.
func (r Rect3D) Normalize() Rect3D {
	if r.X1 < r.X0 {
		r.X0, r.X1 = r.X1, r.X0
	}
	if r.Y1 < r.Y0 {
		r.Y0, r.Y1 = r.Y1, r.Y0
	}
	if r.Z1 < r.Z0 {
		r.Z0, r.Z1 = r.Z1, r.Z0
	}
	return r
}

// Rect3DF is a box in continuous coordinates.
type Rect3DF struct {
	X0, Y0, Z0, X1, Y1, Z1 float64
}

// W returns the signed width.
func (r Rect3DF) W() float64 { return r.X1 - r.X0 }

// H returns the signed height.
func (r Rect3DF) H() float64 { return r.Y1 - r.Y0 }

// D returns the signed depth.
func (r Rect3DF) D() float64 { return r.Z1 - r.Z0 }

// Normalize returns r with non-negative extents.
func (r Rect3DF) Normalize() Rect3DF {
	if r.X1 < r.X0 {
		r.X0, r.X1 = r.X1, r.X0
	}
	if r.Y1 < r.Y0 {
		r.Y0, r.Y1 = r.Y1, r.Y0
	}
	if r.Z1 < r.Z0 {
		r.Z0, r.Z1 = r.Z1, r.Z0
	}
	return r
}

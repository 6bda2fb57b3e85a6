package colormath

import "math"

// LUT3D is a regular RGB lattice sampled from a color transform.
type LUT3D struct {
	Size [3]int
	// Scale maps input values onto the lattice: the cube covers
	// [0, Scale] on every axis.
	Scale float64
	Data  []Vec3
}

// NewLUT3D samples fn on an r×g×b lattice covering [0, scale]³.
func NewLUT3D(r, g, b int, scale float64, fn func(Vec3) Vec3) *LUT3D {
	r, g, b = max(r, 2), max(g, 2), max(b, 2)
	if scale <= 0 {
		scale = 1
	}
	l := &LUT3D{Size: [3]int{r, g, b}, Scale: scale, Data: make([]Vec3, r*g*b)}
	for bi := range b {
		for gi := range g {
			for ri := range r {
				in := Vec3{
					scale * float64(ri) / float64(r-1),
					scale * float64(gi) / float64(g-1),
					scale * float64(bi) / float64(b-1),
				}
				l.Data[(bi*g+gi)*r+ri] = fn(in)
			}
		}
	}
	return l
}

func (l *LUT3D) at(r, g, b int) Vec3 {
	return l.Data[(b*l.Size[1]+g)*l.Size[0]+r]
}

// Lookup interpolates the lattice trilinearly. Inputs outside the cube are
// clamped to its surface.
func (l *LUT3D) Lookup(v Vec3) Vec3 {
	var i0, i1 [3]int
	var f [3]float64
	for c := range 3 {
		n := l.Size[c] - 1
		x := math.Max(0, math.Min(v[c]/l.Scale, 1)) * float64(n)
		fl := math.Floor(x)
		i0[c] = int(fl)
		i1[c] = min(i0[c]+1, n)
		f[c] = x - fl
	}

	c00 := Mix(l.at(i0[0], i0[1], i0[2]), l.at(i1[0], i0[1], i0[2]), f[0])
	c10 := Mix(l.at(i0[0], i1[1], i0[2]), l.at(i1[0], i1[1], i0[2]), f[0])
	c01 := Mix(l.at(i0[0], i0[1], i1[2]), l.at(i1[0], i0[1], i1[2]), f[0])
	c11 := Mix(l.at(i0[0], i1[1], i1[2]), l.at(i1[0], i1[1], i1[2]), f[0])
	c0 := Mix(c00, c10, f[1])
	c1 := Mix(c01, c11, f[1])
	return Mix(c0, c1, f[2])
}

package raster

import (
	"math"

	"github.com/gogpu/placebo/internal/parallel"
)

// SeparableLUT holds the weights of a one-dimensional filter, one row of
// RowSize taps per subpixel offset. Row i is for offset i/(Entries-1).
type SeparableLUT struct {
	RowSize   int
	RowStride int
	Entries   int
	Weights   []float32
}

// Row returns the taps for the subpixel offset t in [0, 1].
func (l *SeparableLUT) Row(t float64) []float32 {
	i := int(math.Round(t * float64(l.Entries-1)))
	i = clampInt(i, 0, l.Entries-1)
	return l.Weights[i*l.RowStride : i*l.RowStride+l.RowSize]
}

// PolarLUT holds radial filter weights sampled at Entries points over
// [0, Radius]. Contributions beyond Cutoff are skipped.
type PolarLUT struct {
	Radius  float64
	Cutoff  float64
	Entries int
	Weights []float32
}

// Weight interpolates the table at distance d.
func (l *PolarLUT) Weight(d float64) float32 {
	if d >= l.Radius {
		return 0
	}
	x := d / l.Radius * float64(l.Entries-1)
	i := int(x)
	if i >= l.Entries-1 {
		return l.Weights[l.Entries-1]
	}
	t := float32(x - float64(i))
	return l.Weights[i] + (l.Weights[i+1]-l.Weights[i])*t
}

// Rect is a source region in continuous pixel coordinates.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// W returns the signed width of r.
func (r Rect) W() float64 { return r.X1 - r.X0 }

// H returns the signed height of r.
func (r Rect) H() float64 { return r.Y1 - r.Y0 }

// Sampler selects a built-in scaler.
type Sampler uint8

const (
	SampleBilinear Sampler = iota
	SampleNearest
)

// ScaleBuiltin resamples the src region into a w×h frame with a fixed
// hardware-style sampler.
func ScaleBuiltin(pool *parallel.WorkerPool, src *Frame, r Rect, w, h int, s Sampler) (*Frame, error) {
	dst, err := NewFrame(w, h)
	if err != nil {
		return nil, err
	}
	sx, sy := r.W()/float64(w), r.H()/float64(h)
	Map(pool, dst, func(px *[4]float32, x, y int) {
		fx := r.X0 + (float64(x)+0.5)*sx
		fy := r.Y0 + (float64(y)+0.5)*sy
		if s == SampleNearest {
			*px = src.Nearest(fx, fy)
		} else {
			*px = src.Bilinear(fx, fy)
		}
	})
	return dst, nil
}

// Axis describes the filter used along one axis of a separable scale.
// A nil LUT selects bilinear interpolation along that axis.
type Axis struct {
	LUT      *SeparableLUT
	Antiring float32
}

// ScaleSeparable resamples the src region into a w×h frame in two passes,
// horizontal then vertical.
func ScaleSeparable(pool *parallel.WorkerPool, src *Frame, r Rect, w, h int, ax, ay Axis) (*Frame, error) {
	tmp, err := NewFrame(w, src.H)
	if err != nil {
		return nil, err
	}
	sx := r.W() / float64(w)
	pool.Rows(src.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := range w {
				pos := r.X0 + (float64(x)+0.5)*sx - 0.5
				px := convolve(ax, pos, func(i int) [4]float32 { return src.At(i, y) })
				tmp.Set(x, y, px)
			}
		}
	})

	dst, err := NewFrame(w, h)
	if err != nil {
		return nil, err
	}
	sy := r.H() / float64(h)
	pool.Rows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			pos := r.Y0 + (float64(y)+0.5)*sy - 0.5
			for x := range w {
				px := convolve(ay, pos, func(i int) [4]float32 { return tmp.At(x, i) })
				dst.Set(x, y, px)
			}
		}
	})
	return dst, nil
}

// convolve filters along one axis around pos, where integer positions are
// pixel centers.
func convolve(a Axis, pos float64, at func(int) [4]float32) [4]float32 {
	base := int(math.Floor(pos))
	t := pos - float64(base)

	if a.LUT == nil {
		p, q := at(base), at(base+1)
		var out [4]float32
		for i := range 4 {
			out[i] = p[i] + (q[i]-p[i])*float32(t)
		}
		return out
	}

	row := a.LUT.Row(t)
	n := a.LUT.RowSize / 2
	var sum [4]float32
	var wsum float32
	for j, w := range row {
		px := at(base - (n - 1) + j)
		for i := range 4 {
			sum[i] += w * px[i]
		}
		wsum += w
	}
	if wsum != 0 && wsum != 1 {
		for i := range sum {
			sum[i] /= wsum
		}
	}

	if a.Antiring > 0 {
		p, q := at(base), at(base+1)
		for i := range 4 {
			lo, hi := min(p[i], q[i]), max(p[i], q[i])
			c := clamp32(sum[i], lo, hi)
			sum[i] += (c - sum[i]) * a.Antiring
		}
	}
	return sum
}

// ScalePolar resamples the src region into a w×h frame with a radially
// symmetric (EWA) filter. When downscaling, the filter footprint grows by
// the scale factor.
func ScalePolar(pool *parallel.WorkerPool, src *Frame, r Rect, w, h int, lut *PolarLUT, antiring float32) (*Frame, error) {
	dst, err := NewFrame(w, h)
	if err != nil {
		return nil, err
	}
	sx, sy := r.W()/float64(w), r.H()/float64(h)
	scale := math.Max(1, math.Max(math.Abs(sx), math.Abs(sy)))
	radius := lut.Radius * scale
	cutoff := lut.Cutoff

	Map(pool, dst, func(out *[4]float32, x, y int) {
		px := r.X0 + (float64(x)+0.5)*sx - 0.5
		py := r.Y0 + (float64(y)+0.5)*sy - 0.5

		var sum [4]float32
		var wsum float32
		for iy := int(math.Ceil(py - radius)); iy <= int(math.Floor(py+radius)); iy++ {
			dy := float64(iy) - py
			for ix := int(math.Ceil(px - radius)); ix <= int(math.Floor(px+radius)); ix++ {
				d := math.Hypot(float64(ix)-px, dy) / scale
				if cutoff > 0 && d > cutoff {
					continue
				}
				wt := lut.Weight(d)
				if wt == 0 {
					continue
				}
				c := src.At(ix, iy)
				for i := range 4 {
					sum[i] += wt * c[i]
				}
				wsum += wt
			}
		}
		if wsum != 0 {
			for i := range sum {
				sum[i] /= wsum
			}
		}

		if antiring > 0 {
			bx, by := int(math.Floor(px)), int(math.Floor(py))
			ring := [4][4]float32{src.At(bx, by), src.At(bx+1, by), src.At(bx, by+1), src.At(bx+1, by+1)}
			for i := range 4 {
				lo := min(ring[0][i], ring[1][i], ring[2][i], ring[3][i])
				hi := max(ring[0][i], ring[1][i], ring[2][i], ring[3][i])
				c := clamp32(sum[i], lo, hi)
				sum[i] += (c - sum[i]) * antiring
			}
		}
		*out = sum
	})
	return dst, nil
}

// Sigmoid compresses values around center with the given slope before
// upscaling, reducing ringing on high-contrast edges. Unsigmoid inverts it.
type Sigmoid struct {
	Center, Slope float64
}

func (s Sigmoid) bounds() (offset, scale float64) {
	offset = 1 / (1 + math.Exp(s.Slope*s.Center))
	scale = 1/(1+math.Exp(s.Slope*(s.Center-1))) - offset
	return offset, scale
}

// Apply maps x in [0, 1] into sigmoid space.
func (s Sigmoid) Apply(x float32) float32 {
	offset, scale := s.bounds()
	v := math.Max(0, math.Min(float64(x), 1))*scale + offset
	v = math.Max(v, 1e-9)
	return float32(s.Center - math.Log(1/v-1)/s.Slope)
}

// Invert maps x from sigmoid space back to [0, 1].
func (s Sigmoid) Invert(x float32) float32 {
	offset, scale := s.bounds()
	v := 1 / (1 + math.Exp(s.Slope*(s.Center-float64(x))))
	return float32((v - offset) / scale)
}

package raster

import (
	"math"

	"github.com/gogpu/placebo/internal/parallel"
)

// DebandOptions configures Deband.
type DebandOptions struct {
	Iterations int
	// Threshold is the cut-off in thousandths of the signal range, divided
	// by the iteration number.
	Threshold float64
	// Radius is the maximum sampling distance of the first iteration, in
	// pixels. Iteration i samples up to i*Radius.
	Radius float64
	// Grain is the amplitude of the added noise in thousandths.
	Grain float64
	// Seed varies the noise between frames.
	Seed uint64
}

// Deband smooths banding in the color channels of f. Each iteration
// averages four points mirrored around the pixel in a random direction and
// keeps the average wherever it differs from the pixel by less than the
// threshold. Alpha is untouched.
func Deband(pool *parallel.WorkerPool, f *Frame, o DebandOptions) *Frame {
	if o.Iterations <= 0 && o.Grain <= 0 {
		return f
	}
	src := f
	dst := f.Clone()
	pool.Rows(f.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := range f.W {
				px := src.At(x, y)
				for it := 1; it <= o.Iterations; it++ {
					h := hash(uint64(x), uint64(y), uint64(it), o.Seed)
					d := float64(it) * o.Radius * uniform(h)
					dir := 2 * math.Pi * uniform(hash(h, 1, 0, 0))
					ox, oy := d*math.Cos(dir), d*math.Sin(dir)

					fx, fy := float64(x)+0.5, float64(y)+0.5
					a := src.Bilinear(fx+ox, fy+oy)
					b := src.Bilinear(fx-ox, fy+oy)
					c := src.Bilinear(fx+ox, fy-oy)
					e := src.Bilinear(fx-ox, fy-oy)

					thr := float32(o.Threshold / (1000 * float64(it)))
					for i := range 3 {
						avg := (a[i] + b[i] + c[i] + e[i]) / 4
						if abs32(px[i]-avg) < thr {
							px[i] = avg
						}
					}
				}
				if o.Grain > 0 {
					g := float32((uniform(hash(uint64(x), uint64(y), 0xfeed, o.Seed)) - 0.5) * o.Grain / 1000)
					for i := range 3 {
						px[i] += g
					}
				}
				dst.Set(x, y, px)
			}
		}
	})
	return dst
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

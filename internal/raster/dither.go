package raster

import (
	"math"

	"github.com/gogpu/placebo/internal/parallel"
)

// DitherMatrix is a square threshold map with values in [0, 1).
type DitherMatrix struct {
	Size int
	Data []float32
}

// At returns the threshold for (x, y), tiling the matrix.
func (m *DitherMatrix) At(x, y int) float32 {
	return m.Data[(y%m.Size)*m.Size+x%m.Size]
}

// Bayer returns the ordered dither matrix of size 2^sizeLog2.
func Bayer(sizeLog2 int) *DitherMatrix {
	size := 1 << sizeLog2
	m := &DitherMatrix{Size: size, Data: make([]float32, size*size)}
	n := float32(size * size)
	for y := range size {
		for x := range size {
			m.Data[y*size+x] = (float32(bayerIndex(x, y, sizeLog2)) + 0.5) / n
		}
	}
	return m
}

// bayerIndex interleaves the bits of x^y and y in reverse order.
func bayerIndex(x, y, bits int) int {
	v := 0
	xy := x ^ y
	for b := range bits {
		v = v<<2 | ((xy>>b)&1)<<1 | (y>>b)&1
	}
	return v
}

// BlueNoise returns a 2^sizeLog2 square blue noise matrix built with the
// void-and-cluster method on a torus. The result is deterministic.
func BlueNoise(sizeLog2 int) *DitherMatrix {
	size := 1 << sizeLog2
	n := size * size

	// Gaussian energy of every toroidal offset.
	const sigma = 1.5
	kernel := make([]float64, n)
	for dy := range size {
		for dx := range size {
			ddx := float64(min(dx, size-dx))
			ddy := float64(min(dy, size-dy))
			kernel[dy*size+dx] = math.Exp(-(ddx*ddx + ddy*ddy) / (2 * sigma * sigma))
		}
	}

	energy := make([]float64, n)
	set := make([]bool, n)
	update := func(p int, sign float64) {
		px, py := p%size, p/size
		for y := range size {
			dy := (y - py + size) % size
			for x := range size {
				dx := (x - px + size) % size
				energy[y*size+x] += sign * kernel[dy*size+dx]
			}
		}
	}
	extreme := func(want bool, pickMax bool) int {
		best := -1
		for i := range n {
			if set[i] != want {
				continue
			}
			if best < 0 || (pickMax && energy[i] > energy[best]) || (!pickMax && energy[i] < energy[best]) {
				best = i
			}
		}
		return best
	}

	// Initial pattern: a tenth of the cells from white noise.
	ones := max(n/10, 1)
	for placed, k := 0, uint64(0); placed < ones; k++ {
		p := int(hash(k, uint64(size), 0xb1, 0) % uint64(n))
		if !set[p] {
			set[p] = true
			update(p, 1)
			placed++
		}
	}

	// Relax: move the tightest cluster into the largest void until stable.
	for range n {
		c := extreme(true, true)
		set[c] = false
		update(c, -1)
		v := extreme(false, false)
		set[v] = true
		update(v, 1)
		if v == c {
			break
		}
	}

	rank := make([]int, n)
	initial := append([]bool(nil), set...)
	initialEnergy := append([]float64(nil), energy...)

	// Rank the initial points by repeatedly removing the tightest cluster.
	for r := ones - 1; r >= 0; r-- {
		c := extreme(true, true)
		set[c] = false
		update(c, -1)
		rank[c] = r
	}

	// Fill the remaining cells into the largest voids.
	copy(set, initial)
	copy(energy, initialEnergy)
	for r := ones; r < n; r++ {
		v := extreme(false, false)
		set[v] = true
		update(v, 1)
		rank[v] = r
	}

	m := &DitherMatrix{Size: size, Data: make([]float32, n)}
	for i, r := range rank {
		m.Data[i] = (float32(r) + 0.5) / float32(n)
	}
	return m
}

// DitherOptions configures Dither.
type DitherOptions struct {
	// Depth is the bit depth the frame is about to be quantized to.
	Depth int
	// Matrix is the threshold map; nil selects white noise.
	Matrix *DitherMatrix
	// Frame shifts the pattern for temporal dithering.
	Frame uint64
	// Temporal enables the per-frame shift.
	Temporal bool
}

// Dither adds sub-quantum offsets to the color channels of f so that the
// following rounding to Depth bits distributes its error spatially.
func Dither(pool *parallel.WorkerPool, f *Frame, o DitherOptions) {
	if o.Depth <= 0 || o.Depth > 16 {
		return
	}
	scale := float32(1) / float32(int(1)<<o.Depth-1)
	var shift int
	if o.Temporal {
		shift = int(o.Frame % 8)
	}
	Map(pool, f, func(px *[4]float32, x, y int) {
		var t float32
		if o.Matrix != nil {
			xx, yy := x, y
			if shift != 0 {
				// Rotate the matrix by quarter turns and offset it.
				for range shift & 3 {
					xx, yy = yy, o.Matrix.Size-1-xx%o.Matrix.Size
				}
				xx += shift * 3
				yy += shift * 5
			}
			t = o.Matrix.At(xx, yy)
		} else {
			var frame uint64
			if o.Temporal {
				frame = o.Frame
			}
			t = float32(uniform(hash(uint64(x), uint64(y), frame, 0xd1)))
		}
		off := (t - 0.5) * scale
		for i := range 3 {
			px[i] += off
		}
	})
}

package raster

import (
	"math"
	"sync"

	"github.com/gogpu/placebo/internal/parallel"
)

// Luminance measures the peak and mean luminance of the color channels of f
// using the given luma coefficients. Negative luminance counts as zero.
func Luminance(pool *parallel.WorkerPool, f *Frame, luma [3]float64) (peak, avg float64) {
	var mu sync.Mutex
	var sum float64
	pool.Rows(f.H, func(y0, y1 int) {
		var bandPeak, bandSum float64
		for i := y0 * f.W * 4; i < y1*f.W*4; i += 4 {
			y := luma[0]*float64(f.Pix[i]) + luma[1]*float64(f.Pix[i+1]) + luma[2]*float64(f.Pix[i+2])
			y = math.Max(y, 0)
			bandPeak = math.Max(bandPeak, y)
			bandSum += y
		}
		mu.Lock()
		peak = math.Max(peak, bandPeak)
		sum += bandSum
		mu.Unlock()
	})
	return peak, sum / float64(f.W*f.H)
}

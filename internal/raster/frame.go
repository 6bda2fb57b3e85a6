// Package raster is the CPU side of the render pipeline: float RGBA frames,
// sampling, separable and polar resampling, debanding, dithering and overlay
// blending. Row work is spread over a parallel.WorkerPool.
package raster

import (
	"errors"
	"math"

	"github.com/gogpu/placebo/internal/parallel"
)

// ErrInvalidDimensions is returned for frames without pixels.
var ErrInvalidDimensions = errors.New("raster: invalid dimensions")

// Frame is a row-major image of four float32 channels per pixel.
// Channels 0..2 carry color, channel 3 straight (non-premultiplied) alpha.
type Frame struct {
	W, H int
	Pix  []float32
}

// NewFrame allocates a zeroed frame.
func NewFrame(w, h int) (*Frame, error) {
	if w <= 0 || h <= 0 {
		return nil, ErrInvalidDimensions
	}
	return &Frame{W: w, H: h, Pix: make([]float32, w*h*4)}, nil
}

// At returns the pixel at (x, y), clamping coordinates to the edge.
func (f *Frame) At(x, y int) [4]float32 {
	x = clampInt(x, 0, f.W-1)
	y = clampInt(y, 0, f.H-1)
	i := (y*f.W + x) * 4
	return [4]float32{f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3]}
}

// Set stores a pixel. Out of range coordinates are ignored.
func (f *Frame) Set(x, y int, px [4]float32) {
	if x < 0 || y < 0 || x >= f.W || y >= f.H {
		return
	}
	i := (y*f.W + x) * 4
	copy(f.Pix[i:i+4], px[:])
}

// Fill sets every pixel to px.
func (f *Frame) Fill(px [4]float32) {
	for i := 0; i < len(f.Pix); i += 4 {
		copy(f.Pix[i:i+4], px[:])
	}
}

// Clone returns a deep copy of f.
func (f *Frame) Clone() *Frame {
	return &Frame{W: f.W, H: f.H, Pix: append([]float32(nil), f.Pix...)}
}

// Bilinear samples f at continuous pixel coordinates, where pixel centers
// lie at integer + 0.5.
func (f *Frame) Bilinear(x, y float64) [4]float32 {
	fx := x - 0.5
	fy := y - 0.5
	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	tx := float32(fx - float64(x0))
	ty := float32(fy - float64(y0))

	a, b := f.At(x0, y0), f.At(x0+1, y0)
	c, d := f.At(x0, y0+1), f.At(x0+1, y0+1)
	var out [4]float32
	for i := range 4 {
		top := a[i] + (b[i]-a[i])*tx
		bot := c[i] + (d[i]-c[i])*tx
		out[i] = top + (bot-top)*ty
	}
	return out
}

// Nearest samples f at continuous pixel coordinates without interpolation.
func (f *Frame) Nearest(x, y float64) [4]float32 {
	return f.At(int(math.Floor(x)), int(math.Floor(y)))
}

// Map applies fn to every pixel in place.
func Map(pool *parallel.WorkerPool, f *Frame, fn func(px *[4]float32, x, y int)) {
	pool.Rows(f.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := f.Pix[y*f.W*4 : (y+1)*f.W*4]
			for x := range f.W {
				px := (*[4]float32)(row[x*4 : x*4+4])
				fn(px, x, y)
			}
		}
	})
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

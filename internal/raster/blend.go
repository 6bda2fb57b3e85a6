package raster

import (
	"image"

	"github.com/gogpu/placebo/internal/parallel"
)

// BlendMode selects how an overlay is composited.
type BlendMode uint8

const (
	// BlendNormal alpha-blends the overlay colors.
	BlendNormal BlendMode = iota
	// BlendMonochrome uses channel 0 of the overlay as coverage for a flat
	// tint color.
	BlendMonochrome
)

// Blend composites src, stretched over rect, onto dst. Parts of rect
// outside dst are clipped. Both frames must be in the same color space.
func Blend(pool *parallel.WorkerPool, dst, src *Frame, rect image.Rectangle, mode BlendMode, tint [3]float32) {
	rect = rect.Canon()
	clip := rect.Intersect(image.Rect(0, 0, dst.W, dst.H))
	if clip.Empty() || src == nil {
		return
	}
	sx := float64(src.W) / float64(rect.Dx())
	sy := float64(src.H) / float64(rect.Dy())

	pool.Rows(clip.Dy(), func(r0, r1 int) {
		for y := clip.Min.Y + r0; y < clip.Min.Y+r1; y++ {
			for x := clip.Min.X; x < clip.Max.X; x++ {
				u := (float64(x-rect.Min.X) + 0.5) * sx
				v := (float64(y-rect.Min.Y) + 0.5) * sy
				s := src.Bilinear(u, v)
				d := dst.At(x, y)

				var color [3]float32
				var a float32
				if mode == BlendMonochrome {
					color, a = tint, clamp32(s[0], 0, 1)
				} else {
					color, a = [3]float32{s[0], s[1], s[2]}, clamp32(s[3], 0, 1)
				}
				for i := range 3 {
					d[i] += (color[i] - d[i]) * a
				}
				d[3] = a + d[3]*(1-a)
				dst.Set(x, y, d)
			}
		}
	})
}

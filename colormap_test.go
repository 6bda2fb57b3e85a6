package placebo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gogpu/placebo/internal/colormath"
)

func assertPx(t *testing.T, want, got [4]float32, delta float64, msgAndArgs ...any) {
	t.Helper()
	for i := range 4 {
		assert.InDelta(t, want[i], got[i], delta, msgAndArgs...)
	}
}

func TestColorPipelineRoundTrip(t *testing.T) {
	p := DefaultRenderParams()
	for _, space := range []ColorSpace{ColorSpaceSRGB, ColorSpaceBT709, ColorSpaceHDR10, ColorSpaceBT2020HLG} {
		c := newColorPipeline(ColorReprRGB, space, ColorReprRGB, space, &p)
		assert.False(t, c.mapColors)
		in := [4]float32{0.2, 0.5, 0.8, 1}
		px := in
		c.decodePixel(&px)
		c.mapPixel(&px)
		c.encodePixel(&px)
		assertPx(t, in, px, 1e-4, "%+v", space)
	}
}

func TestColorPipelineYCbCr(t *testing.T) {
	p := DefaultRenderParams()
	c := newColorPipeline(ColorReprHDTV, ColorSpaceBT709, ColorReprRGB, ColorSpaceBT709, &p)

	black := [4]float32{16.0 / 255, 128.0 / 255, 128.0 / 255, 1}
	c.decodePixel(&black)
	assertPx(t, [4]float32{0, 0, 0, 1}, black, 0.01)

	white := [4]float32{235.0 / 255, 128.0 / 255, 128.0 / 255, 1}
	c.decodePixel(&white)
	assertPx(t, [4]float32{1, 1, 1, 1}, white, 0.01)
}

func TestColorPipelineToneMapping(t *testing.T) {
	p := DefaultRenderParams()
	p.ColorMap.Intent = IntentPerceptual
	c := newColorPipeline(ColorReprRGB, ColorSpaceHDR10, ColorReprRGB, ColorSpaceSRGB, &p)
	assert.True(t, c.mapColors)

	px := [4]float32{20, 15, 10, 1}
	c.mapPixel(&px)
	for i := range 3 {
		assert.LessOrEqual(t, px[i], float32(1+1e-3))
		assert.GreaterOrEqual(t, px[i], float32(-1e-3))
	}
	assert.Greater(t, px[0], px[2], "hue order survives tone mapping")

	// Without explicit parameters the default mapping applies.
	want := [4]float32{20, 15, 10, 1}
	def := DefaultRenderParams()
	newColorPipeline(ColorReprRGB, ColorSpaceHDR10, ColorReprRGB, ColorSpaceSRGB, &def).mapPixel(&want)
	p.ColorMap = nil
	c = newColorPipeline(ColorReprRGB, ColorSpaceHDR10, ColorReprRGB, ColorSpaceSRGB, &p)
	assert.True(t, c.mapColors)
	px = [4]float32{20, 15, 10, 1}
	c.mapPixel(&px)
	assert.Equal(t, want, px)
}

func TestColorPipelineGamutWarning(t *testing.T) {
	p := DefaultRenderParams()
	p.ColorMap.GamutWarning = true
	c := newColorPipeline(ColorReprRGB, ColorSpace{Primaries: ColorPrimBT2020, Transfer: ColorTrcSRGB},
		ColorReprRGB, ColorSpaceSRGB, &p)

	gray := c.colorMap(colormath.Vec3{0.5, 0.5, 0.5})
	assert.InDelta(t, 0.5, gray[0], 1e-6)

	green := c.colorMap(colormath.Vec3{0, 1, 0})
	assert.InDelta(t, 1, green[0], 1e-6, "out of gamut colors are inverted")
	assert.InDelta(t, 0, green[1], 1e-6)
}

func TestSoftClipKeepsLuma(t *testing.T) {
	luma := colormath.LumaCoeffs(ColorPrimBT709.raw())
	v := colormath.Vec3{1.4, 0.2, -0.1}
	got := softClip(v, luma, 1)
	assert.InDelta(t, colormath.Dot(v, luma), colormath.Dot(got, luma), 1e-9)
	for _, x := range got {
		assert.GreaterOrEqual(t, x, -1e-9)
		assert.LessOrEqual(t, x, 1+1e-9)
	}
}

func TestAdjustColor(t *testing.T) {
	luma := colormath.LumaCoeffs(ColorPrimBT709.raw())
	v := colormath.Vec3{0.3, 0.6, 0.1}

	neutral := DefaultColorAdjustment()
	got := adjustColor(v, luma, &neutral)
	for i := range v {
		assert.InDelta(t, v[i], got[i], 1e-12)
	}

	gray := DefaultColorAdjustment()
	gray.Saturation = 0
	got = adjustColor(v, luma, &gray)
	assert.InDelta(t, got[0], got[1], 1e-12)
	assert.InDelta(t, got[1], got[2], 1e-12)

	// A full turn of hue is the identity.
	turn := DefaultColorAdjustment()
	turn.Hue = 2 * 3.141592653589793
	got = adjustColor(v, luma, &turn)
	for i := range v {
		assert.InDelta(t, v[i], got[i], 1e-9)
	}
}

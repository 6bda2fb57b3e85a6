package raster

import (
	"image"
	"math"
	"testing"

	"github.com/gogpu/placebo/internal/parallel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPool(t *testing.T) *parallel.WorkerPool {
	t.Helper()
	p := parallel.NewWorkerPool(4)
	t.Cleanup(p.Close)
	return p
}

func solid(t *testing.T, w, h int, px [4]float32) *Frame {
	t.Helper()
	f, err := NewFrame(w, h)
	require.NoError(t, err)
	f.Fill(px)
	return f
}

// linearLUT is a two-tap linear interpolation table.
func linearLUT(entries int) *SeparableLUT {
	l := &SeparableLUT{RowSize: 2, RowStride: 2, Entries: entries, Weights: make([]float32, 2*entries)}
	for i := range entries {
		t := float32(i) / float32(entries-1)
		l.Weights[2*i] = 1 - t
		l.Weights[2*i+1] = t
	}
	return l
}

func TestNewFrameRejectsEmpty(t *testing.T) {
	_, err := NewFrame(0, 4)
	assert.ErrorIs(t, err, ErrInvalidDimensions)
}

func TestFrameAccessors(t *testing.T) {
	f := solid(t, 3, 2, [4]float32{0, 0, 0, 1})
	f.Set(2, 1, [4]float32{1, 2, 3, 4})
	f.Set(5, 5, [4]float32{9, 9, 9, 9})
	assert.Equal(t, [4]float32{1, 2, 3, 4}, f.At(2, 1))
	assert.Equal(t, [4]float32{1, 2, 3, 4}, f.At(10, 10), "At clamps to edge")
	c := f.Clone()
	c.Set(0, 0, [4]float32{7, 7, 7, 7})
	assert.NotEqual(t, c.At(0, 0), f.At(0, 0))
}

func TestBilinearMidpoint(t *testing.T) {
	f := solid(t, 2, 1, [4]float32{})
	f.Set(1, 0, [4]float32{1, 1, 1, 1})
	got := f.Bilinear(1.0, 0.5)
	assert.InDelta(t, 0.5, got[0], 1e-6)
}

func TestScalePreservesSolidColor(t *testing.T) {
	pool := newPool(t)
	px := [4]float32{0.25, 0.5, 0.75, 1}
	src := solid(t, 8, 6, px)
	r := Rect{0, 0, 8, 6}

	sep, err := ScaleSeparable(pool, src, r, 13, 3, Axis{LUT: linearLUT(16)}, Axis{LUT: linearLUT(16), Antiring: 1})
	require.NoError(t, err)
	polar, err := ScalePolar(pool, src, r, 5, 9, jincLUT(), 0.5)
	require.NoError(t, err)
	builtin, err := ScaleBuiltin(pool, src, r, 16, 12, SampleBilinear)
	require.NoError(t, err)

	for _, f := range []*Frame{sep, polar, builtin} {
		for y := range f.H {
			for x := range f.W {
				got := f.At(x, y)
				for i := range 4 {
					assert.InDelta(t, px[i], got[i], 1e-5)
				}
			}
		}
	}
}

func jincLUT() *PolarLUT {
	const entries = 64
	const radius = 3.2383154841662362
	l := &PolarLUT{Radius: radius, Cutoff: radius, Entries: entries, Weights: make([]float32, entries)}
	for i := range entries {
		x := radius * float64(i) / float64(entries-1) * math.Pi
		w := 1.0
		if x > 1e-8 {
			w = 2 * math.J1(x) / x
		}
		l.Weights[i] = float32(w)
	}
	return l
}

func TestScaleSeparableIdentity(t *testing.T) {
	pool := newPool(t)
	src, err := NewFrame(4, 4)
	require.NoError(t, err)
	for y := range 4 {
		for x := range 4 {
			v := float32(x+4*y) / 16
			src.Set(x, y, [4]float32{v, v, v, 1})
		}
	}
	dst, err := ScaleSeparable(pool, src, Rect{0, 0, 4, 4}, 4, 4, Axis{LUT: linearLUT(8)}, Axis{LUT: linearLUT(8)})
	require.NoError(t, err)
	assert.InDeltaSlice(t, src.Pix, dst.Pix, 1e-6)
}

func TestScaleBuiltinNearest(t *testing.T) {
	pool := newPool(t)
	src := solid(t, 2, 2, [4]float32{})
	src.Set(1, 1, [4]float32{1, 1, 1, 1})
	dst, err := ScaleBuiltin(pool, src, Rect{0, 0, 2, 2}, 4, 4, SampleNearest)
	require.NoError(t, err)
	assert.Equal(t, float32(1), dst.At(3, 3)[0])
	assert.Equal(t, float32(0), dst.At(1, 1)[0])
}

func TestPolarLUTWeight(t *testing.T) {
	l := &PolarLUT{Radius: 2, Entries: 3, Weights: []float32{1, 0.5, 0}}
	assert.InDelta(t, 0.75, l.Weight(0.5), 1e-6)
	assert.Equal(t, float32(0), l.Weight(2))
}

func TestSigmoidRoundTrip(t *testing.T) {
	s := Sigmoid{Center: 0.75, Slope: 6.5}
	for _, x := range []float32{0, 0.1, 0.5, 0.9, 1} {
		assert.InDelta(t, x, s.Invert(s.Apply(x)), 1e-5)
	}
}

func TestDebandFlatIsStable(t *testing.T) {
	pool := newPool(t)
	px := [4]float32{0.5, 0.5, 0.5, 1}
	src := solid(t, 16, 16, px)
	out := Deband(pool, src, DebandOptions{Iterations: 2, Threshold: 4, Radius: 16, Seed: 7})
	assert.InDeltaSlice(t, src.Pix, out.Pix, 1e-6)
}

func TestDebandSmoothsSmallSteps(t *testing.T) {
	pool := newPool(t)
	src := solid(t, 32, 1, [4]float32{0.5, 0.5, 0.5, 1})
	for x := 16; x < 32; x++ {
		src.Set(x, 0, [4]float32{0.501, 0.501, 0.501, 1})
	}
	out := Deband(pool, src, DebandOptions{Iterations: 1, Threshold: 64, Radius: 8, Seed: 1})
	changed := false
	for x := range 32 {
		if out.At(x, 0)[0] != src.At(x, 0)[0] {
			changed = true
		}
	}
	assert.True(t, changed)
	assert.Equal(t, src.At(0, 0)[3], out.At(0, 0)[3], "alpha untouched")
}

func TestDebandGrainOnly(t *testing.T) {
	pool := newPool(t)
	src := solid(t, 8, 8, [4]float32{0.5, 0.5, 0.5, 1})
	out := Deband(pool, src, DebandOptions{Grain: 6, Seed: 3})
	for i := 0; i < len(out.Pix); i += 4 {
		assert.InDelta(t, 0.5, out.Pix[i], 0.003+1e-6)
	}
}

func TestBayer(t *testing.T) {
	m := Bayer(2)
	want := []int{0, 8, 2, 10, 12, 4, 14, 6, 3, 11, 1, 9, 15, 7, 13, 5}
	for i, w := range want {
		assert.InDelta(t, (float32(w)+0.5)/16, m.Data[i], 1e-7)
	}
}

func TestBlueNoiseIsPermutation(t *testing.T) {
	m := BlueNoise(3)
	require.Equal(t, 8, m.Size)
	seen := make(map[float32]bool)
	for _, v := range m.Data {
		assert.False(t, seen[v], "duplicate threshold %v", v)
		seen[v] = true
		assert.True(t, v > 0 && v < 1)
	}
	assert.Equal(t, m.Data, BlueNoise(3).Data, "deterministic")
}

func TestDitherBounded(t *testing.T) {
	pool := newPool(t)
	for _, m := range []*DitherMatrix{nil, Bayer(3), BlueNoise(2)} {
		f := solid(t, 9, 9, [4]float32{0.5, 0.5, 0.5, 1})
		Dither(pool, f, DitherOptions{Depth: 8, Matrix: m, Frame: 3, Temporal: true})
		for i := 0; i < len(f.Pix); i += 4 {
			assert.InDelta(t, 0.5, f.Pix[i], 0.5/255+1e-6)
			assert.Equal(t, float32(1), f.Pix[i+3])
		}
	}
}

func TestBlendNormal(t *testing.T) {
	pool := newPool(t)
	dst := solid(t, 4, 4, [4]float32{0, 0, 0, 1})
	src := solid(t, 1, 1, [4]float32{1, 1, 1, 0.5})
	Blend(pool, dst, src, image.Rect(1, 1, 3, 3), BlendNormal, [3]float32{})
	assert.InDelta(t, 0.5, dst.At(1, 1)[0], 1e-6)
	assert.InDelta(t, 0.5, dst.At(2, 2)[0], 1e-6)
	assert.Equal(t, float32(0), dst.At(0, 0)[0])
	assert.Equal(t, float32(0), dst.At(3, 3)[0])
}

func TestBlendMonochromeUsesTintAndFirstChannel(t *testing.T) {
	pool := newPool(t)
	dst := solid(t, 2, 2, [4]float32{0, 0, 0, 1})
	// Channels other than the first must be ignored.
	src := solid(t, 2, 2, [4]float32{1, 0.3, 0.7, 0})
	Blend(pool, dst, src, image.Rect(0, 0, 2, 2), BlendMonochrome, [3]float32{0.2, 0.4, 0.6})
	got := dst.At(0, 0)
	assert.InDeltaSlice(t, []float32{0.2, 0.4, 0.6, 1}, got[:], 1e-6)
}

func TestBlendClipsToFrame(t *testing.T) {
	pool := newPool(t)
	dst := solid(t, 2, 2, [4]float32{0, 0, 0, 1})
	src := solid(t, 1, 1, [4]float32{1, 1, 1, 1})
	Blend(pool, dst, src, image.Rect(-5, -5, 10, 10), BlendNormal, [3]float32{})
	assert.Equal(t, float32(1), dst.At(1, 1)[0])
	Blend(pool, dst, src, image.Rect(5, 5, 6, 6), BlendNormal, [3]float32{})
}

func TestLuminance(t *testing.T) {
	pool := newPool(t)
	f := solid(t, 2, 1, [4]float32{0, 0, 0, 1})
	f.Set(1, 0, [4]float32{2, 2, 2, 1})
	peak, avg := Luminance(pool, f, [3]float64{0.2126, 0.7152, 0.0722})
	assert.InDelta(t, 2, peak, 1e-6)
	assert.InDelta(t, 1, avg, 1e-6)
}

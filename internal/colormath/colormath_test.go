package colormath

import (
	"math"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferRoundTrip(t *testing.T) {
	for tr := TransferBT1886; tr < TransferCount; tr++ {
		for _, x := range []float64{0.05, 0.2, 0.5, 0.8, 1} {
			lin := Linearize(tr, x)
			back := Delinearize(tr, lin)
			assert.InDelta(t, x, back, 1e-6, "transfer %d at %g", tr, x)
		}
	}
}

func TestSRGBMatchesPiecewiseCurve(t *testing.T) {
	for i := 0; i <= 255; i += 15 {
		s := float64(i) / 255
		want := s / 12.92
		if s > 0.04045 {
			want = math.Pow((s+0.055)/1.055, 2.4)
		}
		assert.InDelta(t, want, Linearize(TransferSRGB, s), 1e-9)
	}
}

func TestNominalPeak(t *testing.T) {
	assert.Equal(t, 1.0, NominalPeak(TransferSRGB))
	assert.Equal(t, 100.0, NominalPeak(TransferPQ))
	assert.True(t, IsHDR(TransferHLG))
	assert.False(t, IsHDR(TransferBT1886))
	assert.InDelta(t, 100.0, Linearize(TransferPQ, 1), 1e-9)
	assert.InDelta(t, 1.0, Linearize(TransferHLG, 0.5), 1e-12)
}

func TestRGBToXYZMatchesReference(t *testing.T) {
	m := RGBToXYZ(PrimariesBT709.Raw())
	for _, rgb := range []Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {0.2, 0.5, 0.7}} {
		got := m.Apply(rgb)
		x, y, z := colorful.LinearRgbToXyz(rgb[0], rgb[1], rgb[2])
		assert.InDelta(t, x, got[0], 2e-3)
		assert.InDelta(t, y, got[1], 2e-3)
		assert.InDelta(t, z, got[2], 2e-3)
	}
}

func TestRGBToXYZWhiteIsWhitePoint(t *testing.T) {
	for p := PrimariesBT601525; p < PrimariesCount; p++ {
		raw := p.Raw()
		got := RGBToXYZ(raw).Apply(Vec3{1, 1, 1})
		want := raw.White.XYZ()
		for i := range 3 {
			assert.InDelta(t, want[i], got[i], 1e-6, "primaries %d", p)
		}
	}
}

func TestGamutMatrixIdentity(t *testing.T) {
	m := GamutMatrix(PrimariesBT709.Raw(), PrimariesBT709.Raw(), false)
	for i := range 3 {
		for j := range 3 {
			assert.InDelta(t, Identity[i][j], m[i][j], 1e-9)
		}
	}
}

func TestGamutMatrixPreservesWhite(t *testing.T) {
	m := GamutMatrix(PrimariesDCIP3.Raw(), PrimariesBT709.Raw(), false)
	w := m.Apply(Vec3{1, 1, 1})
	for i := range 3 {
		assert.InDelta(t, 1, w[i], 1e-6)
	}
}

func TestMatrixInvert(t *testing.T) {
	m := RGBToXYZ(PrimariesBT2020.Raw())
	p := m.Mul(m.Invert())
	for i := range 3 {
		for j := range 3 {
			assert.InDelta(t, Identity[i][j], p[i][j], 1e-9)
		}
	}
	assert.Equal(t, Identity, Mat3{}.Invert())
}

func TestDecodeMatrixGrey(t *testing.T) {
	for s := SystemBT601; s <= SystemYCgCo; s++ {
		if s.IsICtCp() {
			continue
		}
		got := DecodeMatrix(s).Apply(Vec3{0.5, 0, 0})
		for i := range 3 {
			assert.InDelta(t, 0.5, got[i], 1e-9, "system %d", s)
		}
	}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	rgb := Vec3{0.9, 0.3, 0.1}
	for _, s := range []System{SystemBT601, SystemBT709, SystemBT2020NC, SystemYCgCo} {
		yuv := EncodeMatrix(s).Apply(rgb)
		back := DecodeMatrix(s).Apply(yuv)
		for i := range 3 {
			assert.InDelta(t, rgb[i], back[i], 1e-9)
		}
	}
}

func TestLevels(t *testing.T) {
	v := ExpandLevels(Vec3{16.0 / 255, 128.0 / 255, 240.0 / 255}, LevelsTV, true)
	assert.InDelta(t, 0, v[0], 1e-9)
	assert.InDelta(t, 0, v[1], 1e-9)
	assert.InDelta(t, 0.5, v[2], 1e-9)

	in := Vec3{0.25, 0.5, 0.75}
	back := CompressLevels(ExpandLevels(in, LevelsTV, false), LevelsTV, false)
	for i := range 3 {
		assert.InDelta(t, in[i], back[i], 1e-12)
	}
}

func TestToneMapBounds(t *testing.T) {
	algos := []ToneMapping{
		ToneMappingClip, ToneMappingMobius, ToneMappingReinhard,
		ToneMappingHable, ToneMappingGamma, ToneMappingLinear,
	}
	for _, a := range algos {
		peak := 10.0
		assert.InDelta(t, 0, ToneMap(a, 0, 0, peak), 1e-9)
		top := ToneMap(a, 0, peak, peak)
		assert.InDelta(t, 1, top, 1e-6, "algorithm %d", a)
		prev := 0.0
		for sig := 0.0; sig <= peak; sig += 0.25 {
			v := ToneMap(a, 0, sig, peak)
			assert.GreaterOrEqual(t, v+1e-9, prev, "algorithm %d not monotonic", a)
			prev = v
		}
	}
}

func TestToneMapRGBNoop(t *testing.T) {
	v := Vec3{0.5, 0.25, 0.1}
	assert.Equal(t, v, ToneMapRGB(ToneMappingHable, 0, v, 1, 1))
}

func TestDesaturate(t *testing.T) {
	luma := LumaCoeffs(PrimariesBT709.Raw())
	v := Vec3{4, 1, 1}
	got := Desaturate(v, luma, 0.75, 1.5, 0.18)
	assert.Less(t, got[0], v[0])
	assert.Equal(t, v, Desaturate(v, luma, 0, 1.5, 0.18))
}

func TestConeMatrix(t *testing.T) {
	raw := PrimariesBT709.Raw()
	assert.Equal(t, Identity, ConeMatrix(ConesNone, 0, raw))
	assert.Equal(t, Identity, ConeMatrix(ConeL, 1, raw))

	for _, c := range []Cones{ConeL, ConeM, ConeS, ConesLM, ConesLMS} {
		w := ConeMatrix(c, 0, raw).Apply(Vec3{1, 1, 1})
		for i := range 3 {
			assert.InDelta(t, 1, w[i], 1e-9, "cones %d", c)
		}
	}

	// Achromatopsia collapses every color to a grey.
	g := ConeMatrix(ConesLMS, 0, raw).Apply(Vec3{1, 0, 0})
	lms := xyzToLMS.Mul(RGBToXYZ(raw))
	white := lms.Apply(Vec3{1, 1, 1})
	n := lms.Apply(g)
	assert.InDelta(t, n[0]/white[0], n[1]/white[1], 1e-9)
	assert.InDelta(t, n[1]/white[1], n[2]/white[2], 1e-9)
}

func TestLUT3D(t *testing.T) {
	fn := func(v Vec3) Vec3 { return Vec3{v[0] * 0.5, v[1], 1 - v[2]} }
	l := NewLUT3D(17, 17, 17, 1, fn)
	require.Len(t, l.Data, 17*17*17)
	for _, v := range []Vec3{{0, 0, 0}, {0.3, 0.6, 0.9}, {1, 1, 1}} {
		got := l.Lookup(v)
		want := fn(v)
		for i := range 3 {
			assert.InDelta(t, want[i], got[i], 1e-9)
		}
	}
	clamped := l.Lookup(Vec3{2, -1, 0.5})
	assert.InDelta(t, 0.5, clamped[0], 1e-9)
	assert.InDelta(t, 0, clamped[1], 1e-9)
}

func TestHLGOOTFRoundTrip(t *testing.T) {
	luma := LumaCoeffs(PrimariesBT2020.Raw())
	v := Vec3{3, 2, 1}
	d := HLGOOTF(v, luma, 10)
	back := HLGInverseOOTF(d, luma, 10)
	for i := range 3 {
		assert.InDelta(t, v[i], back[i], 1e-9)
	}
}

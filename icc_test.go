package placebo

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"seehuhn.de/go/icc"

	"github.com/gogpu/placebo/internal/colormath"
)

func TestDisplayIccProfileRoundTrip(t *testing.T) {
	p, err := NewDisplayIccProfile(ColorSpaceSRGB)
	require.NoError(t, err)
	assert.NotZero(t, p.Signature)
	assert.Equal(t, p.Signature, p.cacheKey())

	again, err := NewDisplayIccProfile(ColorSpaceSRGB)
	require.NoError(t, err)
	assert.True(t, p.Equal(again), "profiles are deterministic")

	d, err := p.display()
	require.NoError(t, err)

	// The colorants are the sRGB primaries adapted to D50.
	white := d.toPCS.Apply(colormath.Vec3{1, 1, 1})
	d50 := colormath.WhiteD50.XYZ()
	for i := range 3 {
		assert.InDelta(t, d50[i], white[i], 1e-3)
	}

	// Device values survive a trip through the PCS.
	for _, v := range []float64{0, 0.01, 0.2, 0.5, 0.9, 1} {
		lin := colormath.Vec3{
			d.trc[0].eval(v),
			d.trc[1].eval(v),
			d.trc[2].eval(v),
		}
		dev := d.encode(d.toPCS.Apply(lin))
		for i := range 3 {
			assert.InDelta(t, v, dev[i], 1e-3, "channel %d at %g", i, v)
		}
	}
}

func TestDisplayIccProfileTransfers(t *testing.T) {
	for _, trc := range []ColorTransfer{ColorTrcLinear, ColorTrcBT1886, ColorTrcGamma18, ColorTrcGamma22, ColorTrcGamma28, ColorTrcProPhoto} {
		p, err := NewDisplayIccProfile(ColorSpace{Primaries: ColorPrimBT709, Transfer: trc})
		require.NoError(t, err, trc)
		_, err = p.display()
		require.NoError(t, err, trc)
	}

	_, err := NewDisplayIccProfile(ColorSpaceHDR10)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestIccProfileMissingTags(t *testing.T) {
	bare := (&icc.Profile{
		Version:    icc.Version4_3_0,
		Class:      icc.DisplayDeviceProfile,
		ColorSpace: icc.RGBSpace,
		PCS:        icc.PCSXYZSpace,
	}).Encode()
	_, err := NewIccProfile(1, bare).display()
	assert.ErrorIs(t, err, ErrIccTags)

	gray := (&icc.Profile{
		Version:    icc.Version4_3_0,
		Class:      icc.DisplayDeviceProfile,
		ColorSpace: icc.GraySpace,
		PCS:        icc.PCSXYZSpace,
	}).Encode()
	_, err = NewIccProfile(2, gray).display()
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func curvTag(values ...uint16) []byte {
	b := make([]byte, 12+2*len(values))
	copy(b, "curv")
	binary.BigEndian.PutUint32(b[8:], uint32(len(values)))
	for i, v := range values {
		binary.BigEndian.PutUint16(b[12+2*i:], v)
	}
	return b
}

func TestDecodeCurveTag(t *testing.T) {
	identity, err := decodeCurveTag(curvTag())
	require.NoError(t, err)
	assert.Equal(t, 0.3, identity(0.3))

	gamma, err := decodeCurveTag(curvTag(2<<8 | 0x80)) // 2.5 in u8Fixed8
	require.NoError(t, err)
	assert.InDelta(t, math.Pow(0.5, 2.5), gamma(0.5), 1e-12)

	table, err := decodeCurveTag(curvTag(0, 0x8000, 0xFFFF))
	require.NoError(t, err)
	assert.InDelta(t, 0.25, table(0.25), 1e-4)
	assert.InDelta(t, 1, table(1), 1e-12)

	srgb, err := iccTransferTag(ColorTrcSRGB)
	require.NoError(t, err)
	para, err := decodeCurveTag(srgb)
	require.NoError(t, err)
	trc := ColorTrcSRGB.math()
	for _, v := range []float64{0.02, 0.04, 0.3, 0.8} {
		assert.InDelta(t, colormath.Linearize(trc, v), para(v), 1e-4, "sRGB at %g", v)
	}

	for _, bad := range [][]byte{
		nil,
		[]byte("curv\x00\x00\x00\x00\x00\x00\x00\x05"),
		[]byte("para\x00\x00\x00\x00\x00\x09\x00\x00"),
		[]byte("sf32\x00\x00\x00\x00\x00\x00\x00\x00"),
	} {
		_, err := decodeCurveTag(bad)
		assert.ErrorIs(t, err, errIccTagData)
	}
}

func TestIccCurveInvert(t *testing.T) {
	c := newIccCurve(func(x float64) float64 { return x * x })
	for _, x := range []float64{0, 0.1, 0.5, 0.75, 1} {
		assert.InDelta(t, x*x, c.eval(x), 1e-6)
		assert.InDelta(t, x, c.invert(x*x), 1e-3)
	}
	assert.Equal(t, 0.0, c.invert(-1))
	assert.Equal(t, 1.0, c.invert(2))

	// Non-monotone curves are flattened instead of folding back.
	dip := newIccCurve(func(x float64) float64 {
		if x > 0.5 && x < 0.6 {
			return 0.1
		}
		return x
	})
	assert.InDelta(t, 0.5, dip.eval(0.55), 1e-3)
}

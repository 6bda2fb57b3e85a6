package placebo

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorReprInfer(t *testing.T) {
	assert.Equal(t, ColorReprUnknown, ColorRepr{})

	got := ColorRepr{}.Infer()
	want := ColorRepr{Sys: ColorSystemRGB, Levels: ColorLevelsPC, Alpha: AlphaIndependent}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Infer() mismatch (-want +got):\n%s", diff)
	}

	yuv := ColorRepr{Sys: ColorSystemBT709}.Infer()
	assert.Equal(t, ColorLevelsTV, yuv.Levels)
}

func TestColorSpaceInfer(t *testing.T) {
	got := ColorSpace{}.Infer()
	assert.Equal(t, ColorPrimBT709, got.Primaries)
	assert.Equal(t, ColorTrcBT1886, got.Transfer)
	assert.Equal(t, ColorLightDisplay, got.Light)
	assert.Equal(t, 1.0, got.SigPeak)
	assert.Equal(t, 1.0, got.SigScale)

	hlg := ColorSpaceBT2020HLG.Infer()
	assert.Equal(t, ColorLightSceneHLG, hlg.Light)
	assert.True(t, ColorSpaceHDR10.IsHDR())
	assert.False(t, ColorSpaceSRGB.IsHDR())

	explicit := ColorSpace{Transfer: ColorTrcPQ, SigPeak: 4}.Infer()
	assert.Equal(t, 4.0, explicit.SigPeak)
}

func TestColorSpaceValidate(t *testing.T) {
	assert.NoError(t, ColorSpaceHDR10.Validate())
	err := ColorSpace{SigPeak: -1}.Validate()
	assert.True(t, errors.Is(err, ErrInvalidParams), "got %v", err)
}

func TestIccProfile(t *testing.T) {
	src := []byte{1, 2, 3}
	p := NewIccProfile(7, src)
	src[0] = 9
	assert.Equal(t, byte(1), p.Data[0], "profile must own its data")
	assert.True(t, p.IsSet())
	assert.False(t, IccProfile{}.IsSet())
	assert.True(t, p.Equal(NewIccProfile(7, []byte{1, 2, 3})))
	assert.False(t, p.Equal(NewIccProfile(8, []byte{1, 2, 3})))

	for _, space := range []ColorSpace{ColorSpaceSRGB, ColorSpaceMonitor} {
		display, err := NewDisplayIccProfile(space)
		require.NoError(t, err)
		data := bytes.Clone(display.Data)
		info, err := display.Decode()
		require.NoError(t, err)
		assert.True(t, info.RGB)
		assert.Equal(t, 3, info.Components)
		assert.Equal(t, data, display.Data, "decoding leaves the profile intact")
	}

	_, err := NewIccProfile(1, []byte("not a profile")).Decode()
	assert.Error(t, err)
}

func TestColorAdjustment(t *testing.T) {
	c := DefaultColorAdjustment()
	assert.True(t, c.IsNeutral())
	assert.Equal(t, 1.0, c.Contrast)
	assert.Equal(t, 1.0, c.Gamma)

	c.Saturation = 0
	assert.False(t, c.IsNeutral())
	_, err := NewColorAdjustment(c)
	assert.NoError(t, err)

	c.Brightness = 3
	_, err = NewColorAdjustment(c)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestVisionConeParams(t *testing.T) {
	tests := []struct {
		v    Vision
		want ConeParams
	}{
		{VisionNormal, ConeParams{Cones: ConesNone, Strength: 1}},
		{VisionProtanopia, ConeParams{Cones: ConeL}},
		{VisionDeuteranomaly, ConeParams{Cones: ConeM, Strength: 0.5}},
		{VisionTritanopia, ConeParams{Cones: ConeS}},
		{VisionAchromatopsia, ConeParams{Cones: ConesLMS}},
	}
	for _, tt := range tests {
		t.Run(tt.v.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.ConeParams())
		})
	}
}

func TestBitEncodingScale(t *testing.T) {
	assert.Equal(t, 1.0, BitEncoding{}.Scale())
	// 10-bit content in 16-bit samples, MSB aligned.
	b := BitEncoding{SampleDepth: 16, ColorDepth: 10, BitShift: 6}
	assert.InDelta(t, 65535.0/1023.0/64.0, b.Scale(), 1e-12)
}

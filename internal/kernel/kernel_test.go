package kernel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeightAtOrigin(t *testing.T) {
	mitchell := [2]float64{1.0 / 3.0, 1.0 / 3.0}
	tests := []struct {
		id     ID
		radius float64
		params [2]float64
		want   float64
	}{
		{Box, 1, [2]float64{}, 1},
		{Triangle, 1, [2]float64{}, 1},
		{Hann, 1, [2]float64{}, 1},
		{Hamming, 1, [2]float64{}, 1},
		{Welch, 1, [2]float64{}, 1},
		{Kaiser, 1, [2]float64{2}, 1},
		{Blackman, 1, [2]float64{0.16}, 1},
		{Gaussian, 2, [2]float64{1}, 1},
		{Sinc, 1, [2]float64{}, 1},
		{Jinc, JincR1, [2]float64{}, 1},
		{Sphinx, SphinxR1, [2]float64{}, 1},
		{BCSpline, 2, mitchell, 1},
		{Bicubic, 2, [2]float64{}, 2.0 / 3.0},
		{Spline16, 2, [2]float64{}, 1},
		{Spline36, 3, [2]float64{}, 1},
		{Spline64, 4, [2]float64{}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.id.String(), func(t *testing.T) {
			assert.InDelta(t, tt.want, Weight(tt.id, 0, tt.radius, tt.params), 1e-9)
		})
	}
}

func TestWeightZeroCrossings(t *testing.T) {
	assert.InDelta(t, 0, Weight(Sinc, 1, 1, [2]float64{}), 1e-12)
	assert.InDelta(t, 0, Weight(Sinc, 2, 3, [2]float64{}), 1e-12)
	assert.InDelta(t, 0, Weight(Jinc, JincR1, JincR1, [2]float64{}), 1e-9)
	assert.InDelta(t, 0, Weight(Jinc, JincR3, JincR3, [2]float64{}), 1e-9)
	assert.InDelta(t, 0, Weight(Sphinx, SphinxR1, SphinxR1, [2]float64{}), 1e-9)
	assert.InDelta(t, 0, Weight(Spline36, 1, 3, [2]float64{}), 1e-12)
	assert.InDelta(t, 0, Weight(Spline36, 2, 3, [2]float64{}), 1e-12)
	assert.InDelta(t, 0, Weight(Spline36, 3, 3, [2]float64{}), 1e-12)
	assert.InDelta(t, 0, Weight(Hann, 1, 1, [2]float64{}), 1e-12)
}

func TestCatmullRomInterpolates(t *testing.T) {
	cr := [2]float64{0, 0.5}
	assert.InDelta(t, 1, Weight(BCSpline, 0, 2, cr), 1e-12)
	assert.InDelta(t, 0, Weight(BCSpline, 1, 2, cr), 1e-12)
	assert.InDelta(t, 0, Weight(BCSpline, 2, 2, cr), 1e-12)
}

func TestBesselI0(t *testing.T) {
	// Reference values from Abramowitz & Stegun table 9.8.
	assert.InDelta(t, 1.0, besselI0(0), 1e-12)
	assert.InDelta(t, 1.2660658777520082, besselI0(1), 1e-10)
	assert.InDelta(t, 2.2795853023360673, besselI0(2), 1e-10)
	assert.InDelta(t, 27.239871823604442, besselI0(5), 1e-8)
}

func TestWeightsAreFinite(t *testing.T) {
	for id := Box; id <= Spline64; id++ {
		for x := 0.0; x <= 4; x += 0.05 {
			w := Weight(id, x, 4, [2]float64{1, 0.5})
			if math.IsNaN(w) || math.IsInf(w, 0) {
				t.Fatalf("%s(%g) = %g", id, x, w)
			}
		}
	}
}

func TestIDString(t *testing.T) {
	assert.Equal(t, "spline36", Spline36.String())
	assert.Equal(t, "unknown", ID(200).String())
}

package placebo

import (
	"errors"
	"fmt"
)

// RenderParams configures RenderImage. Nil sub-parameters disable the
// corresponding stage.
type RenderParams struct {
	// Upscaler and Downscaler are the filters used when the image is
	// enlarged or reduced along an axis. Nil selects bilinear sampling.
	Upscaler   *FilterConfig
	Downscaler *FilterConfig
	// FrameMixer blends between frames of a video. A single image is
	// rendered as is.
	FrameMixer *FilterConfig

	// LUTEntries is the resolution of the sampled filter tables.
	LUTEntries int
	// AntiringingStrength in [0, 1] clamps filter overshoot.
	AntiringingStrength float64
	// PolarCutoff drops polar filter weights below this magnitude.
	PolarCutoff float64

	Deband          *DebandParams
	Sigmoid         *SigmoidParams
	PeakDetect      *PeakDetectParams
	ColorMap        *ColorMapParams
	Dither          *DitherParams
	Lut3D           *Lut3DParams
	Cone            *ConeParams
	ColorAdjustment *ColorAdjustment

	// DisableLinearScaling scales in the encoded signal instead of linear
	// light.
	DisableLinearScaling bool
	// DisableBuiltinScalers uses the configured filters even when the
	// scale factor is 1.
	DisableBuiltinScalers bool
	// SkipAntiAliasing samples with nearest neighbour when downscaling
	// without a downscaler.
	SkipAntiAliasing bool
	// DisableOverlays skips image and target overlays.
	DisableOverlays bool
}

// DefaultRenderParams returns the built-in render preset: spline36
// upscaling, mitchell downscaling, debanding, sigmoidization, peak
// detection, hable tone mapping and blue noise dithering.
func DefaultRenderParams() RenderParams {
	up, down := FilterSpline36, FilterMitchell
	deband := DefaultDebandParams()
	sigmoid := DefaultSigmoidParams()
	peak := DefaultPeakDetectParams()
	cmap := DefaultColorMapParams()
	dither := DefaultDitherParams()
	return RenderParams{
		Upscaler:    &up,
		Downscaler:  &down,
		LUTEntries:  64,
		PolarCutoff: 0.001,
		Deband:      &deband,
		Sigmoid:     &sigmoid,
		PeakDetect:  &peak,
		ColorMap:    &cmap,
		Dither:      &dither,
	}
}

// HighQualityRenderParams extends DefaultRenderParams with EWA upscaling
// and antiringing.
func HighQualityRenderParams() RenderParams {
	p := DefaultRenderParams()
	up := FilterEWALanczos
	p.Upscaler = &up
	p.AntiringingStrength = 0.8
	return p
}

func equalPtr[T interface{ Equal(T) bool }](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return (*a).Equal(*b)
}

func eqValue[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Equal reports whether p and o configure the same pipeline.
func (p RenderParams) Equal(o RenderParams) bool {
	return equalPtr(p.Upscaler, o.Upscaler) &&
		equalPtr(p.Downscaler, o.Downscaler) &&
		equalPtr(p.FrameMixer, o.FrameMixer) &&
		p.LUTEntries == o.LUTEntries &&
		p.AntiringingStrength == o.AntiringingStrength &&
		p.PolarCutoff == o.PolarCutoff &&
		equalPtr(p.Deband, o.Deband) &&
		equalPtr(p.Sigmoid, o.Sigmoid) &&
		equalPtr(p.PeakDetect, o.PeakDetect) &&
		equalPtr(p.ColorMap, o.ColorMap) &&
		equalPtr(p.Dither, o.Dither) &&
		equalPtr(p.Lut3D, o.Lut3D) &&
		eqValue(p.Cone, o.Cone) &&
		eqValue(p.ColorAdjustment, o.ColorAdjustment) &&
		p.DisableLinearScaling == o.DisableLinearScaling &&
		p.DisableBuiltinScalers == o.DisableBuiltinScalers &&
		p.SkipAntiAliasing == o.SkipAntiAliasing &&
		p.DisableOverlays == o.DisableOverlays
}

func validateOpt[T any](v *T) error {
	if v == nil {
		return nil
	}
	return validate(*v)
}

// Validate reports every out-of-range or non-finite setting.
func (p RenderParams) Validate() error {
	var errs []error
	for _, f := range []*FilterConfig{p.Upscaler, p.Downscaler, p.FrameMixer} {
		if f != nil {
			if _, err := NewFilterConfig(*f); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if p.LUTEntries < 2 {
		errs = append(errs, fmt.Errorf("%w: %d LUT entries", ErrInvalidParams, p.LUTEntries))
	}
	if !(p.AntiringingStrength >= 0 && p.AntiringingStrength <= 1) {
		errs = append(errs, fmt.Errorf("%w: antiringing strength %g", ErrInvalidParams, p.AntiringingStrength))
	}
	if !(p.PolarCutoff >= 0 && p.PolarCutoff < 1) {
		errs = append(errs, fmt.Errorf("%w: polar cutoff %g", ErrInvalidParams, p.PolarCutoff))
	}
	errs = append(errs,
		validateOpt(p.Deband),
		validateOpt(p.Sigmoid),
		validateOpt(p.PeakDetect),
		validateOpt(p.ColorMap),
		validateOpt(p.Dither),
		validateOpt(p.Lut3D),
		validateOpt(p.Cone),
		validateOpt(p.ColorAdjustment),
	)
	return errors.Join(errs...)
}

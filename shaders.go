package placebo

import (
	"github.com/gogpu/placebo/internal/colormath"
	"github.com/gogpu/placebo/internal/params"
)

// DebandParams configures the debanding pre-filter.
type DebandParams struct {
	// Iterations is the number of sampling passes. Zero disables
	// debanding but keeps the grain.
	Iterations int `param:"iterations,default=1,min=0,max=16"`
	// Threshold is the cut-off of each pass, in thousandths of the signal
	// range, divided by the pass number.
	Threshold float64 `param:"threshold,default=4,min=0"`
	// Radius is the sampling distance of the first pass in pixels.
	Radius float64 `param:"radius,default=16,min=0"`
	// Grain is the amplitude of added noise in thousandths.
	Grain float64 `param:"grain,default=6,min=0"`
}

// DefaultDebandParams returns the built-in debanding preset.
func DefaultDebandParams() DebandParams { return params.Defaults[DebandParams]() }

// NewDebandParams validates p.
func NewDebandParams(p DebandParams) (DebandParams, error) { return p, validate(p) }

func (p DebandParams) Equal(o DebandParams) bool { return p == o }

// SigmoidParams configures sigmoidal upscaling.
type SigmoidParams struct {
	Center float64 `param:"center,default=0.75,min=0,max=1"`
	Slope  float64 `param:"slope,default=6.5,min=1,max=20"`
}

// DefaultSigmoidParams returns the built-in sigmoid preset.
func DefaultSigmoidParams() SigmoidParams { return params.Defaults[SigmoidParams]() }

// NewSigmoidParams validates p.
func NewSigmoidParams(p SigmoidParams) (SigmoidParams, error) { return p, validate(p) }

func (p SigmoidParams) Equal(o SigmoidParams) bool { return p == o }

// PeakDetectParams configures measurement of the source brightness used
// for tone mapping.
type PeakDetectParams struct {
	// SmoothingPeriod is the time constant of the running average, in
	// frames. Zero disables smoothing.
	SmoothingPeriod float64 `param:"smoothing_period,default=100,min=0"`
	// SceneThresholdLow and SceneThresholdHigh, in units of 1% PQ, bound
	// the change of average brightness treated as a scene change.
	SceneThresholdLow  float64 `param:"scene_threshold_low,default=5.5,min=0"`
	SceneThresholdHigh float64 `param:"scene_threshold_high,default=10,min=0"`
}

// DefaultPeakDetectParams returns the built-in peak detection preset.
func DefaultPeakDetectParams() PeakDetectParams { return params.Defaults[PeakDetectParams]() }

// NewPeakDetectParams validates p.
func NewPeakDetectParams(p PeakDetectParams) (PeakDetectParams, error) { return p, validate(p) }

func (p PeakDetectParams) Equal(o PeakDetectParams) bool { return p == o }

// ToneMappingAlgorithm selects the tone mapping curve.
type ToneMappingAlgorithm uint8

const (
	ToneMappingClip ToneMappingAlgorithm = iota
	ToneMappingMobius
	ToneMappingReinhard
	ToneMappingHable
	ToneMappingGamma
	ToneMappingLinear
)

var toneMappings = seqTable("ToneMappingAlgorithm",
	[]ToneMappingAlgorithm{ToneMappingClip, ToneMappingMobius, ToneMappingReinhard,
		ToneMappingHable, ToneMappingGamma, ToneMappingLinear},
	"clip", "mobius", "reinhard", "hable", "gamma", "linear")

func (t ToneMappingAlgorithm) String() string   { return toneMappings.name(t) }
func (t ToneMappingAlgorithm) NativeTag() int32 { return toneMappings.tag(t) }

// ParseToneMapping looks an algorithm up by name.
func ParseToneMapping(s string) (ToneMappingAlgorithm, error) { return toneMappings.parse(s) }

func (t ToneMappingAlgorithm) curve() colormath.ToneMapping { return colormath.ToneMapping(t) }

// ColorMapParams configures tone and gamut mapping.
type ColorMapParams struct {
	Intent      RenderingIntent      `param:"intent,default=1"`
	ToneMapping ToneMappingAlgorithm `param:"tone_mapping,default=3"`
	// ToneMappingParam tunes the curve. Zero selects the curve default.
	ToneMappingParam float64 `param:"tone_mapping_param,min=0"`
	// Desaturation pulls overbright colors towards white before tone
	// mapping. Zero strength disables it.
	DesaturationStrength float64 `param:"desaturation_strength,default=0.75,min=0,max=1"`
	DesaturationExponent float64 `param:"desaturation_exponent,default=1.5,min=0"`
	DesaturationBase     float64 `param:"desaturation_base,default=0.18,min=0"`
	// MaxBoost limits how much dark scenes are brightened.
	MaxBoost float64 `param:"max_boost,default=1,min=1"`
	// GamutWarning paints out-of-gamut pixels in inverted colors.
	GamutWarning bool `param:"gamut_warning"`
}

// DefaultColorMapParams returns the built-in color mapping preset.
func DefaultColorMapParams() ColorMapParams { return params.Defaults[ColorMapParams]() }

// NewColorMapParams validates p.
func NewColorMapParams(p ColorMapParams) (ColorMapParams, error) { return p, validate(p) }

func (p ColorMapParams) Equal(o ColorMapParams) bool { return p == o }

// DitherMethod selects the dither pattern.
type DitherMethod uint8

const (
	DitherBlueNoise DitherMethod = iota
	DitherOrderedLUT
	DitherOrderedFixed
	DitherWhiteNoise
)

var ditherMethods = seqTable("DitherMethod",
	[]DitherMethod{DitherBlueNoise, DitherOrderedLUT, DitherOrderedFixed, DitherWhiteNoise},
	"blue", "ordered", "ordered-fixed", "white")

func (d DitherMethod) String() string   { return ditherMethods.name(d) }
func (d DitherMethod) NativeTag() int32 { return ditherMethods.tag(d) }

// DitherParams configures output dithering.
type DitherParams struct {
	Method DitherMethod `param:"method"`
	// LUTSize is the log2 size of the dither matrix.
	LUTSize int `param:"lut_size,default=6,min=1,max=8"`
	// Temporal varies the pattern between frames.
	Temporal bool `param:"temporal"`
}

// DefaultDitherParams returns the built-in dither preset.
func DefaultDitherParams() DitherParams { return params.Defaults[DitherParams]() }

// NewDitherParams validates p.
func NewDitherParams(p DitherParams) (DitherParams, error) { return p, validate(p) }

func (p DitherParams) Equal(o DitherParams) bool { return p == o }

// Lut3DParams configures the 3D LUT used for ICC color management.
type Lut3DParams struct {
	Intent RenderingIntent `param:"intent,default=1"`
	SizeR  int             `param:"size_r,default=64,min=2,max=256"`
	SizeG  int             `param:"size_g,default=64,min=2,max=256"`
	SizeB  int             `param:"size_b,default=64,min=2,max=256"`
}

// DefaultLut3DParams returns the built-in 3D LUT preset.
func DefaultLut3DParams() Lut3DParams { return params.Defaults[Lut3DParams]() }

// NewLut3DParams validates p.
func NewLut3DParams(p Lut3DParams) (Lut3DParams, error) { return p, validate(p) }

func (p Lut3DParams) Equal(o Lut3DParams) bool { return p == o }

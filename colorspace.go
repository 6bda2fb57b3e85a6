package placebo

import (
	"bytes"
	"fmt"
	"math"

	"seehuhn.de/go/icc"

	"github.com/gogpu/placebo/internal/colormath"
	"github.com/gogpu/placebo/internal/params"
)

// ColorSystem is the encoding of color samples.
type ColorSystem uint8

const (
	ColorSystemUnknown ColorSystem = iota
	ColorSystemBT601
	ColorSystemBT709
	ColorSystemSMPTE240M
	ColorSystemBT2020NC
	ColorSystemBT2020C
	ColorSystemBT2100PQ
	ColorSystemBT2100HLG
	ColorSystemYCgCo
	ColorSystemRGB
	ColorSystemXYZ
)

var colorSystems = seqTable("ColorSystem",
	[]ColorSystem{ColorSystemUnknown, ColorSystemBT601, ColorSystemBT709, ColorSystemSMPTE240M,
		ColorSystemBT2020NC, ColorSystemBT2020C, ColorSystemBT2100PQ, ColorSystemBT2100HLG,
		ColorSystemYCgCo, ColorSystemRGB, ColorSystemXYZ},
	"unknown", "bt601", "bt709", "smpte240m", "bt2020nc", "bt2020c", "bt2100pq", "bt2100hlg",
	"ycgco", "rgb", "xyz")

func (s ColorSystem) String() string   { return colorSystems.name(s) }
func (s ColorSystem) NativeTag() int32 { return colorSystems.tag(s) }

// IsYCbCrLike reports whether s carries luma and two chroma channels.
func (s ColorSystem) IsYCbCrLike() bool { return colormath.System(s).IsYCbCrLike() }

// ColorPrimaries identifies a set of RGB primaries and white point.
type ColorPrimaries uint8

const (
	ColorPrimUnknown ColorPrimaries = iota
	ColorPrimBT601525
	ColorPrimBT601625
	ColorPrimBT709
	ColorPrimBT470M
	ColorPrimBT2020
	ColorPrimApple
	ColorPrimAdobe
	ColorPrimProPhoto
	ColorPrimCIE1931
	ColorPrimDCIP3
	ColorPrimDisplayP3
	ColorPrimVGamut
	ColorPrimSGamut
)

var colorPrimaries = seqTable("ColorPrimaries",
	[]ColorPrimaries{ColorPrimUnknown, ColorPrimBT601525, ColorPrimBT601625, ColorPrimBT709,
		ColorPrimBT470M, ColorPrimBT2020, ColorPrimApple, ColorPrimAdobe, ColorPrimProPhoto,
		ColorPrimCIE1931, ColorPrimDCIP3, ColorPrimDisplayP3, ColorPrimVGamut, ColorPrimSGamut},
	"unknown", "bt601-525", "bt601-625", "bt709", "bt470m", "bt2020", "apple", "adobe",
	"prophoto", "cie1931", "dci-p3", "display-p3", "v-gamut", "s-gamut")

func (p ColorPrimaries) String() string   { return colorPrimaries.name(p) }
func (p ColorPrimaries) NativeTag() int32 { return colorPrimaries.tag(p) }

// IsWide reports whether p exceeds the BT.709 gamut.
func (p ColorPrimaries) IsWide() bool { return colormath.Primaries(p).IsWide() }

// ColorTransfer is a transfer characteristic (EOTF or OETF).
type ColorTransfer uint8

const (
	ColorTrcUnknown ColorTransfer = iota
	ColorTrcBT1886
	ColorTrcSRGB
	ColorTrcLinear
	ColorTrcGamma18
	ColorTrcGamma22
	ColorTrcGamma28
	ColorTrcProPhoto
	ColorTrcPQ
	ColorTrcHLG
	ColorTrcVLog
	ColorTrcSLog1
	ColorTrcSLog2
)

var colorTransfers = seqTable("ColorTransfer",
	[]ColorTransfer{ColorTrcUnknown, ColorTrcBT1886, ColorTrcSRGB, ColorTrcLinear,
		ColorTrcGamma18, ColorTrcGamma22, ColorTrcGamma28, ColorTrcProPhoto, ColorTrcPQ,
		ColorTrcHLG, ColorTrcVLog, ColorTrcSLog1, ColorTrcSLog2},
	"unknown", "bt1886", "srgb", "linear", "gamma1.8", "gamma2.2", "gamma2.8", "prophoto",
	"pq", "hlg", "v-log", "s-log1", "s-log2")

func (t ColorTransfer) String() string   { return colorTransfers.name(t) }
func (t ColorTransfer) NativeTag() int32 { return colorTransfers.tag(t) }

// IsHDR reports whether t can encode values above reference white.
func (t ColorTransfer) IsHDR() bool { return colormath.IsHDR(colormath.Transfer(t)) }

// NominalPeak returns the highest encodable value relative to reference
// white.
func (t ColorTransfer) NominalPeak() float64 { return colormath.NominalPeak(colormath.Transfer(t)) }

// ColorLight describes what the encoded light refers to.
type ColorLight uint8

const (
	ColorLightUnknown ColorLight = iota
	ColorLightDisplay
	ColorLightSceneHLG
	ColorLightScene709_1886
	ColorLightScene1_2
)

var colorLights = seqTable("ColorLight",
	[]ColorLight{ColorLightUnknown, ColorLightDisplay, ColorLightSceneHLG,
		ColorLightScene709_1886, ColorLightScene1_2},
	"unknown", "display", "scene-hlg", "scene-709-1886", "scene-1.2")

func (l ColorLight) String() string   { return colorLights.name(l) }
func (l ColorLight) NativeTag() int32 { return colorLights.tag(l) }

// ColorLevels is the signal range of integer samples.
type ColorLevels uint8

const (
	ColorLevelsUnknown ColorLevels = iota
	ColorLevelsTV
	ColorLevelsPC
)

var colorLevels = seqTable("ColorLevels",
	[]ColorLevels{ColorLevelsUnknown, ColorLevelsTV, ColorLevelsPC},
	"unknown", "tv", "pc")

func (l ColorLevels) String() string   { return colorLevels.name(l) }
func (l ColorLevels) NativeTag() int32 { return colorLevels.tag(l) }

// AlphaMode is the interpretation of the alpha channel.
type AlphaMode uint8

const (
	AlphaUnknown AlphaMode = iota
	AlphaIndependent
	AlphaPremultiplied
)

var alphaModes = seqTable("AlphaMode",
	[]AlphaMode{AlphaUnknown, AlphaIndependent, AlphaPremultiplied},
	"unknown", "independent", "premultiplied")

func (a AlphaMode) String() string   { return alphaModes.name(a) }
func (a AlphaMode) NativeTag() int32 { return alphaModes.tag(a) }

// RenderingIntent selects the gamut mapping strategy.
type RenderingIntent uint8

const (
	IntentPerceptual RenderingIntent = iota
	IntentRelativeColorimetric
	IntentSaturation
	IntentAbsoluteColorimetric
)

var renderingIntents = seqTable("RenderingIntent",
	[]RenderingIntent{IntentPerceptual, IntentRelativeColorimetric, IntentSaturation,
		IntentAbsoluteColorimetric},
	"perceptual", "relative", "saturation", "absolute")

func (i RenderingIntent) String() string   { return renderingIntents.name(i) }
func (i RenderingIntent) NativeTag() int32 { return renderingIntents.tag(i) }

// BitEncoding describes how color values are stored in integer samples.
// Zero fields mean "same as the texture".
type BitEncoding struct {
	SampleDepth int
	ColorDepth  int
	BitShift    int
}

// Equal reports whether a and b describe the same encoding.
func (b BitEncoding) Equal(o BitEncoding) bool { return b == o }

// Scale returns the factor that maps normalized samples to normalized
// color values.
func (b BitEncoding) Scale() float64 {
	scale := 1.0
	if b.BitShift > 0 {
		scale /= float64(uint64(1) << b.BitShift)
	}
	if b.SampleDepth > 0 && b.ColorDepth > 0 {
		scale *= float64(uint64(1)<<b.SampleDepth-1) / float64(uint64(1)<<b.ColorDepth-1)
	}
	return scale
}

// ColorRepr describes the pixel encoding of an image.
type ColorRepr struct {
	Sys    ColorSystem
	Levels ColorLevels
	Alpha  AlphaMode
	Bits   BitEncoding
}

// Color representation presets.
var (
	ColorReprUnknown = ColorRepr{}
	ColorReprRGB     = ColorRepr{Sys: ColorSystemRGB, Levels: ColorLevelsPC}
	ColorReprSDTV    = ColorRepr{Sys: ColorSystemBT601, Levels: ColorLevelsTV}
	ColorReprHDTV    = ColorRepr{Sys: ColorSystemBT709, Levels: ColorLevelsTV}
	ColorReprUHDTV   = ColorRepr{Sys: ColorSystemBT2020NC, Levels: ColorLevelsTV}
	ColorReprJPEG    = ColorRepr{Sys: ColorSystemBT601, Levels: ColorLevelsPC}
)

// Equal reports whether r and o are identical.
func (r ColorRepr) Equal(o ColorRepr) bool { return r == o }

// Infer returns r with unknown fields replaced: unknown systems are RGB,
// unknown levels are full range for RGB and limited range otherwise, and
// unknown alpha is independent.
func (r ColorRepr) Infer() ColorRepr {
	if r.Sys == ColorSystemUnknown {
		r.Sys = ColorSystemRGB
	}
	if r.Levels == ColorLevelsUnknown {
		if r.Sys.IsYCbCrLike() {
			r.Levels = ColorLevelsTV
		} else {
			r.Levels = ColorLevelsPC
		}
	}
	if r.Alpha == AlphaUnknown {
		r.Alpha = AlphaIndependent
	}
	return r
}

// ColorSpace describes the meaning of decoded RGB values.
type ColorSpace struct {
	Primaries ColorPrimaries
	Transfer  ColorTransfer
	Light     ColorLight
	// SigPeak is the highest signal value relative to reference white.
	// Zero means the transfer's nominal peak.
	SigPeak float64
	// SigAvg is the average signal level relative to reference white.
	SigAvg float64
	// SigScale multiplies linear light. Zero means 1.
	SigScale float64
}

// Color space presets.
var (
	ColorSpaceUnknown   = ColorSpace{}
	ColorSpaceSRGB      = ColorSpace{Primaries: ColorPrimBT709, Transfer: ColorTrcSRGB}
	ColorSpaceBT709     = ColorSpace{Primaries: ColorPrimBT709, Transfer: ColorTrcBT1886}
	ColorSpaceHDR10     = ColorSpace{Primaries: ColorPrimBT2020, Transfer: ColorTrcPQ}
	ColorSpaceBT2020HLG = ColorSpace{Primaries: ColorPrimBT2020, Transfer: ColorTrcHLG}
	ColorSpaceMonitor   = ColorSpace{Primaries: ColorPrimBT709, Transfer: ColorTrcGamma22}
)

// Equal reports whether s and o are identical.
func (s ColorSpace) Equal(o ColorSpace) bool { return s == o }

// IsHDR reports whether s can exceed reference white.
func (s ColorSpace) IsHDR() bool {
	return s.Infer().SigPeak > 1
}

// Infer returns s with unknown fields replaced by their conventional
// values: BT.709 primaries, BT.1886 transfer, display-referred light
// (scene-referred for HLG) and the transfer's nominal peak.
func (s ColorSpace) Infer() ColorSpace {
	if s.Primaries == ColorPrimUnknown {
		s.Primaries = ColorPrimBT709
	}
	if s.Transfer == ColorTrcUnknown {
		s.Transfer = ColorTrcBT1886
	}
	if s.Light == ColorLightUnknown {
		if s.Transfer == ColorTrcHLG {
			s.Light = ColorLightSceneHLG
		} else {
			s.Light = ColorLightDisplay
		}
	}
	if s.SigScale == 0 {
		s.SigScale = 1
	}
	if s.SigPeak == 0 {
		s.SigPeak = s.Transfer.NominalPeak()
	}
	if s.SigAvg == 0 {
		s.SigAvg = 0.25
	}
	return s
}

// Validate reports non-finite or negative signal levels.
func (s ColorSpace) Validate() error {
	for _, v := range []float64{s.SigPeak, s.SigAvg, s.SigScale} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: color space signal level %g", ErrInvalidParams, v)
		}
	}
	return nil
}

// IccProfile is an embedded ICC profile. Signature uniquely identifies the
// profile contents; zero means unset.
type IccProfile struct {
	Signature uint64
	Data      []byte
}

// NewIccProfile copies data into a profile.
func NewIccProfile(signature uint64, data []byte) IccProfile {
	return IccProfile{Signature: signature, Data: bytes.Clone(data)}
}

// IsSet reports whether the profile carries data.
func (p IccProfile) IsSet() bool { return p.Signature != 0 || len(p.Data) > 0 }

// Equal compares signature and contents.
func (p IccProfile) Equal(o IccProfile) bool {
	return p.Signature == o.Signature && bytes.Equal(p.Data, o.Data)
}

// IccInfo summarizes a decoded profile.
type IccInfo struct {
	// Space is the profile's data color space, e.g. "RGB".
	Space      string
	Components int
	RGB        bool
}

// Decode parses the profile header and reports its data color space.
func (p IccProfile) Decode() (IccInfo, error) {
	// icc.Decode clears header fields while verifying the profile ID.
	prof, err := icc.Decode(bytes.Clone(p.Data))
	if err != nil {
		return IccInfo{}, fmt.Errorf("placebo: decode ICC profile: %w", err)
	}
	return IccInfo{
		Space:      fmt.Sprint(prof.ColorSpace),
		Components: prof.ColorSpace.NumComponents(),
		RGB:        prof.ColorSpace == icc.RGBSpace,
	}, nil
}

// ColorAdjustment tweaks the decoded image. The zero value is not neutral;
// use DefaultColorAdjustment.
type ColorAdjustment struct {
	// Brightness is added to luma.
	Brightness float64 `param:"brightness,default=0,min=-1,max=1"`
	// Contrast multiplies luma.
	Contrast float64 `param:"contrast,default=1,min=0"`
	// Saturation multiplies chroma.
	Saturation float64 `param:"saturation,default=1,min=0"`
	// Hue rotates chroma, in radians.
	Hue float64 `param:"hue"`
	// Gamma is applied to linear light.
	Gamma float64 `param:"gamma,default=1,min=0"`
}

// DefaultColorAdjustment returns the neutral adjustment.
func DefaultColorAdjustment() ColorAdjustment { return params.Defaults[ColorAdjustment]() }

// NewColorAdjustment validates c.
func NewColorAdjustment(c ColorAdjustment) (ColorAdjustment, error) {
	return c, validate(c)
}

// IsNeutral reports whether c leaves colors unchanged.
func (c ColorAdjustment) IsNeutral() bool { return c == DefaultColorAdjustment() }

// Cones is a set of cone types.
type Cones uint8

const (
	ConeL Cones = Cones(colormath.ConeL)
	ConeM Cones = Cones(colormath.ConeM)
	ConeS Cones = Cones(colormath.ConeS)

	ConesNone Cones = 0
	ConesLM         = ConeL | ConeM
	ConesMS         = ConeM | ConeS
	ConesLS         = ConeL | ConeS
	ConesLMS        = ConeL | ConeM | ConeS
)

// ConeParams simulates a color vision deficiency: the response of Cones
// is scaled by Strength, 1 meaning unaffected and 0 fully absent.
type ConeParams struct {
	Cones    Cones   `param:"cones,max=7"`
	Strength float64 `param:"strength,default=1,min=0,max=10"`
}

// Vision names a common color vision deficiency.
type Vision uint8

const (
	VisionNormal Vision = iota
	VisionProtanomaly
	VisionProtanopia
	VisionDeuteranomaly
	VisionDeuteranopia
	VisionTritanomaly
	VisionTritanopia
	VisionMonochromacy
	VisionAchromatopsia
)

var visions = seqTable("Vision",
	[]Vision{VisionNormal, VisionProtanomaly, VisionProtanopia, VisionDeuteranomaly,
		VisionDeuteranopia, VisionTritanomaly, VisionTritanopia, VisionMonochromacy,
		VisionAchromatopsia},
	"normal", "protanomaly", "protanopia", "deuteranomaly", "deuteranopia",
	"tritanomaly", "tritanopia", "monochromacy", "achromatopsia")

func (v Vision) String() string { return visions.name(v) }

// ParseVision looks a vision preset up by name.
func ParseVision(s string) (Vision, error) { return visions.parse(s) }

// ConeParams returns the simulation parameters of v.
func (v Vision) ConeParams() ConeParams {
	switch v {
	case VisionProtanomaly:
		return ConeParams{Cones: ConeL, Strength: 0.5}
	case VisionProtanopia:
		return ConeParams{Cones: ConeL}
	case VisionDeuteranomaly:
		return ConeParams{Cones: ConeM, Strength: 0.5}
	case VisionDeuteranopia:
		return ConeParams{Cones: ConeM}
	case VisionTritanomaly:
		return ConeParams{Cones: ConeS, Strength: 0.5}
	case VisionTritanopia:
		return ConeParams{Cones: ConeS}
	case VisionMonochromacy:
		return ConeParams{Cones: ConesLM}
	case VisionAchromatopsia:
		return ConeParams{Cones: ConesLMS}
	default:
		return ConeParams{Cones: ConesNone, Strength: 1}
	}
}

// validate checks a parameter struct against its schema.
func validate[T any](v T) error {
	if err := params.Validate(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return nil
}

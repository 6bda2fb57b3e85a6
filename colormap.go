package placebo

import (
	"math"

	"github.com/gogpu/placebo/internal/colormath"
)

func (p ColorPrimaries) raw() colormath.RawPrimaries { return colormath.Primaries(p).Raw() }

func (t ColorTransfer) math() colormath.Transfer { return colormath.Transfer(t) }

func (s ColorSystem) math() colormath.System { return colormath.System(s) }

func (l ColorLevels) math() colormath.Levels { return colormath.Levels(l) }

// colorPipeline converts pixels from the source encoding to linear light,
// maps them into the target space and encodes them for the target. Linear
// values are relative to the reference white.
type colorPipeline struct {
	srcRepr, dstRepr   ColorRepr
	src, dst           ColorSpace
	srcLuma, dstLuma   colormath.Vec3
	decode, encode     colormath.Mat3
	srcFromXYZ, dstXYZ colormath.Mat3
	gamut              colormath.Mat3

	// srcPeak is the source peak after peak detection.
	srcPeak float64
	boost   float64

	mapColors bool
	cmap      ColorMapParams
	cone      *colormath.Mat3
	adjust    *ColorAdjustment
	lut       *colormath.LUT3D
}

// displayMap returns the mapping of linear source light to linear target
// light that, once encoded for the target, drives a display described by
// prof. Target colors are adapted to the D50 PCS and converted to the
// display's device values.
func (c *colorPipeline) displayMap(prof *iccDisplay, mapColors func(colormath.Vec3) colormath.Vec3) func(colormath.Vec3) colormath.Vec3 {
	raw := c.dst.Primaries.raw()
	toPCS := colormath.ChromaticAdaptation(raw.White, colormath.WhiteD50).Mul(colormath.RGBToXYZ(raw))
	trc := c.dst.Transfer.math()
	return func(v colormath.Vec3) colormath.Vec3 {
		v = mapColors(v).Scale(1 / c.dst.SigScale)
		dev := prof.encode(toPCS.Apply(v))
		for i := range dev {
			dev[i] = colormath.Linearize(trc, dev[i]) * c.dst.SigScale
		}
		return dev
	}
}

func newColorPipeline(srcRepr ColorRepr, src ColorSpace, dstRepr ColorRepr, dst ColorSpace, p *RenderParams) *colorPipeline {
	c := &colorPipeline{
		srcRepr: srcRepr.Infer(),
		dstRepr: dstRepr.Infer(),
		src:     src.Infer(),
		dst:     dst.Infer(),
		boost:   1,
	}
	srcRaw, dstRaw := c.src.Primaries.raw(), c.dst.Primaries.raw()
	c.srcLuma, c.dstLuma = colormath.LumaCoeffs(srcRaw), colormath.LumaCoeffs(dstRaw)
	c.decode = colormath.DecodeMatrix(c.srcRepr.Sys.math())
	c.encode = colormath.EncodeMatrix(c.dstRepr.Sys.math())
	c.srcFromXYZ = colormath.RGBToXYZ(srcRaw).Invert()
	c.dstXYZ = colormath.RGBToXYZ(dstRaw)
	c.srcPeak = c.src.SigPeak

	c.cmap = DefaultColorMapParams()
	if p.ColorMap != nil {
		c.cmap = *p.ColorMap
	}
	c.gamut = colormath.GamutMatrix(srcRaw, dstRaw, c.cmap.Intent == IntentAbsoluteColorimetric)
	c.mapColors = c.src.Primaries != c.dst.Primaries || c.src.SigPeak != c.dst.SigPeak

	if p.Cone != nil && p.Cone.Cones != ConesNone {
		m := colormath.ConeMatrix(colormath.Cones(p.Cone.Cones), p.Cone.Strength, srcRaw)
		c.cone = &m
	}
	if p.ColorAdjustment != nil && !p.ColorAdjustment.IsNeutral() {
		adj := *p.ColorAdjustment
		c.adjust = &adj
	}
	return c
}

// decodePixel converts an encoded source pixel to linear source RGB.
func (c *colorPipeline) decodePixel(px *[4]float32) {
	v := colormath.Vec3{float64(px[0]), float64(px[1]), float64(px[2])}
	v = v.Scale(c.srcRepr.Bits.Scale())
	if c.srcRepr.Alpha == AlphaPremultiplied && px[3] > 0 {
		v = v.Scale(1 / float64(px[3]))
	}
	sys := c.srcRepr.Sys.math()
	v = colormath.ExpandLevels(v, c.srcRepr.Levels.math(), sys.IsYCbCrLike())
	v = c.decode.Apply(v)

	trc := c.src.Transfer.math()
	for i := range v {
		v[i] = colormath.Linearize(trc, v[i])
	}
	switch {
	case sys.IsICtCp():
		v = colormath.LMSToBT2020RGB.Apply(v)
	case sys == colormath.SystemXYZ:
		v = c.srcFromXYZ.Apply(v)
	}
	if c.src.Transfer == ColorTrcHLG {
		v = colormath.HLGOOTF(v, c.srcLuma, c.src.SigPeak)
	}
	v = v.Scale(c.src.SigScale)
	px[0], px[1], px[2] = float32(v[0]), float32(v[1]), float32(v[2])
}

// encodePixel converts linear target RGB to the target encoding.
func (c *colorPipeline) encodePixel(px *[4]float32) {
	v := colormath.Vec3{float64(px[0]), float64(px[1]), float64(px[2])}
	v = v.Scale(1 / c.dst.SigScale)
	if c.dst.Transfer == ColorTrcHLG {
		v = colormath.HLGInverseOOTF(v, c.dstLuma, c.dst.SigPeak)
	}
	sys := c.dstRepr.Sys.math()
	switch {
	case sys.IsICtCp():
		v = colormath.BT2020RGBToLMS.Apply(v)
	case sys == colormath.SystemXYZ:
		v = c.dstXYZ.Apply(v)
	}
	trc := c.dst.Transfer.math()
	for i := range v {
		v[i] = colormath.Delinearize(trc, v[i])
	}
	v = c.encode.Apply(v)
	v = colormath.CompressLevels(v, c.dstRepr.Levels.math(), sys.IsYCbCrLike())
	if c.dstRepr.Alpha == AlphaPremultiplied {
		v = v.Scale(float64(px[3]))
	}
	v = v.Scale(1 / c.dstRepr.Bits.Scale())
	px[0], px[1], px[2] = float32(v[0]), float32(v[1]), float32(v[2])
}

// mapPixel applies the color adjustments, the vision simulation and the
// tone and gamut mapping to a linear pixel.
func (c *colorPipeline) mapPixel(px *[4]float32) {
	v := colormath.Vec3{float64(px[0]), float64(px[1]), float64(px[2])}
	if c.adjust != nil {
		v = adjustColor(v, c.srcLuma, c.adjust)
	}
	if c.cone != nil {
		v = c.cone.Apply(v)
	}
	if c.lut != nil {
		v = c.lut.Lookup(v)
	} else {
		v = c.colorMap(v)
	}
	px[0], px[1], px[2] = float32(v[0]), float32(v[1]), float32(v[2])
}

// colorMap tone maps from the source to the target peak and converts
// between primaries.
func (c *colorPipeline) colorMap(v colormath.Vec3) colormath.Vec3 {
	if !c.mapColors {
		return v
	}
	dstPeak := c.dst.SigPeak
	if c.srcPeak > dstPeak {
		v = colormath.Desaturate(v, c.srcLuma, c.cmap.DesaturationStrength,
			c.cmap.DesaturationExponent, c.cmap.DesaturationBase)
		v = colormath.ToneMapRGB(c.cmap.ToneMapping.curve(), c.cmap.ToneMappingParam, v, c.srcPeak, dstPeak)
	} else if c.boost > 1 {
		v = v.Scale(c.boost)
	}
	v = c.gamut.Apply(v)

	if c.cmap.GamutWarning && !colormath.InGamut(v.Scale(1/dstPeak), 1e-3) {
		for i := range v {
			v[i] = dstPeak - math.Max(0, math.Min(v[i], dstPeak))
		}
		return v
	}
	switch c.cmap.Intent {
	case IntentPerceptual, IntentSaturation:
		v = softClip(v, c.dstLuma, dstPeak)
	}
	return v
}

// softClip moves v towards its luma until it fits in [0, peak], keeping
// the luminance.
func softClip(v, luma colormath.Vec3, peak float64) colormath.Vec3 {
	y := colormath.Dot(v, luma)
	if y <= 0 || y >= peak {
		return v
	}
	t := 0.0
	for _, x := range v {
		switch {
		case x < 0:
			t = math.Max(t, x/(x-y))
		case x > peak:
			t = math.Max(t, (x-peak)/(x-y))
		}
	}
	if t == 0 {
		return v
	}
	return colormath.Mix(v, colormath.Vec3{y, y, y}, math.Min(t, 1))
}

// adjustColor applies hue rotation, saturation, contrast, brightness and
// gamma to linear RGB.
func adjustColor(v, luma colormath.Vec3, a *ColorAdjustment) colormath.Vec3 {
	if a.Hue != 0 {
		// Rotate around the gray axis.
		k := 1 / math.Sqrt(3)
		sin, cos := math.Sincos(a.Hue)
		dot := (v[0] + v[1] + v[2]) * k
		cross := colormath.Vec3{k * (v[2] - v[1]), k * (v[0] - v[2]), k * (v[1] - v[0])}
		for i := range v {
			v[i] = v[i]*cos + cross[i]*sin + k*dot*(1-cos)
		}
	}
	y := colormath.Dot(v, luma)
	for i := range v {
		v[i] = y + (v[i]-y)*a.Saturation
		v[i] = v[i]*a.Contrast + a.Brightness
		if a.Gamma != 1 && v[i] > 0 {
			v[i] = math.Pow(v[i], 1/a.Gamma)
		}
	}
	return v
}

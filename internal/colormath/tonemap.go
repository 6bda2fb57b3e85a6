package colormath

import "math"

// ToneMapping enumerates the tone mapping curves.
type ToneMapping int

const (
	ToneMappingClip ToneMapping = iota
	ToneMappingMobius
	ToneMappingReinhard
	ToneMappingHable
	ToneMappingGamma
	ToneMappingLinear
)

// DefaultParam returns the curve parameter used when none is given.
func (t ToneMapping) DefaultParam() float64 {
	switch t {
	case ToneMappingMobius:
		return 0.3
	case ToneMappingReinhard:
		return 0.5
	case ToneMappingGamma:
		return 1.8
	default:
		return 1
	}
}

// ToneMap compresses sig in [0, peak] into [0, 1]. peak is the source peak
// divided by the destination peak and must be > 1 for any compression to
// happen. A zero param selects the curve default.
func ToneMap(t ToneMapping, param, sig, peak float64) float64 {
	if param == 0 {
		param = t.DefaultParam()
	}
	sig = math.Max(sig, 0)
	switch t {
	case ToneMappingClip:
		return math.Min(sig*param, 1)
	case ToneMappingMobius:
		j := param
		if sig <= j {
			return sig
		}
		a := -j * j * (peak - 1) / (j*j - 2*j + peak)
		b := (j*j - 2*j*peak + peak) / math.Max(peak-1, 1e-6)
		return (b*b + 2*b*j + j*j) / (b - a) * (sig + a) / (sig + b)
	case ToneMappingReinhard:
		offset := (1 - param) / param
		return sig / (sig + offset) * (peak + offset) / peak
	case ToneMappingHable:
		return hable(sig) / hable(peak)
	case ToneMappingGamma:
		const cutoff = 0.05
		if sig < cutoff {
			return sig * math.Pow(cutoff/peak, 1/param) / cutoff
		}
		return math.Pow(sig/peak, 1/param)
	case ToneMappingLinear:
		return param * sig / peak
	}
	return math.Min(sig, 1)
}

func hable(x float64) float64 {
	const a, b, c, d, e, f = 0.15, 0.50, 0.10, 0.20, 0.02, 0.30
	return (x*(a*x+c*b)+d*e)/(x*(a*x+b)+d*f) - e/f
}

// Desaturate pulls overbright colors towards their luma before tone mapping.
func Desaturate(v, luma Vec3, strength, exponent, base float64) Vec3 {
	if strength <= 0 {
		return v
	}
	y := Dot(v, luma)
	overbright := math.Max(y-base, 1e-6) / math.Max(y, 1e-6)
	coeff := math.Min(strength*math.Pow(overbright, exponent), 1)
	return Mix(v, Vec3{y, y, y}, coeff)
}

// ToneMapRGB scales v so that its largest component follows the curve.
// srcPeak and dstPeak are relative to the reference white.
func ToneMapRGB(t ToneMapping, param float64, v Vec3, srcPeak, dstPeak float64) Vec3 {
	if srcPeak <= dstPeak {
		return v
	}
	sig := v.Max() / dstPeak
	if sig <= 0 {
		return v
	}
	mapped := ToneMap(t, param, sig, srcPeak/dstPeak)
	return v.Scale(mapped / sig)
}

// InGamut reports whether every component of v is within [0-eps, 1+eps].
func InGamut(v Vec3, eps float64) bool {
	for _, c := range v {
		if c < -eps || c > 1+eps {
			return false
		}
	}
	return true
}

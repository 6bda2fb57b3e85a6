package colormath

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Transfer enumerates the supported transfer characteristics.
type Transfer int

const (
	TransferUnknown Transfer = iota
	TransferBT1886
	TransferSRGB
	TransferLinear
	TransferGamma18
	TransferGamma22
	TransferGamma28
	TransferProPhoto
	TransferPQ
	TransferHLG
	TransferVLog
	TransferSLog1
	TransferSLog2
	TransferCount
)

// ST 2084 constants.
const (
	pqM1 = 2610.0 / 16384.0
	pqM2 = 2523.0 / 4096.0 * 128.0
	pqC1 = 3424.0 / 4096.0
	pqC2 = 2413.0 / 4096.0 * 32.0
	pqC3 = 2392.0 / 4096.0 * 32.0
)

// ARIB STD-B67 constants.
const (
	hlgA = 0.17883277
	hlgB = 0.28466892
	hlgC = 0.55991073
)

// Panasonic V-Log constants.
const (
	vlogB = 0.00873
	vlogC = 0.241514
	vlogD = 0.598206
)

// Sony S-Log constants.
const (
	slogA  = 0.432699
	slogB  = 0.037584
	slogC  = 0.616596 + 0.03
	slogP  = 3.538812785388128
	slogQ  = 0.030001222851889303
	slogK2 = 155.0 / 219.0
)

// ReferenceWhite is the luminance of SDR white in cd/m².
const ReferenceWhite = 100.0

// NominalPeak returns the highest value a transfer can encode, relative to
// the reference white.
func NominalPeak(t Transfer) float64 {
	switch t {
	case TransferPQ:
		return 10000 / ReferenceWhite
	case TransferHLG:
		return 12
	case TransferVLog:
		return 46.0855
	case TransferSLog1:
		return 6.52
	case TransferSLog2:
		return 9.212
	default:
		return 1
	}
}

// IsHDR reports whether t can encode values above the reference white.
func IsHDR(t Transfer) bool {
	return NominalPeak(t) > 1
}

// Resolve replaces an unknown transfer with BT.1886.
func (t Transfer) Resolve() Transfer {
	if t <= TransferUnknown || t >= TransferCount {
		return TransferBT1886
	}
	return t
}

// Linearize applies the EOTF of t to an encoded value.
func Linearize(t Transfer, x float64) float64 {
	switch t.Resolve() {
	case TransferSRGB:
		return signed(x, func(v float64) float64 {
			r, _, _ := colorful.Color{R: v, G: v, B: v}.LinearRgb()
			return r
		})
	case TransferLinear:
		return x
	case TransferBT1886:
		return signedPow(x, 2.4)
	case TransferGamma18:
		return signedPow(x, 1.8)
	case TransferGamma22:
		return signedPow(x, 2.2)
	case TransferGamma28:
		return signedPow(x, 2.8)
	case TransferProPhoto:
		if x < 16.0/512.0 {
			return x / 16
		}
		return math.Pow(x, 1.8)
	case TransferPQ:
		x = math.Pow(math.Max(x, 0), 1/pqM2)
		x = math.Max(x-pqC1, 0) / (pqC2 - pqC3*x)
		return math.Pow(x, 1/pqM1) * NominalPeak(TransferPQ)
	case TransferHLG:
		x = math.Max(x, 0)
		if x <= 0.5 {
			return 4 * x * x
		}
		return math.Exp((x-hlgC)/hlgA) + hlgB
	case TransferVLog:
		if x >= 0.181 {
			return math.Pow(10, (x-vlogD)/vlogC) - vlogB
		}
		return (x - 0.125) / 5.6
	case TransferSLog1:
		return math.Pow(10, (x-slogC)/slogA) - slogB
	case TransferSLog2:
		if x >= slogQ {
			return (math.Pow(10, (x-slogC)/slogA) - slogB) / slogK2
		}
		return (x - slogQ) / slogP
	}
	return x
}

// Delinearize applies the inverse EOTF of t to a linear value.
func Delinearize(t Transfer, x float64) float64 {
	switch t.Resolve() {
	case TransferSRGB:
		return signed(x, func(v float64) float64 {
			return colorful.LinearRgb(v, v, v).R
		})
	case TransferLinear:
		return x
	case TransferBT1886:
		return signedPow(x, 1/2.4)
	case TransferGamma18:
		return signedPow(x, 1/1.8)
	case TransferGamma22:
		return signedPow(x, 1/2.2)
	case TransferGamma28:
		return signedPow(x, 1/2.8)
	case TransferProPhoto:
		if x < 1.0/512.0 {
			return x * 16
		}
		return math.Pow(x, 1/1.8)
	case TransferPQ:
		x = math.Max(x, 0) / NominalPeak(TransferPQ)
		x = math.Pow(x, pqM1)
		x = (pqC1 + pqC2*x) / (1 + pqC3*x)
		return math.Pow(x, pqM2)
	case TransferHLG:
		x = math.Max(x, 0)
		if x <= 1 {
			return math.Sqrt(x) / 2
		}
		return hlgA*math.Log(x-hlgB) + hlgC
	case TransferVLog:
		if x >= 0.01 {
			return vlogC*math.Log10(x+vlogB) + vlogD
		}
		return 5.6*x + 0.125
	case TransferSLog1:
		return slogA*math.Log10(math.Max(x+slogB, 1e-12)) + slogC
	case TransferSLog2:
		if x >= 0 {
			return slogA*math.Log10(math.Max(slogK2*x+slogB, 1e-12)) + slogC
		}
		return slogP*x + slogQ
	}
	return x
}

// HLGOOTF maps scene-referred HLG light to display light for a display of
// the given peak, using the BT.2100 system gamma.
func HLGOOTF(v Vec3, luma Vec3, peak float64) Vec3 {
	gamma := 1.2 + 0.42*math.Log10(peak*ReferenceWhite/1000)
	gamma = math.Max(gamma, 1)
	y := Dot(v, luma) / 12
	if y <= 0 {
		return Vec3{}
	}
	s := math.Pow(y, gamma-1) * peak / 12
	return v.Scale(s)
}

// HLGInverseOOTF undoes HLGOOTF.
func HLGInverseOOTF(v Vec3, luma Vec3, peak float64) Vec3 {
	gamma := 1.2 + 0.42*math.Log10(peak*ReferenceWhite/1000)
	gamma = math.Max(gamma, 1)
	y := Dot(v, luma) / peak
	if y <= 0 {
		return Vec3{}
	}
	s := math.Pow(y, (1-gamma)/gamma) * 12 / peak
	return v.Scale(s)
}

func signedPow(x, e float64) float64 {
	if x < 0 {
		return -math.Pow(-x, e)
	}
	return math.Pow(x, e)
}

func signed(x float64, f func(float64) float64) float64 {
	if x < 0 {
		return -f(-x)
	}
	return f(x)
}

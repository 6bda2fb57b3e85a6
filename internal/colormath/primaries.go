package colormath

import "github.com/lucasb-eyer/go-colorful"

// Primaries enumerates the supported RGB primaries.
type Primaries int

const (
	PrimariesUnknown Primaries = iota
	PrimariesBT601525
	PrimariesBT601625
	PrimariesBT709
	PrimariesBT470M
	PrimariesBT2020
	PrimariesApple
	PrimariesAdobe
	PrimariesProPhoto
	PrimariesCIE1931
	PrimariesDCIP3
	PrimariesDisplayP3
	PrimariesVGamut
	PrimariesSGamut
	PrimariesCount
)

// CIExy is a chromaticity coordinate.
type CIExy struct{ X, Y float64 }

// XYZ converts a chromaticity to tristimulus values with Y = 1.
func (c CIExy) XYZ() Vec3 {
	return Vec3{c.X / c.Y, 1, (1 - c.X - c.Y) / c.Y}
}

// Standard white points.
var (
	WhiteD50 = CIExy{0.34567, 0.35850}
	WhiteD65 = CIExy{0.31271, 0.32902}
	WhiteC   = CIExy{0.31006, 0.31616}
	WhiteE   = CIExy{1.0 / 3.0, 1.0 / 3.0}
	WhiteDCI = CIExy{0.31400, 0.35100}
)

// RawPrimaries are the chromaticities of a set of primaries.
type RawPrimaries struct {
	Red, Green, Blue, White CIExy
}

var rawPrimaries = [PrimariesCount]RawPrimaries{
	PrimariesBT601525:  {CIExy{0.630, 0.340}, CIExy{0.310, 0.595}, CIExy{0.155, 0.070}, WhiteD65},
	PrimariesBT601625:  {CIExy{0.640, 0.330}, CIExy{0.290, 0.600}, CIExy{0.150, 0.060}, WhiteD65},
	PrimariesBT709:     {CIExy{0.640, 0.330}, CIExy{0.300, 0.600}, CIExy{0.150, 0.060}, WhiteD65},
	PrimariesBT470M:    {CIExy{0.670, 0.330}, CIExy{0.210, 0.710}, CIExy{0.140, 0.080}, WhiteC},
	PrimariesBT2020:    {CIExy{0.708, 0.292}, CIExy{0.170, 0.797}, CIExy{0.131, 0.046}, WhiteD65},
	PrimariesApple:     {CIExy{0.625, 0.340}, CIExy{0.280, 0.595}, CIExy{0.115, 0.070}, WhiteD65},
	PrimariesAdobe:     {CIExy{0.640, 0.330}, CIExy{0.210, 0.710}, CIExy{0.150, 0.060}, WhiteD65},
	PrimariesProPhoto:  {CIExy{0.7347, 0.2653}, CIExy{0.1596, 0.8404}, CIExy{0.0366, 0.0001}, WhiteD50},
	PrimariesCIE1931:   {CIExy{0.7347, 0.2653}, CIExy{0.2738, 0.7174}, CIExy{0.1666, 0.0089}, WhiteE},
	PrimariesDCIP3:     {CIExy{0.680, 0.320}, CIExy{0.265, 0.690}, CIExy{0.150, 0.060}, WhiteDCI},
	PrimariesDisplayP3: {CIExy{0.680, 0.320}, CIExy{0.265, 0.690}, CIExy{0.150, 0.060}, WhiteD65},
	PrimariesVGamut:    {CIExy{0.730, 0.280}, CIExy{0.165, 0.840}, CIExy{0.100, -0.030}, WhiteD65},
	PrimariesSGamut:    {CIExy{0.730, 0.280}, CIExy{0.140, 0.855}, CIExy{0.100, -0.050}, WhiteD65},
}

// Raw returns the chromaticities of p. Unknown primaries resolve to BT.709.
func (p Primaries) Raw() RawPrimaries {
	if p <= PrimariesUnknown || p >= PrimariesCount {
		p = PrimariesBT709
	}
	return rawPrimaries[p]
}

// IsWide reports whether p is wider than the BT.709 gamut.
func (p Primaries) IsWide() bool {
	switch p {
	case PrimariesBT470M, PrimariesBT2020, PrimariesAdobe, PrimariesProPhoto,
		PrimariesCIE1931, PrimariesDCIP3, PrimariesDisplayP3, PrimariesVGamut, PrimariesSGamut:
		return true
	}
	return false
}

// RGBToXYZ returns the matrix converting linear RGB in the given primaries
// to CIE XYZ relative to the primaries' own white point.
func RGBToXYZ(p RawPrimaries) Mat3 {
	r, g, b := p.Red.XYZ(), p.Green.XYZ(), p.Blue.XYZ()
	m := Mat3{
		{r[0], g[0], b[0]},
		{r[1], g[1], b[1]},
		{r[2], g[2], b[2]},
	}
	s := m.Invert().Apply(p.White.XYZ())
	return m.Mul(Diag(s))
}

// bradford is the cone response matrix used for chromatic adaptation.
var bradford = Mat3{
	{0.8951, 0.2664, -0.1614},
	{-0.7502, 1.7135, 0.0367},
	{0.0389, -0.0685, 1.0296},
}

// ChromaticAdaptation returns the Bradford transform from white src to dst.
func ChromaticAdaptation(src, dst CIExy) Mat3 {
	if src == dst {
		return Identity
	}
	s := bradford.Apply(src.XYZ())
	d := bradford.Apply(dst.XYZ())
	scale := Diag(Vec3{d[0] / s[0], d[1] / s[1], d[2] / s[2]})
	return bradford.Invert().Mul(scale).Mul(bradford)
}

// GamutMatrix converts linear RGB from src to dst primaries. Absolute
// colorimetric conversions skip white point adaptation.
func GamutMatrix(src, dst RawPrimaries, absolute bool) Mat3 {
	m := RGBToXYZ(src)
	if !absolute {
		m = ChromaticAdaptation(src.White, dst.White).Mul(m)
	}
	return RGBToXYZ(dst).Invert().Mul(m)
}

// LumaCoeffs returns the Y row of the RGB to XYZ matrix of p.
func LumaCoeffs(p RawPrimaries) Vec3 {
	return Vec3(RGBToXYZ(p)[1])
}

// Luminance709 returns the relative luminance of linear BT.709 RGB.
func Luminance709(v Vec3) float64 {
	_, y, _ := colorful.LinearRgbToXyz(v[0], v[1], v[2])
	return y
}

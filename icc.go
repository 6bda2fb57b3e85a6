package placebo

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sort"

	"seehuhn.de/go/icc"

	"github.com/gogpu/placebo/internal/colormath"
)

// Tags of matrix/TRC display profiles.
const (
	tagRedColorant   icc.TagType = 0x7258595A // rXYZ
	tagGreenColorant icc.TagType = 0x6758595A // gXYZ
	tagBlueColorant  icc.TagType = 0x6258595A // bXYZ
	tagMediaWhite    icc.TagType = 0x77747074 // wtpt
	tagRedTRC        icc.TagType = 0x72545243 // rTRC
	tagGreenTRC      icc.TagType = 0x67545243 // gTRC
	tagBlueTRC       icc.TagType = 0x62545243 // bTRC
)

// ErrIccTags is returned for RGB profiles lacking the colorant and tone
// curve tags of a matrix/TRC display profile.
var ErrIccTags = errors.New("placebo: ICC profile is not a matrix/TRC profile")

// iccCurveSamples is the resolution of the inverted tone curves.
const iccCurveSamples = 4096

// iccDisplay is the display model of a matrix/TRC profile. Device values
// pass through a tone curve per channel and then the colorant matrix to
// reach the D50 PCS.
type iccDisplay struct {
	toPCS   colormath.Mat3
	fromPCS colormath.Mat3
	trc     [3]iccCurve
}

// encode converts linear PCS-relative device RGB to device values.
func (d *iccDisplay) encode(pcs colormath.Vec3) colormath.Vec3 {
	v := d.fromPCS.Apply(pcs)
	for i := range v {
		v[i] = d.trc[i].invert(math.Max(0, math.Min(v[i], 1)))
	}
	return v
}

// iccCurve is a tone curve mapping device values in [0, 1] to linear
// light. The curve is sampled once and inverted by interpolation.
type iccCurve struct {
	fwd []float64
}

func newIccCurve(f func(float64) float64) iccCurve {
	c := iccCurve{fwd: make([]float64, iccCurveSamples)}
	last := 0.0
	for i := range c.fwd {
		y := f(float64(i) / (iccCurveSamples - 1))
		// Enforce monotonicity so the inverse is well defined.
		last = math.Max(last, y)
		c.fwd[i] = last
	}
	return c
}

func (c iccCurve) eval(x float64) float64 {
	x = math.Max(0, math.Min(x, 1)) * (iccCurveSamples - 1)
	i := min(int(x), iccCurveSamples-2)
	return c.fwd[i] + (c.fwd[i+1]-c.fwd[i])*(x-float64(i))
}

func (c iccCurve) invert(y float64) float64 {
	i := sort.SearchFloat64s(c.fwd, y)
	switch {
	case i == 0:
		return 0
	case i >= len(c.fwd):
		return 1
	}
	y0, y1 := c.fwd[i-1], c.fwd[i]
	t := 0.0
	if y1 > y0 {
		t = (y - y0) / (y1 - y0)
	}
	return (float64(i-1) + t) / (iccCurveSamples - 1)
}

// display decodes the colorant and tone curve tags of an RGB profile.
func (p IccProfile) display() (*iccDisplay, error) {
	prof, err := icc.Decode(bytes.Clone(p.Data))
	if err != nil {
		return nil, fmt.Errorf("placebo: decode ICC profile: %w", err)
	}
	if prof.ColorSpace != icc.RGBSpace {
		return nil, fmt.Errorf("%w: ICC profile has %v color space", ErrUnsupportedFormat, prof.ColorSpace)
	}

	d := &iccDisplay{}
	for i, tag := range []icc.TagType{tagRedColorant, tagGreenColorant, tagBlueColorant} {
		xyz, err := decodeXYZTag(prof.TagData[tag])
		if err != nil {
			return nil, fmt.Errorf("%w: %v: %w", ErrIccTags, tag, err)
		}
		for row := range 3 {
			d.toPCS[row][i] = xyz[row]
		}
	}
	if d.toPCS.Det() == 0 {
		return nil, fmt.Errorf("%w: singular colorant matrix", ErrIccTags)
	}
	d.fromPCS = d.toPCS.Invert()

	for i, tag := range []icc.TagType{tagRedTRC, tagGreenTRC, tagBlueTRC} {
		f, err := decodeCurveTag(prof.TagData[tag])
		if err != nil {
			return nil, fmt.Errorf("%w: %v: %w", ErrIccTags, tag, err)
		}
		d.trc[i] = newIccCurve(f)
	}
	return d, nil
}

func s15Fixed16(b []byte) float64 {
	return float64(int32(binary.BigEndian.Uint32(b))) / 65536
}

func putS15Fixed16(b []byte, v float64) {
	binary.BigEndian.PutUint32(b, uint32(int32(math.Round(v*65536))))
}

var errIccTagData = errors.New("malformed tag")

func decodeXYZTag(data []byte) (colormath.Vec3, error) {
	if len(data) < 20 || string(data[:4]) != "XYZ " {
		return colormath.Vec3{}, errIccTagData
	}
	return colormath.Vec3{s15Fixed16(data[8:]), s15Fixed16(data[12:]), s15Fixed16(data[16:])}, nil
}

// paraCounts is the number of parameters of each parametric curve type.
var paraCounts = [...]int{1, 3, 4, 5, 7}

func decodeCurveTag(data []byte) (func(float64) float64, error) {
	if len(data) < 12 {
		return nil, errIccTagData
	}
	switch string(data[:4]) {
	case "curv":
		n := int(binary.BigEndian.Uint32(data[8:]))
		if len(data) < 12+2*n {
			return nil, errIccTagData
		}
		switch n {
		case 0:
			return func(x float64) float64 { return x }, nil
		case 1:
			g := float64(binary.BigEndian.Uint16(data[12:])) / 256
			return func(x float64) float64 { return math.Pow(x, g) }, nil
		}
		table := make([]float64, n)
		for i := range table {
			table[i] = float64(binary.BigEndian.Uint16(data[12+2*i:])) / 65535
		}
		return func(x float64) float64 {
			x *= float64(n - 1)
			i := min(int(x), n-2)
			return table[i] + (table[i+1]-table[i])*(x-float64(i))
		}, nil

	case "para":
		kind := int(binary.BigEndian.Uint16(data[8:]))
		if kind >= len(paraCounts) || len(data) < 12+4*paraCounts[kind] {
			return nil, errIccTagData
		}
		var p [7]float64
		for i := range paraCounts[kind] {
			p[i] = s15Fixed16(data[12+4*i:])
		}
		return paraCurve(kind, p), nil
	}
	return nil, errIccTagData
}

// paraCurve evaluates the ICC parametric curve of the given type with
// parameters g, a, b, c, d, e, f.
func paraCurve(kind int, p [7]float64) func(float64) float64 {
	g, a, b, c, d, e, f := p[0], p[1], p[2], p[3], p[4], p[5], p[6]
	pow := func(x float64) float64 { return math.Pow(math.Max(x, 0), g) }
	switch kind {
	case 0:
		return pow
	case 1:
		return func(x float64) float64 { return pow(a*x + b) }
	case 2:
		return func(x float64) float64 { return pow(a*x+b) + c }
	case 3:
		return func(x float64) float64 {
			if x >= d {
				return pow(a*x + b)
			}
			return c * x
		}
	}
	return func(x float64) float64 {
		if x >= d {
			return pow(a*x+b) + e
		}
		return c*x + f
	}
}

// iccTransferTag encodes the tone curve of an SDR transfer.
func iccTransferTag(t ColorTransfer) ([]byte, error) {
	para := func(kind uint16, params ...float64) []byte {
		b := make([]byte, 12+4*len(params))
		copy(b, "para")
		binary.BigEndian.PutUint16(b[8:], kind)
		for i, v := range params {
			putS15Fixed16(b[12+4*i:], v)
		}
		return b
	}
	switch t {
	case ColorTrcSRGB:
		return para(3, 2.4, 1/1.055, 0.055/1.055, 1/12.92, 0.04045), nil
	case ColorTrcLinear:
		return para(0, 1), nil
	case ColorTrcBT1886:
		return para(0, 2.4), nil
	case ColorTrcGamma18, ColorTrcProPhoto:
		return para(0, 1.8), nil
	case ColorTrcGamma22:
		return para(0, 2.2), nil
	case ColorTrcGamma28:
		return para(0, 2.8), nil
	}
	return nil, fmt.Errorf("%w: no ICC tone curve for %v", ErrUnsupportedFormat, t)
}

func xyzTag(v colormath.Vec3) []byte {
	b := make([]byte, 20)
	copy(b, "XYZ ")
	for i, x := range v {
		putS15Fixed16(b[8+4*i:], x)
	}
	return b
}

// NewDisplayIccProfile builds a matrix/TRC display profile describing a
// display calibrated to space. Only SDR transfers can be described. The
// signature is derived from the encoded profile.
func NewDisplayIccProfile(space ColorSpace) (IccProfile, error) {
	space = space.Infer()
	trc, err := iccTransferTag(space.Transfer)
	if err != nil {
		return IccProfile{}, err
	}
	raw := space.Primaries.raw()
	toPCS := colormath.ChromaticAdaptation(raw.White, colormath.WhiteD50).Mul(colormath.RGBToXYZ(raw))

	prof := &icc.Profile{
		Version:    icc.Version4_3_0,
		Class:      icc.DisplayDeviceProfile,
		ColorSpace: icc.RGBSpace,
		PCS:        icc.PCSXYZSpace,
		TagData: map[icc.TagType][]byte{
			tagMediaWhite: xyzTag(colormath.WhiteD50.XYZ()),
			tagRedTRC:     trc,
			tagGreenTRC:   trc,
			tagBlueTRC:    trc,
		},
	}
	for i, tag := range []icc.TagType{tagRedColorant, tagGreenColorant, tagBlueColorant} {
		prof.TagData[tag] = xyzTag(colormath.Vec3{toPCS[0][i], toPCS[1][i], toPCS[2][i]})
	}
	data := prof.Encode()
	h := fnv.New64a()
	h.Write(data)
	return IccProfile{Signature: h.Sum64() | 1, Data: data}, nil
}

// cacheKey identifies the profile contents in renderer caches.
func (p IccProfile) cacheKey() uint64 {
	if p.Signature != 0 {
		return p.Signature
	}
	h := fnv.New64a()
	h.Write(p.Data)
	return h.Sum64()
}

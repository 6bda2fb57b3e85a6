package placebo

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
)

// FmtType is the numeric interpretation of a format's components.
type FmtType uint8

const (
	FmtUnknown FmtType = iota
	FmtUnorm
	FmtFloat
)

var fmtTypes = seqTable("FmtType", []FmtType{FmtUnknown, FmtUnorm, FmtFloat}, "unknown", "unorm", "float")

func (t FmtType) String() string   { return fmtTypes.name(t) }
func (t FmtType) NativeTag() int32 { return fmtTypes.tag(t) }

// Format is a texel layout. Components are stored in memory order; Sample
// maps each stored component to the logical channel (0 = R .. 3 = A) it
// carries.
type Format struct {
	Name          string
	Type          FmtType
	NumComponents int
	// ComponentDepth is the bit depth of each stored component.
	ComponentDepth [4]int
	Sample         [4]int
	TexelSize      int
	// Renderable formats can be used as render targets.
	Renderable bool

	container gputypes.TextureFormat
}

var formats = []*Format{
	unorm("r8", 1, 8, gputypes.TextureFormatR8Unorm),
	unorm("rg8", 2, 8, gputypes.TextureFormatRGBA8Unorm),
	unorm("rgb8", 3, 8, gputypes.TextureFormatRGBA8Unorm),
	unorm("rgba8", 4, 8, gputypes.TextureFormatRGBA8Unorm),
	{
		Name: "bgra8", Type: FmtUnorm, NumComponents: 4,
		ComponentDepth: [4]int{8, 8, 8, 8}, Sample: [4]int{2, 1, 0, 3}, TexelSize: 4,
		Renderable: true, container: gputypes.TextureFormatBGRA8Unorm,
	},
	unorm("r16", 1, 16, gputypes.TextureFormatR32Float),
	unorm("rg16", 2, 16, gputypes.TextureFormatRG32Float),
	unorm("rgb16", 3, 16, gputypes.TextureFormatRGBA32Float),
	unorm("rgba16", 4, 16, gputypes.TextureFormatRGBA32Float),
	float32Format("r32f", 1, gputypes.TextureFormatR32Float),
	float32Format("rg32f", 2, gputypes.TextureFormatRG32Float),
	float32Format("rgba32f", 4, gputypes.TextureFormatRGBA32Float),
}

func unorm(name string, n, depth int, container gputypes.TextureFormat) *Format {
	f := &Format{Name: name, Type: FmtUnorm, NumComponents: n, TexelSize: n * depth / 8, container: container}
	for i := range n {
		f.ComponentDepth[i] = depth
		f.Sample[i] = i
	}
	f.Renderable = n == 4 || n == 1
	return f
}

func float32Format(name string, n int, container gputypes.TextureFormat) *Format {
	f := unorm(name, n, 32, container)
	f.Type = FmtFloat
	return f
}

// Formats returns every supported format.
func Formats() []*Format {
	return append([]*Format(nil), formats...)
}

// FindFormat looks a format up by name.
func FindFormat(name string) *Format {
	for _, f := range formats {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// FindFormatFor returns the smallest format of the given type holding
// components components of at least depth bits each in RGBA order.
func FindFormatFor(t FmtType, components, depth int) *Format {
	for _, f := range formats {
		if f.Type != t || f.NumComponents != components || f.Sample[0] != 0 {
			continue
		}
		if f.ComponentDepth[0] >= depth {
			return f
		}
	}
	return nil
}

func (f *Format) String() string { return f.Name }

// Container returns the GPU texture format the texels are uploaded as.
func (f *Format) Container() gputypes.TextureFormat { return f.container }

// containerSize is the byte size of one texel in the container format.
func (f *Format) containerSize() int {
	switch f.container {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatR32Float:
		return 4
	case gputypes.TextureFormatRG32Float:
		return 8
	default:
		return 16
	}
}

// read decodes one texel into logical RGBA. Absent color channels read as
// zero and absent alpha as one.
func (f *Format) read(texel []byte) [4]float32 {
	px := [4]float32{0, 0, 0, 1}
	for i := range f.NumComponents {
		var v float32
		switch {
		case f.Type == FmtFloat:
			v = math.Float32frombits(binary.LittleEndian.Uint32(texel[i*4:]))
		case f.ComponentDepth[i] == 16:
			v = float32(binary.LittleEndian.Uint16(texel[i*2:])) / 65535
		default:
			v = float32(texel[i]) / 255
		}
		px[f.Sample[i]] = v
	}
	return px
}

// write encodes logical RGBA into one texel, clamping unorm values.
func (f *Format) write(texel []byte, px [4]float32) {
	for i := range f.NumComponents {
		v := px[f.Sample[i]]
		switch {
		case f.Type == FmtFloat:
			binary.LittleEndian.PutUint32(texel[i*4:], math.Float32bits(v))
		case f.ComponentDepth[i] == 16:
			binary.LittleEndian.PutUint16(texel[i*2:], uint16(math.Round(float64(clampUnit(v))*65535)))
		default:
			texel[i] = uint8(math.Round(float64(clampUnit(v)) * 255))
		}
	}
}

// toContainer converts a tightly packed host image into container texels.
func (f *Format) toContainer(data []byte, texels int) []byte {
	cs := f.containerSize()
	if cs == f.TexelSize && (f.Type == FmtFloat || f.ComponentDepth[0] == 8) {
		return data
	}
	out := make([]byte, texels*cs)
	for i := range texels {
		px := f.read(data[i*f.TexelSize:])
		dst := out[i*cs:]
		switch f.container {
		case gputypes.TextureFormatRGBA8Unorm:
			for c := range 4 {
				dst[c] = uint8(math.Round(float64(clampUnit(px[c])) * 255))
			}
		default:
			for c := range cs / 4 {
				binary.LittleEndian.PutUint32(dst[c*4:], math.Float32bits(px[c]))
			}
		}
	}
	return out
}

func clampUnit(v float32) float32 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (f *Format) validate() error {
	if f == nil {
		return fmt.Errorf("%w: nil format", ErrUnsupportedFormat)
	}
	for _, known := range formats {
		if known == f {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f.Name)
}

package placebo

import (
	"bytes"
	"sync"
)

// PresentMode selects how presented frames replace each other.
type PresentMode uint8

const (
	PresentImmediate PresentMode = iota
	PresentFIFO
	PresentMailbox
)

var presentModes = seqTable("PresentMode",
	[]PresentMode{PresentImmediate, PresentFIFO, PresentMailbox},
	"immediate", "fifo", "mailbox")

func (m PresentMode) String() string   { return presentModes.name(m) }
func (m PresentMode) NativeTag() int32 { return presentModes.tag(m) }

// SurfaceColorSpace is the color space tag negotiated with a surface.
type SurfaceColorSpace uint8

const (
	SurfaceSRGBNonlinear SurfaceColorSpace = iota
	SurfaceBT709Nonlinear
	SurfaceDisplayP3Nonlinear
	SurfaceHDR10
	SurfaceHLG
	SurfaceExtendedSRGBLinear
)

var surfaceColorSpaces = seqTable("SurfaceColorSpace",
	[]SurfaceColorSpace{SurfaceSRGBNonlinear, SurfaceBT709Nonlinear, SurfaceDisplayP3Nonlinear,
		SurfaceHDR10, SurfaceHLG, SurfaceExtendedSRGBLinear},
	"srgb", "bt709", "display-p3", "hdr10", "hlg", "extended-srgb-linear")

func (s SurfaceColorSpace) String() string   { return surfaceColorSpaces.name(s) }
func (s SurfaceColorSpace) NativeTag() int32 { return surfaceColorSpaces.tag(s) }

// ColorSpace returns the color space frames must be encoded in.
func (s SurfaceColorSpace) ColorSpace() ColorSpace {
	switch s {
	case SurfaceBT709Nonlinear:
		return ColorSpaceBT709
	case SurfaceDisplayP3Nonlinear:
		return ColorSpace{Primaries: ColorPrimDisplayP3, Transfer: ColorTrcSRGB}
	case SurfaceHDR10:
		return ColorSpaceHDR10
	case SurfaceHLG:
		return ColorSpaceBT2020HLG
	case SurfaceExtendedSRGBLinear:
		return ColorSpace{Primaries: ColorPrimBT709, Transfer: ColorTrcLinear}
	default:
		return ColorSpaceSRGB
	}
}

// SurfaceFormat is a pixel format plus color space tag. A nil Format
// selects the surface default.
type SurfaceFormat struct {
	Format     *Format
	ColorSpace SurfaceColorSpace
}

// SurfaceConfig is passed to Surface.Configure on swapchain creation and
// resize.
type SurfaceConfig struct {
	Width, Height int
	Format        SurfaceFormat
	PresentMode   PresentMode
	Depth         int
}

// SurfaceImage is a finished frame handed to Surface.Present. Pix holds
// Height rows of Stride bytes in Format layout and is only valid for the
// duration of the call.
type SurfaceImage struct {
	Width, Height int
	Stride        int
	Format        *Format
	ColorSpace    ColorSpace
	Pix           []byte
	Frame         uint64
}

// Surface is the presentation layer a Swapchain renders into, usually a
// window. Implementations are supplied by the caller.
type Surface interface {
	// Configure applies a new configuration. The surface may clamp the
	// requested size; Configure returns the size actually in effect.
	Configure(cfg SurfaceConfig) (width, height int, err error)
	// Ready reports whether a new frame can be started.
	Ready() bool
	// Present displays a frame.
	Present(img SurfaceImage) error
}

// HeadlessSurface is a Surface without a display. It keeps a copy of the
// last presented frame.
//
// HeadlessSurface is safe for concurrent use.
type HeadlessSurface struct {
	mu        sync.Mutex
	cfg       SurfaceConfig
	skip      int
	presented int
	last      SurfaceImage
	err       error
}

// NewHeadlessSurface returns a surface that is always ready.
func NewHeadlessSurface() *HeadlessSurface {
	return &HeadlessSurface{}
}

func (s *HeadlessSurface) Configure(cfg SurfaceConfig) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return cfg.Width, cfg.Height, nil
}

func (s *HeadlessSurface) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.skip > 0 {
		s.skip--
		return false
	}
	return true
}

func (s *HeadlessSurface) Present(img SurfaceImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	img.Pix = bytes.Clone(img.Pix)
	s.last = img
	s.presented++
	return nil
}

// SkipFrames makes the next n Ready calls report false.
func (s *HeadlessSurface) SkipFrames(n int) {
	s.mu.Lock()
	s.skip = n
	s.mu.Unlock()
}

// FailPresent makes Present return err until called with nil.
func (s *HeadlessSurface) FailPresent(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Presented returns the number of presented frames.
func (s *HeadlessSurface) Presented() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presented
}

// LastImage returns the last presented frame.
func (s *HeadlessSurface) LastImage() SurfaceImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Config returns the current configuration.
func (s *HeadlessSurface) Config() SurfaceConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

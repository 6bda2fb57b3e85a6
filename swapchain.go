package placebo

import (
	"fmt"
	"sync"
)

// SwapchainParams configures NewSwapchain.
type SwapchainParams struct {
	// Surface is the surface to present to. Zero uses the surface the
	// device was created for.
	Surface       SurfaceHandle
	PresentMode   PresentMode
	SurfaceFormat SurfaceFormat
	// Depth is the number of framebuffers in the ring.
	Depth int
}

// DefaultSwapchainParams returns immediate presentation to surface in the
// surface's default format with sRGB nonlinear encoding and three
// framebuffers.
func DefaultSwapchainParams(surface SurfaceHandle) SwapchainParams {
	return SwapchainParams{
		Surface:       surface,
		PresentMode:   PresentImmediate,
		SurfaceFormat: SurfaceFormat{ColorSpace: SurfaceSRGBNonlinear},
		Depth:         3,
	}
}

// SwapchainFrame is a framebuffer acquired with StartFrame.
type SwapchainFrame struct {
	FBO *Texture
	// Flipped reports that the framebuffer is stored bottom-up.
	Flipped    bool
	ColorRepr  ColorRepr
	ColorSpace ColorSpace
}

// Swapchain is a ring of framebuffers presented to a Surface. Frames go
// through StartFrame, SubmitFrame and SwapBuffers in that order.
type Swapchain struct {
	mu      sync.Mutex
	gpu     *GPU
	surface Surface
	params  SwapchainParams
	format  *Format

	ring     []*Texture
	w, h     int
	next     int
	inFlight bool
	pending  []int
	frames   uint64
	dead     bool
}

// NewSwapchain creates a swapchain on dev. The framebuffers are allocated
// by the first Resize.
func NewSwapchain(dev *Device, params SwapchainParams) (*Swapchain, error) {
	if dev == nil {
		return nil, stageError(StageSwapchain, fmt.Errorf("%w: nil device", ErrInvalidParams))
	}
	if params.Depth <= 0 {
		return nil, stageError(StageSwapchain, fmt.Errorf("%w: depth %d", ErrInvalidParams, params.Depth))
	}
	if _, ok := presentModes.byValue[params.PresentMode]; !ok {
		return nil, stageError(StageSwapchain, fmt.Errorf("%w: present mode %d", ErrInvalidParams, params.PresentMode))
	}
	if _, ok := surfaceColorSpaces.byValue[params.SurfaceFormat.ColorSpace]; !ok {
		return nil, stageError(StageSwapchain, fmt.Errorf("%w: surface color space %d",
			ErrInvalidParams, params.SurfaceFormat.ColorSpace))
	}

	surface := dev.surface
	if params.Surface != 0 {
		if dev.inst == nil {
			return nil, stageError(StageSwapchain, fmt.Errorf("%w: adopted device has no instance", ErrInvalidParams))
		}
		s, err := dev.inst.surface(params.Surface)
		if err != nil {
			return nil, stageError(StageSwapchain, err)
		}
		surface = s
	}
	if surface == nil {
		return nil, stageError(StageSwapchain, fmt.Errorf("%w: no surface", ErrInvalidParams))
	}

	format := params.SurfaceFormat.Format
	if format == nil {
		format = FindFormat("bgra8")
	}
	if !format.Renderable {
		return nil, stageError(StageSwapchain, fmt.Errorf("%w: format %s is not renderable", ErrUnsupportedFormat, format.Name))
	}
	params.SurfaceFormat.Format = format

	gpu := dev.GPU()
	if err := gpu.acquire(); err != nil {
		return nil, stageError(StageSwapchain, err)
	}
	sw := &Swapchain{
		gpu:     gpu,
		surface: surface,
		params:  params,
		format:  format,
		ring:    make([]*Texture, params.Depth),
	}
	for i := range sw.ring {
		sw.ring[i] = &Texture{}
	}
	gpu.log().Info("placebo: swapchain created", "format", format.Name,
		"color_space", params.SurfaceFormat.ColorSpace, "present_mode", params.PresentMode, "depth", params.Depth)
	return sw, nil
}

// MustNewSwapchain is like NewSwapchain but panics on error.
func MustNewSwapchain(dev *Device, params SwapchainParams) *Swapchain {
	return must(NewSwapchain(dev, params))
}

// Params returns the swapchain configuration with the format resolved.
func (s *Swapchain) Params() SwapchainParams { return s.params }

// Size returns the current framebuffer size.
func (s *Swapchain) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w, s.h
}

// Latency returns the number of frames that may be queued ahead of the
// display.
func (s *Swapchain) Latency() int { return s.params.Depth }

// Resize reconfigures the surface for a w×h framebuffer and returns the
// size actually in effect, which is capped by the device texture limit
// and by the surface.
func (s *Swapchain) Resize(w, h int) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead {
		return 0, 0, ErrStaleHandle
	}
	if err := s.gpu.check(); err != nil {
		return 0, 0, err
	}
	if w <= 0 || h <= 0 {
		return s.w, s.h, fmt.Errorf("%w: swapchain size %dx%d", ErrInvalidParams, w, h)
	}
	if s.inFlight {
		return s.w, s.h, ErrFrameInProgress
	}

	limit := s.gpu.MaxTextureSize()
	w, h = min(w, limit), min(h, limit)
	w, h, err := s.surface.Configure(SurfaceConfig{
		Width:       w,
		Height:      h,
		Format:      s.params.SurfaceFormat,
		PresentMode: s.params.PresentMode,
		Depth:       s.params.Depth,
	})
	if err != nil {
		return s.w, s.h, fmt.Errorf("placebo: configure surface: %w", err)
	}
	w, h = min(w, limit), min(h, limit)
	if w <= 0 || h <= 0 {
		return s.w, s.h, fmt.Errorf("%w: surface configured to %dx%d", ErrInvalidParams, w, h)
	}

	for _, fbo := range s.ring {
		err := fbo.Recreate(s.gpu, TextureParams{
			W: w, H: h, Format: s.format,
			Sampleable: true, Renderable: true, BlitDst: true, HostReadable: true,
		})
		if err != nil {
			// The ring now mixes sizes, so no frame may start until a
			// later Resize succeeds.
			s.w, s.h = 0, 0
			s.pending = s.pending[:0]
			return 0, 0, err
		}
	}
	s.pending = s.pending[:0]
	if w != s.w || h != s.h {
		s.gpu.log().Debug("placebo: swapchain resized", "w", w, "h", h)
	}
	s.w, s.h = w, h
	return w, h, nil
}

// StartFrame acquires the next framebuffer. It returns false when no frame
// can be started right now: the surface is not ready, the swapchain has
// no size yet or the previous frame was not submitted. The caller should
// retry later.
func (s *Swapchain) StartFrame() (SwapchainFrame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead || s.gpu.check() != nil {
		return SwapchainFrame{}, false
	}
	if s.inFlight {
		s.gpu.log().Warn("placebo: start frame", "error", ErrFrameInProgress)
		return SwapchainFrame{}, false
	}
	if s.w == 0 || !s.surface.Ready() {
		return SwapchainFrame{}, false
	}
	s.inFlight = true
	return SwapchainFrame{
		FBO:        s.ring[s.next],
		ColorRepr:  ColorReprRGB,
		ColorSpace: s.params.SurfaceFormat.ColorSpace.ColorSpace(),
	}, true
}

// SubmitFrame queues the frame started by StartFrame for presentation.
func (s *Swapchain) SubmitFrame() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead {
		return ErrStaleHandle
	}
	if !s.inFlight {
		return ErrNoFrame
	}
	if err := s.gpu.Flush(); err != nil {
		return err
	}
	s.inFlight = false
	s.pending = append(s.pending, s.next)
	s.next = (s.next + 1) % len(s.ring)
	return nil
}

// SwapBuffers presents every submitted frame. Presentation errors are
// logged; the frame is dropped.
func (s *Swapchain) SwapBuffers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead {
		return
	}
	for _, idx := range s.pending {
		fbo := s.ring[idx]
		pix := make([]byte, s.w*s.h*s.format.TexelSize)
		if err := fbo.Download(pix); err != nil {
			s.gpu.log().Warn("placebo: read back framebuffer", "error", err)
			continue
		}
		s.frames++
		err := s.surface.Present(SurfaceImage{
			Width:      s.w,
			Height:     s.h,
			Stride:     s.w * s.format.TexelSize,
			Format:     s.format,
			ColorSpace: s.params.SurfaceFormat.ColorSpace.ColorSpace(),
			Pix:        pix,
			Frame:      s.frames,
		})
		if err != nil {
			s.gpu.log().Warn("placebo: present failed", "frame", s.frames, "error", err)
		}
	}
	s.pending = s.pending[:0]
}

// Destroy releases the framebuffers. Destroy is idempotent.
func (s *Swapchain) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead {
		return
	}
	s.dead = true
	for _, fbo := range s.ring {
		fbo.Destroy()
	}
	s.gpu.release()
	s.gpu.log().Debug("placebo: swapchain destroyed", "frames", s.frames)
}

package main

import (
	"fmt"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/gogpu/placebo"
)

// windowSurface presents swapchain frames into an ebiten window. Present
// converts each frame to RGBA; Draw uploads the latest one to the screen.
type windowSurface struct {
	mu     sync.Mutex
	w, h   int
	pix    []byte
	dirty  bool
	screen *ebiten.Image
}

func (s *windowSurface) Configure(cfg placebo.SurfaceConfig) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.Width != s.w || cfg.Height != s.h {
		s.w, s.h = cfg.Width, cfg.Height
		s.pix = make([]byte, 4*s.w*s.h)
		if s.screen != nil {
			s.screen.Deallocate()
			s.screen = nil
		}
	}
	return s.w, s.h, nil
}

func (s *windowSurface) Ready() bool { return true }

func (s *windowSurface) Present(img placebo.SurfaceImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if img.Width != s.w || img.Height != s.h {
		return fmt.Errorf("frame %dx%d does not match window %dx%d", img.Width, img.Height, s.w, s.h)
	}
	var swap bool
	switch img.Format.Name {
	case "rgba8":
	case "bgra8":
		swap = true
	default:
		return fmt.Errorf("cannot present %s frames", img.Format.Name)
	}
	for y := range img.Height {
		src := img.Pix[y*img.Stride : y*img.Stride+4*img.Width]
		dst := s.pix[4*y*s.w : 4*(y+1)*s.w]
		copy(dst, src)
		if swap {
			for x := 0; x < len(dst); x += 4 {
				dst[x], dst[x+2] = dst[x+2], dst[x]
			}
		}
	}
	s.dirty = true
	return nil
}

func (s *windowSurface) draw(screen *ebiten.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == 0 || s.h == 0 {
		return
	}
	if s.screen == nil {
		s.screen = ebiten.NewImage(s.w, s.h)
		s.dirty = true
	}
	if s.dirty {
		s.screen.WritePixels(s.pix)
		s.dirty = false
	}
	screen.DrawImage(s.screen, nil)
}

// viewer is the ebiten game running the frame loop, one step per tick.
type viewer struct {
	surface   *windowSurface
	swapchain *placebo.Swapchain
	loop      *placebo.FrameLoop
	err       error
}

func (v *viewer) Update() error {
	if ebiten.IsWindowBeingClosed() || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if _, err := v.loop.Step(); err != nil {
		v.err = err
		return ebiten.Termination
	}
	return nil
}

func (v *viewer) Draw(screen *ebiten.Image) {
	v.surface.draw(screen)
}

func (v *viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	w, h := v.swapchain.Size()
	if outsideWidth != w || outsideHeight != h {
		if nw, nh, err := v.swapchain.Resize(outsideWidth, outsideHeight); err == nil {
			w, h = nw, nh
		}
	}
	return w, h
}

// runWindow shows the viewer until the window is closed or Escape is
// pressed.
func runWindow(v *viewer, title string) error {
	w, h := v.swapchain.Size()
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowClosingHandled(true)
	if err := ebiten.RunGame(v); err != nil {
		return err
	}
	return v.err
}

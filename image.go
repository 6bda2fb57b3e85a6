package placebo

import (
	"fmt"
	"slices"
)

// MaxPlanes is the largest number of planes an Image may have.
const MaxPlanes = 4

// Plane is one texture of an image. ComponentMapping gives, for each
// texture component, the logical channel (0 = R .. 3 = A) it carries, or
// -1 for unused components.
type Plane struct {
	Texture          *Texture
	Components       int
	ComponentMapping [4]int
	// ShiftX and ShiftY offset the plane relative to the image in source
	// pixels, for chroma siting.
	ShiftX, ShiftY float64
}

// Width returns the plane texture width, or 0 without a texture.
func (p Plane) Width() int {
	if p.Texture.IsNull() {
		return 0
	}
	return p.Texture.Width()
}

// Height returns the plane texture height, or 0 without a texture.
func (p Plane) Height() int {
	if p.Texture.IsNull() {
		return 0
	}
	return p.Texture.Height()
}

func (p Plane) validate() error {
	if p.Texture.IsNull() {
		return fmt.Errorf("%w: plane without texture", ErrInvalidParams)
	}
	if !p.Texture.params.Sampleable {
		return fmt.Errorf("%w: plane texture is not sampleable", ErrInvalidParams)
	}
	if p.Components < 1 || p.Components > 4 || p.Components > p.Texture.Format().NumComponents {
		return fmt.Errorf("%w: plane with %d components in %s texture",
			ErrInvalidParams, p.Components, p.Texture.Format().Name)
	}
	for _, c := range p.ComponentMapping[:p.Components] {
		if c < -1 || c > 3 {
			return fmt.Errorf("%w: component mapping %v", ErrInvalidParams, p.ComponentMapping)
		}
	}
	return nil
}

// OverlayMode selects how an overlay is composited.
type OverlayMode uint8

const (
	// OverlayNormal alpha-blends the overlay's RGBA.
	OverlayNormal OverlayMode = iota
	// OverlayMonochrome uses the first channel of the overlay as coverage
	// for BaseColor.
	OverlayMonochrome
)

var overlayModes = seqTable("OverlayMode", []OverlayMode{OverlayNormal, OverlayMonochrome}, "normal", "monochrome")

func (m OverlayMode) String() string   { return overlayModes.name(m) }
func (m OverlayMode) NativeTag() int32 { return overlayModes.tag(m) }

// Overlay is a plane composited over an image or target at Rect.
type Overlay struct {
	Plane     Plane
	Rect      Rect2D
	Mode      OverlayMode
	BaseColor [3]float32
	Repr      ColorRepr
	Color     ColorSpace
}

// Image is the source of a render: up to four planes plus their color
// description.
type Image struct {
	Planes  []Plane
	Repr    ColorRepr
	Color   ColorSpace
	Profile IccProfile
	// SrcRect is the region to render. An empty rect selects the whole
	// image.
	SrcRect Rect2DF
	// Signature identifies the image contents between frames. Zero means
	// unknown.
	Signature uint64

	overlays []Overlay
}

// SetOverlays replaces the image overlays with a copy of overlays. They
// are drawn in source space before scaling, in order.
func (img *Image) SetOverlays(overlays []Overlay) { img.overlays = slices.Clone(overlays) }

// Overlays returns a copy of the image overlays.
func (img *Image) Overlays() []Overlay { return slices.Clone(img.overlays) }

// Width returns the width of the first plane.
func (img *Image) Width() int {
	if len(img.Planes) == 0 {
		return 0
	}
	return img.Planes[0].Width()
}

// Height returns the height of the first plane.
func (img *Image) Height() int {
	if len(img.Planes) == 0 {
		return 0
	}
	return img.Planes[0].Height()
}

func (img *Image) crop() Rect2DF {
	if img.SrcRect.Empty() {
		return Rect2DF{X1: float64(img.Width()), Y1: float64(img.Height())}
	}
	return img.SrcRect
}

func (img *Image) validate() error {
	if len(img.Planes) == 0 || len(img.Planes) > MaxPlanes {
		return fmt.Errorf("%w: image with %d planes", ErrInvalidParams, len(img.Planes))
	}
	for _, p := range img.Planes {
		if err := p.validate(); err != nil {
			return err
		}
	}
	return img.Color.Validate()
}

// RenderTarget is the destination of a render.
type RenderTarget struct {
	FBO *Texture
	// DstRect is the region to render into. An empty rect selects the
	// whole framebuffer.
	DstRect Rect2D
	Repr    ColorRepr
	Color   ColorSpace
	Profile IccProfile

	overlays []Overlay
}

// FromSwapchain points t at a swapchain framebuffer, covering all of it
// and taking the negotiated color description. A flipped frame is
// addressed bottom-up.
func (t *RenderTarget) FromSwapchain(frame SwapchainFrame) {
	t.FBO = frame.FBO
	t.Repr = frame.ColorRepr
	t.Color = frame.ColorSpace
	t.DstRect = Rect2D{X1: frame.FBO.Width(), Y1: frame.FBO.Height()}
	if frame.Flipped {
		t.DstRect.Y0, t.DstRect.Y1 = t.DstRect.Y1, t.DstRect.Y0
	}
}

// SetOverlays replaces the target overlays with a copy of overlays. They
// are drawn in destination space after scaling, in order.
func (t *RenderTarget) SetOverlays(overlays []Overlay) { t.overlays = slices.Clone(overlays) }

// Overlays returns a copy of the target overlays.
func (t *RenderTarget) Overlays() []Overlay { return slices.Clone(t.overlays) }

func (t *RenderTarget) crop() Rect2D {
	if t.DstRect.Empty() {
		return Rect2D{X1: t.FBO.Width(), Y1: t.FBO.Height()}
	}
	return t.DstRect
}

func (t *RenderTarget) validate() error {
	if t.FBO.IsNull() {
		return fmt.Errorf("%w: target without framebuffer", ErrInvalidParams)
	}
	if !t.FBO.params.Renderable {
		return fmt.Errorf("%w: target texture is not renderable", ErrInvalidParams)
	}
	return t.Color.Validate()
}

package placebo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderTargetFromSwapchain(t *testing.T) {
	env := newTestEnv(t, 0)
	fbo := MustNewTexture(env.gpu(), TextureParams{W: 6, H: 4, Format: FindFormat("bgra8"), Renderable: true})
	t.Cleanup(fbo.Destroy)

	var target RenderTarget
	target.FromSwapchain(SwapchainFrame{FBO: fbo, ColorRepr: ColorReprRGB, ColorSpace: ColorSpaceHDR10})
	assert.Equal(t, Rect2D{X1: 6, Y1: 4}, target.DstRect)
	assert.Equal(t, ColorSpaceHDR10, target.Color)

	target.FromSwapchain(SwapchainFrame{FBO: fbo, Flipped: true})
	assert.Equal(t, Rect2D{X1: 6, Y0: 4, Y1: 0}, target.DstRect)
	assert.Equal(t, -4, target.crop().H())
}

func TestImageValidate(t *testing.T) {
	env := newTestEnv(t, 0)
	tex := MustNewTexture(env.gpu(), TextureParams{W: 2, H: 2, Format: FindFormat("rg8"), Sampleable: true})
	t.Cleanup(tex.Destroy)
	hidden := MustNewTexture(env.gpu(), TextureParams{W: 2, H: 2, Format: FindFormat("r8")})
	t.Cleanup(hidden.Destroy)

	ok := Plane{Texture: tex, Components: 2, ComponentMapping: [4]int{0, 3, -1, -1}}
	assert.NoError(t, ok.validate())

	for name, p := range map[string]Plane{
		"no texture":     {Components: 1},
		"not sampleable": {Texture: hidden, Components: 1},
		"too many":       {Texture: tex, Components: 3},
		"bad mapping":    {Texture: tex, Components: 2, ComponentMapping: [4]int{0, 4}},
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, p.validate(), ErrInvalidParams)
		})
	}

	img := Image{Planes: []Plane{ok}}
	assert.NoError(t, img.validate())
	assert.Equal(t, Rect2DF{X1: 2, Y1: 2}, img.crop())
	img.SrcRect = Rect2DF{X0: 0.5, Y0: 0.5, X1: 1.5, Y1: 1.5}
	assert.Equal(t, img.SrcRect, img.crop())

	img.Planes = make([]Plane, MaxPlanes+1)
	assert.ErrorIs(t, img.validate(), ErrInvalidParams)

	overlays := []Overlay{{Mode: OverlayMonochrome}}
	img.SetOverlays(overlays)
	overlays[0].Mode = OverlayNormal
	assert.Equal(t, OverlayMonochrome, img.Overlays()[0].Mode, "overlays are copied")
}

package main

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/placebo"
)

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestDecodeFileExpandsPalette(t *testing.T) {
	pal := image.NewPaletted(image.Rect(0, 0, 2, 1), color.Palette{
		color.NRGBA{R: 255, A: 255},
		color.NRGBA{B: 255, A: 128},
	})
	pal.SetColorIndex(1, 0, 1)

	img, err := decodeFile(writePNG(t, pal))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 1), img.Rect)
	assert.Equal(t, []byte{255, 0, 0, 255, 0, 0, 255, 128}, img.Pix)
}

func TestDecodeFileErrors(t *testing.T) {
	_, err := decodeFile(filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "junk.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o600))
	_, err = decodeFile(path)
	assert.ErrorIs(t, err, image.ErrFormat)
}

func writeDisplayProfile(t *testing.T, dir string) string {
	t.Helper()
	display, err := placebo.NewDisplayIccProfile(placebo.ColorSpaceSRGB)
	require.NoError(t, err)
	path := filepath.Join(dir, "display.icc")
	require.NoError(t, os.WriteFile(path, display.Data, 0o600))
	return path
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	path := writeDisplayProfile(t, dir)

	p, err := loadProfile(path)
	require.NoError(t, err)
	assert.True(t, p.IsSet())
	assert.NotZero(t, p.Signature)

	again, err := loadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, p.Signature, again.Signature)

	bad := filepath.Join(dir, "bad.icc")
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0o600))
	_, err = loadProfile(bad)
	assert.Error(t, err)
}

func TestWindowSurfacePresentSwizzles(t *testing.T) {
	s := &windowSurface{}
	w, h, err := s.Configure(placebo.SurfaceConfig{Width: 2, Height: 1})
	require.NoError(t, err)
	assert.Equal(t, [2]int{2, 1}, [2]int{w, h})

	bgra := placebo.FindFormat("bgra8")
	require.NotNil(t, bgra)
	err = s.Present(placebo.SurfaceImage{
		Width: 2, Height: 1, Stride: 12, Format: bgra,
		Pix: []byte{1, 2, 3, 4, 5, 6, 7, 8, 0, 0, 0, 0},
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 2, 1, 4, 7, 6, 5, 8}, s.pix)
	assert.True(t, s.dirty)

	err = s.Present(placebo.SurfaceImage{Width: 3, Height: 1, Stride: 12, Format: bgra, Pix: make([]byte, 12)})
	assert.Error(t, err)
}

func TestRunHeadless(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := range src.Pix {
		src.Pix[i] = 200
	}
	osd := image.NewNRGBA(image.Rect(0, 0, 2, 2))

	profile := writeDisplayProfile(t, t.TempDir())

	err := run(config{
		image:      writePNG(t, src),
		overlay:    writePNG(t, osd),
		iccProfile: profile,
		headless:   true,
		frames:     2,
		logLevel:   placebo.LogNone,
	})
	assert.NoError(t, err)
}

func TestRunMissingImage(t *testing.T) {
	err := run(config{
		image:    filepath.Join(t.TempDir(), "missing.png"),
		headless: true,
		frames:   1,
		logLevel: placebo.LogNone,
	})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

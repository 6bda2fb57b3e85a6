package main

import (
	"fmt"
	"hash/fnv"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gogpu/placebo"
)

// nrgbaMasks are the channel masks of image.NRGBA pixels read as
// little-endian words.
var nrgbaMasks = [4]uint64{0xFF, 0xFF00, 0xFF0000, 0xFF000000}

// decodeFile decodes any registered image format into straight-alpha RGBA.
// Paletted and low bit depth images are expanded on the way.
func decodeFile(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if img, ok := src.(*image.NRGBA); ok && img.Rect.Min == (image.Point{}) {
		return img, nil
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst, nil
}

// uploadFile decodes path and uploads it as a single RGBA plane.
func uploadFile(gpu *placebo.GPU, path string, plane *placebo.Plane, tex *placebo.Texture) error {
	img, err := decodeFile(path)
	if err != nil {
		return err
	}
	data := placebo.PlaneData{
		Type:      placebo.FmtUnorm,
		Width:     img.Rect.Dx(),
		Height:    img.Rect.Dy(),
		RowStride: img.Stride,
		Pixels:    img.Pix,
	}
	if err := data.FromMask(nrgbaMasks); err != nil {
		return err
	}
	return placebo.UploadPlane(gpu, plane, tex, &data)
}

// loadProfile reads an ICC profile. The signature is a hash of the
// contents so that identical files share cached LUTs.
func loadProfile(path string) (placebo.IccProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return placebo.IccProfile{}, err
	}
	h := fnv.New64a()
	h.Write(data)
	profile := placebo.NewIccProfile(h.Sum64(), data)
	if _, err := profile.Decode(); err != nil {
		return placebo.IccProfile{}, fmt.Errorf("icc profile %s: %w", path, err)
	}
	return profile, nil
}

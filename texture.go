package placebo

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/placebo/internal/native"
	"github.com/gogpu/placebo/internal/raster"
)

// SampleMode is the filter used when a texture is sampled.
type SampleMode uint8

const (
	SampleNearest SampleMode = iota
	SampleLinear
)

var sampleModes = seqTable("SampleMode", []SampleMode{SampleNearest, SampleLinear}, "nearest", "linear")

func (m SampleMode) String() string   { return sampleModes.name(m) }
func (m SampleMode) NativeTag() int32 { return sampleModes.tag(m) }

// AddressMode is the behavior of sampling outside the texture.
type AddressMode uint8

const (
	AddressClamp AddressMode = iota
	AddressRepeat
	AddressMirror
)

var addressModes = seqTable("AddressMode", []AddressMode{AddressClamp, AddressRepeat, AddressMirror}, "clamp", "repeat", "mirror")

func (m AddressMode) String() string   { return addressModes.name(m) }
func (m AddressMode) NativeTag() int32 { return addressModes.tag(m) }

// ErrSharingUnsupported is returned for textures requesting a share handle.
var ErrSharingUnsupported = errors.New("placebo: texture sharing not supported by backend")

// TextureParams describes a texture. Depth zero or one creates a 2D
// texture.
type TextureParams struct {
	W, H, D int
	Format  *Format

	Sampleable   bool
	Renderable   bool
	Storable     bool
	BlitSrc      bool
	BlitDst      bool
	HostWritable bool
	HostReadable bool

	SampleMode  SampleMode
	AddressMode AddressMode

	// ShareHandle imports a texture from another process. Zero means none.
	ShareHandle uint64
	// InitialData holds tightly packed texels to upload on creation.
	InitialData []byte
}

func (p TextureParams) depth() int { return max(p.D, 1) }

func (p TextureParams) size() int { return p.W * p.H * p.depth() * p.Format.TexelSize }

// compatible reports whether a texture created with p can be reused for q.
func (p TextureParams) compatible(q TextureParams) bool {
	return p.W == q.W && p.H == q.H && p.depth() == q.depth() && p.Format == q.Format &&
		p.Sampleable == q.Sampleable && p.Renderable == q.Renderable && p.Storable == q.Storable &&
		p.BlitSrc == q.BlitSrc && p.BlitDst == q.BlitDst &&
		p.HostWritable == q.HostWritable && p.HostReadable == q.HostReadable &&
		p.SampleMode == q.SampleMode && p.AddressMode == q.AddressMode &&
		p.ShareHandle == q.ShareHandle
}

func (p TextureParams) usage() gputypes.TextureUsage {
	u := gputypes.TextureUsageCopyDst
	if p.Sampleable {
		u |= gputypes.TextureUsageTextureBinding
	}
	if p.Renderable {
		u |= gputypes.TextureUsageRenderAttachment
	}
	if p.Storable {
		u |= gputypes.TextureUsageStorageBinding
	}
	if p.BlitSrc || p.HostReadable {
		u |= gputypes.TextureUsageCopySrc
	}
	return u
}

func (p TextureParams) validate(gpu *GPU) error {
	if err := p.Format.validate(); err != nil {
		return err
	}
	limit := gpu.MaxTextureSize()
	if p.W <= 0 || p.H <= 0 || p.D < 0 || p.W > limit || p.H > limit || p.depth() > limit {
		return fmt.Errorf("%w: texture %dx%dx%d, limit %d", ErrInvalidParams, p.W, p.H, p.D, limit)
	}
	if p.Renderable && !p.Format.Renderable {
		return fmt.Errorf("%w: format %s is not renderable", ErrUnsupportedFormat, p.Format.Name)
	}
	if p.ShareHandle != 0 {
		return ErrSharingUnsupported
	}
	if p.InitialData != nil && len(p.InitialData) != p.size() {
		return fmt.Errorf("%w: initial data %d bytes, want %d", ErrInvalidParams, len(p.InitialData), p.size())
	}
	return nil
}

// Texture is an image in device memory. A host copy of the texels is kept
// for readback and for the CPU stages of the renderer.
type Texture struct {
	gpu    *GPU
	id     native.TextureID
	params TextureParams
	data   []byte
}

// NewTexture creates a texture.
func NewTexture(gpu *GPU, params TextureParams) (*Texture, error) {
	t := &Texture{}
	if err := t.create(gpu, params); err != nil {
		return nil, stageError(StageTexture, err)
	}
	return t, nil
}

// MustNewTexture is like NewTexture but panics on error.
func MustNewTexture(gpu *GPU, params TextureParams) *Texture {
	return must(NewTexture(gpu, params))
}

func (t *Texture) create(gpu *GPU, params TextureParams) error {
	if err := gpu.check(); err != nil {
		return err
	}
	if err := params.validate(gpu); err != nil {
		return err
	}
	if err := gpu.acquire(); err != nil {
		return err
	}
	id, err := gpu.dev.native.CreateTexture(native.TextureDesc{
		Label:  "placebo " + params.Format.Name,
		Width:  uint32(params.W),
		Height: uint32(params.H),
		Depth:  uint32(params.depth()),
		Format: params.Format.Container(),
		Usage:  params.usage(),
	})
	if err != nil {
		gpu.release()
		return nativeError(err)
	}

	t.gpu, t.id = gpu, id
	t.data = make([]byte, params.size())
	initial := params.InitialData
	params.InitialData = nil
	t.params = params
	if initial != nil {
		copy(t.data, initial)
		if err := t.sync(); err != nil {
			t.Destroy()
			return err
		}
	}
	gpu.log().Debug("placebo: texture created", "format", params.Format.Name,
		"w", params.W, "h", params.H, "d", params.depth())
	return nil
}

// IsNull reports whether t holds no texture, either because it was never
// created or because it was destroyed.
func (t *Texture) IsNull() bool { return t == nil || t.id == 0 }

// Params returns the creation parameters without the initial data.
func (t *Texture) Params() TextureParams { return t.params }

// Width returns the texture width.
func (t *Texture) Width() int { return t.params.W }

// Height returns the texture height.
func (t *Texture) Height() int { return t.params.H }

// Format returns the texel format.
func (t *Texture) Format() *Format { return t.params.Format }

// Destroy releases the texture. Destroying a null texture is a no-op.
func (t *Texture) Destroy() {
	if t.IsNull() {
		return
	}
	if err := t.gpu.dev.native.DestroyTexture(t.id); err != nil {
		t.gpu.log().Warn("placebo: texture release failed", "error", err)
	}
	t.gpu.release()
	t.id = 0
	t.data = nil
}

// Recreate makes t a texture matching params, reusing the existing one
// when it is compatible. A null t is created from scratch.
func (t *Texture) Recreate(gpu *GPU, params TextureParams) error {
	if !t.IsNull() && t.gpu == gpu && t.params.compatible(params) {
		if params.InitialData != nil {
			if len(params.InitialData) != len(t.data) {
				return fmt.Errorf("%w: initial data %d bytes, want %d", ErrInvalidParams, len(params.InitialData), len(t.data))
			}
			copy(t.data, params.InitialData)
			return t.sync()
		}
		return nil
	}
	t.Destroy()
	if err := t.create(gpu, params); err != nil {
		return stageError(StageTexture, err)
	}
	return nil
}

func (t *Texture) usable() error {
	if t.IsNull() {
		return ErrStaleHandle
	}
	return t.gpu.check()
}

// Clear fills the texture with a color given in logical RGBA.
func (t *Texture) Clear(color [4]float32) error {
	if err := t.usable(); err != nil {
		return err
	}
	ts := t.params.Format.TexelSize
	t.params.Format.write(t.data[:ts], color)
	for off := ts; off < len(t.data); off *= 2 {
		copy(t.data[off:], t.data[:off])
	}
	return t.sync()
}

// Upload replaces the texture contents. rowStride is the byte distance
// between rows of data; zero means tightly packed.
func (t *Texture) Upload(data []byte, rowStride int) error {
	if err := t.usable(); err != nil {
		return err
	}
	row := t.params.W * t.params.Format.TexelSize
	if rowStride == 0 {
		rowStride = row
	}
	rows := t.params.H * t.params.depth()
	if rowStride < row || len(data) < rowStride*(rows-1)+row {
		return fmt.Errorf("%w: %d bytes with stride %d for %d rows of %d bytes",
			ErrInvalidParams, len(data), rowStride, rows, row)
	}
	for y := range rows {
		copy(t.data[y*row:(y+1)*row], data[y*rowStride:])
	}
	return t.sync()
}

// Download copies the texture contents, tightly packed, into dst.
func (t *Texture) Download(dst []byte) error {
	if err := t.usable(); err != nil {
		return err
	}
	if !t.params.HostReadable {
		return fmt.Errorf("%w: texture is not host readable", ErrInvalidParams)
	}
	if len(dst) < len(t.data) {
		return fmt.Errorf("%w: destination %d bytes, want %d", ErrInvalidParams, len(dst), len(t.data))
	}
	copy(dst, t.data)
	return nil
}

// sync writes the host copy to the device.
func (t *Texture) sync() error {
	texels := t.params.W * t.params.H * t.params.depth()
	data := t.params.Format.toContainer(t.data, texels)
	bpr := uint32(t.params.W * t.params.Format.containerSize())
	return nativeError(t.gpu.dev.native.WriteTexture(t.id, data, bpr))
}

// frame decodes the first layer into a float frame.
func (t *Texture) frame() *raster.Frame {
	f := &raster.Frame{W: t.params.W, H: t.params.H, Pix: make([]float32, t.params.W*t.params.H*4)}
	ts := t.params.Format.TexelSize
	for i := range t.params.W * t.params.H {
		px := t.params.Format.read(t.data[i*ts:])
		copy(f.Pix[i*4:i*4+4], px[:])
	}
	return f
}

// encode stores f into the first layer of the host copy. The device copy
// is left to the caller.
func (t *Texture) encode(f *raster.Frame) {
	ts := t.params.Format.TexelSize
	for i := range t.params.W * t.params.H {
		t.params.Format.write(t.data[i*ts:], [4]float32(f.Pix[i*4:i*4+4]))
	}
}

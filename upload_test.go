package placebo

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaneDataFromMask(t *testing.T) {
	tests := []struct {
		name   string
		mask   [4]uint64
		size   [4]int
		pad    [4]int
		cmap   [4]int
		stride int
	}{
		{
			name: "rgba8", mask: [4]uint64{0xFF, 0xFF00, 0xFF0000, 0xFF000000},
			size: [4]int{8, 8, 8, 8}, cmap: [4]int{0, 1, 2, 3}, stride: 4,
		},
		{
			name: "bgra8", mask: [4]uint64{0xFF0000, 0xFF00, 0xFF, 0xFF000000},
			size: [4]int{8, 8, 8, 8}, cmap: [4]int{2, 1, 0, 3}, stride: 4,
		},
		{
			name: "rgb565", mask: [4]uint64{0xF800, 0x07E0, 0x001F, 0},
			size: [4]int{5, 6, 5, 0}, cmap: [4]int{2, 1, 0, 0}, stride: 2,
		},
		{
			name: "xrgb8", mask: [4]uint64{0xFF00, 0xFF0000, 0xFF000000, 0},
			size: [4]int{8, 8, 8, 0}, pad: [4]int{8, 0, 0, 0}, cmap: [4]int{0, 1, 2, 0}, stride: 4,
		},
		{
			name: "r16", mask: [4]uint64{0xFFFF, 0, 0, 0},
			size: [4]int{16, 0, 0, 0}, stride: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d PlaneData
			require.NoError(t, d.FromMask(tt.mask))
			assert.Equal(t, tt.size, d.ComponentSize)
			assert.Equal(t, tt.pad, d.ComponentPad)
			assert.Equal(t, tt.cmap, d.ComponentMap)
			assert.Equal(t, tt.stride, d.PixelStride)

			if diff := cmp.Diff(tt.mask, d.Masks()); diff != "" {
				t.Errorf("Masks() mismatch (-want +got):\n%s", diff)
			}
			again := d
			require.NoError(t, again.FromMask(d.Masks()))
			assert.Equal(t, d, again)
		})
	}
}

func TestPlaneDataFromMaskKeepsStride(t *testing.T) {
	d := PlaneData{PixelStride: 8}
	require.NoError(t, d.FromMask([4]uint64{0xFF, 0, 0, 0}))
	assert.Equal(t, 8, d.PixelStride)
}

func TestPlaneDataFromMaskInvalid(t *testing.T) {
	for name, mask := range map[string][4]uint64{
		"zero":           {},
		"non-contiguous": {0x0F0F, 0, 0, 0},
		"overlapping":    {0xFF, 0xFF0, 0, 0},
	} {
		t.Run(name, func(t *testing.T) {
			var d PlaneData
			assert.ErrorIs(t, d.FromMask(mask), ErrInvalidMask)
		})
	}
}

func rgbaPixels(px ...[4]byte) []byte {
	out := make([]byte, 0, 4*len(px))
	for _, p := range px {
		out = append(out, p[:]...)
	}
	return out
}

func TestUploadPlane(t *testing.T) {
	env := newTestEnv(t, 0)
	tex := &Texture{}
	t.Cleanup(tex.Destroy)

	data := PlaneData{
		Type: FmtUnorm, Width: 2, Height: 2,
		Pixels: rgbaPixels([4]byte{255, 0, 0, 255}, [4]byte{0, 255, 0, 255},
			[4]byte{0, 0, 255, 255}, [4]byte{0, 0, 0, 0}),
	}
	require.NoError(t, data.FromMask([4]uint64{0xFF, 0xFF00, 0xFF0000, 0xFF000000}))

	var plane Plane
	require.NoError(t, UploadPlane(env.gpu(), &plane, tex, &data))
	assert.Same(t, tex, plane.Texture)
	assert.Equal(t, 4, plane.Components)
	assert.Equal(t, [4]int{0, 1, 2, 3}, plane.ComponentMapping)
	assert.Equal(t, "rgba8", tex.Format().Name)
	assert.True(t, tex.Params().Sampleable)

	f := tex.frame()
	assert.Equal(t, [4]float32{1, 0, 0, 1}, f.At(0, 0))
	assert.Equal(t, [4]float32{0, 0, 1, 1}, f.At(0, 1))

	// Re-uploading the same shape reuses the texture.
	id := tex.id
	require.NoError(t, UploadPlane(env.gpu(), &plane, tex, &data))
	assert.Equal(t, id, tex.id)
}

func TestUploadPlaneRGB565(t *testing.T) {
	env := newTestEnv(t, 0)
	tex := &Texture{}
	t.Cleanup(tex.Destroy)

	data := PlaneData{Type: FmtUnorm, Width: 1, Height: 1, Pixels: []byte{0x00, 0xF8}}
	require.NoError(t, data.FromMask([4]uint64{0xF800, 0x07E0, 0x001F, 0}))

	var plane Plane
	require.NoError(t, UploadPlane(env.gpu(), &plane, tex, &data))
	assert.Equal(t, 3, plane.Components)
	assert.Equal(t, [4]int{2, 1, 0, -1}, plane.ComponentMapping)
	// Components are stored in memory order: blue, green, red.
	px := tex.frame().At(0, 0)
	assert.Equal(t, float32(0), px[0])
	assert.Equal(t, float32(0), px[1])
	assert.Equal(t, float32(1), px[2])
}

func TestUploadPlaneFloat(t *testing.T) {
	env := newTestEnv(t, 0)
	tex := &Texture{}
	t.Cleanup(tex.Destroy)

	pix := make([]byte, 4)
	binary.LittleEndian.PutUint32(pix, math.Float32bits(0.25))
	data := PlaneData{
		Type: FmtFloat, Width: 1, Height: 1, PixelStride: 4,
		ComponentSize: [4]int{32}, Pixels: pix,
	}
	var plane Plane
	require.NoError(t, UploadPlane(env.gpu(), &plane, tex, &data))
	assert.Equal(t, "r32f", tex.Format().Name)
	assert.Equal(t, float32(0.25), tex.frame().At(0, 0)[0])
}

func TestUploadPlaneFromBuffer(t *testing.T) {
	env := newTestEnv(t, 0)
	src := rgbaPixels([4]byte{10, 20, 30, 40}, [4]byte{50, 60, 70, 80})
	buf, err := NewBuffer(env.gpu(), BufferParams{
		Type: BufTransfer, Size: 16, HostReadable: true, InitialData: append([]byte{0, 0, 0, 0}, src...),
	})
	require.NoError(t, err)
	t.Cleanup(buf.Destroy)
	tex := &Texture{}
	t.Cleanup(tex.Destroy)

	data := PlaneData{Type: FmtUnorm, Width: 2, Height: 1, Buf: buf, BufOffset: 4}
	require.NoError(t, data.FromMask([4]uint64{0xFF, 0xFF00, 0xFF0000, 0xFF000000}))
	var plane Plane
	require.NoError(t, UploadPlane(env.gpu(), &plane, tex, &data))
	assert.InDelta(t, 50.0/255, tex.frame().At(1, 0)[0], 1e-6)
}

func TestUploadPlaneErrors(t *testing.T) {
	env := newTestEnv(t, 0)
	tex := &Texture{}
	t.Cleanup(tex.Destroy)
	var plane Plane

	tests := []struct {
		name string
		data PlaneData
		want error
	}{
		{
			name: "float rgb",
			data: PlaneData{Type: FmtFloat, Width: 1, Height: 1, PixelStride: 12,
				ComponentSize: [4]int{32, 32, 32}, ComponentMap: [4]int{0, 1, 2}, Pixels: make([]byte, 12)},
			want: ErrUnsupportedFormat,
		},
		{
			name: "24 bit unorm",
			data: PlaneData{Type: FmtUnorm, Width: 1, Height: 1, PixelStride: 3,
				ComponentSize: [4]int{24}, Pixels: make([]byte, 3)},
			want: ErrUnsupportedFormat,
		},
		{
			name: "half float",
			data: PlaneData{Type: FmtFloat, Width: 1, Height: 1, PixelStride: 2,
				ComponentSize: [4]int{16}, Pixels: make([]byte, 2)},
			want: ErrUnsupportedFormat,
		},
		{
			name: "short pixels",
			data: PlaneData{Type: FmtUnorm, Width: 4, Height: 4, PixelStride: 1,
				ComponentSize: [4]int{8}, Pixels: make([]byte, 3)},
			want: ErrInvalidParams,
		},
		{
			name: "components exceed stride",
			data: PlaneData{Type: FmtUnorm, Width: 1, Height: 1, PixelStride: 1,
				ComponentSize: [4]int{8, 8}, ComponentMap: [4]int{0, 1}, Pixels: make([]byte, 2)},
			want: ErrInvalidParams,
		},
		{
			name: "empty",
			data: PlaneData{Type: FmtUnorm, PixelStride: 1, ComponentSize: [4]int{8}},
			want: ErrInvalidParams,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := UploadPlane(env.gpu(), &plane, tex, &tt.data)
			assert.ErrorIs(t, err, ErrUpload)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Nil(t, plane.Texture, "failed uploads must not touch the plane")
}

package placebo

import (
	"cmp"
	"fmt"
	"math"
	"math/bits"
	"slices"
)

// PlaneData describes host pixels to upload as one plane. Components are
// listed in memory order, starting at the least significant bit of each
// little-endian pixel: component i occupies ComponentSize[i] bits after
// ComponentPad[i] bits of padding and carries logical channel
// ComponentMap[i]. A zero size ends the list.
type PlaneData struct {
	Type          FmtType
	Width, Height int
	ComponentSize [4]int
	ComponentPad  [4]int
	ComponentMap  [4]int
	// PixelStride is the byte distance between pixels.
	PixelStride int
	// RowStride is the byte distance between rows. Zero means
	// Width*PixelStride.
	RowStride int

	// Pixels holds the pixel data. When Buf is set the data is read from
	// the buffer at BufOffset instead.
	Pixels    []byte
	Buf       *Buffer
	BufOffset int
}

// FromMask derives the component layout from per-channel bit masks in
// R, G, B, A order. A zero mask marks an absent channel. PixelStride is
// set from the highest used bit when it is zero.
func (d *PlaneData) FromMask(mask [4]uint64) error {
	type comp struct {
		index, size, shift int
	}
	comps := make([]comp, 4)
	for i, m := range mask {
		size := bits.OnesCount64(m)
		shift := 0
		if m != 0 {
			shift = bits.TrailingZeros64(m)
		}
		if size > 0 && (m>>shift)&(m>>shift+1) != 0 {
			return fmt.Errorf("%w: mask %#x for channel %d is not contiguous", ErrInvalidMask, m, i)
		}
		comps[i] = comp{index: i, size: size, shift: shift}
	}
	if comps[0].size+comps[1].size+comps[2].size+comps[3].size == 0 {
		return fmt.Errorf("%w: all masks are zero", ErrInvalidMask)
	}
	slices.SortStableFunc(comps, func(a, b comp) int {
		switch {
		case a.size > 0 && b.size == 0:
			return -1
		case a.size == 0 && b.size > 0:
			return 1
		}
		return cmp.Compare(a.shift, b.shift)
	})

	var size, pad, cmap [4]int
	offset := 0
	for i, c := range comps {
		if c.size == 0 {
			continue
		}
		if c.shift < offset {
			return fmt.Errorf("%w: masks %#x overlap", ErrInvalidMask, mask)
		}
		size[i] = c.size
		pad[i] = c.shift - offset
		cmap[i] = c.index
		offset = c.shift + c.size
	}
	d.ComponentSize, d.ComponentPad, d.ComponentMap = size, pad, cmap
	if d.PixelStride == 0 {
		d.PixelStride = (offset + 7) / 8
	}
	return nil
}

// Masks returns the per-channel bit masks in R, G, B, A order described by
// the component layout. It is the inverse of FromMask.
func (d *PlaneData) Masks() [4]uint64 {
	var mask [4]uint64
	offset := 0
	for i, size := range d.ComponentSize {
		if size == 0 {
			break
		}
		offset += d.ComponentPad[i]
		mask[d.ComponentMap[i]] |= (uint64(1)<<size - 1) << offset
		offset += size
	}
	return mask
}

func (d *PlaneData) components() int {
	n := 0
	for n < 4 && d.ComponentSize[n] > 0 {
		n++
	}
	return n
}

func (d *PlaneData) rowStride() int {
	if d.RowStride == 0 {
		return d.Width * d.PixelStride
	}
	return d.RowStride
}

// format picks the texture format the plane is converted to.
func (d *PlaneData) format() (*Format, error) {
	n := d.components()
	if n == 0 {
		return nil, fmt.Errorf("%w: plane without components", ErrUnsupportedFormat)
	}
	depth, used := 0, 0
	for i := range n {
		depth = max(depth, d.ComponentSize[i])
		used += d.ComponentPad[i] + d.ComponentSize[i]
		if c := d.ComponentMap[i]; c < 0 || c > 3 {
			return nil, fmt.Errorf("%w: component map %v", ErrInvalidParams, d.ComponentMap)
		}
		if d.Type == FmtFloat && d.ComponentSize[i] != 32 {
			return nil, fmt.Errorf("%w: %d-bit float component", ErrUnsupportedFormat, d.ComponentSize[i])
		}
	}
	if used > d.PixelStride*8 {
		return nil, fmt.Errorf("%w: %d bits of components in %d byte pixels", ErrInvalidParams, used, d.PixelStride)
	}
	var f *Format
	switch {
	case d.Type == FmtUnorm && depth <= 8:
		f = FindFormatFor(FmtUnorm, n, 8)
	case d.Type == FmtUnorm && depth <= 16:
		f = FindFormatFor(FmtUnorm, n, 16)
	case d.Type == FmtFloat:
		f = FindFormatFor(FmtFloat, n, 32)
	}
	if f == nil {
		return nil, fmt.Errorf("%w: %s plane with %d components of %d bits", ErrUnsupportedFormat, d.Type, n, depth)
	}
	return f, nil
}

// source returns the pixel bytes, reading them from Buf when set.
func (d *PlaneData) source() ([]byte, error) {
	need := d.rowStride()*(d.Height-1) + d.Width*d.PixelStride
	if d.Buf != nil {
		src := make([]byte, need)
		if err := d.Buf.Read(d.BufOffset, src); err != nil {
			return nil, err
		}
		return src, nil
	}
	if len(d.Pixels) < need {
		return nil, fmt.Errorf("%w: %d bytes of pixels, want %d", ErrInvalidParams, len(d.Pixels), need)
	}
	return d.Pixels, nil
}

// extract reads n bits starting at bit off of a little-endian pixel.
func extract(px []byte, off, n int) uint64 {
	var v uint64
	for b := 0; b < n; {
		byteIdx, bit := (off+b)/8, (off+b)%8
		take := min(8-bit, n-b)
		v |= uint64(px[byteIdx]>>bit&(1<<take-1)) << b
		b += take
	}
	return v
}

// UploadPlane converts data into a texture and points plane at it. tex is
// recreated as needed, so it may be reused across frames. Failures are
// wrapped with ErrUpload; the texture is left in an unspecified state.
func UploadPlane(gpu *GPU, plane *Plane, tex *Texture, data *PlaneData) error {
	if err := uploadPlane(gpu, plane, tex, data); err != nil {
		return fmt.Errorf("%w: %w", ErrUpload, err)
	}
	return nil
}

func uploadPlane(gpu *GPU, plane *Plane, tex *Texture, data *PlaneData) error {
	if plane == nil || tex == nil || data == nil {
		return fmt.Errorf("%w: nil plane, texture or data", ErrInvalidParams)
	}
	if data.Width <= 0 || data.Height <= 0 || data.PixelStride <= 0 || data.rowStride() < data.Width*data.PixelStride {
		return fmt.Errorf("%w: plane %dx%d, pixel stride %d, row stride %d",
			ErrInvalidParams, data.Width, data.Height, data.PixelStride, data.RowStride)
	}
	f, err := data.format()
	if err != nil {
		return err
	}
	src, err := data.source()
	if err != nil {
		return err
	}

	n := data.components()
	var offsets [4]int
	off := 0
	for i := range n {
		off += data.ComponentPad[i]
		offsets[i] = off
		off += data.ComponentSize[i]
	}

	texels := make([]byte, data.Width*data.Height*f.TexelSize)
	stride := data.rowStride()
	for y := range data.Height {
		row := src[y*stride:]
		for x := range data.Width {
			px := row[x*data.PixelStride : (x+1)*data.PixelStride]
			var v [4]float32
			for i := range n {
				raw := extract(px, offsets[i], data.ComponentSize[i])
				if data.Type == FmtFloat {
					v[i] = math.Float32frombits(uint32(raw))
				} else {
					v[i] = float32(float64(raw) / float64(uint64(1)<<data.ComponentSize[i]-1))
				}
			}
			f.write(texels[(y*data.Width+x)*f.TexelSize:], v)
		}
	}

	err = tex.Recreate(gpu, TextureParams{
		W: data.Width, H: data.Height, Format: f,
		Sampleable:   true,
		HostWritable: true,
		BlitSrc:      true,
		SampleMode:   SampleLinear,
		InitialData:  texels,
	})
	if err != nil {
		return err
	}

	mapping := [4]int{-1, -1, -1, -1}
	copy(mapping[:n], data.ComponentMap[:n])
	*plane = Plane{Texture: tex, Components: n, ComponentMapping: mapping}
	return nil
}

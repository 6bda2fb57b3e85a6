package placebo

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/placebo/internal/native"
)

// BufferType is the intended use of a buffer.
type BufferType uint8

const (
	BufTransfer BufferType = iota
	BufUniform
	BufStorage
	BufTexelUniform
	BufTexelStorage
	BufPrivate
)

var bufferTypes = seqTable("BufferType",
	[]BufferType{BufTransfer, BufUniform, BufStorage, BufTexelUniform, BufTexelStorage, BufPrivate},
	"transfer", "uniform", "storage", "texel-uniform", "texel-storage", "private")

func (t BufferType) String() string   { return bufferTypes.name(t) }
func (t BufferType) NativeTag() int32 { return bufferTypes.tag(t) }

// MemoryType is the preferred memory location of a buffer.
type MemoryType uint8

const (
	MemAuto MemoryType = iota
	MemHost
	MemDevice
)

var memoryTypes = seqTable("MemoryType", []MemoryType{MemAuto, MemHost, MemDevice}, "auto", "host", "device")

func (m MemoryType) String() string   { return memoryTypes.name(m) }
func (m MemoryType) NativeTag() int32 { return memoryTypes.tag(m) }

// BufferParams describes a buffer.
type BufferParams struct {
	Type   BufferType
	Memory MemoryType
	Size   int

	HostWritable bool
	HostReadable bool

	// InitialData is written on creation. It may be shorter than Size.
	InitialData []byte
}

func (p BufferParams) usage() gputypes.BufferUsage {
	u := gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc
	switch p.Type {
	case BufUniform, BufTexelUniform:
		u |= gputypes.BufferUsageUniform
	case BufStorage, BufTexelStorage:
		u |= gputypes.BufferUsageStorage
	}
	return u
}

// Buffer is linear device memory. A host copy backs Read.
type Buffer struct {
	gpu    *GPU
	id     native.BufferID
	params BufferParams
	data   []byte
}

// NewBuffer creates a buffer.
func NewBuffer(gpu *GPU, params BufferParams) (*Buffer, error) {
	if err := gpu.check(); err != nil {
		return nil, stageError(StageBuffer, err)
	}
	if _, ok := bufferTypes.byValue[params.Type]; !ok || params.Size <= 0 || len(params.InitialData) > params.Size {
		return nil, stageError(StageBuffer, fmt.Errorf("%w: buffer type %d, size %d, initial data %d bytes",
			ErrInvalidParams, params.Type, params.Size, len(params.InitialData)))
	}
	if err := gpu.acquire(); err != nil {
		return nil, stageError(StageBuffer, err)
	}
	id, err := gpu.dev.native.CreateBuffer(native.BufferDesc{
		Label: "placebo " + params.Type.String(),
		Size:  uint64(params.Size),
		Usage: params.usage(),
	})
	if err != nil {
		gpu.release()
		return nil, stageError(StageBuffer, nativeError(err))
	}

	b := &Buffer{gpu: gpu, id: id, data: make([]byte, params.Size)}
	initial := params.InitialData
	params.InitialData = nil
	b.params = params
	if len(initial) > 0 {
		if err := b.Write(0, initial); err != nil {
			b.Destroy()
			return nil, stageError(StageBuffer, err)
		}
	}
	return b, nil
}

// MustNewBuffer is like NewBuffer but panics on error.
func MustNewBuffer(gpu *GPU, params BufferParams) *Buffer {
	return must(NewBuffer(gpu, params))
}

// IsNull reports whether b holds no buffer.
func (b *Buffer) IsNull() bool { return b == nil || b.id == 0 }

// Params returns the creation parameters without the initial data.
func (b *Buffer) Params() BufferParams { return b.params }

// Size returns the buffer size in bytes.
func (b *Buffer) Size() int { return b.params.Size }

// Destroy releases the buffer. Destroying a null buffer is a no-op.
func (b *Buffer) Destroy() {
	if b.IsNull() {
		return
	}
	if err := b.gpu.dev.native.DestroyBuffer(b.id); err != nil {
		b.gpu.log().Warn("placebo: buffer release failed", "error", err)
	}
	b.gpu.release()
	b.id = 0
	b.data = nil
}

func (b *Buffer) rangeCheck(offset, n int) error {
	if b.IsNull() {
		return ErrStaleHandle
	}
	if err := b.gpu.check(); err != nil {
		return err
	}
	if offset < 0 || offset+n > len(b.data) {
		return fmt.Errorf("%w: range [%d, %d) of %d byte buffer", ErrInvalidParams, offset, offset+n, len(b.data))
	}
	return nil
}

// Write copies data into the buffer at offset.
func (b *Buffer) Write(offset int, data []byte) error {
	if err := b.rangeCheck(offset, len(data)); err != nil {
		return err
	}
	if err := b.gpu.dev.native.WriteBuffer(b.id, uint64(offset), data); err != nil {
		return nativeError(err)
	}
	copy(b.data[offset:], data)
	return nil
}

// Read copies len(dst) bytes starting at offset into dst. The buffer must
// be host readable.
func (b *Buffer) Read(offset int, dst []byte) error {
	if err := b.rangeCheck(offset, len(dst)); err != nil {
		return err
	}
	if !b.params.HostReadable {
		return fmt.Errorf("%w: buffer is not host readable", ErrInvalidParams)
	}
	copy(dst, b.data[offset:])
	return nil
}

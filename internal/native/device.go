package native

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// Errors reported by device operations.
var (
	ErrStale        = errors.New("native: stale or unknown handle")
	ErrDeviceClosed = errors.New("native: device destroyed")
	ErrInvalidSize  = errors.New("native: invalid size")
	ErrTimeout      = errors.New("native: timed out waiting for the GPU")
)

// waitTimeout bounds how long a submission may take to complete.
const waitTimeout = 5 * time.Second

// epochs issues a distinct epoch to every device.
var epochs atomic.Uint32

// ID is an arena handle: the issuing device epoch in the high 32 bits and a
// sequence number in the low 32 bits. The zero ID is never issued.
type ID uint64

// Epoch returns the epoch encoded in id.
func (id ID) Epoch() uint32 { return uint32(id >> 32) }

// Typed handles.
type (
	TextureID  ID
	BufferID   ID
	ShaderID   ID
	PipelineID ID
)

// TextureDesc describes a texture to create.
type TextureDesc struct {
	Label  string
	Width  uint32
	Height uint32
	Depth  uint32
	Format gputypes.TextureFormat
	Usage  gputypes.TextureUsage
}

// BufferDesc describes a buffer to create.
type BufferDesc struct {
	Label string
	Size  uint64
	Usage gputypes.BufferUsage
}

type textureEntry struct {
	tex  hal.Texture
	desc TextureDesc
}

type bufferEntry struct {
	buf  hal.Buffer
	desc BufferDesc
}

// Counts reports the live objects of a device.
type Counts struct {
	Textures  int
	Buffers   int
	Shaders   int
	Pipelines int
}

// Total returns the number of live objects.
func (c Counts) Total() int { return c.Textures + c.Buffers + c.Shaders + c.Pipelines }

// Device is an opened HAL device together with the arena of objects created
// on it.
//
// Thread Safety: Device is safe for concurrent use. Arena maps are guarded by
// mu; HAL destruction happens outside the lock.
type Device struct {
	mu     sync.RWMutex
	device hal.Device
	queue  hal.Queue
	owned  bool
	closed bool

	info   AdapterInfo
	maxDim uint32

	epoch uint32
	seq   atomic.Uint32

	textures  map[TextureID]*textureEntry
	buffers   map[BufferID]*bufferEntry
	shaders   map[ShaderID]hal.ShaderModule
	pipelines map[PipelineID]*pipelineEntry
}

func newDevice(device hal.Device, queue hal.Queue, owned bool) *Device {
	return &Device{
		device:    device,
		queue:     queue,
		owned:     owned,
		maxDim:    gputypes.DefaultLimits().MaxTextureDimension2D,
		epoch:     epochs.Add(1),
		textures:  make(map[TextureID]*textureEntry),
		buffers:   make(map[BufferID]*bufferEntry),
		shaders:   make(map[ShaderID]hal.ShaderModule),
		pipelines: make(map[PipelineID]*pipelineEntry),
	}
}

// Adopt wraps an externally owned HAL device and queue. Destroy releases
// the arena but leaves the HAL device to its owner.
func Adopt(device hal.Device, queue hal.Queue, info AdapterInfo) *Device {
	d := newDevice(device, queue, false)
	d.info = info
	return d
}

func (d *Device) newID() ID {
	return ID(uint64(d.epoch)<<32 | uint64(d.seq.Add(1)))
}

// Info returns the adapter the device was opened on.
func (d *Device) Info() AdapterInfo { return d.info }

// MaxTextureDimension returns the largest supported 2D texture extent.
func (d *Device) MaxTextureDimension() uint32 { return d.maxDim }

// Epoch returns the epoch stamped into every ID of this device.
func (d *Device) Epoch() uint32 { return d.epoch }

// HalDevice returns the underlying hal.Device.
func (d *Device) HalDevice() any { return d.device }

// HalQueue returns the underlying hal.Queue.
func (d *Device) HalQueue() any { return d.queue }

// Closed reports whether Destroy has been called.
func (d *Device) Closed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.closed
}

// Live returns the number of live arena objects.
func (d *Device) Live() Counts {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Counts{
		Textures:  len(d.textures),
		Buffers:   len(d.buffers),
		Shaders:   len(d.shaders),
		Pipelines: len(d.pipelines),
	}
}

func (d *Device) check(id ID) error {
	if d.closed {
		return ErrDeviceClosed
	}
	if id == 0 || id.Epoch() != d.epoch {
		return fmt.Errorf("%w: %#x", ErrStale, uint64(id))
	}
	return nil
}

// === Textures ===

// CreateTexture creates a 2D (or 3D when Depth > 1) texture.
func (d *Device) CreateTexture(desc TextureDesc) (TextureID, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return 0, fmt.Errorf("%w: texture %dx%d", ErrInvalidSize, desc.Width, desc.Height)
	}
	if desc.Width > d.maxDim || desc.Height > d.maxDim {
		return 0, fmt.Errorf("%w: texture %dx%d exceeds %d", ErrInvalidSize, desc.Width, desc.Height, d.maxDim)
	}
	desc.Depth = max(desc.Depth, 1)

	dim := gputypes.TextureDimension2D
	if desc.Depth > 1 {
		dim = gputypes.TextureDimension3D
	}

	d.mu.RLock()
	closed := d.closed
	d.mu.RUnlock()
	if closed {
		return 0, ErrDeviceClosed
	}

	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: desc.Depth,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     dim,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return 0, fmt.Errorf("native: create texture %q: %w", desc.Label, err)
	}

	id := TextureID(d.newID())
	d.mu.Lock()
	d.textures[id] = &textureEntry{tex: tex, desc: desc}
	d.mu.Unlock()
	return id, nil
}

// DestroyTexture releases a texture.
func (d *Device) DestroyTexture(id TextureID) error {
	d.mu.Lock()
	if err := d.check(ID(id)); err != nil {
		d.mu.Unlock()
		return err
	}
	entry, ok := d.textures[id]
	if ok {
		delete(d.textures, id)
	}
	d.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: texture %#x", ErrStale, uint64(id))
	}
	d.device.DestroyTexture(entry.tex)
	return nil
}

// TextureDesc returns the descriptor a texture was created with.
func (d *Device) TextureDesc(id TextureID) (TextureDesc, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if err := d.check(ID(id)); err != nil {
		return TextureDesc{}, err
	}
	entry, ok := d.textures[id]
	if !ok {
		return TextureDesc{}, fmt.Errorf("%w: texture %#x", ErrStale, uint64(id))
	}
	return entry.desc, nil
}

// WriteTexture uploads a full image of tightly packed rows.
func (d *Device) WriteTexture(id TextureID, data []byte, bytesPerRow uint32) error {
	d.mu.RLock()
	if err := d.check(ID(id)); err != nil {
		d.mu.RUnlock()
		return err
	}
	entry, ok := d.textures[id]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: texture %#x", ErrStale, uint64(id))
	}

	want := uint64(bytesPerRow) * uint64(entry.desc.Height) * uint64(entry.desc.Depth)
	if uint64(len(data)) < want {
		return fmt.Errorf("%w: texture data %d bytes, need %d", ErrInvalidSize, len(data), want)
	}

	err := d.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  entry.tex,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: 0, Y: 0, Z: 0},
			Aspect:   gputypes.TextureAspectAll,
		},
		data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  bytesPerRow,
			RowsPerImage: entry.desc.Height,
		},
		&hal.Extent3D{
			Width:              entry.desc.Width,
			Height:             entry.desc.Height,
			DepthOrArrayLayers: entry.desc.Depth,
		},
	)
	if err != nil {
		return fmt.Errorf("native: write texture %q: %w", entry.desc.Label, err)
	}
	return nil
}

// === Buffers ===

// CreateBuffer creates a buffer.
func (d *Device) CreateBuffer(desc BufferDesc) (BufferID, error) {
	if desc.Size == 0 {
		return 0, fmt.Errorf("%w: empty buffer", ErrInvalidSize)
	}
	d.mu.RLock()
	closed := d.closed
	d.mu.RUnlock()
	if closed {
		return 0, ErrDeviceClosed
	}

	// Buffer sizes must be 4-byte aligned.
	size := (desc.Size + 3) &^ 3
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  size,
		Usage: desc.Usage,
	})
	if err != nil {
		return 0, fmt.Errorf("native: create buffer %q: %w", desc.Label, err)
	}

	id := BufferID(d.newID())
	d.mu.Lock()
	d.buffers[id] = &bufferEntry{buf: buf, desc: desc}
	d.mu.Unlock()
	return id, nil
}

// DestroyBuffer releases a buffer.
func (d *Device) DestroyBuffer(id BufferID) error {
	d.mu.Lock()
	if err := d.check(ID(id)); err != nil {
		d.mu.Unlock()
		return err
	}
	entry, ok := d.buffers[id]
	if ok {
		delete(d.buffers, id)
	}
	d.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: buffer %#x", ErrStale, uint64(id))
	}
	d.device.DestroyBuffer(entry.buf)
	return nil
}

func (d *Device) buffer(id BufferID, offset uint64, n int) (*bufferEntry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if err := d.check(ID(id)); err != nil {
		return nil, err
	}
	entry, ok := d.buffers[id]
	if !ok {
		return nil, fmt.Errorf("%w: buffer %#x", ErrStale, uint64(id))
	}
	if offset+uint64(n) > entry.desc.Size {
		return nil, fmt.Errorf("%w: range [%d, %d) exceeds buffer size %d",
			ErrInvalidSize, offset, offset+uint64(n), entry.desc.Size)
	}
	return entry, nil
}

// WriteBuffer writes data at offset.
func (d *Device) WriteBuffer(id BufferID, offset uint64, data []byte) error {
	entry, err := d.buffer(id, offset, len(data))
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := d.queue.WriteBuffer(entry.buf, offset, data); err != nil {
		return fmt.Errorf("native: write buffer %q: %w", entry.desc.Label, err)
	}
	return nil
}

// ReadBuffer reads len(dst) bytes starting at offset. Buffers created with
// BufferUsageMapRead are mapped directly; any other buffer must allow
// BufferUsageCopySrc and is read through a staging copy.
func (d *Device) ReadBuffer(id BufferID, offset uint64, dst []byte) error {
	entry, err := d.buffer(id, offset, len(dst))
	if err != nil {
		return err
	}
	if len(dst) == 0 {
		return nil
	}
	if entry.desc.Usage&gputypes.BufferUsageMapRead != 0 {
		return d.mapRead(entry.buf, offset, dst)
	}
	if entry.desc.Usage&gputypes.BufferUsageCopySrc == 0 {
		return fmt.Errorf("native: read buffer %q: neither mappable nor a copy source", entry.desc.Label)
	}

	// Copies must be 4-byte aligned at both ends.
	start := offset &^ 3
	size := (offset + uint64(len(dst)) - start + 3) &^ 3
	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "native readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("native: create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	err = d.submit("native readback", func(enc hal.CommandEncoder) {
		enc.CopyBufferToBuffer(entry.buf, staging, []hal.BufferCopy{{SrcOffset: start, DstOffset: 0, Size: size}})
	})
	if err != nil {
		return err
	}
	return d.mapRead(staging, offset-start, dst)
}

func (d *Device) mapRead(buf hal.Buffer, offset uint64, dst []byte) error {
	m, err := d.device.MapBuffer(buf, offset, uint64(len(dst)))
	if err != nil {
		return fmt.Errorf("native: map buffer: %w", err)
	}
	copy(dst, unsafe.Slice((*byte)(m.Ptr), len(dst)))
	if err := d.device.UnmapBuffer(buf); err != nil {
		return fmt.Errorf("native: unmap buffer: %w", err)
	}
	return nil
}

// submit records one command buffer with record, submits it and waits for
// it to complete.
func (d *Device) submit(label string, record func(hal.CommandEncoder)) error {
	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("native: create command encoder: %w", err)
	}
	defer enc.Destroy()
	if err := enc.BeginEncoding(label); err != nil {
		return fmt.Errorf("native: begin encoding: %w", err)
	}
	record(enc)
	cmd, err := enc.EndEncoding()
	if err != nil {
		return fmt.Errorf("native: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmd)

	idx, err := d.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		return fmt.Errorf("native: submit: %w", err)
	}
	return d.wait(idx)
}

// wait blocks until the submission idx has completed.
func (d *Device) wait(idx uint64) error {
	deadline := time.Now().Add(waitTimeout)
	for d.queue.PollCompleted() < idx {
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: submission %d", ErrTimeout, idx)
		}
		runtime.Gosched()
	}
	return nil
}

// === Shaders ===

// CompileWGSL compiles WGSL source to SPIR-V words.
func CompileWGSL(src string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("native: compile shader: %w", err)
	}

	// SPIR-V is little-endian 32-bit words
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return code, nil
}

// CreateShaderModule creates a shader module from SPIR-V code.
func (d *Device) CreateShaderModule(label string, spirv []uint32) (ShaderID, error) {
	if len(spirv) == 0 {
		return 0, fmt.Errorf("%w: empty SPIR-V", ErrInvalidSize)
	}
	d.mu.RLock()
	closed := d.closed
	d.mu.RUnlock()
	if closed {
		return 0, ErrDeviceClosed
	}

	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return 0, fmt.Errorf("native: create shader module %q: %w", label, err)
	}

	id := ShaderID(d.newID())
	d.mu.Lock()
	d.shaders[id] = module
	d.mu.Unlock()
	return id, nil
}

// DestroyShaderModule releases a shader module.
func (d *Device) DestroyShaderModule(id ShaderID) error {
	d.mu.Lock()
	if err := d.check(ID(id)); err != nil {
		d.mu.Unlock()
		return err
	}
	module, ok := d.shaders[id]
	if ok {
		delete(d.shaders, id)
	}
	d.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: shader %#x", ErrStale, uint64(id))
	}
	d.device.DestroyShaderModule(module)
	return nil
}

// === Synchronization ===

// Finish blocks until all submitted work has completed.
func (d *Device) Finish() error {
	if d.Closed() {
		return ErrDeviceClosed
	}
	idx, err := d.queue.Submit(nil)
	if err != nil {
		return fmt.Errorf("native: submit: %w", err)
	}
	return d.wait(idx)
}

// Destroy ends the device epoch, releasing any objects still in the arena
// and, for owned devices, the HAL device itself. Destroy is idempotent.
func (d *Device) Destroy() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	textures, buffers, shaders, pipelines := d.textures, d.buffers, d.shaders, d.pipelines
	d.textures = make(map[TextureID]*textureEntry)
	d.buffers = make(map[BufferID]*bufferEntry)
	d.shaders = make(map[ShaderID]hal.ShaderModule)
	d.pipelines = make(map[PipelineID]*pipelineEntry)
	d.mu.Unlock()

	for _, p := range pipelines {
		p.destroy(d.device)
	}
	for _, e := range textures {
		d.device.DestroyTexture(e.tex)
	}
	for _, e := range buffers {
		d.device.DestroyBuffer(e.buf)
	}
	for _, m := range shaders {
		d.device.DestroyShaderModule(m)
	}
	if d.owned {
		d.device.Destroy()
	}
}

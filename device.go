package placebo

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/placebo/internal/native"
)

// DeviceParams configures NewDevice.
type DeviceParams struct {
	Instance *Instance
	// Surface is the presentation surface the device must support. Zero
	// creates a device without presentation.
	Surface SurfaceHandle
	// AllowSoftware permits software rasterizers when no GPU is found.
	AllowSoftware bool
	// DeviceName restricts selection to adapters whose name contains it.
	DeviceName string
	// AsyncTransfer and AsyncCompute request dedicated queues. They are
	// hints; the device falls back to its main queue.
	AsyncTransfer bool
	AsyncCompute  bool
	// QueueCount is the number of graphics queues to request. Zero means 1.
	QueueCount int
	// MaxTextureSize lowers the largest texture dimension. Zero keeps the
	// adapter limit.
	MaxTextureSize int
}

// Device is a logical GPU device. Textures, buffers, swapchains and
// renderers are created from its GPU handle and must be destroyed before
// it.
type Device struct {
	ctx     *Context
	inst    *Instance
	params  DeviceParams
	native  *native.Device
	surface Surface
	gpu     *GPU
	life    lifetime
}

// NewDevice selects an adapter and opens a device on it.
func NewDevice(ctx *Context, params DeviceParams) (*Device, error) {
	if ctx == nil || params.Instance == nil {
		return nil, stageError(StageDevice, fmt.Errorf("%w: nil context or instance", ErrInvalidParams))
	}
	if params.QueueCount < 0 || params.MaxTextureSize < 0 {
		return nil, stageError(StageDevice, fmt.Errorf("%w: queue count %d, max texture size %d",
			ErrInvalidParams, params.QueueCount, params.MaxTextureSize))
	}
	inst := params.Instance

	var surface Surface
	if params.Surface != 0 {
		s, err := inst.surface(params.Surface)
		if err != nil {
			return nil, stageError(StageDevice, err)
		}
		surface = s
	}

	if err := inst.life.acquire(); err != nil {
		return nil, stageError(StageDevice, err)
	}
	n, err := inst.native.Open(native.OpenOptions{
		Name:                params.DeviceName,
		AllowSoftware:       params.AllowSoftware,
		MaxTextureDimension: uint32(params.MaxTextureSize),
	})
	if err != nil {
		inst.life.release()
		return nil, stageError(StageDevice, err)
	}

	d := &Device{ctx: ctx, inst: inst, params: params, native: n, surface: surface}
	d.gpu = &GPU{dev: d, surfaceFormat: gputypes.TextureFormatBGRA8Unorm}

	log := ctx.Logger()
	log.Info("placebo: device created", "adapter", n.Info().Name, "software", n.Info().Software,
		"max_texture", n.MaxTextureDimension())
	if params.AsyncTransfer || params.AsyncCompute || params.QueueCount > 1 {
		log.Debug("placebo: dedicated queues unavailable, using main queue",
			"async_transfer", params.AsyncTransfer, "async_compute", params.AsyncCompute,
			"queues", params.QueueCount)
	}
	return d, nil
}

// MustNewDevice is like NewDevice but panics on error.
func MustNewDevice(ctx *Context, params DeviceParams) *Device {
	return must(NewDevice(ctx, params))
}

// AdoptDevice wraps a device owned by another library, such as a gogpu
// application. The provider must expose HalDevice() and HalQueue()
// returning wgpu HAL objects. Destroying the returned Device leaves the
// HAL device to its owner.
func AdoptDevice(ctx *Context, provider gpucontext.DeviceProvider) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	if ctx == nil {
		return nil, stageError(StageDevice, fmt.Errorf("%w: nil context", ErrInvalidParams))
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, stageError(StageDevice, fmt.Errorf("%w: provider does not expose HAL types", ErrInvalidParams))
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, stageError(StageDevice, fmt.Errorf("%w: provider HalDevice is not hal.Device", ErrInvalidParams))
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, stageError(StageDevice, fmt.Errorf("%w: provider HalQueue is not hal.Queue", ErrInvalidParams))
	}

	info := provider.AdapterInfo()
	if info.Name == "" {
		info.Name = "external"
	}
	d := &Device{ctx: ctx, native: native.Adopt(device, queue, nativeAdapterInfo(info))}
	d.gpu = &GPU{dev: d, surfaceFormat: provider.SurfaceFormat()}
	ctx.Logger().Info("placebo: adopted external device",
		"adapter", info.Name, "type", info.Type, "surface_format", provider.SurfaceFormat())
	return d, nil
}

// GPU returns the capability handle used to create resources. It is valid
// until the device is destroyed.
func (d *Device) GPU() *GPU { return d.gpu }

// Destroy releases the device. It fails with ErrLiveResources while
// resources created from it are alive. Destroy is idempotent.
func (d *Device) Destroy() error {
	first, err := d.life.retire()
	if err != nil {
		d.ctx.Logger().Error("placebo: device destroyed with live resources",
			"resources", d.life.dependents(), "arena", d.native.Live().Total())
		return err
	}
	if !first {
		return nil
	}
	d.native.Destroy()
	if d.inst != nil {
		d.inst.life.release()
	}
	d.ctx.Logger().Debug("placebo: device destroyed")
	return nil
}

// GPU is a non-owning handle to a Device's capabilities. Every method
// fails with ErrStaleHandle once the device is destroyed.
type GPU struct {
	dev           *Device
	surfaceFormat gputypes.TextureFormat
}

func (g *GPU) check() error {
	if g == nil || !g.dev.life.alive() {
		return ErrStaleHandle
	}
	return nil
}

// acquire registers a resource created on g.
func (g *GPU) acquire() error {
	if g == nil {
		return ErrStaleHandle
	}
	return g.dev.life.acquire()
}

func (g *GPU) release() { g.dev.life.release() }

func (g *GPU) log() *slog.Logger { return g.dev.ctx.Logger() }

// Name returns the adapter name.
func (g *GPU) Name() string { return g.dev.native.Info().Name }

// MaxTextureSize returns the largest supported texture dimension.
func (g *GPU) MaxTextureSize() int { return int(g.dev.native.MaxTextureDimension()) }

// SurfaceFormat returns the texture format presented frames use.
func (g *GPU) SurfaceFormat() gputypes.TextureFormat { return g.surfaceFormat }

// Formats returns the texture formats the GPU supports.
func (g *GPU) Formats() []*Format { return Formats() }

// Flush submits pending work without waiting for it.
func (g *GPU) Flush() error {
	return g.check()
}

// Finish blocks until all submitted work has completed.
func (g *GPU) Finish() error {
	if err := g.check(); err != nil {
		return err
	}
	return nativeError(g.dev.native.Finish())
}

// HalDevice returns the underlying hal.Device so the GPU can be shared
// with other gogpu libraries.
func (g *GPU) HalDevice() any { return g.dev.native.HalDevice() }

// HalQueue returns the underlying hal.Queue.
func (g *GPU) HalQueue() any { return g.dev.native.HalQueue() }

// Device, Queue and Adapter return nil: the GPU exposes its HAL objects
// through HalDevice and HalQueue instead of the wgpu core wrappers.
func (g *GPU) Device() gpucontext.Device   { return nil }
func (g *GPU) Queue() gpucontext.Queue     { return nil }
func (g *GPU) Adapter() gpucontext.Adapter { return nil }

// AdapterInfo describes the adapter the device was opened on.
func (g *GPU) AdapterInfo() gpucontext.AdapterInfo {
	info := g.dev.native.Info()
	t := gpucontext.AdapterTypeUnknown
	switch {
	case info.Type == gputypes.DeviceTypeDiscreteGPU:
		t = gpucontext.AdapterTypeDiscrete
	case info.Type == gputypes.DeviceTypeIntegratedGPU:
		t = gpucontext.AdapterTypeIntegrated
	case info.Software:
		t = gpucontext.AdapterTypeSoftware
	}
	return gpucontext.AdapterInfo{Name: info.Name, Type: t}
}

func nativeAdapterInfo(info gpucontext.AdapterInfo) native.AdapterInfo {
	switch info.Type {
	case gpucontext.AdapterTypeDiscrete:
		return native.AdapterInfo{Name: info.Name, Type: gputypes.DeviceTypeDiscreteGPU}
	case gpucontext.AdapterTypeIntegrated:
		return native.AdapterInfo{Name: info.Name, Type: gputypes.DeviceTypeIntegratedGPU}
	case gpucontext.AdapterTypeSoftware:
		return native.AdapterInfo{Name: info.Name, Type: gputypes.DeviceTypeCPU, Software: true}
	}
	return native.AdapterInfo{Name: info.Name, Type: gputypes.DeviceTypeOther}
}

var _ gpucontext.DeviceProvider = (*GPU)(nil)

package native

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	// Register the Vulkan HAL backend.
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// Errors reported while bringing up instances and devices.
var (
	ErrBackendUnavailable = errors.New("native: backend unavailable")
	ErrNoAdapter          = errors.New("native: no suitable adapter")
)

// Backend selects the HAL implementation.
type Backend uint8

const (
	// BackendAuto uses Vulkan when available and falls back to the
	// headless backend otherwise.
	BackendAuto Backend = iota
	BackendVulkan
	BackendNoop
)

func (b Backend) String() string {
	switch b {
	case BackendAuto:
		return "auto"
	case BackendVulkan:
		return "vulkan"
	case BackendNoop:
		return "noop"
	default:
		return fmt.Sprintf("Backend(%d)", b)
	}
}

// AdapterInfo describes an adapter exposed by an instance.
type AdapterInfo struct {
	Name     string
	Type     gputypes.DeviceType
	Software bool
}

// Instance owns a HAL instance.
type Instance struct {
	inst    hal.Instance
	backend Backend
	log     *slog.Logger
}

// NewInstance creates an instance for the requested backend.
func NewInstance(b Backend, log *slog.Logger) (*Instance, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	switch b {
	case BackendVulkan:
		inst, err := vulkanInstance()
		if err != nil {
			return nil, err
		}
		return &Instance{inst: inst, backend: BackendVulkan, log: log}, nil
	case BackendNoop:
		inst, err := noop.API{}.CreateInstance(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: noop: %w", ErrBackendUnavailable, err)
		}
		return &Instance{inst: inst, backend: BackendNoop, log: log}, nil
	default:
		inst, err := vulkanInstance()
		if err == nil {
			return &Instance{inst: inst, backend: BackendVulkan, log: log}, nil
		}
		log.Warn("native: vulkan unavailable, using headless backend", "error", err)
		return NewInstance(BackendNoop, log)
	}
}

func vulkanInstance() (hal.Instance, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan not registered", ErrBackendUnavailable)
	}
	inst, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("%w: vulkan: %w", ErrBackendUnavailable, err)
	}
	return inst, nil
}

// Backend returns the backend actually in use.
func (i *Instance) Backend() Backend {
	return i.backend
}

// Adapters lists the adapters of the instance.
func (i *Instance) Adapters() []AdapterInfo {
	exposed := i.inst.EnumerateAdapters(nil)
	infos := make([]AdapterInfo, len(exposed))
	for n := range exposed {
		infos[n] = adapterInfo(&exposed[n])
	}
	return infos
}

func adapterInfo(a *hal.ExposedAdapter) AdapterInfo {
	hw := a.Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
		a.Info.DeviceType == gputypes.DeviceTypeIntegratedGPU
	return AdapterInfo{Name: a.Info.Name, Type: a.Info.DeviceType, Software: !hw}
}

// OpenOptions controls adapter selection.
type OpenOptions struct {
	// Name restricts selection to adapters whose name contains it
	// (case-insensitive).
	Name string
	// AllowSoftware permits adapters that are neither discrete nor
	// integrated GPUs.
	AllowSoftware bool
	// MaxTextureDimension lowers the advertised 2D texture limit.
	// Zero keeps the adapter limit.
	MaxTextureDimension uint32
}

// Open selects an adapter and opens a device on it. Discrete GPUs are
// preferred over integrated ones, which are preferred over software.
func (i *Instance) Open(opts OpenOptions) (*Device, error) {
	exposed := i.inst.EnumerateAdapters(nil)

	var selected *hal.ExposedAdapter
	rank := -1
	for n := range exposed {
		a := &exposed[n]
		info := adapterInfo(a)
		if opts.Name != "" && !strings.Contains(strings.ToLower(info.Name), strings.ToLower(opts.Name)) {
			continue
		}
		r := 0
		switch {
		case info.Type == gputypes.DeviceTypeDiscreteGPU:
			r = 2
		case info.Type == gputypes.DeviceTypeIntegratedGPU:
			r = 1
		case !opts.AllowSoftware:
			continue
		}
		if r > rank {
			selected, rank = a, r
		}
	}
	if selected == nil {
		return nil, fmt.Errorf("%w (name %q, software allowed: %v, %d adapters)",
			ErrNoAdapter, opts.Name, opts.AllowSoftware, len(exposed))
	}

	limits := gputypes.DefaultLimits()
	openDev, err := selected.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		return nil, fmt.Errorf("native: open device %q: %w", selected.Info.Name, err)
	}

	maxDim := limits.MaxTextureDimension2D
	if opts.MaxTextureDimension > 0 && opts.MaxTextureDimension < maxDim {
		maxDim = opts.MaxTextureDimension
	}

	d := newDevice(openDev.Device, openDev.Queue, true)
	d.info = adapterInfo(selected)
	d.maxDim = maxDim
	i.log.Info("native: device opened", "adapter", selected.Info.Name,
		"backend", i.backend, "max_texture", maxDim)
	return d, nil
}

// Destroy releases the HAL instance. Devices opened from it must be
// destroyed first.
func (i *Instance) Destroy() {
	if i.inst != nil {
		i.inst.Destroy()
		i.inst = nil
	}
}

package placebo

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/gogpu/placebo/internal/native"
)

// Backend selects the graphics backend of an Instance.
type Backend uint8

const (
	// BackendAuto uses Vulkan when available and the headless backend
	// otherwise.
	BackendAuto Backend = iota
	BackendVulkan
	// BackendNoop is a headless backend without presentation.
	BackendNoop
)

var backends = seqTable("Backend", []Backend{BackendAuto, BackendVulkan, BackendNoop}, "auto", "vulkan", "noop")

func (b Backend) String() string { return backends.name(b) }

// ParseBackend looks a backend up by name.
func ParseBackend(s string) (Backend, error) { return backends.parse(s) }

func (b Backend) native() native.Backend {
	switch b {
	case BackendVulkan:
		return native.BackendVulkan
	case BackendNoop:
		return native.BackendNoop
	default:
		return native.BackendAuto
	}
}

// Presentation extensions of the Vulkan backend.
const (
	ExtSurface    = "VK_KHR_surface"
	ExtDebugUtils = "VK_EXT_debug_utils"
)

// InstanceParams configures NewInstance.
type InstanceParams struct {
	// Extensions are instance extensions the windowing layer requires.
	Extensions []string
	// OptExtensions are enabled when available.
	OptExtensions []string
	// Debug enables validation.
	Debug   bool
	Backend Backend
}

var instanceHandles atomic.Uint64

// SurfaceHandle is the opaque handle of a surface registered with an
// Instance. Zero means no surface.
type SurfaceHandle uint64

// Instance is a graphics API instance.
type Instance struct {
	ctx    *Context
	params InstanceParams
	native *native.Instance
	handle uint64
	life   lifetime

	mu       sync.Mutex
	surfaces map[SurfaceHandle]Surface
	nextSurf SurfaceHandle
}

// NewInstance creates an instance bound to ctx.
func NewInstance(ctx *Context, params InstanceParams) (*Instance, error) {
	if ctx == nil {
		return nil, stageError(StageInstance, fmt.Errorf("%w: nil context", ErrInvalidParams))
	}
	if err := ctx.life.acquire(); err != nil {
		return nil, stageError(StageInstance, err)
	}
	n, err := native.NewInstance(params.Backend.native(), ctx.Logger())
	if err != nil {
		ctx.life.release()
		return nil, stageError(StageInstance, err)
	}

	inst := &Instance{
		ctx:      ctx,
		params:   params,
		native:   n,
		handle:   instanceHandles.Add(1),
		surfaces: make(map[SurfaceHandle]Surface),
	}
	params.Extensions = slices.Clone(params.Extensions)
	params.OptExtensions = slices.Clone(params.OptExtensions)
	inst.params = params

	log := ctx.Logger()
	log.Info("placebo: instance created", "backend", inst.Backend(), "debug", params.Debug)
	if missing := inst.MissingExtensions(); len(missing) > 0 {
		log.Warn("placebo: instance requires extensions not requested by the caller", "missing", missing)
	}
	return inst, nil
}

// MustNewInstance is like NewInstance but panics on error.
func MustNewInstance(ctx *Context, params InstanceParams) *Instance {
	return must(NewInstance(ctx, params))
}

// Backend returns the backend in use.
func (i *Instance) Backend() Backend {
	if i.native.Backend() == native.BackendVulkan {
		return BackendVulkan
	}
	return BackendNoop
}

// Handle returns the opaque instance handle.
func (i *Instance) Handle() uint64 { return i.handle }

// RequiredExtensions lists the extensions the instance needs for
// presentation in addition to the caller's own.
func (i *Instance) RequiredExtensions() []string {
	if i.Backend() != BackendVulkan {
		return nil
	}
	req := []string{ExtSurface}
	if i.params.Debug {
		req = append(req, ExtDebugUtils)
	}
	return req
}

// MissingExtensions returns the required extensions absent from the
// caller's lists.
func (i *Instance) MissingExtensions() []string {
	var missing []string
	for _, ext := range i.RequiredExtensions() {
		if !slices.Contains(i.params.Extensions, ext) && !slices.Contains(i.params.OptExtensions, ext) {
			missing = append(missing, ext)
		}
	}
	return missing
}

// CreateSurface registers a presentation surface and returns its handle.
func (i *Instance) CreateSurface(s Surface) (SurfaceHandle, error) {
	if !i.life.alive() {
		return 0, ErrStaleHandle
	}
	if s == nil {
		return 0, fmt.Errorf("%w: nil surface", ErrInvalidParams)
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.nextSurf++
	i.surfaces[i.nextSurf] = s
	return i.nextSurf, nil
}

// DestroySurface unregisters a surface.
func (i *Instance) DestroySurface(h SurfaceHandle) {
	i.mu.Lock()
	delete(i.surfaces, h)
	i.mu.Unlock()
}

func (i *Instance) surface(h SurfaceHandle) (Surface, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	s, ok := i.surfaces[h]
	if !ok {
		return nil, fmt.Errorf("%w: surface %d", ErrStaleHandle, h)
	}
	return s, nil
}

// Destroy releases the instance. It fails with ErrLiveResources while
// devices created from it are alive. Destroy is idempotent.
func (i *Instance) Destroy() error {
	first, err := i.life.retire()
	if err != nil {
		i.ctx.Logger().Error("placebo: instance destroyed with live devices", "devices", i.life.dependents())
		return err
	}
	if !first {
		return nil
	}
	i.native.Destroy()
	i.mu.Lock()
	clear(i.surfaces)
	i.mu.Unlock()
	i.ctx.life.release()
	i.ctx.Logger().Debug("placebo: instance destroyed")
	return nil
}

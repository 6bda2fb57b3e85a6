package placebo

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSwapchain(t *testing.T, env *testEnv, depth int) *Swapchain {
	t.Helper()
	p := DefaultSwapchainParams(env.handle)
	p.Depth = depth
	sw, err := NewSwapchain(env.dev, p)
	require.NoError(t, err)
	t.Cleanup(sw.Destroy)
	return sw
}

func captureLogs(t *testing.T, env *testEnv) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, env.ctx.Update(&ContextParams{LogFunc: LogSimple, LogLevel: LogDebug, Writer: &buf}))
	return &buf
}

func TestSwapchainPresent(t *testing.T) {
	env := newTestEnv(t, 0)
	sw := newTestSwapchain(t, env, 2)

	_, ok := sw.StartFrame()
	assert.False(t, ok, "no frame before the first resize")

	w, h, err := sw.Resize(4, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, w)
	assert.Equal(t, 3, h)
	assert.Equal(t, 4, env.surface.Config().Width)
	assert.Equal(t, 2, sw.Latency())
	assert.Equal(t, "bgra8", sw.Params().SurfaceFormat.Format.Name)

	frame, ok := sw.StartFrame()
	require.True(t, ok)
	assert.Equal(t, ColorReprRGB, frame.ColorRepr)
	assert.Equal(t, ColorSpaceSRGB, frame.ColorSpace)
	require.NoError(t, frame.FBO.Clear([4]float32{0, 0, 1, 1}))
	require.NoError(t, sw.SubmitFrame())
	sw.SwapBuffers()

	require.Equal(t, 1, env.surface.Presented())
	img := env.surface.LastImage()
	assert.Equal(t, 4, img.Width)
	assert.Equal(t, 16, img.Stride)
	assert.Equal(t, uint64(1), img.Frame)
	assert.Equal(t, []byte{255, 0, 0, 255}, img.Pix[:4])

	next, ok := sw.StartFrame()
	require.True(t, ok)
	assert.NotSame(t, frame.FBO, next.FBO, "frames rotate through the ring")
	require.NoError(t, sw.SubmitFrame())
}

func TestSwapchainSkipFrames(t *testing.T) {
	env := newTestEnv(t, 0)
	sw := newTestSwapchain(t, env, 3)
	_, _, err := sw.Resize(8, 8)
	require.NoError(t, err)

	env.surface.SkipFrames(5)
	for i := range 5 {
		_, ok := sw.StartFrame()
		assert.False(t, ok, "frame %d", i)
	}
	assert.Zero(t, env.surface.Presented())

	_, ok := sw.StartFrame()
	require.True(t, ok)
	require.NoError(t, sw.SubmitFrame())
	sw.SwapBuffers()
	assert.Equal(t, 1, env.surface.Presented())
}

func TestSwapchainResizeClamps(t *testing.T) {
	env := newTestEnv(t, 512)
	sw := newTestSwapchain(t, env, 1)

	w, h, err := sw.Resize(2048, 100)
	require.NoError(t, err)
	assert.Equal(t, 512, w)
	assert.Equal(t, 100, h)
	gotW, gotH := sw.Size()
	assert.Equal(t, 512, gotW)
	assert.Equal(t, 100, gotH)

	_, _, err = sw.Resize(0, 10)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestSwapchainFrameOrder(t *testing.T) {
	env := newTestEnv(t, 0)
	logs := captureLogs(t, env)
	sw := newTestSwapchain(t, env, 2)
	_, _, err := sw.Resize(2, 2)
	require.NoError(t, err)

	assert.ErrorIs(t, sw.SubmitFrame(), ErrNoFrame)

	_, ok := sw.StartFrame()
	require.True(t, ok)
	_, ok = sw.StartFrame()
	assert.False(t, ok, "a frame is already in flight")
	assert.Contains(t, logs.String(), ErrFrameInProgress.Error())

	_, _, err = sw.Resize(4, 4)
	assert.ErrorIs(t, err, ErrFrameInProgress)

	require.NoError(t, sw.SubmitFrame())
	assert.ErrorIs(t, sw.SubmitFrame(), ErrNoFrame)
}

func TestSwapchainPresentFailure(t *testing.T) {
	env := newTestEnv(t, 0)
	logs := captureLogs(t, env)
	sw := newTestSwapchain(t, env, 2)
	_, _, err := sw.Resize(2, 2)
	require.NoError(t, err)

	env.surface.FailPresent(errors.New("surface lost"))
	_, ok := sw.StartFrame()
	require.True(t, ok)
	require.NoError(t, sw.SubmitFrame())
	sw.SwapBuffers()
	assert.Zero(t, env.surface.Presented())
	assert.Contains(t, logs.String(), "surface lost")

	env.surface.FailPresent(nil)
	_, ok = sw.StartFrame()
	require.True(t, ok)
	require.NoError(t, sw.SubmitFrame())
	sw.SwapBuffers()
	assert.Equal(t, 1, env.surface.Presented())
}

var errOutOfMemory = errors.New("out of device memory")

// budgetDevice fails texture creation once its budget is spent.
type budgetDevice struct {
	noop.Device
	textures int
}

func (d *budgetDevice) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	if d.textures == 0 {
		return nil, errOutOfMemory
	}
	d.textures--
	return d.Device.CreateTexture(desc)
}

// halOverride hands AdoptDevice a different HAL device than the GPU's own.
type halOverride struct {
	*GPU
	device hal.Device
}

func (p halOverride) HalDevice() any { return p.device }

func TestSwapchainResizeFailureLeavesUnsized(t *testing.T) {
	env := newTestEnv(t, 0)
	budget := &budgetDevice{textures: 3}
	dev, err := AdoptDevice(env.ctx, halOverride{GPU: env.gpu(), device: budget})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, dev.Destroy()) })
	dev.surface = NewHeadlessSurface()

	p := DefaultSwapchainParams(0)
	p.Depth = 2
	sw, err := NewSwapchain(dev, p)
	require.NoError(t, err)
	t.Cleanup(sw.Destroy)

	_, _, err = sw.Resize(4, 4)
	require.NoError(t, err)

	// The first framebuffer is reallocated, the second runs out of memory.
	w, h, err := sw.Resize(8, 8)
	require.Error(t, err)
	assert.Equal(t, [2]int{0, 0}, [2]int{w, h})
	w, h = sw.Size()
	assert.Equal(t, [2]int{0, 0}, [2]int{w, h})
	_, ok := sw.StartFrame()
	assert.False(t, ok, "no frame starts on a mixed ring")

	budget.textures = 1
	w, h, err = sw.Resize(8, 8)
	require.NoError(t, err)
	assert.Equal(t, [2]int{8, 8}, [2]int{w, h})
	frame, ok := sw.StartFrame()
	require.True(t, ok)
	assert.Equal(t, 8, frame.FBO.Width())
	require.NoError(t, sw.SubmitFrame())
	sw.SwapBuffers()
}

func TestSwapchainInvalid(t *testing.T) {
	env := newTestEnv(t, 0)
	p := DefaultSwapchainParams(env.handle)
	p.Depth = 0
	_, err := NewSwapchain(env.dev, p)
	assert.ErrorIs(t, err, ErrInvalidParams)

	p = DefaultSwapchainParams(env.handle)
	p.SurfaceFormat.Format = FindFormat("rgb8")
	_, err = NewSwapchain(env.dev, p)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	p = DefaultSwapchainParams(SurfaceHandle(9999))
	_, err = NewSwapchain(env.dev, p)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageSwapchain, se.Stage)
}

func TestSwapchainDestroy(t *testing.T) {
	env := newTestEnv(t, 0)
	sw := MustNewSwapchain(env.dev, DefaultSwapchainParams(0))
	_, _, err := sw.Resize(2, 2)
	require.NoError(t, err)
	sw.Destroy()
	sw.Destroy()

	_, ok := sw.StartFrame()
	assert.False(t, ok)
	_, _, err = sw.Resize(2, 2)
	assert.ErrorIs(t, err, ErrStaleHandle)
}

package placebo

import (
	"errors"
	"fmt"
	"image"
	"math"
	"runtime"
	"sync"

	"github.com/gogpu/placebo/internal/cache"
	"github.com/gogpu/placebo/internal/colormath"
	"github.com/gogpu/placebo/internal/parallel"
	"github.com/gogpu/placebo/internal/raster"
)

// RendererState is the lifecycle state of a Renderer.
type RendererState uint8

const (
	// RendererUninitialized renderers have no cached GPU objects. They
	// are initialized by the next RenderImage.
	RendererUninitialized RendererState = iota
	RendererReady
	RendererRendering
)

var rendererStates = seqTable("RendererState",
	[]RendererState{RendererUninitialized, RendererReady, RendererRendering},
	"uninitialized", "ready", "rendering")

func (s RendererState) String() string { return rendererStates.name(s) }

// Renderer draws Images onto RenderTargets. Intermediate results such as
// filter tables, dither matrices, 3D LUTs and compiled shaders are cached
// across frames.
//
// A Renderer must not be used from more than one goroutine at a time.
type Renderer struct {
	mu    sync.Mutex
	ctx   *Context
	gpu   *GPU
	state RendererState
	dead  bool

	pool     *parallel.WorkerPool
	filters  *cache.Cache[string, *Filter]
	dithers  *cache.Cache[ditherKey, *raster.DitherMatrix]
	luts     *cache.Cache[lutKey, *colormath.LUT3D]
	outputs  *cache.Cache[string, outputPass]
	uniforms *Buffer
	staging  *Texture

	frame uint64
	peak  peakState
}

type ditherKey struct {
	method DitherMethod
	size   int
}

type lutKey struct {
	src, dst ColorSpace
	srcPeak  float64
	cmap     ColorMapParams
	params   Lut3DParams
	profile  uint64
}

// NewRenderer creates a renderer drawing with gpu.
func NewRenderer(ctx *Context, gpu *GPU) (*Renderer, error) {
	if ctx == nil {
		return nil, stageError(StageRenderer, fmt.Errorf("%w: nil context", ErrInvalidParams))
	}
	if err := gpu.acquire(); err != nil {
		return nil, stageError(StageRenderer, err)
	}
	r := &Renderer{
		ctx:     ctx,
		gpu:     gpu,
		pool:    parallel.NewWorkerPool(runtime.GOMAXPROCS(0)),
		filters: cache.New[string, *Filter](32),
		dithers: cache.New[ditherKey, *raster.DitherMatrix](4),
		luts:    cache.New[lutKey, *colormath.LUT3D](4),
		outputs: cache.New[string, outputPass](8),
		staging: &Texture{},
	}
	r.filters.OnEvict(func(_ string, f *Filter) { f.Free() })
	r.outputs.OnEvict(func(name string, o outputPass) {
		if err := o.release(gpu.dev.native); err != nil {
			r.ctx.Logger().Warn("placebo: release output pass", "format", name, "error", err)
		}
	})
	r.ctx.Logger().Debug("placebo: renderer created", "workers", r.pool.Workers())
	return r, nil
}

// MustNewRenderer is like NewRenderer but panics on error.
func MustNewRenderer(ctx *Context, gpu *GPU) *Renderer {
	return must(NewRenderer(ctx, gpu))
}

// State returns the renderer state.
func (r *Renderer) State() RendererState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// FlushCache drops every cached object and resets peak detection. The
// next RenderImage starts from scratch.
func (r *Renderer) FlushCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flush()
}

func (r *Renderer) flush() {
	r.filters.Purge()
	r.dithers.Purge()
	r.luts.Purge()
	r.outputs.Purge()
	r.uniforms.Destroy()
	r.uniforms = nil
	r.staging.Destroy()
	r.peak = peakState{}
	r.state = RendererUninitialized
}

// Destroy releases the renderer. Destroy is idempotent.
func (r *Renderer) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dead {
		return
	}
	r.flush()
	r.pool.Close()
	r.dead = true
	r.gpu.release()
	r.ctx.Logger().Debug("placebo: renderer destroyed", "frames", r.frame)
}

// RenderImage draws img onto target. A nil params selects
// DefaultRenderParams. On failure the target contents are unchanged and
// the returned error wraps ErrRender; the caller should drop the frame.
func (r *Renderer) RenderImage(img *Image, target *RenderTarget, params *RenderParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dead {
		return fmt.Errorf("%w: %w", ErrRender, ErrStaleHandle)
	}
	if params == nil {
		p := DefaultRenderParams()
		params = &p
	}

	prev := r.state
	r.state = RendererRendering
	err := r.render(img, target, params)
	if err != nil {
		r.state = prev
		r.ctx.Logger().Warn("placebo: render failed, dropping frame", "frame", r.frame, "error", err)
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	r.state = RendererReady
	r.frame++
	return nil
}

func (r *Renderer) render(img *Image, target *RenderTarget, p *RenderParams) error {
	if img == nil || target == nil {
		return fmt.Errorf("%w: nil image or target", ErrInvalidParams)
	}
	if err := r.gpu.check(); err != nil {
		return err
	}
	if err := errors.Join(img.validate(), target.validate(), p.Validate()); err != nil {
		return err
	}
	if err := checkProfile(img.Profile, "image"); err != nil {
		return err
	}
	if err := checkProfile(target.Profile, "target"); err != nil {
		return err
	}
	pass, err := r.outputPass(target.FBO.Format())
	if err != nil {
		return err
	}

	crop := img.crop()
	dstRect := target.crop()
	dstBox := dstRect.Normalize()
	if crop.Empty() || dstBox.Empty() {
		return fmt.Errorf("%w: empty source or destination rect", ErrInvalidParams)
	}
	c := newColorPipeline(img.Repr, img.Color, target.Repr, target.Color, p)
	hdr := c.src.SigPeak > 1

	src, err := r.gather(img)
	if err != nil {
		return err
	}
	raster.Map(r.pool, src, func(px *[4]float32, _, _ int) { c.decodePixel(px) })

	if !p.DisableOverlays {
		for _, ov := range img.overlays {
			if err := r.drawOverlay(src, ov, c.src); err != nil {
				return err
			}
		}
	}

	if p.Deband != nil {
		src = raster.Deband(r.pool, src, raster.DebandOptions{
			Iterations: p.Deband.Iterations,
			Threshold:  p.Deband.Threshold,
			Radius:     p.Deband.Radius,
			Grain:      p.Deband.Grain,
			Seed:       r.frame,
		})
	}

	if p.PeakDetect != nil && hdr {
		peak, avg := raster.Luminance(r.pool, src, c.srcLuma)
		r.peak.update(*p.PeakDetect, peak, avg)
		c.srcPeak = math.Min(c.src.SigPeak, math.Max(r.peak.peak, 1))
		if c.cmap.MaxBoost > 1 && c.srcPeak < c.dst.SigPeak {
			c.boost = math.Min(c.cmap.MaxBoost, c.dst.SigPeak/c.srcPeak)
		}
	}

	out, err := r.scale(src, crop, dstBox.W(), dstBox.H(), p, hdr, c)
	if err != nil {
		return err
	}

	if len(target.Profile.Data) > 0 || (p.Lut3D != nil && c.mapColors) {
		lp := DefaultLut3DParams()
		if p.Lut3D != nil {
			lp = *p.Lut3D
		}
		if c.lut, err = r.lut3D(c, lp, target.Profile); err != nil {
			return err
		}
	}
	raster.Map(r.pool, out, func(px *[4]float32, _, _ int) { c.mapPixel(px) })

	if !p.DisableOverlays {
		for _, ov := range target.overlays {
			ov.Rect.X0 -= dstBox.X0
			ov.Rect.X1 -= dstBox.X0
			ov.Rect.Y0 -= dstBox.Y0
			ov.Rect.Y1 -= dstBox.Y0
			if err := r.drawOverlay(out, ov, c.dst); err != nil {
				return err
			}
		}
	}

	raster.Map(r.pool, out, func(px *[4]float32, _, _ int) { c.encodePixel(px) })

	if p.Dither != nil {
		if depth := ditherDepth(target.FBO.Format()); depth > 0 {
			raster.Dither(r.pool, out, raster.DitherOptions{
				Depth:    depth,
				Matrix:   r.ditherMatrix(*p.Dither),
				Frame:    r.frame,
				Temporal: p.Dither.Temporal,
			})
		}
	}

	if err := r.uploadUniforms(p, c); err != nil {
		return err
	}
	if err := r.write(pass, target.FBO, out, dstRect); err != nil {
		return err
	}
	return r.gpu.Flush()
}

func checkProfile(p IccProfile, what string) error {
	if len(p.Data) == 0 {
		return nil
	}
	info, err := p.Decode()
	if err != nil {
		return err
	}
	if !info.RGB {
		return fmt.Errorf("%w: %s ICC profile has %s color space", ErrUnsupportedFormat, what, info.Space)
	}
	return nil
}

// gather samples every plane onto the grid of the first plane.
func (r *Renderer) gather(img *Image) (*raster.Frame, error) {
	w, h := img.Width(), img.Height()
	dst, err := raster.NewFrame(w, h)
	if err != nil {
		return nil, err
	}
	dst.Fill([4]float32{0, 0, 0, 1})
	for _, pl := range img.Planes {
		pf := pl.Texture.frame()
		sx, sy := float64(pf.W)/float64(w), float64(pf.H)/float64(h)
		direct := pf.W == w && pf.H == h && pl.ShiftX == 0 && pl.ShiftY == 0
		raster.Map(r.pool, dst, func(px *[4]float32, x, y int) {
			var s [4]float32
			if direct {
				s = pf.At(x, y)
			} else {
				s = pf.Bilinear((float64(x)+0.5-pl.ShiftX)*sx, (float64(y)+0.5-pl.ShiftY)*sy)
			}
			for i, c := range pl.ComponentMapping[:pl.Components] {
				if c >= 0 {
					px[c] = s[i]
				}
			}
		})
	}
	return dst, nil
}

// drawOverlay composites ov onto f, which holds linear light in space.
func (r *Renderer) drawOverlay(f *raster.Frame, ov Overlay, space ColorSpace) error {
	if err := ov.Plane.validate(); err != nil {
		return fmt.Errorf("overlay: %w", err)
	}
	if ov.Rect.Empty() {
		return nil
	}
	of := ov.Plane.Texture.frame()
	pixels := raster.Frame{W: of.W, H: of.H, Pix: make([]float32, len(of.Pix))}
	c := newColorPipeline(ov.Repr, ov.Color, ColorReprRGB, space, &RenderParams{})
	c.gamut = colormath.GamutMatrix(c.src.Primaries.raw(), c.dst.Primaries.raw(), false)
	c.mapColors = c.src.Primaries != c.dst.Primaries

	raster.Map(r.pool, &pixels, func(px *[4]float32, x, y int) {
		s := of.At(x, y)
		v := [4]float32{0, 0, 0, 1}
		for i, ch := range ov.Plane.ComponentMapping[:ov.Plane.Components] {
			if ch >= 0 {
				v[ch] = s[i]
			}
		}
		if ov.Mode == OverlayMonochrome {
			*px = [4]float32{s[0], 0, 0, 1}
			return
		}
		c.decodePixel(&v)
		if c.mapColors {
			g := c.gamut.Apply(colormath.Vec3{float64(v[0]), float64(v[1]), float64(v[2])})
			v[0], v[1], v[2] = float32(g[0]), float32(g[1]), float32(g[2])
		}
		*px = v
	})

	mode := raster.BlendNormal
	var tint [3]float32
	if ov.Mode == OverlayMonochrome {
		mode = raster.BlendMonochrome
		base := [4]float32{ov.BaseColor[0], ov.BaseColor[1], ov.BaseColor[2], 1}
		c.decodePixel(&base)
		tint = [3]float32{base[0], base[1], base[2]}
		if c.mapColors {
			g := c.gamut.Apply(colormath.Vec3{float64(tint[0]), float64(tint[1]), float64(tint[2])})
			tint = [3]float32{float32(g[0]), float32(g[1]), float32(g[2])}
		}
	}
	rect := ov.Rect.Normalize()
	raster.Blend(r.pool, f, &pixels, image.Rect(rect.X0, rect.Y0, rect.X1, rect.Y1), mode, tint)
	return nil
}

// scale resamples the crop of src to w×h with the filters selected by p.
func (r *Renderer) scale(src *raster.Frame, crop Rect2DF, w, h int, p *RenderParams, hdr bool, c *colorPipeline) (*raster.Frame, error) {
	rr := raster.Rect{X0: crop.X0, Y0: crop.Y0, X1: crop.X1, Y1: crop.Y1}
	cw, ch := math.Abs(crop.W()), math.Abs(crop.H())
	upX, upY := float64(w) > cw, float64(h) > ch
	downX, downY := float64(w) < cw, float64(h) < ch

	if !upX && !upY && !downX && !downY && !p.DisableBuiltinScalers {
		sampler := raster.SampleNearest
		if crop.X0 != math.Trunc(crop.X0) || crop.Y0 != math.Trunc(crop.Y0) {
			sampler = raster.SampleBilinear
		}
		return raster.ScaleBuiltin(r.pool, src, rr, w, h, sampler)
	}

	if p.FrameMixer != nil {
		r.ctx.Logger().Debug("placebo: single image, frame mixer unused")
	}

	pick := func(up, down bool) *FilterConfig {
		switch {
		case up:
			return p.Upscaler
		case down:
			return p.Downscaler
		}
		return nil
	}
	fx, fy := pick(upX, downX), pick(upY, downY)

	// Sigmoidization only makes sense for SDR upscaling.
	var sig *raster.Sigmoid
	if p.Sigmoid != nil && !hdr && (upX || upY) && !downX && !downY {
		sig = &raster.Sigmoid{Center: p.Sigmoid.Center, Slope: p.Sigmoid.Slope}
	}
	encoded := p.DisableLinearScaling

	prepare := func(px *[4]float32, _, _ int) {
		for i := range 3 {
			if encoded {
				px[i] = float32(colormath.Delinearize(c.src.Transfer.math(), float64(px[i])/c.src.SigScale))
			}
			if sig != nil {
				px[i] = sig.Apply(px[i])
			}
		}
	}
	finish := func(px *[4]float32, _, _ int) {
		for i := range 3 {
			if sig != nil {
				px[i] = sig.Invert(px[i])
			}
			if encoded {
				px[i] = float32(colormath.Linearize(c.src.Transfer.math(), float64(px[i])) * c.src.SigScale)
			}
		}
	}
	if sig != nil || encoded {
		src = src.Clone()
		raster.Map(r.pool, src, prepare)
	}

	var out *raster.Frame
	var err error
	antiring := float32(p.AntiringingStrength)
	switch polar := polarOf(fx, fy); {
	case polar != nil:
		var f *Filter
		f, err = r.filter(*polar, 1, p)
		if err == nil {
			out, err = raster.ScalePolar(r.pool, src, rr, w, h, f.polarLUT(), antiring)
		}
	case fx == nil && fy == nil:
		sampler := raster.SampleBilinear
		if p.SkipAntiAliasing && (downX || downY) {
			sampler = raster.SampleNearest
		}
		out, err = raster.ScaleBuiltin(r.pool, src, rr, w, h, sampler)
	default:
		var ax, ay raster.Axis
		ax, err = r.axis(fx, cw/float64(w), antiring, p)
		if err == nil {
			ay, err = r.axis(fy, ch/float64(h), antiring, p)
		}
		if err == nil {
			out, err = raster.ScaleSeparable(r.pool, src, rr, w, h, ax, ay)
		}
	}
	if err != nil {
		return nil, err
	}
	if sig != nil || encoded {
		raster.Map(r.pool, out, finish)
	}
	return out, nil
}

// polarOf returns the polar filter among fx and fy, if any. Polar filters
// cover both axes at once.
func polarOf(fx, fy *FilterConfig) *FilterConfig {
	switch {
	case fx != nil && fx.Polar:
		return fx
	case fy != nil && fy.Polar:
		return fy
	}
	return nil
}

func (r *Renderer) axis(cfg *FilterConfig, ratio float64, antiring float32, p *RenderParams) (raster.Axis, error) {
	a := raster.Axis{Antiring: antiring}
	if cfg == nil {
		return a, nil
	}
	f, err := r.filter(*cfg, max(ratio, 1), p)
	if err != nil {
		return a, err
	}
	a.LUT = f.separableLUT()
	return a, nil
}

// filter returns the weight table for cfg widened by scale.
func (r *Renderer) filter(cfg FilterConfig, scale float64, p *RenderParams) (*Filter, error) {
	scale = math.Round(scale*1000) / 1000
	key := filterKey(cfg, p.LUTEntries, scale, p.PolarCutoff)
	return r.filters.GetOrCreate(key, func() (*Filter, error) {
		return GenerateFilter(r.ctx, FilterParams{
			Config:      cfg,
			LUTEntries:  p.LUTEntries,
			FilterScale: scale,
			Cutoff:      p.PolarCutoff,
		})
	})
}

func filterKey(cfg FilterConfig, entries int, scale, cutoff float64) string {
	fn := func(f FilterFunction) string {
		return fmt.Sprintf("%d/%x/%g/%g/%g", f.Kind, funcPtr(f.Weight), f.Radius, f.Params[0], f.Params[1])
	}
	win := "-"
	if cfg.Window != nil {
		win = fn(*cfg.Window)
	}
	return fmt.Sprintf("%s|%s|%g|%g|%g|%t|%d|%g|%g",
		fn(cfg.Kernel), win, cfg.Clamp, cfg.Blur, cfg.Taper, cfg.Polar, entries, scale, cutoff)
}

func (r *Renderer) ditherMatrix(d DitherParams) *raster.DitherMatrix {
	if d.Method == DitherWhiteNoise {
		return nil
	}
	size := d.LUTSize
	if d.Method == DitherOrderedFixed {
		size = 3
	}
	m, _ := r.dithers.GetOrCreate(ditherKey{d.Method, size}, func() (*raster.DitherMatrix, error) {
		if d.Method == DitherBlueNoise {
			return raster.BlueNoise(size), nil
		}
		return raster.Bayer(size), nil
	})
	return m
}

// ditherDepth returns the bit depth output to f is quantized to, or zero
// for float formats.
func ditherDepth(f *Format) int {
	if f.Type != FmtUnorm {
		return 0
	}
	return f.ComponentDepth[0]
}

// lut3D bakes the color mapping of c into a lattice. With a target
// profile the lattice also converts to the display's device values.
func (r *Renderer) lut3D(c *colorPipeline, p Lut3DParams, profile IccProfile) (*colormath.LUT3D, error) {
	key := lutKey{src: c.src, dst: c.dst, srcPeak: c.srcPeak, cmap: c.cmap, params: p}
	key.cmap.Intent = p.Intent
	if len(profile.Data) > 0 {
		key.profile = profile.cacheKey()
	}
	return r.luts.GetOrCreate(key, func() (*colormath.LUT3D, error) {
		mapper := *c
		mapper.cmap.Intent = p.Intent
		mapper.gamut = colormath.GamutMatrix(c.src.Primaries.raw(), c.dst.Primaries.raw(),
			p.Intent == IntentAbsoluteColorimetric)
		fn := mapper.colorMap
		if key.profile != 0 {
			prof, err := profile.display()
			if err != nil {
				return nil, err
			}
			fn = mapper.displayMap(prof, mapper.colorMap)
		}
		r.ctx.Logger().Debug("placebo: generating 3D LUT",
			"size", [3]int{p.SizeR, p.SizeG, p.SizeB}, "profile", key.profile != 0)
		return colormath.NewLUT3D(p.SizeR, p.SizeG, p.SizeB, c.srcPeak, fn), nil
	})
}

// write stores out into the rect of fbo, flipping when the rect is
// inverted. The composed frame is kept in the host copy of fbo, which
// Download and swapchain presentation read, and reaches the device
// framebuffer through the output pass.
func (r *Renderer) write(pass outputPass, fbo *Texture, out *raster.Frame, rect Rect2D) error {
	f := fbo.frame()
	box := rect.Normalize()
	flipX, flipY := rect.W() < 0, rect.H() < 0
	for y := range out.H {
		dy := box.Y0 + y
		if flipY {
			dy = box.Y1 - 1 - y
		}
		if dy < 0 || dy >= f.H {
			continue
		}
		for x := range out.W {
			dx := box.X0 + x
			if flipX {
				dx = box.X1 - 1 - x
			}
			if dx < 0 || dx >= f.W {
				continue
			}
			f.Set(dx, dy, out.At(x, y))
		}
	}
	fbo.encode(f)

	err := r.staging.Recreate(r.gpu, TextureParams{
		W: fbo.Width(), H: fbo.Height(), Format: fbo.Format(), Sampleable: true, HostWritable: true,
	})
	if err != nil {
		return err
	}
	if err := r.staging.Upload(fbo.data, 0); err != nil {
		return err
	}
	return r.draw(pass, r.staging, fbo)
}

// peakState is the smoothed result of peak detection.
type peakState struct {
	peak, avg float64
	valid     bool
}

// update folds a new measurement into the running average. Changes of the
// average brightness beyond the scene thresholds, in percent of the PQ
// signal range, speed up or reset the smoothing.
func (s *peakState) update(p PeakDetectParams, peak, avg float64) {
	if !s.valid {
		*s = peakState{peak: peak, avg: avg, valid: true}
		return
	}
	pq := func(x float64) float64 { return colormath.Delinearize(colormath.TransferPQ, x) * 100 }
	delta := math.Abs(pq(avg) - pq(s.avg))
	if delta > p.SceneThresholdHigh {
		*s = peakState{peak: peak, avg: avg, valid: true}
		return
	}
	coeff := 1.0
	if p.SmoothingPeriod > 0 {
		coeff = 1 / p.SmoothingPeriod
	}
	if delta > p.SceneThresholdLow && p.SceneThresholdHigh > p.SceneThresholdLow {
		t := (delta - p.SceneThresholdLow) / (p.SceneThresholdHigh - p.SceneThresholdLow)
		coeff += (1 - coeff) * t
	}
	s.peak += (peak - s.peak) * coeff
	s.avg += (avg - s.avg) * coeff
}

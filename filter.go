package placebo

import (
	"fmt"
	"math"
	"reflect"

	"github.com/gogpu/placebo/internal/kernel"
	"github.com/gogpu/placebo/internal/raster"
)

// FilterFunction is a one-dimensional weight function defined on
// [0, Radius].
type FilterFunction struct {
	Kind kernel.ID
	// Resizable functions may be used with a different Radius.
	Resizable bool
	// Tunable reports which Params the function reads.
	Tunable [2]bool
	Radius  float64
	Params  [2]float64
	// Weight is evaluated for Kind == kernel.Custom.
	Weight func(x float64) float64
}

// Built-in filter functions.
var (
	FilterFunctionBox      = FilterFunction{Kind: kernel.Box, Resizable: true, Radius: 1}
	FilterFunctionTriangle = FilterFunction{Kind: kernel.Triangle, Resizable: true, Radius: 1}
	FilterFunctionHann     = FilterFunction{Kind: kernel.Hann, Radius: 1}
	FilterFunctionHamming  = FilterFunction{Kind: kernel.Hamming, Radius: 1}
	FilterFunctionWelch    = FilterFunction{Kind: kernel.Welch, Radius: 1}
	FilterFunctionKaiser   = FilterFunction{Kind: kernel.Kaiser, Tunable: [2]bool{true}, Radius: 1, Params: [2]float64{2}}
	FilterFunctionBlackman = FilterFunction{Kind: kernel.Blackman, Tunable: [2]bool{true}, Radius: 1, Params: [2]float64{0.16}}
	FilterFunctionGaussian = FilterFunction{Kind: kernel.Gaussian, Resizable: true, Tunable: [2]bool{true}, Radius: 2, Params: [2]float64{1}}
	FilterFunctionSinc     = FilterFunction{Kind: kernel.Sinc, Resizable: true, Radius: 1}
	FilterFunctionJinc     = FilterFunction{Kind: kernel.Jinc, Resizable: true, Radius: kernel.JincR1}
	FilterFunctionSphinx   = FilterFunction{Kind: kernel.Sphinx, Resizable: true, Radius: kernel.SphinxR1}
	FilterFunctionBCSpline = FilterFunction{Kind: kernel.BCSpline, Tunable: [2]bool{true, true}, Radius: 2, Params: [2]float64{0.5, 0.5}}
	FilterFunctionBicubic  = FilterFunction{Kind: kernel.Bicubic, Radius: 2}
	FilterFunctionSpline16 = FilterFunction{Kind: kernel.Spline16, Radius: 2}
	FilterFunctionSpline36 = FilterFunction{Kind: kernel.Spline36, Radius: 3}
	FilterFunctionSpline64 = FilterFunction{Kind: kernel.Spline64, Radius: 4}
)

// WithRadius returns f resized to r. Non-resizable functions are returned
// unchanged.
func (f FilterFunction) WithRadius(r float64) FilterFunction {
	if f.Resizable {
		f.Radius = r
	}
	return f
}

// WithParams returns f with the tunable params replaced.
func (f FilterFunction) WithParams(p0, p1 float64) FilterFunction {
	if f.Tunable[0] {
		f.Params[0] = p0
	}
	if f.Tunable[1] {
		f.Params[1] = p1
	}
	return f
}

// Eval evaluates f at x in [0, Radius].
func (f FilterFunction) Eval(x float64) float64 {
	if f.Kind == kernel.Custom {
		if f.Weight == nil {
			return 0
		}
		return f.Weight(x)
	}
	return kernel.Weight(f.Kind, x, f.Radius, f.Params)
}

// Equal reports structural equality. Custom weight functions compare by
// identity.
func (f FilterFunction) Equal(o FilterFunction) bool {
	if f.Kind != o.Kind || f.Resizable != o.Resizable || f.Tunable != o.Tunable ||
		f.Radius != o.Radius || f.Params != o.Params {
		return false
	}
	return funcPtr(f.Weight) == funcPtr(o.Weight)
}

func funcPtr(fn func(float64) float64) uintptr {
	if fn == nil {
		return 0
	}
	return reflect.ValueOf(fn).Pointer()
}

func (f FilterFunction) validate() error {
	if !(f.Radius > 0) || math.IsInf(f.Radius, 0) {
		return fmt.Errorf("%w: filter radius %g", ErrInvalidParams, f.Radius)
	}
	for _, p := range f.Params {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("%w: filter param %g", ErrInvalidParams, p)
		}
	}
	if f.Kind == kernel.Custom && f.Weight == nil {
		return fmt.Errorf("%w: custom filter without weight function", ErrInvalidParams)
	}
	return nil
}

// FilterConfig is a kernel optionally multiplied by a window stretched over
// the kernel radius.
type FilterConfig struct {
	Kernel FilterFunction
	Window *FilterFunction
	// Clamp in [0, 1] suppresses negative lobes.
	Clamp float64
	// Blur stretches the kernel; values above 1 blur, below 1 sharpen.
	// Zero means no change.
	Blur float64
	// Taper flattens the center of the kernel over [0, Taper].
	Taper float64
	// Polar selects elliptic weighted averaging instead of separable
	// scaling.
	Polar bool
}

// NewFilterConfig validates c.
func NewFilterConfig(c FilterConfig) (FilterConfig, error) {
	if err := c.Kernel.validate(); err != nil {
		return FilterConfig{}, err
	}
	if c.Window != nil {
		if err := c.Window.validate(); err != nil {
			return FilterConfig{}, err
		}
		w := *c.Window
		c.Window = &w
	}
	for _, v := range []float64{c.Clamp, c.Blur, c.Taper} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return FilterConfig{}, fmt.Errorf("%w: filter scalar %g", ErrInvalidParams, v)
		}
	}
	if c.Clamp > 1 || c.Taper >= c.Kernel.Radius {
		return FilterConfig{}, fmt.Errorf("%w: clamp %g, taper %g", ErrInvalidParams, c.Clamp, c.Taper)
	}
	return c, nil
}

// Equal reports structural equality, comparing windows by value.
func (c FilterConfig) Equal(o FilterConfig) bool {
	if !c.Kernel.Equal(o.Kernel) || c.Clamp != o.Clamp || c.Blur != o.Blur ||
		c.Taper != o.Taper || c.Polar != o.Polar {
		return false
	}
	if c.Window == nil || o.Window == nil {
		return c.Window == nil && o.Window == nil
	}
	return c.Window.Equal(*o.Window)
}

// Radius returns the support of the configured filter.
func (c FilterConfig) Radius() float64 {
	if c.Blur > 0 {
		return c.Kernel.Radius * c.Blur
	}
	return c.Kernel.Radius
}

// Sample evaluates the filter at x.
func (c FilterConfig) Sample(x float64) float64 {
	radius := c.Kernel.Radius
	x = math.Abs(x)

	kx := x
	if c.Blur > 0 {
		kx /= c.Blur
	}
	if kx <= c.Taper {
		kx = 0
	} else {
		kx = (kx - c.Taper) / (1 - c.Taper/radius)
	}
	if kx > radius {
		return 0
	}

	k := c.Kernel.Eval(kx)
	if c.Window != nil {
		wx := x / radius * c.Window.Radius
		k *= c.Window.Eval(math.Min(wx, c.Window.Radius))
	}
	if k < 0 {
		return (1 - c.Clamp) * k
	}
	return k
}

func windowed(f FilterFunction) *FilterFunction { return &f }

// Named filter configurations.
var (
	FilterSpline16 = FilterConfig{Kernel: FilterFunctionSpline16}
	FilterSpline36 = FilterConfig{Kernel: FilterFunctionSpline36}
	FilterSpline64 = FilterConfig{Kernel: FilterFunctionSpline64}
	FilterBox      = FilterConfig{Kernel: FilterFunctionBox}
	FilterTriangle = FilterConfig{Kernel: FilterFunctionTriangle}
	FilterGaussian = FilterConfig{Kernel: FilterFunctionGaussian}

	FilterSinc    = FilterConfig{Kernel: FilterFunctionSinc.WithRadius(3)}
	FilterLanczos = FilterConfig{Kernel: FilterFunctionSinc.WithRadius(3), Window: windowed(FilterFunctionSinc)}
	FilterGinseng = FilterConfig{Kernel: FilterFunctionSinc.WithRadius(3), Window: windowed(FilterFunctionJinc)}

	FilterEWAJinc    = FilterConfig{Kernel: FilterFunctionJinc.WithRadius(kernel.JincR3), Polar: true}
	FilterEWALanczos = FilterConfig{Kernel: FilterFunctionJinc.WithRadius(kernel.JincR3), Window: windowed(FilterFunctionJinc), Polar: true}
	FilterEWAGinseng = FilterConfig{Kernel: FilterFunctionJinc.WithRadius(kernel.JincR3), Window: windowed(FilterFunctionSinc), Polar: true}
	FilterEWAHann    = FilterConfig{Kernel: FilterFunctionJinc.WithRadius(kernel.JincR3), Window: windowed(FilterFunctionHann), Polar: true}
	FilterHaasnsoft  = FilterConfig{Kernel: FilterFunctionJinc.WithRadius(kernel.JincR3), Window: windowed(FilterFunctionHann), Blur: 1.11, Polar: true}
	FilterBicubic    = FilterConfig{Kernel: FilterFunctionBicubic}
	FilterCatmullRom = FilterConfig{Kernel: FilterFunctionBCSpline.WithParams(0, 0.5)}
	FilterMitchell   = FilterConfig{Kernel: FilterFunctionBCSpline.WithParams(1.0/3.0, 1.0/3.0)}
	FilterRobidoux   = FilterConfig{Kernel: FilterFunctionBCSpline.WithParams(0.3782, 0.3109)}

	FilterRobidouxSharp    = FilterConfig{Kernel: FilterFunctionBCSpline.WithParams(0.2620, 0.3690)}
	FilterEWARobidoux      = FilterConfig{Kernel: FilterFunctionBCSpline.WithParams(0.3782, 0.3109), Polar: true}
	FilterEWARobidouxSharp = FilterConfig{Kernel: FilterFunctionBCSpline.WithParams(0.2620, 0.3690), Polar: true}
)

// NamedFilterConfig is an entry of FilterPresets.
type NamedFilterConfig struct {
	Name        string
	Description string
	Config      FilterConfig
}

// FilterPresets lists the named filter configurations.
var FilterPresets = []NamedFilterConfig{
	{"spline16", "Spline (2 taps)", FilterSpline16},
	{"spline36", "Spline (3 taps)", FilterSpline36},
	{"spline64", "Spline (4 taps)", FilterSpline64},
	{"box", "Box (nearest)", FilterBox},
	{"triangle", "Triangle (bilinear)", FilterTriangle},
	{"gaussian", "Gaussian", FilterGaussian},
	{"sinc", "Sinc (unwindowed)", FilterSinc},
	{"lanczos", "Lanczos", FilterLanczos},
	{"ginseng", "Ginseng (Jinc-Sinc)", FilterGinseng},
	{"ewa_jinc", "EWA Jinc (unwindowed)", FilterEWAJinc},
	{"ewa_lanczos", "Jinc (EWA Lanczos)", FilterEWALanczos},
	{"ewa_ginseng", "EWA Ginseng", FilterEWAGinseng},
	{"ewa_hann", "EWA Hann", FilterEWAHann},
	{"haasnsoft", "HaasnSoft (blurred EWA Hann)", FilterHaasnsoft},
	{"bicubic", "Bicubic", FilterBicubic},
	{"catmull_rom", "Catmull-Rom", FilterCatmullRom},
	{"mitchell", "Mitchell-Netravali", FilterMitchell},
	{"robidoux", "Robidoux", FilterRobidoux},
	{"robidouxsharp", "RobidouxSharp", FilterRobidouxSharp},
	{"ewa_robidoux", "EWA Robidoux", FilterEWARobidoux},
	{"ewa_robidouxsharp", "EWA RobidouxSharp", FilterEWARobidouxSharp},
}

// FindFilterConfig looks a preset up by name.
func FindFilterConfig(name string) (FilterConfig, bool) {
	for _, p := range FilterPresets {
		if p.Name == name {
			return p.Config, true
		}
	}
	return FilterConfig{}, false
}

// FilterParams controls GenerateFilter.
type FilterParams struct {
	Config FilterConfig
	// LUTEntries is the number of sampled subpixel offsets (separable) or
	// radii (polar).
	LUTEntries int
	// FilterScale widens separable filters when downscaling. Zero means 1.
	FilterScale float64
	// Cutoff is the weight below which polar contributions are dropped.
	Cutoff float64
	// MaxRowSize limits separable rows. Zero means unlimited.
	MaxRowSize int
	// RowStrideAlign pads rows to a multiple of this many entries.
	RowStrideAlign int
}

// Filter is a sampled weight table.
type Filter struct {
	Params FilterParams
	// Radius is the support in source pixels.
	Radius float64
	// RadiusCutoff is the distance beyond which polar weights stay below
	// Params.Cutoff.
	RadiusCutoff float64
	// RowSize and RowStride describe separable rows. Zero for polar filters.
	RowSize   int
	RowStride int
	// Weights holds LUTEntries rows of RowStride weights (separable) or
	// LUTEntries radial weights (polar).
	Weights []float32
}

// GenerateFilter samples a filter into a lookup table.
func GenerateFilter(ctx *Context, p FilterParams) (*Filter, error) {
	cfg, err := NewFilterConfig(p.Config)
	if err != nil {
		return nil, stageError(StageFilter, err)
	}
	if p.LUTEntries < 2 {
		return nil, stageError(StageFilter, fmt.Errorf("%w: %d LUT entries", ErrInvalidParams, p.LUTEntries))
	}
	if math.IsNaN(p.FilterScale) || math.IsInf(p.FilterScale, 0) || p.FilterScale < 0 ||
		math.IsNaN(p.Cutoff) || p.Cutoff < 0 {
		return nil, stageError(StageFilter, fmt.Errorf("%w: scale %g, cutoff %g", ErrInvalidParams, p.FilterScale, p.Cutoff))
	}
	p.Config = cfg
	scale := p.FilterScale
	if scale == 0 {
		scale = 1
	}

	f := &Filter{Params: p, Radius: cfg.Radius()}
	if cfg.Polar {
		f.generatePolar()
	} else if err := f.generateSeparable(scale); err != nil {
		return nil, stageError(StageFilter, err)
	}

	logger(ctx).Debug("placebo: filter generated", "polar", cfg.Polar, "radius", f.Radius,
		"cutoff_radius", f.RadiusCutoff, "row_size", f.RowSize, "entries", p.LUTEntries)
	return f, nil
}

// MustGenerateFilter is like GenerateFilter but panics on error.
func MustGenerateFilter(ctx *Context, p FilterParams) *Filter {
	return must(GenerateFilter(ctx, p))
}

func (f *Filter) generatePolar() {
	n := f.Params.LUTEntries
	f.Weights = make([]float32, n)
	f.RadiusCutoff = f.Radius
	cut := -1
	for i := range n {
		x := f.Radius * float64(i) / float64(n-1)
		w := f.Params.Config.Sample(x)
		f.Weights[i] = float32(w)
		if math.Abs(w) > f.Params.Cutoff {
			cut = i
		}
	}
	cut = max(cut, 0)
	if f.Params.Cutoff > 0 && cut < n-1 {
		f.RadiusCutoff = f.Radius * float64(cut+1) / float64(n-1)
	}
}

func (f *Filter) generateSeparable(scale float64) error {
	size := 2 * int(math.Ceil(f.Radius*scale))
	if f.Params.MaxRowSize > 0 && size > f.Params.MaxRowSize {
		return fmt.Errorf("%w: filter row of %d taps exceeds %d", ErrInvalidParams, size, f.Params.MaxRowSize)
	}
	stride := size
	if a := f.Params.RowStrideAlign; a > 1 {
		stride = (size + a - 1) / a * a
	}
	f.RowSize, f.RowStride = size, stride

	n := f.Params.LUTEntries
	f.Weights = make([]float32, n*stride)
	half := size / 2
	for i := range n {
		off := float64(i) / float64(n-1)
		row := f.Weights[i*stride : i*stride+size]
		var sum float64
		ws := make([]float64, size)
		for j := range size {
			ws[j] = f.Params.Config.Sample((float64(j-(half-1)) - off) / scale)
			sum += ws[j]
		}
		for j := range size {
			if sum != 0 {
				ws[j] /= sum
			}
			row[j] = float32(ws[j])
		}
	}
	return nil
}

// Free releases the weight table. Using the filter afterwards is an error.
func (f *Filter) Free() {
	if f != nil {
		f.Weights = nil
	}
}

func (f *Filter) separableLUT() *raster.SeparableLUT {
	return &raster.SeparableLUT{
		RowSize:   f.RowSize,
		RowStride: f.RowStride,
		Entries:   f.Params.LUTEntries,
		Weights:   f.Weights,
	}
}

func (f *Filter) polarLUT() *raster.PolarLUT {
	return &raster.PolarLUT{
		Radius:  f.Radius,
		Cutoff:  f.RadiusCutoff,
		Entries: f.Params.LUTEntries,
		Weights: f.Weights,
	}
}

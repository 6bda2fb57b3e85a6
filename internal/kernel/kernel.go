// Package kernel evaluates the analytic resampling kernels used by the
// scaler: piecewise cubics, sinc family windows and the polar jinc family.
//
// Every weight function is defined for x in [0, radius] only; callers fold
// the argument with math.Abs and reject x beyond the radius themselves.
package kernel

import "math"

// ID identifies a built-in weight function.
type ID uint8

const (
	Custom ID = iota
	Box
	Triangle
	Hann
	Hamming
	Welch
	Kaiser
	Blackman
	Gaussian
	Sinc
	Jinc
	Sphinx
	BCSpline
	Bicubic
	Spline16
	Spline36
	Spline64
)

var idNames = [...]string{
	Custom:   "custom",
	Box:      "box",
	Triangle: "triangle",
	Hann:     "hann",
	Hamming:  "hamming",
	Welch:    "welch",
	Kaiser:   "kaiser",
	Blackman: "blackman",
	Gaussian: "gaussian",
	Sinc:     "sinc",
	Jinc:     "jinc",
	Sphinx:   "sphinx",
	BCSpline: "bcspline",
	Bicubic:  "bicubic",
	Spline16: "spline16",
	Spline36: "spline36",
	Spline64: "spline64",
}

func (id ID) String() string {
	if int(id) < len(idNames) {
		return idNames[id]
	}
	return "unknown"
}

// First zeros of the jinc function, used as natural radii.
const (
	JincR1 = 1.2196698912665045
	JincR3 = 3.2383154841662362
	JincR4 = 4.2410628637960699

	SphinxR1 = 1.4302966531242027
)

// Weight evaluates the function id at x with its current radius and
// tuning params. x must already be non-negative.
func Weight(id ID, x, radius float64, params [2]float64) float64 {
	switch id {
	case Box:
		return 1
	case Triangle:
		return 1 - x/radius
	case Hann:
		return 0.5 + 0.5*math.Cos(math.Pi*x)
	case Hamming:
		return 0.54 + 0.46*math.Cos(math.Pi*x)
	case Welch:
		return 1 - x*x
	case Kaiser:
		return kaiser(x, params[0])
	case Blackman:
		return blackman(x, params[0])
	case Gaussian:
		return math.Exp(-2 * x * x / params[0])
	case Sinc:
		return sinc(x)
	case Jinc:
		return jinc(x)
	case Sphinx:
		return sphinx(x)
	case BCSpline:
		return bcspline(x, params[0], params[1])
	case Bicubic:
		return bicubic(x)
	case Spline16:
		return spline16(x)
	case Spline36:
		return spline36(x)
	case Spline64:
		return spline64(x)
	default:
		return 0
	}
}

func sinc(x float64) float64 {
	if x < 1e-8 {
		return 1
	}
	x *= math.Pi
	return math.Sin(x) / x
}

func jinc(x float64) float64 {
	if x < 1e-8 {
		return 1
	}
	x *= math.Pi
	return 2 * math.J1(x) / x
}

func sphinx(x float64) float64 {
	if x < 1e-8 {
		return 1
	}
	x *= math.Pi
	return 3 * (math.Sin(x) - x*math.Cos(x)) / (x * x * x)
}

func kaiser(x, alpha float64) float64 {
	alpha = math.Max(alpha, 0)
	return besselI0(alpha*math.Sqrt(math.Max(1-x*x, 0))) / besselI0(alpha)
}

func blackman(x, a float64) float64 {
	a0 := (1 - a) / 2
	a2 := a / 2
	pix := math.Pi * x
	return a0 + 0.5*math.Cos(pix) + a2*math.Cos(2*pix)
}

// bcspline is the Mitchell-Netravali family, scaled so that f(0) = 1.
func bcspline(x, b, c float64) float64 {
	p0 := (6 - 2*b) / 6
	p2 := (-18 + 12*b + 6*c) / 6
	p3 := (12 - 9*b - 6*c) / 6
	q0 := (8*b + 24*c) / 6
	q1 := (-12*b - 48*c) / 6
	q2 := (6*b + 30*c) / 6
	q3 := (-b - 6*c) / 6

	scale := 1 / p0
	switch {
	case x < 1:
		return scale * (p0 + x*x*(p2+x*p3))
	case x < 2:
		return scale * (q0 + x*(q1+x*(q2+x*q3)))
	}
	return 0
}

func pow3(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return x * x * x
}

func bicubic(x float64) float64 {
	return (1.0 / 6.0) * (pow3(x+2) - 4*pow3(x+1) + 6*pow3(x) - 4*pow3(x-1))
}

func spline16(x float64) float64 {
	if x < 1 {
		return ((x-9.0/5.0)*x-1.0/5.0)*x + 1
	}
	x--
	return ((-1.0/3.0*x+4.0/5.0)*x - 7.0/15.0) * x
}

func spline36(x float64) float64 {
	switch {
	case x < 1:
		return ((13.0/11.0*x-453.0/209.0)*x-3.0/209.0)*x + 1
	case x < 2:
		x--
		return ((-6.0/11.0*x+270.0/209.0)*x - 156.0/209.0) * x
	}
	x -= 2
	return ((1.0/11.0*x-45.0/209.0)*x + 26.0/209.0) * x
}

func spline64(x float64) float64 {
	switch {
	case x < 1:
		return ((49.0/41.0*x-6387.0/2911.0)*x-3.0/2911.0)*x + 1
	case x < 2:
		x--
		return ((-24.0/41.0*x+4032.0/2911.0)*x - 2328.0/2911.0) * x
	case x < 3:
		x -= 2
		return ((6.0/41.0*x-1008.0/2911.0)*x + 582.0/2911.0) * x
	}
	x -= 3
	return ((-1.0/41.0*x+168.0/2911.0)*x - 97.0/2911.0) * x
}

// besselI0 is the zeroth order modified Bessel function of the first kind,
// summed until the terms stop contributing.
func besselI0(x float64) float64 {
	s := 1.0
	y := x * x / 4
	t := y
	for i := 2; t > 1e-12; i++ {
		s += t
		t *= y / float64(i*i)
	}
	return s
}

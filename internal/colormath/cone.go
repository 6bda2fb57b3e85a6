package colormath

// Cones is a bit set of photoreceptor types.
type Cones uint8

const (
	ConeL Cones = 1 << iota
	ConeM
	ConeS

	ConesNone Cones = 0
	ConesLM         = ConeL | ConeM
	ConesMS         = ConeM | ConeS
	ConesLS         = ConeL | ConeS
	ConesLMS        = ConeL | ConeM | ConeS
)

// xyzToLMS is the Hunt-Pointer-Estevez cone response matrix.
var xyzToLMS = Mat3{
	{0.4002, 0.7076, -0.0808},
	{-0.2263, 1.1653, 0.0457},
	{0, 0, 0.9182},
}

// ConeMatrix returns the linear RGB matrix simulating a deficiency of the
// given cones. strength 1 is normal vision and 0 is the complete absence of
// the affected cones; the affected responses are blended towards the mean
// of the remaining ones, relative to white, so white stays white.
func ConeMatrix(cones Cones, strength float64, p RawPrimaries) Mat3 {
	if cones == ConesNone || strength == 1 {
		return Identity
	}
	rgbToLMS := xyzToLMS.Mul(RGBToXYZ(p))
	white := rgbToLMS.Apply(Vec3{1, 1, 1})
	norm := Diag(Vec3{1 / white[0], 1 / white[1], 1 / white[2]}).Mul(rgbToLMS)

	var remaining []int
	for i := range 3 {
		if cones&(1<<i) == 0 {
			remaining = append(remaining, i)
		}
	}
	if len(remaining) == 0 {
		remaining = []int{0, 1, 2}
	}

	mix := Identity
	for i := range 3 {
		if cones&(1<<i) == 0 {
			continue
		}
		var row [3]float64
		row[i] = strength
		w := (1 - strength) / float64(len(remaining))
		for _, r := range remaining {
			row[r] += w
		}
		mix[i] = row
	}

	return norm.Invert().Mul(mix).Mul(norm)
}

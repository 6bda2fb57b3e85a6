package colormath

// System enumerates the supported color encodings.
type System int

const (
	SystemUnknown System = iota
	SystemBT601
	SystemBT709
	SystemSMPTE240M
	SystemBT2020NC
	SystemBT2020C
	SystemBT2100PQ
	SystemBT2100HLG
	SystemYCgCo
	SystemRGB
	SystemXYZ
	SystemCount
)

// IsYCbCrLike reports whether s carries luma and two chroma differences.
func (s System) IsYCbCrLike() bool {
	switch s {
	case SystemUnknown, SystemRGB, SystemXYZ:
		return false
	}
	return s > SystemUnknown && s < SystemCount
}

// IsICtCp reports whether s is one of the BT.2100 constant-intensity systems.
func (s System) IsICtCp() bool {
	return s == SystemBT2100PQ || s == SystemBT2100HLG
}

// lumaWeights returns Kr and Kb of a Y'CbCr system.
func lumaWeights(s System) (kr, kb float64) {
	switch s {
	case SystemBT601:
		return 0.299, 0.114
	case SystemSMPTE240M:
		return 0.2122, 0.0865
	case SystemBT2020NC, SystemBT2020C:
		return 0.2627, 0.0593
	default:
		return 0.2126, 0.0722
	}
}

// DecodeMatrix returns the matrix converting (Y, Cb, Cr) with chroma centred
// on zero into non-linear RGB. For ICtCp it converts to non-linear LMS.
func DecodeMatrix(s System) Mat3 {
	switch {
	case s == SystemYCgCo:
		return Mat3{
			{1, -1, 1},
			{1, 1, 0},
			{1, -1, -1},
		}
	case s.IsICtCp():
		return ictcpToLMS(s)
	case !s.IsYCbCrLike():
		return Identity
	}
	kr, kb := lumaWeights(s)
	kg := 1 - kr - kb
	return Mat3{
		{1, 0, 2 * (1 - kr)},
		{1, -2 * kb * (1 - kb) / kg, -2 * kr * (1 - kr) / kg},
		{1, 2 * (1 - kb), 0},
	}
}

// EncodeMatrix is the inverse of DecodeMatrix.
func EncodeMatrix(s System) Mat3 {
	return DecodeMatrix(s).Invert()
}

// ICtCp matrices from ITU-R BT.2100.
var (
	lmsFromICtCpPQ = Mat3{
		{2048.0 / 4096, 2048.0 / 4096, 0},
		{6610.0 / 4096, -13613.0 / 4096, 7003.0 / 4096},
		{17933.0 / 4096, -17390.0 / 4096, -543.0 / 4096},
	}.Invert()
	lmsFromICtCpHLG = Mat3{
		{2048.0 / 4096, 2048.0 / 4096, 0},
		{3625.0 / 4096, -7465.0 / 4096, 3840.0 / 4096},
		{9500.0 / 4096, -9212.0 / 4096, -288.0 / 4096},
	}.Invert()

	// BT2020RGBToLMS includes the 4% crosstalk of BT.2100.
	BT2020RGBToLMS = Mat3{
		{1688.0 / 4096, 2146.0 / 4096, 262.0 / 4096},
		{683.0 / 4096, 2951.0 / 4096, 462.0 / 4096},
		{99.0 / 4096, 309.0 / 4096, 3688.0 / 4096},
	}
	LMSToBT2020RGB = BT2020RGBToLMS.Invert()
)

func ictcpToLMS(s System) Mat3 {
	if s == SystemBT2100HLG {
		return lmsFromICtCpHLG
	}
	return lmsFromICtCpPQ
}

// Levels enumerates the signal ranges.
type Levels int

const (
	LevelsUnknown Levels = iota
	LevelsTV
	LevelsPC
)

// ExpandLevels maps a normalized (Y, C1, C2) sample to full range with
// chroma centred on zero. For RGB-like systems all three channels follow the
// luma rule.
func ExpandLevels(v Vec3, levels Levels, chroma bool) Vec3 {
	if levels == LevelsTV {
		v[0] = (v[0] - 16.0/255) * 255 / 219
		if chroma {
			v[1] = (v[1] - 128.0/255) * 255 / 224
			v[2] = (v[2] - 128.0/255) * 255 / 224
		} else {
			v[1] = (v[1] - 16.0/255) * 255 / 219
			v[2] = (v[2] - 16.0/255) * 255 / 219
		}
		return v
	}
	if chroma {
		v[1] -= 128.0 / 255
		v[2] -= 128.0 / 255
	}
	return v
}

// CompressLevels is the inverse of ExpandLevels.
func CompressLevels(v Vec3, levels Levels, chroma bool) Vec3 {
	if levels == LevelsTV {
		v[0] = v[0]*219/255 + 16.0/255
		if chroma {
			v[1] = v[1]*224/255 + 128.0/255
			v[2] = v[2]*224/255 + 128.0/255
		} else {
			v[1] = v[1]*219/255 + 16.0/255
			v[2] = v[2]*219/255 + 16.0/255
		}
		return v
	}
	if chroma {
		v[1] += 128.0 / 255
		v[2] += 128.0 / 255
	}
	return v
}

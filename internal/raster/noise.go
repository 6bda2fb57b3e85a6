package raster

// hash mixes the inputs with the splitmix64 finalizer.
func hash(a, b, c, d uint64) uint64 {
	x := a*0x9e3779b97f4a7c15 ^ b*0xbf58476d1ce4e5b9 ^ c*0x94d049bb133111eb ^ d
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// uniform maps a hash to [0, 1).
func uniform(h uint64) float64 {
	return float64(h>>11) / (1 << 53)
}

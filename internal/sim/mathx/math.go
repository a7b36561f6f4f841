package mathx

func FloorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func Mod(a, b int) int {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func AbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Chebyshev is the L∞ distance of (x, z) from the origin.
func Chebyshev(x, z int) int {
	ax := AbsInt(x)
	az := AbsInt(z)
	if ax > az {
		return ax
	}
	return az
}

// ZigZag folds signed ints onto the non-negative line: 0,-1,1,-2,2 → 0,1,2,3,4.
func ZigZag(n int) uint64 {
	if n >= 0 {
		return uint64(n) * 2
	}
	return uint64(-n)*2 - 1
}

// Szudzik pairs two non-negative ints into one. Injective while a and b fit in
// 32 bits, which covers every reachable chunk coordinate.
func Szudzik(a, b uint64) uint64 {
	if a >= b {
		return a*a + a + b
	}
	return a + b*b
}

// ChunkSeed derives a per-chunk seed from the world seed and a chunk
// coordinate: zigzag both axes, Szudzik-pair them, then run the splitmix64
// finalizer over the pair mixed with the world seed. The same (seed, cx, cz)
// always yields the same value, so chunks regenerate identically after unload.
func ChunkSeed(worldSeed int64, cx, cz int) uint64 {
	h := uint64(worldSeed)
	h ^= Szudzik(ZigZag(cx), ZigZag(cz))
	h = (h ^ (h >> 16)) * 0xbf58476d1ce4e5b9
	h = (h ^ (h >> 13)) * 0x94d049bb133111eb
	h ^= h >> 16
	return h
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func Hash2(seed int64, x, z int) uint64 {
	v := uint64(seed)
	v ^= uint64(uint32(x)) * 0x9e3779b97f4a7c15
	v ^= uint64(uint32(z)) * 0xbf58476d1ce4e5b9
	return mix64(v)
}

func Hash3(seed int64, x, y, z int) uint64 {
	v := uint64(seed)
	v ^= uint64(uint32(x)) * 0x9e3779b97f4a7c15
	v ^= uint64(uint32(y)) * 0xc2b2ae3d27d4eb4f
	v ^= uint64(uint32(z)) * 0xbf58476d1ce4e5b9
	return mix64(v)
}

// Hash01 maps (seed, x, z, purpose) to a float64 in [0, 1). Distinct purpose
// offsets give independent rolls for the same coordinate, so one decision about
// a chunk never correlates with another.
func Hash01(seed int64, x, z, purpose int) float64 {
	h := Hash3(seed, x, purpose, z)
	return float64(h>>11) / float64(1<<53)
}

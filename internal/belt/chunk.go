package belt

// ChunkPolicy sizes the per-tick position slice. Populations above
// HeavyThreshold use the heavy floor and divisor so their fractional chunk
// is smaller.
type ChunkPolicy struct {
	HeavyThreshold int
	HeavyFloor     int
	HeavyDivisor   int
	LightFloor     int
	LightDivisor   int
}

// DefaultChunkPolicy refreshes a heavy population every 12 ticks and a light
// one every 6.
var DefaultChunkPolicy = ChunkPolicy{
	HeavyThreshold: 40_000,
	HeavyFloor:     8_000,
	HeavyDivisor:   12,
	LightFloor:     12_000,
	LightDivisor:   6,
}

// ChunkSize returns min(n, max(floor, ⌈n/divisor⌉)).
func (cp ChunkPolicy) ChunkSize(n int) int {
	if n <= 0 {
		return 0
	}
	floor, div := cp.LightFloor, cp.LightDivisor
	if n > cp.HeavyThreshold {
		floor, div = cp.HeavyFloor, cp.HeavyDivisor
	}
	div = max(div, 1)
	return min(n, max(floor, (n+div-1)/div))
}

// Ticks returns how many ticks one full sweep of n members takes.
func (cp ChunkPolicy) Ticks(n int) int {
	c := cp.ChunkSize(n)
	if c == 0 {
		return 0
	}
	return (n + c - 1) / c
}

package sort

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDepthMonotonic(t *testing.T) {
	depths := []float32{
		float32(math.Inf(-1)),
		-3.4e38,
		-1e10,
		-100.5,
		-1,
		-1e-30,
		float32(math.Copysign(0, -1)),
		0,
		1e-30,
		0.5,
		1,
		3.75,
		1e10,
		3.4e38,
		float32(math.Inf(1)),
	}

	for i := 1; i < len(depths); i++ {
		a, b := EncodeDepth(depths[i-1]), EncodeDepth(depths[i])
		assert.Less(t, a, b, "keys must preserve ordering of %v < %v", depths[i-1], depths[i])
	}
}

func TestEncodeDepthRoundTrip(t *testing.T) {
	depths := []float32{0, -1, 1, -123.456, 987.654, 1e-20, -1e-20}
	for _, d := range depths {
		got := DecodeDepth(EncodeDepth(d))
		assert.Equal(t, math.Float32bits(d), math.Float32bits(got), "bit-exact round trip for %v", d)
	}
}

func TestEncodeDepthRoundTripFuzz(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		bits := rng.Uint32()
		d := math.Float32frombits(bits)
		if math.IsNaN(float64(d)) {
			continue
		}
		require.Equal(t, bits, math.Float32bits(DecodeDepth(EncodeDepth(d))))
	}
}

func TestEncodeDepthInjectiveOnSample(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	seen := make(map[uint32]float32, 10000)
	for i := 0; i < 10000; i++ {
		d := float32(rng.NormFloat64() * 100)
		key := EncodeDepth(d)
		if prev, ok := seen[key]; ok {
			require.Equal(t, math.Float32bits(prev), math.Float32bits(d))
		}
		seen[key] = d
	}
}

package loader

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/splat-go/engine/splat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSplatRecord encodes one compact-format record.
func buildSplatRecord(pos, scale [3]float32, color [4]byte, quat [4]byte) []byte {
	buf := make([]byte, splatRecordSize)
	for i, v := range pos {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	for i, v := range scale {
		binary.LittleEndian.PutUint32(buf[12+i*4:], math.Float32bits(v))
	}
	copy(buf[24:28], color[:])
	copy(buf[28:32], quat[:])
	return buf
}

func TestSplatBackendParsesRecord(t *testing.T) {
	record := buildSplatRecord(
		[3]float32{1, 2, 3},
		[3]float32{0.1, 0.2, 0.3},
		[4]byte{255, 128, 0, 204},
		[4]byte{255, 128, 128, 128}, // w = 0.9921875 ≈ 1, x = y = z = 0
	)

	splats, err := newSplatLoaderBackend().LoadReader(context.Background(), bytes.NewReader(record))
	require.NoError(t, err)
	require.Len(t, splats, 1)

	sp := splats[0]
	assert.Equal(t, float32(1), sp.PositionOpacity[0])
	assert.Equal(t, float32(2), sp.PositionOpacity[1])
	assert.Equal(t, float32(3), sp.PositionOpacity[2])
	assert.InDelta(t, 204.0/255.0, float64(sp.PositionOpacity[3]), 1e-6)
	assert.InDelta(t, 0.1, float64(sp.Scale[0]), 1e-6)
	assert.InDelta(t, 0.3, float64(sp.Scale[2]), 1e-6)

	// Scalar-first byte quaternion maps to (x, y, z, w) normalized.
	assert.InDelta(t, 0, float64(sp.Rotation[0]), 1e-6)
	assert.InDelta(t, 1, float64(sp.Rotation[3]), 1e-6)

	// The baked color inverts back to degree-0 harmonics: full red recovers
	// a positive coefficient, zero blue a negative one.
	perChannel := splat.SHCoeffCount / 3
	assert.InDelta(t, (1.0-0.5)/splat.SHC0, float64(sp.SH[0]), 1e-4)
	assert.InDelta(t, (128.0/255.0-0.5)/splat.SHC0, float64(sp.SH[perChannel]), 1e-4)
	assert.InDelta(t, (0.0-0.5)/splat.SHC0, float64(sp.SH[2*perChannel]), 1e-4)
	assert.Zero(t, sp.SH[1], "higher-order coefficients stay zero")
}

func TestSplatBackendTruncatedRecord(t *testing.T) {
	record := buildSplatRecord([3]float32{}, [3]float32{}, [4]byte{}, [4]byte{128, 128, 128, 128})
	_, err := newSplatLoaderBackend().LoadReader(context.Background(), bytes.NewReader(record[:20]))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated")
}

func TestSplatBackendEmptyStream(t *testing.T) {
	splats, err := newSplatLoaderBackend().LoadReader(context.Background(), bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Empty(t, splats)
}

func TestLoaderResolvesByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cloud.splat")
	record := buildSplatRecord([3]float32{5, 0, 0}, [3]float32{1, 1, 1}, [4]byte{0, 0, 0, 255}, [4]byte{255, 128, 128, 128})
	require.NoError(t, os.WriteFile(path, append(record, record...), 0o644))

	l := NewLoader()
	splats, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, splats, 2)
	assert.Equal(t, float32(5), splats[0].PositionOpacity[0])
}

func TestLoaderRejectsUnknownExtension(t *testing.T) {
	l := NewLoader()
	_, err := l.Load(context.Background(), "model.gltf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".gltf")
}

func TestLoaderCachesByPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cached.splat")
	record := buildSplatRecord([3]float32{1, 1, 1}, [3]float32{1, 1, 1}, [4]byte{0, 0, 0, 255}, [4]byte{255, 128, 128, 128})
	require.NoError(t, os.WriteFile(path, record, 0o644))

	l := NewLoader()
	first, err := l.Load(context.Background(), path)
	require.NoError(t, err)

	// Deleting the file proves the second load comes from the cache.
	require.NoError(t, os.Remove(path))
	second, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	l.Evict(path)
	_, err = l.Load(context.Background(), path)
	require.Error(t, err)
}

func TestLoaderGetAndPrepopulate(t *testing.T) {
	seeded := []splat.GPUSplat{{PositionOpacity: [4]float32{9, 9, 9, 1}}}
	l := NewLoader(WithSplats("seeded", seeded))
	assert.Equal(t, seeded, l.Get("seeded"))
	assert.Nil(t, l.Get("missing"))
}

func TestLoaderReaderUsesNamedCache(t *testing.T) {
	record := buildSplatRecord([3]float32{2, 0, 0}, [3]float32{1, 1, 1}, [4]byte{0, 0, 0, 255}, [4]byte{255, 128, 128, 128})

	l := NewLoader()
	splats, err := l.LoadReader(context.Background(), "stream", bytes.NewReader(record), BackendTypeSplat)
	require.NoError(t, err)
	require.Len(t, splats, 1)
	assert.Equal(t, splats, l.Get("stream"))
}

func TestLoaderSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "src.splat")
	record := buildSplatRecord([3]float32{7, 0, 0}, [3]float32{1, 1, 1}, [4]byte{0, 0, 0, 255}, [4]byte{255, 128, 128, 128})
	require.NoError(t, os.WriteFile(path, record, 0o644))

	l := NewLoader()
	src := l.Source(path)
	splats, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, splats, 1)
	assert.Equal(t, splats, l.Get(path), "source loads populate the loader cache")
}

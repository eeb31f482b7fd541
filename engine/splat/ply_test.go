package splat

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPLY assembles an in-memory binary little-endian PLY with the given
// vertex properties and per-vertex float rows.
func buildPLY(properties []string, rows [][]float32) []byte {
	var b bytes.Buffer
	b.WriteString("ply\n")
	b.WriteString("format binary_little_endian 1.0\n")
	fmt.Fprintf(&b, "element vertex %d\n", len(rows))
	for _, p := range properties {
		fmt.Fprintf(&b, "property float %s\n", p)
	}
	b.WriteString("end_header\n")
	for _, row := range rows {
		for _, v := range row {
			var scratch [4]byte
			binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(v))
			b.Write(scratch[:])
		}
	}
	return b.Bytes()
}

var trainerProperties = []string{
	"x", "y", "z",
	"f_dc_0", "f_dc_1", "f_dc_2",
	"opacity",
	"scale_0", "scale_1", "scale_2",
	"rot_0", "rot_1", "rot_2", "rot_3",
}

func TestParsePLY(t *testing.T) {
	data := buildPLY(trainerProperties, [][]float32{
		{
			1, 2, 3, // position
			0.4, 0.5, 0.6, // dc harmonics
			0, // logit opacity, sigmoid(0) = 0.5
			0, 0, 0, // log scales, exp(0) = 1
			2, 0, 0, 0, // unnormalized scalar-first quaternion
		},
	})

	splats, err := ParsePLY(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, splats, 1)

	sp := splats[0]
	assert.Equal(t, [4]float32{1, 2, 3, 0.5}, sp.PositionOpacity)
	assert.Equal(t, [4]float32{1, 1, 1, 0}, sp.Scale)
	// (2, 0, 0, 0) scalar-first normalizes to identity in (x, y, z, w) order.
	assert.Equal(t, [4]float32{0, 0, 0, 1}, sp.Rotation)

	// Channel-major harmonics: coefficient 0 of each channel holds f_dc_N.
	perChannel := SHCoeffCount / 3
	assert.Equal(t, float32(0.4), sp.SH[0])
	assert.Equal(t, float32(0.5), sp.SH[perChannel])
	assert.Equal(t, float32(0.6), sp.SH[2*perChannel])
}

func TestParsePLYHigherOrderHarmonics(t *testing.T) {
	perChannel := SHCoeffCount / 3
	restPerChannel := perChannel - 1

	props := []string{"x", "y", "z", "f_dc_0", "f_dc_1", "f_dc_2"}
	for i := 0; i < 3*restPerChannel; i++ {
		props = append(props, fmt.Sprintf("f_rest_%d", i))
	}
	props = append(props, "opacity", "scale_0", "scale_1", "scale_2",
		"rot_0", "rot_1", "rot_2", "rot_3")

	row := []float32{0, 0, 0, 0, 0, 0}
	for i := 0; i < 3*restPerChannel; i++ {
		row = append(row, float32(i))
	}
	row = append(row, 0, 0, 0, 0, 1, 0, 0, 0)

	splats, err := ParsePLY(context.Background(), bytes.NewReader(buildPLY(props, [][]float32{row})))
	require.NoError(t, err)
	require.Len(t, splats, 1)

	// f_rest is channel-major: channel c owns the contiguous block starting
	// at c * restPerChannel, landing at SH[c*perChannel + 1 + k].
	sp := splats[0]
	for c := 0; c < 3; c++ {
		for k := 0; k < restPerChannel; k++ {
			want := float32(c*restPerChannel + k)
			assert.Equal(t, want, sp.SH[c*perChannel+1+k], "channel %d coeff %d", c, k)
		}
	}
}

func TestParsePLYOpacityAndScaleActivations(t *testing.T) {
	data := buildPLY(trainerProperties, [][]float32{
		{0, 0, 0, 0, 0, 0, 2, -1, 0, 1, 1, 0, 0, 0},
	})

	splats, err := ParsePLY(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)

	sp := splats[0]
	assert.InDelta(t, 1.0/(1.0+math.Exp(-2)), float64(sp.PositionOpacity[3]), 1e-6)
	assert.InDelta(t, math.Exp(-1), float64(sp.Scale[0]), 1e-6)
	assert.InDelta(t, 1.0, float64(sp.Scale[1]), 1e-6)
	assert.InDelta(t, math.Exp(1), float64(sp.Scale[2]), 1e-6)
}

func TestParsePLYQuaternionNormalized(t *testing.T) {
	data := buildPLY(trainerProperties, [][]float32{
		{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 2, 2, 2, 2},
	})

	splats, err := ParsePLY(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)

	q := splats[0].Rotation
	assert.InDelta(t, 0.5, float64(q[0]), 1e-6)
	assert.InDelta(t, 0.5, float64(q[1]), 1e-6)
	assert.InDelta(t, 0.5, float64(q[2]), 1e-6)
	assert.InDelta(t, 0.5, float64(q[3]), 1e-6)
}

func TestParsePLYRejectsBadMagic(t *testing.T) {
	_, err := ParsePLY(context.Background(), strings.NewReader("obj\nwhatever\n"))
	require.Error(t, err)
}

func TestParsePLYRejectsASCIIFormat(t *testing.T) {
	src := "ply\nformat ascii 1.0\nelement vertex 0\nend_header\n"
	_, err := ParsePLY(context.Background(), strings.NewReader(src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format")
}

func TestParsePLYMissingRequiredProperty(t *testing.T) {
	data := buildPLY([]string{"x", "y", "z"}, nil)
	_, err := ParsePLY(context.Background(), bytes.NewReader(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opacity")
}

func TestParsePLYTruncatedData(t *testing.T) {
	data := buildPLY(trainerProperties, [][]float32{
		{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0},
	})
	// Claim two vertices but supply one row.
	data = bytes.Replace(data, []byte("element vertex 1"), []byte("element vertex 2"), 1)

	_, err := ParsePLY(context.Background(), bytes.NewReader(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated")
}

func TestParsePLYCancellation(t *testing.T) {
	rows := make([][]float32, 4)
	for i := range rows {
		rows[i] = []float32{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0}
	}
	data := buildPLY(trainerProperties, rows)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ParsePLY(ctx, bytes.NewReader(data))
	require.ErrorIs(t, err, context.Canceled)
}

package loader

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/Carmen-Shannon/splat-go/engine/splat"
)

// splatRecordSize is the fixed record size of the compact splat format:
// 3 x f32 position, 3 x f32 scale, 4 x u8 RGBA color, 4 x u8 quaternion.
const splatRecordSize = 32

// splatLoaderBackend parses the compact binary splat format used by web splat
// viewers. Colors are stored already activated (degree-0 only), so the base
// spherical-harmonic coefficient is recovered per channel and the higher-order
// coefficients stay zero.
type splatLoaderBackend struct{}

var _ loaderBackend = &splatLoaderBackend{}

func newSplatLoaderBackend() loaderBackend {
	return &splatLoaderBackend{}
}

func (b *splatLoaderBackend) Load(ctx context.Context, path string) ([]splat.GPUSplat, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open splat file: %w", err)
	}
	defer f.Close()
	return b.LoadReader(ctx, bufio.NewReaderSize(f, 1<<20))
}

func (b *splatLoaderBackend) LoadReader(ctx context.Context, r io.Reader) ([]splat.GPUSplat, error) {
	var splats []splat.GPUSplat
	row := make([]byte, splatRecordSize)
	perChannel := splat.SHCoeffCount / 3

	for i := 0; ; i++ {
		if i%65536 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if _, err := io.ReadFull(r, row); err != nil {
			if err == io.EOF {
				return splats, nil
			}
			return nil, fmt.Errorf("truncated splat record at index %d: %w", i, err)
		}

		var sp splat.GPUSplat
		sp.PositionOpacity = [4]float32{
			f32at(row, 0),
			f32at(row, 4),
			f32at(row, 8),
			float32(row[27]) / 255,
		}
		sp.Scale = [4]float32{f32at(row, 12), f32at(row, 16), f32at(row, 20), 0}

		for c := 0; c < 3; c++ {
			sp.SH[c*perChannel] = float32((float64(row[24+c])/255 - 0.5) / splat.SHC0)
		}

		// Quaternion bytes are (component * 128 + 128), scalar part first.
		q := [4]float32{
			(float32(row[29]) - 128) / 128,
			(float32(row[30]) - 128) / 128,
			(float32(row[31]) - 128) / 128,
			(float32(row[28]) - 128) / 128,
		}
		n := float32(math.Sqrt(float64(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])))
		if n > 0 {
			for j := range q {
				q[j] /= n
			}
		} else {
			q = [4]float32{0, 0, 0, 1}
		}
		sp.Rotation = q

		splats = append(splats, sp)
	}
}

func f32at(row []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(row[offset:]))
}

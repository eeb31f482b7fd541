package splat

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// plySource loads gaussian splat clouds from binary little-endian PLY files
// in the layout produced by standard 3D gaussian splatting trainers: position,
// f_dc_* and f_rest_* spherical-harmonic coefficients, logit opacity, log
// scales, and an unnormalized quaternion with the scalar part first.
type plySource struct {
	path string
}

var _ Source = &plySource{}

// NewPLYSource creates a Source that reads splats from the PLY file at path.
//
// Parameters:
//   - path: filesystem path to the .ply file
//
// Returns:
//   - Source: the PLY source
func NewPLYSource(path string) Source {
	return &plySource{path: path}
}

func (s *plySource) Load(ctx context.Context) ([]GPUSplat, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ply file: %w", err)
	}
	defer f.Close()
	return parsePLY(ctx, bufio.NewReaderSize(f, 1<<20))
}

// ParsePLY reads splats from a binary little-endian PLY stream in the standard
// gaussian splatting trainer layout.
//
// Parameters:
//   - ctx: context for cancellation during long parses
//   - r: the PLY stream
//
// Returns:
//   - []GPUSplat: the parsed splats
//   - error: an error if the stream is not a supported PLY file
func ParsePLY(ctx context.Context, r io.Reader) ([]GPUSplat, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReaderSize(r, 1<<20)
	}
	return parsePLY(ctx, br)
}

// plyHeader describes the vertex element of a parsed PLY header.
type plyHeader struct {
	count      int
	properties []string
}

func parsePLYHeader(r *bufio.Reader) (*plyHeader, error) {
	magic, err := r.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read ply magic: %w", err)
	}
	if strings.TrimSpace(magic) != "ply" {
		return nil, fmt.Errorf("not a ply file")
	}

	h := &plyHeader{count: -1}
	inVertex := false
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("unterminated ply header: %w", err)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "format":
			if len(fields) < 2 || fields[1] != "binary_little_endian" {
				return nil, fmt.Errorf("unsupported ply format %q", strings.TrimSpace(line))
			}
		case "element":
			if len(fields) == 3 && fields[1] == "vertex" {
				n, convErr := strconv.Atoi(fields[2])
				if convErr != nil {
					return nil, fmt.Errorf("bad vertex count %q: %w", fields[2], convErr)
				}
				h.count = n
				inVertex = true
			} else {
				inVertex = false
			}
		case "property":
			if !inVertex {
				continue
			}
			if len(fields) != 3 || fields[1] != "float" {
				return nil, fmt.Errorf("unsupported vertex property %q", strings.TrimSpace(line))
			}
			h.properties = append(h.properties, fields[2])
		case "end_header":
			if h.count < 0 {
				return nil, fmt.Errorf("ply header has no vertex element")
			}
			return h, nil
		}
	}
}

func parsePLY(ctx context.Context, r *bufio.Reader) ([]GPUSplat, error) {
	h, err := parsePLYHeader(r)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(h.properties))
	for i, name := range h.properties {
		index[name] = i
	}
	for _, required := range []string{"x", "y", "z", "opacity", "scale_0", "rot_0"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("ply vertex element missing property %q", required)
		}
	}

	stride := len(h.properties) * 4
	row := make([]byte, stride)
	values := make([]float32, len(h.properties))

	at := func(name string) float32 {
		i, ok := index[name]
		if !ok {
			return 0
		}
		return values[i]
	}

	splats := make([]GPUSplat, 0, h.count)
	for v := 0; v < h.count; v++ {
		// Large clouds take a while; honor cancellation between rows.
		if v%65536 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if _, err := io.ReadFull(r, row); err != nil {
			return nil, fmt.Errorf("truncated ply vertex data at row %d: %w", v, err)
		}
		for i := range values {
			values[i] = math.Float32frombits(binary.LittleEndian.Uint32(row[i*4:]))
		}

		var sp GPUSplat
		sp.PositionOpacity = [4]float32{at("x"), at("y"), at("z"), sigmoid(at("opacity"))}
		sp.Scale = [4]float32{expf(at("scale_0")), expf(at("scale_1")), expf(at("scale_2")), 0}

		// Stored with the scalar part first and unnormalized.
		q := [4]float32{at("rot_1"), at("rot_2"), at("rot_3"), at("rot_0")}
		n := float32(math.Sqrt(float64(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])))
		if n > 0 {
			for i := range q {
				q[i] /= n
			}
		} else {
			q = [4]float32{0, 0, 0, 1}
		}
		sp.Rotation = q

		// Channel-major harmonics: 16 coefficients per channel, degree 0
		// first, then the f_rest block which is itself channel-major.
		perChannel := SHCoeffCount / 3
		for c := 0; c < 3; c++ {
			sp.SH[c*perChannel] = at(fmt.Sprintf("f_dc_%d", c))
			for k := 0; k < perChannel-1; k++ {
				sp.SH[c*perChannel+1+k] = at(fmt.Sprintf("f_rest_%d", c*(perChannel-1)+k))
			}
		}

		splats = append(splats, sp)
	}
	return splats, nil
}

func sigmoid(x float32) float32 {
	return float32(1.0 / (1.0 + math.Exp(-float64(x))))
}

func expf(x float32) float32 {
	return float32(math.Exp(float64(x)))
}

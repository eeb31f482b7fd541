package camera

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUViewUniformSource is the canonical WGSL definition of the ViewUniform struct.
// Matches GPUViewUniform layout exactly (224 bytes, uniform aligned).
//
//go:embed assets/view_uniform.wgsl
var GPUViewUniformSource string

// GPUViewUniform is the GPU-aligned per-frame view uniform shared by the sort
// kernels and the splat render shader.
// Matches the WGSL ViewUniform struct layout exactly (see GPUViewUniformSource).
// Size: 224 bytes (3 × mat4x4 + 2 × vec4, uniform aligned).
type GPUViewUniform struct {
	View           [16]float32 // offset 0: world-to-view matrix
	Projection     [16]float32 // offset 64: view-to-clip matrix
	ViewProjection [16]float32 // offset 128: combined world-to-clip matrix
	Position       [4]float32  // offset 192: camera world position, w unused
	Viewport       [4]float32  // offset 208: origin xy, size zw in pixels
}

// Size returns the size of the GPUViewUniform struct in bytes.
//
// Returns:
//   - int: The size of the struct in bytes.
func (g *GPUViewUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUViewUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 224-byte buffer ready for GPU upload.
func (g *GPUViewUniform) Marshal() []byte {
	buf := make([]byte, 224)
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.View[i]))
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.Projection[i]))
		binary.LittleEndian.PutUint32(buf[128+i*4:], math.Float32bits(g.ViewProjection[i]))
	}
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[192+i*4:], math.Float32bits(g.Position[i]))
		binary.LittleEndian.PutUint32(buf[208+i*4:], math.Float32bits(g.Viewport[i]))
	}
	return buf
}

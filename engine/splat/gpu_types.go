package splat

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/splat-go/common"
)

// SHCoeffCount is the number of spherical-harmonic color coefficients carried
// per splat: 16 coefficients per color channel over 3 channels, covering
// harmonics up to degree 3.
const SHCoeffCount = 48

// SHC0 is the degree-0 spherical-harmonic basis constant. A splat's base color
// per channel is 0.5 + SHC0 * coefficient.
const SHC0 = 0.28209479177387814

// GPUSplatSource is the canonical WGSL definition of the Splat struct.
// Matches GPUSplat layout exactly (240 bytes, std430 aligned).
//
//go:embed assets/splat.wgsl
var GPUSplatSource string

// GPUSplat is the GPU-aligned representation of a single gaussian splat.
// Matches the WGSL Splat struct layout exactly (see GPUSplatSource).
// Size: 240 bytes (3 × vec4 + 48 × f32, std430 aligned).
type GPUSplat struct {
	PositionOpacity [4]float32            // offset 0: position (x, y, z) + opacity in w
	Rotation        [4]float32            // offset 16: unit quaternion (x, y, z, w)
	Scale           [4]float32            // offset 32: per-axis scale (x, y, z), w unused
	SH              [SHCoeffCount]float32 // offset 48: spherical-harmonic color coefficients
}

// Size returns the size of the GPUSplat struct in bytes.
//
// Returns:
//   - int: The size of the struct in bytes.
func (g *GPUSplat) Size() int {
	return int(unsafe.Sizeof(*g))
}

// MarshalSplats serializes a slice of splats into a byte buffer suitable for
// GPU upload. The struct is plain float32 throughout, so the slice memory is
// reinterpreted directly rather than encoded field by field.
//
// Parameters:
//   - splats: the splats to serialize
//
// Returns:
//   - []byte: buffer of len(splats) * 240 bytes ready for GPU upload
func MarshalSplats(splats []GPUSplat) []byte {
	return common.SliceToBytes(splats)
}

// GPUCloudUniformSource is the canonical WGSL definition of the CloudUniform struct.
// Matches GPUCloudUniform layout exactly (80 bytes, uniform aligned).
//
//go:embed assets/cloud_uniform.wgsl
var GPUCloudUniformSource string

// GPUCloudUniform is the GPU-aligned per-cloud uniform consumed by both the
// sort kernels and the render shader.
// Matches the WGSL CloudUniform struct layout exactly (see GPUCloudUniformSource).
// Size: 80 bytes (mat4x4 + f32 + u32 + 2 × pad, uniform aligned).
type GPUCloudUniform struct {
	Transform   [16]float32 // offset 0: cloud-to-world transform (mat4x4<f32>)
	GlobalScale float32     // offset 64: uniform scale applied to every splat
	Count       uint32      // offset 68: splat count
	_pad0       uint32      // offset 72: struct tail pad to 16-byte alignment
	_pad1       uint32      // offset 76
}

// Size returns the size of the GPUCloudUniform struct in bytes.
//
// Returns:
//   - int: The size of the struct in bytes.
func (g *GPUCloudUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUCloudUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 80-byte buffer ready for GPU upload.
func (g *GPUCloudUniform) Marshal() []byte {
	buf := make([]byte, 80)
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(g.Transform[i]))
	}
	binary.LittleEndian.PutUint32(buf[64:68], math.Float32bits(g.GlobalScale))
	binary.LittleEndian.PutUint32(buf[68:72], g.Count)
	return buf
}

// GPUDrawIndirectArgs is the GPU-aligned argument block for an indirect,
// non-indexed draw call. Instanced quads need four vertices and one instance
// per splat.
// Size: 16 bytes (4 × u32).
type GPUDrawIndirectArgs struct {
	VertexCount   uint32 // offset 0: vertices per instance, always 4 for splat quads
	InstanceCount uint32 // offset 4: instances to draw
	FirstVertex   uint32 // offset 8
	FirstInstance uint32 // offset 12
}

// NewDrawIndirectArgs builds the argument block for a cloud of count splats.
//
// Parameters:
//   - count: the cloud's splat count
//
// Returns:
//   - GPUDrawIndirectArgs: quad args with one instance per splat
func NewDrawIndirectArgs(count uint32) GPUDrawIndirectArgs {
	return GPUDrawIndirectArgs{
		VertexCount:   4,
		InstanceCount: count,
	}
}

// Size returns the size of the GPUDrawIndirectArgs struct in bytes.
//
// Returns:
//   - int: The size of the struct in bytes.
func (g *GPUDrawIndirectArgs) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUDrawIndirectArgs struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload.
func (g *GPUDrawIndirectArgs) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], g.VertexCount)
	binary.LittleEndian.PutUint32(buf[4:8], g.InstanceCount)
	binary.LittleEndian.PutUint32(buf[8:12], g.FirstVertex)
	binary.LittleEndian.PutUint32(buf[12:16], g.FirstInstance)
	return buf
}

package sort

import "math"

// EncodeDepth converts a view-space depth float into a 32-bit key whose
// unsigned ordering matches the numeric ordering of the input floats.
//
// The transform flips the sign bit for non-negative floats and all bits for
// negative floats, which maps the IEEE-754 layout onto a monotonic unsigned
// range. NaN inputs violate the sort engine's precondition and produce an
// unspecified key.
//
// The GPU-side kernel applies the identical transform (see radix_sort.wgsl);
// this host mirror exists for tests and debugging readbacks.
//
// Parameters:
//   - depth: view-space depth value (must not be NaN)
//
// Returns:
//   - uint32: key such that for non-NaN a < b, EncodeDepth(a) < EncodeDepth(b)
func EncodeDepth(depth float32) uint32 {
	bits := math.Float32bits(depth)
	if bits&0x8000_0000 != 0 {
		return ^bits
	}
	return bits | 0x8000_0000
}

// DecodeDepth inverts EncodeDepth, recovering the original float from a key.
//
// Parameters:
//   - key: value previously produced by EncodeDepth
//
// Returns:
//   - float32: the original depth
func DecodeDepth(key uint32) float32 {
	if key&0x8000_0000 != 0 {
		return math.Float32frombits(key &^ 0x8000_0000)
	}
	return math.Float32frombits(^key)
}

package sort

// The radix sort kernels and the host-side buffer sizing share one set of
// derived constants. The WGSL source receives them through the shader
// pre-processor (see engine/renderer/shader), so the compiled kernels can
// never disagree with the sizes computed here.

const (
	// RadixBitsPerDigit is the width of one sort digit in bits.
	RadixBitsPerDigit = 8

	// RadixDigitPlaces is the number of digit passes needed to cover a 32-bit key.
	RadixDigitPlaces = 32 / RadixBitsPerDigit

	// RadixBase is the number of distinct values one digit can take.
	RadixBase = 1 << RadixBitsPerDigit

	// EntriesPerInvocationA is the number of entries each invocation of the
	// histogram kernel consumes.
	EntriesPerInvocationA = 4

	// EntriesPerInvocationC is the number of entries each invocation of the
	// scatter kernel consumes.
	EntriesPerInvocationC = 4

	// WorkgroupInvocationsA is the workgroup size of the histogram kernel.
	// One invocation per (digit place, digit value) pair so the shared-memory
	// histogram can be flushed to the global histogram without a reduction loop.
	WorkgroupInvocationsA = RadixBase * RadixDigitPlaces

	// WorkgroupInvocationsC is the workgroup size of the scatter kernel,
	// one invocation per digit value.
	WorkgroupInvocationsC = RadixBase

	// WorkgroupEntriesA is the number of entries one histogram workgroup covers.
	WorkgroupEntriesA = WorkgroupInvocationsA * EntriesPerInvocationA

	// WorkgroupEntriesC is the number of entries one scatter tile covers.
	WorkgroupEntriesC = WorkgroupInvocationsC * EntriesPerInvocationC

	// EntrySize is the byte size of one sort entry: {key: u32, index: u32}.
	EntrySize = 8

	// SortingGlobalBufferSize is the byte size of the per-cloud sorting global
	// buffer: the digit histograms for all places, one tile assignment
	// counter per digit place, and the entry count.
	SortingGlobalBufferSize = RadixBase*RadixDigitPlaces*4 + 5*4

	// DefaultTemporalWindow is the default temporal coherence window length in
	// frames: one full resort per window, previous order reused otherwise.
	DefaultTemporalWindow = 16

	// MaxSHCoeffCount is the maximum number of spherical-harmonic color
	// coefficients carried per splat; shared with the render shader defines.
	MaxSHCoeffCount = 48
)

// MaxTileCount returns the number of scatter tiles needed to cover count
// entries. Each tile is one scatter workgroup processing WorkgroupEntriesC
// entries.
//
// Parameters:
//   - count: number of sort entries (the cloud's splat count)
//
// Returns:
//   - uint32: ceil(count / WorkgroupEntriesC)
func MaxTileCount(count int) uint32 {
	return uint32((count + WorkgroupEntriesC - 1) / WorkgroupEntriesC)
}

// StatusCountersBufferSize returns the byte size of the per-tile, per-digit
// status counter buffer used by the decoupled look-back: one u32 for every
// (tile, digit value) pair.
//
// Parameters:
//   - count: number of sort entries (the cloud's splat count)
//
// Returns:
//   - int: RadixBase * MaxTileCount(count) * 4 bytes
func StatusCountersBufferSize(count int) int {
	return RadixBase * int(MaxTileCount(count)) * 4
}

// Defines returns the pre-processor define set shared by the sort kernels and
// the splat render shader. The bound values must match the constants above;
// they are injected into WGSL before any pipeline is compiled.
//
// Returns:
//   - map[string]uint32: define name to value
func Defines() map[string]uint32 {
	return map[string]uint32{
		"RADIX_BASE":                RadixBase,
		"RADIX_BITS_PER_DIGIT":      RadixBitsPerDigit,
		"RADIX_DIGIT_PLACES":        RadixDigitPlaces,
		"ENTRIES_PER_INVOCATION_A":  EntriesPerInvocationA,
		"ENTRIES_PER_INVOCATION_C":  EntriesPerInvocationC,
		"WORKGROUP_INVOCATIONS_A":   WorkgroupInvocationsA,
		"WORKGROUP_INVOCATIONS_C":   WorkgroupInvocationsC,
		"WORKGROUP_ENTRIES_A":       WorkgroupEntriesA,
		"WORKGROUP_ENTRIES_C":       WorkgroupEntriesC,
		"TEMPORAL_SORT_WINDOW_SIZE": DefaultTemporalWindow,
		"MAX_SH_COEFF_COUNT":        MaxSHCoeffCount,
	}
}

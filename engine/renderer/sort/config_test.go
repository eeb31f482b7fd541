package sort

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaxTileCount(t *testing.T) {
	tests := []struct {
		count int
		want  uint32
	}{
		{count: 0, want: 0},
		{count: 1, want: 1},
		{count: WorkgroupEntriesC - 1, want: 1},
		{count: WorkgroupEntriesC, want: 1},
		{count: WorkgroupEntriesC + 1, want: 2},
		{count: 10_000_000, want: uint32((10_000_000 + WorkgroupEntriesC - 1) / WorkgroupEntriesC)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaxTileCount(tt.count), "count=%d", tt.count)
	}
}

func TestStatusCountersBufferSize(t *testing.T) {
	assert.Equal(t, 0, StatusCountersBufferSize(0))
	assert.Equal(t, RadixBase*4, StatusCountersBufferSize(1))
	assert.Equal(t, RadixBase*4, StatusCountersBufferSize(WorkgroupEntriesC))
	assert.Equal(t, 2*RadixBase*4, StatusCountersBufferSize(WorkgroupEntriesC+1))
}

func TestDerivedConstants(t *testing.T) {
	// Four 8-bit passes cover a 32-bit key.
	assert.Equal(t, 4, RadixDigitPlaces)
	assert.Equal(t, 256, RadixBase)
	assert.Equal(t, 1024, WorkgroupInvocationsA)
	assert.Equal(t, 4096, WorkgroupEntriesA)
	assert.Equal(t, 1024, WorkgroupEntriesC)

	// The sorting global carries one histogram per digit place, a per-place
	// tile assignment counter, and the entry count.
	assert.Equal(t, RadixBase*RadixDigitPlaces*4+(RadixDigitPlaces+1)*4, SortingGlobalBufferSize)
}

func TestDefinesMatchConstants(t *testing.T) {
	d := Defines()
	assert.Equal(t, uint32(RadixBase), d["RADIX_BASE"])
	assert.Equal(t, uint32(RadixBitsPerDigit), d["RADIX_BITS_PER_DIGIT"])
	assert.Equal(t, uint32(RadixDigitPlaces), d["RADIX_DIGIT_PLACES"])
	assert.Equal(t, uint32(EntriesPerInvocationA), d["ENTRIES_PER_INVOCATION_A"])
	assert.Equal(t, uint32(EntriesPerInvocationC), d["ENTRIES_PER_INVOCATION_C"])
	assert.Equal(t, uint32(WorkgroupInvocationsA), d["WORKGROUP_INVOCATIONS_A"])
	assert.Equal(t, uint32(WorkgroupInvocationsC), d["WORKGROUP_INVOCATIONS_C"])
	assert.Equal(t, uint32(WorkgroupEntriesA), d["WORKGROUP_ENTRIES_A"])
	assert.Equal(t, uint32(WorkgroupEntriesC), d["WORKGROUP_ENTRIES_C"])
	assert.Equal(t, uint32(MaxSHCoeffCount), d["MAX_SH_COEFF_COUNT"])
}

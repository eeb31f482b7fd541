package sort

import (
	"encoding/binary"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ActiveBuffer designates which half of a ping-pong entry buffer pair is
// "current" (valid, most recently written). The designation changes on every
// pass; callers must always ask rather than assume a fixed buffer.
type ActiveBuffer int

const (
	// BufferA is the first entry buffer of the pair.
	BufferA ActiveBuffer = iota

	// BufferB is the second entry buffer of the pair.
	BufferB
)

// Other returns the opposite buffer designation.
//
// Returns:
//   - ActiveBuffer: BufferB for BufferA and vice versa
func (a ActiveBuffer) Other() ActiveBuffer {
	if a == BufferA {
		return BufferB
	}
	return BufferA
}

// Buffers owns the GPU-resident sorting state for one splat cloud: the
// ping-pong entry buffer pair, the per-tile status counters for the decoupled
// look-back, the sorting global buffer (digit histograms plus bookkeeping
// words), and one tiny uniform buffer per digit place holding its pass index.
//
// All buffers are sized from the cloud's splat count at upload time and are
// reallocated together, and only, when that count changes.
type Buffers struct {
	entryA *wgpu.Buffer
	entryB *wgpu.Buffer

	statusCounters *wgpu.Buffer
	sortingGlobal  *wgpu.Buffer
	passIndex      [RadixDigitPlaces]*wgpu.Buffer

	capacity int
	current  ActiveBuffer

	// Reusable staging slices for the per-frame reset. wgpu's
	// queue.WriteBuffer copies the data before returning, so one slice
	// reused every frame is safe.
	stagingGlobal []byte
	stagingStatus []byte
}

// NewBuffers allocates the sorting buffers for a cloud of count splats.
// The entry buffers start with BufferA current, seeded with the identity
// ordering (key = index) so the cloud is drawable before its first sort.
//
// Parameters:
//   - device: the WebGPU device to allocate on
//   - queue: the queue used for the initial identity-order upload
//   - label: debug label prefix for the created buffers
//   - count: the cloud's splat count
//
// Returns:
//   - *Buffers: the allocated sorting state
//   - error: an error if any buffer allocation fails
func NewBuffers(device *wgpu.Device, queue *wgpu.Queue, label string, count int) (*Buffers, error) {
	b := &Buffers{
		capacity: count,
		current:  BufferA,
	}
	if err := b.allocate(device, queue, label, count); err != nil {
		b.Release()
		return nil, err
	}
	return b, nil
}

func (b *Buffers) allocate(device *wgpu.Device, queue *wgpu.Queue, label string, count int) error {
	entrySize := uint64(count * EntrySize)
	if entrySize == 0 {
		// Zero-splat clouds still get minimal bindable buffers.
		entrySize = EntrySize
	}

	var err error
	b.entryA, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Entry Buffer A",
		Size:  entrySize,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("failed to create entry buffer A: %w", err)
	}

	b.entryB, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Entry Buffer B",
		Size:  entrySize,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("failed to create entry buffer B: %w", err)
	}

	statusSize := uint64(StatusCountersBufferSize(count))
	if statusSize == 0 {
		statusSize = RadixBase * 4
	}
	b.statusCounters, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Status Counters",
		Size:  statusSize,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("failed to create status counters: %w", err)
	}

	b.sortingGlobal, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Sorting Global",
		Size:  SortingGlobalBufferSize,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("failed to create sorting global buffer: %w", err)
	}

	for place := 0; place < RadixDigitPlaces; place++ {
		b.passIndex[place], err = device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: fmt.Sprintf("%s Pass Index %d", label, place),
			Size:  4,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("failed to create pass index buffer %d: %w", place, err)
		}
		var idx [4]byte
		binary.LittleEndian.PutUint32(idx[:], uint32(place))
		queue.WriteBuffer(b.passIndex[place], 0, idx[:])
	}

	if count > 0 {
		identity := make([]Entry, count)
		for i := range identity {
			identity[i] = Entry{Key: uint32(i), Index: uint32(i)}
		}
		queue.WriteBuffer(b.entryA, 0, MarshalEntries(identity))
	}

	b.stagingGlobal = make([]byte, SortingGlobalBufferSize)
	b.stagingStatus = make([]byte, statusSize)
	return nil
}

// Current returns the designation of the buffer holding the valid, most
// recently written ordering.
//
// Returns:
//   - ActiveBuffer: the current buffer designation
func (b *Buffers) Current() ActiveBuffer {
	return b.current
}

// Entry returns the GPU buffer for a designation.
//
// Parameters:
//   - which: the buffer designation
//
// Returns:
//   - *wgpu.Buffer: the entry buffer
func (b *Buffers) Entry(which ActiveBuffer) *wgpu.Buffer {
	if which == BufferA {
		return b.entryA
	}
	return b.entryB
}

// Sorted returns the buffer holding the most recently finalized ordering.
// This is the stable accessor the bind-group orchestrator consumes; it is
// only meaningful between sort invocations, never mid-pass.
//
// Returns:
//   - *wgpu.Buffer: the current entry buffer
func (b *Buffers) Sorted() *wgpu.Buffer {
	return b.Entry(b.current)
}

// Flip swaps the current designation after one completed pass.
func (b *Buffers) Flip() {
	b.current = b.current.Other()
}

// StatusCounters returns the per-tile, per-digit look-back counter buffer.
//
// Returns:
//   - *wgpu.Buffer: the status counter buffer
func (b *Buffers) StatusCounters() *wgpu.Buffer {
	return b.statusCounters
}

// SortingGlobal returns the sorting global buffer (digit histograms plus
// assignment-counter and entry-count words).
//
// Returns:
//   - *wgpu.Buffer: the sorting global buffer
func (b *Buffers) SortingGlobal() *wgpu.Buffer {
	return b.sortingGlobal
}

// PassIndex returns the 4-byte uniform buffer holding the given digit place.
//
// Parameters:
//   - place: the digit place in [0, RadixDigitPlaces)
//
// Returns:
//   - *wgpu.Buffer: the pass index uniform buffer
func (b *Buffers) PassIndex(place int) *wgpu.Buffer {
	return b.passIndex[place]
}

// Capacity returns the splat count these buffers were sized for.
//
// Returns:
//   - int: the entry capacity
func (b *Buffers) Capacity() int {
	return b.capacity
}

// StageReset enqueues the per-frame reset of the sorting state: histograms,
// assignment counters and status counters zeroed, entry count rewritten. One
// reset covers all four digit places of the frame; scatter passes tag their
// published status counters with a per-pass epoch in the flag bits, so a
// value written by an earlier pass of the same frame is never observed as
// ready by a later one.
//
// Must be called before the frame's command buffer is submitted; wgpu orders
// queue writes ahead of subsequently submitted command buffers.
//
// Parameters:
//   - queue: the queue to stage the writes on
func (b *Buffers) StageReset(queue *wgpu.Queue) {
	for i := range b.stagingGlobal {
		b.stagingGlobal[i] = 0
	}
	countOffset := RadixBase*RadixDigitPlaces*4 + RadixDigitPlaces*4
	binary.LittleEndian.PutUint32(b.stagingGlobal[countOffset:], uint32(b.capacity))
	queue.WriteBuffer(b.sortingGlobal, 0, b.stagingGlobal)

	for i := range b.stagingStatus {
		b.stagingStatus[i] = 0
	}
	queue.WriteBuffer(b.statusCounters, 0, b.stagingStatus)
}

// Release frees all GPU buffers held by this sorting state.
func (b *Buffers) Release() {
	if b.entryA != nil {
		b.entryA.Release()
		b.entryA = nil
	}
	if b.entryB != nil {
		b.entryB.Release()
		b.entryB = nil
	}
	if b.statusCounters != nil {
		b.statusCounters.Release()
		b.statusCounters = nil
	}
	if b.sortingGlobal != nil {
		b.sortingGlobal.Release()
		b.sortingGlobal = nil
	}
	for i, buf := range b.passIndex {
		if buf != nil {
			buf.Release()
			b.passIndex[i] = nil
		}
	}
}

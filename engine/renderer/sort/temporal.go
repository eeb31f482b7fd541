package sort

// DefaultMotionThreshold is the view-matrix element delta above which the
// previous frame's ordering is considered stale.
const DefaultMotionThreshold = 1e-4

// Window implements the temporal reuse policy for sort results. A full
// resort runs on the first frame of every window-sized interval, or sooner
// when the view matrix has moved past the motion threshold since the last
// sort; all other frames reuse the previous ordering, which stays valid and
// drawable because sorting is a presentation-order optimization, not a
// correctness requirement for splat data.
type Window struct {
	size      int
	threshold float32

	frame        int
	hasLastView  bool
	lastSortView [16]float32
}

// NewWindow builds a temporal window with the given interval. A size of zero
// or less falls back to DefaultTemporalWindow.
//
// Parameters:
//   - size: frames between unconditional resorts
//
// Returns:
//   - *Window: the temporal window
func NewWindow(size int) *Window {
	if size <= 0 {
		size = DefaultTemporalWindow
	}
	return &Window{
		size:      size,
		threshold: DefaultMotionThreshold,
	}
}

// SetMotionThreshold overrides the view-motion threshold.
//
// Parameters:
//   - threshold: maximum absolute view-matrix element delta tolerated before
//     forcing a resort
func (w *Window) SetMotionThreshold(threshold float32) {
	w.threshold = threshold
}

// ShouldSort reports whether this frame needs a full resort under the current
// view matrix, and advances the window by one frame. When it returns true the
// caller must encode the sort; the view is recorded as the last sorted view.
//
// Parameters:
//   - view: the frame's view matrix, column-major
//
// Returns:
//   - bool: true if a resort is required this frame
func (w *Window) ShouldSort(view [16]float32) bool {
	frame := w.frame
	w.frame = (w.frame + 1) % w.size

	if frame == 0 || !w.hasLastView {
		w.record(view)
		return true
	}

	var motion float32
	for i, v := range view {
		d := v - w.lastSortView[i]
		if d < 0 {
			d = -d
		}
		if d > motion {
			motion = d
		}
	}
	if motion > w.threshold {
		w.record(view)
		return true
	}
	return false
}

func (w *Window) record(view [16]float32) {
	w.lastSortView = view
	w.hasLastView = true
	w.frame = 1 % w.size
}

// Reset forces a resort on the next frame, discarding the recorded view.
// Called when the underlying splat data changes.
func (w *Window) Reset() {
	w.frame = 0
	w.hasLastView = false
}

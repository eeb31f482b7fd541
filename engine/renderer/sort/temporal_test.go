package sort

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func identityView() [16]float32 {
	var m [16]float32
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
	return m
}

func TestWindowSortsFirstFrame(t *testing.T) {
	w := NewWindow(8)
	assert.True(t, w.ShouldSort(identityView()))
}

func TestWindowStaticViewSortsOncePerWindow(t *testing.T) {
	w := NewWindow(4)
	view := identityView()

	sorts := 0
	for frame := 0; frame < 12; frame++ {
		if w.ShouldSort(view) {
			sorts++
		}
	}
	// One unconditional resort at the start of each 4-frame window.
	assert.Equal(t, 3, sorts)
}

func TestWindowMotionForcesResort(t *testing.T) {
	w := NewWindow(100)
	view := identityView()
	assert.True(t, w.ShouldSort(view))
	assert.False(t, w.ShouldSort(view))

	moved := view
	moved[12] += 0.5
	assert.True(t, w.ShouldSort(moved), "translation past the threshold must trigger a resort")

	// The moved view is now the recorded baseline.
	assert.False(t, w.ShouldSort(moved))
}

func TestWindowSubThresholdMotionReusesOrder(t *testing.T) {
	w := NewWindow(100)
	view := identityView()
	assert.True(t, w.ShouldSort(view))

	jitter := view
	jitter[12] += DefaultMotionThreshold / 2
	assert.False(t, w.ShouldSort(jitter), "jitter below the threshold must not trigger a resort")
}

func TestWindowMotionRestartsInterval(t *testing.T) {
	w := NewWindow(4)
	view := identityView()
	assert.True(t, w.ShouldSort(view)) // frame 0 of the window

	moved := view
	moved[14] += 1
	assert.True(t, w.ShouldSort(moved)) // motion resort restarts the window

	// Three quiet frames fit inside the restarted window.
	for i := 0; i < 3; i++ {
		assert.False(t, w.ShouldSort(moved), "quiet frame %d", i)
	}
	assert.True(t, w.ShouldSort(moved), "window rollover must resort")
}

func TestWindowReset(t *testing.T) {
	w := NewWindow(16)
	view := identityView()
	assert.True(t, w.ShouldSort(view))
	assert.False(t, w.ShouldSort(view))

	w.Reset()
	assert.True(t, w.ShouldSort(view), "reset must force a resort on the next frame")
}

func TestWindowCustomThreshold(t *testing.T) {
	w := NewWindow(100)
	w.SetMotionThreshold(1.0)
	view := identityView()
	assert.True(t, w.ShouldSort(view))

	moved := view
	moved[12] += 0.5
	assert.False(t, w.ShouldSort(moved), "motion under the raised threshold must not resort")
}

func TestWindowZeroSizeFallsBack(t *testing.T) {
	w := NewWindow(0)
	view := identityView()
	sorts := 0
	for frame := 0; frame < DefaultTemporalWindow*2; frame++ {
		if w.ShouldSort(view) {
			sorts++
		}
	}
	assert.Equal(t, 2, sorts)
}

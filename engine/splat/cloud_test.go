package splat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sourceFunc adapts a function to the Source interface.
type sourceFunc func(ctx context.Context) ([]GPUSplat, error)

func (f sourceFunc) Load(ctx context.Context) ([]GPUSplat, error) {
	return f(ctx)
}

func testSplats(n int) []GPUSplat {
	splats := make([]GPUSplat, n)
	for i := range splats {
		splats[i].PositionOpacity = [4]float32{float32(i), 0, 0, 1}
		splats[i].Rotation = [4]float32{0, 0, 0, 1}
		splats[i].Scale = [4]float32{1, 1, 1, 0}
	}
	return splats
}

func TestNewCloudDefaults(t *testing.T) {
	c := NewCloud("test")
	assert.Equal(t, "test", c.ID())
	assert.Equal(t, LoadStateLoading, c.State())
	assert.Nil(t, c.Splats())
	assert.Zero(t, c.Count())
	assert.Zero(t, c.Version())
	assert.Equal(t, float32(1.0), c.GlobalScale())

	id := c.Transform()
	assert.Equal(t, float32(1), id[0])
	assert.Equal(t, float32(1), id[15])
}

func TestNewCloudWithSplatsIsReady(t *testing.T) {
	c := NewCloud("ready", WithSplats(testSplats(3)))
	assert.Equal(t, LoadStateReady, c.State())
	assert.Equal(t, 3, c.Count())
	assert.Equal(t, uint64(1), c.Version())
}

func TestSetSplatsBumpsVersion(t *testing.T) {
	c := NewCloud("versioned")
	c.SetSplats(testSplats(2))
	assert.Equal(t, uint64(1), c.Version())
	c.SetSplats(testSplats(5))
	assert.Equal(t, uint64(2), c.Version())
	assert.Equal(t, 5, c.Count())
	assert.Equal(t, LoadStateReady, c.State())
}

func TestFail(t *testing.T) {
	c := NewCloud("broken")
	loadErr := errors.New("corrupt file")
	c.Fail(loadErr)
	assert.Equal(t, LoadStateFailed, c.State())
	assert.ErrorIs(t, c.Err(), loadErr)

	// A later successful load clears the failure.
	c.SetSplats(testSplats(1))
	assert.Equal(t, LoadStateReady, c.State())
	assert.NoError(t, c.Err())
}

func TestUniform(t *testing.T) {
	c := NewCloud("uniform", WithSplats(testSplats(7)), WithGlobalScale(2.5))
	var tf [16]float32
	tf[0], tf[5], tf[10], tf[15] = 1, 1, 1, 1
	tf[12] = 4 // translate x
	c.SetTransform(tf)

	u := c.Uniform()
	assert.Equal(t, uint32(7), u.Count)
	assert.Equal(t, float32(2.5), u.GlobalScale)
	assert.Equal(t, tf, u.Transform)
}

func TestCloudUniformMarshalLayout(t *testing.T) {
	u := GPUCloudUniform{GlobalScale: 1, Count: 9}
	u.Transform[0] = 1

	buf := u.Marshal()
	require.Len(t, buf, 80)
	assert.Equal(t, u.Size(), len(buf))
	// Count sits immediately after the transform and scale.
	assert.Equal(t, byte(9), buf[68])
}

func TestNewCloudFromSourceDeliversAsync(t *testing.T) {
	c := NewCloudFromSource(context.Background(), "async", sourceFunc(
		func(ctx context.Context) ([]GPUSplat, error) {
			return testSplats(4), nil
		},
	))

	require.Eventually(t, func() bool {
		return c.State() == LoadStateReady
	}, time.Second, time.Millisecond)
	assert.Equal(t, 4, c.Count())
}

func TestNewCloudFromSourceFailure(t *testing.T) {
	loadErr := errors.New("unreachable")
	c := NewCloudFromSource(context.Background(), "async-fail", sourceFunc(
		func(ctx context.Context) ([]GPUSplat, error) {
			return nil, loadErr
		},
	))

	require.Eventually(t, func() bool {
		return c.State() == LoadStateFailed
	}, time.Second, time.Millisecond)
	assert.ErrorIs(t, c.Err(), loadErr)
}

func TestMarshalSplatsLayout(t *testing.T) {
	splats := testSplats(2)
	buf := MarshalSplats(splats)
	require.Len(t, buf, 2*splats[0].Size())
	assert.Equal(t, 240, splats[0].Size())
}

func TestDrawIndirectArgs(t *testing.T) {
	args := NewDrawIndirectArgs(1234)
	assert.Equal(t, uint32(4), args.VertexCount)
	assert.Equal(t, uint32(1234), args.InstanceCount)

	buf := args.Marshal()
	require.Len(t, buf, 16)
	assert.Equal(t, byte(4), buf[0])
	assert.Equal(t, byte(1234%256), buf[4])
	assert.Equal(t, byte(1234/256), buf[5])
}

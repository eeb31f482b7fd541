package pipeline

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPipelineDefaults(t *testing.T) {
	p := NewPipeline("splats", PipelineTypeRender)

	assert.Equal(t, PipelineTypeRender, p.Type())
	assert.Equal(t, "splats", p.PipelineKey())
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleStrip, p.Topology())
	assert.Equal(t, wgpu.CullModeNone, p.CullMode())
	assert.True(t, p.BlendEnabled())

	// Reverse depth: splat quads test greater-or-equal against a depth
	// attachment cleared to 0 and never write depth themselves.
	assert.True(t, p.DepthTestEnabled())
	assert.False(t, p.DepthWriteEnabled())
	assert.Equal(t, wgpu.CompareFunctionGreaterEqual, p.DepthCompare())

	blend := p.BlendState()
	require.NotNil(t, blend)
	assert.Equal(t, wgpu.BlendFactorDstAlpha, blend.Color.SrcFactor)
	assert.Equal(t, wgpu.BlendFactorOne, blend.Color.DstFactor)
	assert.Equal(t, wgpu.BlendFactorZero, blend.Alpha.SrcFactor)
	assert.Equal(t, wgpu.BlendFactorOneMinusSrcAlpha, blend.Alpha.DstFactor)
}

func TestWithDepthCompare(t *testing.T) {
	p := NewPipeline("custom", PipelineTypeRender,
		WithDepthCompare(wgpu.CompareFunctionLess),
	)
	assert.Equal(t, wgpu.CompareFunctionLess, p.DepthCompare())
}

package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariantKeyFlags(t *testing.T) {
	assert.Equal(t, []string{"USE_AABB"}, VariantKey{}.Flags())
	assert.Equal(t, []string{"USE_OBB"}, VariantKey{BoundingShape: BoundingShapeOBB}.Flags())
	assert.Equal(t,
		[]string{"USE_AABB", "VISUALIZE_BOUNDING_BOX"},
		VariantKey{VisualizeBounds: true}.Flags())
	assert.Equal(t,
		[]string{"USE_OBB", "VISUALIZE_BOUNDING_BOX"},
		VariantKey{BoundingShape: BoundingShapeOBB, VisualizeBounds: true}.Flags())
}

func TestVariantKeyString(t *testing.T) {
	assert.Equal(t, "aabb", VariantKey{}.String())
	assert.Equal(t, "obb", VariantKey{BoundingShape: BoundingShapeOBB}.String())
	assert.Equal(t, "aabb+bounds", VariantKey{VisualizeBounds: true}.String())
	assert.Equal(t, "obb+bounds",
		VariantKey{BoundingShape: BoundingShapeOBB, VisualizeBounds: true}.String())
}

func TestSpecializerCompilesOncePerKey(t *testing.T) {
	compiles := 0
	s := NewSpecializer(func(key VariantKey) (Pipeline, error) {
		compiles++
		return NewPipeline("variant_"+key.String(), PipelineTypeRender), nil
	})

	key := VariantKey{BoundingShape: BoundingShapeOBB}
	first, err := s.Specialize(key)
	require.NoError(t, err)
	second, err := s.Specialize(key)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, compiles)
	assert.Equal(t, 1, s.Len())
}

func TestSpecializerDistinctKeys(t *testing.T) {
	s := NewSpecializer(func(key VariantKey) (Pipeline, error) {
		return NewPipeline("variant_"+key.String(), PipelineTypeRender), nil
	})

	a, err := s.Specialize(VariantKey{})
	require.NoError(t, err)
	b, err := s.Specialize(VariantKey{BoundingShape: BoundingShapeOBB})
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, 2, s.Len())
}

func TestSpecializerRetriesFailedKeys(t *testing.T) {
	fail := true
	compiles := 0
	s := NewSpecializer(func(key VariantKey) (Pipeline, error) {
		compiles++
		if fail {
			return nil, errors.New("shader rejected")
		}
		return NewPipeline("variant_"+key.String(), PipelineTypeRender), nil
	})

	_, err := s.Specialize(VariantKey{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aabb")
	assert.Equal(t, 0, s.Len(), "failed keys must not be cached")

	fail = false
	p, err := s.Specialize(VariantKey{})
	require.NoError(t, err)
	assert.NotNil(t, p)
	assert.Equal(t, 2, compiles)
}

package pipeline

import (
	"fmt"
	"sync"
)

// BoundingShape selects how the vertex shader reconstructs a splat's screen
// footprint.
type BoundingShape int

const (
	// BoundingShapeAABB uses an axis-aligned screen-space bounding quad.
	BoundingShapeAABB BoundingShape = iota

	// BoundingShapeOBB uses an oriented bounding quad aligned to the
	// projected covariance eigenvectors.
	BoundingShapeOBB
)

// VariantKey identifies one specialization of the splat render pipeline.
// Identical keys always map to the same compiled pipeline.
type VariantKey struct {
	BoundingShape   BoundingShape
	VisualizeBounds bool
}

// Flags returns the pre-processor flag names enabled by this variant.
//
// Returns:
//   - []string: define flags for the shader pre-processor
func (k VariantKey) Flags() []string {
	var flags []string
	switch k.BoundingShape {
	case BoundingShapeOBB:
		flags = append(flags, "USE_OBB")
	default:
		flags = append(flags, "USE_AABB")
	}
	if k.VisualizeBounds {
		flags = append(flags, "VISUALIZE_BOUNDING_BOX")
	}
	return flags
}

// String returns a stable pipeline key fragment for the variant.
//
// Returns:
//   - string: the key fragment
func (k VariantKey) String() string {
	shape := "aabb"
	if k.BoundingShape == BoundingShapeOBB {
		shape = "obb"
	}
	if k.VisualizeBounds {
		return shape + "+bounds"
	}
	return shape
}

// CompileFunc builds a ready Pipeline for a variant. The specializer calls it
// at most once per distinct key.
type CompileFunc func(key VariantKey) (Pipeline, error)

// Specializer caches compiled pipeline variants by key. Requesting the same
// key twice returns the already compiled pipeline; distinct keys compile
// distinct pipelines.
type Specializer struct {
	mu       *sync.Mutex
	compile  CompileFunc
	variants map[VariantKey]Pipeline
}

// NewSpecializer creates a Specializer around a compile callback.
//
// Parameters:
//   - compile: the callback that builds a pipeline for a new key
//
// Returns:
//   - *Specializer: the specializer
func NewSpecializer(compile CompileFunc) *Specializer {
	return &Specializer{
		mu:       &sync.Mutex{},
		compile:  compile,
		variants: make(map[VariantKey]Pipeline),
	}
}

// Specialize returns the pipeline for a key, compiling it on first use.
//
// Parameters:
//   - key: the variant key
//
// Returns:
//   - Pipeline: the compiled pipeline
//   - error: an error if compilation fails; failed keys are retried on the
//     next request
func (s *Specializer) Specialize(key VariantKey) (Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.variants[key]; ok {
		return p, nil
	}
	p, err := s.compile(key)
	if err != nil {
		return nil, fmt.Errorf("failed to specialize pipeline %q: %w", key.String(), err)
	}
	s.variants[key] = p
	return p, nil
}

// Len returns the number of compiled variants.
//
// Returns:
//   - int: the cache size
func (s *Specializer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.variants)
}

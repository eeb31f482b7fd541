package renderer

import (
	"github.com/Carmen-Shannon/splat-go/engine/renderer/pipeline"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithVariant sets the initial render pipeline variant. The default uses
// axis-aligned bounding quads without bounds visualization.
//
// Parameters:
//   - key: the variant to start with
//
// Returns:
//   - RendererBuilderOption: a function that applies the variant option to a renderer
func WithVariant(key pipeline.VariantKey) RendererBuilderOption {
	return func(r *renderer) {
		r.variant = key
	}
}

// WithTemporalWindow sets the number of frames a cloud's sorted ordering is
// reused before a scheduled re-sort, absent camera motion. Values <= 0 fall
// back to the default window size.
//
// Parameters:
//   - size: the window length in frames
//
// Returns:
//   - RendererBuilderOption: a function that applies the temporal window option to a renderer
func WithTemporalWindow(size int) RendererBuilderOption {
	return func(r *renderer) {
		r.temporalWindowSize = size
	}
}

// WithMotionThreshold sets the view matrix delta above which a cloud re-sorts
// immediately instead of waiting out its temporal window.
//
// Parameters:
//   - threshold: the maximum absolute per-element view matrix delta to tolerate
//
// Returns:
//   - RendererBuilderOption: a function that applies the motion threshold option to a renderer
func WithMotionThreshold(threshold float32) RendererBuilderOption {
	return func(r *renderer) {
		r.motionThreshold = threshold
	}
}

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithMSAA sets the multisample anti-aliasing sample count for the renderer.
// When not specified, the default is MSAA4x. Use MSAAOff to disable MSAA entirely.
// Higher values (MSAA8x, MSAA16x) are adapter-dependent and may not be supported
// by all hardware.
//
// Parameters:
//   - count: the MSAASampleCount to use (MSAAOff, MSAA4x, MSAA8x, or MSAA16x)
//
// Returns:
//   - RendererBuilderOption: a function that applies the MSAA option to a renderer
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingMSAA = &count
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe). Useful for running on machines without a GPU.
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

package scene

import (
	"github.com/Carmen-Shannon/splat-go/engine/splat"
)

// SceneBuilderOption is a functional option applied to a scene during construction via NewScene.
type SceneBuilderOption func(*scene)

// WithActive sets whether the scene starts active. Scenes are active by default.
//
// Parameters:
//   - active: true to render the scene each frame
//
// Returns:
//   - SceneBuilderOption: a function that applies the active option to a scene
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithClouds registers clouds with the scene at construction time.
//
// Parameters:
//   - clouds: the clouds to register
//
// Returns:
//   - SceneBuilderOption: a function that applies the clouds option to a scene
func WithClouds(clouds ...splat.Cloud) SceneBuilderOption {
	return func(s *scene) {
		for _, c := range clouds {
			if c != nil {
				s.addCloudLocked(c)
			}
		}
	}
}

// WithLoadWorkers sets the number of worker goroutines used for cloud asset
// loading via LoadCloud. Defaults to runtime.NumCPU()-1.
//
// Parameters:
//   - n: the number of workers (clamped to at least 1)
//
// Returns:
//   - SceneBuilderOption: a function that applies the worker count option to a scene
func WithLoadWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.loadWorkers = n
	}
}

// WithOrbitSpeed sets the radians-per-pixel sensitivity of the left-drag
// orbit control wired by AttachInput.
//
// Parameters:
//   - speed: radians of rotation per pixel of mouse movement
//
// Returns:
//   - SceneBuilderOption: a function that applies the orbit speed option to a scene
func WithOrbitSpeed(speed float32) SceneBuilderOption {
	return func(s *scene) {
		if speed > 0 {
			s.orbitSpeed = speed
		}
	}
}

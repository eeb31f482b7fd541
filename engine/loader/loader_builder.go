package loader

import (
	"github.com/Carmen-Shannon/splat-go/engine/splat"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithSplats is an option builder that pre-populates the cloud cache.
//
// Parameters:
//   - key: the cache key for the splats
//   - splats: the splats to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the cache option to a loader
func WithSplats(key string, splats []splat.GPUSplat) LoaderBuilderOption {
	return func(l *loader) {
		l.cache[key] = splats
	}
}

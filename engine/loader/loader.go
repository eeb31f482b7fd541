package loader

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/splat-go/engine/splat"
)

// LoaderBackendType identifies the splat file format backend to use.
type LoaderBackendType int

const (
	// BackendTypePLY selects the gaussian splatting trainer PLY backend.
	BackendTypePLY LoaderBackendType = iota
	// BackendTypeSplat selects the compact 32-byte-per-splat binary backend.
	BackendTypeSplat
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	cache map[string][]splat.GPUSplat

	backends map[LoaderBackendType]loaderBackend
}

// Loader defines the public-facing interface for loading and caching splat
// clouds from files. It abstracts the file format (PLY, compact splat binary)
// behind a generic backend and manages a cache of previously parsed clouds.
type Loader interface {
	// Load parses a splat cloud file and caches the result by path.
	// If the cloud is already cached, the cached splats are returned.
	// The backend is selected by file extension (.ply or .splat).
	//
	// Parameters:
	//   - ctx: context for cancellation during long parses
	//   - path: the file path to the cloud file
	//
	// Returns:
	//   - []splat.GPUSplat: the parsed splats
	//   - error: error if loading fails
	Load(ctx context.Context, path string) ([]splat.GPUSplat, error)

	// LoadReader parses a splat cloud from a reader stream and caches it by
	// the given name.
	//
	// Parameters:
	//   - ctx: context for cancellation during long parses
	//   - name: the cache key for the parsed cloud
	//   - r: the reader providing cloud data
	//   - format: the format backend to parse with
	//
	// Returns:
	//   - []splat.GPUSplat: the parsed splats
	//   - error: error if loading fails
	LoadReader(ctx context.Context, name string, r io.Reader, format LoaderBackendType) ([]splat.GPUSplat, error)

	// Source wraps a file path as a splat.Source that loads through this
	// loader's cache, suitable for scene.LoadCloud.
	//
	// Parameters:
	//   - path: the file path to the cloud file
	//
	// Returns:
	//   - splat.Source: a source backed by this loader
	Source(path string) splat.Source

	// Get retrieves cached splats by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - []splat.GPUSplat: the cached splats or nil
	Get(name string) []splat.GPUSplat

	// Evict removes a cloud from the cache.
	//
	// Parameters:
	//   - name: the cache key to evict
	Evict(name string)
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with all format backends registered
// and the provided options applied.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:    sync.RWMutex{},
		cache: make(map[string][]splat.GPUSplat),
		backends: map[LoaderBackendType]loaderBackend{
			BackendTypePLY:   newPLYLoaderBackend(),
			BackendTypeSplat: newSplatLoaderBackend(),
		},
	}

	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(ctx context.Context, path string) ([]splat.GPUSplat, error) {
	l.mu.RLock()
	if cached, ok := l.cache[path]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}

	splats, err := backend.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	l.mu.Lock()
	l.cache[path] = splats
	l.mu.Unlock()

	return splats, nil
}

func (l *loader) LoadReader(ctx context.Context, name string, r io.Reader, format LoaderBackendType) ([]splat.GPUSplat, error) {
	l.mu.RLock()
	if cached, ok := l.cache[name]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	backend, ok := l.backends[format]
	if !ok {
		return nil, fmt.Errorf("unknown loader backend %d", format)
	}

	splats, err := backend.LoadReader(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}

	l.mu.Lock()
	l.cache[name] = splats
	l.mu.Unlock()

	return splats, nil
}

func (l *loader) Source(path string) splat.Source {
	return &loaderSource{loader: l, path: path}
}

func (l *loader) Get(name string) []splat.GPUSplat {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cache[name]
}

func (l *loader) Evict(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cache, name)
}

// resolveBackend selects a loader backend based on the file extension.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".ply":
		return l.backends[BackendTypePLY], nil
	case ".splat":
		return l.backends[BackendTypeSplat], nil
	default:
		return nil, fmt.Errorf("unsupported cloud format: %s", ext)
	}
}

// loaderSource adapts a loader + path pair to the splat.Source interface so
// scenes can schedule cached file loads on their worker pools.
type loaderSource struct {
	loader *loader
	path   string
}

var _ splat.Source = &loaderSource{}

func (s *loaderSource) Load(ctx context.Context) ([]splat.GPUSplat, error) {
	return s.loader.Load(ctx, s.path)
}

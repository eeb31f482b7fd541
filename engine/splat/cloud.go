package splat

import (
	"context"
	"sync"
)

// LoadState tracks a cloud's availability for rendering.
type LoadState int

const (
	// LoadStateLoading indicates the cloud's splat data is not yet available.
	// Clouds in this state are skipped by the renderer without error.
	LoadStateLoading LoadState = iota

	// LoadStateReady indicates the splat data is resident and drawable.
	LoadStateReady

	// LoadStateFailed indicates the cloud's source failed to load.
	LoadStateFailed
)

// Source supplies splat data for a cloud, typically from a file or network
// asset. Load may block; it is always called off the render loop.
type Source interface {
	// Load produces the cloud's splats.
	//
	// Parameters:
	//   - ctx: cancellation context
	//
	// Returns:
	//   - []GPUSplat: the loaded splats
	//   - error: an error if the source could not be read
	Load(ctx context.Context) ([]GPUSplat, error)
}

// cloud is the implementation of the Cloud interface.
type cloud struct {
	mu *sync.Mutex

	id          string
	state       LoadState
	loadErr     error
	splats      []GPUSplat
	transform   [16]float32
	globalScale float32

	// version increments whenever the splat data changes, so the renderer
	// knows to re-upload and resize the cloud's GPU buffers.
	version uint64
}

// Cloud is a gaussian splat cloud asset. A cloud starts in LoadStateLoading
// when built from a Source and becomes drawable once the data arrives;
// renderers admit only ready clouds and skip the rest without error.
type Cloud interface {
	// ID retrieves the unique identifier for this cloud.
	//
	// Returns:
	//   - string: the cloud's unique id
	ID() string

	// State retrieves the cloud's current load state.
	//
	// Returns:
	//   - LoadState: LoadStateLoading, LoadStateReady, or LoadStateFailed
	State() LoadState

	// Err retrieves the load error, if the cloud's source failed.
	//
	// Returns:
	//   - error: the load error, or nil
	Err() error

	// Splats retrieves the cloud's splat data. The returned slice must not be
	// mutated; use SetSplats to replace the data.
	//
	// Returns:
	//   - []GPUSplat: the splat data, nil while loading
	Splats() []GPUSplat

	// Count retrieves the number of splats in the cloud.
	//
	// Returns:
	//   - int: the splat count, 0 while loading
	Count() int

	// SetSplats replaces the cloud's splat data, marks it ready, and bumps
	// the data version.
	//
	// Parameters:
	//   - splats: the new splat data
	SetSplats(splats []GPUSplat)

	// Fail marks the cloud as failed with the given load error.
	//
	// Parameters:
	//   - err: the load error
	Fail(err error)

	// Version retrieves the data version, incremented on every SetSplats.
	//
	// Returns:
	//   - uint64: the current data version
	Version() uint64

	// Transform retrieves the cloud-to-world transform.
	//
	// Returns:
	//   - [16]float32: the transform, column-major
	Transform() [16]float32

	// SetTransform sets the cloud-to-world transform.
	//
	// Parameters:
	//   - transform: the new transform, column-major
	SetTransform(transform [16]float32)

	// GlobalScale retrieves the uniform scale applied to every splat.
	//
	// Returns:
	//   - float32: the global scale
	GlobalScale() float32

	// SetGlobalScale sets the uniform scale applied to every splat.
	//
	// Parameters:
	//   - scale: the new global scale
	SetGlobalScale(scale float32)

	// Uniform builds the GPU uniform block for the cloud's current state.
	//
	// Returns:
	//   - GPUCloudUniform: the uniform block
	Uniform() GPUCloudUniform
}

var _ Cloud = &cloud{}

func (c *cloud) ID() string {
	return c.id
}

func (c *cloud) State() LoadState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *cloud) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

func (c *cloud) Splats() []GPUSplat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.splats
}

func (c *cloud) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.splats)
}

func (c *cloud) SetSplats(splats []GPUSplat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.splats = splats
	c.state = LoadStateReady
	c.loadErr = nil
	c.version++
}

func (c *cloud) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

func (c *cloud) Transform() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transform
}

func (c *cloud) SetTransform(transform [16]float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transform = transform
}

func (c *cloud) GlobalScale() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.globalScale
}

func (c *cloud) SetGlobalScale(scale float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.globalScale = scale
}

func (c *cloud) Uniform() GPUCloudUniform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return GPUCloudUniform{
		Transform:   c.transform,
		GlobalScale: c.globalScale,
		Count:       uint32(len(c.splats)),
	}
}

func (c *cloud) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = LoadStateFailed
	c.loadErr = err
}

package splat

import (
	"context"
	"sync"

	"github.com/Carmen-Shannon/splat-go/common"
)

// CloudBuilderOption is a functional option for configuring a Cloud via NewCloud.
type CloudBuilderOption func(*cloud)

// WithSplats is an option builder that sets the cloud's splat data directly,
// marking it ready immediately.
//
// Parameters:
//   - splats: the splat data
//
// Returns:
//   - CloudBuilderOption: a function that applies the splat data to a cloud
func WithSplats(splats []GPUSplat) CloudBuilderOption {
	return func(c *cloud) {
		c.splats = splats
		c.state = LoadStateReady
		c.version++
	}
}

// WithTransform is an option builder that sets the cloud-to-world transform.
//
// Parameters:
//   - transform: the transform, column-major
//
// Returns:
//   - CloudBuilderOption: a function that applies the transform to a cloud
func WithTransform(transform [16]float32) CloudBuilderOption {
	return func(c *cloud) {
		c.transform = transform
	}
}

// WithGlobalScale is an option builder that sets the uniform scale applied to
// every splat.
//
// Parameters:
//   - scale: the global scale
//
// Returns:
//   - CloudBuilderOption: a function that applies the scale to a cloud
func WithGlobalScale(scale float32) CloudBuilderOption {
	return func(c *cloud) {
		c.globalScale = scale
	}
}

// NewCloud creates a new Cloud with all specified options applied. Without
// WithSplats the cloud starts in LoadStateLoading; it becomes drawable when
// SetSplats is called or a source delivers via NewCloudFromSource.
//
// Parameters:
//   - id: a unique identifier for the cloud
//   - opts: configuration options
//
// Returns:
//   - Cloud: a new Cloud instance with the provided configuration
func NewCloud(id string, opts ...CloudBuilderOption) Cloud {
	c := &cloud{
		mu:          &sync.Mutex{},
		id:          id,
		state:       LoadStateLoading,
		transform:   common.Identity(),
		globalScale: 1.0,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewCloudFromSource creates a new Cloud and loads its splat data from the
// source on a background goroutine. The cloud is returned immediately in
// LoadStateLoading and transitions to ready or failed when the load resolves.
//
// Parameters:
//   - ctx: cancellation context passed to the source
//   - id: a unique identifier for the cloud
//   - source: the splat data source
//   - opts: configuration options
//
// Returns:
//   - Cloud: a new Cloud instance loading in the background
func NewCloudFromSource(ctx context.Context, id string, source Source, opts ...CloudBuilderOption) Cloud {
	c := NewCloud(id, opts...)
	go func() {
		splats, err := source.Load(ctx)
		if err != nil {
			c.Fail(err)
			return
		}
		c.SetSplats(splats)
	}()
	return c
}

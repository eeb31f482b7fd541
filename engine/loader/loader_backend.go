package loader

import (
	"context"
	"io"

	"github.com/Carmen-Shannon/splat-go/engine/splat"
)

// loaderBackend defines the generic interface for parsing splat clouds from
// files or streams. Concrete implementations (e.g., plyLoaderBackend) handle
// format-specific details.
type loaderBackend interface {
	// Load parses a full splat cloud from the given file path.
	//
	// Parameters:
	//   - ctx: context for cancellation during long parses
	//   - path: the file path to load
	//
	// Returns:
	//   - []splat.GPUSplat: the parsed splats
	//   - error: error if parsing fails
	Load(ctx context.Context, path string) ([]splat.GPUSplat, error)

	// LoadReader parses a splat cloud from a reader stream.
	//
	// Parameters:
	//   - ctx: context for cancellation during long parses
	//   - r: the reader providing cloud data
	//
	// Returns:
	//   - []splat.GPUSplat: the parsed splats
	//   - error: error if parsing fails
	LoadReader(ctx context.Context, r io.Reader) ([]splat.GPUSplat, error)
}

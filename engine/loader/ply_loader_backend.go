package loader

import (
	"context"
	"io"

	"github.com/Carmen-Shannon/splat-go/engine/splat"
)

// plyLoaderBackend parses binary little-endian PLY files in the layout
// produced by standard gaussian splatting trainers.
type plyLoaderBackend struct{}

var _ loaderBackend = &plyLoaderBackend{}

func newPLYLoaderBackend() loaderBackend {
	return &plyLoaderBackend{}
}

func (b *plyLoaderBackend) Load(ctx context.Context, path string) ([]splat.GPUSplat, error) {
	return splat.NewPLYSource(path).Load(ctx)
}

func (b *plyLoaderBackend) LoadReader(ctx context.Context, r io.Reader) ([]splat.GPUSplat, error) {
	return splat.ParsePLY(ctx, r)
}

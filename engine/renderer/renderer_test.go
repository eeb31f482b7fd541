package renderer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/splat-go/common"
	"github.com/Carmen-Shannon/splat-go/engine/camera"
	"github.com/Carmen-Shannon/splat-go/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/splat-go/engine/renderer/sort"
	"github.com/Carmen-Shannon/splat-go/engine/splat"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingBackend captures the ordered sequence of backend calls a frame
// makes without touching a GPU device.
type recordingBackend struct {
	events []string
}

var _ RendererBackend = &recordingBackend{}

func (b *recordingBackend) record(format string, args ...any) {
	b.events = append(b.events, fmt.Sprintf(format, args...))
}

func (b *recordingBackend) Device() *wgpu.Device               { return nil }
func (b *recordingBackend) Queue() *wgpu.Queue                 { return nil }
func (b *recordingBackend) Instance() *wgpu.Instance           { return nil }
func (b *recordingBackend) Adapter() *wgpu.Adapter             { return nil }
func (b *recordingBackend) Surface() *wgpu.Surface             { return nil }
func (b *recordingBackend) SurfaceFormat() wgpu.TextureFormat  { return wgpu.TextureFormatBGRA8Unorm }
func (b *recordingBackend) ConfigureSurface(width, height int) {}
func (b *recordingBackend) SetPresentMode(mode PresentMode)    {}

func (b *recordingBackend) CreateRenderPipeline(p pipeline.Pipeline, layouts []*wgpu.BindGroupLayout) error {
	b.record("CreateRenderPipeline:%s", p.PipelineKey())
	return nil
}

func (b *recordingBackend) CreateUniformBuffer(label string, size uint64) (*wgpu.Buffer, error) {
	b.record("CreateUniformBuffer:%d", size)
	return nil, nil
}

func (b *recordingBackend) CreateStorageBuffer(label string, data []byte) (*wgpu.Buffer, error) {
	b.record("CreateStorageBuffer:%d", len(data))
	return nil, nil
}

func (b *recordingBackend) CreateIndirectBuffer(label string, data []byte) (*wgpu.Buffer, error) {
	b.record("CreateIndirectBuffer:%d", len(data))
	return nil, nil
}

func (b *recordingBackend) CreateBindGroup(desc *wgpu.BindGroupDescriptor) (*wgpu.BindGroup, error) {
	b.record("CreateBindGroup:%s", desc.Label)
	return nil, nil
}

func (b *recordingBackend) WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) {
	b.record("WriteBuffer:len=%d,off=%d", len(data), offset)
}

func (b *recordingBackend) BeginComputeFrame() error {
	b.record("BeginComputeFrame")
	return nil
}

func (b *recordingBackend) ComputeEncoder() *wgpu.CommandEncoder { return nil }

func (b *recordingBackend) EndComputeFrame() {
	b.record("EndComputeFrame")
}

func (b *recordingBackend) BeginFrame() error {
	b.record("BeginFrame")
	return nil
}

func (b *recordingBackend) DrawCloudIndirect(draw CloudDraw) {
	b.record("DrawCloudIndirect")
}

func (b *recordingBackend) EndFrame() {
	b.record("EndFrame")
}

func (b *recordingBackend) Present() {
	b.record("Present")
}

// stubSorter satisfies sort.Sorter for frames that never encode sort work.
type stubSorter struct{}

var _ sort.Sorter = &stubSorter{}

func (s *stubSorter) ViewLayout() *wgpu.BindGroupLayout  { return nil }
func (s *stubSorter) CloudLayout() *wgpu.BindGroupLayout { return nil }
func (s *stubSorter) SplatLayout() *wgpu.BindGroupLayout { return nil }
func (s *stubSorter) CreateBindGroups(device *wgpu.Device, label string, buffers *sort.Buffers, drawIndirect *wgpu.Buffer) (*sort.BindGroups, error) {
	return nil, nil
}
func (s *stubSorter) Encode(encoder *wgpu.CommandEncoder, job *sort.Job) {}
func (s *stubSorter) Release()                                          {}

func newTestRenderer(backend *recordingBackend) *renderer {
	r := newRendererWithBackend(backend)
	r.sorter = &stubSorter{}
	r.specializer = pipeline.NewSpecializer(func(pipeline.VariantKey) (pipeline.Pipeline, error) {
		return pipeline.NewPipeline("test", pipeline.PipelineTypeRender), nil
	})
	return r
}

// warmStateFactory builds minimal cloud states whose temporal window has
// already consumed its initial sort, so frames under test stay draw-only.
func warmStateFactory(view camera.GPUViewUniform) func(c splat.Cloud, offset uint32) (*cloudState, error) {
	return func(c splat.Cloud, offset uint32) (*cloudState, error) {
		w := sort.NewWindow(4)
		w.ShouldSort(view.View)
		return &cloudState{
			id:            c.ID(),
			count:         c.Count(),
			version:       c.Version(),
			uniformOffset: offset,
			window:        w,
		}, nil
	}
}

func firstIndexWithPrefix(events []string, prefix string) int {
	for i, e := range events {
		if strings.HasPrefix(e, prefix) {
			return i
		}
	}
	return -1
}

func countEvents(events []string, name string) int {
	n := 0
	for _, e := range events {
		if e == name {
			n++
		}
	}
	return n
}

func TestRenderFrameSkipsLoadingClouds(t *testing.T) {
	b := &recordingBackend{}
	r := newTestRenderer(b)
	require.NoError(t, r.createCloudArena(1))

	view := camera.GPUViewUniform{View: common.Identity()}
	loading := splat.NewCloud("pending")
	require.Equal(t, splat.LoadStateLoading, loading.State())

	err := r.RenderFrame(view, []splat.Cloud{loading})
	require.NoError(t, err)

	// A loading cloud registers no GPU state and encodes no work.
	assert.Empty(t, r.clouds)
	assert.Zero(t, countEvents(b.events, "BeginComputeFrame"))
	assert.Zero(t, countEvents(b.events, "DrawCloudIndirect"))

	uniform := splat.GPUCloudUniform{}
	uniformWrite := fmt.Sprintf("WriteBuffer:len=%d", uniform.Size())
	assert.Equal(t, -1, firstIndexWithPrefix(b.events, uniformWrite))
}

func TestRenderFrameWritesUniformsAfterArenaGrowth(t *testing.T) {
	b := &recordingBackend{}
	r := newTestRenderer(b)
	view := camera.GPUViewUniform{View: common.Identity()}
	r.createState = warmStateFactory(view)

	// One-slot arena so registering the second cloud forces growth mid-sync.
	require.NoError(t, r.createCloudArena(1))

	first := splat.NewCloud("first", splat.WithSplats(make([]splat.GPUSplat, 1)))
	second := splat.NewCloud("second", splat.WithSplats(make([]splat.GPUSplat, 1)))
	require.NoError(t, r.RenderFrame(view, []splat.Cloud{first, second}))

	uniform := splat.GPUCloudUniform{}
	grownSize := fmt.Sprintf("CreateUniformBuffer:%d", 2*cloudUniformStride)
	uniformWrite := fmt.Sprintf("WriteBuffer:len=%d", uniform.Size())

	growth := firstIndexWithPrefix(b.events, grownSize)
	firstWrite := firstIndexWithPrefix(b.events, uniformWrite)
	require.GreaterOrEqual(t, growth, 0, "arena growth never happened")
	require.GreaterOrEqual(t, firstWrite, 0, "no cloud uniform was written")

	// Every uniform write must land in the grown buffer, so growth has to
	// precede the first write.
	assert.Less(t, growth, firstWrite)

	// Both clouds keep their slots and both draw.
	assert.Contains(t, b.events, fmt.Sprintf("WriteBuffer:len=%d,off=0", uniform.Size()))
	assert.Contains(t, b.events, fmt.Sprintf("WriteBuffer:len=%d,off=%d", uniform.Size(), cloudUniformStride))
	assert.Equal(t, 2, countEvents(b.events, "DrawCloudIndirect"))
}

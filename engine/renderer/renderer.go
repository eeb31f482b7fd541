package renderer

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/splat-go/engine/camera"
	"github.com/Carmen-Shannon/splat-go/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/splat-go/engine/renderer/shader"
	"github.com/Carmen-Shannon/splat-go/engine/renderer/sort"
	"github.com/Carmen-Shannon/splat-go/engine/splat"
	"github.com/Carmen-Shannon/splat-go/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// gaussianSource is the splat render shader. It draws one screen-space quad
// per sorted entry, instanced through the indirect argument buffer that the
// sort's extraction kernel fills each sorted frame.
//
//go:embed assets/gaussian.wgsl
var gaussianSource string

// cloudUniformStride is the spacing between per-cloud uniform slots in the
// shared dynamic-offset uniform buffer. Matches the WebGPU minimum uniform
// buffer offset alignment.
const cloudUniformStride = 256

// defaultCloudSlots is the initial number of per-cloud uniform slots; the
// arena grows when more clouds are registered.
const defaultCloudSlots = 16

// cloudState is the per-cloud GPU residency record: the splat storage buffer,
// sort entry buffers, bind groups, indirect draw arguments, and the temporal
// re-sort window.
type cloudState struct {
	id      string
	count   int
	version uint64

	uniformOffset uint32

	splatBuffer  *wgpu.Buffer
	drawIndirect *wgpu.Buffer
	buffers      *sort.Buffers
	groups       *sort.BindGroups

	splatGroup   *wgpu.BindGroup
	entriesGroup *wgpu.BindGroup

	window *sort.Window
}

func (s *cloudState) release() {
	if s.groups != nil {
		s.groups.Release()
		s.groups = nil
	}
	if s.entriesGroup != nil {
		s.entriesGroup.Release()
		s.entriesGroup = nil
	}
	if s.splatGroup != nil {
		s.splatGroup.Release()
		s.splatGroup = nil
	}
	if s.buffers != nil {
		s.buffers.Release()
		s.buffers = nil
	}
	if s.drawIndirect != nil {
		s.drawIndirect.Release()
		s.drawIndirect = nil
	}
	if s.splatBuffer != nil {
		s.splatBuffer.Release()
		s.splatBuffer = nil
	}
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend

	sorter      sort.Sorter
	specializer *pipeline.Specializer
	variant     pipeline.VariantKey

	entriesLayout *wgpu.BindGroupLayout

	viewBuffer *wgpu.Buffer
	viewGroup  *wgpu.BindGroup

	// Per-cloud uniforms live in one buffer bound once with a dynamic offset,
	// so switching clouds between draws is an offset change, not a rebind.
	cloudUniformBuffer *wgpu.Buffer
	cloudGroup         *wgpu.BindGroup
	cloudSlots         int
	nextSlot           int

	clouds map[string]*cloudState
	sorts  uint64

	// createState builds the GPU residency record for a newly registered or
	// rebuilt cloud. Defaults to createCloudState.
	createState func(c splat.Cloud, uniformOffset uint32) (*cloudState, error)

	temporalWindowSize int
	motionThreshold    float32

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
}

// Renderer owns all GPU state for view-dependent splat rendering: the radix
// sorter, the per-variant render pipelines, per-cloud buffers and bind
// groups, and the frame loop that re-sorts and draws each registered cloud.
type Renderer interface {
	// Variant returns the active render pipeline variant.
	//
	// Returns:
	//   - pipeline.VariantKey: the active variant
	Variant() pipeline.VariantKey

	// SetVariant switches the render pipeline variant used for subsequent
	// frames. The variant's pipeline is compiled on first use and cached.
	//
	// Parameters:
	//   - key: the variant to use
	SetVariant(key pipeline.VariantKey)

	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window or when the surface size should change.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	// A call to Resize is required after changing this for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// SyncCloud uploads or refreshes a cloud's GPU state. Clouds that are not
	// yet Ready are skipped without error and picked up on a later call once
	// loading finishes. A version change since the last sync reallocates the
	// splat buffer, sort buffers, and bind groups for the new contents.
	//
	// Parameters:
	//   - c: the cloud to sync
	//
	// Returns:
	//   - error: an error if GPU resource creation fails
	SyncCloud(c splat.Cloud) error

	// RemoveCloud releases all GPU state held for a cloud.
	//
	// Parameters:
	//   - id: the cloud's identifier
	RemoveCloud(id string)

	// RenderFrame encodes and submits one full frame: per-cloud uniform
	// updates, depth re-sorts for clouds whose temporal window triggers, and
	// one indirect draw per resident cloud, then presents the surface.
	// Clouds still loading are skipped this frame.
	//
	// Parameters:
	//   - view: the frame's view uniform
	//   - clouds: the clouds to render
	//
	// Returns:
	//   - error: an error if frame encoding fails
	RenderFrame(view camera.GPUViewUniform, clouds []splat.Cloud) error

	// Sorts returns the cumulative number of cloud sort dispatches encoded
	// since the renderer was created. Callers sampling this at intervals can
	// derive the temporal re-sort rate.
	//
	// Returns:
	//   - uint64: total sort dispatches so far
	Sorts() uint64

	// Release frees all GPU resources held by the renderer.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer instance with the specified backend type and window.
// The window provides the platform-specific surface descriptor for WebGPU surface creation.
// Panics if the sort kernels or shared GPU layouts cannot be created.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - win: the window providing the render surface
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) Renderer {
	// Options are applied before the backend is created so config flags
	// (e.g. forceFallbackAdapter) are available when requesting a GPU adapter.
	r := newRendererWithBackend(nil, options...)
	r.backendType = backendType

	msaa := MSAA4x // default
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend = newWGPURendererBackend(win.SurfaceDescriptor(), r.forceFallbackAdapter, msaa)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	r.backend.ConfigureSurface(win.Width(), win.Height())

	if err := r.initShared(); err != nil {
		panic(fmt.Sprintf("renderer: failed to initialize GPU state: %v", err))
	}

	return r
}

// newRendererWithBackend builds the renderer struct around the given backend.
// A nil backend is allowed; NewRenderer installs the real one after applying
// options. The shared GPU state is not created here.
//
// Parameters:
//   - backend: the backend to use, or nil to install one later
//   - options: functional options to configure the renderer
//
// Returns:
//   - *renderer: the renderer without shared GPU state
func newRendererWithBackend(backend RendererBackend, options ...RendererBuilderOption) *renderer {
	r := &renderer{
		mu:                 &sync.Mutex{},
		backend:            backend,
		clouds:             make(map[string]*cloudState),
		cloudSlots:         defaultCloudSlots,
		temporalWindowSize: sort.DefaultTemporalWindow,
		motionThreshold:    sort.DefaultMotionThreshold,
	}
	r.createState = r.createCloudState

	for _, opt := range options {
		opt(r)
	}
	return r
}

// initShared creates the sorter, the shared view and cloud uniform resources,
// and the pipeline specializer.
func (r *renderer) initShared() error {
	device := r.backend.Device()

	sortSource, err := r.preProcessor().Process(sort.RadixSortSource())
	if err != nil {
		return fmt.Errorf("failed to pre-process sort kernels: %w", err)
	}
	r.sorter, err = sort.NewSorter(device, sortSource)
	if err != nil {
		return err
	}

	// Sorted entries are read by the vertex stage only; the sort kernels bind
	// the entry buffers through their own layout.
	r.entriesLayout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Sorted Entries Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type: wgpu.BufferBindingTypeReadOnlyStorage,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create sorted entries layout: %w", err)
	}

	viewUniform := camera.GPUViewUniform{}
	r.viewBuffer, err = r.backend.CreateUniformBuffer("View Uniform", uint64(viewUniform.Size()))
	if err != nil {
		return fmt.Errorf("failed to create view uniform buffer: %w", err)
	}
	r.viewGroup, err = r.backend.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "View Bind Group",
		Layout: r.sorter.ViewLayout(),
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: 0,
				Buffer:  r.viewBuffer,
				Offset:  0,
				Size:    wgpu.WholeSize,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create view bind group: %w", err)
	}

	if err = r.createCloudArena(r.cloudSlots); err != nil {
		return err
	}

	r.specializer = pipeline.NewSpecializer(r.compileVariant)
	return nil
}

// preProcessor builds the shader pre-processor with the shared struct
// registry and the sort configuration defines.
func (r *renderer) preProcessor(flags ...string) shader.PreProcessor {
	return shader.NewPreProcessor(
		shader.WithDefines(sort.Defines()),
		shader.WithFlags(flags...),
		shader.WithStruct("view_uniform", camera.GPUViewUniformSource),
		shader.WithStruct("cloud_uniform", splat.GPUCloudUniformSource),
		shader.WithStruct("splat", splat.GPUSplatSource),
		shader.WithStruct("entry", sort.GPUEntrySource),
	)
}

// createCloudArena allocates the shared per-cloud uniform buffer with the
// given number of slots and its dynamic-offset bind group.
func (r *renderer) createCloudArena(slots int) error {
	buf, err := r.backend.CreateUniformBuffer("Cloud Uniform Arena", uint64(slots*cloudUniformStride))
	if err != nil {
		return fmt.Errorf("failed to create cloud uniform arena: %w", err)
	}

	uniform := splat.GPUCloudUniform{}
	group, err := r.backend.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Cloud Bind Group",
		Layout: r.sorter.CloudLayout(),
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: 0,
				Buffer:  buf,
				Offset:  0,
				Size:    uint64(uniform.Size()),
			},
		},
	})
	if err != nil {
		buf.Release()
		return fmt.Errorf("failed to create cloud bind group: %w", err)
	}

	if r.cloudGroup != nil {
		r.cloudGroup.Release()
	}
	if r.cloudUniformBuffer != nil {
		r.cloudUniformBuffer.Release()
	}
	r.cloudUniformBuffer = buf
	r.cloudGroup = group
	r.cloudSlots = slots
	return nil
}

// compileVariant is the specializer's compile callback: it pre-processes the
// splat shader with the variant's flags and creates the GPU render pipeline.
func (r *renderer) compileVariant(key pipeline.VariantKey) (pipeline.Pipeline, error) {
	source, err := r.preProcessor(key.Flags()...).Process(gaussianSource)
	if err != nil {
		return nil, fmt.Errorf("failed to pre-process splat shader: %w", err)
	}

	pipelineKey := "gaussian_" + key.String()
	vs := shader.NewShader(pipelineKey+"_vs", shader.ShaderTypeVertex, source, "vs_points", nil)
	fs := shader.NewShader(pipelineKey+"_fs", shader.ShaderTypeFragment, source, "fs_main", nil)

	p := pipeline.NewPipeline(pipelineKey, pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
	)

	layouts := []*wgpu.BindGroupLayout{
		r.sorter.ViewLayout(),
		r.sorter.CloudLayout(),
		r.sorter.SplatLayout(),
		r.entriesLayout,
	}
	if err = r.backend.CreateRenderPipeline(p, layouts); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *renderer) Variant() pipeline.VariantKey {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.variant
}

func (r *renderer) SetVariant(key pipeline.VariantKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variant = key
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) SyncCloud(c splat.Cloud) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.syncCloudLocked(c)
	return err
}

// syncCloudLocked brings a cloud's GPU state in line with its CPU contents.
// Returns nil state (no error) for clouds that are not ready or empty.
func (r *renderer) syncCloudLocked(c splat.Cloud) (*cloudState, error) {
	if c == nil || c.State() != splat.LoadStateReady || c.Count() == 0 {
		return nil, nil
	}

	id := c.ID()
	version := c.Version()
	if st, ok := r.clouds[id]; ok {
		if st.version == version {
			return st, nil
		}
		// Contents changed: rebuild buffers, keep the uniform slot.
		slot := st.uniformOffset
		st.release()
		delete(r.clouds, id)
		rebuilt, err := r.createState(c, slot)
		if err != nil {
			return nil, err
		}
		r.clouds[id] = rebuilt
		return rebuilt, nil
	}

	if r.nextSlot >= r.cloudSlots {
		if err := r.growCloudArena(); err != nil {
			return nil, err
		}
	}
	offset := uint32(r.nextSlot * cloudUniformStride)
	r.nextSlot++

	st, err := r.createState(c, offset)
	if err != nil {
		return nil, err
	}
	r.clouds[id] = st
	return st, nil
}

// growCloudArena doubles the uniform arena. Existing offsets stay valid since
// slots are assigned monotonically. The old buffer's contents are not copied;
// RenderFrame writes every cloud's uniform after all syncs, so the new buffer
// is fully populated before any pass binds it.
func (r *renderer) growCloudArena() error {
	return r.createCloudArena(r.cloudSlots * 2)
}

func (r *renderer) createCloudState(c splat.Cloud, uniformOffset uint32) (*cloudState, error) {
	device := r.backend.Device()
	queue := r.backend.Queue()
	id := c.ID()
	count := c.Count()

	splatBuffer, err := r.backend.CreateStorageBuffer(id+" Splat Buffer", splat.MarshalSplats(c.Splats()))
	if err != nil {
		return nil, fmt.Errorf("failed to create splat buffer for %q: %w", id, err)
	}

	args := splat.NewDrawIndirectArgs(uint32(count))
	drawIndirect, err := r.backend.CreateIndirectBuffer(id+" Draw Indirect", args.Marshal())
	if err != nil {
		splatBuffer.Release()
		return nil, fmt.Errorf("failed to create indirect buffer for %q: %w", id, err)
	}

	buffers, err := sort.NewBuffers(device, queue, id, count)
	if err != nil {
		drawIndirect.Release()
		splatBuffer.Release()
		return nil, fmt.Errorf("failed to create sort buffers for %q: %w", id, err)
	}

	groups, err := r.sorter.CreateBindGroups(device, id, buffers, drawIndirect)
	if err != nil {
		buffers.Release()
		drawIndirect.Release()
		splatBuffer.Release()
		return nil, fmt.Errorf("failed to create sort bind groups for %q: %w", id, err)
	}

	st := &cloudState{
		id:            id,
		count:         count,
		version:       c.Version(),
		uniformOffset: uniformOffset,
		splatBuffer:   splatBuffer,
		drawIndirect:  drawIndirect,
		buffers:       buffers,
		groups:        groups,
		window:        sort.NewWindow(r.temporalWindowSize),
	}
	st.window.SetMotionThreshold(r.motionThreshold)

	st.splatGroup, err = r.backend.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  id + " Splat Bind Group",
		Layout: r.sorter.SplatLayout(),
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: 0,
				Buffer:  splatBuffer,
				Offset:  0,
				Size:    wgpu.WholeSize,
			},
		},
	})
	if err != nil {
		st.release()
		return nil, fmt.Errorf("failed to create splat bind group for %q: %w", id, err)
	}

	// The final scatter pass always lands the sorted ordering in entry
	// buffer A, so the render pass binds A unconditionally.
	st.entriesGroup, err = r.backend.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  id + " Sorted Entries Bind Group",
		Layout: r.entriesLayout,
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: 0,
				Buffer:  buffers.Entry(sort.BufferA),
				Offset:  0,
				Size:    wgpu.WholeSize,
			},
		},
	})
	if err != nil {
		st.release()
		return nil, fmt.Errorf("failed to create entries bind group for %q: %w", id, err)
	}

	return st, nil
}

func (r *renderer) RemoveCloud(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st, ok := r.clouds[id]; ok {
		st.release()
		delete(r.clouds, id)
	}
}

func (r *renderer) RenderFrame(view camera.GPUViewUniform, clouds []splat.Cloud) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.backend.WriteBuffer(r.viewBuffer, 0, view.Marshal())

	type frameDraw struct {
		state    *cloudState
		cloud    splat.Cloud
		needSort bool
	}
	draws := make([]frameDraw, 0, len(clouds))

	for _, c := range clouds {
		st, err := r.syncCloudLocked(c)
		if err != nil {
			return err
		}
		if st == nil {
			continue
		}
		draws = append(draws, frameDraw{state: st, cloud: c})
	}

	// Syncing a new cloud can grow the uniform arena, which replaces the
	// arena buffer and bind group. Uniforms are written only after every
	// cloud is synced so each write lands in the buffer the frame binds.
	anySort := false
	for i := range draws {
		d := &draws[i]
		uniform := d.cloud.Uniform()
		r.backend.WriteBuffer(r.cloudUniformBuffer, uint64(d.state.uniformOffset), uniform.Marshal())

		d.needSort = d.state.window.ShouldSort(view.View)
		anySort = anySort || d.needSort
	}

	if anySort {
		if err := r.backend.BeginComputeFrame(); err != nil {
			return fmt.Errorf("failed to begin sort frame: %w", err)
		}
		encoder := r.backend.ComputeEncoder()
		queue := r.backend.Queue()
		for _, d := range draws {
			if !d.needSort {
				continue
			}
			d.state.buffers.StageReset(queue)
			r.sorts++
			r.sorter.Encode(encoder, &sort.Job{
				Count:       d.state.count,
				View:        r.viewGroup,
				Cloud:       r.cloudGroup,
				CloudOffset: d.state.uniformOffset,
				Splats:      d.state.splatGroup,
				Groups:      d.state.groups,
				Buffers:     d.state.buffers,
			})
		}
		r.backend.EndComputeFrame()
	}

	p, err := r.specializer.Specialize(r.variant)
	if err != nil {
		return err
	}
	renderPipeline := p.Pipeline().(*wgpu.RenderPipeline)

	if err = r.backend.BeginFrame(); err != nil {
		return err
	}
	for _, d := range draws {
		r.backend.DrawCloudIndirect(CloudDraw{
			Pipeline:    renderPipeline,
			View:        r.viewGroup,
			Cloud:       r.cloudGroup,
			CloudOffset: d.state.uniformOffset,
			Splats:      d.state.splatGroup,
			Entries:     d.state.entriesGroup,
			Indirect:    d.state.drawIndirect,
		})
	}
	r.backend.EndFrame()
	r.backend.Present()

	return nil
}

func (r *renderer) Sorts() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorts
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, st := range r.clouds {
		st.release()
		delete(r.clouds, id)
	}
	if r.cloudGroup != nil {
		r.cloudGroup.Release()
		r.cloudGroup = nil
	}
	if r.cloudUniformBuffer != nil {
		r.cloudUniformBuffer.Release()
		r.cloudUniformBuffer = nil
	}
	if r.viewGroup != nil {
		r.viewGroup.Release()
		r.viewGroup = nil
	}
	if r.viewBuffer != nil {
		r.viewBuffer.Release()
		r.viewBuffer = nil
	}
	if r.entriesLayout != nil {
		r.entriesLayout.Release()
		r.entriesLayout = nil
	}
	if r.sorter != nil {
		r.sorter.Release()
		r.sorter = nil
	}
}

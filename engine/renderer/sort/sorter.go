package sort

import (
	_ "embed"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/radix_sort.wgsl
var radixSortSource string

// GPUEntrySource is the WGSL struct mirroring Entry, registered with the
// shader pre-processor as "entry" so the sort kernels and the splat render
// shader share one definition.
//
//go:embed assets/entry.wgsl
var GPUEntrySource string

// RadixSortSource returns the raw WGSL source for the sort kernels, before
// define substitution.
//
// Returns:
//   - string: the embedded kernel source
func RadixSortSource() string {
	return radixSortSource
}

// Sorter owns the three radix sort compute pipelines and the bind group
// layouts they share with the render pipeline's depth-ordering inputs. One
// sorter serves any number of clouds; per-cloud state lives in Buffers and
// BindGroups.
type Sorter interface {
	// ViewLayout returns the bind group layout for the camera view uniform
	// (group 0).
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the view layout
	ViewLayout() *wgpu.BindGroupLayout

	// CloudLayout returns the bind group layout for the per-cloud uniform
	// (group 1).
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the cloud uniform layout
	CloudLayout() *wgpu.BindGroupLayout

	// SplatLayout returns the bind group layout for the read-only splat
	// storage buffer (group 2).
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the splat storage layout
	SplatLayout() *wgpu.BindGroupLayout

	// CreateBindGroups builds the per-cloud sort bind groups (group 3) over
	// the given buffers. Must be re-created whenever the buffers are resized,
	// because bind groups capture buffer identity.
	//
	// Parameters:
	//   - device: the WebGPU device
	//   - label: debug label prefix
	//   - buffers: the cloud's sorting buffers
	//   - drawIndirect: the cloud's indirect draw argument buffer
	//
	// Returns:
	//   - *BindGroups: the created bind groups
	//   - error: an error if bind group creation fails
	CreateBindGroups(device *wgpu.Device, label string, buffers *Buffers, drawIndirect *wgpu.Buffer) (*BindGroups, error)

	// Encode records the full four-pass sort for one cloud onto the encoder.
	// On return the cloud's Buffers report the finalized ordering via
	// Sorted().
	//
	// Parameters:
	//   - encoder: the frame's command encoder
	//   - job: the cloud's per-frame sort inputs
	Encode(encoder *wgpu.CommandEncoder, job *Job)

	// Release frees the pipelines and layouts.
	Release()
}

// Job carries the per-cloud, per-frame inputs for one sort encoding.
type Job struct {
	Count int

	View   *wgpu.BindGroup
	Cloud  *wgpu.BindGroup
	Splats *wgpu.BindGroup

	// CloudOffset is the dynamic offset of this cloud's uniform within the
	// shared cloud uniform buffer.
	CloudOffset uint32

	Groups  *BindGroups
	Buffers *Buffers
}

// BindGroups holds a cloud's group-3 bind groups. The extract group routes
// kernel output into entry buffer A; the scatter groups alternate direction
// per digit place so the final place lands the ordering back in buffer A.
type BindGroups struct {
	extract *wgpu.BindGroup
	scatter [RadixDigitPlaces]*wgpu.BindGroup
}

// Release frees the bind groups.
func (g *BindGroups) Release() {
	if g.extract != nil {
		g.extract.Release()
		g.extract = nil
	}
	for i, bg := range g.scatter {
		if bg != nil {
			bg.Release()
			g.scatter[i] = nil
		}
	}
}

type sorterImpl struct {
	viewLayout  *wgpu.BindGroupLayout
	cloudLayout *wgpu.BindGroupLayout
	splatLayout *wgpu.BindGroupLayout
	sortLayout  *wgpu.BindGroupLayout

	extract *wgpu.ComputePipeline
	prefix  *wgpu.ComputePipeline
	scatter *wgpu.ComputePipeline
}

var _ Sorter = &sorterImpl{}

// NewSorter compiles the three sort kernels from the given pre-processed WGSL
// source and builds the shared bind group layouts.
//
// Parameters:
//   - device: the WebGPU device
//   - source: the kernel source, already run through the shader pre-processor
//
// Returns:
//   - Sorter: the sorter
//   - error: an error if layout or pipeline creation fails
func NewSorter(device *wgpu.Device, source string) (Sorter, error) {
	s := &sorterImpl{}
	if err := s.createLayouts(device); err != nil {
		s.Release()
		return nil, err
	}
	if err := s.createPipelines(device, source); err != nil {
		s.Release()
		return nil, err
	}
	return s, nil
}

func (s *sorterImpl) createLayouts(device *wgpu.Device) error {
	var err error

	s.viewLayout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Sort View Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageCompute | wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type: wgpu.BufferBindingTypeUniform,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create view layout: %w", err)
	}

	s.cloudLayout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Sort Cloud Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageCompute | wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					HasDynamicOffset: true,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create cloud layout: %w", err)
	}

	s.splatLayout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Sort Splat Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageCompute | wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type: wgpu.BufferBindingTypeReadOnlyStorage,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create splat layout: %w", err)
	}

	s.sortLayout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Sort State Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{
					Type: wgpu.BufferBindingTypeUniform,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{
					Type: wgpu.BufferBindingTypeStorage,
				},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{
					Type: wgpu.BufferBindingTypeStorage,
				},
			},
			{
				Binding:    3,
				Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{
					Type: wgpu.BufferBindingTypeStorage,
				},
			},
			{
				Binding:    4,
				Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{
					Type: wgpu.BufferBindingTypeReadOnlyStorage,
				},
			},
			{
				Binding:    5,
				Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{
					Type: wgpu.BufferBindingTypeStorage,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create sort state layout: %w", err)
	}

	return nil
}

func (s *sorterImpl) createPipelines(device *wgpu.Device, source string) error {
	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "radix_sort",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create sort shader module: %w", err)
	}

	layout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label: "Radix Sort Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{
			s.viewLayout,
			s.cloudLayout,
			s.splatLayout,
			s.sortLayout,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create sort pipeline layout: %w", err)
	}

	entryPoints := []struct {
		name   string
		target **wgpu.ComputePipeline
	}{
		{"radix_sort_a", &s.extract},
		{"radix_sort_b", &s.prefix},
		{"radix_sort_c", &s.scatter},
	}
	for _, ep := range entryPoints {
		created, pipeErr := device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
			Label:  ep.name + " Compute Pipeline",
			Layout: layout,
			Compute: wgpu.ProgrammableStageDescriptor{
				Module:     module,
				EntryPoint: ep.name,
			},
		})
		if pipeErr != nil {
			return fmt.Errorf("failed to create %s pipeline: %w", ep.name, pipeErr)
		}
		*ep.target = created
	}

	return nil
}

func (s *sorterImpl) ViewLayout() *wgpu.BindGroupLayout {
	return s.viewLayout
}

func (s *sorterImpl) CloudLayout() *wgpu.BindGroupLayout {
	return s.cloudLayout
}

func (s *sorterImpl) SplatLayout() *wgpu.BindGroupLayout {
	return s.splatLayout
}

func (s *sorterImpl) CreateBindGroups(device *wgpu.Device, label string, buffers *Buffers, drawIndirect *wgpu.Buffer) (*BindGroups, error) {
	groups := &BindGroups{}

	makeGroup := func(name string, place int, in, out *wgpu.Buffer) (*wgpu.BindGroup, error) {
		return device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  fmt.Sprintf("%s %s", label, name),
			Layout: s.sortLayout,
			Entries: []wgpu.BindGroupEntry{
				{
					Binding: 0,
					Buffer:  buffers.PassIndex(place),
					Offset:  0,
					Size:    wgpu.WholeSize,
				},
				{
					Binding: 1,
					Buffer:  buffers.SortingGlobal(),
					Offset:  0,
					Size:    wgpu.WholeSize,
				},
				{
					Binding: 2,
					Buffer:  buffers.StatusCounters(),
					Offset:  0,
					Size:    wgpu.WholeSize,
				},
				{
					Binding: 3,
					Buffer:  drawIndirect,
					Offset:  0,
					Size:    wgpu.WholeSize,
				},
				{
					Binding: 4,
					Buffer:  in,
					Offset:  0,
					Size:    wgpu.WholeSize,
				},
				{
					Binding: 5,
					Buffer:  out,
					Offset:  0,
					Size:    wgpu.WholeSize,
				},
			},
		})
	}

	var err error
	// Extraction writes fresh entries into buffer A; scatter passes then
	// alternate A to B, B to A, so the final digit place lands back in A.
	groups.extract, err = makeGroup("Sort Extract Group", 0, buffers.Entry(BufferB), buffers.Entry(BufferA))
	if err != nil {
		groups.Release()
		return nil, fmt.Errorf("failed to create extract bind group: %w", err)
	}

	for place := 0; place < RadixDigitPlaces; place++ {
		in, out := BufferA, BufferB
		if place%2 == 1 {
			in, out = BufferB, BufferA
		}
		name := fmt.Sprintf("Sort Scatter Group %d", place)
		groups.scatter[place], err = makeGroup(name, place, buffers.Entry(in), buffers.Entry(out))
		if err != nil {
			groups.Release()
			return nil, fmt.Errorf("failed to create scatter bind group %d: %w", place, err)
		}
	}

	return groups, nil
}

func (s *sorterImpl) Encode(encoder *wgpu.CommandEncoder, job *Job) {
	if job.Count == 0 {
		return
	}
	if job.Count != job.Buffers.Capacity() {
		// Buffer sizing is tied to the cloud's splat count at upload; a
		// mismatch here means an upload path skipped reallocation.
		panic(fmt.Sprintf("sort: job count %d does not match buffer capacity %d", job.Count, job.Buffers.Capacity()))
	}

	tiles := MaxTileCount(job.Count)
	extractGroups := uint32(math.Ceil(float64(job.Count) / float64(WorkgroupEntriesA)))

	pass := encoder.BeginComputePass(&wgpu.ComputePassDescriptor{
		Label: "Radix Sort Pass",
	})
	defer pass.End()

	pass.SetBindGroup(0, job.View, nil)
	pass.SetBindGroup(1, job.Cloud, []uint32{job.CloudOffset})
	pass.SetBindGroup(2, job.Splats, nil)

	// Key extraction fused with histogramming over all digit places.
	pass.SetBindGroup(3, job.Groups.extract, nil)
	pass.SetPipeline(s.extract)
	pass.DispatchWorkgroups(extractGroups, 1, 1)

	// In-place exclusive prefix over each digit histogram, one workgroup.
	pass.SetPipeline(s.prefix)
	pass.DispatchWorkgroups(1, 1, 1)

	// One scatter dispatch per digit place, ping-ponging entry buffers.
	pass.SetPipeline(s.scatter)
	for place := 0; place < RadixDigitPlaces; place++ {
		pass.SetBindGroup(3, job.Groups.scatter[place], nil)
		pass.DispatchWorkgroups(tiles, 1, 1)
		job.Buffers.Flip()
	}
}

func (s *sorterImpl) Release() {
	if s.extract != nil {
		s.extract.Release()
		s.extract = nil
	}
	if s.prefix != nil {
		s.prefix.Release()
		s.prefix = nil
	}
	if s.scatter != nil {
		s.scatter.Release()
		s.scatter = nil
	}
	if s.viewLayout != nil {
		s.viewLayout.Release()
		s.viewLayout = nil
	}
	if s.cloudLayout != nil {
		s.cloudLayout.Release()
		s.cloudLayout = nil
	}
	if s.splatLayout != nil {
		s.splatLayout.Release()
		s.splatLayout = nil
	}
	if s.sortLayout != nil {
		s.sortLayout.Release()
		s.sortLayout = nil
	}
}

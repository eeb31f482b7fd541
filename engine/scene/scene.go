package scene

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/splat-go/engine/camera"
	"github.com/Carmen-Shannon/splat-go/engine/renderer"
	"github.com/Carmen-Shannon/splat-go/engine/splat"
	"github.com/Carmen-Shannon/splat-go/engine/window"
)

// scene is the implementation of the Scene interface.
type scene struct {
	mu *sync.RWMutex

	name   string
	active bool

	cam  camera.Camera
	rend renderer.Renderer

	clouds map[string]splat.Cloud
	order  []string

	// loadPool manages a bounded set of reusable goroutines for cloud asset
	// loading. Parsing a multi-million splat PLY takes long enough that
	// unbounded goroutines across many clouds would thrash; the pool keeps
	// load concurrency fixed while frames keep rendering.
	loadPool    worker.DynamicWorkerPool
	loadWorkers int
	nextTaskID  int

	// Input drag state for the orbit controls.
	dragButton window.MouseButton
	dragging   bool
	lastMouseX int32
	lastMouseY int32
	orbitSpeed float32
}

// Scene ties a camera, a renderer, and a set of splat clouds into a frame
// loop. Clouds can be added directly or loaded asynchronously through the
// scene's worker pool; clouds still loading are skipped each frame until
// ready.
type Scene interface {
	// Name returns the scene's name.
	//
	// Returns:
	//   - string: the scene name
	Name() string

	// SetName sets the scene's name.
	//
	// Parameters:
	//   - name: the new scene name
	SetName(name string)

	// Active returns whether the scene renders during the engine loop.
	//
	// Returns:
	//   - bool: true if the scene is active
	Active() bool

	// SetActive sets whether the scene renders during the engine loop.
	//
	// Parameters:
	//   - active: true to render this scene each frame
	SetActive(active bool)

	// Camera returns the scene's camera.
	//
	// Returns:
	//   - camera.Camera: the attached camera
	Camera() camera.Camera

	// Renderer returns the scene's renderer.
	//
	// Returns:
	//   - renderer.Renderer: the attached renderer
	Renderer() renderer.Renderer

	// AddCloud registers a cloud with the scene. A cloud that is still
	// loading is rendered automatically once it becomes ready.
	//
	// Parameters:
	//   - c: the cloud to add
	AddCloud(c splat.Cloud)

	// RemoveCloud removes a cloud from the scene and releases its GPU state.
	//
	// Parameters:
	//   - id: the cloud's identifier
	RemoveCloud(id string)

	// Cloud retrieves a registered cloud by id.
	//
	// Parameters:
	//   - id: the cloud's identifier
	//
	// Returns:
	//   - splat.Cloud: the cloud, or nil if not registered
	Cloud(id string) splat.Cloud

	// Clouds returns the registered clouds in insertion order.
	//
	// Returns:
	//   - []splat.Cloud: the registered clouds
	Clouds() []splat.Cloud

	// LoadCloud registers a new cloud and schedules its source to load on the
	// scene's worker pool. The returned cloud is in the Loading state until
	// the source finishes; check State or Err for the outcome.
	//
	// Parameters:
	//   - ctx: the context governing the load
	//   - id: the cloud's identifier
	//   - source: the splat data source to load from
	//   - opts: cloud construction options (transform, scale)
	//
	// Returns:
	//   - splat.Cloud: the cloud in Loading state
	LoadCloud(ctx context.Context, id string, source splat.Source, opts ...splat.CloudBuilderOption) splat.Cloud

	// AttachInput wires orbit camera controls to a window: left drag orbits,
	// right or middle drag pans, and the scroll wheel zooms.
	//
	// Parameters:
	//   - win: the window to read input events from
	AttachInput(win window.Window)

	// Frame renders one frame: updates the camera, syncs ready clouds to the
	// GPU, re-sorts the clouds whose temporal window triggers, and draws.
	//
	// Returns:
	//   - error: an error if frame encoding fails
	Frame() error

	// Release removes every registered cloud and frees the renderer's GPU
	// state for them.
	Release()
}

var _ Scene = &scene{}

// NewScene creates a new Scene from a camera and a renderer. Both are
// required and NewScene panics if either is nil.
//
// Parameters:
//   - name: the name of the scene
//   - cam: the camera to attach (must not be nil)
//   - r: the renderer to attach (must not be nil)
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, cam camera.Camera, r renderer.Renderer, options ...SceneBuilderOption) Scene {
	if cam == nil {
		panic("scene: NewScene requires a non-nil Camera")
	}
	if r == nil {
		panic("scene: NewScene requires a non-nil Renderer")
	}

	s := &scene{
		mu:          &sync.RWMutex{},
		name:        name,
		active:      true,
		cam:         cam,
		rend:        r,
		clouds:      make(map[string]splat.Cloud),
		loadWorkers: max(runtime.NumCPU()-1, 1),
		orbitSpeed:  0.005,
	}

	for _, opt := range options {
		opt(s)
	}

	// Initialize the load pool after options so WithLoadWorkers can override
	// the default. Queue size of 64 accommodates typical cloud counts.
	s.loadPool = worker.NewDynamicWorkerPool(s.loadWorkers, 64, 1*time.Second)

	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam
}

func (s *scene) Renderer() renderer.Renderer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rend
}

func (s *scene) AddCloud(c splat.Cloud) {
	if c == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addCloudLocked(c)
}

func (s *scene) addCloudLocked(c splat.Cloud) {
	id := c.ID()
	if _, exists := s.clouds[id]; !exists {
		s.order = append(s.order, id)
	}
	s.clouds[id] = c
}

func (s *scene) RemoveCloud(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.clouds[id]; !exists {
		return
	}
	delete(s.clouds, id)
	for i, ordered := range s.order {
		if ordered == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.rend.RemoveCloud(id)
}

func (s *scene) Cloud(id string) splat.Cloud {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clouds[id]
}

func (s *scene) Clouds() []splat.Cloud {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cloudsLocked()
}

func (s *scene) cloudsLocked() []splat.Cloud {
	clouds := make([]splat.Cloud, 0, len(s.order))
	for _, id := range s.order {
		clouds = append(clouds, s.clouds[id])
	}
	return clouds
}

func (s *scene) LoadCloud(ctx context.Context, id string, source splat.Source, opts ...splat.CloudBuilderOption) splat.Cloud {
	c := splat.NewCloud(id, opts...)

	s.mu.Lock()
	s.addCloudLocked(c)
	taskID := s.nextTaskID
	s.nextTaskID++
	s.mu.Unlock()

	s.loadPool.SubmitTask(worker.Task{
		ID: taskID,
		Do: func() (any, error) {
			splats, err := source.Load(ctx)
			if err != nil {
				c.Fail(fmt.Errorf("failed to load cloud %q: %w", id, err))
				return nil, err
			}
			c.SetSplats(splats)
			return nil, nil
		},
	})

	return c
}

func (s *scene) AttachInput(win window.Window) {
	if win == nil {
		return
	}

	win.SetScrollCallback(func(delta float32) {
		if ctrl := s.Camera().Controller(); ctrl != nil {
			ctrl.Zoom(delta)
		}
	})

	win.SetMouseDownCallback(func(button window.MouseButton, x, y int32) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.dragging = true
		s.dragButton = button
		s.lastMouseX = x
		s.lastMouseY = y
	})

	win.SetMouseUpCallback(func(button window.MouseButton, x, y int32) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if button == s.dragButton {
			s.dragging = false
		}
	})

	win.SetMouseMoveCallback(func(x, y int32) {
		s.mu.Lock()
		if !s.dragging {
			s.lastMouseX = x
			s.lastMouseY = y
			s.mu.Unlock()
			return
		}

		dx := float32(x - s.lastMouseX)
		dy := float32(y - s.lastMouseY)
		s.lastMouseX = x
		s.lastMouseY = y
		button := s.dragButton
		speed := s.orbitSpeed
		ctrl := s.cam.Controller()
		s.mu.Unlock()

		if ctrl == nil {
			return
		}
		switch button {
		case window.MouseButtonLeft:
			ctrl.Orbit(dx*speed, dy*speed)
		case window.MouseButtonRight, window.MouseButtonMiddle:
			ctrl.Pan(dx, dy)
		}
	})
}

func (s *scene) Frame() error {
	s.cam.Update()
	uniform := s.cam.Uniform()

	s.mu.RLock()
	clouds := s.cloudsLocked()
	s.mu.RUnlock()

	return s.rend.RenderFrame(uniform, clouds)
}

func (s *scene) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		s.rend.RemoveCloud(id)
	}
	s.clouds = make(map[string]splat.Cloud)
	s.order = nil
}

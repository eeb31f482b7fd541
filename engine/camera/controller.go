package camera

import (
	"math"
	"sync"
)

// controllerImpl is the single implementation of Controller. Orbit methods
// modify spherical coordinates around the target and recompute position;
// panning translates both position and target along local camera axes so the
// orbit relationship is preserved.
type controllerImpl struct {
	mu *sync.Mutex

	position [3]float32
	target   [3]float32

	// Spherical offset from target.
	radius    float32
	azimuth   float32
	elevation float32

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	zoomSpeed float32
	panSpeed  float32
}

// Controller drives a camera around a point of interest. Splat captures are
// usually inspected by orbiting the subject, so the controller is spherical:
// azimuth and elevation around a movable target at a clamped radius.
type Controller interface {
	// Position returns the camera's world position.
	//
	// Returns:
	//   - x, y, z: position components
	Position() (x, y, z float32)

	// Target returns the orbit target position.
	//
	// Returns:
	//   - x, y, z: target components
	Target() (x, y, z float32)

	// SetTarget moves the orbit target, carrying the camera with it.
	//
	// Parameters:
	//   - x, y, z: the new target position
	SetTarget(x, y, z float32)

	// Orbit rotates the camera around the target. Elevation is clamped to the
	// controller's limits.
	//
	// Parameters:
	//   - dAzimuth: horizontal rotation delta in radians
	//   - dElevation: vertical rotation delta in radians
	Orbit(dAzimuth, dElevation float32)

	// Zoom moves the camera toward (positive delta) or away from the target,
	// clamped to the radius limits.
	//
	// Parameters:
	//   - delta: zoom amount, scaled by the controller's zoom speed
	Zoom(delta float32)

	// Pan translates target and camera along the camera's local right and up
	// axes.
	//
	// Parameters:
	//   - dx: rightward delta, scaled by the controller's pan speed
	//   - dy: upward delta, scaled by the controller's pan speed
	Pan(dx, dy float32)

	// Radius returns the current orbit radius.
	//
	// Returns:
	//   - float32: distance from camera to target
	Radius() float32
}

var _ Controller = &controllerImpl{}

// ControllerOption is a functional option for configuring a Controller via NewController.
type ControllerOption func(*controllerImpl)

// WithTarget is an option builder that sets the initial orbit target.
//
// Parameters:
//   - x, y, z: the target position
//
// Returns:
//   - ControllerOption: a function that applies the target option to a controller
func WithTarget(x, y, z float32) ControllerOption {
	return func(cc *controllerImpl) {
		cc.target = [3]float32{x, y, z}
	}
}

// WithRadius is an option builder that sets the initial orbit radius.
//
// Parameters:
//   - radius: distance from camera to target
//
// Returns:
//   - ControllerOption: a function that applies the radius option to a controller
func WithRadius(radius float32) ControllerOption {
	return func(cc *controllerImpl) {
		cc.radius = radius
	}
}

// WithRadiusLimits is an option builder that sets the zoom clamp range.
//
// Parameters:
//   - minRadius: closest allowed distance to the target
//   - maxRadius: farthest allowed distance from the target
//
// Returns:
//   - ControllerOption: a function that applies the limits to a controller
func WithRadiusLimits(minRadius, maxRadius float32) ControllerOption {
	return func(cc *controllerImpl) {
		cc.minRadius = minRadius
		cc.maxRadius = maxRadius
	}
}

// WithZoomSpeed is an option builder that sets the zoom speed multiplier.
//
// Parameters:
//   - speed: radius change per unit of Zoom delta
//
// Returns:
//   - ControllerOption: a function that applies the zoom speed to a controller
func WithZoomSpeed(speed float32) ControllerOption {
	return func(cc *controllerImpl) {
		cc.zoomSpeed = speed
	}
}

// WithPanSpeed is an option builder that sets the pan speed multiplier.
//
// Parameters:
//   - speed: world-space units per unit of Pan delta
//
// Returns:
//   - ControllerOption: a function that applies the pan speed to a controller
func WithPanSpeed(speed float32) ControllerOption {
	return func(cc *controllerImpl) {
		cc.panSpeed = speed
	}
}

// NewController creates a new orbit controller with defaults sized for a
// subject roughly at the origin within a few units.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - Controller: the newly created controller
func NewController(options ...ControllerOption) Controller {
	cc := &controllerImpl{
		mu:     &sync.Mutex{},
		target: [3]float32{0, 0, 0},

		radius:    5.0,
		azimuth:   0.0,
		elevation: float32(math.Pi / 8),

		minRadius:    0.25,
		maxRadius:    200.0,
		minElevation: float32(-math.Pi/2 + 0.05),
		maxElevation: float32(math.Pi/2 - 0.05),

		zoomSpeed: 0.5,
		panSpeed:  0.01,
	}
	for _, option := range options {
		option(cc)
	}
	cc.updatePosition()
	return cc
}

// updatePosition recomputes the camera position from spherical coordinates.
// Caller must hold the mutex.
func (cc *controllerImpl) updatePosition() {
	cosElev := float32(math.Cos(float64(cc.elevation)))
	sinElev := float32(math.Sin(float64(cc.elevation)))
	cosAzim := float32(math.Cos(float64(cc.azimuth)))
	sinAzim := float32(math.Sin(float64(cc.azimuth)))

	cc.position[0] = cc.target[0] + cc.radius*cosElev*sinAzim
	cc.position[1] = cc.target[1] + cc.radius*sinElev
	cc.position[2] = cc.target[2] + cc.radius*cosElev*cosAzim
}

func (cc *controllerImpl) Position() (x, y, z float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position[0], cc.position[1], cc.position[2]
}

func (cc *controllerImpl) Target() (x, y, z float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target[0], cc.target[1], cc.target[2]
}

func (cc *controllerImpl) SetTarget(x, y, z float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = [3]float32{x, y, z}
	cc.updatePosition()
}

func (cc *controllerImpl) Orbit(dAzimuth, dElevation float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth += dAzimuth
	cc.elevation += dElevation
	if cc.elevation < cc.minElevation {
		cc.elevation = cc.minElevation
	}
	if cc.elevation > cc.maxElevation {
		cc.elevation = cc.maxElevation
	}
	cc.updatePosition()
}

func (cc *controllerImpl) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius -= delta * cc.zoomSpeed
	if cc.radius < cc.minRadius {
		cc.radius = cc.minRadius
	}
	if cc.radius > cc.maxRadius {
		cc.radius = cc.maxRadius
	}
	cc.updatePosition()
}

func (cc *controllerImpl) Pan(dx, dy float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	// backward = normalize(position - target), matching the LookAt z-axis
	bx := cc.position[0] - cc.target[0]
	by := cc.position[1] - cc.target[1]
	bz := cc.position[2] - cc.target[2]
	bLen := float32(math.Sqrt(float64(bx*bx + by*by + bz*bz)))
	if bLen < 1e-8 {
		return
	}
	bx /= bLen
	by /= bLen
	bz /= bLen

	// right = normalize(cross(worldUp, backward)) with worldUp = (0, 1, 0)
	rx := bz
	rz := -bx
	rLen := float32(math.Sqrt(float64(rx*rx + rz*rz)))
	if rLen < 1e-8 {
		return
	}
	rx /= rLen
	rz /= rLen

	// up = cross(backward, right)
	ux := by * rz
	uy := bz*rx - bx*rz
	uz := -by * rx

	ox := (rx*dx + ux*dy) * cc.panSpeed
	oy := uy * dy * cc.panSpeed
	oz := (rz*dx + uz*dy) * cc.panSpeed

	cc.target[0] += ox
	cc.target[1] += oy
	cc.target[2] += oz
	cc.position[0] += ox
	cc.position[1] += oy
	cc.position[2] += oz
}

func (cc *controllerImpl) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

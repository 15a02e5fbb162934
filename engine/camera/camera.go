// Package camera provides the view the culling pass runs against: a projection, a view
// transform and the cull plane and frustum derived from them.
package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-cull/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Mode selects the projection.
type Mode uint8

const (
	ModePerspective Mode = iota
	ModeOrthographic
)

// Viewport is the pixel rectangle the camera renders into.
type Viewport struct {
	X, Y          int
	Width, Height int
}

// Aspect returns width / height, or 1 for an empty viewport.
//
// Returns:
//   - float32: the aspect ratio
func (v Viewport) Aspect() float32 {
	if v.Width <= 0 || v.Height <= 0 {
		return 1
	}
	return float32(v.Width) / float32(v.Height)
}

type cameraImpl struct {
	mu *sync.Mutex

	position mgl32.Vec3
	target   mgl32.Vec3
	up       mgl32.Vec3

	mode       Mode
	fov        float32
	near       float32
	far        float32
	halfHeight float32
	viewport   Viewport

	view     mgl32.Mat4
	proj     mgl32.Mat4
	viewProj mgl32.Mat4

	controller CameraController
}

// Camera defines the interface for the camera system.
// Matrices are recomputed whenever a parameter changes, and from the attached
// CameraController on Update. Safe for concurrent use.
type Camera interface {
	// Position returns the eye position.
	Position() mgl32.Vec3

	// SetPosition moves the eye.
	//
	// Parameters:
	//   - p: the new eye position
	SetPosition(p mgl32.Vec3)

	// Target returns the point the camera looks at.
	Target() mgl32.Vec3

	// SetTarget changes the point the camera looks at.
	//
	// Parameters:
	//   - t: the new target
	SetTarget(t mgl32.Vec3)

	// Up returns the camera's up vector.
	Up() mgl32.Vec3

	// SetUp sets the camera's up vector.
	//
	// Parameters:
	//   - up: the up vector
	SetUp(up mgl32.Vec3)

	// Mode returns the projection mode.
	Mode() Mode

	// SetMode switches between perspective and orthographic projection.
	//
	// Parameters:
	//   - m: the projection mode
	SetMode(m Mode)

	// Fov returns the vertical field of view in radians.
	Fov() float32

	// SetFov sets the vertical field of view in radians.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// SetClip sets the near and far clipping plane distances.
	//
	// Parameters:
	//   - near: near plane distance
	//   - far: far plane distance
	SetClip(near, far float32)

	// OrthoHalfHeight returns half the visible height in world units for orthographic mode.
	OrthoHalfHeight() float32

	// SetOrthoHalfHeight sets half the visible height in world units for orthographic mode.
	//
	// Parameters:
	//   - h: the half height
	SetOrthoHalfHeight(h float32)

	// Viewport returns the render target rectangle.
	Viewport() Viewport

	// SetViewport sets the render target rectangle, which also sets the aspect ratio.
	//
	// Parameters:
	//   - v: the viewport
	SetViewport(v Viewport)

	// ViewMatrix returns the world to view space transform.
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the view to clip space transform.
	ProjectionMatrix() mgl32.Mat4

	// ViewProjectionMatrix returns Projection * View.
	ViewProjectionMatrix() mgl32.Mat4

	// Frustum returns the six clip planes of the current view, normals pointing inward.
	//
	// Returns:
	//   - common.Frustum: the frustum
	Frustum() common.Frustum

	// CullPlane returns the plane through the eye whose normal is the view direction.
	// The distance of a point to it is its depth along the view axis.
	//
	// Returns:
	//   - common.Plane: the cull plane
	CullPlane() common.Plane

	// Controller returns the attached CameraController, or nil.
	Controller() CameraController

	// SetController attaches a CameraController. Its position and target replace the
	// camera's own on every Update.
	//
	// Parameters:
	//   - ctrl: the controller, nil detaches it
	SetController(ctrl CameraController)

	// Update reads position and target from the controller and recomputes matrices.
	// If no controller is attached, this method does nothing.
	Update()
}

var _ Camera = &cameraImpl{}

// NewCamera creates a perspective camera at (0, 0, 10) looking at the origin.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:         &sync.Mutex{},
		position:   mgl32.Vec3{0, 0, 10},
		up:         mgl32.Vec3{0, 1, 0},
		fov:        mgl32.DegToRad(45),
		near:       0.1,
		far:        100,
		halfHeight: 10,
		viewport:   Viewport{Width: 1, Height: 1},
	}
	for _, option := range options {
		option(c)
	}
	if c.controller != nil {
		c.pull()
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) SetPosition(p mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = p
	c.updateMatrices()
}

func (c *cameraImpl) Target() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) SetTarget(t mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = t
	c.updateMatrices()
}

func (c *cameraImpl) Up() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) SetUp(up mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up = up
	c.updateMatrices()
}

func (c *cameraImpl) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *cameraImpl) SetMode(m Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = m
	c.updateMatrices()
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) SetClip(near, far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.far = far
	c.updateMatrices()
}

func (c *cameraImpl) OrthoHalfHeight() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.halfHeight
}

func (c *cameraImpl) SetOrthoHalfHeight(h float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.halfHeight = h
	c.updateMatrices()
}

func (c *cameraImpl) Viewport() Viewport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewport
}

func (c *cameraImpl) SetViewport(v Viewport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewport = v
	c.updateMatrices()
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.proj
}

func (c *cameraImpl) ViewProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProj
}

func (c *cameraImpl) Frustum() common.Frustum {
	c.mu.Lock()
	defer c.mu.Unlock()
	return common.ExtractFrustumFromMatrix(c.viewProj[:])
}

func (c *cameraImpl) CullPlane() common.Plane {
	c.mu.Lock()
	defer c.mu.Unlock()
	dir := c.target.Sub(c.position)
	return common.NewPlane(dir, c.position)
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return
	}
	c.pull()
	c.updateMatrices()
}

// pull copies position and target from the controller. Caller must hold the mutex.
func (c *cameraImpl) pull() {
	c.position = c.controller.Position()
	c.target = c.controller.Target()
}

// updateMatrices recalculates the view, projection and view-projection matrices.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	c.view = mgl32.LookAtV(c.position, c.target, c.up)

	switch c.mode {
	case ModeOrthographic:
		hh := c.halfHeight
		hw := hh * c.viewport.Aspect()
		c.proj = mgl32.Ortho(-hw, hw, -hh, hh, c.near, c.far)
	default:
		c.proj = mgl32.Perspective(c.fov, c.viewport.Aspect(), c.near, c.far)
	}

	c.viewProj = c.proj.Mul4(c.view)
}

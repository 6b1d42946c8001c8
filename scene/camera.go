package scene

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"

	"projection-engine/gpu"
	"projection-engine/math"
)

// PerspectiveFrustum is a symmetric perspective frustum. Fov spans the wider
// of the two axes: the vertical angle when AspectRatio <= 1, the horizontal
// one otherwise.
type PerspectiveFrustum struct {
	Fov         float64 // radians
	AspectRatio float64
	Near        float64
	Far         float64
}

// Fovy returns the vertical field of view in radians.
func (f PerspectiveFrustum) Fovy() float64 {
	if f.AspectRatio <= 1 {
		return f.Fov
	}
	return 2 * gomath.Atan(gomath.Tan(f.Fov*0.5)/f.AspectRatio)
}

func (f PerspectiveFrustum) Projection() mgl64.Mat4 {
	return mgl64.Perspective(f.Fovy(), f.AspectRatio, f.Near, f.Far)
}

// Camera is a positioned frustum with cached matrices.
type Camera struct {
	position  mgl64.Vec3
	direction mgl64.Vec3
	up        mgl64.Vec3
	frustum   PerspectiveFrustum

	// Cached matrices
	view     mgl64.Mat4
	invView  mgl64.Mat4
	proj     mgl64.Mat4
	viewProj mgl64.Mat4
	dirty    bool
}

func NewCamera(position, direction, up mgl64.Vec3, frustum PerspectiveFrustum) *Camera {
	return &Camera{
		position:  position,
		direction: direction.Normalize(),
		up:        up.Normalize(),
		frustum:   frustum,
		dirty:     true,
	}
}

func (c *Camera) Position() mgl64.Vec3         { return c.position }
func (c *Camera) Direction() mgl64.Vec3        { return c.direction }
func (c *Camera) Up() mgl64.Vec3               { return c.up }
func (c *Camera) Frustum() PerspectiveFrustum { return c.frustum }

func (c *Camera) SetPosition(pos mgl64.Vec3) {
	c.position = pos
	c.dirty = true
}

// SetPose sets position and orientation together.
func (c *Camera) SetPose(position, direction, up mgl64.Vec3) {
	c.position = position
	c.direction = direction.Normalize()
	c.up = up.Normalize()
	c.dirty = true
}

// LookAt points the camera at target.
func (c *Camera) LookAt(target, up mgl64.Vec3) {
	c.SetPose(c.position, target.Sub(c.position), up)
}

func (c *Camera) SetFrustum(f PerspectiveFrustum) {
	c.frustum = f
	c.dirty = true
}

func (c *Camera) UpdateAspectRatio(width, height int) {
	if height > 0 {
		c.frustum.AspectRatio = float64(width) / float64(height)
		c.dirty = true
	}
}

func (c *Camera) ViewMatrix() mgl64.Mat4 {
	c.update()
	return c.view
}

func (c *Camera) InverseViewMatrix() mgl64.Mat4 {
	c.update()
	return c.invView
}

func (c *Camera) ProjectionMatrix() mgl64.Mat4 {
	c.update()
	return c.proj
}

func (c *Camera) ViewProjectionMatrix() mgl64.Mat4 {
	c.update()
	return c.viewProj
}

// CullingVolume returns the planes of the camera frustum in world space.
func (c *Camera) CullingVolume() math.CullingVolume {
	return math.CullingVolumeFromViewProjection(c.ViewProjectionMatrix())
}

// Context returns the camera state a pass renders with.
func (c *Camera) Context() gpu.CameraContext {
	c.update()
	return gpu.CameraContext{
		View:       c.view,
		Projection: c.proj,
		Near:       c.frustum.Near,
		Far:        c.frustum.Far,
	}
}

func (c *Camera) update() {
	if !c.dirty {
		return
	}
	c.view = mgl64.LookAtV(c.position, c.position.Add(c.direction), c.up)
	c.invView = c.view.Inv()
	c.proj = c.frustum.Projection()
	c.viewProj = c.proj.Mul4(c.view)
	c.dirty = false
}

// OrbitCamera circles a target at a distance.
type OrbitCamera struct {
	*Camera
	Target   mgl64.Vec3
	Distance float64
	Yaw      float64
	Pitch    float64
}

func NewOrbitCamera(target mgl64.Vec3, distance float64, frustum PerspectiveFrustum) *OrbitCamera {
	c := &OrbitCamera{
		Camera:   NewCamera(mgl64.Vec3{}, mgl64.Vec3{0, 0, -1}, mgl64.Vec3{0, 1, 0}, frustum),
		Target:   target,
		Distance: distance,
		Pitch:    0.3,
	}
	c.UpdatePosition()
	return c
}

func (c *OrbitCamera) UpdatePosition() {
	c.Pitch = mgl64.Clamp(c.Pitch, -1.5, 1.5)

	cosPitch, sinPitch := gomath.Cos(c.Pitch), gomath.Sin(c.Pitch)
	cosYaw, sinYaw := gomath.Cos(c.Yaw), gomath.Sin(c.Yaw)
	offset := mgl64.Vec3{
		c.Distance * cosPitch * sinYaw,
		c.Distance * sinPitch,
		c.Distance * cosPitch * cosYaw,
	}

	c.Camera.SetPosition(c.Target.Add(offset))
	c.Camera.LookAt(c.Target, mgl64.Vec3{0, 1, 0})
}

func (c *OrbitCamera) Orbit(deltaYaw, deltaPitch float64) {
	c.Yaw += deltaYaw
	c.Pitch += deltaPitch
	c.UpdatePosition()
}

func (c *OrbitCamera) Zoom(delta float64) {
	c.Distance = gomath.Max(c.Distance+delta, 0.1)
	c.UpdatePosition()
}

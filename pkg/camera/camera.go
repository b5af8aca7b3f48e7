// Package camera implements the editor's orbit camera: a target point
// viewed from a distance along yaw/pitch angles, with Y up.
package camera

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Input sensitivities, in degrees per pixel, world units per pixel per unit
// of distance, and distance per wheel step.
const (
	OrbitSensitivity = 0.3
	PanSensitivity   = 0.01
	ZoomSensitivity  = 0.5
	moveFactor       = 0.03
)

// Limits on camera state.
const (
	MinDistance = 1.0
	MaxDistance = 100.0
	MaxPitch    = 89.0
)

// Settings are the initial values a camera resets to.
type Settings struct {
	Distance float32 `yaml:"distance"`
	Yaw      float32 `yaml:"yaw"`   // degrees
	Pitch    float32 `yaml:"pitch"` // degrees
	FOV      float32 `yaml:"fov"`   // vertical, degrees
	Near     float32 `yaml:"near"`
	Far      float32 `yaml:"far"`
}

// DefaultSettings returns the stock editor view.
func DefaultSettings() Settings {
	return Settings{Distance: 10, Yaw: 45, Pitch: 30, FOV: 45, Near: 0.1, Far: 1000}
}

// Camera is an orbit camera. The zero value is not usable; call New.
type Camera struct {
	Distance float32
	Yaw      float32
	Pitch    float32
	Target   mgl32.Vec3
	FOV      float32
	Near     float32
	Far      float32

	initial Settings
}

// New returns a camera at the given settings, looking at the origin.
func New(s Settings) *Camera {
	c := &Camera{initial: s}
	c.Reset()
	return c
}

// Reset restores the initial distance, angles, lens and target.
func (c *Camera) Reset() {
	c.Distance = mgl32.Clamp(c.initial.Distance, MinDistance, MaxDistance)
	c.Yaw = c.initial.Yaw
	c.Pitch = mgl32.Clamp(c.initial.Pitch, -MaxPitch, MaxPitch)
	c.FOV = c.initial.FOV
	c.Near = c.initial.Near
	c.Far = c.initial.Far
	c.Target = mgl32.Vec3{}
}

// Position returns the eye position in world space.
func (c *Camera) Position() mgl32.Vec3 {
	pitch := mgl32.DegToRad(c.Pitch)
	yaw := mgl32.DegToRad(c.Yaw)
	offset := mgl32.Vec3{
		c.Distance * math32.Cos(pitch) * math32.Sin(yaw),
		c.Distance * math32.Sin(pitch),
		c.Distance * math32.Cos(pitch) * math32.Cos(yaw),
	}
	return c.Target.Add(offset)
}

// Right returns the horizontal unit vector pointing to screen right.
func (c *Camera) Right() mgl32.Vec3 {
	yaw := mgl32.DegToRad(c.Yaw)
	return mgl32.Vec3{math32.Cos(yaw), 0, -math32.Sin(yaw)}
}

// View returns the world-to-camera matrix.
func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position(), c.Target, mgl32.Vec3{0, 1, 0})
}

// Projection returns the perspective matrix for the given aspect ratio.
func (c *Camera) Projection(aspect float32) mgl32.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), aspect, c.Near, c.Far)
}

// Orbit rotates around the target by a mouse delta in pixels.
func (c *Camera) Orbit(dx, dy float32) {
	c.Yaw -= dx * OrbitSensitivity
	c.Pitch = mgl32.Clamp(c.Pitch+dy*OrbitSensitivity, -MaxPitch, MaxPitch)
}

// Pan slides the target in the view plane, scaled by distance so the
// scene tracks the cursor at any zoom.
func (c *Camera) Pan(dx, dy float32) {
	scale := PanSensitivity * c.Distance
	c.Target = c.Target.Sub(c.Right().Mul(dx * scale))
	c.Target[1] += dy * scale
}

// Zoom moves toward the target for positive delta.
func (c *Camera) Zoom(delta float32) {
	c.Distance = mgl32.Clamp(c.Distance-delta*ZoomSensitivity, MinDistance, MaxDistance)
}

// forward is the view direction flattened onto the ground plane.
func (c *Camera) forward() mgl32.Vec3 {
	f := c.Target.Sub(c.Position())
	f[1] = 0
	if f.Len() == 0 {
		return mgl32.Vec3{}
	}
	return f.Normalize()
}

// MoveForward walks the target along the flattened view direction.
func (c *Camera) MoveForward(speed float32) {
	c.Target = c.Target.Add(c.forward().Mul(speed * c.Distance * moveFactor))
}

// MoveBackward is MoveForward in reverse.
func (c *Camera) MoveBackward(speed float32) {
	c.MoveForward(-speed)
}

// MoveRight strafes the target to screen right.
func (c *Camera) MoveRight(speed float32) {
	c.Target = c.Target.Add(c.Right().Mul(speed * c.Distance * moveFactor))
}

// MoveLeft strafes the target to screen left.
func (c *Camera) MoveLeft(speed float32) {
	c.MoveRight(-speed)
}

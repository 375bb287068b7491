package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// worldUp is the world's up axis. The scene is Z-up: the floor lies in the
// XY plane.
var worldUp = mgl32.Vec3{0, 0, 1}

// Camera is a first-person camera described by a position and Euler angles
// in degrees. Roll is not used.
//
// Forwards, Right and Up are derived by Update and are what the renderer
// reads to orient the sky.
type Camera struct {
	Position mgl32.Vec3

	// Pitch is the elevation angle in degrees, clamped to [-89, 89] by Spin.
	Pitch float32

	// Yaw is the heading angle in degrees around the world up axis.
	Yaw float32

	Forwards mgl32.Vec3
	Right    mgl32.Vec3
	Up       mgl32.Vec3

	view mgl32.Mat4
}

// NewCamera creates a camera at position looking along the given angles.
// The basis vectors and view matrix are valid on return.
func NewCamera(position mgl32.Vec3, pitch, yaw float32) *Camera {
	c := &Camera{Position: position, Pitch: pitch, Yaw: yaw}
	c.Update()
	return c
}

// Update recomputes the basis vectors and the view matrix from the current
// position and angles.
func (c *Camera) Update() {
	pitch := float64(mgl32.DegToRad(c.Pitch))
	yaw := float64(mgl32.DegToRad(c.Yaw))

	c.Forwards = mgl32.Vec3{
		float32(math.Cos(yaw) * math.Cos(pitch)),
		float32(math.Sin(yaw) * math.Cos(pitch)),
		float32(math.Sin(pitch)),
	}
	c.Right = c.Forwards.Cross(worldUp).Normalize()
	c.Up = c.Right.Cross(c.Forwards).Normalize()

	c.view = mgl32.LookAtV(c.Position, c.Position.Add(c.Forwards), c.Up)
}

// View returns the view transform computed by the last Update.
func (c *Camera) View() mgl32.Mat4 { return c.view }

// Spin turns the camera by dx degrees of yaw and dy degrees of pitch.
// Yaw wraps into (-360, 360); pitch is clamped to [-89, 89].
func (c *Camera) Spin(dx, dy float32) {
	c.Yaw = float32(math.Mod(float64(c.Yaw-dx), 360))
	c.Pitch = mgl32.Clamp(c.Pitch-dy, -89, 89)
}

// Move translates the camera along its forwards and right vectors.
func (c *Camera) Move(forwards, right float32) {
	c.Position = c.Position.Add(c.Forwards.Mul(forwards)).Add(c.Right.Mul(right))
}

// Perspective returns a right-handed perspective projection with WebGPU's
// [0, 1] clip-space depth range. fovy is in radians.
func Perspective(fovy, aspect, near, far float32) mgl32.Mat4 {
	f := float32(1 / math.Tan(float64(fovy)/2))
	nf := 1 / (near - far)

	var m mgl32.Mat4
	m[0] = f / aspect
	m[5] = f
	m[10] = far * nf
	m[11] = -1
	m[14] = far * near * nf
	return m
}

// SkyBasis returns the three vectors the sky shader uses to turn a
// screen-space position into a view direction: forwards, right scaled by the
// horizontal half-extent and up scaled by the vertical half-extent of the
// view frustum at unit distance. Each vector is padded to four floats.
func SkyBasis(c *Camera, fovy, aspect float32) [12]float32 {
	dy := float32(math.Tan(float64(fovy) / 2))
	dx := dy * aspect
	return [12]float32{
		c.Forwards[0], c.Forwards[1], c.Forwards[2], 0,
		dx * c.Right[0], dx * c.Right[1], dx * c.Right[2], 0,
		dy * c.Up[0], dy * c.Up[1], dy * c.Up[2], 0,
	}
}

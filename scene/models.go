package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// TriangleModel is a triangle that spins around the Z axis by one degree per
// update.
type TriangleModel struct {
	Position mgl32.Vec3
	Scale    mgl32.Vec3

	// Theta is the current Z rotation in degrees, kept in [0, 360).
	Theta float32

	model mgl32.Mat4
}

// NewTriangleModel creates a triangle at position with the given scale and
// initial rotation in degrees.
func NewTriangleModel(position, scale mgl32.Vec3, theta float32) *TriangleModel {
	return &TriangleModel{Position: position, Scale: scale, Theta: theta, model: mgl32.Ident4()}
}

// Update advances the rotation and rebuilds the model matrix as
// translate * rotateZ * scale.
func (t *TriangleModel) Update() {
	t.Theta = float32(math.Mod(float64(t.Theta+1), 360))
	t.model = mgl32.Translate3D(t.Position[0], t.Position[1], t.Position[2]).
		Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(t.Theta))).
		Mul4(mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))
}

// Model returns the matrix built by the last Update.
func (t *TriangleModel) Model() mgl32.Mat4 { return t.model }

// QuadModel is a static quad placed by a translation and an XYZ rotation in
// radians.
type QuadModel struct {
	Position mgl32.Vec3
	Rotation mgl32.Vec3

	model mgl32.Mat4
}

// NewQuadModel creates a quad at position with the given rotation.
func NewQuadModel(position, rotation mgl32.Vec3) *QuadModel {
	return &QuadModel{Position: position, Rotation: rotation, model: mgl32.Ident4()}
}

// Update rebuilds the model matrix as translate * rotX * rotY * rotZ.
func (q *QuadModel) Update() {
	q.model = mgl32.Translate3D(q.Position[0], q.Position[1], q.Position[2]).
		Mul4(mgl32.HomogRotate3DX(q.Rotation[0])).
		Mul4(mgl32.HomogRotate3DY(q.Rotation[1])).
		Mul4(mgl32.HomogRotate3DZ(q.Rotation[2]))
}

// Model returns the matrix built by the last Update.
func (q *QuadModel) Model() mgl32.Mat4 { return q.model }

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// meshVertexStride is the byte stride per vertex:
// position (float32x3) + uv (float32x2) = 20 bytes.
const meshVertexStride = 20

// triangleVertices is a single triangle standing in the YZ plane, apex up.
var triangleVertices = []float32{
	0.0, 0.0, 0.5, 0.5, 0.0,
	0.0, -0.5, -0.5, 0.0, 1.0,
	0.0, 0.5, -0.5, 1.0, 1.0,
}

// quadVertices is a unit quad in the XY plane, centered on the origin, as
// two triangles.
var quadVertices = []float32{
	-0.5, -0.5, 0.0, 0.0, 0.0,
	0.5, -0.5, 0.0, 1.0, 0.0,
	0.5, 0.5, 0.0, 1.0, 1.0,

	0.5, 0.5, 0.0, 1.0, 1.0,
	-0.5, 0.5, 0.0, 0.0, 1.0,
	-0.5, -0.5, 0.0, 0.0, 0.0,
}

// meshVertexLayout describes the vertex buffer shared by both meshes:
// float32x3 position at location(0), float32x2 uv at location(1).
func meshVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: meshVertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
				{Format: gputypes.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 1},
			},
		},
	}
}

// Mesh is an immutable vertex buffer.
type Mesh struct {
	device hal.Device
	buffer hal.Buffer
	count  uint32
	label  string
}

// NewTriangleMesh uploads the three-vertex triangle mesh.
func NewTriangleMesh(device hal.Device, queue hal.Queue) (*Mesh, error) {
	return newMesh(device, queue, "triangle_mesh", triangleVertices)
}

// NewQuadMesh uploads the six-vertex quad mesh.
func NewQuadMesh(device hal.Device, queue hal.Queue) (*Mesh, error) {
	return newMesh(device, queue, "quad_mesh", quadVertices)
}

func newMesh(device hal.Device, queue hal.Queue, label string, vertices []float32) (*Mesh, error) {
	data := packFloats(vertices)
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	if err := queue.WriteBuffer(buf, 0, data); err != nil {
		device.DestroyBuffer(buf)
		return nil, fmt.Errorf("upload %s: %w", label, err)
	}
	return &Mesh{
		device: device,
		buffer: buf,
		count:  uint32(len(data) / meshVertexStride), //nolint:gosec // fixed mesh data
		label:  label,
	}, nil
}

// Buffer returns the vertex buffer.
func (m *Mesh) Buffer() hal.Buffer { return m.buffer }

// VertexCount returns the number of vertices in the mesh.
func (m *Mesh) VertexCount() uint32 { return m.count }

// Destroy releases the vertex buffer. Safe to call multiple times.
func (m *Mesh) Destroy() {
	if m.buffer != nil {
		m.device.DestroyBuffer(m.buffer)
		m.buffer = nil
	}
}

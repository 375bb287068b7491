package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/peel/scene"
)

// DefaultPeelPasses is the number of layers peeled per frame.
const DefaultPeelPasses = 20

// fullScreenVertices is the vertex count of the generated full-screen quad.
const fullScreenVertices = 6

// Attachment names a render target a pass writes or reads.
type Attachment uint8

const (
	// AttachNone means the pass has no attachment in that slot.
	AttachNone Attachment = iota

	// AttachAccumulation is the offscreen per-layer colour texture.
	AttachAccumulation

	// AttachTarget is the presentation target.
	AttachTarget

	// AttachDepthPing is the depth buffer written by even peel passes.
	AttachDepthPing

	// AttachDepthPong is the depth buffer written by odd peel passes and
	// cleared to 0.0 at the start of every frame.
	AttachDepthPong
)

// String returns the attachment name.
func (a Attachment) String() string {
	switch a {
	case AttachNone:
		return "none"
	case AttachAccumulation:
		return "accumulation"
	case AttachTarget:
		return "target"
	case AttachDepthPing:
		return "depth-ping"
	case AttachDepthPong:
		return "depth-pong"
	default:
		return fmt.Sprintf("Attachment(%d)", uint8(a))
	}
}

func (a Attachment) depthSlot() depthSlot {
	if a == AttachDepthPong {
		return depthPong
	}
	return depthPing
}

func (s depthSlot) attachment() Attachment {
	if s == depthPong {
		return AttachDepthPong
	}
	return AttachDepthPing
}

// PassKind is the role of a pass within a frame.
type PassKind uint8

const (
	// PassReset clears the pong depth buffer to 0.0 and draws nothing.
	PassReset PassKind = iota

	// PassPeel extracts one layer into the accumulation texture.
	PassPeel

	// PassComposite blends the accumulation texture under the target.
	PassComposite

	// PassSky draws the sky cube behind everything.
	PassSky
)

// String returns the pass kind name.
func (k PassKind) String() string {
	switch k {
	case PassReset:
		return "reset"
	case PassPeel:
		return "peel"
	case PassComposite:
		return "composite"
	case PassSky:
		return "sky"
	default:
		return fmt.Sprintf("PassKind(%d)", uint8(k))
	}
}

// MeshKind selects the vertex buffer of a draw.
type MeshKind uint8

const (
	// MeshNone draws generated full-screen vertices with no vertex buffer.
	MeshNone MeshKind = iota

	// MeshTriangle is the three-vertex triangle mesh.
	MeshTriangle

	// MeshQuad is the six-vertex quad mesh.
	MeshQuad
)

// DrawPlan is one draw call.
type DrawPlan struct {
	Mesh     MeshKind
	Material MaterialRole

	VertexCount   uint32
	InstanceCount uint32
	FirstVertex   uint32
	FirstInstance uint32
}

// PassPlan is one render pass.
type PassPlan struct {
	Kind PassKind

	// Layer is the peel index for peel and composite passes, -1 otherwise.
	Layer int

	Color      Attachment
	ColorLoad  gputypes.LoadOp
	ColorClear gputypes.Color

	Depth      Attachment
	DepthClear float32

	// DepthRead is the depth buffer bound at group(2) of peel passes.
	DepthRead Attachment

	Pipeline PipelineKind
	Draws    []DrawPlan
}

// FramePlan is the ordered list of passes recorded for one frame.
type FramePlan struct {
	Passes []PassPlan
}

// BuildFramePlan returns the pass sequence for one frame:
//
//	reset (pong depth := 0.0)
//	for i in [0, passes):
//	    peel i      -> accumulation, depth := ping if i even else pong (cleared 1.0),
//	                   reads the other depth buffer
//	    composite i -> target, cleared on i == 0, loaded afterwards
//	sky         -> target (load), pong depth cleared 1.0, compare Equal
//
// Counts must already be valid; see scene.Counts.Validate.
func BuildFramePlan(counts scene.Counts, passes int) (FramePlan, error) {
	if passes <= 0 {
		return FramePlan{}, fmt.Errorf("%w: %d", ErrInvalidPeelPasses, passes)
	}
	if counts[scene.Triangle]%2 != 0 {
		return FramePlan{}, fmt.Errorf("%w: %w", ErrInvalidRenderData, scene.ErrOddTriangleCount)
	}

	plan := FramePlan{Passes: make([]PassPlan, 0, 2*passes+2)}
	plan.Passes = append(plan.Passes, PassPlan{
		Kind:       PassReset,
		Layer:      -1,
		Color:      AttachNone,
		Depth:      AttachDepthPong,
		DepthClear: 0.0,
		DepthRead:  AttachNone,
		Pipeline:   PipelineNone,
	})

	draws := geometryDraws(counts)
	for i := range passes {
		slot := depthSlot(i % 2) //nolint:gosec // 0 or 1
		write, read := slot.attachment(), slot.other().attachment()
		plan.Passes = append(plan.Passes, PassPlan{
			Kind:       PassPeel,
			Layer:      i,
			Color:      AttachAccumulation,
			ColorLoad:  gputypes.LoadOpClear,
			ColorClear: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
			Depth:      write,
			DepthClear: 1.0,
			DepthRead:  read,
			Pipeline:   PipelineBase,
			Draws:      draws,
		})

		load := gputypes.LoadOpLoad
		if i == 0 {
			load = gputypes.LoadOpClear
		}
		plan.Passes = append(plan.Passes, PassPlan{
			Kind:       PassComposite,
			Layer:      i,
			Color:      AttachTarget,
			ColorLoad:  load,
			ColorClear: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
			Depth:      AttachNone,
			DepthRead:  AttachNone,
			Pipeline:   PipelineScreen,
			Draws:      []DrawPlan{fullScreenDraw()},
		})
	}

	plan.Passes = append(plan.Passes, PassPlan{
		Kind:       PassSky,
		Layer:      -1,
		Color:      AttachTarget,
		ColorLoad:  gputypes.LoadOpLoad,
		Depth:      AttachDepthPong,
		DepthClear: 1.0,
		DepthRead:  AttachNone,
		Pipeline:   PipelineSky,
		Draws:      []DrawPlan{fullScreenDraw()},
	})
	return plan, nil
}

// geometryDraws returns the draws of a peel pass: purple triangles, blue
// triangles, then floor quads, each reading its contiguous instance range.
func geometryDraws(counts scene.Counts) []DrawPlan {
	half := counts[scene.Triangle] / 2
	return []DrawPlan{
		{Mesh: MeshTriangle, Material: MaterialPurple, VertexCount: 3, InstanceCount: half, FirstInstance: 0},
		{Mesh: MeshTriangle, Material: MaterialBlue, VertexCount: 3, InstanceCount: half, FirstInstance: half},
		{
			Mesh: MeshQuad, Material: MaterialFloor, VertexCount: 6,
			InstanceCount: counts[scene.Floor], FirstInstance: counts.First(scene.Floor),
		},
	}
}

func fullScreenDraw() DrawPlan {
	return DrawPlan{Mesh: MeshNone, Material: MaterialNone, VertexCount: fullScreenVertices, InstanceCount: 1}
}

// DrawCalls returns the number of draw calls in the plan.
func (p FramePlan) DrawCalls() int {
	n := 0
	for i := range p.Passes {
		n += len(p.Passes[i].Draws)
	}
	return n
}

// Package scene produces the per-frame render data consumed by the renderer:
// a flat buffer of instance transforms, the instance count of each object
// category and the camera's view transform.
//
// The renderer treats everything in this package as read-only input. The
// Scene type is the reference producer used by the demo application; any
// other producer only has to fill a RenderData that passes Validate.
package scene

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Errors returned by render data producers and validators.
var (
	// ErrCapacityExceeded is returned when a write would place more than
	// MaxInstances matrices into a TransformBuffer.
	ErrCapacityExceeded = errors.New("scene: transform buffer capacity exceeded")

	// ErrOddTriangleCount is returned when the triangle count cannot be split
	// evenly between the two triangle materials.
	ErrOddTriangleCount = errors.New("scene: triangle count must be even")

	// ErrCountMismatch is returned when the object counts do not add up to
	// the number of matrices written to the transform buffer.
	ErrCountMismatch = errors.New("scene: object counts do not match written transforms")

	// ErrNilTransforms is returned when RenderData carries no transform buffer.
	ErrNilTransforms = errors.New("scene: nil transform buffer")
)

// ObjectType identifies a drawable category. Instances of each category
// occupy a contiguous range of the transform buffer, in declaration order.
type ObjectType uint8

const (
	// Triangle instances come first in the transform buffer. The first half
	// is drawn with the purple material, the second half with the blue one.
	Triangle ObjectType = iota

	// Floor quads follow the triangles.
	Floor

	// NumObjectTypes is the number of object categories.
	NumObjectTypes
)

// String returns the category name.
func (t ObjectType) String() string {
	switch t {
	case Triangle:
		return "TRIANGLE"
	case Floor:
		return "FLOOR"
	default:
		return fmt.Sprintf("ObjectType(%d)", uint8(t))
	}
}

// Counts holds the instance count of every object category, indexed by
// ObjectType.
type Counts [NumObjectTypes]uint32

// Total returns the number of instances across all categories. The sum is
// taken in 64 bits so it cannot wrap.
func (c Counts) Total() uint64 {
	var n uint64
	for _, v := range c {
		n += uint64(v)
	}
	return n
}

// First returns the index of the first instance of category t within the
// transform buffer.
func (c Counts) First(t ObjectType) uint32 {
	var n uint32
	for i := ObjectType(0); i < t && i < NumObjectTypes; i++ {
		n += c[i]
	}
	return n
}

// Validate checks the counts against a buffer holding written matrices.
// Every written matrix must belong to exactly one instance, so the total
// must equal written.
func (c Counts) Validate(written int) error {
	if c[Triangle]%2 != 0 {
		return fmt.Errorf("%w: got %d", ErrOddTriangleCount, c[Triangle])
	}
	total := c.Total()
	if total > MaxInstances {
		return fmt.Errorf("%w: %d instances, capacity %d", ErrCapacityExceeded, total, MaxInstances)
	}
	if written < 0 || total != uint64(written) {
		return fmt.Errorf("%w: counts total %d, buffer holds %d", ErrCountMismatch, total, written)
	}
	return nil
}

// RenderData is the per-frame snapshot handed to the renderer.
// The renderer must not mutate it.
type RenderData struct {
	// View is the camera view transform.
	View mgl32.Mat4

	// Transforms holds one model matrix per instance, triangles first.
	Transforms *TransformBuffer

	// Counts is the number of instances of each category.
	Counts Counts
}

// Validate reports whether the render data satisfies the renderer contract.
func (d *RenderData) Validate() error {
	if d.Transforms == nil {
		return ErrNilTransforms
	}
	return d.Counts.Validate(d.Transforms.Len())
}

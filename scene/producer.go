package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Layout of the reference scene.
const (
	// trianglesPerSet is the number of triangles drawn with each material.
	trianglesPerSet = 10

	// floorExtent is the half-size of the floor grid; the grid spans
	// [-floorExtent, floorExtent] on both X and Y.
	floorExtent = 10
)

// Scene is the reference render data producer: two sets of spinning
// triangles standing on a grid of floor quads, seen through a player camera.
type Scene struct {
	triangles []*TriangleModel
	floor     []*QuadModel
	player    *Camera

	transforms TransformBuffer
	counts     Counts
}

// New builds the reference scene. Every model is written into the transform
// buffer once so the first RenderData is valid before any Update.
func New() (*Scene, error) {
	s := &Scene{
		player: NewCamera(mgl32.Vec3{-2, 0, 0.5}, 0, 0),
	}

	for y := -trianglesPerSet / 2; y < trianglesPerSet/2; y++ {
		s.triangles = append(s.triangles,
			NewTriangleModel(mgl32.Vec3{2, float32(y), 0}, mgl32.Vec3{1, 1, 2}, 0))
	}
	for y := -trianglesPerSet / 2; y < trianglesPerSet/2; y++ {
		s.triangles = append(s.triangles,
			NewTriangleModel(mgl32.Vec3{2, float32(y), 0}, mgl32.Vec3{2, 1, 1}, 90))
	}
	for x := -floorExtent; x <= floorExtent; x++ {
		for y := -floorExtent; y <= floorExtent; y++ {
			s.floor = append(s.floor,
				NewQuadModel(mgl32.Vec3{float32(x), float32(y), 0}, mgl32.Vec3{}))
		}
	}

	for range s.triangles {
		if _, err := s.transforms.Append(mgl32.Ident4()); err != nil {
			return nil, fmt.Errorf("scene: place triangles: %w", err)
		}
	}
	for range s.floor {
		if _, err := s.transforms.Append(mgl32.Ident4()); err != nil {
			return nil, fmt.Errorf("scene: place floor: %w", err)
		}
	}
	s.counts[Triangle] = uint32(len(s.triangles)) //nolint:gosec // bounded by MaxInstances
	s.counts[Floor] = uint32(len(s.floor))        //nolint:gosec // bounded by MaxInstances
	return s, nil
}

// Update advances every model one tick, rewrites the transform buffer in
// category order and refreshes the camera.
func (s *Scene) Update() error {
	i := 0
	for _, t := range s.triangles {
		t.Update()
		if err := s.transforms.Set(i, t.Model()); err != nil {
			return err
		}
		i++
	}
	for _, q := range s.floor {
		q.Update()
		if err := s.transforms.Set(i, q.Model()); err != nil {
			return err
		}
		i++
	}
	s.player.Update()
	return nil
}

// Player returns the scene camera.
func (s *Scene) Player() *Camera { return s.player }

// Counts returns the instance count of every category.
func (s *Scene) Counts() Counts { return s.counts }

// Renderables returns the render data for the current tick. The transform
// buffer is shared with the scene and is only valid until the next Update.
func (s *Scene) Renderables() RenderData {
	return RenderData{
		View:       s.player.View(),
		Transforms: &s.transforms,
		Counts:     s.counts,
	}
}

// SpinPlayer turns the player camera; see Camera.Spin.
func (s *Scene) SpinPlayer(dx, dy float32) { s.player.Spin(dx, dy) }

// MovePlayer moves the player camera; see Camera.Move.
func (s *Scene) MovePlayer(forwards, right float32) { s.player.Move(forwards, right) }

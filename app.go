package peel

import (
	"context"
	"fmt"

	"github.com/gogpu/peel/scene"
)

// App drives the reference scene through a Renderer.
type App struct {
	Renderer *Renderer
	Scene    *scene.Scene

	// Step, when set, is called before each frame's scene update. Use it to
	// move or turn the player.
	Step func(frame int, s *scene.Scene)
}

// NewApp creates the reference scene and an unready renderer.
func NewApp(opts ...Option) (*App, error) {
	s, err := scene.New()
	if err != nil {
		return nil, fmt.Errorf("peel: build scene: %w", err)
	}
	return &App{Renderer: NewRenderer(opts...), Scene: s}, nil
}

// Run initializes the renderer and draws frames frames, updating the scene
// before each one. It returns early when ctx is cancelled and waits for the
// GPU to finish the submitted frames before returning.
func (a *App) Run(ctx context.Context, frames int) error {
	if err := a.Renderer.Initialize(ctx); err != nil {
		return err
	}
	defer a.Renderer.Wait()

	for i := 0; i < frames; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if a.Step != nil {
			a.Step(i, a.Scene)
		}
		if err := a.Scene.Update(); err != nil {
			return fmt.Errorf("peel: frame %d: %w", i, err)
		}
		data := a.Scene.Renderables()
		if err := a.Renderer.Render(&data, a.Scene.Player()); err != nil {
			return fmt.Errorf("peel: frame %d: %w", i, err)
		}
	}
	slogger().Debug("peel: run finished", "frames", frames, "last_frame_time", a.Renderer.FrameTime())
	return nil
}

// Close releases the renderer.
func (a *App) Close() error { return a.Renderer.Close() }

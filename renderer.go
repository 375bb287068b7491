package peel

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/peel/asset"
	"github.com/gogpu/peel/internal/gpu"
	"github.com/gogpu/peel/scene"
)

// Target is a presentable canvas. See NewSurfaceTarget.
type Target = gpu.Target

// NewSurfaceTarget wraps a texture view owned by the host, such as the
// current surface texture of a window, as a Target.
func NewSurfaceTarget(view hal.TextureView, width, height uint32, format gputypes.TextureFormat) Target {
	return &gpu.ViewTarget{View: view, Width: width, Height: height, ViewFormat: format}
}

// Renderer draws depth-peeled frames.
//
// A Renderer is created unready. Render is a silent no-op until Initialize
// succeeds, so a render loop may start before setup completes. Initialize,
// Render and Close are serialized by an internal mutex; FrameTime may be
// called from any goroutine.
type Renderer struct {
	mu   sync.Mutex
	opts options

	device    *gpu.Device
	res       *gpu.ResourceSet
	pipes     *gpu.PipelineSet
	frames    *gpu.FrameOrchestrator
	target    Target
	offscreen *gpu.OffscreenTarget

	closed bool
}

// NewRenderer returns an unready renderer configured by opts.
func NewRenderer(opts ...Option) *Renderer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Renderer{opts: o}
}

// Initialize acquires a device, loads every texture and creates all GPU
// resources and pipelines. Setup is sequential; if any step fails
// everything created so far is released and the renderer stays unready.
// Calling Initialize on a ready renderer does nothing.
func (r *Renderer) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if r.frames != nil {
		return nil
	}
	if err := r.validate(); err != nil {
		return err
	}
	if err := r.setup(ctx); err != nil {
		r.teardown()
		return err
	}
	slogger().Info("peel: renderer ready",
		"device", r.device.Name(),
		"width", r.opts.width, "height", r.opts.height,
		"peel_passes", r.opts.peelPasses)
	return nil
}

func (r *Renderer) validate() error {
	o := &r.opts
	if o.width == 0 || o.height == 0 {
		return fmt.Errorf("%w: %dx%d", gpu.ErrInvalidSize, o.width, o.height)
	}
	if o.peelPasses <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPeelPasses, o.peelPasses)
	}
	if o.assets == nil {
		return ErrNoAssets
	}
	return nil
}

func (r *Renderer) setup(ctx context.Context) error {
	o := &r.opts

	dev, err := r.openDevice()
	if err != nil {
		return err
	}
	r.device = dev

	loader, err := asset.NewLoader(o.assets, o.assetExt)
	if err != nil {
		return fmt.Errorf("peel: %w", err)
	}
	loader.SetGenerateMips(o.genMips)
	r.res, err = gpu.NewResourceSet(ctx, dev.Device, dev.Queue, gpu.ResourceConfig{
		Width:     o.width,
		Height:    o.height,
		Materials: o.materials,
	}, loader)
	if err != nil {
		return err
	}

	r.target = o.target
	if r.target == nil {
		r.offscreen, err = gpu.NewOffscreenTarget(dev.Device, dev.Queue, o.width, o.height)
		if err != nil {
			return err
		}
		r.target = r.offscreen
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("peel: setup: %w", err)
	}
	r.pipes, err = gpu.NewPipelineSet(dev.Device, r.res, r.target.Format())
	if err != nil {
		return err
	}

	frames, err := gpu.NewFrameOrchestrator(dev.Device, dev.Queue, r.res, r.pipes, gpu.FrameConfig{
		PeelPasses:  o.peelPasses,
		FieldOfView: o.fovy,
		Near:        o.near,
		Far:         o.far,
		OnFrame:     o.onFrame,
	})
	if err != nil {
		return err
	}
	r.frames = frames
	return nil
}

func (r *Renderer) openDevice() (*gpu.Device, error) {
	switch {
	case r.opts.halDevice != nil || r.opts.halQueue != nil:
		return gpu.WrapDevice(r.opts.halDevice, r.opts.halQueue)
	case r.opts.provider != nil:
		return gpu.DeviceFromProvider(r.opts.provider)
	default:
		return gpu.OpenDevice()
	}
}

// teardown releases everything in reverse creation order. Must hold r.mu
// and no frames may be in flight unless none can call back into r.
func (r *Renderer) teardown() {
	if r.frames != nil {
		r.frames.Wait()
		r.frames = nil
	}
	if r.pipes != nil {
		r.pipes.Destroy()
		r.pipes = nil
	}
	if r.offscreen != nil {
		r.offscreen.Destroy()
		r.offscreen = nil
	}
	r.target = nil
	if r.res != nil {
		r.res.Destroy()
		r.res = nil
	}
	if r.device != nil {
		r.device.Release()
		r.device = nil
	}
}

// Ready reports whether Initialize has completed.
func (r *Renderer) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed && r.frames.Ready()
}

// Render draws one frame. Before Initialize it returns nil without doing
// anything. Render data that violates the renderer contract is rejected
// with ErrInvalidRenderData. Render does not wait for the GPU.
func (r *Renderer) Render(data *scene.RenderData, cam *scene.Camera) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.frames == nil {
		slogger().Debug("peel: render skipped, renderer not ready")
		return nil
	}
	return r.frames.Render(data, cam, r.target)
}

// Snapshot returns the pixels of the last rendered frame. It is only
// available when rendering into the renderer's own offscreen target.
func (r *Renderer) Snapshot() (*image.RGBA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.offscreen == nil {
		return nil, ErrNotInitialized
	}
	return r.offscreen.ReadPixels()
}

// FrameTime returns the time the most recent completed frame took from
// Render to GPU completion, or 0 before the first frame.
func (r *Renderer) FrameTime() time.Duration {
	r.mu.Lock()
	f := r.frames
	r.mu.Unlock()
	if f == nil {
		return 0
	}
	return f.FrameTime()
}

// Wait blocks until every submitted frame has completed.
func (r *Renderer) Wait() {
	r.mu.Lock()
	f := r.frames
	r.mu.Unlock()
	if f != nil {
		f.Wait()
	}
}

// Size returns the canvas size.
func (r *Renderer) Size() (width, height uint32) { return r.opts.width, r.opts.height }

// Close waits for frames in flight and releases all GPU resources. A
// borrowed device is left open. Safe to call multiple times.
//
// Frames in flight are awaited without holding the renderer lock, so a
// frame time handler may call back into the renderer while Close runs.
func (r *Renderer) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	frames := r.frames
	r.mu.Unlock()

	if frames != nil {
		frames.Wait()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.teardown()
	slogger().Debug("peel: renderer closed")
	return nil
}

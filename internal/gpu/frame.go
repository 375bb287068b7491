package gpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/peel/scene"
)

// Default projection parameters.
const (
	DefaultFieldOfView = math.Pi / 4
	DefaultNear        = 0.1
	DefaultFar         = 10
)

// defaultFrameTimeout bounds how long a completion goroutine waits for the
// GPU before giving up on timing that frame.
const defaultFrameTimeout = 5 * time.Second

// FrameConfig configures a FrameOrchestrator. Zero fields take defaults.
type FrameConfig struct {
	// PeelPasses is the number of layers peeled per frame.
	PeelPasses int

	// FieldOfView is the vertical field of view in radians.
	FieldOfView float32
	Near, Far   float32

	// OnFrame is called from a completion goroutine with the time from the
	// start of Render to GPU completion.
	OnFrame func(time.Duration)

	// Timeout bounds the wait for GPU completion of a frame.
	Timeout time.Duration
}

func (c FrameConfig) withDefaults() FrameConfig {
	if c.PeelPasses == 0 {
		c.PeelPasses = DefaultPeelPasses
	}
	if c.FieldOfView == 0 {
		c.FieldOfView = DefaultFieldOfView
	}
	if c.Near == 0 {
		c.Near = DefaultNear
	}
	if c.Far == 0 {
		c.Far = DefaultFar
	}
	if c.Timeout == 0 {
		c.Timeout = defaultFrameTimeout
	}
	return c
}

// FrameOrchestrator records and submits one depth-peeled frame per Render
// call. It borrows the resource and pipeline sets; it owns nothing but the
// command buffers of frames in flight.
//
// Render must be called from one goroutine. FrameTime may be called from
// any goroutine.
type FrameOrchestrator struct {
	device hal.Device
	queue  hal.Queue
	res    *ResourceSet
	pipes  *PipelineSet
	cfg    FrameConfig

	inflight  sync.WaitGroup
	frameTime atomic.Int64
	frames    atomic.Uint64
}

// NewFrameOrchestrator creates an orchestrator drawing with res and pipes.
// A nil pipes is allowed; Render then does nothing until pipelines exist.
func NewFrameOrchestrator(device hal.Device, queue hal.Queue, res *ResourceSet, pipes *PipelineSet,
	cfg FrameConfig,
) (*FrameOrchestrator, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	cfg = cfg.withDefaults()
	if cfg.PeelPasses < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPeelPasses, cfg.PeelPasses)
	}
	if cfg.Near <= 0 || cfg.Far <= cfg.Near {
		return nil, fmt.Errorf("gpu: invalid clip planes near=%v far=%v", cfg.Near, cfg.Far)
	}
	return &FrameOrchestrator{device: device, queue: SerializeQueue(queue), res: res, pipes: pipes, cfg: cfg}, nil
}

// Ready reports whether Render will draw.
func (f *FrameOrchestrator) Ready() bool {
	return f != nil && f.res != nil && f.pipes.Ready()
}

// Render draws one frame of data seen from cam into target.
//
// If the pipelines do not exist yet Render returns nil without touching any
// GPU resource. Invalid render data is rejected with ErrInvalidRenderData
// before anything is uploaded. Render returns once the frame is submitted;
// GPU completion is observed asynchronously.
func (f *FrameOrchestrator) Render(data *scene.RenderData, cam *scene.Camera, target Target) error {
	if !f.Ready() {
		slogger().Debug("gpu: render skipped, pipelines not ready")
		return nil
	}
	start := time.Now()

	if data == nil || cam == nil {
		return fmt.Errorf("%w: nil render data or camera", ErrInvalidRenderData)
	}
	if err := data.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRenderData, err)
	}
	if target == nil {
		return fmt.Errorf("%w: nil target", ErrTargetMismatch)
	}
	w, h := f.res.Size()
	if tw, th := target.Size(); tw != w || th != h || target.Format() != f.pipes.TargetFormat() {
		return fmt.Errorf("%w: target %dx%d %v, renderer %dx%d %v",
			ErrTargetMismatch, tw, th, target.Format(), w, h, f.pipes.TargetFormat())
	}

	plan, err := BuildFramePlan(data.Counts, f.cfg.PeelPasses)
	if err != nil {
		return err
	}

	aspect := float32(w) / float32(h)
	if err := f.res.Upload(
		data.Transforms.Bytes(),
		data.View,
		scene.Perspective(f.cfg.FieldOfView, aspect, f.cfg.Near, f.cfg.Far),
		scene.SkyBasis(cam, f.cfg.FieldOfView, aspect),
	); err != nil {
		return err
	}

	view, err := target.AcquireView()
	if err != nil {
		return fmt.Errorf("gpu: acquire target: %w", err)
	}
	cmdBuf, err := f.encode(plan, view)
	if err != nil {
		return err
	}

	index, err := f.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		f.device.FreeCommandBuffer(cmdBuf)
		return fmt.Errorf("gpu: submit: %w", err)
	}

	f.inflight.Add(1)
	go f.complete(start, cmdBuf, index)

	if err := target.Present(); err != nil {
		return fmt.Errorf("gpu: present: %w", err)
	}
	return nil
}

// encode records every pass of plan into one command buffer.
func (f *FrameOrchestrator) encode(plan FramePlan, target hal.TextureView) (hal.CommandBuffer, error) {
	return recordCommands(f.device, "peel_frame", func(encoder hal.CommandEncoder) {
		for i := range plan.Passes {
			f.encodePass(encoder, &plan.Passes[i], target)
		}
	})
}

func (f *FrameOrchestrator) encodePass(encoder hal.CommandEncoder, p *PassPlan, target hal.TextureView) {
	desc := &hal.RenderPassDescriptor{Label: passLabel(p)}
	if p.Color != AttachNone {
		view := target
		if p.Color == AttachAccumulation {
			view = f.res.screenView
		}
		desc.ColorAttachments = []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     p.ColorLoad,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: p.ColorClear,
		}}
	}
	if p.Depth != AttachNone {
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:            f.res.depthView[p.Depth.depthSlot()],
			DepthLoadOp:     gputypes.LoadOpClear,
			DepthStoreOp:    gputypes.StoreOpStore,
			DepthClearValue: p.DepthClear,
		}
	}

	rp := encoder.BeginRenderPass(desc)
	if pipeline := f.pipes.Pipeline(p.Pipeline); pipeline != nil {
		rp.SetPipeline(pipeline)
		switch p.Kind {
		case PassPeel:
			rp.SetBindGroup(0, f.res.frameGroup, nil)
			rp.SetBindGroup(2, f.res.depthGroup[p.DepthRead.depthSlot()], nil)
		case PassComposite:
			rp.SetBindGroup(0, f.res.screenGroup, nil)
		case PassSky:
			rp.SetBindGroup(0, f.res.skyGroup, nil)
		}
		for _, d := range p.Draws {
			if d.InstanceCount == 0 {
				continue
			}
			if m := f.res.Material(d.Material); m != nil {
				rp.SetBindGroup(1, m.BindGroup(), nil)
			}
			if mesh := f.res.mesh(d.Mesh); mesh != nil {
				rp.SetVertexBuffer(0, mesh.Buffer(), 0)
			}
			rp.Draw(d.VertexCount, d.InstanceCount, d.FirstVertex, d.FirstInstance)
		}
	}
	rp.End()
}

func passLabel(p *PassPlan) string {
	if p.Layer < 0 {
		return "peel_" + p.Kind.String()
	}
	return fmt.Sprintf("peel_%v_%d", p.Kind, p.Layer)
}

// complete waits for a submitted frame, records its time and releases the
// command buffer. The buffer of a frame that times out is not freed while
// the GPU may still read it.
func (f *FrameOrchestrator) complete(start time.Time, cmdBuf hal.CommandBuffer, index uint64) {
	defer f.inflight.Done()

	if err := awaitSubmission(f.queue, index, f.cfg.Timeout); err != nil {
		slogger().Warn("gpu: frame completion wait failed", "err", err)
		return
	}
	f.device.FreeCommandBuffer(cmdBuf)

	elapsed := time.Since(start)
	f.frameTime.Store(int64(elapsed))
	f.frames.Add(1)
	if f.cfg.OnFrame != nil {
		f.cfg.OnFrame(elapsed)
	}
}

// FrameTime returns the duration of the most recently completed frame.
func (f *FrameOrchestrator) FrameTime() time.Duration {
	return time.Duration(f.frameTime.Load())
}

// CompletedFrames returns the number of frames observed complete.
func (f *FrameOrchestrator) CompletedFrames() uint64 { return f.frames.Load() }

// PeelPasses returns the configured number of peel passes.
func (f *FrameOrchestrator) PeelPasses() int { return f.cfg.PeelPasses }

// Wait blocks until every submitted frame has been observed complete.
func (f *FrameOrchestrator) Wait() { f.inflight.Wait() }

// packFloats encodes values as little-endian float32 bytes.
func packFloats(values []float32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

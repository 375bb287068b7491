package gpu

import (
	"fmt"
	"image"
	"time"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// copyPitchAlignment is the row alignment required for texture to buffer
// copies.
const copyPitchAlignment = 256

// readbackTimeout bounds the wait for a pixel readback.
const readbackTimeout = 5 * time.Second

// Target is the presentable canvas a frame is composited into.
//
// AcquireView is called once per frame before encoding; Present is called
// after the frame has been submitted.
type Target interface {
	Size() (width, height uint32)
	Format() gputypes.TextureFormat
	AcquireView() (hal.TextureView, error)
	Present() error
}

// ViewTarget wraps a texture view owned by someone else, typically the
// current surface texture of a host window. Present is a no-op; the host
// presents the surface.
type ViewTarget struct {
	View          hal.TextureView
	Width, Height uint32
	ViewFormat    gputypes.TextureFormat
}

// Size returns the view size.
func (t *ViewTarget) Size() (uint32, uint32) { return t.Width, t.Height }

// Format returns the view format.
func (t *ViewTarget) Format() gputypes.TextureFormat { return t.ViewFormat }

// AcquireView returns the wrapped view.
func (t *ViewTarget) AcquireView() (hal.TextureView, error) {
	if t.View == nil {
		return nil, fmt.Errorf("%w: no surface view", ErrNotInitialized)
	}
	return t.View, nil
}

// Present does nothing.
func (t *ViewTarget) Present() error { return nil }

// OffscreenTarget is an RGBA8 texture the renderer composites into, with CPU
// readback for snapshots and tests.
type OffscreenTarget struct {
	device hal.Device
	queue  hal.Queue

	texture hal.Texture
	view    hal.TextureView

	width, height uint32
	frames        uint64
}

// NewOffscreenTarget creates a width x height RGBA8 render target.
func NewOffscreenTarget(device hal.Device, queue hal.Queue, width, height uint32) (*OffscreenTarget, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	t := &OffscreenTarget{device: device, queue: queue, width: width, height: height}

	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "offscreen_target",
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create offscreen texture: %w", err)
	}
	t.texture = tex

	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "offscreen_target_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		t.Destroy()
		return nil, fmt.Errorf("gpu: create offscreen view: %w", err)
	}
	t.view = view
	return t, nil
}

// Size returns the target size.
func (t *OffscreenTarget) Size() (uint32, uint32) { return t.width, t.height }

// Format returns TextureFormatRGBA8Unorm.
func (t *OffscreenTarget) Format() gputypes.TextureFormat { return gputypes.TextureFormatRGBA8Unorm }

// AcquireView returns the texture view.
func (t *OffscreenTarget) AcquireView() (hal.TextureView, error) {
	if t.view == nil {
		return nil, fmt.Errorf("%w: offscreen target destroyed", ErrNotInitialized)
	}
	return t.view, nil
}

// Present counts the frame. The pixels stay in the texture until ReadPixels.
func (t *OffscreenTarget) Present() error {
	t.frames++
	return nil
}

// Frames returns the number of frames presented.
func (t *OffscreenTarget) Frames() uint64 { return t.frames }

// ReadPixels copies the target into a new image. The copy is queued after
// every frame already submitted, so it observes the last presented frame.
func (t *OffscreenTarget) ReadPixels() (*image.RGBA, error) {
	if t.texture == nil {
		return nil, fmt.Errorf("%w: offscreen target destroyed", ErrNotInitialized)
	}
	w, h := t.width, t.height

	bytesPerRow := w * 4
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	staging, err := t.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "offscreen_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create staging buffer: %w", err)
	}
	defer t.device.DestroyBuffer(staging)

	cmdBuf, err := recordCommands(t.device, "readback", func(encoder hal.CommandEncoder) {
		// Vulkan needs the texture in TRANSFER_SRC layout for the copy.
		encoder.TransitionTextures([]hal.TextureBarrier{{
			Texture: t.texture,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageRenderAttachment,
				NewUsage: gputypes.TextureUsageCopySrc,
			},
		}})
		encoder.CopyTextureToBuffer(t.texture, staging, []hal.BufferTextureCopy{{
			BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
			TextureBase:  hal.ImageCopyTexture{Texture: t.texture, MipLevel: 0},
			Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		}})
		encoder.TransitionTextures([]hal.TextureBarrier{{
			Texture: t.texture,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageCopySrc,
				NewUsage: gputypes.TextureUsageRenderAttachment,
			},
		}})
	})
	if err != nil {
		return nil, err
	}

	index, err := t.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		t.device.FreeCommandBuffer(cmdBuf)
		return nil, fmt.Errorf("gpu: submit readback: %w", err)
	}
	if err := awaitSubmission(t.queue, index, readbackTimeout); err != nil {
		return nil, fmt.Errorf("gpu: wait for readback: %w", err)
	}
	t.device.FreeCommandBuffer(cmdBuf)

	mapping, err := t.device.MapBuffer(staging, 0, stagingSize)
	if err != nil {
		return nil, fmt.Errorf("gpu: map staging buffer: %w", err)
	}
	raw := unsafe.Slice((*byte)(mapping.Ptr), stagingSize)

	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	for row := 0; row < int(h); row++ {
		src := row * int(alignedBytesPerRow)
		copy(img.Pix[row*img.Stride:row*img.Stride+int(bytesPerRow)], raw[src:src+int(bytesPerRow)])
	}
	if err := t.device.UnmapBuffer(staging); err != nil {
		return nil, fmt.Errorf("gpu: unmap staging buffer: %w", err)
	}
	return img, nil
}

// Destroy releases the view and texture. Safe to call multiple times.
func (t *OffscreenTarget) Destroy() {
	if t.view != nil {
		t.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.texture != nil {
		t.device.DestroyTexture(t.texture)
		t.texture = nil
	}
}

package peel

import (
	"io/fs"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/peel/internal/gpu"
)

// Default canvas size.
const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

// DefaultPeelPasses is the number of transparent layers peeled per frame.
const DefaultPeelPasses = gpu.DefaultPeelPasses

// Option configures a Renderer.
//
// Example:
//
//	r := peel.NewRenderer(
//	    peel.WithSize(1280, 720),
//	    peel.WithAssets(os.DirFS("gfx")),
//	    peel.WithPeelPasses(8),
//	)
type Option func(*options)

type options struct {
	width, height uint32
	peelPasses    int

	assets    fs.FS
	assetExt  string
	materials gpu.MaterialSet
	genMips   bool

	fovy, near, far float32

	provider  gpucontext.DeviceProvider
	halDevice hal.Device
	halQueue  hal.Queue
	target    Target

	onFrame func(time.Duration)
}

func defaultOptions() options {
	return options{
		width:      DefaultWidth,
		height:     DefaultHeight,
		peelPasses: DefaultPeelPasses,
		materials:  gpu.DefaultMaterials(),
		fovy:       gpu.DefaultFieldOfView,
		near:       gpu.DefaultNear,
		far:        gpu.DefaultFar,
	}
}

// WithSize sets the canvas size. Resizing after Initialize is not supported.
func WithSize(width, height uint32) Option {
	return func(o *options) {
		o.width, o.height = width, height
	}
}

// WithPeelPasses sets how many layers are peeled per frame. More passes
// resolve deeper stacks of overlapping transparent surfaces.
func WithPeelPasses(n int) Option {
	return func(o *options) {
		o.peelPasses = n
	}
}

// WithAssets sets the file system textures are loaded from. Material mips
// live at <name>/<name><i>.<ext>, sky faces at sky_<face>.<ext>.
func WithAssets(fsys fs.FS) Option {
	return func(o *options) {
		o.assets = fsys
	}
}

// WithAssetExt sets the texture file extension (default "png"). Any format
// the asset package decodes works: png, jpeg, bmp, webp, tga.
func WithAssetExt(ext string) Option {
	return func(o *options) {
		o.assetExt = ext
	}
}

// WithMipCounts sets the number of mip levels loaded for the purple, blue
// and floor materials.
func WithMipCounts(purple, blue, floor int) Option {
	return func(o *options) {
		o.materials[gpu.MaterialPurple].MipCount = purple
		o.materials[gpu.MaterialBlue].MipCount = blue
		o.materials[gpu.MaterialFloor].MipCount = floor
	}
}

// WithGeneratedMips fills mip levels missing from the asset file system by
// downsampling the level above. Without it a missing level fails Initialize.
func WithGeneratedMips() Option {
	return func(o *options) {
		o.genMips = true
	}
}

// WithFieldOfView sets the vertical field of view in radians.
func WithFieldOfView(fovy float32) Option {
	return func(o *options) {
		o.fovy = fovy
	}
}

// WithClipPlanes sets the near and far clip distances.
func WithClipPlanes(near, far float32) Option {
	return func(o *options) {
		o.near, o.far = near, far
	}
}

// WithDeviceProvider renders on a device borrowed from a host application.
// The provider must also expose HalDevice() and HalQueue(). The device is
// not destroyed by Close.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// WithHAL renders on an existing hal device and queue, owned by the caller.
func WithHAL(device hal.Device, queue hal.Queue) Option {
	return func(o *options) {
		o.halDevice, o.halQueue = device, queue
	}
}

// WithTarget composites frames into t instead of an owned offscreen
// texture. Its size must match WithSize.
func WithTarget(t Target) Option {
	return func(o *options) {
		o.target = t
	}
}

// WithFrameTimeHandler registers fn to be called with the duration of each
// frame once the GPU has finished it. fn runs on a background goroutine and
// may call back into the renderer, except for Wait and Close, which wait for
// fn itself to return.
func WithFrameTimeHandler(fn func(time.Duration)) Option {
	return func(o *options) {
		o.onFrame = fn
	}
}

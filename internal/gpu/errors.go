package gpu

import "errors"

// Errors returned by the renderer and its resources.
var (
	// ErrNoAdapter is returned when the Vulkan backend exposes no adapter.
	ErrNoAdapter = errors.New("gpu: no GPU adapter available")

	// ErrBackendUnavailable is returned when the Vulkan backend is not
	// registered with the hal.
	ErrBackendUnavailable = errors.New("gpu: vulkan backend not available")

	// ErrProviderNoHAL is returned when a device provider does not expose
	// hal.Device and hal.Queue.
	ErrProviderNoHAL = errors.New("gpu: device provider does not expose HAL types")

	// ErrNilDevice is returned when a nil device or queue is supplied.
	ErrNilDevice = errors.New("gpu: nil device or queue")

	// ErrInvalidSize is returned for zero canvas or texture dimensions.
	ErrInvalidSize = errors.New("gpu: invalid size")

	// ErrMipSizeMismatch is returned when a mip level image does not have
	// exactly half the dimensions of the previous level.
	ErrMipSizeMismatch = errors.New("gpu: mip level size mismatch")

	// ErrCubeFaceMismatch is returned when sky cube faces are not square or
	// differ in size.
	ErrCubeFaceMismatch = errors.New("gpu: sky cube face size mismatch")

	// ErrTargetMismatch is returned when a presentation target does not
	// match the size or format the renderer was initialized with.
	ErrTargetMismatch = errors.New("gpu: target size or format mismatch")

	// ErrInvalidPeelPasses is returned for a non-positive peel pass count.
	ErrInvalidPeelPasses = errors.New("gpu: peel pass count must be positive")

	// ErrInvalidRenderData is returned when per-frame render data violates
	// the renderer contract (odd triangle count, counts beyond the buffer).
	ErrInvalidRenderData = errors.New("gpu: invalid render data")

	// ErrGPUTimeout is returned when submitted work does not complete in
	// time.
	ErrGPUTimeout = errors.New("gpu: timed out waiting for the GPU")

	// ErrNotInitialized is returned by operations that need GPU resources
	// before they exist.
	ErrNotInitialized = errors.New("gpu: not initialized")
)

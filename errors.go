package peel

import (
	"errors"

	"github.com/gogpu/peel/internal/gpu"
)

// Errors returned by Renderer and App.
var (
	// ErrClosed is returned by Initialize after Close.
	ErrClosed = errors.New("peel: renderer closed")

	// ErrNotInitialized is returned by Snapshot before Initialize.
	ErrNotInitialized = errors.New("peel: renderer not initialized")

	// ErrNoAssets is returned by Initialize when no asset source is set.
	ErrNoAssets = errors.New("peel: no asset source configured")

	// ErrInvalidRenderData is returned by Render for render data that
	// violates the renderer contract.
	ErrInvalidRenderData = gpu.ErrInvalidRenderData

	// ErrInvalidPeelPasses is returned for a non-positive peel pass count.
	ErrInvalidPeelPasses = gpu.ErrInvalidPeelPasses
)

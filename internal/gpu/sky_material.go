package gpu

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// CubeSource supplies the six sky faces in +X, -X, +Y, -Y, +Z, -Z order.
type CubeSource interface {
	SkyCube() ([6]*image.RGBA, error)
}

// SkyMaterial is a cube texture and its clamping sampler.
type SkyMaterial struct {
	device hal.Device

	texture hal.Texture
	view    hal.TextureView
	sampler hal.Sampler
	size    uint32
}

// LoadSkyMaterial reads the six faces from src and uploads them.
func LoadSkyMaterial(device hal.Device, queue hal.Queue, src CubeSource) (*SkyMaterial, error) {
	faces, err := src.SkyCube()
	if err != nil {
		return nil, fmt.Errorf("sky material: %w", err)
	}
	return NewSkyMaterial(device, queue, faces)
}

// NewSkyMaterial uploads faces as the layers of a cube texture. All faces
// must be square and the same size.
func NewSkyMaterial(device hal.Device, queue hal.Queue, faces [6]*image.RGBA) (*SkyMaterial, error) {
	if faces[0] == nil {
		return nil, fmt.Errorf("sky material: %w: face 0 missing", ErrCubeFaceMismatch)
	}
	size := faces[0].Bounds().Dx()
	if size <= 0 {
		return nil, fmt.Errorf("sky material: %w: empty face", ErrInvalidSize)
	}
	for i, f := range faces {
		if f == nil || f.Bounds().Dx() != size || f.Bounds().Dy() != size {
			return nil, fmt.Errorf("sky material: %w: face %d", ErrCubeFaceMismatch, i)
		}
	}

	s := &SkyMaterial{device: device, size: uint32(size)} //nolint:gosec // image dimensions fit uint32
	if err := s.create(queue, faces); err != nil {
		s.Destroy()
		return nil, fmt.Errorf("sky material: %w", err)
	}
	return s, nil
}

func (s *SkyMaterial) create(queue hal.Queue, faces [6]*image.RGBA) error {
	tex, err := s.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "sky_texture",
		Size:          hal.Extent3D{Width: s.size, Height: s.size, DepthOrArrayLayers: 6},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create texture: %w", err)
	}
	s.texture = tex

	for i, f := range faces {
		if err := writeImage(queue, tex, 0, uint32(i), f); err != nil { //nolint:gosec // six faces
			return fmt.Errorf("upload face %d: %w", i, err)
		}
	}

	view, err := s.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:           "sky_view",
		Format:          gputypes.TextureFormatRGBA8Unorm,
		Dimension:       gputypes.TextureViewDimensionCube,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: 6,
	})
	if err != nil {
		return fmt.Errorf("create cube view: %w", err)
	}
	s.view = view

	sampler, err := s.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "sky_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeNearest,
		Anisotropy:   1,
	})
	if err != nil {
		return fmt.Errorf("create sampler: %w", err)
	}
	s.sampler = sampler
	return nil
}

// View returns the cube view.
func (s *SkyMaterial) View() hal.TextureView { return s.view }

// Sampler returns the cube sampler.
func (s *SkyMaterial) Sampler() hal.Sampler { return s.sampler }

// Size returns the edge length of a face.
func (s *SkyMaterial) Size() uint32 { return s.size }

// Destroy releases the sampler, view and texture. Safe to call multiple times.
func (s *SkyMaterial) Destroy() {
	if s.sampler != nil {
		s.device.DestroySampler(s.sampler)
		s.sampler = nil
	}
	if s.view != nil {
		s.device.DestroyTextureView(s.view)
		s.view = nil
	}
	if s.texture != nil {
		s.device.DestroyTexture(s.texture)
		s.texture = nil
	}
}

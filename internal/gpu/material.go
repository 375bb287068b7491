package gpu

import (
	"encoding/binary"
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// materialFlagsSize is the byte size of the material uniform:
// transparent (u32) + 3 x u32 padding = 16 bytes.
const materialFlagsSize = 16

// materialAnisotropy is the anisotropic filtering clamp of material samplers.
const materialAnisotropy = 4

// MipSource supplies the mip chain of a named material.
type MipSource interface {
	MipChain(name string, count int) ([]*image.RGBA, error)
}

// Material is a mipmapped texture, its sampler and a transparency flag,
// bound together as group(1) of the base pipeline.
type Material struct {
	device hal.Device

	Name        string
	Transparent bool

	texture   hal.Texture
	view      hal.TextureView
	sampler   hal.Sampler
	flags     hal.Buffer
	bindGroup hal.BindGroup

	width, height uint32
	mipCount      uint32
}

// newMaterialLayout creates the bind group layout shared by all materials:
//
//	binding 0: texture_2d<f32>
//	binding 1: filtering sampler
//	binding 2: flags uniform
func newMaterialLayout(device hal.Device) (hal.BindGroupLayout, error) {
	layout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "material_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create material layout: %w", err)
	}
	return layout, nil
}

// LoadMaterial reads mipCount levels of the named material from src and
// uploads them. See NewMaterial.
func LoadMaterial(device hal.Device, queue hal.Queue, layout hal.BindGroupLayout,
	src MipSource, name string, transparent bool, mipCount int,
) (*Material, error) {
	levels, err := src.MipChain(name, mipCount)
	if err != nil {
		return nil, fmt.Errorf("material %s: %w", name, err)
	}
	return NewMaterial(device, queue, layout, name, transparent, levels)
}

// NewMaterial uploads levels as the mip chain of a new texture. Level 0 sets
// the texture size; level i must be exactly max(1, w0>>i) by max(1, h0>>i).
// On error every resource created so far is released.
func NewMaterial(device hal.Device, queue hal.Queue, layout hal.BindGroupLayout,
	name string, transparent bool, levels []*image.RGBA,
) (*Material, error) {
	if len(levels) == 0 {
		return nil, fmt.Errorf("material %s: %w: no mip levels", name, ErrInvalidSize)
	}
	w0, h0 := levels[0].Bounds().Dx(), levels[0].Bounds().Dy()
	if w0 <= 0 || h0 <= 0 {
		return nil, fmt.Errorf("material %s: %w: %dx%d", name, ErrInvalidSize, w0, h0)
	}
	for i, img := range levels {
		wantW, wantH := max(1, w0>>i), max(1, h0>>i)
		if img.Bounds().Dx() != wantW || img.Bounds().Dy() != wantH {
			return nil, fmt.Errorf("material %s: %w: level %d is %dx%d, want %dx%d",
				name, ErrMipSizeMismatch, i, img.Bounds().Dx(), img.Bounds().Dy(), wantW, wantH)
		}
	}

	m := &Material{
		device:      device,
		Name:        name,
		Transparent: transparent,
		width:       uint32(w0),          //nolint:gosec // image dimensions fit uint32
		height:      uint32(h0),          //nolint:gosec // image dimensions fit uint32
		mipCount:    uint32(len(levels)), //nolint:gosec // mip count is small
	}
	if err := m.create(queue, layout, levels); err != nil {
		m.Destroy()
		return nil, fmt.Errorf("material %s: %w", name, err)
	}
	slogger().Debug("gpu: material ready", "name", name, "width", w0, "height", h0,
		"mips", len(levels), "transparent", transparent)
	return m, nil
}

func (m *Material) create(queue hal.Queue, layout hal.BindGroupLayout, levels []*image.RGBA) error {
	tex, err := m.device.CreateTexture(&hal.TextureDescriptor{
		Label:         m.Name + "_texture",
		Size:          hal.Extent3D{Width: m.width, Height: m.height, DepthOrArrayLayers: 1},
		MipLevelCount: m.mipCount,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create texture: %w", err)
	}
	m.texture = tex

	for i, img := range levels {
		if err := writeImage(queue, tex, uint32(i), 0, img); err != nil { //nolint:gosec // mip index is small
			return fmt.Errorf("upload mip %d: %w", i, err)
		}
	}

	view, err := m.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         m.Name + "_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: m.mipCount,
	})
	if err != nil {
		return fmt.Errorf("create texture view: %w", err)
	}
	m.view = view

	sampler, err := m.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        m.Name + "_sampler",
		AddressModeU: gputypes.AddressModeRepeat,
		AddressModeV: gputypes.AddressModeRepeat,
		AddressModeW: gputypes.AddressModeRepeat,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
		LodMinClamp:  0,
		LodMaxClamp:  float32(m.mipCount),
		Anisotropy:   materialAnisotropy,
	})
	if err != nil {
		return fmt.Errorf("create sampler: %w", err)
	}
	m.sampler = sampler

	flags, err := m.device.CreateBuffer(&hal.BufferDescriptor{
		Label: m.Name + "_flags",
		Size:  materialFlagsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create flags buffer: %w", err)
	}
	m.flags = flags
	if err := queue.WriteBuffer(flags, 0, materialFlags(m.Transparent)); err != nil {
		return fmt.Errorf("upload flags: %w", err)
	}

	bg, err := m.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  m.Name + "_bind_group",
		Layout: layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: textureBinding(view)},
			{Binding: 1, Resource: samplerBinding(sampler)},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: flags.NativeHandle(), Offset: 0, Size: materialFlagsSize}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	m.bindGroup = bg
	return nil
}

// materialFlags packs the material uniform.
func materialFlags(transparent bool) []byte {
	data := make([]byte, materialFlagsSize)
	if transparent {
		binary.LittleEndian.PutUint32(data[0:], 1)
	}
	return data
}

// writeImage uploads img into one mip level and array layer of tex.
func writeImage(queue hal.Queue, tex hal.Texture, mip, layer uint32, img *image.RGBA) error {
	w := uint32(img.Bounds().Dx()) //nolint:gosec // image dimensions fit uint32
	h := uint32(img.Bounds().Dy()) //nolint:gosec // image dimensions fit uint32
	return queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  tex,
			MipLevel: mip,
			Origin:   hal.Origin3D{X: 0, Y: 0, Z: layer},
			Aspect:   gputypes.TextureAspectAll,
		},
		tightPixels(img),
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  w * 4,
			RowsPerImage: h,
		},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
}

// tightPixels returns the pixels of img without row padding.
func tightPixels(img *image.RGBA) []byte {
	b := img.Bounds()
	rowLen := b.Dx() * 4
	if img.Stride == rowLen && len(img.Pix) == rowLen*b.Dy() {
		return img.Pix
	}
	out := make([]byte, rowLen*b.Dy())
	for y := 0; y < b.Dy(); y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(out[y*rowLen:(y+1)*rowLen], img.Pix[off:off+rowLen])
	}
	return out
}

// BindGroup returns the group(1) bind group.
func (m *Material) BindGroup() hal.BindGroup { return m.bindGroup }

// Size returns the dimensions of mip level 0.
func (m *Material) Size() (uint32, uint32) { return m.width, m.height }

// MipCount returns the number of mip levels.
func (m *Material) MipCount() uint32 { return m.mipCount }

// Destroy releases all resources in reverse creation order. Safe to call
// multiple times.
func (m *Material) Destroy() {
	if m.bindGroup != nil {
		m.device.DestroyBindGroup(m.bindGroup)
		m.bindGroup = nil
	}
	if m.flags != nil {
		m.device.DestroyBuffer(m.flags)
		m.flags = nil
	}
	if m.sampler != nil {
		m.device.DestroySampler(m.sampler)
		m.sampler = nil
	}
	if m.view != nil {
		m.device.DestroyTextureView(m.view)
		m.view = nil
	}
	if m.texture != nil {
		m.device.DestroyTexture(m.texture)
		m.texture = nil
	}
}

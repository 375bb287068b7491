package gpu

import (
	"context"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/peel/scene"
)

// Buffer sizes of the per-frame uniforms.
const (
	// cameraUniformSize holds view (mat4x4<f32>) followed by projection.
	cameraUniformSize = 2 * scene.MatrixSize

	// instanceBufferSize holds MaxInstances model matrices.
	instanceBufferSize = scene.MaxInstances * scene.MatrixSize

	// skyBasisSize holds forwards, right and up, each padded to vec4.
	skyBasisSize = 48
)

// Formats of the offscreen attachments.
const (
	// DepthFormat is the format of both peel depth buffers.
	DepthFormat = gputypes.TextureFormatDepth32Float

	// AccumulationFormat is the format of the per-layer accumulation texture.
	AccumulationFormat = gputypes.TextureFormatRGBA8Unorm
)

// MaterialRole names the material slots the frame draws with.
type MaterialRole uint8

const (
	// MaterialPurple is used by the first half of the triangles.
	MaterialPurple MaterialRole = iota

	// MaterialBlue is used by the second half of the triangles.
	MaterialBlue

	// MaterialFloor is used by the floor quads.
	MaterialFloor

	// MaterialNone marks draws that bind no material.
	MaterialNone
)

const materialRoleCount = int(MaterialNone)

// String returns the role name.
func (r MaterialRole) String() string {
	switch r {
	case MaterialPurple:
		return "purple"
	case MaterialBlue:
		return "blue"
	case MaterialFloor:
		return "floor"
	case MaterialNone:
		return "none"
	default:
		return fmt.Sprintf("MaterialRole(%d)", uint8(r))
	}
}

// MaterialConfig describes the asset behind a material slot.
type MaterialConfig struct {
	Name        string
	Transparent bool
	MipCount    int
}

// MaterialSet holds one MaterialConfig per MaterialRole.
type MaterialSet [materialRoleCount]MaterialConfig

// DefaultMaterials returns the material slots of the reference scene.
func DefaultMaterials() MaterialSet {
	return MaterialSet{
		MaterialPurple: {Name: "Purple", Transparent: true, MipCount: 1},
		MaterialBlue:   {Name: "Blue", Transparent: true, MipCount: 1},
		MaterialFloor:  {Name: "floor", Transparent: false, MipCount: 6},
	}
}

// Assets supplies every image the resource set uploads.
type Assets interface {
	MipSource
	CubeSource
}

// ResourceConfig configures NewResourceSet.
type ResourceConfig struct {
	Width, Height uint32
	Materials     MaterialSet
}

// depthSlot indexes the two peel depth buffers.
type depthSlot uint8

const (
	depthPing depthSlot = iota
	depthPong
	depthSlotCount
)

// other returns the slot that is not s.
func (s depthSlot) other() depthSlot { return s ^ 1 }

// ResourceSet owns every buffer, texture, layout and bind group used by a
// frame. Everything is created once by NewResourceSet and is immutable
// afterwards except buffer contents.
type ResourceSet struct {
	device hal.Device
	queue  hal.Queue

	width, height uint32

	triangleMesh *Mesh
	quadMesh     *Mesh

	materialLayout hal.BindGroupLayout
	materials      [materialRoleCount]*Material
	sky            *SkyMaterial

	cameraBuf   hal.Buffer
	instanceBuf hal.Buffer
	skyBasisBuf hal.Buffer

	depthTex  [depthSlotCount]hal.Texture
	depthView [depthSlotCount]hal.TextureView

	screenTex     hal.Texture
	screenView    hal.TextureView
	screenSampler hal.Sampler

	frameLayout  hal.BindGroupLayout
	depthLayout  hal.BindGroupLayout
	skyLayout    hal.BindGroupLayout
	screenLayout hal.BindGroupLayout

	frameGroup  hal.BindGroup
	depthGroup  [depthSlotCount]hal.BindGroup
	skyGroup    hal.BindGroup
	screenGroup hal.BindGroup
}

// NewResourceSet creates all frame resources in order: meshes, materials,
// uniform and storage buffers, depth and accumulation textures, bind group
// layouts, bind groups. A failure at any step releases everything created
// before it. ctx is checked between steps.
func NewResourceSet(ctx context.Context, device hal.Device, queue hal.Queue,
	cfg ResourceConfig, assets Assets,
) (*ResourceSet, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, cfg.Width, cfg.Height)
	}

	r := &ResourceSet{
		device: device,
		queue:  queue,
		width:  cfg.Width,
		height: cfg.Height,
	}
	steps := []struct {
		name string
		fn   func() error
	}{
		{"meshes", r.createMeshes},
		{"materials", func() error { return r.createMaterials(cfg, assets) }},
		{"buffers", r.createBuffers},
		{"textures", r.createTextures},
		{"layouts", r.createLayouts},
		{"bind groups", r.createBindGroups},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			r.Destroy()
			return nil, fmt.Errorf("gpu: resource setup: %w", err)
		}
		if err := step.fn(); err != nil {
			r.Destroy()
			return nil, fmt.Errorf("gpu: create %s: %w", step.name, err)
		}
	}
	slogger().Debug("gpu: resources ready", "width", cfg.Width, "height", cfg.Height)
	return r, nil
}

func (r *ResourceSet) createMeshes() error {
	tri, err := NewTriangleMesh(r.device, r.queue)
	if err != nil {
		return err
	}
	r.triangleMesh = tri

	quad, err := NewQuadMesh(r.device, r.queue)
	if err != nil {
		return err
	}
	r.quadMesh = quad
	return nil
}

func (r *ResourceSet) createMaterials(cfg ResourceConfig, assets Assets) error {
	if assets == nil {
		return fmt.Errorf("%w: no asset source", ErrNotInitialized)
	}
	layout, err := newMaterialLayout(r.device)
	if err != nil {
		return err
	}
	r.materialLayout = layout

	for role, mc := range cfg.Materials {
		m, err := LoadMaterial(r.device, r.queue, layout, assets, mc.Name, mc.Transparent, mc.MipCount)
		if err != nil {
			return fmt.Errorf("%v: %w", MaterialRole(role), err) //nolint:gosec // role < materialRoleCount
		}
		r.materials[role] = m
	}

	sky, err := LoadSkyMaterial(r.device, r.queue, assets)
	if err != nil {
		return err
	}
	r.sky = sky
	return nil
}

func (r *ResourceSet) createBuffers() error {
	var err error
	r.cameraBuf, err = r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "camera_uniform",
		Size:  cameraUniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("camera buffer: %w", err)
	}
	r.instanceBuf, err = r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "instance_storage",
		Size:  instanceBufferSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("instance buffer: %w", err)
	}
	r.skyBasisBuf, err = r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "sky_basis_uniform",
		Size:  skyBasisSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("sky basis buffer: %w", err)
	}
	return nil
}

func (r *ResourceSet) createTextures() error {
	size := hal.Extent3D{Width: r.width, Height: r.height, DepthOrArrayLayers: 1}

	for slot := range depthSlotCount {
		label := fmt.Sprintf("peel_depth_%d", slot)
		tex, err := r.device.CreateTexture(&hal.TextureDescriptor{
			Label:         label,
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        DepthFormat,
			Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		r.depthTex[slot] = tex

		view, err := r.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
			Label:         label + "_view",
			Format:        DepthFormat,
			Dimension:     gputypes.TextureViewDimension2D,
			Aspect:        gputypes.TextureAspectAll,
			MipLevelCount: 1,
		})
		if err != nil {
			return fmt.Errorf("%s view: %w", label, err)
		}
		r.depthView[slot] = view
	}

	screenTex, err := r.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "accumulation",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        AccumulationFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		return fmt.Errorf("accumulation texture: %w", err)
	}
	r.screenTex = screenTex

	screenView, err := r.device.CreateTextureView(screenTex, &hal.TextureViewDescriptor{
		Label:         "accumulation_view",
		Format:        AccumulationFormat,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		return fmt.Errorf("accumulation view: %w", err)
	}
	r.screenView = screenView

	sampler, err := r.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "accumulation_sampler",
		AddressModeU: gputypes.AddressModeRepeat,
		AddressModeV: gputypes.AddressModeRepeat,
		AddressModeW: gputypes.AddressModeRepeat,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeNearest,
		MipmapFilter: gputypes.FilterModeNearest,
		Anisotropy:   1,
	})
	if err != nil {
		return fmt.Errorf("accumulation sampler: %w", err)
	}
	r.screenSampler = sampler
	return nil
}

func (r *ResourceSet) createLayouts() error {
	var err error

	// group(0) of the base pipeline: camera uniform + instance matrices.
	r.frameLayout, err = r.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "frame_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("frame layout: %w", err)
	}

	// group(2) of the base pipeline: depth of the previous layer.
	r.depthLayout, err = r.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "depth_compare_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeDepth,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("depth layout: %w", err)
	}

	r.skyLayout, err = r.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "sky_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimensionCube,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sky layout: %w", err)
	}

	r.screenLayout, err = r.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "screen_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("screen layout: %w", err)
	}
	return nil
}

func (r *ResourceSet) createBindGroups() error {
	var err error
	r.frameGroup, err = r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "frame_bind_group",
		Layout: r.frameLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: r.cameraBuf.NativeHandle(), Offset: 0, Size: cameraUniformSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: r.instanceBuf.NativeHandle(), Offset: 0, Size: instanceBufferSize}},
		},
	})
	if err != nil {
		return fmt.Errorf("frame bind group: %w", err)
	}

	for slot := range depthSlotCount {
		r.depthGroup[slot], err = r.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:  fmt.Sprintf("depth_compare_%d", slot),
			Layout: r.depthLayout,
			Entries: []gputypes.BindGroupEntry{
				{Binding: 0, Resource: textureBinding(r.depthView[slot])},
			},
		})
		if err != nil {
			return fmt.Errorf("depth bind group %d: %w", slot, err)
		}
	}

	r.skyGroup, err = r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "sky_bind_group",
		Layout: r.skyLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: r.skyBasisBuf.NativeHandle(), Offset: 0, Size: skyBasisSize}},
			{Binding: 1, Resource: textureBinding(r.sky.View())},
			{Binding: 2, Resource: samplerBinding(r.sky.Sampler())},
		},
	})
	if err != nil {
		return fmt.Errorf("sky bind group: %w", err)
	}

	r.screenGroup, err = r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "screen_bind_group",
		Layout: r.screenLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: samplerBinding(r.screenSampler)},
			{Binding: 1, Resource: textureBinding(r.screenView)},
		},
	})
	if err != nil {
		return fmt.Errorf("screen bind group: %w", err)
	}
	return nil
}

func textureBinding(v hal.TextureView) gputypes.TextureViewBinding {
	return gputypes.TextureViewBinding{TextureView: v.NativeHandle()}
}

func samplerBinding(s hal.Sampler) gputypes.SamplerBinding {
	return gputypes.SamplerBinding{Sampler: s.NativeHandle()}
}

// Upload writes the per-frame buffers: instance matrices, view and
// projection, and the sky basis.
func (r *ResourceSet) Upload(transforms []byte, view, projection [16]float32, skyBasis [12]float32) error {
	if len(transforms) > 0 {
		if err := r.queue.WriteBuffer(r.instanceBuf, 0, transforms); err != nil {
			return fmt.Errorf("gpu: upload transforms: %w", err)
		}
	}
	if err := r.queue.WriteBuffer(r.cameraBuf, 0, packFloats(append(view[:], projection[:]...))); err != nil {
		return fmt.Errorf("gpu: upload camera: %w", err)
	}
	if err := r.queue.WriteBuffer(r.skyBasisBuf, 0, packFloats(skyBasis[:])); err != nil {
		return fmt.Errorf("gpu: upload sky basis: %w", err)
	}
	return nil
}

// Size returns the size of the depth and accumulation textures.
func (r *ResourceSet) Size() (uint32, uint32) { return r.width, r.height }

// Material returns the material in role, or nil.
func (r *ResourceSet) Material(role MaterialRole) *Material {
	if int(role) >= materialRoleCount {
		return nil
	}
	return r.materials[role]
}

// mesh returns the vertex buffer for kind.
func (r *ResourceSet) mesh(kind MeshKind) *Mesh {
	switch kind {
	case MeshTriangle:
		return r.triangleMesh
	case MeshQuad:
		return r.quadMesh
	default:
		return nil
	}
}

// Destroy releases all resources in reverse creation order. Safe to call
// multiple times and after a partial NewResourceSet.
func (r *ResourceSet) Destroy() {
	if r.screenGroup != nil {
		r.device.DestroyBindGroup(r.screenGroup)
		r.screenGroup = nil
	}
	if r.skyGroup != nil {
		r.device.DestroyBindGroup(r.skyGroup)
		r.skyGroup = nil
	}
	for slot := depthSlotCount; slot > 0; slot-- {
		if g := r.depthGroup[slot-1]; g != nil {
			r.device.DestroyBindGroup(g)
			r.depthGroup[slot-1] = nil
		}
	}
	if r.frameGroup != nil {
		r.device.DestroyBindGroup(r.frameGroup)
		r.frameGroup = nil
	}

	for _, l := range []*hal.BindGroupLayout{&r.screenLayout, &r.skyLayout, &r.depthLayout, &r.frameLayout} {
		if *l != nil {
			r.device.DestroyBindGroupLayout(*l)
			*l = nil
		}
	}

	if r.screenSampler != nil {
		r.device.DestroySampler(r.screenSampler)
		r.screenSampler = nil
	}
	if r.screenView != nil {
		r.device.DestroyTextureView(r.screenView)
		r.screenView = nil
	}
	if r.screenTex != nil {
		r.device.DestroyTexture(r.screenTex)
		r.screenTex = nil
	}
	for slot := depthSlotCount; slot > 0; slot-- {
		if v := r.depthView[slot-1]; v != nil {
			r.device.DestroyTextureView(v)
			r.depthView[slot-1] = nil
		}
		if t := r.depthTex[slot-1]; t != nil {
			r.device.DestroyTexture(t)
			r.depthTex[slot-1] = nil
		}
	}

	for _, b := range []*hal.Buffer{&r.skyBasisBuf, &r.instanceBuf, &r.cameraBuf} {
		if *b != nil {
			r.device.DestroyBuffer(*b)
			*b = nil
		}
	}

	if r.sky != nil {
		r.sky.Destroy()
		r.sky = nil
	}
	for i := materialRoleCount - 1; i >= 0; i-- {
		if r.materials[i] != nil {
			r.materials[i].Destroy()
			r.materials[i] = nil
		}
	}
	if r.materialLayout != nil {
		r.device.DestroyBindGroupLayout(r.materialLayout)
		r.materialLayout = nil
	}

	if r.quadMesh != nil {
		r.quadMesh.Destroy()
		r.quadMesh = nil
	}
	if r.triangleMesh != nil {
		r.triangleMesh.Destroy()
		r.triangleMesh = nil
	}
}

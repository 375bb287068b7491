package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// PipelineKind indexes the render pipelines of a PipelineSet.
type PipelineKind uint8

const (
	// PipelineBase draws peeled geometry into the accumulation texture.
	PipelineBase PipelineKind = iota

	// PipelineSky fills the remaining coverage with the sky cube.
	PipelineSky

	// PipelineScreen blends the accumulation texture under the target.
	PipelineScreen

	// PipelineNone marks passes that bind no pipeline.
	PipelineNone
)

const pipelineKindCount = int(PipelineNone)

// String returns the pipeline name.
func (k PipelineKind) String() string {
	switch k {
	case PipelineBase:
		return "base"
	case PipelineSky:
		return "sky"
	case PipelineScreen:
		return "screen"
	case PipelineNone:
		return "none"
	default:
		return fmt.Sprintf("PipelineKind(%d)", uint8(k))
	}
}

// frontToBackBlend composites a new layer under the layers already in the
// target: src*(1-dstAlpha) + dst, on colour and alpha.
func frontToBackBlend() gputypes.BlendState {
	under := gputypes.BlendComponent{
		SrcFactor: gputypes.BlendFactorOneMinusDstAlpha,
		DstFactor: gputypes.BlendFactorOne,
		Operation: gputypes.BlendOperationAdd,
	}
	return gputypes.BlendState{Color: under, Alpha: under}
}

// depthCompare returns the depth test of kind, or CompareFunctionUndefined
// for pipelines without a depth attachment.
func depthCompare(kind PipelineKind) gputypes.CompareFunction {
	switch kind {
	case PipelineBase:
		return gputypes.CompareFunctionLess
	case PipelineSky:
		return gputypes.CompareFunctionEqual
	default:
		return gputypes.CompareFunctionUndefined
	}
}

// keepStencil is a stencil face that never touches the stencil aspect.
var keepStencil = hal.StencilFaceState{
	Compare:     gputypes.CompareFunctionAlways,
	FailOp:      hal.StencilOperationKeep,
	DepthFailOp: hal.StencilOperationKeep,
	PassOp:      hal.StencilOperationKeep,
}

// PipelineSet owns the shader modules, pipeline layouts and render
// pipelines, each indexed by PipelineKind.
type PipelineSet struct {
	device hal.Device

	shaders   [pipelineKindCount]hal.ShaderModule
	layouts   [pipelineKindCount]hal.PipelineLayout
	pipelines [pipelineKindCount]hal.RenderPipeline

	targetFormat gputypes.TextureFormat
}

// NewPipelineSet compiles the shaders and creates the three pipelines
// against the layouts of res. targetFormat is the presentation target
// format the screen and sky pipelines write. On error every object created
// so far is released.
func NewPipelineSet(device hal.Device, res *ResourceSet, targetFormat gputypes.TextureFormat) (*PipelineSet, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if res == nil {
		return nil, fmt.Errorf("%w: nil resource set", ErrNotInitialized)
	}
	p := &PipelineSet{device: device, targetFormat: targetFormat}
	if err := p.create(res); err != nil {
		p.Destroy()
		return nil, err
	}
	slogger().Debug("gpu: pipelines ready", "target_format", targetFormat)
	return p, nil
}

func (p *PipelineSet) create(res *ResourceSet) error {
	for kind := range PipelineKind(pipelineKindCount) {
		src, err := ShaderSource(kind)
		if err != nil {
			return err
		}
		module, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
			Label:  kind.String() + "_shader",
			Source: hal.ShaderSource{WGSL: src},
		})
		if err != nil {
			return fmt.Errorf("compile %v shader: %w", kind, err)
		}
		p.shaders[kind] = module
	}

	groups := [pipelineKindCount][]hal.BindGroupLayout{
		PipelineBase:   {res.frameLayout, res.materialLayout, res.depthLayout},
		PipelineSky:    {res.skyLayout},
		PipelineScreen: {res.screenLayout},
	}
	for kind, bgl := range groups {
		layout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
			Label:            PipelineKind(kind).String() + "_pipe_layout", //nolint:gosec // kind < pipelineKindCount
			BindGroupLayouts: bgl,
		})
		if err != nil {
			return fmt.Errorf("create %v pipeline layout: %w", PipelineKind(kind), err) //nolint:gosec // kind < pipelineKindCount
		}
		p.layouts[kind] = layout
	}

	primitive := gputypes.PrimitiveState{
		Topology: gputypes.PrimitiveTopologyTriangleList,
		CullMode: gputypes.CullModeNone,
	}
	multisample := gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF}
	blend := frontToBackBlend()

	descs := [pipelineKindCount]*hal.RenderPipelineDescriptor{
		// Peeled geometry: nearest fragment behind the previous layer wins.
		PipelineBase: {
			Vertex: hal.VertexState{Buffers: meshVertexLayout()},
			Fragment: &hal.FragmentState{
				Targets: []gputypes.ColorTargetState{{
					Format:    AccumulationFormat,
					WriteMask: gputypes.ColorWriteMaskAll,
				}},
			},
			DepthStencil: &hal.DepthStencilState{
				Format:            DepthFormat,
				DepthWriteEnabled: true,
				DepthCompare:      depthCompare(PipelineBase),
				StencilFront:      keepStencil,
				StencilBack:       keepStencil,
			},
		},
		// Sky at the far plane; Equal against a buffer cleared to 1.0.
		PipelineSky: {
			Fragment: &hal.FragmentState{
				Targets: []gputypes.ColorTargetState{{
					Format:    p.targetFormat,
					Blend:     &blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				}},
			},
			DepthStencil: &hal.DepthStencilState{
				Format:            DepthFormat,
				DepthWriteEnabled: true,
				DepthCompare:      depthCompare(PipelineSky),
				StencilFront:      keepStencil,
				StencilBack:       keepStencil,
			},
		},
		// Full-screen layer composite, no depth.
		PipelineScreen: {
			Fragment: &hal.FragmentState{
				Targets: []gputypes.ColorTargetState{{
					Format:    p.targetFormat,
					Blend:     &blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				}},
			},
		},
	}

	for i, desc := range descs {
		kind := PipelineKind(i) //nolint:gosec // i < pipelineKindCount
		vs, fs := entryPoints(kind)
		desc.Label = kind.String() + "_pipeline"
		desc.Layout = p.layouts[kind]
		desc.Vertex.Module = p.shaders[kind]
		desc.Vertex.EntryPoint = vs
		desc.Fragment.Module = p.shaders[kind]
		desc.Fragment.EntryPoint = fs
		desc.Primitive = primitive
		desc.Multisample = multisample

		pipeline, err := p.device.CreateRenderPipeline(desc)
		if err != nil {
			return fmt.Errorf("create %v pipeline: %w", kind, err)
		}
		p.pipelines[kind] = pipeline
	}
	return nil
}

// Pipeline returns the pipeline of kind, or nil before creation.
func (p *PipelineSet) Pipeline(kind PipelineKind) hal.RenderPipeline {
	if p == nil || int(kind) >= pipelineKindCount {
		return nil
	}
	return p.pipelines[kind]
}

// Ready reports whether the base pipeline exists.
func (p *PipelineSet) Ready() bool { return p.Pipeline(PipelineBase) != nil }

// TargetFormat returns the format the screen and sky pipelines write.
func (p *PipelineSet) TargetFormat() gputypes.TextureFormat { return p.targetFormat }

// Destroy releases pipelines, layouts and shaders in reverse creation order.
// Safe to call multiple times.
func (p *PipelineSet) Destroy() {
	for i := pipelineKindCount - 1; i >= 0; i-- {
		if p.pipelines[i] != nil {
			p.device.DestroyRenderPipeline(p.pipelines[i])
			p.pipelines[i] = nil
		}
	}
	for i := pipelineKindCount - 1; i >= 0; i-- {
		if p.layouts[i] != nil {
			p.device.DestroyPipelineLayout(p.layouts[i])
			p.layouts[i] = nil
		}
	}
	for i := pipelineKindCount - 1; i >= 0; i-- {
		if p.shaders[i] != nil {
			p.device.DestroyShaderModule(p.shaders[i])
			p.shaders[i] = nil
		}
	}
}

// Package gpu implements the depth-peeling renderer on top of the
// gogpu/wgpu hardware abstraction layer.
//
// The package is split along resource ownership:
//
//   - Mesh, Material and SkyMaterial own immutable geometry and textures.
//   - ResourceSet owns every buffer, texture, layout and bind group the
//     frame needs, created once in a fixed order.
//   - PipelineSet owns the shader modules and the three render pipelines,
//     indexed by PipelineKind.
//   - FrameOrchestrator borrows both sets and records one frame per call.
//
// # Depth peeling
//
// Each frame peels up to PeelPasses layers of transparent geometry front to
// back. Two depth buffers alternate roles: the pass writes one while its
// fragment shader reads the other and discards every fragment at or in front
// of the depth recorded there. The surviving nearest layer lands in an
// offscreen accumulation texture which is then blended under the layers
// already in the target with src*(1-dstAlpha) + dst. A final pass fills the
// remaining coverage with the sky cube.
//
// The sequence of passes is computed by BuildFramePlan as plain data so it
// can be inspected without a device; FrameOrchestrator replays that plan
// into a hal.CommandEncoder.
//
// # Devices
//
// OpenDevice acquires a Vulkan device. DeviceFromProvider shares a device
// owned by a host application through gpucontext.DeviceProvider, and
// WrapDevice adopts an existing hal.Device and hal.Queue, which is how tests
// run the renderer on the noop backend.
package gpu

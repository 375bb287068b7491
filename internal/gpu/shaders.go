package gpu

import (
	_ "embed"
	"fmt"
)

// Embedded WGSL shader sources.

//go:embed shaders/base.wgsl
var baseShaderSource string

//go:embed shaders/sky.wgsl
var skyShaderSource string

//go:embed shaders/screen.wgsl
var screenShaderSource string

// Shader entry points.
const (
	baseVertexEntry     = "vs_main"
	baseFragmentEntry   = "fs_main"
	skyVertexEntry      = "sky_vert_main"
	skyFragmentEntry    = "sky_frag_main"
	screenVertexEntry   = "vert_main"
	screenFragmentEntry = "frag_main"
)

// ShaderSource returns the WGSL source of the shader used by kind.
func ShaderSource(kind PipelineKind) (string, error) {
	switch kind {
	case PipelineBase:
		return baseShaderSource, nil
	case PipelineSky:
		return skyShaderSource, nil
	case PipelineScreen:
		return screenShaderSource, nil
	default:
		return "", fmt.Errorf("gpu: no shader for %v", kind)
	}
}

// entryPoints returns the vertex and fragment entry points of kind.
func entryPoints(kind PipelineKind) (vertex, fragment string) {
	switch kind {
	case PipelineSky:
		return skyVertexEntry, skyFragmentEntry
	case PipelineScreen:
		return screenVertexEntry, screenFragmentEntry
	default:
		return baseVertexEntry, baseFragmentEntry
	}
}

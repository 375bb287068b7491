package gpu

import (
	"strings"
	"testing"

	"github.com/gogpu/naga"
)

func TestShaderSources(t *testing.T) {
	for kind := PipelineBase; kind < PipelineNone; kind++ {
		src, err := ShaderSource(kind)
		if err != nil {
			t.Fatalf("ShaderSource(%v): %v", kind, err)
		}
		vs, fs := entryPoints(kind)
		if !strings.Contains(src, "fn "+vs+"(") {
			t.Errorf("%v shader has no vertex entry %q", kind, vs)
		}
		if !strings.Contains(src, "fn "+fs+"(") {
			t.Errorf("%v shader has no fragment entry %q", kind, fs)
		}
	}
	if _, err := ShaderSource(PipelineNone); err == nil {
		t.Error("expected error for PipelineNone")
	}
}

func TestBaseShaderPeelPredicate(t *testing.T) {
	// Fragments at or in front of the last peeled depth are discarded.
	if !strings.Contains(baseShaderSource, "in.position.z <= peeled") {
		t.Error("base shader lost the peel predicate")
	}
	if !strings.Contains(baseShaderSource, "texture_depth_2d") {
		t.Error("base shader must read the previous layer as a depth texture")
	}
}

func TestShadersCompile(t *testing.T) {
	for kind := PipelineBase; kind < PipelineNone; kind++ {
		t.Run(kind.String(), func(t *testing.T) {
			src, _ := ShaderSource(kind)
			spirv, err := naga.Compile(src)
			if err != nil {
				t.Fatalf("naga.Compile(%v): %v", kind, err)
			}
			if len(spirv) == 0 {
				t.Fatal("empty SPIR-V output")
			}
			if len(spirv)%4 != 0 {
				t.Errorf("SPIR-V length %d is not word aligned", len(spirv))
			}
		})
	}
}

package shader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatVertex() *Source {
	return &Source{
		Stage:      Vertex,
		Attributes: []Attribute{{Name: "a_position", Type: "vec3", Location: 0}},
		Uniforms:   []Uniform{{Name: UniformModelViewProjection, Type: "mat4"}},
		Main:       "gl_Position = u_modelViewProjection * vec4(a_position, 1.0);",
	}
}

func flatFragment() *Source {
	return &Source{
		Stage:    Fragment,
		Uniforms: []Uniform{{Name: "u_color", Type: "vec4"}},
		Main:     "fragColor = u_color;",
	}
}

func TestRequirePositionVaryingWrapsVertexEntry(t *testing.T) {
	src := flatVertex()
	out, err := Derive(src, RequirePositionVarying{})
	require.NoError(t, err)

	name, ok := out.PositionVarying()
	require.True(t, ok)
	assert.Equal(t, PositionVaryingName, name)
	assert.True(t, out.HasUniform(UniformInverseProjection))
	require.True(t, out.HasFunction(WrappedMainName))
	assert.Equal(t, src.Main, out.Functions[len(out.Functions)-1].Body)
	assert.Contains(t, out.Main, "projection_cast_main();")
	assert.Contains(t, out.Main, "v_positionEC = (u_inverseProjection * gl_Position).xyz;")

	// The input is left alone.
	_, ok = src.PositionVarying()
	assert.False(t, ok)
	assert.Empty(t, src.Functions)
}

func TestRequirePositionVaryingReusesExisting(t *testing.T) {
	src := flatVertex()
	src.Varyings = []Varying{{Name: "v_eye", Type: "vec3", Semantic: SemanticPositionEC}}
	src.Main += "\nv_eye = (u_modelView * vec4(a_position, 1.0)).xyz;"

	out, err := Derive(src, RequirePositionVarying{})
	require.NoError(t, err)
	assert.Equal(t, src.Main, out.Main)
	assert.Len(t, out.Varyings, 1)
	assert.False(t, out.HasFunction(WrappedMainName))
}

func TestDepthCaptureVertex(t *testing.T) {
	out, err := Derive(flatVertex(), DepthCapture{}, GeneratePosition{})
	require.NoError(t, err)
	assert.True(t, out.HasDefine(DefineDepthCapture))
	assert.True(t, out.HasDefine(DefineGeneratePosition))
	_, ok := out.PositionVarying()
	assert.True(t, ok)

	glsl := out.GLSL()
	assert.True(t, strings.HasPrefix(glsl, "#version 410 core\n"))
	assert.Contains(t, glsl, "#define DEPTH_CAPTURE\n")
	assert.Contains(t, glsl, "layout(location = 0) in vec3 a_position;\n")
	assert.Contains(t, glsl, "out vec3 v_positionEC;\n")
	assert.Contains(t, glsl, "void projection_cast_main() {\n    gl_Position = u_modelViewProjection * vec4(a_position, 1.0);\n}\n")
}

func TestDepthCaptureVertexRejectsTranslucent(t *testing.T) {
	_, err := Derive(flatVertex(), DepthCapture{Translucent: true})
	assert.ErrorIs(t, err, ErrStage)
}

func TestDepthCaptureOpaqueFragment(t *testing.T) {
	out, err := Derive(flatFragment(), DepthCapture{})
	require.NoError(t, err)

	assert.NotContains(t, out.Main, "u_color", "opaque capture drops the original logic")
	assert.False(t, out.HasFunction(WrappedMainName))
	assert.True(t, out.HasUniform(FarUniform))
	assert.True(t, out.HasFunction(PackDepthFunc.Name))
	assert.Contains(t, out.Main, "float distance = length(v_positionEC);")
	assert.Contains(t, out.Main, "if (distance >= u_far) {\n    discard;\n}")
	assert.Contains(t, out.Main, "fragColor = packDepth(distance / u_far);")

	glsl := out.GLSL()
	assert.Contains(t, glsl, "in vec3 v_positionEC;\n")
	assert.Contains(t, glsl, "out vec4 fragColor;\n")
	assert.Contains(t, glsl, "uniform float u_far;\n")

	dc, ok := Lookup[DepthCapture](out)
	require.True(t, ok)
	assert.False(t, dc.Translucent)
}

func TestDepthCaptureTranslucentFragment(t *testing.T) {
	src := flatFragment()
	src.Output = "outColor"
	src.Varyings = []Varying{{Name: "v_eye", Type: "vec3", Semantic: SemanticPositionEC}}

	out, err := Derive(src, DepthCapture{Translucent: true})
	require.NoError(t, err)

	assert.True(t, out.HasFunction(WrappedMainName))
	assert.True(t, strings.HasPrefix(out.Main, "projection_cast_main();\nif (outColor.a == 0.0) {\n    discard;\n}\n"))
	assert.Contains(t, out.Main, "length(v_eye)")
	assert.Contains(t, out.Main, "outColor = packDepth(distance / u_far);")
	assert.Len(t, out.Varyings, 1)
}

func TestDeriveTwiceRejected(t *testing.T) {
	once, err := Derive(flatVertex(), RequirePositionVarying{})
	require.NoError(t, err)

	// A derived vertex stage already exposes the varying, so this is a no-op.
	twice, err := Derive(once, RequirePositionVarying{})
	require.NoError(t, err)
	assert.Equal(t, once.Main, twice.Main)

	frag, err := Derive(flatFragment(), DepthCapture{Translucent: true})
	require.NoError(t, err)
	_, err = Derive(frag, DepthCapture{Translucent: true})
	assert.ErrorIs(t, err, ErrAlreadyWrapped)
}

func TestLookupMissing(t *testing.T) {
	out, err := Derive(flatVertex(), GeneratePosition{})
	require.NoError(t, err)
	_, ok := Lookup[DepthCapture](out)
	assert.False(t, ok)
	_, ok = Lookup[GeneratePosition](out)
	assert.True(t, ok)
}

func TestDeriveNil(t *testing.T) {
	_, err := Derive(nil, GeneratePosition{})
	assert.Error(t, err)
}

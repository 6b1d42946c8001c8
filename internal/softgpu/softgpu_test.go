package softgpu

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projection-engine/core"
	"projection-engine/gpu"
	"projection-engine/postprocess"
	"projection-engine/shader"
)

const size = 16

func flatProgram(t *testing.T, c *Context) gpu.ShaderProgram {
	t.Helper()
	p, err := c.CreateShaderProgram(gpu.ProgramDesc{
		Vertex: &shader.Source{
			Stage:      shader.Vertex,
			Attributes: []shader.Attribute{{Name: "a_position", Type: "vec3"}},
			Uniforms:   []shader.Uniform{{Name: shader.UniformModelViewProjection, Type: "mat4"}},
			Main:       "gl_Position = u_modelViewProjection * vec4(a_position, 1.0);",
		},
		Fragment: &shader.Source{
			Stage:    shader.Fragment,
			Uniforms: []shader.Uniform{{Name: "u_color", Type: "vec4"}},
			Main:     "fragColor = u_color;",
		},
	})
	require.NoError(t, err)
	return p
}

// quad returns a 20x20 square at z facing +Z.
func quad(t *testing.T, c *Context, z float32) gpu.VertexArray {
	t.Helper()
	va, err := c.CreateVertexArray(gpu.VertexArrayDesc{
		Positions: []float32{-10, -10, z, 10, -10, z, 10, 10, z, -10, 10, z},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
	})
	require.NoError(t, err)
	return va
}

func target(t *testing.T, c *Context, depthTexture bool) *Framebuffer {
	t.Helper()
	color, err := c.CreateTexture(gpu.TextureDesc{Width: size, Height: size, Format: gpu.RGBA8})
	require.NoError(t, err)
	fb, err := c.CreateFramebuffer(gpu.FramebufferDesc{Color: color, DepthFormat: gpu.Depth32F, DepthTexture: depthTexture})
	require.NoError(t, err)
	return fb.(*Framebuffer)
}

func pass(fb gpu.Framebuffer) *gpu.PassState {
	return &gpu.PassState{
		Framebuffer: fb,
		Viewport:    gpu.Viewport{Width: size, Height: size},
		Camera: gpu.CameraContext{
			View:       mgl64.Ident4(),
			Projection: mgl64.Perspective(mgl64.DegToRad(90), 1, 1, 100),
			Near:       1,
			Far:        100,
		},
	}
}

func TestCreateTextureValidatesSize(t *testing.T) {
	c := New(WithMaxTextureSize(64))
	_, err := c.CreateTexture(gpu.TextureDesc{Width: 0, Height: 4})
	assert.ErrorIs(t, err, gpu.ErrInvalidSize)
	_, err = c.CreateTexture(gpu.TextureDesc{Width: 65, Height: 4})
	assert.ErrorIs(t, err, gpu.ErrInvalidSize)
	_, err = c.CreateTexture(gpu.TextureDesc{Width: 2, Height: 2, Pixels: []byte{1, 2, 3}})
	assert.Error(t, err)

	tex, err := c.CreateTexture(gpu.TextureDesc{Width: 64, Height: 64})
	require.NoError(t, err)
	tex.Destroy()
	tex.Destroy()
	assert.Equal(t, Stats{TexturesCreated: 1, TexturesDestroyed: 1}, c.Stats())
}

func TestSampleFilters(t *testing.T) {
	c := New()
	pix := []byte{
		0, 0, 0, 255, 255, 255, 255, 255, // bottom row
		0, 0, 0, 255, 255, 255, 255, 255,
	}
	nearest, err := c.CreateTexture(gpu.TextureDesc{Width: 2, Height: 2, Pixels: pix, Sampler: gpu.SamplerNearest})
	require.NoError(t, err)
	linear, err := c.CreateTexture(gpu.TextureDesc{Width: 2, Height: 2, Pixels: pix, Sampler: gpu.SamplerLinear})
	require.NoError(t, err)

	assert.Equal(t, float32(1), nearest.(*Texture).Sample(0.6, 0.5)[0])
	assert.InDelta(t, 0.5, linear.(*Texture).Sample(0.5, 0.5)[0], 1e-6)
	assert.InDelta(t, 0.0, linear.(*Texture).Sample(0.0, 0.5)[0], 1e-6)
}

func TestClear(t *testing.T) {
	c := New()
	fb := target(t, c, false)
	c.Clear(gpu.ClearCommand{Color: core.ColorFarDepth, Depth: 1, ClearColor: true, ClearDepth: true}, pass(fb))

	assert.Equal(t, [4]uint8{255, 255, 255, 0}, fb.color.Pixel(3, 7))
	assert.Equal(t, float32(1), fb.DepthAt(3, 7))
	assert.Nil(t, fb.Depth())
}

func TestExecuteDrawsColorAndDepth(t *testing.T) {
	c := New()
	fb := target(t, c, true)
	cmd := &gpu.DrawCommand{
		ID:            gpu.NewCommandID(),
		VertexArray:   quad(t, c, -5),
		ShaderProgram: flatProgram(t, c),
		RenderState:   c.RenderState(gpu.DefaultRenderState()),
		UniformMap:    gpu.UniformMap{"u_color": func() any { return core.Color{R: 1, A: 1} }},
		Model:         mgl64.Ident4(),
	}
	p := pass(fb)
	c.Clear(gpu.ClearCommand{Depth: 1, ClearColor: true, ClearDepth: true}, p)
	require.NoError(t, c.Execute(cmd, p))

	assert.Equal(t, [4]uint8{255, 0, 0, 255}, fb.color.Pixel(8, 8))
	assert.Less(t, fb.DepthAt(8, 8), float32(1))
	assert.Equal(t, fb.depthTex.DepthAt(8, 8), fb.DepthAt(8, 8))
}

func TestExecuteCullsBackFaces(t *testing.T) {
	c := New()
	fb := target(t, c, false)
	cmd := &gpu.DrawCommand{
		ID:            gpu.NewCommandID(),
		VertexArray:   quad(t, c, -5),
		ShaderProgram: flatProgram(t, c),
		RenderState:   c.RenderState(gpu.DefaultRenderState()),
		// Rotated half a turn the quad faces away from the camera.
		Model: mgl64.Translate3D(0, 0, -5).Mul4(mgl64.HomogRotate3DY(mgl64.DegToRad(180))).Mul4(mgl64.Translate3D(0, 0, 5)),
	}
	require.NoError(t, c.Execute(cmd, pass(fb)))
	assert.Zero(t, c.Stats().Fragments)

	rs := gpu.DefaultRenderState()
	rs.Cull.Enabled = false
	cmd.RenderState = c.RenderState(rs)
	require.NoError(t, c.Execute(cmd, pass(fb)))
	assert.NotZero(t, c.Stats().Fragments)
	assert.Equal(t, [4]uint8{255, 255, 255, 255}, fb.color.Pixel(3, 12))
}

func TestExecuteDepthCapture(t *testing.T) {
	c := New()
	fb := target(t, c, false)
	src := flatProgram(t, c)
	vs, err := shader.Derive(src.Vertex(), shader.DepthCapture{})
	require.NoError(t, err)
	fs, err := shader.Derive(src.Fragment(), shader.DepthCapture{})
	require.NoError(t, err)
	prog, err := c.CreateShaderProgram(gpu.ProgramDesc{Vertex: vs, Fragment: fs})
	require.NoError(t, err)

	cmd := &gpu.DrawCommand{
		ID:            gpu.NewCommandID(),
		VertexArray:   quad(t, c, -5),
		ShaderProgram: prog,
		RenderState:   c.RenderState(gpu.DefaultRenderState()),
		UniformMap:    gpu.UniformMap{shader.FarUniform: func() any { return 10.0 }},
		Model:         mgl64.Ident4(),
	}
	p := pass(fb)
	c.Clear(gpu.ClearCommand{Color: core.ColorFarDepth, Depth: 1, ClearColor: true, ClearDepth: true}, p)
	require.NoError(t, c.Execute(cmd, p))
	assert.InDelta(t, 0.5, shader.UnpackDepthBytes(fb.color.Pixel(8, 8)), 0.01)

	// Beyond the far distance every fragment is discarded.
	cmd.UniformMap = gpu.UniformMap{shader.FarUniform: func() any { return 4.0 }}
	c.Clear(gpu.ClearCommand{Color: core.ColorFarDepth, Depth: 1, ClearColor: true, ClearDepth: true}, p)
	require.NoError(t, c.Execute(cmd, p))
	assert.Equal(t, [4]uint8{255, 255, 255, 0}, fb.color.Pixel(8, 8))

	cmd.UniformMap = nil
	assert.Error(t, c.Execute(cmd, p))
}

func TestExecuteRejectsDestroyedProgram(t *testing.T) {
	c := New()
	prog := flatProgram(t, c)
	prog.Destroy()
	err := c.Execute(&gpu.DrawCommand{VertexArray: quad(t, c, -5), ShaderProgram: prog}, pass(nil))
	assert.ErrorIs(t, err, gpu.ErrDestroyed)
	assert.Equal(t, 1, c.Stats().ProgramsDestroyed)
}

func TestProgramIDsAreNotReused(t *testing.T) {
	c := New()
	a := flatProgram(t, c)
	a.Destroy()
	b := flatProgram(t, c)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestRunAppliesStagesInOrder(t *testing.T) {
	c := New()
	fb := target(t, c, true)
	c.Clear(gpu.ClearCommand{Color: core.Color{R: 0.2, A: 1}, Depth: 1, ClearColor: true, ClearDepth: true}, pass(fb))

	var sawSky bool
	invert := &postprocess.Stage{Name: "invert", Reference: func(in postprocess.Fragment) [4]float32 {
		sawSky = in.Depth == [4]float32{}
		return [4]float32{1 - in.Color[0], 1 - in.Color[1], 1 - in.Color[2], 1}
	}}
	halve := &postprocess.Stage{Name: "halve", Reference: func(in postprocess.Fragment) [4]float32 {
		return [4]float32{in.Color[0] / 2, in.Color[1] / 2, in.Color[2] / 2, 1}
	}}
	require.NoError(t, c.Run([]*postprocess.Stage{invert, halve}, fb, nil))

	require.NotNil(t, c.Screen())
	assert.Equal(t, [4]uint8{102, 128, 128, 255}, c.Screen().Pixel(0, 0))
	assert.True(t, sawSky, "depth 1 packs to zero")

	assert.ErrorIs(t, c.Run([]*postprocess.Stage{{Name: "gpu-only"}}, fb, nil), gpu.ErrUnsupported)
}

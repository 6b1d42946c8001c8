package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projection-engine/core"
	"projection-engine/gpu"
	"projection-engine/internal/softgpu"
	"projection-engine/math"
	"projection-engine/shader"
)

func newTestScene(t *testing.T) (*Scene, *softgpu.Context) {
	t.Helper()
	ctx := softgpu.New()
	cam := NewCamera(mgl64.Vec3{0, 0, 10}, mgl64.Vec3{0, 0, -1}, mgl64.Vec3{0, 1, 0},
		PerspectiveFrustum{Fov: mgl64.DegToRad(60), AspectRatio: 1, Near: 1, Far: 100})
	s := NewScene(ctx, cam, nil)
	t.Cleanup(s.Release)
	return s, ctx
}

func TestSceneAddBuildsCommands(t *testing.T) {
	s, ctx := newTestScene(t)

	a, err := s.Add(CreateQuad(2, 2), mgl64.Ident4())
	require.NoError(t, err)
	b, err := s.Add(CreateBox(1, 1, 1), mgl64.Translate3D(3, 0, 0))
	require.NoError(t, err)
	terrain, err := s.Add(CreateTerrain(10, 10, 4, nil), mgl64.Ident4())
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, gpu.PassOpaque, a.Pass)
	assert.Equal(t, gpu.PassGlobe, terrain.Pass)
	assert.Same(t, a.ShaderProgram, b.ShaderProgram, "flat meshes share a program")
	assert.NotSame(t, a.ShaderProgram, terrain.ShaderProgram)
	assert.Equal(t, 2, ctx.Stats().ProgramsCreated)
	assert.Same(t, a.RenderState, b.RenderState)

	_, ok := terrain.ShaderProgram.Vertex().PositionVarying()
	assert.True(t, ok)
	_, ok = a.ShaderProgram.Vertex().PositionVarying()
	assert.False(t, ok)

	sphere, ok := b.BoundingVolume.(math.BoundingSphere)
	require.True(t, ok)
	assert.InDelta(t, 3, sphere.Center.X(), 1e-9)
	assert.Equal(t, core.ColorWhite, a.UniformMap["u_color"]())
}

func TestSceneTranslucentState(t *testing.T) {
	s, _ := newTestScene(t)
	m := CreateQuad(1, 1)
	m.Pass = gpu.PassTranslucent
	m.Color = core.Color{R: 1, A: 0.5}
	cmd, err := s.Add(m, mgl64.Ident4())
	require.NoError(t, err)

	assert.True(t, cmd.RenderState.Blending)
	assert.False(t, cmd.RenderState.DepthMask)

	m.Color.A = 0
	assert.Equal(t, float32(0), cmd.UniformMap["u_color"]().(core.Color).A, "color is read at draw time")
}

func TestSceneRejectsEmptyMesh(t *testing.T) {
	s, _ := newTestScene(t)
	_, err := s.Add(&Mesh{Name: "empty"}, mgl64.Ident4())
	assert.Error(t, err)
}

func TestSceneSetModelMovesBounds(t *testing.T) {
	s, _ := newTestScene(t)
	cmd, err := s.Add(CreateBox(2, 2, 2), mgl64.Ident4())
	require.NoError(t, err)

	s.SetModel(cmd, mgl64.Translate3D(0, 0, -40))
	sphere := cmd.BoundingVolume.(math.BoundingSphere)
	assert.InDelta(t, -40, sphere.Center.Z(), 1e-9)
	assert.Equal(t, mgl64.Translate3D(0, 0, -40), cmd.Model)
}

func TestSceneFrameIncludesOverlays(t *testing.T) {
	s, _ := newTestScene(t)
	cmd, err := s.Add(CreateQuad(1, 1), mgl64.Ident4())
	require.NoError(t, err)
	overlay := &gpu.DrawCommand{ID: gpu.NewCommandID(), Pass: gpu.PassOverlay}
	s.Overlays.Add(overlay)
	s.Overlays.Add(overlay)

	f := s.Frame(7, 200, 100)
	assert.Equal(t, uint64(7), f.Number)
	assert.Equal(t, []*gpu.DrawCommand{cmd, overlay}, f.Commands)
	assert.Equal(t, 2.0, s.Camera.Frustum().AspectRatio)

	assert.True(t, s.Overlays.Remove(overlay))
	assert.False(t, s.Overlays.Remove(overlay))
	assert.True(t, s.Remove(cmd))
	assert.False(t, s.Remove(cmd))
	assert.Empty(t, s.Commands())
}

func TestSceneDraw(t *testing.T) {
	s, ctx := newTestScene(t)
	m := CreateQuad(40, 40)
	m.Color = core.Color{G: 1, A: 1}
	_, err := s.Add(m, mgl64.Ident4())
	require.NoError(t, err)

	color, err := ctx.CreateTexture(gpu.TextureDesc{Width: 8, Height: 8})
	require.NoError(t, err)
	fb, err := ctx.CreateFramebuffer(gpu.FramebufferDesc{Color: color, DepthFormat: gpu.Depth32F, DepthTexture: true})
	require.NoError(t, err)

	require.NoError(t, s.Draw(&gpu.PassState{
		Framebuffer: fb,
		Viewport:    gpu.Viewport{Width: 8, Height: 8},
		Camera:      s.Camera.Context(),
	}))
	assert.Equal(t, [4]uint8{0, 255, 0, 255}, color.(*softgpu.Texture).Pixel(4, 4))
}

func TestMaterialShadersRender(t *testing.T) {
	for _, src := range []*shader.Source{flatVertex(), flatFragment(), terrainVertex(), terrainFragment()} {
		glsl := src.GLSL()
		assert.Contains(t, glsl, "#version 410 core")
		assert.Contains(t, glsl, "void main()")
	}
}

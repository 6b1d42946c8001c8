package projection

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projection-engine/core"
	"projection-engine/gpu"
	"projection-engine/internal/softgpu"
	"projection-engine/postprocess"
	"projection-engine/shader"
	"projection-engine/video"
)

var (
	green = core.Color{R: 0, G: 1, B: 0, A: 1}
	red   = [4]byte{255, 0, 0, 255}
)

// sceneTarget is a size×size main pass target with a sampleable depth
// texture, drawn from the scene camera.
func (f *fixture) sceneTarget(t *testing.T, size int) *gpu.PassState {
	t.Helper()
	color, err := f.ctx.CreateTexture(gpu.TextureDesc{Width: size, Height: size, Format: gpu.RGBA8, Sampler: gpu.SamplerNearest})
	require.NoError(t, err)
	fb, err := f.ctx.CreateFramebuffer(gpu.FramebufferDesc{Color: color, DepthFormat: gpu.Depth32F, DepthTexture: true})
	require.NoError(t, err)
	return &gpu.PassState{
		Framebuffer: fb,
		Viewport:    gpu.Viewport{Width: size, Height: size},
		Camera:      f.scene.Camera.Context(),
	}
}

// render draws the main pass, updates p and runs the active stages.
func (f *fixture) render(t *testing.T, p *Projector, frame uint64) {
	t.Helper()
	fs := f.scene.Frame(frame, 32, 32)
	pass := f.sceneTarget(t, 32)
	require.NoError(t, f.scene.Draw(pass))
	require.NoError(t, p.Update(fs))
	require.NoError(t, f.ctx.Run(f.registry.Active(), pass.Framebuffer, nil))
}

func projectingRed(t *testing.T, f *fixture) *Projector {
	t.Helper()
	mb := video.NewMailbox()
	mb.Publish(rgbaFrame(2, 2, red))
	opts := testOptions()
	opts.Source = mb
	return f.projector(t, opts)
}

func TestProjectsVideoOntoVisibleSurface(t *testing.T) {
	f := newFixture(t)
	f.addQuad(t, 200, facing(50), green)
	p := projectingRed(t, f)

	f.render(t, p, 1)
	assert.Equal(t, [4]uint8{255, 0, 0, 255}, f.ctx.Screen().Pixel(16, 16))
	captured := p.Capture().Texture().(*softgpu.Texture)
	assert.InDelta(t, 0.5, shader.UnpackDepthBytes(captured.Pixel(16, 16)), 1e-3)
}

func TestOccludedSurfaceKeepsSceneColor(t *testing.T) {
	f := newFixture(t)
	f.addQuad(t, 200, facing(50), green)
	// Hides the region the main camera sees at its centre from the capture
	// camera without blocking the main camera itself.
	f.addQuad(t, 4, mgl64.Translate3D(4, 0, 20).Mul4(mgl64.HomogRotate3DY(mgl64.DegToRad(180))), core.ColorBlack)
	f.scene.Camera = mainCamera(mgl64.Vec3{10, 0, 0})
	p := projectingRed(t, f)

	f.render(t, p, 1)
	assert.Equal(t, [4]uint8{0, 255, 0, 255}, f.ctx.Screen().Pixel(16, 16))
}

func TestSkyPassesThrough(t *testing.T) {
	f := newFixture(t)
	f.scene.SkyColor = core.Color{R: 0, G: 0, B: 1, A: 1}
	p := projectingRed(t, f)

	f.render(t, p, 1)
	assert.Equal(t, [4]uint8{0, 0, 255, 255}, f.ctx.Screen().Pixel(16, 16))
}

func TestOutsideLensKeepsSceneColor(t *testing.T) {
	f := newFixture(t)
	f.addQuad(t, 200, facing(50), green)
	p := projectingRed(t, f)
	lens := DefaultLens()
	lens.XMax = 0.25
	require.NoError(t, p.SetLens(lens))

	f.render(t, p, 1)
	screen := f.ctx.Screen()
	assert.Equal(t, [4]uint8{0, 255, 0, 255}, screen.Pixel(16, 16))
	assert.Equal(t, [4]uint8{255, 0, 0, 255}, screen.Pixel(4, 16))
}

func TestEmptyLensProjectsNothing(t *testing.T) {
	f := newFixture(t)
	f.addQuad(t, 200, facing(50), green)
	p := projectingRed(t, f)
	lens := DefaultLens()
	lens.XMin, lens.XMax = 0.5, 0.5
	require.NoError(t, p.SetLens(lens))

	f.render(t, p, 1)
	screen := f.ctx.Screen()
	assert.Equal(t, [4]uint8{0, 255, 0, 255}, screen.Pixel(16, 16))
	assert.Equal(t, [4]uint8{0, 255, 0, 255}, screen.Pixel(4, 16))
}

func TestDisabledStageLeavesSceneUntouched(t *testing.T) {
	f := newFixture(t)
	f.addQuad(t, 200, facing(50), green)
	p := projectingRed(t, f)
	p.SetSuspended(true)

	f.render(t, p, 1)
	assert.Empty(t, f.registry.Active())
	assert.Equal(t, [4]uint8{0, 255, 0, 255}, f.ctx.Screen().Pixel(16, 16))
}

func TestScreenDepth(t *testing.T) {
	tests := []struct {
		name    string
		depth   float64
		want    float64
		surface bool
	}{
		{name: "mid", depth: 0.75, want: 0.5, surface: true},
		{name: "near", depth: 0.25, want: -0.5, surface: true},
		{name: "ndc origin", depth: 0.5, want: 0, surface: true},
		{name: "far plane", depth: 1, want: 0},
		{name: "zero", depth: 0, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := screenDepth(shader.PackDepth(tt.depth))
			assert.Equal(t, tt.surface, ok)
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}

func TestReprojectIdenticalCameras(t *testing.T) {
	cam := mainCamera(mgl64.Vec3{})
	u := frameUniforms{
		toCapture:         cam.ViewMatrix().Mul4(cam.InverseViewMatrix()),
		captureProjection: cam.ProjectionMatrix(),
		captureInverse:    cam.ProjectionMatrix().Inv(),
		mainInverseProj:   cam.ProjectionMatrix().Inv(),
		far:               200,
	}
	r := reproject(&u, mgl64.Vec2{0.3, 0.7}, 0.5)
	assert.InDelta(t, 0.3, r.uvz[0], 1e-9)
	assert.InDelta(t, 0.7, r.uvz[1], 1e-9)
	assert.InDelta(t, 0.75, r.uvz[2], 1e-9)
	assert.Less(t, r.eye[2], 0.0)
}

func TestLens(t *testing.T) {
	l := DefaultLens()
	u, v := l.Remap(0.3, 0.8)
	assert.Equal(t, 0.3, u)
	assert.Equal(t, 0.8, v)

	assert.True(t, l.Contains(0.5, 0.5))
	assert.False(t, l.Contains(0, 0.5), "bounds are exclusive")
	assert.False(t, l.Contains(0.5, 1))

	l = Lens{XMin: 0, XMax: 1, YMin: 0, YMax: 1, XA: 0.5, XB: 0.25, YA: 2, YB: -0.5}
	u, v = l.Remap(0.5, 0.5)
	assert.InDelta(t, 0.5, u, 1e-12)
	assert.InDelta(t, 0.5, v, 1e-12)
}

func TestCompositorStage(t *testing.T) {
	f := newFixture(t)
	p := f.projector(t, testOptions())
	s := p.Stage()

	assert.Contains(t, s.Name, p.ID().String())
	require.NotNil(t, s.Reference)
	for _, name := range []string{
		UniformProjectTexture, UniformDepthCameraTexture, UniformToDepthCameraMatrix,
		UniformDepthCameraProjection, UniformDepthCameraProjectionInverse, UniformMainInverseProjection,
		UniformXMin, UniformXMax, UniformYMin, UniformYMax,
		UniformXA, UniformXB, UniformYA, UniformYB,
	} {
		assert.Contains(t, s.Uniforms, name)
		assert.Contains(t, s.FragmentShader, name)
	}
	assert.Contains(t, s.FragmentShader, postprocess.ColorTexture)
	assert.Contains(t, s.FragmentShader, postprocess.DepthTexture)
	assert.Contains(t, s.FragmentShader, shader.UnpackDepthFunc.Name)

	assert.Same(t, p.Capture().Texture(), s.Uniforms[UniformDepthCameraTexture]())
	assert.Same(t, p.VideoTexture(), s.Uniforms[UniformProjectTexture]())

	// Lens uniforms are read live.
	lens := DefaultLens()
	lens.XB = 0.1
	require.NoError(t, p.SetLens(lens))
	assert.Equal(t, 0.1, s.Uniforms[UniformXB]())
}

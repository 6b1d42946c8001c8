package projection

import (
	"errors"
	gomath "math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projection-engine/internal/softgpu"
	"projection-engine/postprocess"
)

func TestOptionsDefaults(t *testing.T) {
	o := testOptions()
	o.Direction, o.Up, o.CaptureSize = mgl64.Vec3{}, mgl64.Vec3{}, 0

	got, err := o.withDefaults()
	require.NoError(t, err)
	assert.Equal(t, DefaultDirection, got.Direction)
	assert.Equal(t, DefaultUp, got.Up)
	assert.Equal(t, DefaultCaptureSize, got.CaptureSize)
	assert.Equal(t, DefaultCacheSize, got.CacheSize)
	assert.Equal(t, DefaultLens(), *got.Lens)
	assert.NotNil(t, got.Logger)
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		field  string
	}{
		{"zero hfov", func(o *Options) { o.HorizontalFov = 0 }, "horizontal fov"},
		{"straight hfov", func(o *Options) { o.HorizontalFov = 180 }, "horizontal fov"},
		{"nan vfov", func(o *Options) { o.VerticalFov = gomath.NaN() }, "vertical fov"},
		{"zero near", func(o *Options) { o.Near = 0 }, "near"},
		{"far before near", func(o *Options) { o.Far = 0.5 }, "far"},
		{"parallel up", func(o *Options) { o.Up = mgl64.Vec3{0, 0, 2} }, "up"},
		{"negative capture size", func(o *Options) { o.CaptureSize = -1 }, "capture size"},
		{"negative cache size", func(o *Options) { o.CacheSize = -1 }, "cache size"},
		{"cone without overlays", func(o *Options) { o.ViewCone = true }, "overlays"},
		{"nan lens", func(o *Options) { o.Lens = &Lens{XMin: gomath.NaN(), XMax: 1, YMax: 1} }, "lens"},
		{"infinite lens scale", func(o *Options) { o.Lens = &Lens{XMax: 1, YMax: 1, XA: gomath.Inf(1)} }, "lens"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := testOptions()
			tt.mutate(&o)
			_, err := o.withDefaults()
			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestNewRejectsOversizedCapture(t *testing.T) {
	ctx := softgpu.New(softgpu.WithMaxTextureSize(64))
	opts := testOptions()
	opts.CaptureSize = 128

	_, err := New(ctx, postprocess.NewCollection(), opts)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "capture size", cfgErr.Field)
	assert.Zero(t, ctx.Stats().TexturesCreated)
}

func TestCaptureFrustumFromFovs(t *testing.T) {
	f := newFixture(t)
	opts := testOptions()
	opts.HorizontalFov, opts.VerticalFov = 90, 60
	p := f.projector(t, opts)

	fr := p.Camera().Frustum()
	assert.InDelta(t, mgl64.DegToRad(90), fr.Fov, 1e-12)
	assert.InDelta(t, gomath.Tan(mgl64.DegToRad(45))/gomath.Tan(mgl64.DegToRad(30)), fr.AspectRatio, 1e-12)
	assert.InDelta(t, mgl64.DegToRad(60), fr.Fovy(), 1e-9)

	require.NoError(t, p.SetVerticalFov(100))
	fr = p.Camera().Frustum()
	assert.InDelta(t, mgl64.DegToRad(100), fr.Fov, 1e-12)
	assert.Less(t, fr.AspectRatio, 1.0)
	assert.InDelta(t, mgl64.DegToRad(100), fr.Fovy(), 1e-12)
}

func TestSettersValidate(t *testing.T) {
	f := newFixture(t)
	p := f.projector(t, testOptions())

	assert.Error(t, p.SetHorizontalFov(200))
	assert.Equal(t, 60.0, p.HorizontalFov())
	assert.Error(t, p.SetNear(200))
	assert.Equal(t, 1.0, p.Near())
	assert.Error(t, p.SetFar(0.5))
	assert.Equal(t, 100.0, p.Far())
	assert.Error(t, p.SetLens(Lens{XMax: 1, YMax: gomath.NaN()}))
	assert.Equal(t, DefaultLens(), p.Lens())
	empty := Lens{XMin: 1, XMax: 0, YMax: 1, XA: 1, YA: 1}
	require.NoError(t, p.SetLens(empty), "an empty rectangle turns projection off")
	assert.Equal(t, empty, p.Lens())
	assert.Error(t, p.SetPose(mgl64.Vec3{}, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 1, 0}))

	require.NoError(t, p.SetFar(50))
	assert.Equal(t, 50.0, p.Far())
	require.NoError(t, p.SetPose(mgl64.Vec3{1, 2, 3}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{}))
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, p.Camera().Position())
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, p.Camera().Direction())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "constructed", Constructed.String())
	assert.Equal(t, "applied", Applied.String())
	assert.Equal(t, "destroyed", Destroyed.String())
}

// Package projection paints a video onto the scene from a virtual camera.
// A Projector renders the scene's depth as seen from its capture camera
// into an offscreen target, then a full-screen stage replaces every main
// view pixel the capture camera can see with the matching video texel.
package projection

import (
	"errors"
	"fmt"
	"log/slog"
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"projection-engine/gpu"
	"projection-engine/postprocess"
	"projection-engine/scene"
)

var (
	// ErrDestroyed is returned by every operation after Destroy.
	ErrDestroyed = errors.New("projection: projector destroyed")
	// ErrNotApplied is returned by Update before Apply.
	ErrNotApplied = errors.New("projection: projector not applied")
)

// State is the lifecycle stage of a Projector.
type State int

const (
	Constructed State = iota
	Applied
	Destroyed
)

func (s State) String() string {
	switch s {
	case Constructed:
		return "constructed"
	case Applied:
		return "applied"
	case Destroyed:
		return "destroyed"
	}
	return "unknown"
}

// FrameStats describes one Update.
type FrameStats struct {
	Frame        uint64 `csv:"frame"`
	Projector    string `csv:"projector"`
	Rendering    bool   `csv:"rendering"`
	Candidates   int    `csv:"candidates"`
	Culled       int    `csv:"culled"`
	Executed     int    `csv:"executed"`
	Derived      int    `csv:"derived"`
	Cached       int    `csv:"cached"`
	VideoUpdated bool   `csv:"video_updated"`
	ConeRebuilt  bool   `csv:"cone_rebuilt"`
}

// Projector is one projection instance. It is driven from the render
// thread: Apply once, Update every frame, Destroy once.
type Projector struct {
	id       uuid.UUID
	ctx      gpu.Context
	registry postprocess.Registry
	log      *slog.Logger

	hFov, vFov float64 // degrees
	lens       Lens
	camera     *scene.Camera

	capture *DepthCapture
	deriver *CommandDeriver
	video   *VideoTextureUpdater
	cone    *viewCone
	stage   *postprocess.Stage

	uniforms  frameUniforms
	state     State
	suspended bool
	rendering bool
	last      FrameStats
}

// New validates opts and allocates the projector's GPU resources. The
// projector stays inert until Apply.
func New(ctx gpu.Context, registry postprocess.Registry, opts Options) (*Projector, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	if opts.CaptureSize > ctx.MaxTextureSize() {
		return nil, &ConfigError{
			Field:  "capture size",
			Value:  opts.CaptureSize,
			Reason: fmt.Sprintf("exceeds the maximum texture size %d", ctx.MaxTextureSize()),
		}
	}

	id := uuid.New()
	p := &Projector{
		id:       id,
		ctx:      ctx,
		registry: registry,
		log:      opts.Logger.With("projector", id.String()),
		hFov:     opts.HorizontalFov,
		vFov:     opts.VerticalFov,
		lens:     *opts.Lens,
	}
	p.camera = scene.NewCamera(opts.Position, opts.Direction, opts.Up, p.frustum(opts.Near, opts.Far))

	p.capture, err = newDepthCapture(ctx, opts.CaptureSize, p.camera)
	if err != nil {
		return nil, fmt.Errorf("projection: %w", err)
	}
	p.deriver, err = newCommandDeriver(ctx, opts.CacheSize, p.Far, p.log)
	if err != nil {
		p.capture.release()
		return nil, fmt.Errorf("projection: %w", err)
	}
	p.video = newVideoTextureUpdater(ctx, opts.Source, p.log)
	if opts.ViewCone {
		p.cone = &viewCone{ctx: ctx, overlays: opts.Overlays}
	}
	p.stage = newCompositorStage(p)

	p.log.Info("projection: created",
		"position", opts.Position, "hfov", p.hFov, "vfov", p.vFov,
		"near", opts.Near, "far", opts.Far, "capture_size", opts.CaptureSize)
	return p, nil
}

// frustum derives the capture frustum from the two fovs: the wider one is
// the frustum fov and the aspect ratio keeps both exact.
func (p *Projector) frustum(near, far float64) scene.PerspectiveFrustum {
	h := mgl64.DegToRad(p.hFov)
	v := mgl64.DegToRad(p.vFov)
	return scene.PerspectiveFrustum{
		Fov:         gomath.Max(h, v),
		AspectRatio: gomath.Tan(h/2) / gomath.Tan(v/2),
		Near:        near,
		Far:         far,
	}
}

// Apply registers the compositor stage. Calling it again is a no-op.
func (p *Projector) Apply() error {
	switch p.state {
	case Destroyed:
		return ErrDestroyed
	case Applied:
		return nil
	}
	if err := p.registry.Add(p.stage); err != nil {
		return fmt.Errorf("projection: register stage: %w", err)
	}
	p.state = Applied
	p.log.Debug("projection: applied")
	return nil
}

// Update runs the projector for one frame, after the host has gathered its
// commands and before post-processing. Errors are GPU failures and leave
// the instance unusable.
func (p *Projector) Update(frame *scene.FrameState) error {
	switch p.state {
	case Destroyed:
		return ErrDestroyed
	case Constructed:
		return ErrNotApplied
	}

	stats := FrameStats{Frame: frame.Number, Projector: p.id.String()}
	defer func() { p.last = stats }()

	p.rendering = !p.suspended && regionVisible(frame.CullingVolume(), p.camera.Position(), p.Far())
	stats.Rendering = p.rendering
	if !p.rendering {
		p.stage.SetEnabled(false)
		return nil
	}

	updated, err := p.video.Update()
	if err != nil {
		return err
	}
	stats.VideoUpdated = updated

	if p.cone != nil {
		rebuilt, err := p.cone.update(p.camera, p.hFov, p.vFov)
		if err != nil {
			return fmt.Errorf("projection: view cone: %w", err)
		}
		stats.ConeRebuilt = rebuilt
	}

	p.capture.Clear()
	pass := p.capture.Begin()

	sel := selectCommands(p.camera.CullingVolume(), frame.Commands)
	stats.Candidates, stats.Culled = sel.candidates, sel.culled
	builds := p.deriver.Builds()
	for _, cmd := range sel.commands {
		derived, err := p.deriver.Derive(cmd)
		if err != nil {
			return err
		}
		if err := p.ctx.Execute(derived, pass); err != nil {
			return fmt.Errorf("projection: capture command %d: %w", cmd.ID, err)
		}
		stats.Executed++
	}
	stats.Derived = p.deriver.Builds() - builds
	stats.Cached = p.deriver.Len()

	p.uniforms = p.frameUniforms(frame.Camera)
	p.stage.SetEnabled(true)
	return nil
}

func (p *Projector) frameUniforms(main *scene.Camera) frameUniforms {
	proj := p.camera.ProjectionMatrix()
	return frameUniforms{
		toCapture:         p.camera.ViewMatrix().Mul4(main.InverseViewMatrix()),
		captureProjection: proj,
		captureInverse:    proj.Inv(),
		mainInverseProj:   main.ProjectionMatrix().Inv(),
		far:               p.Far(),
	}
}

// Destroy removes the stage and the view cone and frees every resource the
// projector owns. It can be called once.
func (p *Projector) Destroy() error {
	if p.state == Destroyed {
		return ErrDestroyed
	}
	if p.state == Applied {
		p.registry.Remove(p.stage)
	}
	p.stage.SetEnabled(false)
	if p.cone != nil {
		p.cone.release()
	}
	p.deriver.Purge()
	p.video.release()
	p.capture.release()
	p.state = Destroyed
	p.rendering = false
	p.log.Info("projection: destroyed")
	return nil
}

// ── Accessors ───────────────────────────────────────────────────────────────

func (p *Projector) ID() uuid.UUID             { return p.id }
func (p *Projector) State() State              { return p.state }
func (p *Projector) Camera() *scene.Camera     { return p.camera }
func (p *Projector) Stage() *postprocess.Stage { return p.stage }
func (p *Projector) Capture() *DepthCapture    { return p.capture }
func (p *Projector) Deriver() *CommandDeriver  { return p.deriver }
func (p *Projector) VideoTexture() gpu.Texture { return p.video.Texture() }
func (p *Projector) HorizontalFov() float64    { return p.hFov }
func (p *Projector) VerticalFov() float64      { return p.vFov }
func (p *Projector) Near() float64             { return p.camera.Frustum().Near }
func (p *Projector) Far() float64              { return p.camera.Frustum().Far }
func (p *Projector) Suspended() bool           { return p.suspended }
func (p *Projector) Lens() Lens                { return p.lens }
func (p *Projector) LastFrame() FrameStats     { return p.last }

// Rendering reports whether the last Update drew the capture.
func (p *Projector) Rendering() bool { return p.rendering }

// ── Runtime mutation ────────────────────────────────────────────────────────

// Setters return ErrDestroyed after Destroy and leave the state unchanged.

func (p *Projector) SetHorizontalFov(deg float64) error {
	if p.state == Destroyed {
		return ErrDestroyed
	}
	if err := validFov("horizontal fov", deg); err != nil {
		return err
	}
	p.hFov = deg
	p.camera.SetFrustum(p.frustum(p.Near(), p.Far()))
	return nil
}

func (p *Projector) SetVerticalFov(deg float64) error {
	if p.state == Destroyed {
		return ErrDestroyed
	}
	if err := validFov("vertical fov", deg); err != nil {
		return err
	}
	p.vFov = deg
	p.camera.SetFrustum(p.frustum(p.Near(), p.Far()))
	return nil
}

func (p *Projector) SetNear(near float64) error {
	if p.state == Destroyed {
		return ErrDestroyed
	}
	if err := validRange(near, p.Far()); err != nil {
		return err
	}
	p.camera.SetFrustum(p.frustum(near, p.Far()))
	return nil
}

func (p *Projector) SetFar(far float64) error {
	if p.state == Destroyed {
		return ErrDestroyed
	}
	if err := validRange(p.Near(), far); err != nil {
		return err
	}
	p.camera.SetFrustum(p.frustum(p.Near(), far))
	return nil
}

// SetSuspended stops the projection regardless of visibility until cleared.
// It has no effect on a destroyed projector.
func (p *Projector) SetSuspended(suspended bool) {
	if p.state == Destroyed {
		return
	}
	p.suspended = suspended
}

func (p *Projector) SetLens(l Lens) error {
	if p.state == Destroyed {
		return ErrDestroyed
	}
	if err := l.validate(); err != nil {
		return err
	}
	p.lens = l
	return nil
}

// SetPose moves the capture camera. A zero direction or up takes its default.
func (p *Projector) SetPose(position, direction, up mgl64.Vec3) error {
	if p.state == Destroyed {
		return ErrDestroyed
	}
	if direction == (mgl64.Vec3{}) {
		direction = DefaultDirection
	}
	if up == (mgl64.Vec3{}) {
		up = DefaultUp
	}
	if err := validPose(direction, up); err != nil {
		return err
	}
	p.camera.SetPose(position, direction, up)
	return nil
}

// Package renderer drives a frame: the main scene pass into an offscreen
// target, the projector updates, then the post-process stages onto the
// screen.
package renderer

import (
	"errors"
	"fmt"
	"log/slog"

	"projection-engine/gpu"
	"projection-engine/postprocess"
	"projection-engine/projection"
	"projection-engine/scene"
	"projection-engine/telemetry"
)

// RenderEngine is the high-level renderer that drives a gpu backend.
type RenderEngine struct {
	ctx    gpu.Context
	runner postprocess.Runner
	Scene  *scene.Scene
	Stages *postprocess.Collection
	Driver *Driver

	recorder *telemetry.Recorder
	log      *slog.Logger

	width, height int
	color         gpu.Texture
	target        gpu.Framebuffer
	frame         uint64

	// Per-frame stats (populated during Render)
	lastCommands int
	lastStages   int
}

func NewRenderEngine(ctx gpu.Context, runner postprocess.Runner, s *scene.Scene, width, height int, logger *slog.Logger) (*RenderEngine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	re := &RenderEngine{
		ctx:    ctx,
		runner: runner,
		Scene:  s,
		Stages: postprocess.NewCollection(),
		Driver: NewDriver(logger),
		log:    logger,
	}
	if f, ok := runner.(postprocess.Forgetter); ok {
		re.Driver.OnRemove(func(p *projection.Projector) { f.Forget(p.Stage()) })
	}
	if err := re.Resize(width, height); err != nil {
		return nil, err
	}
	logger.Info("renderer: initialized", "width", width, "height", height)
	return re, nil
}

// SetRecorder enables per-frame CSV statistics. nil disables them.
func (re *RenderEngine) SetRecorder(r *telemetry.Recorder) { re.recorder = r }

// Resize recreates the scene target: RGBA8 color and a sampleable depth
// texture the post-process stages read.
func (re *RenderEngine) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("renderer: invalid size %dx%d", width, height)
	}
	if width == re.width && height == re.height && re.target != nil {
		return nil
	}
	color, err := re.ctx.CreateTexture(gpu.TextureDesc{
		Width: width, Height: height,
		Format:  gpu.RGBA8,
		Sampler: gpu.SamplerNearest,
	})
	if err != nil {
		return fmt.Errorf("renderer: scene color: %w", err)
	}
	target, err := re.ctx.CreateFramebuffer(gpu.FramebufferDesc{Color: color, DepthFormat: gpu.Depth32F, DepthTexture: true})
	if err != nil {
		color.Destroy()
		return fmt.Errorf("renderer: scene target: %w", err)
	}
	re.releaseTarget()
	re.color, re.target = color, target
	re.width, re.height = width, height
	return nil
}

// AddProjector creates, applies and registers a projector whose stage
// lives in re.Stages.
func (re *RenderEngine) AddProjector(opts projection.Options) (*projection.Projector, error) {
	if opts.Logger == nil {
		opts.Logger = re.log
	}
	p, err := projection.New(re.ctx, re.Stages, opts)
	if err != nil {
		return nil, err
	}
	if err := p.Apply(); err != nil {
		_ = p.Destroy()
		return nil, err
	}
	re.Driver.Add(p)
	return p, nil
}

// Render draws one frame to the screen. Projector failures drop the failing
// instances and are reported after the frame is presented.
func (re *RenderEngine) Render() error {
	if re.Scene == nil || re.Scene.Camera == nil {
		return errors.New("renderer: no scene or camera")
	}
	re.frame++
	frame := re.Scene.Frame(re.frame, re.width, re.height)

	pass := &gpu.PassState{
		Framebuffer: re.target,
		Viewport:    gpu.Viewport{Width: re.width, Height: re.height},
		Camera:      re.Scene.Camera.Context(),
	}
	if err := re.Scene.Draw(pass); err != nil {
		return fmt.Errorf("renderer: main pass: %w", err)
	}
	re.lastCommands = len(frame.Commands)

	driverErr := re.Driver.Update(frame)

	stages := re.Stages.Active()
	re.lastStages = len(stages)
	if err := re.runner.Run(stages, re.target, nil); err != nil {
		return errors.Join(driverErr, fmt.Errorf("renderer: post-process: %w", err))
	}
	if err := re.recorder.Record(re.Driver.Stats()); err != nil {
		re.log.Warn("renderer: telemetry", "err", err)
	}
	return driverErr
}

// DrawStats returns stats from the most recent Render call.
func (re *RenderEngine) DrawStats() (commands, stages int) {
	return re.lastCommands, re.lastStages
}

func (re *RenderEngine) Frame() uint64           { return re.frame }
func (re *RenderEngine) Size() (int, int)        { return re.width, re.height }
func (re *RenderEngine) Target() gpu.Framebuffer { return re.target }

func (re *RenderEngine) Destroy() {
	re.Driver.Close()
	re.releaseTarget()
}

func (re *RenderEngine) releaseTarget() {
	if re.target != nil {
		re.target.Destroy()
		re.target = nil
	}
	if re.color != nil {
		re.color.Destroy()
		re.color = nil
	}
}

package projection

import (
	"errors"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"projection-engine/gpu"
	"projection-engine/shader"
)

// captureRenderState is what every derived command draws with, apart from
// culling which follows the source.
var captureRenderState = gpu.RenderState{
	Cull:          gpu.CullState{Enabled: true, Face: gpu.CullBack},
	DepthTest:     true,
	DepthMask:     true,
	ColorMask:     gpu.ColorMaskAll,
	PolygonOffset: gpu.PolygonOffset{Enabled: false, Factor: 1.1, Units: 4.0},
}

// CommandDeriver turns host draw commands into commands that write packed
// linear depth from the capture camera. Derived commands are cached per
// source command ID in a bounded LRU and rebuilt when the source's program
// changes; a replaced or evicted derived program is destroyed.
type CommandDeriver struct {
	ctx    gpu.Context
	far    func() float64
	cache  *lru.Cache[uint64, *gpu.DrawCommand]
	log    *slog.Logger
	builds int
}

func newCommandDeriver(ctx gpu.Context, size int, far func() float64, logger *slog.Logger) (*CommandDeriver, error) {
	d := &CommandDeriver{ctx: ctx, far: far, log: logger}
	cache, err := lru.NewWithEvict(size, func(id uint64, cmd *gpu.DrawCommand) {
		d.log.Debug("projection: derived command evicted", "command", id, "program", cmd.ShaderProgram.ID())
		cmd.ShaderProgram.Destroy()
	})
	if err != nil {
		return nil, fmt.Errorf("derived command cache: %w", err)
	}
	d.cache = cache
	return d, nil
}

// Derive returns the depth capture command for src. While src keeps the
// same program the same *DrawCommand, program, render state and uniform map
// are returned; geometry, model and bounds are refreshed from src on every
// call.
func (d *CommandDeriver) Derive(src *gpu.DrawCommand) (*gpu.DrawCommand, error) {
	if src.ShaderProgram == nil {
		return nil, errors.New("projection: command has no shader program")
	}
	progID := src.ShaderProgram.ID()

	cached, ok := d.cache.Get(src.ID)
	if ok && cached.CastShaderProgramID == progID {
		prog, rs, uniforms := cached.ShaderProgram, cached.RenderState, cached.UniformMap
		*cached = *src
		cached.ShaderProgram, cached.RenderState, cached.UniformMap = prog, rs, uniforms
		cached.CastShaderProgramID = progID
		return cached, nil
	}

	derived, err := d.build(src)
	if err != nil {
		return nil, err
	}
	if ok {
		// Add replaces in place without the eviction callback.
		cached.ShaderProgram.Destroy()
	}
	d.cache.Add(src.ID, derived)
	return derived, nil
}

func (d *CommandDeriver) build(src *gpu.DrawCommand) (*gpu.DrawCommand, error) {
	prog := src.ShaderProgram
	translucent := src.Pass == gpu.PassTranslucent

	vsRules := []shader.Rule{shader.RequirePositionVarying{}}
	if src.Pass == gpu.PassGlobe {
		vsRules = append(vsRules, shader.GeneratePosition{})
	}
	vsRules = append(vsRules, shader.DepthCapture{})
	vs, err := shader.Derive(prog.Vertex(), vsRules...)
	if err != nil {
		return nil, fmt.Errorf("projection: derive vertex stage of command %d: %w", src.ID, err)
	}
	fs, err := shader.Derive(prog.Fragment(), shader.DepthCapture{Translucent: translucent})
	if err != nil {
		return nil, fmt.Errorf("projection: derive fragment stage of command %d: %w", src.ID, err)
	}

	castProg, err := d.ctx.CreateShaderProgram(gpu.ProgramDesc{
		Vertex:             vs,
		Fragment:           fs,
		AttributeLocations: prog.AttributeLocations(),
	})
	if err != nil {
		return nil, fmt.Errorf("projection: capture program for command %d: %w", src.ID, err)
	}

	rs := captureRenderState
	rs.Cull.Enabled = src.RenderState == nil || src.RenderState.Cull.Enabled

	derived := *src
	derived.ShaderProgram = castProg
	derived.RenderState = d.ctx.RenderState(rs)
	derived.UniformMap = src.UniformMap.Combine(gpu.UniformMap{
		shader.FarUniform: func() any { return d.far() },
	})
	derived.CastShaderProgramID = prog.ID()

	d.builds++
	d.log.Debug("projection: derived capture command",
		"command", src.ID, "pass", src.Pass, "source_program", prog.ID(), "program", castProg.ID())
	return &derived, nil
}

// Builds counts derived programs created so far.
func (d *CommandDeriver) Builds() int { return d.builds }

func (d *CommandDeriver) Len() int { return d.cache.Len() }

// Purge drops every entry, destroying the derived programs.
func (d *CommandDeriver) Purge() { d.cache.Purge() }

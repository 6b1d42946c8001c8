package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"projection-engine/gpu"
	"projection-engine/postprocess"
	"projection-engine/shader"
)

// fullscreenVertSrc draws one oversized triangle from gl_VertexID; no
// vertex buffer is bound.
const fullscreenVertSrc = `#version 410 core
out vec2 ` + postprocess.TexCoord + `;
void main() {
    const vec2 pos[3] = vec2[3](
        vec2(-1.0, -1.0),
        vec2( 3.0, -1.0),
        vec2(-1.0,  3.0)
    );
    ` + postprocess.TexCoord + ` = pos[gl_VertexID] * 0.5 + 0.5;
    gl_Position = vec4(pos[gl_VertexID], 0.0, 1.0);
}
`

// packSource packs the scene depth into an RGBA8 target.
func packSource() *shader.Source {
	return &shader.Source{
		Stage:     shader.Fragment,
		Uniforms:  []shader.Uniform{{Name: postprocess.DepthTexture, Type: "sampler2D"}},
		Varyings:  []shader.Varying{{Name: postprocess.TexCoord, Type: "vec2"}},
		Functions: []shader.Function{shader.PackDepthFunc},
		Main: fmt.Sprintf("%s = %s(texture(%s, %s).r);\n",
			shader.DefaultOutput, shader.PackDepthFunc.Name, postprocess.DepthTexture, postprocess.TexCoord),
	}
}

const copyFragSrc = `#version 410 core
in vec2 ` + postprocess.TexCoord + `;
uniform sampler2D ` + postprocess.ColorTexture + `;
out vec4 fragColor;
void main() {
    fragColor = texture(` + postprocess.ColorTexture + `, ` + postprocess.TexCoord + `);
}
`

type stageProgram struct {
	glID     uint32
	uniforms map[string]int32
}

func (p *stageProgram) location(name string) int32 {
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(p.glID, gl.Str(name+"\x00"))
	p.uniforms[name] = loc
	return loc
}

// Runner is the GL postprocess.Runner. Stage programs are compiled on first
// use and kept until Release.
type Runner struct {
	ctx      *Context
	vao      uint32
	pack     *stageProgram
	copy     *stageProgram
	programs map[*postprocess.Stage]*stageProgram

	// packed main depth and the ping-pong color targets
	packed   *Framebuffer
	pingPong [2]*Framebuffer
	w, h     int
}

func NewRunner(ctx *Context) (*Runner, error) {
	r := &Runner{ctx: ctx, programs: make(map[*postprocess.Stage]*stageProgram)}
	var err error
	if r.pack, err = compileStage(packSource().GLSL()); err != nil {
		return nil, fmt.Errorf("opengl: depth pack program: %w", err)
	}
	if r.copy, err = compileStage(copyFragSrc); err != nil {
		gl.DeleteProgram(r.pack.glID)
		return nil, fmt.Errorf("opengl: copy program: %w", err)
	}
	gl.GenVertexArrays(1, &r.vao)
	return r, nil
}

func compileStage(fragSrc string) (*stageProgram, error) {
	id, err := newProgram(fullscreenVertSrc, fragSrc, nil)
	if err != nil {
		return nil, err
	}
	return &stageProgram{glID: id, uniforms: make(map[string]int32)}, nil
}

// Run packs the scene depth, then runs stages in order. Every stage but the
// last writes a ping-pong target; the last writes output.
func (r *Runner) Run(stages []*postprocess.Stage, scene gpu.Framebuffer, output gpu.Framebuffer) error {
	fb, ok := scene.(*Framebuffer)
	if !ok || fb == nil || fb.depthTex == nil {
		return fmt.Errorf("opengl: scene framebuffer needs a depth texture: %w", gpu.ErrUnsupported)
	}
	if err := r.ensureTargets(fb.Width(), fb.Height()); err != nil {
		return err
	}

	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.BLEND)
	gl.Disable(gl.CULL_FACE)
	gl.DepthMask(false)
	gl.ColorMask(true, true, true, true)
	gl.BindVertexArray(r.vao)
	defer func() {
		gl.BindVertexArray(0)
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthMask(true)
	}()

	depth := r.packed.color
	if err := r.draw(r.pack, r.packed, map[string]any{postprocess.DepthTexture: fb.depthTex}, nil); err != nil {
		return err
	}

	if len(stages) == 0 {
		return r.draw(r.copy, output, map[string]any{postprocess.ColorTexture: fb.color}, nil)
	}

	input := fb.color
	for i, s := range stages {
		prog, err := r.program(s)
		if err != nil {
			return err
		}
		target := output
		if i < len(stages)-1 {
			target = r.pingPong[i%2]
		}
		bound := map[string]any{
			postprocess.ColorTexture: input,
			postprocess.DepthTexture: depth,
		}
		if err := r.draw(prog, target, bound, s.Uniforms); err != nil {
			return fmt.Errorf("opengl: stage %q: %w", s.Name, err)
		}
		if i < len(stages)-1 {
			input = r.pingPong[i%2].color
		}
	}
	return nil
}

func (r *Runner) draw(p *stageProgram, target gpu.Framebuffer, bound map[string]any, uniforms gpu.UniformMap) error {
	var fbo uint32
	if t, ok := target.(*Framebuffer); ok && t != nil {
		fbo = t.fbo
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	gl.Viewport(0, 0, int32(r.w), int32(r.h))
	gl.UseProgram(p.glID)

	var unit int32
	for name, v := range bound {
		if err := r.ctx.setUniform(p.location(name), v, &unit); err != nil {
			return fmt.Errorf("uniform %s: %w", name, err)
		}
	}
	for name, supply := range uniforms {
		if err := r.ctx.setUniform(p.location(name), supply(), &unit); err != nil {
			return fmt.Errorf("uniform %s: %w", name, err)
		}
	}
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	return nil
}

func (r *Runner) program(s *postprocess.Stage) (*stageProgram, error) {
	if p, ok := r.programs[s]; ok {
		return p, nil
	}
	p, err := compileStage(s.FragmentShader)
	if err != nil {
		return nil, fmt.Errorf("opengl: stage %q: %w", s.Name, err)
	}
	r.programs[s] = p
	r.ctx.log.Debug("opengl: compiled stage", "stage", s.Name)
	return p, nil
}

// ensureTargets (re)allocates the intermediate targets at w x h.
func (r *Runner) ensureTargets(w, h int) error {
	if r.packed != nil && r.w == w && r.h == h {
		return nil
	}
	r.releaseTargets()
	alloc := func() (*Framebuffer, error) {
		color, err := r.ctx.CreateTexture(gpu.TextureDesc{
			Width: w, Height: h,
			Format:  gpu.RGBA8,
			Sampler: gpu.SamplerNearest,
		})
		if err != nil {
			return nil, err
		}
		fb, err := r.ctx.CreateFramebuffer(gpu.FramebufferDesc{Color: color, DepthFormat: gpu.Depth16})
		if err != nil {
			color.Destroy()
			return nil, err
		}
		return fb.(*Framebuffer), nil
	}
	var err error
	if r.packed, err = alloc(); err != nil {
		return fmt.Errorf("opengl: packed depth target: %w", err)
	}
	for i := range r.pingPong {
		if r.pingPong[i], err = alloc(); err != nil {
			r.releaseTargets()
			return fmt.Errorf("opengl: ping-pong target: %w", err)
		}
	}
	r.w, r.h = w, h
	return nil
}

func (r *Runner) releaseTargets() {
	for _, fb := range append([]*Framebuffer{r.packed}, r.pingPong[:]...) {
		if fb == nil {
			continue
		}
		fb.color.Destroy()
		fb.Destroy()
	}
	r.packed = nil
	r.pingPong = [2]*Framebuffer{}
}

// Forget drops the compiled program of a stage that was removed.
func (r *Runner) Forget(s *postprocess.Stage) {
	if p, ok := r.programs[s]; ok {
		gl.DeleteProgram(p.glID)
		delete(r.programs, s)
	}
}

func (r *Runner) Release() {
	r.releaseTargets()
	for s := range r.programs {
		r.Forget(s)
	}
	gl.DeleteProgram(r.pack.glID)
	gl.DeleteProgram(r.copy.glID)
	gl.DeleteVertexArrays(1, &r.vao)
}

// Package opengl is the OpenGL 4.1 core implementation of gpu.Context and
// postprocess.Runner. Every call must be made on the thread that owns the
// current GL context.
package opengl

import (
	"fmt"
	"log/slog"
	"strings"
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl64"

	"projection-engine/core"
	"projection-engine/gpu"
	"projection-engine/shader"
)

// Context is the OpenGL rendering backend.
type Context struct {
	gpu.RenderStateCache

	maxTextureSize int
	defaultTexture *Texture
	nextProgram    uint64
	log            *slog.Logger
}

// New initializes the GL function pointers. A context must be current.
func New(logger *slog.Logger) (*Context, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("opengl: initialized",
		"version", gl.GoStr(gl.GetString(gl.VERSION)),
		"renderer", gl.GoStr(gl.GetString(gl.RENDERER)))

	var maxSize int32
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &maxSize)

	c := &Context{maxTextureSize: int(maxSize), log: logger}
	white, err := c.CreateTexture(gpu.TextureDesc{
		Width: 1, Height: 1,
		Format:  gpu.RGBA8,
		Sampler: gpu.SamplerNearest,
		Pixels:  []byte{255, 255, 255, 255},
	})
	if err != nil {
		return nil, fmt.Errorf("default texture: %w", err)
	}
	c.defaultTexture = white.(*Texture)

	gl.DepthFunc(gl.LESS)
	return c, nil
}

func (c *Context) MaxTextureSize() int         { return c.maxTextureSize }
func (c *Context) DefaultTexture() gpu.Texture { return c.defaultTexture }

// Release frees the default texture. The context is unusable afterwards.
func (c *Context) Release() {
	if c.defaultTexture != nil {
		gl.DeleteTextures(1, &c.defaultTexture.id)
		c.defaultTexture = nil
	}
}

// ── Programs ─────────────────────────────────────────────────────────────────

// Program is a linked GL program together with the sources it was built
// from.
type Program struct {
	id        uint64
	glID      uint32
	vertex    *shader.Source
	fragment  *shader.Source
	locations map[string]int
	uniforms  map[string]int32
	destroyed bool
}

func (p *Program) ID() uint64                         { return p.id }
func (p *Program) Vertex() *shader.Source             { return p.vertex }
func (p *Program) Fragment() *shader.Source           { return p.fragment }
func (p *Program) AttributeLocations() map[string]int { return p.locations }

func (p *Program) Destroy() {
	if p.destroyed {
		return
	}
	p.destroyed = true
	gl.DeleteProgram(p.glID)
}

// uniformLocation caches lookups; -1 means the linker dropped the uniform.
func (p *Program) uniformLocation(name string) int32 {
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(p.glID, gl.Str(name+"\x00"))
	p.uniforms[name] = loc
	return loc
}

func (c *Context) CreateShaderProgram(desc gpu.ProgramDesc) (gpu.ShaderProgram, error) {
	if desc.Vertex == nil || desc.Fragment == nil {
		return nil, fmt.Errorf("opengl: program needs both stages")
	}
	glID, err := newProgram(desc.Vertex.GLSL(), desc.Fragment.GLSL(), desc.AttributeLocations)
	if err != nil {
		return nil, err
	}
	c.nextProgram++
	return &Program{
		id:        c.nextProgram,
		glID:      glID,
		vertex:    desc.Vertex,
		fragment:  desc.Fragment,
		locations: desc.AttributeLocations,
		uniforms:  make(map[string]int32),
	}, nil
}

// ── Geometry ─────────────────────────────────────────────────────────────────

// VertexArray holds the buffer objects of an uploaded position stream.
type VertexArray struct {
	vao, vbo, ebo uint32
	count         int32
	indexed       bool
}

func (v *VertexArray) VertexCount() int { return int(v.count) }

func (v *VertexArray) Destroy() {
	if v.vao == 0 {
		return
	}
	if v.ebo != 0 {
		gl.DeleteBuffers(1, &v.ebo)
	}
	gl.DeleteBuffers(1, &v.vbo)
	gl.DeleteVertexArrays(1, &v.vao)
	v.vao = 0
}

func (c *Context) CreateVertexArray(desc gpu.VertexArrayDesc) (gpu.VertexArray, error) {
	if len(desc.Positions) == 0 || len(desc.Positions)%3 != 0 {
		return nil, fmt.Errorf("opengl: %d position floats", len(desc.Positions))
	}
	n := uint32(len(desc.Positions) / 3)
	for _, i := range desc.Indices {
		if i >= n {
			return nil, fmt.Errorf("opengl: index %d out of range for %d vertices", i, n)
		}
	}

	va := &VertexArray{count: int32(n), indexed: len(desc.Indices) > 0}
	gl.GenVertexArrays(1, &va.vao)
	gl.GenBuffers(1, &va.vbo)
	gl.BindVertexArray(va.vao)

	gl.BindBuffer(gl.ARRAY_BUFFER, va.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(desc.Positions)*4, gl.Ptr(desc.Positions), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 3*4, gl.PtrOffset(0))

	if va.indexed {
		gl.GenBuffers(1, &va.ebo)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, va.ebo)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(desc.Indices)*4, gl.Ptr(desc.Indices), gl.STATIC_DRAW)
		va.count = int32(len(desc.Indices))
	}
	gl.BindVertexArray(0)
	return va, nil
}

// ── Commands ─────────────────────────────────────────────────────────────────

func (c *Context) bindPass(pass *gpu.PassState) {
	var fbo uint32
	if fb, ok := pass.Framebuffer.(*Framebuffer); ok && fb != nil {
		fbo = fb.fbo
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	vp := pass.Viewport
	gl.Viewport(int32(vp.X), int32(vp.Y), int32(vp.Width), int32(vp.Height))
}

// Clear ignores the current masks: GL clears honour them, so both are
// opened first.
func (c *Context) Clear(cmd gpu.ClearCommand, pass *gpu.PassState) {
	c.bindPass(pass)
	var bits uint32
	if cmd.ClearColor {
		gl.ColorMask(true, true, true, true)
		gl.ClearColor(cmd.Color.R, cmd.Color.G, cmd.Color.B, cmd.Color.A)
		bits |= gl.COLOR_BUFFER_BIT
	}
	if cmd.ClearDepth {
		gl.DepthMask(true)
		gl.ClearDepth(cmd.Depth)
		bits |= gl.DEPTH_BUFFER_BIT
	}
	if bits != 0 {
		gl.Clear(bits)
	}
}

func applyRenderState(rs *gpu.RenderState) {
	if rs == nil {
		def := gpu.DefaultRenderState()
		rs = &def
	}
	if rs.Cull.Enabled {
		gl.Enable(gl.CULL_FACE)
		if rs.Cull.Face == gpu.CullFront {
			gl.CullFace(gl.FRONT)
		} else {
			gl.CullFace(gl.BACK)
		}
	} else {
		gl.Disable(gl.CULL_FACE)
	}
	if rs.DepthTest {
		gl.Enable(gl.DEPTH_TEST)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}
	gl.DepthMask(rs.DepthMask)
	gl.ColorMask(rs.ColorMask.Red, rs.ColorMask.Green, rs.ColorMask.Blue, rs.ColorMask.Alpha)
	if rs.PolygonOffset.Enabled {
		gl.Enable(gl.POLYGON_OFFSET_FILL)
		gl.PolygonOffset(rs.PolygonOffset.Factor, rs.PolygonOffset.Units)
	} else {
		gl.Disable(gl.POLYGON_OFFSET_FILL)
	}
	if rs.Blending {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	} else {
		gl.Disable(gl.BLEND)
	}
}

func (c *Context) Execute(cmd *gpu.DrawCommand, pass *gpu.PassState) error {
	prog, ok := cmd.ShaderProgram.(*Program)
	if !ok || prog == nil {
		return fmt.Errorf("opengl: program %T: %w", cmd.ShaderProgram, gpu.ErrUnsupported)
	}
	if prog.destroyed {
		return fmt.Errorf("opengl: program %d: %w", prog.id, gpu.ErrDestroyed)
	}
	va, ok := cmd.VertexArray.(*VertexArray)
	if !ok || va == nil {
		return fmt.Errorf("opengl: vertex array %T: %w", cmd.VertexArray, gpu.ErrUnsupported)
	}
	if va.vao == 0 {
		return fmt.Errorf("opengl: vertex array: %w", gpu.ErrDestroyed)
	}

	c.bindPass(pass)
	applyRenderState(cmd.RenderState)
	gl.UseProgram(prog.glID)

	unit := int32(0)
	for name, v := range gpu.Builtins(pass.Camera, cmd.Model) {
		if err := c.setUniform(prog.uniformLocation(name), v, &unit); err != nil {
			return fmt.Errorf("opengl: uniform %s: %w", name, err)
		}
	}
	for name, supply := range cmd.UniformMap {
		if err := c.setUniform(prog.uniformLocation(name), supply(), &unit); err != nil {
			return fmt.Errorf("opengl: uniform %s: %w", name, err)
		}
	}

	mode := uint32(gl.TRIANGLES)
	if cmd.Primitive == gpu.Lines {
		mode = gl.LINES
	}
	gl.BindVertexArray(va.vao)
	if va.indexed {
		gl.DrawElements(mode, va.count, gl.UNSIGNED_INT, nil)
	} else {
		gl.DrawArrays(mode, 0, va.count)
	}
	gl.BindVertexArray(0)
	return nil
}

// setUniform uploads v. Textures take the next free unit.
func (c *Context) setUniform(loc int32, v any, unit *int32) error {
	if loc < 0 {
		return nil
	}
	switch v := v.(type) {
	case float32:
		gl.Uniform1f(loc, v)
	case float64:
		gl.Uniform1f(loc, float32(v))
	case int:
		gl.Uniform1i(loc, int32(v))
	case bool:
		var b int32
		if v {
			b = 1
		}
		gl.Uniform1i(loc, b)
	case mgl64.Vec2:
		gl.Uniform2f(loc, float32(v[0]), float32(v[1]))
	case mgl64.Vec3:
		gl.Uniform3f(loc, float32(v[0]), float32(v[1]), float32(v[2]))
	case mgl64.Vec4:
		gl.Uniform4f(loc, float32(v[0]), float32(v[1]), float32(v[2]), float32(v[3]))
	case core.Color:
		gl.Uniform4f(loc, v.R, v.G, v.B, v.A)
	case mgl64.Mat4:
		// Both are column-major.
		var m [16]float32
		for i := range m {
			m[i] = float32(v[i])
		}
		gl.UniformMatrix4fv(loc, 1, false, (*float32)(unsafe.Pointer(&m[0])))
	case gpu.Texture:
		tex, ok := v.(*Texture)
		if !ok || tex == nil {
			return fmt.Errorf("texture %T: %w", v, gpu.ErrUnsupported)
		}
		if tex.id == 0 {
			return gpu.ErrDestroyed
		}
		gl.ActiveTexture(gl.TEXTURE0 + uint32(*unit))
		gl.BindTexture(gl.TEXTURE_2D, tex.id)
		gl.Uniform1i(loc, *unit)
		*unit++
	default:
		return fmt.Errorf("value of type %T: %w", v, gpu.ErrUnsupported)
	}
	return nil
}

// ── Shader helpers ────────────────────────────────────────────────────────────

func newProgram(vertSrc, fragSrc string, locations map[string]int) (uint32, error) {
	vert, err := compileShader(vertSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, fmt.Errorf("vertex: %w", err)
	}
	frag, err := compileShader(fragSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vert)
		return 0, fmt.Errorf("fragment: %w", err)
	}

	prog := gl.CreateProgram()
	gl.AttachShader(prog, vert)
	gl.AttachShader(prog, frag)
	for name, loc := range locations {
		gl.BindAttribLocation(prog, uint32(loc), gl.Str(name+"\x00"))
	}
	gl.LinkProgram(prog)
	gl.DeleteShader(vert)
	gl.DeleteShader(frag)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(log))
		gl.DeleteProgram(prog)
		return 0, fmt.Errorf("link failed: %v", log)
	}
	return prog, nil
}

func compileShader(src string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csrc, free := gl.Strs(src + "\x00")
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile failed: %v", log)
	}
	return shader, nil
}

// Package softgpu is a CPU implementation of gpu.Context and
// postprocess.Runner. It rasterizes triangles with the fixed-function state
// of each command and evaluates the depth-capture fragment rule natively, so
// headless hosts and tests exercise the same command stream a GL context
// would see.
package softgpu

import (
	"fmt"
	"math"

	"projection-engine/core"
	"projection-engine/gpu"
	"projection-engine/shader"
)

const defaultMaxTextureSize = 4096

// Stats counts resource and command traffic.
type Stats struct {
	TexturesCreated   int
	TexturesDestroyed int
	ProgramsCreated   int
	ProgramsDestroyed int
	Clears            int
	Executes          int
	Lines             int
	Fragments         int
}

// Context is a software gpu.Context. Like a GL context it is not safe for
// concurrent use.
type Context struct {
	gpu.RenderStateCache

	maxTextureSize int
	defaultTexture *Texture
	nextProgram    uint64
	stats          Stats
	screen         *Texture
}

type Option func(*Context)

// WithMaxTextureSize caps texture and framebuffer dimensions.
func WithMaxTextureSize(n int) Option {
	return func(c *Context) { c.maxTextureSize = n }
}

func New(opts ...Option) *Context {
	c := &Context{maxTextureSize: defaultMaxTextureSize}
	for _, o := range opts {
		o(c)
	}
	c.defaultTexture = &Texture{
		w: 1, h: 1,
		format:  gpu.RGBA8,
		sampler: gpu.SamplerNearest,
		pix:     []byte{255, 255, 255, 255},
	}
	return c
}

func (c *Context) Stats() Stats                { return c.stats }
func (c *Context) MaxTextureSize() int         { return c.maxTextureSize }
func (c *Context) DefaultTexture() gpu.Texture { return c.defaultTexture }

// ── Textures ────────────────────────────────────────────────────────────────

// Texture is an RGBA8 or depth texture held in memory, rows bottom first.
type Texture struct {
	w, h      int
	format    gpu.PixelFormat
	sampler   gpu.Sampler
	pix       []byte    // RGBA8
	depth     []float32 // depth formats
	destroyed bool
	onDestroy func()
}

func (t *Texture) Width() int              { return t.w }
func (t *Texture) Height() int             { return t.h }
func (t *Texture) Format() gpu.PixelFormat { return t.format }
func (t *Texture) Sampler() gpu.Sampler    { return t.sampler }
func (t *Texture) Destroyed() bool         { return t.destroyed }

func (t *Texture) Destroy() {
	if t.destroyed {
		return
	}
	t.destroyed = true
	t.pix, t.depth = nil, nil
	if t.onDestroy != nil {
		t.onDestroy()
	}
}

// Pixel returns the RGBA8 texel at (x, y) with y = 0 the bottom row.
func (t *Texture) Pixel(x, y int) [4]uint8 {
	i := (y*t.w + x) * 4
	return [4]uint8{t.pix[i], t.pix[i+1], t.pix[i+2], t.pix[i+3]}
}

// DepthAt returns the stored depth of a depth texture.
func (t *Texture) DepthAt(x, y int) float32 {
	return t.depth[y*t.w+x]
}

func (t *Texture) setPixel(x, y int, p [4]uint8) {
	i := (y*t.w + x) * 4
	copy(t.pix[i:i+4], p[:])
}

// Sample reads the texture at normalized (u, v) with clamp-to-edge
// addressing and the texture's magnification filter.
func (t *Texture) Sample(u, v float64) [4]float32 {
	if t.sampler.Mag == gpu.Nearest {
		x := clampInt(int(math.Floor(u*float64(t.w))), 0, t.w-1)
		y := clampInt(int(math.Floor(v*float64(t.h))), 0, t.h-1)
		return toFloat(t.Pixel(x, y))
	}

	fx := u*float64(t.w) - 0.5
	fy := v*float64(t.h) - 0.5
	x0, y0 := math.Floor(fx), math.Floor(fy)
	ax, ay := float32(fx-x0), float32(fy-y0)
	xi0 := clampInt(int(x0), 0, t.w-1)
	xi1 := clampInt(int(x0)+1, 0, t.w-1)
	yi0 := clampInt(int(y0), 0, t.h-1)
	yi1 := clampInt(int(y0)+1, 0, t.h-1)

	p00, p10 := toFloat(t.Pixel(xi0, yi0)), toFloat(t.Pixel(xi1, yi0))
	p01, p11 := toFloat(t.Pixel(xi0, yi1)), toFloat(t.Pixel(xi1, yi1))
	var out [4]float32
	for i := range out {
		bottom := p00[i]*(1-ax) + p10[i]*ax
		top := p01[i]*(1-ax) + p11[i]*ax
		out[i] = bottom*(1-ay) + top*ay
	}
	return out
}

func (c *Context) CreateTexture(desc gpu.TextureDesc) (gpu.Texture, error) {
	if err := c.checkSize(desc.Width, desc.Height); err != nil {
		return nil, err
	}
	t := &Texture{w: desc.Width, h: desc.Height, format: desc.Format, sampler: desc.Sampler}
	switch desc.Format {
	case gpu.RGBA8:
		n := desc.Width * desc.Height * 4
		if desc.Pixels != nil && len(desc.Pixels) != n {
			return nil, fmt.Errorf("softgpu: texture data is %d bytes, want %d", len(desc.Pixels), n)
		}
		t.pix = make([]byte, n)
		copy(t.pix, desc.Pixels)
	case gpu.Depth16, gpu.Depth32F:
		t.depth = make([]float32, desc.Width*desc.Height)
	default:
		return nil, fmt.Errorf("softgpu: texture format %v: %w", desc.Format, gpu.ErrUnsupported)
	}
	c.trackTexture(t)
	return t, nil
}

func (c *Context) trackTexture(t *Texture) {
	c.stats.TexturesCreated++
	t.onDestroy = func() { c.stats.TexturesDestroyed++ }
}

func (c *Context) checkSize(w, h int) error {
	if w <= 0 || h <= 0 || w > c.maxTextureSize || h > c.maxTextureSize {
		return fmt.Errorf("softgpu: %dx%d (max %d): %w", w, h, c.maxTextureSize, gpu.ErrInvalidSize)
	}
	return nil
}

// ── Framebuffers ────────────────────────────────────────────────────────────

type Framebuffer struct {
	color     *Texture
	depthTex  *Texture
	depth     []float32
	w, h      int
	destroyed bool
}

func (f *Framebuffer) Color() gpu.Texture { return f.color }

func (f *Framebuffer) Depth() gpu.Texture {
	if f.depthTex == nil {
		return nil
	}
	return f.depthTex
}

func (f *Framebuffer) Width() int  { return f.w }
func (f *Framebuffer) Height() int { return f.h }

// DepthAt reads the depth attachment.
func (f *Framebuffer) DepthAt(x, y int) float32 { return f.depth[y*f.w+x] }

func (f *Framebuffer) Destroy() {
	if f.destroyed {
		return
	}
	f.destroyed = true
	if f.depthTex != nil {
		f.depthTex.Destroy()
	}
	f.depth = nil
}

func (c *Context) CreateFramebuffer(desc gpu.FramebufferDesc) (gpu.Framebuffer, error) {
	color, ok := desc.Color.(*Texture)
	if !ok || color == nil {
		return nil, fmt.Errorf("softgpu: framebuffer color attachment %T: %w", desc.Color, gpu.ErrUnsupported)
	}
	if color.destroyed {
		return nil, fmt.Errorf("softgpu: framebuffer color attachment: %w", gpu.ErrDestroyed)
	}
	if color.format != gpu.RGBA8 {
		return nil, fmt.Errorf("softgpu: color attachment format %v: %w", color.format, gpu.ErrUnsupported)
	}
	fb := &Framebuffer{color: color, w: color.w, h: color.h}
	if desc.DepthTexture {
		dt, err := c.CreateTexture(gpu.TextureDesc{
			Width: color.w, Height: color.h,
			Format:  desc.DepthFormat,
			Sampler: gpu.SamplerNearest,
		})
		if err != nil {
			return nil, fmt.Errorf("softgpu: depth texture: %w", err)
		}
		fb.depthTex = dt.(*Texture)
		fb.depth = fb.depthTex.depth
	} else {
		fb.depth = make([]float32, color.w*color.h)
	}
	for i := range fb.depth {
		fb.depth[i] = 1
	}
	return fb, nil
}

// ── Programs ────────────────────────────────────────────────────────────────

type Program struct {
	id        uint64
	vertex    *shader.Source
	fragment  *shader.Source
	locations map[string]int
	ctx       *Context
	destroyed bool

	// GLSL holds the rendered text of both stages.
	VertexGLSL   string
	FragmentGLSL string
}

func (p *Program) ID() uint64                         { return p.id }
func (p *Program) Vertex() *shader.Source             { return p.vertex }
func (p *Program) Fragment() *shader.Source           { return p.fragment }
func (p *Program) AttributeLocations() map[string]int { return p.locations }
func (p *Program) Destroyed() bool                    { return p.destroyed }

func (p *Program) Destroy() {
	if p.destroyed {
		return
	}
	p.destroyed = true
	p.ctx.stats.ProgramsDestroyed++
}

func (c *Context) CreateShaderProgram(desc gpu.ProgramDesc) (gpu.ShaderProgram, error) {
	if desc.Vertex == nil || desc.Fragment == nil {
		return nil, fmt.Errorf("softgpu: program needs both stages")
	}
	if desc.Vertex.Stage != shader.Vertex || desc.Fragment.Stage != shader.Fragment {
		return nil, fmt.Errorf("softgpu: program stages swapped: %w", shader.ErrStage)
	}
	c.nextProgram++
	c.stats.ProgramsCreated++
	return &Program{
		id:           c.nextProgram,
		vertex:       desc.Vertex,
		fragment:     desc.Fragment,
		locations:    desc.AttributeLocations,
		ctx:          c,
		VertexGLSL:   desc.Vertex.GLSL(),
		FragmentGLSL: desc.Fragment.GLSL(),
	}, nil
}

// ── Vertex arrays ───────────────────────────────────────────────────────────

type VertexArray struct {
	positions []float32
	indices   []uint32
	destroyed bool
}

func (v *VertexArray) VertexCount() int {
	if v.indices != nil {
		return len(v.indices)
	}
	return len(v.positions) / 3
}

func (v *VertexArray) Destroy() { v.destroyed = true }

func (c *Context) CreateVertexArray(desc gpu.VertexArrayDesc) (gpu.VertexArray, error) {
	if len(desc.Positions)%3 != 0 {
		return nil, fmt.Errorf("softgpu: %d position floats is not a multiple of 3", len(desc.Positions))
	}
	n := uint32(len(desc.Positions) / 3)
	for _, i := range desc.Indices {
		if i >= n {
			return nil, fmt.Errorf("softgpu: index %d out of range (%d vertices)", i, n)
		}
	}
	return &VertexArray{
		positions: append([]float32(nil), desc.Positions...),
		indices:   append([]uint32(nil), desc.Indices...),
	}, nil
}

// ── Clear ───────────────────────────────────────────────────────────────────

func (c *Context) Clear(cmd gpu.ClearCommand, pass *gpu.PassState) {
	c.stats.Clears++
	fb, ok := pass.Framebuffer.(*Framebuffer)
	if !ok || fb == nil || fb.destroyed {
		return
	}
	if cmd.ClearColor {
		p := cmd.Color.Bytes()
		for i := 0; i < len(fb.color.pix); i += 4 {
			copy(fb.color.pix[i:i+4], p[:])
		}
	}
	if cmd.ClearDepth {
		d := float32(cmd.Depth)
		for i := range fb.depth {
			fb.depth[i] = d
		}
	}
}

func toFloat(p [4]uint8) [4]float32 {
	return [4]float32{float32(p[0]) / 255, float32(p[1]) / 255, float32(p[2]) / 255, float32(p[3]) / 255}
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// colorUniform resolves a color supplier. Missing colors draw white.
func colorUniform(m gpu.UniformMap, name string) core.Color {
	f, ok := m[name]
	if !ok {
		return core.ColorWhite
	}
	switch v := f().(type) {
	case core.Color:
		return v
	case [4]float32:
		return core.Color{R: v[0], G: v[1], B: v[2], A: v[3]}
	}
	return core.ColorWhite
}

func floatUniform(m gpu.UniformMap, name string) (float64, bool) {
	f, ok := m[name]
	if !ok {
		return 0, false
	}
	switch v := f().(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

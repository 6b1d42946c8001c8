package softgpu

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"projection-engine/gpu"
	"projection-engine/shader"
)

type vertex struct {
	eye    mgl64.Vec3
	screen mgl64.Vec3 // window x, y and depth in [0,1]
	invW   float64
}

// Execute draws cmd into the pass framebuffer. Triangles with a vertex behind
// the eye are dropped rather than clipped; line primitives are counted but
// not rasterized. Commands targeting the default framebuffer are counted
// only.
func (c *Context) Execute(cmd *gpu.DrawCommand, pass *gpu.PassState) error {
	prog, ok := cmd.ShaderProgram.(*Program)
	if !ok || prog == nil {
		return fmt.Errorf("softgpu: command %d program %T: %w", cmd.ID, cmd.ShaderProgram, gpu.ErrUnsupported)
	}
	if prog.destroyed {
		return fmt.Errorf("softgpu: command %d program %d: %w", cmd.ID, prog.id, gpu.ErrDestroyed)
	}
	va, ok := cmd.VertexArray.(*VertexArray)
	if !ok || va == nil {
		return fmt.Errorf("softgpu: command %d vertex array %T: %w", cmd.ID, cmd.VertexArray, gpu.ErrUnsupported)
	}
	if va.destroyed {
		return fmt.Errorf("softgpu: command %d vertex array: %w", cmd.ID, gpu.ErrDestroyed)
	}
	c.stats.Executes++

	fb, _ := pass.Framebuffer.(*Framebuffer)
	if fb == nil {
		return nil
	}
	if fb.destroyed {
		return fmt.Errorf("softgpu: framebuffer: %w", gpu.ErrDestroyed)
	}
	if cmd.Primitive == gpu.Lines {
		c.stats.Lines++
		return nil
	}

	rs := gpu.DefaultRenderState()
	if cmd.RenderState != nil {
		rs = *cmd.RenderState
	}
	shade, err := c.fragmentShader(prog, cmd.UniformMap)
	if err != nil {
		return fmt.Errorf("softgpu: command %d: %w", cmd.ID, err)
	}

	mv := pass.Camera.View.Mul4(cmd.Model)
	proj := pass.Camera.Projection
	vp := pass.Viewport

	verts := make([]vertex, len(va.positions)/3)
	for i := range verts {
		p := mgl64.Vec4{float64(va.positions[i*3]), float64(va.positions[i*3+1]), float64(va.positions[i*3+2]), 1}
		eye := mv.Mul4x1(p)
		clip := proj.Mul4x1(eye)
		v := vertex{eye: eye.Vec3()}
		if clip[3] > 0 {
			v.invW = 1 / clip[3]
			ndc := clip.Vec3().Mul(v.invW)
			v.screen = mgl64.Vec3{
				float64(vp.X) + (ndc[0]*0.5+0.5)*float64(vp.Width),
				float64(vp.Y) + (ndc[1]*0.5+0.5)*float64(vp.Height),
				ndc[2]*0.5 + 0.5,
			}
		}
		verts[i] = v
	}

	index := func(i int) int { return i }
	count := len(verts)
	if len(va.indices) > 0 {
		index = func(i int) int { return int(va.indices[i]) }
		count = len(va.indices)
	}
	for i := 0; i+2 < count; i += 3 {
		c.triangle(fb, vp, rs, shade, verts[index(i)], verts[index(i+1)], verts[index(i+2)])
	}
	return nil
}

// fragmentFunc returns the color for an eye-space position, or false to discard.
type fragmentFunc func(eye mgl64.Vec3) ([4]uint8, bool)

// fragmentShader resolves what the fragment stage of prog computes. Sources
// built by the depth capture rule write packed linear depth; every other
// source draws its u_color uniform.
func (c *Context) fragmentShader(prog *Program, uniforms gpu.UniformMap) (fragmentFunc, error) {
	color := colorUniform(uniforms, "u_color")
	rule, capture := shader.Lookup[shader.DepthCapture](prog.fragment)
	if !capture {
		out := color.Bytes()
		return func(mgl64.Vec3) ([4]uint8, bool) { return out, true }, nil
	}

	far, ok := floatUniform(uniforms, shader.FarUniform)
	if !ok || far <= 0 {
		return nil, fmt.Errorf("depth capture without a positive %s", shader.FarUniform)
	}
	translucent := rule.Translucent
	return func(eye mgl64.Vec3) ([4]uint8, bool) {
		if translucent && color.A == 0 {
			return [4]uint8{}, false
		}
		distance := eye.Len()
		if distance >= far {
			return [4]uint8{}, false
		}
		return shader.PackDepthBytes(distance / far), true
	}, nil
}

func edge(a, b mgl64.Vec3, x, y float64) float64 {
	return (b[0]-a[0])*(y-a[1]) - (b[1]-a[1])*(x-a[0])
}

func (c *Context) triangle(fb *Framebuffer, vp gpu.Viewport, rs gpu.RenderState, shade fragmentFunc, v0, v1, v2 vertex) {
	if v0.invW == 0 || v1.invW == 0 || v2.invW == 0 {
		return
	}
	area := edge(v0.screen, v1.screen, v2.screen[0], v2.screen[1])
	if area == 0 {
		return
	}
	// Counter-clockwise in window space is front facing.
	if rs.Cull.Enabled {
		front := area > 0
		if (rs.Cull.Face == gpu.CullBack && !front) || (rs.Cull.Face == gpu.CullFront && front) {
			return
		}
	}

	minX := max(int(math.Floor(min(v0.screen[0], v1.screen[0], v2.screen[0]))), vp.X, 0)
	maxX := min(int(math.Ceil(max(v0.screen[0], v1.screen[0], v2.screen[0]))), vp.X+vp.Width-1, fb.w-1)
	minY := max(int(math.Floor(min(v0.screen[1], v1.screen[1], v2.screen[1]))), vp.Y, 0)
	maxY := min(int(math.Ceil(max(v0.screen[1], v1.screen[1], v2.screen[1]))), vp.Y+vp.Height-1, fb.h-1)

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5
			b0 := edge(v1.screen, v2.screen, px, py) / area
			b1 := edge(v2.screen, v0.screen, px, py) / area
			b2 := edge(v0.screen, v1.screen, px, py) / area
			if b0 < 0 || b1 < 0 || b2 < 0 {
				continue
			}

			z := b0*v0.screen[2] + b1*v1.screen[2] + b2*v2.screen[2]
			if z < 0 || z > 1 {
				continue
			}
			idx := y*fb.w + x
			if rs.DepthTest && !(float32(z) < fb.depth[idx]) {
				continue
			}

			// Perspective-correct eye position.
			p0, p1, p2 := b0*v0.invW, b1*v1.invW, b2*v2.invW
			sum := p0 + p1 + p2
			eye := v0.eye.Mul(p0 / sum).Add(v1.eye.Mul(p1 / sum)).Add(v2.eye.Mul(p2 / sum))

			color, keep := shade(eye)
			if !keep {
				continue
			}
			c.stats.Fragments++
			c.writeColor(fb, x, y, rs, color)
			if rs.DepthMask {
				fb.depth[idx] = float32(z)
			}
		}
	}
}

func (c *Context) writeColor(fb *Framebuffer, x, y int, rs gpu.RenderState, src [4]uint8) {
	dst := fb.color.Pixel(x, y)
	out := src
	if rs.Blending {
		a := float64(src[3]) / 255
		for i := range 3 {
			out[i] = uint8(math.Round(float64(src[i])*a + float64(dst[i])*(1-a)))
		}
		out[3] = uint8(math.Round(float64(src[3]) + float64(dst[3])*(1-a)))
	}
	mask := [4]bool{rs.ColorMask.Red, rs.ColorMask.Green, rs.ColorMask.Blue, rs.ColorMask.Alpha}
	for i, on := range mask {
		if !on {
			out[i] = dst[i]
		}
	}
	fb.color.setPixel(x, y, out)
}

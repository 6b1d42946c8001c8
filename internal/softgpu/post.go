package softgpu

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"projection-engine/core"
	"projection-engine/gpu"
	"projection-engine/postprocess"
	"projection-engine/shader"
)

// Screen is the default framebuffer color the runner presents into. It is
// nil until the first Run with a nil output.
func (c *Context) Screen() *Texture { return c.screen }

// Run evaluates each stage's CPU reference over every pixel of scene, in
// order, writing the result into output or the screen.
func (c *Context) Run(stages []*postprocess.Stage, scene, output gpu.Framebuffer) error {
	src, ok := scene.(*Framebuffer)
	if !ok || src == nil || src.destroyed {
		return fmt.Errorf("softgpu: scene target %T: %w", scene, gpu.ErrUnsupported)
	}
	if src.depthTex == nil {
		return fmt.Errorf("softgpu: scene target has no depth texture: %w", gpu.ErrUnsupported)
	}
	for _, s := range stages {
		if s.Reference == nil {
			return fmt.Errorf("softgpu: stage %q has no CPU reference: %w", s.Name, gpu.ErrUnsupported)
		}
	}

	dst := c.screen
	if output != nil {
		fb, ok := output.(*Framebuffer)
		if !ok || fb == nil || fb.destroyed {
			return fmt.Errorf("softgpu: output target %T: %w", output, gpu.ErrUnsupported)
		}
		dst = fb.color
	} else if dst == nil || dst.w != src.w || dst.h != src.h {
		dst = &Texture{w: src.w, h: src.h, format: gpu.RGBA8, sampler: gpu.SamplerNearest, pix: make([]byte, src.w*src.h*4)}
		c.screen = dst
	}

	w, h := min(src.w, dst.w), min(src.h, dst.h)
	for y := range h {
		for x := range w {
			frag := postprocess.Fragment{
				UV:    mgl64.Vec2{(float64(x) + 0.5) / float64(src.w), (float64(y) + 0.5) / float64(src.h)},
				Color: toFloat(src.color.Pixel(x, y)),
				Depth: toFloat(shader.PackDepthBytes(float64(src.DepthAt(x, y)))),
			}
			for _, s := range stages {
				frag.Color = s.Reference(frag)
			}
			dst.setPixel(x, y, core.Color{R: frag.Color[0], G: frag.Color[1], B: frag.Color[2], A: frag.Color[3]}.Bytes())
		}
	}
	return nil
}

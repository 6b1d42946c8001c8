package projection

import (
	"fmt"

	"projection-engine/core"
	"projection-engine/gpu"
	"projection-engine/scene"
)

// DepthCapture is the offscreen target the capture camera renders packed
// depth into: an RGBA8 color texture and a 16-bit depth renderbuffer, both
// size×size for the life of the instance.
type DepthCapture struct {
	ctx    gpu.Context
	size   int
	camera *scene.Camera
	color  gpu.Texture
	fb     gpu.Framebuffer
}

func newDepthCapture(ctx gpu.Context, size int, camera *scene.Camera) (*DepthCapture, error) {
	color, err := ctx.CreateTexture(gpu.TextureDesc{
		Width:   size,
		Height:  size,
		Format:  gpu.RGBA8,
		Sampler: gpu.SamplerNearest,
	})
	if err != nil {
		return nil, fmt.Errorf("capture color texture: %w", err)
	}
	fb, err := ctx.CreateFramebuffer(gpu.FramebufferDesc{Color: color, DepthFormat: gpu.Depth16})
	if err != nil {
		color.Destroy()
		return nil, fmt.Errorf("capture framebuffer: %w", err)
	}
	return &DepthCapture{ctx: ctx, size: size, camera: camera, color: color, fb: fb}, nil
}

// Clear resets every texel to the far sentinel and the depth buffer to 1.
func (d *DepthCapture) Clear() {
	d.ctx.Clear(gpu.ClearCommand{
		Color:      core.ColorFarDepth,
		Depth:      1,
		ClearColor: true,
		ClearDepth: true,
	}, d.Begin())
}

// Begin returns the pass state capture draws execute with. The capture
// camera travels with the pass, so nothing needs restoring afterwards.
func (d *DepthCapture) Begin() *gpu.PassState {
	return &gpu.PassState{
		Framebuffer: d.fb,
		Viewport:    gpu.Viewport{Width: d.size, Height: d.size},
		Camera:      d.camera.Context(),
	}
}

// Texture is the packed depth the compositor samples.
func (d *DepthCapture) Texture() gpu.Texture { return d.color }
func (d *DepthCapture) Size() int            { return d.size }
func (d *DepthCapture) Camera() *scene.Camera {
	return d.camera
}

func (d *DepthCapture) release() {
	d.fb.Destroy()
	d.color.Destroy()
}

package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"projection-engine/gpu"
)

// Framebuffer is an FBO with a color texture and either a depth texture or
// a depth renderbuffer.
type Framebuffer struct {
	fbo      uint32
	rbo      uint32
	color    *Texture
	depthTex *Texture
}

func (f *Framebuffer) Color() gpu.Texture { return f.color }

func (f *Framebuffer) Depth() gpu.Texture {
	if f.depthTex == nil {
		return nil
	}
	return f.depthTex
}

func (f *Framebuffer) Width() int  { return f.color.w }
func (f *Framebuffer) Height() int { return f.color.h }

// Destroy frees the FBO and its depth attachment.
func (f *Framebuffer) Destroy() {
	if f.fbo != 0 {
		gl.DeleteFramebuffers(1, &f.fbo)
		f.fbo = 0
	}
	if f.rbo != 0 {
		gl.DeleteRenderbuffers(1, &f.rbo)
		f.rbo = 0
	}
	if f.depthTex != nil {
		f.depthTex.Destroy()
	}
}

func (c *Context) CreateFramebuffer(desc gpu.FramebufferDesc) (gpu.Framebuffer, error) {
	color, ok := desc.Color.(*Texture)
	if !ok || color == nil {
		return nil, fmt.Errorf("opengl: framebuffer color attachment %T: %w", desc.Color, gpu.ErrUnsupported)
	}
	if color.id == 0 {
		return nil, fmt.Errorf("opengl: framebuffer color attachment: %w", gpu.ErrDestroyed)
	}
	if color.format != gpu.RGBA8 {
		return nil, fmt.Errorf("opengl: color attachment format %v: %w", color.format, gpu.ErrUnsupported)
	}
	internal, _, _, err := glFormat(desc.DepthFormat)
	if err != nil || desc.DepthFormat == gpu.RGBA8 {
		return nil, fmt.Errorf("opengl: depth format %v: %w", desc.DepthFormat, gpu.ErrUnsupported)
	}

	fb := &Framebuffer{color: color}
	gl.GenFramebuffers(1, &fb.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, color.id, 0)

	if desc.DepthTexture {
		dt, err := c.CreateTexture(gpu.TextureDesc{
			Width: color.w, Height: color.h,
			Format:  desc.DepthFormat,
			Sampler: gpu.SamplerNearest,
		})
		if err != nil {
			gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
			gl.DeleteFramebuffers(1, &fb.fbo)
			return nil, fmt.Errorf("opengl: depth texture: %w", err)
		}
		fb.depthTex = dt.(*Texture)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, fb.depthTex.id, 0)
	} else {
		gl.GenRenderbuffers(1, &fb.rbo)
		gl.BindRenderbuffer(gl.RENDERBUFFER, fb.rbo)
		gl.RenderbufferStorage(gl.RENDERBUFFER, uint32(internal), int32(color.w), int32(color.h))
		gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
		gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, fb.rbo)
	}

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	if status != gl.FRAMEBUFFER_COMPLETE {
		fb.Destroy()
		return nil, fmt.Errorf("opengl: framebuffer incomplete: status=0x%X", status)
	}
	return fb, nil
}

package opengl

import (
	"fmt"
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"projection-engine/gpu"
)

// Texture is a GL 2D texture. Pixel rows are stored bottom first, as GL
// expects.
type Texture struct {
	id      uint32
	w, h    int
	format  gpu.PixelFormat
	sampler gpu.Sampler
}

func (t *Texture) Width() int              { return t.w }
func (t *Texture) Height() int             { return t.h }
func (t *Texture) Format() gpu.PixelFormat { return t.format }

// Destroy frees the GPU texture. Destroying twice is a no-op.
func (t *Texture) Destroy() {
	if t.id == 0 {
		return
	}
	gl.DeleteTextures(1, &t.id)
	t.id = 0
}

func glFilter(f gpu.Filter) int32 {
	if f == gpu.Linear {
		return gl.LINEAR
	}
	return gl.NEAREST
}

// glFormat returns internal format, format and type for f.
func glFormat(f gpu.PixelFormat) (int32, uint32, uint32, error) {
	switch f {
	case gpu.RGBA8:
		return gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE, nil
	case gpu.Depth16:
		return gl.DEPTH_COMPONENT16, gl.DEPTH_COMPONENT, gl.UNSIGNED_SHORT, nil
	case gpu.Depth32F:
		return gl.DEPTH_COMPONENT32F, gl.DEPTH_COMPONENT, gl.FLOAT, nil
	}
	return 0, 0, 0, fmt.Errorf("opengl: pixel format %v: %w", f, gpu.ErrUnsupported)
}

// CreateTexture uploads desc. Textures clamp to the edge and never mipmap:
// every texture here is a render target or a per-frame video image.
func (c *Context) CreateTexture(desc gpu.TextureDesc) (gpu.Texture, error) {
	if desc.Width <= 0 || desc.Height <= 0 || desc.Width > c.maxTextureSize || desc.Height > c.maxTextureSize {
		return nil, fmt.Errorf("opengl: texture %dx%d (max %d): %w", desc.Width, desc.Height, c.maxTextureSize, gpu.ErrInvalidSize)
	}
	internal, format, typ, err := glFormat(desc.Format)
	if err != nil {
		return nil, err
	}
	var pixels unsafe.Pointer
	if desc.Pixels != nil {
		if desc.Format != gpu.RGBA8 {
			return nil, fmt.Errorf("opengl: pixel upload for %v: %w", desc.Format, gpu.ErrUnsupported)
		}
		if want := desc.Width * desc.Height * 4; len(desc.Pixels) != want {
			return nil, fmt.Errorf("opengl: %d pixel bytes, want %d", len(desc.Pixels), want)
		}
		pixels = unsafe.Pointer(&desc.Pixels[0])
	}

	t := &Texture{w: desc.Width, h: desc.Height, format: desc.Format, sampler: desc.Sampler}
	gl.GenTextures(1, &t.id)
	gl.BindTexture(gl.TEXTURE_2D, t.id)

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, glFilter(desc.Sampler.Min))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, glFilter(desc.Sampler.Mag))

	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 4)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal,
		int32(desc.Width), int32(desc.Height), 0,
		format, typ, pixels)

	gl.BindTexture(gl.TEXTURE_2D, 0)
	return t, nil
}

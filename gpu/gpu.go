// Package gpu is the resource and command contract between the projection
// effect and a rendering backend. Backends live under internal/.
package gpu

import (
	"errors"

	"projection-engine/core"
	"projection-engine/shader"
)

var (
	// ErrUnsupported marks a capability the backend does not provide.
	ErrUnsupported = errors.New("gpu: unsupported")
	// ErrInvalidSize is returned for zero, negative or oversized dimensions.
	ErrInvalidSize = errors.New("gpu: invalid size")
	// ErrDestroyed is returned when a destroyed resource is used.
	ErrDestroyed = errors.New("gpu: resource destroyed")
)

type PixelFormat int

const (
	RGBA8 PixelFormat = iota
	Depth16
	Depth32F
)

func (f PixelFormat) String() string {
	switch f {
	case RGBA8:
		return "RGBA8"
	case Depth16:
		return "DEPTH_COMPONENT16"
	case Depth32F:
		return "DEPTH_COMPONENT32F"
	}
	return "unknown"
}

type Filter int

const (
	Nearest Filter = iota
	Linear
)

type Sampler struct {
	Min, Mag Filter
}

var (
	SamplerNearest = Sampler{Min: Nearest, Mag: Nearest}
	SamplerLinear  = Sampler{Min: Linear, Mag: Linear}
)

// TextureDesc describes a 2D texture. Pixels, when set, holds tightly packed
// RGBA8 rows starting with the bottom row.
type TextureDesc struct {
	Width, Height int
	Format        PixelFormat
	Sampler       Sampler
	Pixels        []byte
}

type Texture interface {
	Width() int
	Height() int
	Format() PixelFormat
	Destroy()
}

// HostTexture is a texture whose texels the CPU can read, as software
// backends provide. Sample uses normalized coordinates with v = 0 at the
// bottom row and returns RGBA in [0,1].
type HostTexture interface {
	Texture
	Sample(u, v float64) [4]float32
}

// FramebufferDesc describes a render target. Color is sampled later; the
// depth attachment is a texture when DepthTexture is set and a renderbuffer
// of DepthFormat otherwise.
type FramebufferDesc struct {
	Color        Texture
	DepthFormat  PixelFormat
	DepthTexture bool
}

type Framebuffer interface {
	Color() Texture
	// Depth returns the depth texture, or nil for a renderbuffer attachment.
	Depth() Texture
	Width() int
	Height() int
	// Destroy frees the framebuffer and its depth attachment. The color
	// texture belongs to the caller.
	Destroy()
}

// ProgramDesc pairs the two stages of a program.
type ProgramDesc struct {
	Vertex             *shader.Source
	Fragment           *shader.Source
	AttributeLocations map[string]int
}

type ShaderProgram interface {
	// ID identifies the program for as long as it lives. IDs are never reused
	// by a context.
	ID() uint64
	Vertex() *shader.Source
	Fragment() *shader.Source
	AttributeLocations() map[string]int
	Destroy()
}

// VertexArrayDesc is triangle or line geometry: xyz positions and optional
// indices.
type VertexArrayDesc struct {
	Positions []float32
	Indices   []uint32
}

type VertexArray interface {
	VertexCount() int
	Destroy()
}

// ClearCommand clears the pass framebuffer.
type ClearCommand struct {
	Color      core.Color
	Depth      float64
	ClearColor bool
	ClearDepth bool
}

// Context creates resources and executes commands. Implementations are not
// safe for concurrent use; everything runs on the render thread.
type Context interface {
	CreateTexture(desc TextureDesc) (Texture, error)
	CreateFramebuffer(desc FramebufferDesc) (Framebuffer, error)
	// CreateShaderProgram always builds a new program; it is never cached.
	CreateShaderProgram(desc ProgramDesc) (ShaderProgram, error)
	CreateVertexArray(desc VertexArrayDesc) (VertexArray, error)
	// RenderState returns the shared instance equal to rs.
	RenderState(rs RenderState) *RenderState
	// DefaultTexture is a shared 1x1 placeholder that must never be destroyed.
	DefaultTexture() Texture
	MaxTextureSize() int

	Clear(cmd ClearCommand, pass *PassState)
	Execute(cmd *DrawCommand, pass *PassState) error
}

package gpu

import (
	"maps"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"

	"projection-engine/math"
	"projection-engine/shader"
)

// Pass is the render pass a command belongs to.
type Pass int

const (
	PassGlobe Pass = iota
	PassTiledModel
	PassOpaque
	PassTranslucent
	PassOverlay
)

func (p Pass) String() string {
	switch p {
	case PassGlobe:
		return "globe"
	case PassTiledModel:
		return "tiled-model"
	case PassOpaque:
		return "opaque"
	case PassTranslucent:
		return "translucent"
	case PassOverlay:
		return "overlay"
	}
	return "unknown"
}

type Primitive int

const (
	Triangles Primitive = iota
	Lines
)

// UniformMap resolves uniform values by name at execution time. Suppliers
// return float32, float64, int, bool, mgl64.Vec2/3/4, mgl64.Mat4, core.Color
// or a Texture.
type UniformMap map[string]func() any

// Combine returns a new map holding m overlaid by extra.
func (m UniformMap) Combine(extra UniformMap) UniformMap {
	out := make(UniformMap, len(m)+len(extra))
	maps.Copy(out, m)
	maps.Copy(out, extra)
	return out
}

var commandIDs atomic.Uint64

// NewCommandID returns a process-unique draw command id. Zero is never issued.
func NewCommandID() uint64 {
	return commandIDs.Add(1)
}

// DrawCommand is one draw call owned by the host scene.
type DrawCommand struct {
	// ID is stable for the lifetime of the command and unique per host.
	ID             uint64
	Pass           Pass
	Primitive      Primitive
	VertexArray    VertexArray
	ShaderProgram  ShaderProgram
	RenderState    *RenderState
	UniformMap     UniformMap
	Model          mgl64.Mat4
	BoundingVolume math.BoundingVolume

	// CastShaderProgramID is set on derived commands to the source program
	// they were built from.
	CastShaderProgramID uint64
}

// Viewport is a pixel rectangle.
type Viewport struct {
	X, Y, Width, Height int
}

// CameraContext is the camera state a pass renders with.
type CameraContext struct {
	View       mgl64.Mat4
	Projection mgl64.Mat4
	Near, Far  float64
}

// PassState is where and from which camera commands are executed. Passing it
// explicitly replaces any shared camera uniform slot.
type PassState struct {
	Framebuffer Framebuffer // nil targets the default framebuffer
	Viewport    Viewport
	Camera      CameraContext
}

// Builtins computes the built-in uniform values for a command drawn with cam.
func Builtins(cam CameraContext, model mgl64.Mat4) map[string]any {
	mv := cam.View.Mul4(model)
	return map[string]any{
		shader.UniformModelView:           mv,
		shader.UniformModelViewProjection: cam.Projection.Mul4(mv),
		shader.UniformProjection:          cam.Projection,
		shader.UniformInverseProjection:   cam.Projection.Inv(),
		shader.UniformView:                cam.View,
	}
}

package gpu

import "sync"

type CullFace int

const (
	CullBack CullFace = iota
	CullFront
)

type CullState struct {
	Enabled bool
	Face    CullFace
}

type ColorMask struct {
	Red, Green, Blue, Alpha bool
}

var ColorMaskAll = ColorMask{true, true, true, true}

type PolygonOffset struct {
	Enabled bool
	Factor  float32
	Units   float32
}

// RenderState is the fixed-function state of a draw. It is comparable so it
// can key a cache.
type RenderState struct {
	Cull          CullState
	DepthTest     bool
	DepthMask     bool
	ColorMask     ColorMask
	PolygonOffset PolygonOffset
	Blending      bool
}

// DefaultRenderState draws opaque geometry with back-face culling.
func DefaultRenderState() RenderState {
	return RenderState{
		Cull:      CullState{Enabled: true, Face: CullBack},
		DepthTest: true,
		DepthMask: true,
		ColorMask: ColorMaskAll,
	}
}

// RenderStateCache hands out one shared *RenderState per distinct value.
// Backends embed it to implement Context.RenderState.
type RenderStateCache struct {
	mu     sync.Mutex
	states map[RenderState]*RenderState
}

func (c *RenderStateCache) RenderState(rs RenderState) *RenderState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.states == nil {
		c.states = make(map[RenderState]*RenderState)
	}
	if s, ok := c.states[rs]; ok {
		return s
	}
	s := new(RenderState)
	*s = rs
	c.states[rs] = s
	return s
}

// Len reports how many distinct states are cached.
func (c *RenderStateCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.states)
}

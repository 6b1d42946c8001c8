// Package postprocess holds full-screen stages applied after the main pass
// and the registry the host runs them from.
package postprocess

import (
	"errors"
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"projection-engine/gpu"
)

// Host-bound sampler names every stage may declare.
const (
	ColorTexture = "colorTexture"
	DepthTexture = "depthTexture"
	// TexCoord is the varying carrying the full-screen texture coordinate.
	TexCoord = "v_textureCoordinates"
)

var ErrDuplicateStage = errors.New("postprocess: stage already registered")

// Fragment is one pixel handed to a stage's CPU reference.
type Fragment struct {
	UV    mgl64.Vec2
	Color [4]float32
	// Depth is the packed main scene depth sample.
	Depth [4]float32
}

// FragmentFunc evaluates a stage on the CPU.
type FragmentFunc func(in Fragment) [4]float32

// Stage is a full-screen fragment program. The host binds ColorTexture and
// DepthTexture; every other uniform comes from Uniforms.
type Stage struct {
	Name string
	// FragmentShader is complete GLSL 4.10 source reading TexCoord.
	FragmentShader string
	Uniforms       gpu.UniformMap
	// Reference mirrors FragmentShader for hosts without a GPU.
	Reference FragmentFunc

	enabled bool
}

func (s *Stage) Enabled() bool     { return s.enabled }
func (s *Stage) SetEnabled(on bool) { s.enabled = on }

// Registry is where stages are installed.
type Registry interface {
	Add(s *Stage) error
	Remove(s *Stage) bool
}

// Collection is an ordered Registry.
type Collection struct {
	stages []*Stage
}

func NewCollection() *Collection {
	return &Collection{}
}

func (c *Collection) Add(s *Stage) error {
	if slices.Contains(c.stages, s) {
		return ErrDuplicateStage
	}
	c.stages = append(c.stages, s)
	return nil
}

func (c *Collection) Remove(s *Stage) bool {
	i := slices.Index(c.stages, s)
	if i < 0 {
		return false
	}
	c.stages = slices.Delete(c.stages, i, i+1)
	return true
}

// Stages returns the registered stages in order.
func (c *Collection) Stages() []*Stage {
	return slices.Clone(c.stages)
}

// Active returns the enabled stages in order.
func (c *Collection) Active() []*Stage {
	var out []*Stage
	for _, s := range c.stages {
		if s.enabled {
			out = append(out, s)
		}
	}
	return out
}

func (c *Collection) Len() int { return len(c.stages) }

// Runner executes stages over a scene target. The scene framebuffer must have
// a color texture and a depth texture; the runner packs the depth before any
// stage samples DepthTexture. A nil output targets the default framebuffer.
type Runner interface {
	Run(stages []*Stage, scene gpu.Framebuffer, output gpu.Framebuffer) error
}

// Forgetter is implemented by runners that cache per-stage resources. Forget
// is called once a stage is gone for good.
type Forgetter interface {
	Forget(s *Stage)
}

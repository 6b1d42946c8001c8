package projection

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"

	"projection-engine/core"
	"projection-engine/gpu"
	"projection-engine/math"
	"projection-engine/scene"
	"projection-engine/shader"
)

const (
	coneStacks   = 4
	coneSlices   = 4
	coneSegments = 16 // line segments per arc
)

// viewCone is the outline of the region the capture camera covers: the
// sector of a shell between the near and far spheres spanned by the two
// fovs. It is rebuilt only when the capture view or projection changes.
type viewCone struct {
	ctx      gpu.Context
	overlays scene.OverlaySet
	program  gpu.ShaderProgram
	cmd      *gpu.DrawCommand

	lastView mgl64.Mat4
	lastProj mgl64.Mat4
}

func lineVertexSource() *shader.Source {
	return &shader.Source{
		Stage:      shader.Vertex,
		Attributes: []shader.Attribute{{Name: "a_position", Type: "vec3", Location: 0}},
		Uniforms:   []shader.Uniform{{Name: shader.UniformModelViewProjection, Type: "mat4"}},
		Main:       "gl_Position = u_modelViewProjection * vec4(a_position, 1.0);",
	}
}

func lineFragmentSource() *shader.Source {
	return &shader.Source{
		Stage:    shader.Fragment,
		Uniforms: []shader.Uniform{{Name: "u_color", Type: "vec4"}},
		Main:     "fragColor = u_color;",
	}
}

// update rebuilds the outline when the camera moved. It reports whether a
// rebuild happened.
func (c *viewCone) update(cam *scene.Camera, hFov, vFov float64) (bool, error) {
	view, proj := cam.ViewMatrix(), cam.ProjectionMatrix()
	if c.cmd != nil && view == c.lastView && proj == c.lastProj {
		return false, nil
	}
	if c.program == nil {
		p, err := c.ctx.CreateShaderProgram(gpu.ProgramDesc{
			Vertex:             lineVertexSource(),
			Fragment:           lineFragmentSource(),
			AttributeLocations: map[string]int{"a_position": 0},
		})
		if err != nil {
			return false, err
		}
		c.program = p
	}

	positions, indices := coneOutline(cam, hFov, vFov)
	va, err := c.ctx.CreateVertexArray(gpu.VertexArrayDesc{Positions: positions, Indices: indices})
	if err != nil {
		return false, err
	}
	c.remove()

	f := cam.Frustum()
	c.cmd = &gpu.DrawCommand{
		ID:             gpu.NewCommandID(),
		Pass:           gpu.PassOverlay,
		Primitive:      gpu.Lines,
		VertexArray:    va,
		ShaderProgram:  c.program,
		RenderState:    c.ctx.RenderState(gpu.DefaultRenderState()),
		UniformMap:     gpu.UniformMap{"u_color": func() any { return core.ColorYellow }},
		Model:          mgl64.Ident4(),
		BoundingVolume: math.BoundingSphere{Center: cam.Position(), Radius: f.Far},
	}
	c.overlays.Add(c.cmd)
	c.lastView, c.lastProj = view, proj
	return true, nil
}

func (c *viewCone) remove() {
	if c.cmd == nil {
		return
	}
	c.overlays.Remove(c.cmd)
	c.cmd.VertexArray.Destroy()
	c.cmd = nil
}

func (c *viewCone) release() {
	c.remove()
	if c.program != nil {
		c.program.Destroy()
		c.program = nil
	}
}

// coneOutline returns world-space line pairs. Clock angles sweep around the
// up axis from the camera's right, cone angles tilt from up; both are
// centred on the view direction.
func coneOutline(cam *scene.Camera, hFov, vFov float64) ([]float32, []uint32) {
	dir := cam.Direction()
	up := cam.Up()
	right := dir.Cross(up).Normalize()
	up = right.Cross(dir).Normalize()
	origin := cam.Position()
	f := cam.Frustum()

	h := mgl64.DegToRad(hFov) / 2
	v := mgl64.DegToRad(vFov) / 2
	clockMin, clockMax := gomath.Pi/2-h, gomath.Pi/2+h
	coneMin, coneMax := gomath.Pi/2-v, gomath.Pi/2+v

	point := func(r, clock, cone float64) mgl64.Vec3 {
		s := gomath.Sin(cone)
		return origin.
			Add(right.Mul(r * s * gomath.Cos(clock))).
			Add(dir.Mul(r * s * gomath.Sin(clock))).
			Add(up.Mul(r * gomath.Cos(cone)))
	}

	var positions []float32
	var indices []uint32
	add := func(p mgl64.Vec3) uint32 {
		positions = append(positions, float32(p[0]), float32(p[1]), float32(p[2]))
		return uint32(len(positions)/3 - 1)
	}
	line := func(a, b mgl64.Vec3) {
		indices = append(indices, add(a), add(b))
	}
	lerp := func(a, b float64, t float64) float64 { return a + (b-a)*t }

	for _, r := range []float64{f.Near, f.Far} {
		// Stacks: arcs of constant cone angle.
		for i := 0; i <= coneStacks; i++ {
			cone := lerp(coneMin, coneMax, float64(i)/coneStacks)
			for s := 0; s < coneSegments; s++ {
				line(point(r, lerp(clockMin, clockMax, float64(s)/coneSegments), cone),
					point(r, lerp(clockMin, clockMax, float64(s+1)/coneSegments), cone))
			}
		}
		// Slices: arcs of constant clock angle.
		for j := 0; j <= coneSlices; j++ {
			clock := lerp(clockMin, clockMax, float64(j)/coneSlices)
			for s := 0; s < coneSegments; s++ {
				line(point(r, clock, lerp(coneMin, coneMax, float64(s)/coneSegments)),
					point(r, clock, lerp(coneMin, coneMax, float64(s+1)/coneSegments)))
			}
		}
	}
	// Edges joining the shells at the four corners.
	for _, clock := range []float64{clockMin, clockMax} {
		for _, cone := range []float64{coneMin, coneMax} {
			line(point(f.Near, clock, cone), point(f.Far, clock, cone))
		}
	}
	return positions, indices
}

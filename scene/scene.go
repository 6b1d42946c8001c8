package scene

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"

	"projection-engine/core"
	"projection-engine/gpu"
)

// Scene owns the host draw commands and the active camera. Geometry is
// uploaded when a mesh is added; programs are shared per material kind.
type Scene struct {
	Camera   *Camera
	Overlays *Overlays
	SkyColor core.Color

	ctx      gpu.Context
	items    []*item
	programs map[materialKind]gpu.ShaderProgram
	log      *slog.Logger
}

type materialKind int

const (
	materialFlat materialKind = iota
	materialTerrain
)

type item struct {
	mesh *Mesh
	cmd  *gpu.DrawCommand
}

func NewScene(ctx gpu.Context, camera *Camera, logger *slog.Logger) *Scene {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scene{
		Camera:   camera,
		Overlays: &Overlays{},
		SkyColor: core.Color{R: 0.5, G: 0.7, B: 1.0, A: 1.0},
		ctx:      ctx,
		programs: make(map[materialKind]gpu.ShaderProgram),
		log:      logger,
	}
}

// Add uploads mesh and returns the command that draws it under model.
func (s *Scene) Add(mesh *Mesh, model mgl64.Mat4) (*gpu.DrawCommand, error) {
	if len(mesh.Positions) == 0 {
		return nil, fmt.Errorf("scene: mesh %q has no positions", mesh.Name)
	}
	prog, err := s.program(mesh)
	if err != nil {
		return nil, err
	}
	va, err := s.ctx.CreateVertexArray(mesh.VertexArrayDesc())
	if err != nil {
		return nil, fmt.Errorf("scene: upload %q: %w", mesh.Name, err)
	}

	rs := gpu.DefaultRenderState()
	rs.Cull.Enabled = mesh.CullFaces
	if mesh.Pass == gpu.PassTranslucent {
		rs.Blending = true
		rs.DepthMask = false
	}

	cmd := &gpu.DrawCommand{
		ID:            gpu.NewCommandID(),
		Pass:          mesh.Pass,
		Primitive:     mesh.Primitive,
		VertexArray:   va,
		ShaderProgram: prog,
		RenderState:   s.ctx.RenderState(rs),
		UniformMap: gpu.UniformMap{
			"u_color": func() any { return mesh.Color },
		},
	}
	s.items = append(s.items, &item{mesh: mesh, cmd: cmd})
	s.SetModel(cmd, model)
	s.log.Debug("scene: mesh added", "mesh", mesh.Name, "pass", mesh.Pass, "vertices", len(mesh.Positions))
	return cmd, nil
}

// SetModel moves a command and refreshes its world bounds.
func (s *Scene) SetModel(cmd *gpu.DrawCommand, model mgl64.Mat4) {
	for _, it := range s.items {
		if it.cmd == cmd {
			cmd.Model = model
			cmd.BoundingVolume = it.mesh.BoundingSphere(model)
			return
		}
	}
}

// Remove drops cmd and frees its geometry.
func (s *Scene) Remove(cmd *gpu.DrawCommand) bool {
	for i, it := range s.items {
		if it.cmd == cmd {
			cmd.VertexArray.Destroy()
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// Commands returns the scene commands followed by the overlays.
func (s *Scene) Commands() []*gpu.DrawCommand {
	out := make([]*gpu.DrawCommand, 0, len(s.items)+s.Overlays.Len())
	for _, it := range s.items {
		out = append(out, it.cmd)
	}
	return append(out, s.Overlays.Commands()...)
}

func (s *Scene) Len() int { return len(s.items) }

// Frame snapshots the scene for frame number at the given viewport size.
func (s *Scene) Frame(number uint64, width, height int) *FrameState {
	s.Camera.UpdateAspectRatio(width, height)
	return &FrameState{
		Number:   number,
		Camera:   s.Camera,
		Commands: s.Commands(),
		Width:    width,
		Height:   height,
	}
}

// Draw executes every scene command and overlay into pass.
func (s *Scene) Draw(pass *gpu.PassState) error {
	s.ctx.Clear(gpu.ClearCommand{
		Color:      s.SkyColor,
		Depth:      1,
		ClearColor: true,
		ClearDepth: true,
	}, pass)
	var errs []error
	for _, cmd := range s.Commands() {
		if err := s.ctx.Execute(cmd, pass); err != nil {
			errs = append(errs, fmt.Errorf("command %d: %w", cmd.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Release frees all geometry and shared programs.
func (s *Scene) Release() {
	for _, it := range s.items {
		it.cmd.VertexArray.Destroy()
	}
	s.items = nil
	for k, p := range s.programs {
		p.Destroy()
		delete(s.programs, k)
	}
}

func (s *Scene) program(mesh *Mesh) (gpu.ShaderProgram, error) {
	kind := materialFlat
	if mesh.Pass == gpu.PassGlobe {
		kind = materialTerrain
	}
	if p, ok := s.programs[kind]; ok {
		return p, nil
	}

	desc := gpu.ProgramDesc{
		Vertex:             flatVertex(),
		Fragment:           flatFragment(),
		AttributeLocations: map[string]int{"a_position": 0},
	}
	if kind == materialTerrain {
		desc.Vertex, desc.Fragment = terrainVertex(), terrainFragment()
	}
	p, err := s.ctx.CreateShaderProgram(desc)
	if err != nil {
		return nil, fmt.Errorf("scene: material program: %w", err)
	}
	s.programs[kind] = p
	return p, nil
}

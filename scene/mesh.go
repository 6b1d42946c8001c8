package scene

import (
	"github.com/go-gl/mathgl/mgl64"

	"projection-engine/core"
	"projection-engine/gpu"
	"projection-engine/math"
)

// Mesh holds CPU-side geometry. GPU upload happens when the owning Scene
// first builds commands.
type Mesh struct {
	Name      string
	Positions []mgl64.Vec3
	Indices   []uint32
	Primitive gpu.Primitive
	Pass      gpu.Pass
	Color     core.Color
	// CullFaces enables back-face culling for the mesh.
	CullFaces bool

	// Cached local-space AABB (computed by CreateMeshFromData).
	LocalAABB math.AABB
}

// CreateMeshFromData builds an opaque triangle Mesh and pre-computes its
// local-space AABB.
func CreateMeshFromData(name string, positions []mgl64.Vec3, indices []uint32) *Mesh {
	return &Mesh{
		Name:      name,
		Positions: positions,
		Indices:   indices,
		Primitive: gpu.Triangles,
		Pass:      gpu.PassOpaque,
		Color:     core.ColorWhite,
		CullFaces: true,
		LocalAABB: math.AABBFromPoints(positions),
	}
}

// VertexArrayDesc flattens the mesh for upload.
func (m *Mesh) VertexArrayDesc() gpu.VertexArrayDesc {
	pos := make([]float32, 0, len(m.Positions)*3)
	for _, p := range m.Positions {
		pos = append(pos, float32(p[0]), float32(p[1]), float32(p[2]))
	}
	return gpu.VertexArrayDesc{Positions: pos, Indices: m.Indices}
}

// BoundingSphere returns the world-space bounds of the mesh under model.
func (m *Mesh) BoundingSphere(model mgl64.Mat4) math.BoundingSphere {
	return math.SphereFromPoints(m.LocalAABB.Transform(model).Corners())
}

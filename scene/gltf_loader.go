package scene

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"projection-engine/core"
	"projection-engine/gpu"
	"projection-engine/math"
)

// LoadGLTF opens a .glb or .gltf file and flattens every triangle primitive
// of the default scene into world-space meshes. Node transforms are baked
// into the positions; the base color factor becomes the mesh color.
// Meshes whose name starts with "terrain" are drawn in the globe pass.
func LoadGLTF(path string) ([]*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}
	return meshesFromDocument(doc)
}

func meshesFromDocument(doc *gltf.Document) ([]*Mesh, error) {
	// ── 1. Mesh primitives ───────────────────────────────────────────────────
	meshPrims := make([][]*Mesh, len(doc.Meshes))
	for mi, gm := range doc.Meshes {
		for pi, prim := range gm.Primitives {
			m, err := loadGLTFPrimitive(doc, gm.Name, pi, prim)
			if err != nil {
				slog.Warn("gltf: skipping primitive", "mesh", mi, "primitive", pi, "err", err)
				continue
			}
			meshPrims[mi] = append(meshPrims[mi], m)
		}
	}

	// ── 2. Roots ─────────────────────────────────────────────────────────────
	var roots []int
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		roots = doc.Scenes[*doc.Scene].Nodes
	} else {
		hasParent := make([]bool, len(doc.Nodes))
		for _, gn := range doc.Nodes {
			for _, c := range gn.Children {
				if c < len(hasParent) {
					hasParent[c] = true
				}
			}
		}
		for i := range doc.Nodes {
			if !hasParent[i] {
				roots = append(roots, i)
			}
		}
	}

	// ── 3. Walk the hierarchy, baking world transforms ───────────────────────
	var out []*Mesh
	var walk func(idx int, parent mgl64.Mat4, depth int)
	walk = func(idx int, parent mgl64.Mat4, depth int) {
		if idx >= len(doc.Nodes) || depth > 64 {
			return
		}
		gn := doc.Nodes[idx]
		world := parent.Mul4(nodeMatrix(gn))
		if gn.Mesh != nil && *gn.Mesh < len(meshPrims) {
			for _, m := range meshPrims[*gn.Mesh] {
				out = append(out, m.transformed(world))
			}
		}
		for _, c := range gn.Children {
			walk(c, world, depth+1)
		}
	}
	for _, r := range roots {
		walk(r, mgl64.Ident4(), 0)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("gltf: no triangle geometry")
	}
	return out, nil
}

func nodeMatrix(gn *gltf.Node) mgl64.Mat4 {
	if m := mgl64.Mat4(gn.Matrix); m != mgl64.Ident4() && m != (mgl64.Mat4{}) {
		return m
	}
	t := gn.TranslationOrDefault()
	r := gn.RotationOrDefault() // [x, y, z, w]
	s := gn.ScaleOrDefault()
	q := mgl64.Quat{W: r[3], V: mgl64.Vec3{r[0], r[1], r[2]}}.Normalize()
	return mgl64.Translate3D(t[0], t[1], t[2]).
		Mul4(q.Mat4()).
		Mul4(mgl64.Scale3D(s[0], s[1], s[2]))
}

// loadGLTFPrimitive converts one glTF triangle primitive into a local-space Mesh.
func loadGLTFPrimitive(doc *gltf.Document, meshName string, primIdx int, prim *gltf.Primitive) (*Mesh, error) {
	name := fmt.Sprintf("%s_p%d", meshName, primIdx)
	if meshName == "" {
		name = fmt.Sprintf("prim_%d", primIdx)
	}
	if prim.Mode != gltf.PrimitiveTriangles {
		return nil, fmt.Errorf("unsupported primitive mode %v", prim.Mode)
	}

	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("no POSITION attribute")
	}
	raw, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	positions := make([]mgl64.Vec3, len(raw))
	for i, p := range raw {
		positions[i] = mgl64.Vec3{float64(p[0]), float64(p[1]), float64(p[2])}
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	m := CreateMeshFromData(name, positions, indices)
	if prim.Material != nil && *prim.Material < len(doc.Materials) {
		gm := doc.Materials[*prim.Material]
		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			cf := pbr.BaseColorFactorOrDefault()
			m.Color = core.Color{R: float32(cf[0]), G: float32(cf[1]), B: float32(cf[2]), A: float32(cf[3])}
		}
		m.CullFaces = !gm.DoubleSided
		if gm.AlphaMode == gltf.AlphaBlend {
			m.Pass = gpu.PassTranslucent
		}
	}
	if strings.HasPrefix(meshName, "terrain") {
		m.Pass = gpu.PassGlobe
	}
	return m, nil
}

// transformed returns a copy of m with its positions moved into world space.
func (m *Mesh) transformed(world mgl64.Mat4) *Mesh {
	pos := make([]mgl64.Vec3, len(m.Positions))
	for i, p := range m.Positions {
		pos[i] = mgl64.TransformCoordinate(p, world)
	}
	out := *m
	out.Positions = pos
	out.Indices = append([]uint32(nil), m.Indices...)
	// A mirroring transform flips winding.
	if world.Mat3().Det() < 0 {
		for i := 0; i+2 < len(out.Indices); i += 3 {
			out.Indices[i+1], out.Indices[i+2] = out.Indices[i+2], out.Indices[i+1]
		}
	}
	out.LocalAABB = math.AABBFromPoints(pos)
	return &out
}

package scene

import (
	"github.com/go-gl/mathgl/mgl64"

	"projection-engine/gpu"
)

// HeightFunc returns the terrain elevation at (x, z).
type HeightFunc func(x, z float64) float64

// CreateTerrain builds a width×depth heightfield centred on the origin with
// subdivisions cells per side. A nil height gives a flat plane. The mesh
// renders in the globe pass, so derived capture shaders treat it as terrain.
func CreateTerrain(width, depth float64, subdivisions int, height HeightFunc) *Mesh {
	if subdivisions < 1 {
		subdivisions = 1
	}

	halfW := width / 2.0
	halfD := depth / 2.0

	var positions []mgl64.Vec3
	for z := 0; z <= subdivisions; z++ {
		for x := 0; x <= subdivisions; x++ {
			u := float64(x) / float64(subdivisions)
			v := float64(z) / float64(subdivisions)
			px := -halfW + u*width
			pz := -halfD + v*depth
			py := 0.0
			if height != nil {
				py = height(px, pz)
			}
			positions = append(positions, mgl64.Vec3{px, py, pz})
		}
	}

	var indices []uint32
	for z := 0; z < subdivisions; z++ {
		for x := 0; x < subdivisions; x++ {
			topLeft := uint32(z*(subdivisions+1) + x)
			topRight := topLeft + 1
			bottomLeft := topLeft + uint32(subdivisions+1)
			bottomRight := bottomLeft + 1

			indices = append(indices, topLeft, bottomLeft, topRight)
			indices = append(indices, topRight, bottomLeft, bottomRight)
		}
	}

	m := CreateMeshFromData("Terrain", positions, indices)
	m.Pass = gpu.PassGlobe
	return m
}

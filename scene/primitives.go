package scene

import (
	"github.com/go-gl/mathgl/mgl64"
)

// CreateQuad builds a width×height quad in the XY plane facing +Z.
func CreateQuad(width, height float64) *Mesh {
	hw, hh := width/2, height/2
	positions := []mgl64.Vec3{
		{-hw, -hh, 0},
		{hw, -hh, 0},
		{hw, hh, 0},
		{-hw, hh, 0},
	}
	return CreateMeshFromData("Quad", positions, []uint32{0, 1, 2, 0, 2, 3})
}

// CreatePlane generates a subdivided plane in the XZ plane facing +Y.
func CreatePlane(width, depth float64, subdivisions int) *Mesh {
	m := CreateTerrain(width, depth, subdivisions, nil)
	m.Name = "Plane"
	return m
}

// CreateBox builds an axis-aligned box centred on the origin with outward
// facing triangles.
func CreateBox(width, height, depth float64) *Mesh {
	x, y, z := width/2, height/2, depth/2
	positions := []mgl64.Vec3{
		{-x, -y, -z}, {x, -y, -z}, {x, y, -z}, {-x, y, -z}, // back
		{-x, -y, z}, {x, -y, z}, {x, y, z}, {-x, y, z}, // front
	}
	indices := []uint32{
		4, 5, 6, 4, 6, 7, // +Z
		1, 0, 3, 1, 3, 2, // -Z
		5, 1, 2, 5, 2, 6, // +X
		0, 4, 7, 0, 7, 3, // -X
		7, 6, 2, 7, 2, 3, // +Y
		0, 1, 5, 0, 5, 4, // -Y
	}
	return CreateMeshFromData("Box", positions, indices)
}

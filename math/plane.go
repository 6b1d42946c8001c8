package math

import "github.com/go-gl/mathgl/mgl64"

// Plane represents a half-space: n·p + d = 0.
// Normal points into the "inside" of the volume it bounds.
type Plane struct {
	Normal mgl64.Vec3
	D      float64
}

// NewPlane builds a normalized plane from the raw coefficients a, b, c, d.
// A degenerate normal yields the zero plane, which classifies everything as inside.
func NewPlane(a, b, c, d float64) Plane {
	l := mgl64.Vec3{a, b, c}.Len()
	if l == 0 {
		return Plane{}
	}
	return Plane{Normal: mgl64.Vec3{a / l, b / l, c / l}, D: d / l}
}

// DistanceTo returns the signed distance from a point to the plane.
// Positive means on the "inside" (same side as Normal).
func (p Plane) DistanceTo(pt mgl64.Vec3) float64 {
	return p.Normal.Dot(pt) + p.D
}

// CullingVolume is the set of planes of a view frustum.
type CullingVolume struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// CullingVolumeFromViewProjection extracts the six frustum planes from a
// view-projection matrix (Gribb/Hartmann). mgl64 matrices are column-major and
// multiply column vectors, so plane i is built from rows of vp directly.
func CullingVolumeFromViewProjection(vp mgl64.Mat4) CullingVolume {
	r0, r1, r2, r3 := vp.Row(0), vp.Row(1), vp.Row(2), vp.Row(3)

	var c CullingVolume
	c.Planes[0] = planeFrom(r3.Add(r0)) // left
	c.Planes[1] = planeFrom(r3.Sub(r0)) // right
	c.Planes[2] = planeFrom(r3.Add(r1)) // bottom
	c.Planes[3] = planeFrom(r3.Sub(r1)) // top
	c.Planes[4] = planeFrom(r3.Add(r2)) // near
	c.Planes[5] = planeFrom(r3.Sub(r2)) // far
	return c
}

func planeFrom(v mgl64.Vec4) Plane {
	return NewPlane(v[0], v[1], v[2], v[3])
}

// Visibility classifies bv against every plane. A volume fully behind any plane
// is Outside; one that straddles at least one plane is Intersecting.
func (c CullingVolume) Visibility(bv BoundingVolume) Intersect {
	intersecting := false
	for _, p := range c.Planes {
		switch bv.IntersectPlane(p) {
		case Outside:
			return Outside
		case Intersecting:
			intersecting = true
		}
	}
	if intersecting {
		return Intersecting
	}
	return Inside
}

package math

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"
)

// BoundingSphere is a world-space sphere.
type BoundingSphere struct {
	Center mgl64.Vec3
	Radius float64
}

// IntersectPlane reports which side of p the sphere lies on.
func (s BoundingSphere) IntersectPlane(p Plane) Intersect {
	d := p.DistanceTo(s.Center)
	if d < -s.Radius {
		return Outside
	}
	if d < s.Radius {
		return Intersecting
	}
	return Inside
}

// Transform returns the sphere moved by m. The radius is scaled by the largest
// axis scale so non-uniform scaling still yields an enclosing sphere.
func (s BoundingSphere) Transform(m mgl64.Mat4) BoundingSphere {
	c := m.Mul4x1(s.Center.Vec4(1)).Vec3()
	sx := m.Col(0).Vec3().Len()
	sy := m.Col(1).Vec3().Len()
	sz := m.Col(2).Vec3().Len()
	return BoundingSphere{Center: c, Radius: s.Radius * gomath.Max(sx, gomath.Max(sy, sz))}
}

// SphereFromPoints returns a sphere centred on the points' AABB centre that
// encloses every point. Empty input yields the zero sphere.
func SphereFromPoints(pts []mgl64.Vec3) BoundingSphere {
	if len(pts) == 0 {
		return BoundingSphere{}
	}
	center := AABBFromPoints(pts).Center()
	var r2 float64
	for _, p := range pts {
		d := p.Sub(center)
		if l := d.Dot(d); l > r2 {
			r2 = l
		}
	}
	return BoundingSphere{Center: center, Radius: gomath.Sqrt(r2)}
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max mgl64.Vec3
}

// AABBFromPoints computes the box enclosing pts.
func AABBFromPoints(pts []mgl64.Vec3) AABB {
	if len(pts) == 0 {
		return AABB{}
	}
	out := AABB{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		out = out.extend(p)
	}
	return out
}

func (b AABB) extend(p mgl64.Vec3) AABB {
	for i := 0; i < 3; i++ {
		b.Min[i] = gomath.Min(b.Min[i], p[i])
		b.Max[i] = gomath.Max(b.Max[i], p[i])
	}
	return b
}

// Center returns the midpoint of the box.
func (b AABB) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// IntersectPlane uses the p-vertex/n-vertex test: the corner most aligned with
// the plane normal decides Outside, the least aligned one decides Inside.
func (b AABB) IntersectPlane(p Plane) Intersect {
	var pv, nv mgl64.Vec3
	for i := 0; i < 3; i++ {
		if p.Normal[i] >= 0 {
			pv[i], nv[i] = b.Max[i], b.Min[i]
		} else {
			pv[i], nv[i] = b.Min[i], b.Max[i]
		}
	}
	if p.DistanceTo(pv) < 0 {
		return Outside
	}
	if p.DistanceTo(nv) < 0 {
		return Intersecting
	}
	return Inside
}

// Corners returns the 8 corners of the box.
func (b AABB) Corners() []mgl64.Vec3 {
	mn, mx := b.Min, b.Max
	return []mgl64.Vec3{
		{mn[0], mn[1], mn[2]},
		{mx[0], mn[1], mn[2]},
		{mn[0], mx[1], mn[2]},
		{mx[0], mx[1], mn[2]},
		{mn[0], mn[1], mx[2]},
		{mx[0], mn[1], mx[2]},
		{mn[0], mx[1], mx[2]},
		{mx[0], mx[1], mx[2]},
	}
}

// Transform transforms a local AABB by m by testing all 8 corners.
func (b AABB) Transform(m mgl64.Mat4) AABB {
	corners := b.Corners()
	for i := range corners {
		corners[i] = m.Mul4x1(corners[i].Vec4(1)).Vec3()
	}
	return AABBFromPoints(corners)
}

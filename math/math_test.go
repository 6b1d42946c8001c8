package math

import (
	gomath "math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

// testVolume looks down -Z from the origin with a 90 degree field of view.
func testVolume() CullingVolume {
	proj := mgl64.Perspective(mgl64.DegToRad(90), 1, 1, 100)
	view := mgl64.LookAtV(mgl64.Vec3{}, mgl64.Vec3{0, 0, -1}, mgl64.Vec3{0, 1, 0})
	return CullingVolumeFromViewProjection(proj.Mul4(view))
}

func TestPlaneDistance(t *testing.T) {
	p := NewPlane(0, 2, 0, -4) // y = 2, normalized
	assert.InDelta(t, 1.0, p.Normal.Len(), 1e-12)
	assert.InDelta(t, 3.0, p.DistanceTo(mgl64.Vec3{7, 5, -1}), 1e-12)
	assert.InDelta(t, -2.0, p.DistanceTo(mgl64.Vec3{0, 0, 0}), 1e-12)

	assert.Equal(t, Plane{}, NewPlane(0, 0, 0, 1))
}

func TestCullingVolumePlanesPointInward(t *testing.T) {
	c := testVolume()
	inside := mgl64.Vec3{0, 0, -50}
	for i, p := range c.Planes {
		assert.Greater(t, p.DistanceTo(inside), 0.0, "plane %d", i)
	}
	// Near plane sits at z = -1, far plane at z = -100.
	assert.InDelta(t, 49.0, c.Planes[4].DistanceTo(inside), 1e-9)
	assert.InDelta(t, 50.0, c.Planes[5].DistanceTo(inside), 1e-9)
}

func TestSphereVisibility(t *testing.T) {
	c := testVolume()

	tests := []struct {
		name   string
		sphere BoundingSphere
		want   Intersect
	}{
		{"inside", BoundingSphere{Center: mgl64.Vec3{0, 0, -50}, Radius: 1}, Inside},
		{"behind camera", BoundingSphere{Center: mgl64.Vec3{0, 0, 10}, Radius: 1}, Outside},
		{"beyond far", BoundingSphere{Center: mgl64.Vec3{0, 0, -200}, Radius: 5}, Outside},
		{"straddles far", BoundingSphere{Center: mgl64.Vec3{0, 0, -100}, Radius: 5}, Intersecting},
		{"far to the side", BoundingSphere{Center: mgl64.Vec3{500, 0, -50}, Radius: 10}, Outside},
		{"contains camera", BoundingSphere{Center: mgl64.Vec3{}, Radius: 1000}, Intersecting},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Visibility(tt.sphere))
		})
	}
}

func TestAABBVisibility(t *testing.T) {
	c := testVolume()

	in := AABB{Min: mgl64.Vec3{-1, -1, -51}, Max: mgl64.Vec3{1, 1, -49}}
	assert.Equal(t, Inside, c.Visibility(in))

	out := AABB{Min: mgl64.Vec3{-1, -1, 5}, Max: mgl64.Vec3{1, 1, 6}}
	assert.Equal(t, Outside, c.Visibility(out))

	cross := AABB{Min: mgl64.Vec3{-1, -1, -101}, Max: mgl64.Vec3{1, 1, -99}}
	assert.Equal(t, Intersecting, c.Visibility(cross))
}

func TestAABBTransform(t *testing.T) {
	box := AABB{Min: mgl64.Vec3{-1, -1, -1}, Max: mgl64.Vec3{1, 1, 1}}
	m := mgl64.Translate3D(10, 0, 0).Mul4(mgl64.HomogRotate3DZ(gomath.Pi / 4))

	got := box.Transform(m)
	s := gomath.Sqrt2
	assert.InDelta(t, 10-s, got.Min[0], 1e-9)
	assert.InDelta(t, 10+s, got.Max[0], 1e-9)
	assert.InDelta(t, -s, got.Min[1], 1e-9)
	assert.InDelta(t, 1.0, got.Max[2], 1e-9)
}

func TestSphereFromPoints(t *testing.T) {
	pts := []mgl64.Vec3{{-1, 0, 0}, {3, 0, 0}, {1, 2, 0}}
	s := SphereFromPoints(pts)
	assert.InDelta(t, 1.0, s.Center[0], 1e-12)
	assert.InDelta(t, 1.0, s.Center[1], 1e-12)
	for _, p := range pts {
		assert.LessOrEqual(t, p.Sub(s.Center).Len(), s.Radius+1e-12)
	}

	assert.Equal(t, BoundingSphere{}, SphereFromPoints(nil))
}

func TestSphereTransformScalesRadius(t *testing.T) {
	s := BoundingSphere{Center: mgl64.Vec3{1, 0, 0}, Radius: 2}
	m := mgl64.Translate3D(0, 5, 0).Mul4(mgl64.Scale3D(1, 3, 1))
	got := s.Transform(m)
	assert.InDelta(t, 6.0, got.Radius, 1e-12)
	assert.True(t, got.Center.ApproxEqual(mgl64.Vec3{1, 5, 0}))
}

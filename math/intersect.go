// Package math holds the bounding volumes and culling volumes used to decide
// which draw commands a camera can see. Vector and matrix types come from mgl64.
package math

// Intersect classifies a bounding volume against a plane or culling volume.
type Intersect int

const (
	Outside Intersect = iota
	Intersecting
	Inside
)

func (i Intersect) String() string {
	switch i {
	case Outside:
		return "outside"
	case Intersecting:
		return "intersecting"
	case Inside:
		return "inside"
	}
	return "unknown"
}

// BoundingVolume is anything a CullingVolume can classify.
type BoundingVolume interface {
	IntersectPlane(p Plane) Intersect
}

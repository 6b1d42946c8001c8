package projection

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"projection-engine/scene"
	"projection-engine/video"
)

const (
	DefaultCaptureSize = 1024
	DefaultCacheSize   = 1024
)

var (
	DefaultDirection = mgl64.Vec3{0, 0, 1}
	DefaultUp        = mgl64.Vec3{0, 1, 0}
)

// Lens is the calibration applied when sampling video. A projected point
// (u, v) in [0,1]² is textured only strictly inside [XMin,XMax]×[YMin,YMax]
// and samples the video at (XA*u+XB, YA*v+YB).
type Lens struct {
	XMin, XMax float64
	YMin, YMax float64
	XA, XB     float64
	YA, YB     float64
}

// DefaultLens is the identity calibration.
func DefaultLens() Lens {
	return Lens{XMin: 0, XMax: 1, YMin: 0, YMax: 1, XA: 1, XB: 0, YA: 1, YB: 0}
}

// Contains reports whether (u, v) lies strictly inside the valid rectangle.
func (l Lens) Contains(u, v float64) bool {
	return u > l.XMin && u < l.XMax && v > l.YMin && v < l.YMax
}

// Remap maps a projected point to video texture coordinates.
func (l Lens) Remap(u, v float64) (float64, float64) {
	return l.XA*u + l.XB, l.YA*v + l.YB
}

// validate only rejects non-finite values. An empty rectangle (XMin >= XMax
// or YMin >= YMax) is allowed and turns the projection off.
func (l Lens) validate() error {
	for _, v := range [...]float64{l.XMin, l.XMax, l.YMin, l.YMax, l.XA, l.XB, l.YA, l.YB} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ConfigError{Field: "lens", Value: l, Reason: "must be finite"}
		}
	}
	return nil
}

// Options configures a Projector. Fovs are in degrees, distances in scene
// units. Zero Direction, Up, CaptureSize and CacheSize take their defaults;
// the fovs, Near and Far are required.
type Options struct {
	Position      mgl64.Vec3
	Direction     mgl64.Vec3
	Up            mgl64.Vec3
	HorizontalFov float64
	VerticalFov   float64
	Near          float64
	Far           float64

	// CaptureSize is the side of the square depth capture target.
	CaptureSize int
	// Source supplies video frames. Without one the default texture is
	// projected.
	Source video.Source

	// ViewCone draws the capture frustum outline into Overlays.
	ViewCone bool
	Overlays scene.OverlaySet

	// Lens defaults to DefaultLens when nil.
	Lens *Lens

	// CacheSize bounds the derived command cache.
	CacheSize int
	Logger    *slog.Logger
}

// ConfigError reports an invalid construction or runtime parameter.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("projection: invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

func validFov(field string, deg float64) error {
	if !(deg > 0 && deg < 180) {
		return &ConfigError{Field: field, Value: deg, Reason: "must be in (0, 180) degrees"}
	}
	return nil
}

func validRange(near, far float64) error {
	if !(near > 0) {
		return &ConfigError{Field: "near", Value: near, Reason: "must be positive"}
	}
	if !(far > near) {
		return &ConfigError{Field: "far", Value: far, Reason: "must be greater than near"}
	}
	return nil
}

func validPose(direction, up mgl64.Vec3) error {
	if direction.Len() == 0 {
		return &ConfigError{Field: "direction", Value: direction, Reason: "must be non-zero"}
	}
	if up.Len() == 0 {
		return &ConfigError{Field: "up", Value: up, Reason: "must be non-zero"}
	}
	if direction.Normalize().Cross(up.Normalize()).Len() < 1e-9 {
		return &ConfigError{Field: "up", Value: up, Reason: "must not be parallel to direction"}
	}
	return nil
}

// Validate reports the first invalid field as a *ConfigError.
func (o Options) Validate() error {
	_, err := o.withDefaults()
	return err
}

// withDefaults fills the optional fields and validates the result.
func (o Options) withDefaults() (Options, error) {
	if o.Direction == (mgl64.Vec3{}) {
		o.Direction = DefaultDirection
	}
	if o.Up == (mgl64.Vec3{}) {
		o.Up = DefaultUp
	}
	if o.CaptureSize == 0 {
		o.CaptureSize = DefaultCaptureSize
	}
	if o.CacheSize == 0 {
		o.CacheSize = DefaultCacheSize
	}
	if o.Lens == nil {
		l := DefaultLens()
		o.Lens = &l
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	if err := validFov("horizontal fov", o.HorizontalFov); err != nil {
		return o, err
	}
	if err := validFov("vertical fov", o.VerticalFov); err != nil {
		return o, err
	}
	if err := validRange(o.Near, o.Far); err != nil {
		return o, err
	}
	if err := validPose(o.Direction, o.Up); err != nil {
		return o, err
	}
	if o.CaptureSize < 0 {
		return o, &ConfigError{Field: "capture size", Value: o.CaptureSize, Reason: "must be positive"}
	}
	if o.CacheSize < 0 {
		return o, &ConfigError{Field: "cache size", Value: o.CacheSize, Reason: "must not be negative"}
	}
	if o.ViewCone && o.Overlays == nil {
		return o, &ConfigError{Field: "overlays", Value: nil, Reason: "required when the view cone is enabled"}
	}
	return o, o.Lens.validate()
}

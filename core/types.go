package core

// Color is a linear RGBA color with components in [0,1].
type Color struct {
	R, G, B, A float32
}

var (
	ColorWhite  = Color{1, 1, 1, 1}
	ColorBlack  = Color{0, 0, 0, 1}
	ColorYellow = Color{1, 1, 0, 1}

	// ColorFarDepth is the capture clear color: it unpacks past the far plane so
	// untouched texels never occlude anything.
	ColorFarDepth = Color{1, 1, 1, 0}
)

// Bytes quantizes c to RGBA8 the way a UNORM8 attachment stores it.
func (c Color) Bytes() [4]uint8 {
	return [4]uint8{unorm8(c.R), unorm8(c.G), unorm8(c.B), unorm8(c.A)}
}

// Array returns the components as a fixed array.
func (c Color) Array() [4]float32 {
	return [4]float32{c.R, c.G, c.B, c.A}
}

func unorm8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

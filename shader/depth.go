package shader

import "math"

// Packed depth stores a value in [0,1) across the four 8-bit channels of an
// RGBA8 texel, most significant first.
var packScale = [4]float64{1, 255, 65025, 16581375}

// PackDepthFunc is the GLSL twin of PackDepth.
var PackDepthFunc = Function{
	Returns: "vec4",
	Name:    "packDepth",
	Params:  "float depth",
	Body: `vec4 enc = fract(vec4(1.0, 255.0, 65025.0, 16581375.0) * depth);
enc -= enc.yzww * vec4(1.0 / 255.0, 1.0 / 255.0, 1.0 / 255.0, 0.0);
return enc;`,
}

// UnpackDepthFunc is the GLSL twin of UnpackDepth.
var UnpackDepthFunc = Function{
	Returns: "float",
	Name:    "unpackDepth",
	Params:  "vec4 packedDepth",
	Body:    "return dot(packedDepth, vec4(1.0, 1.0 / 255.0, 1.0 / 65025.0, 1.0 / 16581375.0));",
}

// PackDepth encodes depth into four channels in [0,1). A depth of exactly 1
// encodes to zero.
func PackDepth(depth float64) [4]float64 {
	var enc [4]float64
	for i, s := range packScale {
		v := depth * s
		enc[i] = v - math.Floor(v)
	}
	enc[0] -= enc[1] / 255
	enc[1] -= enc[2] / 255
	enc[2] -= enc[3] / 255
	return enc
}

// PackDepthBytes is PackDepth quantized the way a UNORM8 attachment stores it.
func PackDepthBytes(depth float64) [4]uint8 {
	enc := PackDepth(depth)
	var out [4]uint8
	for i, v := range enc {
		out[i] = uint8(math.Round(math.Min(math.Max(v, 0), 1) * 255))
	}
	return out
}

// UnpackDepth decodes a packed depth.
func UnpackDepth(rgba [4]float64) float64 {
	var d float64
	for i, s := range packScale {
		d += rgba[i] / s
	}
	return d
}

// UnpackDepthBytes decodes an RGBA8 texel.
func UnpackDepthBytes(rgba [4]uint8) float64 {
	return UnpackDepth([4]float64{
		float64(rgba[0]) / 255,
		float64(rgba[1]) / 255,
		float64(rgba[2]) / 255,
		float64(rgba[3]) / 255,
	})
}

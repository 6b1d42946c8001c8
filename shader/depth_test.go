package shader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackDepthRoundTrip(t *testing.T) {
	for _, d := range []float64{0, 0.1, 0.25, 0.5, 0.5004, 0.75, 0.999} {
		assert.InDelta(t, d, UnpackDepth(PackDepth(d)), 1e-12, "float %v", d)
		assert.InDelta(t, d, UnpackDepthBytes(PackDepthBytes(d)), 1e-7, "bytes %v", d)
	}
}

func TestPackDepthChannelsInRange(t *testing.T) {
	for _, d := range []float64{0.01, 0.33, 0.66, 0.9} {
		for i, v := range PackDepth(d) {
			assert.GreaterOrEqual(t, v, -1e-12, "channel %d of %v", i, d)
			assert.Less(t, v, 1.0, "channel %d of %v", i, d)
		}
	}
}

func TestPackDepthOneIsZero(t *testing.T) {
	assert.Equal(t, [4]uint8{0, 0, 0, 0}, PackDepthBytes(1))
	assert.Equal(t, 0.0, UnpackDepthBytes(PackDepthBytes(1)))
}

func TestClearSentinelUnpacksPastFar(t *testing.T) {
	// (1,1,1,0) is what an unwritten capture texel holds.
	assert.Greater(t, UnpackDepthBytes([4]uint8{255, 255, 255, 0}), 1.0)
}

package scene

import (
	"projection-engine/gpu"
	"projection-engine/math"
)

// FrameState is the per-frame snapshot handed to effects after the scene has
// gathered its commands.
type FrameState struct {
	Number   uint64
	Camera   *Camera
	Commands []*gpu.DrawCommand
	Width    int
	Height   int
}

// CullingVolume returns the main camera's culling volume.
func (f *FrameState) CullingVolume() math.CullingVolume {
	return f.Camera.CullingVolume()
}

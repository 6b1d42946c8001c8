package projection

import (
	"github.com/go-gl/mathgl/mgl64"

	"projection-engine/gpu"
	"projection-engine/math"
)

// capturePass reports whether commands of pass take part in the capture.
// There is no per-object opt-in: every command of these passes is a
// candidate.
func capturePass(p gpu.Pass) bool {
	switch p {
	case gpu.PassGlobe, gpu.PassTiledModel, gpu.PassOpaque, gpu.PassTranslucent:
		return true
	}
	return false
}

// regionVisible tests the sphere the capture camera can reach against the
// main view.
func regionVisible(main math.CullingVolume, position mgl64.Vec3, far float64) bool {
	region := math.BoundingSphere{Center: position, Radius: far}
	return main.Visibility(region) != math.Outside
}

// commandVisible tests a command against the capture frustum. Commands
// without bounds are always drawn.
func commandVisible(capture math.CullingVolume, cmd *gpu.DrawCommand) bool {
	if cmd.BoundingVolume == nil {
		return true
	}
	return capture.Visibility(cmd.BoundingVolume) != math.Outside
}

// selection is the outcome of filtering one frame's commands.
type selection struct {
	commands   []*gpu.DrawCommand
	candidates int
	culled     int
}

func selectCommands(capture math.CullingVolume, cmds []*gpu.DrawCommand) selection {
	var s selection
	for _, cmd := range cmds {
		if !capturePass(cmd.Pass) {
			continue
		}
		s.candidates++
		if !commandVisible(capture, cmd) {
			s.culled++
			continue
		}
		s.commands = append(s.commands, cmd)
	}
	return s
}

package scene

import (
	"slices"

	"projection-engine/gpu"
)

// OverlaySet accepts visualization-only commands such as helper outlines.
type OverlaySet interface {
	Add(cmd *gpu.DrawCommand)
	Remove(cmd *gpu.DrawCommand) bool
}

// Overlays is an ordered OverlaySet.
type Overlays struct {
	cmds []*gpu.DrawCommand
}

func (o *Overlays) Add(cmd *gpu.DrawCommand) {
	if !slices.Contains(o.cmds, cmd) {
		o.cmds = append(o.cmds, cmd)
	}
}

func (o *Overlays) Remove(cmd *gpu.DrawCommand) bool {
	i := slices.Index(o.cmds, cmd)
	if i < 0 {
		return false
	}
	o.cmds = slices.Delete(o.cmds, i, i+1)
	return true
}

func (o *Overlays) Commands() []*gpu.DrawCommand {
	return slices.Clone(o.cmds)
}

func (o *Overlays) Len() int { return len(o.cmds) }

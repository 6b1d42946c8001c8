package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"projection-engine/projection"
	"projection-engine/scene"
)

// Driver runs the per-frame update of every active projector. An instance
// whose update fails is destroyed and dropped so one bad projector cannot
// stall the frame.
type Driver struct {
	instances []*projection.Projector
	stats     []projection.FrameStats
	onRemove  func(*projection.Projector)
	log       *slog.Logger
}

func NewDriver(logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{log: logger}
}

// OnRemove sets a callback run after an instance is destroyed and dropped,
// whether by Remove, a failed Update or Close.
func (d *Driver) OnRemove(fn func(*projection.Projector)) { d.onRemove = fn }

// release destroys p and runs the removal callback.
func (d *Driver) release(p *projection.Projector) error {
	err := p.Destroy()
	if errors.Is(err, projection.ErrDestroyed) {
		err = nil
	}
	if d.onRemove != nil {
		d.onRemove(p)
	}
	return err
}

// Add registers p. Adding the same instance twice is a no-op.
func (d *Driver) Add(p *projection.Projector) {
	if slices.Contains(d.instances, p) {
		return
	}
	d.instances = append(d.instances, p)
}

// Remove drops p and destroys it. It reports whether p was registered.
func (d *Driver) Remove(p *projection.Projector) bool {
	i := slices.Index(d.instances, p)
	if i < 0 {
		return false
	}
	d.instances = slices.Delete(d.instances, i, i+1)
	if err := d.release(p); err != nil {
		d.log.Warn("renderer: destroying projector", "projector", p.ID(), "err", err)
	}
	return true
}

// Find returns the instance with the given id.
func (d *Driver) Find(id uuid.UUID) (*projection.Projector, bool) {
	for _, p := range d.instances {
		if p.ID() == id {
			return p, true
		}
	}
	return nil, false
}

func (d *Driver) Instances() []*projection.Projector { return slices.Clone(d.instances) }
func (d *Driver) Len() int                           { return len(d.instances) }

// Update runs every instance against frame in registration order.
func (d *Driver) Update(frame *scene.FrameState) error {
	d.stats = d.stats[:0]
	var errs []error
	kept := d.instances[:0]
	for _, p := range d.instances {
		if err := p.Update(frame); err != nil {
			d.log.Error("renderer: projector failed, removing", "projector", p.ID(), "frame", frame.Number, "err", err)
			errs = append(errs, fmt.Errorf("projector %s: %w", p.ID(), err))
			if derr := d.release(p); derr != nil {
				errs = append(errs, fmt.Errorf("projector %s: destroy: %w", p.ID(), derr))
			}
			continue
		}
		kept = append(kept, p)
		d.stats = append(d.stats, p.LastFrame())
	}
	clear(d.instances[len(kept):])
	d.instances = kept
	return errors.Join(errs...)
}

// Stats returns the per-instance statistics of the last Update.
func (d *Driver) Stats() []projection.FrameStats { return slices.Clone(d.stats) }

// Close destroys every instance.
func (d *Driver) Close() {
	for _, p := range d.instances {
		if err := d.release(p); err != nil {
			d.log.Warn("renderer: destroying projector", "projector", p.ID(), "err", err)
		}
	}
	d.instances = nil
}

package dvfs

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultBoostDuration is how long after boot the boost window stays open.
const DefaultBoostDuration = 60 * time.Second

// Driver is the entry point of governors. It forwards index requests to the
// backend selected by the mode.
type Driver struct {
	c       *Coordinator
	mode    Mode
	backend Backend
	logger  *slog.Logger

	boostLock  sync.Mutex
	boostUntil time.Time
}

// NewDriver creates a driver. In hardware mode the coordinator must have a
// hardware backend attached.
func NewDriver(c *Coordinator, mode Mode) (*Driver, error) {
	d := &Driver{
		c:      c,
		mode:   mode,
		logger: c.logger,
	}

	switch mode {
	case ModeSoftware:
		d.backend = NewSoftwareBackend(c)
	case ModeHardware:
		if c.backend == nil {
			return nil, fmt.Errorf("dvfs: hardware mode without backend")
		}

		d.backend = c.backend
	default:
		return nil, fmt.Errorf("dvfs: unknown mode %v", mode)
	}

	return d, nil
}

// Mode returns the mode of the driver.
func (d *Driver) Mode() Mode {
	return d.mode
}

// Backend returns the backend requests are forwarded to.
func (d *Driver) Backend() Backend {
	return d.backend
}

// Coordinator returns the coordinator of the domains.
func (d *Driver) Coordinator() *Coordinator {
	return d.c
}

// EnableBoost opens the boost window. Until it closes, domains stay at the
// point they booted at and index requests are dropped. The window closes
// after duration, or earlier with DisableBoost.
func (d *Driver) EnableBoost(duration time.Duration) {
	d.boostLock.Lock()
	d.boostUntil = d.c.timeTeller.Now().Add(duration)
	until := d.boostUntil
	d.boostLock.Unlock()

	d.logger.Info("boost enabled", "until", until)
}

// DisableBoost closes the boost window.
func (d *Driver) DisableBoost() {
	d.boostLock.Lock()
	defer d.boostLock.Unlock()

	d.boostUntil = time.Time{}
}

// Boosting tells if the boost window is open.
func (d *Driver) Boosting() bool {
	d.boostLock.Lock()
	defer d.boostLock.Unlock()

	if d.boostUntil.IsZero() {
		return false
	}

	if d.c.timeTeller.Now().After(d.boostUntil) {
		d.boostUntil = time.Time{}
		d.logger.Info("boost window closed")

		return false
	}

	return true
}

// SetTarget moves a domain to an index, waiting for the rail if needed.
// Requests made while the boost window is open are dropped.
func (d *Driver) SetTarget(id DomainID, index int) error {
	if d.Boosting() {
		d.logger.Debug("request dropped while boosting",
			"domain", id, "index", index)

		return nil
	}

	if d.mode == ModeSoftware {
		return d.backend.ApplyIndex(id, index)
	}

	dom, err := d.c.lookup(id)
	if err != nil {
		return err
	}

	if !d.backend.Probe(id) {
		return fmt.Errorf("%w: domain %d", ErrNotProbed, id)
	}

	dom.rail.Lock()
	defer dom.rail.Unlock()

	if index < 0 || index >= len(dom.points) {
		return fmt.Errorf("%w: %d not in [0, %d)",
			ErrInvalidIndex, index, len(dom.points))
	}

	task := d.c.startTask(TaskKindTransition,
		fmt.Sprintf("index %d", index), dom)

	err = d.backend.ApplyIndex(id, index)
	if err == nil {
		p := dom.points[dom.points.RowOf(index)]
		dom.freqReq = p.FreqHz
		dom.voltReq = p.VoltUV
	}

	d.c.endTask(task, err)

	if err != nil {
		d.logger.Error("hardware transition failed",
			"domain", id, "index", index, "err", err)
		d.resyncLocked(dom)
	}

	return err
}

// resyncLocked reloads the requested point of dom from the index the
// sequencer reports, since a failed request may still have moved it.
func (d *Driver) resyncLocked(dom *Domain) {
	index, err := d.backend.CurrentIndex(dom.id)
	if err != nil || index < 0 || index >= len(dom.points) {
		return
	}

	p := dom.points[dom.points.RowOf(index)]
	dom.freqReq = p.FreqHz
	dom.voltReq = p.VoltUV
}

// CurrentIndex returns the index a domain runs at.
func (d *Driver) CurrentIndex(id DomainID) (int, error) {
	return d.backend.CurrentIndex(id)
}

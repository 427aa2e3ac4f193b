package dvfs

import (
	"errors"
	"time"

	"github.com/sarchlab/swdvfs/opp"
)

var timeZero time.Time

// OnTemperatureSample feeds a temperature in milli-degrees Celsius. When the
// temperature leaves the window of the current table, the tables of the
// domain and its sub-domains are rebuilt and the new frequency ceiling in
// kHz is returned. It returns 0 whenever nothing was rebuilt. It never
// blocks: a sample that arrives during a transition is dropped.
func (c *Coordinator) OnTemperatureSample(id DomainID, milliC int) uint32 {
	t := milliC / 1000
	if t <= opp.TempMin || t >= opp.TempMax {
		return 0
	}

	d, ok := c.registry.Lookup(id)
	if !ok {
		return 0
	}

	if !d.rail.TryLock() {
		c.logger.Debug("temperature sample dropped, rail busy", "domain", id)
		return 0
	}
	defer d.rail.Unlock()

	if !d.online || d.temp.thresholds == 0 {
		return 0
	}

	d.temp.now = t
	now := c.timeTeller.Now()

	if t < d.temp.bottom && d.temp.fallDeadline.IsZero() {
		d.temp.fallDeadline = now.Add(c.fallDelay)
	}

	if t >= d.temp.bottom {
		d.temp.fallDeadline = timeZero
	}

	fallen := !d.temp.fallDeadline.IsZero() && now.After(d.temp.fallDeadline)
	if t < d.temp.top && !fallen {
		return 0
	}

	ceiling, err := c.rebuildLocked(d, t, false)
	if errors.Is(err, ErrBusy) {
		c.logger.Debug("table rebuild deferred, rail busy",
			"domain", id, "temp", t, "err", err)

		return 0
	}

	if err != nil {
		c.logger.Warn("table rebuild failed, will retry",
			"domain", id, "temp", t, "err", err)

		return 0
	}

	d.temp.fallDeadline = timeZero

	return ceiling
}

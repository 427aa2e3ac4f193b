package dvfs

import (
	"fmt"

	"github.com/sarchlab/swdvfs/hooking"
	"github.com/sarchlab/swdvfs/opp"
)

// SetTarget moves a domain to the operating point at index, where index 0
// is the slowest point. With force unset the call fails with ErrBusy instead
// of waiting for the rail.
func (c *Coordinator) SetTarget(id DomainID, index int, force bool) error {
	d, err := c.lookup(id)
	if err != nil {
		return err
	}

	if force {
		d.rail.Lock()
	} else if !d.rail.TryLock() {
		c.logger.Debug("transition rejected, rail busy",
			"domain", id, "index", index)

		return ErrBusy
	}
	defer d.rail.Unlock()

	task := c.startTask(TaskKindTransition,
		fmt.Sprintf("index %d", index), d)

	err = c.setTargetLocked(task, d, index)

	c.endTask(task, err)

	return err
}

type transition struct {
	task      string
	d         *Domain
	target    opp.Point
	oldHz     uint64
	actualUV  uint64
	aggregate uint64

	// railUV is the level the rail was last programmed to.
	railUV uint64
}

func (c *Coordinator) setTargetLocked(task string, d *Domain, index int) error {
	if index < 0 || index >= len(d.points) {
		return fmt.Errorf("%w: %d not in [0, %d)",
			ErrInvalidIndex, index, len(d.points))
	}

	reg := d.rail.regulator
	if d.clock == nil || reg == nil {
		return fmt.Errorf("%w: domain %d", ErrNoHardwareBinding, d.id)
	}

	target := d.points[d.points.RowOf(index)]

	// A leaf keeps the frequency of the row and runs at the voltage of the
	// nearest enabled point at or above it.
	if d.registration != nil {
		p, err := d.registration.FindFreqCeil(target.FreqHz)
		if err != nil {
			return fmt.Errorf("domain %d: %w", d.id, err)
		}

		target.VoltUV = p.VoltUV
	}

	actual, err := reg.Voltage()
	if err != nil {
		return fmt.Errorf("domain %d: read rail voltage: %w", d.id, err)
	}

	t := &transition{
		task:      task,
		d:         d,
		target:    target,
		oldHz:     d.clock.Rate(),
		actualUV:  actual,
		aggregate: max(target.VoltUV, c.mastersMax(d)),
		railUV:    actual,
	}

	c.logger.Debug("transition",
		"domain", d.id,
		"from_hz", t.oldHz, "from_uv", t.actualUV,
		"to_hz", target.FreqHz, "to_uv", t.aggregate)

	if t.aggregate < t.actualUV {
		if err := c.notifyVoltSlaves(d, t.aggregate); err != nil {
			c.restoreSlaves(d, t.actualUV)
			return err
		}
	}

	if err := c.applyTransition(t); err != nil {
		c.logger.Error("transition failed", "domain", d.id, "err", err)
		c.restoreSlaves(d, t.actualUV)

		return err
	}

	var propErr error
	if t.aggregate >= t.actualUV {
		propErr = c.notifyVoltSlaves(d, t.aggregate)
	}

	d.freqReq = target.FreqHz
	d.voltReq = target.VoltUV
	d.voltTolEffective = d.voltTol

	return propErr
}

func (c *Coordinator) applyTransition(t *transition) error {
	d := t.d
	newHz := t.target.FreqHz

	switch {
	case newHz > t.oldHz:
		if err := c.setVoltage(t, t.aggregate); err != nil {
			return &VoltageSetError{Domain: d.id, TargetUV: t.aggregate, Err: err}
		}

		if err := c.setClock(t, newHz); err != nil {
			rbErr := c.setVoltage(t, t.actualUV)
			c.logger.Warn("clock failed, restoring voltage",
				"domain", d.id, "uv", t.actualUV, "rollback_err", rbErr)

			return &ClockSetError{
				Domain:            d.id,
				TargetHz:          newHz,
				Err:               err,
				RollbackAttempted: true,
				RollbackOK:        rbErr == nil,
			}
		}
	case newHz < t.oldHz:
		if err := c.setClock(t, newHz); err != nil {
			return &ClockSetError{Domain: d.id, TargetHz: newHz, Err: err}
		}

		if err := c.setVoltage(t, t.aggregate); err != nil {
			rbErr := c.setClock(t, t.oldHz)
			c.logger.Warn("voltage failed, restoring clock",
				"domain", d.id, "hz", t.oldHz, "rollback_err", rbErr)

			return &VoltageSetError{
				Domain:            d.id,
				TargetUV:          t.aggregate,
				Err:               err,
				RollbackAttempted: true,
				RollbackOK:        rbErr == nil,
			}
		}
	default:
		if err := c.setVoltage(t, t.aggregate); err != nil {
			return &VoltageSetError{Domain: d.id, TargetUV: t.aggregate, Err: err}
		}
	}

	return nil
}

// setVoltage programs the rail. The external consumer of the rail, if any,
// may raise the level. Nothing is programmed when the rail already sits at
// the level.
func (c *Coordinator) setVoltage(t *transition, uv uint64) error {
	g := t.d.rail

	level := uv
	if g.external != nil {
		level = g.external.Vote(uv)
	}

	if level == t.railUV {
		return nil
	}

	err := g.regulator.SetVoltageTol(level, t.d.voltTol)
	if err == nil {
		t.railUV = level
	} else if g.external != nil {
		g.external.Vote(t.actualUV)
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosVoltageSet,
		Item: VoltageStep{
			TaskID:    t.task,
			Domain:    t.d.id,
			Regulator: g.regulator.Name(),
			TargetUV:  level,
			Err:       err,
		},
	})

	return err
}

func (c *Coordinator) setClock(t *transition, hz uint64) error {
	err := t.d.clock.SetRate(hz)

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosClockSet,
		Item: ClockStep{
			TaskID:   t.task,
			Domain:   t.d.id,
			Clock:    t.d.clock.Name(),
			TargetHz: hz,
			Err:      err,
		},
	})

	return err
}

func (c *Coordinator) restoreSlaves(d *Domain, uv uint64) {
	if err := c.notifyVoltSlaves(d, uv); err != nil {
		c.logger.Warn("slaves not restored", "domain", d.id, "err", err)
	}
}

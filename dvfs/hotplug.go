package dvfs

import (
	"fmt"
	"sync"

	"github.com/sarchlab/swdvfs/hooking"
)

// OnDomainOnline brings a domain back into the aggregation of its rail. If
// its last request is above what the other online masters need, the rail
// is raised first. Frequency-sync slaves are then moved to the index that
// matches the request.
func (c *Coordinator) OnDomainOnline(id DomainID) error {
	d, err := c.lookup(id)
	if err != nil {
		return err
	}

	if d.rel.VoltShareMasters.Empty() {
		return fmt.Errorf("%w: domain %d", ErrNoMasters, id)
	}

	d.rail.Lock()

	bound := c.mastersMax(d)

	if d.voltReq > bound {
		c.raiseRailLocked(d)
	}

	d.online = true

	uv := d.voltReq

	index := -1
	if row, ok := d.points.FirstAtOrBelow(uv); ok {
		index = d.points.IndexOf(row)
	}

	d.rail.Unlock()

	c.logger.Info("domain online", "domain", id, "uv", uv)
	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosDomainOnline,
		Item:   StateChange{Domain: id, Online: true},
	})

	if index < 0 {
		return nil
	}

	return c.NotifyFreqSyncSlaves(id, index, true)
}

func (c *Coordinator) raiseRailLocked(d *Domain) {
	reg := d.rail.regulator
	if reg == nil {
		return
	}

	actual, err := reg.Voltage()
	if err != nil {
		c.logger.Debug("cannot read rail", "domain", d.id, "err", err)
		return
	}

	level := d.voltReq
	if d.rail.external != nil {
		level = d.rail.external.Vote(level)
	}

	if level != actual {
		if err := reg.SetVoltageTol(level, c.tolMin(d)); err != nil {
			c.logger.Debug("rail not raised", "domain", d.id, "err", err)
			return
		}
	}

	if err := c.notifyVoltSlaves(d, d.voltReq); err != nil {
		c.logger.Debug("slaves not raised", "domain", d.id, "err", err)
	}
}

// OnDomainOffline removes a domain from the aggregation of its rail and
// drops its frequency-sync slaves to their slowest point.
func (c *Coordinator) OnDomainOffline(id DomainID) error {
	d, err := c.lookup(id)
	if err != nil {
		return err
	}

	if d.rel.VoltShareMasters.Empty() {
		return fmt.Errorf("%w: domain %d", ErrNoMasters, id)
	}

	d.rail.Lock()
	d.online = false
	d.rail.Unlock()

	c.logger.Info("domain offline", "domain", id)
	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosDomainOffline,
		Item:   StateChange{Domain: id, Online: false},
	})

	return c.NotifyFreqSyncSlaves(id, 0, true)
}

// CPUTracker follows CPU hotplug and turns it into domain online and
// offline events. A domain goes online with its first CPU and offline with
// its last. Only domains with voltage-share masters are tracked.
type CPUTracker struct {
	c *Coordinator

	lock      sync.Mutex
	domainOf  map[int]DomainID
	onlineCPU map[DomainID]map[int]bool
}

// NewCPUTracker creates a tracker for the registered domains. The CPUs of
// online domains start online.
func NewCPUTracker(c *Coordinator) *CPUTracker {
	t := &CPUTracker{
		c:         c,
		domainOf:  make(map[int]DomainID),
		onlineCPU: make(map[DomainID]map[int]bool),
	}

	for _, d := range c.registry.Ready() {
		if d.rel.VoltShareMasters.Empty() || len(d.cpus) == 0 {
			continue
		}

		d.rail.Lock()
		online := d.online
		d.rail.Unlock()

		cpus := make(map[int]bool)

		for _, cpu := range d.cpus {
			t.domainOf[cpu] = d.id

			if online {
				cpus[cpu] = true
			}
		}

		t.onlineCPU[d.id] = cpus
	}

	return t
}

// CPUOnline records that a CPU came up.
func (t *CPUTracker) CPUOnline(cpu int) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	id, ok := t.domainOf[cpu]
	if !ok {
		return nil
	}

	cpus := t.onlineCPU[id]
	if cpus[cpu] {
		return nil
	}

	cpus[cpu] = true

	if len(cpus) > 1 {
		return nil
	}

	return t.c.OnDomainOnline(id)
}

// CPUOffline records that a CPU went down.
func (t *CPUTracker) CPUOffline(cpu int) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	id, ok := t.domainOf[cpu]
	if !ok {
		return nil
	}

	cpus := t.onlineCPU[id]
	if !cpus[cpu] {
		return nil
	}

	delete(cpus, cpu)

	if len(cpus) > 0 {
		return nil
	}

	return t.c.OnDomainOffline(id)
}

// OnlineCPUs returns the number of online CPUs of a domain.
func (t *CPUTracker) OnlineCPUs(id DomainID) int {
	t.lock.Lock()
	defer t.lock.Unlock()

	return len(t.onlineCPU[id])
}

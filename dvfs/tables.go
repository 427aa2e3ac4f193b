package dvfs

import (
	"fmt"
	"sort"

	"github.com/sarchlab/swdvfs/hooking"
	"github.com/sarchlab/swdvfs/opp"
)

type stagedTable struct {
	domain *Domain
	build  *opp.Build
	temp   int
}

func (c *Coordinator) stage(d *Domain, temp int) (stagedTable, error) {
	build, err := c.tables.Build(d.descriptor, d.binning, temp)
	if err != nil {
		return stagedTable{}, fmt.Errorf("domain %d: %w", d.id, err)
	}

	return stagedTable{domain: d, build: build, temp: temp}, nil
}

// commit switches the staged domains to their tables. Every table reaches
// the backend before any domain switches; if the backend refuses one, the
// domains handed over before it get their current table back and nothing
// switches. The caller holds the rail locks of every staged domain.
func (c *Coordinator) commit(staged ...stagedTable) error {
	if c.backend != nil {
		for _, s := range staged {
			if !c.backend.Probe(s.domain.id) {
				return fmt.Errorf("%w: domain %d", ErrNotProbed, s.domain.id)
			}
		}

		if err := c.registerAll(staged); err != nil {
			return err
		}
	}

	for _, s := range staged {
		c.apply(s)
	}

	return nil
}

func (c *Coordinator) registerAll(staged []stagedTable) error {
	for i, s := range staged {
		err := c.registerWithBackend(s.domain.id,
			s.build.Points, s.build.SelectionKey)
		if err == nil {
			continue
		}

		for _, done := range staged[:i] {
			d := done.domain
			if len(d.points) == 0 {
				continue
			}

			rbErr := c.registerWithBackend(d.id, d.points, d.selectionKey)
			if rbErr != nil {
				c.logger.Error("backend table not restored",
					"domain", d.id, "table", d.selectionKey, "err", rbErr)
			}
		}

		return err
	}

	return nil
}

func (c *Coordinator) registerWithBackend(
	id DomainID,
	points opp.Table,
	selectionKey string,
) error {
	for row, p := range points {
		err := c.backend.RegisterOperatingPoint(id, points.IndexOf(row), p)
		if err != nil {
			return fmt.Errorf("domain %d: register %v: %w", id, p, err)
		}
	}

	updater, ok := c.backend.(TableUpdater)
	if !ok {
		return nil
	}

	if err := updater.UpdateIndexTable(id, selectionKey); err != nil {
		return fmt.Errorf("domain %d: update index table: %w", id, err)
	}

	return nil
}

func (c *Coordinator) apply(s stagedTable) {
	d := s.domain
	b := s.build

	d.points = b.Points
	d.selectionKey = b.SelectionKey
	d.dropped = b.Dropped
	d.tempMaxFreqKHz = b.TempMaxFreqKHz
	d.temp.now = s.temp

	if b.HasWindow {
		d.temp.bottom = b.Window.Bottom
		d.temp.top = b.Window.Top
		d.temp.thresholds = b.Window.Thresholds
	} else {
		d.temp.bottom = opp.TempMin
		d.temp.top = opp.TempMax
		d.temp.thresholds = 0
	}

	d.latency = d.baseLatency

	if d.registration != nil {
		d.registration.Replace(d.points)

		if reg := d.rail.regulator; reg != nil {
			d.latency += d.registration.VerifyWith(reg, d.voltTol)
		}
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosTableCommit,
		Item: TableCommit{
			Domain:       d.id,
			SelectionKey: d.selectionKey,
			TempC:        s.temp,
			Points:       d.points.Clone(),
			Dropped:      d.dropped,
		},
	})
}

// rebuildLocked reselects the tables of host and its sub-domains for temp.
// Every table is built and every rail is taken before any is committed, so
// a failed build leaves all tables untouched. Without force, a sub-domain
// rail that is busy fails the rebuild with ErrBusy instead of waiting. The
// caller holds the host's rail lock.
func (c *Coordinator) rebuildLocked(
	host *Domain,
	temp int,
	force bool,
) (uint32, error) {
	task := c.startTask(TaskKindRebuild,
		fmt.Sprintf("temp %d C", temp), host)

	ceiling, err := c.rebuildTask(host, temp, force)

	c.endTask(task, err)

	return ceiling, err
}

func (c *Coordinator) rebuildTask(
	host *Domain,
	temp int,
	force bool,
) (uint32, error) {
	var staged []stagedTable

	for _, id := range host.rel.SubDomains.Without(host.id).IDs() {
		sub, ok := c.registry.Lookup(id)
		if !ok {
			continue
		}

		s, err := c.stage(sub, temp)
		if err != nil {
			return 0, err
		}

		staged = append(staged, s)
	}

	s, err := c.stage(host, temp)
	if err != nil {
		return 0, err
	}

	staged = append(staged, s)

	rails, err := c.lockSubRails(host, staged, force)
	if err != nil {
		return 0, err
	}

	err = c.commit(staged...)

	for _, r := range rails {
		r.Unlock()
	}

	if err != nil {
		return 0, err
	}

	c.logger.Info("tables rebuilt",
		"domain", host.id, "temp", temp, "table", host.selectionKey,
		"max_khz", host.tempMaxFreqKHz)

	return host.tempMaxFreqKHz, nil
}

// lockSubRails takes the rails of the staged domains other than the host's,
// in owner order. Without force it only tries, and releases what it took
// when one is busy.
func (c *Coordinator) lockSubRails(
	host *Domain,
	staged []stagedTable,
	force bool,
) ([]*RailGroup, error) {
	var rails []*RailGroup

	seen := map[*RailGroup]bool{host.rail: true}

	for _, s := range staged {
		r := s.domain.rail
		if seen[r] {
			continue
		}

		seen[r] = true
		rails = append(rails, r)
	}

	sort.Slice(rails, func(i, j int) bool {
		return rails[i].owner < rails[j].owner
	})

	for i, r := range rails {
		if force {
			r.Lock()
			continue
		}

		if r.TryLock() {
			continue
		}

		for _, taken := range rails[:i] {
			taken.Unlock()
		}

		return nil, fmt.Errorf("%w: rail of domain %d", ErrBusy, r.owner)
	}

	return rails, nil
}

// RebuildTables reselects the tables of a domain and its sub-domains for a
// temperature, regardless of the hysteresis window. It waits for every rail
// involved and returns the new frequency ceiling in kHz.
func (c *Coordinator) RebuildTables(id DomainID, tempC int) (uint32, error) {
	d, err := c.lookup(id)
	if err != nil {
		return 0, err
	}

	d.rail.Lock()
	defer d.rail.Unlock()

	ceiling, err := c.rebuildLocked(d, tempC, true)
	if err == nil {
		d.temp.fallDeadline = timeZero
	}

	return ceiling, err
}

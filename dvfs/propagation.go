package dvfs

import (
	"fmt"
)

// notifyVoltSlaves moves every online voltage-share slave of host to the
// fastest point uv sustains. The first failure stops the fan-out; slaves
// already moved stay where they are. The caller holds the rail lock.
func (c *Coordinator) notifyVoltSlaves(host *Domain, uv uint64) error {
	for _, id := range host.rel.VoltShareSlaves.Without(host.id).IDs() {
		s, ok := c.registry.Lookup(id)
		if !ok || !s.online || !s.rel.VoltShareHosts.Has(host.id) {
			continue
		}

		if err := c.syncByVoltage(s, uv); err != nil {
			c.logger.Error("voltage-share slave out of sync",
				"host", host.id, "slave", id, "uv", uv, "err", err)

			return &PropagationError{AtDomain: id, Err: err}
		}
	}

	return nil
}

// syncByVoltage changes the clock of s only. The rail is already where the
// host put it.
func (c *Coordinator) syncByVoltage(s *Domain, uv uint64) error {
	row, ok := s.points.FirstAtOrBelow(uv)
	if !ok {
		return fmt.Errorf("%w: %d uV", ErrNoMatchingPoint, uv)
	}

	if s.clock == nil {
		return fmt.Errorf("%w: domain %d", ErrNoHardwareBinding, s.id)
	}

	p := s.points[row]

	if s.clock.Rate() != p.FreqHz {
		t := &transition{d: s, target: p}
		if err := c.setClock(t, p.FreqHz); err != nil {
			return &ClockSetError{Domain: s.id, TargetHz: p.FreqHz, Err: err}
		}
	}

	s.freqReq = p.FreqHz
	s.voltReq = p.VoltUV

	return nil
}

// NotifyFreqSyncSlaves replays an index request of host on every online
// frequency-sync slave. It must not be called with the rail of host held.
func (c *Coordinator) NotifyFreqSyncSlaves(
	host DomainID,
	index int,
	force bool,
) error {
	h, err := c.lookup(host)
	if err != nil {
		return err
	}

	for _, id := range h.rel.FreqSyncSlaves.Without(host).IDs() {
		s, ok := c.registry.Lookup(id)
		if !ok || !c.followsFreqOf(s, host) {
			continue
		}

		if err := c.SetTarget(id, index, force); err != nil {
			c.logger.Info("frequency-sync slave failed",
				"host", host, "slave", id, "index", index, "err", err)

			return &PropagationError{AtDomain: id, Err: err}
		}
	}

	return nil
}

func (c *Coordinator) followsFreqOf(s *Domain, host DomainID) bool {
	s.rail.Lock()
	defer s.rail.Unlock()

	return s.online && s.rel.FreqSyncHosts.Has(host)
}

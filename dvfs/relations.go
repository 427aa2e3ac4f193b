package dvfs

import (
	"fmt"
	"sync"

	"github.com/sarchlab/swdvfs/hw"
)

// A RailGroup is the lock and regulator shared by the domains on one rail.
// It belongs to the first domain of the group and is never reassigned.
type RailGroup struct {
	lock      sync.Mutex
	owner     DomainID
	regulator hw.Regulator
	external  ExternalVoter
}

// Owner returns the domain that created the group.
func (g *RailGroup) Owner() DomainID {
	return g.owner
}

// Regulator returns the regulator of the rail.
func (g *RailGroup) Regulator() hw.Regulator {
	return g.regulator
}

// Lock blocks until the rail is free.
func (g *RailGroup) Lock() {
	g.lock.Lock()
}

// TryLock takes the rail if it is free.
func (g *RailGroup) TryLock() bool {
	return g.lock.TryLock()
}

// Unlock releases the rail.
func (g *RailGroup) Unlock() {
	g.lock.Unlock()
}

// ExternalVoter is a consumer outside the engine, such as a GPU, that shares
// the rail and keeps its own voltage vote.
type ExternalVoter interface {
	// Vote publishes the engine's demand and returns the voltage the rail
	// has to supply.
	Vote(uv uint64) uint64
}

// SharedRailVote arbitrates a rail between the engine and one peer
// consumer.
type SharedRailVote struct {
	lock sync.Mutex
	own  uint64
	peer uint64
}

// Vote records the engine's vote and returns the highest vote.
func (v *SharedRailVote) Vote(uv uint64) uint64 {
	v.lock.Lock()
	defer v.lock.Unlock()

	v.own = uv

	return max(v.own, v.peer)
}

// SetPeerVote records the vote of the peer consumer.
func (v *SharedRailVote) SetPeerVote(uv uint64) {
	v.lock.Lock()
	defer v.lock.Unlock()

	v.peer = uv
}

// Votes returns the current votes.
func (v *SharedRailVote) Votes() (own, peer uint64) {
	v.lock.Lock()
	defer v.lock.Unlock()

	return v.own, v.peer
}

// resolveRail finds the group of the ready domains linked to self by a
// voltage-share relation, in either direction. A domain may register before
// the host or master that names it, so the links of the ready domains are
// searched as well as its own. Linked domains in different groups mean the
// rail would have two locks, which is refused.
func (c *Coordinator) resolveRail(rel Relations, self DomainID) (*RailGroup, error) {
	var found *RailGroup

	for _, d := range c.registry.Ready() {
		if d.id == self || d.rail == nil || !linkedByVoltage(rel, d, self) {
			continue
		}

		if found != nil && found != d.rail {
			return nil, fmt.Errorf("%w: domain %d links rails of %d and %d",
				ErrRailConflict, self, found.owner, d.rail.owner)
		}

		found = d.rail
	}

	return found, nil
}

func linkedByVoltage(rel Relations, d *Domain, self DomainID) bool {
	own := rel.VoltShareMasters.Has(d.id) ||
		rel.VoltShareHosts.Has(d.id) ||
		rel.VoltShareSlaves.Has(d.id)

	theirs := d.rel.VoltShareMasters.Has(self) ||
		d.rel.VoltShareHosts.Has(self) ||
		d.rel.VoltShareSlaves.Has(self)

	return own || theirs
}

// mastersMax returns the highest request of the online masters other than d.
// The caller holds the rail lock.
func (c *Coordinator) mastersMax(d *Domain) uint64 {
	var uv uint64

	for _, id := range d.rel.VoltShareMasters.Without(d.id).IDs() {
		m, ok := c.registry.Lookup(id)
		if !ok || !m.online {
			continue
		}

		uv = max(uv, m.voltReq)
	}

	return uv
}

// tolMin returns the lowest negotiated tolerance among d and its online
// masters. The caller holds the rail lock.
func (c *Coordinator) tolMin(d *Domain) uint32 {
	tol := d.voltTolEffective

	for _, id := range d.rel.VoltShareMasters.IDs() {
		m, ok := c.registry.Lookup(id)
		if !ok || !m.online {
			continue
		}

		tol = min(tol, m.voltTolEffective)
	}

	return tol
}

// Package dvfs coordinates voltage and frequency changes of domains that
// share power rails.
//
// Each domain is a clock region with its own operating-point table. Domains
// that sit on the same regulator form a rail group; a transition of any
// member holds the group lock for its whole duration, raises the rail to the
// highest request of the online masters and keeps dependent domains in step.
package dvfs

import (
	"time"

	"github.com/sarchlab/swdvfs/hw"
	"github.com/sarchlab/swdvfs/opp"
)

type thermalState struct {
	now          int
	bottom       int
	top          int
	thresholds   int
	fallDeadline time.Time
}

// Domain is one independently scaled clock region.
type Domain struct {
	id   DomainID
	name string
	leaf bool
	cpus []int

	rel   Relations
	rail  *RailGroup
	clock hw.Clock

	descriptor   opp.Descriptor
	binning      opp.Binning
	registration *opp.Registration
	baseLatency  time.Duration

	// Guarded by the rail lock.
	online           bool
	points           opp.Table
	selectionKey     string
	dropped          int
	tempMaxFreqKHz   uint32
	freqReq          uint64
	voltReq          uint64
	voltTol          uint32
	voltTolEffective uint32
	temp             thermalState
	latency          time.Duration
}

// ID returns the id of the domain.
func (d *Domain) ID() DomainID {
	return d.id
}

// Name returns the name of the domain.
func (d *Domain) Name() string {
	return d.name
}

// Relations returns the links of the domain.
func (d *Domain) Relations() Relations {
	return d.rel
}

// Rail returns the rail group of the domain.
func (d *Domain) Rail() *RailGroup {
	return d.rail
}

// CPUs lists the CPUs clocked by the domain.
func (d *Domain) CPUs() []int {
	return append([]int(nil), d.cpus...)
}

// DomainInfo is a consistent snapshot of a domain.
type DomainInfo struct {
	ID               DomainID
	Name             string
	Leaf             bool
	Online           bool
	RailOwner        DomainID
	SelectionKey     string
	Points           []opp.Point
	Dropped          int
	FreqReqHz        uint64
	VoltReqUV        uint64
	VoltTol          uint32
	VoltTolEffective uint32
	TempMaxFreqKHz   uint32
	TempNow          int
	TempBottom       int
	TempTop          int
	FallArmed        bool
	Latency          time.Duration
	Relations        Relations
	CPUs             []int
}

func (d *Domain) infoLocked() DomainInfo {
	return DomainInfo{
		ID:               d.id,
		Name:             d.name,
		Leaf:             d.leaf,
		Online:           d.online,
		RailOwner:        d.rail.Owner(),
		SelectionKey:     d.selectionKey,
		Points:           d.points.Clone(),
		Dropped:          d.dropped,
		FreqReqHz:        d.freqReq,
		VoltReqUV:        d.voltReq,
		VoltTol:          d.voltTol,
		VoltTolEffective: d.voltTolEffective,
		TempMaxFreqKHz:   d.tempMaxFreqKHz,
		TempNow:          d.temp.now,
		TempBottom:       d.temp.bottom,
		TempTop:          d.temp.top,
		FallArmed:        !d.temp.fallDeadline.IsZero(),
		Latency:          d.latency,
		Relations:        d.rel,
		CPUs:             d.CPUs(),
	}
}

// DomainSpec describes a domain to register.
type DomainSpec struct {
	ID   DomainID
	Name string

	// Leaf domains own a real clock device and resolve their targets
	// through an operating-point registration.
	Leaf bool
	CPUs []int

	Relations Relations

	// VoltTolerance is the percentage above a target voltage the regulator
	// may settle at.
	VoltTolerance uint32

	Clock     hw.Clock
	Regulator hw.Regulator

	// ExternalVoter, if set, is attached to a rail group created for this
	// domain.
	ExternalVoter ExternalVoter

	Tables  opp.Descriptor
	Binning opp.Binning

	// TempC is the temperature the first table is selected for. Domains
	// that are sub-domains of a registered host inherit the host's
	// temperature instead.
	TempC int

	// TransitionLatency is the time a transition takes, not counting the
	// regulator settle time.
	TransitionLatency time.Duration
}

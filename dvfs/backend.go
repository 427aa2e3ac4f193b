package dvfs

import (
	"fmt"
	"strings"

	"github.com/sarchlab/swdvfs/opp"
)

// Backend carries out index requests for domains.
type Backend interface {
	// Probe tells if the backend can drive a domain.
	Probe(id DomainID) bool

	// Enable turns the automatic scaling of a domain on or off.
	Enable(id DomainID, on bool) error

	// CurrentIndex returns the index the domain runs at.
	CurrentIndex(id DomainID) (int, error)

	// ApplyIndex moves a domain to an index, 0 being the slowest point.
	ApplyIndex(id DomainID, index int) error

	// RegisterOperatingPoint stores the point the domain uses at index.
	RegisterOperatingPoint(id DomainID, index int, p opp.Point) error
}

// TableUpdater is implemented by backends that keep their own copy of the
// table in use and need to know when it changes.
type TableUpdater interface {
	UpdateIndexTable(id DomainID, selectionKey string) error
}

// Mode selects how index requests reach the hardware.
type Mode int

// Modes.
const (
	ModeSoftware Mode = iota
	ModeHardware
)

func (m Mode) String() string {
	switch m {
	case ModeSoftware:
		return "software"
	case ModeHardware:
		return "hardware"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "software", "sw":
		return ModeSoftware, nil
	case "hardware", "hw":
		return ModeHardware, nil
	default:
		return 0, fmt.Errorf("dvfs: unknown mode %q", s)
	}
}

// SoftwareBackend runs index requests through the coordinator's transition
// protocol.
type SoftwareBackend struct {
	c *Coordinator
}

// NewSoftwareBackend creates a backend on top of c.
func NewSoftwareBackend(c *Coordinator) *SoftwareBackend {
	return &SoftwareBackend{c: c}
}

// Probe tells if the domain is registered.
func (b *SoftwareBackend) Probe(id DomainID) bool {
	_, ok := b.c.registry.Lookup(id)
	return ok
}

// Enable does nothing; software scaling is always on.
func (b *SoftwareBackend) Enable(id DomainID, _ bool) error {
	_, err := b.c.lookup(id)
	return err
}

// CurrentIndex returns the index of the last applied frequency.
func (b *SoftwareBackend) CurrentIndex(id DomainID) (int, error) {
	d, err := b.c.lookup(id)
	if err != nil {
		return 0, err
	}

	d.rail.Lock()
	defer d.rail.Unlock()

	row, ok := d.points.RowOfFreq(d.freqReq)
	if !ok {
		return 0, fmt.Errorf("%w: domain %d runs at %d Hz",
			ErrNoMatchingPoint, id, d.freqReq)
	}

	return d.points.IndexOf(row), nil
}

// ApplyIndex runs a forced transition and then replays it on the
// frequency-sync slaves.
func (b *SoftwareBackend) ApplyIndex(id DomainID, index int) error {
	if err := b.c.SetTarget(id, index, true); err != nil {
		return err
	}

	return b.c.NotifyFreqSyncSlaves(id, index, true)
}

// RegisterOperatingPoint does nothing; tables live in the coordinator.
func (b *SoftwareBackend) RegisterOperatingPoint(DomainID, int, opp.Point) error {
	return nil
}

package hw

import (
	"fmt"
	"sync"
)

// Parent identifies the source a core clock is muxed to.
type Parent int

// Clock parents of a cluster.
const (
	ParentLow Parent = iota
	ParentHigh
)

// MuxClock models the core clocks of a cluster. Every core is muxed either to
// a fixed low-frequency parent or to a programmable high-frequency PLL. The
// PLL is only reprogrammed while the cores run from the low parent.
type MuxClock struct {
	mu sync.Mutex

	name      string
	cores     int
	lowHz     uint64
	high      *SimClock
	highConst bool
	parents   []Parent
	enabled   bool
	journal   *Journal

	reparents int
	failures  int
	failErr   error
}

// MuxClockBuilder builds MuxClocks.
type MuxClockBuilder struct {
	name      string
	cores     int
	lowHz     uint64
	highHz    uint64
	highConst bool
	initialHz uint64
	journal   *Journal
}

// MakeMuxClockBuilder creates a builder for a single-core cluster.
func MakeMuxClockBuilder() MuxClockBuilder {
	return MuxClockBuilder{
		name:  "core_clk",
		cores: 1,
	}
}

// WithName sets the clock name.
func (b MuxClockBuilder) WithName(name string) MuxClockBuilder {
	b.name = name
	return b
}

// WithCores sets the number of core clocks switched together.
func (b MuxClockBuilder) WithCores(n int) MuxClockBuilder {
	b.cores = n
	return b
}

// WithLowParent sets the rate of the fixed low-frequency parent.
func (b MuxClockBuilder) WithLowParent(hz uint64) MuxClockBuilder {
	b.lowHz = hz
	return b
}

// WithConstantHighParent makes the PLL a fixed-rate source.
func (b MuxClockBuilder) WithConstantHighParent(hz uint64) MuxClockBuilder {
	b.highConst = true
	b.highHz = hz
	return b
}

// WithRate sets the rate at power on.
func (b MuxClockBuilder) WithRate(hz uint64) MuxClockBuilder {
	b.initialHz = hz
	return b
}

// WithJournal sets the journal that records rate changes.
func (b MuxClockBuilder) WithJournal(j *Journal) MuxClockBuilder {
	b.journal = j
	return b
}

// Build creates the clock.
func (b MuxClockBuilder) Build() *MuxClock {
	if b.cores <= 0 {
		panic(fmt.Sprintf("clock %s needs at least one core", b.name))
	}

	c := &MuxClock{
		name:      b.name,
		cores:     b.cores,
		lowHz:     b.lowHz,
		highConst: b.highConst,
		parents:   make([]Parent, b.cores),
		journal:   b.journal,
	}

	highHz := b.highHz
	if highHz == 0 {
		highHz = b.initialHz
	}

	c.high = NewSimClock(b.name+".pll", highHz, nil)

	parent := ParentHigh
	if b.initialHz != 0 && b.initialHz == b.lowHz {
		parent = ParentLow
	}

	c.setAllParents(parent)
	c.reparents = 0

	return c
}

// Name returns the clock name.
func (c *MuxClock) Name() string {
	return c.name
}

// Rate returns the rate of the parent the cores run from.
func (c *MuxClock) Rate() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.parents[0] == ParentLow {
		return c.lowHz
	}

	return c.high.Rate()
}

// Parent returns the parent of the first core.
func (c *MuxClock) Parent() Parent {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.parents[0]
}

// Reparents returns the number of mux switches since the clock was built.
func (c *MuxClock) Reparents() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.reparents
}

// SetRate moves every core to the parent able to produce hz.
func (c *MuxClock) SetRate(hz uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failures > 0 {
		c.failures--
		c.journal.Record(OpClock, c.name, hz, false)

		return c.failErr
	}

	err := c.switchTo(hz)
	c.journal.Record(OpClock, c.name, hz, err == nil)

	return err
}

func (c *MuxClock) switchTo(hz uint64) error {
	switch {
	case hz == 0:
		return fmt.Errorf("%w: %s cannot run at 0 Hz", ErrInvalidRate, c.name)
	case hz > c.lowHz:
		if !c.highConst {
			c.setAllParents(ParentLow)

			if err := c.high.SetRate(hz); err != nil {
				return fmt.Errorf("%s: set pll to %d Hz: %w", c.name, hz, err)
			}
		}

		c.setAllParents(ParentHigh)
	case hz == c.lowHz:
		c.setAllParents(ParentLow)
	default:
		return fmt.Errorf("%w: %s cannot produce %d Hz below its low parent",
			ErrInvalidRate, c.name, hz)
	}

	return nil
}

func (c *MuxClock) setAllParents(p Parent) {
	for i := range c.parents {
		if c.parents[i] != p {
			c.parents[i] = p
			c.reparents++
		}
	}
}

// Enable ungates all core clocks.
func (c *MuxClock) Enable() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.enabled = true

	return c.high.Enable()
}

// FailNext makes the next n SetRate calls fail with err. A nil err selects
// ErrInjected.
func (c *MuxClock) FailNext(n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		err = ErrInjected
	}

	c.failures = n
	c.failErr = err
}

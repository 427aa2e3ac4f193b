package hw

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidRate is returned when a clock cannot produce the requested rate.
var ErrInvalidRate = errors.New("hw: invalid clock rate")

// A Clock drives the frequency of a domain.
type Clock interface {
	Name() string

	// Rate returns the current rate in Hz.
	Rate() uint64

	// SetRate switches the clock to hz.
	SetRate(hz uint64) error

	// Enable ungates the clock.
	Enable() error
}

// SimClock is a freely programmable clock model with fault injection.
type SimClock struct {
	mu sync.Mutex

	name    string
	rate    uint64
	enabled bool
	journal *Journal

	failures int
	failErr  error
}

// NewSimClock creates a SimClock running at hz.
func NewSimClock(name string, hz uint64, journal *Journal) *SimClock {
	return &SimClock{
		name:    name,
		rate:    hz,
		journal: journal,
	}
}

// Name returns the name of the clock.
func (c *SimClock) Name() string {
	return c.name
}

// Rate returns the current rate.
func (c *SimClock) Rate() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.rate
}

// SetRate programs a new rate.
func (c *SimClock) SetRate(hz uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failures > 0 {
		c.failures--
		c.journal.Record(OpClock, c.name, hz, false)

		return c.failErr
	}

	if hz == 0 {
		c.journal.Record(OpClock, c.name, hz, false)

		return fmt.Errorf("%w: %s cannot run at 0 Hz", ErrInvalidRate, c.name)
	}

	c.rate = hz
	c.journal.Record(OpClock, c.name, hz, true)

	return nil
}

// Enable ungates the clock.
func (c *SimClock) Enable() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.enabled = true

	return nil
}

// Enabled tells if the clock has been ungated.
func (c *SimClock) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.enabled
}

// FailNext makes the next n SetRate calls fail with err. A nil err selects
// ErrInjected.
func (c *SimClock) FailNext(n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		err = ErrInjected
	}

	c.failures = n
	c.failErr = err
}

package opp

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sarchlab/swdvfs/hw"
)

type regEntry struct {
	Point
	enabled bool
}

// A Registration is the operating-point list of a device that owns a real
// clock. Entries can be disabled individually, for example when the rail
// cannot supply their voltage.
type Registration struct {
	mu      sync.Mutex
	entries []regEntry
}

// NewRegistration creates an empty Registration.
func NewRegistration() *Registration {
	return &Registration{}
}

// Add registers p, replacing any entry at the same frequency.
func (r *Registration) Add(p Point) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(p.FreqHz)
	r.entries = append(r.entries, regEntry{Point: p, enabled: true})

	sort.Slice(r.entries, func(i, j int) bool {
		return r.entries[i].FreqHz < r.entries[j].FreqHz
	})
}

// Remove drops the entry at hz.
func (r *Registration) Remove(hz uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(hz)
}

func (r *Registration) removeLocked(hz uint64) {
	for i, e := range r.entries {
		if e.FreqHz == hz {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return
		}
	}
}

// Replace makes the registration hold exactly the points of t.
func (r *Registration) Replace(t Table) {
	r.mu.Lock()
	r.entries = nil
	r.mu.Unlock()

	for _, p := range t {
		r.Add(p)
	}
}

// Disable keeps the entry at hz but hides it from lookups.
func (r *Registration) Disable(hz uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.entries {
		if r.entries[i].FreqHz == hz {
			r.entries[i].enabled = false
		}
	}
}

// FindFreqCeil returns the slowest enabled entry running at hz or faster.
func (r *Registration) FindFreqCeil(hz uint64) (Point, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.enabled && e.FreqHz >= hz {
			return e.Point, nil
		}
	}

	return Point{}, fmt.Errorf("%w: no operating point at or above %d Hz",
		ErrNotFound, hz)
}

// Enabled returns the enabled entries, slowest first.
func (r *Registration) Enabled() []Point {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pts []Point

	for _, e := range r.entries {
		if e.enabled {
			pts = append(pts, e.Point)
		}
	}

	return pts
}

// VerifyWith disables the entries that reg cannot supply within tolPercent
// and returns how long the regulator needs to sweep the supported range.
func (r *Registration) VerifyWith(reg hw.Regulator, tolPercent uint32) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	var minUV, maxUV uint64
	found := false

	for i := range r.entries {
		uv := r.entries[i].VoltUV
		tol := uv * uint64(tolPercent) / 100

		if !reg.IsSupportedVoltage(uv, uv+tol) {
			r.entries[i].enabled = false
			continue
		}

		if !found || uv < minUV {
			minUV = uv
		}

		if !found || uv > maxUV {
			maxUV = uv
		}

		found = true
	}

	if !found {
		return 0
	}

	return reg.SettleTime(minUV, maxUV)
}

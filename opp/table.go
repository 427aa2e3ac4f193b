// Package opp builds the operating-point tables of DVFS domains.
//
// A table lists (frequency, voltage) pairs with the highest frequency first.
// Callers address rows with an ascending index where 0 is the slowest point;
// Table.RowOf converts between the two conventions.
package opp

import (
	"fmt"
)

// Capacity limits.
const (
	MaxPoints     = 10
	MaxThresholds = 4
)

// Temperature sentinels, in degrees Celsius.
const (
	TempMin = -200
	TempMax = 200
)

// A Point is one valid performance level.
type Point struct {
	FreqHz uint64
	VoltUV uint64
}

// FreqKHz returns the frequency in kHz.
func (p Point) FreqKHz() uint32 {
	return uint32(p.FreqHz / 1000)
}

func (p Point) String() string {
	return fmt.Sprintf("%d kHz @ %d uV", p.FreqHz/1000, p.VoltUV)
}

// A Table is an ordered list of operating points, highest frequency first.
type Table []Point

// RowOf converts an ascending index (0 = slowest) into a row of the table.
// Indexes past the end clamp to row 0.
func (t Table) RowOf(index int) int {
	if index < 0 || index > len(t)-1 {
		return 0
	}

	return len(t) - 1 - index
}

// IndexOf converts a row into an ascending index.
func (t Table) IndexOf(row int) int {
	return len(t) - 1 - row
}

// FirstAtOrBelow returns the first row whose voltage does not exceed uv.
// Since voltage does not increase with the row, that is the fastest point
// the voltage can sustain.
func (t Table) FirstAtOrBelow(uv uint64) (int, bool) {
	for i, p := range t {
		if p.VoltUV > 0 && p.VoltUV <= uv {
			return i, true
		}
	}

	return 0, false
}

// RowOfFreq returns the row running at hz.
func (t Table) RowOfFreq(hz uint64) (int, bool) {
	for i, p := range t {
		if p.FreqHz == hz {
			return i, true
		}
	}

	return 0, false
}

// MaxFreqKHz returns the highest frequency of the table in kHz.
func (t Table) MaxFreqKHz() uint32 {
	var max uint32

	for _, p := range t {
		if p.FreqKHz() > max {
			max = p.FreqKHz()
		}
	}

	return max
}

// Validate checks that frequencies strictly descend and voltages never rise.
func (t Table) Validate() error {
	for i := 1; i < len(t); i++ {
		if t[i].FreqHz >= t[i-1].FreqHz {
			return fmt.Errorf("row %d: frequency %d Hz not below %d Hz",
				i, t[i].FreqHz, t[i-1].FreqHz)
		}

		if t[i].VoltUV > t[i-1].VoltUV {
			return fmt.Errorf("row %d: voltage %d uV above %d uV",
				i, t[i].VoltUV, t[i-1].VoltUV)
		}
	}

	return nil
}

// Clone returns a copy of the table.
func (t Table) Clone() Table {
	c := make(Table, len(t))
	copy(c, t)

	return c
}

package opp

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
)

// BaseKey is the selection key of the table used when nothing refines it.
const BaseKey = "operating-points"

// Bin limits. A main bin outside the range is ignored.
const (
	BinMin = 1
	BinMax = 4
)

var (
	// ErrTableBuildFailed is matched by every TableBuildError.
	ErrTableBuildFailed = errors.New("opp: table build failed")

	// ErrNotFound is returned when no table matches a selection key.
	ErrNotFound = errors.New("opp: no table matches")

	// ErrEmptyTable is returned when the matching table has no rows.
	ErrEmptyTable = errors.New("opp: table is empty")

	// ErrBinAbsent is returned by Binning when a fuse is not programmed.
	ErrBinAbsent = errors.New("opp: bin not available")

	// ErrProbeDefer is returned by Binning when the fuses cannot be read yet.
	ErrProbeDefer = errors.New("opp: bin read deferred")
)

// TableBuildError reports the selection key a build failed for.
type TableBuildError struct {
	SelectionKey string
	Err          error
}

func (e *TableBuildError) Error() string {
	return fmt.Sprintf("opp: build %q: %v", e.SelectionKey, e.Err)
}

func (e *TableBuildError) Unwrap() error {
	return e.Err
}

// Is makes every TableBuildError match ErrTableBuildFailed.
func (e *TableBuildError) Is(target error) bool {
	return target == ErrTableBuildFailed
}

// A Row is a table row as configured: frequency in kHz, voltage in uV.
type Row [2]uint32

// Descriptor is the configuration of the tables of one domain.
type Descriptor struct {
	MultiVersion bool
	Thresholds   []int
	Tables       map[string][]Row
}

// Binning reads the manufacturing bins of the chip.
type Binning interface {
	Bin() (uint32, error)
	LowVoltBin() (uint32, error)
}

// StaticBinning serves bins known ahead of time. A nil value means the fuse
// is not programmed.
type StaticBinning struct {
	Main     *uint32
	LowVolt  *uint32
	Deferred bool
}

// Bin returns the main bin.
func (b StaticBinning) Bin() (uint32, error) {
	if b.Deferred {
		return 0, ErrProbeDefer
	}

	if b.Main == nil {
		return 0, ErrBinAbsent
	}

	return *b.Main, nil
}

// LowVoltBin returns the low-voltage bin.
func (b StaticBinning) LowVoltBin() (uint32, error) {
	if b.LowVolt == nil {
		return 0, ErrBinAbsent
	}

	return *b.LowVolt, nil
}

// Build is the outcome of a table selection. It is not applied to any domain
// until committed.
type Build struct {
	SelectionKey string
	Points       Table
	Dropped      int

	// TempMaxFreqKHz is the highest frequency the table allows.
	TempMaxFreqKHz uint32

	// Window is only meaningful when HasWindow is set.
	Window    Window
	HasWindow bool
}

// Builder selects and parses tables.
type Builder struct {
	version string
	logger  *slog.Logger
}

// MakeBuilder creates a Builder for a chip whose version is unknown.
func MakeBuilder() Builder {
	return Builder{
		logger: slog.Default(),
	}
}

// WithSocVersion sets the chip version. Only "0" and "1" select versioned
// tables.
func (b Builder) WithSocVersion(v string) Builder {
	b.version = v
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(l *slog.Logger) Builder {
	b.logger = l
	return b
}

// SelectionKey composes the key of the table variant to use and the
// temperature band that comes with it.
func (b Builder) SelectionKey(
	d Descriptor,
	bins Binning,
	temp int,
) (key string, w Window, hasWindow bool, err error) {
	key = BaseKey

	if d.MultiVersion && (b.version == "0" || b.version == "1") {
		key += "-v" + b.version
	}

	bin, err := bins.Bin()
	if errors.Is(err, ErrProbeDefer) {
		return key, w, false, err
	}

	if err != nil || bin < BinMin || bin > BinMax {
		b.logger.Debug("bin not usable, using plain table",
			"key", key, "bin", bin, "err", err)

		return key, w, false, nil
	}

	key += "-" + strconv.FormatUint(uint64(bin), 10)

	if lv, err := bins.LowVoltBin(); err == nil {
		key += "-" + strconv.FormatUint(uint64(lv), 10)
	}

	if len(d.Thresholds) > 0 {
		var suffix string

		suffix, w = BracketOf(d.Thresholds, temp)
		key += suffix
		hasWindow = true
	}

	return key, w, hasWindow, nil
}

// Build selects the table for temp and parses it.
func (b Builder) Build(d Descriptor, bins Binning, temp int) (*Build, error) {
	key, w, hasWindow, err := b.SelectionKey(d, bins, temp)
	if err != nil {
		return nil, &TableBuildError{SelectionKey: key, Err: err}
	}

	rows, found := d.Tables[key]
	if !found {
		return nil, &TableBuildError{SelectionKey: key, Err: ErrNotFound}
	}

	if len(rows) == 0 {
		return nil, &TableBuildError{SelectionKey: key, Err: ErrEmptyTable}
	}

	out := &Build{
		SelectionKey: key,
		Window:       w,
		HasWindow:    hasWindow,
	}

	for _, row := range rows {
		p := Point{
			FreqHz: uint64(row[0]) * 1000,
			VoltUV: uint64(row[1]),
		}

		if p.FreqKHz() > out.TempMaxFreqKHz {
			out.TempMaxFreqKHz = p.FreqKHz()
		}

		if len(out.Points) >= MaxPoints {
			out.Dropped++
			continue
		}

		out.Points = append(out.Points, p)
	}

	if out.Dropped > 0 {
		b.logger.Warn("operating points over capacity dropped",
			"key", key, "dropped", out.Dropped, "capacity", MaxPoints)
	}

	if err := out.Points.Validate(); err != nil {
		return nil, &TableBuildError{SelectionKey: key, Err: err}
	}

	return out, nil
}

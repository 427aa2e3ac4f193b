// Package hw defines the voltage and clock knobs that the DVFS engine drives
// and provides simulated models of them.
package hw

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrUnsupportedVoltage is returned when no step of a regulator falls in
	// the requested window.
	ErrUnsupportedVoltage = errors.New("hw: voltage not supported by regulator")

	// ErrInjected is the default error returned by injected faults.
	ErrInjected = errors.New("hw: injected fault")
)

// A Regulator supplies the voltage of a rail.
type Regulator interface {
	Name() string

	// Voltage reads the voltage currently applied, in uV.
	Voltage() (uint64, error)

	// SetVoltageTol settles the rail at uv or at most tolPercent above it.
	SetVoltageTol(uv uint64, tolPercent uint32) error

	// IsSupportedVoltage tells if any output in [minUV, maxUV] can be
	// produced.
	IsSupportedVoltage(minUV, maxUV uint64) bool

	// SettleTime estimates how long the rail needs to move between two
	// voltages.
	SettleTime(fromUV, toUV uint64) time.Duration
}

// SimRegulator is a step regulator model with fault injection.
type SimRegulator struct {
	mu sync.Mutex

	name        string
	minUV       uint64
	maxUV       uint64
	stepUV      uint64
	rampUVPerUs uint64
	current     uint64
	journal     *Journal

	failures int
	failErr  error
}

// RegulatorBuilder builds SimRegulators.
type RegulatorBuilder struct {
	name        string
	minUV       uint64
	maxUV       uint64
	stepUV      uint64
	rampUVPerUs uint64
	initialUV   uint64
	journal     *Journal
}

// MakeRegulatorBuilder creates a RegulatorBuilder with default parameters.
func MakeRegulatorBuilder() RegulatorBuilder {
	return RegulatorBuilder{
		name:   "vdd",
		minUV:  400000,
		maxUV:  1400000,
		stepUV: 1,
	}
}

// WithName sets the name of the regulator.
func (b RegulatorBuilder) WithName(name string) RegulatorBuilder {
	b.name = name
	return b
}

// WithRange sets the output range of the regulator.
func (b RegulatorBuilder) WithRange(minUV, maxUV uint64) RegulatorBuilder {
	b.minUV = minUV
	b.maxUV = maxUV
	return b
}

// WithStep sets the output granularity.
func (b RegulatorBuilder) WithStep(stepUV uint64) RegulatorBuilder {
	b.stepUV = stepUV
	return b
}

// WithRamp sets the slew rate used to estimate settle time.
func (b RegulatorBuilder) WithRamp(uvPerUs uint64) RegulatorBuilder {
	b.rampUVPerUs = uvPerUs
	return b
}

// WithVoltage sets the voltage applied at power on.
func (b RegulatorBuilder) WithVoltage(uv uint64) RegulatorBuilder {
	b.initialUV = uv
	return b
}

// WithJournal sets the journal that records every programming attempt.
func (b RegulatorBuilder) WithJournal(j *Journal) RegulatorBuilder {
	b.journal = j
	return b
}

// Build creates the regulator.
func (b RegulatorBuilder) Build() *SimRegulator {
	if b.minUV > b.maxUV {
		panic(fmt.Sprintf("regulator %s: min %d above max %d",
			b.name, b.minUV, b.maxUV))
	}

	step := b.stepUV
	if step == 0 {
		step = 1
	}

	initial := b.initialUV
	if initial == 0 {
		initial = b.minUV
	}

	return &SimRegulator{
		name:        b.name,
		minUV:       b.minUV,
		maxUV:       b.maxUV,
		stepUV:      step,
		rampUVPerUs: b.rampUVPerUs,
		current:     initial,
		journal:     b.journal,
	}
}

// Name returns the name of the regulator.
func (r *SimRegulator) Name() string {
	return r.name
}

// Voltage returns the applied voltage.
func (r *SimRegulator) Voltage() (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.current, nil
}

// SetVoltageTol programs the lowest step that lies in [uv, uv+tol].
func (r *SimRegulator) SetVoltageTol(uv uint64, tolPercent uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failures > 0 {
		r.failures--
		r.journal.Record(OpVoltage, r.name, uv, false)

		return r.failErr
	}

	hi := uv + uv*uint64(tolPercent)/100

	v, ok := r.lowestStepIn(uv, hi)
	if !ok {
		r.journal.Record(OpVoltage, r.name, uv, false)

		return fmt.Errorf("%w: %s cannot settle in [%d, %d] uV",
			ErrUnsupportedVoltage, r.name, uv, hi)
	}

	r.current = v
	r.journal.Record(OpVoltage, r.name, v, true)

	return nil
}

// IsSupportedVoltage tells if a step exists in [minUV, maxUV].
func (r *SimRegulator) IsSupportedVoltage(minUV, maxUV uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.lowestStepIn(minUV, maxUV)

	return ok
}

// SettleTime returns the ramp time between two voltages.
func (r *SimRegulator) SettleTime(fromUV, toUV uint64) time.Duration {
	if r.rampUVPerUs == 0 {
		return 0
	}

	delta := toUV - fromUV
	if fromUV > toUV {
		delta = fromUV - toUV
	}

	us := (delta + r.rampUVPerUs - 1) / r.rampUVPerUs

	return time.Duration(us) * time.Microsecond
}

// FailNext makes the next n programming attempts fail with err. A nil err
// selects ErrInjected.
func (r *SimRegulator) FailNext(n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err == nil {
		err = ErrInjected
	}

	r.failures = n
	r.failErr = err
}

func (r *SimRegulator) lowestStepIn(lo, hi uint64) (uint64, bool) {
	if lo < r.minUV {
		lo = r.minUV
	}

	if hi > r.maxUV {
		hi = r.maxUV
	}

	if lo > hi {
		return 0, false
	}

	steps := (lo - r.minUV + r.stepUV - 1) / r.stepUV
	v := r.minUV + steps*r.stepUV

	if v > hi {
		return 0, false
	}

	return v, true
}

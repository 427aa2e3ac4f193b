package dvfs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIndex is returned when a target index is outside the table.
	ErrInvalidIndex = errors.New("dvfs: invalid operating point index")

	// ErrBusy is returned by a non-blocking request when another transition
	// holds the rail.
	ErrBusy = errors.New("dvfs: rail busy")

	// ErrNoHardwareBinding is returned when a domain lacks a clock or a
	// regulator.
	ErrNoHardwareBinding = errors.New("dvfs: domain has no clock or regulator")

	// ErrUnknownDomain is returned for ids that were never registered.
	ErrUnknownDomain = errors.New("dvfs: unknown domain")

	// ErrNoMatchingPoint is returned when a slave has no operating point the
	// rail voltage can sustain.
	ErrNoMatchingPoint = errors.New("dvfs: no operating point at rail voltage")

	// ErrNoMasters is returned by hotplug handling for domains that do not
	// share a rail.
	ErrNoMasters = errors.New("dvfs: domain has no voltage-share masters")

	// ErrNotProbed is returned when the hardware backend has not probed a
	// domain.
	ErrNotProbed = errors.New("dvfs: domain not probed by backend")

	// ErrRailConflict is returned when a domain is linked to domains that
	// already sit in different rail groups.
	ErrRailConflict = errors.New("dvfs: domain links two rail groups")

	// Classes matched by the typed errors below.
	ErrVoltageSetFailed  = errors.New("dvfs: voltage set failed")
	ErrClockSetFailed    = errors.New("dvfs: clock set failed")
	ErrPropagationFailed = errors.New("dvfs: propagation failed")
)

// VoltageSetError reports a regulator failure during a transition.
type VoltageSetError struct {
	Domain   DomainID
	TargetUV uint64
	Err      error

	// RollbackAttempted tells if the clock was moved back to its previous
	// rate, and RollbackOK if that worked.
	RollbackAttempted bool
	RollbackOK        bool
}

func (e *VoltageSetError) Error() string {
	return fmt.Sprintf("dvfs: domain %d: set voltage %d uV: %v%s",
		e.Domain, e.TargetUV, e.Err,
		rollbackSuffix(e.RollbackAttempted, e.RollbackOK))
}

func (e *VoltageSetError) Unwrap() error {
	return e.Err
}

// Is matches ErrVoltageSetFailed.
func (e *VoltageSetError) Is(target error) bool {
	return target == ErrVoltageSetFailed
}

// ClockSetError reports a clock failure during a transition.
type ClockSetError struct {
	Domain   DomainID
	TargetHz uint64
	Err      error

	// RollbackAttempted tells if the voltage was moved back to its previous
	// level, and RollbackOK if that worked.
	RollbackAttempted bool
	RollbackOK        bool
}

func (e *ClockSetError) Error() string {
	return fmt.Sprintf("dvfs: domain %d: set clock %d Hz: %v%s",
		e.Domain, e.TargetHz, e.Err,
		rollbackSuffix(e.RollbackAttempted, e.RollbackOK))
}

func (e *ClockSetError) Unwrap() error {
	return e.Err
}

// Is matches ErrClockSetFailed.
func (e *ClockSetError) Is(target error) bool {
	return target == ErrClockSetFailed
}

// PropagationError reports the first dependent domain that could not follow
// a change of its host.
type PropagationError struct {
	AtDomain DomainID
	Err      error
}

func (e *PropagationError) Error() string {
	return fmt.Sprintf("dvfs: propagate to domain %d: %v", e.AtDomain, e.Err)
}

func (e *PropagationError) Unwrap() error {
	return e.Err
}

// Is matches ErrPropagationFailed.
func (e *PropagationError) Is(target error) bool {
	return target == ErrPropagationFailed
}

func rollbackSuffix(attempted, ok bool) string {
	switch {
	case !attempted:
		return ""
	case ok:
		return " (rolled back)"
	default:
		return " (rollback failed)"
	}
}

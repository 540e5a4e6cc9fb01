package manager

import (
	"errors"
	"fmt"

	"profiled/internal/hardware"
	"profiled/internal/workload"
)

// ErrClosed is returned by operations started after Close.
var ErrClosed = errors.New("manager closed")

type profileNotFoundError struct{ id string }

func (e profileNotFoundError) Error() string { return "profile not found: " + e.id }

// ErrProfileNotFound returns an error for an id missing from the catalog.
func ErrProfileNotFound(id string) error { return profileNotFoundError{id: id} }

// IsProfileNotFound reports whether err indicates a missing profile id.
func IsProfileNotFound(err error) bool {
	var e profileNotFoundError
	return errors.As(err, &e)
}

// switchInProgressError is returned when another transition holds the guard.
type switchInProgressError struct{ target string }

func (e switchInProgressError) Error() string {
	return "switch already in progress to " + e.target
}

// IsSwitchInProgress reports whether err was caused by a concurrent switch.
func IsSwitchInProgress(err error) bool {
	var e switchInProgressError
	return errors.As(err, &e)
}

// IncompatibleHardwareError names the profile and the first failed rule.
type IncompatibleHardwareError struct {
	ProfileID string
	Reason    string
}

func (e *IncompatibleHardwareError) Error() string {
	return fmt.Sprintf("profile %s is incompatible with current hardware: %s", e.ProfileID, e.Reason)
}

// IsIncompatibleHardware reports whether err is a compatibility rejection.
func IsIncompatibleHardware(err error) bool {
	var e *IncompatibleHardwareError
	return errors.As(err, &e)
}

// probeUnavailableError wraps a hardware probe failure seen by an operation.
type probeUnavailableError struct{ err error }

func (e probeUnavailableError) Error() string { return "cannot verify hardware: " + e.err.Error() }
func (e probeUnavailableError) Unwrap() error { return e.err }

// IsProbeUnavailable reports whether hardware could not be probed.
func IsProbeUnavailable(err error) bool {
	var e probeUnavailableError
	return errors.As(err, &e) || errors.Is(err, hardware.ErrUnavailable)
}

// IsControlError reports whether a workload stop/start command failed.
func IsControlError(err error) bool {
	var e *workload.ControlError
	return errors.As(err, &e)
}

// IsReadinessTimeout reports whether the workload never became ready.
func IsReadinessTimeout(err error) bool {
	return errors.Is(err, workload.ErrReadinessTimeout)
}

package horde

import (
	"errors"
	"fmt"
)

var (
	// ErrCapacityOverflow is matched by every *CapacityError.
	ErrCapacityOverflow = errors.New("horde: capacity overflow")
	// ErrProbeBound is matched by every *ProbeError.
	ErrProbeBound = errors.New("horde: probe bound exceeded")
	// ErrContract is matched by every *ContractError.
	ErrContract = errors.New("horde: contract violation")
)

// CapacityError is returned when growing a collection would pass its configured limit or the limit of its storage. The collection is left as it was before the call.
type CapacityError struct {
	Op        string
	Requested uint64
	Limit     uint64
	cause     error
}

// NewCapacityError wraps cause, which may be nil.
func NewCapacityError(op string, requested, limit uint64, cause error) *CapacityError {
	return &CapacityError{op, requested, limit, cause}
}

func (e *CapacityError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: capacity overflow: requested %d, limit %d: %v", e.Op, e.Requested, e.Limit, e.cause)
	}
	return fmt.Sprintf("%s: capacity overflow: requested %d, limit %d", e.Op, e.Requested, e.Limit)
}

func (e *CapacityError) Is(target error) bool { return target == ErrCapacityOverflow }

func (e *CapacityError) Unwrap() error { return e.cause }

// ProbeError is returned when a key can't be placed within the probe bound even after growing. It means the hash strategy is degenerate for the inserted keys; the table is left unchanged.
type ProbeError struct {
	Distance int
	Bound    int
	Capacity uint64
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe distance %d exceeds bound %d at capacity %d", e.Distance, e.Bound, e.Capacity)
}

func (e *ProbeError) Is(target error) bool { return target == ErrProbeBound }

// ContractError is the panic value for misuse of a handle: a guard released twice or used from another goroutine, a PotentialSlot outliving its guard, a released Pin.
type ContractError struct {
	Op     string
	Reason string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *ContractError) Is(target error) bool { return target == ErrContract }

// Violation panics with a *ContractError.
func Violation(op, reason string) {
	panic(&ContractError{op, reason})
}

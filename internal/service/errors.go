package service

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by ParkingService.  Handlers map them to
// HTTP status codes with errors.Is; every one of them is returned
// after the surrounding transaction has been rolled back.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrStore      = errors.New("store failure")

	// ErrAlreadyReleased is returned when releasing a reservation whose
	// release_time is already set.  The stored cost is left untouched.
	ErrAlreadyReleased = errors.New("reservation already released")

	ErrNoCapacity                 = errors.New("no available spot in lot")
	ErrCapacityBelowOccupancy     = errors.New("capacity below current occupancy")
	ErrInsufficientRemovableSpots = errors.New("not enough free spots without reservation history to remove")
	ErrLotOccupied                = errors.New("lot has occupied spots")
)

// IsCapacityError reports whether err is one of the capacity errors.
func IsCapacityError(err error) bool {
	return errors.Is(err, ErrNoCapacity) ||
		errors.Is(err, ErrCapacityBelowOccupancy) ||
		errors.Is(err, ErrInsufficientRemovableSpots) ||
		errors.Is(err, ErrLotOccupied)
}

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) true for every ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StoreError wraps an unexpected persistence failure.  Nothing was
// committed, so the operation that returned it is safe to retry.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStore) true for every StoreError.
func (e *StoreError) Is(target error) bool { return target == ErrStore }

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// Package repository implements MySQL persistence for users, refresh
// tokens, parking lots, spots and reservations.  The sentinel errors
// below let the service and handler layers tell failure modes apart
// without looking at driver errors.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrStatusConflict is returned by the spot status transitions when the
// spot was not in the expected state, i.e. another transaction got
// there first.
var ErrStatusConflict = errors.New("spot status conflict")

// ErrOccupancyOutOfRange is returned when an occupied counter update
// would leave the counter below zero or above max_spots.
var ErrOccupancyOutOfRange = errors.New("occupied counter out of range")

// ErrConflict is returned when closing a reservation whose release_time
// is already set.  The service reports it as an already released
// reservation.
var ErrConflict = errors.New("reservation already closed")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already registered")

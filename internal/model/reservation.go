package model

import "time"

// Reservation records one booking of one spot by one user.  It is
// created when a spot is booked and mutated exactly once, on release,
// when ReleaseTime, Cost and Paid are set.
//
// Fields:
//
//	ID            – primary key identifier.
//	SpotID        – booked spot.
//	LotID         – lot of the booked spot.
//	Email         – email of the user who booked.
//	VehicleNumber – vehicle parked in the spot.
//	ParkingTime   – when the booking was made.
//	ReleaseTime   – when the spot was released; nil while active.
//	Cost          – charge computed on release, 0 until then.
//	Paid          – set together with ReleaseTime.
type Reservation struct {
	ID            uint64     // reservations.id
	SpotID        uint64     // reservations.spot_id
	LotID         uint64     // reservations.lot_id
	Email         string     // reservations.email
	VehicleNumber string     // reservations.vehicle_number
	ParkingTime   time.Time  // reservations.parking_time
	ReleaseTime   *time.Time // reservations.release_time (nullable)
	Cost          int64      // reservations.cost
	Paid          bool       // reservations.paid
}

// IsActive reports whether the reservation still holds its spot.
func (r Reservation) IsActive() bool { return r.ReleaseTime == nil }

// Reservation states accepted by ReservationFilter.State.
const (
	ReservationsAll     = ""
	ReservationsActive  = "active"
	ReservationsHistory = "history"
)

// ReservationFilter narrows reservation listings.  Zero values match
// everything.
type ReservationFilter struct {
	Email string
	LotID uint64
	State string
}

package model

import "time"

// Spot statuses stored in parking_spots.status.
const (
	SpotAvailable = "AVAILABLE"
	SpotOccupied  = "OCCUPIED"
)

// ParkingSpot is a single bookable place inside a lot.  Spots are
// created in batches when a lot is created or grown and deleted only
// while AVAILABLE and never referenced by a reservation.
//
// Fields:
//
//	ID            – primary key identifier; lower ids are booked first.
//	LotID         – owning lot.
//	Status        – AVAILABLE or OCCUPIED.
//	VehicleNumber – vehicle currently parked, empty when available.
//	CreatedAt     – creation timestamp.
//	UpdatedAt     – last update timestamp.
type ParkingSpot struct {
	ID            uint64    // parking_spots.id
	LotID         uint64    // parking_spots.lot_id
	Status        string    // parking_spots.status
	VehicleNumber string    // parking_spots.vehicle_number (nullable)
	CreatedAt     time.Time // parking_spots.created_at
	UpdatedAt     time.Time // parking_spots.updated_at
}

// IsAvailable reports whether the spot can be allocated.
func (s ParkingSpot) IsAvailable() bool { return s.Status == SpotAvailable }

// SpotFilter narrows spot listings.  A zero LotID matches every lot and
// an empty Status matches both statuses.
type SpotFilter struct {
	LotID  uint64
	Status string
}

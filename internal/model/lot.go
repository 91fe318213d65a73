package model

import "time"

// ParkingLot is a location with a fixed pool of spots and an hourly
// price.  Occupied is a cached count of the lot's spots whose status
// is OCCUPIED; it is only ever changed in the same transaction as the
// spot status it mirrors.
//
// Fields:
//
//	ID        – primary key identifier.
//	Location  – short location name shown to users.
//	Address   – street address.
//	Pincode   – six digit postal code.
//	Price     – hourly rate in whole currency units.
//	MaxSpots  – advertised capacity; equals the spot count outside a resize.
//	Occupied  – number of spots currently allocated.
//	CreatedAt – creation timestamp.
//	UpdatedAt – last update timestamp.
type ParkingLot struct {
	ID        uint64    // parking_lots.id
	Location  string    // parking_lots.location
	Address   string    // parking_lots.address
	Pincode   uint32    // parking_lots.pincode
	Price     int64     // parking_lots.price
	MaxSpots  int       // parking_lots.max_spots
	Occupied  int       // parking_lots.occupied
	CreatedAt time.Time // parking_lots.created_at
	UpdatedAt time.Time // parking_lots.updated_at
}

// Available returns the number of spots that can still be booked.
func (l ParkingLot) Available() int {
	if l.Occupied >= l.MaxSpots {
		return 0
	}
	return l.MaxSpots - l.Occupied
}

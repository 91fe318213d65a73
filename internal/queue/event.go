// Package queue defines message payloads exchanged over the message broker.
package queue

// Event types carried in ReservationEvent.Type.
const (
	EventBooked   = "reservation.booked"
	EventReleased = "reservation.released"
)

// ReservationEvent is published after a booking or release commits.
// It contains enough information for downstream consumers to log or
// feed analytics without querying the primary database.
type ReservationEvent struct {
	Type          string `json:"type"`
	ReservationID uint64 `json:"reservation_id"`
	LotID         uint64 `json:"lot_id"`
	SpotID        uint64 `json:"spot_id"`
	Email         string `json:"email"`
	VehicleNumber string `json:"vehicle_number"`
	Location      string `json:"location"`
	ParkingTime   string `json:"parking_time"`
	ReleaseTime   string `json:"release_time,omitempty"`
	Cost          int64  `json:"cost"`
	OccurredAt    string `json:"occurred_at"`
}

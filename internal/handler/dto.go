package handler

import (
	"time"

	"github.com/iliyamo/parking-reservation/internal/model"
)

type lotResp struct {
	ID        uint64 `json:"id"`
	Location  string `json:"location"`
	Address   string `json:"address"`
	Pincode   uint32 `json:"pincode"`
	Price     int64  `json:"price"`
	MaxSpots  int    `json:"max_spots"`
	Occupied  int    `json:"occupied"`
	Available int    `json:"available"`
}

func toLotResp(l model.ParkingLot) lotResp {
	return lotResp{
		ID:        l.ID,
		Location:  l.Location,
		Address:   l.Address,
		Pincode:   l.Pincode,
		Price:     l.Price,
		MaxSpots:  l.MaxSpots,
		Occupied:  l.Occupied,
		Available: l.Available(),
	}
}

type spotResp struct {
	ID            uint64 `json:"id"`
	LotID         uint64 `json:"lot_id"`
	Status        string `json:"status"`
	VehicleNumber string `json:"vehicle_number,omitempty"`
}

func toSpotResp(s model.ParkingSpot) spotResp {
	return spotResp{ID: s.ID, LotID: s.LotID, Status: s.Status, VehicleNumber: s.VehicleNumber}
}

type reservationResp struct {
	ID            uint64     `json:"id"`
	SpotID        uint64     `json:"spot_id"`
	LotID         uint64     `json:"lot_id"`
	Email         string     `json:"email"`
	VehicleNumber string     `json:"vehicle_number"`
	ParkingTime   time.Time  `json:"parking_time"`
	ReleaseTime   *time.Time `json:"release_time,omitempty"`
	Cost          int64      `json:"cost"`
	Paid          bool       `json:"paid"`
	Active        bool       `json:"active"`
}

func toReservationResp(r model.Reservation) reservationResp {
	return reservationResp{
		ID:            r.ID,
		SpotID:        r.SpotID,
		LotID:         r.LotID,
		Email:         r.Email,
		VehicleNumber: r.VehicleNumber,
		ParkingTime:   r.ParkingTime,
		ReleaseTime:   r.ReleaseTime,
		Cost:          r.Cost,
		Paid:          r.Paid,
		Active:        r.IsActive(),
	}
}

func toReservationList(list []model.Reservation) []reservationResp {
	out := make([]reservationResp, 0, len(list))
	for _, r := range list {
		out = append(out, toReservationResp(r))
	}
	return out
}

// lotReq is the body of lot create and update requests.  Pointer fields
// let PATCH distinguish an omitted field from a zero value.
type lotReq struct {
	Location *string `json:"location"`
	Address  *string `json:"address"`
	Pincode  *uint32 `json:"pincode"`
	Price    *int64  `json:"price"`
	MaxSpots *int    `json:"max_spots"`
}

type bookReq struct {
	VehicleNumber string `json:"vehicle_number"`
}

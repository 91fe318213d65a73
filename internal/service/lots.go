package service

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/iliyamo/parking-reservation/internal/logging"
	"github.com/iliyamo/parking-reservation/internal/model"
	"github.com/iliyamo/parking-reservation/internal/repository"
)

// Lot limits.
const (
	MinSpots       = 1
	MaxSpots       = 100
	MaxPrice       = 1_000_000
	minPincode     = 100000
	maxPincode     = 999999
	maxLocationLen = 50
	maxAddressLen  = 200
)

// LotInput carries the fields of a new lot.
type LotInput struct {
	Location string
	Address  string
	Pincode  uint32
	Price    int64
	MaxSpots int
}

// LotUpdate carries the fields to change on an existing lot.  Nil
// fields keep their current value.
type LotUpdate struct {
	Location *string
	Address  *string
	Pincode  *uint32
	Price    *int64
	MaxSpots *int
}

// SpotDetail is a spot together with the reservation currently
// holding it, if any.
type SpotDetail struct {
	Spot   model.ParkingSpot
	Active *model.Reservation
}

func validateLot(in LotInput) error {
	if in.Location == "" {
		return invalid("location", "is required")
	}
	if len(in.Location) > maxLocationLen {
		return invalid("location", "must be at most 50 characters")
	}
	if in.Address == "" {
		return invalid("address", "is required")
	}
	if len(in.Address) > maxAddressLen {
		return invalid("address", "must be at most 200 characters")
	}
	if in.Pincode < minPincode || in.Pincode > maxPincode {
		return invalid("pincode", "must be a 6 digit number")
	}
	if in.Price <= 0 {
		return invalid("price", "must be greater than 0")
	}
	if in.Price > MaxPrice {
		return invalid("price", "must be at most 1000000")
	}
	if in.MaxSpots < MinSpots || in.MaxSpots > MaxSpots {
		return invalid("max_spots", "must be between 1 and 100")
	}
	return nil
}

// CreateLot inserts a lot and exactly MaxSpots AVAILABLE spots.
func (s *ParkingService) CreateLot(ctx context.Context, in LotInput) (lot *model.ParkingLot, err error) {
	ctx, span := s.startSpan(ctx, "parking.create_lot", attribute.Int("lot.max_spots", in.MaxSpots))
	defer func() { endSpan(span, err) }()

	in.Location = strings.TrimSpace(in.Location)
	in.Address = strings.TrimSpace(in.Address)
	if err := validateLot(in); err != nil {
		return nil, err
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, storeErr("begin transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	lot = &model.ParkingLot{
		Location: in.Location,
		Address:  in.Address,
		Pincode:  in.Pincode,
		Price:    in.Price,
		MaxSpots: in.MaxSpots,
	}
	if err := tx.InsertLot(ctx, lot); err != nil {
		return nil, storeErr("insert lot", err)
	}
	if err := tx.InsertSpots(ctx, lot.ID, in.MaxSpots); err != nil {
		return nil, storeErr("insert spots", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storeErr("commit lot", err)
	}
	committed = true

	logging.Info(ctx).Uint64("lot_id", lot.ID).Int("max_spots", lot.MaxSpots).Msg("lot created")
	return lot, nil
}

// ResizeLot applies upd to a lot.  Non-capacity fields may always be
// changed.  A capacity change first reconciles the spot pool (new
// AVAILABLE spots when growing; removal of AVAILABLE spots that no
// reservation has ever referenced, lowest id first, when shrinking)
// and only then stores the new max_spots.  Any failure leaves the lot
// and its spots unchanged.
func (s *ParkingService) ResizeLot(ctx context.Context, lotID uint64, upd LotUpdate) (lot *model.ParkingLot, err error) {
	ctx, span := s.startSpan(ctx, "parking.resize_lot", attribute.Int64("lot.id", int64(lotID)))
	defer func() { endSpan(span, err) }()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, storeErr("begin transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	lot, err = tx.LockLot(ctx, lotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("lock lot", err)
	}

	next := LotInput{
		Location: lot.Location,
		Address:  lot.Address,
		Pincode:  lot.Pincode,
		Price:    lot.Price,
		MaxSpots: lot.MaxSpots,
	}
	if upd.Location != nil {
		next.Location = strings.TrimSpace(*upd.Location)
	}
	if upd.Address != nil {
		next.Address = strings.TrimSpace(*upd.Address)
	}
	if upd.Pincode != nil {
		next.Pincode = *upd.Pincode
	}
	if upd.Price != nil {
		next.Price = *upd.Price
	}
	if upd.MaxSpots != nil {
		next.MaxSpots = *upd.MaxSpots
	}
	if err := validateLot(next); err != nil {
		return nil, err
	}

	if upd.MaxSpots != nil {
		if err := s.reconcileSpots(ctx, tx, lot, next.MaxSpots); err != nil {
			if IsCapacityError(err) {
				s.metrics.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "resize")))
			}
			return nil, err
		}
	}

	lot.Location = next.Location
	lot.Address = next.Address
	lot.Pincode = next.Pincode
	lot.Price = next.Price
	lot.MaxSpots = next.MaxSpots
	if err := tx.UpdateLot(ctx, lot); err != nil {
		return nil, storeErr("update lot", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storeErr("commit lot update", err)
	}
	committed = true

	logging.Info(ctx).Uint64("lot_id", lot.ID).Int("max_spots", lot.MaxSpots).Msg("lot updated")
	return lot, nil
}

// reconcileSpots makes the lot's spot pool hold exactly target spots.
func (s *ParkingService) reconcileSpots(ctx context.Context, tx Tx, lot *model.ParkingLot, target int) error {
	occupied, err := tx.CountSpotsByStatus(ctx, lot.ID, model.SpotOccupied)
	if err != nil {
		return storeErr("count occupied spots", err)
	}
	if occupied != lot.Occupied {
		return storeErr("count occupied spots", repository.ErrOccupancyOutOfRange)
	}
	if target < occupied {
		return ErrCapacityBelowOccupancy
	}
	current, err := tx.CountSpots(ctx, lot.ID)
	if err != nil {
		return storeErr("count spots", err)
	}
	if target >= current {
		if target == current {
			return nil
		}
		if err := tx.InsertSpots(ctx, lot.ID, target-current); err != nil {
			return storeErr("insert spots", err)
		}
		return nil
	}

	need := current - target
	ids, err := tx.RemovableSpots(ctx, lot.ID, need)
	if err != nil {
		return storeErr("find removable spots", err)
	}
	if len(ids) < need {
		return ErrInsufficientRemovableSpots
	}
	if err := tx.DeleteSpots(ctx, ids); err != nil {
		return storeErr("delete spots", err)
	}
	return nil
}

// DeleteLot removes a lot with no occupied spots together with its
// spots and every reservation that referenced them.
func (s *ParkingService) DeleteLot(ctx context.Context, lotID uint64) (err error) {
	ctx, span := s.startSpan(ctx, "parking.delete_lot", attribute.Int64("lot.id", int64(lotID)))
	defer func() { endSpan(span, err) }()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return storeErr("begin transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	lot, err := tx.LockLot(ctx, lotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return storeErr("lock lot", err)
	}
	if lot.Occupied > 0 {
		s.metrics.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "lot_occupied")))
		return ErrLotOccupied
	}
	occupied, err := tx.CountSpotsByStatus(ctx, lot.ID, model.SpotOccupied)
	if err != nil {
		return storeErr("count occupied spots", err)
	}
	if occupied > 0 {
		return ErrLotOccupied
	}

	removed, err := tx.DeleteReservationsByLot(ctx, lot.ID)
	if err != nil {
		return storeErr("delete reservations", err)
	}
	spots, err := tx.DeleteSpotsByLot(ctx, lot.ID)
	if err != nil {
		return storeErr("delete spots", err)
	}
	if err := tx.DeleteLot(ctx, lot.ID); err != nil {
		return storeErr("delete lot", err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit lot delete", err)
	}
	committed = true

	logging.Info(ctx).
		Uint64("lot_id", lot.ID).
		Int64("spots", spots).
		Int64("reservations", removed).
		Msg("lot deleted")
	return nil
}

// GetLot returns a single lot.
func (s *ParkingService) GetLot(ctx context.Context, id uint64) (*model.ParkingLot, error) {
	lot, err := s.store.GetLot(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("get lot", err)
	}
	return lot, nil
}

// ListLots returns every lot ordered by id.
func (s *ParkingService) ListLots(ctx context.Context) ([]model.ParkingLot, error) {
	lots, err := s.store.ListLots(ctx)
	if err != nil {
		return nil, storeErr("list lots", err)
	}
	return lots, nil
}

// ListSpots returns the spots of a lot, optionally narrowed by status.
func (s *ParkingService) ListSpots(ctx context.Context, f model.SpotFilter) ([]model.ParkingSpot, error) {
	f.Status = strings.ToUpper(strings.TrimSpace(f.Status))
	switch f.Status {
	case "", model.SpotAvailable, model.SpotOccupied:
	default:
		return nil, invalid("status", "must be AVAILABLE or OCCUPIED")
	}
	if f.LotID != 0 {
		if _, err := s.GetLot(ctx, f.LotID); err != nil {
			return nil, err
		}
	}
	spots, err := s.store.SpotsByLot(ctx, f)
	if err != nil {
		return nil, storeErr("list spots", err)
	}
	return spots, nil
}

// GetSpotDetail returns a spot and its active reservation, if any.
func (s *ParkingService) GetSpotDetail(ctx context.Context, spotID uint64) (*SpotDetail, error) {
	spot, err := s.store.GetSpot(ctx, spotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("get spot", err)
	}
	detail := &SpotDetail{Spot: *spot}
	active, err := s.store.ActiveReservationBySpot(ctx, spotID)
	switch {
	case err == nil:
		detail.Active = active
	case errors.Is(err, repository.ErrNotFound):
	default:
		return nil, storeErr("active reservation", err)
	}
	return detail, nil
}

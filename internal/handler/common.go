package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-reservation/internal/logging"
	"github.com/iliyamo/parking-reservation/internal/middleware"
	"github.com/iliyamo/parking-reservation/internal/model"
	"github.com/iliyamo/parking-reservation/internal/service"
)

// Parking is the subset of service.ParkingService used by the HTTP
// handlers.
type Parking interface {
	Book(ctx context.Context, caller service.Caller, lotID uint64, vehicle string) (*model.Reservation, error)
	Release(ctx context.Context, caller service.Caller, reservationID uint64) (*model.Reservation, error)
	GetReservation(ctx context.Context, caller service.Caller, id uint64) (*model.Reservation, error)
	ListReservations(ctx context.Context, caller service.Caller, f model.ReservationFilter) ([]model.Reservation, error)

	CreateLot(ctx context.Context, in service.LotInput) (*model.ParkingLot, error)
	ResizeLot(ctx context.Context, lotID uint64, upd service.LotUpdate) (*model.ParkingLot, error)
	DeleteLot(ctx context.Context, lotID uint64) error
	GetLot(ctx context.Context, id uint64) (*model.ParkingLot, error)
	ListLots(ctx context.Context) ([]model.ParkingLot, error)
	ListSpots(ctx context.Context, f model.SpotFilter) ([]model.ParkingSpot, error)
	GetSpotDetail(ctx context.Context, spotID uint64) (*service.SpotDetail, error)
}

var _ Parking = (*service.ParkingService)(nil)

// callerFrom builds the service caller from the identity JWTAuth stored
// in the context.
func callerFrom(c echo.Context) (service.Caller, bool) {
	email, _ := c.Get(middleware.KeyEmail).(string)
	role, _ := c.Get(middleware.KeyRole).(string)
	if email == "" {
		return service.Caller{}, false
	}
	return service.Caller{Email: email, Role: role}, true
}

// idParam parses a positive numeric path parameter.
func idParam(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// writeError maps service errors to status codes.  Unexpected errors
// are logged and reported without detail.
func writeError(c echo.Context, err error) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Error(), "field": ve.Field})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrAlreadyReleased), service.IsCapacityError(err):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}
	logging.Error(c.Request().Context()).Err(err).Str("route", c.Path()).Msg("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

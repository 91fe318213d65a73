package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-reservation/internal/model"
)

// Book handles POST /v1/lots/:id/book.  The lowest numbered free spot
// of the lot is assigned to the caller.
func (h *ParkingHandler) Book(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	lotID, ok := idParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := h.Svc.Book(c.Request().Context(), caller, lotID, req.VehicleNumber)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toReservationResp(*res))
}

// Release handles POST /v1/reservations/:id/release.
func (h *ParkingHandler) Release(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := idParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	res, err := h.Svc.Release(c.Request().Context(), caller, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResp(*res))
}

// GetReservation handles GET /v1/reservations/:id.
func (h *ParkingHandler) GetReservation(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := idParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	res, err := h.Svc.GetReservation(c.Request().Context(), caller, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResp(*res))
}

// MyReservations handles GET /v1/my-reservations?status=active|history.
func (h *ParkingHandler) MyReservations(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.Svc.ListReservations(c.Request().Context(), caller, model.ReservationFilter{
		Email: caller.Email,
		State: strings.ToLower(strings.TrimSpace(c.QueryParam("status"))),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": toReservationList(list)})
}

// AdminReservations handles GET /v1/admin/reservations with optional
// email, lot_id and status filters.
func (h *ParkingHandler) AdminReservations(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	f := model.ReservationFilter{
		Email: c.QueryParam("email"),
		State: strings.ToLower(strings.TrimSpace(c.QueryParam("status"))),
	}
	if raw := strings.TrimSpace(c.QueryParam("lot_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot_id"})
		}
		f.LotID = id
	}
	list, err := h.Svc.ListReservations(c.Request().Context(), caller, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": toReservationList(list)})
}

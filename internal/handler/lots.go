package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-reservation/internal/model"
	"github.com/iliyamo/parking-reservation/internal/service"
)

// ParkingHandler serves lot, spot and reservation endpoints.  Identity
// and role checks are done by middleware before these methods run.
type ParkingHandler struct {
	Svc Parking
}

// NewParkingHandler panics if svc is nil.
func NewParkingHandler(svc Parking) *ParkingHandler {
	if svc == nil {
		panic("nil service passed to NewParkingHandler")
	}
	return &ParkingHandler{Svc: svc}
}

// ListLots handles GET /v1/lots.
func (h *ParkingHandler) ListLots(c echo.Context) error {
	lots, err := h.Svc.ListLots(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	out := make([]lotResp, 0, len(lots))
	for _, l := range lots {
		out = append(out, toLotResp(l))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetLot handles GET /v1/lots/:id.
func (h *ParkingHandler) GetLot(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}
	lot, err := h.Svc.GetLot(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toLotResp(*lot))
}

// ListSpots handles GET /v1/lots/:id/spots?status=available|occupied.
func (h *ParkingHandler) ListSpots(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}
	spots, err := h.Svc.ListSpots(c.Request().Context(), model.SpotFilter{
		LotID:  id,
		Status: strings.TrimSpace(c.QueryParam("status")),
	})
	if err != nil {
		return writeError(c, err)
	}
	out := make([]spotResp, 0, len(spots))
	for _, s := range spots {
		out = append(out, toSpotResp(s))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// CreateLot handles POST /v1/admin/lots.  Every field is required.
func (h *ParkingHandler) CreateLot(c echo.Context) error {
	var req lotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if missing := req.missing(); missing != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": missing + " is required", "field": missing})
	}
	lot, err := h.Svc.CreateLot(c.Request().Context(), service.LotInput{
		Location: *req.Location,
		Address:  *req.Address,
		Pincode:  *req.Pincode,
		Price:    *req.Price,
		MaxSpots: *req.MaxSpots,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toLotResp(*lot))
}

// UpdateLot handles PUT and PATCH /v1/admin/lots/:id.  PUT replaces
// every field; PATCH changes only the fields present in the body.  A
// changed max_spots resizes the lot.
func (h *ParkingHandler) UpdateLot(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}
	var req lotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if c.Request().Method == http.MethodPut {
		if missing := req.missing(); missing != "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": missing + " is required", "field": missing})
		}
	}
	lot, err := h.Svc.ResizeLot(c.Request().Context(), id, service.LotUpdate{
		Location: req.Location,
		Address:  req.Address,
		Pincode:  req.Pincode,
		Price:    req.Price,
		MaxSpots: req.MaxSpots,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toLotResp(*lot))
}

// DeleteLot handles DELETE /v1/admin/lots/:id.
func (h *ParkingHandler) DeleteLot(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}
	if err := h.Svc.DeleteLot(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetSpot handles GET /v1/admin/spots/:id and includes the active
// reservation of an occupied spot.
func (h *ParkingHandler) GetSpot(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid spot id"})
	}
	d, err := h.Svc.GetSpotDetail(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	out := echo.Map{"spot": toSpotResp(d.Spot)}
	if d.Active != nil {
		out["reservation"] = toReservationResp(*d.Active)
	}
	return c.JSON(http.StatusOK, out)
}

func (r lotReq) missing() string {
	switch {
	case r.Location == nil:
		return "location"
	case r.Address == nil:
		return "address"
	case r.Pincode == nil:
		return "pincode"
	case r.Price == nil:
		return "price"
	case r.MaxSpots == nil:
		return "max_spots"
	}
	return ""
}

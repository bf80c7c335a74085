package growth

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nutrio/nutrio/pkg/apperr"
	"github.com/nutrio/nutrio/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/patients/:id/growth-records", h.Create)
	api.GET("/patients/:id/growth-records", h.List)
	api.GET("/growth-records/:id", h.Get)
	api.DELETE("/growth-records/:id", h.Delete)
}

type recordRequest struct {
	RecordedAt *time.Time `json:"recorded_at"`
	WeightKg   float64    `json:"weight_kg" validate:"required,gt=0,lte=700"`
	HeightCm   *float64   `json:"height_cm" validate:"omitempty,gt=0,lte=300"`
	WaistCm    *float64   `json:"waist_cm" validate:"omitempty,gt=0"`
	BodyFatPct *float64   `json:"body_fat_pct" validate:"omitempty,gte=0,lte=100"`
	Notes      *string    `json:"notes" validate:"omitempty,max=2000"`
}

func (h *Handler) Create(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var req recordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	r := &Record{
		PatientID:  patientID,
		WeightKg:   req.WeightKg,
		HeightCm:   req.HeightCm,
		WaistCm:    req.WaistCm,
		BodyFatPct: req.BodyFatPct,
		Notes:      req.Notes,
	}
	if req.RecordedAt != nil {
		r.RecordedAt = req.RecordedAt.UTC()
	}
	if err := h.svc.Create(c.Request().Context(), r); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) List(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	r, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

package patient

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nutrio/nutrio/internal/platform/auth"
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
	staff := api.Group("", auth.RequireRole(auth.RoleNutritionist))
	staff.POST("/patients", h.Create)
	staff.GET("/patients", h.List)
	staff.PUT("/patients/:id", h.Update)
	staff.DELETE("/patients/:id", h.Delete)

	api.GET("/patients/:id", h.Get)
	api.GET("/me/patient", h.GetMine, auth.RequireRole(auth.RolePatient))
}

type patientRequest struct {
	FullName   string   `json:"full_name" validate:"required,max=200"`
	Email      *string  `json:"email" validate:"omitempty,email"`
	Phone      *string  `json:"phone" validate:"omitempty,max=40"`
	BirthDate  *string  `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Sex        *string  `json:"sex" validate:"omitempty,oneof=female male other"`
	HeightCm   *float64 `json:"height_cm" validate:"omitempty,gt=0,lte=300"`
	WeightKg   *float64 `json:"weight_kg" validate:"omitempty,gt=0,lte=700"`
	AvatarPath *string  `json:"avatar_path" validate:"omitempty,max=500"`
	Active     *bool    `json:"active"`
}

func (r patientRequest) toModel() *Patient {
	p := &Patient{
		FullName:   r.FullName,
		Email:      r.Email,
		Phone:      r.Phone,
		Sex:        r.Sex,
		HeightCm:   r.HeightCm,
		WeightKg:   r.WeightKg,
		AvatarPath: r.AvatarPath,
		Active:     true,
	}
	if r.BirthDate != nil {
		if t, err := time.Parse("2006-01-02", *r.BirthDate); err == nil {
			p.BirthDate = &t
		}
	}
	if r.Active != nil {
		p.Active = *r.Active
	}
	return p
}

func bindPatient(c echo.Context) (*Patient, error) {
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return nil, err
	}
	return req.toModel(), nil
}

func (h *Handler) Create(c echo.Context) error {
	p, err := bindPatient(c)
	if err != nil {
		return err
	}
	if err := h.svc.Create(c.Request().Context(), p); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) GetMine(c echo.Context) error {
	p, err := h.svc.GetMine(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	includeInactive, _ := strconv.ParseBool(c.QueryParam("include_inactive"))
	f := ListFilter{Search: c.QueryParam("search"), IncludeInactive: includeInactive}

	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if items == nil {
		items = []*Patient{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := bindPatient(c)
	if err != nil {
		return err
	}
	p.ID = id
	if err := h.svc.Update(c.Request().Context(), p); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
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

package recommendation

import (
	"context"
	"errors"
	"net/http"

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
	staff.POST("/patients/:id/recommendations", h.Create)
	staff.POST("/recommendations/:id/accept", h.Accept)
	staff.POST("/recommendations/:id/dismiss", h.Dismiss)
	staff.POST("/recommendations/:id/apply", h.Apply)

	api.GET("/patients/:id/recommendations", h.List)
	api.GET("/recommendations/:id", h.Get)
}

// toHTTP maps lifecycle violations to 409 before the generic mapping.
func toHTTP(err error) error {
	if errors.Is(err, ErrInvalidTransition) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return apperr.ToHTTP(err)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

type createRequest struct {
	Title      string   `json:"title" validate:"required,max=200"`
	Rationale  *string  `json:"rationale" validate:"omitempty,max=4000"`
	Confidence *float64 `json:"confidence" validate:"omitempty,gte=0,lte=1"`
}

func (h *Handler) Create(c echo.Context) error {
	patientID, err := parseID(c)
	if err != nil {
		return err
	}
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	r := &Recommendation{PatientID: patientID, Title: req.Title, Rationale: req.Rationale}
	if req.Confidence != nil {
		r.Confidence = *req.Confidence
	}
	if err := h.svc.Create(c.Request().Context(), r); err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	r, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) List(c echo.Context) error {
	patientID, err := parseID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) transition(c echo.Context, fn func(ctx context.Context, id uuid.UUID) (*Recommendation, error)) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	r, err := fn(c.Request().Context(), id)
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) Accept(c echo.Context) error  { return h.transition(c, h.svc.Accept) }
func (h *Handler) Dismiss(c echo.Context) error { return h.transition(c, h.svc.Dismiss) }
func (h *Handler) Apply(c echo.Context) error   { return h.transition(c, h.svc.Apply) }

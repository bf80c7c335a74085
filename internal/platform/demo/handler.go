package demo

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nutrio/nutrio/internal/platform/auth"
)

type store interface {
	Seed(ctx context.Context, nutritionistID uuid.UUID, p Profile) (Result, error)
	Purge(ctx context.Context, nutritionistID uuid.UUID) (int64, error)
}

// Handler exposes seeding and teardown to the signed-in nutritionist.
type Handler struct {
	seeder store
}

func NewHandler(seeder store) *Handler {
	return &Handler{seeder: seeder}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/demo", auth.RequireRole(auth.RoleNutritionist))
	g.POST("/seed", h.Seed)
	g.DELETE("", h.Purge)
}

func (h *Handler) Seed(c echo.Context) error {
	owner, err := auth.CurrentUserID(c)
	if err != nil {
		return err
	}

	var p Profile
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&p); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
	}
	p = p.withDefaults()
	if err := p.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.seeder.Seed(c.Request().Context(), owner, p)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) Purge(c echo.Context) error {
	owner, err := auth.CurrentUserID(c)
	if err != nil {
		return err
	}
	n, err := h.seeder.Purge(c.Request().Context(), owner)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int64{"deleted": n})
}

package activity

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nutrio/nutrio/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/activity", h.Feed, auth.RequireRole(auth.RoleNutritionist))
}

func (h *Handler) Feed(c echo.Context) error {
	owner, err := auth.CurrentUserID(c)
	if err != nil {
		return err
	}
	f := Filter{Search: c.QueryParam("search"), Category: c.QueryParam("category")}
	return c.JSON(http.StatusOK, h.svc.Feed(c.Request().Context(), owner, f))
}

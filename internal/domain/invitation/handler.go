package invitation

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nutrio/nutrio/pkg/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/invitations/accept", h.Accept)
}

type acceptRequest struct {
	Token string `json:"token" validate:"required,hexadecimal,len=64"`
}

func (h *Handler) Accept(c echo.Context) error {
	var req acceptRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	inv, err := h.svc.Accept(c.Request().Context(), req.Token)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, inv)
}

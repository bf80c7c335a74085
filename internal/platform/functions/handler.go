package functions

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const maxPayload = 1 << 20

type Handler struct {
	registry *Registry
	logger   zerolog.Logger
}

func NewHandler(registry *Registry, logger zerolog.Logger) *Handler {
	return &Handler{registry: registry, logger: logger}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/:name", h.Invoke)
}

func (h *Handler) Invoke(c echo.Context) error {
	name := c.Param("name")

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPayload+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, Envelope{Error: "failed to read request body"})
	}
	if len(body) > maxPayload {
		return c.JSON(http.StatusRequestEntityTooLarge, Envelope{Error: "payload too large"})
	}
	if len(body) > 0 && !json.Valid(body) {
		return c.JSON(http.StatusBadRequest, Envelope{Error: "payload must be JSON"})
	}

	data, err := h.registry.Invoke(c.Request().Context(), name, body)
	if err != nil {
		var logical *LogicalError
		switch {
		case errors.Is(err, ErrFunctionNotFound):
			return c.JSON(http.StatusNotFound, Envelope{Error: err.Error()})
		case errors.As(err, &logical):
			return c.JSON(http.StatusOK, Envelope{Error: logical.Msg})
		default:
			rid, _ := c.Get("request_id").(string)
			h.logger.Error().Err(err).Str("function", name).Str("request_id", rid).Msg("function invocation failed")
			return c.JSON(http.StatusInternalServerError, Envelope{Error: "internal error"})
		}
	}

	return c.JSON(http.StatusOK, Envelope{Data: data})
}

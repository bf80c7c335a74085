package validate

import (
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name   string  `json:"full_name" validate:"required"`
	Email  string  `json:"email" validate:"omitempty,email"`
	Status string  `json:"status" validate:"omitempty,oneof=a b"`
	Weight float64 `json:"weight_kg" validate:"gt=0"`
}

func TestValidate_OK(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(&sample{Name: "Ana", Weight: 60}))
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	v := New()
	err := v.Validate(&sample{Email: "nope", Status: "c"})
	require.Error(t, err)

	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)

	msg := httpErr.Message.(string)
	assert.True(t, strings.Contains(msg, "full_name is required"), msg)
	assert.Contains(t, msg, "email must be a valid email")
	assert.Contains(t, msg, "status must be one of [a b]")
	assert.Contains(t, msg, "weight_kg must satisfy gt=0")
}

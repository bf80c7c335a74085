package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
)

func TestToHTTP(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"invalid", Invalid("full_name is required"), http.StatusBadRequest, "full_name is required"},
		{"not found", NotFound("patient"), http.StatusNotFound, "patient not found"},
		{"wrapped not found", fmt.Errorf("load: %w", NotFound("meal")), http.StatusNotFound, "meal not found"},
		{"no rows", pgx.ErrNoRows, http.StatusNotFound, "not found"},
		{"forbidden", Forbidden("not your patient"), http.StatusForbidden, "not your patient"},
		{"conflict", Conflict("already active"), http.StatusConflict, "already active"},
		{"unique violation", &pgconn.PgError{Code: "23505"}, http.StatusConflict, "resource already exists"},
		{"check violation", &pgconn.PgError{Code: "23514", Message: "bad value"}, http.StatusBadRequest, "bad value"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal server error"},
		{"passthrough", echo.NewHTTPError(http.StatusTeapot, "tea"), http.StatusTeapot, "tea"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			he, ok := ToHTTP(tt.err).(*echo.HTTPError)
			if !ok {
				t.Fatalf("expected *echo.HTTPError")
			}
			if he.Code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, he.Code)
			}
			if he.Message != tt.msg {
				t.Errorf("expected %q, got %v", tt.msg, he.Message)
			}
		})
	}
}

func TestToHTTP_Nil(t *testing.T) {
	if ToHTTP(nil) != nil {
		t.Error("expected nil")
	}
}

func TestKinds(t *testing.T) {
	if !errors.Is(Invalid("x"), ErrInvalid) {
		t.Error("Invalid should match ErrInvalid")
	}
	if errors.Is(Invalid("x"), ErrNotFound) {
		t.Error("Invalid should not match ErrNotFound")
	}
}

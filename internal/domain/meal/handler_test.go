package meal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/nutrio/nutrio/internal/platform/validate"
)

func TestHandler_CreateMeal(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()
	e.Validator = validate.New()

	body := `{"meal_type":"breakfast","eaten_at":"2024-04-10T08:00:00Z","items":[{"food_name":"Oats","quantity":40,"calories":150,"carbs":27}]}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(f.userCtx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(f.patient.ID.String())

	if err := h.CreateMeal(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var m Meal
	_ = json.Unmarshal(rec.Body.Bytes(), &m)
	if m.TotalCalories != 150 || len(m.Items) != 1 {
		t.Errorf("unexpected meal %+v", m)
	}
}

func TestHandler_CreateMeal_RequiresItems(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()
	e.Validator = validate.New()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"meal_type":"lunch","items":[]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(f.docCtx)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(f.patient.ID.String())

	he, ok := h.CreateMeal(c).(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", he)
	}
}

func TestHandler_ListDiary_BadDate(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/?from=yesterday", nil)
	req = req.WithContext(f.docCtx)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(f.patient.ID.String())

	he, ok := h.ListDiary(c).(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", he)
	}
}

func TestHandler_ListDiary_EmptyArray(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/?from=2024-01-01&to=2024-01-07", nil)
	req = req.WithContext(f.docCtx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(f.patient.ID.String())

	if err := h.ListDiary(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}
}

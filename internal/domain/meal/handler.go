package meal

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nutrio/nutrio/internal/platform/auth"
	"github.com/nutrio/nutrio/pkg/apperr"
)

const dateLayout = "2006-01-02"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Food diary
	api.POST("/patients/:id/meals", h.CreateMeal)
	api.GET("/patients/:id/meals", h.ListDiary)
	api.GET("/patients/:id/meals/daily-totals", h.DailyTotals)
	api.GET("/meals/:id", h.GetMeal)
	api.PUT("/meals/:id", h.UpdateMeal)
	api.DELETE("/meals/:id", h.DeleteMeal)

	// Meal plans
	staff := api.Group("", auth.RequireRole(auth.RoleNutritionist))
	staff.POST("/patients/:id/meal-plans", h.CreatePlan)
	staff.PUT("/meal-plans/:id", h.UpdatePlan)
	staff.POST("/meal-plans/:id/activate", h.ActivatePlan)
	api.GET("/patients/:id/meal-plans", h.ListPlans)
	api.GET("/meal-plans/:id", h.GetPlan)
	api.GET("/me/meal-plan", h.MyActivePlan, auth.RequireRole(auth.RolePatient))
}

type itemRequest struct {
	FoodName string  `json:"food_name" validate:"required,max=200"`
	Quantity float64 `json:"quantity" validate:"required,gt=0"`
	Unit     string  `json:"unit" validate:"omitempty,max=20"`
	Calories float64 `json:"calories" validate:"gte=0"`
	Protein  float64 `json:"protein" validate:"gte=0"`
	Carbs    float64 `json:"carbs" validate:"gte=0"`
	Fat      float64 `json:"fat" validate:"gte=0"`
}

type mealRequest struct {
	MealType string        `json:"meal_type" validate:"required,oneof=breakfast morning_snack lunch afternoon_snack dinner supper"`
	EatenAt  *time.Time    `json:"eaten_at"`
	Notes    *string       `json:"notes" validate:"omitempty,max=2000"`
	Items    []itemRequest `json:"items" validate:"required,min=1,dive"`
}

func (r mealRequest) toModel() *Meal {
	m := &Meal{MealType: r.MealType, Notes: r.Notes}
	if r.EatenAt != nil {
		m.EatenAt = r.EatenAt.UTC()
	}
	for _, it := range r.Items {
		m.Items = append(m.Items, Item{
			FoodName: it.FoodName,
			Quantity: it.Quantity,
			Unit:     it.Unit,
			Calories: it.Calories,
			Protein:  it.Protein,
			Carbs:    it.Carbs,
			Fat:      it.Fat,
		})
	}
	return m
}

func bindMeal(c echo.Context) (*Meal, error) {
	var req mealRequest
	if err := c.Bind(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return nil, err
	}
	return req.toModel(), nil
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// parseTime accepts RFC 3339 timestamps or plain dates.
func parseTime(c echo.Context, name string) (time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name+": "+v)
	}
	return t, nil
}

func (h *Handler) CreateMeal(c echo.Context) error {
	patientID, err := parseID(c)
	if err != nil {
		return err
	}
	m, err := bindMeal(c)
	if err != nil {
		return err
	}
	m.PatientID = patientID
	if err := h.svc.CreateMeal(c.Request().Context(), m); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) GetMeal(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	m, err := h.svc.GetMeal(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) UpdateMeal(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	m, err := bindMeal(c)
	if err != nil {
		return err
	}
	m.ID = id
	if err := h.svc.UpdateMeal(c.Request().Context(), m); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) DeleteMeal(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteMeal(c.Request().Context(), id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListDiary(c echo.Context) error {
	patientID, err := parseID(c)
	if err != nil {
		return err
	}
	from, err := parseTime(c, "from")
	if err != nil {
		return err
	}
	to, err := parseTime(c, "to")
	if err != nil {
		return err
	}
	meals, err := h.svc.ListDiary(c.Request().Context(), patientID, from, to)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if meals == nil {
		meals = []*Meal{}
	}
	return c.JSON(http.StatusOK, meals)
}

func (h *Handler) DailyTotals(c echo.Context) error {
	patientID, err := parseID(c)
	if err != nil {
		return err
	}
	day, err := parseTime(c, "day")
	if err != nil {
		return err
	}
	if day.IsZero() {
		day = time.Now().UTC()
	}
	totals, err := h.svc.DailyTotals(c.Request().Context(), patientID, day)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, totals)
}

type planRequest struct {
	Title         string   `json:"title" validate:"required,max=200"`
	DailyCalories *float64 `json:"daily_calories" validate:"omitempty,gte=0"`
	ProteinG      *float64 `json:"protein_g" validate:"omitempty,gte=0"`
	CarbsG        *float64 `json:"carbs_g" validate:"omitempty,gte=0"`
	FatG          *float64 `json:"fat_g" validate:"omitempty,gte=0"`
	Notes         *string  `json:"notes"`
	Active        bool     `json:"active"`
	StartsOn      *string  `json:"starts_on" validate:"omitempty,datetime=2006-01-02"`
	EndsOn        *string  `json:"ends_on" validate:"omitempty,datetime=2006-01-02"`
}

func parseDate(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil
	}
	return &t
}

func bindPlan(c echo.Context) (*Plan, error) {
	var req planRequest
	if err := c.Bind(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return nil, err
	}
	return &Plan{
		Title:         req.Title,
		DailyCalories: req.DailyCalories,
		ProteinG:      req.ProteinG,
		CarbsG:        req.CarbsG,
		FatG:          req.FatG,
		Notes:         req.Notes,
		Active:        req.Active,
		StartsOn:      parseDate(req.StartsOn),
		EndsOn:        parseDate(req.EndsOn),
	}, nil
}

func (h *Handler) CreatePlan(c echo.Context) error {
	patientID, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := bindPlan(c)
	if err != nil {
		return err
	}
	p.PatientID = patientID
	if err := h.svc.CreatePlan(c.Request().Context(), p); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPlan(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetPlan(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPlans(c echo.Context) error {
	patientID, err := parseID(c)
	if err != nil {
		return err
	}
	plans, err := h.svc.ListPlans(c.Request().Context(), patientID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if plans == nil {
		plans = []*Plan{}
	}
	return c.JSON(http.StatusOK, plans)
}

func (h *Handler) UpdatePlan(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := bindPlan(c)
	if err != nil {
		return err
	}
	p.ID = id
	if err := h.svc.UpdatePlan(c.Request().Context(), p); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ActivatePlan(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.ActivatePlan(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) MyActivePlan(c echo.Context) error {
	p, err := h.svc.MyActivePlan(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

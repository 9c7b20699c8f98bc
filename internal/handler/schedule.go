package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/sportfield/reservation/internal/model"
	"github.com/sportfield/reservation/internal/repository"
)

// ScheduleHandler exposes CRUD for schedules plus the per-field
// availability view.  Schedules are thin rows, so the handler talks to
// the repository directly.
type ScheduleHandler struct {
	Schedules *repository.ScheduleRepo
}

// NewScheduleHandler constructs a ScheduleHandler.  The repository must be
// non-nil.
func NewScheduleHandler(schedules *repository.ScheduleRepo) *ScheduleHandler {
	if schedules == nil {
		panic("nil repository passed to NewScheduleHandler")
	}
	return &ScheduleHandler{Schedules: schedules}
}

// scheduleBody is the JSON payload accepted by create and update.
type scheduleBody struct {
	DayOfWeek *string          `json:"day_of_week"`
	StartTime *time.Time       `json:"start_time"`
	EndTime   *time.Time       `json:"end_time"`
	Status    *string          `json:"status"`
	Price     *decimal.Decimal `json:"price"`
	FieldID   *uint64          `json:"id_field"`
	UserID    *uint64          `json:"id_user"`
}

// List handles GET /v1/schedules with optional field_id, day_of_week and
// status query filters.
func (h *ScheduleHandler) List(c echo.Context) error {
	var filter repository.ScheduleFilter
	var err error
	if filter.FieldID, err = optionalIDParam(c, "field_id"); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid field_id"})
	}
	if d := c.QueryParam("day_of_week"); d != "" {
		filter.DayOfWeek = &d
	}
	filter.Status = optionalStatus(c)

	schedules, err := h.Schedules.List(c.Request().Context(), filter)
	if err != nil {
		return scheduleError(c, err)
	}
	return c.JSON(http.StatusOK, schedules)
}

// ListAvailable handles GET /v1/schedules/available.  It returns the
// schedules of the field given by the required field_id query parameter
// that are not claimed by a live rent; cancelled rents do not block a
// schedule.
func (h *ScheduleHandler) ListAvailable(c echo.Context) error {
	fieldID, err := strconv.ParseUint(c.QueryParam("field_id"), 10, 64)
	if err != nil || fieldID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "field_id is required"})
	}
	var dayOfWeek *string
	if d := c.QueryParam("day_of_week"); d != "" {
		dayOfWeek = &d
	}
	schedules, err := h.Schedules.ListAvailable(c.Request().Context(), fieldID, dayOfWeek, optionalStatus(c), []string{model.RentStatusCancelled})
	if err != nil {
		return scheduleError(c, err)
	}
	return c.JSON(http.StatusOK, schedules)
}

// Get handles GET /v1/schedules/:id.
func (h *ScheduleHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid schedule id"})
	}
	sched, err := h.Schedules.GetByID(c.Request().Context(), id)
	if err != nil {
		return scheduleError(c, err)
	}
	return c.JSON(http.StatusOK, sched)
}

// Create handles POST /v1/schedules.
func (h *ScheduleHandler) Create(c echo.Context) error {
	var body scheduleBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.DayOfWeek == nil || *body.DayOfWeek == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "day_of_week is required"})
	}
	if body.StartTime == nil || body.EndTime == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time and end_time are required"})
	}
	if !body.EndTime.After(*body.StartTime) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_time must be after start_time"})
	}

	sched := model.Schedule{
		DayOfWeek: *body.DayOfWeek,
		StartTime: body.StartTime.UTC(),
		EndTime:   body.EndTime.UTC(),
		FieldID:   body.FieldID,
		UserID:    body.UserID,
	}
	if body.Status != nil {
		sched.Status = *body.Status
	}
	if body.Price != nil {
		sched.Price = *body.Price
	}

	if err := h.Schedules.Create(c.Request().Context(), &sched); err != nil {
		return scheduleError(c, err)
	}
	return c.JSON(http.StatusCreated, sched)
}

// Update handles PUT /v1/schedules/:id.  Fields absent from the body keep
// their stored values.
func (h *ScheduleHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid schedule id"})
	}
	var body scheduleBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	sched, err := h.Schedules.GetByID(c.Request().Context(), id)
	if err != nil {
		return scheduleError(c, err)
	}
	if body.DayOfWeek != nil {
		sched.DayOfWeek = *body.DayOfWeek
	}
	if body.StartTime != nil {
		sched.StartTime = body.StartTime.UTC()
	}
	if body.EndTime != nil {
		sched.EndTime = body.EndTime.UTC()
	}
	if !sched.EndTime.After(sched.StartTime) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_time must be after start_time"})
	}
	if body.Status != nil {
		sched.Status = *body.Status
	}
	if body.Price != nil {
		sched.Price = *body.Price
	}
	if body.FieldID != nil {
		sched.FieldID = body.FieldID
	}
	if body.UserID != nil {
		sched.UserID = body.UserID
	}

	if err := h.Schedules.Update(c.Request().Context(), sched); err != nil {
		return scheduleError(c, err)
	}
	return c.JSON(http.StatusOK, sched)
}

// Delete handles DELETE /v1/schedules/:id.
func (h *ScheduleHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid schedule id"})
	}
	if err := h.Schedules.Delete(c.Request().Context(), id); err != nil {
		return scheduleError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "schedule deleted"})
}

func scheduleError(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrScheduleNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "schedule not found"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}

package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sportfield/reservation/internal/repository"
	"github.com/sportfield/reservation/internal/service"
	"github.com/sportfield/reservation/internal/utils"
)

// RentHandler exposes the rent lifecycle over HTTP.  All business rules
// (schedule exclusivity, payment verification, derived fields, occupancy
// recomputation) live in the service; the handler only binds requests and
// maps errors to status codes.
type RentHandler struct {
	Rents *service.RentService
	Users *repository.UserRepo
}

// NewRentHandler constructs a RentHandler.  Both dependencies must be
// non-nil; users backs the existence check on user-scoped listings.
func NewRentHandler(rents *service.RentService, users *repository.UserRepo) *RentHandler {
	if rents == nil || users == nil {
		panic("nil dependency passed to NewRentHandler")
	}
	return &RentHandler{Rents: rents, Users: users}
}

// rentBody is the JSON payload accepted by create and update.  start_time
// and end_time are bound for wire compatibility but never honored: the
// rent window always comes from the schedule.
type rentBody struct {
	ScheduleID      *uint64    `json:"id_schedule"`
	Status          *string    `json:"status"`
	Capacity        *int       `json:"capacity"`
	Period          *string    `json:"period"`
	Initialized     *time.Time `json:"initialized"`
	Finished        *time.Time `json:"finished"`
	DateLog         *time.Time `json:"date_log"`
	PaymentID       *uint64    `json:"id_payment"`
	PaymentDeadline *time.Time `json:"payment_deadline"`
	StartTime       *time.Time `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
}

// List handles GET /v1/rents.  Optional query parameters narrow the
// result: status, schedule_id, field_id, user_id, campus_id.
func (h *RentHandler) List(c echo.Context) error {
	var filter repository.RentFilter
	if s := c.QueryParam("status"); s != "" {
		filter.Status = &s
	}
	var err error
	if filter.ScheduleID, err = optionalIDParam(c, "schedule_id"); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid schedule_id"})
	}
	if filter.FieldID, err = optionalIDParam(c, "field_id"); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid field_id"})
	}
	if filter.UserID, err = optionalIDParam(c, "user_id"); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user_id"})
	}
	if filter.CampusID, err = optionalIDParam(c, "campus_id"); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid campus_id"})
	}

	rents, err := h.Rents.List(c.Request().Context(), filter)
	if err != nil {
		return rentError(c, err)
	}
	return c.JSON(http.StatusOK, rents)
}

// ListByField handles GET /v1/rents/fields/:field_id.
func (h *RentHandler) ListByField(c echo.Context) error {
	fieldID, err := strconv.ParseUint(c.Param("field_id"), 10, 64)
	if err != nil || fieldID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid field id"})
	}
	rents, err := h.Rents.ListByField(c.Request().Context(), fieldID, optionalStatus(c))
	if err != nil {
		return rentError(c, err)
	}
	return c.JSON(http.StatusOK, rents)
}

// ListByUser handles GET /v1/rents/users/:user_id.
func (h *RentHandler) ListByUser(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil || userID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	if _, err := h.Users.GetByID(c.Request().Context(), userID); err != nil {
		return rentError(c, err)
	}
	rents, err := h.Rents.ListByUser(c.Request().Context(), userID, optionalStatus(c))
	if err != nil {
		return rentError(c, err)
	}
	return c.JSON(http.StatusOK, rents)
}

// ListUserHistory handles GET /v1/rents/users/:user_id/history.  Same as
// ListByUser but ordered newest-first.
func (h *RentHandler) ListUserHistory(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil || userID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	if _, err := h.Users.GetByID(c.Request().Context(), userID); err != nil {
		return rentError(c, err)
	}
	rents, err := h.Rents.ListUserHistory(c.Request().Context(), userID, optionalStatus(c))
	if err != nil {
		return rentError(c, err)
	}
	return c.JSON(http.StatusOK, rents)
}

// Get handles GET /v1/rents/:id.
func (h *RentHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid rent id"})
	}
	rent, err := h.Rents.Get(c.Request().Context(), id)
	if err != nil {
		return rentError(c, err)
	}
	return c.JSON(http.StatusOK, rent)
}

// Create handles POST /v1/rents.  Returns 201 with the created rent and
// its resolved schedule/field/user summaries, 409 when the schedule is
// already claimed by a live rent.
func (h *RentHandler) Create(c echo.Context) error {
	var body rentBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ScheduleID == nil || *body.ScheduleID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id_schedule is required"})
	}

	in := service.CreateRentInput{
		ScheduleID:      *body.ScheduleID,
		Capacity:        body.Capacity,
		Period:          body.Period,
		Initialized:     body.Initialized,
		Finished:        body.Finished,
		DateLog:         body.DateLog,
		PaymentID:       body.PaymentID,
		PaymentDeadline: body.PaymentDeadline,
	}
	if body.Status != nil {
		in.Status = *body.Status
	}

	rent, err := h.Rents.Create(c.Request().Context(), in)
	if err != nil {
		return rentError(c, err)
	}
	return c.JSON(http.StatusCreated, rent)
}

// Update handles PUT /v1/rents/:id.  Only the fields present in the body
// are changed; retargeting id_schedule re-runs the availability guard.
func (h *RentHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid rent id"})
	}
	var body rentBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	rent, err := h.Rents.Update(c.Request().Context(), id, service.UpdateRentInput{
		ScheduleID:      body.ScheduleID,
		Status:          body.Status,
		Capacity:        body.Capacity,
		Period:          body.Period,
		Initialized:     body.Initialized,
		Finished:        body.Finished,
		DateLog:         body.DateLog,
		PaymentID:       body.PaymentID,
		PaymentDeadline: body.PaymentDeadline,
	})
	if err != nil {
		return rentError(c, err)
	}
	return c.JSON(http.StatusOK, rent)
}

// Delete handles DELETE /v1/rents/:id.
func (h *RentHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid rent id"})
	}
	if err := h.Rents.Delete(c.Request().Context(), id); err != nil {
		return rentError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "rent deleted"})
}

// rentError maps service and repository errors to HTTP responses.
func rentError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrRentNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "rent not found"})
	case errors.Is(err, repository.ErrScheduleNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "schedule not found"})
	case errors.Is(err, repository.ErrFieldNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "field not found"})
	case errors.Is(err, repository.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	case errors.Is(err, repository.ErrPaymentNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "payment not found"})
	case errors.Is(err, service.ErrScheduleConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "schedule already has an active rent"})
	case errors.Is(err, service.ErrPaymentNotPaid):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment is not paid"})
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, utils.ErrInvalidWindow):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
}

// optionalStatus extracts the optional status query parameter.
func optionalStatus(c echo.Context) *string {
	if s := c.QueryParam("status"); s != "" {
		return &s
	}
	return nil
}

// optionalIDParam parses an optional numeric query parameter.
func optionalIDParam(c echo.Context, name string) (*uint64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, errors.New("invalid " + name)
	}
	return &id, nil
}

package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sportfield/reservation/internal/model"
	"github.com/sportfield/reservation/internal/queue"
	"github.com/sportfield/reservation/internal/repository"
	"github.com/sportfield/reservation/internal/utils"
)

// defaultPaymentDeadline is how long a freshly created rent has to be paid
// when the caller does not supply an explicit deadline.
const defaultPaymentDeadline = 5 * time.Minute

// excludedRentStatuses lists the rent statuses that do not claim a
// schedule.  Only "cancelled" is interpreted by the engine; everything
// else keeps a rent live.
var excludedRentStatuses = []string{model.RentStatusCancelled}

// RentStore is the persistence contract for rents.  *repository.RentRepo
// satisfies it.  CreateExclusive and UpdateExclusive must enforce the
// one-live-rent-per-schedule invariant at the storage layer (row lock or
// equivalent) and return repository.ErrConflict when it is violated; the
// service-level HasLiveRent call is only a synchronous pre-check.
type RentStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Rent, error)
	GetDetail(ctx context.Context, id uint64) (*model.RentDetail, error)
	List(ctx context.Context, filter repository.RentFilter) ([]model.RentDetail, error)
	HasLiveRent(ctx context.Context, scheduleID uint64, excludedStatuses []string, excludeRentID *uint64) (bool, error)
	CreateExclusive(ctx context.Context, rent *model.Rent, excludedStatuses []string) error
	UpdateExclusive(ctx context.Context, rent *model.Rent, guardSchedule bool, excludedStatuses []string) error
	Delete(ctx context.Context, id uint64) error
}

// ScheduleStore resolves schedules for rent operations.
type ScheduleStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Schedule, error)
}

// PaymentStore resolves payment records from the payment service.
type PaymentStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Payment, error)
}

// CampusStore resolves campus summaries for notifications.
type CampusStore interface {
	GetCampus(ctx context.Context, campusID uint64) (*model.Campus, error)
}

// Notifier dispatches the best-effort rent notification.  Failures must
// not propagate to the request that booked the rent.
type Notifier func(ctx context.Context, event queue.RentBookedEvent) error

// RentService orchestrates the rent lifecycle: it validates the referenced
// schedule and payment, applies schedule defaults and time accounting,
// persists through the exclusive rent store, recomputes field occupancy
// and registers the deferred recheck at the rent's end time.
type RentService struct {
	rents     RentStore
	schedules ScheduleStore
	fields    FieldStore
	payments  PaymentStore
	campuses  CampusStore
	occupancy *OccupancyService
	scheduler *RecheckScheduler
	notify    Notifier
}

// NewRentService constructs a RentService.  campuses and notify may be nil
// when notification dispatch is disabled.
func NewRentService(
	rents RentStore,
	schedules ScheduleStore,
	fields FieldStore,
	payments PaymentStore,
	campuses CampusStore,
	occupancy *OccupancyService,
	scheduler *RecheckScheduler,
	notify Notifier,
) *RentService {
	if rents == nil || schedules == nil || fields == nil || payments == nil || occupancy == nil {
		panic("nil dependency passed to NewRentService")
	}
	return &RentService{
		rents:     rents,
		schedules: schedules,
		fields:    fields,
		payments:  payments,
		campuses:  campuses,
		occupancy: occupancy,
		scheduler: scheduler,
		notify:    notify,
	}
}

// List returns rents matching the filter with resolved summaries.
func (s *RentService) List(ctx context.Context, filter repository.RentFilter) ([]model.RentDetail, error) {
	return s.rents.List(ctx, filter)
}

// ListByField returns rents whose schedule belongs to the given field.
func (s *RentService) ListByField(ctx context.Context, fieldID uint64, status *string) ([]model.RentDetail, error) {
	return s.rents.List(ctx, repository.RentFilter{FieldID: &fieldID, Status: status})
}

// ListByUser returns rents whose schedule belongs to the given user.
func (s *RentService) ListByUser(ctx context.Context, userID uint64, status *string) ([]model.RentDetail, error) {
	return s.rents.List(ctx, repository.RentFilter{UserID: &userID, Status: status})
}

// ListUserHistory returns the user's rents ordered newest-first.
func (s *RentService) ListUserHistory(ctx context.Context, userID uint64, status *string) ([]model.RentDetail, error) {
	return s.rents.List(ctx, repository.RentFilter{UserID: &userID, Status: status, SortDesc: true})
}

// Get returns a single rent with resolved summaries.
func (s *RentService) Get(ctx context.Context, id uint64) (*model.RentDetail, error) {
	return s.rents.GetDetail(ctx, id)
}

// CreateRentInput carries the caller-supplied fields for rent creation.
// StartTime and EndTime are accepted for wire compatibility but always
// discarded: the rent window comes from the schedule.
type CreateRentInput struct {
	ScheduleID      uint64
	Status          string
	Capacity        *int
	Period          *string
	Initialized     *time.Time
	Finished        *time.Time
	DateLog         *time.Time
	PaymentID       *uint64
	PaymentDeadline *time.Time
	StartTime       *time.Time // ignored, window always comes from the schedule
	EndTime         *time.Time // ignored, window always comes from the schedule
}

// UpdateRentInput carries the caller-supplied partial fields for rent
// updates.  Nil pointers leave the corresponding field untouched.
type UpdateRentInput struct {
	ScheduleID      *uint64
	Status          *string
	Capacity        *int
	Period          *string
	Initialized     *time.Time
	Finished        *time.Time
	DateLog         *time.Time
	PaymentID       *uint64
	PaymentDeadline *time.Time
	StartTime       *time.Time // ignored, window always comes from the schedule
	EndTime         *time.Time // ignored, window always comes from the schedule
}

// Create books a new rent against a schedule.  The schedule must exist and
// must not be claimed by another live rent; a referenced payment must have
// status "paid".  On success the schedule's field occupancy is recomputed
// synchronously and a deferred recheck is registered at the rent's end
// time.
func (s *RentService) Create(ctx context.Context, in CreateRentInput) (*model.RentDetail, error) {
	sched, err := s.schedules.GetByID(ctx, in.ScheduleID)
	if err != nil {
		return nil, err
	}
	live, err := s.rents.HasLiveRent(ctx, sched.ID, excludedRentStatuses, nil)
	if err != nil {
		return nil, err
	}
	if live {
		return nil, ErrScheduleConflict
	}

	rent := model.Rent{ScheduleID: sched.ID, Status: in.Status}
	if rent.Status == "" {
		rent.Status = model.RentStatusPending
	}
	if err := s.applyScheduleDefaults(ctx, &rent, sched, true, nil, scheduleOverrides{
		Capacity:    in.Capacity,
		Period:      in.Period,
		Initialized: in.Initialized,
		Finished:    in.Finished,
		DateLog:     in.DateLog,
	}); err != nil {
		return nil, err
	}

	if in.PaymentDeadline != nil {
		rent.PaymentDeadline = in.PaymentDeadline.UTC()
	} else {
		rent.PaymentDeadline = time.Now().UTC().Add(defaultPaymentDeadline)
	}
	if in.PaymentID != nil {
		if err := s.checkPaymentPaid(ctx, *in.PaymentID); err != nil {
			return nil, err
		}
		rent.PaymentID = in.PaymentID
	}

	if err := s.rents.CreateExclusive(ctx, &rent, excludedRentStatuses); err != nil {
		if err == repository.ErrConflict {
			return nil, ErrScheduleConflict
		}
		return nil, err
	}

	s.recompute(ctx, sched.FieldID)
	s.scheduler.ScheduleRecheck(sched.FieldID, rent.EndTime)

	detail, err := s.rents.GetDetail(ctx, rent.ID)
	if err != nil {
		return nil, err
	}
	s.publishBooked(detail)
	return detail, nil
}

// Update applies a partial update to an existing rent.  Retargeting the
// schedule re-runs the availability guard excluding the rent itself, so a
// rent never conflicts with its own claim.  Occupancy is recomputed for
// the original field and, when the rent moved, for the new field as well.
func (s *RentService) Update(ctx context.Context, rentID uint64, in UpdateRentInput) (*model.RentDetail, error) {
	existing, err := s.rents.GetByID(ctx, rentID)
	if err != nil {
		return nil, err
	}
	originalSched, err := s.schedules.GetByID(ctx, existing.ScheduleID)
	if err != nil {
		return nil, err
	}

	target := originalSched
	if in.ScheduleID != nil {
		target, err = s.schedules.GetByID(ctx, *in.ScheduleID)
		if err != nil {
			return nil, err
		}
		live, err := s.rents.HasLiveRent(ctx, target.ID, excludedRentStatuses, &rentID)
		if err != nil {
			return nil, err
		}
		if live {
			return nil, ErrScheduleConflict
		}
	}
	scheduleChanged := target.ID != existing.ScheduleID

	rent := *existing
	rent.ScheduleID = target.ID
	if in.Status != nil {
		rent.Status = *in.Status
	}
	if err := s.applyScheduleDefaults(ctx, &rent, target, scheduleChanged, existing, scheduleOverrides{
		Capacity:    in.Capacity,
		Period:      in.Period,
		Initialized: in.Initialized,
		Finished:    in.Finished,
		DateLog:     in.DateLog,
	}); err != nil {
		return nil, err
	}
	if in.PaymentDeadline != nil {
		rent.PaymentDeadline = in.PaymentDeadline.UTC()
	}
	if in.PaymentID != nil {
		if err := s.checkPaymentPaid(ctx, *in.PaymentID); err != nil {
			return nil, err
		}
		rent.PaymentID = in.PaymentID
	}

	if err := s.rents.UpdateExclusive(ctx, &rent, in.ScheduleID != nil, excludedRentStatuses); err != nil {
		if err == repository.ErrConflict {
			return nil, ErrScheduleConflict
		}
		return nil, err
	}

	// The original field's occupancy may have changed either way; the new
	// field only when the rent actually moved.
	s.recompute(ctx, originalSched.FieldID)
	if !sameFieldRef(originalSched.FieldID, target.FieldID) {
		s.recompute(ctx, target.FieldID)
	}
	s.scheduler.ScheduleRecheck(target.FieldID, rent.EndTime)

	return s.rents.GetDetail(ctx, rent.ID)
}

// Delete removes a rent and recomputes occupancy for the field it claimed.
func (s *RentService) Delete(ctx context.Context, rentID uint64) error {
	existing, err := s.rents.GetByID(ctx, rentID)
	if err != nil {
		return err
	}
	sched, err := s.schedules.GetByID(ctx, existing.ScheduleID)
	if err != nil {
		return err
	}
	if err := s.rents.Delete(ctx, rentID); err != nil {
		return err
	}
	s.recompute(ctx, sched.FieldID)
	return nil
}

// scheduleOverrides groups the caller-supplied values that take precedence
// over schedule defaults.
type scheduleOverrides struct {
	Capacity    *int
	Period      *string
	Initialized *time.Time
	Finished    *time.Time
	DateLog     *time.Time
}

// applyScheduleDefaults copies the window and price from the schedule onto
// the rent and fills the derived fields.  The window, mount and minutes
// always follow the schedule; initialized/finished/date_log, capacity and
// period fall back to the schedule (or field) only on creation or when the
// schedule changed, and are preserved from the existing rent otherwise.
func (s *RentService) applyScheduleDefaults(ctx context.Context, rent *model.Rent, sched *model.Schedule, scheduleChanged bool, existing *model.Rent, in scheduleOverrides) error {
	rent.StartTime = sched.StartTime
	rent.EndTime = sched.EndTime
	rent.Mount = sched.Price

	minutes, err := utils.ComputeMinutes(sched.StartTime, sched.EndTime)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	rent.Minutes = minutes

	fresh := scheduleChanged || existing == nil
	switch {
	case in.Initialized != nil:
		rent.Initialized = in.Initialized.UTC()
	case fresh:
		rent.Initialized = sched.StartTime
	default:
		rent.Initialized = existing.Initialized
	}
	switch {
	case in.Finished != nil:
		rent.Finished = in.Finished.UTC()
	case fresh:
		rent.Finished = sched.EndTime
	default:
		rent.Finished = existing.Finished
	}
	switch {
	case in.DateLog != nil:
		rent.DateLog = in.DateLog.UTC()
	case fresh:
		rent.DateLog = sched.StartTime
	default:
		rent.DateLog = existing.DateLog
	}

	switch {
	case in.Capacity != nil:
		rent.Capacity = *in.Capacity
	case !fresh:
		rent.Capacity = existing.Capacity
	default:
		capacity, ok, err := s.fieldCapacity(ctx, sched)
		if err != nil {
			return err
		}
		if !ok && existing != nil {
			capacity, ok = existing.Capacity, true
		}
		if !ok {
			return fmt.Errorf("%w: capacity is required when the schedule has no field", ErrInvalidRequest)
		}
		rent.Capacity = capacity
	}

	switch {
	case in.Period != nil:
		rent.Period = *in.Period
	case !fresh:
		rent.Period = existing.Period
	default:
		rent.Period = utils.FormatPeriod(minutes)
	}
	return nil
}

// fieldCapacity resolves the capacity of the schedule's field, reporting
// ok=false when the schedule has no field.
func (s *RentService) fieldCapacity(ctx context.Context, sched *model.Schedule) (int, bool, error) {
	if sched.FieldID == nil {
		return 0, false, nil
	}
	field, err := s.fields.GetByID(ctx, *sched.FieldID)
	if err != nil {
		return 0, false, err
	}
	return field.Capacity, true, nil
}

// checkPaymentPaid verifies that the referenced payment exists and carries
// the "paid" status (case-insensitively).
func (s *RentService) checkPaymentPaid(ctx context.Context, paymentID uint64) error {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if !strings.EqualFold(payment.Status, model.PaymentStatusPaid) {
		return ErrPaymentNotPaid
	}
	return nil
}

// recompute runs a synchronous occupancy recomputation.  The rent mutation
// has already been committed at this point, so a recompute failure is
// logged rather than surfaced: the deferred recheck or the next mutation
// will converge the derived status.
func (s *RentService) recompute(ctx context.Context, fieldID *uint64) {
	if err := s.occupancy.Recompute(ctx, fieldID); err != nil {
		log.Printf("occupancy: recompute failed: %v", err)
	}
}

// publishBooked dispatches the rent notification in the background.  This
// is fire-and-forget: publish errors are logged inside the publisher and
// never reach the caller.
func (s *RentService) publishBooked(detail *model.RentDetail) {
	if s.notify == nil {
		return
	}
	ev := queue.RentBookedEvent{
		RentID:    detail.ID,
		Status:    detail.Status,
		Period:    detail.Period,
		Minutes:   detail.Minutes.String(),
		Mount:     detail.Mount.String(),
		StartTime: detail.StartTime.UTC().Format(time.RFC3339),
		EndTime:   detail.EndTime.UTC().Format(time.RFC3339),
		BookedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if detail.User != nil {
		id := detail.User.ID
		ev.UserID = &id
		ev.UserName = detail.User.Name
		ev.UserEmail = detail.User.Email
	}
	var campusID uint64
	lookupCampus := false
	if detail.Field != nil {
		id := detail.Field.ID
		ev.FieldID = &id
		ev.FieldName = detail.Field.Name
		campusID = detail.Field.CampusID
		lookupCampus = s.campuses != nil
	}
	// The campus lookup also runs inside the goroutine so the create
	// response never waits on it.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if lookupCampus {
			if campus, err := s.campuses.GetCampus(ctx, campusID); err == nil {
				ev.CampusName = campus.Name
			}
		}
		_ = s.notify(ctx, ev)
	}()
}

func sameFieldRef(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sportfield/reservation/internal/model"
	"github.com/sportfield/reservation/internal/queue"
	"github.com/sportfield/reservation/internal/repository"
)

// fixture is a shared in-memory backing store for the fake repositories
// used by the rent service tests.
type fixture struct {
	schedules map[uint64]*model.Schedule
	fields    map[uint64]*model.Field
	payments  map[uint64]*model.Payment
	rents     map[uint64]*model.Rent
	nextRent  uint64
}

func newFixture() *fixture {
	day := func(h, m int) time.Time {
		return time.Date(2030, 1, 7, h, m, 0, 0, time.UTC)
	}
	price := decimal.RequireFromString("150.00")
	fx := &fixture{
		schedules: map[uint64]*model.Schedule{
			1: {ID: 1, DayOfWeek: "monday", StartTime: day(10, 0), EndTime: day(11, 30), Status: "open", Price: price, FieldID: fieldID(1)},
			2: {ID: 2, DayOfWeek: "monday", StartTime: day(12, 0), EndTime: day(13, 0), Status: "open", Price: decimal.RequireFromString("80.00"), FieldID: fieldID(1)},
			3: {ID: 3, DayOfWeek: "monday", StartTime: day(9, 0), EndTime: day(10, 0), Status: "open", Price: price},
			4: {ID: 4, DayOfWeek: "monday", StartTime: day(10, 0), EndTime: day(11, 0), Status: "open", Price: price, FieldID: fieldID(2)},
		},
		fields: map[uint64]*model.Field{
			1: {ID: 1, Name: "north pitch", Capacity: 10, Status: model.FieldStatusActive, CampusID: 1},
			2: {ID: 2, Name: "south pitch", Capacity: 5, Status: model.FieldStatusActive, CampusID: 1},
		},
		payments: map[uint64]*model.Payment{
			1: {ID: 1, Status: "PAID"},
			2: {ID: 2, Status: "pending"},
		},
		rents: map[uint64]*model.Rent{},
	}
	return fx
}

func (fx *fixture) liveRentOn(scheduleID uint64, excluded []string, excludeRentID *uint64) bool {
	for id, r := range fx.rents {
		if r.ScheduleID != scheduleID {
			continue
		}
		if excludeRentID != nil && id == *excludeRentID {
			continue
		}
		skip := false
		for _, s := range excluded {
			if strings.EqualFold(r.Status, s) {
				skip = true
				break
			}
		}
		if !skip {
			return true
		}
	}
	return false
}

type fakeRents struct{ fx *fixture }

func (f *fakeRents) GetByID(ctx context.Context, id uint64) (*model.Rent, error) {
	r, ok := f.fx.rents[id]
	if !ok {
		return nil, repository.ErrRentNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRents) GetDetail(ctx context.Context, id uint64) (*model.RentDetail, error) {
	r, ok := f.fx.rents[id]
	if !ok {
		return nil, repository.ErrRentNotFound
	}
	d := model.RentDetail{Rent: *r}
	if sched, ok := f.fx.schedules[r.ScheduleID]; ok {
		cp := *sched
		d.Schedule = &cp
		if cp.FieldID != nil {
			if field, ok := f.fx.fields[*cp.FieldID]; ok {
				fcp := *field
				d.Field = &fcp
			}
		}
	}
	return &d, nil
}

func (f *fakeRents) List(ctx context.Context, filter repository.RentFilter) ([]model.RentDetail, error) {
	out := make([]model.RentDetail, 0)
	for id := range f.fx.rents {
		d, _ := f.GetDetail(ctx, id)
		// Exact match, mirroring the SQL filter (`r.status = ?`); only the
		// live-rent exclusion set is compared case-insensitively.
		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}
		if filter.ScheduleID != nil && d.ScheduleID != *filter.ScheduleID {
			continue
		}
		if filter.FieldID != nil && (d.Field == nil || d.Field.ID != *filter.FieldID) {
			continue
		}
		if filter.UserID != nil && (d.Schedule == nil || d.Schedule.UserID == nil || *d.Schedule.UserID != *filter.UserID) {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		if filter.SortDesc {
			return out[i].StartTime.After(out[j].StartTime)
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}

func (f *fakeRents) HasLiveRent(ctx context.Context, scheduleID uint64, excluded []string, excludeRentID *uint64) (bool, error) {
	return f.fx.liveRentOn(scheduleID, excluded, excludeRentID), nil
}

func (f *fakeRents) CreateExclusive(ctx context.Context, rent *model.Rent, excluded []string) error {
	if f.fx.liveRentOn(rent.ScheduleID, excluded, nil) {
		return repository.ErrConflict
	}
	f.fx.nextRent++
	rent.ID = f.fx.nextRent
	rent.DateCreate = time.Now().UTC()
	cp := *rent
	f.fx.rents[rent.ID] = &cp
	return nil
}

func (f *fakeRents) UpdateExclusive(ctx context.Context, rent *model.Rent, guardSchedule bool, excluded []string) error {
	if _, ok := f.fx.rents[rent.ID]; !ok {
		return repository.ErrRentNotFound
	}
	if guardSchedule && f.fx.liveRentOn(rent.ScheduleID, excluded, &rent.ID) {
		return repository.ErrConflict
	}
	cp := *rent
	f.fx.rents[rent.ID] = &cp
	return nil
}

func (f *fakeRents) Delete(ctx context.Context, id uint64) error {
	if _, ok := f.fx.rents[id]; !ok {
		return repository.ErrRentNotFound
	}
	delete(f.fx.rents, id)
	return nil
}

type fakeSchedules struct{ fx *fixture }

func (f *fakeSchedules) GetByID(ctx context.Context, id uint64) (*model.Schedule, error) {
	s, ok := f.fx.schedules[id]
	if !ok {
		return nil, repository.ErrScheduleNotFound
	}
	cp := *s
	return &cp, nil
}

type fakeFields struct{ fx *fixture }

func (f *fakeFields) GetByID(ctx context.Context, id uint64) (*model.Field, error) {
	field, ok := f.fx.fields[id]
	if !ok {
		return nil, repository.ErrFieldNotFound
	}
	cp := *field
	return &cp, nil
}

func (f *fakeFields) HasLiveRent(ctx context.Context, fid uint64, excluded []string) (bool, error) {
	for _, sched := range f.fx.schedules {
		if sched.FieldID == nil || *sched.FieldID != fid {
			continue
		}
		if f.fx.liveRentOn(sched.ID, excluded, nil) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeFields) UpdateStatus(ctx context.Context, fid uint64, status string) error {
	field, ok := f.fx.fields[fid]
	if !ok {
		return repository.ErrFieldNotFound
	}
	field.Status = status
	return nil
}

type fakePayments struct{ fx *fixture }

func (f *fakePayments) GetByID(ctx context.Context, id uint64) (*model.Payment, error) {
	p, ok := f.fx.payments[id]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func newTestService(fx *fixture) *RentService {
	fields := &fakeFields{fx: fx}
	occupancy := NewOccupancyService(fields, []string{model.RentStatusCancelled})
	scheduler := NewRecheckScheduler(occupancy, time.Second)
	return NewRentService(
		&fakeRents{fx: fx}, &fakeSchedules{fx: fx}, fields, &fakePayments{fx: fx},
		nil, occupancy, scheduler, nil,
	)
}

func TestCreateAppliesScheduleDefaults(t *testing.T) {
	fx := newFixture()
	svc := newTestService(fx)

	before := time.Now().UTC()
	detail, err := svc.Create(context.Background(), CreateRentInput{ScheduleID: 1})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	sched := fx.schedules[1]
	if !detail.StartTime.Equal(sched.StartTime) || !detail.EndTime.Equal(sched.EndTime) {
		t.Errorf("window = %v..%v, want %v..%v", detail.StartTime, detail.EndTime, sched.StartTime, sched.EndTime)
	}
	if !detail.Minutes.Equal(decimal.RequireFromString("90")) {
		t.Errorf("minutes = %s, want 90", detail.Minutes)
	}
	if !detail.Mount.Equal(sched.Price) {
		t.Errorf("mount = %s, want %s", detail.Mount, sched.Price)
	}
	if detail.Period != "1 hour 30 minutes" {
		t.Errorf("period = %q, want %q", detail.Period, "1 hour 30 minutes")
	}
	if detail.Capacity != 10 {
		t.Errorf("capacity = %d, want 10 (from field)", detail.Capacity)
	}
	if detail.Status != model.RentStatusPending {
		t.Errorf("status = %q, want %q", detail.Status, model.RentStatusPending)
	}
	if !detail.Initialized.Equal(sched.StartTime) || !detail.Finished.Equal(sched.EndTime) {
		t.Errorf("booking intent = %v..%v, want schedule window", detail.Initialized, detail.Finished)
	}
	if detail.PaymentDeadline.Before(before.Add(defaultPaymentDeadline - time.Minute)) {
		t.Errorf("payment deadline %v not defaulted relative to now", detail.PaymentDeadline)
	}
	if fx.fields[1].Status != model.FieldStatusOccupied {
		t.Errorf("field status = %q, want occupied", fx.fields[1].Status)
	}
}

func TestCreateRejectsClaimedSchedule(t *testing.T) {
	fx := newFixture()
	svc := newTestService(fx)

	if _, err := svc.Create(context.Background(), CreateRentInput{ScheduleID: 1}); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, err := svc.Create(context.Background(), CreateRentInput{ScheduleID: 1}); !errors.Is(err, ErrScheduleConflict) {
		t.Errorf("second Create: got %v, want ErrScheduleConflict", err)
	}
}

func TestCreateAllowsCancelledClaim(t *testing.T) {
	fx := newFixture()
	svc := newTestService(fx)

	// A cancelled rent (any letter case) does not claim the schedule.
	fx.rents[99] = &model.Rent{ID: 99, ScheduleID: 1, Status: "Cancelled"}
	fx.nextRent = 99

	if _, err := svc.Create(context.Background(), CreateRentInput{ScheduleID: 1}); err != nil {
		t.Fatalf("Create over cancelled rent: %v", err)
	}
}

func TestCreateUnknownSchedule(t *testing.T) {
	fx := newFixture()
	svc := newTestService(fx)

	if _, err := svc.Create(context.Background(), CreateRentInput{ScheduleID: 1234}); !errors.Is(err, repository.ErrScheduleNotFound) {
		t.Errorf("got %v, want ErrScheduleNotFound", err)
	}
}

func TestCreateRejectsUnpaidPayment(t *testing.T) {
	fx := newFixture()
	svc := newTestService(fx)

	pid := uint64(2)
	if _, err := svc.Create(context.Background(), CreateRentInput{ScheduleID: 1, PaymentID: &pid}); !errors.Is(err, ErrPaymentNotPaid) {
		t.Errorf("got %v, want ErrPaymentNotPaid", err)
	}
	if len(fx.rents) != 0 {
		t.Errorf("rent persisted despite unpaid payment")
	}
}

func TestCreateAcceptsPaidPaymentCaseInsensitive(t *testing.T) {
	fx := newFixture()
	svc := newTestService(fx)

	pid := uint64(1) // status "PAID"
	detail, err := svc.Create(context.Background(), CreateRentInput{ScheduleID: 1, PaymentID: &pid})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if detail.PaymentID == nil || *detail.PaymentID != pid {
		t.Errorf("payment reference not stored")
	}
}

func TestCreateRequiresCapacityWithoutField(t *testing.T) {
	fx := newFixture()
	svc := newTestService(fx)

	// Schedule 3 has no field, so there is nothing to default capacity from.
	if _, err := svc.Create(context.Background(), CreateRentInput{ScheduleID: 3}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("got %v, want ErrInvalidRequest", err)
	}

	capacity := 8
	detail, err := svc.Create(context.Background(), CreateRentInput{ScheduleID: 3, Capacity: &capacity})
	if err != nil {
		t.Fatalf("Create with explicit capacity: %v", err)
	}
	if detail.Capacity != 8 {
		t.Errorf("capacity = %d, want 8", detail.Capacity)
	}
}

func TestUpdateSelfRetargetAllowed(t *testing.T) {
	fx := newFixture()
	svc := newTestService(fx)

	detail, err := svc.Create(context.Background(), CreateRentInput{ScheduleID: 1})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Re-sending the rent's own schedule must not conflict with itself.
	sid := uint64(1)
	if _, err := svc.Update(context.Background(), detail.ID, UpdateRentInput{ScheduleID: &sid}); err != nil {
		t.Errorf("self retarget: %v", err)
	}
}

func TestUpdateRetargetConflicts(t *testing.T) {
	fx := newFixture()
	svc := newTestService(fx)

	if _, err := svc.Create(context.Background(), CreateRentInput{ScheduleID: 1}); err != nil {
		t.Fatalf("Create on schedule 1: %v", err)
	}
	second, err := svc.Create(context.Background(), CreateRentInput{ScheduleID: 2})
	if err != nil {
		t.Fatalf("Create on schedule 2: %v", err)
	}

	sid := uint64(1)
	if _, err := svc.Update(context.Background(), second.ID, UpdateRentInput{ScheduleID: &sid}); !errors.Is(err, ErrScheduleConflict) {
		t.Errorf("retarget onto claimed schedule: got %v, want ErrScheduleConflict", err)
	}
}

func TestUpdatePreservesBookingIntent(t *testing.T) {
	fx := newFixture()
	svc := newTestService(fx)

	custom := time.Date(2030, 1, 7, 10, 15, 0, 0, time.UTC)
	detail, err := svc.Create(context.Background(), CreateRentInput{ScheduleID: 1, Initialized: &custom})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	status := "confirmed"
	updated, err := svc.Update(context.Background(), detail.ID, UpdateRentInput{Status: &status})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != "confirmed" {
		t.Errorf("status = %q, want confirmed", updated.Status)
	}
	if !updated.Initialized.Equal(custom) {
		t.Errorf("initialized = %v, want preserved %v", updated.Initialized, custom)
	}
	if updated.Period != detail.Period || updated.Capacity != detail.Capacity {
		t.Errorf("derived fields changed on a status-only update")
	}
}

func TestUpdateRetargetAppliesNewScheduleDefaults(t *testing.T) {
	fx := newFixture()
	svc := newTestService(fx)

	detail, err := svc.Create(context.Background(), CreateRentInput{ScheduleID: 1})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	sid := uint64(2)
	updated, err := svc.Update(context.Background(), detail.ID, UpdateRentInput{ScheduleID: &sid})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	sched := fx.schedules[2]
	if !updated.StartTime.Equal(sched.StartTime) || !updated.EndTime.Equal(sched.EndTime) {
		t.Errorf("window not retargeted: %v..%v", updated.StartTime, updated.EndTime)
	}
	if !updated.Minutes.Equal(decimal.RequireFromString("60")) {
		t.Errorf("minutes = %s, want 60", updated.Minutes)
	}
	if updated.Period != "1 hour" {
		t.Errorf("period = %q, want %q", updated.Period, "1 hour")
	}
	if !updated.Mount.Equal(sched.Price) {
		t.Errorf("mount = %s, want %s", updated.Mount, sched.Price)
	}
	if !updated.Initialized.Equal(sched.StartTime) {
		t.Errorf("initialized not refreshed from the new schedule")
	}
}

func TestUpdateMovesOccupancyAcrossFields(t *testing.T) {
	fx := newFixture()
	svc := newTestService(fx)

	detail, err := svc.Create(context.Background(), CreateRentInput{ScheduleID: 1})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if fx.fields[1].Status != model.FieldStatusOccupied {
		t.Fatalf("field 1 not occupied after create")
	}

	sid := uint64(4) // schedule on field 2
	if _, err := svc.Update(context.Background(), detail.ID, UpdateRentInput{ScheduleID: &sid}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if fx.fields[1].Status != model.FieldStatusActive {
		t.Errorf("field 1 status = %q, want active after the rent moved away", fx.fields[1].Status)
	}
	if fx.fields[2].Status != model.FieldStatusOccupied {
		t.Errorf("field 2 status = %q, want occupied", fx.fields[2].Status)
	}
}

func TestCancelFreesField(t *testing.T) {
	fx := newFixture()
	svc := newTestService(fx)

	detail, err := svc.Create(context.Background(), CreateRentInput{ScheduleID: 1})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	status := model.RentStatusCancelled
	if _, err := svc.Update(context.Background(), detail.ID, UpdateRentInput{Status: &status}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if fx.fields[1].Status != model.FieldStatusActive {
		t.Errorf("field status = %q, want active after cancellation", fx.fields[1].Status)
	}

	// The freed schedule is bookable again.
	if _, err := svc.Create(context.Background(), CreateRentInput{ScheduleID: 1}); err != nil {
		t.Errorf("rebooking freed schedule: %v", err)
	}
}

func TestCancelKeepsFieldOccupiedWhileAnotherRentLives(t *testing.T) {
	fx := newFixture()
	svc := newTestService(fx)

	first, err := svc.Create(context.Background(), CreateRentInput{ScheduleID: 1})
	if err != nil {
		t.Fatalf("Create on schedule 1: %v", err)
	}
	if _, err := svc.Create(context.Background(), CreateRentInput{ScheduleID: 2}); err != nil {
		t.Fatalf("Create on schedule 2: %v", err)
	}

	status := model.RentStatusCancelled
	if _, err := svc.Update(context.Background(), first.ID, UpdateRentInput{Status: &status}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	// Schedule 2 still carries a live rent under field 1.
	if fx.fields[1].Status != model.FieldStatusOccupied {
		t.Errorf("field status = %q, want occupied while another rent is live", fx.fields[1].Status)
	}
}

func TestDeleteFreesField(t *testing.T) {
	fx := newFixture()
	svc := newTestService(fx)

	detail, err := svc.Create(context.Background(), CreateRentInput{ScheduleID: 1})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(context.Background(), detail.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(fx.rents) != 0 {
		t.Errorf("rent still present after delete")
	}
	if fx.fields[1].Status != model.FieldStatusActive {
		t.Errorf("field status = %q, want active after delete", fx.fields[1].Status)
	}
}

func TestDeleteUnknownRent(t *testing.T) {
	fx := newFixture()
	svc := newTestService(fx)

	if err := svc.Delete(context.Background(), 555); !errors.Is(err, repository.ErrRentNotFound) {
		t.Errorf("got %v, want ErrRentNotFound", err)
	}
}

func TestListStatusFilterIsExact(t *testing.T) {
	fx := newFixture()
	svc := newTestService(fx)

	if _, err := svc.Create(context.Background(), CreateRentInput{ScheduleID: 1}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	lower := model.RentStatusPending
	got, err := svc.List(context.Background(), repository.RentFilter{Status: &lower})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}

	upper := "Pending"
	got, err = svc.List(context.Background(), repository.RentFilter{Status: &upper})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("status filter matched case-insensitively: got %d rents", len(got))
	}
}

// gatedCampuses blocks every GetCampus call until the gate is closed.
type gatedCampuses struct {
	gate chan struct{}
}

func (g *gatedCampuses) GetCampus(ctx context.Context, campusID uint64) (*model.Campus, error) {
	<-g.gate
	return &model.Campus{ID: campusID, Name: "main campus"}, nil
}

func TestCreateDoesNotWaitForNotificationDispatch(t *testing.T) {
	fx := newFixture()
	fields := &fakeFields{fx: fx}
	occupancy := NewOccupancyService(fields, []string{model.RentStatusCancelled})
	scheduler := NewRecheckScheduler(occupancy, time.Second)

	campuses := &gatedCampuses{gate: make(chan struct{})}
	events := make(chan queue.RentBookedEvent, 1)
	notify := func(ctx context.Context, ev queue.RentBookedEvent) error {
		events <- ev
		return nil
	}
	svc := NewRentService(
		&fakeRents{fx: fx}, &fakeSchedules{fx: fx}, fields, &fakePayments{fx: fx},
		campuses, occupancy, scheduler, notify,
	)

	// The campus lookup is still blocked; Create must return regardless.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := svc.Create(context.Background(), CreateRentInput{ScheduleID: 1}); err != nil {
			t.Errorf("Create: %v", err)
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("create blocked on the notification campus lookup")
	}

	close(campuses.gate)
	select {
	case ev := <-events:
		if ev.CampusName != "main campus" {
			t.Errorf("campus name = %q, want %q", ev.CampusName, "main campus")
		}
		if ev.FieldName != "north pitch" || ev.RentID == 0 {
			t.Errorf("event summary incomplete: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notification never dispatched")
	}
}

func TestListUserHistoryOrdersNewestFirst(t *testing.T) {
	fx := newFixture()
	svc := newTestService(fx)

	uid := uint64(9)
	fx.schedules[1].UserID = &uid
	fx.schedules[2].UserID = &uid

	if _, err := svc.Create(context.Background(), CreateRentInput{ScheduleID: 1}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(context.Background(), CreateRentInput{ScheduleID: 2}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	history, err := svc.ListUserHistory(context.Background(), uid, nil)
	if err != nil {
		t.Fatalf("ListUserHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("len = %d, want 2", len(history))
	}
	if history[0].StartTime.Before(history[1].StartTime) {
		t.Errorf("history not ordered newest-first")
	}
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/sportfield/reservation/internal/model"
	"github.com/sportfield/reservation/internal/repository"
)

// stubFieldStore is a FieldStore with scripted answers that records every
// status write.
type stubFieldStore struct {
	field   *model.Field
	live    bool
	writes  []string
	getErr  error
	liveErr error
}

func (s *stubFieldStore) GetByID(ctx context.Context, id uint64) (*model.Field, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	f := *s.field
	return &f, nil
}

func (s *stubFieldStore) HasLiveRent(ctx context.Context, fieldID uint64, excluded []string) (bool, error) {
	return s.live, s.liveErr
}

func (s *stubFieldStore) UpdateStatus(ctx context.Context, fieldID uint64, status string) error {
	s.writes = append(s.writes, status)
	s.field.Status = status
	return nil
}

func fieldID(id uint64) *uint64 { return &id }

func TestRecomputeNilFieldIsNoop(t *testing.T) {
	store := &stubFieldStore{field: &model.Field{ID: 1, Status: model.FieldStatusActive}}
	svc := NewOccupancyService(store, []string{model.RentStatusCancelled})

	if err := svc.Recompute(context.Background(), nil); err != nil {
		t.Fatalf("Recompute(nil): %v", err)
	}
	if len(store.writes) != 0 {
		t.Errorf("expected no writes, got %v", store.writes)
	}
}

func TestRecomputeMissingFieldIsSilent(t *testing.T) {
	store := &stubFieldStore{getErr: repository.ErrFieldNotFound}
	svc := NewOccupancyService(store, []string{model.RentStatusCancelled})

	if err := svc.Recompute(context.Background(), fieldID(42)); err != nil {
		t.Fatalf("Recompute on missing field: %v", err)
	}
	if len(store.writes) != 0 {
		t.Errorf("expected no writes, got %v", store.writes)
	}
}

func TestRecomputeMarksOccupied(t *testing.T) {
	store := &stubFieldStore{field: &model.Field{ID: 1, Status: model.FieldStatusActive}, live: true}
	svc := NewOccupancyService(store, []string{model.RentStatusCancelled})

	if err := svc.Recompute(context.Background(), fieldID(1)); err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if len(store.writes) != 1 || store.writes[0] != model.FieldStatusOccupied {
		t.Errorf("writes = %v, want [occupied]", store.writes)
	}
}

func TestRecomputeRevertsToActive(t *testing.T) {
	store := &stubFieldStore{field: &model.Field{ID: 1, Status: model.FieldStatusOccupied}, live: false}
	svc := NewOccupancyService(store, []string{model.RentStatusCancelled})

	if err := svc.Recompute(context.Background(), fieldID(1)); err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if len(store.writes) != 1 || store.writes[0] != model.FieldStatusActive {
		t.Errorf("writes = %v, want [active]", store.writes)
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	// Stored status differs only in case; no write should happen, even on
	// repeated recomputes.
	store := &stubFieldStore{field: &model.Field{ID: 1, Status: "Occupied"}, live: true}
	svc := NewOccupancyService(store, []string{model.RentStatusCancelled})

	for i := 0; i < 3; i++ {
		if err := svc.Recompute(context.Background(), fieldID(1)); err != nil {
			t.Fatalf("Recompute #%d: %v", i, err)
		}
	}
	if len(store.writes) != 0 {
		t.Errorf("expected no writes, got %v", store.writes)
	}
}

// recordingRecomputer signals on a channel whenever Recompute runs.
type recordingRecomputer struct {
	calls chan uint64
}

func (r *recordingRecomputer) Recompute(ctx context.Context, fieldID *uint64) error {
	r.calls <- *fieldID
	return nil
}

func TestScheduleRecheckFiresAtEndTime(t *testing.T) {
	rec := &recordingRecomputer{calls: make(chan uint64, 1)}
	sched := NewRecheckScheduler(rec, time.Second)

	sched.ScheduleRecheck(fieldID(7), time.Now().Add(20*time.Millisecond))

	select {
	case got := <-rec.calls:
		if got != 7 {
			t.Errorf("recomputed field %d, want 7", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("deferred recheck never fired")
	}
}

func TestScheduleRecheckFiresImmediatelyForPastEnd(t *testing.T) {
	rec := &recordingRecomputer{calls: make(chan uint64, 1)}
	sched := NewRecheckScheduler(rec, time.Second)

	sched.ScheduleRecheck(fieldID(3), time.Now().Add(-time.Hour))

	select {
	case <-rec.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("recheck for past end time never fired")
	}
}

func TestScheduleRecheckNoops(t *testing.T) {
	rec := &recordingRecomputer{calls: make(chan uint64, 4)}
	sched := NewRecheckScheduler(rec, time.Second)

	sched.ScheduleRecheck(nil, time.Now())
	sched.ScheduleRecheck(fieldID(1), time.Time{})

	var nilSched *RecheckScheduler
	nilSched.ScheduleRecheck(fieldID(1), time.Now())

	select {
	case got := <-rec.calls:
		t.Errorf("unexpected recompute for field %d", got)
	case <-time.After(100 * time.Millisecond):
	}
}

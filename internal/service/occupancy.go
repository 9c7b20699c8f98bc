package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/sportfield/reservation/internal/model"
	"github.com/sportfield/reservation/internal/repository"
)

// FieldStore is the narrow field access the occupancy logic needs.
// *repository.FieldRepo satisfies it.
type FieldStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Field, error)
	HasLiveRent(ctx context.Context, fieldID uint64, excludedStatuses []string) (bool, error)
	UpdateStatus(ctx context.Context, fieldID uint64, status string) error
}

// OccupancyService recomputes the derived Field.Status from the current
// set of live rents under the field.  Recompute is idempotent and safe to
// call redundantly from multiple triggers: it always re-derives truth from
// live-rent membership rather than trusting any previously scheduled
// intention.
type OccupancyService struct {
	fields   FieldStore
	excluded []string
}

// NewOccupancyService constructs an OccupancyService.  excludedStatuses
// lists the rent statuses that do not count as live (normally just
// "cancelled").
func NewOccupancyService(fields FieldStore, excludedStatuses []string) *OccupancyService {
	return &OccupancyService{fields: fields, excluded: excludedStatuses}
}

// targetFieldStatus maps live-rent membership to the derived status value.
func targetFieldStatus(hasLive bool) string {
	if hasLive {
		return model.FieldStatusOccupied
	}
	return model.FieldStatusActive
}

// Recompute re-derives and persists the occupancy status of a field.  A
// nil fieldID and a missing field are both silent no-ops.  When the stored
// status already equals the target (case-insensitively) the write is
// skipped entirely, so back-to-back recomputes produce no second write.
func (s *OccupancyService) Recompute(ctx context.Context, fieldID *uint64) error {
	if fieldID == nil {
		return nil
	}
	field, err := s.fields.GetByID(ctx, *fieldID)
	if errors.Is(err, repository.ErrFieldNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	live, err := s.fields.HasLiveRent(ctx, *fieldID, s.excluded)
	if err != nil {
		return err
	}
	target := targetFieldStatus(live)
	if strings.EqualFold(field.Status, target) {
		return nil
	}
	return s.fields.UpdateStatus(ctx, *fieldID, target)
}

// recomputer abstracts OccupancyService for the scheduler so tests can
// observe deferred invocations without a database.
type recomputer interface {
	Recompute(ctx context.Context, fieldID *uint64) error
}

// RecheckScheduler registers deferred occupancy recomputations.  Each
// registration spawns a timer goroutine that fires at the rent's end time
// and re-runs Recompute with a fresh context, independent of the request
// that scheduled it, so a field reverts from "occupied" to "active"
// without another request touching it.  There is no cancellation: a stale
// recheck for a deleted rent is harmless because Recompute re-derives
// truth from current live rents.
type RecheckScheduler struct {
	occupancy recomputer
	timeout   time.Duration
}

// NewRecheckScheduler constructs a RecheckScheduler.  timeout bounds the
// database round trip of each deferred recompute; zero falls back to 30s.
func NewRecheckScheduler(occupancy recomputer, timeout time.Duration) *RecheckScheduler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RecheckScheduler{occupancy: occupancy, timeout: timeout}
}

// ScheduleRecheck suspends until endAt (normalized to UTC) and then
// recomputes the field's occupancy.  A nil fieldID or zero endAt is a
// no-op.  This is fire-and-forget: failures are logged and dropped since
// no caller is waiting.
func (s *RecheckScheduler) ScheduleRecheck(fieldID *uint64, endAt time.Time) {
	if s == nil || fieldID == nil || endAt.IsZero() {
		return
	}
	id := *fieldID
	fireAt := endAt.UTC()
	go func() {
		if d := time.Until(fireAt); d > 0 {
			timer := time.NewTimer(d)
			defer timer.Stop()
			<-timer.C
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.occupancy.Recompute(ctx, &id); err != nil {
			log.Printf("occupancy: deferred recheck for field %d failed: %v", id, err)
		}
	}()
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Schedule identifies a bookable time slot for a field.  Start and end
// times are stored in UTC.  A schedule can be claimed by at most one live
// rent at a time; that invariant is enforced by the rent repository.
//
// Fields:
//  ID        – primary key identifier.
//  DayOfWeek – day label for the slot (e.g. "monday").
//  StartTime – slot start (UTC).
//  EndTime   – slot end (UTC, after StartTime).
//  Status    – slot-level status maintained by the catalog.
//  Price     – price for renting the slot; copied into Rent.Mount.
//  FieldID   – field the slot belongs to (nullable).
//  UserID    – user the slot was published for (nullable).
type Schedule struct {
	ID        uint64          `json:"id_schedule"` // schedule.id_schedule
	DayOfWeek string          `json:"day_of_week"` // schedule.day_of_week
	StartTime time.Time       `json:"start_time"`  // schedule.start_time
	EndTime   time.Time       `json:"end_time"`    // schedule.end_time
	Status    string          `json:"status"`      // schedule.status
	Price     decimal.Decimal `json:"price"`       // schedule.price (NUMERIC(10,2))
	FieldID   *uint64         `json:"id_field"`    // schedule.id_field (nullable)
	UserID    *uint64         `json:"id_user"`     // schedule.id_user (nullable)
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RentStatusCancelled is the only rent status the engine interprets.  A
// rent whose status is "cancelled" (compared case-insensitively) no longer
// claims its schedule; every other status value is treated as opaque and
// keeps the rent "live".
const RentStatusCancelled = "cancelled"

// RentStatusPending is the default status assigned when a rent is created
// without an explicit status override.
const RentStatusPending = "pending"

// Rent is one reservation against a schedule.  The start/end window is
// always copied from the schedule; Minutes, Mount and Period are derived
// from it.  At most one non-cancelled rent may reference a schedule at any
// time.
//
// Fields:
//  ID              – primary key identifier.
//  Period          – human readable duration ("1 hour 30 minutes").
//  StartTime       – rent window start, copied from the schedule (UTC).
//  EndTime         – rent window end, copied from the schedule (UTC).
//  Initialized     – booking-intent window start; defaults to StartTime.
//  Finished        – booking-intent window end; defaults to EndTime.
//  Status          – free-form lifecycle status ("pending", "confirmed",
//                    "cancelled", ...).
//  Minutes         – window duration in minutes, 2 decimals, half-up.
//  Mount           – price charged, copied from the schedule price.
//  DateLog         – audit timestamp; defaults to StartTime.
//  DateCreate      – row creation timestamp (DB default).
//  Capacity        – player capacity, copied from the field when absent.
//  PaymentDeadline – moment by which the rent must be paid.
//  PaymentID       – optional reference to an external payment record.
//  ScheduleID      – schedule claimed by this rent.
type Rent struct {
	ID              uint64          `json:"id_rent"`
	Period          string          `json:"period"`
	StartTime       time.Time       `json:"start_time"`
	EndTime         time.Time       `json:"end_time"`
	Initialized     time.Time       `json:"initialized"`
	Finished        time.Time       `json:"finished"`
	Status          string          `json:"status"`
	Minutes         decimal.Decimal `json:"minutes"` // NUMERIC(6,2)
	Mount           decimal.Decimal `json:"mount"`   // NUMERIC(10,2)
	DateLog         time.Time       `json:"date_log"`
	DateCreate      time.Time       `json:"date_create"`
	Capacity        int             `json:"capacity"`
	PaymentDeadline time.Time       `json:"payment_deadline"`
	PaymentID       *uint64         `json:"id_payment"`
	ScheduleID      uint64          `json:"id_schedule"`
}

// RentDetail is a rent together with the resolved schedule, field and user
// summaries returned to API clients after create/update/get operations.
type RentDetail struct {
	Rent
	Schedule *Schedule `json:"schedule,omitempty"`
	Field    *Field    `json:"field,omitempty"`
	User     *User     `json:"user,omitempty"`
}

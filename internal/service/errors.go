// Package service implements the reservation lifecycle: rent
// create/update/delete orchestration, the schedule availability guard and
// the field occupancy state machine with its deferred recheck.
package service

import "errors"

// ErrScheduleConflict is returned when the target schedule is already
// claimed by a live (non-cancelled) rent.  Handlers map it to HTTP 409.
var ErrScheduleConflict = errors.New("schedule already has an active rent")

// ErrPaymentNotPaid is returned when a rent references a payment whose
// status is not "paid".  Handlers map it to HTTP 400.
var ErrPaymentNotPaid = errors.New("payment has not been completed")

// ErrInvalidRequest is returned for validation failures such as a missing
// capacity with no field to fall back on.  Handlers map it to HTTP 400.
var ErrInvalidRequest = errors.New("invalid request")

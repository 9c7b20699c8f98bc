// Package repository contains the data access layer.  This file defines
// sentinel error values shared across repositories so that higher layers
// can distinguish failure scenarios with errors.Is: missing rows map to
// specific not-found values, and ErrConflict signals that the exclusivity
// invariant (one live rent per schedule) blocked a write.
package repository

import "errors"

// ErrRentNotFound indicates that no rent row matched the requested ID.
var ErrRentNotFound = errors.New("rent not found")

// ErrScheduleNotFound indicates that no schedule row matched the requested ID.
var ErrScheduleNotFound = errors.New("schedule not found")

// ErrFieldNotFound indicates that no field row matched the requested ID.
var ErrFieldNotFound = errors.New("field not found")

// ErrUserNotFound indicates that no user row matched the requested ID.
var ErrUserNotFound = errors.New("user not found")

// ErrCampusNotFound indicates that no campus row matched the requested ID.
var ErrCampusNotFound = errors.New("campus not found")

// ErrPaymentNotFound indicates that no payment row matched the requested ID.
var ErrPaymentNotFound = errors.New("payment not found")

// ErrConflict is returned when an insert or update cannot proceed because
// another live rent already claims the target schedule.  Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// Package queue defines message payloads exchanged over the message broker
// plus the publisher and consumer for rent notifications.
package queue

// RentBookedEvent is published when a rent is successfully created.  It
// carries enough of the rent/user/field/campus summary for the
// notification service to compose an email without querying the primary
// database.
type RentBookedEvent struct {
	RentID     uint64  `json:"rent_id"`
	Status     string  `json:"status"`
	Period     string  `json:"period"`
	Minutes    string  `json:"minutes"`
	Mount      string  `json:"mount"`
	StartTime  string  `json:"start_time"`
	EndTime    string  `json:"end_time"`
	UserID     *uint64 `json:"user_id,omitempty"`
	UserName   string  `json:"user_name,omitempty"`
	UserEmail  string  `json:"user_email,omitempty"`
	FieldID    *uint64 `json:"field_id,omitempty"`
	FieldName  string  `json:"field_name,omitempty"`
	CampusName string  `json:"campus_name,omitempty"`
	BookedAt   string  `json:"booked_at"`
}

package model

// Field status values.  The status is a derived flag maintained by the
// occupancy recompute logic: "occupied" while at least one live rent exists
// under any schedule of the field, "active" otherwise.  It must never be
// written directly from user input.
const (
	FieldStatusActive   = "active"
	FieldStatusOccupied = "occupied"
)

// Field represents a bookable physical resource (a sports field) inside a
// campus.  The reservation service only reads fields, except for the
// derived Status column.
//
// Fields:
//  ID       – primary key identifier.
//  Name     – human readable field name.
//  Capacity – number of players the field supports; copied onto rents
//             when the caller does not specify one.
//  Status   – derived occupancy flag ("active" or "occupied").
//  CampusID – campus that owns the field.
type Field struct {
	ID       uint64 `json:"id_field"`    // field.id_field
	Name     string `json:"field_name"`  // field.field_name
	Capacity int    `json:"capacity"`    // field.capacity
	Status   string `json:"status"`      // field.status (derived, see above)
	CampusID uint64 `json:"id_campus"`   // field.id_campus
}

package model

// Campus groups fields under one venue.  The reservation engine only needs
// it for the summaries embedded in rent notifications.
type Campus struct {
	ID      uint64 `json:"id_campus"`   // campus.id_campus
	Name    string `json:"campus_name"` // campus.campus_name
	Address string `json:"address"`     // campus.address
}

package repository

import (
	"context"
	"database/sql"

	"github.com/sportfield/reservation/internal/model"
)

// FieldRepo provides the narrow field access the reservation engine needs:
// lookups, the live-rent-under-field query feeding occupancy recompute, and
// the derived status write.
type FieldRepo struct {
	db *sql.DB
}

// NewFieldRepo returns a new FieldRepo bound to the given database.
func NewFieldRepo(db *sql.DB) *FieldRepo { return &FieldRepo{db: db} }

// GetByID retrieves a field by its ID.  It returns ErrFieldNotFound when
// no matching row exists.
func (r *FieldRepo) GetByID(ctx context.Context, id uint64) (*model.Field, error) {
	const q = `SELECT id_field, field_name, capacity, status, id_campus FROM field WHERE id_field = ?`
	var f model.Field
	err := r.db.QueryRowContext(ctx, q, id).Scan(&f.ID, &f.Name, &f.Capacity, &f.Status, &f.CampusID)
	if err == sql.ErrNoRows {
		return nil, ErrFieldNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// HasLiveRent reports whether any schedule under the field is claimed by a
// rent whose status is outside excludedStatuses.  Deliberately not scoped
// to the current time window: a live rent marks the field occupied until a
// recompute observes its status change or the deferred recheck fires.
func (r *FieldRepo) HasLiveRent(ctx context.Context, fieldID uint64, excludedStatuses []string) (bool, error) {
	q := `SELECT 1 FROM rent r
	      JOIN schedule s ON s.id_schedule = r.id_schedule
	      WHERE s.id_field = ?`
	args := []interface{}{fieldID}
	clause, clauseArgs := notLiveClause("r.status", excludedStatuses)
	q += clause + " LIMIT 1"
	args = append(args, clauseArgs...)
	var one int
	err := r.db.QueryRowContext(ctx, q, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdateStatus writes the derived occupancy status.  The WHERE clause skips
// the write when the stored value already matches, so redundant recomputes
// do not churn row timestamps.
func (r *FieldRepo) UpdateStatus(ctx context.Context, fieldID uint64, status string) error {
	const q = `UPDATE field SET status = ? WHERE id_field = ? AND LOWER(status) <> LOWER(?)`
	_, err := r.db.ExecContext(ctx, q, status, fieldID, status)
	return err
}

// GetCampus retrieves the campus a field belongs to.  Used only for the
// summaries embedded in rent notifications.
func (r *FieldRepo) GetCampus(ctx context.Context, campusID uint64) (*model.Campus, error) {
	const q = `SELECT id_campus, campus_name, address FROM campus WHERE id_campus = ?`
	var c model.Campus
	err := r.db.QueryRowContext(ctx, q, campusID).Scan(&c.ID, &c.Name, &c.Address)
	if err == sql.ErrNoRows {
		return nil, ErrCampusNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

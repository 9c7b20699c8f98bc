package repository

import (
	"context"
	"database/sql"

	"github.com/sportfield/reservation/internal/model"
)

// ScheduleRepo manages persistence for schedules (bookable time slots).
// Schedules are owned by the catalog; this service reads them for rent
// creation and offers plain CRUD so venue managers can maintain the
// reservation-specific copy.
type ScheduleRepo struct {
	db *sql.DB
}

// NewScheduleRepo constructs a ScheduleRepo with the given DB handle.
func NewScheduleRepo(db *sql.DB) *ScheduleRepo { return &ScheduleRepo{db: db} }

// DB exposes the underlying sql.DB.
func (r *ScheduleRepo) DB() *sql.DB { return r.db }

const scheduleColumns = `id_schedule, day_of_week, start_time, end_time, status, price, id_field, id_user`

func scanSchedule(row interface {
	Scan(dest ...interface{}) error
}, s *model.Schedule) error {
	var fieldID, userID sql.NullInt64
	err := row.Scan(&s.ID, &s.DayOfWeek, &s.StartTime, &s.EndTime, &s.Status, &s.Price, &fieldID, &userID)
	if err != nil {
		return err
	}
	if fieldID.Valid {
		id := uint64(fieldID.Int64)
		s.FieldID = &id
	}
	if userID.Valid {
		id := uint64(userID.Int64)
		s.UserID = &id
	}
	return nil
}

// GetByID retrieves a schedule by its ID.  It returns ErrScheduleNotFound
// when no matching row exists.
func (r *ScheduleRepo) GetByID(ctx context.Context, id uint64) (*model.Schedule, error) {
	const q = `SELECT ` + scheduleColumns + ` FROM schedule WHERE id_schedule = ?`
	var s model.Schedule
	if err := scanSchedule(r.db.QueryRowContext(ctx, q, id), &s); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ScheduleFilter narrows List results.  Nil pointers leave the
// corresponding dimension unfiltered.
type ScheduleFilter struct {
	FieldID   *uint64
	DayOfWeek *string
	Status    *string
}

// List returns schedules matching the filter, ordered by start time.
func (r *ScheduleRepo) List(ctx context.Context, filter ScheduleFilter) ([]model.Schedule, error) {
	q := `SELECT ` + scheduleColumns + ` FROM schedule WHERE 1 = 1`
	args := make([]interface{}, 0, 3)
	if filter.FieldID != nil {
		q += " AND id_field = ?"
		args = append(args, *filter.FieldID)
	}
	if filter.DayOfWeek != nil {
		q += " AND day_of_week = ?"
		args = append(args, *filter.DayOfWeek)
	}
	if filter.Status != nil {
		q += " AND status = ?"
		args = append(args, *filter.Status)
	}
	q += " ORDER BY start_time"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	schedules := make([]model.Schedule, 0)
	for rows.Next() {
		var s model.Schedule
		if err := scanSchedule(rows, &s); err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return schedules, nil
}

// ListAvailable returns the schedules of a field that are not claimed by a
// live rent.  excludedStatuses lists the rent statuses that do NOT block a
// schedule (normally just "cancelled"); the comparison is
// case-insensitive.  Optional day and status filters apply before the
// availability rule.
func (r *ScheduleRepo) ListAvailable(ctx context.Context, fieldID uint64, dayOfWeek, status *string, excludedStatuses []string) ([]model.Schedule, error) {
	q := `SELECT ` + scheduleColumns + ` FROM schedule WHERE id_field = ?`
	args := []interface{}{fieldID}
	if dayOfWeek != nil {
		q += " AND day_of_week = ?"
		args = append(args, *dayOfWeek)
	}
	if status != nil {
		q += " AND status = ?"
		args = append(args, *status)
	}
	// Exclude schedules referenced by any rent whose status is outside the
	// excluded set.
	sub := `SELECT 1 FROM rent WHERE rent.id_schedule = schedule.id_schedule`
	clause, clauseArgs := notLiveClause("rent.status", excludedStatuses)
	q += " AND NOT EXISTS (" + sub + clause + ")"
	args = append(args, clauseArgs...)
	q += " ORDER BY start_time"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	schedules := make([]model.Schedule, 0)
	for rows.Next() {
		var s model.Schedule
		if err := scanSchedule(rows, &s); err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return schedules, nil
}

// Create inserts a new schedule and assigns the generated ID back to the
// given struct.
func (r *ScheduleRepo) Create(ctx context.Context, s *model.Schedule) error {
	const q = `INSERT INTO schedule (day_of_week, start_time, end_time, status, price, id_field, id_user)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		s.DayOfWeek, dbTime(s.StartTime), dbTime(s.EndTime), s.Status, s.Price,
		nullableID(s.FieldID), nullableID(s.UserID),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// Update persists changes to an existing schedule.  It returns
// ErrScheduleNotFound when the row does not exist.
func (r *ScheduleRepo) Update(ctx context.Context, s *model.Schedule) error {
	const q = `UPDATE schedule SET day_of_week = ?, start_time = ?, end_time = ?, status = ?, price = ?, id_field = ?, id_user = ?
	           WHERE id_schedule = ?`
	res, err := r.db.ExecContext(ctx, q,
		s.DayOfWeek, dbTime(s.StartTime), dbTime(s.EndTime), s.Status, s.Price,
		nullableID(s.FieldID), nullableID(s.UserID), s.ID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var one int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM schedule WHERE id_schedule = ?`, s.ID).Scan(&one); err == sql.ErrNoRows {
			return ErrScheduleNotFound
		} else if err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a schedule by ID.  It returns ErrScheduleNotFound when no
// row was deleted.
func (r *ScheduleRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schedule WHERE id_schedule = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

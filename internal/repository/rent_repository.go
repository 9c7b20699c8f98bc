package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/sportfield/reservation/internal/model"
)

// dbTimeLayout is the DATETIME format used when binding time parameters.
// Reads come back as time.Time because the DSN sets parseTime=true&loc=UTC.
const dbTimeLayout = "2006-01-02 15:04:05"

func dbTime(t time.Time) string { return t.UTC().Format(dbTimeLayout) }

// RentRepo provides CRUD operations for rents.  All timestamps are stored
// in UTC.  Writes that claim a schedule go through CreateExclusive and
// UpdateExclusive, which serialize on the schedule row so that the
// one-live-rent-per-schedule invariant holds even under concurrent
// requests; the application-level HasLiveRent check alone is only a
// best-effort pre-check.
type RentRepo struct {
	db *sql.DB
}

// NewRentRepo returns a new RentRepo bound to the given database.
func NewRentRepo(db *sql.DB) *RentRepo { return &RentRepo{db: db} }

// DB exposes the underlying sql.DB for callers that need to begin
// transactions spanning multiple repositories.
func (r *RentRepo) DB() *sql.DB { return r.db }

// rentColumns is the column list shared by every rent SELECT.
const rentColumns = `r.id_rent, r.period, r.start_time, r.end_time, r.initialized, r.finished,
       r.status, r.minutes, r.mount, r.date_log, r.date_create, r.capacity,
       r.payment_deadline, r.id_payment, r.id_schedule`

func scanRent(row interface {
	Scan(dest ...interface{}) error
}, rent *model.Rent) error {
	var paymentID sql.NullInt64
	err := row.Scan(
		&rent.ID, &rent.Period, &rent.StartTime, &rent.EndTime, &rent.Initialized, &rent.Finished,
		&rent.Status, &rent.Minutes, &rent.Mount, &rent.DateLog, &rent.DateCreate, &rent.Capacity,
		&rent.PaymentDeadline, &paymentID, &rent.ScheduleID,
	)
	if err != nil {
		return err
	}
	if paymentID.Valid {
		id := uint64(paymentID.Int64)
		rent.PaymentID = &id
	}
	return nil
}

// notLiveClause builds a "LOWER(status) NOT IN (...)" fragment for the
// given excluded statuses.  Empty or blank entries are dropped; when no
// usable status remains the clause is empty and every rent counts as live.
func notLiveClause(column string, excluded []string) (string, []interface{}) {
	args := make([]interface{}, 0, len(excluded))
	marks := make([]string, 0, len(excluded))
	for _, s := range excluded {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		args = append(args, strings.ToLower(s))
		marks = append(marks, "?")
	}
	if len(args) == 0 {
		return "", nil
	}
	return " AND LOWER(" + column + ") NOT IN (" + strings.Join(marks, ",") + ")", args
}

// GetByID retrieves a rent by its ID.  It returns ErrRentNotFound when no
// matching row exists.
func (r *RentRepo) GetByID(ctx context.Context, id uint64) (*model.Rent, error) {
	const q = `SELECT ` + rentColumns + ` FROM rent r WHERE r.id_rent = ?`
	var rent model.Rent
	if err := scanRent(r.db.QueryRowContext(ctx, q, id), &rent); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRentNotFound
		}
		return nil, err
	}
	return &rent, nil
}

// RentFilter narrows List results.  Nil pointers leave the corresponding
// dimension unfiltered.  FieldID, UserID and CampusID filter through the
// rent's schedule.  SortDesc orders by start time newest-first and is used
// for the user rent history listing.
type RentFilter struct {
	Status     *string
	ScheduleID *uint64
	FieldID    *uint64
	UserID     *uint64
	CampusID   *uint64
	SortDesc   bool
}

// detailQuery is the joined SELECT shared by List and GetDetail.
const detailQuery = `SELECT ` + rentColumns + `,
       s.id_schedule, s.day_of_week, s.start_time, s.end_time, s.status, s.price, s.id_field, s.id_user,
       f.id_field, f.field_name, f.capacity, f.status, f.id_campus,
       u.id_user, u.name, u.email
FROM rent r
JOIN schedule s ON s.id_schedule = r.id_schedule
LEFT JOIN field f ON f.id_field = s.id_field
LEFT JOIN users u ON u.id_user = s.id_user
WHERE 1 = 1`

// List returns rents matching the filter, ordered by start time.  Each
// returned detail carries the resolved schedule plus the field and user
// referenced by it, when present.
func (r *RentRepo) List(ctx context.Context, filter RentFilter) ([]model.RentDetail, error) {
	q := detailQuery
	args := make([]interface{}, 0, 4)
	if filter.Status != nil {
		q += " AND r.status = ?"
		args = append(args, *filter.Status)
	}
	if filter.ScheduleID != nil {
		q += " AND r.id_schedule = ?"
		args = append(args, *filter.ScheduleID)
	}
	if filter.FieldID != nil {
		q += " AND s.id_field = ?"
		args = append(args, *filter.FieldID)
	}
	if filter.UserID != nil {
		q += " AND s.id_user = ?"
		args = append(args, *filter.UserID)
	}
	if filter.CampusID != nil {
		q += " AND f.id_campus = ?"
		args = append(args, *filter.CampusID)
	}
	if filter.SortDesc {
		q += " ORDER BY r.start_time DESC"
	} else {
		q += " ORDER BY r.start_time"
	}
	return r.queryDetails(ctx, q, args...)
}

func (r *RentRepo) queryDetails(ctx context.Context, q string, args ...interface{}) ([]model.RentDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]model.RentDetail, 0)
	for rows.Next() {
		var (
			d          model.RentDetail
			paymentID  sql.NullInt64
			sched      model.Schedule
			schedField sql.NullInt64
			schedUser  sql.NullInt64
			fID        sql.NullInt64
			fName      sql.NullString
			fCapacity  sql.NullInt64
			fStatus    sql.NullString
			fCampus    sql.NullInt64
			uID        sql.NullInt64
			uName      sql.NullString
			uEmail     sql.NullString
		)
		if err := rows.Scan(
			&d.ID, &d.Period, &d.StartTime, &d.EndTime, &d.Initialized, &d.Finished,
			&d.Status, &d.Minutes, &d.Mount, &d.DateLog, &d.DateCreate, &d.Capacity,
			&d.PaymentDeadline, &paymentID, &d.ScheduleID,
			&sched.ID, &sched.DayOfWeek, &sched.StartTime, &sched.EndTime, &sched.Status, &sched.Price, &schedField, &schedUser,
			&fID, &fName, &fCapacity, &fStatus, &fCampus,
			&uID, &uName, &uEmail,
		); err != nil {
			return nil, err
		}
		if paymentID.Valid {
			id := uint64(paymentID.Int64)
			d.PaymentID = &id
		}
		if schedField.Valid {
			id := uint64(schedField.Int64)
			sched.FieldID = &id
		}
		if schedUser.Valid {
			id := uint64(schedUser.Int64)
			sched.UserID = &id
		}
		d.Schedule = &sched
		if fID.Valid {
			d.Field = &model.Field{
				ID:       uint64(fID.Int64),
				Name:     fName.String,
				Capacity: int(fCapacity.Int64),
				Status:   fStatus.String,
				CampusID: uint64(fCampus.Int64),
			}
		}
		if uID.Valid {
			d.User = &model.User{ID: uint64(uID.Int64), Name: uName.String, Email: uEmail.String}
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// GetDetail loads a single rent with its resolved schedule, field and user
// summaries.  It returns ErrRentNotFound when the rent does not exist.
func (r *RentRepo) GetDetail(ctx context.Context, id uint64) (*model.RentDetail, error) {
	details, err := r.queryDetails(ctx, detailQuery+" AND r.id_rent = ?", id)
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return nil, ErrRentNotFound
	}
	return &details[0], nil
}

// HasLiveRent reports whether a rent references scheduleID with a status
// outside excludedStatuses (compared case-insensitively), optionally
// ignoring one specific rent so updates do not conflict with themselves.
func (r *RentRepo) HasLiveRent(ctx context.Context, scheduleID uint64, excludedStatuses []string, excludeRentID *uint64) (bool, error) {
	return hasLiveRent(ctx, r.db, scheduleID, excludedStatuses, excludeRentID)
}

// querier is the subset of sql.DB/sql.Tx used by the live-rent check so it
// can run both standalone and inside the exclusive-write transactions.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func hasLiveRent(ctx context.Context, q querier, scheduleID uint64, excludedStatuses []string, excludeRentID *uint64) (bool, error) {
	query := `SELECT 1 FROM rent WHERE id_schedule = ?`
	args := []interface{}{scheduleID}
	if excludeRentID != nil {
		query += " AND id_rent <> ?"
		args = append(args, *excludeRentID)
	}
	clause, clauseArgs := notLiveClause("status", excludedStatuses)
	query += clause + " LIMIT 1"
	args = append(args, clauseArgs...)
	var one int
	err := q.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateExclusive inserts a new rent while enforcing the exclusivity
// invariant.  It opens a transaction, locks the schedule row with
// SELECT ... FOR UPDATE, re-runs the live-rent check under the lock and
// only then inserts.  Concurrent creators against the same schedule
// serialize on the row lock, so the loser observes the winner's committed
// rent and receives ErrConflict.  On success the generated ID and DB
// defaults are populated on the given rent.
func (r *RentRepo) CreateExclusive(ctx context.Context, rent *model.Rent, excludedStatuses []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := lockSchedule(ctx, tx, rent.ScheduleID); err != nil {
		return err
	}
	live, err := hasLiveRent(ctx, tx, rent.ScheduleID, excludedStatuses, nil)
	if err != nil {
		return err
	}
	if live {
		return ErrConflict
	}

	const q = `INSERT INTO rent
	        (period, start_time, end_time, initialized, finished, status, minutes, mount,
	         date_log, capacity, payment_deadline, id_payment, id_schedule)
	        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		rent.Period, dbTime(rent.StartTime), dbTime(rent.EndTime),
		dbTime(rent.Initialized), dbTime(rent.Finished), rent.Status,
		rent.Minutes, rent.Mount, dbTime(rent.DateLog), rent.Capacity,
		dbTime(rent.PaymentDeadline), nullableID(rent.PaymentID), rent.ScheduleID,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rent.ID = uint64(id)
	// Query the row back so date_create and normalized timestamps are
	// populated from the database.
	const sel = `SELECT ` + rentColumns + ` FROM rent r WHERE r.id_rent = ?`
	if err := scanRent(tx.QueryRowContext(ctx, sel, rent.ID), rent); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// UpdateExclusive persists changes to an existing rent.  When guardSchedule
// is true (the caller retargeted the schedule) the target schedule row is
// locked and the live-rent check re-run excluding the rent itself, exactly
// like CreateExclusive.
func (r *RentRepo) UpdateExclusive(ctx context.Context, rent *model.Rent, guardSchedule bool, excludedStatuses []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if guardSchedule {
		if err := lockSchedule(ctx, tx, rent.ScheduleID); err != nil {
			return err
		}
		excludeID := rent.ID
		live, err := hasLiveRent(ctx, tx, rent.ScheduleID, excludedStatuses, &excludeID)
		if err != nil {
			return err
		}
		if live {
			return ErrConflict
		}
	}

	const q = `UPDATE rent SET
	        period = ?, start_time = ?, end_time = ?, initialized = ?, finished = ?,
	        status = ?, minutes = ?, mount = ?, date_log = ?, capacity = ?,
	        payment_deadline = ?, id_payment = ?, id_schedule = ?
	        WHERE id_rent = ?`
	res, err := tx.ExecContext(ctx, q,
		rent.Period, dbTime(rent.StartTime), dbTime(rent.EndTime),
		dbTime(rent.Initialized), dbTime(rent.Finished), rent.Status,
		rent.Minutes, rent.Mount, dbTime(rent.DateLog), rent.Capacity,
		dbTime(rent.PaymentDeadline), nullableID(rent.PaymentID), rent.ScheduleID,
		rent.ID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Distinguish a vanished row from a no-op update.
		var one int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM rent WHERE id_rent = ?`, rent.ID).Scan(&one); err == sql.ErrNoRows {
			return ErrRentNotFound
		} else if err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Delete removes a rent by ID.  It returns ErrRentNotFound when no row was
// deleted.
func (r *RentRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rent WHERE id_rent = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRentNotFound
	}
	return nil
}

// lockSchedule takes a row lock on the schedule so that guard-check and
// insert/update execute atomically with respect to concurrent bookings of
// the same slot.
func lockSchedule(ctx context.Context, tx *sql.Tx, scheduleID uint64) error {
	var id uint64
	err := tx.QueryRowContext(ctx, `SELECT id_schedule FROM schedule WHERE id_schedule = ? FOR UPDATE`, scheduleID).Scan(&id)
	if err == sql.ErrNoRows {
		return ErrScheduleNotFound
	}
	return err
}

func nullableID(id *uint64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

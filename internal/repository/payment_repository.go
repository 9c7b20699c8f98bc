package repository

import (
	"context"
	"database/sql"

	"github.com/sportfield/reservation/internal/model"
)

// PaymentRepo reads payment records owned by the payment service.  The
// reservation engine only checks the status before attaching a payment
// reference to a rent.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// GetByID retrieves a payment by its ID.  It returns ErrPaymentNotFound
// when no matching row exists.
func (r *PaymentRepo) GetByID(ctx context.Context, id uint64) (*model.Payment, error) {
	const q = `SELECT id_payment, amount, method, status FROM payment WHERE id_payment = ?`
	var p model.Payment
	err := r.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Amount, &p.Method, &p.Status)
	if err == sql.ErrNoRows {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

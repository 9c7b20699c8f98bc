package model

import "github.com/shopspring/decimal"

// PaymentStatusPaid is the status a payment must carry (case-insensitively)
// before a rent may reference it.
const PaymentStatusPaid = "paid"

// Payment is a read-only view of a payment record owned by the payment
// service.  Only the status matters to the reservation engine.
type Payment struct {
	ID     uint64          `json:"id_payment"` // payment.id_payment
	Amount decimal.Decimal `json:"amount"`     // payment.amount
	Method string          `json:"method"`     // payment.method
	Status string          `json:"status"`     // payment.status
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentOverdue PaymentStatus = "overdue"
)

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCheque       PaymentMethod = "cheque"
	PaymentCard         PaymentMethod = "card"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case "", PaymentCash, PaymentBankTransfer, PaymentCheque, PaymentCard:
		return true
	}
	return false
}

type Payment struct {
	ID            int64
	ContractID    int64
	Amount        decimal.Decimal
	DueDate       time.Time
	PaidDate      *time.Time
	Status        PaymentStatus
	PaymentMethod PaymentMethod
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DerivePaymentStatus computes the status from the dates alone. The stored
// column is never trusted: it goes stale as soon as a due date passes.
func DerivePaymentStatus(p Payment, now time.Time) PaymentStatus {
	if p.PaidDate != nil {
		return PaymentPaid
	}
	if Date(now).After(Date(p.DueDate)) {
		return PaymentOverdue
	}
	return PaymentPending
}

// WithDerivedStatus returns p with Status recomputed at now.
func (p Payment) WithDerivedStatus(now time.Time) Payment {
	p.Status = DerivePaymentStatus(p, now)
	return p
}

func (p Payment) Snapshot() map[string]any {
	out := map[string]any{
		"id":          p.ID,
		"contract_id": p.ContractID,
		"amount":      p.Amount.StringFixed(2),
		"due_date":    Date(p.DueDate).Format(time.DateOnly),
		"status":      string(p.Status),
	}
	if p.PaidDate != nil {
		out["paid_date"] = Date(*p.PaidDate).Format(time.DateOnly)
	}
	if p.PaymentMethod != "" {
		out["payment_method"] = string(p.PaymentMethod)
	}
	if p.Notes != "" {
		out["notes"] = p.Notes
	}
	return out
}

// Date truncates t to midnight UTC of its UTC calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

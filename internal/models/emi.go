package models

import (
	"errors"
	"time"
)

// EMIStatus defines the status of an EMI (equated installment)
type EMIStatus string

const (
	EMIStatusPending  EMIStatus = "pending"
	EMIStatusPartial  EMIStatus = "partial"
	EMIStatusPaid     EMIStatus = "paid"
	EMIStatusOverdue  EMIStatus = "overdue"
	EMIStatusDueToday EMIStatus = "due_today"
	EMIStatusUpcoming EMIStatus = "upcoming"
)

// EMI represents a single scheduled installment of a loan
type EMI struct {
	ID                 int        `json:"id" db:"id"`
	LoanID             int        `json:"loan_id" db:"loan_id"`
	EMINumber          int        `json:"emi_number" db:"emi_number"`
	DueDate            time.Time  `json:"due_date" db:"due_date"`
	Amount             float64    `json:"amount" db:"amount"`
	PaidAmount         float64    `json:"paid_amount" db:"paid_amount"`
	PaidDate           *time.Time `json:"paid_date,omitempty" db:"paid_date"`
	Status             EMIStatus  `json:"status" db:"status"`
	LateFee            float64    `json:"late_fee,omitempty" db:"late_fee"`
	PenaltyAmount      float64    `json:"penalty_amount,omitempty" db:"penalty_amount"`
	PrincipalComponent *float64   `json:"principal_component,omitempty" db:"principal_component"`
	InterestComponent  *float64   `json:"interest_component,omitempty" db:"interest_component"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// RecordPaymentRequest represents a payment recorded against an EMI
type RecordPaymentRequest struct {
	Amount float64 `json:"amount" binding:"required"`
	Method string  `json:"method,omitempty"`
	Notes  string  `json:"notes,omitempty"`
}

// ValidateRecordPayment validates a payment recording request
func (r *RecordPaymentRequest) ValidateRecordPayment() error {
	if r.Amount <= 0 {
		return errors.New("amount must be positive")
	}

	return nil
}

// CalculateEMIStatus derives the status of an installment from its due date
// and paid amount. Rules are evaluated in order, first match wins:
//
//  1. paid      - paid amount covers the installment
//  2. partial   - something was paid but not everything
//  3. overdue   - nothing paid and the due date has passed
//  4. due_today - nothing paid and the due date is today
//  5. upcoming  - otherwise
//
// A partially paid installment stays "partial" even past its due date;
// overdue counts downstream rely on that precedence.
func CalculateEMIStatus(dueDate time.Time, amount, paidAmount float64, today time.Time) EMIStatus {
	if paidAmount >= amount {
		return EMIStatusPaid
	}

	if paidAmount > 0 {
		return EMIStatusPartial
	}

	due := dateOnly(dueDate)
	now := dateOnly(today)

	if due.Before(now) {
		return EMIStatusOverdue
	}

	if due.Equal(now) {
		return EMIStatusDueToday
	}

	return EMIStatusUpcoming
}

// DeriveStatus reclassifies the EMI against the given date and reports
// whether the stored status changed.
func (e *EMI) DeriveStatus(today time.Time) bool {
	status := CalculateEMIStatus(e.DueDate, e.Amount, e.PaidAmount, today)
	if status == e.Status {
		return false
	}

	e.Status = status
	return true
}

// PaidPortion returns the paid amount capped at the installment amount.
// Excess payments are not modeled.
func (e *EMI) PaidPortion() float64 {
	if e.PaidAmount > e.Amount {
		return e.Amount
	}
	return e.PaidAmount
}

// IsSettled reports whether the installment is fully paid
func (e *EMI) IsSettled() bool {
	return e.PaidAmount >= e.Amount
}

// dateOnly strips the time-of-day so due date comparisons are calendar based
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

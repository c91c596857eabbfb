package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaymentMethod defines how a repayment was made
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodUPI          PaymentMethod = "upi"
	PaymentMethodOther        PaymentMethod = "other"
)

// PaymentStatus defines the status of a recorded payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment represents a repayment recorded against a loan, usually tied to a
// specific EMI
type Payment struct {
	ID            int           `json:"id" db:"id"`
	LoanID        int           `json:"loan_id" db:"loan_id"`
	EMIID         *int          `json:"emi_id,omitempty" db:"emi_id"`
	Amount        float64       `json:"amount" db:"amount"`
	PaymentDate   time.Time     `json:"payment_date" db:"payment_date"`
	Method        PaymentMethod `json:"method" db:"method"`
	ReferenceCode string        `json:"reference_code" db:"reference_code"`
	Status        PaymentStatus `json:"status" db:"status"`
	Notes         string        `json:"notes,omitempty" db:"notes"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

// GeneratePaymentReference generates a unique payment reference code
func GeneratePaymentReference() string {
	id := strings.ToUpper(uuid.New().String())
	return "PAY-" + id[:12]
}

// NormalizeMethod maps free-text method strings onto the known set
func NormalizeMethod(method string) PaymentMethod {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(method))) {
	case PaymentMethodCash:
		return PaymentMethodCash
	case PaymentMethodBankTransfer:
		return PaymentMethodBankTransfer
	case PaymentMethodUPI:
		return PaymentMethodUPI
	default:
		return PaymentMethodOther
	}
}

// NewEMIPayment builds a completed payment row for an amount received against
// an installment
func NewEMIPayment(loanID, emiID int, amount float64, method PaymentMethod, notes string, now time.Time) *Payment {
	return &Payment{
		LoanID:        loanID,
		EMIID:         &emiID,
		Amount:        amount,
		PaymentDate:   now,
		Method:        method,
		ReferenceCode: GeneratePaymentReference(),
		Status:        PaymentStatusCompleted,
		Notes:         notes,
	}
}

package models

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LoanStatus defines the lifecycle status of a loan
type LoanStatus string

const (
	LoanStatusPending   LoanStatus = "pending"
	LoanStatusApproved  LoanStatus = "approved"
	LoanStatusActive    LoanStatus = "active"
	LoanStatusDisbursed LoanStatus = "disbursed"
	LoanStatusOverdue   LoanStatus = "overdue"
	LoanStatusCompleted LoanStatus = "completed"
)

// TenureUnit defines the repayment period unit of a loan
type TenureUnit string

const (
	TenureUnitDays   TenureUnit = "days"
	TenureUnitWeeks  TenureUnit = "weeks"
	TenureUnitMonths TenureUnit = "months"
)

// Share of a payment attributed to interest when an EMI carries no
// principal/interest breakdown. A rough placeholder, not amortization
// arithmetic; summaries built on it are flagged as estimated.
const estimatedInterestShare = 0.3

// Loan represents a microloan issued by a lender to a borrower
type Loan struct {
	ID               int        `json:"id" db:"id"`
	LoanNumber       string     `json:"loan_number" db:"loan_number"`
	LenderID         int        `json:"lender_id" db:"lender_id"`
	BorrowerID       int        `json:"borrower_id" db:"borrower_id"`
	PrincipalAmount  float64    `json:"principal_amount" db:"principal_amount"`
	TotalAmount      float64    `json:"total_amount" db:"total_amount"`
	InterestRate     float64    `json:"interest_rate" db:"interest_rate"`
	TenureValue      int        `json:"tenure_value" db:"tenure_value"`
	TenureUnit       TenureUnit `json:"tenure_unit" db:"tenure_unit"`
	Status           LoanStatus `json:"status" db:"status"`
	DisbursementDate *time.Time `json:"disbursement_date,omitempty" db:"disbursement_date"`
	IsDeleted        bool       `json:"is_deleted" db:"is_deleted"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// LoanRequest represents a loan issuance request from a lender
type LoanRequest struct {
	BorrowerID      int        `json:"borrower_id" binding:"required"`
	PrincipalAmount float64    `json:"principal_amount" binding:"required"`
	InterestRate    float64    `json:"interest_rate" binding:"required"`
	TenureValue     int        `json:"tenure_value" binding:"required"`
	TenureUnit      TenureUnit `json:"tenure_unit" binding:"required"`
}

// LoanSummary represents derived repayment figures for a loan
type LoanSummary struct {
	TotalEMIs          int        `json:"total_emis"`
	PaidEMIs           int        `json:"paid_emis"`
	PendingEMIs        int        `json:"pending_emis"`
	OverdueEMIs        int        `json:"overdue_emis"`
	TotalPaid          float64    `json:"total_paid"`
	OutstandingBalance float64    `json:"outstanding_balance"`
	NextDueDate        *time.Time `json:"next_due_date,omitempty"`
	NextDueEMINumber   int        `json:"next_due_emi_number,omitempty"`
	NextDueAmount      float64    `json:"next_due_amount,omitempty"`
	CompletionPercent  float64    `json:"completion_percent"`
	PrincipalPaid      float64    `json:"principal_paid"`
	InterestPaid       float64    `json:"interest_paid"`
	PrincipalRemaining float64    `json:"principal_remaining"`
	InterestRemaining  float64    `json:"interest_remaining"`
	// EstimatedSplit is set when any EMI lacked a principal/interest
	// breakdown and the flat estimate filled the gap. Estimated splits
	// must not be treated as authoritative interest accounting.
	EstimatedSplit bool `json:"estimated_split"`
}

// LoanWithSummary pairs a loan with its derived repayment figures for
// portfolio views
type LoanWithSummary struct {
	Loan    *Loan        `json:"loan"`
	Summary *LoanSummary `json:"summary"`
}

// ValidateLoanRequest validates loan issuance data
func (l *LoanRequest) ValidateLoanRequest() error {
	if l.BorrowerID <= 0 {
		return errors.New("borrower is required")
	}

	if l.PrincipalAmount <= 0 {
		return errors.New("principal amount must be positive")
	}

	if l.InterestRate < 0 {
		return errors.New("interest rate cannot be negative")
	}

	switch l.TenureUnit {
	case TenureUnitDays, TenureUnitWeeks, TenureUnitMonths:
		// Valid tenure unit
	default:
		return errors.New("invalid tenure unit")
	}

	if l.TenureValue < 1 || l.TenureValue > 360 {
		return errors.New("tenure must be between 1 and 360 periods")
	}

	return nil
}

// ToLoan converts LoanRequest to Loan
func (l *LoanRequest) ToLoan(lenderID int) *Loan {
	totalAmount := roundToTwoDecimal(l.PrincipalAmount * (1 + l.InterestRate/100))

	return &Loan{
		LoanNumber:      GenerateLoanNumber(),
		LenderID:        lenderID,
		BorrowerID:      l.BorrowerID,
		PrincipalAmount: l.PrincipalAmount,
		TotalAmount:     totalAmount,
		InterestRate:    l.InterestRate,
		TenureValue:     l.TenureValue,
		TenureUnit:      l.TenureUnit,
		Status:          LoanStatusPending,
	}
}

// GenerateLoanNumber generates a unique human-readable loan number
func GenerateLoanNumber() string {
	id := strings.ToUpper(uuid.New().String())
	return "ML-" + id[:8]
}

// CalculateLoanStatus reconciles a loan's stored status with live EMI data so
// stale labels are never surfaced. Checks run in order, first match wins:
//
//  1. completed - fully repaid and every installment settled
//  2. overdue   - outstanding balance with a missed installment; uses the
//     per-EMI list when available, otherwise the next due date
//  3. active    - repayment in progress or funds disbursed
//  4. pending   - approved but not yet disbursed
//  5. the stored status, unchanged
func CalculateLoanStatus(loan *Loan, summary *LoanSummary, emis []*EMI, today time.Time) LoanStatus {
	if summary.OutstandingBalance <= 0 && summary.TotalEMIs > 0 && summary.PaidEMIs == summary.TotalEMIs {
		return LoanStatusCompleted
	}

	if summary.TotalEMIs > 0 && summary.OutstandingBalance > 0 {
		if hasMissedEMI(emis, summary, today) {
			return LoanStatusOverdue
		}

		if summary.PaidEMIs > 0 || loan.DisbursementDate != nil {
			return LoanStatusActive
		}
	}

	if loan.Status == LoanStatusApproved && loan.DisbursementDate == nil {
		return LoanStatusPending
	}

	return loan.Status
}

// hasMissedEMI checks for a past-due unpaid installment, falling back to the
// summary's next due date when no per-EMI data was fetched
func hasMissedEMI(emis []*EMI, summary *LoanSummary, today time.Time) bool {
	now := dateOnly(today)

	if len(emis) > 0 {
		for _, emi := range emis {
			if dateOnly(emi.DueDate).Before(now) && emi.PaidAmount < emi.Amount {
				return true
			}
		}
		return false
	}

	return summary.NextDueDate != nil && dateOnly(*summary.NextDueDate).Before(now)
}

// CalculateLoanSummary computes repayment aggregates for a loan over its full
// EMI list. Pure computation over already-fetched rows.
func CalculateLoanSummary(loan *Loan, emis []*EMI, today time.Time) *LoanSummary {
	summary := &LoanSummary{
		TotalEMIs: len(emis),
	}

	var nextDue *EMI

	for _, emi := range emis {
		paidPortion := emi.PaidPortion()
		summary.TotalPaid += paidPortion

		switch CalculateEMIStatus(emi.DueDate, emi.Amount, emi.PaidAmount, today) {
		case EMIStatusPaid:
			summary.PaidEMIs++
		case EMIStatusOverdue:
			summary.OverdueEMIs++
		}

		// Next due: earliest unpaid or partial installment, list order
		// breaks ties
		if !emi.IsSettled() {
			if nextDue == nil || dateOnly(emi.DueDate).Before(dateOnly(nextDue.DueDate)) {
				nextDue = emi
			}
		}

		addComponentSplit(summary, emi, paidPortion)
	}

	summary.PendingEMIs = summary.TotalEMIs - summary.PaidEMIs - summary.OverdueEMIs

	summary.OutstandingBalance = loan.TotalAmount - summary.TotalPaid
	if summary.OutstandingBalance < 0 {
		summary.OutstandingBalance = 0
	}

	if nextDue != nil {
		due := nextDue.DueDate
		summary.NextDueDate = &due
		summary.NextDueEMINumber = nextDue.EMINumber
		summary.NextDueAmount = roundToTwoDecimal(nextDue.Amount - nextDue.PaidPortion())
	}

	if summary.TotalEMIs > 0 {
		summary.CompletionPercent = roundToTwoDecimal(float64(summary.PaidEMIs) / float64(summary.TotalEMIs) * 100)
	}

	summary.TotalPaid = roundToTwoDecimal(summary.TotalPaid)
	summary.OutstandingBalance = roundToTwoDecimal(summary.OutstandingBalance)
	summary.PrincipalPaid = roundToTwoDecimal(summary.PrincipalPaid)
	summary.InterestPaid = roundToTwoDecimal(summary.InterestPaid)
	summary.PrincipalRemaining = roundToTwoDecimal(summary.PrincipalRemaining)
	summary.InterestRemaining = roundToTwoDecimal(summary.InterestRemaining)

	return summary
}

// addComponentSplit folds one EMI into the principal/interest buckets. EMIs
// with a stored breakdown contribute their exact components; EMIs without one
// contribute the flat estimate and mark the summary as estimated.
func addComponentSplit(summary *LoanSummary, emi *EMI, paidPortion float64) {
	if emi.PrincipalComponent != nil && emi.InterestComponent != nil {
		if emi.IsSettled() {
			summary.PrincipalPaid += *emi.PrincipalComponent
			summary.InterestPaid += *emi.InterestComponent
		} else {
			summary.PrincipalRemaining += *emi.PrincipalComponent
			summary.InterestRemaining += *emi.InterestComponent
		}
		return
	}

	summary.EstimatedSplit = true
	remaining := emi.Amount - paidPortion

	summary.InterestPaid += paidPortion * estimatedInterestShare
	summary.PrincipalPaid += paidPortion * (1 - estimatedInterestShare)
	summary.InterestRemaining += remaining * estimatedInterestShare
	summary.PrincipalRemaining += remaining * (1 - estimatedInterestShare)
}

// GenerateEMISchedule generates the installment schedule for a loan. The total
// payable is split into equal installments across the tenure; the final
// installment absorbs rounding so the schedule sums exactly to the total.
// Interest is flat-rate, so each installment carries an equal interest
// component and the rest retires principal.
func GenerateEMISchedule(loan *Loan, startDate time.Time) []*EMI {
	n := loan.TenureValue
	if n <= 0 {
		return nil
	}

	installment := roundToTwoDecimal(loan.TotalAmount / float64(n))
	interestPerPeriod := roundToTwoDecimal((loan.TotalAmount - loan.PrincipalAmount) / float64(n))

	remainingPrincipal := loan.PrincipalAmount
	dueDate := addPeriod(startDate, loan.TenureUnit)

	var schedule []*EMI

	for i := 0; i < n; i++ {
		amount := installment
		principal := roundToTwoDecimal(installment - interestPerPeriod)

		if i == n-1 {
			// Last installment absorbs accumulated rounding
			amount = roundToTwoDecimal(loan.TotalAmount - installment*float64(n-1))
			principal = roundToTwoDecimal(remainingPrincipal)
		}

		if principal < 0 {
			principal = 0
		}

		remainingPrincipal -= principal

		schedule = append(schedule, &EMI{
			LoanID:             loan.ID,
			EMINumber:          i + 1,
			DueDate:            dueDate,
			Amount:             amount,
			Status:             EMIStatusPending,
			PrincipalComponent: floatPtr(principal),
			InterestComponent:  floatPtr(roundToTwoDecimal(amount - principal)),
		})

		dueDate = addPeriod(dueDate, loan.TenureUnit)
	}

	return schedule
}

// addPeriod advances a date by one tenure period
func addPeriod(date time.Time, unit TenureUnit) time.Time {
	switch unit {
	case TenureUnitDays:
		return date.AddDate(0, 0, 1)
	case TenureUnitWeeks:
		return date.AddDate(0, 0, 7)
	default:
		return date.AddDate(0, 1, 0)
	}
}

// Round to two decimal places
func roundToTwoDecimal(value float64) float64 {
	return math.Round(value*100) / 100
}

func floatPtr(v float64) *float64 {
	return &v
}

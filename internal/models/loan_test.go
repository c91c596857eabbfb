package models

import (
	"math"
	"testing"
	"time"
)

var testToday = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// scheduleEMI builds an EMI row for summary and status tests
func scheduleEMI(number int, dueDate time.Time, amount, paid float64) *EMI {
	return &EMI{
		EMINumber:  number,
		DueDate:    dueDate,
		Amount:     amount,
		PaidAmount: paid,
	}
}

func TestCalculateLoanStatus(t *testing.T) {
	disbursed := testToday.AddDate(0, -2, 0)

	tests := []struct {
		name string
		loan *Loan
		emis []*EMI
		want LoanStatus
	}{
		{
			name: "all EMIs settled reads completed",
			loan: &Loan{TotalAmount: 1000, Status: LoanStatusActive},
			emis: []*EMI{
				scheduleEMI(1, testToday.AddDate(0, -1, 0), 500, 500),
				scheduleEMI(2, testToday, 500, 500),
			},
			want: LoanStatusCompleted,
		},
		{
			name: "missed installment reads overdue",
			loan: &Loan{TotalAmount: 1000, Status: LoanStatusActive},
			emis: []*EMI{
				scheduleEMI(1, testToday.AddDate(0, 0, -3), 500, 0),
				scheduleEMI(2, testToday.AddDate(0, 1, 0), 500, 0),
			},
			want: LoanStatusOverdue,
		},
		{
			name: "partial payments on time read active",
			loan: &Loan{TotalAmount: 1000, Status: LoanStatusDisbursed},
			emis: []*EMI{
				scheduleEMI(1, testToday.AddDate(0, -1, 0), 500, 500),
				scheduleEMI(2, testToday.AddDate(0, 1, 0), 500, 0),
			},
			want: LoanStatusActive,
		},
		{
			name: "disbursed with no payments reads active",
			loan: &Loan{TotalAmount: 1000, Status: LoanStatusDisbursed, DisbursementDate: &disbursed},
			emis: []*EMI{
				scheduleEMI(1, testToday.AddDate(0, 1, 0), 500, 0),
				scheduleEMI(2, testToday.AddDate(0, 2, 0), 500, 0),
			},
			want: LoanStatusActive,
		},
		{
			name: "approved without disbursement reads pending",
			loan: &Loan{TotalAmount: 1000, Status: LoanStatusApproved},
			emis: []*EMI{
				scheduleEMI(1, testToday.AddDate(0, 1, 0), 500, 0),
				scheduleEMI(2, testToday.AddDate(0, 2, 0), 500, 0),
			},
			want: LoanStatusPending,
		},
		{
			name: "pending with no repayment activity keeps stored status",
			loan: &Loan{TotalAmount: 1000, Status: LoanStatusPending},
			emis: []*EMI{
				scheduleEMI(1, testToday.AddDate(0, 1, 0), 500, 0),
			},
			want: LoanStatusPending,
		},
		{
			name: "no EMI schedule keeps stored status",
			loan: &Loan{TotalAmount: 1000, Status: LoanStatusActive},
			emis: nil,
			want: LoanStatusActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := CalculateLoanSummary(tt.loan, tt.emis, testToday)
			got := CalculateLoanStatus(tt.loan, summary, tt.emis, testToday)
			if got != tt.want {
				t.Errorf("CalculateLoanStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculateLoanStatusNextDueFallback(t *testing.T) {
	// With no per-EMI list the overdue check falls back to the summary's
	// next due date
	loan := &Loan{TotalAmount: 1000, Status: LoanStatusActive}
	pastDue := testToday.AddDate(0, 0, -3)
	summary := &LoanSummary{
		TotalEMIs:          2,
		OutstandingBalance: 500,
		NextDueDate:        &pastDue,
	}

	if got := CalculateLoanStatus(loan, summary, nil, testToday); got != LoanStatusOverdue {
		t.Errorf("CalculateLoanStatus() = %v, want %v", got, LoanStatusOverdue)
	}
}

func TestCalculateLoanSummary(t *testing.T) {
	loan := &Loan{TotalAmount: 2000}
	emis := []*EMI{
		scheduleEMI(1, testToday.AddDate(0, -2, 0), 500, 500), // paid
		scheduleEMI(2, testToday.AddDate(0, -1, 0), 500, 200), // partial, counts as pending
		scheduleEMI(3, testToday.AddDate(0, 0, -3), 500, 0),   // overdue
		scheduleEMI(4, testToday.AddDate(0, 1, 0), 500, 0),    // upcoming
	}

	summary := CalculateLoanSummary(loan, emis, testToday)

	if summary.TotalEMIs != 4 {
		t.Errorf("TotalEMIs = %d, want 4", summary.TotalEMIs)
	}
	if summary.PaidEMIs != 1 {
		t.Errorf("PaidEMIs = %d, want 1", summary.PaidEMIs)
	}
	if summary.OverdueEMIs != 1 {
		t.Errorf("OverdueEMIs = %d, want 1", summary.OverdueEMIs)
	}
	if summary.PendingEMIs != 2 {
		t.Errorf("PendingEMIs = %d, want 2", summary.PendingEMIs)
	}
	if summary.TotalPaid != 700 {
		t.Errorf("TotalPaid = %v, want 700", summary.TotalPaid)
	}
	if summary.OutstandingBalance != 1300 {
		t.Errorf("OutstandingBalance = %v, want 1300", summary.OutstandingBalance)
	}
	if summary.CompletionPercent != 25 {
		t.Errorf("CompletionPercent = %v, want 25", summary.CompletionPercent)
	}

	// Next due is the earliest unsettled installment, the partial one
	if summary.NextDueDate == nil || summary.NextDueEMINumber != 2 {
		t.Fatalf("NextDueEMINumber = %d, want 2", summary.NextDueEMINumber)
	}
	if summary.NextDueAmount != 300 {
		t.Errorf("NextDueAmount = %v, want remaining 300", summary.NextDueAmount)
	}
}

func TestCalculateLoanSummaryOutstandingClamped(t *testing.T) {
	// Overpayment on an installment never drives the balance negative
	loan := &Loan{TotalAmount: 500}
	emis := []*EMI{
		scheduleEMI(1, testToday.AddDate(0, -1, 0), 500, 700),
	}

	summary := CalculateLoanSummary(loan, emis, testToday)

	if summary.OutstandingBalance != 0 {
		t.Errorf("OutstandingBalance = %v, want 0", summary.OutstandingBalance)
	}
	if summary.TotalPaid != 500 {
		t.Errorf("TotalPaid = %v, want capped 500", summary.TotalPaid)
	}
}

func TestCalculateLoanSummaryNextDueTieBreak(t *testing.T) {
	// Equal due dates: list order wins
	due := testToday.AddDate(0, 1, 0)
	loan := &Loan{TotalAmount: 1000}
	emis := []*EMI{
		scheduleEMI(3, due, 500, 0),
		scheduleEMI(7, due, 500, 0),
	}

	summary := CalculateLoanSummary(loan, emis, testToday)

	if summary.NextDueEMINumber != 3 {
		t.Errorf("NextDueEMINumber = %d, want 3", summary.NextDueEMINumber)
	}
}

func TestCalculateLoanSummaryEstimatedSplit(t *testing.T) {
	loan := &Loan{TotalAmount: 1000}
	emis := []*EMI{
		scheduleEMI(1, testToday.AddDate(0, -1, 0), 500, 500),
		scheduleEMI(2, testToday.AddDate(0, 1, 0), 500, 0),
	}

	summary := CalculateLoanSummary(loan, emis, testToday)

	if !summary.EstimatedSplit {
		t.Error("EstimatedSplit = false, want true for EMIs without a stored breakdown")
	}
	if summary.InterestPaid != 150 {
		t.Errorf("InterestPaid = %v, want 150 (30%% of 500)", summary.InterestPaid)
	}
	if summary.PrincipalPaid != 350 {
		t.Errorf("PrincipalPaid = %v, want 350", summary.PrincipalPaid)
	}
	if summary.InterestRemaining != 150 {
		t.Errorf("InterestRemaining = %v, want 150", summary.InterestRemaining)
	}
	if summary.PrincipalRemaining != 350 {
		t.Errorf("PrincipalRemaining = %v, want 350", summary.PrincipalRemaining)
	}
}

func TestCalculateLoanSummaryExactSplit(t *testing.T) {
	loan := &Loan{TotalAmount: 1000}

	settled := scheduleEMI(1, testToday.AddDate(0, -1, 0), 500, 500)
	settled.PrincipalComponent = floatPtr(400)
	settled.InterestComponent = floatPtr(100)

	open := scheduleEMI(2, testToday.AddDate(0, 1, 0), 500, 0)
	open.PrincipalComponent = floatPtr(400)
	open.InterestComponent = floatPtr(100)

	summary := CalculateLoanSummary(loan, []*EMI{settled, open}, testToday)

	if summary.EstimatedSplit {
		t.Error("EstimatedSplit = true, want false when every EMI carries components")
	}
	if summary.PrincipalPaid != 400 || summary.InterestPaid != 100 {
		t.Errorf("paid split = %v/%v, want 400/100", summary.PrincipalPaid, summary.InterestPaid)
	}
	if summary.PrincipalRemaining != 400 || summary.InterestRemaining != 100 {
		t.Errorf("remaining split = %v/%v, want 400/100", summary.PrincipalRemaining, summary.InterestRemaining)
	}
}

func TestGenerateEMISchedule(t *testing.T) {
	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		principal float64
		total     float64
		tenure    int
		unit      TenureUnit
	}{
		{"even monthly split", 1000, 1100, 10, TenureUnitMonths},
		{"rounding absorbed by last installment", 1000, 1100, 3, TenureUnitMonths},
		{"weekly schedule", 500, 550, 4, TenureUnitWeeks},
		{"single installment", 200, 220, 1, TenureUnitDays},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := &Loan{
				PrincipalAmount: tt.principal,
				TotalAmount:     tt.total,
				TenureValue:     tt.tenure,
				TenureUnit:      tt.unit,
			}

			schedule := GenerateEMISchedule(loan, start)

			if len(schedule) != tt.tenure {
				t.Fatalf("len(schedule) = %d, want %d", len(schedule), tt.tenure)
			}

			var sumAmount, sumPrincipal float64
			prevDue := start
			for i, emi := range schedule {
				if emi.EMINumber != i+1 {
					t.Errorf("EMINumber = %d, want %d", emi.EMINumber, i+1)
				}
				if emi.Status != EMIStatusPending {
					t.Errorf("Status = %v, want %v", emi.Status, EMIStatusPending)
				}
				if !emi.DueDate.After(prevDue) {
					t.Errorf("DueDate %v not after previous %v", emi.DueDate, prevDue)
				}
				prevDue = emi.DueDate

				sumAmount += emi.Amount
				if emi.PrincipalComponent == nil || emi.InterestComponent == nil {
					t.Fatal("schedule EMI missing principal/interest components")
				}
				sumPrincipal += *emi.PrincipalComponent

				if diff := emi.Amount - *emi.PrincipalComponent - *emi.InterestComponent; math.Abs(diff) > 0.01 {
					t.Errorf("components do not sum to amount, diff = %v", diff)
				}
			}

			if math.Abs(sumAmount-tt.total) > 0.01 {
				t.Errorf("schedule sums to %v, want %v", sumAmount, tt.total)
			}
			if math.Abs(sumPrincipal-tt.principal) > 0.01 {
				t.Errorf("principal components sum to %v, want %v", sumPrincipal, tt.principal)
			}
		})
	}
}

func TestGenerateEMIScheduleEmptyTenure(t *testing.T) {
	loan := &Loan{PrincipalAmount: 1000, TotalAmount: 1100}
	if schedule := GenerateEMISchedule(loan, testToday); schedule != nil {
		t.Errorf("GenerateEMISchedule() = %v, want nil for zero tenure", schedule)
	}
}

func TestToLoan(t *testing.T) {
	req := &LoanRequest{
		BorrowerID:      7,
		PrincipalAmount: 1000,
		InterestRate:    10,
		TenureValue:     5,
		TenureUnit:      TenureUnitMonths,
	}

	loan := req.ToLoan(3)

	if loan.LenderID != 3 || loan.BorrowerID != 7 {
		t.Errorf("parties = %d/%d, want 3/7", loan.LenderID, loan.BorrowerID)
	}
	if loan.TotalAmount != 1100 {
		t.Errorf("TotalAmount = %v, want 1100", loan.TotalAmount)
	}
	if loan.Status != LoanStatusPending {
		t.Errorf("Status = %v, want %v", loan.Status, LoanStatusPending)
	}
	if loan.LoanNumber == "" {
		t.Error("LoanNumber is empty")
	}
}

func TestValidateLoanRequest(t *testing.T) {
	valid := LoanRequest{
		BorrowerID:      1,
		PrincipalAmount: 1000,
		InterestRate:    12,
		TenureValue:     6,
		TenureUnit:      TenureUnitMonths,
	}

	tests := []struct {
		name    string
		mutate  func(r *LoanRequest)
		wantErr bool
	}{
		{"valid request", func(r *LoanRequest) {}, false},
		{"zero interest is allowed", func(r *LoanRequest) { r.InterestRate = 0 }, false},
		{"missing borrower", func(r *LoanRequest) { r.BorrowerID = 0 }, true},
		{"zero principal", func(r *LoanRequest) { r.PrincipalAmount = 0 }, true},
		{"negative interest", func(r *LoanRequest) { r.InterestRate = -1 }, true},
		{"bad tenure unit", func(r *LoanRequest) { r.TenureUnit = "years" }, true},
		{"zero tenure", func(r *LoanRequest) { r.TenureValue = 0 }, true},
		{"tenure too long", func(r *LoanRequest) { r.TenureValue = 361 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			err := req.ValidateLoanRequest()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLoanRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

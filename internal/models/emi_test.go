package models

import (
	"testing"
	"time"
)

func TestCalculateEMIStatus(t *testing.T) {
	today := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		dueDate    time.Time
		amount     float64
		paidAmount float64
		want       EMIStatus
	}{
		{
			name:       "fully paid",
			dueDate:    today.AddDate(0, 0, -10),
			amount:     500,
			paidAmount: 500,
			want:       EMIStatusPaid,
		},
		{
			name:       "overpaid still reads as paid",
			dueDate:    today.AddDate(0, 0, 5),
			amount:     500,
			paidAmount: 600,
			want:       EMIStatusPaid,
		},
		{
			name:       "partial before due date",
			dueDate:    today.AddDate(0, 0, 5),
			amount:     500,
			paidAmount: 200,
			want:       EMIStatusPartial,
		},
		{
			name:       "partial after due date stays partial",
			dueDate:    today.AddDate(0, 0, -5),
			amount:     500,
			paidAmount: 200,
			want:       EMIStatusPartial,
		},
		{
			name:       "unpaid past due",
			dueDate:    today.AddDate(0, 0, -1),
			amount:     500,
			paidAmount: 0,
			want:       EMIStatusOverdue,
		},
		{
			name:       "unpaid due today",
			dueDate:    time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC),
			amount:     500,
			paidAmount: 0,
			want:       EMIStatusDueToday,
		},
		{
			name:       "due earlier today is not overdue",
			dueDate:    time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
			amount:     500,
			paidAmount: 0,
			want:       EMIStatusDueToday,
		},
		{
			name:       "unpaid due tomorrow",
			dueDate:    today.AddDate(0, 0, 1),
			amount:     500,
			paidAmount: 0,
			want:       EMIStatusUpcoming,
		},
		{
			name:       "unpaid due next month",
			dueDate:    today.AddDate(0, 1, 0),
			amount:     500,
			paidAmount: 0,
			want:       EMIStatusUpcoming,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateEMIStatus(tt.dueDate, tt.amount, tt.paidAmount, today)
			if got != tt.want {
				t.Errorf("CalculateEMIStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeriveStatus(t *testing.T) {
	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	emi := &EMI{
		DueDate: today.AddDate(0, 0, -3),
		Amount:  500,
		Status:  EMIStatusPending,
	}

	if changed := emi.DeriveStatus(today); !changed {
		t.Error("DeriveStatus() = false, want true for stale pending status")
	}
	if emi.Status != EMIStatusOverdue {
		t.Errorf("Status = %v, want %v", emi.Status, EMIStatusOverdue)
	}

	// Second pass against the same date is a no-op
	if changed := emi.DeriveStatus(today); changed {
		t.Error("DeriveStatus() = true, want false when status is current")
	}
}

func TestPaidPortion(t *testing.T) {
	tests := []struct {
		name       string
		amount     float64
		paidAmount float64
		want       float64
	}{
		{"unpaid", 500, 0, 0},
		{"partial", 500, 200, 200},
		{"exact", 500, 500, 500},
		{"overpaid capped at amount", 500, 650, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emi := &EMI{Amount: tt.amount, PaidAmount: tt.paidAmount}
			if got := emi.PaidPortion(); got != tt.want {
				t.Errorf("PaidPortion() = %v, want %v", got, tt.want)
			}
		})
	}
}

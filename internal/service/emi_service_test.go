package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"microloan-service/internal/models"
	"microloan-service/internal/repository"
)

func newEMIServiceForTest(loanRepo *fakeLoanRepo, emiRepo *fakeEMIRepo, paymentRepo *fakePaymentRepo) *EMISvc {
	return NewEMIService(testDependencies(&repository.Repository{
		User:    newFakeUserRepo(),
		Loan:    loanRepo,
		EMI:     emiRepo,
		Payment: paymentRepo,
	}))
}

func TestMarkPaid(t *testing.T) {
	loanRepo := newFakeLoanRepo(&models.Loan{ID: 1, LenderID: 10, TotalAmount: 1000, Status: models.LoanStatusActive})
	emiRepo := newFakeEMIRepo(
		&models.EMI{ID: 1, LoanID: 1, EMINumber: 1, DueDate: time.Now().AddDate(0, 0, -3), Amount: 500, PaidAmount: 200, Status: models.EMIStatusPartial},
		&models.EMI{ID: 2, LoanID: 1, EMINumber: 2, DueDate: time.Now().AddDate(0, 1, 0), Amount: 500, Status: models.EMIStatusUpcoming},
	)
	paymentRepo := &fakePaymentRepo{}
	svc := newEMIServiceForTest(loanRepo, emiRepo, paymentRepo)

	payment, err := svc.MarkPaid(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("MarkPaid() error = %v, want nil", err)
	}

	// The payment row records the open balance, not the full amount
	if payment.Amount != 300 {
		t.Errorf("payment amount = %v, want remaining 300", payment.Amount)
	}
	if payment.EMIID == nil || *payment.EMIID != 1 {
		t.Error("payment not tied to the settled EMI")
	}
	if payment.Status != models.PaymentStatusCompleted {
		t.Errorf("payment status = %v, want completed", payment.Status)
	}

	emi := emiRepo.emis[1]
	if emi.PaidAmount != emi.Amount || emi.Status != models.EMIStatusPaid {
		t.Errorf("EMI not settled: paid %v of %v, status %v", emi.PaidAmount, emi.Amount, emi.Status)
	}
}

func TestMarkPaidAlreadySettled(t *testing.T) {
	loanRepo := newFakeLoanRepo(&models.Loan{ID: 1, LenderID: 10, TotalAmount: 500, Status: models.LoanStatusActive})
	emiRepo := newFakeEMIRepo(
		&models.EMI{ID: 1, LoanID: 1, EMINumber: 1, DueDate: time.Now(), Amount: 500, PaidAmount: 500, Status: models.EMIStatusPaid},
	)
	paymentRepo := &fakePaymentRepo{}
	svc := newEMIServiceForTest(loanRepo, emiRepo, paymentRepo)

	if _, err := svc.MarkPaid(context.Background(), 1, 10); err == nil {
		t.Fatal("MarkPaid() error = nil, want error for settled EMI")
	}

	if len(paymentRepo.created) != 0 {
		t.Error("payment recorded for an already settled EMI")
	}
}

func TestMarkPaidForeignLenderDenied(t *testing.T) {
	loanRepo := newFakeLoanRepo(&models.Loan{ID: 1, LenderID: 10, TotalAmount: 500, Status: models.LoanStatusActive})
	emiRepo := newFakeEMIRepo(
		&models.EMI{ID: 1, LoanID: 1, EMINumber: 1, DueDate: time.Now(), Amount: 500},
	)
	svc := newEMIServiceForTest(loanRepo, emiRepo, &fakePaymentRepo{})

	_, err := svc.MarkPaid(context.Background(), 1, 99)
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("MarkPaid() error = %v, want ErrAccessDenied", err)
	}
}

func TestMarkPaidTrashedLoan(t *testing.T) {
	deletedAt := time.Now().AddDate(0, 0, -1)
	loanRepo := newFakeLoanRepo(&models.Loan{ID: 1, LenderID: 10, TotalAmount: 500, Status: models.LoanStatusActive, IsDeleted: true, DeletedAt: &deletedAt})
	emiRepo := newFakeEMIRepo(
		&models.EMI{ID: 1, LoanID: 1, EMINumber: 1, DueDate: time.Now(), Amount: 500},
	)
	svc := newEMIServiceForTest(loanRepo, emiRepo, &fakePaymentRepo{})

	if _, err := svc.MarkPaid(context.Background(), 1, 10); err == nil {
		t.Fatal("MarkPaid() error = nil, want error for trashed loan")
	}
}

func TestRecordPaymentPartial(t *testing.T) {
	loanRepo := newFakeLoanRepo(&models.Loan{ID: 1, LenderID: 10, TotalAmount: 1000, Status: models.LoanStatusActive})
	emiRepo := newFakeEMIRepo(
		&models.EMI{ID: 1, LoanID: 1, EMINumber: 1, DueDate: time.Now().AddDate(0, 1, 0), Amount: 500, Status: models.EMIStatusUpcoming},
		&models.EMI{ID: 2, LoanID: 1, EMINumber: 2, DueDate: time.Now().AddDate(0, 2, 0), Amount: 500, Status: models.EMIStatusUpcoming},
	)
	paymentRepo := &fakePaymentRepo{}
	svc := newEMIServiceForTest(loanRepo, emiRepo, paymentRepo)

	payment, err := svc.RecordPayment(context.Background(), 1, 10, &models.RecordPaymentRequest{
		Amount: 200,
		Method: "UPI",
	})
	if err != nil {
		t.Fatalf("RecordPayment() error = %v, want nil", err)
	}

	if payment.Method != models.PaymentMethodUPI {
		t.Errorf("payment method = %v, want upi", payment.Method)
	}

	emi := emiRepo.emis[1]
	if emi.PaidAmount != 200 || emi.Status != models.EMIStatusPartial {
		t.Errorf("EMI state = %v/%v, want 200/partial", emi.PaidAmount, emi.Status)
	}
	if emi.PaidDate != nil {
		t.Error("partial payment must not set the paid date")
	}
}

func TestRecordPaymentSettles(t *testing.T) {
	loanRepo := newFakeLoanRepo(&models.Loan{ID: 1, LenderID: 10, TotalAmount: 500, Status: models.LoanStatusActive})
	emiRepo := newFakeEMIRepo(
		&models.EMI{ID: 1, LoanID: 1, EMINumber: 1, DueDate: time.Now().AddDate(0, 0, -2), Amount: 500, PaidAmount: 300, Status: models.EMIStatusPartial},
	)
	paymentRepo := &fakePaymentRepo{}
	svc := newEMIServiceForTest(loanRepo, emiRepo, paymentRepo)

	if _, err := svc.RecordPayment(context.Background(), 1, 10, &models.RecordPaymentRequest{Amount: 200}); err != nil {
		t.Fatalf("RecordPayment() error = %v, want nil", err)
	}

	emi := emiRepo.emis[1]
	if emi.Status != models.EMIStatusPaid || emi.PaidDate == nil {
		t.Errorf("EMI not settled: status %v, paid date %v", emi.Status, emi.PaidDate)
	}

	// The last open installment was covered, so the loan completes
	if loanRepo.loans[1].Status != models.LoanStatusCompleted {
		t.Errorf("loan status = %v, want completed", loanRepo.loans[1].Status)
	}
}

func TestRecordPaymentExceedsBalance(t *testing.T) {
	loanRepo := newFakeLoanRepo(&models.Loan{ID: 1, LenderID: 10, TotalAmount: 500, Status: models.LoanStatusActive})
	emiRepo := newFakeEMIRepo(
		&models.EMI{ID: 1, LoanID: 1, EMINumber: 1, DueDate: time.Now(), Amount: 500, PaidAmount: 300, Status: models.EMIStatusPartial},
	)
	paymentRepo := &fakePaymentRepo{}
	svc := newEMIServiceForTest(loanRepo, emiRepo, paymentRepo)

	if _, err := svc.RecordPayment(context.Background(), 1, 10, &models.RecordPaymentRequest{Amount: 300}); err == nil {
		t.Fatal("RecordPayment() error = nil, want error for amount above open balance")
	}

	if emiRepo.emis[1].PaidAmount != 300 {
		t.Error("EMI changed despite rejected payment")
	}
}

func TestRecordPaymentInvalidAmount(t *testing.T) {
	svc := newEMIServiceForTest(newFakeLoanRepo(), newFakeEMIRepo(), &fakePaymentRepo{})

	if _, err := svc.RecordPayment(context.Background(), 1, 10, &models.RecordPaymentRequest{Amount: 0}); err == nil {
		t.Fatal("RecordPayment() error = nil, want error for non-positive amount")
	}
}

func TestSweepOverdue(t *testing.T) {
	loanRepo := newFakeLoanRepo(&models.Loan{ID: 1, LenderID: 10, BorrowerID: 20, TotalAmount: 1000, Status: models.LoanStatusActive})
	emiRepo := newFakeEMIRepo(
		&models.EMI{ID: 1, LoanID: 1, EMINumber: 1, DueDate: time.Now().AddDate(0, 0, -3), Amount: 500, Status: models.EMIStatusPending},
		&models.EMI{ID: 2, LoanID: 1, EMINumber: 2, DueDate: time.Now().AddDate(0, 0, -1), Amount: 500, PaidAmount: 100, Status: models.EMIStatusPartial},
		&models.EMI{ID: 3, LoanID: 1, EMINumber: 3, DueDate: time.Now().AddDate(0, 1, 0), Amount: 500, Status: models.EMIStatusUpcoming},
	)
	svc := newEMIServiceForTest(loanRepo, emiRepo, &fakePaymentRepo{})

	changed, err := svc.SweepOverdue(context.Background())
	if err != nil {
		t.Fatalf("SweepOverdue() error = %v, want nil", err)
	}

	// Only the unpaid past-due EMI flips; the partial one already carries
	// its final status
	if changed != 1 {
		t.Errorf("SweepOverdue() = %d, want 1", changed)
	}
	if emiRepo.emis[1].Status != models.EMIStatusOverdue {
		t.Errorf("EMI 1 status = %v, want overdue", emiRepo.emis[1].Status)
	}
	if emiRepo.emis[2].Status != models.EMIStatusPartial {
		t.Errorf("EMI 2 status = %v, want partial", emiRepo.emis[2].Status)
	}

	if loanRepo.loans[1].Status != models.LoanStatusOverdue {
		t.Errorf("loan status = %v, want overdue", loanRepo.loans[1].Status)
	}
}

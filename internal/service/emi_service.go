package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"microloan-service/configs"
	"microloan-service/internal/models"
	"microloan-service/internal/repository"
)

// EMISvc is an implementation of the service.EMIService interface
type EMISvc struct {
	repos  *repository.Repository
	logger *logrus.Logger
	config *configs.Config
	email  EmailService
}

// NewEMIService creates a new EMISvc
func NewEMIService(deps Dependencies) *EMISvc {
	return &EMISvc{
		repos:  deps.Repos,
		logger: deps.Logger,
		config: deps.Config,
		email:  NewEmailService(deps),
	}
}

// MarkPaid settles an installment in full on behalf of the owning lender and
// records the matching payment row
func (s *EMISvc) MarkPaid(ctx context.Context, emiID, lenderID int) (*models.Payment, error) {
	emi, loan, err := s.loadOwnedEMI(ctx, emiID, lenderID)
	if err != nil {
		return nil, err
	}

	if emi.IsSettled() {
		return nil, errors.New("EMI is already paid")
	}

	now := time.Now()
	remaining := emi.Amount - emi.PaidPortion()

	if err := s.repos.EMI.MarkPaid(ctx, emiID, now); err != nil {
		return nil, fmt.Errorf("failed to mark EMI paid: %w", err)
	}

	payment := models.NewEMIPayment(loan.ID, emiID, remaining, models.PaymentMethodCash, "", now)

	paymentID, err := s.repos.Payment.Create(ctx, payment)
	if err != nil {
		// The EMI update already landed; the payment row is the record
		// that failed, so surface it rather than pretend success
		return nil, fmt.Errorf("EMI marked paid but failed to record payment: %w", err)
	}
	payment.ID = paymentID

	s.refreshLoanStatus(ctx, loan)

	s.logger.Infof("EMI %d of loan %d marked paid, payment %s", emiID, loan.ID, payment.ReferenceCode)

	return payment, nil
}

// RecordPayment applies a received amount to an installment. Anything short
// of the open balance leaves the EMI partial; covering it settles the EMI.
func (s *EMISvc) RecordPayment(ctx context.Context, emiID, lenderID int, req *models.RecordPaymentRequest) (*models.Payment, error) {
	if err := req.ValidateRecordPayment(); err != nil {
		return nil, fmt.Errorf("invalid payment: %w", err)
	}

	emi, loan, err := s.loadOwnedEMI(ctx, emiID, lenderID)
	if err != nil {
		return nil, err
	}

	if emi.IsSettled() {
		return nil, errors.New("EMI is already paid")
	}

	remaining := emi.Amount - emi.PaidPortion()
	if req.Amount > remaining {
		return nil, fmt.Errorf("amount exceeds the open balance of %.2f", remaining)
	}

	now := time.Now()
	prevPaid := emi.PaidAmount
	newPaid := prevPaid + req.Amount

	status := models.CalculateEMIStatus(emi.DueDate, emi.Amount, newPaid, now)

	var paidDate *time.Time
	if newPaid >= emi.Amount {
		paidDate = &now
	} else if emi.PaidDate != nil {
		paidDate = emi.PaidDate
	}

	if err := s.repos.EMI.ApplyPayment(ctx, emiID, prevPaid, newPaid, status, paidDate); err != nil {
		return nil, fmt.Errorf("failed to apply payment: %w", err)
	}

	payment := models.NewEMIPayment(loan.ID, emiID, req.Amount, models.NormalizeMethod(req.Method), req.Notes, now)

	paymentID, err := s.repos.Payment.Create(ctx, payment)
	if err != nil {
		return nil, fmt.Errorf("payment applied but failed to record it: %w", err)
	}
	payment.ID = paymentID

	s.refreshLoanStatus(ctx, loan)

	s.logger.Infof("Payment of %.2f applied to EMI %d of loan %d (%s)", req.Amount, emiID, loan.ID, status)

	return payment, nil
}

// SweepOverdue reclassifies unpaid installments past their due date, flips
// the affected loans to overdue and sends borrower reminders. Returns the
// number of EMIs that changed status.
func (s *EMISvc) SweepOverdue(ctx context.Context) (int, error) {
	today := time.Now()

	emis, err := s.repos.EMI.GetUnpaidDueBefore(ctx, dayStart(today))
	if err != nil {
		return 0, fmt.Errorf("failed to get unpaid EMIs: %w", err)
	}

	changed := 0
	overdueLoans := map[int]bool{}

	for _, emi := range emis {
		if !emi.DeriveStatus(today) {
			continue
		}

		if err := s.repos.EMI.UpdateStatus(ctx, emi.ID, emi.Status); err != nil {
			s.logger.Warnf("Failed to update EMI %d during sweep: %v", emi.ID, err)
			continue
		}

		changed++

		if emi.Status == models.EMIStatusOverdue && !overdueLoans[emi.LoanID] {
			overdueLoans[emi.LoanID] = true
			s.flagLoanOverdue(ctx, emi)
		}
	}

	s.logger.Infof("Overdue sweep reclassified %d of %d due EMIs across %d loans",
		changed, len(emis), len(overdueLoans))

	return changed, nil
}

// flagLoanOverdue marks the parent loan overdue and notifies the borrower
func (s *EMISvc) flagLoanOverdue(ctx context.Context, emi *models.EMI) {
	loan, err := s.repos.Loan.GetByID(ctx, emi.LoanID)
	if err != nil {
		s.logger.Warnf("Failed to get loan %d during sweep: %v", emi.LoanID, err)
		return
	}

	if loan.Status != models.LoanStatusOverdue && loan.Status != models.LoanStatusCompleted {
		if err := s.repos.Loan.UpdateStatus(ctx, loan.ID, models.LoanStatusOverdue); err != nil {
			s.logger.Warnf("Failed to flag loan %d overdue: %v", loan.ID, err)
		}
	}

	go func(loan *models.Loan, emi *models.EMI) {
		ctx := context.Background()
		if err := s.email.SendOverdueReminder(ctx, loan, emi); err != nil {
			s.logger.Warnf("Failed to send overdue reminder: %v", err)
		}
	}(loan, emi)
}

// loadOwnedEMI loads an EMI and its loan, verifying the lender owns the loan
// and it is not trashed
func (s *EMISvc) loadOwnedEMI(ctx context.Context, emiID, lenderID int) (*models.EMI, *models.Loan, error) {
	emi, err := s.repos.EMI.GetByID(ctx, emiID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get EMI: %w", err)
	}

	loan, err := s.repos.Loan.GetByID(ctx, emi.LoanID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get loan: %w", err)
	}

	if loan.LenderID != lenderID {
		return nil, nil, ErrAccessDenied
	}

	if loan.IsDeleted {
		return nil, nil, errors.New("loan not found")
	}

	return emi, loan, nil
}

// refreshLoanStatus re-derives the loan status after a payment
func (s *EMISvc) refreshLoanStatus(ctx context.Context, loan *models.Loan) {
	emis, err := s.repos.EMI.GetByLoanID(ctx, loan.ID)
	if err != nil {
		s.logger.Warnf("Failed to reload EMIs for loan %d: %v", loan.ID, err)
		return
	}

	today := time.Now()
	summary := models.CalculateLoanSummary(loan, emis, today)
	derived := models.CalculateLoanStatus(loan, summary, emis, today)

	if derived != loan.Status {
		if err := s.repos.Loan.UpdateStatus(ctx, loan.ID, derived); err != nil {
			s.logger.Warnf("Failed to update loan %d status: %v", loan.ID, err)
		} else {
			loan.Status = derived
		}
	}
}

// dayStart truncates a time to midnight in its location
func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

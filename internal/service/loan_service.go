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

// ErrAccessDenied is returned when a user touches a loan outside their own
// portfolio
var ErrAccessDenied = errors.New("access denied: loan belongs to another user")

// LoanSvc is an implementation of the service.LoanService interface
type LoanSvc struct {
	repos  *repository.Repository
	logger *logrus.Logger
	config *configs.Config
	email  EmailService
}

// NewLoanService creates a new LoanSvc
func NewLoanService(deps Dependencies) *LoanSvc {
	return &LoanSvc{
		repos:  deps.Repos,
		logger: deps.Logger,
		config: deps.Config,
		email:  NewEmailService(deps),
	}
}

// Create issues a new loan to an approved borrower and stores it together
// with its generated EMI schedule
func (s *LoanSvc) Create(ctx context.Context, req *models.LoanRequest, lenderID int) (int, error) {
	// Validate loan request
	if err := req.ValidateLoanRequest(); err != nil {
		return 0, fmt.Errorf("invalid loan request: %w", err)
	}

	// The borrower must exist, be active and have passed KYC
	borrower, err := s.repos.User.GetByID(ctx, req.BorrowerID)
	if err != nil {
		return 0, fmt.Errorf("borrower not found: %w", err)
	}

	if borrower.Role != models.RoleBorrower {
		return 0, errors.New("loans can only be issued to borrower accounts")
	}

	if !borrower.IsActive {
		return 0, errors.New("borrower account is not active")
	}

	if !borrower.KYCVerified {
		return 0, errors.New("borrower has not completed KYC verification")
	}

	loan := req.ToLoan(lenderID)
	schedule := models.GenerateEMISchedule(loan, time.Now())

	loanID, err := s.repos.Loan.CreateWithSchedule(ctx, loan, schedule)
	if err != nil {
		return 0, fmt.Errorf("failed to create loan: %w", err)
	}

	loan.ID = loanID

	s.logger.Infof("Loan created: %d (%s) for borrower: %d, principal: %.2f, tenure: %d %s",
		loanID, loan.LoanNumber, req.BorrowerID, req.PrincipalAmount, req.TenureValue, req.TenureUnit)

	// Notify the borrower
	go func() {
		ctx := context.Background()
		if err := s.email.SendLoanCreated(ctx, loan); err != nil {
			s.logger.Warnf("Failed to send loan notification: %v", err)
		}
	}()

	return loanID, nil
}

// GetByID gets a loan by ID with its status reconciled against live EMI data.
// Lenders see their own loans, borrowers their own debts, admins everything.
func (s *LoanSvc) GetByID(ctx context.Context, id, userID int, role models.Role) (*models.Loan, error) {
	loan, err := s.repos.Loan.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}

	if err := checkLoanAccess(loan, userID, role); err != nil {
		return nil, err
	}

	if loan.IsDeleted {
		return nil, errors.New("loan not found")
	}

	emis, err := s.repos.EMI.GetByLoanID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get EMIs: %w", err)
	}

	s.reconcileStatus(ctx, loan, emis)

	return loan, nil
}

// GetPortfolio returns the caller's loans with derived statuses and summaries
func (s *LoanSvc) GetPortfolio(ctx context.Context, userID int, role models.Role) ([]*models.LoanWithSummary, error) {
	loans, err := s.loansForRole(ctx, userID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to get loans: %w", err)
	}

	var portfolio []*models.LoanWithSummary

	for _, loan := range loans {
		emis, err := s.repos.EMI.GetByLoanID(ctx, loan.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get EMIs for loan %d: %w", loan.ID, err)
		}

		summary := s.reconcileStatus(ctx, loan, emis)

		portfolio = append(portfolio, &models.LoanWithSummary{
			Loan:    loan,
			Summary: summary,
		})
	}

	return portfolio, nil
}

// GetSchedule gets a loan's EMI schedule, reclassifying each installment
// against today and persisting any status that drifted
func (s *LoanSvc) GetSchedule(ctx context.Context, loanID, userID int, role models.Role) ([]*models.EMI, *models.LoanSummary, error) {
	loan, err := s.repos.Loan.GetByID(ctx, loanID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get loan: %w", err)
	}

	if err := checkLoanAccess(loan, userID, role); err != nil {
		return nil, nil, err
	}

	if loan.IsDeleted {
		return nil, nil, errors.New("loan not found")
	}

	emis, err := s.repos.EMI.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get EMI schedule: %w", err)
	}

	today := time.Now()

	for _, emi := range emis {
		if emi.DeriveStatus(today) {
			if err := s.repos.EMI.UpdateStatus(ctx, emi.ID, emi.Status); err != nil {
				s.logger.Warnf("Failed to update EMI %d status: %v", emi.ID, err)
			}
		}
	}

	summary := s.reconcileStatus(ctx, loan, emis)

	return emis, summary, nil
}

// Disburse records disbursement of a loan by its owning lender
func (s *LoanSvc) Disburse(ctx context.Context, loanID, lenderID int) error {
	if err := s.repos.Loan.SetDisbursed(ctx, loanID, lenderID, time.Now()); err != nil {
		return fmt.Errorf("failed to disburse loan: %w", err)
	}

	s.logger.Infof("Loan disbursed: %d by lender: %d", loanID, lenderID)

	return nil
}

// GetPortfolioStats aggregates portfolio-level figures for dashboards
func (s *LoanSvc) GetPortfolioStats(ctx context.Context, userID int, role models.Role) (map[string]interface{}, error) {
	portfolio, err := s.GetPortfolio(ctx, userID, role)
	if err != nil {
		return nil, err
	}

	stats := map[string]interface{}{}
	statusCounts := map[models.LoanStatus]int{}

	var totalPrincipal, totalDisbursed, totalOutstanding, totalCollected float64
	overdueLoans := 0

	for _, item := range portfolio {
		statusCounts[item.Loan.Status]++

		totalPrincipal += item.Loan.PrincipalAmount
		if item.Loan.DisbursementDate != nil {
			totalDisbursed += item.Loan.PrincipalAmount
		}

		totalOutstanding += item.Summary.OutstandingBalance
		totalCollected += item.Summary.TotalPaid

		if item.Loan.Status == models.LoanStatusOverdue {
			overdueLoans++
		}
	}

	stats["total_loans"] = len(portfolio)
	stats["status_counts"] = statusCounts
	stats["total_principal"] = totalPrincipal
	stats["total_disbursed"] = totalDisbursed
	stats["total_outstanding"] = totalOutstanding
	stats["total_collected"] = totalCollected
	stats["overdue_loans"] = overdueLoans

	return stats, nil
}

// loansForRole fetches the loans visible to the caller
func (s *LoanSvc) loansForRole(ctx context.Context, userID int, role models.Role) ([]*models.Loan, error) {
	switch role {
	case models.RoleLender:
		return s.repos.Loan.GetByLenderID(ctx, userID)
	case models.RoleBorrower:
		return s.repos.Loan.GetByBorrowerID(ctx, userID)
	case models.RoleSuperAdmin:
		return s.repos.Loan.GetAll(ctx)
	default:
		return nil, fmt.Errorf("unknown role: %s", role)
	}
}

// reconcileStatus derives the loan's live status from its EMIs, persists it if
// the stored label went stale, and returns the computed summary
func (s *LoanSvc) reconcileStatus(ctx context.Context, loan *models.Loan, emis []*models.EMI) *models.LoanSummary {
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

	return summary
}

// checkLoanAccess verifies the caller may see the loan
func checkLoanAccess(loan *models.Loan, userID int, role models.Role) error {
	switch role {
	case models.RoleSuperAdmin:
		return nil
	case models.RoleLender:
		if loan.LenderID == userID {
			return nil
		}
	case models.RoleBorrower:
		if loan.BorrowerID == userID {
			return nil
		}
	}

	return ErrAccessDenied
}

package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"microloan-service/configs"
	"microloan-service/internal/models"
	"microloan-service/internal/repository"
)

// PaymentSvc is an implementation of the service.PaymentService interface
type PaymentSvc struct {
	repos  *repository.Repository
	logger *logrus.Logger
	config *configs.Config
}

// NewPaymentService creates a new PaymentSvc
func NewPaymentService(deps Dependencies) *PaymentSvc {
	return &PaymentSvc{
		repos:  deps.Repos,
		logger: deps.Logger,
		config: deps.Config,
	}
}

// GetByLoanID gets the payments of a loan the caller may see
func (s *PaymentSvc) GetByLoanID(ctx context.Context, loanID, userID int, role models.Role) ([]*models.Payment, error) {
	loan, err := s.repos.Loan.GetByID(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}

	if err := checkLoanAccess(loan, userID, role); err != nil {
		return nil, err
	}

	payments, err := s.repos.Payment.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payments: %w", err)
	}

	return payments, nil
}

// GetHistory gets the caller's payment history across all their loans
func (s *PaymentSvc) GetHistory(ctx context.Context, userID int, role models.Role) ([]*models.Payment, error) {
	var (
		payments []*models.Payment
		err      error
	)

	switch role {
	case models.RoleLender:
		payments, err = s.repos.Payment.GetByLenderID(ctx, userID)
	case models.RoleBorrower:
		payments, err = s.repos.Payment.GetByBorrowerID(ctx, userID)
	default:
		return nil, fmt.Errorf("payment history is not available for role: %s", role)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get payments: %w", err)
	}

	return payments, nil
}

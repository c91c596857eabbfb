package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"microloan-service/configs"
	"microloan-service/internal/models"
	"microloan-service/internal/repository"
)

// UserService defines methods for user service
type UserService interface {
	Register(ctx context.Context, user *models.UserRegistration) (int, error)
	Login(ctx context.Context, login *models.UserLogin) (*models.TokenResponse, error)
	GetByID(ctx context.Context, id int) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	GetPendingApproval(ctx context.Context) ([]*models.User, error)
	Approve(ctx context.Context, id int) error
	Deactivate(ctx context.Context, id int) error
	VerifyKYC(ctx context.Context, id int) error
}

// LoanService defines methods for loan service
type LoanService interface {
	Create(ctx context.Context, req *models.LoanRequest, lenderID int) (int, error)
	GetByID(ctx context.Context, id, userID int, role models.Role) (*models.Loan, error)
	GetPortfolio(ctx context.Context, userID int, role models.Role) ([]*models.LoanWithSummary, error)
	GetSchedule(ctx context.Context, loanID, userID int, role models.Role) ([]*models.EMI, *models.LoanSummary, error)
	Disburse(ctx context.Context, loanID, lenderID int) error
	GetPortfolioStats(ctx context.Context, userID int, role models.Role) (map[string]interface{}, error)
}

// EMIService defines methods for EMI service
type EMIService interface {
	MarkPaid(ctx context.Context, emiID, lenderID int) (*models.Payment, error)
	RecordPayment(ctx context.Context, emiID, lenderID int, req *models.RecordPaymentRequest) (*models.Payment, error)
	SweepOverdue(ctx context.Context) (int, error)
}

// PaymentService defines methods for payment service
type PaymentService interface {
	GetByLoanID(ctx context.Context, loanID, userID int, role models.Role) ([]*models.Payment, error)
	GetHistory(ctx context.Context, userID int, role models.Role) ([]*models.Payment, error)
}

// TrashService defines methods for the loan trash lifecycle
type TrashService interface {
	MoveToTrash(ctx context.Context, loanID, lenderID int) error
	Restore(ctx context.Context, loanID, lenderID int) error
	PermanentDelete(ctx context.Context, loanID, lenderID int) error
	ListTrash(ctx context.Context, lenderID int) ([]*models.Loan, error)
	PurgeExpired(ctx context.Context) (int, error)
}

// EmailService defines methods for email service
type EmailService interface {
	SendAccountApproved(ctx context.Context, userID int) error
	SendLoanCreated(ctx context.Context, loan *models.Loan) error
	SendOverdueReminder(ctx context.Context, loan *models.Loan, emi *models.EMI) error
}

// Dependencies contains dependencies for services
type Dependencies struct {
	Repos  *repository.Repository
	Logger *logrus.Logger
	Config *configs.Config
}

// Service is a composition of all services
type Service struct {
	User    UserService
	Loan    LoanService
	EMI     EMIService
	Payment PaymentService
	Trash   TrashService
	Email   EmailService
}

// NewService creates a new service with all sub-services
func NewService(deps Dependencies) *Service {
	return &Service{
		User:    NewUserService(deps),
		Loan:    NewLoanService(deps),
		EMI:     NewEMIService(deps),
		Payment: NewPaymentService(deps),
		Trash:   NewTrashService(deps),
		Email:   NewEmailService(deps),
	}
}

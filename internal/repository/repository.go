package repository

import (
	"context"
	"database/sql"
	"time"

	"microloan-service/internal/models"
	"microloan-service/internal/repository/postgres"
)

// UserRepository defines methods for user repository
type UserRepository interface {
	Create(ctx context.Context, user *models.User) (int, error)
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetPendingApproval(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) error
	SetActive(ctx context.Context, id int, active bool) error
	SetKYCVerified(ctx context.Context, id int, verified bool) error
}

// LoanRepository defines methods for loan repository
type LoanRepository interface {
	// CreateWithSchedule inserts the loan and its full EMI schedule in one
	// database transaction
	CreateWithSchedule(ctx context.Context, loan *models.Loan, emis []*models.EMI) (int, error)
	GetByID(ctx context.Context, id int) (*models.Loan, error)
	GetByLenderID(ctx context.Context, lenderID int) ([]*models.Loan, error)
	GetByBorrowerID(ctx context.Context, borrowerID int) ([]*models.Loan, error)
	GetAll(ctx context.Context) ([]*models.Loan, error)
	UpdateStatus(ctx context.Context, id int, status models.LoanStatus) error
	SetDisbursed(ctx context.Context, id, lenderID int, date time.Time) error

	// Trash lifecycle; every operation is scoped to the owning lender in
	// its WHERE clause, so a foreign or stale row reads as not found
	MoveToTrash(ctx context.Context, id, lenderID int, now time.Time) error
	Restore(ctx context.Context, id, lenderID int) error
	GetTrashed(ctx context.Context, lenderID int) ([]*models.Loan, error)
	GetTrashedBefore(ctx context.Context, cutoff time.Time) ([]*models.Loan, error)
	// PurgeCascade deletes payments, EMIs and the loan row in one
	// transaction
	PurgeCascade(ctx context.Context, id int) error
}

// EMIRepository defines methods for EMI repository
type EMIRepository interface {
	GetByID(ctx context.Context, id int) (*models.EMI, error)
	GetByLoanID(ctx context.Context, loanID int) ([]*models.EMI, error)
	// MarkPaid settles an installment in full; the update is a no-op on
	// rows that are already paid
	MarkPaid(ctx context.Context, id int, paidDate time.Time) error
	// ApplyPayment moves paid_amount from prevPaid to newPaid; prevPaid in
	// the WHERE clause guards against a concurrent write
	ApplyPayment(ctx context.Context, id int, prevPaid, newPaid float64, status models.EMIStatus, paidDate *time.Time) error
	UpdateStatus(ctx context.Context, id int, status models.EMIStatus) error
	GetUnpaidDueBefore(ctx context.Context, cutoff time.Time) ([]*models.EMI, error)
}

// PaymentRepository defines methods for payment repository
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) (int, error)
	GetByLoanID(ctx context.Context, loanID int) ([]*models.Payment, error)
	GetByBorrowerID(ctx context.Context, borrowerID int) ([]*models.Payment, error)
	GetByLenderID(ctx context.Context, lenderID int) ([]*models.Payment, error)
}

// Repository is a composition of all repositories
type Repository struct {
	DB      *sql.DB
	User    UserRepository
	Loan    LoanRepository
	EMI     EMIRepository
	Payment PaymentRepository
}

// NewRepository creates a new repository with all sub-repositories
func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		DB:      db,
		User:    postgres.NewUserRepository(db),
		Loan:    postgres.NewLoanRepository(db),
		EMI:     postgres.NewEMIRepository(db),
		Payment: postgres.NewPaymentRepository(db),
	}
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"microloan-service/internal/models"
)

// EMIRepo is a PostgreSQL implementation of the repository.EMIRepository interface
type EMIRepo struct {
	db *sql.DB
}

// NewEMIRepository creates a new EMIRepo
func NewEMIRepository(db *sql.DB) *EMIRepo {
	return &EMIRepo{db: db}
}

const emiSelectColumns = `SELECT id, loan_id, emi_number, due_date, amount, paid_amount,
             paid_date, status, late_fee, penalty_amount, principal_component,
             interest_component, created_at, updated_at`

// GetByID gets an EMI by ID
func (r *EMIRepo) GetByID(ctx context.Context, id int) (*models.EMI, error) {
	query := emiSelectColumns + ` FROM emis WHERE id = $1`

	emi := &models.EMI{}
	err := scanEMI(r.db.QueryRowContext(ctx, query, id), emi)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("EMI not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get EMI: %w", err)
	}

	return emi, nil
}

// GetByLoanID gets all EMIs for a loan in schedule order
func (r *EMIRepo) GetByLoanID(ctx context.Context, loanID int) ([]*models.EMI, error) {
	query := emiSelectColumns + ` FROM emis
             WHERE loan_id = $1
             ORDER BY emi_number`

	rows, err := r.db.QueryContext(ctx, query, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to get EMIs: %w", err)
	}
	defer rows.Close()

	return r.scanEMIs(rows)
}

// MarkPaid settles an installment in full. The status guard in the WHERE
// clause makes a second mark-paid on the same row read as not found.
func (r *EMIRepo) MarkPaid(ctx context.Context, id int, paidDate time.Time) error {
	query := `UPDATE emis
             SET paid_amount = amount, paid_date = $1, status = $2, updated_at = NOW()
             WHERE id = $3 AND status <> $2`

	result, err := r.db.ExecContext(ctx, query, paidDate, models.EMIStatusPaid, id)
	if err != nil {
		return fmt.Errorf("failed to mark EMI paid: %w", err)
	}

	return checkAffected(result, "EMI")
}

// ApplyPayment records a (possibly partial) payment. prevPaid in the WHERE
// clause is the write precondition: a concurrent update makes this read as
// not found instead of silently overwriting.
func (r *EMIRepo) ApplyPayment(ctx context.Context, id int, prevPaid, newPaid float64, status models.EMIStatus, paidDate *time.Time) error {
	query := `UPDATE emis
             SET paid_amount = $1, paid_date = $2, status = $3, updated_at = NOW()
             WHERE id = $4 AND paid_amount = $5`

	result, err := r.db.ExecContext(ctx, query, newPaid, paidDate, status, id, prevPaid)
	if err != nil {
		return fmt.Errorf("failed to apply payment: %w", err)
	}

	return checkAffected(result, "EMI")
}

// UpdateStatus updates an EMI's stored status
func (r *EMIRepo) UpdateStatus(ctx context.Context, id int, status models.EMIStatus) error {
	query := `UPDATE emis
             SET status = $1, updated_at = NOW()
             WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update EMI status: %w", err)
	}

	return checkAffected(result, "EMI")
}

// GetUnpaidDueBefore gets unpaid EMIs of non-trashed loans whose due date is
// before the cutoff, for the overdue sweep
func (r *EMIRepo) GetUnpaidDueBefore(ctx context.Context, cutoff time.Time) ([]*models.EMI, error) {
	query := `SELECT e.id, e.loan_id, e.emi_number, e.due_date, e.amount, e.paid_amount,
             e.paid_date, e.status, e.late_fee, e.penalty_amount, e.principal_component,
             e.interest_component, e.created_at, e.updated_at
             FROM emis e
             JOIN loans l ON e.loan_id = l.id
             WHERE e.paid_amount < e.amount AND e.due_date < $1 AND l.is_deleted = false
             ORDER BY e.due_date`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to get unpaid EMIs: %w", err)
	}
	defer rows.Close()

	return r.scanEMIs(rows)
}

// Helper function to scan multiple EMIs
func (r *EMIRepo) scanEMIs(rows *sql.Rows) ([]*models.EMI, error) {
	var emis []*models.EMI

	for rows.Next() {
		emi := &models.EMI{}
		if err := scanEMI(rows, emi); err != nil {
			return nil, fmt.Errorf("failed to scan EMI: %w", err)
		}

		emis = append(emis, emi)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return emis, nil
}

func scanEMI(row rowScanner, emi *models.EMI) error {
	return row.Scan(
		&emi.ID,
		&emi.LoanID,
		&emi.EMINumber,
		&emi.DueDate,
		&emi.Amount,
		&emi.PaidAmount,
		&emi.PaidDate,
		&emi.Status,
		&emi.LateFee,
		&emi.PenaltyAmount,
		&emi.PrincipalComponent,
		&emi.InterestComponent,
		&emi.CreatedAt,
		&emi.UpdatedAt,
	)
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"microloan-service/internal/models"
)

// LoanRepo is a PostgreSQL implementation of the repository.LoanRepository interface
type LoanRepo struct {
	db *sql.DB
}

// NewLoanRepository creates a new LoanRepo
func NewLoanRepository(db *sql.DB) *LoanRepo {
	return &LoanRepo{db: db}
}

const loanSelectColumns = `SELECT id, loan_number, lender_id, borrower_id, principal_amount,
             total_amount, interest_rate, tenure_value, tenure_unit, status,
             disbursement_date, is_deleted, deleted_at, created_at, updated_at`

// CreateWithSchedule creates a loan and its EMI schedule in a single transaction
func (r *LoanRepo) CreateWithSchedule(ctx context.Context, loan *models.Loan, emis []*models.EMI) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	query := `INSERT INTO loans (loan_number, lender_id, borrower_id, principal_amount,
             total_amount, interest_rate, tenure_value, tenure_unit, status)
             VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`

	var id int
	err = tx.QueryRowContext(
		ctx,
		query,
		loan.LoanNumber,
		loan.LenderID,
		loan.BorrowerID,
		loan.PrincipalAmount,
		loan.TotalAmount,
		loan.InterestRate,
		loan.TenureValue,
		loan.TenureUnit,
		loan.Status,
	).Scan(&id)

	if err != nil {
		return 0, fmt.Errorf("failed to create loan: %w", err)
	}

	if len(emis) > 0 {
		// Batch insert the schedule
		valueStrings := make([]string, 0, len(emis))
		valueArgs := make([]interface{}, 0, len(emis)*7)

		for i, emi := range emis {
			valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
				i*7+1, i*7+2, i*7+3, i*7+4, i*7+5, i*7+6, i*7+7))

			valueArgs = append(valueArgs,
				id,
				emi.EMINumber,
				emi.DueDate,
				emi.Amount,
				emi.Status,
				emi.PrincipalComponent,
				emi.InterestComponent,
			)
		}

		stmt := fmt.Sprintf(`INSERT INTO emis
                           (loan_id, emi_number, due_date, amount, status,
                            principal_component, interest_component)
                           VALUES %s`, strings.Join(valueStrings, ","))

		_, err = tx.ExecContext(ctx, stmt, valueArgs...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert EMI schedule: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return id, nil
}

// GetByID gets a loan by ID, including trashed rows; callers decide whether
// a trashed loan is visible
func (r *LoanRepo) GetByID(ctx context.Context, id int) (*models.Loan, error) {
	query := loanSelectColumns + ` FROM loans WHERE id = $1`

	loan := &models.Loan{}
	err := scanLoan(r.db.QueryRowContext(ctx, query, id), loan)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("loan not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}

	return loan, nil
}

// GetByLenderID gets all non-trashed loans created by a lender
func (r *LoanRepo) GetByLenderID(ctx context.Context, lenderID int) ([]*models.Loan, error) {
	query := loanSelectColumns + ` FROM loans
             WHERE lender_id = $1 AND is_deleted = false
             ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, lenderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get loans: %w", err)
	}
	defer rows.Close()

	return r.scanLoans(rows)
}

// GetByBorrowerID gets all non-trashed loans owed by a borrower
func (r *LoanRepo) GetByBorrowerID(ctx context.Context, borrowerID int) ([]*models.Loan, error) {
	query := loanSelectColumns + ` FROM loans
             WHERE borrower_id = $1 AND is_deleted = false
             ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, borrowerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get loans: %w", err)
	}
	defer rows.Close()

	return r.scanLoans(rows)
}

// GetAll gets every non-trashed loan on the platform
func (r *LoanRepo) GetAll(ctx context.Context) ([]*models.Loan, error) {
	query := loanSelectColumns + ` FROM loans
             WHERE is_deleted = false
             ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get loans: %w", err)
	}
	defer rows.Close()

	return r.scanLoans(rows)
}

// UpdateStatus updates a loan's stored status
func (r *LoanRepo) UpdateStatus(ctx context.Context, id int, status models.LoanStatus) error {
	query := `UPDATE loans
             SET status = $1, updated_at = NOW()
             WHERE id = $2 AND is_deleted = false`

	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update loan status: %w", err)
	}

	return checkAffected(result, "loan")
}

// SetDisbursed records the disbursement of a loan. Only the owning lender can
// disburse, and only once.
func (r *LoanRepo) SetDisbursed(ctx context.Context, id, lenderID int, date time.Time) error {
	query := `UPDATE loans
             SET status = $1, disbursement_date = $2, updated_at = NOW()
             WHERE id = $3 AND lender_id = $4 AND disbursement_date IS NULL AND is_deleted = false`

	result, err := r.db.ExecContext(ctx, query, models.LoanStatusDisbursed, date, id, lenderID)
	if err != nil {
		return fmt.Errorf("failed to disburse loan: %w", err)
	}

	return checkAffected(result, "loan")
}

// MoveToTrash soft-deletes a loan owned by the given lender
func (r *LoanRepo) MoveToTrash(ctx context.Context, id, lenderID int, now time.Time) error {
	query := `UPDATE loans
             SET is_deleted = true, deleted_at = $1, updated_at = NOW()
             WHERE id = $2 AND lender_id = $3 AND is_deleted = false`

	result, err := r.db.ExecContext(ctx, query, now, id, lenderID)
	if err != nil {
		return fmt.Errorf("failed to move loan to trash: %w", err)
	}

	return checkAffected(result, "loan")
}

// Restore brings a trashed loan back; the retention window is enforced by the
// service layer before this is called
func (r *LoanRepo) Restore(ctx context.Context, id, lenderID int) error {
	query := `UPDATE loans
             SET is_deleted = false, deleted_at = NULL, updated_at = NOW()
             WHERE id = $1 AND lender_id = $2 AND is_deleted = true`

	result, err := r.db.ExecContext(ctx, query, id, lenderID)
	if err != nil {
		return fmt.Errorf("failed to restore loan: %w", err)
	}

	return checkAffected(result, "loan")
}

// GetTrashed gets a lender's trashed loans
func (r *LoanRepo) GetTrashed(ctx context.Context, lenderID int) ([]*models.Loan, error) {
	query := loanSelectColumns + ` FROM loans
             WHERE lender_id = $1 AND is_deleted = true
             ORDER BY deleted_at DESC`

	rows, err := r.db.QueryContext(ctx, query, lenderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get trashed loans: %w", err)
	}
	defer rows.Close()

	return r.scanLoans(rows)
}

// GetTrashedBefore gets trashed loans whose deletion predates the cutoff,
// i.e. rows past the retention window
func (r *LoanRepo) GetTrashedBefore(ctx context.Context, cutoff time.Time) ([]*models.Loan, error) {
	query := loanSelectColumns + ` FROM loans
             WHERE is_deleted = true AND deleted_at <= $1
             ORDER BY deleted_at`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to get expired trash: %w", err)
	}
	defer rows.Close()

	return r.scanLoans(rows)
}

// PurgeCascade permanently deletes a loan with its payments and EMIs in a
// single transaction
func (r *LoanRepo) PurgeCascade(ctx context.Context, id int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM payments WHERE loan_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete payments: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM emis WHERE loan_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete EMIs: %w", err)
	}

	var result sql.Result
	result, err = tx.ExecContext(ctx, `DELETE FROM loans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete loan: %w", err)
	}

	if err = checkAffected(result, "loan"); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Helper function to scan multiple loans
func (r *LoanRepo) scanLoans(rows *sql.Rows) ([]*models.Loan, error) {
	var loans []*models.Loan

	for rows.Next() {
		loan := &models.Loan{}
		if err := scanLoan(rows, loan); err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}

		loans = append(loans, loan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return loans, nil
}

func scanLoan(row rowScanner, loan *models.Loan) error {
	return row.Scan(
		&loan.ID,
		&loan.LoanNumber,
		&loan.LenderID,
		&loan.BorrowerID,
		&loan.PrincipalAmount,
		&loan.TotalAmount,
		&loan.InterestRate,
		&loan.TenureValue,
		&loan.TenureUnit,
		&loan.Status,
		&loan.DisbursementDate,
		&loan.IsDeleted,
		&loan.DeletedAt,
		&loan.CreatedAt,
		&loan.UpdatedAt,
	)
}

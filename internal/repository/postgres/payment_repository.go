package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"microloan-service/internal/models"
)

// PaymentRepo is a PostgreSQL implementation of the repository.PaymentRepository interface
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepository creates a new PaymentRepo
func NewPaymentRepository(db *sql.DB) *PaymentRepo {
	return &PaymentRepo{db: db}
}

const paymentSelectColumns = `p.id, p.loan_id, p.emi_id, p.amount, p.payment_date,
             p.method, p.reference_code, p.status, p.notes, p.created_at`

// Create records a new payment
func (r *PaymentRepo) Create(ctx context.Context, payment *models.Payment) (int, error) {
	query := `INSERT INTO payments (loan_id, emi_id, amount, payment_date, method,
             reference_code, status, notes)
             VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`

	var id int
	err := r.db.QueryRowContext(
		ctx,
		query,
		payment.LoanID,
		payment.EMIID,
		payment.Amount,
		payment.PaymentDate,
		payment.Method,
		payment.ReferenceCode,
		payment.Status,
		payment.Notes,
	).Scan(&id)

	if err != nil {
		return 0, fmt.Errorf("failed to create payment: %w", err)
	}

	return id, nil
}

// GetByLoanID gets all payments recorded against a loan
func (r *PaymentRepo) GetByLoanID(ctx context.Context, loanID int) ([]*models.Payment, error) {
	query := `SELECT ` + paymentSelectColumns + `
             FROM payments p
             WHERE p.loan_id = $1
             ORDER BY p.payment_date DESC`

	rows, err := r.db.QueryContext(ctx, query, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payments: %w", err)
	}
	defer rows.Close()

	return r.scanPayments(rows)
}

// GetByBorrowerID gets all payments across a borrower's loans
func (r *PaymentRepo) GetByBorrowerID(ctx context.Context, borrowerID int) ([]*models.Payment, error) {
	query := `SELECT ` + paymentSelectColumns + `
             FROM payments p
             JOIN loans l ON p.loan_id = l.id
             WHERE l.borrower_id = $1 AND l.is_deleted = false
             ORDER BY p.payment_date DESC`

	rows, err := r.db.QueryContext(ctx, query, borrowerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payments: %w", err)
	}
	defer rows.Close()

	return r.scanPayments(rows)
}

// GetByLenderID gets all payments across a lender's loans
func (r *PaymentRepo) GetByLenderID(ctx context.Context, lenderID int) ([]*models.Payment, error) {
	query := `SELECT ` + paymentSelectColumns + `
             FROM payments p
             JOIN loans l ON p.loan_id = l.id
             WHERE l.lender_id = $1 AND l.is_deleted = false
             ORDER BY p.payment_date DESC`

	rows, err := r.db.QueryContext(ctx, query, lenderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payments: %w", err)
	}
	defer rows.Close()

	return r.scanPayments(rows)
}

// Helper function to scan multiple payments
func (r *PaymentRepo) scanPayments(rows *sql.Rows) ([]*models.Payment, error) {
	var payments []*models.Payment

	for rows.Next() {
		payment := &models.Payment{}
		err := rows.Scan(
			&payment.ID,
			&payment.LoanID,
			&payment.EMIID,
			&payment.Amount,
			&payment.PaymentDate,
			&payment.Method,
			&payment.ReferenceCode,
			&payment.Status,
			&payment.Notes,
			&payment.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}

		payments = append(payments, payment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return payments, nil
}

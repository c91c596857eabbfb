package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"microloan-service/internal/models"
)

// UserRepo is a PostgreSQL implementation of the repository.UserRepository interface
type UserRepo struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepo
func NewUserRepository(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create creates a new user in the database
func (r *UserRepo) Create(ctx context.Context, user *models.User) (int, error) {
	query := `INSERT INTO users (username, email, password_hash, role, first_name, last_name,
             phone, is_active, pending_approval, kyc_verified)
             VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`

	var id int
	err := r.db.QueryRowContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.PassHash,
		user.Role,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.IsActive,
		user.PendingApproval,
		user.KYCVerified,
	).Scan(&id)

	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}

	return id, nil
}

// GetByID gets a user by ID
func (r *UserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	query := userSelectColumns + ` FROM users WHERE id = $1`
	return r.scanUserRow(r.db.QueryRowContext(ctx, query, id))
}

// GetByUsername gets a user by username
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := userSelectColumns + ` FROM users WHERE username = $1`
	return r.scanUserRow(r.db.QueryRowContext(ctx, query, username))
}

// GetByEmail gets a user by email
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := userSelectColumns + ` FROM users WHERE email = $1`
	return r.scanUserRow(r.db.QueryRowContext(ctx, query, email))
}

// GetPendingApproval gets all users awaiting admin approval
func (r *UserRepo) GetPendingApproval(ctx context.Context) ([]*models.User, error) {
	query := userSelectColumns + ` FROM users WHERE pending_approval = true ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := scanUser(rows, user); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return users, nil
}

// Update updates a user's profile fields
func (r *UserRepo) Update(ctx context.Context, user *models.User) error {
	query := `UPDATE users
             SET username = $1, email = $2, first_name = $3, last_name = $4, phone = $5,
             updated_at = NOW()
             WHERE id = $6`

	result, err := r.db.ExecContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	return checkAffected(result, "user")
}

// SetActive activates or deactivates a user; either way the account is no
// longer pending approval
func (r *UserRepo) SetActive(ctx context.Context, id int, active bool) error {
	query := `UPDATE users
             SET is_active = $1, pending_approval = false, updated_at = NOW()
             WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, active, id)
	if err != nil {
		return fmt.Errorf("failed to update user activation: %w", err)
	}

	return checkAffected(result, "user")
}

// SetKYCVerified updates a user's KYC verification flag
func (r *UserRepo) SetKYCVerified(ctx context.Context, id int, verified bool) error {
	query := `UPDATE users
             SET kyc_verified = $1, updated_at = NOW()
             WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, verified, id)
	if err != nil {
		return fmt.Errorf("failed to update KYC status: %w", err)
	}

	return checkAffected(result, "user")
}

const userSelectColumns = `SELECT id, username, email, password_hash, role, first_name, last_name,
             phone, is_active, pending_approval, kyc_verified, created_at, updated_at`

// scanUserRow scans a single user row
func (r *UserRepo) scanUserRow(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := scanUser(row, user)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner, user *models.User) error {
	return row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PassHash,
		&user.Role,
		&user.FirstName,
		&user.LastName,
		&user.Phone,
		&user.IsActive,
		&user.PendingApproval,
		&user.KYCVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
}

// checkAffected turns a zero-row update into a not-found error
func checkAffected(result sql.Result, entity string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("%s not found", entity)
	}

	return nil
}

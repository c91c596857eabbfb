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

// ErrRetentionExpired is returned when a restore is attempted after the
// trash retention window has passed; the loan is only eligible for purge
var ErrRetentionExpired = errors.New("trash retention window has expired")

// TrashSvc is an implementation of the service.TrashService interface
type TrashSvc struct {
	repos         *repository.Repository
	logger        *logrus.Logger
	config        *configs.Config
	retentionDays int
}

// NewTrashService creates a new TrashSvc
func NewTrashService(deps Dependencies) *TrashSvc {
	return &TrashSvc{
		repos:         deps.Repos,
		logger:        deps.Logger,
		config:        deps.Config,
		retentionDays: deps.Config.Retention.TrashDays,
	}
}

// MoveToTrash soft-deletes a loan owned by the lender. The row stays
// restorable for the retention window.
func (s *TrashSvc) MoveToTrash(ctx context.Context, loanID, lenderID int) error {
	if err := s.repos.Loan.MoveToTrash(ctx, loanID, lenderID, time.Now()); err != nil {
		return fmt.Errorf("failed to move loan to trash: %w", err)
	}

	s.logger.Infof("Loan %d moved to trash by lender %d", loanID, lenderID)

	return nil
}

// Restore brings a trashed loan back, provided the retention window has not
// passed. An expired row is rejected with ErrRetentionExpired.
func (s *TrashSvc) Restore(ctx context.Context, loanID, lenderID int) error {
	loan, err := s.repos.Loan.GetByID(ctx, loanID)
	if err != nil {
		return fmt.Errorf("failed to get loan: %w", err)
	}

	if loan.LenderID != lenderID {
		return ErrAccessDenied
	}

	if !loan.IsDeleted || loan.DeletedAt == nil {
		return errors.New("loan is not in trash")
	}

	if s.isExpired(*loan.DeletedAt, time.Now()) {
		return ErrRetentionExpired
	}

	if err := s.repos.Loan.Restore(ctx, loanID, lenderID); err != nil {
		return fmt.Errorf("failed to restore loan: %w", err)
	}

	s.logger.Infof("Loan %d restored from trash by lender %d", loanID, lenderID)

	return nil
}

// PermanentDelete purges a trashed loan and all its child rows right away
func (s *TrashSvc) PermanentDelete(ctx context.Context, loanID, lenderID int) error {
	loan, err := s.repos.Loan.GetByID(ctx, loanID)
	if err != nil {
		return fmt.Errorf("failed to get loan: %w", err)
	}

	if loan.LenderID != lenderID {
		return ErrAccessDenied
	}

	if !loan.IsDeleted {
		return errors.New("loan must be moved to trash before permanent deletion")
	}

	if err := s.repos.Loan.PurgeCascade(ctx, loanID); err != nil {
		return fmt.Errorf("failed to permanently delete loan: %w", err)
	}

	s.logger.Infof("Loan %d permanently deleted by lender %d", loanID, lenderID)

	return nil
}

// ListTrash lists the lender's trashed loans
func (s *TrashSvc) ListTrash(ctx context.Context, lenderID int) ([]*models.Loan, error) {
	loans, err := s.repos.Loan.GetTrashed(ctx, lenderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trash: %w", err)
	}

	return loans, nil
}

// PurgeExpired permanently deletes every trashed loan past the retention
// window. Runs daily from the scheduler and on demand from the admin API.
// Returns the number of loans purged.
func (s *TrashSvc) PurgeExpired(ctx context.Context) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)

	expired, err := s.repos.Loan.GetTrashedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to get expired trash: %w", err)
	}

	purged := 0
	for _, loan := range expired {
		if err := s.repos.Loan.PurgeCascade(ctx, loan.ID); err != nil {
			s.logger.Warnf("Failed to purge loan %d: %v", loan.ID, err)
			continue
		}
		purged++
	}

	if purged > 0 {
		s.logger.Infof("Purged %d expired loans from trash", purged)
	}

	return purged, nil
}

// isExpired reports whether a deletion timestamp is past the retention window
func (s *TrashSvc) isExpired(deletedAt, now time.Time) bool {
	return now.Sub(deletedAt) > time.Duration(s.retentionDays)*24*time.Hour
}

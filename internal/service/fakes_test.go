package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"microloan-service/configs"
	"microloan-service/internal/models"
	"microloan-service/internal/repository"
)

var errNotImplemented = errors.New("not implemented")

// testDependencies builds service dependencies around in-memory repositories
func testDependencies(repos *repository.Repository) Dependencies {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return Dependencies{
		Repos:  repos,
		Logger: logger,
		Config: &configs.Config{
			Retention: configs.RetentionConfig{TrashDays: 30},
		},
	}
}

// fakeUserRepo is an in-memory repository.UserRepository; users carry no
// email address, so notification sends are skipped
type fakeUserRepo struct {
	users map[int]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	byID := map[int]*models.User{}
	for _, user := range users {
		byID[user.ID] = user
	}
	return &fakeUserRepo{users: byID}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) (int, error) {
	return 0, errNotImplemented
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return user, nil
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return nil, errNotImplemented
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, errNotImplemented
}

func (f *fakeUserRepo) GetPendingApproval(ctx context.Context) ([]*models.User, error) {
	return nil, errNotImplemented
}

func (f *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	return errNotImplemented
}

func (f *fakeUserRepo) SetActive(ctx context.Context, id int, active bool) error {
	return errNotImplemented
}

func (f *fakeUserRepo) SetKYCVerified(ctx context.Context, id int, verified bool) error {
	return errNotImplemented
}

// fakeLoanRepo is an in-memory repository.LoanRepository
type fakeLoanRepo struct {
	loans         map[int]*models.Loan
	statusUpdates map[int]models.LoanStatus
	restored      []int
	purged        []int
	purgeErr      map[int]error
}

func newFakeLoanRepo(loans ...*models.Loan) *fakeLoanRepo {
	byID := map[int]*models.Loan{}
	for _, loan := range loans {
		byID[loan.ID] = loan
	}

	return &fakeLoanRepo{
		loans:         byID,
		statusUpdates: map[int]models.LoanStatus{},
		purgeErr:      map[int]error{},
	}
}

func (f *fakeLoanRepo) CreateWithSchedule(ctx context.Context, loan *models.Loan, emis []*models.EMI) (int, error) {
	return 0, errNotImplemented
}

func (f *fakeLoanRepo) GetByID(ctx context.Context, id int) (*models.Loan, error) {
	loan, ok := f.loans[id]
	if !ok {
		return nil, errors.New("loan not found")
	}
	return loan, nil
}

func (f *fakeLoanRepo) GetByLenderID(ctx context.Context, lenderID int) ([]*models.Loan, error) {
	return nil, errNotImplemented
}

func (f *fakeLoanRepo) GetByBorrowerID(ctx context.Context, borrowerID int) ([]*models.Loan, error) {
	return nil, errNotImplemented
}

func (f *fakeLoanRepo) GetAll(ctx context.Context) ([]*models.Loan, error) {
	return nil, errNotImplemented
}

func (f *fakeLoanRepo) UpdateStatus(ctx context.Context, id int, status models.LoanStatus) error {
	loan, ok := f.loans[id]
	if !ok {
		return errors.New("loan not found")
	}
	loan.Status = status
	f.statusUpdates[id] = status
	return nil
}

func (f *fakeLoanRepo) SetDisbursed(ctx context.Context, id, lenderID int, date time.Time) error {
	return errNotImplemented
}

func (f *fakeLoanRepo) MoveToTrash(ctx context.Context, id, lenderID int, now time.Time) error {
	loan, ok := f.loans[id]
	if !ok || loan.LenderID != lenderID || loan.IsDeleted {
		return errors.New("loan not found")
	}
	loan.IsDeleted = true
	loan.DeletedAt = &now
	return nil
}

func (f *fakeLoanRepo) Restore(ctx context.Context, id, lenderID int) error {
	loan, ok := f.loans[id]
	if !ok || loan.LenderID != lenderID || !loan.IsDeleted {
		return errors.New("loan not found")
	}
	loan.IsDeleted = false
	loan.DeletedAt = nil
	f.restored = append(f.restored, id)
	return nil
}

func (f *fakeLoanRepo) GetTrashed(ctx context.Context, lenderID int) ([]*models.Loan, error) {
	var trashed []*models.Loan
	for _, loan := range f.loans {
		if loan.IsDeleted && loan.LenderID == lenderID {
			trashed = append(trashed, loan)
		}
	}
	return trashed, nil
}

func (f *fakeLoanRepo) GetTrashedBefore(ctx context.Context, cutoff time.Time) ([]*models.Loan, error) {
	var expired []*models.Loan
	for _, loan := range f.loans {
		if loan.IsDeleted && loan.DeletedAt != nil && loan.DeletedAt.Before(cutoff) {
			expired = append(expired, loan)
		}
	}
	return expired, nil
}

func (f *fakeLoanRepo) PurgeCascade(ctx context.Context, id int) error {
	if err := f.purgeErr[id]; err != nil {
		return err
	}
	if _, ok := f.loans[id]; !ok {
		return errors.New("loan not found")
	}
	delete(f.loans, id)
	f.purged = append(f.purged, id)
	return nil
}

// fakeEMIRepo is an in-memory repository.EMIRepository
type fakeEMIRepo struct {
	emis          map[int]*models.EMI
	markedPaid    []int
	appliedPaid   map[int]float64
	statusUpdates map[int]models.EMIStatus
}

func newFakeEMIRepo(emis ...*models.EMI) *fakeEMIRepo {
	byID := map[int]*models.EMI{}
	for _, emi := range emis {
		byID[emi.ID] = emi
	}

	return &fakeEMIRepo{
		emis:          byID,
		appliedPaid:   map[int]float64{},
		statusUpdates: map[int]models.EMIStatus{},
	}
}

func (f *fakeEMIRepo) GetByID(ctx context.Context, id int) (*models.EMI, error) {
	emi, ok := f.emis[id]
	if !ok {
		return nil, errors.New("EMI not found")
	}
	return emi, nil
}

func (f *fakeEMIRepo) GetByLoanID(ctx context.Context, loanID int) ([]*models.EMI, error) {
	var out []*models.EMI
	for _, emi := range f.emis {
		if emi.LoanID == loanID {
			out = append(out, emi)
		}
	}
	return out, nil
}

func (f *fakeEMIRepo) MarkPaid(ctx context.Context, id int, paidDate time.Time) error {
	emi, ok := f.emis[id]
	if !ok {
		return errors.New("EMI not found")
	}
	emi.PaidAmount = emi.Amount
	emi.PaidDate = &paidDate
	emi.Status = models.EMIStatusPaid
	f.markedPaid = append(f.markedPaid, id)
	return nil
}

func (f *fakeEMIRepo) ApplyPayment(ctx context.Context, id int, prevPaid, newPaid float64, status models.EMIStatus, paidDate *time.Time) error {
	emi, ok := f.emis[id]
	if !ok || emi.PaidAmount != prevPaid {
		return errors.New("EMI not found")
	}
	emi.PaidAmount = newPaid
	emi.Status = status
	emi.PaidDate = paidDate
	f.appliedPaid[id] = newPaid
	return nil
}

func (f *fakeEMIRepo) UpdateStatus(ctx context.Context, id int, status models.EMIStatus) error {
	emi, ok := f.emis[id]
	if !ok {
		return errors.New("EMI not found")
	}
	emi.Status = status
	f.statusUpdates[id] = status
	return nil
}

func (f *fakeEMIRepo) GetUnpaidDueBefore(ctx context.Context, cutoff time.Time) ([]*models.EMI, error) {
	var out []*models.EMI
	for _, emi := range f.emis {
		if emi.PaidAmount < emi.Amount && emi.DueDate.Before(cutoff) {
			out = append(out, emi)
		}
	}
	return out, nil
}

// fakePaymentRepo is an in-memory repository.PaymentRepository
type fakePaymentRepo struct {
	created   []*models.Payment
	createErr error
}

func (f *fakePaymentRepo) Create(ctx context.Context, payment *models.Payment) (int, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.created = append(f.created, payment)
	return len(f.created), nil
}

func (f *fakePaymentRepo) GetByLoanID(ctx context.Context, loanID int) ([]*models.Payment, error) {
	return nil, errNotImplemented
}

func (f *fakePaymentRepo) GetByBorrowerID(ctx context.Context, borrowerID int) ([]*models.Payment, error) {
	return nil, errNotImplemented
}

func (f *fakePaymentRepo) GetByLenderID(ctx context.Context, lenderID int) ([]*models.Payment, error) {
	return nil, errNotImplemented
}

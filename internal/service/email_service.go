package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"microloan-service/configs"
	"microloan-service/internal/models"
	"microloan-service/internal/repository"
)

// EmailSvc is an implementation of the service.EmailService interface
type EmailSvc struct {
	repos  *repository.Repository
	logger *logrus.Logger
	config *configs.Config
}

// NewEmailService creates a new EmailSvc
func NewEmailService(deps Dependencies) *EmailSvc {
	return &EmailSvc{
		repos:  deps.Repos,
		logger: deps.Logger,
		config: deps.Config,
	}
}

// SendAccountApproved notifies a user that an admin approved their account
func (s *EmailSvc) SendAccountApproved(ctx context.Context, userID int) error {
	user, err := s.repos.User.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	// Skip if email is empty
	if user.Email == "" {
		return nil
	}

	subject := "Your account has been approved"

	body := fmt.Sprintf(`
	<h2>Account Approved</h2>
	<p>Dear %s %s,</p>

	<p>Your %s account on the microloan platform has been approved. You can now
	log in and start using the dashboard.</p>

	<p>
	Best regards,<br>
	Microloan Service Team
	</p>
	`,
		user.FirstName, user.LastName,
		user.Role,
	)

	if err := s.sendEmail(user.Email, subject, body); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Approval email sent to %s", user.Email)

	return nil
}

// SendLoanCreated notifies a borrower that a loan was issued to them
func (s *EmailSvc) SendLoanCreated(ctx context.Context, loan *models.Loan) error {
	borrower, err := s.repos.User.GetByID(ctx, loan.BorrowerID)
	if err != nil {
		return fmt.Errorf("failed to get borrower: %w", err)
	}

	// Skip if email is empty
	if borrower.Email == "" {
		return nil
	}

	subject := fmt.Sprintf("New loan %s issued to you", loan.LoanNumber)

	body := fmt.Sprintf(`
	<h2>Loan Issued</h2>
	<p>Dear %s %s,</p>

	<p>A new loan has been issued to your account:</p>

	<table style="border-collapse: collapse; width: 100%%;">
		<tr>
			<td style="padding: 8px; border: 1px solid #ddd;"><strong>Loan Number:</strong></td>
			<td style="padding: 8px; border: 1px solid #ddd;">%s</td>
		</tr>
		<tr>
			<td style="padding: 8px; border: 1px solid #ddd;"><strong>Principal:</strong></td>
			<td style="padding: 8px; border: 1px solid #ddd;">%.2f</td>
		</tr>
		<tr>
			<td style="padding: 8px; border: 1px solid #ddd;"><strong>Total Payable:</strong></td>
			<td style="padding: 8px; border: 1px solid #ddd;">%.2f</td>
		</tr>
		<tr>
			<td style="padding: 8px; border: 1px solid #ddd;"><strong>Interest Rate:</strong></td>
			<td style="padding: 8px; border: 1px solid #ddd;">%.2f%%</td>
		</tr>
		<tr>
			<td style="padding: 8px; border: 1px solid #ddd;"><strong>Tenure:</strong></td>
			<td style="padding: 8px; border: 1px solid #ddd;">%d %s</td>
		</tr>
	</table>

	<p>Your repayment schedule is available on the dashboard.</p>

	<p>
	Best regards,<br>
	Microloan Service Team
	</p>
	`,
		borrower.FirstName, borrower.LastName,
		loan.LoanNumber,
		loan.PrincipalAmount,
		loan.TotalAmount,
		loan.InterestRate,
		loan.TenureValue, loan.TenureUnit,
	)

	if err := s.sendEmail(borrower.Email, subject, body); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Loan notification email sent to %s for loan %d", borrower.Email, loan.ID)

	return nil
}

// SendOverdueReminder reminds a borrower about a missed installment
func (s *EmailSvc) SendOverdueReminder(ctx context.Context, loan *models.Loan, emi *models.EMI) error {
	borrower, err := s.repos.User.GetByID(ctx, loan.BorrowerID)
	if err != nil {
		return fmt.Errorf("failed to get borrower: %w", err)
	}

	// Skip if email is empty
	if borrower.Email == "" {
		return nil
	}

	daysOverdue := int(time.Since(emi.DueDate).Hours() / 24)
	remaining := emi.Amount - emi.PaidAmount

	subject := fmt.Sprintf("OVERDUE installment on loan %s", loan.LoanNumber)

	body := fmt.Sprintf(`
	<h2>Overdue Installment</h2>
	<p>Dear %s %s,</p>

	<p style="color: red; font-weight: bold;">
		Installment #%d of loan %s is overdue by %d days.
	</p>

	<p>Open amount: %.2f (due %s). Please contact your lender to settle the
	payment.</p>

	<p>
	Best regards,<br>
	Microloan Service Team
	</p>
	`,
		borrower.FirstName, borrower.LastName,
		emi.EMINumber, loan.LoanNumber, daysOverdue,
		remaining, emi.DueDate.Format("2006-01-02"),
	)

	if err := s.sendEmail(borrower.Email, subject, body); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Overdue reminder sent to %s for EMI %d", borrower.Email, emi.ID)

	return nil
}

// sendEmail sends an HTML email via SMTP
func (s *EmailSvc) sendEmail(to, subject, body string) error {
	// Create a new message
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.Email.SenderEmail)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	// Create a new dialer
	d := gomail.NewDialer(
		s.config.Email.SMTPHost,
		s.config.Email.SMTPPort,
		s.config.Email.SMTPUser,
		s.config.Email.SMTPPassword,
	)

	// Send the email
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

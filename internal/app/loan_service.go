/**
 * @description
 * This file implements the loan lifecycle service: application with a credit
 * score gate, the approve/reject decision, and repayment down to PAID. Status
 * transitions live on the domain model; this service sequences them against
 * the repository and publishes audit events.
 *
 * The credit score is deliberately simple: base 650, plus 10 per existing
 * account, plus 50 for an educational email domain, capped at 850, denied
 * below 600. The base alone already clears the threshold, so the gate can only
 * fire after a future tightening of the arithmetic; it is kept as-is rather
 * than "fixed".
 *
 * @dependencies
 * - context, fmt, time: Standard Go libraries.
 * - github.com/google/uuid: Entity identifiers.
 * - internal/domain, internal/store, pkg/rabbitmq.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/oakline/ledger-service/internal/domain"
	"github.com/oakline/ledger-service/internal/store"
	"github.com/oakline/ledger-service/pkg/rabbitmq"
)

// ErrCreditDenied rejects loan applications whose credit score falls below the threshold.
var ErrCreditDenied = errors.New("credit score too low for loan")

const (
	creditScoreBase       = 650
	creditScorePerAccount = 10
	creditScoreEduBonus   = 50
	creditScoreCap        = 850
	creditScoreDenyBelow  = 600
)

// LoanService sequences the loan lifecycle against the repository.
type LoanService struct {
	repo     store.Repository
	producer rabbitmq.Publisher
}

// NewLoanService creates a new loan service instance. producer may be nil.
func NewLoanService(repo store.Repository, producer rabbitmq.Publisher) *LoanService {
	return &LoanService{repo: repo, producer: producer}
}

func (s *LoanService) audit(ctx context.Context, userID uuid.UUID, action, details string) {
	if s.producer == nil {
		return
	}
	event := rabbitmq.AuditEvent{
		UserID:    userID,
		Action:    action,
		Details:   details,
		Timestamp: time.Now(),
	}
	if err := s.producer.PublishAuditEvent(ctx, event); err != nil {
		log.Printf("level=warn component=loan_service msg=\"failed to publish audit event\" action=%s err=%v", action, err)
	}
}

// creditScore computes the applicant's mock credit score.
func (s *LoanService) creditScore(ctx context.Context, owner *domain.User) (int, error) {
	accountCount, err := s.repo.CountAccountsByOwner(ctx, owner.ID)
	if err != nil {
		return 0, err
	}

	score := creditScoreBase
	score += accountCount * creditScorePerAccount
	if owner.HasEducationalEmail() {
		score += creditScoreEduBonus
	}
	if score > creditScoreCap {
		score = creditScoreCap
	}
	return score, nil
}

// Apply runs the credit check and creates a PENDING loan at the flat rate.
func (s *LoanService) Apply(ctx context.Context, ownerID uuid.UUID, principal float64, termMonths int) (*domain.Loan, error) {
	owner, err := s.repo.FindUserByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	loan, err := domain.NewLoan(ownerID, principal, termMonths, time.Now())
	if err != nil {
		return nil, err
	}

	score, err := s.creditScore(ctx, owner)
	if err != nil {
		return nil, err
	}
	if score < creditScoreDenyBelow {
		return nil, ErrCreditDenied
	}

	if err := s.repo.CreateLoan(ctx, loan); err != nil {
		return nil, err
	}

	s.audit(ctx, ownerID, "LOAN_APPLY", fmt.Sprintf("loan_id=%s principal=%.2f term_months=%d score=%d", loan.ID, principal, termMonths, score))
	return loan, nil
}

// Approve transitions a PENDING loan to APPROVED. Funds are not disbursed;
// disbursement is a follow-up integration with the ledger service.
func (s *LoanService) Approve(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	loan, err := s.repo.FindLoanByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if err := loan.Approve(); err != nil {
		return nil, err
	}
	if err := s.repo.SaveLoan(ctx, loan); err != nil {
		return nil, err
	}
	s.audit(ctx, loan.OwnerID, "LOAN_APPROVE", fmt.Sprintf("loan_id=%s", loanID))
	return loan, nil
}

// Reject transitions a PENDING loan to REJECTED.
func (s *LoanService) Reject(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	loan, err := s.repo.FindLoanByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if err := loan.Reject(); err != nil {
		return nil, err
	}
	if err := s.repo.SaveLoan(ctx, loan); err != nil {
		return nil, err
	}
	s.audit(ctx, loan.OwnerID, "LOAN_REJECT", fmt.Sprintf("loan_id=%s", loanID))
	return loan, nil
}

// Repay pays down an APPROVED loan, clamping the remaining amount at zero.
func (s *LoanService) Repay(ctx context.Context, loanID uuid.UUID, amount float64) (*domain.Loan, error) {
	loan, err := s.repo.FindLoanByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if err := loan.Repay(amount); err != nil {
		return nil, err
	}
	if err := s.repo.SaveLoan(ctx, loan); err != nil {
		return nil, err
	}
	s.audit(ctx, loan.OwnerID, "LOAN_REPAY", fmt.Sprintf("loan_id=%s amount=%.2f remaining=%.2f", loanID, amount, loan.RemainingAmount))
	return loan, nil
}

// ListLoansForOwner returns the owner's loans.
func (s *LoanService) ListLoansForOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Loan, error) {
	return s.repo.ListLoansByOwner(ctx, ownerID)
}

// ListPendingLoans returns every loan awaiting the approve/reject decision.
func (s *LoanService) ListPendingLoans(ctx context.Context) ([]domain.Loan, error) {
	return s.repo.ListPendingLoans(ctx)
}

/**
 * @description
 * This file defines the Loan domain model and its lifecycle state machine.
 *
 * States: PENDING -> APPROVED | REJECTED (the branch is taken exactly once, from
 * PENDING only); APPROVED -> PAID when the remaining amount reaches zero.
 * REJECTED and PAID are terminal.
 *
 * RemainingAmount is simple interest computed once at creation
 * (principal + principal*rate, not amortized) and only ever decreases through
 * Repay, clamping at zero. Overpayment beyond the remaining balance is silently
 * absorbed with no refund; that is intentional product behavior, not a bug.
 *
 * @dependencies
 * - time: Standard Go library.
 * - github.com/google/uuid: For loan identifiers.
 */

package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

const (
	LoanPending  LoanStatus = "PENDING"
	LoanApproved LoanStatus = "APPROVED"
	LoanRejected LoanStatus = "REJECTED"
	LoanPaid     LoanStatus = "PAID"
)

// LoanInterestRate is the flat rate applied to every loan at creation.
const LoanInterestRate = 0.10

var (
	ErrInvalidLoanState = errors.New("loan state does not permit this action")
	ErrInvalidLoanTerm  = errors.New("loan term must be positive")
)

// Loan is a loan record with its repayment state.
type Loan struct {
	ID              uuid.UUID  `json:"id"`
	OwnerID         uuid.UUID  `json:"owner_id"`
	Principal       float64    `json:"principal"`
	InterestRate    float64    `json:"interest_rate"`
	TermMonths      int        `json:"term_months"`
	Status          LoanStatus `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	RemainingAmount float64    `json:"remaining_amount"`
}

// NewLoan constructs a PENDING loan with the repayment obligation computed up front.
func NewLoan(ownerID uuid.UUID, principal float64, termMonths int, now time.Time) (*Loan, error) {
	if principal <= 0 {
		return nil, ErrInvalidAmount
	}
	if termMonths <= 0 {
		return nil, ErrInvalidLoanTerm
	}
	return &Loan{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		Principal:       principal,
		InterestRate:    LoanInterestRate,
		TermMonths:      termMonths,
		Status:          LoanPending,
		CreatedAt:       now,
		RemainingAmount: principal + principal*LoanInterestRate,
	}, nil
}

// Approve moves a PENDING loan to APPROVED. Approval does not disburse funds.
func (l *Loan) Approve() error {
	if l.Status != LoanPending {
		return ErrInvalidLoanState
	}
	l.Status = LoanApproved
	return nil
}

// Reject moves a PENDING loan to REJECTED.
func (l *Loan) Reject() error {
	if l.Status != LoanPending {
		return ErrInvalidLoanState
	}
	l.Status = LoanRejected
	return nil
}

// Repay subtracts amount from the remaining balance, clamping at zero, and
// marks the loan PAID exactly when the balance reaches zero.
func (l *Loan) Repay(amount float64) error {
	if l.Status != LoanApproved {
		return ErrInvalidLoanState
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	l.RemainingAmount -= amount
	if l.RemainingAmount <= 0 {
		l.RemainingAmount = 0
		l.Status = LoanPaid
	}
	return nil
}

/**
 * @description
 * This file defines the Account domain model and its three variants. An account is a
 * tagged variant: a single struct carrying a discriminator plus the variant-specific
 * fields, with withdrawal eligibility dispatched on the tag. This keeps decoding from
 * the database straightforward (one row shape, one discriminator column) while
 * preserving exhaustive handling when a new variant is added.
 *
 * Balance is never assigned directly outside this file: Deposit and Withdraw are the
 * only mutation paths, and Withdraw always runs the variant's eligibility check first.
 * Persistence of the mutated balance is the caller's responsibility.
 *
 * @dependencies
 * - time: Standard Go library.
 * - github.com/google/uuid: For account identifiers.
 */

package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AccountVariant discriminates the three account types.
type AccountVariant string

const (
	VariantSavings      AccountVariant = "SAVINGS"
	VariantCurrent      AccountVariant = "CURRENT"
	VariantFixedDeposit AccountVariant = "FIXED_DEPOSIT"
)

// Defaults applied at account creation. These mirror the product's standard
// terms; per-account overrides come through CreateAccountParams.
const (
	DefaultSavingsInterestRate      = 0.03
	DefaultSavingsMinBalance        = 500.0
	DefaultOverdraftLimit           = 1000.0
	DefaultFixedDepositTermMonths   = 12
	DefaultFixedDepositInterestRate = 0.06
)

var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds or withdrawal limit exceeded")
	ErrUnknownVariant    = errors.New("unknown account variant")
	ErrUnsupportedEntry  = errors.New("ledger entry kind cannot be applied to a single account")
)

// Account is the polymorphic account record. Variant-specific fields are only
// meaningful for their variant; the rest are zero.
type Account struct {
	ID        uuid.UUID      `json:"id"`
	OwnerID   uuid.UUID      `json:"owner_id"`
	Balance   float64        `json:"balance"`
	Variant   AccountVariant `json:"variant"`
	Active    bool           `json:"active"`
	CreatedAt time.Time      `json:"created_at"`

	// Savings fields. InterestRate is also set for fixed deposits.
	InterestRate float64 `json:"interest_rate,omitempty"`
	MinBalance   float64 `json:"min_balance,omitempty"`

	// Current account field.
	OverdraftLimit float64 `json:"overdraft_limit,omitempty"`

	// Fixed deposit fields. MaturityAt is computed once at creation.
	TermMonths int        `json:"term_months,omitempty"`
	MaturityAt *time.Time `json:"maturity_at,omitempty"`
}

// CreateAccountParams carries optional variant parameters for account creation.
// Zero values fall back to the variant defaults.
type CreateAccountParams struct {
	InterestRate   float64
	MinBalance     float64
	OverdraftLimit float64
	TermMonths     int
}

// NewAccount constructs a zero-balance account of the requested variant.
// The maturity date of a fixed deposit is a simplified 30 days per month.
func NewAccount(ownerID uuid.UUID, variant AccountVariant, params CreateAccountParams, now time.Time) (*Account, error) {
	acc := &Account{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Balance:   0,
		Variant:   variant,
		Active:    true,
		CreatedAt: now,
	}

	switch variant {
	case VariantSavings:
		acc.InterestRate = params.InterestRate
		if acc.InterestRate == 0 {
			acc.InterestRate = DefaultSavingsInterestRate
		}
		acc.MinBalance = params.MinBalance
		if acc.MinBalance == 0 {
			acc.MinBalance = DefaultSavingsMinBalance
		}
	case VariantCurrent:
		acc.OverdraftLimit = params.OverdraftLimit
		if acc.OverdraftLimit == 0 {
			acc.OverdraftLimit = DefaultOverdraftLimit
		}
	case VariantFixedDeposit:
		acc.TermMonths = params.TermMonths
		if acc.TermMonths == 0 {
			acc.TermMonths = DefaultFixedDepositTermMonths
		}
		acc.InterestRate = params.InterestRate
		if acc.InterestRate == 0 {
			acc.InterestRate = DefaultFixedDepositInterestRate
		}
		maturity := now.Add(time.Duration(acc.TermMonths) * 30 * 24 * time.Hour)
		acc.MaturityAt = &maturity
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}

	return acc, nil
}

// Deposit increases the balance. The only validation is that the amount is positive.
func (a *Account) Deposit(amount float64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	a.Balance += amount
	return nil
}

// Withdraw decreases the balance after the variant's eligibility check.
func (a *Account) Withdraw(amount float64, now time.Time) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if !a.CanWithdraw(amount, now) {
		return ErrInsufficientFunds
	}
	a.Balance -= amount
	return nil
}

// ApplyLedgerEntry replays a single-account ledger entry against the balance,
// running the same eligibility path the entry's kind implies. The store uses
// this to re-apply an operation on the freshly locked row, so the balance the
// operation was first checked against cannot have gone stale. TRANSFER legs
// move money between two accounts and are rejected here.
func (a *Account) ApplyLedgerEntry(entry *Transaction) error {
	switch entry.Kind {
	case KindDeposit, KindInterest:
		return a.Deposit(entry.Amount)
	case KindWithdrawal, KindFee:
		return a.Withdraw(entry.Amount, entry.Timestamp)
	default:
		return ErrUnsupportedEntry
	}
}

// CanWithdraw reports whether a withdrawal of the given amount is permitted
// under the variant's rule. It never mutates the account.
func (a *Account) CanWithdraw(amount float64, now time.Time) bool {
	switch a.Variant {
	case VariantSavings:
		return a.Balance-amount >= a.MinBalance
	case VariantCurrent:
		return a.Balance+a.OverdraftLimit >= amount
	case VariantFixedDeposit:
		// Strict lock until maturity, regardless of amount.
		if a.MaturityAt == nil || now.Before(*a.MaturityAt) {
			return false
		}
		return a.Balance >= amount
	default:
		return false
	}
}

// ParseAccountVariant validates a variant tag coming from an API request or a
// database row. Unrecognized tags fail with ErrUnknownVariant rather than a
// generic error so callers can surface the right failure kind.
func ParseAccountVariant(raw string) (AccountVariant, error) {
	switch AccountVariant(raw) {
	case VariantSavings:
		return VariantSavings, nil
	case VariantCurrent:
		return VariantCurrent, nil
	case VariantFixedDeposit:
		return VariantFixedDeposit, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVariant, raw)
	}
}

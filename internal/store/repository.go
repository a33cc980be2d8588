/**
 * @description
 * This file defines the `Repository` interface, the contract for all data access
 * required by the ledger service. The interface decouples the business logic from
 * the PostgreSQL implementation so that app-level tests can run against in-memory
 * stubs.
 *
 * The store keeps five collections: users, accounts, loans, and the two
 * append-only collections, transactions and fraud_flags. Transactions and fraud
 * flags have no update or delete methods anywhere on this interface; that is the
 * append-only ledger contract.
 *
 * Mutating account operations pair the balance write with its ledger append in a
 * single database transaction, and PerformTransfer additionally covers both
 * account rows and both transfer legs. Callers therefore never observe a balance
 * that disagrees with the ledger because of a crash between writes.
 *
 * @dependencies
 * - context: Standard Go library.
 * - github.com/google/uuid: Entity identifiers.
 * - internal/domain: The service's domain models.
 */

package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/oakline/ledger-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// User methods
	CreateUser(ctx context.Context, user *domain.User) error
	FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	FindUserByUsername(ctx context.Context, username string) (*domain.User, error)
	CountAccountsByOwner(ctx context.Context, ownerID uuid.UUID) (int, error)

	// Account methods. CreateAccount writes the account row and, when initial is
	// non-nil, the initial-deposit ledger entry in the same transaction.
	CreateAccount(ctx context.Context, account *domain.Account, initial *domain.Transaction) error
	FindAccountByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
	ListAccountsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Account, error)
	ListSavingsAccounts(ctx context.Context) ([]domain.Account, error)

	// ApplyAccountMutation locks the account row, replays the entry's operation
	// against the current balance, and appends the entry, all in one
	// transaction. The caller's domain-level check runs against a possibly
	// stale read; the authoritative check is the replay under the lock, so two
	// concurrent mutations of one account serialize instead of overwriting
	// each other.
	ApplyAccountMutation(ctx context.Context, accountID uuid.UUID, entry *domain.Transaction) error

	// PerformTransfer moves amount between the two accounts and appends both
	// transfer legs as one atomic unit. Both account rows are locked in canonical
	// id order and the source's eligibility rule is re-checked under the lock, so
	// concurrent transfers over overlapping accounts serialize instead of
	// interleaving.
	PerformTransfer(ctx context.Context, fromID, toID uuid.UUID, amount float64, debit, credit *domain.Transaction) error

	// Transaction ledger methods (append-only; appends happen through the
	// account mutation methods above)
	ListTransactionsByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error)

	// Fraud flag methods (append-only)
	AppendFraudFlag(ctx context.Context, flag *domain.FraudFlag) error
	ListFraudFlags(ctx context.Context) ([]domain.FraudFlag, error)

	// Loan methods
	CreateLoan(ctx context.Context, loan *domain.Loan) error
	FindLoanByID(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error)
	SaveLoan(ctx context.Context, loan *domain.Loan) error
	ListLoansByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Loan, error)
	ListPendingLoans(ctx context.Context) ([]domain.Loan, error)
}

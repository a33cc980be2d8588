/**
 * @description
 * This file defines the Transaction ledger record and the FraudFlag review record.
 * Transactions are append-only: once written they are never updated or deleted, so
 * the ledger stays an auditable history independent of current account balances.
 * A transfer produces exactly two records, a debit leg on the source account and a
 * credit leg on the destination, each referencing the other account through
 * RelatedAccountID.
 *
 * @dependencies
 * - time: Standard Go library.
 * - github.com/google/uuid: For transaction identifiers.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionKind categorizes a ledger entry.
type TransactionKind string

const (
	KindDeposit    TransactionKind = "DEPOSIT"
	KindWithdrawal TransactionKind = "WITHDRAWAL"
	KindTransfer   TransactionKind = "TRANSFER"
	KindInterest   TransactionKind = "INTEREST"
	KindFee        TransactionKind = "FEE"
)

// Transaction is one immutable ledger entry. Amount is always positive; the
// kind says which direction the money moved.
type Transaction struct {
	ID               uuid.UUID       `json:"id"`
	AccountID        uuid.UUID       `json:"account_id"`
	Amount           float64         `json:"amount"`
	Kind             TransactionKind `json:"kind"`
	Timestamp        time.Time       `json:"timestamp"`
	Description      string          `json:"description"`
	RelatedAccountID *uuid.UUID      `json:"related_account_id,omitempty"`
}

// FraudFlagStatusReviewNeeded is the status every new flag is created with.
// Flags are advisory records for human review and are never mutated.
const FraudFlagStatusReviewNeeded = "REVIEW_NEEDED"

// FraudFlag marks a transaction for review. It is created only by the fraud
// screen and never blocks the underlying transaction.
type FraudFlag struct {
	ID            uuid.UUID `json:"id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Reasons       []string  `json:"reasons"`
	Timestamp     time.Time `json:"timestamp"`
	Status        string    `json:"status"`
}

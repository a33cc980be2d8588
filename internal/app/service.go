/**
 * @description
 * This file contains the core business logic of the ledger service. The `Service`
 * struct orchestrates every money-movement operation: it loads accounts from the
 * repository, applies the domain rules, persists the mutation together with its
 * ledger entry, and hands the committed transaction to the fraud screen.
 *
 * Key behaviors:
 * - Account creation with optional initial deposit, recorded as a DEPOSIT entry.
 * - Deposit/withdraw with the balance write and ledger append committed atomically.
 * - Two-account transfer with a pre-flight eligibility check before any mutation
 *   and both legs written in one store transaction.
 * - Interest accrual over all savings accounts, one INTEREST entry each.
 *
 * Domain errors pass through unchanged; the service never reinterprets them.
 *
 * @dependencies
 * - context, fmt, log, time: Standard Go libraries.
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

// ErrSelfTransfer rejects transfers where source and destination are the same account.
var ErrSelfTransfer = errors.New("cannot transfer to the same account")

// Service provides the core ledger operations.
type Service struct {
	repo     store.Repository
	fraud    *FraudScreen
	producer rabbitmq.Publisher
}

// NewService creates a new ledger service instance. producer may be nil.
func NewService(repo store.Repository, fraud *FraudScreen, producer rabbitmq.Publisher) *Service {
	return &Service{
		repo:     repo,
		fraud:    fraud,
		producer: producer,
	}
}

func newLedgerEntry(accountID uuid.UUID, amount float64, kind domain.TransactionKind, description string, related *uuid.UUID) *domain.Transaction {
	return &domain.Transaction{
		ID:               uuid.New(),
		AccountID:        accountID,
		Amount:           amount,
		Kind:             kind,
		Timestamp:        time.Now(),
		Description:      description,
		RelatedAccountID: related,
	}
}

func (s *Service) audit(ctx context.Context, userID uuid.UUID, action, details string) {
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
		log.Printf("level=warn component=ledger_service msg=\"failed to publish audit event\" action=%s err=%v", action, err)
	}
}

// CreateAccount constructs and persists a zero-balance account of the requested
// variant, applying the initial deposit (when positive) through the normal
// deposit path so it shows up on the ledger.
func (s *Service) CreateAccount(ctx context.Context, ownerID uuid.UUID, variant domain.AccountVariant, initialDeposit float64, params domain.CreateAccountParams) (*domain.Account, error) {
	if _, err := s.repo.FindUserByID(ctx, ownerID); err != nil {
		return nil, err
	}

	account, err := domain.NewAccount(ownerID, variant, params, time.Now())
	if err != nil {
		return nil, err
	}

	var initial *domain.Transaction
	if initialDeposit > 0 {
		if err := account.Deposit(initialDeposit); err != nil {
			return nil, err
		}
		initial = newLedgerEntry(account.ID, initialDeposit, domain.KindDeposit, "Initial Deposit", nil)
	}

	if err := s.repo.CreateAccount(ctx, account, initial); err != nil {
		return nil, err
	}

	s.audit(ctx, ownerID, "CREATE_ACCOUNT", fmt.Sprintf("variant=%s account_id=%s", variant, account.ID))
	return account, nil
}

// Deposit credits the account and appends a DEPOSIT ledger entry, then runs the
// fraud screen over the committed entry.
func (s *Service) Deposit(ctx context.Context, accountID uuid.UUID, amount float64) (*domain.Transaction, error) {
	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := account.Deposit(amount); err != nil {
		return nil, err
	}

	entry := newLedgerEntry(account.ID, amount, domain.KindDeposit, "Deposit", nil)
	if err := s.repo.ApplyAccountMutation(ctx, account.ID, entry); err != nil {
		return nil, err
	}

	s.fraud.Screen(ctx, entry)
	s.audit(ctx, account.OwnerID, "DEPOSIT", fmt.Sprintf("amount=%.2f account_id=%s", amount, accountID))
	return entry, nil
}

// Withdraw debits the account after its variant's eligibility check and appends
// a WITHDRAWAL ledger entry, then runs the fraud screen.
func (s *Service) Withdraw(ctx context.Context, accountID uuid.UUID, amount float64) (*domain.Transaction, error) {
	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := account.Withdraw(amount, time.Now()); err != nil {
		return nil, err
	}

	entry := newLedgerEntry(account.ID, amount, domain.KindWithdrawal, "Withdrawal", nil)
	if err := s.repo.ApplyAccountMutation(ctx, account.ID, entry); err != nil {
		return nil, err
	}

	s.fraud.Screen(ctx, entry)
	s.audit(ctx, account.OwnerID, "WITHDRAWAL", fmt.Sprintf("amount=%.2f account_id=%s", amount, accountID))
	return entry, nil
}

// Transfer moves amount between two distinct accounts. The source's eligibility
// is checked before any mutation; the debit, credit and both ledger legs are
// then committed as one atomic unit by the store. The fraud screen runs on the
// credit leg.
func (s *Service) Transfer(ctx context.Context, fromID, toID uuid.UUID, amount float64) (*domain.Transaction, error) {
	if fromID == toID {
		return nil, ErrSelfTransfer
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	from, err := s.repo.FindAccountByID(ctx, fromID)
	if err != nil {
		return nil, err
	}
	to, err := s.repo.FindAccountByID(ctx, toID)
	if err != nil {
		return nil, err
	}

	// Pre-flight check: fail before any mutation happens anywhere.
	if !from.CanWithdraw(amount, time.Now()) {
		return nil, domain.ErrInsufficientFunds
	}

	debit := newLedgerEntry(from.ID, amount, domain.KindTransfer,
		fmt.Sprintf("Transfer to %s", to.ID), &to.ID)
	credit := newLedgerEntry(to.ID, amount, domain.KindTransfer,
		fmt.Sprintf("Transfer from %s", from.ID), &from.ID)

	if err := s.repo.PerformTransfer(ctx, fromID, toID, amount, debit, credit); err != nil {
		return nil, err
	}

	// Screening runs on the receiving side of a transfer.
	s.fraud.Screen(ctx, credit)
	s.audit(ctx, from.OwnerID, "TRANSFER", fmt.Sprintf("amount=%.2f from=%s to=%s", amount, fromID, toID))
	return credit, nil
}

// AccrueInterest applies one accrual period of interest to every savings
// account with a positive computed amount and returns how many accounts were
// credited. The operation is not idempotent; the scheduler invokes it once per
// period.
func (s *Service) AccrueInterest(ctx context.Context) (int, error) {
	accounts, err := s.repo.ListSavingsAccounts(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range accounts {
		account := &accounts[i]
		interest := account.Balance * account.InterestRate
		if interest <= 0 {
			continue
		}
		entry := newLedgerEntry(account.ID, interest, domain.KindInterest, "Annual Interest Applied", nil)
		if err := s.repo.ApplyAccountMutation(ctx, account.ID, entry); err != nil {
			return count, fmt.Errorf("failed to accrue interest for account %s: %w", account.ID, err)
		}
		count++
	}
	return count, nil
}

// ListAccountsForOwner returns the owner's accounts.
func (s *Service) ListAccountsForOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Account, error) {
	return s.repo.ListAccountsByOwner(ctx, ownerID)
}

// ListTransactionsForAccount returns the account's ledger history in order.
func (s *Service) ListTransactionsForAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	return s.repo.ListTransactionsByAccount(ctx, accountID)
}

// ListFraudFlags returns every recorded fraud flag, oldest first.
func (s *Service) ListFraudFlags(ctx context.Context) ([]domain.FraudFlag, error) {
	return s.repo.ListFraudFlags(ctx)
}

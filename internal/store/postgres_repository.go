/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface
 * using the pgx/v5 driver. Each collection maps to a table; accounts carry the
 * variant discriminator column plus the variant-specific columns, and decoding
 * back into a domain.Account goes through the explicit variant-keyed decode so
 * an unrecognized tag fails with domain.ErrUnknownVariant rather than a scan
 * error.
 *
 * All multi-write operations (account mutation + ledger append, and the
 * two-account transfer) run inside a single database transaction with
 * `defer tx.Rollback(ctx)`, so a failure at any step leaves nothing behind.
 *
 * @dependencies
 * - context, errors, fmt, strings: Standard Go libraries.
 * - github.com/google/uuid: Entity identifiers.
 * - github.com/jackc/pgx/v5 with pgconn and pgxpool: PostgreSQL driver, error codes, pooling.
 * - internal/domain: Domain models.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oakline/ledger-service/internal/domain"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrAccountNotFound = errors.New("account not found")
	ErrLoanNotFound    = errors.New("loan not found")
	ErrUsernameTaken   = errors.New("username is already taken")
)

// PostgresRepository is the pgx-backed implementation of Repository.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new repository backed by the given pool.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// --- User methods ---

func (r *PostgresRepository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, username, password_hash, email, phone, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		user.ID, user.Username, user.PasswordHash, user.Email, user.Phone, user.IsAdmin, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, username, password_hash, email, phone, is_admin, created_at
		FROM users
		WHERE id = $1
	`
	var u domain.User
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.Phone, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &u, nil
}

func (r *PostgresRepository) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `
		SELECT id, username, password_hash, email, phone, is_admin, created_at
		FROM users
		WHERE username = $1
	`
	var u domain.User
	err := r.db.QueryRow(ctx, query, username).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.Phone, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	return &u, nil
}

func (r *PostgresRepository) CountAccountsByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE owner_id = $1`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return count, nil
}

// --- Account methods ---

const accountColumns = `id, owner_id, balance, variant, active, created_at,
	interest_rate, min_balance, overdraft_limit, term_months, maturity_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		a       domain.Account
		variant string
	)
	err := row.Scan(&a.ID, &a.OwnerID, &a.Balance, &variant, &a.Active, &a.CreatedAt,
		&a.InterestRate, &a.MinBalance, &a.OverdraftLimit, &a.TermMonths, &a.MaturityAt)
	if err != nil {
		return nil, err
	}
	// Polymorphic decode keyed on the discriminator column.
	parsed, err := domain.ParseAccountVariant(variant)
	if err != nil {
		return nil, err
	}
	a.Variant = parsed
	return &a, nil
}

func insertAccountTx(ctx context.Context, tx pgx.Tx, account *domain.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := tx.Exec(ctx, query,
		account.ID, account.OwnerID, account.Balance, string(account.Variant), account.Active,
		account.CreatedAt, account.InterestRate, account.MinBalance, account.OverdraftLimit,
		account.TermMonths, account.MaturityAt)
	return err
}

func insertTransactionTx(ctx context.Context, tx pgx.Tx, entry *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, account_id, amount, kind, ts, description, related_account_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := tx.Exec(ctx, query,
		entry.ID, entry.AccountID, entry.Amount, string(entry.Kind), entry.Timestamp,
		entry.Description, entry.RelatedAccountID)
	return err
}

func (r *PostgresRepository) CreateAccount(ctx context.Context, account *domain.Account, initial *domain.Transaction) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertAccountTx(ctx, tx, account); err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	if initial != nil {
		if err := insertTransactionTx(ctx, tx, initial); err != nil {
			return fmt.Errorf("failed to record initial deposit: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) FindAccountByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	account, err := scanAccount(r.db.QueryRow(ctx, query, accountID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		if errors.Is(err, domain.ErrUnknownVariant) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return account, nil
}

func (r *PostgresRepository) listAccounts(ctx context.Context, query string, args ...any) ([]domain.Account, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

func (r *PostgresRepository) ListAccountsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = $1 ORDER BY created_at`
	return r.listAccounts(ctx, query, ownerID)
}

func (r *PostgresRepository) ListSavingsAccounts(ctx context.Context) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE variant = $1 ORDER BY created_at`
	return r.listAccounts(ctx, query, string(domain.VariantSavings))
}

func (r *PostgresRepository) ApplyAccountMutation(ctx context.Context, accountID uuid.UUID, entry *domain.Transaction) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the row and replay the operation against the balance it holds now;
	// the caller's check ran against a possibly stale read.
	lockQuery := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	account, err := scanAccount(tx.QueryRow(ctx, lockQuery, accountID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrAccountNotFound
		}
		return fmt.Errorf("failed to lock account %s: %w", accountID, err)
	}
	if err := account.ApplyLedgerEntry(entry); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = $2 WHERE id = $1`, account.ID, account.Balance); err != nil {
		return fmt.Errorf("failed to update account balance: %w", err)
	}
	if err := insertTransactionTx(ctx, tx, entry); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) PerformTransfer(ctx context.Context, fromID, toID uuid.UUID, amount float64, debit, credit *domain.Transaction) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock both rows in canonical id order so two concurrent transfers touching
	// the same accounts cannot deadlock.
	first, second := fromID, toID
	if strings.Compare(second.String(), first.String()) < 0 {
		first, second = second, first
	}

	lockQuery := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	locked := make(map[uuid.UUID]*domain.Account, 2)
	for _, id := range []uuid.UUID{first, second} {
		account, err := scanAccount(tx.QueryRow(ctx, lockQuery, id))
		if err != nil {
			if err == pgx.ErrNoRows {
				return ErrAccountNotFound
			}
			return fmt.Errorf("failed to lock account %s: %w", id, err)
		}
		locked[id] = account
	}

	from, to := locked[fromID], locked[toID]

	// Re-run the eligibility check under the lock; the caller's pre-flight check
	// ran against a possibly stale read.
	if err := from.Withdraw(amount, debit.Timestamp); err != nil {
		return err
	}
	if err := to.Deposit(amount); err != nil {
		return err
	}

	for _, account := range []*domain.Account{from, to} {
		if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = $2 WHERE id = $1`, account.ID, account.Balance); err != nil {
			return fmt.Errorf("failed to update account balance: %w", err)
		}
	}
	// Debit leg first, then credit leg; the ledger preserves this order.
	if err := insertTransactionTx(ctx, tx, debit); err != nil {
		return fmt.Errorf("failed to append debit leg: %w", err)
	}
	if err := insertTransactionTx(ctx, tx, credit); err != nil {
		return fmt.Errorf("failed to append credit leg: %w", err)
	}
	return tx.Commit(ctx)
}

// --- Transaction ledger methods ---

func (r *PostgresRepository) ListTransactionsByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	query := `
		SELECT id, account_id, amount, kind, ts, description, related_account_id
		FROM transactions
		WHERE account_id = $1
		ORDER BY ts
	`
	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var entries []domain.Transaction
	for rows.Next() {
		var (
			entry domain.Transaction
			kind  string
		)
		if err := rows.Scan(&entry.ID, &entry.AccountID, &entry.Amount, &kind, &entry.Timestamp,
			&entry.Description, &entry.RelatedAccountID); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		entry.Kind = domain.TransactionKind(kind)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// --- Fraud flag methods ---

func (r *PostgresRepository) AppendFraudFlag(ctx context.Context, flag *domain.FraudFlag) error {
	query := `
		INSERT INTO fraud_flags (id, transaction_id, reasons, ts, status)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, flag.ID, flag.TransactionID, flag.Reasons, flag.Timestamp, flag.Status)
	if err != nil {
		return fmt.Errorf("failed to append fraud flag: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListFraudFlags(ctx context.Context) ([]domain.FraudFlag, error) {
	query := `
		SELECT id, transaction_id, reasons, ts, status
		FROM fraud_flags
		ORDER BY ts
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list fraud flags: %w", err)
	}
	defer rows.Close()

	var flags []domain.FraudFlag
	for rows.Next() {
		var flag domain.FraudFlag
		if err := rows.Scan(&flag.ID, &flag.TransactionID, &flag.Reasons, &flag.Timestamp, &flag.Status); err != nil {
			return nil, fmt.Errorf("failed to scan fraud flag: %w", err)
		}
		flags = append(flags, flag)
	}
	return flags, rows.Err()
}

// --- Loan methods ---

func (r *PostgresRepository) CreateLoan(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (id, owner_id, principal, interest_rate, term_months, status, created_at, remaining_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		loan.ID, loan.OwnerID, loan.Principal, loan.InterestRate, loan.TermMonths,
		string(loan.Status), loan.CreatedAt, loan.RemainingAmount)
	if err != nil {
		return fmt.Errorf("failed to create loan: %w", err)
	}
	return nil
}

func scanLoan(row pgx.Row) (*domain.Loan, error) {
	var (
		l      domain.Loan
		status string
	)
	err := row.Scan(&l.ID, &l.OwnerID, &l.Principal, &l.InterestRate, &l.TermMonths,
		&status, &l.CreatedAt, &l.RemainingAmount)
	if err != nil {
		return nil, err
	}
	l.Status = domain.LoanStatus(status)
	return &l, nil
}

const loanColumns = `id, owner_id, principal, interest_rate, term_months, status, created_at, remaining_amount`

func (r *PostgresRepository) FindLoanByID(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`
	loan, err := scanLoan(r.db.QueryRow(ctx, query, loanID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("failed to find loan: %w", err)
	}
	return loan, nil
}

func (r *PostgresRepository) SaveLoan(ctx context.Context, loan *domain.Loan) error {
	query := `
		UPDATE loans
		SET status = $2, remaining_amount = $3
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, loan.ID, string(loan.Status), loan.RemainingAmount)
	if err != nil {
		return fmt.Errorf("failed to save loan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLoanNotFound
	}
	return nil
}

func (r *PostgresRepository) listLoans(ctx context.Context, query string, args ...any) ([]domain.Loan, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	defer rows.Close()

	var loans []domain.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, *loan)
	}
	return loans, rows.Err()
}

func (r *PostgresRepository) ListLoansByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE owner_id = $1 ORDER BY created_at`
	return r.listLoans(ctx, query, ownerID)
}

func (r *PostgresRepository) ListPendingLoans(ctx context.Context) ([]domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE status = $1 ORDER BY created_at`
	return r.listLoans(ctx, query, string(domain.LoanPending))
}

var _ Repository = (*PostgresRepository)(nil)

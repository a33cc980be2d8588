/**
 * @description
 * This file contains the HTTP handlers for account and ledger operations. The
 * handlers are a thin shell around the app services: they decode the request,
 * resolve the acting user from the context placed there by the auth middleware,
 * enforce account ownership, invoke the service, and map the domain error
 * taxonomy onto HTTP statuses. No business rule lives here.
 *
 * @dependencies
 * - encoding/json, errors, log, net/http, strconv, time: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - github.com/google/uuid: Identifier parsing.
 * - internal/app, internal/domain, internal/store.
 */

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/oakline/ledger-service/internal/app"
	"github.com/oakline/ledger-service/internal/domain"
	"github.com/oakline/ledger-service/internal/store"
)

// TransferLimiter is the quota check consulted before a transfer executes.
// *app.RedisTransferRateLimiter satisfies it; a nil limiter disables limiting.
type TransferLimiter interface {
	Allow(ctx context.Context, scope, subject string, limit int, window time.Duration) (allowed bool, retryAfterSeconds int, err error)
}

// Handlers bundles the app services behind the HTTP surface.
type Handlers struct {
	ledger      *app.Service
	loans       *app.LoanService
	auth        *app.AuthService
	rateLimiter TransferLimiter
	// Transfers per user per minute; zero disables limiting.
	transferRateLimit int
}

// NewHandlers creates a new Handlers instance. rateLimiter may be nil.
func NewHandlers(ledger *app.Service, loans *app.LoanService, auth *app.AuthService, rateLimiter TransferLimiter, transferRateLimit int) *Handlers {
	return &Handlers{
		ledger:            ledger,
		loans:             loans,
		auth:              auth,
		rateLimiter:       rateLimiter,
		transferRateLimit: transferRateLimit,
	}
}

// writeJSON is a helper for writing JSON responses.
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("level=error component=api msg=\"failed to encode response\" err=%v", err)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps the domain error taxonomy onto HTTP statuses. Every
// kind here is a recoverable, caller-surfaced validation failure.
func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidLoanTerm),
		errors.Is(err, domain.ErrUnknownVariant),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, app.ErrSelfTransfer):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, app.ErrCreditDenied):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, store.ErrAccountNotFound),
		errors.Is(err, store.ErrLoanNotFound),
		errors.Is(err, store.ErrUserNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidLoanState):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrUsernameTaken):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials):
		h.writeError(w, http.StatusUnauthorized, err.Error())
	default:
		log.Printf("level=error component=api msg=\"unexpected service error\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handlers) actingUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
	}
	return userID, ok
}

func (h *Handlers) parseIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// loadOwnedAccount fetches the account and verifies the acting user owns it;
// admins bypass the ownership check.
func (h *Handlers) loadOwnedAccount(w http.ResponseWriter, r *http.Request, accountID, userID uuid.UUID) (*domain.Account, bool) {
	accounts, err := h.ledger.ListAccountsForOwner(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return nil, false
	}
	for i := range accounts {
		if accounts[i].ID == accountID {
			return &accounts[i], true
		}
	}
	if IsAdmin(r.Context()) {
		return nil, true
	}
	h.writeError(w, http.StatusForbidden, "account does not belong to you")
	return nil, false
}

// --- Account handlers ---

type createAccountRequest struct {
	Variant        string  `json:"variant"`
	InitialDeposit float64 `json:"initial_deposit"`
	TermMonths     int     `json:"term_months"`
}

// CreateAccountHandler opens a new account for the authenticated user.
func (h *Handlers) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(w, r)
	if !ok {
		return
	}

	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	variant, err := domain.ParseAccountVariant(req.Variant)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	account, err := h.ledger.CreateAccount(r.Context(), userID, variant, req.InitialDeposit,
		domain.CreateAccountParams{TermMonths: req.TermMonths})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, account)
}

// ListAccountsHandler lists the authenticated user's accounts.
func (h *Handlers) ListAccountsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(w, r)
	if !ok {
		return
	}
	accounts, err := h.ledger.ListAccountsForOwner(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}
	h.writeJSON(w, http.StatusOK, accounts)
}

type amountRequest struct {
	Amount float64 `json:"amount"`
}

// DepositHandler credits the caller's account.
func (h *Handlers) DepositHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(w, r)
	if !ok {
		return
	}
	accountID, ok := h.parseIDParam(w, r, "accountID")
	if !ok {
		return
	}
	if _, ok := h.loadOwnedAccount(w, r, accountID, userID); !ok {
		return
	}

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.ledger.Deposit(r.Context(), accountID, req.Amount)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, entry)
}

// WithdrawHandler debits the caller's account.
func (h *Handlers) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(w, r)
	if !ok {
		return
	}
	accountID, ok := h.parseIDParam(w, r, "accountID")
	if !ok {
		return
	}
	if _, ok := h.loadOwnedAccount(w, r, accountID, userID); !ok {
		return
	}

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.ledger.Withdraw(r.Context(), accountID, req.Amount)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, entry)
}

type transferRequest struct {
	FromAccountID uuid.UUID `json:"from_account_id"`
	ToAccountID   uuid.UUID `json:"to_account_id"`
	Amount        float64   `json:"amount"`
}

// TransferHandler moves money between two accounts. The source must belong to
// the caller; the destination can be anyone's account.
func (h *Handlers) TransferHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(w, r)
	if !ok {
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, ok := h.loadOwnedAccount(w, r, req.FromAccountID, userID); !ok {
		return
	}

	// Quota is charged only for requests that made it past validation and
	// ownership, so malformed or forbidden requests do not burn the window.
	if h.rateLimiter != nil && h.transferRateLimit > 0 {
		allowed, retryAfter, err := h.rateLimiter.Allow(r.Context(), "transfer", userID.String(), h.transferRateLimit, time.Minute)
		if err != nil {
			log.Printf("level=warn component=api msg=\"transfer rate limiter unavailable; allowing request\" err=%v", err)
		} else if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			h.writeError(w, http.StatusTooManyRequests, "too many transfers; slow down")
			return
		}
	}

	credit, err := h.ledger.Transfer(r.Context(), req.FromAccountID, req.ToAccountID, req.Amount)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, credit)
}

// ListTransactionsHandler returns the ledger history of the caller's account.
func (h *Handlers) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(w, r)
	if !ok {
		return
	}
	accountID, ok := h.parseIDParam(w, r, "accountID")
	if !ok {
		return
	}
	if _, ok := h.loadOwnedAccount(w, r, accountID, userID); !ok {
		return
	}

	entries, err := h.ledger.ListTransactionsForAccount(r.Context(), accountID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.Transaction{}
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// --- Admin handlers ---

// AccrueInterestHandler applies interest to all savings accounts. Admin only;
// normally invoked by the scheduler binary instead.
func (h *Handlers) AccrueInterestHandler(w http.ResponseWriter, r *http.Request) {
	count, err := h.ledger.AccrueInterest(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"accounts_credited": count})
}

// ListFraudFlagsHandler returns every transaction flagged for review. Admin only.
func (h *Handlers) ListFraudFlagsHandler(w http.ResponseWriter, r *http.Request) {
	flags, err := h.ledger.ListFraudFlags(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if flags == nil {
		flags = []domain.FraudFlag{}
	}
	h.writeJSON(w, http.StatusOK, flags)
}

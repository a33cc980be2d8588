/**
 * @description
 * This file sets up the HTTP router for the ledger service. It defines the API
 * endpoints, associates them with their handlers, and applies middleware for
 * logging, panic recovery, timeouts, CORS and authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Routes creates and returns the router for the ledger service.
func Routes(h *Handlers, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Public auth endpoints.
	r.Post("/auth/register", h.RegisterHandler)
	r.Post("/auth/login", h.LoginHandler)

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))

		// Accounts and money movement.
		r.Post("/accounts", h.CreateAccountHandler)
		r.Get("/accounts", h.ListAccountsHandler)
		r.Post("/accounts/{accountID}/deposit", h.DepositHandler)
		r.Post("/accounts/{accountID}/withdraw", h.WithdrawHandler)
		r.Get("/accounts/{accountID}/transactions", h.ListTransactionsHandler)
		r.Post("/transfers", h.TransferHandler)

		// Loans.
		r.Post("/loans", h.ApplyLoanHandler)
		r.Get("/loans", h.ListLoansHandler)
		r.Post("/loans/{loanID}/repay", h.RepayLoanHandler)

		// Administrative endpoints.
		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/admin/loans/pending", h.ListPendingLoansHandler)
			r.Post("/admin/loans/{loanID}/approve", h.ApproveLoanHandler)
			r.Post("/admin/loans/{loanID}/reject", h.RejectLoanHandler)
			r.Post("/admin/interest/accrue", h.AccrueInterestHandler)
			r.Get("/admin/fraud-flags", h.ListFraudFlagsHandler)
		})
	})

	return r
}

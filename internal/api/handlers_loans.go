/**
 * @description
 * HTTP handlers for the loan lifecycle: application, the admin approve/reject
 * decision, repayment, and listings.
 */

package api

import (
	"encoding/json"
	"net/http"

	"github.com/oakline/ledger-service/internal/domain"
)

type applyLoanRequest struct {
	Principal  float64 `json:"principal"`
	TermMonths int     `json:"term_months"`
}

// ApplyLoanHandler files a loan application for the authenticated user.
func (h *Handlers) ApplyLoanHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(w, r)
	if !ok {
		return
	}

	var req applyLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	loan, err := h.loans.Apply(r.Context(), userID, req.Principal, req.TermMonths)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, loan)
}

// ApproveLoanHandler approves a pending loan. Admin only.
func (h *Handlers) ApproveLoanHandler(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.parseIDParam(w, r, "loanID")
	if !ok {
		return
	}
	loan, err := h.loans.Approve(r.Context(), loanID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, loan)
}

// RejectLoanHandler rejects a pending loan. Admin only.
func (h *Handlers) RejectLoanHandler(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.parseIDParam(w, r, "loanID")
	if !ok {
		return
	}
	loan, err := h.loans.Reject(r.Context(), loanID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, loan)
}

// RepayLoanHandler pays down the caller's approved loan.
func (h *Handlers) RepayLoanHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(w, r)
	if !ok {
		return
	}
	loanID, ok := h.parseIDParam(w, r, "loanID")
	if !ok {
		return
	}

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Only the loan's owner may repay it.
	loans, err := h.loans.ListLoansForOwner(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	owned := false
	for i := range loans {
		if loans[i].ID == loanID {
			owned = true
			break
		}
	}
	if !owned && !IsAdmin(r.Context()) {
		h.writeError(w, http.StatusForbidden, "loan does not belong to you")
		return
	}

	loan, err := h.loans.Repay(r.Context(), loanID, req.Amount)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, loan)
}

// ListLoansHandler lists the authenticated user's loans.
func (h *Handlers) ListLoansHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actingUser(w, r)
	if !ok {
		return
	}
	loans, err := h.loans.ListLoansForOwner(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if loans == nil {
		loans = []domain.Loan{}
	}
	h.writeJSON(w, http.StatusOK, loans)
}

// ListPendingLoansHandler lists loans awaiting a decision. Admin only.
func (h *Handlers) ListPendingLoansHandler(w http.ResponseWriter, r *http.Request) {
	loans, err := h.loans.ListPendingLoans(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if loans == nil {
		loans = []domain.Loan{}
	}
	h.writeJSON(w, http.StatusOK, loans)
}

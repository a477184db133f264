package httpapi

import (
	"net/http"

	"github.com/shopspring/decimal"

	"kortio.se/internal/bank"
	"kortio.se/internal/obs"
)

type loanRequest struct {
	CompanyID          string           `json:"company_id"`
	Principal          decimal.Decimal  `json:"principal"`
	InterestRate       decimal.Decimal  `json:"interest_rate"`
	TermMonths         int              `json:"term_months"`
	OutstandingBalance *decimal.Decimal `json:"outstanding_balance"`
	Status             bank.LoanStatus  `json:"status"`
	ApproverID         *string          `json:"approver_id"`
}

func (a *API) handleLoansCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createLoan(w, r)
	case http.MethodGet:
		a.listLoans(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleLoanScoped(w http.ResponseWriter, r *http.Request) {
	id, child, ok := splitScoped(r.URL.Path, "/v1/loans/")
	if !ok {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch child {
	case "":
		switch r.Method {
		case http.MethodGet:
			a.getLoan(w, r, id)
		case http.MethodPatch, http.MethodPut:
			a.updateLoan(w, r, id)
		case http.MethodDelete:
			a.deleteLoan(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodPut, http.MethodDelete)
		}
	case "transactions":
		a.listScopedTransactions(w, r, "Loan", bank.TransactionScope{LoanID: id})
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) createLoan(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	loan, err := a.store.Loans().Create(r.Context(), bank.LoanInput{
		CompanyID:          req.CompanyID,
		Principal:          req.Principal,
		InterestRate:       req.InterestRate,
		TermMonths:         req.TermMonths,
		OutstandingBalance: req.OutstandingBalance,
		Status:             req.Status,
		ApproverID:         req.ApproverID,
	})
	if err != nil {
		a.writeStoreError(w, r, "Loan", err)
		return
	}

	a.audit(r.Context(), "loan.create", loan.ID, map[string]any{
		"company_id": loan.CompanyID,
		"principal":  loan.Principal.String(),
	})
	obs.WriteObserved("loan", "create")
	w.Header().Set("Location", "/v1/loans/"+loan.ID)
	writeJSON(w, http.StatusCreated, loan)
}

func (a *API) listLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := a.store.Loans().List(r.Context())
	if err != nil {
		a.writeStoreError(w, r, "Loan", err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

func (a *API) getLoan(w http.ResponseWriter, r *http.Request, id string) {
	loan, err := a.store.Loans().Get(r.Context(), id)
	if err != nil {
		a.writeStoreError(w, r, "Loan", err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (a *API) updateLoan(w http.ResponseWriter, r *http.Request, id string) {
	var patch bank.LoanPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	loan, err := a.store.Loans().Update(r.Context(), id, patch)
	if err != nil {
		a.writeStoreError(w, r, "Loan", err)
		return
	}

	a.audit(r.Context(), "loan.update", loan.ID, nil)
	obs.WriteObserved("loan", "update")
	writeJSON(w, http.StatusOK, loan)
}

func (a *API) deleteLoan(w http.ResponseWriter, r *http.Request, id string) {
	if err := a.store.Loans().Delete(r.Context(), id); err != nil {
		a.writeStoreError(w, r, "Loan", err)
		return
	}
	a.audit(r.Context(), "loan.delete", id, nil)
	obs.WriteObserved("loan", "delete")
	w.WriteHeader(http.StatusNoContent)
}

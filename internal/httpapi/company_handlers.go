package httpapi

import (
	"net/http"

	"github.com/shopspring/decimal"

	"kortio.se/internal/bank"
	"kortio.se/internal/obs"
)

type companyRequest struct {
	Name         string           `json:"name"`
	TaxID        *string          `json:"tax_id"`
	CountryCode  *string          `json:"country_code"`
	BusinessType *string          `json:"business_type"`
	Address      map[string]any   `json:"address"`
	CreditLimit  *decimal.Decimal `json:"credit_limit"`
}

func (a *API) handleCompaniesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createCompany(w, r)
	case http.MethodGet:
		a.listCompanies(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleCompanyScoped(w http.ResponseWriter, r *http.Request) {
	id, child, ok := splitScoped(r.URL.Path, "/v1/companies/")
	if !ok {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch child {
	case "":
		switch r.Method {
		case http.MethodGet:
			a.getCompany(w, r, id)
		case http.MethodPatch, http.MethodPut:
			a.updateCompany(w, r, id)
		case http.MethodDelete:
			a.deleteCompany(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodPut, http.MethodDelete)
		}
	case "users":
		a.listCompanyUsers(w, r, id)
	case "accounts":
		a.listCompanyAccounts(w, r, id)
	case "loans":
		a.listCompanyLoans(w, r, id)
	case "transactions":
		a.listScopedTransactions(w, r, "Company", bank.TransactionScope{CompanyID: id})
	case "spending-summary":
		a.companySpendingSummary(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) createCompany(w http.ResponseWriter, r *http.Request) {
	var req companyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	company, err := a.store.Companies().Create(r.Context(), bank.CompanyInput{
		Name:         req.Name,
		TaxID:        req.TaxID,
		CountryCode:  req.CountryCode,
		BusinessType: req.BusinessType,
		Address:      req.Address,
		CreditLimit:  req.CreditLimit,
	})
	if err != nil {
		a.writeStoreError(w, r, "Company", err)
		return
	}

	a.audit(r.Context(), "company.create", company.ID, map[string]any{"name": company.Name})
	obs.WriteObserved("company", "create")
	w.Header().Set("Location", "/v1/companies/"+company.ID)
	writeJSON(w, http.StatusCreated, company)
}

func (a *API) listCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := a.store.Companies().List(r.Context())
	if err != nil {
		a.writeStoreError(w, r, "Company", err)
		return
	}
	writeJSON(w, http.StatusOK, companies)
}

func (a *API) getCompany(w http.ResponseWriter, r *http.Request, id string) {
	company, err := a.store.Companies().Get(r.Context(), id)
	if err != nil {
		a.writeStoreError(w, r, "Company", err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

func (a *API) updateCompany(w http.ResponseWriter, r *http.Request, id string) {
	var patch bank.CompanyPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	company, err := a.store.Companies().Update(r.Context(), id, patch)
	if err != nil {
		a.writeStoreError(w, r, "Company", err)
		return
	}

	a.audit(r.Context(), "company.update", company.ID, nil)
	obs.WriteObserved("company", "update")
	writeJSON(w, http.StatusOK, company)
}

func (a *API) deleteCompany(w http.ResponseWriter, r *http.Request, id string) {
	if err := a.store.Companies().Delete(r.Context(), id); err != nil {
		a.writeStoreError(w, r, "Company", err)
		return
	}
	a.audit(r.Context(), "company.delete", id, nil)
	obs.WriteObserved("company", "delete")
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listCompanyUsers(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	users, err := a.store.Users().ListByCompany(r.Context(), id)
	if err != nil {
		a.writeStoreError(w, r, "Company", err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *API) listCompanyAccounts(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	accounts, err := a.store.Accounts().ListByCompany(r.Context(), id)
	if err != nil {
		a.writeStoreError(w, r, "Company", err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (a *API) listCompanyLoans(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	loans, err := a.store.Loans().ListByCompany(r.Context(), id)
	if err != nil {
		a.writeStoreError(w, r, "Company", err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

func (a *API) companySpendingSummary(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	company, err := a.store.Companies().Get(r.Context(), id)
	if err != nil {
		a.writeStoreError(w, r, "Company", err)
		return
	}
	spent, err := a.store.Transactions().CompletedPurchaseTotal(r.Context(), bank.TransactionScope{CompanyID: id})
	if err != nil {
		a.writeStoreError(w, r, "Company", err)
		return
	}
	limit := decimal.Zero
	if company.CreditLimit != nil {
		limit = *company.CreditLimit
	}
	writeJSON(w, http.StatusOK, bank.NewSpendingSummary(limit, spent))
}

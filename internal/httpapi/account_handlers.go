package httpapi

import (
	"net/http"

	"github.com/shopspring/decimal"

	"kortio.se/internal/bank"
	"kortio.se/internal/obs"
)

type accountRequest struct {
	CompanyID string           `json:"company_id"`
	Type      bank.AccountType `json:"type"`
	Balance   *decimal.Decimal `json:"balance"`
	Currency  string           `json:"currency"`
}

func (a *API) handleAccountsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createAccount(w, r)
	case http.MethodGet:
		a.listAccounts(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleAccountScoped(w http.ResponseWriter, r *http.Request) {
	id, child, ok := splitScoped(r.URL.Path, "/v1/accounts/")
	if !ok {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch child {
	case "":
		switch r.Method {
		case http.MethodGet:
			a.getAccount(w, r, id)
		case http.MethodPatch, http.MethodPut:
			a.updateAccount(w, r, id)
		case http.MethodDelete:
			a.deleteAccount(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodPut, http.MethodDelete)
		}
	case "cards":
		a.listAccountCards(w, r, id)
	case "transactions":
		a.listScopedTransactions(w, r, "Account", bank.TransactionScope{AccountID: id})
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) createAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	account, err := a.store.Accounts().Create(r.Context(), bank.AccountInput{
		CompanyID: req.CompanyID,
		Type:      req.Type,
		Balance:   req.Balance,
		Currency:  req.Currency,
	})
	if err != nil {
		a.writeStoreError(w, r, "Account", err)
		return
	}

	a.audit(r.Context(), "account.create", account.ID, map[string]any{
		"company_id": account.CompanyID,
		"type":       string(account.Type),
	})
	obs.WriteObserved("account", "create")
	w.Header().Set("Location", "/v1/accounts/"+account.ID)
	writeJSON(w, http.StatusCreated, account)
}

func (a *API) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := a.store.Accounts().List(r.Context())
	if err != nil {
		a.writeStoreError(w, r, "Account", err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (a *API) getAccount(w http.ResponseWriter, r *http.Request, id string) {
	account, err := a.store.Accounts().Get(r.Context(), id)
	if err != nil {
		a.writeStoreError(w, r, "Account", err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (a *API) updateAccount(w http.ResponseWriter, r *http.Request, id string) {
	var patch bank.AccountPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	account, err := a.store.Accounts().Update(r.Context(), id, patch)
	if err != nil {
		a.writeStoreError(w, r, "Account", err)
		return
	}

	a.audit(r.Context(), "account.update", account.ID, nil)
	obs.WriteObserved("account", "update")
	writeJSON(w, http.StatusOK, account)
}

func (a *API) deleteAccount(w http.ResponseWriter, r *http.Request, id string) {
	if err := a.store.Accounts().Delete(r.Context(), id); err != nil {
		a.writeStoreError(w, r, "Account", err)
		return
	}
	a.audit(r.Context(), "account.delete", id, nil)
	obs.WriteObserved("account", "delete")
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listAccountCards(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	cards, err := a.store.Cards().ListByAccount(r.Context(), id)
	if err != nil {
		a.writeStoreError(w, r, "Account", err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

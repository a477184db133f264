package httpapi

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"kortio.se/internal/bank"
	"kortio.se/internal/obs"
)

type transactionRequest struct {
	AccountID    *string                `json:"account_id"`
	CardID       *string                `json:"card_id"`
	LoanID       *string                `json:"loan_id"`
	Amount       decimal.Decimal        `json:"amount"`
	Type         bank.TransactionType   `json:"type"`
	Currency     string                 `json:"currency"`
	MerchantName *string                `json:"merchant_name"`
	Timestamp    *time.Time             `json:"timestamp"`
	Status       bank.TransactionStatus `json:"status"`
}

type transactionStatusRequest struct {
	Status bank.TransactionStatus `json:"status"`
}

func (a *API) handleTransactionsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createTransaction(w, r)
	case http.MethodGet:
		a.listScopedTransactions(w, r, "Transaction", bank.TransactionScope{})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// Transactions are append-only: status is the single mutable field and there
// is no delete route.
func (a *API) handleTransactionScoped(w http.ResponseWriter, r *http.Request) {
	id, child, ok := splitScoped(r.URL.Path, "/v1/transactions/")
	if !ok || child != "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getTransaction(w, r, id)
	case http.MethodPatch, http.MethodPut:
		a.updateTransactionStatus(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodPut)
	}
}

func (a *API) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := a.store.Transactions().Create(r.Context(), bank.TransactionInput{
		AccountID:    req.AccountID,
		CardID:       req.CardID,
		LoanID:       req.LoanID,
		Amount:       req.Amount,
		Type:         req.Type,
		Currency:     req.Currency,
		MerchantName: req.MerchantName,
		Timestamp:    req.Timestamp,
		Status:       req.Status,
	})
	if err != nil {
		a.writeStoreError(w, r, "Transaction", err)
		return
	}

	a.audit(r.Context(), "transaction.create", tx.ID, map[string]any{
		"type":   string(tx.Type),
		"amount": tx.Amount.String(),
	})
	obs.WriteObserved("transaction", "create")
	w.Header().Set("Location", "/v1/transactions/"+tx.ID)
	writeJSON(w, http.StatusCreated, tx)
}

func (a *API) listScopedTransactions(w http.ResponseWriter, r *http.Request, entity string, scope bank.TransactionScope) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	page, err := parsePage(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	txs, err := a.store.Transactions().List(r.Context(), scope, page)
	if err != nil {
		a.writeStoreError(w, r, entity, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (a *API) getTransaction(w http.ResponseWriter, r *http.Request, id string) {
	tx, err := a.store.Transactions().Get(r.Context(), id)
	if err != nil {
		a.writeStoreError(w, r, "Transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (a *API) updateTransactionStatus(w http.ResponseWriter, r *http.Request, id string) {
	var req transactionStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := a.store.Transactions().UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		a.writeStoreError(w, r, "Transaction", err)
		return
	}

	a.audit(r.Context(), "transaction.status", tx.ID, map[string]any{"status": string(tx.Status)})
	obs.WriteObserved("transaction", "update")
	writeJSON(w, http.StatusOK, tx)
}

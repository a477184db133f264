package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kortio.se/internal/auth"
	"kortio.se/internal/bank"
	"kortio.se/internal/obs"
)

// cardRequest takes the tokenized PAN and a plaintext CVV; only a hash of
// the CVV is ever stored.
type cardRequest struct {
	AccountID      string           `json:"account_id"`
	PANToken       string           `json:"pan_token"`
	LastFourDigits string           `json:"last_four_digits"`
	Expiry         string           `json:"expiry"`
	CVV            string           `json:"cvv"`
	SpendingLimit  *decimal.Decimal `json:"spending_limit"`
	Status         bank.CardStatus  `json:"status"`
}

func (a *API) handleCardsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createCard(w, r)
	case http.MethodGet:
		a.listCards(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleCardScoped(w http.ResponseWriter, r *http.Request) {
	id, child, ok := splitScoped(r.URL.Path, "/v1/cards/")
	if !ok {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch child {
	case "":
		switch r.Method {
		case http.MethodGet:
			a.getCard(w, r, id)
		case http.MethodPatch, http.MethodPut:
			a.updateCard(w, r, id)
		case http.MethodDelete:
			a.deleteCard(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodPut, http.MethodDelete)
		}
	case "transactions":
		a.listScopedTransactions(w, r, "Card", bank.TransactionScope{CardID: id})
	case "spending-summary":
		a.cardSpendingSummary(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

// parseExpiry accepts a bare date or a full RFC 3339 timestamp.
func parseExpiry(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

func (a *API) createCard(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var violations []bank.FieldViolation
	expiry, ok := parseExpiry(req.Expiry)
	if !ok {
		violations = append(violations, bank.FieldViolation{Field: "expiry", Problem: "must be a date (YYYY-MM-DD) or RFC 3339 timestamp"})
	}
	if req.CVV == "" {
		violations = append(violations, bank.FieldViolation{Field: "cvv", Problem: "is required"})
	}
	if len(violations) > 0 {
		a.writeStoreError(w, r, "Card", &bank.ValidationError{Violations: violations})
		return
	}

	cvvHash, err := auth.HashPassword(req.CVV)
	if err != nil {
		a.writeStoreError(w, r, "Card", err)
		return
	}

	card, err := a.store.Cards().Create(r.Context(), bank.CardInput{
		AccountID:      req.AccountID,
		PANToken:       req.PANToken,
		LastFourDigits: req.LastFourDigits,
		Expiry:         expiry,
		CVVHash:        cvvHash,
		SpendingLimit:  req.SpendingLimit,
		Status:         req.Status,
	})
	if err != nil {
		a.writeStoreError(w, r, "Card", err)
		return
	}

	a.audit(r.Context(), "card.create", card.ID, map[string]any{
		"account_id": card.AccountID,
		"last_four":  card.LastFourDigits,
	})
	obs.WriteObserved("card", "create")
	w.Header().Set("Location", "/v1/cards/"+card.ID)
	writeJSON(w, http.StatusCreated, card)
}

func (a *API) listCards(w http.ResponseWriter, r *http.Request) {
	cards, err := a.store.Cards().List(r.Context())
	if err != nil {
		a.writeStoreError(w, r, "Card", err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (a *API) getCard(w http.ResponseWriter, r *http.Request, id string) {
	card, err := a.store.Cards().Get(r.Context(), id)
	if err != nil {
		a.writeStoreError(w, r, "Card", err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// updateCard decodes straight into the narrow patch type, so attempts to
// rewrite pan_token, expiry or cvv fail as unknown fields.
func (a *API) updateCard(w http.ResponseWriter, r *http.Request, id string) {
	var patch bank.CardPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	card, err := a.store.Cards().Update(r.Context(), id, patch)
	if err != nil {
		a.writeStoreError(w, r, "Card", err)
		return
	}

	a.audit(r.Context(), "card.update", card.ID, nil)
	obs.WriteObserved("card", "update")
	writeJSON(w, http.StatusOK, card)
}

func (a *API) deleteCard(w http.ResponseWriter, r *http.Request, id string) {
	if err := a.store.Cards().Delete(r.Context(), id); err != nil {
		a.writeStoreError(w, r, "Card", err)
		return
	}
	a.audit(r.Context(), "card.delete", id, nil)
	obs.WriteObserved("card", "delete")
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) cardSpendingSummary(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	card, err := a.store.Cards().Get(r.Context(), id)
	if err != nil {
		a.writeStoreError(w, r, "Card", err)
		return
	}
	spent, err := a.store.Transactions().CompletedPurchaseTotal(r.Context(), bank.TransactionScope{CardID: id})
	if err != nil {
		a.writeStoreError(w, r, "Card", err)
		return
	}
	limit := decimal.Zero
	if card.SpendingLimit != nil {
		limit = *card.SpendingLimit
	}
	writeJSON(w, http.StatusOK, bank.NewSpendingSummary(limit, spent))
}

package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"kortio.se/internal/bank"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	api := New(Options{
		Store:          bank.NewMemory(),
		Version:        "test",
		DevMode:        true,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	})

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}
}

func (c *apiClient) do(method, path string, body any) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any) *http.Response {
	return c.do(http.MethodPost, path, body)
}

func (c *apiClient) get(path string, params url.Values) *http.Response {
	c.t.Helper()
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		c.t.Fatalf("parse url: %v", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}
	resp, err := c.client.Get(u.String())
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func requireStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, body)
	}
}

func TestCompanyAccountCardFlow(t *testing.T) {
	c := newTestAPI(t)

	resp := c.post("/v1/companies", map[string]any{
		"name":         "Acme AB",
		"country_code": "SE",
		"credit_limit": "50000",
	})
	requireStatus(t, resp, http.StatusCreated)
	if loc := resp.Header.Get("Location"); loc == "" {
		t.Fatal("expected Location header")
	}
	var company bank.Company
	decodeBody(t, resp, &company)
	if company.ID == "" || company.Name != "Acme AB" {
		t.Fatalf("unexpected company: %+v", company)
	}

	resp = c.post("/v1/accounts", map[string]any{
		"company_id": company.ID,
		"type":       "CHECKING",
	})
	requireStatus(t, resp, http.StatusCreated)
	var account bank.Account
	decodeBody(t, resp, &account)
	if !account.Balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", account.Balance)
	}
	if account.Currency != "SEK" {
		t.Fatalf("expected default currency, got %q", account.Currency)
	}

	cardBody := map[string]any{
		"account_id":       account.ID,
		"pan_token":        "tok_abc123",
		"last_four_digits": "4242",
		"expiry":           "2028-06-30",
		"cvv":              "123",
		"status":           "ACTIVE",
		"spending_limit":   "10000",
	}
	resp = c.post("/v1/cards", cardBody)
	requireStatus(t, resp, http.StatusCreated)
	var card bank.Card
	decodeBody(t, resp, &card)
	if card.PANToken != "tok_abc123" {
		t.Fatalf("unexpected card: %+v", card)
	}

	// Same PAN token again must conflict.
	resp = c.post("/v1/cards", cardBody)
	requireStatus(t, resp, http.StatusConflict)
}

func TestGetUnknownCompanyNamesEntity(t *testing.T) {
	c := newTestAPI(t)

	resp := c.get("/v1/companies/does-not-exist", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	var body map[string]any
	decodeBody(t, resp, &body)
	if body["error"] != "Company not found" {
		t.Fatalf("unexpected error message: %v", body["error"])
	}
}

func TestEmptyChildListIsEmptyArray(t *testing.T) {
	c := newTestAPI(t)

	resp := c.post("/v1/companies", map[string]any{"name": "Lonely AB"})
	requireStatus(t, resp, http.StatusCreated)
	var company bank.Company
	decodeBody(t, resp, &company)

	resp = c.get("/v1/companies/"+company.ID+"/users", nil)
	requireStatus(t, resp, http.StatusOK)
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if got := string(bytes.TrimSpace(raw)); got != "[]" {
		t.Fatalf("expected empty array, got %s", got)
	}
}

func TestValidationErrorsListFields(t *testing.T) {
	c := newTestAPI(t)

	resp := c.post("/v1/companies", map[string]any{"name": "", "country_code": "sverige"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var body struct {
		Error   string           `json:"error"`
		Details []map[string]any `json:"details"`
	}
	decodeBody(t, resp, &body)
	if len(body.Details) < 2 {
		t.Fatalf("expected violations for name and country_code, got %+v", body.Details)
	}
}

func TestUserCreateHidesPassword(t *testing.T) {
	c := newTestAPI(t)

	resp := c.post("/v1/companies", map[string]any{"name": "Acme AB"})
	requireStatus(t, resp, http.StatusCreated)
	var company bank.Company
	decodeBody(t, resp, &company)

	resp = c.post("/v1/users", map[string]any{
		"company_id": company.ID,
		"email":      "anna@acme.se",
		"password":   "hunter22",
	})
	requireStatus(t, resp, http.StatusCreated)
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if bytes.Contains(raw, []byte("hunter22")) || bytes.Contains(raw, []byte("password")) {
		t.Fatalf("response leaks credentials: %s", raw)
	}

	// Duplicate email conflicts.
	resp = c.post("/v1/users", map[string]any{
		"company_id": company.ID,
		"email":      "ANNA@acme.se",
		"password":   "other",
	})
	requireStatus(t, resp, http.StatusConflict)
}

func TestDeleteCompanyRestrictedByChildren(t *testing.T) {
	c := newTestAPI(t)

	resp := c.post("/v1/companies", map[string]any{"name": "Acme AB"})
	requireStatus(t, resp, http.StatusCreated)
	var company bank.Company
	decodeBody(t, resp, &company)

	resp = c.post("/v1/accounts", map[string]any{"company_id": company.ID, "type": "CHECKING"})
	requireStatus(t, resp, http.StatusCreated)
	var account bank.Account
	decodeBody(t, resp, &account)

	resp = c.do(http.MethodDelete, "/v1/companies/"+company.ID, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = c.do(http.MethodDelete, "/v1/accounts/"+account.ID, nil)
	requireStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	resp = c.do(http.MethodDelete, "/v1/companies/"+company.ID, nil)
	requireStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()
}

func TestCardPANTokenImmutableOverHTTP(t *testing.T) {
	c := newTestAPI(t)

	resp := c.post("/v1/companies", map[string]any{"name": "Acme AB"})
	requireStatus(t, resp, http.StatusCreated)
	var company bank.Company
	decodeBody(t, resp, &company)

	resp = c.post("/v1/accounts", map[string]any{"company_id": company.ID, "type": "CHECKING"})
	requireStatus(t, resp, http.StatusCreated)
	var account bank.Account
	decodeBody(t, resp, &account)

	resp = c.post("/v1/cards", map[string]any{
		"account_id":       account.ID,
		"pan_token":        "tok_original",
		"last_four_digits": "1111",
		"expiry":           "2027-01-31",
		"cvv":              "321",
		"status":           "ACTIVE",
	})
	requireStatus(t, resp, http.StatusCreated)
	var card bank.Card
	decodeBody(t, resp, &card)

	resp = c.do(http.MethodPatch, "/v1/cards/"+card.ID, map[string]any{"pan_token": "tok_changed"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for immutable field, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = c.do(http.MethodPatch, "/v1/cards/"+card.ID, map[string]any{"status": "BLOCKED"})
	requireStatus(t, resp, http.StatusOK)
	var updated bank.Card
	decodeBody(t, resp, &updated)
	if updated.Status != bank.CardBlocked || updated.PANToken != "tok_original" {
		t.Fatalf("unexpected card after patch: %+v", updated)
	}
}

func TestTransactionStatusUpdateOnly(t *testing.T) {
	c := newTestAPI(t)

	resp := c.post("/v1/companies", map[string]any{"name": "Acme AB"})
	requireStatus(t, resp, http.StatusCreated)
	var company bank.Company
	decodeBody(t, resp, &company)

	resp = c.post("/v1/accounts", map[string]any{"company_id": company.ID, "type": "CHECKING"})
	requireStatus(t, resp, http.StatusCreated)
	var account bank.Account
	decodeBody(t, resp, &account)

	resp = c.post("/v1/transactions", map[string]any{
		"account_id": account.ID,
		"amount":     "250.50",
		"type":       "PURCHASE",
		"status":     "PENDING",
	})
	requireStatus(t, resp, http.StatusCreated)
	var tx bank.Transaction
	decodeBody(t, resp, &tx)

	resp = c.do(http.MethodPatch, "/v1/transactions/"+tx.ID, map[string]any{"amount": "999"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for amount rewrite, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = c.do(http.MethodPatch, "/v1/transactions/"+tx.ID, map[string]any{"status": "COMPLETED"})
	requireStatus(t, resp, http.StatusOK)
	var updated bank.Transaction
	decodeBody(t, resp, &updated)
	if updated.Status != bank.TxCompleted || !updated.Amount.Equal(tx.Amount) {
		t.Fatalf("unexpected transaction after patch: %+v", updated)
	}

	resp = c.do(http.MethodDelete, "/v1/transactions/"+tx.ID, nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for transaction delete, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestTransactionRequiresExactlyOneOwner(t *testing.T) {
	c := newTestAPI(t)

	resp := c.post("/v1/transactions", map[string]any{
		"amount": "10",
		"type":   "FEE",
		"status": "PENDING",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for ownerless transaction, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCardSpendingSummary(t *testing.T) {
	c := newTestAPI(t)

	resp := c.post("/v1/companies", map[string]any{"name": "Acme AB"})
	requireStatus(t, resp, http.StatusCreated)
	var company bank.Company
	decodeBody(t, resp, &company)

	resp = c.post("/v1/accounts", map[string]any{"company_id": company.ID, "type": "CHECKING"})
	requireStatus(t, resp, http.StatusCreated)
	var account bank.Account
	decodeBody(t, resp, &account)

	resp = c.post("/v1/cards", map[string]any{
		"account_id":       account.ID,
		"pan_token":        "tok_summary",
		"last_four_digits": "9999",
		"expiry":           "2028-12-31",
		"cvv":              "456",
		"status":           "ACTIVE",
		"spending_limit":   "1000",
	})
	requireStatus(t, resp, http.StatusCreated)
	var card bank.Card
	decodeBody(t, resp, &card)

	for _, tc := range []struct {
		amount string
		txType string
		status string
	}{
		{"300", "PURCHASE", "COMPLETED"},
		{"150", "PURCHASE", "COMPLETED"},
		{"75", "PURCHASE", "PENDING"}, // pending never counts
		{"20", "FEE", "COMPLETED"},    // fees never count
	} {
		resp = c.post("/v1/transactions", map[string]any{
			"card_id": card.ID,
			"amount":  tc.amount,
			"type":    tc.txType,
			"status":  tc.status,
		})
		requireStatus(t, resp, http.StatusCreated)
		resp.Body.Close()
	}

	resp = c.get("/v1/cards/"+card.ID+"/spending-summary", nil)
	requireStatus(t, resp, http.StatusOK)
	var summary bank.SpendingSummary
	decodeBody(t, resp, &summary)
	if summary.Spent.String() != "450" {
		t.Fatalf("expected spent 450, got %s", summary.Spent)
	}
	if summary.Remaining.String() != "550" {
		t.Fatalf("expected remaining 550, got %s", summary.Remaining)
	}
}

func TestTransactionPagination(t *testing.T) {
	c := newTestAPI(t)

	resp := c.post("/v1/companies", map[string]any{"name": "Acme AB"})
	requireStatus(t, resp, http.StatusCreated)
	var company bank.Company
	decodeBody(t, resp, &company)

	resp = c.post("/v1/accounts", map[string]any{"company_id": company.ID, "type": "CHECKING"})
	requireStatus(t, resp, http.StatusCreated)
	var account bank.Account
	decodeBody(t, resp, &account)

	for i := 0; i < 5; i++ {
		resp = c.post("/v1/transactions", map[string]any{
			"account_id": account.ID,
			"amount":     "10",
			"type":       "PURCHASE",
			"status":     "COMPLETED",
		})
		requireStatus(t, resp, http.StatusCreated)
		resp.Body.Close()
	}

	params := url.Values{"page": {"2"}, "page_size": {"2"}}
	resp = c.get("/v1/accounts/"+account.ID+"/transactions", params)
	requireStatus(t, resp, http.StatusOK)
	var page []bank.Transaction
	decodeBody(t, resp, &page)
	if len(page) != 2 {
		t.Fatalf("expected 2 transactions on page 2, got %d", len(page))
	}

	resp = c.get("/v1/accounts/"+account.ID+"/transactions", url.Values{"page": {"zero"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad page, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestHealthAndInfo(t *testing.T) {
	c := newTestAPI(t)

	resp := c.get("/healthz", nil)
	requireStatus(t, resp, http.StatusOK)
	var health map[string]any
	decodeBody(t, resp, &health)
	if health["status"] != "ok" {
		t.Fatalf("unexpected health: %v", health)
	}

	resp = c.get("/v1/info", nil)
	requireStatus(t, resp, http.StatusOK)
	var info map[string]any
	decodeBody(t, resp, &info)
	if info["version"] != "test" {
		t.Fatalf("unexpected info: %v", info)
	}
}

func TestPutUpdatesResource(t *testing.T) {
	c := newTestAPI(t)

	resp := c.post("/v1/companies", map[string]any{"name": "Acme AB", "country_code": "SE"})
	requireStatus(t, resp, http.StatusCreated)
	var company bank.Company
	decodeBody(t, resp, &company)

	resp = c.do(http.MethodPut, "/v1/companies/"+company.ID, map[string]any{"name": "Acme Nordic AB"})
	requireStatus(t, resp, http.StatusOK)
	var renamed bank.Company
	decodeBody(t, resp, &renamed)
	if renamed.Name != "Acme Nordic AB" {
		t.Fatalf("put did not apply: %+v", renamed)
	}

	resp = c.post("/v1/accounts", map[string]any{"company_id": company.ID, "type": "CHECKING"})
	requireStatus(t, resp, http.StatusCreated)
	var account bank.Account
	decodeBody(t, resp, &account)

	resp = c.post("/v1/transactions", map[string]any{
		"account_id": account.ID,
		"amount":     "10",
		"type":       "PURCHASE",
		"status":     "PENDING",
	})
	requireStatus(t, resp, http.StatusCreated)
	var tx bank.Transaction
	decodeBody(t, resp, &tx)

	resp = c.do(http.MethodPut, "/v1/transactions/"+tx.ID, map[string]any{"status": "COMPLETED"})
	requireStatus(t, resp, http.StatusOK)
	var updated bank.Transaction
	decodeBody(t, resp, &updated)
	if updated.Status != bank.TxCompleted {
		t.Fatalf("unexpected status after put: %+v", updated)
	}
}

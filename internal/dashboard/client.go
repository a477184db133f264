// Package dashboard is an HTTP read-aggregation client for the card
// dashboard: it pulls a company's accounts, cards and transactions off the
// API and derives a spending summary.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"kortio.se/internal/bank"
)

// Client talks to the kortio API.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken attaches a bearer token to every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Overview is the aggregated read the dashboard renders for one company.
type Overview struct {
	Company      bank.Company         `json:"company"`
	Accounts     []bank.Account       `json:"accounts"`
	Cards        []bank.Card          `json:"cards"`
	ActiveCard   *bank.Card           `json:"active_card,omitempty"`
	Transactions []bank.Transaction   `json:"transactions"`
	Summary      bank.SpendingSummary `json:"summary"`
}

// Overview fetches everything the dashboard needs. Only the company read is
// fatal: a failing account's cards resolve to none, and transaction or
// summary fetch failures degrade to an empty page and a page-local summary.
func (c *Client) Overview(ctx context.Context, companyID string, page, pageSize int) (Overview, error) {
	var ov Overview

	company, err := c.GetCompany(ctx, companyID)
	if err != nil {
		return ov, err
	}
	ov.Company = company

	accounts, err := c.ListCompanyAccounts(ctx, companyID)
	if err != nil {
		accounts = nil
	}
	ov.Accounts = accounts

	ov.Cards = c.fanOutCards(ctx, accounts)
	ov.ActiveCard = pickCard(ov.Cards)

	scopePath := "/v1/companies/" + url.PathEscape(companyID) + "/transactions"
	summaryPath := "/v1/companies/" + url.PathEscape(companyID) + "/spending-summary"
	limit := decimal.Zero
	if company.CreditLimit != nil {
		limit = *company.CreditLimit
	}
	if ov.ActiveCard != nil {
		scopePath = "/v1/cards/" + url.PathEscape(ov.ActiveCard.ID) + "/transactions"
		summaryPath = "/v1/cards/" + url.PathEscape(ov.ActiveCard.ID) + "/spending-summary"
		limit = decimal.Zero
		if ov.ActiveCard.SpendingLimit != nil {
			limit = *ov.ActiveCard.SpendingLimit
		}
	}

	txs, err := c.listTransactions(ctx, scopePath, page, pageSize)
	if err != nil {
		txs = nil
	}
	ov.Transactions = txs

	var summary bank.SpendingSummary
	if err := c.getJSON(ctx, summaryPath, nil, &summary); err != nil {
		// Page-local fallback understates spend beyond the fetched window.
		summary = bank.SummarizePage(limit, txs)
	}
	ov.Summary = summary

	return ov, nil
}

// fanOutCards reads each account's cards concurrently. A failed account
// contributes nothing; the rest still land, in account order.
func (c *Client) fanOutCards(ctx context.Context, accounts []bank.Account) []bank.Card {
	perAccount := make([][]bank.Card, len(accounts))
	var wg sync.WaitGroup
	for i, acc := range accounts {
		wg.Add(1)
		go func(i int, accountID string) {
			defer wg.Done()
			cards, err := c.ListAccountCards(ctx, accountID)
			if err != nil {
				return
			}
			perAccount[i] = cards
		}(i, acc.ID)
	}
	wg.Wait()

	merged := make([]bank.Card, 0)
	for _, cards := range perAccount {
		merged = append(merged, cards...)
	}
	return merged
}

// pickCard prefers the first ACTIVE card, then the first card of any status.
func pickCard(cards []bank.Card) *bank.Card {
	for i := range cards {
		if cards[i].Status == bank.CardActive {
			return &cards[i]
		}
	}
	if len(cards) > 0 {
		return &cards[0]
	}
	return nil
}

func (c *Client) GetCompany(ctx context.Context, id string) (bank.Company, error) {
	var company bank.Company
	err := c.getJSON(ctx, "/v1/companies/"+url.PathEscape(id), nil, &company)
	return company, err
}

func (c *Client) ListCompanyAccounts(ctx context.Context, companyID string) ([]bank.Account, error) {
	var accounts []bank.Account
	err := c.getJSON(ctx, "/v1/companies/"+url.PathEscape(companyID)+"/accounts", nil, &accounts)
	return accounts, err
}

func (c *Client) ListAccountCards(ctx context.Context, accountID string) ([]bank.Card, error) {
	var cards []bank.Card
	err := c.getJSON(ctx, "/v1/accounts/"+url.PathEscape(accountID)+"/cards", nil, &cards)
	return cards, err
}

func (c *Client) CardSpendingSummary(ctx context.Context, cardID string) (bank.SpendingSummary, error) {
	var summary bank.SpendingSummary
	err := c.getJSON(ctx, "/v1/cards/"+url.PathEscape(cardID)+"/spending-summary", nil, &summary)
	return summary, err
}

func (c *Client) listTransactions(ctx context.Context, path string, page, pageSize int) ([]bank.Transaction, error) {
	params := url.Values{}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		params.Set("page_size", strconv.Itoa(pageSize))
	}
	var txs []bank.Transaction
	err := c.getJSON(ctx, path, params, &txs)
	return txs, err
}

// CreateCompany is used by seeding tools; the dashboard itself only reads.
func (c *Client) CreateCompany(ctx context.Context, in map[string]any) (bank.Company, error) {
	var company bank.Company
	err := c.postJSON(ctx, "/v1/companies", in, &company)
	return company, err
}

func (c *Client) CreateAccount(ctx context.Context, in map[string]any) (bank.Account, error) {
	var account bank.Account
	err := c.postJSON(ctx, "/v1/accounts", in, &account)
	return account, err
}

func (c *Client) CreateCard(ctx context.Context, in map[string]any) (bank.Card, error) {
	var card bank.Card
	err := c.postJSON(ctx, "/v1/cards", in, &card)
	return card, err
}

func (c *Client) CreateTransaction(ctx context.Context, in map[string]any) (bank.Transaction, error) {
	var tx bank.Transaction
	err := c.postJSON(ctx, "/v1/transactions", in, &tx)
	return tx, err
}

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, dst any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.send(req, dst)
}

func (c *Client) postJSON(ctx context.Context, path string, body, dst any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(req, dst)
}

func (c *Client) send(req *http.Request, dst any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(data, &errBody)
		if errBody.Error == "" {
			errBody.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: errBody.Error}
	}
	if dst == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

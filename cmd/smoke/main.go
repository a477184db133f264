package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"kortio.se/internal/dashboard"
)

// Seeds a company with a card and three transactions over the HTTP API,
// then checks the dashboard overview arithmetic end to end.
func main() {
	baseURL := os.Getenv("KORTIO_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	client := dashboard.New(baseURL)
	if token := os.Getenv("KORTIO_API_TOKEN"); token != "" {
		client = dashboard.New(baseURL, dashboard.WithToken(token))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	suffix := rand.Int63()

	company, err := client.CreateCompany(ctx, map[string]any{
		"name":         fmt.Sprintf("Smoke AB %d", suffix),
		"country_code": "SE",
		"credit_limit": "50000",
	})
	if err != nil {
		log.Fatalf("create company: %v", err)
	}

	account, err := client.CreateAccount(ctx, map[string]any{
		"company_id": company.ID,
		"type":       "CHECKING",
	})
	if err != nil {
		log.Fatalf("create account: %v", err)
	}
	if account.Currency != "SEK" || !account.Balance.IsZero() {
		log.Fatalf("account defaults wrong: balance=%s currency=%s", account.Balance, account.Currency)
	}

	card, err := client.CreateCard(ctx, map[string]any{
		"account_id":       account.ID,
		"pan_token":        fmt.Sprintf("tok_smoke_%d", suffix),
		"last_four_digits": "4242",
		"expiry":           "2028-06-30",
		"cvv":              "123",
		"status":           "ACTIVE",
		"spending_limit":   "1000",
	})
	if err != nil {
		log.Fatalf("create card: %v", err)
	}

	for _, tx := range []struct {
		amount, txType, status string
	}{
		{"300", "PURCHASE", "COMPLETED"},
		{"150", "PURCHASE", "COMPLETED"},
		{"75", "PURCHASE", "PENDING"},
	} {
		if _, err := client.CreateTransaction(ctx, map[string]any{
			"card_id": card.ID,
			"amount":  tx.amount,
			"type":    tx.txType,
			"status":  tx.status,
		}); err != nil {
			log.Fatalf("create transaction: %v", err)
		}
	}

	ov, err := client.Overview(ctx, company.ID, 1, 20)
	if err != nil {
		log.Fatalf("overview: %v", err)
	}
	if ov.ActiveCard == nil || ov.ActiveCard.ID != card.ID {
		log.Fatalf("expected active card %s, got %+v", card.ID, ov.ActiveCard)
	}
	if got := ov.Summary.Spent.String(); got != "450" {
		log.Fatalf("expected spent 450, got %s", got)
	}
	if got := ov.Summary.Remaining.String(); got != "550" {
		log.Fatalf("expected remaining 550, got %s", got)
	}
	if len(ov.Transactions) != 3 {
		log.Fatalf("expected 3 transactions on the page, got %d", len(ov.Transactions))
	}

	fmt.Printf("smoke test passed: company=%s card=%s remaining=%s\n",
		company.ID, card.ID, ov.Summary.Remaining)
}

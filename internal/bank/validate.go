package bank

import (
	"regexp"
	"strings"
)

var (
	emailRe    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	countryRe  = regexp.MustCompile(`^[A-Z]{2}$`)
	currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)
	lastFourRe = regexp.MustCompile(`^[0-9]{4}$`)
)

// Validate checks required-field presence and format constraints. The stores
// call it before touching storage so both implementations reject identically.
func (in CompanyInput) Validate() error {
	var v violations
	if strings.TrimSpace(in.Name) == "" {
		v.add("name", "is required")
	}
	if in.CountryCode != nil && !countryRe.MatchString(*in.CountryCode) {
		v.add("country_code", "must be two uppercase letters")
	}
	if in.CreditLimit != nil && in.CreditLimit.IsNegative() {
		v.add("credit_limit", "must not be negative")
	}
	return v.err()
}

func (p CompanyPatch) Validate() error {
	var v violations
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		v.add("name", "must not be empty")
	}
	if p.CountryCode != nil && !countryRe.MatchString(*p.CountryCode) {
		v.add("country_code", "must be two uppercase letters")
	}
	if p.CreditLimit != nil && p.CreditLimit.IsNegative() {
		v.add("credit_limit", "must not be negative")
	}
	return v.err()
}

func (in UserInput) Validate() error {
	var v violations
	if in.CompanyID == "" {
		v.add("company_id", "is required")
	}
	if in.Email == "" {
		v.add("email", "is required")
	} else if !emailRe.MatchString(in.Email) {
		v.add("email", "must be a valid email address")
	}
	if in.PasswordHash == "" {
		v.add("password_hash", "is required")
	}
	return v.err()
}

func (p UserPatch) Validate() error {
	var v violations
	if p.Email != nil && !emailRe.MatchString(*p.Email) {
		v.add("email", "must be a valid email address")
	}
	if p.PasswordHash != nil && *p.PasswordHash == "" {
		v.add("password_hash", "must not be empty")
	}
	return v.err()
}

func (in AccountInput) Validate() error {
	var v violations
	if in.CompanyID == "" {
		v.add("company_id", "is required")
	}
	if !in.Type.Valid() {
		v.add("type", "must be one of CHECKING, LOAN, CREDIT_LINE")
	}
	if in.Currency != "" && !currencyRe.MatchString(in.Currency) {
		v.add("currency", "must be a three-letter code")
	}
	return v.err()
}

func (p AccountPatch) Validate() error {
	var v violations
	if p.Type != nil && !p.Type.Valid() {
		v.add("type", "must be one of CHECKING, LOAN, CREDIT_LINE")
	}
	if p.Currency != nil && !currencyRe.MatchString(*p.Currency) {
		v.add("currency", "must be a three-letter code")
	}
	return v.err()
}

func (in LoanInput) Validate() error {
	var v violations
	if in.CompanyID == "" {
		v.add("company_id", "is required")
	}
	if !in.Principal.IsPositive() {
		v.add("principal", "must be positive")
	}
	if in.TermMonths <= 0 {
		v.add("term_months", "must be a positive integer")
	}
	if in.OutstandingBalance != nil && in.OutstandingBalance.IsNegative() {
		v.add("outstanding_balance", "must not be negative")
	}
	if !in.Status.Valid() {
		v.add("status", "must be one of PENDING_APPROVAL, ACTIVE, DELINQUENT, PAID_OFF")
	}
	return v.err()
}

func (p LoanPatch) Validate() error {
	var v violations
	if p.Principal != nil && !p.Principal.IsPositive() {
		v.add("principal", "must be positive")
	}
	if p.TermMonths != nil && *p.TermMonths <= 0 {
		v.add("term_months", "must be a positive integer")
	}
	if p.OutstandingBalance != nil && p.OutstandingBalance.IsNegative() {
		v.add("outstanding_balance", "must not be negative")
	}
	if p.Status != nil && !p.Status.Valid() {
		v.add("status", "must be one of PENDING_APPROVAL, ACTIVE, DELINQUENT, PAID_OFF")
	}
	return v.err()
}

func (in CardInput) Validate() error {
	var v violations
	if in.AccountID == "" {
		v.add("account_id", "is required")
	}
	if in.PANToken == "" {
		v.add("pan_token", "is required")
	}
	if !lastFourRe.MatchString(in.LastFourDigits) {
		v.add("last_four_digits", "must be exactly four digits")
	}
	if in.Expiry.IsZero() {
		v.add("expiry", "is required")
	}
	if in.CVVHash == "" {
		v.add("cvv_hash", "is required")
	}
	if in.SpendingLimit != nil && in.SpendingLimit.IsNegative() {
		v.add("spending_limit", "must not be negative")
	}
	if !in.Status.Valid() {
		v.add("status", "must be one of ACTIVE, BLOCKED, EXPIRED")
	}
	return v.err()
}

func (p CardPatch) Validate() error {
	var v violations
	if p.SpendingLimit != nil && p.SpendingLimit.IsNegative() {
		v.add("spending_limit", "must not be negative")
	}
	if p.Status != nil && !p.Status.Valid() {
		v.add("status", "must be one of ACTIVE, BLOCKED, EXPIRED")
	}
	return v.err()
}

func (in TransactionInput) Validate() error {
	var v violations
	owners := 0
	for _, id := range []*string{in.AccountID, in.CardID, in.LoanID} {
		if id != nil && *id != "" {
			owners++
		}
	}
	if owners != 1 {
		v.add("account_id/card_id/loan_id", "exactly one owner must be set")
	}
	if !in.Type.Valid() {
		v.add("type", "must be one of PURCHASE, FEE, LOAN_DISBURSEMENT, PAYMENT")
	}
	if in.Currency != "" && !currencyRe.MatchString(in.Currency) {
		v.add("currency", "must be a three-letter code")
	}
	if !in.Status.Valid() {
		v.add("status", "must be one of PENDING, COMPLETED, FAILED")
	}
	return v.err()
}

package bank

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account types.
type AccountType string

const (
	AccountChecking   AccountType = "CHECKING"
	AccountLoan       AccountType = "LOAN"
	AccountCreditLine AccountType = "CREDIT_LINE"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountChecking, AccountLoan, AccountCreditLine:
		return true
	}
	return false
}

// Loan lifecycle states.
type LoanStatus string

const (
	LoanPendingApproval LoanStatus = "PENDING_APPROVAL"
	LoanActive          LoanStatus = "ACTIVE"
	LoanDelinquent      LoanStatus = "DELINQUENT"
	LoanPaidOff         LoanStatus = "PAID_OFF"
)

func (s LoanStatus) Valid() bool {
	switch s {
	case LoanPendingApproval, LoanActive, LoanDelinquent, LoanPaidOff:
		return true
	}
	return false
}

// Card states.
type CardStatus string

const (
	CardActive  CardStatus = "ACTIVE"
	CardBlocked CardStatus = "BLOCKED"
	CardExpired CardStatus = "EXPIRED"
)

func (s CardStatus) Valid() bool {
	switch s {
	case CardActive, CardBlocked, CardExpired:
		return true
	}
	return false
}

// Transaction kinds and states.
type TransactionType string

const (
	TxPurchase         TransactionType = "PURCHASE"
	TxFee              TransactionType = "FEE"
	TxLoanDisbursement TransactionType = "LOAN_DISBURSEMENT"
	TxPayment          TransactionType = "PAYMENT"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TxPurchase, TxFee, TxLoanDisbursement, TxPayment:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TxPending   TransactionStatus = "PENDING"
	TxCompleted TransactionStatus = "COMPLETED"
	TxFailed    TransactionStatus = "FAILED"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TxPending, TxCompleted, TxFailed:
		return true
	}
	return false
}

// DefaultCurrency applies to accounts and transactions created without one.
const DefaultCurrency = "SEK"

// Company is the root entity; users, accounts and loans hang off it.
type Company struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	TaxID        *string          `json:"tax_id,omitempty"`
	CountryCode  *string          `json:"country_code,omitempty"`
	BusinessType *string          `json:"business_type,omitempty"`
	Address      map[string]any   `json:"address,omitempty"`
	CreditLimit  *decimal.Decimal `json:"credit_limit,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// User belongs to a company. The password hash is stored but never serialized.
type User struct {
	ID           string     `json:"id"`
	CompanyID    string     `json:"company_id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type Account struct {
	ID        string          `json:"id"`
	CompanyID string          `json:"company_id"`
	Type      AccountType     `json:"type"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
}

type Loan struct {
	ID                 string          `json:"id"`
	CompanyID          string          `json:"company_id"`
	Principal          decimal.Decimal `json:"principal"`
	InterestRate       decimal.Decimal `json:"interest_rate"`
	TermMonths         int             `json:"term_months"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	Status             LoanStatus      `json:"status"`
	ApproverID         *string         `json:"approver_id,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

// Card carries a tokenized PAN and a hashed CVV; the raw values never enter
// the system and the hash is never serialized.
type Card struct {
	ID             string           `json:"id"`
	AccountID      string           `json:"account_id"`
	PANToken       string           `json:"pan_token"`
	LastFourDigits string           `json:"last_four_digits"`
	Expiry         time.Time        `json:"expiry"`
	CVVHash        string           `json:"-"`
	SpendingLimit  *decimal.Decimal `json:"spending_limit,omitempty"`
	Status         CardStatus       `json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Transaction is owned by exactly one of account, card or loan.
type Transaction struct {
	ID           string            `json:"id"`
	AccountID    *string           `json:"account_id,omitempty"`
	CardID       *string           `json:"card_id,omitempty"`
	LoanID       *string           `json:"loan_id,omitempty"`
	Amount       decimal.Decimal   `json:"amount"`
	Type         TransactionType   `json:"type"`
	Currency     string            `json:"currency"`
	MerchantName *string           `json:"merchant_name,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
	Status       TransactionStatus `json:"status"`
}

// --- create inputs ---

type CompanyInput struct {
	Name         string
	TaxID        *string
	CountryCode  *string
	BusinessType *string
	Address      map[string]any
	CreditLimit  *decimal.Decimal
}

type UserInput struct {
	CompanyID    string
	Email        string
	PasswordHash string
}

type AccountInput struct {
	CompanyID string
	Type      AccountType
	Balance   *decimal.Decimal // nil -> 0
	Currency  string           // "" -> DefaultCurrency
}

type LoanInput struct {
	CompanyID          string
	Principal          decimal.Decimal
	InterestRate       decimal.Decimal
	TermMonths         int
	OutstandingBalance *decimal.Decimal // nil -> Principal
	Status             LoanStatus
	ApproverID         *string
}

type CardInput struct {
	AccountID      string
	PANToken       string
	LastFourDigits string
	Expiry         time.Time
	CVVHash        string
	SpendingLimit  *decimal.Decimal
	Status         CardStatus
}

type TransactionInput struct {
	AccountID    *string
	CardID       *string
	LoanID       *string
	Amount       decimal.Decimal
	Type         TransactionType
	Currency     string // "" -> DefaultCurrency
	MerchantName *string
	Timestamp    *time.Time // nil -> now
	Status       TransactionStatus
}

// --- partial updates ---
//
// Patch structs are the per-entity mutable-field allow-lists: a field absent
// from the struct cannot be changed through any path, and a nil field leaves
// the stored value untouched.

type CompanyPatch struct {
	Name         *string          `json:"name"`
	TaxID        *string          `json:"tax_id"`
	CountryCode  *string          `json:"country_code"`
	BusinessType *string          `json:"business_type"`
	Address      map[string]any   `json:"address"`
	CreditLimit  *decimal.Decimal `json:"credit_limit"`
}

type UserPatch struct {
	Email        *string    `json:"email"`
	PasswordHash *string    `json:"-"`
	LastLogin    *time.Time `json:"last_login"`
}

type AccountPatch struct {
	Type     *AccountType     `json:"type"`
	Balance  *decimal.Decimal `json:"balance"`
	Currency *string          `json:"currency"`
}

type LoanPatch struct {
	Principal          *decimal.Decimal `json:"principal"`
	InterestRate       *decimal.Decimal `json:"interest_rate"`
	TermMonths         *int             `json:"term_months"`
	OutstandingBalance *decimal.Decimal `json:"outstanding_balance"`
	Status             *LoanStatus      `json:"status"`
	ApproverID         *string          `json:"approver_id"`
}

// CardPatch is deliberately narrow: PAN token, expiry and CVV hash are
// write-once.
type CardPatch struct {
	SpendingLimit *decimal.Decimal `json:"spending_limit"`
	Status        *CardStatus      `json:"status"`
}

// --- list scoping ---

// Page selects a window of a transaction listing. Zero values normalize to
// the first page of twenty rows.
type Page struct {
	Number int
	Size   int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Number - 1) * p.Size
}

// TransactionScope narrows a transaction listing to one owner, or to every
// owner belonging to a company. At most one field may be set; the zero value
// means "everything".
type TransactionScope struct {
	AccountID string
	CardID    string
	LoanID    string
	CompanyID string
}

// SpendingSummary reports spend against a limit. Spent covers COMPLETED
// PURCHASE transactions only.
type SpendingSummary struct {
	Limit     decimal.Decimal `json:"limit"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
}

// NewSpendingSummary clamps remaining at zero.
func NewSpendingSummary(limit, spent decimal.Decimal) SpendingSummary {
	remaining := limit.Sub(spent)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return SpendingSummary{Limit: limit, Spent: spent, Remaining: remaining}
}

// SummarizePage derives a summary from one fetched page of transactions.
// It understates true spend when history exceeds the page; callers should
// prefer the store's full-history total and use this only as a fallback.
func SummarizePage(limit decimal.Decimal, txs []Transaction) SpendingSummary {
	spent := decimal.Zero
	for _, tx := range txs {
		if tx.Status == TxCompleted && tx.Type == TxPurchase {
			spent = spent.Add(tx.Amount)
		}
	}
	return NewSpendingSummary(limit, spent)
}

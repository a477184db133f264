package bank

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store bundles persistence for the six entity types. Every operation is
// durable once it returns success and has no visible effect before that.
type Store interface {
	Companies() CompanyStore
	Users() UserStore
	Accounts() AccountStore
	Loans() LoanStore
	Cards() CardStore
	Transactions() TransactionStore
}

type CompanyStore interface {
	Create(ctx context.Context, in CompanyInput) (Company, error)
	Get(ctx context.Context, id string) (Company, error)
	List(ctx context.Context) ([]Company, error)
	Update(ctx context.Context, id string, p CompanyPatch) (Company, error)
	Delete(ctx context.Context, id string) error
}

type UserStore interface {
	Create(ctx context.Context, in UserInput) (User, error)
	Get(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context) ([]User, error)
	ListByCompany(ctx context.Context, companyID string) ([]User, error)
	Update(ctx context.Context, id string, p UserPatch) (User, error)
	Delete(ctx context.Context, id string) error
}

type AccountStore interface {
	Create(ctx context.Context, in AccountInput) (Account, error)
	Get(ctx context.Context, id string) (Account, error)
	List(ctx context.Context) ([]Account, error)
	ListByCompany(ctx context.Context, companyID string) ([]Account, error)
	Update(ctx context.Context, id string, p AccountPatch) (Account, error)
	Delete(ctx context.Context, id string) error
}

type LoanStore interface {
	Create(ctx context.Context, in LoanInput) (Loan, error)
	Get(ctx context.Context, id string) (Loan, error)
	List(ctx context.Context) ([]Loan, error)
	ListByCompany(ctx context.Context, companyID string) ([]Loan, error)
	Update(ctx context.Context, id string, p LoanPatch) (Loan, error)
	Delete(ctx context.Context, id string) error
}

type CardStore interface {
	Create(ctx context.Context, in CardInput) (Card, error)
	Get(ctx context.Context, id string) (Card, error)
	List(ctx context.Context) ([]Card, error)
	ListByAccount(ctx context.Context, accountID string) ([]Card, error)
	Update(ctx context.Context, id string, p CardPatch) (Card, error)
	Delete(ctx context.Context, id string) error
}

// TransactionStore has no Delete and restricts updates to the status field:
// money and type fields on a transaction are write-once.
type TransactionStore interface {
	Create(ctx context.Context, in TransactionInput) (Transaction, error)
	Get(ctx context.Context, id string) (Transaction, error)
	List(ctx context.Context, scope TransactionScope, page Page) ([]Transaction, error)
	UpdateStatus(ctx context.Context, id string, status TransactionStatus) (Transaction, error)
	// CompletedPurchaseTotal sums COMPLETED PURCHASE amounts over the full
	// history within scope, for server-side spending summaries.
	CompletedPurchaseTotal(ctx context.Context, scope TransactionScope) (decimal.Decimal, error)
}

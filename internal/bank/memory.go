package bank

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"kortio.se/internal/ids"
)

// Memory implements Store with in-process concurrency safety. It enforces
// the same uniqueness and referential rules the SQL schema does, so tests
// and the demo mode observe identical outcomes.
type Memory struct {
	mu           sync.RWMutex
	companies    map[string]*Company
	users        map[string]*User
	accounts     map[string]*Account
	loans        map[string]*Loan
	cards        map[string]*Card
	transactions map[string]*Transaction

	emailIdx map[string]string // lowercased email -> user id
	panIdx   map[string]string // pan token -> card id
	taxIdx   map[string]string // tax id -> company id
}

func NewMemory() *Memory {
	return &Memory{
		companies:    make(map[string]*Company),
		users:        make(map[string]*User),
		accounts:     make(map[string]*Account),
		loans:        make(map[string]*Loan),
		cards:        make(map[string]*Card),
		transactions: make(map[string]*Transaction),
		emailIdx:     make(map[string]string),
		panIdx:       make(map[string]string),
		taxIdx:       make(map[string]string),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) Companies() CompanyStore        { return (*memCompanies)(m) }
func (m *Memory) Users() UserStore               { return (*memUsers)(m) }
func (m *Memory) Accounts() AccountStore         { return (*memAccounts)(m) }
func (m *Memory) Loans() LoanStore               { return (*memLoans)(m) }
func (m *Memory) Cards() CardStore               { return (*memCards)(m) }
func (m *Memory) Transactions() TransactionStore { return (*memTransactions)(m) }

// --- companies ---

type memCompanies Memory

func (s *memCompanies) Create(ctx context.Context, in CompanyInput) (Company, error) {
	if err := in.Validate(); err != nil {
		return Company{}, err
	}
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()

	if in.TaxID != nil {
		if _, taken := m.taxIdx[*in.TaxID]; taken {
			return Company{}, &UniquenessError{Field: "tax_id"}
		}
	}
	c := &Company{
		ID:           ids.New(),
		Name:         in.Name,
		TaxID:        in.TaxID,
		CountryCode:  in.CountryCode,
		BusinessType: in.BusinessType,
		Address:      in.Address,
		CreditLimit:  in.CreditLimit,
		CreatedAt:    time.Now().UTC(),
	}
	m.companies[c.ID] = c
	if c.TaxID != nil {
		m.taxIdx[*c.TaxID] = c.ID
	}
	return *c, nil
}

func (s *memCompanies) Get(ctx context.Context, id string) (Company, error) {
	m := (*Memory)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.companies[id]
	if !ok {
		return Company{}, ErrNotFound
	}
	return *c, nil
}

func (s *memCompanies) List(ctx context.Context) ([]Company, error) {
	m := (*Memory)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Company, 0, len(m.companies))
	for _, c := range m.companies {
		out = append(out, *c)
	}
	return out, nil
}

func (s *memCompanies) Update(ctx context.Context, id string, p CompanyPatch) (Company, error) {
	if err := p.Validate(); err != nil {
		return Company{}, err
	}
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok {
		return Company{}, ErrNotFound
	}
	if p.TaxID != nil {
		if owner, taken := m.taxIdx[*p.TaxID]; taken && owner != id {
			return Company{}, &UniquenessError{Field: "tax_id"}
		}
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.TaxID != nil {
		if c.TaxID != nil {
			delete(m.taxIdx, *c.TaxID)
		}
		c.TaxID = p.TaxID
		m.taxIdx[*p.TaxID] = id
	}
	if p.CountryCode != nil {
		c.CountryCode = p.CountryCode
	}
	if p.BusinessType != nil {
		c.BusinessType = p.BusinessType
	}
	if p.Address != nil {
		c.Address = p.Address
	}
	if p.CreditLimit != nil {
		c.CreditLimit = p.CreditLimit
	}
	return *c, nil
}

func (s *memCompanies) Delete(ctx context.Context, id string) error {
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok {
		return ErrNotFound
	}
	for _, u := range m.users {
		if u.CompanyID == id {
			return &ReferenceError{Field: "users.company_id", InUse: true}
		}
	}
	for _, a := range m.accounts {
		if a.CompanyID == id {
			return &ReferenceError{Field: "accounts.company_id", InUse: true}
		}
	}
	for _, l := range m.loans {
		if l.CompanyID == id {
			return &ReferenceError{Field: "loans.company_id", InUse: true}
		}
	}
	if c.TaxID != nil {
		delete(m.taxIdx, *c.TaxID)
	}
	delete(m.companies, id)
	return nil
}

// --- users ---

type memUsers Memory

func (s *memUsers) Create(ctx context.Context, in UserInput) (User, error) {
	if err := in.Validate(); err != nil {
		return User{}, err
	}
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.companies[in.CompanyID]; !ok {
		return User{}, &ReferenceError{Field: "company_id"}
	}
	key := strings.ToLower(in.Email)
	if _, taken := m.emailIdx[key]; taken {
		return User{}, &UniquenessError{Field: "email"}
	}
	u := &User{
		ID:           ids.New(),
		CompanyID:    in.CompanyID,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		CreatedAt:    time.Now().UTC(),
	}
	m.users[u.ID] = u
	m.emailIdx[key] = u.ID
	return *u, nil
}

func (s *memUsers) Get(ctx context.Context, id string) (User, error) {
	m := (*Memory)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return *u, nil
}

func (s *memUsers) GetByEmail(ctx context.Context, email string) (User, error) {
	m := (*Memory)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.emailIdx[strings.ToLower(email)]
	if !ok {
		return User{}, ErrNotFound
	}
	return *m.users[id], nil
}

func (s *memUsers) List(ctx context.Context) ([]User, error) {
	m := (*Memory)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (s *memUsers) ListByCompany(ctx context.Context, companyID string) ([]User, error) {
	m := (*Memory)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []User{}
	for _, u := range m.users {
		if u.CompanyID == companyID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *memUsers) Update(ctx context.Context, id string, p UserPatch) (User, error) {
	if err := p.Validate(); err != nil {
		return User{}, err
	}
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	if p.Email != nil {
		key := strings.ToLower(*p.Email)
		if owner, taken := m.emailIdx[key]; taken && owner != id {
			return User{}, &UniquenessError{Field: "email"}
		}
		delete(m.emailIdx, strings.ToLower(u.Email))
		u.Email = *p.Email
		m.emailIdx[key] = id
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.LastLogin != nil {
		u.LastLogin = p.LastLogin
	}
	return *u, nil
}

func (s *memUsers) Delete(ctx context.Context, id string) error {
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	for _, l := range m.loans {
		if l.ApproverID != nil && *l.ApproverID == id {
			return &ReferenceError{Field: "loans.approver_id", InUse: true}
		}
	}
	delete(m.emailIdx, strings.ToLower(u.Email))
	delete(m.users, id)
	return nil
}

// --- accounts ---

type memAccounts Memory

func (s *memAccounts) Create(ctx context.Context, in AccountInput) (Account, error) {
	if err := in.Validate(); err != nil {
		return Account{}, err
	}
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.companies[in.CompanyID]; !ok {
		return Account{}, &ReferenceError{Field: "company_id"}
	}
	a := &Account{
		ID:        ids.New(),
		CompanyID: in.CompanyID,
		Type:      in.Type,
		Balance:   decimal.Zero,
		Currency:  DefaultCurrency,
		CreatedAt: time.Now().UTC(),
	}
	if in.Balance != nil {
		a.Balance = *in.Balance
	}
	if in.Currency != "" {
		a.Currency = in.Currency
	}
	m.accounts[a.ID] = a
	return *a, nil
}

func (s *memAccounts) Get(ctx context.Context, id string) (Account, error) {
	m := (*Memory)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return *a, nil
}

func (s *memAccounts) List(ctx context.Context) ([]Account, error) {
	m := (*Memory)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, *a)
	}
	return out, nil
}

func (s *memAccounts) ListByCompany(ctx context.Context, companyID string) ([]Account, error) {
	m := (*Memory)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Account{}
	for _, a := range m.accounts {
		if a.CompanyID == companyID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *memAccounts) Update(ctx context.Context, id string, p AccountPatch) (Account, error) {
	if err := p.Validate(); err != nil {
		return Account{}, err
	}
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.Balance != nil {
		a.Balance = *p.Balance
	}
	if p.Currency != nil {
		a.Currency = *p.Currency
	}
	return *a, nil
}

func (s *memAccounts) Delete(ctx context.Context, id string) error {
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; !ok {
		return ErrNotFound
	}
	for _, c := range m.cards {
		if c.AccountID == id {
			return &ReferenceError{Field: "cards.account_id", InUse: true}
		}
	}
	for _, tx := range m.transactions {
		if tx.AccountID != nil && *tx.AccountID == id {
			return &ReferenceError{Field: "transactions.account_id", InUse: true}
		}
	}
	delete(m.accounts, id)
	return nil
}

// --- loans ---

type memLoans Memory

func (s *memLoans) Create(ctx context.Context, in LoanInput) (Loan, error) {
	if err := in.Validate(); err != nil {
		return Loan{}, err
	}
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.companies[in.CompanyID]; !ok {
		return Loan{}, &ReferenceError{Field: "company_id"}
	}
	if in.ApproverID != nil {
		if _, ok := m.users[*in.ApproverID]; !ok {
			return Loan{}, &ReferenceError{Field: "approver_id"}
		}
	}
	l := &Loan{
		ID:                 ids.New(),
		CompanyID:          in.CompanyID,
		Principal:          in.Principal,
		InterestRate:       in.InterestRate,
		TermMonths:         in.TermMonths,
		OutstandingBalance: in.Principal,
		Status:             in.Status,
		ApproverID:         in.ApproverID,
		CreatedAt:          time.Now().UTC(),
	}
	if in.OutstandingBalance != nil {
		l.OutstandingBalance = *in.OutstandingBalance
	}
	m.loans[l.ID] = l
	return *l, nil
}

func (s *memLoans) Get(ctx context.Context, id string) (Loan, error) {
	m := (*Memory)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.loans[id]
	if !ok {
		return Loan{}, ErrNotFound
	}
	return *l, nil
}

func (s *memLoans) List(ctx context.Context) ([]Loan, error) {
	m := (*Memory)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Loan, 0, len(m.loans))
	for _, l := range m.loans {
		out = append(out, *l)
	}
	return out, nil
}

func (s *memLoans) ListByCompany(ctx context.Context, companyID string) ([]Loan, error) {
	m := (*Memory)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Loan{}
	for _, l := range m.loans {
		if l.CompanyID == companyID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *memLoans) Update(ctx context.Context, id string, p LoanPatch) (Loan, error) {
	if err := p.Validate(); err != nil {
		return Loan{}, err
	}
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.loans[id]
	if !ok {
		return Loan{}, ErrNotFound
	}
	if p.ApproverID != nil {
		if _, ok := m.users[*p.ApproverID]; !ok {
			return Loan{}, &ReferenceError{Field: "approver_id"}
		}
		l.ApproverID = p.ApproverID
	}
	if p.Principal != nil {
		l.Principal = *p.Principal
	}
	if p.InterestRate != nil {
		l.InterestRate = *p.InterestRate
	}
	if p.TermMonths != nil {
		l.TermMonths = *p.TermMonths
	}
	if p.OutstandingBalance != nil {
		l.OutstandingBalance = *p.OutstandingBalance
	}
	if p.Status != nil {
		l.Status = *p.Status
	}
	return *l, nil
}

func (s *memLoans) Delete(ctx context.Context, id string) error {
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.loans[id]; !ok {
		return ErrNotFound
	}
	for _, tx := range m.transactions {
		if tx.LoanID != nil && *tx.LoanID == id {
			return &ReferenceError{Field: "transactions.loan_id", InUse: true}
		}
	}
	delete(m.loans, id)
	return nil
}

// --- cards ---

type memCards Memory

func (s *memCards) Create(ctx context.Context, in CardInput) (Card, error) {
	if err := in.Validate(); err != nil {
		return Card{}, err
	}
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[in.AccountID]; !ok {
		return Card{}, &ReferenceError{Field: "account_id"}
	}
	if _, taken := m.panIdx[in.PANToken]; taken {
		return Card{}, &UniquenessError{Field: "pan_token"}
	}
	c := &Card{
		ID:             ids.New(),
		AccountID:      in.AccountID,
		PANToken:       in.PANToken,
		LastFourDigits: in.LastFourDigits,
		Expiry:         in.Expiry,
		CVVHash:        in.CVVHash,
		SpendingLimit:  in.SpendingLimit,
		Status:         in.Status,
		CreatedAt:      time.Now().UTC(),
	}
	m.cards[c.ID] = c
	m.panIdx[c.PANToken] = c.ID
	return *c, nil
}

func (s *memCards) Get(ctx context.Context, id string) (Card, error) {
	m := (*Memory)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cards[id]
	if !ok {
		return Card{}, ErrNotFound
	}
	return *c, nil
}

func (s *memCards) List(ctx context.Context) ([]Card, error) {
	m := (*Memory)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Card, 0, len(m.cards))
	for _, c := range m.cards {
		out = append(out, *c)
	}
	return out, nil
}

func (s *memCards) ListByAccount(ctx context.Context, accountID string) ([]Card, error) {
	m := (*Memory)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Card{}
	for _, c := range m.cards {
		if c.AccountID == accountID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *memCards) Update(ctx context.Context, id string, p CardPatch) (Card, error) {
	if err := p.Validate(); err != nil {
		return Card{}, err
	}
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return Card{}, ErrNotFound
	}
	if p.SpendingLimit != nil {
		c.SpendingLimit = p.SpendingLimit
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	return *c, nil
}

func (s *memCards) Delete(ctx context.Context, id string) error {
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return ErrNotFound
	}
	for _, tx := range m.transactions {
		if tx.CardID != nil && *tx.CardID == id {
			return &ReferenceError{Field: "transactions.card_id", InUse: true}
		}
	}
	delete(m.panIdx, c.PANToken)
	delete(m.cards, id)
	return nil
}

// --- transactions ---

type memTransactions Memory

func (s *memTransactions) Create(ctx context.Context, in TransactionInput) (Transaction, error) {
	if err := in.Validate(); err != nil {
		return Transaction{}, err
	}
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()

	if in.AccountID != nil {
		if _, ok := m.accounts[*in.AccountID]; !ok {
			return Transaction{}, &ReferenceError{Field: "account_id"}
		}
	}
	if in.CardID != nil {
		if _, ok := m.cards[*in.CardID]; !ok {
			return Transaction{}, &ReferenceError{Field: "card_id"}
		}
	}
	if in.LoanID != nil {
		if _, ok := m.loans[*in.LoanID]; !ok {
			return Transaction{}, &ReferenceError{Field: "loan_id"}
		}
	}
	tx := &Transaction{
		ID:           ids.New(),
		AccountID:    in.AccountID,
		CardID:       in.CardID,
		LoanID:       in.LoanID,
		Amount:       in.Amount,
		Type:         in.Type,
		Currency:     DefaultCurrency,
		MerchantName: in.MerchantName,
		Timestamp:    time.Now().UTC(),
		Status:       in.Status,
	}
	if in.Currency != "" {
		tx.Currency = in.Currency
	}
	if in.Timestamp != nil {
		tx.Timestamp = *in.Timestamp
	}
	m.transactions[tx.ID] = tx
	return *tx, nil
}

func (s *memTransactions) Get(ctx context.Context, id string) (Transaction, error) {
	m := (*Memory)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.transactions[id]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return *tx, nil
}

func (s *memTransactions) List(ctx context.Context, scope TransactionScope, page Page) ([]Transaction, error) {
	m := (*Memory)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := []Transaction{}
	for _, tx := range m.transactions {
		if m.inScope(tx, scope) {
			matched = append(matched, *tx)
		}
	}
	// Stable page windows need a deterministic order.
	sortTransactions(matched)

	page = page.Normalize()
	start := page.Offset()
	if start >= len(matched) {
		return []Transaction{}, nil
	}
	end := start + page.Size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (s *memTransactions) UpdateStatus(ctx context.Context, id string, status TransactionStatus) (Transaction, error) {
	if !status.Valid() {
		return Transaction{}, &ValidationError{Violations: []FieldViolation{
			{Field: "status", Problem: "must be one of PENDING, COMPLETED, FAILED"},
		}}
	}
	m := (*Memory)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[id]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	tx.Status = status
	return *tx, nil
}

func (s *memTransactions) CompletedPurchaseTotal(ctx context.Context, scope TransactionScope) (decimal.Decimal, error) {
	m := (*Memory)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := decimal.Zero
	for _, tx := range m.transactions {
		if m.inScope(tx, scope) && tx.Status == TxCompleted && tx.Type == TxPurchase {
			total = total.Add(tx.Amount)
		}
	}
	return total, nil
}

// inScope resolves ownership, including company-wide scoping through the
// owning account, card or loan. Caller holds at least a read lock.
func (m *Memory) inScope(tx *Transaction, scope TransactionScope) bool {
	switch {
	case scope.AccountID != "":
		return tx.AccountID != nil && *tx.AccountID == scope.AccountID
	case scope.CardID != "":
		return tx.CardID != nil && *tx.CardID == scope.CardID
	case scope.LoanID != "":
		return tx.LoanID != nil && *tx.LoanID == scope.LoanID
	case scope.CompanyID != "":
		if tx.AccountID != nil {
			if a, ok := m.accounts[*tx.AccountID]; ok {
				return a.CompanyID == scope.CompanyID
			}
		}
		if tx.CardID != nil {
			if c, ok := m.cards[*tx.CardID]; ok {
				if a, ok := m.accounts[c.AccountID]; ok {
					return a.CompanyID == scope.CompanyID
				}
			}
		}
		if tx.LoanID != nil {
			if l, ok := m.loans[*tx.LoanID]; ok {
				return l.CompanyID == scope.CompanyID
			}
		}
		return false
	}
	return true
}

// newest first, id as tiebreaker
func sortTransactions(txs []Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Timestamp.Equal(txs[j].Timestamp) {
			return txs[i].Timestamp.After(txs[j].Timestamp)
		}
		return txs[i].ID < txs[j].ID
	})
}

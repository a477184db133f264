package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"kortio.se/internal/bank"
	"kortio.se/internal/ids"
)

type accounts struct {
	db *sql.DB
}

const accountColumns = `id, company_id, type, balance, currency, created_at`

func (s *accounts) Create(ctx context.Context, in bank.AccountInput) (bank.Account, error) {
	if err := in.Validate(); err != nil {
		return bank.Account{}, err
	}
	// Defaults live in the schema; coalesce keeps the insert single-statement.
	row := s.db.QueryRowContext(ctx, `
		insert into accounts (id, company_id, type, balance, currency)
		values ($1, $2, $3, coalesce($4, 0), coalesce(nullif($5, ''), 'SEK'))
		returning `+accountColumns+`
	`, ids.New(), in.CompanyID, string(in.Type), nullDecimal(in.Balance), in.Currency)
	a, err := scanAccount(row)
	if err != nil {
		return bank.Account{}, writeError(err)
	}
	return a, nil
}

func (s *accounts) Get(ctx context.Context, id string) (bank.Account, error) {
	row := s.db.QueryRowContext(ctx, `select `+accountColumns+` from accounts where id = $1`, id)
	a, err := scanAccount(row)
	if err != nil {
		return bank.Account{}, notFoundOr(err)
	}
	return a, nil
}

func (s *accounts) List(ctx context.Context) ([]bank.Account, error) {
	return s.query(ctx, `select `+accountColumns+` from accounts`)
}

func (s *accounts) ListByCompany(ctx context.Context, companyID string) ([]bank.Account, error) {
	return s.query(ctx, `select `+accountColumns+` from accounts where company_id = $1`, companyID)
}

func (s *accounts) query(ctx context.Context, q string, args ...any) ([]bank.Account, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []bank.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (s *accounts) Update(ctx context.Context, id string, p bank.AccountPatch) (bank.Account, error) {
	if err := p.Validate(); err != nil {
		return bank.Account{}, err
	}
	var (
		set  []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Type != nil {
		add("type", string(*p.Type))
	}
	if p.Balance != nil {
		add("balance", *p.Balance)
	}
	if p.Currency != nil {
		add("currency", *p.Currency)
	}
	if len(set) == 0 {
		return s.Get(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`update accounts set %s where id = $%d returning %s`,
		strings.Join(set, ", "), len(args), accountColumns)
	a, err := scanAccount(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return bank.Account{}, writeError(notFoundOr(err))
	}
	return a, nil
}

func (s *accounts) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from accounts where id = $1`, id)
	if err != nil {
		return deleteError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return bank.ErrNotFound
	}
	return nil
}

func scanAccount(row rowScanner) (bank.Account, error) {
	var (
		a   bank.Account
		typ string
	)
	if err := row.Scan(&a.ID, &a.CompanyID, &typ, &a.Balance, &a.Currency, &a.CreatedAt); err != nil {
		return bank.Account{}, err
	}
	a.Type = bank.AccountType(typ)
	return a, nil
}

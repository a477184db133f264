package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"kortio.se/internal/bank"
	"kortio.se/internal/ids"
)

type cards struct {
	db *sql.DB
}

const cardColumns = `id, account_id, pan_token, last_four_digits, expiry, cvv_hash, spending_limit, status, created_at`

func (s *cards) Create(ctx context.Context, in bank.CardInput) (bank.Card, error) {
	if err := in.Validate(); err != nil {
		return bank.Card{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		insert into cards (id, account_id, pan_token, last_four_digits, expiry, cvv_hash, spending_limit, status)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning `+cardColumns+`
	`, ids.New(), in.AccountID, in.PANToken, in.LastFourDigits, in.Expiry, in.CVVHash,
		nullDecimal(in.SpendingLimit), string(in.Status))
	c, err := scanCard(row)
	if err != nil {
		return bank.Card{}, writeError(err)
	}
	return c, nil
}

func (s *cards) Get(ctx context.Context, id string) (bank.Card, error) {
	row := s.db.QueryRowContext(ctx, `select `+cardColumns+` from cards where id = $1`, id)
	c, err := scanCard(row)
	if err != nil {
		return bank.Card{}, notFoundOr(err)
	}
	return c, nil
}

func (s *cards) List(ctx context.Context) ([]bank.Card, error) {
	return s.query(ctx, `select `+cardColumns+` from cards`)
}

func (s *cards) ListByAccount(ctx context.Context, accountID string) ([]bank.Card, error) {
	return s.query(ctx, `select `+cardColumns+` from cards where account_id = $1`, accountID)
}

func (s *cards) query(ctx context.Context, q string, args ...any) ([]bank.Card, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []bank.Card{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// Update touches only the mutable card surface; the PAN token, expiry and
// CVV hash columns are never part of the statement.
func (s *cards) Update(ctx context.Context, id string, p bank.CardPatch) (bank.Card, error) {
	if err := p.Validate(); err != nil {
		return bank.Card{}, err
	}
	var (
		set  []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.SpendingLimit != nil {
		add("spending_limit", *p.SpendingLimit)
	}
	if p.Status != nil {
		add("status", string(*p.Status))
	}
	if len(set) == 0 {
		return s.Get(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`update cards set %s where id = $%d returning %s`,
		strings.Join(set, ", "), len(args), cardColumns)
	c, err := scanCard(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return bank.Card{}, writeError(notFoundOr(err))
	}
	return c, nil
}

func (s *cards) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from cards where id = $1`, id)
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

func scanCard(row rowScanner) (bank.Card, error) {
	var (
		c      bank.Card
		status string
		limit  decimal.NullDecimal
	)
	if err := row.Scan(&c.ID, &c.AccountID, &c.PANToken, &c.LastFourDigits, &c.Expiry,
		&c.CVVHash, &limit, &status, &c.CreatedAt); err != nil {
		return bank.Card{}, err
	}
	c.Status = bank.CardStatus(status)
	if limit.Valid {
		c.SpendingLimit = &limit.Decimal
	}
	return c, nil
}

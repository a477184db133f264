package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"kortio.se/internal/bank"
	"kortio.se/internal/ids"
)

type companies struct {
	db *sql.DB
}

const companyColumns = `id, name, tax_id, country_code, business_type, address, credit_limit, created_at`

func (s *companies) Create(ctx context.Context, in bank.CompanyInput) (bank.Company, error) {
	if err := in.Validate(); err != nil {
		return bank.Company{}, err
	}
	addrJSON, err := marshalAddress(in.Address)
	if err != nil {
		return bank.Company{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		insert into companies (id, name, tax_id, country_code, business_type, address, credit_limit)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning `+companyColumns+`
	`, ids.New(), in.Name, in.TaxID, in.CountryCode, in.BusinessType, addrJSON, nullDecimal(in.CreditLimit))
	c, err := scanCompany(row)
	if err != nil {
		return bank.Company{}, writeError(err)
	}
	return c, nil
}

func (s *companies) Get(ctx context.Context, id string) (bank.Company, error) {
	row := s.db.QueryRowContext(ctx, `select `+companyColumns+` from companies where id = $1`, id)
	c, err := scanCompany(row)
	if err != nil {
		return bank.Company{}, notFoundOr(err)
	}
	return c, nil
}

func (s *companies) List(ctx context.Context) ([]bank.Company, error) {
	rows, err := s.db.QueryContext(ctx, `select `+companyColumns+` from companies`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []bank.Company{}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *companies) Update(ctx context.Context, id string, p bank.CompanyPatch) (bank.Company, error) {
	if err := p.Validate(); err != nil {
		return bank.Company{}, err
	}
	var (
		set  []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.TaxID != nil {
		add("tax_id", *p.TaxID)
	}
	if p.CountryCode != nil {
		add("country_code", *p.CountryCode)
	}
	if p.BusinessType != nil {
		add("business_type", *p.BusinessType)
	}
	if p.Address != nil {
		addrJSON, err := marshalAddress(p.Address)
		if err != nil {
			return bank.Company{}, err
		}
		add("address", addrJSON)
	}
	if p.CreditLimit != nil {
		add("credit_limit", *p.CreditLimit)
	}
	if len(set) == 0 {
		return s.Get(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`update companies set %s where id = $%d returning %s`,
		strings.Join(set, ", "), len(args), companyColumns)
	c, err := scanCompany(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return bank.Company{}, writeError(notFoundOr(err))
	}
	return c, nil
}

func (s *companies) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from companies where id = $1`, id)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompany(row rowScanner) (bank.Company, error) {
	var (
		c       bank.Company
		taxID   sql.NullString
		country sql.NullString
		bizType sql.NullString
		rawAddr []byte
		limit   decimal.NullDecimal
	)
	if err := row.Scan(&c.ID, &c.Name, &taxID, &country, &bizType, &rawAddr, &limit, &c.CreatedAt); err != nil {
		return bank.Company{}, err
	}
	if taxID.Valid {
		c.TaxID = &taxID.String
	}
	if country.Valid {
		c.CountryCode = &country.String
	}
	if bizType.Valid {
		c.BusinessType = &bizType.String
	}
	if len(rawAddr) > 0 {
		if err := json.Unmarshal(rawAddr, &c.Address); err != nil {
			return bank.Company{}, fmt.Errorf("decode address: %w", err)
		}
	}
	if limit.Valid {
		c.CreditLimit = &limit.Decimal
	}
	return c, nil
}

func marshalAddress(addr map[string]any) (any, error) {
	if addr == nil {
		return nil, nil
	}
	raw, err := json.Marshal(addr)
	if err != nil {
		return nil, fmt.Errorf("marshal address: %w", err)
	}
	return raw, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

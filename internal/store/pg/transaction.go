package pg

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"kortio.se/internal/bank"
	"kortio.se/internal/ids"
)

type transactions struct {
	db *sql.DB
}

const txColumns = `t.id, t.account_id, t.card_id, t.loan_id, t.amount, t.type, t.currency, t.merchant_name, t.ts, t.status`

func (s *transactions) Create(ctx context.Context, in bank.TransactionInput) (bank.Transaction, error) {
	if err := in.Validate(); err != nil {
		return bank.Transaction{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		insert into transactions as t (id, account_id, card_id, loan_id, amount, type, currency, merchant_name, ts, status)
		values ($1, $2, $3, $4, $5, $6, coalesce(nullif($7, ''), 'SEK'), $8, coalesce($9, now()), $10)
		returning `+txColumns+`
	`, ids.New(), in.AccountID, in.CardID, in.LoanID, in.Amount, string(in.Type),
		in.Currency, in.MerchantName, in.Timestamp, string(in.Status))
	tx, err := scanTransaction(row)
	if err != nil {
		return bank.Transaction{}, writeError(err)
	}
	return tx, nil
}

func (s *transactions) Get(ctx context.Context, id string) (bank.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `select `+txColumns+` from transactions t where t.id = $1`, id)
	tx, err := scanTransaction(row)
	if err != nil {
		return bank.Transaction{}, notFoundOr(err)
	}
	return tx, nil
}

func (s *transactions) List(ctx context.Context, scope bank.TransactionScope, page bank.Page) ([]bank.Transaction, error) {
	page = page.Normalize()
	where, args := scopeClause(scope)
	args = append(args, page.Size, page.Offset())
	query := fmt.Sprintf(`
		select %s from transactions t
		%s
		order by t.ts desc, t.id
		limit $%d offset $%d
	`, txColumns, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []bank.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}

func (s *transactions) UpdateStatus(ctx context.Context, id string, status bank.TransactionStatus) (bank.Transaction, error) {
	if !status.Valid() {
		return bank.Transaction{}, &bank.ValidationError{Violations: []bank.FieldViolation{
			{Field: "status", Problem: "must be one of PENDING, COMPLETED, FAILED"},
		}}
	}
	row := s.db.QueryRowContext(ctx, `
		update transactions t set status = $1 where t.id = $2
		returning `+txColumns+`
	`, string(status), id)
	tx, err := scanTransaction(row)
	if err != nil {
		return bank.Transaction{}, writeError(notFoundOr(err))
	}
	return tx, nil
}

func (s *transactions) CompletedPurchaseTotal(ctx context.Context, scope bank.TransactionScope) (decimal.Decimal, error) {
	where, args := scopeClause(scope)
	cond := "t.status = 'COMPLETED' and t.type = 'PURCHASE'"
	if where == "" {
		where = "where " + cond
	} else {
		where += " and " + cond
	}
	var total decimal.Decimal
	query := fmt.Sprintf(`select coalesce(sum(t.amount), 0) from transactions t %s`, where)
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return decimal.Decimal{}, err
	}
	return total, nil
}

// scopeClause builds the WHERE fragment for a transaction scope. A company
// scope walks ownership through the account, card and loan tables.
func scopeClause(scope bank.TransactionScope) (string, []any) {
	switch {
	case scope.AccountID != "":
		return "where t.account_id = $1", []any{scope.AccountID}
	case scope.CardID != "":
		return "where t.card_id = $1", []any{scope.CardID}
	case scope.LoanID != "":
		return "where t.loan_id = $1", []any{scope.LoanID}
	case scope.CompanyID != "":
		return `where (
			t.account_id in (select id from accounts where company_id = $1)
			or t.card_id in (select c.id from cards c join accounts a on a.id = c.account_id where a.company_id = $1)
			or t.loan_id in (select id from loans where company_id = $1)
		)`, []any{scope.CompanyID}
	}
	return "", nil
}

func scanTransaction(row rowScanner) (bank.Transaction, error) {
	var (
		tx        bank.Transaction
		accountID sql.NullString
		cardID    sql.NullString
		loanID    sql.NullString
		txType    string
		merchant  sql.NullString
		status    string
	)
	if err := row.Scan(&tx.ID, &accountID, &cardID, &loanID, &tx.Amount, &txType,
		&tx.Currency, &merchant, &tx.Timestamp, &status); err != nil {
		return bank.Transaction{}, err
	}
	if accountID.Valid {
		tx.AccountID = &accountID.String
	}
	if cardID.Valid {
		tx.CardID = &cardID.String
	}
	if loanID.Valid {
		tx.LoanID = &loanID.String
	}
	tx.Type = bank.TransactionType(txType)
	if merchant.Valid {
		tx.MerchantName = &merchant.String
	}
	tx.Status = bank.TransactionStatus(status)
	return tx, nil
}

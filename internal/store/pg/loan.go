package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"kortio.se/internal/bank"
	"kortio.se/internal/ids"
)

type loans struct {
	db *sql.DB
}

const loanColumns = `id, company_id, principal, interest_rate, term_months, outstanding_balance, status, approver_id, created_at`

func (s *loans) Create(ctx context.Context, in bank.LoanInput) (bank.Loan, error) {
	if err := in.Validate(); err != nil {
		return bank.Loan{}, err
	}
	// outstanding_balance falls back to the principal when not supplied.
	row := s.db.QueryRowContext(ctx, `
		insert into loans (id, company_id, principal, interest_rate, term_months, outstanding_balance, status, approver_id)
		values ($1, $2, $3, $4, $5, coalesce($6, $3), $7, $8)
		returning `+loanColumns+`
	`, ids.New(), in.CompanyID, in.Principal, in.InterestRate, in.TermMonths,
		nullDecimal(in.OutstandingBalance), string(in.Status), in.ApproverID)
	l, err := scanLoan(row)
	if err != nil {
		return bank.Loan{}, writeError(err)
	}
	return l, nil
}

func (s *loans) Get(ctx context.Context, id string) (bank.Loan, error) {
	row := s.db.QueryRowContext(ctx, `select `+loanColumns+` from loans where id = $1`, id)
	l, err := scanLoan(row)
	if err != nil {
		return bank.Loan{}, notFoundOr(err)
	}
	return l, nil
}

func (s *loans) List(ctx context.Context) ([]bank.Loan, error) {
	return s.query(ctx, `select `+loanColumns+` from loans`)
}

func (s *loans) ListByCompany(ctx context.Context, companyID string) ([]bank.Loan, error) {
	return s.query(ctx, `select `+loanColumns+` from loans where company_id = $1`, companyID)
}

func (s *loans) query(ctx context.Context, q string, args ...any) ([]bank.Loan, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []bank.Loan{}
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func (s *loans) Update(ctx context.Context, id string, p bank.LoanPatch) (bank.Loan, error) {
	if err := p.Validate(); err != nil {
		return bank.Loan{}, err
	}
	var (
		set  []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Principal != nil {
		add("principal", *p.Principal)
	}
	if p.InterestRate != nil {
		add("interest_rate", *p.InterestRate)
	}
	if p.TermMonths != nil {
		add("term_months", *p.TermMonths)
	}
	if p.OutstandingBalance != nil {
		add("outstanding_balance", *p.OutstandingBalance)
	}
	if p.Status != nil {
		add("status", string(*p.Status))
	}
	if p.ApproverID != nil {
		add("approver_id", *p.ApproverID)
	}
	if len(set) == 0 {
		return s.Get(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`update loans set %s where id = $%d returning %s`,
		strings.Join(set, ", "), len(args), loanColumns)
	l, err := scanLoan(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return bank.Loan{}, writeError(notFoundOr(err))
	}
	return l, nil
}

func (s *loans) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from loans where id = $1`, id)
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

func scanLoan(row rowScanner) (bank.Loan, error) {
	var (
		l        bank.Loan
		status   string
		approver sql.NullString
	)
	if err := row.Scan(&l.ID, &l.CompanyID, &l.Principal, &l.InterestRate, &l.TermMonths,
		&l.OutstandingBalance, &status, &approver, &l.CreatedAt); err != nil {
		return bank.Loan{}, err
	}
	l.Status = bank.LoanStatus(status)
	if approver.Valid {
		l.ApproverID = &approver.String
	}
	return l, nil
}

package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"kortio.se/internal/bank"
	"kortio.se/internal/ids"
)

type users struct {
	db *sql.DB
}

const userColumns = `id, company_id, email, password_hash, last_login, created_at`

func (s *users) Create(ctx context.Context, in bank.UserInput) (bank.User, error) {
	if err := in.Validate(); err != nil {
		return bank.User{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		insert into users (id, company_id, email, password_hash)
		values ($1, $2, $3, $4)
		returning `+userColumns+`
	`, ids.New(), in.CompanyID, in.Email, in.PasswordHash)
	u, err := scanUser(row)
	if err != nil {
		return bank.User{}, writeError(err)
	}
	return u, nil
}

func (s *users) Get(ctx context.Context, id string) (bank.User, error) {
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` from users where id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		return bank.User{}, notFoundOr(err)
	}
	return u, nil
}

func (s *users) GetByEmail(ctx context.Context, email string) (bank.User, error) {
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` from users where lower(email) = lower($1)`, email)
	u, err := scanUser(row)
	if err != nil {
		return bank.User{}, notFoundOr(err)
	}
	return u, nil
}

func (s *users) List(ctx context.Context) ([]bank.User, error) {
	return s.query(ctx, `select `+userColumns+` from users`)
}

func (s *users) ListByCompany(ctx context.Context, companyID string) ([]bank.User, error) {
	return s.query(ctx, `select `+userColumns+` from users where company_id = $1`, companyID)
}

func (s *users) query(ctx context.Context, q string, args ...any) ([]bank.User, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []bank.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (s *users) Update(ctx context.Context, id string, p bank.UserPatch) (bank.User, error) {
	if err := p.Validate(); err != nil {
		return bank.User{}, err
	}
	var (
		set  []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Email != nil {
		add("email", *p.Email)
	}
	if p.PasswordHash != nil {
		add("password_hash", *p.PasswordHash)
	}
	if p.LastLogin != nil {
		add("last_login", *p.LastLogin)
	}
	if len(set) == 0 {
		return s.Get(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`update users set %s where id = $%d returning %s`,
		strings.Join(set, ", "), len(args), userColumns)
	u, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return bank.User{}, writeError(notFoundOr(err))
	}
	return u, nil
}

func (s *users) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id = $1`, id)
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

func scanUser(row rowScanner) (bank.User, error) {
	var (
		u         bank.User
		lastLogin sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.CompanyID, &u.Email, &u.PasswordHash, &lastLogin, &u.CreatedAt); err != nil {
		return bank.User{}, err
	}
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	return u, nil
}

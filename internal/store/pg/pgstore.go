package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"kortio.se/internal/bank"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
	pgErrCheckViolation      = "23514"
)

// constraintFields translates schema constraint names into the request
// fields clients recognise. Kept in sync with migrations/.
var constraintFields = map[string]string{
	"companies_tax_id_key":         "tax_id",
	"users_email_key":              "email",
	"cards_pan_token_key":          "pan_token",
	"users_company_id_fkey":        "company_id",
	"accounts_company_id_fkey":     "company_id",
	"loans_company_id_fkey":        "company_id",
	"loans_approver_id_fkey":       "approver_id",
	"cards_account_id_fkey":        "account_id",
	"transactions_account_id_fkey": "account_id",
	"transactions_card_id_fkey":    "card_id",
	"transactions_loan_id_fkey":    "loan_id",
}

// Store implements bank.Store on PostgreSQL through the pgx stdlib driver.
type Store struct {
	db *sql.DB
}

var _ bank.Store = (*Store)(nil)

// PoolConfig bounds the connection pool; zero values keep the defaults.
type PoolConfig struct {
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

func (p PoolConfig) withDefaults() PoolConfig {
	if p.MaxOpenConns <= 0 {
		p.MaxOpenConns = 25
	}
	if p.MaxIdleConns <= 0 {
		p.MaxIdleConns = 10
	}
	if p.ConnLifetime <= 0 {
		p.ConnLifetime = 15 * time.Minute
	}
	return p
}

func Open(dsn string, pool PoolConfig) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	pool = pool.withDefaults()
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnLifetime)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle; used by tests.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Companies() bank.CompanyStore        { return &companies{db: s.db} }
func (s *Store) Users() bank.UserStore               { return &users{db: s.db} }
func (s *Store) Accounts() bank.AccountStore         { return &accounts{db: s.db} }
func (s *Store) Loans() bank.LoanStore               { return &loans{db: s.db} }
func (s *Store) Cards() bank.CardStore               { return &cards{db: s.db} }
func (s *Store) Transactions() bank.TransactionStore { return &transactions{db: s.db} }

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// writeError classifies a failed insert or update into the domain taxonomy.
func writeError(err error) error {
	pgErr, ok := maybePgError(err)
	if !ok {
		return err
	}
	field := constraintFields[pgErr.ConstraintName]
	if field == "" {
		field = pgErr.ConstraintName
	}
	switch pgErr.Code {
	case pgErrUniqueViolation:
		return &bank.UniquenessError{Field: field}
	case pgErrForeignKeyViolation:
		return &bank.ReferenceError{Field: field}
	case pgErrCheckViolation:
		return &bank.ValidationError{Violations: []bank.FieldViolation{
			{Field: field, Problem: "violates a storage constraint"},
		}}
	}
	return err
}

// deleteError classifies a failed delete: a foreign-key violation here means
// dependent rows still reference the record (restrict-on-delete).
func deleteError(err error) error {
	pgErr, ok := maybePgError(err)
	if !ok {
		return err
	}
	if pgErr.Code == pgErrForeignKeyViolation {
		field := constraintFields[pgErr.ConstraintName]
		if field == "" {
			field = pgErr.ConstraintName
		}
		return &bank.ReferenceError{Field: field, InUse: true}
	}
	return err
}

func notFoundOr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return bank.ErrNotFound
	}
	return err
}

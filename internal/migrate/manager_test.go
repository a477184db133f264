package migrate

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSplitStatements(t *testing.T) {
	in := `create table a (id text);
insert into a values ('x;y');
`
	stmts := splitStatements(in)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(stmts), stmts)
	}
	if got := stmts[1]; got != "\ninsert into a values ('x;y');" {
		t.Fatalf("semicolon inside literal split wrongly: %q", got)
	}
}

func TestSQLFilesSortedAndFiltered(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0002_extra.up.sql":  {Data: []byte("select 2;")},
		"migrations/0001_init.up.sql":   {Data: []byte("select 1;")},
		"migrations/0001_init.down.sql": {Data: []byte("select 0;")},
		"migrations/notes.txt":          {Data: []byte("ignored")},
	}
	r := NewRunner(nil, fsys, "migrations", "")

	names, err := r.sqlFiles("migrations", upSuffix)
	if err != nil {
		t.Fatalf("sqlFiles failed: %v", err)
	}
	if len(names) != 2 || names[0] != "0001_init.up.sql" || names[1] != "0002_extra.up.sql" {
		t.Fatalf("unexpected files: %v", names)
	}

	none, err := r.sqlFiles("missing", upSuffix)
	if err != nil || none != nil {
		t.Fatalf("expected empty result for missing dir, got %v, %v", none, err)
	}
}

func TestUpAppliesPendingInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	fsys := fstest.MapFS{
		"migrations/0001_init.up.sql": {Data: []byte("create table companies (id text primary key);")},
	}
	r := NewRunner(db, fsys, "migrations", "")

	mock.ExpectExec("create table if not exists schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("create table if not exists schema_seeds").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_migrations").WillReturnRows(sqlmock.NewRows([]string{"name"}))
	mock.ExpectBegin()
	mock.ExpectExec("create table companies").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec("insert into schema_migrations").
		WithArgs("0001_init.up.sql", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := r.Up(context.Background()); err != nil {
		t.Fatalf("Up failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

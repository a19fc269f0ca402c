package infra

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

type recordingExecutor struct {
	query string
	args  []any
}

func (r *recordingExecutor) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	r.query, r.args = query, args
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestSQLRunnerStripsMarker(t *testing.T) {
	db := &recordingExecutor{}
	runner := NewSQLRunner(db, zerolog.New(io.Discard))
	query := "\n--sql 35d94b35-18a5-415e-87ac-958016c1b831\ninsert into t values ($1);\n"
	if _, err := runner.Exec(context.Background(), query, 1); err != nil {
		t.Fatalf("Exec returned error: %v", err)
	}
	if db.query != "insert into t values ($1);" {
		t.Fatalf("query = %q", db.query)
	}
	if len(db.args) != 1 || db.args[0] != 1 {
		t.Fatalf("args = %#v", db.args)
	}
}

func TestSQLRunnerRejectsUnmarkedQueries(t *testing.T) {
	db := &recordingExecutor{}
	runner := NewSQLRunner(db, zerolog.New(io.Discard))
	for _, q := range []string{"", "select 1", "--sql not-a-uuid\nselect 1"} {
		if _, err := runner.Exec(context.Background(), q); err == nil {
			t.Fatalf("Exec(%q) succeeded, want error", q)
		}
	}
	if _, err := runner.Exec(context.Background(), "--sql 1234\nselect 1"); !errors.Is(err, ErrMissingMarker) {
		t.Fatalf("Exec err = %v, want ErrMissingMarker", err)
	}
	if db.query != "" {
		t.Fatal("unmarked query reached the database")
	}
}

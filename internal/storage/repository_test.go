package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeRepo records executed statements and fails on demand.
type fakeRepo struct {
	execs  []string
	failAt int // 1-based; 0 never fails
	closed bool
}

func (f *fakeRepo) Exec(ctx context.Context, sql string) error {
	if f.failAt > 0 && len(f.execs)+1 == f.failAt {
		return errors.New("relation \"provincias\" does not exist")
	}
	f.execs = append(f.execs, sql)
	return nil
}

func (f *fakeRepo) Count(ctx context.Context, table string) (int64, error) {
	return int64(len(f.execs)), nil
}

func (f *fakeRepo) Close() { f.closed = true }

func TestRegisterAndNew(t *testing.T) {
	t.Parallel()

	Register("fake", func(ctx context.Context, cfg Config) (Repository, error) {
		return &fakeRepo{}, nil
	})

	repo, err := New(context.Background(), Config{Kind: "fake"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if repo == nil {
		t.Fatal("New returned nil repo")
	}

	found := false
	for _, k := range ListKinds() {
		if k == "fake" {
			found = true
		}
	}
	if !found {
		t.Fatalf("ListKinds() = %v, missing fake", ListKinds())
	}
}

func TestNew_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Kind: "mssql"})
	if err == nil || !strings.Contains(err.Error(), `unsupported kind "mssql"`) {
		t.Fatalf("err = %v", err)
	}
}

func TestApply_AllStatements(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	stmts := []string{"-- A\nINSERT 1;\n", "-- B\nINSERT 2;\n", "-- C\nINSERT 3;\n"}

	n, err := Apply(context.Background(), repo, stmts, 2)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if n != 3 || len(repo.execs) != 3 {
		t.Fatalf("applied = %d, execs = %d; want 3", n, len(repo.execs))
	}
	if repo.execs[1] != stmts[1] {
		t.Fatalf("statements executed out of order: %q", repo.execs)
	}
}

func TestApply_StopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{failAt: 2}
	stmts := []string{"-- ACO\nINSERT 1;\n", "-- ACOBAMBA\nINSERT 2;\n", "-- ACORA\nINSERT 3;\n"}

	n, err := Apply(context.Background(), repo, stmts, 0)
	if n != 1 {
		t.Fatalf("applied = %d, want 1", n)
	}
	var ae *ApplyError
	if !errors.As(err, &ae) {
		t.Fatalf("err = %v, want *ApplyError", err)
	}
	if ae.Index != 1 || ae.Label != "ACOBAMBA" {
		t.Fatalf("ApplyError = %+v", ae)
	}
	if !strings.Contains(err.Error(), "statement 2 (ACOBAMBA)") {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestApply_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := &fakeRepo{}
	n, err := Apply(ctx, repo, []string{"-- A\nX;"}, 0)
	if !errors.Is(err, context.Canceled) || n != 0 || len(repo.execs) != 0 {
		t.Fatalf("n=%d err=%v execs=%d", n, err, len(repo.execs))
	}
}

func TestApply_NilRepo(t *testing.T) {
	t.Parallel()

	if _, err := Apply(context.Background(), nil, nil, 0); err == nil {
		t.Fatal("Apply(nil repo) succeeded")
	}
}

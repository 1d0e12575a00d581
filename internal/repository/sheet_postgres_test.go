package repository

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap/zaptest"
)

type mockQuerier struct {
	execFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	queryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	queryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (m *mockQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return m.execFunc(ctx, sql, args...)
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return m.queryRowFunc(ctx, sql, args...)
}

func (m *mockQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return m.queryFunc(ctx, sql, args...)
}

type mockRow struct {
	scanFunc func(dest ...any) error
}

func (r mockRow) Scan(dest ...any) error {
	return r.scanFunc(dest...)
}

func TestPostgresEnsureSheet(t *testing.T) {
	tests := []struct {
		name            string
		tag             string
		execErr         error
		expectedCreated bool
		expectedError   bool
	}{
		{name: "created", tag: "INSERT 0 1", expectedCreated: true},
		{name: "already_exists", tag: "INSERT 0 0"},
		{name: "database_error", execErr: errors.New("connection reset"), expectedError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &mockQuerier{
				execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
					if !strings.Contains(sql, "ON CONFLICT (name) DO NOTHING") {
						t.Errorf("expected idempotent insert, but got '%s'", sql)
					}
					if args[0] != "investors" || args[1] != `["timestamp","submissionId"]` {
						t.Errorf("unexpected args %v", args[:2])
					}
					return pgconn.NewCommandTag(tt.tag), tt.execErr
				},
			}
			store := newPostgresSheetStore(db, zaptest.NewLogger(t))

			created, err := store.EnsureSheet(context.Background(), "investors", []string{"timestamp", "submissionId"})

			if tt.expectedError {
				if err == nil {
					t.Error("expected error, but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if created != tt.expectedCreated {
				t.Errorf("expected created=%t, but got %t", tt.expectedCreated, created)
			}
		})
	}
}

func TestPostgresAppendRow(t *testing.T) {
	tests := []struct {
		name          string
		tag           string
		expectedError error
	}{
		{name: "appended", tag: "INSERT 0 1"},
		{name: "missing_sheet", tag: "INSERT 0 0", expectedError: ErrSheetNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &mockQuerier{
				execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
					if args[1] != `["a","b"]` {
						t.Errorf("expected encoded cells, but got %v", args[1])
					}
					return pgconn.NewCommandTag(tt.tag), nil
				},
			}
			store := newPostgresSheetStore(db, zaptest.NewLogger(t))

			err := store.AppendRow(context.Background(), "investors", []string{"a", "b"})
			if tt.expectedError == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.expectedError != nil && !errors.Is(err, tt.expectedError) {
				t.Errorf("expected error '%v', but got '%v'", tt.expectedError, err)
			}
		})
	}
}

func TestPostgresHeader(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		db := &mockQuerier{
			queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
				return mockRow{scanFunc: func(dest ...any) error {
					*dest[0].(*string) = "logs"
					*dest[1].(*string) = `["timestamp","action"]`
					return nil
				}}
			},
		}
		got, err := newPostgresSheetStore(db, zaptest.NewLogger(t)).Header(context.Background(), "logs")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 || got[1] != "action" {
			t.Errorf("unexpected header %v", got)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		db := &mockQuerier{
			queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
				return mockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }}
			},
		}
		_, err := newPostgresSheetStore(db, zaptest.NewLogger(t)).Header(context.Background(), "logs")
		if !errors.Is(err, ErrSheetNotFound) {
			t.Errorf("expected ErrSheetNotFound, but got %v", err)
		}
	})
}

func TestPostgresRowsQueryError(t *testing.T) {
	db := &mockQuerier{
		queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			return nil, errors.New("relation does not exist")
		},
	}
	if _, err := newPostgresSheetStore(db, zaptest.NewLogger(t)).Rows(context.Background(), "logs"); err == nil {
		t.Error("expected error, but got nil")
	}
}

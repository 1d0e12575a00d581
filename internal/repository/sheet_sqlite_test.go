package repository

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"
)

func newSQLiteSheets(t *testing.T) SheetStore {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLiteSheetStore(context.Background(), db, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestSQLiteEnsureSheetIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteSheets(t)
	header := []string{"timestamp", "submissionId", "fullName"}

	created, err := store.EnsureSheet(ctx, "investors", header)
	if err != nil || !created {
		t.Fatalf("expected sheet to be created, but got created=%t err=%v", created, err)
	}

	created, err = store.EnsureSheet(ctx, "investors", []string{"other"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Error("expected second ensure to be a no-op")
	}

	got, err := store.Header(ctx, "investors")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || got[2] != "fullName" {
		t.Errorf("expected original header to be kept, but got %v", got)
	}
}

func TestSQLiteAppendRow(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteSheets(t)

	if err := store.AppendRow(ctx, "missing", []string{"a"}); !errors.Is(err, ErrSheetNotFound) {
		t.Errorf("expected ErrSheetNotFound, but got %v", err)
	}

	if _, err := store.EnsureSheet(ctx, "logs", []string{"a", "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := [][]string{{"1", "first"}, {"2", "with \"quotes\", commas"}, {"3", ""}}
	for _, row := range rows {
		if err := store.AppendRow(ctx, "logs", row); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got, err := store.Rows(ctx, "logs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(rows) {
		t.Fatalf("expected %d rows, but got %d", len(rows), len(got))
	}
	for i := range rows {
		if got[i][0] != rows[i][0] || got[i][1] != rows[i][1] {
			t.Errorf("row %d: expected %v, but got %v", i, rows[i], got[i])
		}
	}
}

func TestSQLiteHeaderMissing(t *testing.T) {
	store := newSQLiteSheets(t)
	if _, err := store.Header(context.Background(), "nope"); !errors.Is(err, ErrSheetNotFound) {
		t.Errorf("expected ErrSheetNotFound, but got %v", err)
	}
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"investor_onboarding/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sheets (
    name       TEXT PRIMARY KEY,
    header     TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS sheet_rows (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    sheet_name  TEXT NOT NULL REFERENCES sheets (name),
    cells       TEXT NOT NULL,
    appended_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sheet_rows_sheet ON sheet_rows (sheet_name, id);
`

// OpenSQLite opens a single-connection database. path may be ":memory:".
func OpenSQLite(path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	// Одно соединение: :memory: живёт только в нём, а писатель у SQLite всё равно один
	db.SetMaxOpenConns(1)
	return db, nil
}

type sqliteSheetStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteSheetStore creates the schema if needed.
func NewSQLiteSheetStore(ctx context.Context, db *sql.DB, logger *zap.Logger) (SheetStore, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("failed to create sqlite schema: %w", err)
	}
	return &sqliteSheetStore{
		db:     db,
		logger: logger,
	}, nil
}

func (s *sqliteSheetStore) EnsureSheet(ctx context.Context, name string, header []string) (bool, error) {
	encoded, err := encodeCells(header)
	if err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sheets (name, header, created_at) VALUES (?1, ?2, ?3) ON CONFLICT (name) DO NOTHING`,
		name, encoded, time.Now().UTC())
	if err != nil {
		s.logger.Error("failed to ensure sheet", zap.String("sheet", name), zap.Error(err))
		return false, fmt.Errorf("failed to ensure sheet %s: %w", name, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to ensure sheet %s: %w", name, err)
	}
	if n > 0 {
		s.logger.Info("sheet created", zap.String("sheet", name), zap.Int("columns", len(header)))
	}
	return n > 0, nil
}

func (s *sqliteSheetStore) AppendRow(ctx context.Context, name string, cells []string) error {
	encoded, err := encodeCells(cells)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sheet_rows (sheet_name, cells, appended_at)
		SELECT ?1, ?2, ?3
		WHERE EXISTS (SELECT 1 FROM sheets WHERE name = ?1)`,
		name, encoded, time.Now().UTC())
	if err != nil {
		s.logger.Error("failed to append row", zap.String("sheet", name), zap.Error(err))
		return fmt.Errorf("failed to append row to %s: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to append row to %s: %w", name, ErrSheetNotFound)
	}
	return nil
}

func (s *sqliteSheetStore) Header(ctx context.Context, name string) ([]string, error) {
	var sheet types.Sheet
	err := s.db.QueryRowContext(ctx, `SELECT name, header FROM sheets WHERE name = ?1`, name).
		Scan(&sheet.Name, &sheet.Header)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to get header of %s: %w", name, ErrSheetNotFound)
		}
		return nil, fmt.Errorf("failed to get header of %s: %w", name, err)
	}
	return decodeCells(sheet.Header)
}

func (s *sqliteSheetStore) Rows(ctx context.Context, name string) ([][]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, sheet_name, cells FROM sheet_rows WHERE sheet_name = ?1 ORDER BY id`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows of %s: %w", name, err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var row types.SheetRow
		if err := rows.Scan(&row.ID, &row.SheetName, &row.Cells); err != nil {
			return nil, fmt.Errorf("failed to scan row of %s: %w", name, err)
		}
		cells, err := decodeCells(row.Cells)
		if err != nil {
			return nil, fmt.Errorf("row %d of %s: %w", row.ID, name, err)
		}
		out = append(out, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows of %s: %w", name, err)
	}
	return out, nil
}

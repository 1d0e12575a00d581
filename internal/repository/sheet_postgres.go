package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"investor_onboarding/types"
)

// pgxQuerier подмножество pgxpool.Pool, нужное хранилищу
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type postgresSheetStore struct {
	db     pgxQuerier
	logger *zap.Logger
}

func NewPostgresSheetStore(db *pgxpool.Pool, logger *zap.Logger) SheetStore {
	return newPostgresSheetStore(db, logger)
}

func newPostgresSheetStore(db pgxQuerier, logger *zap.Logger) *postgresSheetStore {
	return &postgresSheetStore{
		db:     db,
		logger: logger,
	}
}

func (s *postgresSheetStore) EnsureSheet(ctx context.Context, name string, header []string) (bool, error) {
	encoded, err := encodeCells(header)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO sheets (name, header, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
	`
	tag, err := s.db.Exec(ctx, query, name, encoded, time.Now().UTC())
	if err != nil {
		s.logger.Error("failed to ensure sheet", zap.String("sheet", name), zap.Error(err))
		return false, fmt.Errorf("failed to ensure sheet %s: %w", name, err)
	}

	created := tag.RowsAffected() > 0
	if created {
		s.logger.Info("sheet created", zap.String("sheet", name), zap.Int("columns", len(header)))
	}
	return created, nil
}

func (s *postgresSheetStore) AppendRow(ctx context.Context, name string, cells []string) error {
	encoded, err := encodeCells(cells)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sheet_rows (sheet_name, cells, appended_at)
		SELECT $1, $2, $3
		WHERE EXISTS (SELECT 1 FROM sheets WHERE name = $1)
	`
	tag, err := s.db.Exec(ctx, query, name, encoded, time.Now().UTC())
	if err != nil {
		s.logger.Error("failed to append row", zap.String("sheet", name), zap.Error(err))
		return fmt.Errorf("failed to append row to %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to append row to %s: %w", name, ErrSheetNotFound)
	}

	s.logger.Debug("row appended", zap.String("sheet", name))
	return nil
}

func (s *postgresSheetStore) Header(ctx context.Context, name string) ([]string, error) {
	var sheet types.Sheet
	err := s.db.QueryRow(ctx, `SELECT name, header, created_at FROM sheets WHERE name = $1`, name).
		Scan(&sheet.Name, &sheet.Header, &sheet.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to get header of %s: %w", name, ErrSheetNotFound)
		}
		s.logger.Error("failed to get sheet header", zap.String("sheet", name), zap.Error(err))
		return nil, fmt.Errorf("failed to get header of %s: %w", name, err)
	}
	return decodeCells(sheet.Header)
}

func (s *postgresSheetStore) Rows(ctx context.Context, name string) ([][]string, error) {
	query := `
		SELECT id, sheet_name, cells, appended_at
		FROM sheet_rows
		WHERE sheet_name = $1
		ORDER BY id
	`
	rows, err := s.db.Query(ctx, query, name)
	if err != nil {
		s.logger.Error("failed to get rows", zap.String("sheet", name), zap.Error(err))
		return nil, fmt.Errorf("failed to get rows of %s: %w", name, err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var row types.SheetRow
		if err := rows.Scan(&row.ID, &row.SheetName, &row.Cells, &row.AppendedAt); err != nil {
			s.logger.Error("failed to scan row", zap.String("sheet", name), zap.Error(err))
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

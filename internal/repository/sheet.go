package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrSheetNotFound возвращается при записи в несуществующий лист
var ErrSheetNotFound = errors.New("sheet not found")

// SheetStore is an append-only tabular store: named sheets, a header row, then data rows.
type SheetStore interface {
	// EnsureSheet creates the sheet with header unless it exists. created reports whether it was new.
	EnsureSheet(ctx context.Context, name string, header []string) (created bool, err error)
	AppendRow(ctx context.Context, name string, cells []string) error
	Header(ctx context.Context, name string) ([]string, error)
	Rows(ctx context.Context, name string) ([][]string, error)
}

func encodeCells(cells []string) (string, error) {
	if cells == nil {
		cells = []string{}
	}
	data, err := json.Marshal(cells)
	if err != nil {
		return "", fmt.Errorf("failed to encode cells: %w", err)
	}
	return string(data), nil
}

func decodeCells(data string) ([]string, error) {
	var cells []string
	if err := json.Unmarshal([]byte(data), &cells); err != nil {
		return nil, fmt.Errorf("failed to decode cells: %w", err)
	}
	return cells, nil
}

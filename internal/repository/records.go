package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"investor_onboarding/internal/model"
)

// RecordStore appends one row per accepted submission.
type RecordStore interface {
	Append(ctx context.Context, record *model.SubmissionRecord) error
}

type recordStore struct {
	sheets SheetStore
	sheet  string
	logger *zap.Logger
}

func NewRecordStore(sheets SheetStore, sheet string, logger *zap.Logger) RecordStore {
	return &recordStore{
		sheets: sheets,
		sheet:  sheet,
		logger: logger,
	}
}

// Append создаёт лист с заголовком при первом использовании и добавляет строку
func (r *recordStore) Append(ctx context.Context, record *model.SubmissionRecord) error {
	if _, err := r.sheets.EnsureSheet(ctx, r.sheet, model.RecordHeader); err != nil {
		return fmt.Errorf("failed to prepare records sheet: %w", err)
	}

	if err := r.sheets.AppendRow(ctx, r.sheet, record.Row()); err != nil {
		r.logger.Error("failed to append submission record", zap.String("submission_id", record.SubmissionID), zap.Error(err))
		return fmt.Errorf("failed to append submission record: %w", err)
	}

	r.logger.Info("submission record appended", zap.String("submission_id", record.SubmissionID), zap.String("sheet", r.sheet))
	return nil
}

package repository

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"investor_onboarding/internal/model"
)

// AuditLog records ingestion events. It never fails the caller.
type AuditLog interface {
	Record(ctx context.Context, entry model.AuditEntry)
}

type auditLog struct {
	sheets SheetStore
	sheet  string
	logger *zap.Logger

	mu    sync.Mutex
	ready bool
}

func NewAuditLog(sheets SheetStore, sheet string, logger *zap.Logger) AuditLog {
	return &auditLog{
		sheets: sheets,
		sheet:  sheet,
		logger: logger.Named("audit"),
	}
}

func (a *auditLog) Record(ctx context.Context, entry model.AuditEntry) {
	a.logger.Info(string(entry.Action),
		zap.String("submission_id", entry.SubmissionID),
		zap.String("locator", entry.DocumentLocator),
		zap.String("details", entry.Details))

	if !a.ensure(ctx) {
		return
	}

	// Ошибки журнала не должны прерывать обработку
	if err := a.sheets.AppendRow(ctx, a.sheet, entry.Row()); err != nil {
		a.logger.Warn("failed to append audit entry", zap.String("action", string(entry.Action)), zap.Error(err))
	}
}

func (a *auditLog) ensure(ctx context.Context) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ready {
		return true
	}
	if _, err := a.sheets.EnsureSheet(ctx, a.sheet, model.AuditHeader); err != nil {
		a.logger.Warn("failed to prepare audit sheet", zap.Error(err))
		return false
	}
	a.ready = true
	return true
}

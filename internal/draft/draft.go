// Package draft keeps staged document uploads across client restarts.
package draft

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"investor_onboarding/internal/model"
)

// Entry одна сохранённая загрузка
type Entry struct {
	DataURL  string    `json:"data_url"`
	FileName string    `json:"file_name"`
	SavedAt  time.Time `json:"saved_at"`
}

// Store is best-effort: failures are logged and never surfaced to the caller.
type Store interface {
	Save(slot model.DocumentKind, dataURL, fileName string)
	Load(slot model.DocumentKind) (Entry, bool)
	Clear(slot model.DocumentKind)
}

type fileStore struct {
	fs     afero.Fs
	dir    string
	logger *zap.Logger
}

// NewFileStore stores one JSON file per slot under dir.
func NewFileStore(fs afero.Fs, dir string, logger *zap.Logger) Store {
	return &fileStore{
		fs:     fs,
		dir:    dir,
		logger: logger,
	}
}

// Save перезаписывает слот безусловно
func (s *fileStore) Save(slot model.DocumentKind, dataURL, fileName string) {
	data, err := json.Marshal(Entry{DataURL: dataURL, FileName: fileName, SavedAt: time.Now().UTC()})
	if err != nil {
		s.logger.Warn("failed to marshal draft", zap.String("slot", string(slot)), zap.Error(err))
		return
	}
	if err := s.fs.MkdirAll(s.dir, 0o700); err != nil {
		s.logger.Warn("failed to create draft directory", zap.String("dir", s.dir), zap.Error(err))
		return
	}
	if err := afero.WriteFile(s.fs, s.path(slot), data, 0o600); err != nil {
		s.logger.Warn("failed to save draft", zap.String("slot", string(slot)), zap.Error(err))
		return
	}
	s.logger.Debug("draft saved", zap.String("slot", string(slot)), zap.String("file_name", fileName))
}

func (s *fileStore) Load(slot model.DocumentKind) (Entry, bool) {
	data, err := afero.ReadFile(s.fs, s.path(slot))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read draft", zap.String("slot", string(slot)), zap.Error(err))
		}
		return Entry{}, false
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		s.logger.Warn("discarding corrupt draft", zap.String("slot", string(slot)), zap.Error(err))
		return Entry{}, false
	}
	if e.DataURL == "" {
		return Entry{}, false
	}
	return e, true
}

func (s *fileStore) Clear(slot model.DocumentKind) {
	err := s.fs.Remove(s.path(slot))
	if err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to clear draft", zap.String("slot", string(slot)), zap.Error(err))
	}
}

func (s *fileStore) path(slot model.DocumentKind) string {
	return filepath.Join(s.dir, string(slot)+".json")
}

// ClearAll empties every document slot.
func ClearAll(s Store) {
	for _, kind := range model.DocumentOrder {
		s.Clear(kind)
	}
}

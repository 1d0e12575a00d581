package repository

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"investor_onboarding/internal/model"
)

var (
	ErrImageDecode   = errors.New("image decode failed")
	ErrImageTooSmall = errors.New("image below minimum size")
	ErrImageTooLarge = errors.New("image above maximum size")
	ErrDocumentWrite = errors.New("document write failed")
	ErrDocumentPath  = errors.New("invalid document path")
)

// DefaultMimeType используется, когда тип не указан и не распознан
const DefaultMimeType = "image/jpeg"

// DocumentStore persists submission images and hands out locators for them.
type DocumentStore interface {
	Store(ctx context.Context, kind model.DocumentKind, encoded, submissionID, submitterName string) (*model.StoredDocument, error)
	// Open returns a stored document for read access. The caller closes the file.
	Open(submissionID, fileName string) (afero.File, string, error)
}

type DocumentStoreConfig struct {
	Root          string
	Folder        string
	PublicBaseURL string
	MinBytes      int64
	MaxBytes      int64
}

type folderDocumentStore struct {
	fs     afero.Fs
	cfg    DocumentStoreConfig
	audit  AuditLog
	logger *zap.Logger
	now    func() time.Time
}

// NewFolderDocumentStore keeps documents under <root>/<folder>/submission_<id>/ on fs.
func NewFolderDocumentStore(fs afero.Fs, cfg DocumentStoreConfig, audit AuditLog, logger *zap.Logger) DocumentStore {
	return &folderDocumentStore{
		fs:     fs,
		cfg:    cfg,
		audit:  audit,
		logger: logger,
		now:    time.Now,
	}
}

// Store decodes encoded, writes it into the submission folder and audits the outcome.
// Failures are returned as StorageErrors and are never fatal for the submission.
func (s *folderDocumentStore) Store(ctx context.Context, kind model.DocumentKind, encoded, submissionID, submitterName string) (*model.StoredDocument, error) {
	doc, err := s.store(ctx, kind, encoded, submissionID, submitterName)
	if err != nil {
		s.logger.Warn("failed to store document",
			zap.String("submission_id", submissionID),
			zap.String("kind", string(kind)),
			zap.Error(err))
		s.audit.Record(ctx, model.AuditEntry{
			Timestamp:    s.now().UTC(),
			Action:       model.AuditDocumentFailed,
			SubmissionID: submissionID,
			Details:      fmt.Sprintf("kind=%s error=%v", kind, err),
		})
		return nil, err
	}

	s.logger.Info("document stored",
		zap.String("submission_id", submissionID),
		zap.String("kind", string(kind)),
		zap.String("locator", doc.Locator),
		zap.Int64("bytes", doc.ByteSize))
	s.audit.Record(ctx, model.AuditEntry{
		Timestamp:       doc.CreatedAt,
		Action:          model.AuditDocumentStored,
		SubmissionID:    submissionID,
		DocumentLocator: doc.URL,
		Details:         fmt.Sprintf("kind=%s mime=%s bytes=%d", kind, doc.MimeType, doc.ByteSize),
	})
	return doc, nil
}

func (s *folderDocumentStore) store(ctx context.Context, kind model.DocumentKind, encoded, submissionID, submitterName string) (*model.StoredDocument, error) {
	mimeType, body, err := splitDataURL(encoded)
	if err != nil {
		return nil, err
	}

	// Грубая оценка до декодирования, чтобы не выделять память под заведомо большой файл
	if int64(base64.StdEncoding.DecodedLen(len(body))) > s.cfg.MaxBytes+3 {
		return nil, fmt.Errorf("%w: about %d bytes, max %d", ErrImageTooLarge, base64.StdEncoding.DecodedLen(len(body)), s.cfg.MaxBytes)
	}

	raw, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	size := int64(len(raw))
	if size < s.cfg.MinBytes {
		return nil, fmt.Errorf("%w: %d bytes, min %d", ErrImageTooSmall, size, s.cfg.MinBytes)
	}
	if size > s.cfg.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrImageTooLarge, size, s.cfg.MaxBytes)
	}

	if mimeType == "" {
		mimeType = DefaultMimeType
		if detected := mimetype.Detect(raw); strings.HasPrefix(detected.String(), "image/") {
			mimeType = detected.String()
		}
	}

	created := s.now().UTC()
	dir := submissionDir(submissionID)
	fileName := fmt.Sprintf("%s_%s_%d%s", kind, slug(submitterName), created.Unix(), extension(mimeType))

	// Отменённый запрос не оставляет файлов на диске
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDocumentWrite, err)
	}
	if err := s.fs.MkdirAll(filepath.Join(s.base(), dir), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentWrite, err)
	}
	if err := afero.WriteFile(s.fs, filepath.Join(s.base(), dir, fileName), raw, 0o644); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentWrite, err)
	}

	locator := path.Join(dir, fileName)
	return &model.StoredDocument{
		SubmissionID: submissionID,
		Kind:         kind,
		MimeType:     mimeType,
		ByteSize:     size,
		Locator:      locator,
		URL:          strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/documents/" + locator,
		CreatedAt:    created,
	}, nil
}

// Open only serves plain file names inside an existing submission folder.
func (s *folderDocumentStore) Open(submissionID, fileName string) (afero.File, string, error) {
	if _, err := uuid.Parse(submissionID); err != nil {
		return nil, "", fmt.Errorf("%w: submission id %q", ErrDocumentPath, submissionID)
	}
	if fileName == "" || fileName != filepath.Base(fileName) || strings.HasPrefix(fileName, ".") {
		return nil, "", fmt.Errorf("%w: file %q", ErrDocumentPath, fileName)
	}

	f, err := s.fs.Open(filepath.Join(s.base(), submissionDir(submissionID), fileName))
	if err != nil {
		return nil, "", fmt.Errorf("failed to open document: %w", err)
	}

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		f.Close()
		return nil, "", fmt.Errorf("failed to detect document type: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, "", fmt.Errorf("failed to rewind document: %w", err)
	}
	return f, mt.String(), nil
}

func (s *folderDocumentStore) base() string {
	return filepath.Join(s.cfg.Root, s.cfg.Folder)
}

func submissionDir(submissionID string) string {
	return "submission_" + submissionID
}

// splitDataURL отделяет префикс data:<mime>;base64, если он есть
func splitDataURL(encoded string) (string, string, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return "", "", fmt.Errorf("%w: empty payload", ErrImageDecode)
	}
	if !strings.HasPrefix(encoded, "data:") {
		return "", stripWhitespace(encoded), nil
	}

	comma := strings.IndexByte(encoded, ',')
	if comma < 0 {
		return "", "", fmt.Errorf("%w: malformed data URL", ErrImageDecode)
	}
	meta := encoded[len("data:"):comma]
	if !strings.HasSuffix(meta, ";base64") {
		return "", "", fmt.Errorf("%w: data URL is not base64", ErrImageDecode)
	}
	mimeType := strings.TrimSuffix(meta, ";base64")
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(mimeType), stripWhitespace(encoded[comma+1:]), nil
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
}

func extension(mimeType string) string {
	if mt := mimetype.Lookup(mimeType); mt != nil {
		return mt.Extension()
	}
	return ".img"
}

var accentFolder = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
)

// slug приводит имя заявителя к безопасному фрагменту имени файла
func slug(name string) string {
	name = accentFolder.Replace(strings.ToLower(strings.TrimSpace(name)))

	var b strings.Builder
	dash := false
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}

	out := strings.Trim(b.String(), "-")
	if len(out) > 40 {
		out = strings.Trim(out[:40], "-")
	}
	if out == "" {
		return "investor"
	}
	return out
}

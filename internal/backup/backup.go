// Package backup exports every store into one JSON document and restores
// stores from such a document.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"

	"github.com/artpar/requst/internal/settings"
	"github.com/artpar/requst/internal/storage"
	"github.com/artpar/requst/internal/theme"
)

// Common errors
var (
	ErrCorruptBackup = errors.New("invalid or corrupted backup file")
	ErrNotJSONFile   = errors.New("backup file must be a .json file")
)

// FormatVersion is the document version written by Export.
const FormatVersion = 1

// Document is the backup file layout. Records are kept verbatim.
type Document struct {
	Version       int               `json:"version"`
	Timestamp     string            `json:"timestamp"`
	Theme         string            `json:"theme"`
	History       []json.RawMessage `json:"history"`
	Collections   []json.RawMessage `json:"collections"`
	GlobalHeaders []json.RawMessage `json:"globalHeaders"`
}

// Violation is one reason a document was rejected.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every violation of a rejected document. It matches
// ErrCorruptBackup with errors.Is.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return fmt.Sprintf("%s: %s", ErrCorruptBackup, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrCorruptBackup
}

// Validate checks that the version and the three record lists are present
// and that no list repeats a record id. Empty lists are valid.
func (d *Document) Validate() error {
	err := validation.ValidateStruct(d,
		validation.Field(&d.Version, validation.Required),
		validation.Field(&d.History, validation.NotNil, validation.By(uniqueIDs)),
		validation.Field(&d.Collections, validation.NotNil, validation.By(uniqueIDs)),
		validation.Field(&d.GlobalHeaders, validation.NotNil, validation.By(uniqueIDs)),
	)
	if err == nil {
		return nil
	}

	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrCorruptBackup, err)
	}
	violations := make([]Violation, 0, len(verrs))
	for field, ferr := range verrs {
		violations = append(violations, Violation{Field: field, Message: ferr.Error()})
	}
	sort.Slice(violations, func(i, j int) bool { return violations[i].Field < violations[j].Field })
	return &ValidationError{Violations: violations}
}

// uniqueIDs rejects a record list in which two records share an id. Records
// without an id are left to the store.
func uniqueIDs(value any) error {
	records, _ := value.([]json.RawMessage)
	seen := make(map[string]int, len(records))
	for i, raw := range records {
		var rec struct {
			ID json.RawMessage `json:"id"`
		}
		if json.Unmarshal(raw, &rec) != nil || len(rec.ID) == 0 || string(rec.ID) == "null" {
			continue
		}
		id := string(rec.ID)
		if first, ok := seen[id]; ok {
			return fmt.Errorf("duplicate id %s at index %d and %d", id, first, i)
		}
		seen[id] = i
	}
	return nil
}

// Parse decodes and validates a backup document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptBackup, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Marshal encodes doc with two-space indentation.
func Marshal(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	return data, nil
}

// FileName returns the export file name for the date of t.
func FileName(t time.Time) string {
	return fmt.Sprintf("requst_backup_%s.json", t.UTC().Format("2006-01-02"))
}

// Service exports and imports the whole store.
type Service struct {
	store  storage.Store
	fs     afero.Fs
	logger hclog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithFs sets the filesystem used for backup files.
func WithFs(fs afero.Fs) Option {
	return func(s *Service) {
		s.fs = fs
	}
}

// WithLogger sets the logger.
func WithLogger(logger hclog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the clock used for timestamps and file names.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a backup service over store, using the OS filesystem.
func NewService(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		fs:     afero.NewOsFs(),
		logger: hclog.NewNullLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Export reads every store in one read-only transaction.
func (s *Service) Export(ctx context.Context) (*Document, error) {
	doc := &Document{
		Version:   FormatVersion,
		Timestamp: s.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}

	err := s.store.RunTransaction(ctx, storage.All, storage.ReadOnly, func(tx storage.Tx) error {
		var err error
		if doc.History, err = nonNil(tx.GetAll(ctx, storage.History)); err != nil {
			return err
		}
		if doc.Collections, err = nonNil(tx.GetAll(ctx, storage.Collections)); err != nil {
			return err
		}
		if doc.GlobalHeaders, err = nonNil(tx.GetAll(ctx, storage.GlobalHeaders)); err != nil {
			return err
		}
		doc.Theme, err = settings.StoredTheme(ctx, tx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to export data: %w", err)
	}
	if doc.Theme == "" {
		doc.Theme = theme.Default
	}

	s.logger.Info("data exported",
		"history", len(doc.History),
		"collections", len(doc.Collections),
		"global_headers", len(doc.GlobalHeaders))
	return doc, nil
}

// Import replaces the contents of every store with doc. The document is
// validated first; an invalid document changes nothing. Records keep their
// original ids.
func (s *Service) Import(ctx context.Context, doc *Document) error {
	if err := doc.Validate(); err != nil {
		s.logger.Warn("backup rejected", "error", err)
		return err
	}

	err := s.store.RunTransaction(ctx, storage.All, storage.ReadWrite, func(tx storage.Tx) error {
		for _, name := range storage.All {
			if err := tx.Clear(ctx, name); err != nil {
				return err
			}
		}
		puts := []struct {
			name    storage.Name
			records []json.RawMessage
		}{
			{storage.History, doc.History},
			{storage.Collections, doc.Collections},
			{storage.GlobalHeaders, doc.GlobalHeaders},
		}
		for _, p := range puts {
			for i, record := range p.records {
				if _, err := tx.Put(ctx, p.name, record); err != nil {
					return fmt.Errorf("%w: %s[%d]: %w", ErrCorruptBackup, p.name, i, err)
				}
			}
		}
		name := doc.Theme
		if name == "" {
			name = theme.Default
		}
		return settings.PutTheme(ctx, tx, name)
	})
	if err != nil {
		return fmt.Errorf("failed to import data: %w", err)
	}

	s.logger.Info("data imported",
		"history", len(doc.History),
		"collections", len(doc.Collections),
		"global_headers", len(doc.GlobalHeaders))
	return nil
}

// ExportFile writes an export into dir and returns its path and size.
func (s *Service) ExportFile(ctx context.Context, dir string) (string, int64, error) {
	doc, err := s.Export(ctx)
	if err != nil {
		return "", 0, err
	}
	data, err := Marshal(doc)
	if err != nil {
		return "", 0, err
	}

	if dir == "" {
		dir = "."
	}
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create backup directory: %w", err)
	}
	path := filepath.Join(dir, FileName(s.now()))
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return "", 0, fmt.Errorf("failed to write backup: %w", err)
	}
	return path, int64(len(data)), nil
}

// ReadFile reads and validates the backup at path without importing it.
func (s *Service) ReadFile(path string) (*Document, error) {
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return nil, fmt.Errorf("%w: %s", ErrNotJSONFile, path)
	}
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}
	return Parse(data)
}

// ImportFile reads the backup at path and imports it.
func (s *Service) ImportFile(ctx context.Context, path string) (*Document, error) {
	doc, err := s.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := s.Import(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func nonNil(records []json.RawMessage, err error) ([]json.RawMessage, error) {
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	return records, nil
}

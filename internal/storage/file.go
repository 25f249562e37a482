package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
)

// FileStore keeps documents as indented JSON files in a data directory.
type FileStore struct {
	dir    string
	logger *zerolog.Logger
}

type lastRunRecord struct {
	LastRun string `json:"last_run"`
}

// NewFileStore creates the data directory if needed.
func NewFileStore(dir string, logger *zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	return &FileStore{dir: dir, logger: logger}, nil
}

// DocumentPath returns the file backing a named document.
func (s *FileStore) DocumentPath(name string) string {
	return filepath.Join(s.dir, name+documentExt)
}

func (s *FileStore) LoadDocument(_ context.Context, name string) (domain.Document, error) {
	var doc domain.Document

	path := s.DocumentPath(name)
	if err := readJSON(path, &doc); err != nil {
		return domain.Document{}, err
	}

	if doc.Messages == nil {
		doc.Messages = []domain.CandidateMessage{}
	}

	s.logger.Info().
		Str("path", path).
		Int("count", len(doc.Messages)).
		Str("timestamp", doc.Timestamp).
		Msg("Loaded messages")

	return doc, nil
}

func (s *FileStore) SaveDocument(_ context.Context, name string, doc domain.Document) error {
	path := s.DocumentPath(name)
	if err := writeJSON(path, doc); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}

	s.logger.Info().Str("path", path).Int("count", len(doc.Messages)).Msg("Saved messages")

	return nil
}

func (s *FileStore) LastRun(_ context.Context) (time.Time, error) {
	var rec lastRunRecord

	err := readJSON(filepath.Join(s.dir, lastRunFile), &rec)
	if errors.Is(err, apperrors.ErrArtifactNotFound) {
		return time.Time{}, nil
	}

	if err != nil {
		return time.Time{}, err
	}

	t, err := dateparse.ParseAny(rec.LastRun)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last run %q: %w", rec.LastRun, err)
	}

	return t, nil
}

func (s *FileStore) SaveLastRun(_ context.Context, t time.Time) error {
	return writeJSON(filepath.Join(s.dir, lastRunFile), lastRunRecord{LastRun: t.Format(time.RFC3339Nano)})
}

func (s *FileStore) ArchiveMessage(_ context.Context, m domain.CandidateMessage) error {
	dir := filepath.Join(s.dir, strconv.FormatInt(m.ChannelID, 10))
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("create channel dir: %w", err)
	}

	return writeJSON(filepath.Join(dir, fmt.Sprintf(archivePattern, m.ChannelID, m.ID)), m)
}

func (s *FileStore) Ping(_ context.Context) error {
	if _, err := os.Stat(s.dir); err != nil {
		return fmt.Errorf("stat data dir: %w", err)
	}

	return nil
}

func (s *FileStore) Close() {}

func readJSON(path string, target interface{}) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", apperrors.ErrArtifactNotFound, path)
	}

	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: decode %s: %w", apperrors.ErrArtifactCorrupt, path, err)
	}

	return nil
}

// writeJSON writes through a temp file so readers never see a partial document.
func writeJSON(path string, value interface{}) error {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(value); err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), filePermissions); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}

	return nil
}

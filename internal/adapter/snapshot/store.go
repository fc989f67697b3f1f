// Package snapshot persists the pipeline's three output files: the raw
// merged records, the fetch metadata, and the processed snapshot consumed
// by the presentation layer.
package snapshot

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/skolkartan/school-data-etl/internal/domain"
)

// Store reads and writes snapshot files under a single data directory.
// Writes go through a temp file and rename so a crashed run never leaves a
// half-written snapshot behind.
type Store struct {
	rawPath       string
	metadataPath  string
	processedPath string
	logger        *slog.Logger
}

// NewStore creates a Store over the given file locations.
func NewStore(rawPath, metadataPath, processedPath string, logger *slog.Logger) *Store {
	return &Store{
		rawPath:       rawPath,
		metadataPath:  metadataPath,
		processedPath: processedPath,
		logger:        logger,
	}
}

// WriteRawSnapshot persists the verbatim merged records for offline
// reprocessing without re-fetching.
func (s *Store) WriteRawSnapshot(schools []domain.RawSchool) error {
	if err := writeJSON(s.rawPath, schools); err != nil {
		return fmt.Errorf("write raw snapshot: %w", err)
	}
	s.logger.Info("raw snapshot written", "path", s.rawPath, "units", len(schools))
	return nil
}

// ReadRawSnapshot loads the raw records written by a previous fetch phase.
// A missing file surfaces as fs.ErrNotExist for the caller to translate.
func (s *Store) ReadRawSnapshot() ([]domain.RawSchool, error) {
	data, err := os.ReadFile(s.rawPath)
	if err != nil {
		return nil, fmt.Errorf("read raw snapshot: %w", err)
	}
	var schools []domain.RawSchool
	if err := json.Unmarshal(data, &schools); err != nil {
		return nil, fmt.Errorf("decode raw snapshot %s: %w", s.rawPath, err)
	}
	return schools, nil
}

// WriteFetchMetadata records when and how completely the fetch phase ran.
func (s *Store) WriteFetchMetadata(md domain.FetchMetadata) error {
	if err := writeJSON(s.metadataPath, md); err != nil {
		return fmt.Errorf("write fetch metadata: %w", err)
	}
	return nil
}

// ReadFetchMetadata loads the metadata of the last fetch run, or nil when
// no metadata file exists. Absence is not an error: the raw snapshot alone
// is enough to process, the fetch timestamp just degrades to now.
func (s *Store) ReadFetchMetadata() (*domain.FetchMetadata, error) {
	data, err := os.ReadFile(s.metadataPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read fetch metadata: %w", err)
	}
	var md domain.FetchMetadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("decode fetch metadata %s: %w", s.metadataPath, err)
	}
	return &md, nil
}

// WriteProcessedSnapshot publishes the final dataset.
func (s *Store) WriteProcessedSnapshot(snap domain.ProcessedSnapshot) error {
	if err := writeJSON(s.processedPath, snap); err != nil {
		return fmt.Errorf("write processed snapshot: %w", err)
	}
	s.logger.Info("processed snapshot written", "path", s.processedPath, "schools", snap.Metadata.TotalSchools)
	return nil
}

// ReadProcessedSnapshot loads a published dataset, used by cmd/validate.
func (s *Store) ReadProcessedSnapshot() (domain.ProcessedSnapshot, error) {
	var snap domain.ProcessedSnapshot
	data, err := os.ReadFile(s.processedPath)
	if err != nil {
		return snap, fmt.Errorf("read processed snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("decode processed snapshot %s: %w", s.processedPath, err)
	}
	return snap, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

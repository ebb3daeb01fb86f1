// Package storage owns the on-disk layout of the analysis store: one
// directory per ad, keyed by a content-derived id, holding the media file
// and a metadata.json record, plus batch summaries and exports at the root.
package storage

import (
	"crypto/md5"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"adindex/internal/models"
	"adindex/shared/scoring"
)

// adIDLength is the number of hex digits kept from the URL digest. The
// truncation risk is accepted; collision handling is out of scope.
const adIDLength = 12

const metadataFile = "metadata.json"

// AdID derives the stable content id for a source URL. Pure: the same URL
// always resolves to the same id, which is what makes re-submission
// idempotent.
func AdID(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])[:adIDLength]
}

// Store is the metadata store rooted at a single directory.
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) Root() string { return s.root }

// AdDir returns the ad's exclusive directory, creating it if needed.
func (s *Store) AdDir(id string) (string, error) {
	dir := filepath.Join(s.root, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create ad directory: %w", err)
	}
	return dir, nil
}

func (s *Store) metadataPath(id string) string {
	return filepath.Join(s.root, id, metadataFile)
}

// MediaPath returns where a media file with the given name lives for an ad.
func (s *Store) MediaPath(id, filename string) string {
	return filepath.Join(s.root, id, filename)
}

// Write persists a record, replacing any existing metadata for that id.
// The write is temp-file-then-rename so a crash never leaves truncated
// JSON behind.
func (s *Store) Write(record *models.AdRecord) error {
	if record.ID == "" {
		return fmt.Errorf("record id is required")
	}
	if _, err := s.AdDir(record.ID); err != nil {
		return err
	}
	return writeJSONAtomic(s.metadataPath(record.ID), record)
}

// Load reads and normalizes an ad's metadata. os.IsNotExist on the
// returned error distinguishes a missing record.
func (s *Store) Load(id string) (*models.AdRecord, error) {
	data, err := os.ReadFile(s.metadataPath(id))
	if err != nil {
		return nil, err
	}
	record, err := decodeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode metadata for %s: %w", id, err)
	}
	if record.ID == "" {
		record.ID = id
	}
	return record, nil
}

// decodeRecord normalizes both on-disk shapes into one AdRecord: the
// canonical nested form ({"status": ..., "analysis": {...}}) and the legacy
// flattened form with analysis fields at the top level. Readers never see
// the difference.
func decodeRecord(data []byte) (*models.AdRecord, error) {
	var record models.AdRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	if record.Analysis != nil {
		return &record, nil
	}

	var flat models.AnalysisResult
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, err
	}
	if len(flat.Dimensions) > 0 || flat.OverallScore > 0 {
		record.Analysis = &flat
		if record.Status == "" {
			record.Status = models.StatusAnalyzed
		}
	}
	return &record, nil
}

// UpdateAnalysis merges an analysis result into an existing record:
// read-merge-write, never overwrite, so download-time provenance fields
// survive.
func (s *Store) UpdateAnalysis(id string, analysis *models.AnalysisResult) error {
	record, err := s.Load(id)
	if err != nil {
		return fmt.Errorf("cannot update analysis for unknown ad %s: %w", id, err)
	}
	record.Status = models.StatusAnalyzed
	record.Error = ""
	record.Analysis = analysis
	return s.Write(record)
}

// MarkFailed records a terminal failure for the current attempt without
// touching any analysis from earlier successful attempts.
func (s *Store) MarkFailed(id, status, message string) error {
	record, err := s.Load(id)
	if err != nil {
		return fmt.Errorf("cannot mark unknown ad %s: %w", id, err)
	}
	record.Status = status
	record.Error = message
	return s.Write(record)
}

// List scans the store read-only and returns every record that has
// metadata, ordered by id.
func (s *Store) List() ([]*models.AdRecord, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	var records []*models.AdRecord
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		record, err := s.Load(entry.Name())
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// SaveBatchSummary writes a batch run's audit artifact, keyed by the
// batch's start time. Rewritten atomically after every row by the caller,
// so a crash mid-batch still leaves a parseable audit.
func (s *Store) SaveBatchSummary(summary *models.BatchSummary) (string, error) {
	name := fmt.Sprintf("batch_summary_%s.json", summary.StartedAt.Format("20060102_150405"))
	path := filepath.Join(s.root, name)
	if err := writeJSONAtomic(path, summary); err != nil {
		return "", err
	}
	return path, nil
}

// ExportCSV writes every analyzed record to a flat tabular file and
// returns its path.
func (s *Store) ExportCSV() (string, int, error) {
	records, err := s.List()
	if err != nil {
		return "", 0, err
	}

	path := filepath.Join(s.root, fmt.Sprintf("all_results_%s.csv", time.Now().Format("20060102_150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"id", "url", "brand", "campaign", "detected_language",
		"overall_score", "climate_score", "social_score", "cultural_score", "ethical_score",
		"grade", "stars", "analyzed_at",
	}
	if err := w.Write(header); err != nil {
		return "", 0, err
	}

	count := 0
	for _, record := range records {
		if record.Analysis == nil {
			continue
		}
		a := record.Analysis
		row := []string{
			record.ID,
			record.URL,
			record.Brand,
			record.Campaign,
			a.DetectedLanguage,
			formatScore(a.OverallScore),
			formatScore(a.ClimateScore),
			formatScore(a.SocialScore),
			formatScore(a.CulturalScore),
			formatScore(a.EthicalScore),
			scoring.Grade(a.OverallScore),
			strconv.Itoa(scoring.Stars(a.OverallScore)),
			a.AnalyzedAt,
		}
		if err := w.Write(row); err != nil {
			return "", 0, err
		}
		count++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", 0, err
	}
	return path, count, nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// writeJSONAtomic writes v as indented JSON via a temp file in the target
// directory followed by a rename.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MaxEntries caps the persisted log length.
const MaxEntries = 100

// Record is the compact per-analysis summary kept in the log.
type Record struct {
	ID               string    `json:"analysis_id"`
	Timestamp        time.Time `json:"timestamp"`
	Filename         string    `json:"filename"`
	ClassName        string    `json:"class_name"`
	Confidence       float64   `json:"confidence"`
	RiskLevel        string    `json:"risk_level"`
	Regions          []Region  `json:"regions"`
	ProcessingTimeMS int64     `json:"processing_time_ms"`
	ThumbnailURL     string    `json:"thumbnail_url"`
}

// Region is a suspicious image area flagged by an analysis. The current
// model reports none, so the sequence is usually empty but kept in the
// persisted shape.
type Region struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Score  float64 `json:"score"`
}

// Store keeps the analysis log in a single JSON array on disk, newest
// first, capped at MaxEntries. Writes are read-modify-write under a
// process-wide mutex and go through a temp file plus rename so the artifact
// can never be left half-written.
type Store struct {
	path string
	log  *zap.Logger
	mu   sync.Mutex
}

func NewStore(path string, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return &Store{path: path, log: log}, nil
}

// Record prepends rec and truncates to the most recent MaxEntries. The
// returned error is informational: callers log it and must not fail the
// analysis that produced the record.
func (s *Store) Record(rec Record) error {
	if rec.Regions == nil {
		rec.Regions = []Region{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.readAll()
	entries = append([]Record{rec}, entries...)
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace history: %w", err)
	}
	return nil
}

// List returns the current log, newest first. A missing or corrupt artifact
// reads as an empty log.
func (s *Store) List() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAll()
}

// readAll swallows corruption on purpose: a history that cannot be parsed
// starts over empty rather than poisoning every later request.
func (s *Store) readAll() []Record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("failed to read history, starting empty", zap.Error(err))
		}
		return []Record{}
	}

	var entries []Record
	if err := json.Unmarshal(data, &entries); err != nil {
		s.log.Warn("history artifact is corrupt, starting empty", zap.Error(err))
		return []Record{}
	}
	if entries == nil {
		entries = []Record{}
	}
	return entries
}

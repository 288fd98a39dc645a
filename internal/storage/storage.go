// Package storage provides thread-safe in-memory render history with
// file-based persistence. The batch runner uses it to skip events that
// already have a finished movie, and to keep a record of failures.
//
// Storage is designed for reliability with atomic file writes and graceful
// handling of persistence failures. Data is persisted to a JSON file and
// restored on application restart.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/seisview/gmv/internal/models"
)

// Storage provides thread-safe render history with file-based persistence
type Storage struct {
	records map[string]*models.RenderRecord // keyed by quake ID
	mu      sync.RWMutex

	// Configuration
	maxRecords      int
	filePath        string
	filePermissions os.FileMode
	dirPermissions  os.FileMode
}

// PersistenceFile represents the file structure for JSON persistence
type PersistenceFile struct {
	Version string                          `json:"version"`
	SavedAt time.Time                       `json:"saved_at"`
	Records map[string]*models.RenderRecord `json:"records"`
}

// New creates a new Storage instance persisting to filePath.
// If filePath is empty, uses OS-appropriate tmp directory
func New(maxRecords int, filePath string, filePermissions, dirPermissions os.FileMode) *Storage {
	if filePath == "" {
		filePath = filepath.Join(os.TempDir(), "gmv", "render-history.json")
	}

	return &Storage{
		records:         make(map[string]*models.RenderRecord),
		maxRecords:      maxRecords,
		filePath:        filePath,
		filePermissions: filePermissions,
		dirPermissions:  dirPermissions,
	}
}

// AddRecord stores the outcome of one render, replacing any previous
// record for the same quake.
func (s *Storage) AddRecord(record *models.RenderRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid render record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.QuakeID] = record
	return nil
}

// GetRecord retrieves the record for a quake ID
func (s *Storage) GetRecord(quakeID string) (*models.RenderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.records[quakeID]
	if !exists {
		return nil, fmt.Errorf("record not found: %s", quakeID)
	}
	return record, nil
}

// IsRendered reports whether a quake already has a successful render.
// Failed attempts do not count, so they are retried on the next run.
func (s *Storage) IsRendered(quakeID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.records[quakeID]
	return exists && record.Status == models.StatusRendered
}

// GetAllRecords returns all records sorted by render time ascending
func (s *Storage) GetAllRecords() []*models.RenderRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*models.RenderRecord, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].RenderedAt.Before(records[j].RenderedAt)
	})
	return records
}

// Save persists storage state to file
func (s *Storage) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, s.dirPermissions); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data := PersistenceFile{
		Version: "1.0",
		SavedAt: time.Now(),
		Records: s.records,
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	// Write to temporary file first (atomic write)
	tempPath := s.filePath + ".tmp"
	if err := os.WriteFile(tempPath, jsonData, s.filePermissions); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tempPath, s.filePath); err != nil {
		_ = os.Remove(tempPath) // Clean up temp file on rename failure
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}

// Load restores storage state from file
func (s *Storage) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Clean up any stale temp files from previous crashes
	tempPath := s.filePath + ".tmp"
	if _, err := os.Stat(tempPath); err == nil {
		_ = os.Remove(tempPath)
	}

	if _, err := os.Stat(s.filePath); os.IsNotExist(err) {
		// No file to load, start fresh
		return nil
	}

	jsonData, err := os.ReadFile(s.filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var data PersistenceFile
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	s.records = data.Records
	if s.records == nil {
		s.records = make(map[string]*models.RenderRecord)
	}

	return nil
}

// Rotate removes the oldest records when exceeding the max limit
func (s *Storage) Rotate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxRecords <= 0 || len(s.records) <= s.maxRecords {
		return nil
	}

	type recordWithTime struct {
		id         string
		renderedAt time.Time
	}

	var recordList []recordWithTime
	for id, record := range s.records {
		recordList = append(recordList, recordWithTime{id: id, renderedAt: record.RenderedAt})
	}

	// Sort by render time (oldest first)
	sort.Slice(recordList, func(i, j int) bool {
		return recordList[i].renderedAt.Before(recordList[j].renderedAt)
	})

	toRemove := len(s.records) - s.maxRecords
	for i := 0; i < toRemove; i++ {
		delete(s.records, recordList[i].id)
	}

	return nil
}

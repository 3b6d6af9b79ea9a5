package trigger

import (
	"fmt"
	"sort"
	"sync"

	"github.com/trogers1052/investment-simulator/internal/models"
)

// Store is the trigger history keyed by operation id
type Store struct {
	mu      sync.RWMutex
	records map[int]*models.TriggerRecord
}

// NewStore creates an empty trigger history
func NewStore() *Store {
	return &Store{records: make(map[int]*models.TriggerRecord)}
}

// InsertIfAbsent stores rec unless a record for the same operation already
// exists. The check and the insert happen under one lock.
func (s *Store) InsertIfAbsent(rec models.TriggerRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.OperationID]; exists {
		return false
	}
	stored := rec
	s.records[rec.OperationID] = &stored
	return true
}

// Exists reports whether operationID has been triggered
func (s *Store) Exists(operationID int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.records[operationID]
	return ok
}

// Get returns the record for operationID
func (s *Store) Get(operationID int) (models.TriggerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[operationID]
	if !ok {
		return models.TriggerRecord{}, fmt.Errorf("trigger for operation %d: %w", operationID, models.ErrNotFound)
	}
	return *rec, nil
}

// Acknowledge marks the record processed. Acknowledging twice is a no-op; the
// returned bool is true only when this call flipped the flag.
func (s *Store) Acknowledge(operationID int) (models.TriggerRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[operationID]
	if !ok {
		return models.TriggerRecord{}, false, fmt.Errorf("trigger for operation %d: %w", operationID, models.ErrNotFound)
	}
	if rec.IsProcessed {
		return *rec, false, nil
	}
	rec.IsProcessed = true
	return *rec, true, nil
}

// Snapshot returns a copy of every record keyed by operation id
func (s *Store) Snapshot() map[int]models.TriggerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int]models.TriggerRecord, len(s.records))
	for id, rec := range s.records {
		out[id] = *rec
	}
	return out
}

// Pending returns unacknowledged records ordered by operation id
func (s *Store) Pending() []models.TriggerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.TriggerRecord
	for _, rec := range s.records {
		if !rec.IsProcessed {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OperationID < out[j].OperationID })
	return out
}

// Len returns the number of records
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

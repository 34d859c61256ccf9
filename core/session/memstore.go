package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for development and tests. Records hold
// serialized blobs just like the durable backends, so deserialization
// behavior (including the tolerant corrupt-blob path) matches production.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memRecord
}

type memRecord struct {
	expiration time.Time
	blob       []byte
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]memRecord),
	}
}

// Get implements Store. A blob that fails to deserialize degrades to an empty
// map; the stored record is left as-is until the next write overwrites it.
func (s *MemoryStore) Get(_ context.Context, customerID string) (map[string]any, error) {
	s.mu.RLock()
	rec, ok := s.records[customerID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	var data map[string]any
	if err := json.Unmarshal(rec.blob, &data); err != nil {
		return map[string]any{}, nil
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

// Upsert implements Store.
func (s *MemoryStore) Upsert(_ context.Context, customerID string, expiration time.Time, data map[string]any) error {
	blob, err := json.Marshal(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.records[customerID] = memRecord{expiration: expiration, blob: blob}
	s.mu.Unlock()
	return nil
}

// Delete implements Store. Deleting a non-existent id succeeds silently.
func (s *MemoryStore) Delete(_ context.Context, customerID string) error {
	s.mu.Lock()
	delete(s.records, customerID)
	s.mu.Unlock()
	return nil
}

// DeleteExpired implements Store.
func (s *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, rec := range s.records {
		if rec.expiration.Before(now) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// DeleteAll implements Store.
func (s *MemoryStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	s.records = make(map[string]memRecord)
	s.mu.Unlock()
	return nil
}

// UpdateExpiration implements Store. Updating a non-existent id is a no-op.
func (s *MemoryStore) UpdateExpiration(_ context.Context, customerID string, expiration time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[customerID]
	if !ok {
		return nil
	}
	rec.expiration = expiration
	s.records[customerID] = rec
	return nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context, onlyExpired bool, now time.Time) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats Stats
	for id, rec := range s.records {
		if onlyExpired && !rec.expiration.Before(now) {
			continue
		}
		stats.Total++
		if IsGuestID(id) {
			stats.Guest++
		} else {
			stats.User++
		}
	}
	return stats, nil
}

// SeedRaw installs a raw serialized blob for the id, bypassing marshaling.
// Intended for tests exercising corrupt-blob handling.
func (s *MemoryStore) SeedRaw(customerID string, expiration time.Time, blob []byte) {
	s.mu.Lock()
	s.records[customerID] = memRecord{expiration: expiration, blob: blob}
	s.mu.Unlock()
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

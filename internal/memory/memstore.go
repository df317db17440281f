package memory

import (
	"context"
	"sync"
	"time"
)

// MemStore keeps conversation logs in process memory. It backs tests and
// ephemeral sessions where durability is not wanted.
type MemStore struct {
	mu         sync.RWMutex
	partitions map[string][]Turn
	keys       *keyLocks

	// appendDelay simulates slow storage while holding only the per-key
	// lock. Tests use it to verify distinct keys never block each other.
	appendDelay time.Duration
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		partitions: make(map[string][]Turn),
		keys:       newKeyLocks(),
	}
}

// Read returns all turns for the key in append order.
func (s *MemStore) Read(ctx context.Context, agentID, sessionID string) ([]Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.partitions[partitionKey(agentID, sessionID)]
	out := make([]Turn, len(stored))
	copy(out, stored)
	return out, nil
}

// Append adds one turn to the key's partition.
func (s *MemStore) Append(ctx context.Context, agentID, sessionID string, turn Turn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := partitionKey(agentID, sessionID)
	lock := s.keys.lock(key)
	lock.Lock()
	defer lock.Unlock()
	if s.appendDelay > 0 {
		time.Sleep(s.appendDelay)
	}
	s.mu.Lock()
	s.partitions[key] = append(s.partitions[key], turn)
	s.mu.Unlock()
	return nil
}

// Clear drops the partition for one key.
func (s *MemStore) Clear(ctx context.Context, agentID, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.partitions, partitionKey(agentID, sessionID))
	return nil
}

// ClearAll drops every partition.
func (s *MemStore) ClearAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partitions = make(map[string][]Turn)
	return nil
}

// internal/memory/memory.go
//
// Per-(agent, session) conversation logs. Each council member owns its own
// partition inside a session, plus one partition for the deliberator, so
// concurrent members never contend on the same key. The store contract still
// serializes same-key appends defensively.

package memory

import (
	"context"
	"sync"
	"time"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Turn is one entry in a conversation log. Turns are append-only; ordering
// within an (agent, session) partition is chronological and monotonic.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists conversation turns keyed by agent and session.
//
// Read returns every turn appended so far for the key, in append order.
// Appends to the same key serialize; appends to distinct keys must not block
// each other.
type Store interface {
	Read(ctx context.Context, agentID, sessionID string) ([]Turn, error)
	Append(ctx context.Context, agentID, sessionID string, turn Turn) error
}

// Maintainer is implemented by stores that support wiping history.
type Maintainer interface {
	Clear(ctx context.Context, agentID, sessionID string) error
	ClearAll(ctx context.Context) error
}

// keyLocks hands out one mutex per (agent, session) key. The registry lock is
// held only for the map lookup, never across an append.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*sync.Mutex)}
}

func (k *keyLocks) lock(key string) *sync.Mutex {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	return m
}

func partitionKey(agentID, sessionID string) string {
	return agentID + "\x00" + sessionID
}

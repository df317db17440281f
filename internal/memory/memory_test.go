package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "magi.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"mem":    NewMemStore(),
		"sqlite": sqlite,
	}
}

func TestAppendThenReadPreservesOrder(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const n = 10
			for i := 0; i < n; i++ {
				turn := Turn{Role: RoleUser, Content: fmt.Sprintf("turn-%d", i), CreatedAt: time.Now()}
				require.NoError(t, store.Append(ctx, "melchior", "s1", turn))
			}
			turns, err := store.Read(ctx, "melchior", "s1")
			require.NoError(t, err)
			require.Len(t, turns, n)
			for i, turn := range turns {
				require.Equal(t, fmt.Sprintf("turn-%d", i), turn.Content)
			}
		})
	}
}

func TestPartitionsAreIsolated(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Append(ctx, "melchior", "s1", Turn{Role: RoleUser, Content: "a"}))
			require.NoError(t, store.Append(ctx, "balthasar", "s1", Turn{Role: RoleUser, Content: "b"}))
			require.NoError(t, store.Append(ctx, "melchior", "s2", Turn{Role: RoleUser, Content: "c"}))

			turns, err := store.Read(ctx, "melchior", "s1")
			require.NoError(t, err)
			require.Len(t, turns, 1)
			require.Equal(t, "a", turns[0].Content)

			turns, err = store.Read(ctx, "balthasar", "s1")
			require.NoError(t, err)
			require.Len(t, turns, 1)
			require.Equal(t, "b", turns[0].Content)
		})
	}
}

func TestConcurrentAppendsSameKeySerialize(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const writers = 8
			const perWriter = 5
			var wg sync.WaitGroup
			wg.Add(writers)
			for w := 0; w < writers; w++ {
				go func() {
					defer wg.Done()
					for i := 0; i < perWriter; i++ {
						_ = store.Append(ctx, "casper", "s1", Turn{Role: RoleAgent, Content: "x"})
					}
				}()
			}
			wg.Wait()
			turns, err := store.Read(ctx, "casper", "s1")
			require.NoError(t, err)
			require.Len(t, turns, writers*perWriter)
		})
	}
}

// Two slow appends to distinct keys must overlap; two to the same key must
// not. The delay runs while holding only the per-key lock, so the elapsed
// wall time tells the two cases apart.
func TestDistinctKeysDoNotBlockEachOther(t *testing.T) {
	const delay = 60 * time.Millisecond
	ctx := context.Background()

	elapsed := func(agentA, agentB string) time.Duration {
		store := NewMemStore()
		store.appendDelay = delay
		start := time.Now()
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Append(ctx, agentA, "s1", Turn{Role: RoleUser, Content: "a"})
		}()
		go func() {
			defer wg.Done()
			_ = store.Append(ctx, agentB, "s1", Turn{Role: RoleUser, Content: "b"})
		}()
		wg.Wait()
		return time.Since(start)
	}

	if got := elapsed("melchior", "balthasar"); got >= 2*delay {
		t.Fatalf("distinct keys blocked each other: %v", got)
	}
	if got := elapsed("melchior", "melchior"); got < 2*delay {
		t.Fatalf("same key did not serialize: %v", got)
	}
}

func TestClearAndClearAll(t *testing.T) {
	for name, store := range stores(t) {
		maintainer, ok := store.(Maintainer)
		require.True(t, ok, "%s store must support maintenance", name)
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Append(ctx, "melchior", "s1", Turn{Role: RoleUser, Content: "a"}))
			require.NoError(t, store.Append(ctx, "casper", "s1", Turn{Role: RoleUser, Content: "b"}))

			require.NoError(t, maintainer.Clear(ctx, "melchior", "s1"))
			turns, err := store.Read(ctx, "melchior", "s1")
			require.NoError(t, err)
			require.Empty(t, turns)

			require.NoError(t, maintainer.ClearAll(ctx))
			turns, err = store.Read(ctx, "casper", "s1")
			require.NoError(t, err)
			require.Empty(t, turns)
		})
	}
}

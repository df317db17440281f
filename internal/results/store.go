// internal/results/store.go
//
// Auto-saving of deliberation results. Each completed query becomes one
// timestamped JSON file under the results directory so transcripts survive
// process restarts and can be inspected or replayed later.

package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kingrea/magi-council/internal/council"
)

const fileTimeLayout = "20060102_150405"

// Store persists council results as JSON files.
type Store struct {
	dir string
	now func() time.Time
}

// Option customizes a Store during construction.
type Option func(*Store)

// WithClock overrides the clock used for result filenames.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewStore builds a result store rooted at dir. The directory is created on
// first save, not here.
func NewStore(dir string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("results: directory is required")
	}
	store := &Store{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// Dir returns the results directory.
func (s *Store) Dir() string { return s.dir }

// Save writes the result to a new timestamped file and returns its path.
// Filenames carry a short random suffix so two results saved in the same
// second never collide.
func (s *Store) Save(result council.Result) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("results: create directory: %w", err)
	}
	name := fmt.Sprintf("result_%s_%s.json", s.now().UTC().Format(fileTimeLayout), uuid.NewString()[:8])
	path := filepath.Join(s.dir, name)

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("results: encode result: %w", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return "", fmt.Errorf("results: write %s: %w", path, err)
	}
	return path, nil
}

// Entry describes one saved result without loading its full body.
type Entry struct {
	Path        string
	Query       string
	SessionID   string
	FinalAnswer string
	AskedAt     time.Time
}

// List returns all saved results, newest first. Unreadable or malformed
// files are skipped rather than failing the whole listing.
func (s *Store) List() ([]Entry, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "result_*.json"))
	if err != nil {
		return nil, fmt.Errorf("results: list directory: %w", err)
	}
	entries := make([]Entry, 0, len(matches))
	for _, path := range matches {
		result, err := s.Load(path)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Path:        path,
			Query:       result.Query,
			SessionID:   result.SessionID,
			FinalAnswer: result.FinalAnswer,
			AskedAt:     result.AskedAt,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].AskedAt.Equal(entries[j].AskedAt) {
			return entries[i].Path > entries[j].Path
		}
		return entries[i].AskedAt.After(entries[j].AskedAt)
	})
	return entries, nil
}

// Load reads one saved result back.
func (s *Store) Load(path string) (council.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return council.Result{}, fmt.Errorf("results: read %s: %w", path, err)
	}
	var result council.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return council.Result{}, fmt.Errorf("results: parse %s: %w", path, err)
	}
	return result, nil
}

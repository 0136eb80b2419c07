// Package store keeps the calling agent's context small without losing
// data: results from categories known to be bulky are written to disk and
// summarised to a count and a path, everything else is passed through
// inline. A flat manifest file indexes everything persisted.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// Category classifies a query result and fixes its size handling. The
// policy is a table, not a measurement: a search result that happens to be
// huge is still returned inline. Callers depend on this being predictable.
type Category string

const (
	CategorySearch   Category = "search"
	CategoryMovies   Category = "movies"
	CategoryMovie    Category = "movie"
	CategoryReleases Category = "releases"
	CategoryQueue    Category = "queue"
	CategoryWanted   Category = "wanted"
	CategoryStatus   Category = "status"
	CategoryAdd      Category = "add"
)

var categories = map[Category]bool{
	CategorySearch:   false,
	CategoryMovies:   true,
	CategoryMovie:    false,
	CategoryReleases: true,
	CategoryQueue:    true,
	CategoryWanted:   true,
	CategoryStatus:   false,
	CategoryAdd:      false,
}

// Valid reports whether the category is known.
func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

// Large reports whether results in this category are persisted to disk
// rather than returned inline.
func (c Category) Large() bool {
	return categories[c]
}

var (
	// ErrNotFound indicates the requested filename has no manifest record.
	ErrNotFound = errors.New("no cached result with that name")

	// ErrIntegrity indicates the manifest references a file that is missing
	// on disk: the index and the store have diverged. It matches ErrNotFound
	// in errors.Is checks, but is distinguishable so operators can detect
	// the divergence.
	ErrIntegrity = fmt.Errorf("manifest references a missing file: %w", ErrNotFound)
)

// Result is what the caller gets back from Put: either the payload itself
// (small categories) or a count-and-path summary (large categories).
type Result struct {
	Inline   json.RawMessage `json:"inline,omitempty"`
	Count    int             `json:"count,omitempty"`
	Filepath string          `json:"filepath,omitempty"`
}

// Persisted reports whether the payload went to disk.
func (r Result) Persisted() bool {
	return r.Filepath != ""
}

// ClearResult reports the outcome of a Clear.
type ClearResult struct {
	Cleared int `json:"cleared"`
	Failed  int `json:"failed"`
}

// Store is the flat-file result store rooted at a single directory.
type Store struct {
	dir      string
	manifest manifest
	now      func() time.Time
}

// New opens a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create cache directory: %w", err)
	}

	return &Store{
		dir:      dir,
		manifest: newFileManifest(dir),
		now:      time.Now,
	}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Put applies the category policy to a result. Large categories are written
// verbatim to a new timestamped file and recorded in the manifest; the
// returned Result carries only the item count and the file path. Small
// categories come back inline, untouched, with nothing written.
//
// The file is written before the manifest record: a crash in between leaves
// an ignorable orphan file, never a record pointing at nothing.
func (s *Store) Put(category Category, payload json.RawMessage) (Result, error) {
	if !category.Valid() {
		return Result{}, fmt.Errorf("unknown result category %q", category)
	}

	if !category.Large() {
		return Result{Inline: payload}, nil
	}

	now := s.now()
	filename, err := s.uniqueFilename(category, now)
	if err != nil {
		return Result{}, err
	}

	path := filepath.Join(s.dir, filename)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return Result{}, fmt.Errorf("could not persist result: %w", err)
	}

	count := itemCount(payload)
	rec := Record{
		Category: category,
		Filename: filename,
		Count:    count,
		CachedAt: now,
	}
	if err := s.manifest.Append(rec); err != nil {
		// without a manifest record the entry does not exist; remove the
		// file so the failed write leaves no trace
		if rmErr := os.Remove(path); rmErr != nil {
			log.Warn().Err(rmErr).Str("file", path).Msg("could not remove unindexed result file")
		}
		return Result{}, err
	}

	return Result{Count: count, Filepath: path}, nil
}

// List returns all manifest records in stored order without touching the
// payload files.
func (s *Store) List() ([]Record, error) {
	return s.manifest.List()
}

// Get returns the full payload of one persisted file. A filename with no
// manifest record fails with ErrNotFound; a record whose file has gone
// missing fails with ErrIntegrity.
func (s *Store) Get(filename string) (json.RawMessage, error) {
	records, err := s.manifest.List()
	if err != nil {
		return nil, err
	}

	found := false
	for _, rec := range records {
		if rec.Filename == filename {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, filename)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, filename))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrIntegrity, filename)
	}
	if err != nil {
		return nil, fmt.Errorf("could not read cached result: %w", err)
	}

	return data, nil
}

// Clear deletes every file the manifest references and then resets the
// manifest. Per-file failures are logged and counted but never abort the
// clear: a clean slate wins over strict atomicity.
func (s *Store) Clear() (ClearResult, error) {
	records, err := s.manifest.List()
	if err != nil {
		return ClearResult{}, err
	}

	var result ClearResult
	for _, rec := range records {
		path := filepath.Join(s.dir, rec.Filename)
		err := os.Remove(path)
		switch {
		case err == nil:
			result.Cleared++
		case errors.Is(err, fs.ErrNotExist):
			// already gone: counts as cleared, but worth noting
			log.Warn().Str("file", rec.Filename).Msg("cached file already missing during clear")
			result.Cleared++
		default:
			log.Warn().Err(err).Str("file", rec.Filename).Msg("could not delete cached file")
			result.Failed++
		}
	}

	if err := s.manifest.RemoveAll(); err != nil {
		return result, err
	}

	return result, nil
}

// uniqueFilename builds {category}_{timestamp}.json, suffixing a counter if
// a same-second write already claimed the name. Entries are never
// overwritten.
func (s *Store) uniqueFilename(category Category, now time.Time) (string, error) {
	stamp := now.Format("20060102_150405")
	name := fmt.Sprintf("%s_%s.json", category, stamp)

	for n := 1; ; n++ {
		_, err := os.Stat(filepath.Join(s.dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			return name, nil
		}
		if err != nil {
			return "", fmt.Errorf("could not probe cache filename: %w", err)
		}
		if n > 1000 {
			return "", fmt.Errorf("could not find a free cache filename for %s", category)
		}
		name = fmt.Sprintf("%s_%s_%d.json", category, stamp, n)
	}
}

// itemCount reports the number of top-level items in a payload: the array
// length for list-shaped payloads, a "count" field for enveloped ones, zero
// otherwise.
func itemCount(payload json.RawMessage) int {
	var items []json.RawMessage
	if err := json.Unmarshal(payload, &items); err == nil {
		return len(items)
	}

	var envelope struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil {
		return envelope.Count
	}

	return 0
}

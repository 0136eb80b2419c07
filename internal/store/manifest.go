package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const manifestName = "manifest.json"

// Record is the manifest entry for one persisted result file.
type Record struct {
	Category Category  `json:"category"`
	Filename string    `json:"filename"`
	Count    int       `json:"count"`
	CachedAt time.Time `json:"cached_at"`
}

// manifest is the index of persisted result files. Implementations must keep
// the invariant that every record refers to a file that existed when the
// record was appended; the reverse (orphan files with no record) is
// tolerated.
type manifest interface {
	Append(rec Record) error
	List() ([]Record, error)
	RemoveAll() error
}

// fileManifest stores records as a single JSON document, rewritten in full
// on every mutation. Invocations are assumed sequential; there is no
// locking.
type fileManifest struct {
	path string
}

func newFileManifest(dir string) *fileManifest {
	return &fileManifest{path: filepath.Join(dir, manifestName)}
}

type manifestDocument struct {
	Entries []Record `json:"entries"`
}

func (m *fileManifest) load() (manifestDocument, error) {
	var doc manifestDocument

	data, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil // first use: empty manifest
	}
	if err != nil {
		return doc, fmt.Errorf("could not read manifest: %w", err)
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("could not parse manifest %s: %w", m.path, err)
	}

	return doc, nil
}

func (m *fileManifest) save(doc manifestDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode manifest: %w", err)
	}

	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("could not write manifest: %w", err)
	}

	return nil
}

func (m *fileManifest) Append(rec Record) error {
	doc, err := m.load()
	if err != nil {
		return err
	}

	doc.Entries = append(doc.Entries, rec)

	return m.save(doc)
}

func (m *fileManifest) List() ([]Record, error) {
	doc, err := m.load()
	if err != nil {
		return nil, err
	}
	return doc.Entries, nil
}

func (m *fileManifest) RemoveAll() error {
	return m.save(manifestDocument{Entries: []Record{}})
}

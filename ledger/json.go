package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// DefaultJSONFile is the ledger file name inside the save folder.
const DefaultJSONFile = ".ai_news_processed.json"

type jsonFile struct {
	ProcessedIDs []string `json:"processed_ids"`
}

// JSONLedger keeps processed IDs in a small JSON file. The whole file is
// rewritten on every Add.
type JSONLedger struct {
	path string

	mu  sync.Mutex
	ids *idSet
}

// OpenJSON loads the ledger at path. A missing or damaged file yields
// an empty ledger; the file is created on the first Add.
func OpenJSON(path string) (*JSONLedger, error) {
	if path == "" {
		return nil, errors.New("ledger: empty path")
	}
	l := &JSONLedger{path: path, ids: newIDSet()}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ledger %s: %w", path, err)
	}

	var f jsonFile
	if err := json.Unmarshal(data, &f); err != nil {
		return l, nil
	}
	l.ids = newIDSet(f.ProcessedIDs...)
	return l, nil
}

// Contains reports whether id was recorded.
func (l *JSONLedger) Contains(_ context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ids.contains(id), nil
}

// Add records id and persists the ledger.
func (l *JSONLedger) Add(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.ids.add(id) {
		return nil
	}
	return l.save()
}

// IDs returns the recorded IDs in insertion order.
func (l *JSONLedger) IDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ids.all()...)
}

// Close is a no-op; every Add is already on disk.
func (l *JSONLedger) Close() error { return nil }

// save writes through a temp file so a crash never truncates the ledger.
func (l *JSONLedger) save() error {
	data, err := json.MarshalIndent(jsonFile{ProcessedIDs: l.ids.all()}, "", " ")
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("creating ledger directory: %w", err)
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing ledger: %w", err)
	}
	return nil
}

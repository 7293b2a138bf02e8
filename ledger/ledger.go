// Package ledger records which newsletters were already archived so that
// repeated runs skip them. Two backends exist: the legacy JSON file and a
// SQLite database.
package ledger

import (
	"fmt"
	"path/filepath"

	"github.com/gaurav-prasanna/newsfold/core"
)

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Ledger is a core.ProcessedSet that owns a resource.
type Ledger interface {
	core.ProcessedSet
	Close() error
}

// Open opens the ledger for backend. An empty path selects the default
// file name inside saveDir.
func Open(backend, path, saveDir string) (Ledger, error) {
	switch backend {
	case "", BackendJSON:
		if path == "" {
			path = filepath.Join(saveDir, DefaultJSONFile)
		}
		return OpenJSON(path)
	case BackendSQLite:
		if path == "" {
			path = filepath.Join(saveDir, DefaultSQLiteFile)
		}
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown ledger backend %q (want %s or %s)", backend, BackendJSON, BackendSQLite)
	}
}

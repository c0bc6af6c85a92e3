package hostapi

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gantrydata/gantry/internal/core"

	// Pure-Go SQLite driver for database/sql (used by stateStore).
	_ "github.com/glebarez/sqlite"
)

// stateStore backs the guest state module with one SQLite database per
// host, opened lazily on first use.
type stateStore struct {
	dir string

	mu sync.Mutex
	db *sql.DB
}

// validateNamespace rejects namespaces that could escape the checkpoint
// table or bloat keys unreasonably.
func validateNamespace(ns string) error {
	if ns == "" {
		return fmt.Errorf("namespace must not be empty")
	}
	if len(ns) > 128 {
		return fmt.Errorf("namespace too long")
	}
	if strings.ContainsRune(ns, 0) {
		return fmt.Errorf("namespace contains null byte")
	}
	return nil
}

// open opens (or creates) the backing database at {dir}/state.sqlite3.
func (s *stateStore) open() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	dbPath := filepath.Join(s.dir, "state.sqlite3")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}
	// Enable WAL mode for better concurrent access.
	_, _ = db.Exec("PRAGMA journal_mode=WAL")
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS checkpoints (
		ns    TEXT NOT NULL,
		key   TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (ns, key)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating checkpoints table: %w", err)
	}

	s.db = db
	return db, nil
}

func (s *stateStore) get(ns, key string) (string, error) {
	if err := validateNamespace(ns); err != nil {
		return "", err
	}
	db, err := s.open()
	if err != nil {
		return "", err
	}
	var value string
	err = db.QueryRow("SELECT value FROM checkpoints WHERE ns = ? AND key = ?", ns, key).Scan(&value)
	if err == sql.ErrNoRows {
		return marshalStateResult(false, ""), nil
	}
	if err != nil {
		return "", fmt.Errorf("reading checkpoint %s/%s: %w", ns, key, err)
	}
	return marshalStateResult(true, value), nil
}

func (s *stateStore) put(ns, key, value string) error {
	if err := validateNamespace(ns); err != nil {
		return err
	}
	db, err := s.open()
	if err != nil {
		return err
	}
	_, err = db.Exec(`INSERT INTO checkpoints (ns, key, value) VALUES (?, ?, ?)
		ON CONFLICT (ns, key) DO UPDATE SET value = excluded.value`, ns, key, value)
	if err != nil {
		return fmt.Errorf("writing checkpoint %s/%s: %w", ns, key, err)
	}
	return nil
}

func (s *stateStore) delete(ns, key string) error {
	if err := validateNamespace(ns); err != nil {
		return err
	}
	db, err := s.open()
	if err != nil {
		return err
	}
	if _, err := db.Exec("DELETE FROM checkpoints WHERE ns = ? AND key = ?", ns, key); err != nil {
		return fmt.Errorf("deleting checkpoint %s/%s: %w", ns, key, err)
	}
	return nil
}

func (s *stateStore) list(ns, prefix string) (string, error) {
	if err := validateNamespace(ns); err != nil {
		return "", err
	}
	db, err := s.open()
	if err != nil {
		return "", err
	}
	rows, err := db.Query(
		"SELECT key FROM checkpoints WHERE ns = ? AND key LIKE ? ESCAPE '\\' ORDER BY key",
		ns, escapeLike(prefix)+"%")
	if err != nil {
		return "", fmt.Errorf("listing checkpoints %s/%s*: %w", ns, prefix, err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return "", fmt.Errorf("scanning checkpoint key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("listing checkpoints: %w", err)
	}

	data, err := json.Marshal(keys)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// escapeLike escapes LIKE metacharacters so a prefix is matched literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// marshalStateResult frames a get result so the guest can tell "missing"
// from "empty string" without sentinels.
func marshalStateResult(found bool, value string) string {
	data, _ := json.Marshal(struct {
		Found bool   `json:"found"`
		Value string `json:"value"`
	}{found, value})
	return string(data)
}

// stateJS exposes the guest state module: persistent string checkpoints
// grouped by namespace.
const stateJS = `
__registerBuiltin('state', function() {
	return {
		open: function(ns) {
			return {
				get: function(key) {
					var r = JSON.parse(__state_get(ns, key));
					return r.found ? r.value : null;
				},
				put: function(key, value) {
					__state_put(ns, key, String(value));
				},
				remove: function(key) {
					__state_delete(ns, key);
				},
				list: function(prefix) {
					return JSON.parse(__state_list(ns, prefix == null ? '' : String(prefix)));
				}
			};
		}
	};
});
`

// setupState registers the SQLite-backed checkpoint store behind
// require('state').
func setupState(rt core.ScriptRuntime, opts *Options) error {
	store := &stateStore{dir: opts.DataDir}

	if err := rt.RegisterFunc("__state_get", func(ns, key string) (string, error) {
		return store.get(ns, key)
	}); err != nil {
		return err
	}
	if err := rt.RegisterFunc("__state_put", func(ns, key, value string) (string, error) {
		return "", store.put(ns, key, value)
	}); err != nil {
		return err
	}
	if err := rt.RegisterFunc("__state_delete", func(ns, key string) (string, error) {
		return "", store.delete(ns, key)
	}); err != nil {
		return err
	}
	if err := rt.RegisterFunc("__state_list", func(ns, prefix string) (string, error) {
		return store.list(ns, prefix)
	}); err != nil {
		return err
	}

	return rt.Eval(stateJS)
}

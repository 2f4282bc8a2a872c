// Package sqlstore is a portals.Store persisted in SQLite.
//
// Every property is one row. The whole table is cached in memory when the
// store opens, so reads never touch the database and writes go through to it
// before returning.
package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/oriumgames/portals"
)

// Store is a SQLite backed portals.Store.
type Store struct {
	db *sql.DB

	mu    sync.RWMutex
	cache map[portals.EntityID]map[string]any
	once  sync.Once
}

// Compile-time check that Store implements portals.Store.
var _ portals.Store = (*Store)(nil)

// Open opens or creates the database at path and loads it.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, cache: make(map[portals.EntityID]map[string]any)}
	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS properties (
			owner TEXT NOT NULL,
			key TEXT NOT NULL,
			kind INTEGER NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (owner, key)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// load fills the cache from the database.
func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT owner,key,kind,value FROM properties`)
	if err != nil {
		return fmt.Errorf("load properties: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			owner, key, raw string
			kind            int
		)
		if err := rows.Scan(&owner, &key, &kind, &raw); err != nil {
			return fmt.Errorf("load properties: %w", err)
		}
		v, err := decode(portals.ValueKind(kind), raw)
		if err != nil {
			return fmt.Errorf("load %s/%s: %w", owner, key, err)
		}
		s.put(portals.EntityID(owner), key, v)
	}
	return rows.Err()
}

// put stores v in the cache. Caller must hold the lock or be loading.
func (s *Store) put(owner portals.EntityID, key string, v any) {
	bag, ok := s.cache[owner]
	if !ok {
		bag = make(map[string]any)
		s.cache[owner] = bag
	}
	bag[key] = v
}

func encode(value any) (portals.ValueKind, string, error) {
	v, ok := portals.NormalizeValue(value)
	if !ok {
		return 0, "", fmt.Errorf("%w (%T)", portals.ErrUnsupportedValue, value)
	}
	switch t := v.(type) {
	case string:
		return portals.KindString, t, nil
	case float64:
		return portals.KindNumber, strconv.FormatFloat(t, 'g', -1, 64), nil
	case bool:
		return portals.KindBool, strconv.FormatBool(t), nil
	}
	return 0, "", fmt.Errorf("%w (%T)", portals.ErrUnsupportedValue, value)
}

func decode(kind portals.ValueKind, raw string) (any, error) {
	switch kind {
	case portals.KindString:
		return raw, nil
	case portals.KindNumber:
		return strconv.ParseFloat(raw, 64)
	case portals.KindBool:
		return strconv.ParseBool(raw)
	}
	return nil, fmt.Errorf("unknown value kind %d", kind)
}

// Property implements portals.Store.
func (s *Store) Property(owner portals.EntityID, key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.cache[owner][key]
	return v, ok
}

// SetProperty implements portals.Store.
func (s *Store) SetProperty(owner portals.EntityID, key string, value any) error {
	kind, raw, err := encode(value)
	if err != nil {
		return fmt.Errorf("set %s on %s: %w", key, owner, err)
	}
	v, err := decode(kind, raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`INSERT INTO properties(owner,key,kind,value) VALUES(?,?,?,?)
		ON CONFLICT(owner,key) DO UPDATE SET kind=excluded.kind, value=excluded.value`,
		string(owner), key, int(kind), raw)
	if err != nil {
		return fmt.Errorf("set %s on %s: %w", key, owner, err)
	}
	s.put(owner, key, v)
	return nil
}

// DeleteProperty implements portals.Store.
func (s *Store) DeleteProperty(owner portals.EntityID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cache[owner][key]; !ok {
		return nil
	}
	if _, err := s.db.Exec(`DELETE FROM properties WHERE owner=? AND key=?`, string(owner), key); err != nil {
		return fmt.Errorf("delete %s on %s: %w", key, owner, err)
	}
	delete(s.cache[owner], key)
	if len(s.cache[owner]) == 0 {
		delete(s.cache, owner)
	}
	return nil
}

// PropertyKeys implements portals.Store.
func (s *Store) PropertyKeys(owner portals.EntityID) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.cache[owner]))
	for k := range s.cache[owner] {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// ClearProperties implements portals.Store.
func (s *Store) ClearProperties(owner portals.EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cache[owner]; !ok {
		return nil
	}
	if _, err := s.db.Exec(`DELETE FROM properties WHERE owner=?`, string(owner)); err != nil {
		return fmt.Errorf("clear %s: %w", owner, err)
	}
	delete(s.cache, owner)
	return nil
}

// Owners implements portals.Store.
func (s *Store) Owners() []portals.EntityID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owners := make([]portals.EntityID, 0, len(s.cache))
	for o := range s.cache {
		owners = append(owners, o)
	}
	slices.Sort(owners)
	return owners
}

// Close closes the database.
func (s *Store) Close() error {
	err := errors.New("sqlstore: already closed")
	s.once.Do(func() {
		err = s.db.Close()
	})
	return err
}

// Package sqlite implements storage.Store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/artpar/requst/internal/storage"
	"github.com/hashicorp/go-hclog"
	_ "modernc.org/sqlite"
)

// Store implements storage.Store using SQLite.
type Store struct {
	mu      sync.RWMutex
	db      *sql.DB
	closed  bool
	version int
	logger  hclog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for schema events.
func WithLogger(logger hclog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New opens (creating if needed) the database at dbPath.
func New(dbPath string, opts ...Option) (*Store, error) {
	return open(dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", opts)
}

// NewInMemory creates a new in-memory SQLite store (useful for testing).
func NewInMemory(opts ...Option) (*Store, error) {
	return open(":memory:", opts)
}

func open(dsn string, opts []Option) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", storage.ErrStorageUnavailable, err)
	}
	// One connection keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, logger: hclog.NewNullLogger()}
	for _, opt := range opts {
		opt(store)
	}

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to open database: %w", storage.ErrStorageUnavailable, err)
	}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to initialize database: %w", storage.ErrStorageUnavailable, err)
	}

	return store, nil
}

// Version returns the schema version of the opened database.
func (s *Store) Version() int {
	return s.version
}

// Get retrieves a single record by key.
func (s *Store) Get(ctx context.Context, name storage.Name, key storage.Key) (json.RawMessage, error) {
	var out json.RawMessage
	err := s.RunTransaction(ctx, []storage.Name{name}, storage.ReadOnly, func(tx storage.Tx) error {
		var err error
		out, err = tx.Get(ctx, name, key)
		return err
	})
	return out, err
}

// GetAll retrieves every record of a store.
func (s *Store) GetAll(ctx context.Context, name storage.Name) ([]json.RawMessage, error) {
	var out []json.RawMessage
	err := s.RunTransaction(ctx, []storage.Name{name}, storage.ReadOnly, func(tx storage.Tx) error {
		var err error
		out, err = tx.GetAll(ctx, name)
		return err
	})
	return out, err
}

// Add inserts a new record and returns its key.
func (s *Store) Add(ctx context.Context, name storage.Name, record any) (storage.Key, error) {
	var key storage.Key
	err := s.RunTransaction(ctx, []storage.Name{name}, storage.ReadWrite, func(tx storage.Tx) error {
		var err error
		key, err = tx.Add(ctx, name, record)
		return err
	})
	return key, err
}

// Put inserts or replaces a record by id.
func (s *Store) Put(ctx context.Context, name storage.Name, record any) (storage.Key, error) {
	var key storage.Key
	err := s.RunTransaction(ctx, []storage.Name{name}, storage.ReadWrite, func(tx storage.Tx) error {
		var err error
		key, err = tx.Put(ctx, name, record)
		return err
	})
	return key, err
}

// Delete removes a record by key.
func (s *Store) Delete(ctx context.Context, name storage.Name, key storage.Key) error {
	return s.RunTransaction(ctx, []storage.Name{name}, storage.ReadWrite, func(tx storage.Tx) error {
		return tx.Delete(ctx, name, key)
	})
}

// Clear removes every record of a store.
func (s *Store) Clear(ctx context.Context, name storage.Name) error {
	return s.RunTransaction(ctx, []storage.Name{name}, storage.ReadWrite, func(tx storage.Tx) error {
		return tx.Clear(ctx, name)
	})
}

// RunTransaction runs fn inside one SQLite transaction.
func (s *Store) RunTransaction(ctx context.Context, names []storage.Name, mode storage.Mode, fn func(tx storage.Tx) error) error {
	if mode == storage.ReadWrite {
		s.mu.Lock()
		defer s.mu.Unlock()
	} else {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}

	if s.closed {
		return storage.ErrStoreClosed
	}

	scope := make(map[storage.Name]bool, len(names))
	for _, name := range names {
		if !name.Valid() {
			return fmt.Errorf("%w: %s", storage.ErrUnknownStore, name)
		}
		scope[name] = true
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", storage.ErrStorageUnavailable, err)
	}

	t := &tx{tx: sqlTx, scope: scope, mode: mode}
	if err := fn(t); err != nil {
		sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %w", storage.ErrStorageUnavailable, err)
	}
	return nil
}

// Close closes the store and releases resources.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

// tx implements storage.Tx over a *sql.Tx.
type tx struct {
	tx    *sql.Tx
	scope map[storage.Name]bool
	mode  storage.Mode
}

func (t *tx) Mode() storage.Mode {
	return t.mode
}

func (t *tx) check(name storage.Name, write bool) error {
	if !name.Valid() {
		return fmt.Errorf("%w: %s", storage.ErrUnknownStore, name)
	}
	if !t.scope[name] {
		return fmt.Errorf("%w: %s", storage.ErrStoreNotInScope, name)
	}
	if write && t.mode != storage.ReadWrite {
		return storage.ErrReadOnly
	}
	return nil
}

func (t *tx) Get(ctx context.Context, name storage.Name, key storage.Key) (json.RawMessage, error) {
	if err := t.check(name, false); err != nil {
		return nil, err
	}
	arg, err := keyArg(name, key)
	if err != nil {
		return nil, err
	}

	var data string
	err = t.tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT data FROM %s WHERE id = ?", tables[name]), arg,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get record: %w", storage.ErrStorageUnavailable, err)
	}
	return json.RawMessage(data), nil
}

func (t *tx) GetAll(ctx context.Context, name storage.Name) ([]json.RawMessage, error) {
	if err := t.check(name, false); err != nil {
		return nil, err
	}

	rows, err := t.tx.QueryContext(ctx,
		fmt.Sprintf("SELECT data FROM %s ORDER BY seq, id", tables[name]))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list records: %w", storage.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var out []json.RawMessage
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		out = append(out, json.RawMessage(data))
	}
	return out, rows.Err()
}

func (t *tx) Add(ctx context.Context, name storage.Name, record any) (storage.Key, error) {
	if err := t.check(name, true); err != nil {
		return storage.Key{}, err
	}
	fields, err := toFields(record)
	if err != nil {
		return storage.Key{}, err
	}

	key, hasKey, err := recordKey(name, fields)
	if err != nil {
		return storage.Key{}, err
	}
	if !name.AutoIncrement() && !hasKey {
		return storage.Key{}, storage.ErrInvalidKey
	}
	if hasKey {
		// Explicit keys must be new, as with add in any object store.
		if _, err := t.Get(ctx, name, key); err == nil {
			return storage.Key{}, fmt.Errorf("%w: key %s already exists", storage.ErrInvalidKey, key)
		}
		return key, t.write(ctx, name, key, fields)
	}
	return t.insertAuto(ctx, name, fields)
}

func (t *tx) Put(ctx context.Context, name storage.Name, record any) (storage.Key, error) {
	if err := t.check(name, true); err != nil {
		return storage.Key{}, err
	}
	fields, err := toFields(record)
	if err != nil {
		return storage.Key{}, err
	}

	key, hasKey, err := recordKey(name, fields)
	if err != nil {
		return storage.Key{}, err
	}
	if !hasKey {
		if !name.AutoIncrement() {
			return storage.Key{}, storage.ErrInvalidKey
		}
		return t.insertAuto(ctx, name, fields)
	}
	return key, t.write(ctx, name, key, fields)
}

func (t *tx) Delete(ctx context.Context, name storage.Name, key storage.Key) error {
	if err := t.check(name, true); err != nil {
		return err
	}
	arg, err := keyArg(name, key)
	if err != nil {
		return err
	}

	_, err = t.tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", tables[name]), arg)
	if err != nil {
		return fmt.Errorf("%w: failed to delete record: %w", storage.ErrStorageUnavailable, err)
	}
	return nil
}

func (t *tx) Clear(ctx context.Context, name storage.Name) error {
	if err := t.check(name, true); err != nil {
		return err
	}

	_, err := t.tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", tables[name]))
	if err != nil {
		return fmt.Errorf("%w: failed to clear store: %w", storage.ErrStorageUnavailable, err)
	}
	return nil
}

// insertAuto inserts a record without an id and writes the assigned id back
// into the stored document.
func (t *tx) insertAuto(ctx context.Context, name storage.Name, fields map[string]json.RawMessage) (storage.Key, error) {
	table := tables[name]
	res, err := t.tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (seq, data) VALUES ((SELECT COALESCE(MAX(seq), 0) + 1 FROM %s), '{}')", table, table))
	if err != nil {
		return storage.Key{}, fmt.Errorf("%w: failed to insert record: %w", storage.ErrStorageUnavailable, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return storage.Key{}, fmt.Errorf("failed to read assigned id: %w", err)
	}

	key := storage.IntKey(id)
	return key, t.write(ctx, name, key, fields)
}

// write upserts the record under key. An existing row keeps its position.
func (t *tx) write(ctx context.Context, name storage.Name, key storage.Key, fields map[string]json.RawMessage) error {
	arg, err := keyArg(name, key)
	if err != nil {
		return err
	}
	idJSON, _ := json.Marshal(arg)
	fields["id"] = idJSON

	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	table := tables[name]
	_, err = t.tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, seq, data) VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM %s), ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data
	`, table, table), arg, string(data))
	if err != nil {
		return fmt.Errorf("%w: failed to write record: %w", storage.ErrStorageUnavailable, err)
	}
	return nil
}

func toFields(record any) (map[string]json.RawMessage, error) {
	var data []byte
	switch r := record.(type) {
	case json.RawMessage:
		data = r
	case []byte:
		data = r
	default:
		var err error
		data, err = json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("failed to encode record: %w", err)
		}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, storage.ErrInvalidRecord
	}
	return fields, nil
}

// recordKey extracts the "id" field. Zero and null ids count as absent.
func recordKey(name storage.Name, fields map[string]json.RawMessage) (storage.Key, bool, error) {
	raw, ok := fields["id"]
	if !ok || string(raw) == "null" {
		return storage.Key{}, false, nil
	}

	if name.AutoIncrement() {
		var id int64
		if err := json.Unmarshal(raw, &id); err != nil {
			return storage.Key{}, false, fmt.Errorf("%w: %s", storage.ErrInvalidKey, raw)
		}
		if id == 0 {
			return storage.Key{}, false, nil
		}
		if id < 0 {
			return storage.Key{}, false, fmt.Errorf("%w: %d", storage.ErrInvalidKey, id)
		}
		return storage.IntKey(id), true, nil
	}

	var key string
	if err := json.Unmarshal(raw, &key); err != nil || key == "" {
		return storage.Key{}, false, fmt.Errorf("%w: %s", storage.ErrInvalidKey, raw)
	}
	return storage.StringKey(key), true, nil
}

func keyArg(name storage.Name, key storage.Key) (any, error) {
	if name.AutoIncrement() {
		id, ok := key.Int()
		if !ok {
			return nil, fmt.Errorf("%w: %s", storage.ErrInvalidKey, key)
		}
		return id, nil
	}
	str, ok := key.Name()
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrInvalidKey, key)
	}
	return str, nil
}

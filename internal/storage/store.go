// Package storage defines the durable object stores that hold history,
// collections, global headers, UI settings and cookies.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Common errors
var (
	ErrNotFound           = errors.New("record not found")
	ErrStoreClosed        = errors.New("store is closed")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrUnknownStore       = errors.New("unknown object store")
	ErrInvalidKey         = errors.New("invalid record key")
	ErrInvalidRecord      = errors.New("record must be a JSON object")
	ErrReadOnly           = errors.New("write in read-only transaction")
	ErrStoreNotInScope    = errors.New("object store not in transaction scope")
)

// Name identifies an object store.
type Name string

const (
	History       Name = "history"
	Collections   Name = "collections"
	GlobalHeaders Name = "globalHeaders"
	UISettings    Name = "uiSettings"
	Cookies       Name = "cookies"
)

// All lists the user data stores in schema order. Backups cover exactly these.
var All = []Name{History, Collections, GlobalHeaders, UISettings}

// Stores lists every object store, including the cookie jar.
var Stores = []Name{History, Collections, GlobalHeaders, UISettings, Cookies}

// AutoIncrement reports whether the store assigns numeric ids itself.
// uiSettings and cookies use explicit string keys.
func (n Name) AutoIncrement() bool {
	return n != UISettings && n != Cookies
}

// Valid reports whether n names a known store.
func (n Name) Valid() bool {
	switch n {
	case History, Collections, GlobalHeaders, UISettings, Cookies:
		return true
	}
	return false
}

// Key identifies a record within a store: numeric for auto-increment stores,
// a string for keyed stores.
type Key struct {
	id   int64
	name string
}

// IntKey returns a numeric key.
func IntKey(id int64) Key {
	return Key{id: id}
}

// StringKey returns a string key.
func StringKey(name string) Key {
	return Key{name: name}
}

// Int returns the numeric form of the key.
func (k Key) Int() (int64, bool) {
	if k.name != "" {
		return 0, false
	}
	return k.id, k.id != 0
}

// Name returns the string form of a string key.
func (k Key) Name() (string, bool) {
	return k.name, k.name != ""
}

// String returns the textual form of the key.
func (k Key) String() string {
	if k.name != "" {
		return k.name
	}
	return strconv.FormatInt(k.id, 10)
}

// Mode is a transaction access mode.
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

// Records is the set of record operations available on a store or inside a
// transaction. Records are JSON objects whose "id" field is their key.
type Records interface {
	// Get returns the record stored under key, or ErrNotFound.
	Get(ctx context.Context, name Name, key Key) (json.RawMessage, error)

	// GetAll returns every record of the store in storage order.
	GetAll(ctx context.Context, name Name) ([]json.RawMessage, error)

	// Add inserts a new record and returns its assigned id.
	Add(ctx context.Context, name Name, record any) (Key, error)

	// Put inserts or replaces the record with the same id.
	Put(ctx context.Context, name Name, record any) (Key, error)

	// Delete removes the record stored under key. Missing keys are not an error.
	Delete(ctx context.Context, name Name, key Key) error

	// Clear removes every record of the store.
	Clear(ctx context.Context, name Name) error
}

// Tx is a transaction spanning a fixed set of stores.
type Tx interface {
	Records

	// Mode returns the access mode the transaction was opened with.
	Mode() Mode
}

// Store is the persistent store.
type Store interface {
	Records

	// RunTransaction runs fn inside one atomic transaction over names. If fn
	// returns an error nothing it wrote is kept. fn must use tx only.
	RunTransaction(ctx context.Context, names []Name, mode Mode, fn func(tx Tx) error) error

	// Version returns the schema version of the opened database.
	Version() int

	// Close closes the store and releases resources.
	Close() error
}

// Decode unmarshals raw records into values of type T.
func Decode[T any](records []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, raw := range records {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

// GetAllAs reads every record of a store and decodes it into T.
func GetAllAs[T any](ctx context.Context, r Records, name Name) ([]T, error) {
	raw, err := r.GetAll(ctx, name)
	if err != nil {
		return nil, err
	}
	return Decode[T](raw)
}

// GetAs reads one record and decodes it into T.
func GetAs[T any](ctx context.Context, r Records, name Name, key Key) (T, error) {
	var v T
	raw, err := r.Get(ctx, name, key)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("failed to decode record: %w", err)
	}
	return v, nil
}

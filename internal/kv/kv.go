// Package kv provides the host key/value storage the auth helpers persist
// their state in: a durable local store and a per-process session store.
package kv

import (
	"sync"

	"github.com/govright/platform-services/internal/index"
)

// Store is a string key/value store. Get reports whether key is present.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Storage pairs the durable and the session store, like a browser's
// localStorage and sessionStorage.
type Storage struct {
	Local   Store
	Session Store
}

// NewStorage returns storage whose local half is backed by the index
// database. A nil db keeps both halves in memory.
func NewStorage(db index.ValueStore) Storage {
	var local Store = NewMemory()
	if db != nil {
		local = NewSQLite(db)
	}
	return Storage{Local: local, Session: NewMemory()}
}

// Pick returns Local when remember is set, else Session.
func (s Storage) Pick(remember bool) Store {
	if remember {
		return s.Local
	}
	return s.Session
}

// Lookup returns key from Local, falling back to Session. Empty values
// count as absent.
func (s Storage) Lookup(key string) (string, error) {
	for _, st := range []Store{s.Local, s.Session} {
		if st == nil {
			continue
		}
		v, ok, err := st.Get(key)
		if err != nil {
			return "", err
		}
		if ok && v != "" {
			return v, nil
		}
	}
	return "", nil
}

// Remove deletes key from both stores.
func (s Storage) Remove(key string) error {
	for _, st := range []Store{s.Local, s.Session} {
		if st == nil {
			continue
		}
		if err := st.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// SQLite stores values in the index database's kv table.
type SQLite struct {
	db index.ValueStore
}

// NewSQLite wraps db.
func NewSQLite(db index.ValueStore) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) Get(key string) (string, bool, error) { return s.db.GetValue(key) }
func (s *SQLite) Set(key, value string) error          { return s.db.SetValue(key, value) }
func (s *SQLite) Delete(key string) error              { return s.db.DeleteValue(key) }

// Memory is a process-local store.
type Memory struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{m: make(map[string]string)}
}

func (s *Memory) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *Memory) Set(key, value string) error {
	s.mu.Lock()
	s.m[key] = value
	s.mu.Unlock()
	return nil
}

func (s *Memory) Delete(key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}

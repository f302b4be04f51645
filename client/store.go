package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/trezcool/academia/core/user"
)

// SessionRecord is the whole persisted client session. It is always
// replaced as a unit, never field by field, so concurrent readers (other
// tabs/processes) can never observe a torn write.
type SessionRecord struct {
	Token string    `json:"token"`
	Role  user.Role `json:"role"`
}

// Store persists the SessionRecord between application runs.
type Store interface {
	// Save atomically replaces the whole record.
	Save(rec SessionRecord) error

	// Load returns the record and whether one was present.
	Load() (SessionRecord, bool, error)

	// Clear atomically removes the record; clearing an empty store is a no-op.
	Clear() error
}

// FileStore keeps the SessionRecord in a JSON file, replaced via a
// temp-file rename so readers never see a partial write.
type FileStore struct {
	mu   sync.Mutex
	path string
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Save(rec SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err = os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) Load() (SessionRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return SessionRecord{}, false, nil
		}
		return SessionRecord{}, false, err
	}

	var rec SessionRecord
	if err = json.Unmarshal(data, &rec); err != nil || rec.Token == "" {
		// unreadable state is as good as no state
		_ = os.Remove(s.path)
		return SessionRecord{}, false, nil
	}
	return rec, true, nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu  sync.Mutex
	rec *SessionRecord
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore { return &MemStore{} }

func (s *MemStore) Save(rec SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = &rec
	return nil
}

func (s *MemStore) Load() (SessionRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return SessionRecord{}, false, nil
	}
	return *s.rec, true, nil
}

func (s *MemStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = nil
	return nil
}

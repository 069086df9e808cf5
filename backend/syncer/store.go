package syncer

import (
	"encoding/json"
	"errors"
	"os"
	"sync"

	"github.com/google/uuid"
)

const (
	keyClientID  = "syncwatch.clientId"
	keyReconnect = "syncwatch.reconnect"
)

// TransientStore carries small records across page navigation.
type TransientStore interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Delete(key string)
}

// ReconnectRecord is written right before navigating to another video.
type ReconnectRecord struct {
	InRoom    bool   `json:"inRoom"`
	Username  string `json:"username"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

// ClientID returns persisted client identity, generating one on first use.
func ClientID(store TransientStore) string {
	if b, ok := store.Get(keyClientID); ok && len(b) > 0 {
		return string(b)
	}
	id := "client_" + uuid.NewString()
	store.Set(keyClientID, []byte(id))
	return id
}

type MemoryStore struct {
	mx *sync.Mutex
	kv map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mx: &sync.Mutex{},
		kv: make(map[string][]byte),
	}
}

func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.mx.Lock()
	defer s.mx.Unlock()
	v, ok := s.kv[key]
	return v, ok
}

func (s *MemoryStore) Set(key string, value []byte) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.kv[key] = value
}

func (s *MemoryStore) Delete(key string) {
	s.mx.Lock()
	defer s.mx.Unlock()
	delete(s.kv, key)
}

// FileStore is a MemoryStore mirrored to a JSON file, so identity
// survives watcher restarts.
type FileStore struct {
	*MemoryStore
	path string
}

func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		MemoryStore: NewMemoryStore(),
		path:        path,
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, err
	}
	if err = json.Unmarshal(b, &s.kv); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) Set(key string, value []byte) {
	s.MemoryStore.Set(key, value)
	s.flush()
}

func (s *FileStore) Delete(key string) {
	s.MemoryStore.Delete(key)
	s.flush()
}

func (s *FileStore) flush() {
	s.mx.Lock()
	b, err := json.Marshal(s.kv)
	s.mx.Unlock()
	if err != nil {
		return
	}
	_ = os.WriteFile(s.path, b, 0o600)
}

// Package identity keeps the anonymous visitor id that ties chat history
// to one person across sessions. The id is created on first use and
// persisted locally; Get and Reset are the only ways to reach it.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// StorageKey is the key the visitor id is stored under.
const StorageKey = "nova_visitor_id"

// Store is durable key/value storage.
type Store interface {
	Load(key string) (string, bool, error)
	Save(key, value string) error
}

// NewID returns a fresh visitor id.
func NewID() string {
	return "visitor_" + uuid.NewString()
}

// Provider lazily loads or creates the visitor id.
type Provider struct {
	store  Store
	newID  func() string
	logger *slog.Logger

	mu sync.Mutex
	id string
}

// NewProvider creates a provider backed by store. A nil store keeps the id
// in memory only.
func NewProvider(store Store, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{store: store, newID: NewID, logger: logger}
}

// Get returns the visitor id, creating and saving one if none exists.
// Storage failures are logged and the id still works for this process.
func (p *Provider) Get() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.id != "" {
		return p.id
	}

	if p.store != nil {
		id, ok, err := p.store.Load(StorageKey)
		if err != nil {
			p.logger.Warn("failed to load visitor id", "error", err)
		}
		if ok && id != "" {
			p.id = id
			return p.id
		}
	}

	p.id = p.newID()
	p.save()
	return p.id
}

// Reset replaces the visitor id with a new one and returns it.
func (p *Provider) Reset() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.id = p.newID()
	p.save()
	return p.id
}

func (p *Provider) save() {
	if p.store == nil {
		return
	}
	if err := p.store.Save(StorageKey, p.id); err != nil {
		p.logger.Warn("failed to save visitor id", "error", err)
	}
}

var (
	defaultMu       sync.Mutex
	defaultProvider *Provider
)

// SetDefault installs the process-wide provider.
func SetDefault(p *Provider) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultProvider = p
}

func current() *Provider {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultProvider == nil {
		defaultProvider = NewProvider(NewFileStore(DefaultPath()), nil)
	}
	return defaultProvider
}

// Get returns the process-wide visitor id.
func Get() string { return current().Get() }

// Reset replaces the process-wide visitor id.
func Reset() string { return current().Reset() }

// DefaultPath is identity.json under $XDG_STATE_HOME/nova, falling back to
// ~/.local/state/nova.
func DefaultPath() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".nova", "identity.json")
		}
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, "nova", "identity.json")
}

// FileStore is a Store kept in a small JSON file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store at path. The file is created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Load returns the value for key.
func (s *FileStore) Load(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

// Save sets key to value, rewriting the file atomically.
func (s *FileStore) Save(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		// Unreadable contents are replaced rather than blocking new ids.
		values = map[string]string{}
	}
	values[key] = value

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create identity dir: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write identity: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename identity: %w", err)
	}
	return nil
}

func (s *FileStore) read() (map[string]string, error) {
	values := map[string]string{}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read identity: %w", err)
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse identity %s: %w", s.path, err)
	}
	return values, nil
}

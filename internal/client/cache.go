package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/equihome/launchpad/internal/domain"
)

// State is what a browser session keeps between visits.
type State struct {
	VisitorID string               `json:"visitorId,omitempty"`
	Grants    map[string]time.Time `json:"grants,omitempty"`
	Progress  domain.Progress      `json:"progress,omitempty"`
}

func grantKey(email string, resource domain.RequestType) string {
	return domain.NormalizeEmail(email) + "|" + string(resource)
}

// Cache persists State. It is a mirror of server data, never the source
// of truth.
type Cache interface {
	Load() (State, error)
	Save(State) error
}

// MemoryCache keeps State in process.
type MemoryCache struct {
	mu    sync.Mutex
	state State
}

// NewMemoryCache creates an empty memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (m *MemoryCache) Load() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneState(m.state), nil
}

func (m *MemoryCache) Save(s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = cloneState(s)
	return nil
}

// FileCache keeps State in a JSON file.
type FileCache struct {
	mu   sync.Mutex
	path string
}

// NewFileCache creates a cache backed by path. The file is created on the
// first Save.
func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

// Load returns an empty State when the file does not exist yet.
func (f *FileCache) Load() (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read cache: %w", err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("decode cache: %w", err)
	}
	return s, nil
}

// Save writes the file atomically.
func (f *FileCache) Save(s State) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return os.Rename(tmp, f.path)
}

func cloneState(s State) State {
	out := State{VisitorID: s.VisitorID}
	if s.Grants != nil {
		out.Grants = make(map[string]time.Time, len(s.Grants))
		for k, v := range s.Grants {
			out.Grants[k] = v
		}
	}
	if s.Progress != nil {
		out.Progress = make(domain.Progress, len(s.Progress))
		for k, v := range s.Progress {
			out.Progress[k] = v
		}
	}
	return out
}

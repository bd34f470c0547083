package settings

import (
	"errors"
	"sync"
)

var ErrNegativeTaxRate = errors.New("default tax rate cannot be negative")

// Settings are the terminal-local preferences.
type Settings struct {
	AutoWalkIn     bool    `json:"auto_walk_in"`
	DefaultTaxRate float64 `json:"default_tax_rate"`
}

// Default is used when nothing has been saved yet.
func Default() Settings {
	return Settings{AutoWalkIn: true, DefaultTaxRate: 0}
}

func (s Settings) Validate() error {
	if s.DefaultTaxRate < 0 {
		return ErrNegativeTaxRate
	}
	return nil
}

// Store persists settings. Load returns Default for missing values.
type Store interface {
	Load() (Settings, error)
	Save(s Settings) error
}

// MemoryStore keeps settings in process; used by tests and ephemeral terminals.
type MemoryStore struct {
	mu    sync.Mutex
	s     Settings
	saves int
}

func NewMemoryStore(initial Settings) *MemoryStore {
	return &MemoryStore{s: initial}
}

func (m *MemoryStore) Load() (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s, nil
}

func (m *MemoryStore) Save(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = s
	m.saves++
	return nil
}

// Saves counts successful Save calls.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

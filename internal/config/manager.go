package config

import (
	"fmt"
	"sync"
)

// Manager provides thread-safe access to the live configuration so the
// server can pick up a reloaded file without restarting.
type Manager struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewManager constructs a manager with an initial config.
func NewManager(initial *Config) *Manager {
	return &Manager{cfg: initial}
}

// Get returns the current config pointer under a shared lock.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Set swaps the current config pointer under an exclusive lock.
func (m *Manager) Set(cfg *Config) {
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
}

// Reload loads config from path and swaps it into place. The state_db and
// api.bind settings cannot change without a restart.
func (m *Manager) Reload(path string) error {
	if path == "" {
		return fmt.Errorf("config reload path is required")
	}

	loaded, err := Load(path)
	if err != nil {
		return err
	}
	if current := m.Get(); current != nil {
		if current.General.StateDB != loaded.General.StateDB {
			return fmt.Errorf("state_db changed (%q -> %q) and requires restart", current.General.StateDB, loaded.General.StateDB)
		}
		if current.API.Bind != loaded.API.Bind {
			return fmt.Errorf("api.bind changed (%q -> %q) and requires restart", current.API.Bind, loaded.API.Bind)
		}
	}

	m.Set(loaded)
	return nil
}

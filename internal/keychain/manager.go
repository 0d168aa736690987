// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain provides centralized, thread-safe keychain operations for chatdb.
// It stores the three secrets the CLI needs between runs: the completion endpoint
// API key, the PostgreSQL DSN and the MongoDB URI.
//
// On macOS the native `security` command is preferred; everywhere else the
// 99designs/keyring library picks a platform backend (Windows Credential Manager,
// Secret Service / KWallet on Linux, or pass).
package keychain

import (
	"errors"
	"runtime"
	"sync"

	"github.com/99designs/keyring"
)

// Global keychain manager instance
var (
	globalManager *Manager
	globalError   error
	mu            sync.Mutex
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("key not found")

// Manager provides centralized, thread-safe operations for the OS keychain.
type Manager struct {
	mu      sync.RWMutex
	ring    keyring.Keyring
	backend keychainBackend
}

// keychainBackend defines the interface for keychain operations.
type keychainBackend interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "chatdb"

// Keys used for storing secrets in the OS keychain.
const (
	KeyLLMAPIKey = "llm_api_key"
	KeySQLDSN    = "sql_dsn"
	KeyMongoURI  = "mongo_uri"
)

// AllKeys lists every key chatdb writes, used by ClearAll.
var AllKeys = []string{KeyLLMAPIKey, KeySQLDSN, KeyMongoURI}

// NewManager creates a new keychain manager with the OS keyring initialized.
func NewManager() (*Manager, error) {
	// Try native security backend first on macOS
	if runtime.GOOS == "darwin" {
		backend, err := newSecurityBackend()
		if err == nil {
			return &Manager{backend: backend}, nil
		}
		// Fall through to keyring library if security command fails
	}

	ring, err := openRing()
	if err != nil {
		return nil, err
	}

	return &Manager{
		ring: ring,
	}, nil
}

// NewWithRing wraps an already opened keyring, e.g. keyring.NewArrayKeyring in tests.
func NewWithRing(ring keyring.Keyring) *Manager {
	return &Manager{ring: ring}
}

// GetManager returns the global keychain manager instance.
// If not initialized, it will be created on first call.
// If initialization fails, it will retry on subsequent calls.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalManager != nil {
		return globalManager, nil
	}

	globalManager, globalError = NewManager()
	if globalError != nil {
		return nil, globalError
	}

	return globalManager, nil
}

// openRing opens the OS keyring using native platform backends only.
// There is deliberately no encrypted-file fallback.
func openRing() (keyring.Keyring, error) {
	var allowedBackends []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		// Pass requires 'pass' utility installed: brew install pass
		allowedBackends = []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.PassBackend,
		}
	case "windows":
		allowedBackends = []keyring.BackendType{keyring.WinCredBackend}
	case "linux", "freebsd", "openbsd":
		allowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.PassBackend,
		}
	default:
		return nil, errors.New("secure storage not supported on this OS; use CHATDB_LLM_API_KEY, CHATDB_SQL_DSN and CHATDB_MONGO_URI instead")
	}

	cfg := keyring.Config{
		ServiceName:             ServiceName,
		AllowedBackends:         allowedBackends,
		PassPrefix:              ServiceName,
		LibSecretCollectionName: ServiceName,
		KWalletAppID:            ServiceName,
		KWalletFolder:           ServiceName,
	}

	// Hint prefixes where supported to minimize namespace collisions
	if runtime.GOOS == "windows" {
		cfg.WinCredPrefix = ServiceName
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		if runtime.GOOS == "darwin" {
			return nil, errors.New("macOS Keychain unavailable. On macOS 26.0+, install 'pass': brew install pass gnupg && gpg --generate-key && pass init <gpg-key-id>")
		}
		return nil, err
	}

	return ring, nil
}

// Set stores value under key.
// This method is thread-safe.
func (m *Manager) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend != nil {
		return m.backend.Set(key, value)
	}
	return m.ring.Set(keyring.Item{Key: key, Data: []byte(value)})
}

// Get returns the value stored under key, or ErrNotFound.
// This method is thread-safe.
func (m *Manager) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var value string
	if m.backend != nil {
		v, err := m.backend.Get(key)
		if err != nil {
			return "", err
		}
		value = v
	} else {
		it, err := m.ring.Get(key)
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrNotFound
		}
		if err != nil {
			return "", err
		}
		value = string(it.Data)
	}

	if value == "" {
		return "", ErrNotFound
	}
	return value, nil
}

// Delete removes key. Missing keys are not an error.
// This method is thread-safe.
func (m *Manager) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend != nil {
		return m.backend.Delete(key)
	}
	if err := m.ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}
	return nil
}

// SaveAPIKey stores the completion endpoint API key.
func (m *Manager) SaveAPIKey(key string) error { return m.Set(KeyLLMAPIKey, key) }

// LoadAPIKey retrieves the completion endpoint API key.
func (m *Manager) LoadAPIKey() (string, error) { return m.Get(KeyLLMAPIKey) }

// SaveSQLDSN stores the PostgreSQL DSN.
func (m *Manager) SaveSQLDSN(dsn string) error { return m.Set(KeySQLDSN, dsn) }

// LoadSQLDSN retrieves the PostgreSQL DSN.
func (m *Manager) LoadSQLDSN() (string, error) { return m.Get(KeySQLDSN) }

// SaveMongoURI stores the MongoDB URI.
func (m *Manager) SaveMongoURI(uri string) error { return m.Set(KeyMongoURI, uri) }

// LoadMongoURI retrieves the MongoDB URI.
func (m *Manager) LoadMongoURI() (string, error) { return m.Get(KeyMongoURI) }

// ClearAll removes all secrets from the keychain.
// Errors for individual keys are ignored so one broken entry does not block logout.
func (m *Manager) ClearAll() error {
	for _, key := range AllKeys {
		_ = m.Delete(key)
	}
	return nil
}

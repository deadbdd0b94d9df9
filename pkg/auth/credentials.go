package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Sentinel errors for credential operations
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)

// Account holds one stored Pixiv session. The cookie is the opaque
// credential token the engine forwards on every authenticated request.
type Account struct {
	Name         string    `json:"name"`
	Cookie       string    `json:"cookie"`
	UserAgent    string    `json:"user_agent,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is the interface for storing and retrieving session
// cookies
type CredentialStore interface {
	// Store saves credentials for a given account
	Store(account *Account) error

	// Retrieve gets credentials for a specific account name
	Retrieve(name string) (*Account, error)

	// List returns all stored accounts
	List() ([]*Account, error)

	// Delete removes credentials for a specific account name
	Delete(name string) error

	// Exists checks if credentials exist for an account name
	Exists(name string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a new credential manager with appropriate storage
// backends: system keychain first, encrypted file as fallback,
// environment variables as a read-only last resort.
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	keyringStore, err := NewKeyringStore()
	if err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager over an explicit store chain
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves credentials using the first store that accepts them
func (m *Manager) Store(account *Account) error {
	if account.Name == "" {
		return fmt.Errorf("%w: account name is required", ErrInvalidCredentials)
	}
	if account.Cookie == "" {
		return fmt.Errorf("%w: cookie is required", ErrInvalidCredentials)
	}

	account.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(account); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	if lastErr != nil {
		return fmt.Errorf("all credential stores failed: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve gets credentials from the first store that has them
func (m *Manager) Retrieve(name string) (*Account, error) {
	for _, store := range m.stores {
		account, err := store.Retrieve(name)
		if err == nil && account != nil {
			return account, nil
		}
	}
	return nil, ErrCredentialsNotFound
}

// RetrieveDefault returns the sole stored account, if exactly one exists,
// or the account named "default"
func (m *Manager) RetrieveDefault() (*Account, error) {
	if account, err := m.Retrieve("default"); err == nil {
		return account, nil
	}

	accounts, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(accounts) == 1 {
		return accounts[0], nil
	}
	return nil, ErrCredentialsNotFound
}

// List returns the union of accounts across all stores
func (m *Manager) List() ([]*Account, error) {
	seen := make(map[string]bool)
	var accounts []*Account

	for _, store := range m.stores {
		stored, err := store.List()
		if err != nil {
			continue
		}
		for _, account := range stored {
			if seen[account.Name] {
				continue
			}
			seen[account.Name] = true
			accounts = append(accounts, account)
		}
	}

	return accounts, nil
}

// Delete removes credentials from every store that has them
func (m *Manager) Delete(name string) error {
	deleted := false
	for _, store := range m.stores {
		if err := store.Delete(name); err == nil {
			deleted = true
		}
	}
	if !deleted {
		return ErrCredentialsNotFound
	}
	return nil
}

// getConfigDir returns the platform config directory for pixcrawl
func getConfigDir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("APPDATA")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			base = filepath.Join(home, "AppData", "Roaming")
		}
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			base = filepath.Join(home, ".config")
		}
	}

	dir := filepath.Join(base, "pixcrawl")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

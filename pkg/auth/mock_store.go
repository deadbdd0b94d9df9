package auth

import "sync"

// MockStore is an in-memory CredentialStore for tests
type MockStore struct {
	accounts map[string]*Account
	failAll  bool
	mu       sync.RWMutex
}

// NewMockStore creates a new in-memory credential store
func NewMockStore() *MockStore {
	return &MockStore{
		accounts: make(map[string]*Account),
	}
}

// SetFailAll makes every operation return ErrStoreUnavailable
func (m *MockStore) SetFailAll(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAll = fail
}

// Store saves an account in memory
func (m *MockStore) Store(account *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAll {
		return ErrStoreUnavailable
	}
	if account == nil || account.Name == "" {
		return ErrInvalidCredentials
	}

	copy := *account
	m.accounts[account.Name] = &copy
	return nil
}

// Retrieve gets an account from memory
func (m *MockStore) Retrieve(name string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.failAll {
		return nil, ErrStoreUnavailable
	}

	account, ok := m.accounts[name]
	if !ok {
		return nil, ErrCredentialsNotFound
	}

	copy := *account
	return &copy, nil
}

// List returns all stored accounts
func (m *MockStore) List() ([]*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.failAll {
		return nil, ErrStoreUnavailable
	}

	var accounts []*Account
	for _, account := range m.accounts {
		copy := *account
		accounts = append(accounts, &copy)
	}
	return accounts, nil
}

// Delete removes an account from memory
func (m *MockStore) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAll {
		return ErrStoreUnavailable
	}
	if _, ok := m.accounts[name]; !ok {
		return ErrCredentialsNotFound
	}

	delete(m.accounts, name)
	return nil
}

// Exists checks if an account exists in memory
func (m *MockStore) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.accounts[name]
	return ok
}

package auth

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerStoreAndRetrieve(t *testing.T) {
	store := NewMockStore()
	m := NewManagerWithStores(store)

	account := &Account{Name: "main", Cookie: "PHPSESSID=abc"}
	require.NoError(t, m.Store(account))
	assert.False(t, account.LastModified.IsZero())

	got, err := m.Retrieve("main")
	require.NoError(t, err)
	assert.Equal(t, "PHPSESSID=abc", got.Cookie)
}

func TestManagerStoreValidation(t *testing.T) {
	m := NewManagerWithStores(NewMockStore())

	err := m.Store(&Account{Cookie: "PHPSESSID=abc"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = m.Store(&Account{Name: "main"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	failing := NewMockStore()
	failing.SetFailAll(true)
	working := NewMockStore()
	m := NewManagerWithStores(failing, working)

	require.NoError(t, m.Store(&Account{Name: "main", Cookie: "c"}))

	// the account landed in the second store
	assert.False(t, failing.Exists("main"))
	assert.True(t, working.Exists("main"))

	got, err := m.Retrieve("main")
	require.NoError(t, err)
	assert.Equal(t, "c", got.Cookie)
}

func TestManagerRetrieveNotFound(t *testing.T) {
	m := NewManagerWithStores(NewMockStore())

	_, err := m.Retrieve("missing")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestManagerRetrieveDefault(t *testing.T) {
	t.Run("named default wins", func(t *testing.T) {
		store := NewMockStore()
		m := NewManagerWithStores(store)
		require.NoError(t, m.Store(&Account{Name: "default", Cookie: "d"}))
		require.NoError(t, m.Store(&Account{Name: "alt", Cookie: "a"}))

		got, err := m.RetrieveDefault()
		require.NoError(t, err)
		assert.Equal(t, "default", got.Name)
	})

	t.Run("sole account", func(t *testing.T) {
		store := NewMockStore()
		m := NewManagerWithStores(store)
		require.NoError(t, m.Store(&Account{Name: "only", Cookie: "o"}))

		got, err := m.RetrieveDefault()
		require.NoError(t, err)
		assert.Equal(t, "only", got.Name)
	})

	t.Run("ambiguous", func(t *testing.T) {
		store := NewMockStore()
		m := NewManagerWithStores(store)
		require.NoError(t, m.Store(&Account{Name: "a", Cookie: "1"}))
		require.NoError(t, m.Store(&Account{Name: "b", Cookie: "2"}))

		_, err := m.RetrieveDefault()
		assert.ErrorIs(t, err, ErrCredentialsNotFound)
	})
}

func TestManagerListDeduplicates(t *testing.T) {
	first := NewMockStore()
	second := NewMockStore()
	m := NewManagerWithStores(first, second)

	require.NoError(t, first.Store(&Account{Name: "shared", Cookie: "1"}))
	require.NoError(t, second.Store(&Account{Name: "shared", Cookie: "2"}))
	require.NoError(t, second.Store(&Account{Name: "extra", Cookie: "3"}))

	accounts, err := m.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
}

func TestManagerDelete(t *testing.T) {
	first := NewMockStore()
	second := NewMockStore()
	m := NewManagerWithStores(first, second)

	require.NoError(t, first.Store(&Account{Name: "main", Cookie: "1"}))
	require.NoError(t, second.Store(&Account{Name: "main", Cookie: "1"}))

	require.NoError(t, m.Delete("main"))
	assert.False(t, first.Exists("main"))
	assert.False(t, second.Exists("main"))

	assert.ErrorIs(t, m.Delete("main"), ErrCredentialsNotFound)
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv("PIXCRAWL_COOKIE", "PHPSESSID=env")
	t.Setenv("PIXCRAWL_USER_AGENT", "EnvAgent/1.0")

	store := NewEnvironmentStore()

	account, err := store.Retrieve("default")
	require.NoError(t, err)
	assert.Equal(t, "PHPSESSID=env", account.Cookie)
	assert.Equal(t, "EnvAgent/1.0", account.UserAgent)

	// read only
	assert.Error(t, store.Store(&Account{Name: "x", Cookie: "y"}))
	assert.Error(t, store.Delete("default"))
}

func TestEncryptedStoreRoundTrip(t *testing.T) {
	t.Setenv("PIXCRAWL_PASSPHRASE", "test-passphrase")

	store, err := NewEncryptedFileStore(filepath.Join(t.TempDir(), "credentials.enc"))
	require.NoError(t, err)

	account := &Account{Name: "main", Cookie: "PHPSESSID=secret"}
	require.NoError(t, store.Store(account))

	got, err := store.Retrieve("main")
	require.NoError(t, err)
	assert.Equal(t, "PHPSESSID=secret", got.Cookie)

	accounts, err := store.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	require.NoError(t, store.Delete("main"))
	_, err = store.Retrieve("main")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

package repository

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"didauto/internal/oauth/domain"
	"didauto/pkg/config"
)

func newTestStore(t *testing.T) (SessionStore, string) {
	path := filepath.Join(t.TempDir(), "oauthSessions.json")
	return NewFileStore(path, Defaults{
		ClientID:     "default-id",
		ClientSecret: "default-secret",
		RedirectURI:  "http://localhost/oauth/callback",
	}), path
}

func TestFileStoreCreate(t *testing.T) {
	t.Run("generates a state and applies defaults", func(t *testing.T) {
		store, _ := newTestStore(t)

		session, err := store.Create(SessionConfig{Flow: "browser"})
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(session.State, "didauto_"))
		assert.Equal(t, "default-id", session.ClientID)
		assert.Equal(t, "default-secret", session.ClientSecret)
		assert.Equal(t, config.DefaultScope, session.Scope)
		assert.Equal(t, "browser", session.Flow)
	})

	t.Run("explicit credentials win over defaults", func(t *testing.T) {
		store, _ := newTestStore(t)

		session, err := store.Create(SessionConfig{
			ClientID:     "own-id",
			ClientSecret: "own-secret",
			Scope:        "tasks:read",
		})
		require.NoError(t, err)

		assert.Equal(t, "own-id", session.ClientID)
		assert.Equal(t, "tasks:read", session.Scope)
	})

	t.Run("fails without client credentials", func(t *testing.T) {
		store := NewFileStore(filepath.Join(t.TempDir(), "s.json"), Defaults{RedirectURI: "http://localhost/cb"})
		_, err := store.Create(SessionConfig{})
		assert.ErrorIs(t, err, domain.ErrMissingClientCredentials)
	})

	t.Run("fails without a redirect URI", func(t *testing.T) {
		store := NewFileStore(filepath.Join(t.TempDir(), "s.json"), Defaults{
			ClientID:     "id",
			ClientSecret: "secret",
		})
		_, err := store.Create(SessionConfig{})
		assert.ErrorIs(t, err, domain.ErrMissingRedirectURI)
	})
}

func TestFileStorePersistence(t *testing.T) {
	t.Run("sessions survive a restart", func(t *testing.T) {
		store, path := newTestStore(t)

		session, err := store.Create(SessionConfig{})
		require.NoError(t, err)

		session.Lock()
		session.ApplyToken("access", "refresh", "bearer", "tasks:read", 3600, time.Now())
		session.Unlock()
		require.NoError(t, store.Save(session))

		reborn := NewFileStore(path, Defaults{})
		require.NoError(t, reborn.Restore())

		restored, ok := reborn.Get(session.State)
		require.True(t, ok)
		assert.Equal(t, "access", restored.AccessToken)
		assert.Equal(t, "refresh", restored.RefreshToken)
		require.NotNil(t, restored.ExpiresAt)
	})

	t.Run("a missing snapshot restores to empty", func(t *testing.T) {
		store := NewFileStore(filepath.Join(t.TempDir(), "nope.json"), Defaults{})
		require.NoError(t, store.Restore())
		_, ok := store.MostRecent()
		assert.False(t, ok)
	})

	t.Run("a corrupt snapshot restores to empty instead of failing", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "s.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

		store := NewFileStore(path, Defaults{})
		require.NoError(t, store.Restore())
		_, ok := store.MostRecent()
		assert.False(t, ok)
	})

	t.Run("a refresh of one session racing a save of another is safe", func(t *testing.T) {
		store, path := newTestStore(t)

		refreshed, err := store.Create(SessionConfig{})
		require.NoError(t, err)
		saved, err := store.Create(SessionConfig{})
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				refreshed.Lock()
				refreshed.ApplyToken("access", "refresh", "bearer", "", 3600, time.Now())
				refreshed.Unlock()
				assert.NoError(t, store.Save(refreshed))
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				assert.NoError(t, store.Save(saved))
			}
		}()
		wg.Wait()

		reborn := NewFileStore(path, Defaults{})
		require.NoError(t, reborn.Restore())
		restored, ok := reborn.Get(refreshed.State)
		require.True(t, ok)
		assert.Equal(t, "access", restored.AccessToken)
	})

	t.Run("snapshot file is private", func(t *testing.T) {
		store, path := newTestStore(t)
		_, err := store.Create(SessionConfig{})
		require.NoError(t, err)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})
}

func TestMostRecent(t *testing.T) {
	store, _ := newTestStore(t)

	older, err := store.Create(SessionConfig{})
	require.NoError(t, err)
	newer, err := store.Create(SessionConfig{})
	require.NoError(t, err)
	_, err = store.Create(SessionConfig{}) // never authorized
	require.NoError(t, err)

	older.Lock()
	older.ApplyToken("a1", "r1", "bearer", "", 3600, time.Now().Add(-time.Hour))
	older.Unlock()
	newer.Lock()
	newer.ApplyToken("a2", "r2", "bearer", "", 3600, time.Now())
	newer.Unlock()

	got, ok := store.MostRecent()
	require.True(t, ok)
	assert.Equal(t, newer.State, got.State)
}

package reader

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	cache := NewMemoryCache()

	_, ok := cache.Get("user-1", "book-1")
	assert.False(t, ok)

	cache.Set("user-1", "book-1", "epubcfi(/6/4)")

	location, ok := cache.Get("user-1", "book-1")
	assert.True(t, ok)
	assert.Equal(t, "epubcfi(/6/4)", location)

	cache.Clear("user-1", "book-1")
	_, ok = cache.Get("user-1", "book-1")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

func TestMemoryCache_ScopedPerUser(t *testing.T) {
	cache := NewMemoryCache()

	cache.Set("user-1", "book-1", "5")
	cache.Set("user-2", "book-1", "12")

	location, ok := cache.Get("user-1", "book-1")
	require.True(t, ok)
	assert.Equal(t, "5", location)

	location, ok = cache.Get("user-2", "book-1")
	require.True(t, ok)
	assert.Equal(t, "12", location)

	// Clearing one user's entry leaves the other untouched
	cache.Clear("user-1", "book-1")
	_, ok = cache.Get("user-1", "book-1")
	assert.False(t, ok)
	_, ok = cache.Get("user-2", "book-1")
	assert.True(t, ok)
}

func TestBoltCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	cache, err := NewBoltCache(path)
	require.NoError(t, err)
	defer cache.Close()

	_, ok := cache.Get("user-1", "book-1")
	assert.False(t, ok)

	cache.Set("user-1", "book-1", "42")

	location, ok := cache.Get("user-1", "book-1")
	assert.True(t, ok)
	assert.Equal(t, "42", location)

	cache.Clear("user-1", "book-1")
	_, ok = cache.Get("user-1", "book-1")
	assert.False(t, ok)

	// Clearing a user that never wrote anything is a no-op
	cache.Clear("user-9", "book-9")
}

func TestBoltCache_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	cache, err := NewBoltCache(path)
	require.NoError(t, err)
	cache.Set("user-1", "book-1", "epubcfi(/6/8)")
	require.NoError(t, cache.Close())

	reopened, err := NewBoltCache(path)
	require.NoError(t, err)
	defer reopened.Close()

	location, ok := reopened.Get("user-1", "book-1")
	assert.True(t, ok)
	assert.Equal(t, "epubcfi(/6/8)", location)
}

package reader

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager(t *testing.T) (*Manager, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	m := NewManager(testSessionConfig(pdfLocator(), store, NewMemoryCache()))
	t.Cleanup(m.Shutdown)
	return m, store
}

func TestManagerOpenAndGet(t *testing.T) {
	m, _ := testManager(t)

	s, err := m.Open(context.Background(), testUserID, testBook())
	require.NoError(t, err)

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 1, m.Len())
}

func TestManagerGetUnknownID(t *testing.T) {
	m, _ := testManager(t)

	_, err := m.Get("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManagerReopenReplacesSession(t *testing.T) {
	m, _ := testManager(t)

	first, err := m.Open(context.Background(), testUserID, testBook())
	require.NoError(t, err)

	second, err := m.Open(context.Background(), testUserID, testBook())
	require.NoError(t, err)

	assert.Equal(t, 1, m.Len())
	assert.Equal(t, StateTerminated, first.State())
	assert.Equal(t, StateActive, second.State())

	_, err = m.Get(first.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManagerSeparateUsersSeparateSessions(t *testing.T) {
	m, _ := testManager(t)

	_, err := m.Open(context.Background(), "user-a", testBook())
	require.NoError(t, err)
	_, err = m.Open(context.Background(), "user-b", testBook())
	require.NoError(t, err)

	assert.Equal(t, 2, m.Len())
}

func TestManagerClose(t *testing.T) {
	m, _ := testManager(t)

	s, err := m.Open(context.Background(), testUserID, testBook())
	require.NoError(t, err)

	require.NoError(t, m.Close(s.ID))
	assert.Equal(t, StateTerminated, s.State())
	assert.Zero(t, m.Len())

	assert.ErrorIs(t, m.Close(s.ID), ErrSessionNotFound)
}

func TestManagerReapIdle(t *testing.T) {
	m, _ := testManager(t)

	idle, err := m.Open(context.Background(), "user-a", testBook())
	require.NoError(t, err)

	busy, err := m.Open(context.Background(), "user-b", testBook())
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, busy.Navigate("2"))

	reaped := m.ReapIdle(40 * time.Millisecond)
	assert.Equal(t, 1, reaped)
	assert.Equal(t, StateTerminated, idle.State())
	assert.Equal(t, StateActive, busy.State())
	assert.Equal(t, 1, m.Len())
}

func TestManagerShutdownClosesEverything(t *testing.T) {
	m, _ := testManager(t)

	a, err := m.Open(context.Background(), "user-a", testBook())
	require.NoError(t, err)
	b, err := m.Open(context.Background(), "user-b", testBook())
	require.NoError(t, err)

	m.Shutdown()
	assert.Zero(t, m.Len())
	assert.Equal(t, StateTerminated, a.State())
	assert.Equal(t, StateTerminated, b.State())
}

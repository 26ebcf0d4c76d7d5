package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	s, err := store.Create(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", s.ID)
	assert.False(t, s.UpdatedAt.Before(s.CreatedAt))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	s, err := store.Create(ctx, "s1")
	require.NoError(t, err)

	past := time.Now().Add(-time.Second)
	s.ExpiresAt = &past
	require.NoError(t, store.Save(ctx, s))

	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := store.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSessionSaveLastWriterWins(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s, err := store.Create(ctx, "s1")
	require.NoError(t, err)

	s.Data["k"] = "v1"
	require.NoError(t, store.Save(ctx, s))
	s.Data["k"] = "v2"
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Data["k"])
}

func TestListActiveExcludesExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Create(ctx, "live")
	require.NoError(t, err)

	expired, err := store.Create(ctx, "expired")
	require.NoError(t, err)
	past := time.Now().Add(-time.Minute)
	expired.ExpiresAt = &past
	require.NoError(t, store.Save(ctx, expired))

	active, err := store.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "live", active[0].ID)
}

func TestConcurrentCreateGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	const n = 50
	done := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			id := "s"
			sid := id + string(rune('a'+i%26))
			_, err := store.Create(ctx, sid)
			assert.NoError(t, err)
			_, err = store.Get(ctx, sid)
			assert.NoError(t, err)
		}(i)
	}
	for i := 0; i < n; i++ {
		<-done
	}
}

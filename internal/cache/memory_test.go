package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	m := NewMemory()
	m.nowFunc = func() time.Time { return now }

	key := Key{Kind: KindEmployees, RegistryID: "1"}
	require.NoError(t, m.Set(ctx, Entry{Key: key, Value: i64(7), FetchedAt: now, ExpiresAt: now.Add(time.Minute)}))

	e, ok, err := m.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(7), *e.Value)

	now = now.Add(time.Minute)
	_, ok, _ = m.Get(ctx, key)
	assert.False(t, ok, "entry expires exactly at ExpiresAt")

	st, _ := m.Stats(ctx)
	assert.Equal(t, Stats{Total: 1, Expired: 1}, st)

	n, _ := m.Prune(ctx)
	assert.Equal(t, int64(1), n)
	st, _ = m.Stats(ctx)
	assert.Equal(t, Stats{}, st)
}

func TestTiered_PromotesBackHits(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	front, back := NewMemory(), NewMemory()
	tiered := NewTiered(front, back)

	key := Key{Kind: KindRevenue, RegistryID: "9"}
	require.NoError(t, back.Set(ctx, Entry{Key: key, Value: i64(100), FetchedAt: now, ExpiresAt: now.Add(time.Hour)}))

	_, ok, _ := front.Get(ctx, key)
	require.False(t, ok)

	e, ok, err := tiered.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(100), *e.Value)

	_, ok, _ = front.Get(ctx, key)
	assert.True(t, ok, "back hit should be copied to front")
}

func TestTiered_SetWritesBoth(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	front, back := NewMemory(), NewMemory()
	tiered := NewTiered(front, back)

	key := Key{Kind: KindEmployees, RegistryID: "2"}
	require.NoError(t, tiered.Set(ctx, Entry{Key: key, FetchedAt: now, ExpiresAt: now.Add(time.Hour)}))

	_, ok, _ := front.Get(ctx, key)
	assert.True(t, ok)
	_, ok, _ = back.Get(ctx, key)
	assert.True(t, ok)

	st, err := tiered.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Live)
}

func TestEntry_Expired(t *testing.T) {
	now := time.Now()
	assert.False(t, Entry{ExpiresAt: now.Add(time.Second)}.Expired(now))
	assert.True(t, Entry{ExpiresAt: now}.Expired(now))
	assert.True(t, Entry{}.Expired(now))
}

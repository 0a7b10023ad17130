package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/branchledger/internal/usecase"
)

func TestIdempotencyStoreReturnsStoredResponse(t *testing.T) {
	client, mr := newTestRedisClient(t)
	store := NewIdempotencyStore(client)

	require.NoError(t, mr.Set(store.prefix+"teller-1:POST:/api/v1/transactions:k1", `{"status":201}`))

	exists, resp, err := store.CheckAndSet(context.Background(), "teller-1:POST:/api/v1/transactions:k1", nil, time.Minute)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.JSONEq(t, `{"status":201}`, string(resp))
}

func TestIdempotencyStoreMarksFirstClaimInFlight(t *testing.T) {
	client, mr := newTestRedisClient(t)
	store := NewIdempotencyStore(client)
	ctx := context.Background()

	exists, resp, err := store.CheckAndSet(ctx, "void-7", nil, time.Minute)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Nil(t, resp)

	exists, resp, err = store.CheckAndSet(ctx, "void-7", nil, time.Minute)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, usecase.IdempotencyInFlight, string(resp))

	assert.Equal(t, time.Minute, mr.TTL(store.prefix+"void-7"))
}

func TestIdempotencyStoreUpdateThenRelease(t *testing.T) {
	client, mr := newTestRedisClient(t)
	store := NewIdempotencyStore(client)
	ctx := context.Background()

	_, _, err := store.CheckAndSet(ctx, "amend-3", nil, time.Minute)
	require.NoError(t, err)

	require.NoError(t, store.Update(ctx, "amend-3", []byte(`{"status":200}`), time.Hour))
	assert.Equal(t, time.Hour, mr.TTL(store.prefix+"amend-3"))

	_, resp, err := store.CheckAndSet(ctx, "amend-3", nil, time.Minute)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":200}`, string(resp))

	require.NoError(t, store.Release(ctx, "amend-3"))

	exists, _, err := store.CheckAndSet(ctx, "amend-3", nil, time.Minute)
	require.NoError(t, err)
	assert.False(t, exists, "released key is claimable again")
}

func TestIdempotencyStoreClaimExpires(t *testing.T) {
	client, mr := newTestRedisClient(t)
	store := NewIdempotencyStore(client)
	ctx := context.Background()

	_, _, err := store.CheckAndSet(ctx, "settle-9", nil, time.Minute)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	exists, _, err := store.CheckAndSet(ctx, "settle-9", nil, time.Minute)
	require.NoError(t, err)
	assert.False(t, exists)
}

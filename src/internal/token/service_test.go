package token

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"smart-time-tracker/src/internal/cache"
	"smart-time-tracker/src/internal/models"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ttl = 30 * 24 * time.Hour

func newService(t *testing.T) (Service, *quartz.Mock, *cache.MemoryStore[Entry]) {
	t.Helper()
	clock := quartz.NewMock(t)
	store := cache.NewMemoryStore[Entry](clock)
	return NewTokenService(store, ttl, clock), clock, store
}

func TestIssue_ReturnsHexTokenBoundToUser(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, "user-aaaaaa")
	require.NoError(t, err)

	assert.Len(t, issued.Token, 64)
	_, err = hex.DecodeString(issued.Token)
	assert.NoError(t, err)
	assert.Equal(t, "user-aaaaaa", issued.UserID)
	assert.Equal(t, int64(2592000), issued.ExpiresInSeconds())

	userID, err := svc.Validate(ctx, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-aaaaaa", userID)
}

func TestIssue_TokensAreDistinct(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	a, err := svc.Issue(ctx, "user-aaaaaa")
	require.NoError(t, err)
	b, err := svc.Issue(ctx, "user-aaaaaa")
	require.NoError(t, err)
	assert.NotEqual(t, a.Token, b.Token)
}

func TestIssue_RejectsEmptyUser(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Issue(context.Background(), "")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestValidate_UnknownToken(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Validate(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, models.ErrNotFoundOrExpired)

	_, err = svc.Validate(context.Background(), "   ")
	assert.ErrorIs(t, err, models.ErrNotFoundOrExpired)
}

func TestValidate_ExpiresAfterTTL(t *testing.T) {
	svc, clock, _ := newService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, "user-aaaaaa")
	require.NoError(t, err)

	clock.Advance(ttl - time.Second)
	_, err = svc.Validate(ctx, issued.Token)
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = svc.Validate(ctx, issued.Token)
	assert.ErrorIs(t, err, models.ErrNotFoundOrExpired)
}

func TestValidate_ChecksCreatedAtEvenIfStoreKeepsEntry(t *testing.T) {
	svc, clock, store := newService(t)
	ctx := context.Background()

	// An entry whose store expiry is later than its token lifetime.
	created := clock.Now()
	require.NoError(t, store.Put(ctx, "stale", Entry{UserID: "user-aaaaaa", CreatedAt: created}, created.Add(2*ttl)))

	clock.Advance(ttl)
	_, err := svc.Validate(ctx, "stale")
	assert.ErrorIs(t, err, models.ErrNotFoundOrExpired)
}

func TestCount_SweepsFirst(t *testing.T) {
	svc, clock, store := newService(t)
	ctx := context.Background()

	_, err := svc.Issue(ctx, "user-aaaaaa")
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "old", Entry{UserID: "user-bbbbbb", CreatedAt: clock.Now()}, clock.Now().Add(time.Second)))

	clock.Advance(2 * time.Second)

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

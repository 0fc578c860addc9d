package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myagiz61/backend/internal/domain"
)

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("should acquire a free key", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.Regexp().ExpectSetNX("checkout:u-1:pro", `.+`, 10*time.Second).SetVal(true)

		token, err := NewLocker(Wrap(db)).TryLock(ctx, "checkout:u-1:pro", 10*time.Second)

		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("should report a busy key after every attempt", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		for i := 0; i < lockAttempts; i++ {
			mock.Regexp().ExpectSetNX("checkout:u-1:pro", `.+`, time.Second).SetVal(false)
		}

		_, err := NewLocker(Wrap(db)).TryLock(ctx, "checkout:u-1:pro", time.Second)

		assert.ErrorIs(t, err, domain.ErrLockBusy)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("should surface redis errors", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		for i := 0; i < lockAttempts; i++ {
			mock.Regexp().ExpectSetNX("k", `.+`, time.Second).SetErr(errors.New("conn refused"))
		}

		_, err := NewLocker(Wrap(db)).TryLock(ctx, "k", time.Second)

		assert.EqualError(t, err, "conn refused")
	})

	t.Run("should stop retrying when the context ends", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.Regexp().ExpectSetNX("k", `.+`, time.Second).SetVal(false)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := NewLocker(Wrap(db)).TryLock(cctx, "k", time.Second)

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	key := UserRouteKey("u-1", "checkout")

	mock.ExpectIncr(key).SetVal(1)
	mock.ExpectExpire(key, time.Minute).SetVal(true)
	mock.ExpectIncr(key).SetVal(2)
	mock.ExpectIncr(key).SetVal(3)

	rl := NewRateLimiter(Wrap(db))
	for i, want := range []bool{true, true, false} {
		ok, err := rl.Allow(ctx, key, 2, time.Minute)
		require.NoError(t, err)
		assert.Equalf(t, want, ok, "call %d", i+1)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiterDropsKeyWhenExpireFails(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	key := UserRouteKey("ip:10.0.0.1", "iap_verify")

	mock.ExpectIncr(key).SetVal(1)
	mock.ExpectExpire(key, time.Minute).SetErr(errors.New("timeout"))
	mock.ExpectDel(key).SetVal(1)

	ok, err := NewRateLimiter(Wrap(db)).Allow(ctx, key, 5, time.Minute)
	assert.Error(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRouteKey(t *testing.T) {
	assert.Equal(t, "billing:ratelimit:checkout:u-1", UserRouteKey("u-1", "checkout"))
}

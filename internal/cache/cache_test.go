package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accelerator-admin/internal/common/logger"
)

type payload struct {
	Total int `json:"total"`
}

func newMiniredisCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return New(client, "test:", logger.NewTestLogger(t)), mr
}

func TestRemember_MissThenHit(t *testing.T) {
	c, mr := newMiniredisCache(t)
	ctx := context.Background()

	calls := 0
	load := func(context.Context) (payload, error) {
		calls++
		return payload{Total: 12}, nil
	}

	first, err := Remember(ctx, c, "stats", time.Minute, load)
	require.NoError(t, err)
	second, err := Remember(ctx, c, "stats", time.Minute, load)
	require.NoError(t, err)

	assert.Equal(t, payload{Total: 12}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists("test:stats"))

	mr.FastForward(2 * time.Minute)
	_, err = Remember(ctx, c, "stats", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRemember_LoaderErrorNotCached(t *testing.T) {
	c, mr := newMiniredisCache(t)

	_, err := Remember(context.Background(), c, "stats", time.Minute, func(context.Context) (payload, error) {
		return payload{}, errors.New("db down")
	})
	assert.EqualError(t, err, "db down")
	assert.False(t, mr.Exists("test:stats"))
}

func TestRemember_CorruptEntryIsReloaded(t *testing.T) {
	c, mr := newMiniredisCache(t)
	require.NoError(t, mr.Set("test:stats", "{not json"))

	got, err := Remember(context.Background(), c, "stats", time.Minute, func(context.Context) (payload, error) {
		return payload{Total: 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, got.Total)

	stored, err := mr.Get("test:stats")
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":3}`, stored)
}

func TestRemember_RedisErrorsFallBackToLoader(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := New(client, "test:", logger.NewTestLogger(t))

	data, _ := json.Marshal(payload{Total: 7})
	mock.ExpectGet("test:stats").SetErr(errors.New("connection refused"))
	mock.ExpectSet("test:stats", data, time.Minute).SetErr(errors.New("connection refused"))

	got, err := Remember(context.Background(), c, "stats", time.Minute, func(context.Context) (payload, error) {
		return payload{Total: 7}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemember_NilCache(t *testing.T) {
	var c *Cache
	got, err := Remember(context.Background(), c, "stats", time.Minute, func(context.Context) (payload, error) {
		return payload{Total: 1}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Total)
	assert.NoError(t, c.Invalidate(context.Background(), "stats"))
}

func TestInvalidate(t *testing.T) {
	c, mr := newMiniredisCache(t)
	require.NoError(t, mr.Set("test:stats", "1"))
	require.NoError(t, mr.Set("test:growth", "1"))
	require.NoError(t, mr.Set("other", "1"))

	require.NoError(t, c.Invalidate(context.Background(), "stats", "growth"))

	assert.False(t, mr.Exists("test:stats"))
	assert.False(t, mr.Exists("test:growth"))
	assert.True(t, mr.Exists("other"))
}

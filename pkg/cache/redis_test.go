package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewFromClient(client, "test"), mr
}

func TestKey(t *testing.T) {
	c, _ := newTestCache(t)
	assert.Equal(t, "test:session:42", c.Key("session", "42"))

	bare := NewFromClient(nil, "")
	assert.Equal(t, "session:42", bare.Key("session", "42"))
}

func TestNewRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewRedisCache("redis://"+mr.Addr(), DefaultPrefix)
	require.NoError(t, err)
	defer c.Close()
	assert.NoError(t, c.Ping(context.Background()))

	_, err = NewRedisCache("not a url", DefaultPrefix)
	assert.Error(t, err)
}

func TestJSONRoundTrip(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		Count int `json:"count"`
	}
	require.NoError(t, c.SetJSON(ctx, c.Key("p"), payload{Count: 3}, 0))

	var got payload
	require.NoError(t, c.GetJSON(ctx, c.Key("p"), &got))
	assert.Equal(t, 3, got.Count)
	assert.Equal(t, time.Duration(0), mr.TTL("test:p"), "zero ttl must not expire")

	err := c.GetJSON(ctx, c.Key("missing"), &got)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestReplaceSet(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	key := c.Key("banned")

	require.NoError(t, c.ReplaceSet(ctx, key, []string{"1", "2"}))
	require.NoError(t, c.ReplaceSet(ctx, key, []string{"2", "3"}))

	members, err := c.SMembers(ctx, key)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"2", "3"}, members)

	require.NoError(t, c.ReplaceSet(ctx, key, nil))
	assert.False(t, mr.Exists(key), "empty replacement leaves the key deleted")
}

func TestGetJSON_Corrupt(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("test:bad", "{not json"))

	var v map[string]any
	err := c.GetJSON(context.Background(), c.Key("bad"), &v)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
}

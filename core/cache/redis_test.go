package cache

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	c := New(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "postkeep")
	defer c.Close()
	assert.Equal(t, "postkeep:thumb:abc", c.Key("thumb", "abc"))

	bare := New(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "")
	defer bare.Close()
	assert.Equal(t, "thumb:abc", bare.Key("thumb", "abc"))
}

func TestGet_UnreachableServerIsMiss(t *testing.T) {
	c := New(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1}), "postkeep")
	defer c.Close()

	_, ok := c.Get(context.Background(), "abc")
	assert.False(t, ok)

	// Must not panic or block on failure.
	c.Set(context.Background(), "abc", "https://i.ytimg.com/vi/abc/hqdefault.jpg")
}

func TestNewRedisCache_BadURL(t *testing.T) {
	_, err := NewRedisCache("not a url", "")
	assert.Error(t, err)
}

func TestClose_LaterCallsMiss(t *testing.T) {
	c := New(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1}), "postkeep")
	assert.NoError(t, c.Close())

	_, ok := c.Get(context.Background(), "abc")
	assert.False(t, ok)
}

package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chat-node/internal/apperrors"
)

func TestStaticResolver(t *testing.T) {
	r := NewStaticResolver(map[string]string{"bob.os": "10.0.0.3:7000"}, "9090")
	ctx := context.Background()

	addr, err := r.Resolve(ctx, "bob.os")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.3:7000", addr)

	addr, err = r.Resolve(ctx, "carol.os")
	require.NoError(t, err)
	assert.Equal(t, "carol.os:9090", addr)

	_, err = r.Resolve(ctx, " ")
	assert.ErrorIs(t, err, apperrors.ErrInvalidRecipient)
}

func TestStaticResolverWithoutDefaultPort(t *testing.T) {
	r := NewStaticResolver(nil, "")

	_, err := r.Resolve(context.Background(), "carol.os")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

type fakeKV struct {
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeKV) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.values[key] = value.(string)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeKV) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.values, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestRedisDirectoryRegisterAndResolve(t *testing.T) {
	store := newFakeKV()
	d := NewRedisDirectory(store, "chatnode:peer:", time.Minute, NewStaticResolver(nil, "9090"), zap.NewNop())
	ctx := context.Background()

	require.NoError(t, d.Register(ctx, "bob.os", "10.0.0.3:9091"))
	assert.Equal(t, time.Minute, store.ttls["chatnode:peer:bob.os"])

	addr, err := d.Resolve(ctx, "bob.os")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.3:9091", addr)

	require.NoError(t, d.Deregister(ctx, "bob.os"))
	addr, err = d.Resolve(ctx, "bob.os")
	require.NoError(t, err)
	assert.Equal(t, "bob.os:9090", addr)
}

func TestRedisDirectoryFallsBackOnError(t *testing.T) {
	store := newFakeKV()
	store.getErr = errors.New("connection refused")
	d := NewRedisDirectory(store, "p:", time.Minute,
		NewStaticResolver(map[string]string{"bob.os": "10.0.0.3:7000"}, ""), zap.NewNop())

	addr, err := d.Resolve(context.Background(), "bob.os")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.3:7000", addr)
}

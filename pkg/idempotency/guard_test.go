package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	args := m.Called(ctx, key, expiration)
	return redis.NewBoolResult(args.Bool(0), args.Error(1))
}

func (m *MockClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	args := m.Called(ctx, keys)
	return redis.NewIntResult(int64(args.Int(0)), args.Error(1))
}

func TestClaim_FirstUse(t *testing.T) {
	client := new(MockClient)
	client.On("SetNX", mock.Anything, "idem:abc", time.Hour).Return(true, nil)

	guard := NewRedisGuard(client, time.Hour)
	assert.NoError(t, guard.Claim(context.Background(), "abc"))
	client.AssertExpectations(t)
}

func TestClaim_Replay(t *testing.T) {
	client := new(MockClient)
	client.On("SetNX", mock.Anything, "idem:abc", time.Hour).Return(false, nil)

	guard := NewRedisGuard(client, time.Hour)
	assert.ErrorIs(t, guard.Claim(context.Background(), "abc"), ErrInFlight)
}

func TestClaim_RedisDown(t *testing.T) {
	client := new(MockClient)
	client.On("SetNX", mock.Anything, "idem:abc", time.Minute).Return(false, errors.New("connection refused"))

	guard := NewRedisGuard(client, time.Minute)
	err := guard.Claim(context.Background(), "abc")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInFlight)
}

func TestRelease(t *testing.T) {
	client := new(MockClient)
	client.On("Del", mock.Anything, []string{"idem:abc"}).Return(1, nil)

	guard := NewRedisGuard(client, time.Hour)
	assert.NoError(t, guard.Release(context.Background(), "abc"))
	client.AssertExpectations(t)
}

func TestNopGuard(t *testing.T) {
	var g Guard = NopGuard{}
	assert.NoError(t, g.Claim(context.Background(), "k"))
	assert.NoError(t, g.Claim(context.Background(), "k"))
	assert.NoError(t, g.Release(context.Background(), "k"))
}

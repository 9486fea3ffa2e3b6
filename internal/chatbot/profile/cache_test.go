package profile

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

	apperrors "botforge/internal/common/errors"
	"botforge/internal/common/logger"
	"botforge/internal/models"
)

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCachedProvider_ReadThrough(t *testing.T) {
	mr, client := newMiniredisClient(t)
	inner := &fakeProvider{profiles: map[int64]models.Profile{
		8: {"company_name": "Bloom Florist", "industry": "retail", "seats": 12},
	}}
	c := NewCachedProvider(inner, client, time.Minute, "test:profile:", logger.NewTestLogger(t))
	ctx := context.Background()

	first, err := c.GetProfile(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, "Bloom Florist", first["company_name"])
	assert.True(t, mr.Exists("test:profile:8"))
	assert.Equal(t, time.Minute, mr.TTL("test:profile:8"))

	second, err := c.GetProfile(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, "Bloom Florist", second["company_name"])
	assert.Equal(t, "12", second.String("seats"))
	assert.Equal(t, 1, inner.calls)

	require.NoError(t, c.Invalidate(ctx, 8))
	_, err = c.GetProfile(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedProvider_NegativeCaching(t *testing.T) {
	mr, client := newMiniredisClient(t)
	inner := &fakeProvider{profiles: map[int64]models.Profile{}}
	c := NewCachedProvider(inner, client, time.Minute, "p:", logger.NewNoOpLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.GetProfile(ctx, 404)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeOrganisationNotFound))
	}
	assert.Equal(t, 1, inner.calls)

	val, err := mr.Get("p:404")
	require.NoError(t, err)
	assert.Equal(t, missingMarker, val)
}

func TestCachedProvider_RedisFailures(t *testing.T) {
	profile := models.Profile{"company_name": "Quay Books", "industry": "retail"}
	data, err := json.Marshal(profile)
	require.NoError(t, err)

	tests := []struct {
		name string
		mock func(mock redismock.ClientMock)
	}{
		{
			name: "read error falls through to the store",
			mock: func(mock redismock.ClientMock) {
				mock.ExpectGet("p:3").SetErr(errors.New("i/o timeout"))
				mock.ExpectSet("p:3", data, 5*time.Minute).SetVal("OK")
			},
		},
		{
			name: "write error is ignored",
			mock: func(mock redismock.ClientMock) {
				mock.ExpectGet("p:3").RedisNil()
				mock.ExpectSet("p:3", data, 5*time.Minute).SetErr(errors.New("READONLY"))
			},
		},
		{
			name: "corrupt entry is replaced",
			mock: func(mock redismock.ClientMock) {
				mock.ExpectGet("p:3").SetVal("{garbage")
				mock.ExpectSet("p:3", data, 5*time.Minute).SetVal("OK")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mock := redismock.NewClientMock()
			tt.mock(mock)

			inner := &fakeProvider{profiles: map[int64]models.Profile{3: profile}}
			c := NewCachedProvider(inner, client, 5*time.Minute, "p:", logger.NewTestLogger(t))

			got, err := c.GetProfile(context.Background(), 3)
			require.NoError(t, err)
			assert.Equal(t, "Quay Books", got["company_name"])
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/hms-api/pkg/errors"
)

func TestNonceRepositoryFailsClosedWithoutRedis(t *testing.T) {
	ok, err := NewNonceRepository(nil).Consume(context.Background(), "01HX", time.Minute)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNonceStoreUnavailable)
}

func TestCacheRepositoryWithoutRedisMisses(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var out []string
	assert.ErrorIs(t, repo.Get(context.Background(), "geo:c1", &out), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "geo:c1", []string{"Z1"}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "geo:c1:*"))
}

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/garuda/core"
)

func TestMemoryStoreConsumeOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "nonce-1", "GACC", time.Minute))

	account, err := s.Consume(ctx, "nonce-1")
	require.NoError(t, err)
	assert.Equal(t, "GACC", account)

	_, err = s.Consume(ctx, "nonce-1")
	assert.ErrorIs(t, err, core.ErrNonceNotFoundOrExpired)
}

func TestMemoryStoreUnknownNonce(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Consume(context.Background(), "never-issued")
	assert.ErrorIs(t, err, core.ErrNonceNotFoundOrExpired)
}

func TestMemoryStoreExpiredNonce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "nonce-2", "GACC", -time.Second))

	_, err := s.Consume(ctx, "nonce-2")
	assert.ErrorIs(t, err, core.ErrNonceNotFoundOrExpired)
}

func TestMemoryStoreConcurrentConsume(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "nonce-3", "GACC", time.Minute))

	const attempts = 16
	var wg sync.WaitGroup
	successes := make(chan struct{}, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Consume(ctx, "nonce-3"); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	assert.Len(t, successes, 1, "exactly one concurrent consumer may win")
}

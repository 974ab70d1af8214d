// Package storagetest holds behavioral tests shared by every
// storage.ClaimStore implementation.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solairdrop/storage"
)

// RunClaimStoreTests exercises store semantics. newStore must return an
// empty store for each call.
func RunClaimStoreTests(t *testing.T, newStore func(t *testing.T) storage.ClaimStore) {
	t.Run("ReserveThenGet", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Reserve(ctx, "wallet-a"))

		claimed, err := store.IsClaimed(ctx, "wallet-a")
		require.NoError(t, err)
		assert.True(t, claimed)

		c, err := store.Get(ctx, "wallet-a")
		require.NoError(t, err)
		assert.Equal(t, "wallet-a", c.Wallet)
		assert.Equal(t, storage.ClaimPending, c.Status)
		assert.Empty(t, c.Signature)
		assert.False(t, c.CreatedAt.IsZero())
	})

	t.Run("UnknownWallet", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		claimed, err := store.IsClaimed(ctx, "nobody")
		require.NoError(t, err)
		assert.False(t, claimed)

		_, err = store.Get(ctx, "nobody")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		err = store.Complete(ctx, "nobody", "sig")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		assert.NoError(t, store.Release(ctx, "nobody"))
	})

	t.Run("DuplicateReserve", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Reserve(ctx, "wallet-b"))
		err := store.Reserve(ctx, "wallet-b")
		assert.ErrorIs(t, err, storage.ErrAlreadyClaimed)
	})

	t.Run("EmptyWallet", func(t *testing.T) {
		store := newStore(t)
		err := store.Reserve(context.Background(), "")
		assert.ErrorIs(t, err, storage.ErrInvalidInput)
	})

	t.Run("Complete", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Reserve(ctx, "wallet-c"))
		require.NoError(t, store.Complete(ctx, "wallet-c", "sig-c"))

		c, err := store.Get(ctx, "wallet-c")
		require.NoError(t, err)
		assert.Equal(t, storage.ClaimCompleted, c.Status)
		assert.Equal(t, "sig-c", c.Signature)
	})

	t.Run("ReleasePending", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Reserve(ctx, "wallet-d"))
		require.NoError(t, store.Release(ctx, "wallet-d"))

		claimed, err := store.IsClaimed(ctx, "wallet-d")
		require.NoError(t, err)
		assert.False(t, claimed)

		// Released wallets may claim again.
		require.NoError(t, store.Reserve(ctx, "wallet-d"))
	})

	t.Run("ReleaseKeepsCompleted", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Reserve(ctx, "wallet-e"))
		require.NoError(t, store.Complete(ctx, "wallet-e", "sig-e"))
		require.NoError(t, store.Release(ctx, "wallet-e"))

		claimed, err := store.IsClaimed(ctx, "wallet-e")
		require.NoError(t, err)
		assert.True(t, claimed)
	})

	t.Run("ConcurrentReserve", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		const workers = 16
		var wins, conflicts atomic.Int32
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := store.Reserve(ctx, "wallet-race")
				switch {
				case err == nil:
					wins.Add(1)
				case errors.Is(err, storage.ErrAlreadyClaimed):
					conflicts.Add(1)
				default:
					errs <- fmt.Errorf("unexpected error: %w", err)
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Error(err)
		}

		assert.Equal(t, int32(1), wins.Load())
		assert.Equal(t, int32(workers-1), conflicts.Load())
	})
}

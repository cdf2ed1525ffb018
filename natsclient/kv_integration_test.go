//go:build integration

package natsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVStore_UpdateWithRetry(t *testing.T) {
	// Use real NATS via testcontainer
	testClient := NewTestClient(t, WithKV())
	client := testClient.Client

	ctx := context.Background()

	// Create real KV bucket
	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      "test-update-retry",
		Description: "Test bucket for CAS operations",
		History:     5,
	})
	require.NoError(t, err)

	kvStore := client.NewKVStore(bucket)

	t.Run("successful update", func(t *testing.T) {
		_, err := kvStore.Put(ctx, "test-key", []byte("initial"))
		require.NoError(t, err)

		err = kvStore.UpdateWithRetry(ctx, "test-key", func(current []byte) ([]byte, error) {
			assert.Equal(t, "initial", string(current))
			return []byte("updated"), nil
		})
		assert.NoError(t, err)

		entry, err := kvStore.Get(ctx, "test-key")
		require.NoError(t, err)
		assert.Equal(t, "updated", string(entry.Value))
	})

	t.Run("creates missing key", func(t *testing.T) {
		err := kvStore.UpdateWithRetry(ctx, "fresh-key", func(current []byte) ([]byte, error) {
			assert.Nil(t, current)
			return []byte("created"), nil
		})
		assert.NoError(t, err)

		entry, err := kvStore.Get(ctx, "fresh-key")
		require.NoError(t, err)
		assert.Equal(t, "created", string(entry.Value))
	})

	t.Run("retry on conflict", func(t *testing.T) {
		key := "conflict-key"
		_, err := kvStore.Put(ctx, key, []byte("v1"))
		require.NoError(t, err)

		updateCount := 0
		err = kvStore.UpdateWithRetry(ctx, key, func(_ []byte) ([]byte, error) {
			updateCount++
			if updateCount == 1 {
				// Simulate concurrent update
				_, _ = kvStore.Put(ctx, key, []byte("concurrent"))
			}
			return []byte("final"), nil
		})

		// Should succeed after retry
		assert.NoError(t, err)
		assert.Greater(t, updateCount, 1, "Should have retried")

		entry, _ := kvStore.Get(ctx, key)
		assert.Equal(t, "final", string(entry.Value))
	})

	t.Run("max retries exceeded", func(t *testing.T) {
		key := "max-retry-key"
		_, err := kvStore.Put(ctx, key, []byte("initial"))
		require.NoError(t, err)

		// Create a store with minimal retries
		limitedStore := client.NewKVStore(bucket, func(opts *KVOptions) {
			opts.MaxRetries = 1
			opts.RetryDelay = 1 * time.Millisecond
		})

		attempts := 0
		err = limitedStore.UpdateWithRetry(ctx, key, func(_ []byte) ([]byte, error) {
			attempts++
			// Always cause conflict by updating outside
			_, _ = kvStore.Put(ctx, key, []byte("interfering"))
			return []byte("never-succeeds"), nil
		})

		assert.Equal(t, ErrKVMaxRetriesExceeded, err)
		assert.Equal(t, 2, attempts, "Should try initial + 1 retry")
	})

	t.Run("update function error fails fast", func(t *testing.T) {
		key := "fn-error-key"
		_, err := kvStore.Put(ctx, key, []byte("value"))
		require.NoError(t, err)

		attempts := 0
		boom := errors.New("boom")
		err = kvStore.UpdateWithRetry(ctx, key, func(_ []byte) ([]byte, error) {
			attempts++
			return nil, boom
		})

		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, attempts, "Update function errors should not be retried")
	})

	t.Run("oversized value fails fast", func(t *testing.T) {
		smallStore := client.NewKVStore(bucket, func(opts *KVOptions) {
			opts.MaxValueSize = 8
		})

		attempts := 0
		err := smallStore.UpdateWithRetry(ctx, "size-key", func(_ []byte) ([]byte, error) {
			attempts++
			return []byte("way too large for this store"), nil
		})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "size")
		assert.Equal(t, 1, attempts, "Size violations should not be retried")
	})

	t.Run("concurrent counter increments all land", func(t *testing.T) {
		key := "counter"
		const workers = 8

		var wg sync.WaitGroup
		wg.Add(workers)
		for i := 0; i < workers; i++ {
			go func() {
				defer wg.Done()
				err := kvStore.UpdateWithRetry(ctx, key, func(current []byte) ([]byte, error) {
					n := 0
					if len(current) > 0 {
						if err := json.Unmarshal(current, &n); err != nil {
							return nil, err
						}
					}
					return json.Marshal(n + 1)
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		entry, err := kvStore.Get(ctx, key)
		require.NoError(t, err)

		var total int
		require.NoError(t, json.Unmarshal(entry.Value, &total))
		assert.Equal(t, workers, total, "Every CAS increment should be applied exactly once")
	})
}

func TestKVStore_ErrorDetection(t *testing.T) {
	// Test with real NATS errors
	testClient := NewTestClient(t, WithKV())
	client := testClient.Client
	ctx := context.Background()

	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket: "test-errors",
	})
	require.NoError(t, err)

	kvStore := client.NewKVStore(bucket)

	t.Run("not found error", func(t *testing.T) {
		_, err := kvStore.Get(ctx, "non-existent")
		assert.True(t, IsKVNotFoundError(err))
		assert.Equal(t, ErrKVKeyNotFound, err)
	})

	t.Run("key exists error", func(t *testing.T) {
		key := "exists-key"
		_, err := kvStore.Create(ctx, key, []byte("value"))
		require.NoError(t, err)

		// Try to create again
		_, err = kvStore.Create(ctx, key, []byte("value2"))
		assert.True(t, IsKVConflictError(err))
		assert.Equal(t, ErrKVKeyExists, err)
	})

	t.Run("revision mismatch error", func(t *testing.T) {
		key := "revision-key"
		rev1, err := kvStore.Put(ctx, key, []byte("v1"))
		require.NoError(t, err)

		// Update with wrong revision
		_, err = kvStore.Update(ctx, key, []byte("v2"), rev1+999)
		assert.True(t, IsKVConflictError(err))
		assert.Equal(t, ErrKVRevisionMismatch, err)
	})
}

func TestKVStore_BasicOperations(t *testing.T) {
	testClient := NewTestClient(t, WithKV())
	client := testClient.Client
	ctx := context.Background()

	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket: "test-basic",
	})
	require.NoError(t, err)

	kvStore := client.NewKVStore(bucket)

	t.Run("put and get", func(t *testing.T) {
		key := "basic-key"
		value := []byte("basic-value")

		// Put
		rev, err := kvStore.Put(ctx, key, value)
		require.NoError(t, err)
		assert.Greater(t, rev, uint64(0))

		// Get
		entry, err := kvStore.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, key, entry.Key)
		assert.Equal(t, value, entry.Value)
		assert.Equal(t, rev, entry.Revision)
	})

	t.Run("create new key", func(t *testing.T) {
		key := "create-key"
		value := []byte("create-value")

		// Create should succeed
		rev, err := kvStore.Create(ctx, key, value)
		require.NoError(t, err)
		assert.Greater(t, rev, uint64(0))

		// Verify it exists
		entry, err := kvStore.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, value, entry.Value)
	})

	t.Run("update with revision", func(t *testing.T) {
		key := "update-key"
		initial := []byte("initial")
		updated := []byte("updated")

		// Create initial value
		rev1, err := kvStore.Put(ctx, key, initial)
		require.NoError(t, err)

		// Update with correct revision
		rev2, err := kvStore.Update(ctx, key, updated, rev1)
		require.NoError(t, err)
		assert.Greater(t, rev2, rev1)

		// Verify update
		entry, err := kvStore.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, updated, entry.Value)
		assert.Equal(t, rev2, entry.Revision)
	})

	t.Run("delete key", func(t *testing.T) {
		key := "delete-key"
		value := []byte("delete-value")

		// Create key
		_, err := kvStore.Put(ctx, key, value)
		require.NoError(t, err)

		// Delete key
		err = kvStore.Delete(ctx, key)
		require.NoError(t, err)

		// Verify it's gone
		_, err = kvStore.Get(ctx, key)
		assert.Equal(t, ErrKVKeyNotFound, err)
	})
}

func TestKVStore_Options(t *testing.T) {
	testClient := NewTestClient(t, WithKV())
	client := testClient.Client
	ctx := context.Background()

	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket: "test-options",
	})
	require.NoError(t, err)

	t.Run("custom options", func(t *testing.T) {
		kvStore := client.NewKVStore(bucket, func(opts *KVOptions) {
			opts.MaxRetries = 5
			opts.RetryDelay = 50 * time.Millisecond
			opts.Timeout = 10 * time.Second
		})

		assert.NotNil(t, kvStore)
		assert.Equal(t, 5, kvStore.options.MaxRetries)
		assert.Equal(t, 50*time.Millisecond, kvStore.options.RetryDelay)
		assert.Equal(t, 10*time.Second, kvStore.options.Timeout)
	})

	t.Run("default options", func(t *testing.T) {
		kvStore := client.NewKVStore(bucket)

		defaults := DefaultKVOptions()
		assert.Equal(t, defaults.MaxRetries, kvStore.options.MaxRetries)
		assert.Equal(t, defaults.RetryDelay, kvStore.options.RetryDelay)
		assert.Equal(t, defaults.Timeout, kvStore.options.Timeout)
	})
}

func TestKVStore_Timeout(t *testing.T) {
	testClient := NewTestClient(t, WithKV())
	client := testClient.Client
	ctx := context.Background()

	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket: "test-timeout",
	})
	require.NoError(t, err)

	t.Run("operations respect timeout", func(t *testing.T) {
		// Create store with very short timeout
		kvStore := client.NewKVStore(bucket, func(opts *KVOptions) {
			opts.Timeout = 1 * time.Nanosecond // Extremely short to force timeout
		})

		// The important thing is that timeout is applied, not that it always triggers
		_, err := kvStore.Get(ctx, "timeout-test")
		t.Logf("Get with 1ns timeout result: %v", err)
	})

	t.Run("normal operations with reasonable timeout", func(t *testing.T) {
		kvStore := client.NewKVStore(bucket, func(opts *KVOptions) {
			opts.Timeout = 5 * time.Second
		})

		_, err := kvStore.Put(ctx, "normal-key", []byte("value"))
		assert.NoError(t, err)

		entry, err := kvStore.Get(ctx, "normal-key")
		assert.NoError(t, err)
		assert.Equal(t, "value", string(entry.Value))
	})
}

func TestKVStore_ErrorHelpers(t *testing.T) {
	t.Run("IsKVNotFoundError", func(t *testing.T) {
		assert.True(t, IsKVNotFoundError(ErrKVKeyNotFound))
		assert.True(t, IsKVNotFoundError(errors.New("nats: key not found")))
		assert.True(t, IsKVNotFoundError(fmt.Errorf("wrapped: %w", ErrKVKeyNotFound)))
		assert.False(t, IsKVNotFoundError(ErrKVKeyExists))
		assert.False(t, IsKVNotFoundError(nil))
	})

	t.Run("IsKVConflictError", func(t *testing.T) {
		assert.True(t, IsKVConflictError(ErrKVRevisionMismatch))
		assert.True(t, IsKVConflictError(ErrKVKeyExists))
		assert.True(t, IsKVConflictError(errors.New("nats: wrong last sequence: 5")))
		assert.False(t, IsKVConflictError(ErrKVKeyNotFound))
		assert.False(t, IsKVConflictError(nil))
	})
}

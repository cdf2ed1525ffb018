// Package natsclient provides a NATS client with circuit breaker protection,
// automatic reconnection, and JetStream Key-Value support.
//
// The package wraps the standard NATS Go client with reliability features:
// a circuit breaker that fails fast after a threshold of consecutive failures
// (default: 5) and tests recovery with exponential backoff, managed connection
// state transitions (Disconnected, Connecting, Connected, Reconnecting,
// CircuitOpen) with configurable callbacks, and context propagation on all
// operations. It backs the shared embedding cache and any other component
// that persists state in JetStream KV.
//
// # Basic Usage
//
// Creating and connecting to NATS:
//
//	client, err := natsclient.NewClient("nats://localhost:4222")
//	if err != nil {
//	    return err
//	}
//
//	ctx := context.Background()
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
//
// # Key-Value Store
//
// KVStore is a high-level abstraction over NATS KV with automatic CAS
// (Compare-And-Swap) retry and consistent error handling:
//
//	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
//	    Bucket: "embeddings",
//	})
//	if err != nil {
//	    return err
//	}
//
//	kv := client.NewKVStore(bucket)
//	if _, err := kv.Put(ctx, "key", []byte("value")); err != nil {
//	    return err
//	}
//
//	err = kv.UpdateWithRetry(ctx, "counter", func(current []byte) ([]byte, error) {
//	    return increment(current)
//	})
//
// Callers that branch on KV outcomes should use the exported sentinels
// (ErrKVKeyNotFound, ErrKVKeyExists, ErrKVRevisionMismatch,
// ErrKVMaxRetriesExceeded) or the IsKVNotFoundError and IsKVConflictError
// helpers, which also recognize raw NATS server errors.
//
// # Configuration
//
// Options configure reconnection, timeouts, authentication, and metrics:
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//	    natsclient.WithMaxReconnects(-1),
//	    natsclient.WithReconnectWait(2*time.Second),
//	    natsclient.WithCircuitBreakerThreshold(10),
//	    natsclient.WithMetrics(registry),
//	    natsclient.WithLogger(logger),
//	)
//
// With metrics enabled the client records per-operation counters and
// latencies, and polls tracked buckets for key counts and storage bytes.
//
// # Testing
//
// TestClient starts a disposable NATS server in a container for integration
// tests. NewTestClient registers cleanup with testing.TB; NewSharedTestClient
// returns errors for use in TestMain:
//
//	tc := natsclient.NewTestClient(t, natsclient.WithKVBuckets("embeddings"))
//	kv, err := tc.GetKVBucket(ctx, "embeddings")
package natsclient

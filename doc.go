// Package sousschef is a cooking assistant backend: one HTTP/WebSocket
// gateway in front of a query router that classifies each message and
// dispatches it to recipe search, cooking Q&A, or image-based
// ingredient recognition.
//
// # Philosophy: Degrade, Don't Die
//
// Every external collaborator (model provider, classifier service,
// recipe API, NATS) is optional at runtime. A collaborator failure
// narrows behavior instead of failing the request:
//
//   - Keyword classification answers when the classifier service is down
//   - Canned fallback recipes and answers render when the generator is down
//   - The embedding cache drops to its process-local tier when NATS is down
//   - Conversation memory truncates instead of summarizing when the
//     generator cannot summarize
//
// Only misconfiguration is fatal, and only at startup. The /healthz
// aggregate reports these narrowed states as "degraded" without failing
// the probe.
//
// # Architecture
//
// A request flows through three layers:
//
//	┌─────────────────────────────────────┐
//	│            Gateway                  │  HTTP + WebSocket transport
//	│  (routes, CORS, limits, sessions)   │  /api/*, /ws/chat, /healthz
//	└─────────────────────────────────────┘
//	           ↓ dispatches to
//	┌─────────────────────────────────────┐
//	│            Router                   │  Classify, remember,
//	│ (classifier → handler → memory)     │  always answer
//	└─────────────────────────────────────┘
//	           ↓ fans out to
//	┌─────────────────────────────────────┐
//	│          Collaborators              │  genai, classifier,
//	│ (providers, recipe API, embeddings) │  recipeapi, embedding cache
//	└─────────────────────────────────────┘
//
// The router never returns an error; it renders the best response the
// surviving collaborators can produce and records the turn in memory.
//
// # Embedding Cache Tiers
//
// Recipe ranking and ingredient clustering share one embedding source,
// a two-tier cache:
//
//	ranking / clustering
//	        ↓
//	┌──────────────────┐   miss   ┌──────────────────┐
//	│  NATS KV bucket  │ ───────→ │  HTTP embedder   │
//	│  (shared tier)   │          │  (provider call) │
//	└──────────────────┘          └──────────────────┘
//	        │ tier down
//	        ↓
//	┌──────────────────┐
//	│  in-process map  │
//	│  (local tier)    │
//	└──────────────────┘
//
// The first remote failure permanently downgrades the cache to the
// local tier for the life of the process; health reports the downgrade
// as degraded.
//
// # Packages
//
// Core request path:
//   - gateway: HTTP/WebSocket transport, sessions, rate limits
//   - router: classification dispatch and fallback composition
//   - vocabulary: query categories and keyword classification
//   - memory: token-budgeted conversation history with summarization
//   - recipes: search orchestration, ranking, shopping lists
//
// Collaborator clients:
//   - genai: chat and vision calls to an OpenAI-compatible provider
//   - classifier: remote food-image and intent classification
//   - recipeapi: external recipe search API client
//   - natsclient: NATS connection and KV bucket management
//
// Shared infrastructure:
//   - config: file, environment, and default configuration layering
//   - errors: error kinds (transient, fatal, invalid) and wrapping
//   - health: subsystem checks and aggregation for /healthz
//   - metric: Prometheus registry and core counters
//   - types: domain types shared across packages
//
// Reusable libraries under pkg/:
//   - pkg/embedding: embedder client and the tiered batch cache
//   - pkg/cache: generic in-memory cache with stats and metrics
//   - pkg/ranking: similarity ranking over an embedding source
//   - pkg/clustering: seeded k-means over an embedding source
//   - pkg/retry: bounded exponential backoff for collaborator calls
//
// # Getting Started
//
// Run the assistant with defaults (no config file required):
//
//	go run ./cmd/sousschef
//
// Point it at a config file and validate without serving:
//
//	go run ./cmd/sousschef -config config.yaml -validate
//
// Exercise a running instance end to end:
//
//	go run ./cmd/e2e -scenario all
//
// Regenerate the committed OpenAPI spec after changing the API surface:
//
//	go run ./cmd/schema-exporter
package sousschef

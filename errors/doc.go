// Package errors provides standardized error handling patterns for sousschef components.
//
// # Overview
//
// The errors package implements a three-class error classification system:
// Transient (temporary, retryable), Invalid (bad input, non-retryable), and
// Fatal (unrecoverable, stop processing). On top of the classes it defines the
// assistant's four error kinds, which drive the degradation policy of the
// routing and caching layers:
//
//   - ErrProviderUnavailable: an embedding or generation call failed. The
//     error propagates to the calling component, which owns any fallback
//     (static recipes, original ordering, clustering instead of generation).
//   - ErrCacheTierDown: the remote cache tier is unreachable. The embedding
//     cache downgrades silently to its in-process tier for the rest of the
//     process lifetime; the end user never sees this.
//   - ErrClassificationAmbiguous: intent classification produced no clean
//     label. The router resolves it with the keyword heuristic.
//   - ErrHandlerFailure: a router handler failed. The router boundary
//     converts it into the generic apology response and logs the cause.
//
// Kinds are sentinels attached with WithKind and matched with errors.Is or
// the Is* predicates, so each layer pattern-matches on the kind instead of
// catching generic failures.
//
// # Error Classification
//
// Errors are classified based on their type or content:
//
//   - Transient: network timeouts, connection issues, provider or cache
//     unavailability (retry or degrade)
//   - Invalid: malformed input, validation failures, ambiguous classification
//     (do not retry)
//   - Fatal: invalid or missing configuration, unrecoverable states
//
// # Usage
//
// Wrap errors at component boundaries with the standard context pattern:
//
//	if err := bucket.Put(ctx, key, data); err != nil {
//		return errors.WrapTransient(
//			errors.WithKind(errors.ErrCacheTierDown, err),
//			"TieredCache", "Put", "remote tier write",
//		)
//	}
//
// Callers then branch on the kind:
//
//	if errors.IsCacheTierDown(err) {
//		c.downgrade()
//	}
//
// The RetryConfig type bridges classification into the pkg/retry backoff
// implementation for the collaborator clients that do retry.
package errors

// Package rest implements the HTTP client shared by every connector.
//
// Each connector (Notion, Stripe, Cloudflare, Meta Ads, Mixpanel, Google
// Drive) is a thin set of resource services over a [Client]. The client owns
// everything that is common to the providers:
//
//   - URL construction: a fixed base URL joined with the request path, plus
//     query parameters with empty values dropped
//   - Authentication: [BearerToken], [BasicAuth], [HeaderAuth], [ChainAuth]
//     and [RefreshingBearer]
//   - Body encoding: JSON, or application/x-www-form-urlencoded with
//     recursive bracket notation (see [EncodeForm])
//   - Response classification: 204 is empty, JSON content types are parsed,
//     anything else is kept as raw text
//   - Typed errors: every non-2xx response becomes an [*APIError]
//
// # Token Refresh
//
// [RefreshingBearer] is a small state machine
// (Authenticated → Refreshing → Authenticated | Failed). When a request
// returns 401 and a refresh token is available, the client refreshes once and
// retries the original request exactly once. Concurrent requests that hit a
// 401 share a single in-flight refresh.
//
// # Pagination
//
// [CollectAll] drives any cursor-based list endpoint until the provider
// reports no further cursor, concatenating pages in order.
//
// # Rate Limiting and Metrics
//
// A [RateLimiter] can be attached with [WithRateLimit]; it applies a token
// bucket and honours Retry-After after a 429. Requests are never retried
// automatically. [Metrics] exports request counts and latencies to
// Prometheus.
package rest

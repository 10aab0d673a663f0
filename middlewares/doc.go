// Package middlewares provides HTTP middleware for the campus router.
//
// The set covers cross-cutting request concerns:
//
//   - RequestID assigns a unique ID to each request for tracing, reusing
//     upstream IDs from X-Request-ID and friends when present.
//   - Recover catches panics and converts them to typed PanicError values
//     for the router's error handler.
//   - Timeout enforces a per-request deadline and yields TimeoutError.
//   - CORS handles preflight requests and response headers.
//   - Auth validates Bearer access tokens and stores claims in context;
//     RequireRole gates routes by role.
//   - CSRF verifies per-session tokens on state-changing requests.
//
// Recommended order: CORS, RequestID, Recover, Timeout, then Auth/CSRF
// on the routes that need them.
package middlewares

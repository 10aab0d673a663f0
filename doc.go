// Package campus assembles the learning-platform HTTP API: routing,
// JWT authentication with server-side revocation, CSRF-protected
// sessions, validation, and the PostgreSQL connection pool.
//
// The root package wires configuration into an App; the pieces live in
// their own packages:
//
//   - internal/router — pattern routing, request context, JSON envelopes
//   - internal/handlers — the HTTP surface
//   - internal/repository — PostgreSQL data access
//   - middlewares — request ID, recover, timeout, CORS, auth, CSRF
//   - pkg/token — JWT issue/validate/rotate with blacklist stores
//   - pkg/session, pkg/csrf — cookie sessions and CSRF tokens
//   - pkg/pool — named connection pools over pgx
//
// Typical usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	app, err := campus.New(context.Background(), cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := app.Run(); err != nil {
//	    log.Fatal(err)
//	}
package campus

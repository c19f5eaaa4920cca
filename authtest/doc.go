// Package authtest runs an in-process stub of the auth backend for
// tests, examples, and the load probe.
//
// The stub speaks the real wire protocol: JSON over HTTP on
// /auth/login, /auth/logout, /auth/refresh, and /auth/verify, with
// HS256-signed access tokens and opaque non-rotating refresh tokens.
// Failure modes are scriptable: users can be locked or deactivated,
// refresh tokens revoked in bulk, refresh answers forced to arbitrary
// statuses, and the whole backend taken offline mid-test. Per-endpoint
// call counters make coalescing assertions possible.
//
// # What this package must NOT do
//
//   - Import the authsess root package. The stub speaks raw wire
//     shapes so root package tests can use it without import cycles.
//   - Persist anything. All state is in-memory and dies with the stub.
package authtest

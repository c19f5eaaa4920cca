// Package authsess manages a client-side authentication session: login,
// logout, restart restoration, and access-token lifecycle against a
// remote auth backend.
//
// The package is designed for concurrent application workloads: Client
// methods are safe to call from multiple goroutines after
// initialization through [Builder.Build]. Any number of goroutines may
// demand a token at once; an expired token costs exactly one backend
// refresh no matter how many callers are waiting.
//
// # Architecture boundaries
//
// authsess is the public surface. It exposes [Client], [Builder],
// [Config], the [State] machine, and value types (Token, UserInfo,
// RefreshFailure, Verdict). Event dispatch and metrics collection live
// under internal/ and surface only through root aliases. Transport
// lives in the api sub-package behind the [Repository] interface;
// persistence lives in the storage sub-package behind [storage.Store].
//
// # What this package must NOT do
//
//   - Verify token signatures locally. Trust comes from the backend
//     verify endpoint; the jwt sub-package only decodes.
//   - Retry failed logins or refreshes on its own. Retry policy belongs
//     to the caller; the client reports classified failures once.
//   - Import any sub-package that re-imports authsess (no import
//     cycles).
//
// # Concurrency contract
//
// Token reads never block behind login, logout, or restore. State
// snapshots are lock-free; session mutations serialize on one internal
// lock and publish atomically. A terminal refresh failure tears the
// session down exactly once per authenticated session.
package authsess

// Package api implements [authsess.Repository] over HTTP against the
// standard backend endpoints: /auth/login, /auth/logout, /auth/refresh,
// and /auth/verify.
//
// Every request carries an X-Request-ID header, taken from the context
// via [authsess.WithRequestID] or generated per request. Non-2xx
// answers surface as [*authsess.StatusError] carrying the status code,
// the backend's message, and the request ID; transport failures pass
// through untouched so the client layer can classify them as network
// errors.
//
// # What this package must NOT do
//
//   - Classify failures. Mapping status codes and messages onto the
//     error taxonomy belongs to the authsess root package.
//   - Persist or cache anything.
package api

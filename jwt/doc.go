// Package jwt decodes access-token payloads without verifying signatures.
// It exists for client-side introspection: expiry checks, claim display,
// routing hints. Trust decisions always go through the backend verify
// endpoint; this package must never grow signing or verification code.
package jwt

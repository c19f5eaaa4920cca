package internaldefs

import (
	authsess "github.com/lumora-app/authsess"
)

// CounterDef defines a public type used by authsess APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   authsess.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by authsess APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   authsess.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the session client.
var CounterDefs = []CounterDef{
	{ID: authsess.MetricLoginSuccess, Name: "authsess_login_success_total", Help: "Successful login attempts."},
	{ID: authsess.MetricLoginFailure, Name: "authsess_login_failure_total", Help: "Failed login attempts."},
	{ID: authsess.MetricLoginRejectedLocal, Name: "authsess_login_rejected_local_total", Help: "Login attempts rejected by local input validation."},
	{ID: authsess.MetricLogout, Name: "authsess_logout_total", Help: "Logout operations."},
	{ID: authsess.MetricRefreshSuccess, Name: "authsess_refresh_success_total", Help: "Successful token refreshes."},
	{ID: authsess.MetricRefreshFailure, Name: "authsess_refresh_failure_total", Help: "Failed token refreshes."},
	{ID: authsess.MetricRefreshCoalesced, Name: "authsess_refresh_coalesced_total", Help: "Token demands that shared an in-flight refresh."},
	{ID: authsess.MetricRefreshTerminal, Name: "authsess_refresh_terminal_total", Help: "Refresh failures that invalidated the session."},
	{ID: authsess.MetricSessionRestored, Name: "authsess_session_restored_total", Help: "Sessions restored from persistent storage."},
	{ID: authsess.MetricRestoreFallbackRefresh, Name: "authsess_restore_fallback_refresh_total", Help: "Session restores that needed a refresh round trip."},
	{ID: authsess.MetricRestoreMiss, Name: "authsess_restore_miss_total", Help: "Session restores that found no usable session."},
	{ID: authsess.MetricSessionExpired, Name: "authsess_session_expired_total", Help: "Sessions torn down by terminal refresh failures."},
	{ID: authsess.MetricTokenFromCache, Name: "authsess_token_from_cache_total", Help: "Token demands served from the in-memory session."},
	{ID: authsess.MetricVerifyLocalReject, Name: "authsess_verify_local_reject_total", Help: "Token validations rejected locally before any network call."},
	{ID: authsess.MetricVerifyRemoteCall, Name: "authsess_verify_remote_call_total", Help: "Remote token verification calls."},
	{ID: authsess.MetricVerifyNetworkError, Name: "authsess_verify_network_error_total", Help: "Remote token verifications that failed in transport."},
}

// HistogramDefs is an exported constant or variable used by the session client.
var HistogramDefs = []HistogramDef{
	{ID: authsess.MetricLoginLatency, Name: "authsess_login_latency_seconds", Help: "Login latency histogram."},
	{ID: authsess.MetricRefreshLatency, Name: "authsess_refresh_latency_seconds", Help: "Token refresh latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the session client.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the session client.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

package authsess

import (
	"context"
	"io"
	"time"

	internalevents "github.com/lumora-app/authsess/internal/events"
	internalmetrics "github.com/lumora-app/authsess/internal/metrics"
)

// Credentials is the input for [Client.Login]. Email is normalized
// (trimmed, lowercased) before the backend sees it; Password is sent
// exactly as given.
type Credentials struct {
	Email    string
	Password string
}

// UserInfo is the authenticated user profile carried inside
// [Authenticated] state and persisted across restarts.
//
//	Docs: docs/session.md
type UserInfo struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role,omitempty"`
	SchoolID    string `json:"school_id,omitempty"`
}

// Token is the session token pair held in memory and persisted to the
// session store. ExpiresAt is the absolute access-token deadline computed
// from the backend's expires_in at issue time.
//
//	Docs: docs/session.md, docs/refresh.md
type Token struct {
	AccessToken  string    `json:"access_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	RefreshToken string    `json:"refresh_token,omitempty"`
}

// Expired reports whether the access token deadline has passed at the
// given instant. A token whose deadline equals now is already expired.
// A zero ExpiresAt reads as expired so that hand-built or damaged
// tokens are refreshed rather than trusted.
func (t Token) Expired(now time.Time) bool {
	if t.ExpiresAt.IsZero() {
		return true
	}
	return !now.Before(t.ExpiresAt)
}

// HasRefresh reports whether a refresh token is present.
func (t Token) HasRefresh() bool {
	return t.RefreshToken != ""
}

// LoginOutcome is returned by [Client.Login] on success.
type LoginOutcome struct {
	User  UserInfo
	Token Token
}

// LoginResponse is the wire shape of the backend login endpoint.
// ExpiresIn is the access-token lifetime in seconds.
type LoginResponse struct {
	AccessToken  string      `json:"access_token"`
	ExpiresIn    int64       `json:"expires_in"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	User         UserPayload `json:"user"`
}

// UserPayload is the user object embedded in [LoginResponse].
type UserPayload struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	SchoolID    string `json:"school_id"`
}

// RefreshResponse is the wire shape of the backend refresh endpoint.
// The backend does not rotate refresh tokens, so no refresh_token field
// is present; callers keep the one they sent.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// TokenVerification is the wire shape of the backend verify endpoint.
// The endpoint answers 200 for both outcomes; Valid=false carries the
// rejection reason in Error.
type TokenVerification struct {
	Valid     bool   `json:"valid"`
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	SchoolID  string `json:"schoolId"`
	ExpiresAt int64  `json:"expiresAt"`
	Error     string `json:"error"`
}

// Repository is the backend boundary that callers must implement to
// integrate authsess with their transport. [api.New] provides the
// standard HTTP implementation; tests substitute in-memory fakes.
//
// Implementations surface backend rejections as [*StatusError] and let
// transport failures through untouched so the client can tell the two
// apart.
//
//	Docs: docs/session.md, docs/refresh.md
type Repository interface {
	Login(ctx context.Context, creds Credentials) (*LoginResponse, error)
	Logout(ctx context.Context, accessToken string) error
	Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error)
	VerifyToken(ctx context.Context, accessToken string) (*TokenVerification, error)
}

// ExpiryNotice is delivered on [Client.SessionExpired] when a terminal
// refresh failure tears the session down. At most one notice is sent
// per authenticated session.
//
//	Docs: docs/refresh.md
type ExpiryNotice struct {
	Reason RefreshFailureKind
	UserID string
	At     time.Time
}

// Event is a structured lifecycle record emitted by the client's event
// dispatcher.
//
//	Docs: docs/session.md
type Event = internalevents.Event

// EventSink receives [Event] values from the client's event dispatcher.
type EventSink = internalevents.Sink

// NoOpSink is an [EventSink] that silently discards all events.
type NoOpSink = internalevents.NoOpSink

// ChannelSink is a buffered channel-based [EventSink].
type ChannelSink = internalevents.ChannelSink

// JSONWriterSink is an [EventSink] that writes JSON-encoded events to an
// [io.Writer], one object per line.
type JSONWriterSink = internalevents.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalevents.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalevents.NewJSONWriterSink(w)
}

// MetricID identifies one client metric.
//
//	Docs: docs/metrics.md
type MetricID = internalmetrics.MetricID

const (
	// MetricLoginSuccess is an exported metric identifier used by the session client.
	MetricLoginSuccess = internalmetrics.MetricLoginSuccess
	// MetricLoginFailure is an exported metric identifier used by the session client.
	MetricLoginFailure = internalmetrics.MetricLoginFailure
	// MetricLoginRejectedLocal is an exported metric identifier used by the session client.
	MetricLoginRejectedLocal = internalmetrics.MetricLoginRejectedLocal
	// MetricLogout is an exported metric identifier used by the session client.
	MetricLogout = internalmetrics.MetricLogout
	// MetricRefreshSuccess is an exported metric identifier used by the session client.
	MetricRefreshSuccess = internalmetrics.MetricRefreshSuccess
	// MetricRefreshFailure is an exported metric identifier used by the session client.
	MetricRefreshFailure = internalmetrics.MetricRefreshFailure
	// MetricRefreshCoalesced is an exported metric identifier used by the session client.
	MetricRefreshCoalesced = internalmetrics.MetricRefreshCoalesced
	// MetricRefreshTerminal is an exported metric identifier used by the session client.
	MetricRefreshTerminal = internalmetrics.MetricRefreshTerminal
	// MetricSessionRestored is an exported metric identifier used by the session client.
	MetricSessionRestored = internalmetrics.MetricSessionRestored
	// MetricRestoreFallbackRefresh is an exported metric identifier used by the session client.
	MetricRestoreFallbackRefresh = internalmetrics.MetricRestoreFallbackRefresh
	// MetricRestoreMiss is an exported metric identifier used by the session client.
	MetricRestoreMiss = internalmetrics.MetricRestoreMiss
	// MetricSessionExpired is an exported metric identifier used by the session client.
	MetricSessionExpired = internalmetrics.MetricSessionExpired
	// MetricTokenFromCache is an exported metric identifier used by the session client.
	MetricTokenFromCache = internalmetrics.MetricTokenFromCache
	// MetricVerifyLocalReject is an exported metric identifier used by the session client.
	MetricVerifyLocalReject = internalmetrics.MetricVerifyLocalReject
	// MetricVerifyRemoteCall is an exported metric identifier used by the session client.
	MetricVerifyRemoteCall = internalmetrics.MetricVerifyRemoteCall
	// MetricVerifyNetworkError is an exported metric identifier used by the session client.
	MetricVerifyNetworkError = internalmetrics.MetricVerifyNetworkError
	// MetricLoginLatency is an exported metric identifier used by the session client.
	MetricLoginLatency = internalmetrics.MetricLoginLatency
	// MetricRefreshLatency is an exported metric identifier used by the session client.
	MetricRefreshLatency = internalmetrics.MetricRefreshLatency
)

// Metrics is the in-process metrics collector shared by the client and
// the exporters under metrics/export.
//
//	Docs: docs/metrics.md
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all counters and histogram
// buckets, returned by [Client.MetricsSnapshot].
//
//	Docs: docs/metrics.md
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a standalone [Metrics] collector. [Builder.Build]
// wires one automatically; this constructor exists for embedding the
// collector in other instrumentation.
func NewMetrics(enabled, latency bool) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       enabled,
		EnableLatency: latency,
	})
}

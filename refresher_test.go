package authsess

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func TestClassifyRefreshError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want RefreshFailureKind
	}{
		{"401 expired", &StatusError{Code: 401, Body: "token expired"}, RefreshFailureTokenExpired},
		{"403 expired", &StatusError{Code: 403, Body: "session expired"}, RefreshFailureTokenExpired},
		{"401 revoked", &StatusError{Code: 401, Body: "refresh token revoked"}, RefreshFailureTokenRevoked},
		{"401 bare", &StatusError{Code: 401, Body: "unauthorized"}, RefreshFailureTokenRevoked},
		{"403 bare", &StatusError{Code: 403, Body: "forbidden"}, RefreshFailureTokenRevoked},
		{"500 server", &StatusError{Code: 500, Body: "internal error"}, RefreshFailureServer},
		{"503 server", &StatusError{Code: 503, Body: "maintenance"}, RefreshFailureServer},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, RefreshFailureNetwork},
		{"deadline", context.DeadlineExceeded, RefreshFailureNetwork},
		{"text expired", errors.New("refresh rejected: token expired"), RefreshFailureTokenExpired},
		{"text revoked", errors.New("refresh rejected: token revoked"), RefreshFailureTokenRevoked},
		{"text invalid", errors.New("refresh rejected: token invalid"), RefreshFailureTokenRevoked},
		{"text other", errors.New("something odd happened"), RefreshFailureServer},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			failure := classifyRefreshError(tc.err)
			if failure.Kind != tc.want {
				t.Fatalf("expected kind %v, got %v (%+v)", tc.want, failure.Kind, failure)
			}
		})
	}
}

func TestRefreshFailureTerminal(t *testing.T) {
	cases := []struct {
		kind     RefreshFailureKind
		terminal bool
	}{
		{RefreshFailureTokenExpired, true},
		{RefreshFailureTokenRevoked, true},
		{RefreshFailureNoToken, true},
		{RefreshFailureNetwork, false},
		{RefreshFailureServer, false},
	}

	for _, tc := range cases {
		f := RefreshFailure{Kind: tc.kind}
		if f.Terminal() != tc.terminal {
			t.Fatalf("kind %v: expected terminal=%v", tc.kind, tc.terminal)
		}
	}
}

func TestRefreshFailureKindString(t *testing.T) {
	cases := map[RefreshFailureKind]string{
		RefreshFailureTokenExpired: "token_expired",
		RefreshFailureTokenRevoked: "token_revoked",
		RefreshFailureNoToken:      "no_refresh_token",
		RefreshFailureNetwork:      "network_error",
		RefreshFailureServer:       "server_error",
		RefreshFailureKind(99):     "unknown",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Fatalf("kind %d: expected %q, got %q", kind, want, got)
		}
	}
}

func TestRefreshFailureErrorAndUnwrap(t *testing.T) {
	cause := errors.New("tls handshake failed")
	f := &RefreshFailure{
		Kind:    RefreshFailureNetwork,
		Message: "backend unreachable",
		Cause:   cause,
	}

	msg := f.Error()
	for _, want := range []string{"token refresh failed", "network_error", "backend unreachable", "tls handshake failed"} {
		if !containsFold(msg, want) {
			t.Fatalf("expected %q in error message %q", want, msg)
		}
	}
	if !errors.Is(f, cause) {
		t.Fatal("expected Unwrap to expose the cause")
	}

	withStatus := &RefreshFailure{Kind: RefreshFailureTokenRevoked, Code: 401, Message: "revoked"}
	if !containsFold(withStatus.Error(), "status 401") {
		t.Fatalf("expected status in message, got %q", withStatus.Error())
	}
}

func TestRefreshFailuresSubscriptionDeliversAndCancels(t *testing.T) {
	repo := &fakeRepo{loginFn: expiredLogin}
	repo.setRefreshFn(func(context.Context, string) (*RefreshResponse, error) {
		return nil, &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	})

	client, _ := newTestClient(t, repo)
	ctx := context.Background()

	if _, err := client.Login(ctx, validCreds()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	failures, cancel := client.RefreshFailures(4)

	if _, err := client.Token(ctx); err == nil {
		t.Fatal("expected Token to fail")
	}

	select {
	case f := <-failures:
		if f.Kind != RefreshFailureNetwork {
			t.Fatalf("expected network failure, got %v", f.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected a failure delivery")
	}

	cancel()

	if _, err := client.Token(ctx); err == nil {
		t.Fatal("expected Token to fail")
	}
	select {
	case f, ok := <-failures:
		if ok {
			t.Fatalf("unexpected delivery after cancel: %+v", f)
		}
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRefreshFailureBroadcastNeverBlocksFlight(t *testing.T) {
	repo := &fakeRepo{loginFn: expiredLogin}
	repo.setRefreshFn(func(context.Context, string) (*RefreshResponse, error) {
		return nil, &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	})

	client, _ := newTestClient(t, repo)
	ctx := context.Background()

	if _, err := client.Login(ctx, validCreds()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// Nobody drains this subscription; its buffer fills after one
	// failure and later broadcasts must drop rather than stall.
	failures, cancel := client.RefreshFailures(1)
	defer cancel()

	for i := 0; i < 3; i++ {
		start := time.Now()
		if _, err := client.Token(ctx); err == nil {
			t.Fatal("expected Token to fail")
		}
		if time.Since(start) > time.Second {
			t.Fatal("flight stalled behind a full subscriber")
		}
	}

	// Exactly the first failure is buffered.
	select {
	case f := <-failures:
		if f.Kind != RefreshFailureNetwork {
			t.Fatalf("expected network failure, got %v", f.Kind)
		}
	default:
		t.Fatal("expected one buffered failure")
	}
	select {
	case f := <-failures:
		t.Fatalf("expected later broadcasts dropped, got %+v", f)
	default:
	}
	if got := client.refresher.droppedNotices(); got < 2 {
		t.Fatalf("expected at least 2 dropped notices, got %d", got)
	}
}

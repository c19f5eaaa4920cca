package authsess

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
)

func TestClassifyLoginErrorStatusCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"401", &StatusError{Code: 401, Body: "bad password"}, ErrInvalidCredentials},
		{"404", &StatusError{Code: 404, Body: "no such user"}, ErrUserNotFound},
		{"423", &StatusError{Code: 423, Body: "account locked"}, ErrAccountLocked},
		{"403", &StatusError{Code: 403, Body: "forbidden"}, ErrUserInactive},
		{"inactive body", &StatusError{Code: 400, Body: "account inactive"}, ErrUserInactive},
		{"500", &StatusError{Code: 500, Body: "boom"}, ErrUnknown},
		{"wrapped status", fmt.Errorf("login: %w", &StatusError{Code: 404, Body: "gone"}), ErrUserNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyLoginError(tc.err); !errors.Is(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestClassifyLoginErrorPlainText(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"invalid credentials", errors.New("invalid credentials"), ErrInvalidCredentials},
		{"not found", errors.New("user not found"), ErrUserNotFound},
		{"locked", errors.New("this account is locked"), ErrAccountLocked},
		{"inactive", errors.New("user inactive"), ErrUserInactive},
		{"unknown", errors.New("some other failure"), ErrUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyLoginError(tc.err); !errors.Is(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

// Dial errors embed addresses whose digits look like status codes. The
// transport check must win over the numeric substring fallback.
func TestClassifyLoginErrorDialAddressNotMisreadAsStatus(t *testing.T) {
	err := errors.New("dial tcp 10.40.4.1:443: connect: connection refused")

	got := classifyLoginError(err)
	if !errors.Is(got, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", got)
	}
	if errors.Is(got, ErrUserNotFound) || errors.Is(got, ErrInvalidCredentials) {
		t.Fatalf("address digits classified as a status code: %v", got)
	}
}

func TestIsNetworkError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, true},
		{"dns error", &net.DNSError{Err: "no such host", Name: "api.example.com"}, true},
		{"wrapped op error", fmt.Errorf("request: %w", &net.OpError{Op: "read", Err: errors.New("reset")}), true},
		{"refused text", errors.New("dial tcp: connect: connection refused"), true},
		{"reset text", errors.New("read: connection reset by peer"), true},
		{"no host text", errors.New("lookup api: no such host"), true},
		{"timeout text", errors.New("request timeout exceeded"), true},
		{"status error", &StatusError{Code: 503, Body: "service unavailable"}, false},
		{"plain failure", errors.New("something broke"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isNetworkError(tc.err); got != tc.want {
				t.Fatalf("isNetworkError(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestStatusErrorMessage(t *testing.T) {
	bare := &StatusError{Code: 502, Body: "bad gateway"}
	if bare.Error() != "backend status 502: bad gateway" {
		t.Fatalf("unexpected message: %q", bare.Error())
	}

	traced := &StatusError{Code: 401, Body: "unauthorized", RequestID: "req-778"}
	if traced.Error() != "backend status 401: unauthorized (request req-778)" {
		t.Fatalf("unexpected message: %q", traced.Error())
	}
}

func TestContainsFold(t *testing.T) {
	if !containsFold("Account LOCKED by admin", "locked") {
		t.Fatal("expected case-insensitive match")
	}
	if containsFold("all fine", "locked") {
		t.Fatal("unexpected match")
	}
}

package authsess

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Sentinel errors returned by [Client.Login]. Match with [errors.Is];
// wrapped detail (status text, transport cause) rides along via %w.
//
//	Docs: docs/session.md
var (
	// ErrInvalidCredentials covers both local input rejection and a
	// backend 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound maps a backend 404.
	ErrUserNotFound = errors.New("user not found")

	// ErrAccountLocked maps a backend 423.
	ErrAccountLocked = errors.New("account locked")

	// ErrUserInactive maps a backend 403 or an "inactive" rejection.
	ErrUserInactive = errors.New("user inactive")

	// ErrNetwork marks transport-level failures: the backend was never
	// reached or never answered. The session is not torn down for these.
	ErrNetwork = errors.New("network error")

	// ErrUnknown marks backend answers that fit no known category.
	ErrUnknown = errors.New("unknown auth error")

	// ErrClientClosed is returned by operations invoked after
	// [Client.Close].
	ErrClientClosed = errors.New("auth client closed")
)

// Validation sentinels returned by [Validator.QuickValidate].
var (
	// ErrTokenExpired means the token's exp claim has passed.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenNotYetValid means the token's nbf claim is in the future.
	ErrTokenNotYetValid = errors.New("token not yet valid")
)

// StatusError is a non-2xx backend answer. Repository implementations
// return it so the client can classify rejections by status code instead
// of scraping message text.
type StatusError struct {
	Code      int
	Body      string
	RequestID string
}

func (e *StatusError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("backend status %d: %s (request %s)", e.Code, e.Body, e.RequestID)
	}
	return fmt.Sprintf("backend status %d: %s", e.Code, e.Body)
}

// classifyLoginError maps a [Repository.Login] failure onto the sentinel
// taxonomy. Structured [*StatusError] values are classified by status
// code. For foreign repository implementations that only surface plain
// errors, a message-substring fallback is kept; transport detection runs
// before the numeric fallback so that addresses appearing in dial errors
// are never misread as status codes.
func classifyLoginError(err error) error {
	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.Code == 401:
			return ErrInvalidCredentials
		case se.Code == 404:
			return ErrUserNotFound
		case se.Code == 423:
			return ErrAccountLocked
		case se.Code == 403 || containsFold(se.Body, "inactive"):
			return ErrUserInactive
		default:
			return fmt.Errorf("%w: %v", ErrUnknown, err)
		}
	}

	if isNetworkError(err) {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401"), strings.Contains(msg, "invalid credentials"):
		return ErrInvalidCredentials
	case strings.Contains(msg, "404"), strings.Contains(msg, "not found"):
		return ErrUserNotFound
	case strings.Contains(msg, "423"), strings.Contains(msg, "locked"):
		return ErrAccountLocked
	case strings.Contains(msg, "403"), strings.Contains(msg, "inactive"):
		return ErrUserInactive
	default:
		return fmt.Errorf("%w: %v", ErrUnknown, err)
	}
}

// isNetworkError reports whether err is a transport failure rather than
// a backend decision. Structured checks come first; the substring pass
// catches errors flattened to strings by intermediate layers.
func isNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"connection refused",
		"connection reset",
		"no such host",
		"network is unreachable",
		"broken pipe",
		"timeout",
		"unexpected eof",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}

package authsess

import (
	"context"
	"errors"
	"time"

	"github.com/lumora-app/authsess/storage"
)

const (
	eventLoginSuccess    = "login_success"
	eventLoginFailure    = "login_failure"
	eventLogout          = "logout"
	eventRefreshSuccess  = "refresh_success"
	eventRefreshFailed   = "refresh_failed"
	eventSessionRestored = "session_restored"
	eventRestoreFallback = "restore_fallback"
	eventSessionExpired  = "session_expired"
)

// EventErrorCode defines a public type used by authsess APIs.
//
// EventErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type EventErrorCode string

const (
	eventErrInvalidCredentials EventErrorCode = "invalid_credentials"
	eventErrUserNotFound       EventErrorCode = "user_not_found"
	eventErrAccountLocked      EventErrorCode = "account_locked"
	eventErrUserInactive       EventErrorCode = "user_inactive"
	eventErrNetwork            EventErrorCode = "network_error"
	eventErrTokenExpired       EventErrorCode = "token_expired"
	eventErrTokenRevoked       EventErrorCode = "token_revoked"
	eventErrNoRefreshToken     EventErrorCode = "no_refresh_token"
	eventErrServer             EventErrorCode = "server_error"
	eventErrStoreUnavailable   EventErrorCode = "store_unavailable"
	eventErrInternal           EventErrorCode = "internal_error"
)

func (c *Client) emitEvent(
	ctx context.Context,
	eventType string,
	success bool,
	user UserInfo,
	err error,
	metadataBuilder func() map[string]string,
) {
	if c == nil || c.events == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    user.ID,
		SchoolID:  user.SchoolID,
		Success:   success,
		Metadata:  metadata,
	}
	if code := eventErrorCode(err); code != "" {
		event.Error = string(code)
	}

	c.events.Emit(ctx, event)
}

func eventErrorCode(err error) EventErrorCode {
	if err == nil {
		return ""
	}

	var rf *RefreshFailure
	if errors.As(err, &rf) {
		switch rf.Kind {
		case RefreshFailureTokenExpired:
			return eventErrTokenExpired
		case RefreshFailureTokenRevoked:
			return eventErrTokenRevoked
		case RefreshFailureNoToken:
			return eventErrNoRefreshToken
		case RefreshFailureNetwork:
			return eventErrNetwork
		default:
			return eventErrServer
		}
	}

	switch {
	case errors.Is(err, storage.ErrUnavailable):
		return eventErrStoreUnavailable
	case errors.Is(err, ErrInvalidCredentials):
		return eventErrInvalidCredentials
	case errors.Is(err, ErrUserNotFound):
		return eventErrUserNotFound
	case errors.Is(err, ErrAccountLocked):
		return eventErrAccountLocked
	case errors.Is(err, ErrUserInactive):
		return eventErrUserInactive
	case errors.Is(err, ErrNetwork):
		return eventErrNetwork
	default:
		return eventErrInternal
	}
}

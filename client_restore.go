package authsess

import (
	"context"
	"errors"
	"log"
)

// RestoreSession describes the restoresession operation and its observable behavior.
//
// RestoreSession may return an error when input validation, dependency calls, or security checks fail.
// RestoreSession does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) RestoreSession(ctx context.Context) (bool, error) {
	if c == nil || c.closed.Load() {
		return false, ErrClientClosed
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	tok, haveToken, err := c.session.loadToken(ctx)
	if err != nil {
		return false, err
	}
	user, haveUser, err := c.session.loadUser(ctx)
	if err != nil {
		return false, err
	}

	if !haveToken || !haveUser {
		// Either nothing was persisted or what was there is unusable.
		// Clear remnants so the next start sees a clean store.
		if err := c.session.clear(ctx); err != nil {
			log.Printf("authsess: clearing unusable persisted session failed: %v", err)
		}
		c.state.set(Unauthenticated{})
		c.metricInc(MetricRestoreMiss)
		c.emitEvent(ctx, eventRestoreFallback, false, UserInfo{}, nil, func() map[string]string {
			return map[string]string{"reason": "no_persisted_session"}
		})
		return false, nil
	}

	if !c.tokenExpired(tok) {
		c.state.set(Authenticated{User: user, Token: tok})
		c.metricInc(MetricSessionRestored)
		c.emitEvent(ctx, eventSessionRestored, true, user, nil, func() map[string]string {
			return map[string]string{"source": "storage"}
		})
		return true, nil
	}

	if !tok.HasRefresh() {
		if err := c.session.clear(ctx); err != nil {
			log.Printf("authsess: clearing expired session without refresh token failed: %v", err)
		}
		c.state.set(Unauthenticated{})
		c.metricInc(MetricRestoreMiss)
		c.emitEvent(ctx, eventRestoreFallback, false, user, nil, func() map[string]string {
			return map[string]string{"reason": "expired_without_refresh"}
		})
		return false, nil
	}

	c.metricInc(MetricRestoreFallbackRefresh)
	fresh, err := c.refresher.forceRefresh(ctx)
	if err != nil {
		// Restore answers (false, nil) for any refresh failure; the
		// caller's question is "is there a session", and there is not.
		if clearErr := c.session.clear(ctx); clearErr != nil {
			log.Printf("authsess: clearing session after failed restore refresh failed: %v", clearErr)
		}
		c.state.set(Unauthenticated{})
		c.metricInc(MetricRestoreMiss)
		c.emitEvent(ctx, eventRestoreFallback, false, user, err, func() map[string]string {
			return map[string]string{"reason": restoreFailureReason(err)}
		})
		return false, nil
	}

	c.state.set(Authenticated{User: user, Token: fresh})
	c.metricInc(MetricSessionRestored)
	c.emitEvent(ctx, eventSessionRestored, true, user, nil, func() map[string]string {
		return map[string]string{"source": "refresh"}
	})
	return true, nil
}

func restoreFailureReason(err error) string {
	var rf *RefreshFailure
	if errors.As(err, &rf) {
		return rf.Kind.String()
	}
	return "refresh_failed"
}

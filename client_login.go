package authsess

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginOutcome, error) {
	if c == nil || c.closed.Load() {
		return nil, ErrClientClosed
	}

	email := strings.ToLower(strings.TrimSpace(creds.Email))
	if email == "" || !strings.Contains(email, "@") || strings.TrimSpace(creds.Password) == "" {
		c.metricInc(MetricLoginRejectedLocal)
		c.emitEvent(ctx, eventLoginFailure, false, UserInfo{}, ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"stage": "local"}
		})
		return nil, ErrInvalidCredentials
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	// A login over a live session replaces it. Clear locally first so a
	// failed re-login cannot leave the old session half alive.
	if _, ok := c.state.get().(Authenticated); ok {
		if err := c.session.clear(ctx); err != nil {
			log.Printf("authsess: clearing previous session before login failed: %v", err)
		}
	}

	start := time.Now()
	c.state.set(LoggingIn{})

	resp, err := c.repo.Login(ctx, Credentials{Email: email, Password: creds.Password})
	if err != nil {
		c.state.set(Unauthenticated{})
		classified := classifyLoginError(err)
		c.metricInc(MetricLoginFailure)
		c.emitEvent(ctx, eventLoginFailure, false, UserInfo{}, classified, func() map[string]string {
			return map[string]string{"email": email}
		})
		return nil, classified
	}

	user := userFromPayload(resp.User)
	tok := tokenFromLogin(resp, c.now())

	if err := c.session.saveToken(ctx, tok); err != nil {
		c.abortLogin(ctx, email, err)
		return nil, fmt.Errorf("%w: persist session token: %v", ErrUnknown, err)
	}
	if err := c.session.saveUser(ctx, user); err != nil {
		c.abortLogin(ctx, email, err)
		return nil, fmt.Errorf("%w: persist session user: %v", ErrUnknown, err)
	}

	c.state.set(Authenticated{User: user, Token: tok})

	c.metricInc(MetricLoginSuccess)
	if c.metrics.LatencyEnabled() {
		c.metrics.Observe(MetricLoginLatency, time.Since(start))
	}
	c.emitEvent(ctx, eventLoginSuccess, true, user, nil, nil)

	return &LoginOutcome{User: user, Token: tok}, nil
}

// abortLogin backs out of a half-persisted login so storage and state
// stay consistent.
func (c *Client) abortLogin(ctx context.Context, email string, cause error) {
	if err := c.session.clear(ctx); err != nil {
		log.Printf("authsess: clearing half-persisted session failed: %v", err)
	}
	c.state.set(Unauthenticated{})
	c.metricInc(MetricLoginFailure)
	c.emitEvent(ctx, eventLoginFailure, false, UserInfo{}, cause, func() map[string]string {
		return map[string]string{"email": email, "stage": "persist"}
	})
}

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Logout(ctx context.Context) error {
	if c == nil || c.closed.Load() {
		return ErrClientClosed
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	auth, wasAuthenticated := c.state.get().(Authenticated)
	if wasAuthenticated {
		if err := c.repo.Logout(ctx, auth.Token.AccessToken); err != nil {
			log.Printf("authsess: backend logout failed, clearing local session anyway: %v", err)
		}
	}

	if err := c.session.clear(ctx); err != nil {
		log.Printf("authsess: session storage clear failed on logout: %v", err)
	}
	c.state.set(Unauthenticated{})

	c.metricInc(MetricLogout)
	c.emitEvent(ctx, eventLogout, true, auth.User, nil, nil)

	return nil
}

func userFromPayload(p UserPayload) UserInfo {
	return UserInfo{
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		Role:        p.Role,
		SchoolID:    p.SchoolID,
	}
}

func tokenFromLogin(resp *LoginResponse, now time.Time) Token {
	return Token{
		AccessToken:  resp.AccessToken,
		ExpiresAt:    now.Add(time.Duration(resp.ExpiresIn) * time.Second).UTC(),
		RefreshToken: resp.RefreshToken,
	}
}

package authsess

import "context"

// Token describes the token operation and its observable behavior.
//
// Token may return an error when input validation, dependency calls, or security checks fail.
// Token does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Token(ctx context.Context) (string, error) {
	if c == nil || c.closed.Load() {
		return "", ErrClientClosed
	}

	if auth, ok := c.state.get().(Authenticated); ok && !c.tokenExpired(auth.Token) {
		c.metricInc(MetricTokenFromCache)
		return auth.Token.AccessToken, nil
	}

	tok, err := c.ForceRefresh(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// ForceRefresh describes the forcerefresh operation and its observable behavior.
//
// ForceRefresh may return an error when input validation, dependency calls, or security checks fail.
// ForceRefresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) ForceRefresh(ctx context.Context) (Token, error) {
	if c == nil || c.closed.Load() {
		return Token{}, ErrClientClosed
	}

	tok, err := c.refresher.forceRefresh(ctx)
	if err != nil {
		return Token{}, err
	}

	c.adoptRefreshedToken(tok)
	return tok, nil
}

// adoptRefreshedToken swaps the refreshed token into the live state.
// The swap only happens while still authenticated: a logout that landed
// after the refresh started wins, and the fresh token is not
// resurrected into a dead session. The refresh token identifies the
// session, so a re-login that landed mid-flight keeps its own token.
func (c *Client) adoptRefreshedToken(tok Token) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	auth, ok := c.state.get().(Authenticated)
	if !ok {
		return
	}
	if auth.Token.RefreshToken != tok.RefreshToken {
		return
	}
	auth.Token = tok
	c.state.set(auth)
}

// tokenExpired applies the configured leeway so tokens about to expire
// count as expired and refresh starts ahead of the deadline.
func (c *Client) tokenExpired(tok Token) bool {
	return tok.Expired(c.now().Add(c.config.Tokens.ExpiryLeeway))
}

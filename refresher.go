package authsess

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// RefreshFailureKind classifies token refresh failures.
//
//	Docs: docs/refresh.md
type RefreshFailureKind uint8

const (
	// RefreshFailureTokenExpired means the backend rejected the refresh
	// token as expired. Terminal.
	RefreshFailureTokenExpired RefreshFailureKind = iota
	// RefreshFailureTokenRevoked means the backend rejected the refresh
	// token as revoked or otherwise invalid. Terminal.
	RefreshFailureTokenRevoked
	// RefreshFailureNoToken means no refresh token was available to
	// send. Terminal.
	RefreshFailureNoToken
	// RefreshFailureNetwork means the backend was never reached or the
	// session store failed. Transient.
	RefreshFailureNetwork
	// RefreshFailureServer means the backend answered with a non-auth
	// failure such as a 5xx. Transient.
	RefreshFailureServer
)

func (k RefreshFailureKind) String() string {
	switch k {
	case RefreshFailureTokenExpired:
		return "token_expired"
	case RefreshFailureTokenRevoked:
		return "token_revoked"
	case RefreshFailureNoToken:
		return "no_refresh_token"
	case RefreshFailureNetwork:
		return "network_error"
	case RefreshFailureServer:
		return "server_error"
	default:
		return "unknown"
	}
}

// RefreshFailure is the classified outcome of a failed refresh attempt.
// Terminal failures tear the session down and produce one
// [ExpiryNotice]; transient failures leave all session state untouched
// so a later attempt can succeed.
//
//	Docs: docs/refresh.md
type RefreshFailure struct {
	Kind    RefreshFailureKind
	Code    int
	Message string
	Cause   error
}

func (f *RefreshFailure) Error() string {
	var b strings.Builder
	b.WriteString("token refresh failed: ")
	b.WriteString(f.Kind.String())
	if f.Code != 0 {
		fmt.Fprintf(&b, " (status %d)", f.Code)
	}
	if f.Message != "" {
		b.WriteString(": ")
		b.WriteString(f.Message)
	}
	if f.Cause != nil {
		b.WriteString(": ")
		b.WriteString(f.Cause.Error())
	}
	return b.String()
}

func (f *RefreshFailure) Unwrap() error {
	return f.Cause
}

// Terminal reports whether this failure invalidates the session.
func (f *RefreshFailure) Terminal() bool {
	switch f.Kind {
	case RefreshFailureTokenExpired, RefreshFailureTokenRevoked, RefreshFailureNoToken:
		return true
	default:
		return false
	}
}

// classifyRefreshError maps a [Repository.Refresh] failure onto the
// [RefreshFailure] taxonomy. Structured [*StatusError] answers classify
// by status code with a body-substring tiebreak between expired and
// revoked; transport errors become the transient network kind.
func classifyRefreshError(err error) *RefreshFailure {
	var se *StatusError
	if errors.As(err, &se) {
		body := strings.ToLower(se.Body)
		switch {
		case (se.Code == 401 || se.Code == 403) && strings.Contains(body, "expired"):
			return &RefreshFailure{Kind: RefreshFailureTokenExpired, Code: se.Code, Message: se.Body}
		case se.Code == 401 || se.Code == 403:
			return &RefreshFailure{Kind: RefreshFailureTokenRevoked, Code: se.Code, Message: se.Body}
		default:
			return &RefreshFailure{Kind: RefreshFailureServer, Code: se.Code, Message: se.Body}
		}
	}

	if isNetworkError(err) {
		return &RefreshFailure{Kind: RefreshFailureNetwork, Message: "backend unreachable", Cause: err}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "expired"):
		return &RefreshFailure{Kind: RefreshFailureTokenExpired, Message: err.Error()}
	case strings.Contains(msg, "revoked"), strings.Contains(msg, "invalid"):
		return &RefreshFailure{Kind: RefreshFailureTokenRevoked, Message: err.Error()}
	default:
		return &RefreshFailure{Kind: RefreshFailureServer, Message: err.Error(), Cause: err}
	}
}

const refreshFlightKey = "refresh"

// refresherDeps captures refresh flow dependencies.
type refresherDeps struct {
	repo    Repository
	session *sessionStore
	metrics *Metrics
	emit    func(ctx context.Context, eventType string, success bool, err error, metadataBuilder func() map[string]string)
	timeout time.Duration
	now     func() time.Time
}

// refresher coalesces concurrent refresh demands into one backend call.
// The flight runs on a context detached from any single caller, bounded
// only by the configured timeout, so one caller giving up never poisons
// the result for the rest. The refreshed token is persisted before any
// waiter is released.
type refresher struct {
	deps  refresherDeps
	group singleflight.Group

	mu      sync.Mutex
	subs    map[int]chan RefreshFailure
	nextSub int
	dropped atomic.Uint64
}

func newRefresher(deps refresherDeps) *refresher {
	if deps.now == nil {
		deps.now = time.Now
	}
	if deps.emit == nil {
		deps.emit = func(context.Context, string, bool, error, func() map[string]string) {}
	}
	return &refresher{
		deps: deps,
		subs: make(map[int]chan RefreshFailure),
	}
}

// forceRefresh joins or starts the shared refresh flight. The caller's
// ctx only governs how long this caller waits; an abandoned wait leaves
// the flight running for the other waiters.
func (r *refresher) forceRefresh(ctx context.Context) (Token, error) {
	flight := context.WithoutCancel(ctx)
	ch := r.group.DoChan(refreshFlightKey, func() (any, error) {
		return r.run(flight)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Token{}, res.Err
		}
		if res.Shared {
			r.deps.metrics.Inc(MetricRefreshCoalesced)
		}
		return res.Val.(Token), nil
	case <-ctx.Done():
		return Token{}, ctx.Err()
	}
}

// run executes one refresh attempt. It is only ever invoked through the
// singleflight group, so at most one instance is live at a time.
func (r *refresher) run(parent context.Context) (Token, error) {
	ctx, cancel := context.WithTimeout(parent, r.deps.timeout)
	defer cancel()

	start := time.Now()

	gen := r.deps.session.generation()
	current, ok, err := r.deps.session.loadToken(ctx)
	if err != nil {
		return r.fail(ctx, &RefreshFailure{Kind: RefreshFailureNetwork, Message: "session store read failed", Cause: err})
	}
	if !ok || current.RefreshToken == "" {
		return r.fail(ctx, &RefreshFailure{Kind: RefreshFailureNoToken, Message: "no refresh token in session"})
	}

	resp, err := r.deps.repo.Refresh(ctx, current.RefreshToken)
	if err != nil {
		return r.fail(ctx, classifyRefreshError(err))
	}

	next := Token{
		AccessToken: resp.AccessToken,
		ExpiresAt:   r.deps.now().Add(time.Duration(resp.ExpiresIn) * time.Second).UTC(),
		// The backend does not rotate refresh tokens; carry the one we
		// sent forward unchanged.
		RefreshToken: current.RefreshToken,
	}

	persisted, err := r.deps.session.saveTokenIfCurrent(ctx, next, gen)
	if err != nil {
		return r.fail(ctx, &RefreshFailure{Kind: RefreshFailureNetwork, Message: "persist refreshed token failed", Cause: err})
	}
	if !persisted {
		// A logout or re-login retired the session mid-flight. The dead
		// session's token must not land back in storage; waiters get
		// the token but their state guard will not adopt it.
		return next, nil
	}

	r.deps.metrics.Inc(MetricRefreshSuccess)
	r.deps.metrics.Observe(MetricRefreshLatency, time.Since(start))
	r.deps.emit(ctx, eventRefreshSuccess, true, nil, nil)

	return next, nil
}

// fail records, broadcasts, and returns one classified failure. Runs
// once per flight, so subscribers see one notice per attempt no matter
// how many callers were waiting.
func (r *refresher) fail(ctx context.Context, f *RefreshFailure) (Token, error) {
	r.deps.metrics.Inc(MetricRefreshFailure)
	if f.Terminal() {
		r.deps.metrics.Inc(MetricRefreshTerminal)
	}
	r.deps.emit(ctx, eventRefreshFailed, false, f, func() map[string]string {
		return map[string]string{"kind": f.Kind.String()}
	})
	r.broadcast(*f)
	return Token{}, f
}

func (r *refresher) subscribe(buffer int) (<-chan RefreshFailure, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan RefreshFailure, buffer)

	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if existing, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(existing)
		}
	}
	return ch, cancel
}

func (r *refresher) broadcast(f RefreshFailure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- f:
		default:
			log.Printf("authsess: refresh failure subscriber full, dropping %s notice (%d dropped total)", f.Kind, r.dropped.Add(1))
		}
	}
}

// droppedNotices reports how many failure notices were dropped on full
// subscriber buffers since the refresher was created.
func (r *refresher) droppedNotices() uint64 {
	return r.dropped.Load()
}

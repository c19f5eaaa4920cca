package authsess

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	internalevents "github.com/lumora-app/authsess/internal/events"
)

// Client defines a public type used by authsess APIs.
//
// Client instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Client struct {
	config    Config
	repo      Repository
	session   *sessionStore
	state     *stateCell
	refresher *refresher
	validator *Validator
	events    *internalevents.Dispatcher
	metrics   *Metrics

	// opMu serializes login, logout, restore, and teardown. It is held
	// across the backend calls those operations make; token reads and
	// refreshes never take it.
	opMu sync.Mutex

	expiryCh    chan ExpiryNotice
	unsubscribe func()
	watcherDone chan struct{}

	closed    atomic.Bool
	closeOnce sync.Once

	now func() time.Time
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		if c.unsubscribe != nil {
			c.unsubscribe()
		}
		if c.watcherDone != nil {
			<-c.watcherDone
		}
		if c.expiryCh != nil {
			close(c.expiryCh)
		}
		if c.events != nil {
			c.events.Close()
		}
	})
}

// State describes the state operation and its observable behavior.
//
// State may return an error when input validation, dependency calls, or security checks fail.
// State does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) State() State {
	if c == nil {
		return Unauthenticated{}
	}
	return c.state.get()
}

// IsAuthenticated describes the isauthenticated operation and its observable behavior.
//
// IsAuthenticated may return an error when input validation, dependency calls, or security checks fail.
// IsAuthenticated does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) IsAuthenticated() bool {
	_, ok := c.State().(Authenticated)
	return ok
}

// CurrentUser describes the currentuser operation and its observable behavior.
//
// CurrentUser may return an error when input validation, dependency calls, or security checks fail.
// CurrentUser does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) CurrentUser() (UserInfo, bool) {
	auth, ok := c.State().(Authenticated)
	if !ok {
		return UserInfo{}, false
	}
	return auth.User, true
}

// Validator describes the validator operation and its observable behavior.
//
// Validator may return an error when input validation, dependency calls, or security checks fail.
// Validator does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Validator() *Validator {
	return c.validator
}

// SessionExpired returns the channel that delivers at most one
// [ExpiryNotice] per authenticated session, sent when a terminal
// refresh failure tears the session down. The channel is closed by
// [Client.Close].
//
//	Docs: docs/refresh.md
func (c *Client) SessionExpired() <-chan ExpiryNotice {
	return c.expiryCh
}

// RefreshFailures subscribes to the classified failure broadcast. Every
// failed refresh attempt, transient or terminal, produces one value per
// subscriber. The returned cancel func must be called when done; a
// slow subscriber loses notices rather than blocking refreshes.
//
//	Docs: docs/refresh.md
func (c *Client) RefreshFailures(buffer int) (<-chan RefreshFailure, func()) {
	return c.refresher.subscribe(buffer)
}

// EventsDropped describes the eventsdropped operation and its observable behavior.
//
// EventsDropped may return an error when input validation, dependency calls, or security checks fail.
// EventsDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) EventsDropped() uint64 {
	if c == nil || c.events == nil {
		return 0
	}
	return c.events.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

func (c *Client) metricInc(id MetricID) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Inc(id)
}

func (c *Client) currentUser() UserInfo {
	user, _ := c.CurrentUser()
	return user
}

// watchRefreshFailures consumes the refresher's broadcast and performs
// session teardown on terminal failures. Runs until the subscription is
// cancelled by Close.
func (c *Client) watchRefreshFailures(failures <-chan RefreshFailure) {
	defer close(c.watcherDone)
	for f := range failures {
		if !f.Terminal() {
			continue
		}
		c.tearDownSession(f)
	}
}

// tearDownSession clears the persisted session and drops to
// [Unauthenticated]. Only a real Authenticated to Unauthenticated
// transition emits the expiry notice, so a session dies exactly once
// no matter how many terminal failures arrive.
func (c *Client) tearDownSession(f RefreshFailure) {
	c.opMu.Lock()
	auth, ok := c.state.get().(Authenticated)
	if !ok {
		c.opMu.Unlock()
		return
	}

	timeout := c.config.API.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := c.session.clear(ctx); err != nil {
		log.Printf("authsess: session storage clear failed during teardown: %v", err)
	}
	c.state.set(Unauthenticated{})
	c.opMu.Unlock()

	c.metricInc(MetricSessionExpired)
	c.emitEvent(ctx, eventSessionExpired, false, auth.User, &f, func() map[string]string {
		return map[string]string{"kind": f.Kind.String()}
	})

	notice := ExpiryNotice{
		Reason: f.Kind,
		UserID: auth.User.ID,
		At:     c.now(),
	}
	select {
	case c.expiryCh <- notice:
	default:
		log.Printf("authsess: expiry notice channel full, dropping notice for user %s", auth.User.ID)
	}
}

package authsess

import "sync/atomic"

// State is the session state observed through [Client.State]. Exactly
// three implementations exist: [Unauthenticated], [LoggingIn], and
// [Authenticated]. The set is closed; switch on the concrete type.
//
//	Docs: docs/session.md
type State interface {
	sealedState()
}

// Unauthenticated is the resting state: no session in memory.
type Unauthenticated struct{}

// LoggingIn is the transient state while a login call is in flight.
type LoggingIn struct{}

// Authenticated carries the active session. The embedded Token is the
// one most recently issued; refreshes swap it in place without touching
// User.
type Authenticated struct {
	User  UserInfo
	Token Token
}

func (Unauthenticated) sealedState() {}
func (LoggingIn) sealedState()       {}
func (Authenticated) sealedState()   {}

// stateCell publishes the current State through an atomic pointer so
// readers never contend with the operation lock. Writers must hold the
// client's opMu; set is a plain store, not a CAS, because the lock
// already serializes mutations.
type stateCell struct {
	cur atomic.Pointer[State]
}

func newStateCell() *stateCell {
	c := &stateCell{}
	c.set(Unauthenticated{})
	return c
}

func (c *stateCell) set(s State) {
	c.cur.Store(&s)
}

func (c *stateCell) get() State {
	return *c.cur.Load()
}

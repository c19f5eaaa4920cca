package authsess

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/lumora-app/authsess/storage"
)

// sessionStore round-trips the token pair and user profile through the
// configured storage.Store as JSON. Absent keys and undecodable values
// both come back as not-found; undecodable values are logged once per
// load so damaged stores surface in logs without breaking startup.
//
// Writes carry a generation number. clear bumps it, and a write
// predicated on an older generation is dropped, so a refresh flight
// that outlives its session cannot write a dead session's token back
// into storage.
type sessionStore struct {
	store    storage.Store
	tokenKey string
	userKey  string

	mu  sync.Mutex
	gen uint64
}

func newSessionStore(store storage.Store, cfg StorageConfig) *sessionStore {
	return &sessionStore{
		store:    store,
		tokenKey: cfg.TokenKey,
		userKey:  cfg.UserKey,
	}
}

// generation returns the current session generation. A caller that
// plans to write later snapshots this first and writes through
// saveTokenIfCurrent.
func (s *sessionStore) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (s *sessionStore) loadToken(ctx context.Context) (Token, bool, error) {
	raw, err := s.store.Get(ctx, s.tokenKey)
	if err != nil {
		return Token{}, false, err
	}
	if raw == "" {
		return Token{}, false, nil
	}

	var tok Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		log.Printf("authsess: persisted token under %q is not valid JSON, treating as absent: %v", s.tokenKey, err)
		return Token{}, false, nil
	}
	if tok.AccessToken == "" {
		log.Printf("authsess: persisted token under %q has no access token, treating as absent", s.tokenKey)
		return Token{}, false, nil
	}

	tok.ExpiresAt = tok.ExpiresAt.UTC()
	return tok, true, nil
}

func (s *sessionStore) saveToken(ctx context.Context, tok Token) error {
	raw, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Put(ctx, s.tokenKey, string(raw))
}

// saveTokenIfCurrent writes the token only while gen is still the live
// generation. It reports whether the write happened.
func (s *sessionStore) saveTokenIfCurrent(ctx context.Context, tok Token, gen uint64) (bool, error) {
	raw, err := json.Marshal(tok)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false, nil
	}
	return true, s.store.Put(ctx, s.tokenKey, string(raw))
}

func (s *sessionStore) loadUser(ctx context.Context) (UserInfo, bool, error) {
	raw, err := s.store.Get(ctx, s.userKey)
	if err != nil {
		return UserInfo{}, false, err
	}
	if raw == "" {
		return UserInfo{}, false, nil
	}

	var user UserInfo
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		log.Printf("authsess: persisted user under %q is not valid JSON, treating as absent: %v", s.userKey, err)
		return UserInfo{}, false, nil
	}
	if user.ID == "" {
		log.Printf("authsess: persisted user under %q has no ID, treating as absent", s.userKey)
		return UserInfo{}, false, nil
	}

	return user, true, nil
}

func (s *sessionStore) saveUser(ctx context.Context, user UserInfo) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Put(ctx, s.userKey, string(raw))
}

// clear removes both keys and retires the current generation. Deleting
// an absent key is a no-op in every bundled store, so clear is safe to
// call on any path that needs the persisted session gone.
func (s *sessionStore) clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	tokenErr := s.store.Delete(ctx, s.tokenKey)
	userErr := s.store.Delete(ctx, s.userKey)
	if tokenErr != nil {
		return tokenErr
	}
	return userErr
}

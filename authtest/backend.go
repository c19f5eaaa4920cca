package authtest

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// User is one seeded account.
type User struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
	Role        string
	SchoolID    string
	Locked      bool
	Inactive    bool
}

// scriptedFailure forces the refresh endpoint to answer with a fixed
// status until cleared.
type scriptedFailure struct {
	status  int
	message string
}

// Backend is the in-process stub server. Zero value is not usable;
// construct with [NewBackend] and release with [Backend.Close].
type Backend struct {
	srv    *httptest.Server
	secret []byte

	mu           sync.Mutex
	users        map[string]*User
	refreshOwner map[string]string
	revoked      map[string]bool
	accessTTL    time.Duration
	refreshFail  *scriptedFailure
	refreshDelay time.Duration
	offline      bool

	loginCalls   atomic.Int64
	logoutCalls  atomic.Int64
	refreshCalls atomic.Int64
	verifyCalls  atomic.Int64
}

// NewBackend starts the stub with a random signing secret and a 15
// minute access TTL. Callers seed accounts with [Backend.AddUser].
func NewBackend() *Backend {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("authtest: cannot read random secret: " + err.Error())
	}

	b := &Backend{
		secret:       secret,
		users:        make(map[string]*User),
		refreshOwner: make(map[string]string),
		revoked:      make(map[string]bool),
		accessTTL:    15 * time.Minute,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", b.handleLogin)
	mux.HandleFunc("/auth/logout", b.handleLogout)
	mux.HandleFunc("/auth/refresh", b.handleRefresh)
	mux.HandleFunc("/auth/verify", b.handleVerify)

	b.srv = httptest.NewServer(mux)
	return b
}

// URL returns the stub's base URL.
func (b *Backend) URL() string {
	return b.srv.URL
}

// Close shuts the stub down.
func (b *Backend) Close() {
	b.srv.Close()
}

// AddUser seeds one account. Email lookup is case-insensitive.
func (b *Backend) AddUser(u User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	copied := u
	b.users[strings.ToLower(u.Email)] = &copied
}

// SetAccessTTL changes the lifetime of newly minted access tokens.
// Negative values mint tokens that are already expired, which is the
// cheapest way to force refresh paths in tests.
func (b *Backend) SetAccessTTL(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accessTTL = d
}

// SetRefreshDelay makes every refresh answer stall first, giving
// concurrent callers time to pile onto one flight.
func (b *Backend) SetRefreshDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshDelay = d
}

// RevokeRefreshTokens marks every outstanding refresh token revoked.
func (b *Backend) RevokeRefreshTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for token := range b.refreshOwner {
		b.revoked[token] = true
	}
}

// FailRefresh forces the refresh endpoint to answer status/message
// until [Backend.ClearRefreshFailure].
func (b *Backend) FailRefresh(status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshFail = &scriptedFailure{status: status, message: message}
}

// ClearRefreshFailure removes a scripted refresh failure.
func (b *Backend) ClearRefreshFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshFail = nil
}

// SetOffline makes every endpoint sever the connection without a
// response, which clients observe as a transport error.
func (b *Backend) SetOffline(offline bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.offline = offline
}

// LoginCalls reports how many login requests arrived.
func (b *Backend) LoginCalls() int64 { return b.loginCalls.Load() }

// LogoutCalls reports how many logout requests arrived.
func (b *Backend) LogoutCalls() int64 { return b.logoutCalls.Load() }

// RefreshCalls reports how many refresh requests arrived.
func (b *Backend) RefreshCalls() int64 { return b.refreshCalls.Load() }

// VerifyCalls reports how many verify requests arrived.
func (b *Backend) VerifyCalls() int64 { return b.verifyCalls.Load() }

func (b *Backend) dropConnection(w http.ResponseWriter) bool {
	b.mu.Lock()
	offline := b.offline
	b.mu.Unlock()
	if !offline {
		return false
	}
	if hj, ok := w.(http.Hijacker); ok {
		if conn, _, err := hj.Hijack(); err == nil {
			_ = conn.Close()
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	b.loginCalls.Add(1)
	if b.dropConnection(w) {
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	user, ok := b.users[strings.ToLower(req.Email)]
	switch {
	case !ok:
		writeError(w, http.StatusNotFound, "user not found")
		return
	case user.Locked:
		writeError(w, http.StatusLocked, "account locked")
		return
	case user.Inactive:
		writeError(w, http.StatusForbidden, "user inactive")
		return
	case user.Password != req.Password:
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	access, err := b.mintAccessLocked(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token minting failed")
		return
	}

	refresh := newRefreshToken()
	b.refreshOwner[refresh] = strings.ToLower(user.Email)

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  access,
		"expires_in":    int64(b.accessTTL.Seconds()),
		"refresh_token": refresh,
		"token_type":    "Bearer",
		"user": map[string]string{
			"id":           user.ID,
			"email":        user.Email,
			"display_name": user.DisplayName,
			"role":         user.Role,
			"school_id":    user.SchoolID,
		},
	})
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	b.logoutCalls.Add(1)
	if b.dropConnection(w) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.refreshCalls.Add(1)
	if b.dropConnection(w) {
		return
	}

	b.mu.Lock()
	delay := b.refreshDelay
	b.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.refreshFail != nil {
		writeError(w, b.refreshFail.status, b.refreshFail.message)
		return
	}

	if b.revoked[req.RefreshToken] {
		writeError(w, http.StatusUnauthorized, "refresh token revoked")
		return
	}
	email, ok := b.refreshOwner[req.RefreshToken]
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	user, ok := b.users[email]
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	access, err := b.mintAccessLocked(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token minting failed")
		return
	}

	// Refresh tokens are not rotated; the client keeps sending the one
	// it got at login.
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": access,
		"expires_in":   int64(b.accessTTL.Seconds()),
		"token_type":   "Bearer",
	})
}

func (b *Backend) handleVerify(w http.ResponseWriter, r *http.Request) {
	b.verifyCalls.Add(1)
	if b.dropConnection(w) {
		return
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(req.Token, claims, func(*jwt.Token) (any, error) {
		return b.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		message := "token invalid"
		if errors.Is(err, jwt.ErrTokenExpired) {
			message = "token expired"
		}
		writeJSON(w, http.StatusOK, map[string]any{"valid": false, "error": message})
		return
	}

	email, _ := claims["email"].(string)

	b.mu.Lock()
	user, ok := b.users[strings.ToLower(email)]
	b.mu.Unlock()
	if !ok || user.Inactive {
		writeJSON(w, http.StatusOK, map[string]any{"valid": false, "error": "user inactive"})
		return
	}

	var expiresAt int64
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Unix()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"valid":     true,
		"userId":    user.ID,
		"email":     user.Email,
		"role":      user.Role,
		"schoolId":  user.SchoolID,
		"expiresAt": expiresAt,
	})
}

// mintAccessLocked signs a fresh HS256 access token. Callers hold b.mu.
func (b *Backend) mintAccessLocked(user *User) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":       user.ID,
		"email":     user.Email,
		"role":      user.Role,
		"school_id": user.SchoolID,
		"iat":       now.Unix(),
		"exp":       now.Add(b.accessTTL).Unix(),
		"jti":       uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
}

func newRefreshToken() string {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		panic("authtest: cannot read random refresh token: " + err.Error())
	}
	return "rt_" + base64.RawURLEncoding.EncodeToString(raw)
}

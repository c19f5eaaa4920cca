package authsess

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/lumora-app/authsess/jwt"
)

// mintJWT assembles an unsigned compact token. The validator never
// checks signatures, so a constant signature segment is enough.
func mintJWT(t *testing.T, payload map[string]any) string {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	return header + "." + base64.RawURLEncoding.EncodeToString(body) + ".sig"
}

func TestQuickValidateAcceptsLiveToken(t *testing.T) {
	v := NewValidator(&fakeRepo{})
	token := mintJWT(t, map[string]any{
		"sub": "user-9",
		"exp": time.Now().Add(10 * time.Minute).Unix(),
	})

	claims, err := v.QuickValidate(token)
	if err != nil {
		t.Fatalf("QuickValidate failed: %v", err)
	}
	if claims.Subject != "user-9" {
		t.Fatalf("expected subject user-9, got %q", claims.Subject)
	}
}

func TestQuickValidateMalformed(t *testing.T) {
	v := NewValidator(&fakeRepo{})

	claims, err := v.QuickValidate("definitely-not-a-jwt")
	if claims != nil {
		t.Fatalf("expected nil claims, got %+v", claims)
	}
	if !errors.Is(err, jwt.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestQuickValidateExpiredStillReturnsClaims(t *testing.T) {
	v := NewValidator(&fakeRepo{})
	token := mintJWT(t, map[string]any{
		"sub": "user-9",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	claims, err := v.QuickValidate(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if claims == nil || claims.Subject != "user-9" {
		t.Fatalf("expected decoded claims alongside the error, got %+v", claims)
	}
}

func TestQuickValidateNotYetValid(t *testing.T) {
	v := NewValidator(&fakeRepo{})
	token := mintJWT(t, map[string]any{
		"nbf": time.Now().Add(time.Hour).Unix(),
		"exp": time.Now().Add(2 * time.Hour).Unix(),
	})

	if _, err := v.QuickValidate(token); !errors.Is(err, ErrTokenNotYetValid) {
		t.Fatalf("expected ErrTokenNotYetValid, got %v", err)
	}
}

func TestValidateMalformedNeverReachesBackend(t *testing.T) {
	repo := &fakeRepo{}
	client, _ := newTestClient(t, repo)

	verdict, err := client.Validator().Validate(context.Background(), "garbage")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if verdict.Valid || verdict.Reason != ReasonMalformed {
		t.Fatalf("expected malformed verdict, got %+v", verdict)
	}

	if _, _, _, verify := repo.counts(); verify != 0 {
		t.Fatalf("expected no verify call, got %d", verify)
	}
	snap := client.MetricsSnapshot()
	if snap.Counters[MetricVerifyLocalReject] != 1 {
		t.Fatalf("expected one local reject, got %d", snap.Counters[MetricVerifyLocalReject])
	}
}

func TestValidateExpiredShortCircuitsLocally(t *testing.T) {
	repo := &fakeRepo{}
	client, _ := newTestClient(t, repo)
	token := mintJWT(t, map[string]any{
		"sub": "user-9",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	verdict, err := client.Validator().Validate(context.Background(), token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if verdict.Valid || verdict.Reason != ReasonExpired {
		t.Fatalf("expected expired verdict, got %+v", verdict)
	}
	if _, _, _, verify := repo.counts(); verify != 0 {
		t.Fatalf("expected no verify call, got %d", verify)
	}
}

func TestValidateRemoteConfirmationCarriesIdentity(t *testing.T) {
	expiry := time.Now().Add(12 * time.Minute).Unix()
	repo := &fakeRepo{
		verifyFn: func(context.Context, string) (*TokenVerification, error) {
			return &TokenVerification{
				Valid:     true,
				UserID:    "user-7",
				Email:     "maya@example.com",
				Role:      "student",
				SchoolID:  "school-3",
				ExpiresAt: expiry,
			}, nil
		},
	}
	client, _ := newTestClient(t, repo)
	token := mintJWT(t, map[string]any{
		"sub": "user-7",
		"exp": time.Now().Add(10 * time.Minute).Unix(),
	})

	verdict, err := client.Validator().Validate(context.Background(), token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !verdict.Valid {
		t.Fatalf("expected valid verdict, got %+v", verdict)
	}
	if verdict.UserID != "user-7" || verdict.Email != "maya@example.com" ||
		verdict.Role != "student" || verdict.SchoolID != "school-3" {
		t.Fatalf("unexpected identity fields: %+v", verdict)
	}
	if !verdict.ExpiresAt.Equal(time.Unix(expiry, 0).UTC()) {
		t.Fatalf("expected expiry %d, got %v", expiry, verdict.ExpiresAt)
	}

	if _, _, _, verify := repo.counts(); verify != 1 {
		t.Fatalf("expected one verify call, got %d", verify)
	}
	snap := client.MetricsSnapshot()
	if snap.Counters[MetricVerifyRemoteCall] != 1 {
		t.Fatalf("expected one remote call counted, got %d", snap.Counters[MetricVerifyRemoteCall])
	}
}

func TestValidateClassifiesBackendRejections(t *testing.T) {
	cases := []struct {
		name    string
		message string
		want    InvalidReason
	}{
		{"expired", "Token has expired", ReasonExpired},
		{"revoked", "token was revoked by an administrator", ReasonRevoked},
		{"inactive", "account inactive", ReasonInactive},
		{"invalid", "token invalid", ReasonInvalid},
		{"other", "tea pot refuses to brew coffee", ReasonOther},
		{"expired wins over revoked", "token expired and revoked", ReasonExpired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeRepo{
				verifyFn: func(context.Context, string) (*TokenVerification, error) {
					return &TokenVerification{Valid: false, Error: tc.message}, nil
				},
			}
			client, _ := newTestClient(t, repo)
			token := mintJWT(t, map[string]any{
				"exp": time.Now().Add(10 * time.Minute).Unix(),
			})

			verdict, err := client.Validator().Validate(context.Background(), token)
			if err != nil {
				t.Fatalf("Validate failed: %v", err)
			}
			if verdict.Valid {
				t.Fatalf("expected rejection, got %+v", verdict)
			}
			if verdict.Reason != tc.want {
				t.Fatalf("expected reason %v, got %v", tc.want, verdict.Reason)
			}
			if verdict.Message != tc.message {
				t.Fatalf("expected backend message preserved, got %q", verdict.Message)
			}
		})
	}
}

func TestValidateTransportFailureIsAnError(t *testing.T) {
	repo := &fakeRepo{
		verifyFn: func(context.Context, string) (*TokenVerification, error) {
			return nil, &net.OpError{Op: "dial", Err: errors.New("connection refused")}
		},
	}
	client, _ := newTestClient(t, repo)
	token := mintJWT(t, map[string]any{
		"exp": time.Now().Add(10 * time.Minute).Unix(),
	})

	verdict, err := client.Validator().Validate(context.Background(), token)
	if verdict != nil {
		t.Fatalf("expected no verdict on transport failure, got %+v", verdict)
	}
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	snap := client.MetricsSnapshot()
	if snap.Counters[MetricVerifyNetworkError] != 1 {
		t.Fatalf("expected one network error counted, got %d", snap.Counters[MetricVerifyNetworkError])
	}
}

func TestStandaloneValidatorWorksWithoutMetrics(t *testing.T) {
	v := NewValidator(&fakeRepo{})
	token := mintJWT(t, map[string]any{
		"exp": time.Now().Add(10 * time.Minute).Unix(),
	})

	verdict, err := v.Validate(context.Background(), token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !verdict.Valid || verdict.UserID != "user-1" {
		t.Fatalf("unexpected verdict: %+v", verdict)
	}
}

func TestInvalidReasonString(t *testing.T) {
	cases := map[InvalidReason]string{
		ReasonMalformed: "malformed",
		ReasonExpired:   "expired",
		ReasonRevoked:   "revoked",
		ReasonInactive:  "inactive",
		ReasonInvalid:   "invalid",
		ReasonOther:     "other",
	}
	for reason, want := range cases {
		if got := reason.String(); got != want {
			t.Fatalf("reason %d: expected %q, got %q", reason, want, got)
		}
	}
}

package authsess

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lumora-app/authsess/jwt"
)

// InvalidReason classifies why a token failed validation.
//
//	Docs: docs/session.md
type InvalidReason uint8

const (
	// ReasonMalformed means the token could not be decoded locally.
	ReasonMalformed InvalidReason = iota
	// ReasonExpired means the token is past its deadline, locally or
	// per the backend.
	ReasonExpired
	// ReasonRevoked means the backend reports the token revoked.
	ReasonRevoked
	// ReasonInactive means the backend reports the account inactive.
	ReasonInactive
	// ReasonInvalid means the backend rejected the token without a more
	// specific category.
	ReasonInvalid
	// ReasonOther carries an unrecognized backend rejection; Message
	// holds the original text.
	ReasonOther
)

func (r InvalidReason) String() string {
	switch r {
	case ReasonMalformed:
		return "malformed"
	case ReasonExpired:
		return "expired"
	case ReasonRevoked:
		return "revoked"
	case ReasonInactive:
		return "inactive"
	case ReasonInvalid:
		return "invalid"
	default:
		return "other"
	}
}

// Verdict is the outcome of [Validator.Validate]. Valid carries the
// backend-confirmed identity fields; invalid carries the classified
// reason and the backend's message.
type Verdict struct {
	Valid   bool
	Reason  InvalidReason
	Message string

	UserID    string
	Email     string
	Role      string
	SchoolID  string
	ExpiresAt time.Time
}

// Validator layers local token inspection in front of remote backend
// verification. Local checks are free and catch garbage and stale
// tokens without network traffic; only tokens that pass them cost a
// verify round trip. Local acceptance is never trust: a locally clean
// token can still come back revoked.
//
//	Docs: docs/session.md
type Validator struct {
	repo    Repository
	metrics *Metrics
	now     func() time.Time
}

// NewValidator creates a standalone [Validator]. [Builder.Build] wires
// one into the client with shared metrics; this constructor serves
// callers that only need token validation.
func NewValidator(repo Repository) *Validator {
	return &Validator{
		repo: repo,
		now:  time.Now,
	}
}

// QuickValidate decodes the token and checks its temporal claims
// locally. No network traffic. The decoded claims are returned even
// when the temporal check fails so callers can still inspect them;
// match the error with [ErrTokenExpired] and [ErrTokenNotYetValid].
func (v *Validator) QuickValidate(token string) (*jwt.Claims, error) {
	claims, err := jwt.Parse(token)
	if err != nil {
		return nil, err
	}

	now := v.now()
	if claims.Expired(now) {
		return claims, fmt.Errorf("%w at %s", ErrTokenExpired, claims.ExpiresAt.Format(time.RFC3339))
	}
	if claims.NotYetValid(now) {
		return claims, fmt.Errorf("%w until %s", ErrTokenNotYetValid, claims.NotBefore.Format(time.RFC3339))
	}
	return claims, nil
}

// Validate runs the full three-stage check: local decode, local expiry,
// then exactly one backend verify call for tokens that survive both.
// Backend rejections come back as an invalid [Verdict], never as an
// error; the error return is reserved for transport failures, which say
// nothing about the token.
func (v *Validator) Validate(ctx context.Context, token string) (*Verdict, error) {
	claims, err := jwt.Parse(token)
	if err != nil {
		v.metrics.Inc(MetricVerifyLocalReject)
		return &Verdict{Valid: false, Reason: ReasonMalformed, Message: err.Error()}, nil
	}

	if claims.Expired(v.now()) {
		v.metrics.Inc(MetricVerifyLocalReject)
		return &Verdict{Valid: false, Reason: ReasonExpired, Message: "token expired before remote verification"}, nil
	}

	v.metrics.Inc(MetricVerifyRemoteCall)
	resp, err := v.repo.VerifyToken(ctx, token)
	if err != nil {
		v.metrics.Inc(MetricVerifyNetworkError)
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if resp.Valid {
		verdict := &Verdict{
			Valid:    true,
			UserID:   resp.UserID,
			Email:    resp.Email,
			Role:     resp.Role,
			SchoolID: resp.SchoolID,
		}
		if resp.ExpiresAt > 0 {
			verdict.ExpiresAt = time.Unix(resp.ExpiresAt, 0).UTC()
		}
		return verdict, nil
	}

	reason := mapVerifyReason(resp.Error)
	return &Verdict{Valid: false, Reason: reason, Message: resp.Error}, nil
}

// mapVerifyReason classifies the backend's free-text rejection. Checks
// run in priority order so a message naming several conditions lands on
// the most specific one.
func mapVerifyReason(text string) InvalidReason {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "expired"):
		return ReasonExpired
	case strings.Contains(lower, "revoked"):
		return ReasonRevoked
	case strings.Contains(lower, "inactive"):
		return ReasonInactive
	case strings.Contains(lower, "invalid"):
		return ReasonInvalid
	default:
		return ReasonOther
	}
}

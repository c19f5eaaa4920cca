package jwt

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrEmptyToken is returned by [Parse] for empty or whitespace-only input.
var ErrEmptyToken = errors.New("empty token")

// ErrMalformed is the sentinel wrapped by every [FormatError]. Callers that
// do not care about the specific defect can match it with errors.Is.
var ErrMalformed = errors.New("malformed token")

// FormatError describes why a token string could not be decoded.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "malformed token: " + e.Reason
}

func (e *FormatError) Unwrap() error {
	return ErrMalformed
}

// Parse decodes the payload segment of a compact JWT without verifying the
// signature. It returns [ErrEmptyToken] for blank input and a [FormatError]
// for anything that is not three dot-separated segments carrying a base64url
// JSON object payload. The header and signature segments are never examined.
func Parse(token string) (*Claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrEmptyToken
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, &FormatError{Reason: "expected 3 segments, got " + strconv.Itoa(len(parts))}
	}

	payload, err := decodeSegment(parts[1])
	if err != nil {
		return nil, &FormatError{Reason: "payload segment is not valid base64url"}
	}

	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &FormatError{Reason: "payload is not a JSON object"}
	}

	return claimsFromPayload(raw), nil
}

// decodeSegment re-pads an unpadded base64url segment before decoding.
// Compact JWTs strip padding; a remainder of 1 can never come from valid
// base64 and is rejected outright.
func decodeSegment(seg string) ([]byte, error) {
	switch len(seg) % 4 {
	case 0:
	case 2:
		seg += "=="
	case 3:
		seg += "="
	default:
		return nil, errors.New("illegal base64url segment length")
	}
	return base64.URLEncoding.DecodeString(seg)
}

func claimsFromPayload(raw map[string]any) *Claims {
	c := &Claims{
		Custom: make(map[string]string, len(raw)),
	}

	for key, value := range raw {
		switch key {
		case "sub":
			c.Subject = stringifyClaim(value)
		case "iss":
			c.Issuer = stringifyClaim(value)
		case "aud":
			c.Audience = audienceClaim(value)
		case "jti":
			c.ID = stringifyClaim(value)
		case "exp":
			c.ExpiresAt = epochClaim(value)
		case "iat":
			c.IssuedAt = epochClaim(value)
		case "nbf":
			c.NotBefore = epochClaim(value)
		default:
			c.Custom[key] = stringifyClaim(value)
		}
	}

	return c
}

// epochClaim interprets a numeric claim as whole epoch seconds. Non-numeric
// values are ignored rather than failing the whole parse.
func epochClaim(value any) time.Time {
	f, ok := value.(float64)
	if !ok {
		return time.Time{}
	}
	return time.Unix(int64(f), 0).UTC()
}

// audienceClaim flattens the aud claim, which RFC 7519 allows to be either
// a single string or an array of strings.
func audienceClaim(value any) string {
	list, ok := value.([]any)
	if !ok {
		return stringifyClaim(value)
	}

	parts := make([]string, 0, len(list))
	for _, item := range list {
		parts = append(parts, stringifyClaim(item))
	}
	return strings.Join(parts, ",")
}

func stringifyClaim(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return "null"
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

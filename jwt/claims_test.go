package jwt

import (
	"testing"
	"time"
)

func TestClaimsExpired(t *testing.T) {
	exp := time.Unix(2000, 0).UTC()
	claims := &Claims{ExpiresAt: exp}

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"before expiry", time.Unix(1999, 0), false},
		{"exactly at expiry", exp, true},
		{"after expiry", time.Unix(2001, 0), true},
	}
	for _, tc := range cases {
		if got := claims.Expired(tc.now); got != tc.want {
			t.Errorf("%s: Expired = %v, want %v", tc.name, got, tc.want)
		}
	}

	noExp := &Claims{}
	if noExp.Expired(time.Unix(1<<40, 0)) {
		t.Error("token without exp must never expire")
	}
}

func TestClaimsNotYetValid(t *testing.T) {
	nbf := time.Unix(3000, 0).UTC()
	claims := &Claims{NotBefore: nbf}

	if !claims.NotYetValid(time.Unix(2999, 0)) {
		t.Error("before nbf must be not-yet-valid")
	}
	if claims.NotYetValid(nbf) {
		t.Error("exactly at nbf must be valid")
	}
	if claims.NotYetValid(time.Unix(3001, 0)) {
		t.Error("after nbf must be valid")
	}

	noNbf := &Claims{}
	if noNbf.NotYetValid(time.Unix(0, 0)) {
		t.Error("token without nbf must be immediately valid")
	}
}

func TestClaimsTemporallyValid(t *testing.T) {
	claims := &Claims{
		NotBefore: time.Unix(100, 0).UTC(),
		ExpiresAt: time.Unix(200, 0).UTC(),
	}

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"before window", time.Unix(50, 0), false},
		{"window opens", time.Unix(100, 0), true},
		{"inside window", time.Unix(150, 0), true},
		{"window closes", time.Unix(200, 0), false},
		{"after window", time.Unix(250, 0), false},
	}
	for _, tc := range cases {
		if got := claims.TemporallyValid(tc.now); got != tc.want {
			t.Errorf("%s: TemporallyValid = %v, want %v", tc.name, got, tc.want)
		}
	}
}

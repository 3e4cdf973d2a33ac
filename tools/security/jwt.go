package security

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// PreCheck does a cheap local sanity pass over a bearer credential before
// the relay spends a round trip on the backend-of-record. JWTs with a
// readable exp claim that already lies in the past are rejected here;
// anything else (including opaque non-JWT tokens) is left for the backend
// to judge. The signature is never verified locally, the backend owns that.
func PreCheck(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("empty credential")
	}

	if strings.Count(token, ".") != 2 {
		// not a JWT, opaque token; backend decides
		return nil
	}

	claims := jwtlib.MapClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(token, claims); err != nil {
		// malformed despite looking like a JWT
		return errors.Wrap(err, "malformed token")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if exp.Before(time.Now()) {
		return errors.New("token expired")
	}
	return nil
}

// Subject extracts the sub claim from a JWT without verifying it. Used only
// for log correlation before the authoritative profile call returns.
func Subject(token string) string {
	if strings.Count(token, ".") != 2 {
		return ""
	}
	claims := jwtlib.MapClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	sub, _ := claims.GetSubject()
	return sub
}

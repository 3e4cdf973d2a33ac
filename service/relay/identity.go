package relay

import (
	"context"

	"PRelay/tools/errs"
	"PRelay/tools/security"
)

// Identity is stamped onto a connection after authentication and is
// immutable for the connection's lifetime.
type Identity struct {
	UserID      string
	DisplayName string
	Token       string
}

// IdentityGate validates an inbound connection's credential exactly once,
// before the connection is admitted anywhere. A cheap local pre-check
// rejects obviously dead JWTs, then the backend-of-record's profile call is
// the authoritative answer.
type IdentityGate struct {
	backend Backend
}

func NewIdentityGate(b Backend) *IdentityGate {
	return &IdentityGate{backend: b}
}

func (g *IdentityGate) Authenticate(ctx context.Context, token string) (Identity, error) {
	if err := security.PreCheck(token); err != nil {
		return Identity{}, errs.Wrap(errs.KindAuth, err, "Authentication failed")
	}

	profile, err := g.backend.Profile(ctx, token)
	if err != nil {
		return Identity{}, errs.Wrap(errs.KindAuth, err, "Authentication failed")
	}
	if profile.ID == "" {
		return Identity{}, errs.Auth("Authentication failed")
	}

	return Identity{
		UserID:      profile.ID,
		DisplayName: profile.Name,
		Token:       token,
	}, nil
}

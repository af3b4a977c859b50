package auth

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is a verified principal attached to one request.
type Identity struct {
	// Subject is the sub claim.
	Subject string

	// Permissions are the permission codes from the p claim, in token order.
	Permissions []string

	// Session is the free-form seq claim.
	Session any

	// KeyID is the kid that verified the credential.
	KeyID string

	// ExpiresAt is when the credential expires.
	ExpiresAt time.Time

	// IssuedAt is when the credential was issued.
	IssuedAt time.Time

	// Refreshed is true if the presented credential had expired and was
	// renewed during verification. Token then holds the new credential.
	Refreshed bool
	Token     string
}

// HasPermission reports whether the identity holds perm.
func (id *Identity) HasPermission(perm string) bool {
	if id == nil {
		return false
	}
	return slices.Contains(id.Permissions, perm)
}

func (id *Identity) clone() *Identity {
	c := *id
	c.Permissions = slices.Clone(id.Permissions)
	return &c
}

// Claims is the credential payload.
type Claims struct {
	Permissions []string `json:"p"`
	Session     any      `json:"seq,omitempty"`
	jwt.RegisteredClaims
}

func identityFromClaims(c *Claims, kid string) *Identity {
	id := &Identity{
		Subject:     c.Subject,
		Permissions: slices.Clone(c.Permissions),
		Session:     c.Session,
		KeyID:       kid,
	}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.Time
	}
	if c.IssuedAt != nil {
		id.IssuedAt = c.IssuedAt.Time
	}
	return id
}

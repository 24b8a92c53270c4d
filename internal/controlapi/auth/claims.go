// Package auth issues and validates the JWTs that guard internal/controlapi's
// management endpoints (spec §6.7 control surface).
package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims minted for a control-plane API session. Identity
// here is the control-plane User (username/role), distinct from the MCTP
// terminus/EID addressing the rest of the daemon works in.
type Claims struct {
	jwt.RegisteredClaims

	UserID   string `json:"uid"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IsAdmin reports whether the token carries the admin role.
func (c *Claims) IsAdmin() bool { return c.Role == "admin" }

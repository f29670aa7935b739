package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/amosgichamba/teabroker-backend/pkg/enums"
)

// IdentityClaims is the typed token issued by the external identity pool.
// The subject claim carries the Cognito identity; the service trusts role,
// email and name verbatim and never mints tokens itself.
type IdentityClaims struct {
	Role  enums.Role `json:"role"`
	Email string     `json:"email"`
	Name  string     `json:"name"`
	jwt.RegisteredClaims
}

// CognitoID returns the identity pool subject.
func (c *IdentityClaims) CognitoID() string {
	return c.Subject
}

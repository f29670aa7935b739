package auth

import "github.com/amosgichamba/teabroker-backend/pkg/enums"

// Actor is the authenticated identity behind a request, as services see it.
type Actor struct {
	CognitoID string
	Role      enums.Role
	Email     string
	Name      string
}

// ActorFromClaims flattens verified token claims into an Actor.
func ActorFromClaims(claims *IdentityClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{
		CognitoID: claims.CognitoID(),
		Role:      claims.Role,
		Email:     claims.Email,
		Name:      claims.Name,
	}
}

// IsElevated reports whether the actor holds a staff role.
func (a Actor) IsElevated() bool {
	return a.Role.IsElevated()
}

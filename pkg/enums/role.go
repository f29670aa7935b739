package enums

import "fmt"

// Role is the coarse authorization role carried in identity tokens.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleUser    Role = "user"
	RoleEnforce Role = "enforce"
)

var validRoles = []Role{RoleAdmin, RoleUser, RoleEnforce}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsElevated reports whether the role may act on resources it does not own.
func (r Role) IsElevated() bool {
	return r == RoleAdmin || r == RoleEnforce
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}

package domain

import (
	"encoding/json"
	"fmt"
)

// Role is the closed set of account roles. Any other value is rejected at
// the deserialization boundary rather than carried around as a raw string.
type Role string

const (
	RoleHR       Role = "HR"
	RoleEmployee Role = "EMPLOYEE"
)

// ParseRole converts a raw string into a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleHR, RoleEmployee:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Valid reports whether the role is one of the known variants.
func (r Role) Valid() bool {
	return r == RoleHR || r == RoleEmployee
}

func (r Role) String() string { return string(r) }

// UnmarshalJSON rejects any value outside the closed set.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// MarshalJSON emits the role as its wire string.
func (r Role) MarshalJSON() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("unknown role %q", string(r))
	}
	return json.Marshal(string(r))
}

package models

import "slices"

// Caller is the authenticated user behind a search. It is derived from the
// identity provider's claims per session and never persisted on its own.
type Caller struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// HasRole reports whether the caller carries the given client role.
// A nil caller has no roles.
func (c *Caller) HasRole(role string) bool {
	if c == nil {
		return false
	}
	return slices.Contains(c.Roles, role)
}

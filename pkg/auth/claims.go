// Package auth authenticates telefonbog users against Keycloak. Browser
// users log in with the authorization code flow and keep a cookie session;
// API clients send a Keycloak access token as a bearer token.
package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/telefonbog/telefonbog/pkg/models"
)

// RoleList is the roles entry of a resource_access client.
type RoleList struct {
	Roles []string `json:"roles,omitempty"`
}

// Claims is the subset of a Keycloak access token telefonbog reads.
// It embeds RegisteredClaims for standard JWT fields (sub, iss, exp, etc.).
type Claims struct {
	jwt.RegisteredClaims
	PreferredUsername string              `json:"preferred_username,omitempty"`
	Email             string              `json:"email,omitempty"`
	Name              string              `json:"name,omitempty"`
	AuthorizedParty   string              `json:"azp,omitempty"`
	Nonce             string              `json:"nonce,omitempty"`
	ResourceAccess    map[string]RoleList `json:"resource_access,omitempty"`
}

// ClientRoles returns the roles granted for client, i.e.
// resource_access[client].roles. Realm roles are not included.
func (c *Claims) ClientRoles(client string) []string {
	if c == nil {
		return nil
	}
	return c.ResourceAccess[client].Roles
}

// Caller builds the caller identity for the given Keycloak client.
func (c *Claims) Caller(client string) *models.Caller {
	username := c.PreferredUsername
	if username == "" {
		username = c.Subject
	}
	return &models.Caller{
		Username: username,
		Email:    c.Email,
		Roles:    append([]string(nil), c.ClientRoles(client)...),
	}
}

// Package testhelpers provides utilities for testing telefonbog components.
package testhelpers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// GenerateTestJWT creates an unsigned Keycloak-style access token (alg: none)
// for use when verification is disabled. roles are placed under
// resource_access[client].roles.
func GenerateTestJWT(username, email, client string, roles ...string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))

	if roles == nil {
		roles = []string{}
	}
	claims := map[string]any{
		"sub":                username,
		"preferred_username": username,
		"email":              email,
		"azp":                client,
		"resource_access": map[string]any{
			client: map[string]any{"roles": roles},
		},
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		panic(fmt.Sprintf("marshal test claims: %v", err))
	}

	return fmt.Sprintf("%s.%s.", header, base64.RawURLEncoding.EncodeToString(payload))
}

// GenerateTestJWTWithBearer returns token with "Bearer " prefix for Authorization header.
func GenerateTestJWTWithBearer(username, email, client string, roles ...string) string {
	return "Bearer " + GenerateTestJWT(username, email, client, roles...)
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// JWKSClientInterface defines the interface for JWT token validation.
// This abstraction enables testing with mock implementations.
type JWKSClientInterface interface {
	// ValidateToken validates a JWT token string and returns the claims.
	// Returns an error if the token is invalid, expired, or has an unauthorized issuer.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
	// Close releases any resources held by the client.
	Close()
}

// JWKSConfig contains configuration for the JWKS client.
type JWKSConfig struct {
	// EnableVerification controls whether JWT signatures are verified.
	// Set to false for development mode (parses tokens without verification).
	EnableVerification bool
	// Issuer is the realm URL, e.g. https://keycloak.example/realms/aarhus.
	// Tokens from any other issuer are rejected.
	Issuer string
	// JWKSURL overrides the key set location. Defaults to the Keycloak
	// certs endpoint under Issuer.
	JWKSURL string
}

// RealmJWKSURL returns the Keycloak JWKS endpoint for a realm issuer URL.
func RealmJWKSURL(issuer string) string {
	return strings.TrimRight(issuer, "/") + "/protocol/openid-connect/certs"
}

// JWKSClient validates Keycloak access tokens against the realm's JSON Web
// Key Set. Keys are fetched at startup and refreshed by keyfunc in the
// background.
type JWKSClient struct {
	jwks   keyfunc.Keyfunc
	parser *jwt.Parser
	config JWKSConfig
}

// NewJWKSClient creates a new JWKS client with the given configuration.
// If EnableVerification is true, it fetches the realm keys and ctx bounds
// the background refresh.
func NewJWKSClient(ctx context.Context, config JWKSConfig) (*JWKSClient, error) {
	client := &JWKSClient{config: config}

	if !config.EnableVerification {
		client.parser = jwt.NewParser(jwt.WithoutClaimsValidation())
		return client, nil
	}

	if config.Issuer == "" {
		return nil, errors.New("issuer is required when verification is enabled")
	}
	jwksURL := config.JWKSURL
	if jwksURL == "" {
		jwksURL = RealmJWKSURL(config.Issuer)
	}

	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS client for %s: %w", config.Issuer, err)
	}
	client.jwks = jwks
	client.parser = jwt.NewParser(
		jwt.WithIssuer(config.Issuer),
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512", "ES256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
	)

	return client, nil
}

// ValidateToken validates a JWT token and returns the claims.
// If verification is disabled, it parses the token without signature validation.
func (c *JWKSClient) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	if !c.config.EnableVerification {
		return c.parseUnverifiedToken(tokenString)
	}

	token, err := c.parser.ParseWithClaims(tokenString, &Claims{}, c.jwks.KeyfuncCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}

	return claims, nil
}

// parseUnverifiedToken parses a JWT without verifying the signature.
// Used in development mode when EnableVerification is false.
func (c *JWKSClient) parseUnverifiedToken(tokenString string) (*Claims, error) {
	token, _, err := c.parser.ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}

	return claims, nil
}

// Close releases any resources held by the client.
// Currently a no-op as keyfunc v3 stops refreshing when its context ends.
func (c *JWKSClient) Close() {}

// Ensure JWKSClient implements JWKSClientInterface at compile time.
var _ JWKSClientInterface = (*JWKSClient)(nil)

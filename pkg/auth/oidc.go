package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/telefonbog/telefonbog/pkg/models"
)

// OIDCConfig configures the browser login against a Keycloak realm.
type OIDCConfig struct {
	IssuerURL    string // realm URL
	ClientID     string
	ClientSecret string // empty for public clients
	RedirectURL  string // <base>/auth/callback
}

// Login runs the OIDC authorization code flow with PKCE.
type Login struct {
	oauth2     oauth2.Config
	verifier   *oidc.IDTokenVerifier
	tokens     JWKSClientInterface
	clientID   string
	endSession string
	logger     *zap.Logger
}

// NewLogin discovers the realm's endpoints. tokens validates the access
// token, which is where Keycloak puts client roles.
func NewLogin(ctx context.Context, cfg OIDCConfig, tokens JWKSClientInterface, logger *zap.Logger) (*Login, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("OIDC discovery for %s: %w", cfg.IssuerURL, err)
	}

	var meta struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	if err := provider.Claims(&meta); err != nil {
		return nil, fmt.Errorf("decode provider metadata: %w", err)
	}

	return &Login{
		oauth2: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
			RedirectURL:  cfg.RedirectURL,
		},
		verifier:   provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		tokens:     tokens,
		clientID:   cfg.ClientID,
		endSession: meta.EndSessionEndpoint,
		logger:     logger.Named("oidc"),
	}, nil
}

// NewLoginState creates fresh state, nonce and PKCE verifier values.
func NewLoginState(originalURL string) LoginState {
	return LoginState{
		State:        oauth2.GenerateVerifier(),
		Nonce:        oauth2.GenerateVerifier(),
		CodeVerifier: oauth2.GenerateVerifier(),
		OriginalURL:  originalURL,
	}
}

// AuthCodeURL returns the Keycloak authorization URL for state.
func (l *Login) AuthCodeURL(state LoginState) string {
	return l.oauth2.AuthCodeURL(state.State,
		oauth2.S256ChallengeOption(state.CodeVerifier),
		oidc.Nonce(state.Nonce),
	)
}

// Exchange redeems an authorization code and returns the caller. The ID
// token must carry the nonce from state.
func (l *Login) Exchange(ctx context.Context, code string, state LoginState) (*models.Caller, error) {
	tok, err := l.oauth2.Exchange(ctx, code, oauth2.VerifierOption(state.CodeVerifier))
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("token response has no id_token")
	}

	idToken, err := l.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify id_token: %w", err)
	}
	if idToken.Nonce != state.Nonce {
		return nil, errors.New("id_token nonce mismatch")
	}

	claims, err := l.tokens.ValidateToken(ctx, tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("validate access token: %w", err)
	}

	caller := claims.Caller(l.clientID)
	l.logger.Info("User logged in",
		zap.String("username", caller.Username),
		zap.Strings("roles", caller.Roles))
	return caller, nil
}

// LogoutURL returns the realm's end-session URL, or "" when the realm does
// not advertise one.
func (l *Login) LogoutURL(postLogoutRedirect string) string {
	if l.endSession == "" {
		return ""
	}
	u, err := url.Parse(l.endSession)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("client_id", l.clientID)
	if postLogoutRedirect != "" {
		q.Set("post_logout_redirect_uri", postLogoutRedirect)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

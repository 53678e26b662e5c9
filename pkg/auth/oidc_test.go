package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeKeycloak is a minimal OIDC provider: discovery, JWKS and a token
// endpoint that returns a signed ID token.
type fakeKeycloak struct {
	srv       *httptest.Server
	key       *rsa.PrivateKey
	nonce     string // nonce placed in the next ID token
	gotForm   url.Values
	accessTok string
}

func newFakeKeycloak(t *testing.T) *fakeKeycloak {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	kc := &fakeKeycloak{key: key}

	jwks := jwksServer(t, key, "k1")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                                kc.srv.URL,
			"authorization_endpoint":                kc.srv.URL + "/protocol/openid-connect/auth",
			"token_endpoint":                        kc.srv.URL + "/protocol/openid-connect/token",
			"jwks_uri":                              jwks.URL,
			"end_session_endpoint":                  kc.srv.URL + "/protocol/openid-connect/logout",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	mux.HandleFunc("POST /protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		kc.gotForm = r.PostForm

		idToken := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
			"iss":   kc.srv.URL,
			"aud":   "telefonbog",
			"sub":   "f3b1c2d4",
			"exp":   time.Now().Add(time.Hour).Unix(),
			"iat":   time.Now().Unix(),
			"nonce": kc.nonce,
		})
		idToken.Header["kid"] = "k1"
		signed, _ := idToken.SignedString(key)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": kc.accessTok,
			"token_type":   "Bearer",
			"expires_in":   300,
			"id_token":     signed,
		})
	})
	kc.srv = httptest.NewServer(mux)
	t.Cleanup(kc.srv.Close)

	kc.accessTok = createTestToken(keycloakClaims(kc.srv.URL))
	return kc
}

func newTestLogin(t *testing.T, kc *fakeKeycloak) *Login {
	t.Helper()
	tokens, err := NewJWKSClient(context.Background(), JWKSConfig{EnableVerification: false})
	require.NoError(t, err)

	login, err := NewLogin(context.Background(), OIDCConfig{
		IssuerURL:   kc.srv.URL,
		ClientID:    "telefonbog",
		RedirectURL: "https://telefonbog.aarhus.dk/auth/callback",
	}, tokens, zap.NewNop())
	require.NoError(t, err)
	return login
}

func TestLogin_AuthCodeURL(t *testing.T) {
	kc := newFakeKeycloak(t)
	login := newTestLogin(t, kc)
	state := NewLoginState("/")

	u, err := url.Parse(login.AuthCodeURL(state))
	require.NoError(t, err)

	assert.Equal(t, "/protocol/openid-connect/auth", u.Path)
	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "telefonbog", q.Get("client_id"))
	assert.Equal(t, state.State, q.Get("state"))
	assert.Equal(t, state.Nonce, q.Get("nonce"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.NotEqual(t, state.CodeVerifier, q.Get("code_challenge"))
	assert.Contains(t, q.Get("scope"), "openid")
}

func TestNewLoginState_Unique(t *testing.T) {
	a, b := NewLoginState("/"), NewLoginState("/")
	assert.NotEqual(t, a.State, b.State)
	assert.NotEqual(t, a.Nonce, b.Nonce)
	assert.NotEqual(t, a.CodeVerifier, b.CodeVerifier)
}

func TestLogin_Exchange(t *testing.T) {
	kc := newFakeKeycloak(t)
	login := newTestLogin(t, kc)
	state := NewLoginState("/")
	kc.nonce = state.Nonce

	caller, err := login.Exchange(context.Background(), "auth-code", state)
	require.NoError(t, err)

	assert.Equal(t, "az12345", caller.Username)
	assert.Equal(t, "jens@aarhus.dk", caller.Email)
	assert.True(t, caller.HasRole("cpr"))

	assert.Equal(t, "auth-code", kc.gotForm.Get("code"))
	assert.Equal(t, state.CodeVerifier, kc.gotForm.Get("code_verifier"))
}

func TestLogin_Exchange_NonceMismatch(t *testing.T) {
	kc := newFakeKeycloak(t)
	login := newTestLogin(t, kc)
	state := NewLoginState("/")
	kc.nonce = "some-other-nonce"

	_, err := login.Exchange(context.Background(), "auth-code", state)
	assert.ErrorContains(t, err, "nonce mismatch")
}

func TestLogin_LogoutURL(t *testing.T) {
	kc := newFakeKeycloak(t)
	login := newTestLogin(t, kc)

	u, err := url.Parse(login.LogoutURL("https://telefonbog.aarhus.dk/"))
	require.NoError(t, err)
	assert.Equal(t, "/protocol/openid-connect/logout", u.Path)
	assert.Equal(t, "telefonbog", u.Query().Get("client_id"))
	assert.Equal(t, "https://telefonbog.aarhus.dk/", u.Query().Get("post_logout_redirect_uri"))
}

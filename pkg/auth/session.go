package auth

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/telefonbog/telefonbog/pkg/models"
)

const (
	// SessionName is the cookie holding the logged-in caller.
	SessionName = "telefonbog-session"
	// LoginSessionName is the short-lived cookie used during the OIDC redirect.
	LoginSessionName = "telefonbog-login"

	// SessionMaxAge is how long a login lasts (one working day).
	SessionMaxAge = 8 * 60 * 60
	loginMaxAge   = 10 * 60
)

// Session value keys.
const (
	SessionKeyCaller       = "caller"
	SessionKeyState        = "state"
	SessionKeyNonce        = "nonce"
	SessionKeyCodeVerifier = "code_verifier"
	SessionKeyOriginalURL  = "original_url"
)

// ErrNoLoginState is returned when the callback arrives without a pending login.
var ErrNoLoginState = errors.New("no pending login")

// LoginState is what the login handler remembers across the redirect.
type LoginState struct {
	State        string
	Nonce        string
	CodeVerifier string
	OriginalURL  string
}

// SessionStore keeps the caller and pending login state in signed cookies.
type SessionStore struct {
	store *sessions.CookieStore
}

// NewSessionStore creates a cookie-based session store.
//
// The secret parameter is used to sign session cookies. It can be any
// passphrase - it will be SHA-256 hashed to derive a 32-byte key.
// The secret must be consistent across server restarts and multiple
// servers in a load-balanced deployment.
//
// SameSite is Lax because the login callback is a cross-site redirect
// from Keycloak that must carry the login cookie.
func NewSessionStore(secret string, cookies CookieSettings) *SessionStore {
	key := sha256.Sum256([]byte(secret))

	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   cookies.Domain,
		MaxAge:   SessionMaxAge,
		HttpOnly: true,
		Secure:   cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionStore{store: store}
}

// LoadCaller returns the caller stored in the session cookie, if any.
// A tampered or expired cookie is treated as absent.
func (s *SessionStore) LoadCaller(r *http.Request) (*models.Caller, bool) {
	session, err := s.store.Get(r, SessionName)
	if err != nil {
		return nil, false
	}
	raw, ok := session.Values[SessionKeyCaller].(string)
	if !ok || raw == "" {
		return nil, false
	}
	var caller models.Caller
	if err := json.Unmarshal([]byte(raw), &caller); err != nil {
		return nil, false
	}
	return &caller, true
}

// SaveCaller starts a session for caller.
func (s *SessionStore) SaveCaller(w http.ResponseWriter, r *http.Request, caller *models.Caller) error {
	data, err := json.Marshal(caller)
	if err != nil {
		return fmt.Errorf("encode caller: %w", err)
	}

	// Get returns a fresh session alongside the error when the old cookie is unreadable.
	session, _ := s.store.Get(r, SessionName)
	session.Values[SessionKeyCaller] = string(data)
	return session.Save(r, w)
}

// Clear ends the caller's session.
func (s *SessionStore) Clear(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.store.Get(r, SessionName)
	session.Values = map[any]any{}
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// SaveLoginState remembers state for the callback.
func (s *SessionStore) SaveLoginState(w http.ResponseWriter, r *http.Request, state LoginState) error {
	session, _ := s.store.Get(r, LoginSessionName)
	session.Options.MaxAge = loginMaxAge
	session.Values[SessionKeyState] = state.State
	session.Values[SessionKeyNonce] = state.Nonce
	session.Values[SessionKeyCodeVerifier] = state.CodeVerifier
	session.Values[SessionKeyOriginalURL] = state.OriginalURL
	return session.Save(r, w)
}

// TakeLoginState returns the pending login state and deletes it, so a
// callback can be completed only once.
func (s *SessionStore) TakeLoginState(w http.ResponseWriter, r *http.Request) (LoginState, error) {
	session, err := s.store.Get(r, LoginSessionName)
	if err != nil {
		return LoginState{}, ErrNoLoginState
	}

	state := LoginState{
		State:        stringValue(session, SessionKeyState),
		Nonce:        stringValue(session, SessionKeyNonce),
		CodeVerifier: stringValue(session, SessionKeyCodeVerifier),
		OriginalURL:  stringValue(session, SessionKeyOriginalURL),
	}

	session.Values = map[any]any{}
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		return LoginState{}, fmt.Errorf("clear login session: %w", err)
	}

	if state.State == "" || state.CodeVerifier == "" {
		return LoginState{}, ErrNoLoginState
	}
	return state, nil
}

func stringValue(session *sessions.Session, key string) string {
	v, _ := session.Values[key].(string)
	return v
}

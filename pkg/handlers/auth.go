package handlers

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/telefonbog/telefonbog/pkg/auth"
	"github.com/telefonbog/telefonbog/pkg/models"
)

// LoginFlow is the OIDC code flow as the handlers need it.
type LoginFlow interface {
	AuthCodeURL(state auth.LoginState) string
	Exchange(ctx context.Context, code string, state auth.LoginState) (*models.Caller, error)
	LogoutURL(postLogoutRedirect string) string
}

// LogoutResponse represents the response for logout.
type LogoutResponse struct {
	Success     bool   `json:"success"`
	RedirectURL string `json:"redirect_url"`
}

// MeResponse describes the logged-in caller to the UI.
type MeResponse struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	CanSearchCPR bool   `json:"can_search_cpr"`
}

// AuthHandler handles login, logout and the current-user endpoint.
type AuthHandler struct {
	login    LoginFlow
	sessions *auth.SessionStore
	baseURL  string
	cprRole  string
	logger   *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(login LoginFlow, sessions *auth.SessionStore, baseURL, cprRole string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		login:    login,
		sessions: sessions,
		baseURL:  baseURL,
		cprRole:  cprRole,
		logger:   logger,
	}
}

// RegisterRoutes registers the auth handler's routes on the given mux.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /auth/login", h.Login)
	mux.HandleFunc("GET /auth/callback", h.Callback)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /api/me", authMiddleware.RequireCaller(h.Me))
}

// Login handles GET /auth/login?redirect=/path
// It stores state, nonce and PKCE verifier in a short-lived cookie and
// redirects the browser to Keycloak.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := auth.NewLoginState(localRedirect(r.URL.Query().Get("redirect")))

	if err := h.sessions.SaveLoginState(w, r, state); err != nil {
		h.logger.Error("Failed to save login state", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "login_failed", "Login kunne ikke startes"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	http.Redirect(w, r, h.login.AuthCodeURL(state), http.StatusFound)
}

// Callback handles GET /auth/callback from Keycloak.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	state, err := h.sessions.TakeLoginState(w, r)
	if err != nil {
		h.logger.Warn("Login callback without pending login", zap.Error(err))
		h.loginFailed(w)
		return
	}

	if errCode := query.Get("error"); errCode != "" {
		h.logger.Warn("Identity provider returned an error",
			zap.String("error", errCode),
			zap.String("description", query.Get("error_description")))
		h.loginFailed(w)
		return
	}

	if query.Get("state") != state.State {
		h.logger.Warn("Login callback state mismatch")
		h.loginFailed(w)
		return
	}

	code := query.Get("code")
	if code == "" {
		h.logger.Warn("Login callback without code")
		h.loginFailed(w)
		return
	}

	caller, err := h.login.Exchange(r.Context(), code, state)
	if err != nil {
		h.logger.Error("Login exchange failed", zap.Error(err))
		h.loginFailed(w)
		return
	}

	if err := h.sessions.SaveCaller(w, r, caller); err != nil {
		h.logger.Error("Failed to save session", zap.Error(err))
		h.loginFailed(w)
		return
	}

	redirect := state.OriginalURL
	if redirect == "" {
		redirect = "/"
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

// Logout handles POST /auth/logout
// Clears the session and returns the Keycloak end-session URL for the UI to
// navigate to.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(w, r); err != nil {
		h.logger.Error("Failed to clear session", zap.Error(err))
	}

	redirectURL := h.login.LogoutURL(strings.TrimRight(h.baseURL, "/") + "/")
	if redirectURL == "" {
		redirectURL = "/"
	}

	if caller := auth.CallerFromContext(r.Context()); caller != nil {
		h.logger.Info("User logged out", zap.String("username", caller.Username))
	}

	if err := WriteJSON(w, http.StatusOK, LogoutResponse{
		Success:     true,
		RedirectURL: redirectURL,
	}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Me handles GET /api/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())
	if caller == nil {
		if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Du er ikke logget ind"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, MeResponse{
		Username:     caller.Username,
		Email:        caller.Email,
		CanSearchCPR: caller.HasRole(h.cprRole),
	}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *AuthHandler) loginFailed(w http.ResponseWriter) {
	if err := ErrorResponse(w, http.StatusUnauthorized, "login_failed", "Login mislykkedes. Prøv igen."); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

// localRedirect returns target if it is a same-site path, otherwise "/".
func localRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return "/"
	}
	return target
}

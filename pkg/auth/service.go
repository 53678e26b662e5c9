package auth

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/telefonbog/telefonbog/pkg/models"
)

// Common authentication errors.
var (
	ErrMissingAuthorization = errors.New("missing authorization")
	ErrInvalidAuthFormat    = errors.New("invalid authorization header format")
	ErrWrongClient          = errors.New("token was issued to another client")
)

// AuthService defines the interface for authentication operations.
// This abstraction enables clean separation between HTTP handling
// and authentication logic, making both easier to test.
type AuthService interface {
	// Authenticate resolves the caller behind a request. It checks:
	//   1. the session cookie set by the login flow (browser clients)
	//   2. an Authorization header with "Bearer" scheme (API clients)
	Authenticate(r *http.Request) (*models.Caller, error)
}

// authService implements AuthService.
type authService struct {
	sessions   *SessionStore
	jwksClient JWKSClientInterface
	clientID   string
	logger     *zap.Logger
}

// NewAuthService creates a new AuthService. clientID is the Keycloak client
// whose roles are read from bearer tokens.
func NewAuthService(sessions *SessionStore, jwksClient JWKSClientInterface, clientID string, logger *zap.Logger) AuthService {
	return &authService{
		sessions:   sessions,
		jwksClient: jwksClient,
		clientID:   clientID,
		logger:     logger,
	}
}

func (s *authService) Authenticate(r *http.Request) (*models.Caller, error) {
	if caller, ok := s.sessions.LoadCaller(r); ok {
		return caller, nil
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, ErrMissingAuthorization
	}

	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" || strings.Contains(token, " ") {
		s.logger.Debug("Invalid Authorization header format",
			zap.String("path", r.URL.Path))
		return nil, ErrInvalidAuthFormat
	}

	claims, err := s.jwksClient.ValidateToken(r.Context(), token)
	if err != nil {
		s.logger.Debug("JWT validation failed",
			zap.Error(err),
			zap.String("path", r.URL.Path))
		return nil, err
	}

	// Keycloak sets azp to the client that requested the token.
	if claims.AuthorizedParty != s.clientID {
		s.logger.Debug("Bearer token for another client",
			zap.String("azp", claims.AuthorizedParty),
			zap.String("path", r.URL.Path))
		return nil, ErrWrongClient
	}

	return claims.Caller(s.clientID), nil
}

// Ensure authService implements AuthService at compile time.
var _ AuthService = (*authService)(nil)

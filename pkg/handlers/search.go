package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/telefonbog/telefonbog/pkg/apperrors"
	"github.com/telefonbog/telefonbog/pkg/auth"
	"github.com/telefonbog/telefonbog/pkg/logging"
	"github.com/telefonbog/telefonbog/pkg/models"
	"github.com/telefonbog/telefonbog/pkg/services"
)

// Messages shown to users.
const (
	MsgNoResults    = "Ingen resultater"
	MsgInvalidCPR   = "Ugyldigt CPR-nummer"
	MsgNoUsername   = "Indtast et DQ-nummer"
	MsgNoCPRRights  = "Du har ikke de rigtige rettigheder til at søge på CPR-numre"
	MsgNotLoggedIn  = "Du er ikke logget ind"
	MsgAuditFailed  = "Søgningen kunne ikke logges og blev afbrudt"
	msgErrorPrefix  = "Fejl: "
	msgInvalidInput = "Ugyldig forespørgsel"
)

// CPRSearchRequest is the body of POST /api/search/cpr.
type CPRSearchRequest struct {
	CPR string `json:"cpr"`
}

// UsernameSearchRequest is the body of POST /api/search/username.
type UsernameSearchRequest struct {
	Username string `json:"username"`
}

// SearchResponse lists the matching employments. Results is never null.
type SearchResponse struct {
	Results []models.PersonRecord `json:"results"`
	Message string                `json:"message,omitempty"`
}

// EmailLookupRequest is the body of POST /api/lookup/emails.
type EmailLookupRequest struct {
	CPRs string `json:"cprs"`
}

// EmailLookupResponse holds one email (or IKKE_FUNDET) per CPR, comma separated.
type EmailLookupResponse struct {
	Emails string `json:"emails"`
}

// SearchHandler exposes the directory searches.
type SearchHandler struct {
	directory services.DirectoryService
	logger    *zap.Logger
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(directory services.DirectoryService, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		directory: directory,
		logger:    logger,
	}
}

// RegisterRoutes registers the search routes. They are not wrapped in
// RequireCaller: the directory service rejects and security-logs anonymous
// searches itself.
func (h *SearchHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/search/cpr", h.SearchCPR)
	mux.HandleFunc("POST /api/search/username", h.SearchUsername)
	mux.HandleFunc("POST /api/lookup/emails", h.LookupEmails)
}

// SearchCPR handles POST /api/search/cpr
func (h *SearchHandler) SearchCPR(w http.ResponseWriter, r *http.Request) {
	var req CPRSearchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.invalidRequest(w, err)
		return
	}

	records, found, err := h.directory.SearchCPR(r.Context(), auth.CallerFromContext(r.Context()), req.CPR)
	h.writeSearchResult(w, records, found, err)
}

// SearchUsername handles POST /api/search/username
func (h *SearchHandler) SearchUsername(w http.ResponseWriter, r *http.Request) {
	var req UsernameSearchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.invalidRequest(w, err)
		return
	}

	records, found, err := h.directory.SearchUsername(r.Context(), auth.CallerFromContext(r.Context()), req.Username)
	h.writeSearchResult(w, records, found, err)
}

// LookupEmails handles POST /api/lookup/emails
func (h *SearchHandler) LookupEmails(w http.ResponseWriter, r *http.Request) {
	var req EmailLookupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.invalidRequest(w, err)
		return
	}

	emails, err := h.directory.BulkEmails(r.Context(), auth.CallerFromContext(r.Context()), req.CPRs)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, EmailLookupResponse{Emails: emails}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *SearchHandler) writeSearchResult(w http.ResponseWriter, records []models.PersonRecord, found bool, err error) {
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := SearchResponse{Results: records}
	if !found || len(records) == 0 {
		resp = SearchResponse{Results: []models.PersonRecord{}, Message: MsgNoResults}
	}

	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// writeServiceError maps directory errors to status codes. Upstream errors
// are shown to the user, sanitized, after the "Fejl: " prefix.
func (h *SearchHandler) writeServiceError(w http.ResponseWriter, err error) {
	var (
		status  int
		code    string
		message string
	)

	switch {
	case errors.Is(err, apperrors.ErrInvalidCPR):
		status, code, message = http.StatusBadRequest, "invalid_cpr", MsgInvalidCPR
	case errors.Is(err, apperrors.ErrInvalidUsername):
		status, code, message = http.StatusBadRequest, "invalid_username", MsgNoUsername
	case errors.Is(err, apperrors.ErrUnauthorized):
		status, code, message = http.StatusUnauthorized, "unauthorized", MsgNotLoggedIn
	case errors.Is(err, apperrors.ErrCPRForbidden):
		status, code, message = http.StatusForbidden, "forbidden", MsgNoCPRRights
	case errors.Is(err, apperrors.ErrAuditWrite):
		h.logger.Error("Search aborted: audit write failed", zap.String("error", logging.SanitizeError(err)))
		status, code, message = http.StatusInternalServerError, "audit_failed", MsgAuditFailed
	case errors.Is(err, apperrors.ErrUpstream):
		sanitized := logging.SanitizeError(err)
		h.logger.Error("Directory search failed", zap.String("error", sanitized))
		status, code, message = http.StatusBadGateway, "upstream_error", msgErrorPrefix+sanitized
	default:
		h.logger.Error("Search failed", zap.String("error", logging.SanitizeError(err)))
		status, code, message = http.StatusInternalServerError, "internal_error", msgErrorPrefix+"intern fejl"
	}

	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

func (h *SearchHandler) invalidRequest(w http.ResponseWriter, err error) {
	h.logger.Debug("Invalid request body", zap.Error(err))
	if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", msgInvalidInput); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

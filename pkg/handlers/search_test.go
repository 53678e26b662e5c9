package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/telefonbog/telefonbog/pkg/apperrors"
	"github.com/telefonbog/telefonbog/pkg/auth"
	"github.com/telefonbog/telefonbog/pkg/models"
)

var testCaller = &models.Caller{Username: "az12345", Email: "jens@aarhus.dk", Roles: []string{"cpr"}}

func searchRequest(path, body string, caller *models.Caller) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req = req.WithContext(auth.WithCaller(req.Context(), caller))
	}
	return req
}

func serve(t *testing.T, dir *mockDirectoryService, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	NewSearchHandler(dir, zap.NewNop()).RegisterRoutes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestSearchHandler_SearchCPR_Found(t *testing.T) {
	records := []models.PersonRecord{{
		Name: "Jens Hansen", Email: "jens@aarhus.dk", Phone: "89402000",
		Mobile: "-", Department: "Borgerservice", Username: "az12345",
	}}
	dir := &mockDirectoryService{records: records, found: true}

	rec := serve(t, dir, searchRequest("/api/search/cpr", `{"cpr":"010190-1234"}`, testCaller))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "010190-1234", dir.gotInput)
	assert.Equal(t, testCaller, dir.gotCaller)

	resp := decodeBody[SearchResponse](t, rec)
	assert.Equal(t, records, resp.Results)
	assert.Empty(t, resp.Message)
}

func TestSearchHandler_NoResults(t *testing.T) {
	for _, path := range []string{"/api/search/cpr", "/api/search/username"} {
		t.Run(path, func(t *testing.T) {
			dir := &mockDirectoryService{found: false}

			rec := serve(t, dir, searchRequest(path, `{"cpr":"0101901234","username":"az1"}`, testCaller))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"results":[],"message":"Ingen resultater"}`, rec.Body.String())
		})
	}
}

func TestSearchHandler_SearchUsername(t *testing.T) {
	dir := &mockDirectoryService{records: []models.PersonRecord{{Name: "A", Username: "az1"}}, found: true}

	rec := serve(t, dir, searchRequest("/api/search/username", `{"username":"az1"}`, testCaller))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "az1", dir.gotInput)
	assert.Len(t, decodeBody[SearchResponse](t, rec).Results, 1)
}

func TestSearchHandler_AnonymousReachesService(t *testing.T) {
	dir := &mockDirectoryService{err: apperrors.ErrUnauthorized}

	rec := serve(t, dir, searchRequest("/api/search/username", `{"username":"az1"}`, nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, dir.gotCaller)
	assert.Equal(t, MsgNotLoggedIn, decodeBody[map[string]string](t, rec)["message"])
}

func TestSearchHandler_ErrorMapping(t *testing.T) {
	upstream := &apperrors.UpstreamError{
		Method:     http.MethodPost,
		URL:        "https://delta.example/api/object/graph-query",
		StatusCode: http.StatusServiceUnavailable,
		Message:    "unexpected status",
	}

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{"invalid cpr", apperrors.ErrInvalidCPR, http.StatusBadRequest, "invalid_cpr", "Ugyldigt CPR-nummer"},
		{"empty username", apperrors.ErrInvalidUsername, http.StatusBadRequest, "invalid_username", MsgNoUsername},
		{"unauthorized", apperrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", MsgNotLoggedIn},
		{"forbidden", apperrors.ErrCPRForbidden, http.StatusForbidden, "forbidden", "Du har ikke de rigtige rettigheder til at søge på CPR-numre"},
		{"audit", fmt.Errorf("%w: %w", apperrors.ErrAuditWrite, errors.New("connection refused")), http.StatusInternalServerError, "audit_failed", MsgAuditFailed},
		{"upstream", fmt.Errorf("search by cpr: %w", upstream), http.StatusBadGateway, "upstream_error", "Fejl: search by cpr: " + upstream.Error()},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal_error", "Fejl: intern fejl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := &mockDirectoryService{err: tt.err}

			rec := serve(t, dir, searchRequest("/api/search/cpr", `{"cpr":"0101901234"}`, testCaller))

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeBody[map[string]string](t, rec)
			assert.Equal(t, tt.wantCode, body["error"])
			assert.Equal(t, tt.wantMessage, body["message"])
		})
	}
}

func TestSearchHandler_UpstreamMessageIsSanitized(t *testing.T) {
	err := &apperrors.UpstreamError{
		Method:     http.MethodPost,
		URL:        "https://delta.example/api/object/graph-query",
		Message:    "transport error",
		Underlying: errors.New("lookup 0101901234 failed"),
	}
	dir := &mockDirectoryService{err: err}

	rec := serve(t, dir, searchRequest("/api/search/cpr", `{"cpr":"0101901234"}`, testCaller))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	msg := decodeBody[map[string]string](t, rec)["message"]
	assert.NotContains(t, msg, "0101901234")
	assert.Contains(t, msg, "010190-XXXX")
}

func TestSearchHandler_InvalidBody(t *testing.T) {
	dir := &mockDirectoryService{}

	rec := serve(t, dir, searchRequest("/api/search/cpr", `{"cpr":`, testCaller))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeBody[map[string]string](t, rec)["error"])
	assert.Nil(t, dir.gotCaller)
}

func TestSearchHandler_MethodNotAllowed(t *testing.T) {
	rec := serve(t, &mockDirectoryService{}, httptest.NewRequest(http.MethodGet, "/api/search/cpr", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSearchHandler_LookupEmails(t *testing.T) {
	dir := &mockDirectoryService{emails: "jens@aarhus.dk,IKKE_FUNDET"}

	rec := serve(t, dir, searchRequest("/api/lookup/emails", `{"cprs":"0101901234, 0202802345"}`, testCaller))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0101901234, 0202802345", dir.gotInput)
	assert.JSONEq(t, `{"emails":"jens@aarhus.dk,IKKE_FUNDET"}`, rec.Body.String())
}

func TestSearchHandler_LookupEmails_Forbidden(t *testing.T) {
	dir := &mockDirectoryService{err: apperrors.ErrCPRForbidden}

	rec := serve(t, dir, searchRequest("/api/lookup/emails", `{"cprs":"0101901234"}`, &models.Caller{Username: "u"}))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

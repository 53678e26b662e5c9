package handlers

import (
	"context"

	"github.com/telefonbog/telefonbog/pkg/auth"
	"github.com/telefonbog/telefonbog/pkg/delta"
	"github.com/telefonbog/telefonbog/pkg/models"
)

// mockDirectoryService records what the handler passed and returns canned results.
type mockDirectoryService struct {
	records []models.PersonRecord
	found   bool
	emails  string
	err     error

	gotCaller *models.Caller
	gotInput  string
}

func (m *mockDirectoryService) BuildCPRQuery(ctx context.Context, caller *models.Caller, cpr string, hasCPRRights bool) (*delta.GraphQueryRequest, error) {
	return nil, nil
}

func (m *mockDirectoryService) BuildUsernameQuery(ctx context.Context, caller *models.Caller, username string) *delta.GraphQueryRequest {
	return nil
}

func (m *mockDirectoryService) SearchCPR(ctx context.Context, caller *models.Caller, raw string) ([]models.PersonRecord, bool, error) {
	m.gotCaller, m.gotInput = caller, raw
	return m.records, m.found, m.err
}

func (m *mockDirectoryService) SearchUsername(ctx context.Context, caller *models.Caller, username string) ([]models.PersonRecord, bool, error) {
	m.gotCaller, m.gotInput = caller, username
	return m.records, m.found, m.err
}

func (m *mockDirectoryService) BulkEmails(ctx context.Context, caller *models.Caller, text string) (string, error) {
	m.gotCaller, m.gotInput = caller, text
	return m.emails, m.err
}

// mockLoginFlow stands in for the Keycloak code flow.
type mockLoginFlow struct {
	caller      *models.Caller
	exchangeErr error
	logoutURL   string

	gotState auth.LoginState
	gotCode  string
}

func (m *mockLoginFlow) AuthCodeURL(state auth.LoginState) string {
	m.gotState = state
	return "https://keycloak.example.com/realms/aarhus/protocol/openid-connect/auth?state=" + state.State
}

func (m *mockLoginFlow) Exchange(ctx context.Context, code string, state auth.LoginState) (*models.Caller, error) {
	m.gotCode = code
	m.gotState = state
	if m.exchangeErr != nil {
		return nil, m.exchangeErr
	}
	return m.caller, nil
}

func (m *mockLoginFlow) LogoutURL(postLogoutRedirect string) string {
	if m.logoutURL == "" {
		return ""
	}
	return m.logoutURL + "?post_logout_redirect_uri=" + postLogoutRedirect
}

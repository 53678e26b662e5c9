package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/telefonbog/telefonbog/pkg/apperrors"
	"github.com/telefonbog/telefonbog/pkg/audit"
	"github.com/telefonbog/telefonbog/pkg/cpr"
	"github.com/telefonbog/telefonbog/pkg/delta"
	"github.com/telefonbog/telefonbog/pkg/metrics"
	"github.com/telefonbog/telefonbog/pkg/models"
)

// EmailNotFound replaces the email of a CPR without an active engagement in
// bulk lookups.
const EmailNotFound = "IKKE_FUNDET"

// DefaultCPRRole is the Keycloak client role that permits CPR searches.
const DefaultCPRRole = "cpr"

// DirectoryService builds graph queries for callers and runs them.
type DirectoryService interface {
	// BuildCPRQuery returns nil when caller is nil or lacks CPR rights; no
	// audit record is written in that case. Otherwise the search is audited
	// first and an audit failure means no query.
	BuildCPRQuery(ctx context.Context, caller *models.Caller, cpr string, hasCPRRights bool) (*delta.GraphQueryRequest, error)

	// BuildUsernameQuery returns nil when caller is nil.
	BuildUsernameQuery(ctx context.Context, caller *models.Caller, username string) *delta.GraphQueryRequest

	// SearchCPR validates raw, checks the caller's CPR role, audits and searches.
	SearchCPR(ctx context.Context, caller *models.Caller, raw string) ([]models.PersonRecord, bool, error)

	// SearchUsername searches by DQ-number.
	SearchUsername(ctx context.Context, caller *models.Caller, username string) ([]models.PersonRecord, bool, error)

	// BulkEmails resolves a comma separated CPR list to a comma separated
	// email list, one entry per CPR in input order.
	BulkEmails(ctx context.Context, caller *models.Caller, text string) (string, error)
}

type directoryService struct {
	audit    AuditService
	searcher delta.Searcher
	security *audit.SecurityAuditor
	metrics  *metrics.Metrics
	cprRole  string
	logger   *zap.Logger
}

// NewDirectoryService creates a DirectoryService. An empty cprRole selects DefaultCPRRole.
func NewDirectoryService(
	auditService AuditService,
	searcher delta.Searcher,
	security *audit.SecurityAuditor,
	m *metrics.Metrics,
	cprRole string,
	logger *zap.Logger,
) DirectoryService {
	if cprRole == "" {
		cprRole = DefaultCPRRole
	}
	return &directoryService{
		audit:    auditService,
		searcher: searcher,
		security: security,
		metrics:  m,
		cprRole:  cprRole,
		logger:   logger.Named("directory"),
	}
}

var _ DirectoryService = (*directoryService)(nil)

func (s *directoryService) BuildCPRQuery(ctx context.Context, caller *models.Caller, cprNumber string, hasCPRRights bool) (*delta.GraphQueryRequest, error) {
	if caller == nil {
		s.security.LogUnauthenticatedSearch(models.IdentifierCPR)
		return nil, nil
	}
	if !hasCPRRights {
		s.security.LogCPRSearchDenied(caller, 1)
		return nil, nil
	}

	if err := s.audit.RecordCPRSearch(ctx, caller, cprNumber); err != nil {
		return nil, err
	}
	s.security.LogCPRSearch(caller, cprNumber)

	return delta.NewGraphQuery(delta.FilterCPR, cprNumber), nil
}

func (s *directoryService) BuildUsernameQuery(ctx context.Context, caller *models.Caller, username string) *delta.GraphQueryRequest {
	if caller == nil {
		s.security.LogUnauthenticatedSearch(models.IdentifierUsername)
		return nil
	}

	s.logger.Info("Username search",
		zap.String("username", caller.Username),
		zap.String("email", caller.Email),
		zap.String("query", username))

	return delta.NewGraphQuery(delta.FilterUsername, username)
}

func (s *directoryService) SearchCPR(ctx context.Context, caller *models.Caller, raw string) ([]models.PersonRecord, bool, error) {
	records, found, err := s.searchCPR(ctx, caller, raw)
	s.observe(models.IdentifierCPR, found, err)
	return records, found, err
}

func (s *directoryService) searchCPR(ctx context.Context, caller *models.Caller, raw string) ([]models.PersonRecord, bool, error) {
	if caller == nil {
		s.security.LogUnauthenticatedSearch(models.IdentifierCPR)
		return nil, false, apperrors.ErrUnauthorized
	}

	hasRights := caller.HasRole(s.cprRole)
	if hasRights && !cpr.Validate(raw) {
		return nil, false, apperrors.ErrInvalidCPR
	}

	id := models.CPR(cpr.Normalize(raw))
	query, err := s.BuildCPRQuery(ctx, caller, id.Value, hasRights)
	if err != nil {
		return nil, false, err
	}
	if query == nil {
		return nil, false, apperrors.ErrCPRForbidden
	}

	return s.run(ctx, caller, id, query)
}

func (s *directoryService) SearchUsername(ctx context.Context, caller *models.Caller, username string) ([]models.PersonRecord, bool, error) {
	records, found, err := s.searchUsername(ctx, caller, username)
	s.observe(models.IdentifierUsername, found, err)
	return records, found, err
}

func (s *directoryService) searchUsername(ctx context.Context, caller *models.Caller, username string) ([]models.PersonRecord, bool, error) {
	id := models.Username(strings.TrimSpace(username))
	if caller != nil && id.Value == "" {
		return nil, false, apperrors.ErrInvalidUsername
	}
	query := s.BuildUsernameQuery(ctx, caller, id.Value)
	if query == nil {
		return nil, false, apperrors.ErrUnauthorized
	}
	return s.run(ctx, caller, id, query)
}

func (s *directoryService) BulkEmails(ctx context.Context, caller *models.Caller, text string) (string, error) {
	if caller == nil {
		s.security.LogUnauthenticatedSearch(models.IdentifierCPR)
		return "", apperrors.ErrUnauthorized
	}

	hasRights := caller.HasRole(s.cprRole)
	cprs, ok := cpr.ParseList(text)
	if !hasRights {
		s.security.LogCPRSearchDenied(caller, len(cprs))
		return "", apperrors.ErrCPRForbidden
	}
	if !ok || len(cprs) == 0 {
		return "", apperrors.ErrInvalidCPR
	}

	s.logger.Info("Bulk email lookup",
		zap.String("username", caller.Username),
		zap.Int("count", len(cprs)))

	// Sequential on purpose: each CPR is audited right before its own search.
	emails := make([]string, 0, len(cprs))
	for i, c := range cprs {
		records, found, err := s.SearchCPR(ctx, caller, c)
		if err != nil {
			return "", fmt.Errorf("lookup %d of %d: %w", i+1, len(cprs), err)
		}
		if !found || len(records) == 0 || !records[0].Found() {
			emails = append(emails, EmailNotFound)
			continue
		}
		emails = append(emails, records[0].Email)
	}

	return strings.Join(emails, ","), nil
}

func (s *directoryService) run(ctx context.Context, caller *models.Caller, id models.SearchIdentifier, query *delta.GraphQueryRequest) ([]models.PersonRecord, bool, error) {
	records, found, err := s.searcher.Search(ctx, query, caller)
	if err != nil {
		return nil, false, fmt.Errorf("search by %s: %w", id.Kind, err)
	}
	return records, found, nil
}

func (s *directoryService) observe(kind models.IdentifierKind, found bool, err error) {
	outcome := metrics.OutcomeFound
	switch {
	case errors.Is(err, apperrors.ErrInvalidCPR), errors.Is(err, apperrors.ErrInvalidUsername):
		outcome = metrics.OutcomeInvalid
	case errors.Is(err, apperrors.ErrCPRForbidden), errors.Is(err, apperrors.ErrUnauthorized):
		outcome = metrics.OutcomeForbidden
	case err != nil:
		outcome = metrics.OutcomeError
	case !found:
		outcome = metrics.OutcomeNotFound
	}
	s.metrics.ObserveSearch(string(kind), outcome)
}

package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/telefonbog/telefonbog/pkg/apperrors"
	"github.com/telefonbog/telefonbog/pkg/metrics"
	"github.com/telefonbog/telefonbog/pkg/models"
	"github.com/telefonbog/telefonbog/pkg/repositories"
)

// AuditService records CPR searches before they are sent to Delta.
type AuditService interface {
	// RecordCPRSearch durably stores who searched for cpr. A nil error means
	// the row is committed.
	RecordCPRSearch(ctx context.Context, caller *models.Caller, cpr string) error
}

type auditService struct {
	repo    repositories.AuditRepository
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewAuditService creates a new AuditService.
func NewAuditService(repo repositories.AuditRepository, m *metrics.Metrics, logger *zap.Logger) AuditService {
	return &auditService{
		repo:    repo,
		metrics: m,
		logger:  logger.Named("audit-service"),
	}
}

var _ AuditService = (*auditService)(nil)

// CPRSearchMessage is the message stored for a CPR search.
func CPRSearchMessage(caller *models.Caller, cpr string) string {
	return fmt.Sprintf("User %s (email: %s) is searching for CPR: %s", caller.Username, caller.Email, cpr)
}

func (s *auditService) RecordCPRSearch(ctx context.Context, caller *models.Caller, cpr string) error {
	if caller == nil {
		return apperrors.ErrUnauthorized
	}

	record := &models.AuditRecord{
		Username: caller.Username,
		Email:    caller.Email,
		Message:  CPRSearchMessage(caller, cpr),
	}

	err := s.repo.Create(ctx, record)
	s.metrics.ObserveAuditWrite(err)
	if err != nil {
		s.logger.Error("Failed to create audit record",
			zap.String("username", caller.Username),
			zap.Error(err))
		return fmt.Errorf("%w: %w", apperrors.ErrAuditWrite, err)
	}

	return nil
}

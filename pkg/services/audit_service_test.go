package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/telefonbog/telefonbog/pkg/apperrors"
	"github.com/telefonbog/telefonbog/pkg/metrics"
	"github.com/telefonbog/telefonbog/pkg/models"
)

// mockAuditRepository is a mock implementation of AuditRepository for testing.
type mockAuditRepository struct {
	records   []*models.AuditRecord
	createErr error
}

func (m *mockAuditRepository) Create(ctx context.Context, record *models.AuditRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.CreatedAt = time.Now()
	m.records = append(m.records, record)
	return nil
}

func TestAuditService_RecordCPRSearch(t *testing.T) {
	repo := &mockAuditRepository{}
	m := metrics.New(prometheus.NewRegistry())
	svc := NewAuditService(repo, m, zap.NewNop())

	caller := &models.Caller{Username: "az12345", Email: "jens@aarhus.dk"}
	err := svc.RecordCPRSearch(context.Background(), caller, "0101901234")
	require.NoError(t, err)

	require.Len(t, repo.records, 1)
	record := repo.records[0]
	assert.Equal(t, "az12345", record.Username)
	assert.Equal(t, "jens@aarhus.dk", record.Email)
	assert.Equal(t, "User az12345 (email: jens@aarhus.dk) is searching for CPR: 0101901234", record.Message)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditWrites.WithLabelValues("ok")))
}

func TestAuditService_RecordCPRSearch_RepositoryError(t *testing.T) {
	repo := &mockAuditRepository{createErr: errors.New("connection refused")}
	m := metrics.New(prometheus.NewRegistry())
	svc := NewAuditService(repo, m, zap.NewNop())

	err := svc.RecordCPRSearch(context.Background(), &models.Caller{Username: "u"}, "0101901234")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAuditWrite)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditWrites.WithLabelValues(metrics.OutcomeError)))
}

func TestAuditService_RecordCPRSearch_NilCaller(t *testing.T) {
	repo := &mockAuditRepository{}
	svc := NewAuditService(repo, nil, zap.NewNop())

	err := svc.RecordCPRSearch(context.Background(), nil, "0101901234")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Empty(t, repo.records)
}

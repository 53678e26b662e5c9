package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/telefonbog/telefonbog/pkg/database"
	"github.com/telefonbog/telefonbog/pkg/models"
)

// AuditRepository provides data access for the CPR search log.
type AuditRepository interface {
	// Create inserts a new audit record. ID and CreatedAt are filled in.
	Create(ctx context.Context, record *models.AuditRecord) error
}

type auditRepository struct {
	db    database.Querier
	table string
}

// NewAuditRepository creates a new AuditRepository over db.
func NewAuditRepository(db database.Querier) AuditRepository {
	return &auditRepository{
		db:    db,
		table: pgx.Identifier{database.Schema, "log"}.Sanitize(),
	}
}

var _ AuditRepository = (*auditRepository)(nil)

// Create runs as a single autocommitted statement, so the row is durable
// once Create returns nil.
func (r *auditRepository) Create(ctx context.Context, record *models.AuditRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	query := `
		INSERT INTO ` + r.table + ` (id, message, email, username)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		record.ID,
		record.Message,
		record.Email,
		record.Username,
	).Scan(&record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit record: %w", err)
	}

	return nil
}

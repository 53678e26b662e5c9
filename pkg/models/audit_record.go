package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditRecord is one row in the append-only CPR search log.
// Stored in telefonbog.log; CreatedAt is assigned by the database.
type AuditRecord struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

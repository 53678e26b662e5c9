// Package audit provides security audit logging for SIEM consumption.
// It logs security-relevant events in structured JSON format for easy parsing
// and integration with security information and event management systems.
//
// These log lines complement the telefonbog.log table: the table is the
// record of who searched for which CPR, the log lines are for alerting.
package audit

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/telefonbog/telefonbog/pkg/cpr"
	"github.com/telefonbog/telefonbog/pkg/models"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventCPRSearch is logged when an authorized CPR search is started.
	EventCPRSearch SecurityEventType = "cpr_search"
	// EventCPRSearchDenied is logged when a caller without the CPR role attempts a CPR search.
	EventCPRSearchDenied SecurityEventType = "cpr_search_denied"
	// EventUnauthenticatedSearch is logged when a search arrives without a caller.
	EventUnauthenticatedSearch SecurityEventType = "unauthenticated_search"
)

// SecurityEvent represents an auditable security event with all relevant context
// for SIEM ingestion and analysis.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	Username  string            `json:"username,omitempty"`
	Email     string            `json:"email,omitempty"`
	Details   any               `json:"details,omitempty"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// CPRSearchDetails identifies the searched CPR. The serial part is masked.
type CPRSearchDetails struct {
	MaskedCPR string `json:"masked_cpr"`
	Count     int    `json:"count,omitempty"` // bulk lookups only
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor with a dedicated logger namespace.
// The logger is automatically configured with "security_audit" namespace for easy
// filtering in SIEM systems.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// LogCPRSearch records an authorized CPR search at INFO level.
func (a *SecurityAuditor) LogCPRSearch(caller *models.Caller, rawCPR string) {
	event := a.newEvent(EventCPRSearch, caller, "info")
	event.Details = CPRSearchDetails{MaskedCPR: cpr.Mask(rawCPR)}

	a.logger.Info("CPR search",
		zap.String("event_json", marshalEvent(event)),
		zap.String("username", event.Username),
		zap.String("severity", event.Severity),
	)
}

// LogCPRSearchDenied records a CPR search refused for lack of the CPR role.
// Logged at WARN level; repeated denials for one user are worth alerting on.
func (a *SecurityAuditor) LogCPRSearchDenied(caller *models.Caller, count int) {
	event := a.newEvent(EventCPRSearchDenied, caller, "warning")
	if count > 1 {
		event.Details = CPRSearchDetails{Count: count}
	}

	a.logger.Warn("CPR search denied: missing role",
		zap.String("event_json", marshalEvent(event)),
		zap.String("username", event.Username),
		zap.String("email", event.Email),
		zap.String("severity", event.Severity),
	)
}

// LogUnauthenticatedSearch records a search attempted without a caller.
func (a *SecurityAuditor) LogUnauthenticatedSearch(kind models.IdentifierKind) {
	event := a.newEvent(EventUnauthenticatedSearch, nil, "warning")
	event.Details = map[string]string{"kind": string(kind)}

	a.logger.Warn("Search attempted without authentication",
		zap.String("event_json", marshalEvent(event)),
		zap.String("kind", string(kind)),
		zap.String("severity", event.Severity),
	)
}

func (a *SecurityAuditor) newEvent(eventType SecurityEventType, caller *models.Caller, severity string) SecurityEvent {
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Severity:  severity,
	}
	if caller != nil {
		event.Username = caller.Username
		event.Email = caller.Email
	}
	return event
}

func marshalEvent(event SecurityEvent) string {
	// Marshaling known types does not fail.
	data, _ := json.Marshal(event)
	return string(data)
}

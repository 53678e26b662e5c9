package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCPR      = errors.New("invalid CPR number")
	ErrInvalidUsername = errors.New("username is empty")
	ErrUnauthorized    = errors.New("authentication required")
	ErrCPRForbidden    = errors.New("caller lacks CPR search rights")
	ErrUpstream        = errors.New("directory service failed")
	ErrAuditWrite      = errors.New("audit log write failed")
)

// UpstreamError describes a failed call to the directory service.
// errors.Is(err, ErrUpstream) holds for every UpstreamError.
type UpstreamError struct {
	Method     string
	URL        string
	StatusCode int // 0 when no response was received
	Message    string
	Underlying error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Underlying != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Underlying)
	}
	return msg
}

func (e *UpstreamError) Unwrap() error {
	return e.Underlying
}

// Is matches ErrUpstream so callers need not know the concrete type.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

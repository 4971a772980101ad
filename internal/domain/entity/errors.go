package entity

import (
	"errors"
	"fmt"
	"time"

	"xnema-web/internal/domain/password"
)

var (
	ErrFlowNotFound    = errors.New("recovery flow not found")
	ErrFlowConflict    = errors.New("recovery flow is not accepting submissions")
	ErrMailboxEmpty    = errors.New("mailbox slot is empty")
	ErrSessionRequired = errors.New("a bound session token is required")
	ErrInvalidEmail    = errors.New("a valid email address is required")
)

// FlowErrorKind classifies user-facing flow failures
type FlowErrorKind string

const (
	KindLinkError       FlowErrorKind = "LINK_ERROR"
	KindPolicyViolation FlowErrorKind = "POLICY_VIOLATION"
	KindCommitError     FlowErrorKind = "COMMIT_ERROR"
)

// FlowError carries the text shown to the user as-is
type FlowError struct {
	Kind    FlowErrorKind
	Message string
	Policy  *password.Result
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// RateLimitError is returned when a caller exceeded its request budget
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

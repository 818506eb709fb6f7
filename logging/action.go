package logging

import (
	"time"

	"github.com/google/uuid"
)

// ActionLogEntry captures all context for a single API action invocation.
// One entry is emitted per request, after the action has settled.
type ActionLogEntry struct {
	Timestamp string `json:"timestamp"` // RFC3339 format
	RequestID string `json:"request_id"`
	Handler   string `json:"handler"` // "admin", "login", "operator", "users"
	Action    string `json:"action"`
	Caller    string `json:"caller,omitempty"` // Cognito username, when authenticated
	Outcome   string `json:"outcome"`          // "success" or "error"
	Duration  int64  `json:"duration_ms"`
	Error     string `json:"error,omitempty"`
}

// Outcome values for ActionLogEntry.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// NewActionLogEntry creates an ActionLogEntry for the given handler and
// action, stamped with the current time and a fresh request ID.
func NewActionLogEntry(handler, action, caller string) ActionLogEntry {
	return ActionLogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: uuid.NewString(),
		Handler:   handler,
		Action:    action,
		Caller:    caller,
	}
}

// Settle records the outcome of the action. A nil error marks the entry
// as successful; otherwise the error text is captured.
func (e *ActionLogEntry) Settle(start time.Time, err error) {
	e.Duration = time.Since(start).Milliseconds()
	if err != nil {
		e.Outcome = OutcomeError
		e.Error = err.Error()
		return
	}
	e.Outcome = OutcomeSuccess
}

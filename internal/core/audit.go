package core

import "time"

type AuditEntry struct {
	// ID is the unique request ID (X-Correlation-ID)
	ID string `json:"id"`

	// Time is the timestamp of the event
	Time time.Time `json:"time"`

	// Action describing what happened (e.g. "request.approve", "enrollment.begin")
	Action string `json:"action"`

	// Actor identifies the admin or system component that performed the action.
	Actor string `json:"actor,omitempty"`

	// Subject identifiers involved in the event.
	RequestID    string `json:"request_id,omitempty"`
	InvitationID string `json:"invitation_id,omitempty"`
	UserID       string `json:"user_id,omitempty"`
	GroupID      string `json:"group_id,omitempty"`
	Email        string `json:"email,omitempty"`

	// PolicyName is set when an auto-approval rule decided the outcome.
	PolicyName string `json:"policy_name,omitempty"`

	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	// Metadata contains extra event details
	Metadata map[string]any `json:"metadata,omitempty"`
}

type Auditor interface {
	Log(entry AuditEntry) error
	Close() error
}

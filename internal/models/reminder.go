package models

import "time"

// ReminderOutcome records whether a dispatch attempt reached the gateway.
type ReminderOutcome string

const (
	ReminderOutcomeSuccess ReminderOutcome = "success"
	ReminderOutcomeFailed  ReminderOutcome = "failed"
)

// Valid returns true when the outcome is a supported value.
func (o ReminderOutcome) Valid() bool {
	return o == ReminderOutcomeSuccess || o == ReminderOutcomeFailed
}

// ReminderRecord is the durable, append-only log entry behind dispatch
// deduplication. Rows are never mutated; a success row inside the cooldown
// window suppresses repeat sends for the same (student, session, tier).
type ReminderRecord struct {
	ID           string          `db:"id" json:"id"`
	StudentID    string          `db:"student_id" json:"student_id"`
	SessionID    string          `db:"session_id" json:"session_id"`
	Tier         AttendanceTier  `db:"tier" json:"tier"`
	Outcome      ReminderOutcome `db:"outcome" json:"outcome"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	ProviderID   *string         `db:"provider_id" json:"provider_id,omitempty"`
	SentAt       time.Time       `db:"sent_at" json:"sent_at"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// ReminderFilter scopes reminder log listings.
type ReminderFilter struct {
	StudentID string
	SessionID string
	Outcome   *ReminderOutcome
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

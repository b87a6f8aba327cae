package models

import "time"

// MaxSessionWindows caps how many scan windows a session may carry.
const MaxSessionWindows = 2

// Session is one scannable instance of a meeting, identified by the meeting
// and its week number.
type Session struct {
	ID           string    `db:"id" json:"id"`
	MeetingID    string    `db:"meeting_id" json:"meeting_id"`
	Week         int       `db:"week" json:"week"`
	ScheduledEnd time.Time `db:"scheduled_end" json:"scheduled_end"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// SessionWindow is one time span during which presence may be scanned.
// Windows are immutable once created; a session holds one or two, ordered
// by ordinal, and the second never starts before the first ends.
type SessionWindow struct {
	ID        string    `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	Ordinal   int       `db:"ordinal" json:"ordinal"`
	StartsAt  time.Time `db:"starts_at" json:"starts_at"`
	EndsAt    time.Time `db:"ends_at" json:"ends_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SessionDetail bundles a session with its windows.
type SessionDetail struct {
	Session
	Windows []SessionWindow `json:"windows"`
}

// LastWindowEnd returns the end of the session's final window, or the zero
// time when no window exists.
func (d *SessionDetail) LastWindowEnd() time.Time {
	var last time.Time
	for _, w := range d.Windows {
		if w.EndsAt.After(last) {
			last = w.EndsAt
		}
	}
	return last
}

// SessionSummary is the detector's view of a recently expired session.
type SessionSummary struct {
	SessionID     string    `db:"session_id" json:"session_id"`
	MeetingID     string    `db:"meeting_id" json:"meeting_id"`
	Week          int       `db:"week" json:"week"`
	ClassID       string    `db:"class_id" json:"class_id"`
	CourseName    string    `db:"course_name" json:"course_name"`
	WindowCount   int       `db:"window_count" json:"window_count"`
	LastWindowEnd time.Time `db:"last_window_end" json:"last_window_end"`
}

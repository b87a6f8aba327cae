package models

import "time"

// PresenceEvent records that a student scanned into a session window.
// Duplicate scans for the same (student, window) pair are tolerated at the
// API but collapse to a single row.
type PresenceEvent struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	WindowID  string    `db:"window_id" json:"window_id"`
	ScannedAt time.Time `db:"scanned_at" json:"scanned_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PresenceCount reports, per student, in how many distinct windows of a
// session the student has at least one presence event.
type PresenceCount struct {
	StudentID      string `db:"student_id" json:"student_id"`
	WindowsPresent int    `db:"windows_present" json:"windows_present"`
}

// SessionPresence reports one student's distinct-window presence count for
// a single session, including zero for sessions with no scans.
type SessionPresence struct {
	SessionID      string `db:"session_id" json:"session_id"`
	WindowsPresent int    `db:"windows_present" json:"windows_present"`
}

package models

import "time"

// Meeting is a recurring course meeting slot whose weekly instances are
// tracked as sessions.
type Meeting struct {
	ID          string    `db:"id" json:"id"`
	ClassID     string    `db:"class_id" json:"class_id"`
	CourseName  string    `db:"course_name" json:"course_name"`
	SlotMinutes int       `db:"slot_minutes" json:"slot_minutes"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Slot returns the scheduled length of one meeting instance.
func (m *Meeting) Slot() time.Duration {
	return time.Duration(m.SlotMinutes) * time.Minute
}

// Participant is a student enrolled in the class owning a meeting, the
// audience for scoring and reminders.
type Participant struct {
	StudentID string `db:"student_id" json:"student_id"`
	FullName  string `db:"full_name" json:"full_name"`
	Phone     string `db:"phone" json:"phone"`
}

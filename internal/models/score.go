package models

// AttendanceTier is the derived attendance category for a student on a
// session. It is never stored; it is a function of presence counts.
type AttendanceTier string

const (
	TierFull    AttendanceTier = "full"
	TierPartial AttendanceTier = "partial"
	TierAbsent  AttendanceTier = "absent"
)

// ScoreTable maps distinct-window presence counts to a percentage score.
type ScoreTable struct {
	Name    string
	Full    int
	Partial int
}

// StandardTable is the canonical reminder scoring table.
var StandardTable = ScoreTable{Name: "standard", Full: 100, Partial: 50}

// LectureTable is the legacy lecture-session table kept for compatibility
// with historical recap exports.
var LectureTable = ScoreTable{Name: "lecture", Full: 90, Partial: 45}

// Score maps a distinct-window presence count onto a score and tier.
func (t ScoreTable) Score(windowsPresent int) (int, AttendanceTier) {
	switch {
	case windowsPresent >= 2:
		return t.Full, TierFull
	case windowsPresent == 1:
		return t.Partial, TierPartial
	default:
		return 0, TierAbsent
	}
}

// StudentScore is the scored result for one student on one session.
type StudentScore struct {
	StudentID      string         `json:"student_id"`
	FullName       string         `json:"full_name"`
	WindowsPresent int            `json:"windows_present"`
	Score          int            `json:"score"`
	Tier           AttendanceTier `json:"tier"`
}

// Standing is a student's cumulative attendance position on a meeting.
type Standing struct {
	StudentID       string  `json:"student_id"`
	MeetingID       string  `json:"meeting_id"`
	SessionsElapsed int     `json:"sessions_elapsed"`
	AverageScore    float64 `json:"average_score"`
	RemainingBudget int     `json:"remaining_budget"`
	BelowThreshold  bool    `json:"below_threshold"`
}

package dto

import (
	"time"

	"github.com/noah-isme/sma-presensi-api/internal/models"
)

// ReminderListQuery captures reminder log list filters.
type ReminderListQuery struct {
	StudentID string `form:"studentId"`
	SessionID string `form:"sessionId"`
	Outcome   string `form:"outcome"`
	From      string `form:"from"`
	To        string `form:"to"`
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
}

// Filter converts the query into a repository filter.
func (q ReminderListQuery) Filter() models.ReminderFilter {
	filter := models.ReminderFilter{
		StudentID: q.StudentID,
		SessionID: q.SessionID,
		Page:      q.Page,
		PageSize:  q.PageSize,
	}
	if q.Outcome != "" {
		outcome := models.ReminderOutcome(q.Outcome)
		if outcome.Valid() {
			filter.Outcome = &outcome
		}
	}
	if t, err := time.Parse(time.RFC3339, q.From); err == nil {
		filter.From = &t
	}
	if t, err := time.Parse(time.RFC3339, q.To); err == nil {
		filter.To = &t
	}
	return filter
}

// RunStats mirrors one scan's counters for API consumers.
type RunStats struct {
	SessionsFound   int `json:"sessions_found"`
	SessionsSkipped int `json:"sessions_skipped"`
	Sent            int `json:"sent"`
	Failed          int `json:"failed"`
	Suppressed      int `json:"suppressed"`
}

// RunResponse reports the result of a manually triggered scan.
type RunResponse struct {
	RanAt time.Time `json:"ran_at"`
	Stats RunStats  `json:"stats"`
}

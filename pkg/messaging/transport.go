package messaging

import "context"

// Message is the payload handed to an outbound transport. Subject fields
// identify the meeting occurrence; body fields carry the attendance verdict.
type Message struct {
	Recipient     string            `json:"recipient"`
	SubjectFields SubjectFields     `json:"subject_fields"`
	BodyFields    BodyFields        `json:"body_fields"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// SubjectFields identify the occurrence the message is about.
type SubjectFields struct {
	CourseName string `json:"course_name"`
	Week       int    `json:"week"`
}

// BodyFields carry the per-student attendance outcome.
type BodyFields struct {
	StudentName     string `json:"student_name"`
	Tier            string `json:"tier"`
	Score           int    `json:"score"`
	Standing        int    `json:"standing"`
	RemainingBudget int    `json:"remaining_budget"`
	BelowThreshold  bool   `json:"below_threshold"`
}

// Outcome reports the transport's verdict without raising an error: a failed
// send is a value so the caller can log and continue with the next recipient.
type Outcome struct {
	Success    bool
	ProviderID string
	Reason     string
}

// Failed builds a failure outcome with the given reason.
func Failed(reason string) Outcome {
	return Outcome{Success: false, Reason: reason}
}

// Transport delivers a composed message to its recipient.
type Transport interface {
	Send(ctx context.Context, msg Message) Outcome
}

package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-presensi-api/internal/models"
	"github.com/noah-isme/sma-presensi-api/pkg/messaging"
)

type expiryDetector interface {
	FindRecentlyExpired(ctx context.Context, from, to time.Time) ([]models.SessionSummary, error)
}

type sessionPresenceCounter interface {
	CountsBySession(ctx context.Context, sessionID string) ([]models.PresenceCount, error)
}

type standingProvider interface {
	Standing(ctx context.Context, meetingID, studentID string, now time.Time) (*models.Standing, error)
}

type deduplicator interface {
	ShouldSend(ctx context.Context, studentID, sessionID string, tier models.AttendanceTier, now time.Time) (bool, error)
	RecordOutcome(ctx context.Context, record *models.ReminderRecord) (bool, error)
	SeenProcessed(sessionID string, week int) bool
	MarkProcessed(sessionID string, week int)
}

type dispatchObserver interface {
	ObserveScan(found, processed int)
	ObserveDispatch(outcome models.ReminderOutcome, duration time.Duration)
	RecordSuppressed()
}

// ReminderServiceConfig tunes the expiry scan and dispatch loop.
type ReminderServiceConfig struct {
	Lookback        time.Duration
	DispatchDelay   time.Duration
	DispatchTimeout time.Duration
	PassThreshold   int
	Table           models.ScoreTable
}

// TickStats summarises one expiry scan.
type TickStats struct {
	SessionsFound   int `json:"sessions_found"`
	SessionsSkipped int `json:"sessions_skipped"`
	Sent            int `json:"sent"`
	Failed          int `json:"failed"`
	Suppressed      int `json:"suppressed"`
}

// ReminderService finds sessions whose scan windows just closed, scores
// every enrolled student, and dispatches at most one reminder per
// (student, session, tier) through the outbound transport.
type ReminderService struct {
	sessions  expiryDetector
	enrolled  participantLister
	presence  sessionPresenceCounter
	standings standingProvider
	dedup     deduplicator
	transport messaging.Transport
	metrics   dispatchObserver
	logger    *zap.Logger
	cfg       ReminderServiceConfig

	// sleep is swapped out in tests to avoid real inter-dispatch delays.
	sleep func(time.Duration)
}

// NewReminderService constructs ReminderService.
func NewReminderService(sessions expiryDetector, enrolled participantLister, presence sessionPresenceCounter, standings standingProvider, dedup deduplicator, transport messaging.Transport, metrics dispatchObserver, logger *zap.Logger, cfg ReminderServiceConfig) *ReminderService {
	if cfg.Lookback <= 0 {
		cfg.Lookback = 10 * time.Minute
	}
	if cfg.DispatchDelay <= 0 {
		cfg.DispatchDelay = 250 * time.Millisecond
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = 10 * time.Second
	}
	if cfg.PassThreshold <= 0 {
		cfg.PassThreshold = 80
	}
	if cfg.Table.Name == "" {
		cfg.Table = models.StandardTable
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderService{
		sessions:  sessions,
		enrolled:  enrolled,
		presence:  presence,
		standings: standings,
		dedup:     dedup,
		transport: transport,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		sleep:     time.Sleep,
	}
}

// ProcessExpired runs one full scan at the given instant: detect sessions
// whose last window ended inside the lookback, then score, deduplicate,
// compose and dispatch per student. Failures for one student or session
// never abort the rest of the scan.
func (s *ReminderService) ProcessExpired(ctx context.Context, now time.Time) (TickStats, error) {
	now = now.UTC()
	stats := TickStats{}

	from := now.Add(-s.cfg.Lookback)
	summaries, err := s.sessions.FindRecentlyExpired(ctx, from, now)
	if err != nil {
		return stats, fmt.Errorf("find expired sessions: %w", err)
	}
	stats.SessionsFound = len(summaries)

	processed := 0
	for _, summary := range summaries {
		if s.dedup.SeenProcessed(summary.SessionID, summary.Week) {
			stats.SessionsSkipped++
			continue
		}
		if err := s.processSession(ctx, summary, now, &stats); err != nil {
			s.logger.Error("session reminder pass failed",
				zap.String("session_id", summary.SessionID),
				zap.Int("week", summary.Week),
				zap.Error(err),
			)
			continue
		}
		s.dedup.MarkProcessed(summary.SessionID, summary.Week)
		processed++
	}

	if s.metrics != nil {
		s.metrics.ObserveScan(stats.SessionsFound, processed)
	}
	s.logger.Info("reminder scan finished",
		zap.Time("now", now),
		zap.Int("found", stats.SessionsFound),
		zap.Int("skipped", stats.SessionsSkipped),
		zap.Int("sent", stats.Sent),
		zap.Int("failed", stats.Failed),
		zap.Int("suppressed", stats.Suppressed),
	)
	return stats, nil
}

func (s *ReminderService) processSession(ctx context.Context, summary models.SessionSummary, now time.Time, stats *TickStats) error {
	participants, err := s.enrolled.ListParticipants(ctx, summary.ClassID)
	if err != nil {
		return fmt.Errorf("list participants: %w", err)
	}
	counts, err := s.presence.CountsBySession(ctx, summary.SessionID)
	if err != nil {
		return fmt.Errorf("count presence: %w", err)
	}
	byStudent := make(map[string]int, len(counts))
	for _, c := range counts {
		byStudent[c.StudentID] = c.WindowsPresent
	}

	for _, p := range participants {
		s.processStudent(ctx, summary, p, byStudent[p.StudentID], now, stats)
	}
	return nil
}

// processStudent handles one recipient. All failures are logged and
// swallowed so the loop continues with the next student.
func (s *ReminderService) processStudent(ctx context.Context, summary models.SessionSummary, p models.Participant, windowsPresent int, now time.Time, stats *TickStats) {
	score, tier := s.cfg.Table.Score(windowsPresent)

	ok, err := s.dedup.ShouldSend(ctx, p.StudentID, summary.SessionID, tier, now)
	if err != nil {
		s.logger.Warn("dedup check failed",
			zap.String("student_id", p.StudentID),
			zap.String("session_id", summary.SessionID),
			zap.Error(err),
		)
		return
	}
	if !ok {
		stats.Suppressed++
		if s.metrics != nil {
			s.metrics.RecordSuppressed()
		}
		return
	}

	standing, err := s.standings.Standing(ctx, summary.MeetingID, p.StudentID, now)
	if err != nil {
		s.logger.Warn("standing lookup failed",
			zap.String("student_id", p.StudentID),
			zap.String("meeting_id", summary.MeetingID),
			zap.Error(err),
		)
		return
	}

	msg := ComposeReminder(p, summary, score, tier, standing, s.cfg.PassThreshold)

	dispatchCtx, cancel := context.WithTimeout(ctx, s.cfg.DispatchTimeout)
	started := time.Now()
	outcome := s.transport.Send(dispatchCtx, msg)
	elapsed := time.Since(started)
	cancel()

	record := &models.ReminderRecord{
		StudentID: p.StudentID,
		SessionID: summary.SessionID,
		Tier:      tier,
		SentAt:    now,
	}
	if outcome.Success {
		record.Outcome = models.ReminderOutcomeSuccess
		if outcome.ProviderID != "" {
			providerID := outcome.ProviderID
			record.ProviderID = &providerID
		}
		stats.Sent++
	} else {
		record.Outcome = models.ReminderOutcomeFailed
		reason := outcome.Reason
		record.ErrorMessage = &reason
		stats.Failed++
		s.logger.Warn("reminder dispatch failed",
			zap.String("student_id", p.StudentID),
			zap.String("session_id", summary.SessionID),
			zap.String("reason", outcome.Reason),
		)
	}
	if s.metrics != nil {
		s.metrics.ObserveDispatch(record.Outcome, elapsed)
	}

	recorded, err := s.dedup.RecordOutcome(ctx, record)
	if err != nil {
		// A lost log row means a possible duplicate later, never a
		// crashed loop.
		s.logger.Error("reminder log append failed",
			zap.String("student_id", p.StudentID),
			zap.String("session_id", summary.SessionID),
			zap.Error(err),
		)
	} else if !recorded {
		// A racing scanner recorded the same success first; count this
		// send as suppressed so the totals stay at one per tuple.
		stats.Sent--
		stats.Suppressed++
		if s.metrics != nil {
			s.metrics.RecordSuppressed()
		}
		s.logger.Warn("reminder already recorded by a concurrent scan",
			zap.String("student_id", p.StudentID),
			zap.String("session_id", summary.SessionID),
		)
	}

	// Pace consecutive sends for the gateway's rate limit.
	s.sleep(s.cfg.DispatchDelay)
}

// ComposeReminder builds the outbound payload for one student and session.
// Pure function: no clock, no I/O.
func ComposeReminder(p models.Participant, summary models.SessionSummary, score int, tier models.AttendanceTier, standing *models.Standing, passThreshold int) messaging.Message {
	below := false
	remaining := 0
	standingPct := score
	if standing != nil {
		below = standing.BelowThreshold
		remaining = standing.RemainingBudget
		standingPct = int(standing.AverageScore)
	}
	return messaging.Message{
		Recipient: p.Phone,
		SubjectFields: messaging.SubjectFields{
			CourseName: summary.CourseName,
			Week:       summary.Week,
		},
		BodyFields: messaging.BodyFields{
			StudentName:     p.FullName,
			Tier:            string(tier),
			Score:           score,
			Standing:        standingPct,
			RemainingBudget: remaining,
			BelowThreshold:  below || standingPct < passThreshold,
		},
		Metadata: map[string]string{
			"session_id": summary.SessionID,
			"student_id": p.StudentID,
		},
	}
}

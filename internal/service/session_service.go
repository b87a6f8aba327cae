package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-presensi-api/internal/models"
	appErrors "github.com/noah-isme/sma-presensi-api/pkg/errors"
)

type sessionStore interface {
	Exists(ctx context.Context, meetingID string, week int) (bool, error)
	Create(ctx context.Context, session *models.Session, window *models.SessionWindow) error
	FindDetail(ctx context.Context, id string) (*models.SessionDetail, error)
	FindWindow(ctx context.Context, windowID string) (*models.SessionWindow, error)
	AppendWindow(ctx context.Context, window *models.SessionWindow) error
}

type meetingReader interface {
	FindByID(ctx context.Context, id string) (*models.Meeting, error)
}

type presenceWriter interface {
	Insert(ctx context.Context, event *models.PresenceEvent) (*models.PresenceEvent, error)
}

// OpenSessionRequest describes a session-open payload.
type OpenSessionRequest struct {
	MeetingID     string `json:"meeting_id" validate:"required"`
	Week          int    `json:"week" validate:"required,min=1"`
	WindowMinutes int    `json:"window_minutes" validate:"omitempty,min=1,max=120"`
}

// RecordPresenceRequest describes a scan callback payload.
type RecordPresenceRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	WindowID  string `json:"window_id" validate:"required"`
}

// SessionService manages the session lifecycle: opening an occurrence with
// its first scan window, appending the late-arrival window, and recording
// presence scans.
type SessionService struct {
	sessions  sessionStore
	meetings  meetingReader
	presence  presenceWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSessionService constructs SessionService.
func NewSessionService(sessions sessionStore, meetings meetingReader, presence presenceWriter, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{sessions: sessions, meetings: meetings, presence: presence, validator: validate, logger: logger}
}

const defaultWindowMinutes = 15

// Open creates the session for (meeting, week) with its first window
// spanning [now, now+windowDuration). Opening the same pair twice fails.
func (s *SessionService) Open(ctx context.Context, req OpenSessionRequest, now time.Time) (*models.SessionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}

	meeting, err := s.meetings.FindByID(ctx, req.MeetingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "meeting not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load meeting")
	}

	exists, err := s.sessions.Exists(ctx, req.MeetingID, req.Week)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check session")
	}
	if exists {
		return nil, appErrors.ErrSessionExists
	}

	windowMinutes := req.WindowMinutes
	if windowMinutes <= 0 {
		windowMinutes = defaultWindowMinutes
	}

	now = now.UTC()
	session := &models.Session{
		MeetingID:    req.MeetingID,
		Week:         req.Week,
		ScheduledEnd: now.Add(meeting.Slot()),
	}
	window := &models.SessionWindow{
		Ordinal:  1,
		StartsAt: now,
		EndsAt:   now.Add(time.Duration(windowMinutes) * time.Minute),
	}

	if err := s.sessions.Create(ctx, session, window); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open session")
	}

	s.logger.Info("session opened",
		zap.String("session_id", session.ID),
		zap.String("meeting_id", session.MeetingID),
		zap.Int("week", session.Week),
	)
	return &models.SessionDetail{Session: *session, Windows: []models.SessionWindow{*window}}, nil
}

// AppendWindow opens the second scan window, spanning from now until the
// meeting's scheduled end. It fails while the first window is still open
// and once two windows already exist.
func (s *SessionService) AppendWindow(ctx context.Context, sessionID string, now time.Time) (*models.SessionWindow, error) {
	detail, err := s.sessions.FindDetail(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSessionNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	if len(detail.Windows) >= models.MaxSessionWindows {
		return nil, appErrors.ErrWindowCapacity
	}
	if len(detail.Windows) == 0 {
		return nil, appErrors.Wrap(nil, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "session has no first window")
	}

	now = now.UTC()
	first := detail.Windows[0]
	if !now.After(first.EndsAt) {
		return nil, appErrors.ErrWindowPremature
	}
	if !now.Before(detail.ScheduledEnd) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "meeting schedule already over")
	}

	window := &models.SessionWindow{
		SessionID: detail.ID,
		Ordinal:   2,
		StartsAt:  now,
		EndsAt:    detail.ScheduledEnd,
	}
	if err := s.sessions.AppendWindow(ctx, window); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append window")
	}

	s.logger.Info("second window opened",
		zap.String("session_id", detail.ID),
		zap.Time("ends_at", window.EndsAt),
	)
	return window, nil
}

// RecordPresence appends a presence event for a scanned window. Scans are
// accepted as long as the window exists; no window-span check happens at
// this layer. Repeat scans collapse to the original event.
func (s *SessionService) RecordPresence(ctx context.Context, req RecordPresenceRequest, now time.Time) (*models.PresenceEvent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scan payload")
	}

	if _, err := s.sessions.FindWindow(ctx, req.WindowID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrWindowNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load window")
	}

	event := &models.PresenceEvent{
		StudentID: req.StudentID,
		WindowID:  req.WindowID,
		ScannedAt: now.UTC(),
	}
	stored, err := s.presence.Insert(ctx, event)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record presence")
	}
	return stored, nil
}

// Get returns a session with its windows.
func (s *SessionService) Get(ctx context.Context, sessionID string) (*models.SessionDetail, error) {
	detail, err := s.sessions.FindDetail(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSessionNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return detail, nil
}

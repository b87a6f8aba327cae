package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-presensi-api/internal/dto"
	"github.com/noah-isme/sma-presensi-api/internal/models"
	"github.com/noah-isme/sma-presensi-api/internal/service"
	appErrors "github.com/noah-isme/sma-presensi-api/pkg/errors"
	"github.com/noah-isme/sma-presensi-api/pkg/response"
)

type sessionService interface {
	Open(ctx context.Context, req service.OpenSessionRequest, now time.Time) (*models.SessionDetail, error)
	AppendWindow(ctx context.Context, sessionID string, now time.Time) (*models.SessionWindow, error)
	RecordPresence(ctx context.Context, req service.RecordPresenceRequest, now time.Time) (*models.PresenceEvent, error)
	Get(ctx context.Context, sessionID string) (*models.SessionDetail, error)
}

type scoreReader interface {
	SessionScores(ctx context.Context, sessionID string) ([]models.StudentScore, error)
	Standing(ctx context.Context, meetingID, studentID string, now time.Time) (*models.Standing, error)
}

// SessionHandler exposes session lifecycle and scoring endpoints.
type SessionHandler struct {
	sessions sessionService
	scores   scoreReader
	clock    service.Clock
}

// NewSessionHandler builds a new handler.
func NewSessionHandler(sessions sessionService, scores scoreReader, clock service.Clock) *SessionHandler {
	if clock == nil {
		clock = service.SystemClock{}
	}
	return &SessionHandler{sessions: sessions, scores: scores, clock: clock}
}

// Open godoc
// @Summary Open a scannable session for a meeting week
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body service.OpenSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Open(c *gin.Context) {
	var req service.OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}
	detail, err := h.sessions.Open(c.Request.Context(), req, h.clock.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewSessionResponse(detail))
}

// Get godoc
// @Summary Get a session with its windows
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	detail, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewSessionResponse(detail), nil)
}

// AppendWindow godoc
// @Summary Open the second scan window of a session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 201 {object} response.Envelope
// @Router /sessions/{id}/windows [post]
func (h *SessionHandler) AppendWindow(c *gin.Context) {
	window, err := h.sessions.AppendWindow(c.Request.Context(), c.Param("id"), h.clock.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.WindowResponse{ID: window.ID, Ordinal: window.Ordinal, StartsAt: window.StartsAt, EndsAt: window.EndsAt})
}

// Scan godoc
// @Summary Record a presence scan against a window
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body service.RecordPresenceRequest true "Scan payload"
// @Success 201 {object} response.Envelope
// @Router /sessions/scan [post]
func (h *SessionHandler) Scan(c *gin.Context) {
	var req service.RecordPresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid scan payload"))
		return
	}
	event, err := h.sessions.RecordPresence(c.Request.Context(), req, h.clock.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ScanResponse{EventID: event.ID, StudentID: event.StudentID, WindowID: event.WindowID, ScannedAt: event.ScannedAt})
}

// Scores godoc
// @Summary Attendance tiers for every enrolled student of a session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/scores [get]
func (h *SessionHandler) Scores(c *gin.Context) {
	scores, err := h.scores.SessionScores(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scores, nil)
}

// Standing godoc
// @Summary Cumulative attendance standing of a student on a meeting
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Param meetingId query string true "Meeting ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/standing [get]
func (h *SessionHandler) Standing(c *gin.Context) {
	meetingID := c.Query("meetingId")
	if meetingID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "meetingId is required"))
		return
	}
	standing, err := h.scores.Standing(c.Request.Context(), meetingID, c.Param("id"), h.clock.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, standing, nil)
}

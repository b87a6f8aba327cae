package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-presensi-api/internal/models"
	appErrors "github.com/noah-isme/sma-presensi-api/pkg/errors"
)

type sessionScoreReader interface {
	FindDetail(ctx context.Context, id string) (*models.SessionDetail, error)
}

type presenceReader interface {
	DistinctWindows(ctx context.Context, sessionID, studentID string) (int, error)
	CountsBySession(ctx context.Context, sessionID string) ([]models.PresenceCount, error)
	CountsByMeeting(ctx context.Context, meetingID, studentID string, before time.Time) ([]models.SessionPresence, error)
}

type participantLister interface {
	ListParticipants(ctx context.Context, classID string) ([]models.Participant, error)
}

type scoreCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type cacheObserver interface {
	RecordCacheOperation(hit bool)
}

// ScoreServiceConfig tunes scoring behaviour.
type ScoreServiceConfig struct {
	Table         models.ScoreTable
	PassThreshold int
	CacheTTL      time.Duration
}

// ScoreService derives attendance tiers and cumulative standing from the
// stored presence events. Scoring itself is pure; the service only reads.
type ScoreService struct {
	sessions sessionScoreReader
	meetings meetingReader
	presence presenceReader
	enrolled participantLister
	cache    scoreCache
	metrics  cacheObserver
	cfg      ScoreServiceConfig
	logger   *zap.Logger
}

// NewScoreService constructs ScoreService.
func NewScoreService(sessions sessionScoreReader, meetings meetingReader, presence presenceReader, enrolled participantLister, cache scoreCache, metrics cacheObserver, cfg ScoreServiceConfig, logger *zap.Logger) *ScoreService {
	if cfg.Table.Name == "" {
		cfg.Table = models.StandardTable
	}
	if cfg.PassThreshold <= 0 {
		cfg.PassThreshold = 80
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScoreService{sessions: sessions, meetings: meetings, presence: presence, enrolled: enrolled, cache: cache, metrics: metrics, cfg: cfg, logger: logger}
}

// Table exposes the active scoring table.
func (s *ScoreService) Table() models.ScoreTable {
	return s.cfg.Table
}

// Score computes one student's tier for one session.
func (s *ScoreService) Score(ctx context.Context, sessionID, studentID string) (*models.StudentScore, error) {
	if _, err := s.sessions.FindDetail(ctx, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSessionNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	windows, err := s.presence.DistinctWindows(ctx, sessionID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count presence")
	}

	score, tier := s.cfg.Table.Score(windows)
	return &models.StudentScore{
		StudentID:      studentID,
		WindowsPresent: windows,
		Score:          score,
		Tier:           tier,
	}, nil
}

// SessionScores computes tiers for every enrolled student of a session,
// absentees included. Results are cached briefly since the recap screens
// poll this endpoint.
func (s *ScoreService) SessionScores(ctx context.Context, sessionID string) ([]models.StudentScore, error) {
	cacheKey := fmt.Sprintf("scores:session:%s", sessionID)
	if s.cache != nil {
		var cached []models.StudentScore
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheOperation(true)
			}
			return cached, nil
		}
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(false)
		}
	}

	detail, err := s.sessions.FindDetail(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSessionNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	meeting, err := s.meetings.FindByID(ctx, detail.MeetingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load meeting")
	}
	participants, err := s.enrolled.ListParticipants(ctx, meeting.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list participants")
	}
	counts, err := s.presence.CountsBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count presence")
	}

	byStudent := make(map[string]int, len(counts))
	for _, c := range counts {
		byStudent[c.StudentID] = c.WindowsPresent
	}

	scores := make([]models.StudentScore, 0, len(participants))
	for _, p := range participants {
		windows := byStudent[p.StudentID]
		score, tier := s.cfg.Table.Score(windows)
		scores = append(scores, models.StudentScore{
			StudentID:      p.StudentID,
			FullName:       p.FullName,
			WindowsPresent: windows,
			Score:          score,
			Tier:           tier,
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, scores, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("score cache write failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	return scores, nil
}

// Standing aggregates a student's canonical scores over a meeting's elapsed
// sessions. The remaining budget is how many fully missed sessions the
// student can still absorb before the running average drops under the pass
// threshold.
func (s *ScoreService) Standing(ctx context.Context, meetingID, studentID string, now time.Time) (*models.Standing, error) {
	rows, err := s.presence.CountsByMeeting(ctx, meetingID, studentID, now.UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate presence")
	}

	standing := &models.Standing{StudentID: studentID, MeetingID: meetingID}
	if len(rows) == 0 {
		standing.RemainingBudget = 0
		return standing, nil
	}

	sum := 0
	for _, row := range rows {
		score, _ := s.cfg.Table.Score(row.WindowsPresent)
		sum += score
	}
	n := len(rows)
	standing.SessionsElapsed = n
	standing.AverageScore = float64(sum) / float64(n)
	standing.BelowThreshold = standing.AverageScore < float64(s.cfg.PassThreshold)

	// sum/(n+k) >= threshold  =>  k <= sum/threshold - n
	if s.cfg.PassThreshold > 0 {
		budget := int(math.Floor(float64(sum)/float64(s.cfg.PassThreshold))) - n
		if budget < 0 {
			budget = 0
		}
		standing.RemainingBudget = budget
	}
	return standing, nil
}

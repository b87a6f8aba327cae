package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-presensi-api/internal/models"
)

type memoryReminderLog struct {
	mu      sync.Mutex
	records []models.ReminderRecord
	err     error
}

func (m *memoryReminderLog) ExistsSuccessSince(ctx context.Context, studentID, sessionID string, tier models.AttendanceTier, cutoff time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	for _, r := range m.records {
		if r.StudentID == studentID && r.SessionID == sessionID && r.Tier == tier &&
			r.Outcome == models.ReminderOutcomeSuccess && !r.SentAt.Before(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryReminderLog) Insert(ctx context.Context, record *models.ReminderRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, *record)
	return nil
}

func (m *memoryReminderLog) InsertUnlessRecent(ctx context.Context, record *models.ReminderRecord, cutoff time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	for _, r := range m.records {
		if r.StudentID == record.StudentID && r.SessionID == record.SessionID && r.Tier == record.Tier &&
			r.Outcome == models.ReminderOutcomeSuccess && !r.SentAt.Before(cutoff) {
			return false, nil
		}
	}
	m.records = append(m.records, *record)
	return true, nil
}

func (m *memoryReminderLog) successCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, r := range m.records {
		if r.Outcome == models.ReminderOutcomeSuccess {
			count++
		}
	}
	return count
}

func TestDeduplicatorSuppressesInsideCooldown(t *testing.T) {
	log := &memoryReminderLog{}
	dedup := NewDeduplicator(log, 24*time.Hour, zap.NewNop())

	now := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)
	recorded, err := dedup.RecordOutcome(context.Background(), &models.ReminderRecord{
		StudentID: "stu-1", SessionID: "sess-1", Tier: models.TierAbsent,
		Outcome: models.ReminderOutcomeSuccess, SentAt: now,
	})
	require.NoError(t, err)
	require.True(t, recorded)

	ok, err := dedup.ShouldSend(context.Background(), "stu-1", "sess-1", models.TierAbsent, now.Add(5*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeduplicatorAllowsAfterCooldown(t *testing.T) {
	log := &memoryReminderLog{}
	dedup := NewDeduplicator(log, 5*time.Minute, zap.NewNop())

	now := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)
	recorded, err := dedup.RecordOutcome(context.Background(), &models.ReminderRecord{
		StudentID: "stu-1", SessionID: "sess-1", Tier: models.TierAbsent,
		Outcome: models.ReminderOutcomeSuccess, SentAt: now,
	})
	require.NoError(t, err)
	require.True(t, recorded)

	ok, err := dedup.ShouldSend(context.Background(), "stu-1", "sess-1", models.TierAbsent, now.Add(10*time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeduplicatorFailedAttemptNeverSuppresses(t *testing.T) {
	log := &memoryReminderLog{}
	dedup := NewDeduplicator(log, 24*time.Hour, zap.NewNop())

	now := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)
	reason := "gateway timeout"
	recorded, err := dedup.RecordOutcome(context.Background(), &models.ReminderRecord{
		StudentID: "stu-1", SessionID: "sess-1", Tier: models.TierAbsent,
		Outcome: models.ReminderOutcomeFailed, ErrorMessage: &reason, SentAt: now,
	})
	require.NoError(t, err)
	require.True(t, recorded)

	ok, err := dedup.ShouldSend(context.Background(), "stu-1", "sess-1", models.TierAbsent, now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeduplicatorDifferentTupleAllowed(t *testing.T) {
	log := &memoryReminderLog{}
	dedup := NewDeduplicator(log, 24*time.Hour, zap.NewNop())

	now := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)
	recorded, err := dedup.RecordOutcome(context.Background(), &models.ReminderRecord{
		StudentID: "stu-1", SessionID: "sess-1", Tier: models.TierAbsent,
		Outcome: models.ReminderOutcomeSuccess, SentAt: now,
	})
	require.NoError(t, err)
	require.True(t, recorded)

	// Same student, different session.
	ok, err := dedup.ShouldSend(context.Background(), "stu-1", "sess-2", models.TierAbsent, now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	// Same session, different tier.
	ok, err = dedup.ShouldSend(context.Background(), "stu-1", "sess-1", models.TierPartial, now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeduplicatorConcurrentSuccessCollapses(t *testing.T) {
	log := &memoryReminderLog{}
	dedup := NewDeduplicator(log, 2*time.Hour, zap.NewNop())

	now := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)
	record := func() *models.ReminderRecord {
		return &models.ReminderRecord{
			StudentID: "stu-1", SessionID: "sess-1", Tier: models.TierAbsent,
			Outcome: models.ReminderOutcomeSuccess, SentAt: now,
		}
	}

	recorded, err := dedup.RecordOutcome(context.Background(), record())
	require.NoError(t, err)
	assert.True(t, recorded)

	// A second writer inside the cooldown loses the conditional insert.
	recorded, err = dedup.RecordOutcome(context.Background(), record())
	require.NoError(t, err)
	assert.False(t, recorded)
	assert.Equal(t, 1, log.successCount())

	// Failed attempts always append; they never suppress anything.
	reason := "gateway timeout"
	failed := record()
	failed.Outcome = models.ReminderOutcomeFailed
	failed.ErrorMessage = &reason
	recorded, err = dedup.RecordOutcome(context.Background(), failed)
	require.NoError(t, err)
	assert.True(t, recorded)
	assert.Len(t, log.records, 2)
}

func TestDeduplicatorProcessedCache(t *testing.T) {
	dedup := NewDeduplicator(&memoryReminderLog{}, time.Hour, zap.NewNop())

	assert.False(t, dedup.SeenProcessed("sess-1", 3))
	dedup.MarkProcessed("sess-1", 3)
	assert.True(t, dedup.SeenProcessed("sess-1", 3))
	assert.False(t, dedup.SeenProcessed("sess-1", 4))
}

func TestDeduplicatorProcessedCacheCap(t *testing.T) {
	dedup := NewDeduplicator(&memoryReminderLog{}, time.Hour, zap.NewNop())

	for i := 0; i < processedCacheLimit; i++ {
		dedup.MarkProcessed(fmt.Sprintf("sess-%d", i), 1)
	}
	assert.True(t, dedup.SeenProcessed("sess-0", 1))

	// The next mark clears the full cache before inserting.
	dedup.MarkProcessed("sess-overflow", 1)
	assert.True(t, dedup.SeenProcessed("sess-overflow", 1))
	assert.False(t, dedup.SeenProcessed("sess-0", 1))
}

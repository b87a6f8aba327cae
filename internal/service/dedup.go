package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-presensi-api/internal/models"
)

// processedCacheLimit caps the in-process session cache. The map is cleared
// outright when it fills; the durable reminder log keeps dedup correct.
const processedCacheLimit = 100

type reminderLog interface {
	ExistsSuccessSince(ctx context.Context, studentID, sessionID string, tier models.AttendanceTier, cutoff time.Time) (bool, error)
	Insert(ctx context.Context, record *models.ReminderRecord) error
	InsertUnlessRecent(ctx context.Context, record *models.ReminderRecord, cutoff time.Time) (bool, error)
}

type processedKey struct {
	SessionID string
	Week      int
}

// Deduplicator guarantees at most one reminder per (student, session, tier)
// inside the cooldown window. The durable reminder log is the correctness
// mechanism; the in-memory processed-session set only short-circuits
// repeated detection of the same session between overlapping scans and is
// lost on restart.
type Deduplicator struct {
	log      reminderLog
	cooldown time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	processed map[processedKey]struct{}
}

// NewDeduplicator constructs a Deduplicator.
func NewDeduplicator(log reminderLog, cooldown time.Duration, logger *zap.Logger) *Deduplicator {
	if cooldown <= 0 {
		cooldown = 2 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduplicator{
		log:       log,
		cooldown:  cooldown,
		logger:    logger,
		processed: make(map[processedKey]struct{}),
	}
}

// ShouldSend reports whether a reminder for the tuple may go out now. Only
// a successful send inside the cooldown suppresses; failed attempts are
// retried on later scans.
func (d *Deduplicator) ShouldSend(ctx context.Context, studentID, sessionID string, tier models.AttendanceTier, now time.Time) (bool, error) {
	cutoff := now.Add(-d.cooldown)
	exists, err := d.log.ExistsSuccessSince(ctx, studentID, sessionID, tier, cutoff)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// RecordOutcome appends one reminder record to the durable log. Success
// rows go through the cooldown-scoped conditional insert, so when two
// scanners race on the same (student, session, tier) tuple only one
// success row lands. Returns false when another writer got there first.
func (d *Deduplicator) RecordOutcome(ctx context.Context, record *models.ReminderRecord) (bool, error) {
	if record.Outcome == models.ReminderOutcomeSuccess {
		cutoff := record.SentAt.Add(-d.cooldown)
		return d.log.InsertUnlessRecent(ctx, record, cutoff)
	}
	if err := d.log.Insert(ctx, record); err != nil {
		return false, err
	}
	return true, nil
}

// SeenProcessed reports whether this process already handled the session.
func (d *Deduplicator) SeenProcessed(sessionID string, week int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.processed[processedKey{SessionID: sessionID, Week: week}]
	return ok
}

// MarkProcessed records that this process finished handling the session.
func (d *Deduplicator) MarkProcessed(sessionID string, week int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.processed) >= processedCacheLimit {
		d.processed = make(map[processedKey]struct{})
	}
	d.processed[processedKey{SessionID: sessionID, Week: week}] = struct{}{}
}

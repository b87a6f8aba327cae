package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reminderConfig() ReminderConfig {
	return ReminderConfig{
		Enabled:       true,
		TickInterval:  5 * time.Minute,
		Lookback:      10 * time.Minute,
		Cooldown:      2 * time.Hour,
		PassThreshold: 80,
		ScoreTable:    ScoreTableStandard,
	}
}

func TestValidateAccepts(t *testing.T) {
	cfg := &Config{Reminder: reminderConfig()}
	require.NoError(t, validate(cfg))
}

func TestValidateRejectsLookbackNotExceedingInterval(t *testing.T) {
	cfg := &Config{Reminder: reminderConfig()}
	cfg.Reminder.Lookback = cfg.Reminder.TickInterval
	require.Error(t, validate(cfg))

	cfg.Reminder.Lookback = cfg.Reminder.TickInterval - time.Minute
	require.Error(t, validate(cfg))
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	cfg := &Config{Reminder: reminderConfig()}
	cfg.Reminder.PassThreshold = 101
	require.Error(t, validate(cfg))

	cfg.Reminder.PassThreshold = -1
	require.Error(t, validate(cfg))
}

func TestValidateRejectsUnknownScoreTable(t *testing.T) {
	cfg := &Config{Reminder: reminderConfig()}
	cfg.Reminder.ScoreTable = "bonus"
	require.Error(t, validate(cfg))

	cfg.Reminder.ScoreTable = ScoreTableLecture
	require.NoError(t, validate(cfg))
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 5*time.Minute, parseDuration("5m", time.Hour))
	assert.Equal(t, time.Hour, parseDuration("", time.Hour))
	assert.Equal(t, time.Hour, parseDuration("garbage", time.Hour))
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"http://a", "http://b"}, splitAndTrim(" http://a , http://b "))
}

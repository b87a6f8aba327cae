package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStandardTableScore(t *testing.T) {
	cases := []struct {
		windows int
		score   int
		tier    AttendanceTier
	}{
		{0, 0, TierAbsent},
		{1, 50, TierPartial},
		{2, 100, TierFull},
		{3, 100, TierFull},
	}
	for _, c := range cases {
		score, tier := StandardTable.Score(c.windows)
		assert.Equal(t, c.score, score, "windows=%d", c.windows)
		assert.Equal(t, c.tier, tier, "windows=%d", c.windows)
	}
}

func TestLectureTableScore(t *testing.T) {
	score, tier := LectureTable.Score(2)
	assert.Equal(t, 90, score)
	assert.Equal(t, TierFull, tier)

	score, tier = LectureTable.Score(1)
	assert.Equal(t, 45, score)
	assert.Equal(t, TierPartial, tier)

	score, tier = LectureTable.Score(0)
	assert.Equal(t, 0, score)
	assert.Equal(t, TierAbsent, tier)
}

func TestSessionDetailLastWindowEnd(t *testing.T) {
	detail := &SessionDetail{}
	assert.True(t, detail.LastWindowEnd().IsZero())
}

package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateTruncatesToUTCMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*60*60)
	in := time.Date(2024, 3, 1, 2, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), Date(in))
}

func TestFakeClockAdvance(t *testing.T) {
	c := NewFakeClock(time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC))
	c.Advance(2 * time.Hour)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Today(c))
}

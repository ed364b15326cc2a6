package quota

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCurrentWindow(t *testing.T) {
	anchor := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	day := 24 * time.Hour

	tests := []struct {
		name      string
		now       time.Time
		wantStart time.Time
	}{
		{"signup instant opens first window", anchor, anchor},
		{"six days in", anchor.Add(6 * day), anchor},
		{"just before boundary", anchor.Add(7*day - time.Nanosecond), anchor},
		{"boundary belongs to next window", anchor.Add(7 * day), anchor.Add(7 * day)},
		{"eight days in", anchor.Add(8 * day), anchor.Add(7 * day)},
		{"many weeks later", anchor.Add(30*day + 5*time.Hour), anchor.Add(28 * day)},
		{"clock skew before signup", anchor.Add(-time.Hour), anchor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := CurrentWindow(anchor, tt.now, WindowLength)
			assert.Equal(t, tt.wantStart, w.Start)
			assert.Equal(t, tt.wantStart.Add(WindowLength), w.End)
		})
	}
}

func TestWindowIsNotCalendarAligned(t *testing.T) {
	// Wednesday signup; the following Monday is still inside the first window
	anchor := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	monday := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

	w := CurrentWindow(anchor, monday, WindowLength)
	assert.Equal(t, anchor, w.Start)
	assert.True(t, w.Contains(monday))
}

func TestWindowContains(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	w := Window{Start: start, End: start.Add(WindowLength)}

	assert.True(t, w.Contains(start))
	assert.True(t, w.Contains(w.End.Add(-time.Second)))
	assert.False(t, w.Contains(w.End))
	assert.False(t, w.Contains(start.Add(-time.Second)))
}

func TestRetryAfterDays(t *testing.T) {
	anchor := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	w := CurrentWindow(anchor, anchor.Add(6*day), WindowLength)
	assert.Equal(t, 1, w.RetryAfterDays(anchor.Add(6*day)))
	assert.Equal(t, 7, w.RetryAfterDays(anchor))
	assert.Equal(t, 3, w.RetryAfterDays(anchor.Add(4*day+time.Hour)))
	assert.Equal(t, 1, w.RetryAfterDays(w.End.Add(-time.Minute)))
	assert.Equal(t, 1, w.RetryAfterDays(w.End.Add(time.Hour)))
}

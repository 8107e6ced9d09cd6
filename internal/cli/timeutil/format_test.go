package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0s"},
		{42, "42s"},
		{61, "1m 1s"},
		{3600, "1h 0m 0s"},
		{3*86400 + 30*60 + 15, "3d 0h 30m 15s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatUptime(tt.seconds))
	}
}

func TestFormatTime(t *testing.T) {
	ts := time.Date(2026, 1, 15, 10, 30, 45, 0, time.UTC)
	assert.Equal(t, ts.Local().Format(LocalTimeFormat), FormatTime(ts.Format(time.RFC3339)))
	assert.Equal(t, "yesterday", FormatTime("yesterday"))
}

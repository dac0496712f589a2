package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCountdown(t *testing.T) {
	tests := []struct {
		left time.Duration
		want string
	}{
		{2*24*time.Hour + 3*time.Hour + 4*time.Minute + 5*time.Second, "2d 3h 4m 5s"},
		{59 * time.Second, "0d 0h 0m 59s"},
		{1500 * time.Millisecond, "0d 0h 0m 1s"},
		{999 * time.Millisecond, BigDayMessage},
		{0, BigDayMessage},
		{-time.Hour, BigDayMessage},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCountdown(tt.left))
		})
	}
}

func TestSiteService_Event(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	svc := NewSiteService("The Barn", "1 Farm Road", "2026-03-02T14:30:00Z")
	info := svc.Event(now)

	assert.Equal(t, "The Barn", info.VenueName)
	require.NotNil(t, info.StartsAt)
	assert.Equal(t, "1d 2h 30m 0s", info.Countdown)
	assert.Equal(t, BigDayMessage, svc.Countdown(now.AddDate(0, 0, 2)))
}

func TestSiteService_UnparsableDate(t *testing.T) {
	for _, raw := range []string{"", "next june", "2026-03-02"} {
		svc := NewSiteService("The Barn", "", raw)
		info := svc.Event(time.Now())
		assert.Nil(t, info.StartsAt)
		assert.Empty(t, info.Countdown)
	}
}

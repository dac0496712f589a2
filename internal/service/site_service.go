package service

import (
	"fmt"
	"strings"
	"time"
)

// BigDayMessage replaces the countdown once the wedding has started.
const BigDayMessage = "It's the big day!"

// EventInfo describes the venue and the date of the wedding.
type EventInfo struct {
	VenueName    string     `json:"venue_name"`
	VenueAddress string     `json:"venue_address"`
	StartsAt     *time.Time `json:"starts_at,omitempty"`
	Countdown    string     `json:"countdown"`
}

// SiteService exposes static event information.
type SiteService interface {
	Event(now time.Time) EventInfo
	Countdown(now time.Time) string
}

type siteService struct {
	venueName    string
	venueAddress string
	startsAt     *time.Time
}

// NewSiteService creates a site service. dateTime is RFC 3339; an empty or
// unparsable value leaves the date and countdown blank.
func NewSiteService(venueName, venueAddress, dateTime string) SiteService {
	s := &siteService{venueName: venueName, venueAddress: venueAddress}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(dateTime)); err == nil {
		s.startsAt = &t
	}
	return s
}

func (s *siteService) Event(now time.Time) EventInfo {
	return EventInfo{
		VenueName:    s.venueName,
		VenueAddress: s.venueAddress,
		StartsAt:     s.startsAt,
		Countdown:    s.Countdown(now),
	}
}

// Countdown formats the time left as "<d>d <h>h <m>m <s>s".
func (s *siteService) Countdown(now time.Time) string {
	if s.startsAt == nil {
		return ""
	}
	return FormatCountdown(s.startsAt.Sub(now))
}

// FormatCountdown renders a remaining duration, truncated to whole seconds.
func FormatCountdown(left time.Duration) string {
	secs := int64(left / time.Second)
	if secs <= 0 {
		return BigDayMessage
	}
	d := secs / 86400
	h := secs / 3600 % 24
	m := secs / 60 % 60
	return fmt.Sprintf("%dd %dh %dm %ds", d, h, m, secs%60)
}

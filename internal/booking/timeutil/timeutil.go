// Package timeutil holds the pure time computations used by booking:
// expiry windows, night-time detection and business-time rollforward.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ImmediateLeadTime is how far ahead an immediate booking is due
const ImmediateLeadTime = 5 * time.Minute

// CancelWindow is the notice a translator must give to drop a booking
const CancelWindow = 24 * time.Hour

// ImmediateDue returns the due instant of an immediate booking created at now
func ImmediateDue(now time.Time, lead time.Duration) time.Time {
	if lead <= 0 {
		lead = ImmediateLeadTime
	}
	return now.Add(lead)
}

// WillExpireAt computes when a pending booking stops being offered.
//
//	due within 90 minutes -> due
//	due within 24 hours   -> created + 90 minutes
//	due within 72 hours   -> created + 16 hours
//	otherwise             -> due - 48 hours
func WillExpireAt(due, created time.Time) time.Time {
	diff := due.Sub(created)
	switch {
	case diff <= 90*time.Minute:
		return due
	case diff <= 24*time.Hour:
		return created.Add(90 * time.Minute)
	case diff <= 72*time.Hour:
		return created.Add(16 * time.Hour)
	default:
		return due.Add(-48 * time.Hour)
	}
}

// ConvertToHoursMins renders a minute count as "45min" or "1h 05min"
func ConvertToHoursMins(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dmin", minutes)
	}
	return fmt.Sprintf("%dh %02dmin", minutes/60, minutes%60)
}

// FormatSessionTime turns an "H:MM" session length into "H tim MM min"
func FormatSessionTime(sessionTime string) (string, error) {
	parts := strings.Split(strings.TrimSpace(sessionTime), ":")
	if len(parts) < 2 {
		return "", fmt.Errorf("invalid session time %q", sessionTime)
	}
	for _, p := range parts[:2] {
		if _, err := strconv.Atoi(p); err != nil {
			return "", fmt.Errorf("invalid session time %q: %w", sessionTime, err)
		}
	}
	return parts[0] + " tim " + parts[1] + " min", nil
}

// ElapsedMinutes is the whole minutes between from and to, never negative
func ElapsedMinutes(from, to time.Time) int {
	d := to.Sub(from)
	if d < 0 {
		d = -d
	}
	return int(d / time.Minute)
}

// FormatElapsed renders a duration as "1h 5m"
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

// BusinessHours knows the local night window and when business resumes
type BusinessHours struct {
	location   *time.Location
	nightStart int
	nightEnd   int
	schedule   cron.Schedule
}

// BusinessHoursConfig configures BusinessHours
type BusinessHoursConfig struct {
	Location   *time.Location
	NightStart int    // hour night-time begins, inclusive
	NightEnd   int    // hour night-time ends, exclusive
	ResumeCron string // standard cron expression for the next business instant
}

// NewBusinessHours validates the config and parses the resume schedule
func NewBusinessHours(cfg BusinessHoursConfig) (*BusinessHours, error) {
	if cfg.NightStart < 0 || cfg.NightStart > 23 || cfg.NightEnd < 0 || cfg.NightEnd > 23 {
		return nil, fmt.Errorf("night window hours must be within 0-23, got %d-%d", cfg.NightStart, cfg.NightEnd)
	}

	expr := cfg.ResumeCron
	if expr == "" {
		expr = fmt.Sprintf("0 %d * * *", cfg.NightEnd)
	}

	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid business hours cron expression: %w", err)
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	return &BusinessHours{
		location:   loc,
		nightStart: cfg.NightStart,
		nightEnd:   cfg.NightEnd,
		schedule:   schedule,
	}, nil
}

// IsNightTime reports whether t falls in the local night window
func (b *BusinessHours) IsNightTime(t time.Time) bool {
	h := t.In(b.location).Hour()
	if b.nightStart == b.nightEnd {
		return false
	}
	if b.nightStart < b.nightEnd {
		return h >= b.nightStart && h < b.nightEnd
	}
	return h >= b.nightStart || h < b.nightEnd
}

// NextBusinessTime is the first resume instant strictly after t
func (b *BusinessHours) NextBusinessTime(t time.Time) time.Time {
	return b.schedule.Next(t.In(b.location))
}

// Location is the zone business hours are evaluated in
func (b *BusinessHours) Location() *time.Location {
	return b.location
}

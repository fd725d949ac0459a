package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrBadDateTime = errors.New("unrecognized date/time format")
	ErrBadOffsets  = errors.New("invalid offsets list")
)

const (
	dateTimeLayout = "02.01.2006 15:04"
	dateLayout     = "02.01.2006"
)

// ParseDateTime parses "DD.MM.YYYY HH:MM" in the given location, falling back
// to "DD.MM.YYYY" which implies end of day (23:59 local). The result is
// normalized to UTC; all deadline and reminder math runs on UTC instants.
func ParseDateTime(text string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, ErrBadDateTime
	}
	if t, err := time.ParseInLocation(dateTimeLayout, s, loc); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		eod := time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 0, 0, loc)
		return eod.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadDateTime, s)
}

// FormatDateTime renders t as "DD.MM.YYYY HH:MM" in the user's zone,
// silently falling back to def when tz is empty or invalid.
func FormatDateTime(t time.Time, tz string, def *time.Location) string {
	return t.In(UserLocation(tz, def)).Format(dateTimeLayout)
}

// UserLocation loads an IANA zone, falling back to def on empty or invalid input.
func UserLocation(tz string, def *time.Location) *time.Location {
	if tz == "" {
		return def
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return def
	}
	return loc
}

// ValidateTZ checks that the tz is a valid IANA location.
func ValidateTZ(tz string) (string, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", err
	}
	return loc.String(), nil
}

// ParseOffsets parses a comma-separated list of reminder offsets like
// "24h,1h" or "1h30m, 15m". Offsets are deduplicated and sorted descending
// so the stored list is stable regardless of how it was entered.
func ParseOffsets(s string) ([]time.Duration, error) {
	var out []time.Duration
	seen := make(map[time.Duration]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := time.ParseDuration(part)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrBadOffsets, part)
		}
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return nil, ErrBadOffsets
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out, nil
}

// FormatOffsets renders offsets the way ParseOffsets accepts them.
func FormatOffsets(offs []time.Duration) string {
	labels := make([]string, 0, len(offs))
	for _, d := range offs {
		labels = append(labels, OffsetLabel(d))
	}
	return strings.Join(labels, ",")
}

// OffsetLabel renders a duration compactly ("24h", "90m"). Used both for
// display and as the offset component of job IDs, so it must be
// deterministic for a given duration.
func OffsetLabel(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(d/time.Hour))
	}
	if d%time.Minute == 0 {
		return fmt.Sprintf("%dm", int(d/time.Minute))
	}
	return d.String()
}

// HumanDuration renders an offset for message text ("24 h", "90 min").
func HumanDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		return fmt.Sprintf("%d h", int(d/time.Hour))
	}
	return fmt.Sprintf("%d min", int(d/time.Minute))
}

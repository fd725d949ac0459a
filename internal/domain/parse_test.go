package domain

import (
	"errors"
	"testing"
	"time"
)

func mustLoc(t *testing.T, tz string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(tz)
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	return loc
}

func TestParseDateTime_Full(t *testing.T) {
	msk := mustLoc(t, "Europe/Moscow")
	got, err := ParseDateTime("10.03.2025 18:00", msk)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2025, time.March, 10, 18, 0, 0, 0, msk).UTC()
	if !got.Equal(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	if got.Location() != time.UTC {
		t.Fatalf("result not UTC-normalized: %v", got.Location())
	}
}

func TestParseDateTime_DateOnlyImpliesEndOfDay(t *testing.T) {
	msk := mustLoc(t, "Europe/Moscow")
	got, err := ParseDateTime("10.03.2025", msk)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2025, time.March, 10, 23, 59, 0, 0, msk).UTC()
	if !got.Equal(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestParseDateTime_Bad(t *testing.T) {
	cases := []string{"", "yesterday", "2025-03-10", "10.03.2025 25:61", "10/03/2025"}
	for _, in := range cases {
		if _, err := ParseDateTime(in, time.UTC); !errors.Is(err, ErrBadDateTime) {
			t.Fatalf("input %q: want ErrBadDateTime, got %v", in, err)
		}
	}
}

func TestFormatDateTime_FallsBackOnBadZone(t *testing.T) {
	msk := mustLoc(t, "Europe/Moscow")
	instant := time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC)

	if got := FormatDateTime(instant, "Not/AZone", msk); got != "10.03.2025 18:00" {
		t.Fatalf("bad zone should fall back to default: got %q", got)
	}
	if got := FormatDateTime(instant, "", msk); got != "10.03.2025 18:00" {
		t.Fatalf("empty zone should fall back to default: got %q", got)
	}
	if got := FormatDateTime(instant, "UTC", msk); got != "10.03.2025 15:00" {
		t.Fatalf("explicit zone should win: got %q", got)
	}
}

func TestParseOffsets(t *testing.T) {
	offs, err := ParseOffsets(" 1h, 24h ,1h ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(offs) != 2 || offs[0] != 24*time.Hour || offs[1] != time.Hour {
		t.Fatalf("want [24h 1h] deduplicated and sorted, got %v", offs)
	}

	for _, bad := range []string{"", ",,", "abc", "-1h", "0s"} {
		if _, err := ParseOffsets(bad); err == nil {
			t.Fatalf("input %q: want error", bad)
		}
	}
}

func TestOffsetLabelRoundTrip(t *testing.T) {
	cases := map[time.Duration]string{
		24 * time.Hour:   "24h",
		time.Hour:        "1h",
		90 * time.Minute: "90m",
		15 * time.Minute: "15m",
	}
	for d, want := range cases {
		if got := OffsetLabel(d); got != want {
			t.Fatalf("OffsetLabel(%v): want %q, got %q", d, want, got)
		}
		back, err := time.ParseDuration(OffsetLabel(d))
		if err != nil || back != d {
			t.Fatalf("label %q does not round-trip to %v", OffsetLabel(d), d)
		}
	}
}

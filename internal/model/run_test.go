package model

import (
	"regexp"
	"testing"
	"time"
)

func TestNewRunID(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 31, 14, 30, 5, 0, time.UTC)
	id := NewRunID(now)

	format := regexp.MustCompile(`^20260831-143005-[0-9a-f]{8}$`)
	if !format.MatchString(id) {
		t.Errorf("NewRunID() = %q, want timestamp plus short suffix", id)
	}

	if NewRunID(now) == id {
		t.Error("NewRunID() returned the same id twice for one timestamp")
	}
}

func TestNewRunIDUsesUTC(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+9", 9*60*60)
	local := time.Date(2026, 8, 31, 9, 0, 0, 0, loc)

	id := NewRunID(local)
	if id[:15] != "20260831-000000" {
		t.Errorf("NewRunID() = %q, want UTC-normalized timestamp prefix", id)
	}
}

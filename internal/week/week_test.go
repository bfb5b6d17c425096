package week

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestBoundsRoundTrip(t *testing.T) {
	cases := []Key{
		{Year: 2025, Week: 1},
		{Year: 2025, Week: 3},
		{Year: 2024, Week: 52},
		{Year: 2020, Week: 53},
		{Year: 2021, Week: 1},
	}
	for _, key := range cases {
		start, end := key.Bounds()
		if start.Weekday() != time.Monday {
			t.Fatalf("%s: start %s is a %s, want Monday", key, start, start.Weekday())
		}
		if got := Of(start); got != key {
			t.Fatalf("%s: start maps back to %s", key, got)
		}
		if want := 7*24*time.Hour - time.Second; end.Sub(start) != want {
			t.Fatalf("%s: span %s, want %s", key, end.Sub(start), want)
		}
	}
}

func TestBoundsJanuaryAnchor(t *testing.T) {
	// ISO week 1 of 2025 starts Monday Dec 30 2024.
	key := Key{Year: 2025, Week: 1}
	start, _ := key.Bounds()
	want := time.Date(2024, time.December, 30, 0, 0, 0, 0, time.UTC)
	if !start.Equal(want) {
		t.Fatalf("week 1 of 2025 starts %s, want %s", start, want)
	}
}

func TestNewRejectsOutOfRange(t *testing.T) {
	for _, wk := range []int{0, 54, -3} {
		if _, err := New(2025, wk); err == nil {
			t.Fatalf("expected error for week %d", wk)
		}
	}
}

func TestLastComplete(t *testing.T) {
	// Wednesday of week 3, 2025: the last complete week is week 2.
	now := time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)
	if got := LastComplete(now); got != (Key{Year: 2025, Week: 2}) {
		t.Fatalf("last complete week = %s, want 2025-W02", got)
	}
	// Early January resolves into the previous ISO year.
	now = time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC)
	if got := LastComplete(now); got != (Key{Year: 2024, Week: 52}) {
		t.Fatalf("last complete week = %s, want 2024-W52", got)
	}
}

func TestSequenceCrossesYearBoundary(t *testing.T) {
	got, err := Sequence(5, Key{Year: 2025, Week: 3})
	if err != nil {
		t.Fatalf("sequence: %v", err)
	}
	want := []Key{
		{Year: 2024, Week: 51},
		{Year: 2024, Week: 52},
		{Year: 2025, Week: 1},
		{Year: 2025, Week: 2},
		{Year: 2025, Week: 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestSequenceLongYear(t *testing.T) {
	// 2020 has 53 ISO weeks; walking back from 2021-W01 must land on it.
	got, err := Sequence(2, Key{Year: 2021, Week: 1})
	if err != nil {
		t.Fatalf("sequence: %v", err)
	}
	want := []Key{{Year: 2020, Week: 53}, {Year: 2021, Week: 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestPrev(t *testing.T) {
	if got := (Key{Year: 2025, Week: 1}).Prev(); got != (Key{Year: 2024, Week: 52}) {
		t.Fatalf("prev of 2025-W01 = %s, want 2024-W52", got)
	}
	if got := (Key{Year: 2021, Week: 1}).Prev(); got != (Key{Year: 2020, Week: 53}) {
		t.Fatalf("prev of 2021-W01 = %s, want 2020-W53", got)
	}
}

func TestSlugZeroPadsWeek(t *testing.T) {
	if got := (Key{Year: 2025, Week: 3}).Slug(); got != "week-03-2025" {
		t.Fatalf("slug = %q", got)
	}
	if got := (Key{Year: 2024, Week: 52}).Slug(); got != "week-52-2024" {
		t.Fatalf("slug = %q", got)
	}
}

func TestContains(t *testing.T) {
	key := Key{Year: 2025, Week: 3}
	start, end := key.Bounds()
	if !key.Contains(start) || !key.Contains(end) {
		t.Fatalf("bounds should be inclusive")
	}
	if key.Contains(start.Add(-time.Second)) {
		t.Fatalf("instant before start should be excluded")
	}
	if key.Contains(end.Add(time.Second)) {
		t.Fatalf("instant after end should be excluded")
	}
}

package util_test

import (
	"errors"
	"testing"
	"time"

	"github.com/derickschaefer/bodacc/internal/util"
)

func TestParseDate(t *testing.T) {
	got, err := util.ParseDate(" 2024-02-29 ")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if got != time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC) {
		t.Errorf("unexpected date %v", got)
	}
	if _, err := util.ParseDate("29/02/2024"); err == nil {
		t.Error("expected error for non-ISO date")
	}
}

func TestMonthBounds(t *testing.T) {
	d := time.Date(2024, 1, 31, 15, 4, 5, 0, time.UTC)
	if got := util.FormatDate(util.FirstOfMonth(d)); got != "2024-01-01" {
		t.Errorf("FirstOfMonth: got %s", got)
	}
	if got := util.FormatDate(util.LastOfMonth(time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))); got != "2024-02-29" {
		t.Errorf("LastOfMonth leap year: got %s", got)
	}
}

func TestMultiError(t *testing.T) {
	var m util.MultiError
	if m.Err() != nil {
		t.Fatal("empty MultiError should yield nil")
	}
	sentinel := errors.New("boom")
	m.Add(nil)
	m.Add(sentinel)
	m.Add(errors.New("bang"))
	err := m.Err()
	if err == nil || err.Error() != "boom; bang" {
		t.Fatalf("unexpected error %v", err)
	}
	if !errors.Is(err, sentinel) {
		t.Error("errors.Is should see collected errors")
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"Paris", 10, "Paris"},
		{"Paris", 5, "Paris"},
		{"Société Générale", 8, "Société…"},
		{"abc", 1, "a"},
	}
	for _, tc := range cases {
		if got := util.Truncate(tc.in, tc.n); got != tc.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}

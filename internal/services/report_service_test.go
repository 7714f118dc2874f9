package services

import (
	"bytes"
	"os"
	"testing"
	"time"
)

func fontAvailable(paths []string) bool {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return false
}

func TestBuildBaselineReport(t *testing.T) {
	svc := NewReportService()
	if !fontAvailable(svc.fontPaths) {
		t.Skip("no TTF font installed")
	}

	answers := RawAnswers{"q1": 2, "q2": 2, "q3": 1, "q4": 1, "q5": 1, "q6": 1, "q7": 1, "q8": 1, "q9": 1, "q10": 1, "q11": 1}
	b, err := svc.BuildBaselineReport("Ada Lovelace", answers, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("BuildBaselineReport error: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF")) {
		t.Fatalf("output is not a PDF document")
	}
}

func TestBuildBaselineReportMissingFont(t *testing.T) {
	svc := NewReportService()
	svc.fontPaths = []string{"/nonexistent/font.ttf"}
	if _, err := svc.BuildBaselineReport("Ada", RawAnswers{}, time.Now()); err == nil {
		t.Fatalf("expected font error")
	}
}

func TestRatingLabel(t *testing.T) {
	cases := []struct {
		rating int
		want   string
	}{
		{0, "None"},
		{1, "Mild"},
		{4, "Very severe"},
		{-1, "None"},
		{9, "None"},
	}
	for _, c := range cases {
		if got := ratingLabel(c.rating); got != c.want {
			t.Fatalf("ratingLabel(%d)=%q, want %q", c.rating, got, c.want)
		}
	}
}
